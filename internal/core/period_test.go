package core

import (
	"testing"
	"time"
)

func TestDayBounds_CrossesUTCDate(t *testing.T) {
	// 19:00 UTC on March 10 is already 00:30 on March 11 in UTC+5:30.
	asOf := time.Date(2025, time.March, 10, 19, 0, 0, 0, time.UTC)

	start, end := DayBounds(asOf)

	wantStart := time.Date(2025, time.March, 11, 0, 0, 0, 0, ReferenceZone)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("end = %v, want %v", end, wantStart.AddDate(0, 0, 1))
	}
	if got := LocalDate(asOf); got != "2025-03-11" {
		t.Errorf("LocalDate = %q, want 2025-03-11", got)
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name      string
		asOf      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "middle of month",
			asOf:      time.Date(2025, time.June, 15, 12, 0, 0, 0, ReferenceZone),
			wantStart: time.Date(2025, time.June, 1, 0, 0, 0, 0, ReferenceZone),
			wantEnd:   time.Date(2025, time.July, 1, 0, 0, 0, 0, ReferenceZone),
		},
		{
			name:      "december rolls into january",
			asOf:      time.Date(2025, time.December, 31, 23, 59, 0, 0, ReferenceZone),
			wantStart: time.Date(2025, time.December, 1, 0, 0, 0, 0, ReferenceZone),
			wantEnd:   time.Date(2026, time.January, 1, 0, 0, 0, 0, ReferenceZone),
		},
		{
			name:      "utc evening belongs to next month locally",
			asOf:      time.Date(2025, time.April, 30, 20, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, time.May, 1, 0, 0, 0, 0, ReferenceZone),
			wantEnd:   time.Date(2025, time.June, 1, 0, 0, 0, 0, ReferenceZone),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthBounds(tt.asOf)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	asOf := time.Date(2025, time.March, 10, 19, 0, 0, 0, time.UTC)

	if got := PeriodKey(KindDailyLimit, asOf); got != "2025-03-11" {
		t.Errorf("daily key = %q, want 2025-03-11", got)
	}
	for _, kind := range []NotificationKind{KindBudget50, KindBudget80, KindBudget100} {
		if got := PeriodKey(kind, asOf); got != "2025-03" {
			t.Errorf("%s key = %q, want 2025-03", kind, got)
		}
	}
}

func TestPeriodStart(t *testing.T) {
	asOf := time.Date(2025, time.June, 15, 12, 0, 0, 0, ReferenceZone)

	dayStart, _ := DayBounds(asOf)
	if got := PeriodStart(KindDailyLimit, asOf); !got.Equal(dayStart) {
		t.Errorf("PeriodStart(daily_limit) = %v, want %v", got, dayStart)
	}

	monthStart, _ := MonthBounds(asOf)
	if got := PeriodStart(KindBudget80, asOf); !got.Equal(monthStart) {
		t.Errorf("PeriodStart(budget_80) = %v, want %v", got, monthStart)
	}
}
