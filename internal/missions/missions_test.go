package missions

import (
	"testing"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

func expense(category, amount string) core.Expense {
	return core.Expense{Category: category, Amount: decimal.RequireFromString(amount)}
}

func TestForDate_Deterministic(t *testing.T) {
	first := ForDate("user-1", "2025-06-15")
	for i := 0; i < 10; i++ {
		if got := ForDate("user-1", "2025-06-15"); got.ID != first.ID {
			t.Fatalf("ForDate changed between calls: %s vs %s", got.ID, first.ID)
		}
	}
}

func TestForDate_RotatesAcrossDays(t *testing.T) {
	seen := map[string]bool{}
	dates := []string{
		"2025-06-01", "2025-06-02", "2025-06-03", "2025-06-04",
		"2025-06-05", "2025-06-06", "2025-06-07", "2025-06-08",
		"2025-06-09", "2025-06-10", "2025-06-11", "2025-06-12",
	}
	for _, d := range dates {
		seen[ForDate("user-1", d).ID] = true
	}
	if len(seen) < 2 {
		t.Errorf("12 days produced %d distinct missions, expected rotation", len(seen))
	}
}

func TestForDate_AlwaysInCatalog(t *testing.T) {
	for _, userKey := range []string{"", "a", "user-1", "देवनागरी", "zzzzzzzzzzzz"} {
		m := ForDate(userKey, "2025-06-15")
		found := false
		for _, c := range Catalog {
			if c.ID == m.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("ForDate(%q) returned %q, not in catalog", userKey, m.ID)
		}
	}
}

func TestHash31UsesUTF16CodeUnits(t *testing.T) {
	// U+1D11E is the surrogate pair D834 DD1E in UTF-16; hashing the
	// code point itself would give a different pick.
	want := int32(0)
	for _, u := range []int32{0xD834, 0xDD1E} {
		want = want*31 + u
	}
	if got := hash31("\U0001D11E"); got != int(want) {
		t.Errorf("hash31 = %d, want %d (UTF-16 code units)", got, want)
	}

	if got, want := hash31("user-1"), hash31("user-1"); got != want {
		t.Errorf("hash31 not deterministic: %d vs %d", got, want)
	}
}

func missionByID(t *testing.T, id string) Mission {
	t.Helper()
	for _, m := range Catalog {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("mission %q not in catalog", id)
	return Mission{}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		mission  string
		expenses []core.Expense
		want     int
	}{
		{name: "no-spend clean day", mission: "no-spend-challenge", expenses: nil, want: 100},
		{name: "no-spend broken", mission: "no-spend-challenge",
			expenses: []core.Expense{expense("food", "10")}, want: 0},
		{name: "limit-category untouched", mission: "auto-rickshaw-limit",
			expenses: []core.Expense{expense("food", "500")}, want: 100},
		{name: "limit-category half used", mission: "auto-rickshaw-limit",
			expenses: []core.Expense{expense("auto", "50")}, want: 50},
		{name: "limit-category blown", mission: "auto-rickshaw-limit",
			expenses: []core.Expense{expense("auto-rickshaw", "250")}, want: 0},
		{name: "track none", mission: "track-every-rupee", expenses: nil, want: 0},
		{name: "track two", mission: "track-every-rupee",
			expenses: []core.Expense{expense("food", "5"), expense("paan", "5")}, want: 66},
		{name: "track three", mission: "track-every-rupee",
			expenses: []core.Expense{expense("a", "1"), expense("b", "1"), expense("c", "1")}, want: 100},
		{name: "save-target nothing spent", mission: "petrol-saver", expenses: nil, want: 100},
		{name: "save-target half spent", mission: "petrol-saver",
			expenses: []core.Expense{expense("petrol", "100")}, want: 50},
		{name: "save-target overspent", mission: "petrol-saver",
			expenses: []core.Expense{expense("petrol", "300")}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := missionByID(t, tt.mission)
			if got := Progress(m, tt.expenses); got != tt.want {
				t.Errorf("Progress(%s) = %d, want %d", tt.mission, got, tt.want)
			}
		})
	}
}
