package missions

import (
	"context"
	"testing"
	"time"

	"laksha/internal/core"
)

type memState struct {
	values map[string]string
}

func newMemState() *memState {
	return &memState{values: make(map[string]string)}
}

func (m *memState) GetState(ctx context.Context, userKey, stateKey string) (string, error) {
	return m.values[userKey+"|"+stateKey], nil
}

func (m *memState) SetState(ctx context.Context, userKey, stateKey, value string) error {
	m.values[userKey+"|"+stateKey] = value
	return nil
}

type memExpenses struct {
	expenses []core.Expense
}

func (m *memExpenses) ListExpensesInRange(ctx context.Context, userKey string, start, end time.Time) ([]core.Expense, error) {
	return m.expenses, nil
}

var day = time.Date(2025, time.June, 15, 10, 0, 0, 0, core.ReferenceZone)

func TestService_Today(t *testing.T) {
	svc := NewService(newMemState(), &memExpenses{})

	status, err := svc.Today(context.Background(), "user-1", day)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if status.Date != "2025-06-15" {
		t.Errorf("Date = %q, want 2025-06-15", status.Date)
	}
	if status.Completed {
		t.Error("fresh day reported completed")
	}
	if status.Streak != 0 {
		t.Errorf("Streak = %d, want 0", status.Streak)
	}
	if status.Mission.ID != ForDate("user-1", "2025-06-15").ID {
		t.Errorf("Mission = %q, want the deterministic pick", status.Mission.ID)
	}
}

func TestService_CompleteBumpsStreakOnce(t *testing.T) {
	svc := NewService(newMemState(), &memExpenses{})
	ctx := context.Background()

	newly, err := svc.Complete(ctx, "user-1", day)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !newly {
		t.Fatal("first Complete returned false")
	}

	streak, err := svc.Streak(ctx, "user-1")
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 1 {
		t.Errorf("streak = %d, want 1", streak)
	}

	// Completing again the same day is a no-op.
	newly, err = svc.Complete(ctx, "user-1", day.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if newly {
		t.Error("second Complete returned true")
	}
	if streak, _ = svc.Streak(ctx, "user-1"); streak != 1 {
		t.Errorf("streak after repeat = %d, want 1", streak)
	}
}

func TestService_StreakGrowsAcrossDays(t *testing.T) {
	svc := NewService(newMemState(), &memExpenses{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Complete(ctx, "user-1", day.AddDate(0, 0, i)); err != nil {
			t.Fatalf("Complete day %d: %v", i, err)
		}
	}

	streak, err := svc.Streak(ctx, "user-1")
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}
}

func TestService_StreakIgnoresGarbageState(t *testing.T) {
	state := newMemState()
	state.values["user-1|mission_streak"] = "not-a-number"
	svc := NewService(state, &memExpenses{})

	streak, err := svc.Streak(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 0 {
		t.Errorf("streak = %d, want 0 for unparseable state", streak)
	}
}
