package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(userKey, category, amount string, date time.Time) core.Expense {
	return core.Expense{
		UserKey:  userKey,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Method:   core.MethodManual,
		Date:     date,
	}
}

var noon = time.Date(2025, time.June, 15, 12, 0, 0, 0, core.ReferenceZone)

func TestExpenseCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateExpense(ctx, testExpense("u1", "food", "120.50", noon))
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateExpense returned empty id")
	}

	got, err := repo.GetExpense(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("amount = %s, want 120.50", got.Amount)
	}
	if got.Category != "food" || got.Method != core.MethodManual {
		t.Errorf("got %+v", got)
	}

	// Other users cannot see or delete it.
	if _, err := repo.GetExpense(ctx, "u2", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user GetExpense error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, "u2", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user DeleteExpense error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteExpense(ctx, "u1", created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := repo.DeleteExpense(ctx, "u1", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteExpense error = %v, want ErrNotFound", err)
	}
}

func TestListExpenses(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i, cat := range []string{"food", "auto", "food"} {
		e := testExpense("u1", cat, "10", noon.Add(time.Duration(i)*time.Hour))
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense %d: %v", i, err)
		}
	}

	all, err := repo.ListExpenses(ctx, "u1", 50, "")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d expenses, want 3", len(all))
	}
	// Newest first.
	if !all[0].Date.After(all[1].Date) || !all[1].Date.After(all[2].Date) {
		t.Error("expenses not ordered newest first")
	}

	food, err := repo.ListExpenses(ctx, "u1", 50, "food")
	if err != nil {
		t.Fatalf("ListExpenses(food): %v", err)
	}
	if len(food) != 2 {
		t.Errorf("listed %d food expenses, want 2", len(food))
	}

	limited, err := repo.ListExpenses(ctx, "u1", 1, "")
	if err != nil {
		t.Fatalf("ListExpenses(limit 1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("listed %d with limit 1", len(limited))
	}
}

func TestSumAmountIsExact(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// 0.10 added three times is exactly 0.30 on integer hundredths.
	for i := 0; i < 3; i++ {
		if _, err := repo.CreateExpense(ctx, testExpense("u1", "misc", "0.10", noon)); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	dayStart, dayEnd := core.DayBounds(noon)
	sum, err := repo.SumAmount(ctx, "u1", dayStart, dayEnd)
	if err != nil {
		t.Fatalf("SumAmount: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("0.30")) {
		t.Errorf("sum = %s, want 0.30", sum)
	}
}

func TestSumAmountRangeIsHalfOpen(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	dayStart, dayEnd := core.DayBounds(noon)
	inDay := testExpense("u1", "food", "100", dayStart)
	nextDay := testExpense("u1", "food", "50", dayEnd)
	for _, e := range []core.Expense{inDay, nextDay} {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	sum, err := repo.SumAmount(ctx, "u1", dayStart, dayEnd)
	if err != nil {
		t.Fatalf("SumAmount: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("sum = %s, want 100 (end of range excluded)", sum)
	}
}

func TestCategoryTotals(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	amounts := map[string][]string{
		"food": {"100", "50"},
		"auto": {"200"},
	}
	for cat, list := range amounts {
		for _, a := range list {
			if _, err := repo.CreateExpense(ctx, testExpense("u1", cat, a, noon)); err != nil {
				t.Fatalf("CreateExpense: %v", err)
			}
		}
	}

	dayStart, dayEnd := core.DayBounds(noon)
	totals, err := repo.CategoryTotals(ctx, "u1", dayStart, dayEnd)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d categories, want 2", len(totals))
	}
	// Largest first.
	if totals[0].Category != "auto" || !totals[0].Total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("totals[0] = %+v, want auto 200", totals[0])
	}
	if totals[1].Category != "food" || !totals[1].Total.Equal(decimal.NewFromInt(150)) {
		t.Errorf("totals[1] = %+v, want food 150", totals[1])
	}
}

func TestExpenseDays(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, d := range []int{1, 1, 3} {
		e := testExpense("u1", "food", "10", time.Date(2025, time.June, d, 9, 0, 0, 0, core.ReferenceZone))
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	days, err := repo.ExpenseDays(ctx, "u1", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("ExpenseDays: %v", err)
	}
	want := []string{"2025-06-01", "2025-06-03"}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d] = %q, want %q", i, days[i], want[i])
		}
	}
}

func TestSaveBudgetUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.SaveBudget(ctx, core.Budget{
		UserKey:    "u1",
		PeriodType: core.PeriodMonthly,
		Amount:     decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	second, err := repo.SaveBudget(ctx, core.Budget{
		UserKey:         "u1",
		PeriodType:      core.PeriodMonthly,
		Amount:          decimal.NewFromInt(15000),
		CategoryBudgets: map[string]decimal.Decimal{"food": decimal.NewFromInt(5000)},
	})
	if err != nil {
		t.Fatalf("second SaveBudget: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert changed id: %s -> %s", first.ID, second.ID)
	}
	if !second.Amount.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("amount = %s, want 15000", second.Amount)
	}
	if !second.CategoryBudgets["food"].Equal(decimal.NewFromInt(5000)) {
		t.Errorf("category budgets = %v", second.CategoryBudgets)
	}

	keys, err := repo.ListBudgetUserKeys(ctx)
	if err != nil {
		t.Fatalf("ListBudgetUserKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "u1" {
		t.Errorf("keys = %v, want [u1]", keys)
	}
}

func TestActiveBudgetMissing(t *testing.T) {
	repo := newTestRepository(t)

	budget, err := repo.ActiveBudget(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ActiveBudget: %v", err)
	}
	if budget != nil {
		t.Errorf("budget = %+v, want nil", budget)
	}
}

func TestNotificationDeduplication(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := core.NotificationRecord{
		UserKey: "u1",
		Kind:    core.KindBudget50,
		FiredAt: noon,
		Message: "m1",
	}
	if _, err := repo.InsertNotification(ctx, rec); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	// Same kind, same month: the unique period index rejects it.
	dup := rec
	dup.ID = ""
	dup.FiredAt = noon.AddDate(0, 0, 5)
	if _, err := repo.InsertNotification(ctx, dup); !errors.Is(err, core.ErrDuplicateNotification) {
		t.Errorf("duplicate insert error = %v, want ErrDuplicateNotification", err)
	}

	// Different kind in the same month is fine.
	other := rec
	other.ID = ""
	other.Kind = core.KindBudget80
	if _, err := repo.InsertNotification(ctx, other); err != nil {
		t.Errorf("different kind insert: %v", err)
	}

	// Same kind next month is fine.
	nextMonth := rec
	nextMonth.ID = ""
	nextMonth.FiredAt = noon.AddDate(0, 1, 0)
	if _, err := repo.InsertNotification(ctx, nextMonth); err != nil {
		t.Errorf("next month insert: %v", err)
	}
}

func TestFindFired(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	found, err := repo.FindFired(ctx, "u1", core.KindBudget50, noon)
	if err != nil {
		t.Fatalf("FindFired: %v", err)
	}
	if found != nil {
		t.Fatalf("found %+v before any insert", found)
	}

	if _, err := repo.InsertNotification(ctx, core.NotificationRecord{
		UserKey: "u1", Kind: core.KindBudget50, FiredAt: noon, Message: "m",
	}); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	// Any instant in the same month finds it.
	found, err = repo.FindFired(ctx, "u1", core.KindBudget50, noon.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("FindFired: %v", err)
	}
	if found == nil {
		t.Fatal("fired notification not found within its month")
	}
	if found.Message != "m" {
		t.Errorf("message = %q, want m", found.Message)
	}
}

func TestNotificationFeed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	kinds := []core.NotificationKind{core.KindBudget50, core.KindBudget80, core.KindBudget100}
	var ids []string
	for i, kind := range kinds {
		rec, err := repo.InsertNotification(ctx, core.NotificationRecord{
			UserKey: "u1",
			Kind:    kind,
			FiredAt: noon.Add(time.Duration(i) * time.Hour),
			Message: string(kind),
		})
		if err != nil {
			t.Fatalf("InsertNotification(%s): %v", kind, err)
		}
		ids = append(ids, rec.ID)
	}

	feed, err := repo.ListUnacknowledged(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListUnacknowledged: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed has %d entries, want 2", len(feed))
	}
	// Newest first: budget_100 fired last.
	if feed[0].Kind != core.KindBudget100 {
		t.Errorf("feed[0].Kind = %s, want budget_100", feed[0].Kind)
	}

	if err := repo.Acknowledge(ctx, "u1", ids[2]); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	feed, err = repo.ListUnacknowledged(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListUnacknowledged: %v", err)
	}
	for _, rec := range feed {
		if rec.ID == ids[2] {
			t.Error("acknowledged notification still in feed")
		}
	}

	if err := repo.Acknowledge(ctx, "u1", "no-such-id"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Acknowledge(missing) = %v, want ErrNotFound", err)
	}
}

func TestNotificationLog(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.AppendNotificationLog(ctx, "u1", core.KindBudget80, "msg", "sent", time.Now()); err != nil {
		t.Fatalf("AppendNotificationLog(sent): %v", err)
	}
	// A failed attempt has no sent_at.
	if err := repo.AppendNotificationLog(ctx, "u1", core.KindBudget80, "msg", "failed", time.Time{}); err != nil {
		t.Fatalf("AppendNotificationLog(failed): %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	value, err := repo.GetState(ctx, "u1", "missing")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if value != "" {
		t.Errorf("missing key = %q, want empty", value)
	}

	if err := repo.SetState(ctx, "u1", "theme", "dark"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := repo.SetState(ctx, "u1", "theme", "light"); err != nil {
		t.Fatalf("SetState overwrite: %v", err)
	}
	if err := repo.SetState(ctx, "u1", "lang", "hi"); err != nil {
		t.Fatalf("SetState second key: %v", err)
	}

	value, err = repo.GetState(ctx, "u1", "theme")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if value != "light" {
		t.Errorf("theme = %q, want light", value)
	}

	state, err := repo.ListState(ctx, "u1")
	if err != nil {
		t.Fatalf("ListState: %v", err)
	}
	if len(state) != 2 || state["theme"] != "light" || state["lang"] != "hi" {
		t.Errorf("state = %v", state)
	}

	// Keys are scoped per user.
	if value, _ := repo.GetState(ctx, "u2", "theme"); value != "" {
		t.Errorf("cross-user state = %q, want empty", value)
	}
}

func TestOnboardingUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	missing, err := repo.GetOnboarding(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOnboarding: %v", err)
	}
	if missing != nil {
		t.Fatalf("got %+v before save", missing)
	}

	saved, err := repo.SaveOnboarding(ctx, core.OnboardingProfile{
		UserKey:          "u1",
		EmploymentStatus: "salaried",
		IncomeRange:      "25k-50k",
		TopCategories:    []string{"food", "transport"},
		SavingGoal:       "emergency-fund",
		MoneyPersonality: "saver",
		AgeGroup:         "25-34",
		Completed:        true,
	})
	if err != nil {
		t.Fatalf("SaveOnboarding: %v", err)
	}
	if saved.CompletedAt.IsZero() {
		t.Error("CompletedAt not stamped on completion")
	}

	got, err := repo.GetOnboarding(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOnboarding: %v", err)
	}
	if got == nil {
		t.Fatal("profile not found after save")
	}
	if got.EmploymentStatus != "salaried" || len(got.TopCategories) != 2 {
		t.Errorf("got %+v", got)
	}

	// Re-submitting replaces the answers.
	if _, err := repo.SaveOnboarding(ctx, core.OnboardingProfile{
		UserKey:   "u1",
		AgeGroup:  "35-44",
		Completed: true,
	}); err != nil {
		t.Fatalf("second SaveOnboarding: %v", err)
	}
	got, err = repo.GetOnboarding(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOnboarding: %v", err)
	}
	if got.AgeGroup != "35-44" || got.EmploymentStatus != "" {
		t.Errorf("after resubmit got %+v", got)
	}
}
