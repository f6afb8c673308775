// Package storage persists the domain model in SQLite. All time-range
// queries work on unix timestamps; the IST calendar day is denormalized
// into local_date at insert so calendar queries stay exact.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"laksha/internal/core"
)

// CategoryTotal is one row of a per-category spend breakdown.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_key, amount_cents, category, description, method, date_unix, local_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserKey, core.Cents(e.Amount), e.Category, e.Description,
		string(e.Method), e.Date.Unix(), core.LocalDate(e.Date), e.CreatedAt.Unix())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, userKey, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_key, amount_cents, category, description, method, date_unix, created_at
		FROM expenses WHERE user_key = ? AND id = ?`, userKey, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	return e, err
}

func (r *Repository) DeleteExpense(ctx context.Context, userKey, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE user_key = ? AND id = ?`, userKey, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListExpenses returns the user's most recent expenses, optionally
// filtered by category. limit <= 0 means no limit.
func (r *Repository) ListExpenses(ctx context.Context, userKey string, limit int, category string) ([]core.Expense, error) {
	query := `
		SELECT id, user_key, amount_cents, category, description, method, date_unix, created_at
		FROM expenses WHERE user_key = ?`
	args := []any{userKey}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY date_unix DESC, created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func (r *Repository) ListExpensesInRange(ctx context.Context, userKey string, start, end time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_key, amount_cents, category, description, method, date_unix, created_at
		FROM expenses
		WHERE user_key = ? AND date_unix >= ? AND date_unix < ?
		ORDER BY date_unix DESC, created_at DESC`,
		userKey, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// SumAmount totals expense amounts in [start, end). Summation happens on
// integer cents, so the result is exact.
func (r *Repository) SumAmount(ctx context.Context, userKey string, start, end time.Time) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		WHERE user_key = ? AND date_unix >= ? AND date_unix < ?`,
		userKey, start.Unix(), end.Unix()).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expense amounts: %w", err)
	}
	return core.FromCents(cents), nil
}

func (r *Repository) CategoryTotals(ctx context.Context, userKey string, start, end time.Time) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) FROM expenses
		WHERE user_key = ? AND date_unix >= ? AND date_unix < ?
		GROUP BY category ORDER BY SUM(amount_cents) DESC`,
		userKey, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, CategoryTotal{Category: category, Total: core.FromCents(cents)})
	}
	return totals, rows.Err()
}

// ExpenseDays lists the distinct IST calendar dates (YYYY-MM-DD) with at
// least one expense between the two local dates, inclusive.
func (r *Repository) ExpenseDays(ctx context.Context, userKey, fromDate, toDate string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT local_date FROM expenses
		WHERE user_key = ? AND local_date >= ? AND local_date <= ?
		ORDER BY local_date`,
		userKey, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("expense days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan expense day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// --- budgets ---

// SaveBudget upserts the user's single active budget. An existing row
// keeps its id and created_at; everything else is replaced.
func (r *Repository) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	categoryJSON, err := core.EncodeCategoryBudgets(b.CategoryBudgets)
	if err != nil {
		return core.Budget{}, fmt.Errorf("encode category budgets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_key, period_type, amount_cents, category_budgets, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_key) DO UPDATE SET
			period_type = excluded.period_type,
			amount_cents = excluded.amount_cents,
			category_budgets = excluded.category_budgets,
			updated_at = excluded.updated_at`,
		b.ID, b.UserKey, b.PeriodType, core.Cents(b.Amount), categoryJSON,
		b.CreatedAt.Unix(), b.UpdatedAt.Unix())
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	saved, err := r.ActiveBudget(ctx, b.UserKey)
	if err != nil {
		return core.Budget{}, err
	}
	if saved == nil {
		return core.Budget{}, fmt.Errorf("budget vanished after save for %s", b.UserKey)
	}
	return *saved, nil
}

// ActiveBudget returns the user's budget, or (nil, nil) when none is set.
func (r *Repository) ActiveBudget(ctx context.Context, userKey string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_key, period_type, amount_cents, category_budgets, created_at, updated_at
		FROM budgets WHERE user_key = ?`, userKey)

	var (
		b            core.Budget
		cents        int64
		categoryJSON string
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&b.ID, &b.UserKey, &b.PeriodType, &cents, &categoryJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}

	b.Amount = core.FromCents(cents)
	b.CategoryBudgets, err = core.DecodeCategoryBudgets(categoryJSON)
	if err != nil {
		return nil, fmt.Errorf("decode category budgets: %w", err)
	}
	b.CreatedAt = time.Unix(createdAt, 0)
	b.UpdatedAt = time.Unix(updatedAt, 0)
	return &b, nil
}

// ListBudgetUserKeys lists every user with an active budget; these are
// the only users the alert sweep can notify.
func (r *Repository) ListBudgetUserKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_key FROM budgets ORDER BY user_key`)
	if err != nil {
		return nil, fmt.Errorf("list budget user keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan user key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- notification ledger ---

func (r *Repository) FindFired(ctx context.Context, userKey string, kind core.NotificationKind, periodStart time.Time) (*core.NotificationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_key, budget_id, kind, fired_at, message, acknowledged
		FROM budget_notifications
		WHERE user_key = ? AND kind = ? AND period_key = ?`,
		userKey, string(kind), core.PeriodKey(kind, periodStart))
	rec, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find fired notification: %w", err)
	}
	return &rec, nil
}

// InsertNotification records a fired alert. The unique period index is
// the backstop for concurrent check-then-insert races; a violation is
// reported as core.ErrDuplicateNotification.
func (r *Repository) InsertNotification(ctx context.Context, rec core.NotificationRecord) (core.NotificationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_notifications (id, user_key, budget_id, kind, period_key, fired_at, message, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserKey, rec.BudgetID, string(rec.Kind),
		core.PeriodKey(rec.Kind, rec.FiredAt), rec.FiredAt.Unix(), rec.Message,
		boolToInt(rec.Acknowledged), time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.NotificationRecord{}, core.ErrDuplicateNotification
		}
		return core.NotificationRecord{}, fmt.Errorf("insert notification: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListUnacknowledged(ctx context.Context, userKey string, limit int) ([]core.NotificationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_key, budget_id, kind, fired_at, message, acknowledged
		FROM budget_notifications
		WHERE user_key = ? AND acknowledged = 0
		ORDER BY fired_at DESC LIMIT ?`,
		userKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list unacknowledged notifications: %w", err)
	}
	defer rows.Close()

	var recs []core.NotificationRecord
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *Repository) Acknowledge(ctx context.Context, userKey, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budget_notifications SET acknowledged = 1
		WHERE user_key = ? AND id = ?`, userKey, id)
	if err != nil {
		return fmt.Errorf("acknowledge notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledge rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- notification delivery log ---

// AppendNotificationLog records one delivery attempt by the dispatch worker.
func (r *Repository) AppendNotificationLog(ctx context.Context, userKey string, kind core.NotificationKind, message, status string, sentAt time.Time) error {
	var sent any
	if !sentAt.IsZero() {
		sent = sentAt.Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_log (id, user_key, kind, message, status, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), userKey, string(kind), message, status, sent, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

// --- per-user state records ---

// GetState returns the stored value for a state key, or "" when unset.
func (r *Repository) GetState(ctx context.Context, userKey, stateKey string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM user_state WHERE user_key = ? AND state_key = ?`,
		userKey, stateKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", stateKey, err)
	}
	return value, nil
}

func (r *Repository) SetState(ctx context.Context, userKey, stateKey, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_state (user_key, state_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_key, state_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		userKey, stateKey, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set state %s: %w", stateKey, err)
	}
	return nil
}

func (r *Repository) ListState(ctx context.Context, userKey string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT state_key, value FROM user_state WHERE user_key = ?`, userKey)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		state[k] = v
	}
	return state, rows.Err()
}

// --- onboarding ---

func (r *Repository) SaveOnboarding(ctx context.Context, p core.OnboardingProfile) (core.OnboardingProfile, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Completed && p.CompletedAt.IsZero() {
		p.CompletedAt = now
	}

	categories, err := encodeStrings(p.TopCategories)
	if err != nil {
		return core.OnboardingProfile{}, fmt.Errorf("encode top categories: %w", err)
	}

	var completedAt any
	if !p.CompletedAt.IsZero() {
		completedAt = p.CompletedAt.Unix()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO onboarding (user_key, employment_status, income_range, top_categories, saving_goal, money_personality, age_group, completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_key) DO UPDATE SET
			employment_status = excluded.employment_status,
			income_range = excluded.income_range,
			top_categories = excluded.top_categories,
			saving_goal = excluded.saving_goal,
			money_personality = excluded.money_personality,
			age_group = excluded.age_group,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		p.UserKey, p.EmploymentStatus, p.IncomeRange, categories, p.SavingGoal,
		p.MoneyPersonality, p.AgeGroup, boolToInt(p.Completed), completedAt,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return core.OnboardingProfile{}, fmt.Errorf("save onboarding: %w", err)
	}
	return p, nil
}

func (r *Repository) GetOnboarding(ctx context.Context, userKey string) (*core.OnboardingProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_key, employment_status, income_range, top_categories, saving_goal, money_personality, age_group, completed, completed_at, created_at, updated_at
		FROM onboarding WHERE user_key = ?`, userKey)

	var (
		p           core.OnboardingProfile
		categories  string
		completed   int
		completedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&p.UserKey, &p.EmploymentStatus, &p.IncomeRange, &categories,
		&p.SavingGoal, &p.MoneyPersonality, &p.AgeGroup, &completed, &completedAt,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get onboarding: %w", err)
	}

	p.TopCategories, err = decodeStrings(categories)
	if err != nil {
		return nil, fmt.Errorf("decode top categories: %w", err)
	}
	p.Completed = completed != 0
	if completedAt.Valid {
		p.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		cents    int64
		method   string
		dateUnix int64
		created  int64
	)
	err := row.Scan(&e.ID, &e.UserKey, &cents, &e.Category, &e.Description, &method, &dateUnix, &created)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.FromCents(cents)
	e.Method = core.ExpenseMethod(method)
	e.Date = time.Unix(dateUnix, 0)
	e.CreatedAt = time.Unix(created, 0)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func scanNotification(row rowScanner) (core.NotificationRecord, error) {
	var (
		rec     core.NotificationRecord
		kind    string
		firedAt int64
		acked   int
	)
	err := row.Scan(&rec.ID, &rec.UserKey, &rec.BudgetID, &kind, &firedAt, &rec.Message, &acked)
	if err != nil {
		return core.NotificationRecord{}, err
	}
	rec.Kind = core.NotificationKind(kind)
	rec.FiredAt = time.Unix(firedAt, 0)
	rec.Acknowledged = acked != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeStrings(ss []string) (string, error) {
	if len(ss) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(s), &ss); err != nil {
		return nil, err
	}
	return ss, nil
}
