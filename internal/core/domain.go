package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodManual ExpenseMethod = "manual"
	MethodVoice  ExpenseMethod = "voice"
	MethodImport ExpenseMethod = "import"
)

const (
	KindDailyLimit NotificationKind = "daily_limit"
	KindBudget50   NotificationKind = "budget_50"
	KindBudget80   NotificationKind = "budget_80"
	KindBudget100  NotificationKind = "budget_100"
)

// PeriodMonthly is the only budget period currently supported.
const PeriodMonthly = "monthly"

type (
	ExpenseMethod    string
	NotificationKind string

	// Expense is a single logged spend. Immutable except for delete.
	Expense struct {
		ID          string
		UserKey     string
		Amount      decimal.Decimal
		Category    string
		Description string
		Method      ExpenseMethod
		Date        time.Time
		CreatedAt   time.Time
	}

	// Budget is the single active budget for a user. Saving a new one
	// when one exists replaces it wholesale.
	Budget struct {
		ID              string
		UserKey         string
		PeriodType      string
		Amount          decimal.Decimal
		CategoryBudgets map[string]decimal.Decimal
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// NotificationRecord is one fired threshold alert. Acknowledged by
	// user dismissal, never deleted.
	NotificationRecord struct {
		ID           string
		UserKey      string
		BudgetID     string
		Kind         NotificationKind
		FiredAt      time.Time
		Message      string
		Acknowledged bool
	}

	// OnboardingProfile captures the personalization answers collected
	// during first-run onboarding.
	OnboardingProfile struct {
		UserKey          string
		EmploymentStatus string
		IncomeRange      string
		TopCategories    []string
		SavingGoal       string
		MoneyPersonality string
		AgeGroup         string
		Completed        bool
		CompletedAt      time.Time
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyCategory         = errors.New("empty category")
	ErrEmptyUserKey          = errors.New("empty user key")
	ErrInvalidMethod         = errors.New("invalid expense method")
	ErrInvalidPeriod         = errors.New("invalid budget period type")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateNotification = errors.New("notification already fired for period")
)

func (k NotificationKind) Valid() bool {
	switch k {
	case KindDailyLimit, KindBudget50, KindBudget80, KindBudget100:
		return true
	}
	return false
}

func (m ExpenseMethod) Valid() bool {
	switch m {
	case MethodManual, MethodVoice, MethodImport:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserKey) == "" {
		return ErrEmptyUserKey
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if !e.Method.Valid() {
		return ErrInvalidMethod
	}
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserKey) == "" {
		return ErrEmptyUserKey
	}
	if b.PeriodType != PeriodMonthly {
		return ErrInvalidPeriod
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	for name, amount := range b.CategoryBudgets {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyCategory
		}
		if amount.IsNegative() || amount.Exponent() < -2 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// EncodeCategoryBudgets serializes the per-category map for storage.
// A nil map encodes as "{}" to match the schema default.
func EncodeCategoryBudgets(m map[string]decimal.Decimal) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeCategoryBudgets parses the stored JSON form of the per-category map.
func DecodeCategoryBudgets(s string) (map[string]decimal.Decimal, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
