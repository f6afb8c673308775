package missions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"laksha/internal/core"
)

const (
	streakKey       = "mission_streak"
	completedPrefix = "mission_completed:" // + YYYY-MM-DD
)

// StateStore is the per-user key-value state record store.
type StateStore interface {
	GetState(ctx context.Context, userKey, stateKey string) (string, error)
	SetState(ctx context.Context, userKey, stateKey, value string) error
}

// DayExpenseLister returns a user's expenses within [start, end).
type DayExpenseLister interface {
	ListExpensesInRange(ctx context.Context, userKey string, start, end time.Time) ([]core.Expense, error)
}

// Status is the daily-mission view returned to clients.
type Status struct {
	Mission   Mission
	Date      string
	Completed bool
	Progress  int
	Streak    int
}

// Service resolves the day's mission, its progress, and the streak.
type Service struct {
	state    StateStore
	expenses DayExpenseLister
}

func NewService(state StateStore, expenses DayExpenseLister) *Service {
	return &Service{state: state, expenses: expenses}
}

// Today returns the mission status for the reference-zone day containing asOf.
func (s *Service) Today(ctx context.Context, userKey string, asOf time.Time) (Status, error) {
	date := core.LocalDate(asOf)
	mission := ForDate(userKey, date)

	dayStart, dayEnd := core.DayBounds(asOf)
	dayExpenses, err := s.expenses.ListExpensesInRange(ctx, userKey, dayStart, dayEnd)
	if err != nil {
		return Status{}, fmt.Errorf("list day expenses: %w", err)
	}

	completed, err := s.isCompleted(ctx, userKey, date)
	if err != nil {
		return Status{}, err
	}
	streak, err := s.Streak(ctx, userKey)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Mission:   mission,
		Date:      date,
		Completed: completed,
		Progress:  Progress(mission, dayExpenses),
		Streak:    streak,
	}, nil
}

// Complete marks today's mission done and bumps the streak. Completing an
// already-completed mission is a no-op returning false.
func (s *Service) Complete(ctx context.Context, userKey string, asOf time.Time) (bool, error) {
	date := core.LocalDate(asOf)
	completed, err := s.isCompleted(ctx, userKey, date)
	if err != nil {
		return false, err
	}
	if completed {
		return false, nil
	}

	if err := s.state.SetState(ctx, userKey, completedPrefix+date, "1"); err != nil {
		return false, fmt.Errorf("mark mission completed: %w", err)
	}
	streak, err := s.Streak(ctx, userKey)
	if err != nil {
		return false, err
	}
	if err := s.state.SetState(ctx, userKey, streakKey, strconv.Itoa(streak+1)); err != nil {
		return false, fmt.Errorf("update mission streak: %w", err)
	}
	return true, nil
}

// Streak returns the user's mission completion streak counter.
func (s *Service) Streak(ctx context.Context, userKey string) (int, error) {
	raw, err := s.state.GetState(ctx, userKey, streakKey)
	if err != nil {
		return 0, fmt.Errorf("get mission streak: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Service) isCompleted(ctx context.Context, userKey, date string) (bool, error) {
	raw, err := s.state.GetState(ctx, userKey, completedPrefix+date)
	if err != nil {
		return false, fmt.Errorf("get mission completion: %w", err)
	}
	return raw == "1", nil
}
