package services

import (
	"context"
	"fmt"
	"log/slog"

	"housetab/internal/amqp"
	"housetab/internal/books"
	"housetab/internal/core"
)

// BudgetService manages per-person category budgets.
type BudgetService struct {
	store   books.Store
	events  EventPublisher
	reports ReportInvalidator
}

func NewBudgetService(store books.Store, events EventPublisher, reports ReportInvalidator) *BudgetService {
	return &BudgetService{
		store:   store,
		events:  events,
		reports: reports,
	}
}

// SetBudget validates and upserts one budget line, then notifies consumers
// that the household's budgets changed.
func (s *BudgetService) SetBudget(ctx context.Context, household string, line core.BudgetLine) error {
	if err := line.Validate(); err != nil {
		return err
	}

	if err := s.store.SetBudget(ctx, household, line); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	s.invalidate(household)

	if err := s.publishChanged(ctx, household, line.Person, line.Category); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget changed message",
			"household", household, "person", line.Person, "error", err)
		// Don't fail the request - budget is saved locally
	}

	return nil
}

// Budgets returns one person's budget limits by category.
func (s *BudgetService) Budgets(ctx context.Context, household, person string) (core.BudgetConfig, error) {
	return s.store.Budgets(ctx, household, person)
}

// ListBudgets returns every budget line of the household.
func (s *BudgetService) ListBudgets(ctx context.Context, household string) ([]core.BudgetLine, error) {
	return s.store.ListBudgets(ctx, household)
}

func (s *BudgetService) publishChanged(ctx context.Context, household, person, category string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping budget changed message")
		return nil
	}
	return s.events.PublishBudgetChanged(ctx, amqp.NewBudgetChangedMessage(household, person, category))
}

func (s *BudgetService) invalidate(household string) {
	if s.reports != nil {
		s.reports.InvalidateHousehold(household)
	}
}
