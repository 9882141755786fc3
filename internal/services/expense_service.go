package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"housetab/internal/amqp"
	"housetab/internal/books"
	"housetab/internal/core"
	"housetab/internal/ledger"
	"housetab/internal/metrics"
)

// ExpenseService orchestrates expense writes across the store, the report
// cache and the message broker.
type ExpenseService struct {
	store   books.Store
	events  EventPublisher
	reports ReportInvalidator
}

func NewExpenseService(store books.Store, events EventPublisher, reports ReportInvalidator) *ExpenseService {
	return &ExpenseService{
		store:   store,
		events:  events,
		reports: reports,
	}
}

// Record assigns an id when the caller did not, validates the expense and
// appends it to the books. The recorded event and the cache invalidation
// are best effort, a broker outage never fails the write.
func (s *ExpenseService) Record(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.Append(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	metrics.ExpensesRecorded.WithLabelValues(e.Household).Inc()

	s.invalidate(e.Household)

	if err := s.publishRecorded(ctx, e.ID, e.Household); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense recorded message",
			"id", e.ID, "error", err)
		// Don't fail the request - expense is saved locally
	}

	return e, nil
}

// Get returns one expense from the household's books.
func (s *ExpenseService) Get(ctx context.Context, household, id string) (core.Expense, error) {
	return s.store.Get(ctx, household, id)
}

// List returns the household's expenses dated inside the period, oldest
// first.
func (s *ExpenseService) List(ctx context.Context, household string, p ledger.Period) ([]core.Expense, error) {
	return s.store.List(ctx, household, p.Start, p.End)
}

// Update replaces a stored expense. Consumers are notified with a recorded
// event so they re-read the current state of the books.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.store.Update(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.invalidate(e.Household)

	if err := s.publishRecorded(ctx, e.ID, e.Household); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense recorded message",
			"id", e.ID, "error", err)
	}

	return nil
}

// Remove deletes an expense from the books. Its id stays reserved and is
// never handed out again.
func (s *ExpenseService) Remove(ctx context.Context, household, id string) error {
	if err := s.store.Remove(ctx, household, id); err != nil {
		return fmt.Errorf("remove expense: %w", err)
	}

	s.invalidate(household)

	if err := s.publishRemoved(ctx, id, household); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense removed message",
			"id", id, "error", err)
	}

	return nil
}

// Members returns everyone appearing in the household's books.
func (s *ExpenseService) Members(ctx context.Context, household string) ([]string, error) {
	return s.store.Members(ctx, household)
}

func (s *ExpenseService) publishRecorded(ctx context.Context, id, household string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping recorded message")
		return nil
	}
	return s.events.PublishExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage(id, household))
}

func (s *ExpenseService) publishRemoved(ctx context.Context, id, household string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping removed message")
		return nil
	}
	return s.events.PublishExpenseRemoved(ctx, amqp.NewExpenseRemovedMessage(id, household))
}

func (s *ExpenseService) invalidate(household string) {
	if s.reports != nil {
		s.reports.InvalidateHousehold(household)
	}
}
