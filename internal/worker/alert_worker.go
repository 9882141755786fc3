package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/books"
	"housetab/internal/core"
	"housetab/internal/ledger"
	"housetab/internal/metrics"
)

type (
	// AlertPublisher pushes budget alerts back onto the exchange.
	AlertPublisher interface {
		PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
	}

	// MirrorWriter appends recorded expenses to an external mirror.
	MirrorWriter interface {
		Append(ctx context.Context, e core.Expense) (string, error)
	}
)

// AlertWorker consumes book events, re-evaluates the affected people's
// budgets and publishes an alert when spending crossed into the warning or
// over band. Recorded expenses are also mirrored to the spreadsheet when a
// mirror is configured.
type AlertWorker struct {
	store    books.Store
	events   AlertPublisher
	mirror   MirrorWriter
	windower ledger.Windower

	now func() time.Time
}

func NewAlertWorker(store books.Store, events AlertPublisher, mirror MirrorWriter, windower ledger.Windower) *AlertWorker {
	return &AlertWorker{
		store:    store,
		events:   events,
		mirror:   mirror,
		windower: windower,
		now:      time.Now,
	}
}

// Dispatch routes one delivery to its handler. Undecodable bodies and
// unknown routing keys are dropped via amqp.ErrBadMessage.
func (w *AlertWorker) Dispatch(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case amqp.KeyExpenseRecorded:
		msg, err := amqp.ExpenseRecordedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", amqp.ErrBadMessage, err)
		}
		return w.HandleExpenseRecorded(ctx, msg)
	case amqp.KeyExpenseRemoved:
		msg, err := amqp.ExpenseRemovedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", amqp.ErrBadMessage, err)
		}
		return w.HandleExpenseRemoved(ctx, msg)
	case amqp.KeyBudgetChanged:
		msg, err := amqp.BudgetChangedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", amqp.ErrBadMessage, err)
		}
		return w.HandleBudgetChanged(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown routing key %s", amqp.ErrBadMessage, routingKey)
	}
}

// HandleExpenseRecorded re-evaluates the expense's category for everyone
// sharing it, inside the window the expense falls into. The expense itself
// is fetched from the store, the message only names it.
func (w *AlertWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing expense recorded message",
		"id", msg.ID,
		"household", msg.Household)

	expense, err := w.store.Get(ctx, msg.Household, msg.ID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			// Removed before we got to it, nothing left to evaluate.
			return fmt.Errorf("%w: expense %s is gone", amqp.ErrBadMessage, msg.ID)
		}
		return fmt.Errorf("get expense %s: %w", msg.ID, err)
	}

	period := w.windower.Window(expense.Date)

	persons := []string{expense.Payer}
	if expense.Split() {
		persons = append(persons, expense.SplitWith)
	}
	for _, person := range persons {
		if err := w.evaluate(ctx, msg.Household, person, expense.Category, period); err != nil {
			return fmt.Errorf("evaluate %s: %w", person, err)
		}
	}

	w.mirrorExpense(ctx, expense)

	return nil
}

// HandleExpenseRemoved only logs. Spending can only drop after a removal,
// and the append-only mirror keeps its rows as an audit trail.
func (w *AlertWorker) HandleExpenseRemoved(ctx context.Context, msg *amqp.ExpenseRemovedMessage) error {
	slog.InfoContext(ctx, "Expense removed, mirror row kept",
		"id", msg.ID,
		"household", msg.Household)
	return nil
}

// HandleBudgetChanged re-evaluates the person's category in the current
// window, a lowered limit may put existing spending over it.
func (w *AlertWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	slog.InfoContext(ctx, "Processing budget changed message",
		"household", msg.Household,
		"person", msg.Person,
		"category", msg.Category)

	now := w.now()
	period := w.windower.Window(core.NewDate(now.Year(), int(now.Month()), now.Day()))

	if err := w.evaluate(ctx, msg.Household, msg.Person, msg.Category, period); err != nil {
		return fmt.Errorf("evaluate %s: %w", msg.Person, err)
	}

	return nil
}

// evaluate recomputes one person's spending for the period and publishes an
// alert when the category sits in the warning or over band.
func (w *AlertWorker) evaluate(ctx context.Context, household, person, category string, period ledger.Period) error {
	records, err := w.store.List(ctx, household, period.Start, period.End)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	spending, err := ledger.EffectiveSpending(records, person, period.Start, period.End)
	if err != nil {
		return fmt.Errorf("compute spending: %w", err)
	}

	budgets, err := w.store.Budgets(ctx, household, person)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}

	cs, ok := ledger.EvaluateBudgets(spending, budgets)[category]
	if !ok || cs.Status == ledger.StatusOK {
		return nil
	}

	slog.WarnContext(ctx, "Budget threshold crossed",
		"household", household,
		"person", person,
		"category", category,
		"status", cs.Status.String(),
		"spent", cs.Spent.String(),
		"limit", cs.Budget.String())

	metrics.BudgetAlerts.WithLabelValues(cs.Status.String()).Inc()

	if w.events == nil {
		slog.WarnContext(ctx, "Alert publisher not available, skipping alert message")
		return nil
	}

	alert := &amqp.BudgetAlertMessage{
		Household:   household,
		Person:      person,
		Category:    category,
		Status:      cs.Status.String(),
		Spent:       cs.Spent.String(),
		Limit:       cs.Budget.String(),
		Percentage:  cs.Percentage.String(),
		PeriodStart: period.Start.String(),
		PeriodEnd:   period.End.String(),
		Timestamp:   time.Now(),
	}
	if err := w.events.PublishBudgetAlert(ctx, alert); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	return nil
}

// mirrorExpense appends the expense to the spreadsheet mirror. Mirroring is
// best effort, a failure is logged and the delivery still acks.
func (w *AlertWorker) mirrorExpense(ctx context.Context, e core.Expense) {
	if w.mirror == nil {
		return
	}

	ref, err := w.mirror.Append(ctx, e)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror expense",
			"id", e.ID,
			"household", e.Household,
			"error", err)
		return
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"id", e.ID,
		"sheets_ref", ref)
}
