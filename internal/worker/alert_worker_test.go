package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/books/memory"
	"housetab/internal/core"
	"housetab/internal/ledger"
)

type fakeAlertPublisher struct {
	mu     sync.Mutex
	alerts []*amqp.BudgetAlertMessage
	err    error
}

func (f *fakeAlertPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, msg)
	return nil
}

type fakeMirror struct {
	mu       sync.Mutex
	appended []core.Expense
	err      error
}

func (f *fakeMirror) Append(_ context.Context, e core.Expense) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, e)
	return "Expenses!A2:H2", nil
}

func record(t *testing.T, id, date, category, amount, payer, splitWith string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %s: %v", date, err)
	}
	return core.Expense{
		ID:        id,
		Household: "casa",
		Date:      d,
		Category:  category,
		Amount:    core.MustAmount(amount),
		Payer:     payer,
		SplitWith: splitWith,
	}
}

func monthly(t *testing.T) ledger.Windower {
	t.Helper()
	w, err := ledger.GetWindower(ledger.CadenceMonthly)
	if err != nil {
		t.Fatalf("get windower: %v", err)
	}
	return w
}

func appendAll(t *testing.T, store *memory.Store, records ...core.Expense) {
	t.Helper()
	for _, e := range records {
		if err := store.Append(context.Background(), e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}
}

func setBudget(t *testing.T, store *memory.Store, person, category, limit string) {
	t.Helper()
	err := store.SetBudget(context.Background(), "casa", core.BudgetLine{
		Person:   person,
		Category: category,
		Limit:    core.MustAmount(limit),
	})
	if err != nil {
		t.Fatalf("set budget: %v", err)
	}
}

func TestHandleExpenseRecordedPublishesWarning(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store,
		record(t, "e1", "2025-01-05", "groceries", "75", "alice", ""),
		record(t, "e2", "2025-01-10", "groceries", "10", "alice", ""),
	)
	setBudget(t, store, "alice", "groceries", "100")

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))

	err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e2", "casa"))
	if err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	if len(events.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(events.alerts))
	}
	alert := events.alerts[0]
	if alert.Status != "warning" {
		t.Errorf("status = %s, want warning", alert.Status)
	}
	if alert.Spent != "85" {
		t.Errorf("spent = %s, want 85", alert.Spent)
	}
	if alert.Limit != "100" {
		t.Errorf("limit = %s, want 100", alert.Limit)
	}
	if alert.PeriodStart != "2025-01-01" || alert.PeriodEnd != "2025-02-01" {
		t.Errorf("period = %s..%s, want the expense's month", alert.PeriodStart, alert.PeriodEnd)
	}
}

func TestHandleExpenseRecordedPublishesOver(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "100.01", "alice", ""))
	setBudget(t, store, "alice", "groceries", "100")

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	if len(events.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(events.alerts))
	}
	if events.alerts[0].Status != "over" {
		t.Errorf("status = %s, want over", events.alerts[0].Status)
	}
}

func TestHandleExpenseRecordedQuietUnderThreshold(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "80", "alice", ""))
	setBudget(t, store, "alice", "groceries", "100")

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	// spending the full 80% is still ok, the warning band starts past it
	if len(events.alerts) != 0 {
		t.Errorf("got %d alerts, want none", len(events.alerts))
	}
}

func TestHandleExpenseRecordedEvaluatesBothSplitters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "180", "alice", "bob"))
	setBudget(t, store, "alice", "groceries", "100")
	setBudget(t, store, "bob", "groceries", "95")

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	// each half is 90: warning for alice (90 > 80), warning for bob (90 > 76)
	if len(events.alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(events.alerts))
	}
	persons := map[string]string{}
	for _, a := range events.alerts {
		persons[a.Person] = a.Status
	}
	if persons["alice"] != "warning" || persons["bob"] != "warning" {
		t.Errorf("alerts = %v, want warnings for alice and bob", persons)
	}
}

func TestHandleExpenseRecordedZeroBudgetNeverAlerts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "travel", "500", "alice", ""))

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	if len(events.alerts) != 0 {
		t.Errorf("got %d alerts, want none for an unconstrained category", len(events.alerts))
	}
}

func TestHandleExpenseRecordedMirrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "20", "alice", ""))

	mirror := &fakeMirror{}
	w := NewAlertWorker(store, nil, mirror, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	if len(mirror.appended) != 1 {
		t.Fatalf("got %d mirrored rows, want 1", len(mirror.appended))
	}
	if mirror.appended[0].ID != "e1" {
		t.Errorf("mirrored id = %s, want e1", mirror.appended[0].ID)
	}
}

func TestHandleExpenseRecordedMirrorFailureStillAcks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "20", "alice", ""))

	mirror := &fakeMirror{err: errors.New("quota exceeded")}
	w := NewAlertWorker(store, nil, mirror, monthly(t))

	if err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa")); err != nil {
		t.Errorf("a mirror failure must not requeue the delivery, got %v", err)
	}
}

func TestHandleExpenseRecordedGoneExpenseIsDropped(t *testing.T) {
	ctx := context.Background()
	w := NewAlertWorker(memory.New(), &fakeAlertPublisher{}, nil, monthly(t))

	err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("ghost", "casa"))

	if !errors.Is(err, amqp.ErrBadMessage) {
		t.Errorf("error = %v, want amqp.ErrBadMessage so the delivery is dropped", err)
	}
}

func TestHandleExpenseRecordedPublishFailureRequeues(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "101", "alice", ""))
	setBudget(t, store, "alice", "groceries", "100")

	events := &fakeAlertPublisher{err: errors.New("channel closed")}
	w := NewAlertWorker(store, events, nil, monthly(t))

	err := w.HandleExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage("e1", "casa"))

	if err == nil {
		t.Fatal("a failed alert publish must surface so the delivery requeues")
	}
	if errors.Is(err, amqp.ErrBadMessage) {
		t.Error("a publish failure is transient, it must not drop the delivery")
	}
}

func TestHandleBudgetChangedAlertsOnLoweredLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "90", "alice", ""))
	setBudget(t, store, "alice", "groceries", "85")

	events := &fakeAlertPublisher{}
	w := NewAlertWorker(store, events, nil, monthly(t))
	w.now = func() time.Time {
		return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	}

	err := w.HandleBudgetChanged(ctx, amqp.NewBudgetChangedMessage("casa", "alice", "groceries"))
	if err != nil {
		t.Fatalf("HandleBudgetChanged() error = %v", err)
	}

	if len(events.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(events.alerts))
	}
	if events.alerts[0].Status != "over" {
		t.Errorf("status = %s, want over", events.alerts[0].Status)
	}
}

func TestHandleExpenseRemovedIsQuiet(t *testing.T) {
	ctx := context.Background()
	events := &fakeAlertPublisher{}
	w := NewAlertWorker(memory.New(), events, nil, monthly(t))

	if err := w.HandleExpenseRemoved(ctx, amqp.NewExpenseRemovedMessage("e1", "casa")); err != nil {
		t.Fatalf("HandleExpenseRemoved() error = %v", err)
	}
	if len(events.alerts) != 0 {
		t.Errorf("got %d alerts, want none", len(events.alerts))
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	appendAll(t, store, record(t, "e1", "2025-01-05", "groceries", "20", "alice", ""))

	w := NewAlertWorker(store, &fakeAlertPublisher{}, nil, monthly(t))

	msg := amqp.NewExpenseRecordedMessage("e1", "casa")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if err := w.Dispatch(ctx, amqp.KeyExpenseRecorded, body); err != nil {
		t.Errorf("Dispatch(recorded) error = %v", err)
	}

	if err := w.Dispatch(ctx, amqp.KeyExpenseRecorded, []byte("not json")); !errors.Is(err, amqp.ErrBadMessage) {
		t.Errorf("Dispatch(garbage) error = %v, want amqp.ErrBadMessage", err)
	}

	if err := w.Dispatch(ctx, "unknown.key", body); !errors.Is(err, amqp.ErrBadMessage) {
		t.Errorf("Dispatch(unknown key) error = %v, want amqp.ErrBadMessage", err)
	}
}
