package services

import (
	"context"

	"housetab/internal/amqp"
)

type (
	// EventPublisher pushes domain events to the message broker. Services
	// treat a nil publisher as "broker disabled" and keep working.
	EventPublisher interface {
		PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error
		PublishExpenseRemoved(ctx context.Context, msg *amqp.ExpenseRemovedMessage) error
		PublishBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error
	}

	// AlertPublisher pushes budget alerts to the message broker. The digest
	// processor treats a nil publisher as "broker disabled" and only logs.
	AlertPublisher interface {
		PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
	}

	// ReportInvalidator drops cached reports for a household after its
	// books change.
	ReportInvalidator interface {
		InvalidateHousehold(household string)
	}
)
