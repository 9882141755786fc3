package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/ledger"
)

// DigestConfig holds configuration for the digest processor
type DigestConfig struct {
	// Interval is how often a digest is produced (default: 24h)
	Interval time.Duration

	// Cadence selects the reporting window each digest evaluates (default: monthly)
	Cadence ledger.Cadence

	// Households is the set of households the digest covers
	Households []string
}

// DefaultDigestConfig returns sensible defaults
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		Interval: 24 * time.Hour,
		Cadence:  ledger.CadenceMonthly,
	}
}

// DigestProcessor periodically summarizes the current window of every
// configured household and flags members whose spending crossed into the
// warning or over band. Exceeded budgets additionally go out as alert
// messages when a publisher is attached.
type DigestProcessor struct {
	reports *ReportService
	alerts  AlertPublisher
	config  DigestConfig

	now func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDigestProcessor(reports *ReportService, alerts AlertPublisher, config DigestConfig) *DigestProcessor {
	return &DigestProcessor{
		reports: reports,
		alerts:  alerts,
		config:  config,
		now:     time.Now,
	}
}

// Start begins the digest loop. Returns an error if already running.
func (p *DigestProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("digest processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Digest processor started",
		"interval", p.config.Interval,
		"cadence", p.config.Cadence,
		"households", len(p.config.Households))

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *DigestProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Digest processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Digest processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *DigestProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *DigestProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Produce a digest immediately on startup
	p.runDigest(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runDigest(ctx)
		}
	}
}

// runDigest summarizes the current window of every configured household.
func (p *DigestProcessor) runDigest(ctx context.Context) {
	windower, err := ledger.GetWindower(p.config.Cadence)
	if err != nil {
		slog.ErrorContext(ctx, "Invalid digest cadence",
			"cadence", p.config.Cadence, "error", err)
		return
	}
	period := windower.Window(dateOf(p.now()))

	for _, household := range p.config.Households {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		p.digestHousehold(ctx, household, period)
	}
}

func (p *DigestProcessor) digestHousehold(ctx context.Context, household string, period ledger.Period) {
	report, err := p.reports.Household(ctx, household, period)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build household digest",
			"household", household, "error", err)
		return
	}

	for person, pr := range report.Members {
		slog.InfoContext(ctx, "Digest",
			"household", household,
			"person", person,
			"period", period.String(),
			"total", pr.Total.String(),
			"categories", len(pr.Categories))

		for category, cs := range pr.Categories {
			switch cs.Status {
			case ledger.StatusOver:
				slog.WarnContext(ctx, "Budget exceeded",
					"household", household,
					"person", person,
					"category", category,
					"spent", cs.Spent.String(),
					"limit", cs.Budget.String())
				p.publishAlert(ctx, household, person, category, period, cs)
			case ledger.StatusWarning:
				slog.WarnContext(ctx, "Budget nearly exhausted",
					"household", household,
					"person", person,
					"category", category,
					"spent", cs.Spent.String(),
					"limit", cs.Budget.String())
			}
		}
	}
}

// publishAlert sends an exceeded budget line to the broker. Failures are
// logged and swallowed, the next digest run covers the same ground again.
func (p *DigestProcessor) publishAlert(ctx context.Context, household, person, category string, period ledger.Period, cs ledger.CategorySpending) {
	if p.alerts == nil {
		return
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
		Timestamp:   p.now(),
	}
	if err := p.alerts.PublishBudgetAlert(ctx, alert); err != nil {
		slog.ErrorContext(ctx, "Failed to publish digest alert",
			"household", household,
			"person", person,
			"category", category,
			"error", err)
	}
}
