// Package reminder scans every worker's pending payments and publishes a
// reminder for days left unpaid longer than the worker's reminder period.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"workday/internal/amqp"
	"workday/internal/cache"
	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/earnings"
	"workday/internal/log"
	"workday/internal/summary"
)

// Publisher delivers reminder messages.
type Publisher interface {
	PublishPaymentReminder(ctx context.Context, msg *amqp.PaymentReminderMessage) error
}

// Config holds configuration for the reminder processor
type Config struct {
	// Interval is how often every profile is scanned (default: 1h)
	Interval time.Duration

	// DedupTTL is how long a reminder for the same worker and overdue set
	// is suppressed (default: 24h)
	DedupTTL time.Duration

	// MaxTracked bounds the dedup cache (default: 10000)
	MaxTracked int
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   time.Hour,
		DedupTTL:   24 * time.Hour,
		MaxTracked: 10000,
	}
}

// Processor periodically publishes payment reminders.
type Processor struct {
	docs   docstore.ProfileStore
	days   docstore.SessionStore
	pub    Publisher
	config Config
	logger *log.Logger
	now    func() time.Time

	sent *cache.LRUCache[time.Time]

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProcessor creates a reminder processor reading from docs.
func NewProcessor(docs docstore.Store, pub Publisher, config Config, logger *log.Logger) *Processor {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.DedupTTL <= 0 {
		config.DedupTTL = DefaultConfig().DedupTTL
	}
	return &Processor{
		docs:   docs,
		days:   docs,
		pub:    pub,
		config: config,
		logger: logger.WithComponent(log.ComponentReminder),
		now:    time.Now,
		sent:   cache.NewLRUCache[time.Time](config.MaxTracked, config.DedupTTL),
	}
}

// SentCache exposes the dedup cache so a janitor can expire it.
func (p *Processor) SentCache() cache.Cleaner {
	return p.sent
}

// Start begins the processing loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Reminder processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// Run starts the processor and blocks until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return p.Stop(stopCtx)
}

// IsRunning returns whether the processor is currently running
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.scan(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *Processor) scan(ctx context.Context) {
	published, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Reminder scan failed", log.FieldError, err)
		return
	}
	if published > 0 {
		p.logger.InfoContext(ctx, "Reminder scan complete", log.FieldCount, published)
	}
}

// RunOnce scans every profile once and returns how many reminders were
// published. A failure for one worker is logged and does not stop the scan.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	profiles, err := p.docs.ListProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	today := p.now()
	published := 0
	for _, sp := range profiles {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		ok, err := p.remind(ctx, core.ApplyProfileDefaults(sp), today)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to remind worker",
				log.FieldUID, sp.UID,
				log.FieldOperation, log.OpRemind,
				log.FieldError, err)
			continue
		}
		if ok {
			published++
		}
	}
	return published, nil
}

func (p *Processor) remind(ctx context.Context, profile core.UserProfile, today time.Time) (bool, error) {
	if profile.Role == core.RolePayer || profile.PaymentReminderDays <= 0 || profile.Email == "" {
		return false, nil
	}

	// Only days up to the cutoff can be overdue.
	to := calendar.FormatDateISO(calendar.AddDays(calendar.Midnight(today), -profile.PaymentReminderDays))
	days, err := p.days.GetWorkDays(ctx, profile.UID, "", to)
	if err != nil {
		return false, fmt.Errorf("load work days: %w", err)
	}

	resolver := earnings.NewResolver(&profile)
	overdue := summary.OverduePayments(days, today, profile.PaymentReminderDays, resolver.Func())
	if len(overdue) == 0 {
		return false, nil
	}

	key := dedupKey(profile.UID, overdue)
	if _, seen := p.sent.Get(key); seen {
		return false, nil
	}

	items := make([]amqp.OverdueDay, 0, len(overdue))
	total := decimal.Zero
	for _, o := range overdue {
		items = append(items, amqp.OverdueDay{DateKey: o.DateKey, Earnings: o.Earnings})
		total = total.Add(decimal.NewFromFloat(o.Earnings))
	}
	msg := amqp.NewPaymentReminderMessage(
		profile.UID,
		profile.Email,
		profile.WorkerName,
		profile.CurrencySymbol,
		profile.PaymentReminderDays,
		items,
		total.Round(2).InexactFloat64(),
	)

	if err := p.pub.PublishPaymentReminder(ctx, msg); err != nil {
		return false, fmt.Errorf("publish reminder: %w", err)
	}
	p.sent.Set(key, today)

	p.logger.InfoContext(ctx, "Published payment reminder",
		log.FieldUID, profile.UID,
		log.FieldMessageID, msg.MessageID,
		log.FieldCount, len(items),
		log.FieldAmount, msg.Total)
	return true, nil
}

// dedupKey identifies a worker's overdue set by its newest and oldest day
// and size, so a changed set produces a fresh reminder.
func dedupKey(uid string, overdue []summary.PendingPayment) string {
	return fmt.Sprintf("%s|%s|%s|%d", uid, overdue[0].DateKey, overdue[len(overdue)-1].DateKey, len(overdue))
}
