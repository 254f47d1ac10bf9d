package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
	"github.com/user/pricewatch-service/pkg/metrics"
	"github.com/user/pricewatch-service/pkg/price"
	"github.com/user/pricewatch-service/pkg/utils"
	"go.uber.org/zap"
)

var ErrRunInProgress = errors.New("a price check run is already in progress")

// ProductExtractor produces a fresh extraction for a product URL.
type ProductExtractor interface {
	Extract(ctx context.Context, productURL string) entity.ExtractedProduct
}

// DomainThrottle gates outbound requests per host.
type DomainThrottle interface {
	Wait(ctx context.Context, rawURL string) error
}

type MonitorConfig struct {
	BatchSize        int
	MinCheckInterval time.Duration
	BatchPauseMin    time.Duration
	BatchPauseMax    time.Duration
	ItemPauseMin     time.Duration
	ItemPauseMax     time.Duration
	// FailureAlertThreshold is the number of consecutive unparseable checks
	// after which a page is reported in the logs. Zero disables the alert.
	FailureAlertThreshold int64
}

// MonitorOption configures optional collaborators of a PriceMonitor.
type MonitorOption func(*PriceMonitor)

// WithExtractionFailures enables per-URL unparseable counters.
func WithExtractionFailures(repo repository.ExtractionFailureRepository) MonitorOption {
	return func(m *PriceMonitor) { m.failures = repo }
}

// WithRunStatus records a report after every run.
func WithRunStatus(repo repository.RunStatusRepository) MonitorOption {
	return func(m *PriceMonitor) { m.runStatus = repo }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) MonitorOption {
	return func(m *PriceMonitor) { m.clock = clock }
}

// WithSleep overrides the pacing sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) MonitorOption {
	return func(m *PriceMonitor) { m.sleep = sleep }
}

// PriceMonitor selects eligible subscriptions and checks them batch by batch.
// Items are processed one at a time. Only one run executes at a time.
type PriceMonitor struct {
	subs       repository.SubscriptionRepository
	extractor  ProductExtractor
	throttle   DomainThrottle
	comparator *PriceComparator
	failures   repository.ExtractionFailureRepository
	runStatus  repository.RunStatusRepository
	cfg        MonitorConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	running sync.Mutex
}

func NewPriceMonitor(
	subs repository.SubscriptionRepository,
	extractor ProductExtractor,
	throttle DomainThrottle,
	comparator *PriceComparator,
	cfg MonitorConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts ...MonitorOption,
) *PriceMonitor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	pm := &PriceMonitor{
		subs:       subs,
		extractor:  extractor,
		throttle:   throttle,
		comparator: comparator,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		clock:      time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// RunOnce performs one full pass over the eligible subscriptions. Per-item
// failures are logged and skipped. An error is returned only when the pass
// itself could not continue, together with the counts reached so far.
// A call made while another run is active returns ErrRunInProgress.
func (m *PriceMonitor) RunOnce(ctx context.Context, trigger string) (entity.RunResult, error) {
	if !m.running.TryLock() {
		m.metrics.ObserveRun(trigger, "skipped", 0)
		return entity.RunResult{}, ErrRunInProgress
	}
	defer m.running.Unlock()

	report := entity.RunReport{Trigger: trigger, StartedAt: m.clock().UTC()}
	m.logger.Info("price check run started", zap.String("trigger", trigger))

	result, failed, err := m.run(ctx)

	report.FinishedAt = m.clock().UTC()
	report.Checked = result.Checked
	report.Notified = result.Notified
	report.Failed = failed
	status := "success"
	if err != nil {
		status = "failure"
		report.Error = err.Error()
		m.logger.Error("price check run aborted",
			zap.String("trigger", trigger),
			zap.Int("checked", result.Checked),
			zap.Int("notified", result.Notified),
			zap.Error(err))
	} else {
		m.logger.Info("price check run finished",
			zap.String("trigger", trigger),
			zap.Int("checked", result.Checked),
			zap.Int("notified", result.Notified),
			zap.Int("failed", failed),
			zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))
	}
	m.metrics.ObserveRun(trigger, status, report.FinishedAt.Sub(report.StartedAt))
	m.recordRun(ctx, &report)

	return result, err
}

func (m *PriceMonitor) run(ctx context.Context) (entity.RunResult, int, error) {
	var (
		result  entity.RunResult
		failed  int
		batches int
		batch   = make([]*entity.Subscription, 0, m.cfg.BatchSize)
	)

	processBatch := func() error {
		if batches > 0 {
			if err := m.pause(ctx, m.cfg.BatchPauseMin, m.cfg.BatchPauseMax); err != nil {
				return err
			}
		}
		batches++
		for _, sub := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			checked, notified, err := m.checkSubscription(ctx, sub)
			if checked {
				result.Checked++
				m.metrics.IncChecked()
			}
			if notified {
				result.Notified++
			}
			if err != nil {
				failed++
				m.logger.Warn("subscription check failed",
					zap.String("subscription_id", sub.ID),
					zap.String("product_url", sub.ProductURL),
					zap.String("host", utils.Hostname(sub.ProductURL)),
					zap.Error(err))
			}
		}
		batch = batch[:0]
		return nil
	}

	for sub, err := range m.subs.FindEligible(ctx, m.clock(), m.cfg.MinCheckInterval) {
		if err != nil {
			return result, failed, fmt.Errorf("stream eligible subscriptions: %w", err)
		}
		batch = append(batch, sub)
		if len(batch) < m.cfg.BatchSize {
			continue
		}
		if err := processBatch(); err != nil {
			return result, failed, err
		}
	}
	if len(batch) > 0 {
		if err := processBatch(); err != nil {
			return result, failed, err
		}
	}
	return result, failed, nil
}

// checkSubscription evaluates one subscription. checked is true once the
// page was extracted and LastCheckedAt advanced, even if the write-back
// failed afterwards.
func (m *PriceMonitor) checkSubscription(ctx context.Context, sub *entity.Subscription) (checked, notified bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.IncItemError("panic")
			err = fmt.Errorf("panic while checking subscription: %v", r)
		}
	}()

	if err := m.throttle.Wait(ctx, sub.ProductURL); err != nil {
		m.metrics.IncItemError("throttle")
		return false, false, fmt.Errorf("await domain slot: %w", err)
	}
	if err := m.pause(ctx, m.cfg.ItemPauseMin, m.cfg.ItemPauseMax); err != nil {
		return false, false, err
	}

	product := m.extractor.Extract(ctx, sub.ProductURL)
	sub.MarkChecked(m.clock())
	if !IsWeakExtraction(product) {
		sub.ProductName = product.Name
	}

	current, ok := price.Normalize(product.PriceText)
	switch {
	case !ok:
		m.trackUnparseable(ctx, sub, product)
	case sub.LastSeenPrice == nil:
		m.resetFailures(ctx, sub.ProductURL)
		// First comparable observation becomes the baseline.
		sub.LastSeenPrice = &current
	default:
		m.resetFailures(ctx, sub.ProductURL)
		notified = m.comparator.Compare(ctx, current, sub).Notified
	}

	if err := m.subs.Save(ctx, sub); err != nil {
		m.metrics.IncItemError("save")
		return true, notified, fmt.Errorf("save subscription: %w", err)
	}
	return true, notified, nil
}

func (m *PriceMonitor) trackUnparseable(ctx context.Context, sub *entity.Subscription, product entity.ExtractedProduct) {
	m.logger.Info("price not comparable this cycle",
		zap.String("subscription_id", sub.ID),
		zap.String("product_url", sub.ProductURL),
		zap.String("price_text", product.PriceText),
		zap.String("source", string(product.Source)))

	if m.failures == nil {
		return
	}
	count, err := m.failures.Increment(ctx, sub.ProductURL)
	if err != nil {
		m.logger.Warn("failed to count unparseable check", zap.String("product_url", sub.ProductURL), zap.Error(err))
		return
	}
	if m.cfg.FailureAlertThreshold > 0 && count >= m.cfg.FailureAlertThreshold {
		m.logger.Warn("product page repeatedly unparseable",
			zap.String("product_url", sub.ProductURL),
			zap.Int64("consecutive_failures", count))
	}
}

func (m *PriceMonitor) resetFailures(ctx context.Context, productURL string) {
	if m.failures == nil {
		return
	}
	if err := m.failures.Reset(ctx, productURL); err != nil {
		m.logger.Warn("failed to reset unparseable counter", zap.String("product_url", productURL), zap.Error(err))
	}
}

func (m *PriceMonitor) recordRun(ctx context.Context, report *entity.RunReport) {
	if m.runStatus == nil {
		return
	}
	// the run context may already be cancelled on shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.runStatus.SaveLastRun(ctx, report); err != nil {
		m.logger.Warn("failed to record run report", zap.Error(err))
	}
}

func (m *PriceMonitor) pause(ctx context.Context, lo, hi time.Duration) error {
	return m.sleep(ctx, jitter(lo, hi))
}

// jitter returns a uniformly random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
