// Package scheduler runs the background order poller that catches
// orders whose webhooks were missed.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
)

// Poller errors
var (
	ErrInvalidPollerConfig = errors.New("scheduler: invalid poller configuration")
	ErrPollerNotRunning    = errors.New("scheduler: poller is not running")
)

// OrderProcessor processes one order through the sync pipeline
type OrderProcessor interface {
	Process(ctx context.Context, order *integration.SourceOrder) (*integration.SyncOutcome, error)
}

// OrderPollerConfig holds configuration for the order poller
type OrderPollerConfig struct {
	// Enabled indicates if the poller is enabled
	Enabled bool
	// Interval is how often the poller lists recently updated orders
	Interval time.Duration
	// Lookback is how far back the first poll reaches
	Lookback time.Duration
	// PageSize is the platform listing page size
	PageSize int
}

// DefaultOrderPollerConfig returns default configuration
func DefaultOrderPollerConfig() OrderPollerConfig {
	return OrderPollerConfig{
		Enabled:  true,
		Interval: 5 * time.Minute,
		Lookback: 30 * time.Minute,
		PageSize: 50,
	}
}

// Validate validates the configuration
func (c *OrderPollerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidPollerConfig
	}
	if c.Lookback <= 0 {
		return ErrInvalidPollerConfig
	}
	if c.PageSize <= 0 {
		return ErrInvalidPollerConfig
	}
	return nil
}

// OrderPoller periodically lists recently updated orders from the
// commerce platform and feeds them through the pipeline. The pipeline's
// idempotency guard makes replays of already-synced orders cheap, so
// the poller can safely overlap with webhook deliveries.
type OrderPoller struct {
	config    OrderPollerConfig
	commerce  integration.CommerceGateway
	processor OrderProcessor
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// lastPolledAt is the high-water mark carried between polls
	lastPolledAt time.Time
}

// NewOrderPoller creates a new order poller
func NewOrderPoller(config OrderPollerConfig, commerce integration.CommerceGateway, processor OrderProcessor, logger *zap.Logger) (*OrderPoller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OrderPoller{
		config:    config,
		commerce:  commerce,
		processor: processor,
		logger:    logger.Named("order_poller"),
	}, nil
}

// Start starts the poll loop
func (p *OrderPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("Order poller started",
		zap.Duration("interval", p.config.Interval),
		zap.Duration("lookback", p.config.Lookback),
	)
	return nil
}

// Stop gracefully stops the poller
func (p *OrderPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Order poller stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Order poller stop timed out")
		return ctx.Err()
	}
}

// loop runs one poll per tick until the context is canceled
func (p *OrderPoller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("Order poll failed", zap.Error(err))
			}
		}
	}
}

// PollOnce lists orders updated since the last poll and processes each
// one. The high-water mark only advances after a fully successful poll
// so a failed page is re-listed next tick.
func (p *OrderPoller) PollOnce(ctx context.Context) error {
	p.mu.Lock()
	since := p.lastPolledAt
	p.mu.Unlock()
	if since.IsZero() {
		since = time.Now().Add(-p.config.Lookback)
	}
	pollStart := time.Now()

	cursor := ""
	processed := 0
	for {
		page, err := p.commerce.ListOrders(ctx, integration.OrderQuery{
			UpdatedSince: since,
			Cursor:       cursor,
			PageSize:     p.config.PageSize,
		})
		if err != nil {
			return err
		}

		for i := range page.Orders {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			order := &page.Orders[i]
			outcome, err := p.processor.Process(ctx, order)
			if err != nil {
				p.logger.Error("Polled order failed",
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
				continue
			}
			processed++
			if !outcome.Handled {
				p.logger.Debug("Polled order not handled",
					zap.String("order_id", order.ID),
					zap.String("reason", string(outcome.Reason)),
				)
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	p.mu.Lock()
	p.lastPolledAt = pollStart
	p.mu.Unlock()

	p.logger.Info("Order poll completed",
		zap.Int("processed", processed),
		zap.Time("since", since),
	)
	return nil
}
