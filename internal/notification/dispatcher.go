package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hourglass-hq/timesheet-approvals/internal/application/port"
	"go.uber.org/zap"
)

// Config holds dispatcher configuration.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	QueueSize  int
}

// Dispatcher delivers transition notifications to a webhook endpoint.
// Delivery is best-effort: Dispatch never blocks the deciding request, the
// queue drops on overflow, and a failed POST is logged and forgotten.
type Dispatcher struct {
	cfg    Config
	client *http.Client
	queue  chan port.Notification
	logger *zap.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		queue:   make(chan port.Notification, cfg.QueueSize),
		logger:  logger,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Name implements worker.Worker
func (d *Dispatcher) Name() string {
	return "notification-dispatcher"
}

// Start launches the delivery loop
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.cfg.WebhookURL == "" {
		d.logger.Info("Notification webhook not configured, notifications will be dropped")
	}
	go d.run(ctx)
	return nil
}

// Stop drains nothing; queued notifications not yet delivered are dropped,
// which the at-least-once-or-never contract allows.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
	<-d.done
}

// Dispatch enqueues a notification without blocking. Overflow drops the
// notification and logs it.
func (d *Dispatcher) Dispatch(n port.Notification) {
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("Notification queue full, dropping",
			zap.String("record_id", n.RecordID),
			zap.String("new_state", string(n.NewState)))
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-d.stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n port.Notification) {
	if d.cfg.WebhookURL == "" {
		return
	}

	body, err := json.Marshal(n)
	if err != nil {
		d.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("Failed to build notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("record_id", n.RecordID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("Notification delivery rejected",
			zap.String("record_id", n.RecordID),
			zap.Error(fmt.Errorf("unexpected status %d", resp.StatusCode)))
		return
	}

	d.logger.Debug("Notification delivered", zap.String("record_id", n.RecordID))
}
