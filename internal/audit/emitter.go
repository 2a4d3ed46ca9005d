package audit

import (
	"context"
	"sync"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"go.uber.org/zap"
)

// Emitter forwards transition events to the external audit sink
// asynchronously. Applied transitions already have a durable copy in the
// transition_events table, written in the deciding transaction; denied
// attempts exist only on this stream. The worker feeds downstream consumers
// and is allowed to lose events on overflow or shutdown.
type Emitter struct {
	queue  chan *approval.TransitionEvent
	logger *zap.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewEmitter creates a new audit emitter. queueSize bounds the in-flight
// backlog; values below 1 get a default.
func NewEmitter(queueSize int, logger *zap.Logger) *Emitter {
	if queueSize < 1 {
		queueSize = 256
	}
	return &Emitter{
		queue:   make(chan *approval.TransitionEvent, queueSize),
		logger:  logger,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Name implements worker.Worker
func (e *Emitter) Name() string {
	return "audit-emitter"
}

// Start launches the forwarding loop
func (e *Emitter) Start(ctx context.Context) error {
	go e.run(ctx)
	return nil
}

// Stop stops the forwarding loop
func (e *Emitter) Stop() {
	e.stopOnce.Do(func() { close(e.stopped) })
	<-e.done
}

// Emit enqueues an event without blocking the caller.
func (e *Emitter) Emit(ev *approval.TransitionEvent) {
	select {
	case e.queue <- ev:
	default:
		e.logger.Warn("Audit queue full, dropping event",
			zap.String("record_id", ev.RecordID),
			zap.String("tier", string(ev.Tier)))
	}
}

func (e *Emitter) run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case ev := <-e.queue:
			e.forward(ev)
		case <-e.stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

// forward writes the event to the structured audit log. The sink wire
// format belongs to whoever tails this log.
func (e *Emitter) forward(ev *approval.TransitionEvent) {
	e.logger.Info("approval.transition",
		zap.String("event_id", ev.ID),
		zap.String("record_id", ev.RecordID),
		zap.Int("revision", ev.Revision),
		zap.String("tier", string(ev.Tier)),
		zap.String("from", string(ev.FromStatus)),
		zap.String("to", string(ev.ToStatus)),
		zap.String("actor_id", ev.ActorID),
		zap.String("actor_role", string(ev.ActorRole)),
		zap.String("outcome", string(ev.Outcome)),
		zap.String("reason", ev.Reason),
		zap.Time("at", ev.At),
	)
}
