package authstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher delivers a store's audit events to its sink from one
// goroutine. Events are stamped with the store namespace and a UTC timestamp
// when they are queued, so sink order matches operation order.
//
// A nil *auditDispatcher is valid and drops everything silently.
type auditDispatcher struct {
	namespace  string
	dropIfFull bool
	sink       AuditSink
	logger     *slog.Logger
	now        func() time.Time

	// mu lets Close close queue without racing a concurrent send.
	mu       sync.RWMutex
	closed   bool
	queue    chan AuditEvent
	finished chan struct{}

	dropped atomic.Uint64
}

func newAuditDispatcher(namespace string, cfg AuditConfig, sink AuditSink, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &auditDispatcher{
		namespace:  namespace,
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		logger:     logger,
		now:        time.Now,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		finished:   make(chan struct{}),
	}
	go d.deliverAll()
	return d
}

func (d *auditDispatcher) deliverAll() {
	defer close(d.finished)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver hands one event to the sink. A panicking sink loses that event
// only.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
			d.logger.Error("audit sink panicked", "event_type", event.EventType, "panic", fmt.Sprint(r))
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full buffer discards the event;
// otherwise Emit waits for room or for ctx to end.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	event.Namespace = d.namespace

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and returns once every queued event has
// reached the sink. It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.finished
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.finished
	if n := d.dropped.Load(); n > 0 {
		d.logger.Warn("audit events dropped", "count", n)
	}
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
