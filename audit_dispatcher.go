package goRecovery

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher delivers recovery audit events on its own goroutine so a
// slow sink never stretches the loading window of a submission.
//
// Audit is advisory for this flow: the backend owns the authoritative record
// of verifications and resets. With AuditConfig.DropIfFull an event that does
// not fit in the buffer is counted and dropped rather than holding up the
// user. Without it, Emit waits for room until the submission context ends.
// Close flushes whatever is buffered, so events from a finished flow are not
// lost on teardown.
type auditDispatcher struct {
	sink    AuditSink
	policy  AuditConfig
	events  chan AuditEvent
	closing chan struct{}
	flushed sync.WaitGroup

	dropped  atomic.Uint64
	shutdown atomic.Bool
	stopOnce sync.Once
}

// newAuditDispatcher returns nil when audit is disabled; a nil dispatcher
// accepts and ignores every call.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	d := &auditDispatcher{
		sink:    sink,
		policy:  cfg,
		events:  make(chan AuditEvent, cfg.BufferSize),
		closing: make(chan struct{}),
	}
	d.flushed.Add(1)
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer d.flushed.Done()

	ctx := context.Background()
	for {
		select {
		case ev := <-d.events:
			d.sink.Emit(ctx, ev)
		case <-d.closing:
			for {
				select {
				case ev := <-d.events:
					d.sink.Emit(ctx, ev)
				default:
					return
				}
			}
		}
	}
}

// Emit queues ev according to the DropIfFull policy. Events emitted after
// Close are ignored.
func (d *auditDispatcher) Emit(ctx context.Context, ev AuditEvent) {
	if d == nil || d.shutdown.Load() {
		return
	}

	if d.policy.DropIfFull {
		select {
		case d.events <- ev:
		case <-d.closing:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.events <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.closing:
	}
}

// Close stops intake and waits until buffered events reached the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.shutdown.Store(true)
		close(d.closing)
		d.flushed.Wait()
	})
}

// Dropped counts events lost to a full buffer or an ended submission context.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
