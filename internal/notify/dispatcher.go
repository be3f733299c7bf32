// README: Async notification dispatcher: buffered queue + worker goroutines.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender performs the actual delivery of a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// sendTimeout bounds one delivery attempt so a stuck SMTP connection cannot
// pin a worker.
const sendTimeout = 10 * time.Second

// Dispatcher decouples notification delivery from the request/response cycle.
// Notify enqueues and returns immediately; workers drain the queue and log
// failures. When the queue is full the message is dropped with a log line
// rather than blocking the caller.
type Dispatcher struct {
	sender Sender
	queue  chan Message
	log    *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, queueSize, workers int, log *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan Message, queueSize),
		log:    log,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(_ context.Context, m Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	select {
	case d.queue <- m:
	default:
		d.log.Warn("notification queue full, dropping message",
			zap.String("kind", string(m.Kind)), zap.String("to", m.To))
	}
	return nil
}

func (d *Dispatcher) NotifyBatch(ctx context.Context, ms []Message) error {
	for _, m := range ms {
		_ = d.Notify(ctx, m)
	}
	return nil
}

// Close stops accepting work and waits for queued messages to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for m := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sender.Send(ctx, m); err != nil {
			d.log.Warn("notification delivery failed",
				zap.String("kind", string(m.Kind)), zap.String("to", m.To), zap.Error(err))
		}
		cancel()
	}
}
