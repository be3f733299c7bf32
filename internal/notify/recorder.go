// README: Recording notifier fake for tests.
package notify

import (
	"context"
	"sync"
)

// Recorder is a Notifier that captures messages for assertions.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// FailAll makes every delivery report an error, for exercising
	// best-effort code paths.
	FailAll bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	if r.FailAll {
		return context.DeadlineExceeded
	}
	return nil
}

func (r *Recorder) NotifyBatch(ctx context.Context, ms []Message) error {
	var last error
	for _, m := range ms {
		if err := r.Notify(ctx, m); err != nil {
			last = err
		}
	}
	return last
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// ByKind filters recorded messages to one template kind.
func (r *Recorder) ByKind(k Kind) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}
