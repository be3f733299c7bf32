// README: Dispatcher tests: delivery, drain on close, full-queue drop, failure isolation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
	gate chan struct{}
}

func (c *captureSender) Send(_ context.Context, m Message) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return c.err
}

func (c *captureSender) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

func TestDispatcherDeliversQueuedMessages(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, 16, 2, zap.NewNop())

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Notify(context.Background(), Message{
			To:   fmt.Sprintf("d%d@example.com", i),
			Kind: KindNewRequest,
		}))
	}
	d.Close()

	assert.Len(t, sender.messages(), 5)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	gate := make(chan struct{})
	sender := &captureSender{gate: gate}
	d := NewDispatcher(sender, 1, 1, zap.NewNop())

	// first message occupies the worker, second fills the queue,
	// anything past that is dropped without blocking
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Notify(context.Background(), Message{Kind: KindNewRequest}))
	}
	close(gate)
	d.Close()

	assert.LessOrEqual(t, len(sender.messages()), 2)
}

func TestDispatcherIgnoresSendFailures(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp unreachable")}
	d := NewDispatcher(sender, 8, 1, zap.NewNop())

	require.NoError(t, d.NotifyBatch(context.Background(), []Message{
		{Kind: KindAccepted},
		{Kind: KindDeclined},
	}))
	d.Close()

	// both attempted despite the first failing
	assert.Len(t, sender.messages(), 2)
}

func TestDispatcherNotifyAfterCloseIsNoop(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, 8, 1, zap.NewNop())
	d.Close()

	require.NoError(t, d.Notify(context.Background(), Message{Kind: KindNewRequest}))
	assert.Empty(t, sender.messages())
}

func TestRenderCoversEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindNewRequest, KindNewResponse, KindAccepted, KindFulfilledElsewhere, KindDeclined} {
		subject, body := render(Message{Kind: kind, Data: map[string]string{
			"patient_name": "Patient",
			"blood_group":  "B+",
			"units":        "2",
			"location":     "Dhaka",
			"distance_km":  "3.5",
			"donor_name":   "Donor",
			"message":      "hi",
		}})
		assert.NotEmpty(t, subject, "kind %s", kind)
		assert.NotEmpty(t, body, "kind %s", kind)
	}
}
