package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type pingEvent struct{}

func (pingEvent) Name() string { return "ping" }

func TestPublishCallsEverySubscriber(t *testing.T) {
	bus := New(zap.NewNop())
	var calls int32

	for i := 0; i < 3; i++ {
		bus.Subscribe("ping", func(ctx context.Context, e Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})

	bus.Publish(context.Background(), pingEvent{})
	bus.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := New(zap.NewNop())
	bus.Publish(context.Background(), pingEvent{})
	bus.Wait()
}
