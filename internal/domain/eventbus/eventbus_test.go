package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAsyncReachesSyncSubscribers(t *testing.T) {
	received := make(chan OptimizeEventData, 1)
	handler := func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if data, ok := args[0].(OptimizeEventData); ok {
			received <- data
		}
	}
	require.NoError(t, Subscribe(EventOptimizeCompleted, handler))
	defer func() { _ = Get().Unsubscribe(EventOptimizeCompleted, handler) }()

	PublishAsync(EventOptimizeCompleted, OptimizeEventData{
		SourcePath: "hero.jpg",
		Variants:   3,
	})

	select {
	case data := <-received:
		assert.Equal(t, "hero.jpg", data.SourcePath)
		assert.Equal(t, 3, data.Variants)
	case <-time.After(2 * time.Second):
		t.Fatal("event published with PublishAsync never reached a Subscribe handler")
	}
}

func TestAsyncBusSharesSyncInstance(t *testing.T) {
	assert.Same(t, Get(), GetAsync().bus)
}
