// Package eventbus wraps asaskevich/EventBus with an asynchronous worker
// pool so pipeline stages can publish without blocking on slow subscribers.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

var (
	instance evbus.Bus
	asyncBus *AsyncEventBus
	once     sync.Once
)

func initBuses() {
	instance = evbus.New()
	// The worker pool delivers onto the shared bus so Subscribe and
	// SubscribeAsync handlers both see async-published events.
	asyncBus = NewAsyncEventBusOn(instance, 10)
	asyncBus.Start()
}

// Get returns the process-wide synchronous bus.
func Get() evbus.Bus {
	once.Do(initBuses)
	return instance
}

// GetAsync returns the process-wide asynchronous bus.
func GetAsync() *AsyncEventBus {
	once.Do(initBuses)
	return asyncBus
}

// Publish delivers an event synchronously to all subscribers.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// PublishAsync queues an event for delivery by the worker pool.
func PublishAsync(topic string, args ...interface{}) {
	GetAsync().PublishAsync(topic, args...)
}

func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

func SubscribeAsync(topic string, fn interface{}) error {
	return GetAsync().SubscribeAsync(topic, fn)
}

// Shutdown drains the worker pool. Call once at process exit.
func Shutdown() {
	if asyncBus != nil {
		asyncBus.Stop()
	}
}
