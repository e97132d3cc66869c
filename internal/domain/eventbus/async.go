package eventbus

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

const (
	defaultWorkers = 10
	queueCapacity  = 1000
)

// AsyncEventBus fans queued events out to a fixed worker pool. A full queue
// drops the event rather than stalling the publisher.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan queuedEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

type queuedEvent struct {
	topic string
	args  []interface{}
}

func NewAsyncEventBus(workerNum int) *AsyncEventBus {
	return NewAsyncEventBusOn(evbus.New(), workerNum)
}

// NewAsyncEventBusOn builds a pool that delivers onto an existing bus, so
// synchronous subscribers on that bus also receive async-published events.
func NewAsyncEventBusOn(bus evbus.Bus, workerNum int) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = defaultWorkers
	}
	return &AsyncEventBus{
		bus:       bus,
		workerNum: workerNum,
		workChan:  make(chan queuedEvent, queueCapacity),
		stopChan:  make(chan struct{}),
	}
}

func (b *AsyncEventBus) Start() {
	for i := 0; i < b.workerNum; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

func (b *AsyncEventBus) Stop() {
	close(b.stopChan)
	b.wg.Wait()
}

func (b *AsyncEventBus) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		case ev := <-b.workChan:
			b.deliver(ev)
		}
	}
}

// deliver isolates subscriber panics so one bad handler cannot kill a worker.
func (b *AsyncEventBus) deliver(ev queuedEvent) {
	defer func() {
		_ = recover()
	}()
	b.bus.Publish(ev.topic, ev.args...)
}

// Publish delivers synchronously on the caller's goroutine.
func (b *AsyncEventBus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// PublishAsync queues the event. Drops silently when the queue is full.
func (b *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.workChan <- queuedEvent{topic: topic, args: args}:
	default:
	}
}

func (b *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *AsyncEventBus) SubscribeAsync(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return b.bus.Unsubscribe(topic, handler)
}

func (b *AsyncEventBus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync gives queued events a moment to drain. Test helper only.
func (b *AsyncEventBus) WaitAsync() {
	time.Sleep(100 * time.Millisecond)
}
