package eventbus

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// AsyncEventBus runs handlers on a bounded worker pool so publishers never
// block on slow subscribers.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

type asyncEvent struct {
	topic   string
	args    []interface{}
	handler func(args ...interface{})
}

// NewAsyncEventBus creates an async bus with the given worker count.
func NewAsyncEventBus(workerNum int) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = 4
	}

	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, 1024),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (aeb *AsyncEventBus) Start() {
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop shuts the workers down and waits for them to exit. Repeated calls
// are no-ops.
func (aeb *AsyncEventBus) Stop() {
	aeb.stopOnce.Do(func() {
		close(aeb.stopChan)
		aeb.wg.Wait()
	})
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()

	for {
		select {
		case <-aeb.stopChan:
			return
		case event := <-aeb.workChan:
			func() {
				defer func() {
					// a panicking handler must not take the worker down
					_ = recover()
				}()
				event.handler(event.args...)
			}()
		}
	}
}

// Publish delivers an event synchronously.
func (aeb *AsyncEventBus) Publish(topic string, args ...interface{}) {
	aeb.bus.Publish(topic, args...)
}

// PublishAsync queues an event for the worker pool. Events are dropped when
// the queue is full.
func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) {
	select {
	case aeb.workChan <- asyncEvent{
		topic: topic,
		args:  args,
		handler: func(args ...interface{}) {
			aeb.bus.Publish(topic, args...)
		},
	}:
	default:
	}
}

// Subscribe registers a handler for a topic.
func (aeb *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return aeb.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a handler for a topic.
func (aeb *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return aeb.bus.Unsubscribe(topic, handler)
}

// HasCallback reports whether any handler is registered for the topic.
func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// WaitAsync waits until the queue is empty, then gives in-flight handlers
// a moment to finish.
func (aeb *AsyncEventBus) WaitAsync() {
	for len(aeb.workChan) > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}
