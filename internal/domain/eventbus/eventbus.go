package eventbus

import (
	"sync"
)

// Topics published during an analysis run. Handlers receive the documented
// argument lists.
const (
	// TopicRecordAnalyzed fires once per input record with
	// (location string, succeeded bool). Delivery is asynchronous.
	TopicRecordAnalyzed = "analysis:record"
	// TopicRunCompleted fires once per successful run with
	// (written int64, elapsedMillis int64). Delivery is synchronous.
	TopicRunCompleted = "pipeline:run_completed"
)

// Bus is the event surface shared by publishers and subscribers.
// *AsyncEventBus is the only implementation.
type Bus interface {
	Publish(topic string, args ...interface{})
	PublishAsync(topic string, args ...interface{})
	Subscribe(topic string, fn interface{}) error
	Unsubscribe(topic string, fn interface{}) error
	HasCallback(topic string) bool
}

var (
	instance *AsyncEventBus
	once     sync.Once
)

// Get returns the shared bus instance with its worker pool running.
func Get() *AsyncEventBus {
	once.Do(func() {
		instance = NewAsyncEventBus(4)
		instance.Start()
	})
	return instance
}

// New creates an independent started bus, mainly for tests.
func New() *AsyncEventBus {
	bus := NewAsyncEventBus(2)
	bus.Start()
	return bus
}

// Publish publishes a synchronous event on the shared bus.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe subscribes a handler on the shared bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// Shutdown stops the shared async workers. Safe to call more than once.
func Shutdown() {
	if instance != nil {
		instance.Stop()
	}
}
