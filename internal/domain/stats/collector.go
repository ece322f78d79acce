package stats

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pixelrank/internal/domain/eventbus"
)

// Collector aggregates run counters from record events. Counters are
// atomic; the collector is safe to snapshot while workers publish.
type Collector struct {
	runID     uuid.UUID
	startedAt time.Time
	bus       eventbus.Bus

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	written   atomic.Int64
}

// Snapshot is a point-in-time view of the run.
type Snapshot struct {
	RunID     string        `json:"run_id"`
	Uptime    time.Duration `json:"uptime"`
	Processed int64         `json:"processed"`
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	Written   int64         `json:"written"`
}

// NewCollector subscribes a collector to the given bus.
func NewCollector(bus eventbus.Bus) (*Collector, error) {
	c := &Collector{
		runID:     uuid.New(),
		startedAt: time.Now(),
		bus:       bus,
	}

	if err := bus.Subscribe(eventbus.TopicRecordAnalyzed, c.onRecord); err != nil {
		return nil, err
	}
	if err := bus.Subscribe(eventbus.TopicRunCompleted, c.onRunCompleted); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Collector) onRecord(location string, succeeded bool) {
	c.processed.Add(1)
	if succeeded {
		c.succeeded.Add(1)
	} else {
		c.failed.Add(1)
	}
}

func (c *Collector) onRunCompleted(written int64, elapsedMillis int64) {
	c.written.Store(written)
}

// RunID identifies this run in logs and status payloads.
func (c *Collector) RunID() string {
	return c.runID.String()
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		RunID:     c.runID.String(),
		Uptime:    time.Since(c.startedAt),
		Processed: c.processed.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Written:   c.written.Load(),
	}
}

// Close detaches the collector from the bus.
func (c *Collector) Close() {
	_ = c.bus.Unsubscribe(eventbus.TopicRecordAnalyzed, c.onRecord)
	_ = c.bus.Unsubscribe(eventbus.TopicRunCompleted, c.onRunCompleted)
}
