package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelrank/internal/domain/eventbus"
)

func TestCollector_CountsRecordEvents(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)
	collector, err := NewCollector(bus)
	require.NoError(t, err)
	defer collector.Close()

	bus.Publish(eventbus.TopicRecordAnalyzed, "a.png", true)
	bus.Publish(eventbus.TopicRecordAnalyzed, "b.png", false)
	bus.Publish(eventbus.TopicRecordAnalyzed, "c.png", true)

	snap := collector.Snapshot()
	assert.Equal(t, int64(3), snap.Processed)
	assert.Equal(t, int64(2), snap.Succeeded)
	assert.Equal(t, int64(1), snap.Failed)
}

func TestCollector_CountsAsyncRecordEvents(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)
	collector, err := NewCollector(bus)
	require.NoError(t, err)
	defer collector.Close()

	bus.PublishAsync(eventbus.TopicRecordAnalyzed, "a.png", true)
	bus.PublishAsync(eventbus.TopicRecordAnalyzed, "b.png", false)

	assert.Eventually(t, func() bool {
		snap := collector.Snapshot()
		return snap.Processed == 2 && snap.Succeeded == 1 && snap.Failed == 1
	}, 5*time.Second, 10*time.Millisecond, "async record events not counted")
}

func TestCollector_RecordsWrittenCount(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)
	collector, err := NewCollector(bus)
	require.NoError(t, err)
	defer collector.Close()

	bus.Publish(eventbus.TopicRunCompleted, int64(42), int64(1500))

	snap := collector.Snapshot()
	assert.Equal(t, int64(42), snap.Written)
}

func TestCollector_RunIDStable(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)
	collector, err := NewCollector(bus)
	require.NoError(t, err)
	defer collector.Close()

	assert.NotEmpty(t, collector.RunID())
	assert.Equal(t, collector.RunID(), collector.Snapshot().RunID)
}

func TestCollector_CloseDetaches(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)
	collector, err := NewCollector(bus)
	require.NoError(t, err)

	collector.Close()
	bus.Publish(eventbus.TopicRecordAnalyzed, "late.png", true)

	assert.Equal(t, int64(0), collector.Snapshot().Processed)
}
