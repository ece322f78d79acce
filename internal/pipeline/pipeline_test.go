package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelrank/internal/domain/analysis"
	"pixelrank/internal/domain/color"
	"pixelrank/internal/domain/eventbus"
	platformerrors "pixelrank/internal/platform/errors"
	"pixelrank/internal/utils"
)

func testLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// processorFunc adapts a function to the Processor interface.
type processorFunc func(ctx context.Context, location string) analysis.Record

func (f processorFunc) Analyze(ctx context.Context, location string) analysis.Record {
	return f(ctx, location)
}

func writeInput(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func readOutputLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestRun_OneLinePerRecordRegardlessOfCompletionOrder(t *testing.T) {
	const n = 50

	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("http://example.com/img-%02d.png", i)
	}
	input := writeInput(t, lines)
	output := filepath.Join(t.TempDir(), "out.txt")

	var inFlight, maxInFlight atomic.Int64
	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return analysis.Record{Location: location, Colors: []color.RGB{0x010203}}
	})

	p := New(Options{Processor: proc, Concurrency: 4, Logger: testLogger(t)})
	written, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, int64(n), written)

	got := readOutputLines(t, output)
	require.Len(t, got, n)

	// every input line appears exactly once, order irrelevant
	want := make([]string, n)
	for i, loc := range lines {
		want[i] = loc + ",#010203"
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)

	assert.LessOrEqual(t, maxInFlight.Load(), int64(4), "concurrency bound exceeded")
	assert.Greater(t, maxInFlight.Load(), int64(1), "records should overlap")
}

func TestRun_FailuresAreDataNotFaults(t *testing.T) {
	input := writeInput(t, []string{"good.png", "bad.png", "ugly.png"})
	output := filepath.Join(t.TempDir(), "out.txt")

	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		if location == "good.png" {
			return analysis.Record{Location: location, Colors: []color.RGB{0xFFFFFF}}
		}
		return analysis.Record{Location: location, Err: errors.New("no image")}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	written, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, int64(3), written)

	got := readOutputLines(t, output)
	sort.Strings(got)
	assert.Equal(t, []string{
		"bad.png" + analysis.ErrorSuffix,
		"good.png,#FFFFFF",
		"ugly.png" + analysis.ErrorSuffix,
	}, got)
}

func TestRun_SlowRecordDoesNotBlockOthers(t *testing.T) {
	input := writeInput(t, []string{"slow.png", "fast-1.png", "fast-2.png", "fast-3.png"})
	output := filepath.Join(t.TempDir(), "out.txt")

	slowStarted := make(chan struct{})
	release := make(chan struct{})
	var fastDone atomic.Int64

	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		if location == "slow.png" {
			close(slowStarted)
			<-release
		} else {
			fastDone.Add(1)
		}
		return analysis.Record{Location: location}
	})

	p := New(Options{Processor: proc, Concurrency: 4, Logger: testLogger(t)})

	done := make(chan struct{})
	go func() {
		defer close(done)
		written, err := p.Run(context.Background(), input, output)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), written)
	}()

	<-slowStarted
	assert.Eventually(t, func() bool { return fastDone.Load() == 3 },
		2*time.Second, 5*time.Millisecond, "fast records stuck behind slow one")

	close(release)
	<-done
	assert.Len(t, readOutputLines(t, output), 4)
}

func TestRun_InputFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a.png\nb.png\n"))
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "out.txt")
	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		return analysis.Record{Location: location}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	written, err := p.Run(context.Background(), server.URL, output)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
}

func TestRun_UnopenableInputIsFatal(t *testing.T) {
	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		t.Fatal("processor must not run when input cannot be opened")
		return analysis.Record{}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	output := filepath.Join(t.TempDir(), "out.txt")

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), output)
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindPipeline))
}

func TestRun_UnreachableInputHostIsFatal(t *testing.T) {
	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		return analysis.Record{Location: location}
	})
	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	output := filepath.Join(t.TempDir(), "out.txt")

	_, err := p.Run(context.Background(), "http://127.0.0.1:1/input.txt", output)
	assert.Error(t, err)
}

func TestRun_BlankLinesStillYieldOneOutputLine(t *testing.T) {
	input := writeInput(t, []string{"a.png", "", "b.png"})
	output := filepath.Join(t.TempDir(), "out.txt")

	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		if location == "" {
			return analysis.Record{Location: location, Err: errors.New("empty location")}
		}
		return analysis.Record{Location: location}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	written, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, int64(3), written)

	got := readOutputLines(t, output)
	assert.Contains(t, got, analysis.ErrorSuffix)
}

func TestRun_PublishesRunCompletedOnce(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)

	type completion struct {
		written       int64
		elapsedMillis int64
	}
	events := make(chan completion, 4)
	require.NoError(t, bus.Subscribe(eventbus.TopicRunCompleted, func(written, elapsedMillis int64) {
		events <- completion{written: written, elapsedMillis: elapsedMillis}
	}))

	input := writeInput(t, []string{"a.png", "b.png", "c.png"})
	output := filepath.Join(t.TempDir(), "out.txt")

	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		return analysis.Record{Location: location, Colors: []color.RGB{0x010203}}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Bus: bus, Logger: testLogger(t)})
	written, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	require.Equal(t, int64(3), written)

	// delivery is synchronous, so the event is already in the channel
	got := <-events
	assert.Equal(t, int64(3), got.written)
	assert.GreaterOrEqual(t, got.elapsedMillis, int64(0))
	assert.Empty(t, events, "completion must fire exactly once per run")
}

func TestRun_NoRunCompletedEventOnFailedRun(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Stop)

	fired := make(chan struct{}, 1)
	require.NoError(t, bus.Subscribe(eventbus.TopicRunCompleted, func(int64, int64) {
		fired <- struct{}{}
	}))

	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		return analysis.Record{Location: location}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Bus: bus, Logger: testLogger(t)})
	output := filepath.Join(t.TempDir(), "out.txt")

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), output)
	require.Error(t, err)
	assert.Empty(t, fired, "failed runs must not report completion")
}

func TestRun_CancellationAbortsCleanly(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("img-%d.png", i)
	}
	input := writeInput(t, lines)
	output := filepath.Join(t.TempDir(), "out.txt")

	ctx, cancel := context.WithCancel(context.Background())
	proc := processorFunc(func(ctx context.Context, location string) analysis.Record {
		cancel()
		<-ctx.Done()
		return analysis.Record{Location: location, Err: ctx.Err()}
	})

	p := New(Options{Processor: proc, Concurrency: 2, Logger: testLogger(t)})
	_, err := p.Run(ctx, input, output)
	assert.Error(t, err)

	// the sink must still have been flushed and closed
	_, statErr := os.Stat(output)
	assert.NoError(t, statErr)
}
