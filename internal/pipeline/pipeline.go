package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pixelrank/internal/domain/analysis"
	"pixelrank/internal/domain/eventbus"
	platformerrors "pixelrank/internal/platform/errors"
	"pixelrank/internal/utils"
)

// Processor yields exactly one Record per location. *analysis.Analyzer is
// the production implementation.
type Processor interface {
	Analyze(ctx context.Context, location string) analysis.Record
}

// Pipeline fans input lines out to concurrent processors and funnels the
// result lines through a single-owner sink. Output order follows
// completion, not input order; every input line yields exactly one output
// line.
type Pipeline struct {
	proc        Processor
	concurrency int64
	bus         eventbus.Bus
	logger      *utils.Logger
}

// Options wires a Pipeline.
type Options struct {
	Processor   Processor
	Concurrency int
	// Bus receives a TopicRunCompleted event per successful run. Optional.
	Bus    eventbus.Bus
	Logger *utils.Logger
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Pipeline{
		proc:        opts.Processor,
		concurrency: int64(concurrency),
		bus:         opts.Bus,
		logger:      logger,
	}
}

// Run streams the input list through the processor pool and writes one
// line per record to outputPath. It returns the number of lines written.
// Per-record failures are data in the output file; only input-source and
// output-sink problems are returned as errors.
func (p *Pipeline) Run(ctx context.Context, inputLocation, outputPath string) (int64, error) {
	start := time.Now()

	src, err := OpenSource(ctx, inputLocation)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindPipeline,
			"open input", "cannot open input source", err)
	}
	defer src.Close()

	sink, err := CreateSink(outputPath)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindPipeline,
			"open output", "cannot create output sink", err)
	}
	defer sink.Close()

	p.logger.InfoTag("PIPELINE", "starting run: input=%s output=%s concurrency=%d",
		inputLocation, outputPath, p.concurrency)

	results := make(chan string)

	// Single owner of the sink. A write error is remembered and the
	// channel kept draining so workers never block on a dead writer.
	writerDone := make(chan error, 1)
	go func() {
		var werr error
		for line := range results {
			if werr != nil {
				continue
			}
			werr = sink.WriteLine(line)
		}
		writerDone <- werr
	}()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(p.concurrency)

	var scanErr error
	for src.Scan() {
		line := src.Text()
		if err := sem.Acquire(gctx, 1); err != nil {
			scanErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			rec := p.proc.Analyze(gctx, line)
			select {
			case results <- rec.Line():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if scanErr == nil {
		scanErr = src.Err()
	}

	waitErr := g.Wait()
	close(results)
	werr := <-writerDone
	closeErr := sink.Close()

	written := sink.Count()
	elapsed := time.Since(start)

	switch {
	case scanErr != nil:
		return written, platformerrors.Wrap(platformerrors.KindPipeline,
			"read input", "input source failed mid-run", scanErr)
	case waitErr != nil:
		return written, platformerrors.Wrap(platformerrors.KindPipeline,
			"process records", "run aborted", waitErr)
	case werr != nil:
		return written, platformerrors.Wrap(platformerrors.KindPipeline,
			"write output", "output sink failed", werr)
	case closeErr != nil:
		return written, platformerrors.Wrap(platformerrors.KindPipeline,
			"close output", "output sink close failed", closeErr)
	}

	if p.bus != nil {
		// delivered synchronously so the event is observed before Run returns
		p.bus.Publish(eventbus.TopicRunCompleted, written, elapsed.Milliseconds())
	}
	p.logger.InfoTiming("run complete: records=%d elapsed=%s", written, elapsed.Round(time.Millisecond))

	return written, nil
}
