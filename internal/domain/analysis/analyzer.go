package analysis

import (
	"context"

	"pixelrank/internal/domain/color"
	"pixelrank/internal/domain/eventbus"
	domainimage "pixelrank/internal/domain/image"
	"pixelrank/internal/platform/observability"
	"pixelrank/internal/utils"
)

// Analyzer resolves one location to its three most frequent pixel colors.
// Analyze converts every failure into a Record; nothing escapes its
// boundary as an error.
type Analyzer struct {
	fetcher *domainimage.Fetcher
	decoder *domainimage.Decoder
	bus     eventbus.Bus
	logger  *utils.Logger
}

// Options wires an Analyzer.
type Options struct {
	Fetcher *domainimage.Fetcher
	Decoder *domainimage.Decoder
	// Bus receives a TopicRecordAnalyzed event per record. Optional.
	Bus    eventbus.Bus
	Logger *utils.Logger
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Analyzer{
		fetcher: opts.Fetcher,
		decoder: opts.Decoder,
		bus:     opts.Bus,
		logger:  logger,
	}
}

// Analyze fetches, decodes, and counts one image. The returned Record is a
// success exactly when every stage succeeded.
func (a *Analyzer) Analyze(ctx context.Context, location string) Record {
	spanCtx, spanEnd := observability.StartSpan(ctx, "analysis", "analyze")
	rec := a.analyze(spanCtx, location)
	spanEnd(rec.Err)

	status := "ok"
	if rec.Failed() {
		status = "failed"
	}
	observability.RecordMetric(spanCtx, "analysis.records", 1,
		map[string]string{"component": "analysis", "status": status})

	if rec.Failed() {
		a.logger.WarnTag("PIPELINE", "no image at %s: %v", location, rec.Err)
	} else {
		a.logger.DebugTag("PIPELINE", "analyzed %s: %s", location, rec.Line())
	}
	if a.bus != nil {
		// record events ride the bus worker pool; a slow subscriber must
		// never stall an analysis worker
		a.bus.PublishAsync(eventbus.TopicRecordAnalyzed, location, !rec.Failed())
	}

	return rec
}

func (a *Analyzer) analyze(ctx context.Context, location string) Record {
	raw, formatHint, err := a.fetcher.Fetch(ctx, location)
	if err != nil {
		return Record{Location: location, Err: err}
	}

	img, _, err := a.decoder.Decode(raw, formatHint)
	if err != nil {
		return Record{Location: location, Err: err}
	}

	counter := color.NewCounter()
	domainimage.EachRGB(img, counter.Add)

	return Record{
		Location: location,
		Colors:   counter.Top3(),
	}
}
