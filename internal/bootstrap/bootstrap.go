package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"pixelrank/internal/domain/analysis"
	"pixelrank/internal/domain/eventbus"
	domainimage "pixelrank/internal/domain/image"
	"pixelrank/internal/domain/stats"
	"pixelrank/internal/pipeline"
	platformconfig "pixelrank/internal/platform/config"
	platformerrors "pixelrank/internal/platform/errors"
	platformlogging "pixelrank/internal/platform/logging"
	platformobservability "pixelrank/internal/platform/observability"
	httptransport "pixelrank/internal/transport/http"
	httpstatus "pixelrank/internal/transport/http/status"
	"pixelrank/internal/utils"
)

// Overrides carries command-line values that win over file and environment
// configuration.
type Overrides struct {
	ConfigPath  string
	Input       string
	Output      string
	Concurrency int
	WebEnabled  bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	overrides Overrides

	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	collector             *stats.Collector
	analyzer              *analysis.Analyzer
	pipeline              *pipeline.Pipeline
}

// Run executes one full analysis run: load configuration, initialise
// dependencies, stream the input list through the pipeline, and shut
// everything down. It blocks until the run finishes or a signal arrives.
func Run(ctx context.Context, overrides Overrides) error {
	state := &appState{overrides: overrides}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(logger, InitGraph())

	defer logger.Close()
	defer eventbus.Shutdown()
	defer state.collector.Close()

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
			}
		}()
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)
	runCtx, runDone := context.WithCancel(groupCtx)
	defer runDone()

	if config.Web.Enabled {
		if err := startStatusServer(state, group, runCtx); err != nil {
			return err
		}
	}

	var written int64
	group.Go(func() error {
		// the status server lives only as long as the run
		defer runDone()

		n, err := state.pipeline.Run(runCtx, config.Input.Location, config.Output.Path)
		written = n
		return err
	})

	err := group.Wait()

	// in-flight record events must land before the final snapshot
	eventbus.Get().WaitAsync()

	snap := state.collector.Snapshot()
	logger.InfoTag("STATS", "run %s: processed=%d succeeded=%d failed=%d written=%d",
		snap.RunID, snap.Processed, snap.Succeeded, snap.Failed, snap.Written)

	if err != nil {
		logger.ErrorTag("BOOT", "run failed after %d records: %v", written, err)
		return err
	}

	logger.InfoTag("BOOT", "results written to %s", config.Output.Path)
	return nil
}

// InitGraph returns the initialisation steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "stats:init-collector",
			Title:     "Initialise run statistics",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initStatsStep,
		},
		{
			ID:        "analysis:init",
			Title:     "Initialise image analysis",
			DependsOn: []string{"logging:init", "stats:init-collector"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAnalysisStep,
		},
		{
			ID:        "pipeline:init",
			Title:     "Initialise pipeline",
			DependsOn: []string{"analysis:init"},
			Kind:      platformerrors.KindPipeline,
			Execute:   initPipelineStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func logBootstrapGraph(logger *utils.Logger, steps []initStep) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s: %s", step.ID, step.Title)
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().
		WithPath(state.overrides.ConfigPath).
		Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}

	cfg := result.Config
	if state.overrides.Input != "" {
		cfg.Input.Location = state.overrides.Input
	}
	if state.overrides.Output != "" {
		cfg.Output.Path = state.overrides.Output
	}
	if state.overrides.Concurrency > 0 {
		cfg.Pipeline.Concurrency = state.overrides.Concurrency
	}
	if state.overrides.WebEnabled {
		cfg.Web.Enabled = true
	}

	state.config = cfg
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Core()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag("BOOT", "logging ready [%s] config=%s",
		state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initStatsStep(_ context.Context, state *appState) error {
	collector, err := stats.NewCollector(eventbus.Get())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "stats:init-collector", "failed to create stats collector", err)
	}
	state.collector = collector

	state.logger.InfoTag("STATS", "run id %s", collector.RunID())
	return nil
}

func initAnalysisStep(_ context.Context, state *appState) error {
	if state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"analysis:init",
			"missing config/logger",
		)
	}

	fetch := state.config.Fetch
	fetcher := domainimage.NewFetcher(domainimage.FetcherOptions{
		Timeout:   fetch.Timeout,
		UserAgent: fetch.UserAgent,
		MaxBytes:  fetch.MaxFileSize,
		Logger:    state.logger,
	})
	decoder := domainimage.NewDecoder(domainimage.Limits{
		MaxFileSize:    fetch.MaxFileSize,
		MaxPixels:      fetch.MaxPixels,
		MaxWidth:       fetch.MaxWidth,
		MaxHeight:      fetch.MaxHeight,
		AllowedFormats: fetch.AllowedFormats,
	}, state.logger)

	state.analyzer = analysis.NewAnalyzer(analysis.Options{
		Fetcher: fetcher,
		Decoder: decoder,
		Bus:     eventbus.Get(),
		Logger:  state.logger,
	})
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	if state.analyzer == nil {
		return platformerrors.New(
			platformerrors.KindPipeline,
			"pipeline:init",
			"analyzer not initialised",
		)
	}

	state.pipeline = pipeline.New(pipeline.Options{
		Processor:   state.analyzer,
		Concurrency: state.config.Pipeline.Concurrency,
		Bus:         eventbus.Get(),
		Logger:      state.logger,
	})
	return nil
}

func startStatusServer(state *appState, g *errgroup.Group, runCtx context.Context) error {
	config := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "web:build-router", "failed to build http router", err)
	}

	router.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	statusService, err := httpstatus.NewService(config, state.collector, logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "web:new-status-service", "failed to create status service", err)
	}
	if err := statusService.Register(runCtx, router.API); err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "web:register-routes", "failed to register status routes", err)
	}

	addr := config.Web.IP + ":" + strconv.Itoa(config.Web.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("WEB", "status service listening on http://%s", addr)

		go func() {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("WEB", "status service shutdown failed: %v", err)
			} else {
				logger.InfoTag("WEB", "status service stopped")
			}
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("WEB", "status service failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}
