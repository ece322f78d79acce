package status

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"pixelrank/internal/domain/stats"
	"pixelrank/internal/platform/config"
	"pixelrank/internal/platform/errors"
	httptransport "pixelrank/internal/transport/http"
	"pixelrank/internal/utils"
)

// Service exposes run progress and host health over HTTP while a long
// analysis run is in flight.
type Service struct {
	config    *config.Config
	logger    *utils.Logger
	collector *stats.Collector
}

// NewService wires the status endpoints.
func NewService(cfg *config.Config, collector *stats.Collector, logger *utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "status.new", "config is required")
	}
	if collector == nil {
		return nil, errors.New(errors.KindConfig, "status.new", "stats collector is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return &Service{
		config:    cfg,
		logger:    logger,
		collector: collector,
	}, nil
}

// Register mounts the status routes on the API group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/status", s.handleStatus)
	router.GET("/system", s.handleSystem)

	s.logger.InfoTag("WEB", "status routes registered")
	return nil
}

// statusPayload is the /api/status response body.
type statusPayload struct {
	RunID     string `json:"run_id"`
	Uptime    string `json:"uptime"`
	Processed int64  `json:"processed"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
	Written   int64  `json:"written"`
	Input     string `json:"input"`
	Output    string `json:"output"`
	Workers   int    `json:"workers"`
}

func (s *Service) handleStatus(c *gin.Context) {
	snap := s.collector.Snapshot()

	httptransport.RespondSuccess(c, http.StatusOK, statusPayload{
		RunID:     snap.RunID,
		Uptime:    snap.Uptime.Round(time.Millisecond).String(),
		Processed: snap.Processed,
		Succeeded: snap.Succeeded,
		Failed:    snap.Failed,
		Written:   snap.Written,
		Input:     s.config.Input.Location,
		Output:    s.config.Output.Path,
		Workers:   s.config.Pipeline.Concurrency,
	}, "")
}

func (s *Service) handleSystem(c *gin.Context) {
	data := gin.H{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}

	if info, err := host.InfoWithContext(c.Request.Context()); err == nil {
		data["hostname"] = info.Hostname
		data["os"] = info.OS
		data["platform"] = info.Platform
		data["host_uptime_sec"] = info.Uptime
	} else {
		s.logger.WarnTag("WEB", "host info unavailable: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		data["mem_total"] = vm.Total
		data["mem_used"] = vm.Used
		data["mem_used_percent"] = vm.UsedPercent
	} else {
		s.logger.WarnTag("WEB", "memory info unavailable: %v", err)
	}

	if counts, err := cpu.CountsWithContext(c.Request.Context(), true); err == nil {
		data["cpu_count"] = counts
	}

	httptransport.RespondSuccess(c, http.StatusOK, data, "")
}
