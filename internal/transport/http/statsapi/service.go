// Package statsapi serves aggregate pipeline metrics, persisted history and
// host runtime information.
package statsapi

import (
	"context"
	"net/http"
	"runtime"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"pixelmill-server-go/internal/domain/optimizer"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/platform/storage"
	httptransport "pixelmill-server-go/internal/transport/http"
	"pixelmill-server-go/internal/utils"
)

type Service struct {
	optimizer *optimizer.Optimizer
	repo      *storage.Repository
	logger    *utils.Logger
}

// NewService builds the stats service. The repository is optional; without
// it history endpoints report empty results.
func NewService(opt *optimizer.Optimizer, repo *storage.Repository, logger *utils.Logger) (*Service, error) {
	if opt == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "statsapi.new", "optimizer is required")
	}
	return &Service{optimizer: opt, repo: repo, logger: logger}, nil
}

func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/stats", s.handleStats)
	router.POST("/stats/reset", s.handleReset)
	router.GET("/stats/history", s.handleHistory)
	router.GET("/stats/system", s.handleSystem)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "stats routes registered")
	}
	return nil
}

func (s *Service) handleStats(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.optimizer.Metrics().Snapshot(), "")
}

func (s *Service) handleReset(c *gin.Context) {
	s.optimizer.Metrics().Reset()
	httptransport.RespondSuccess(c, http.StatusOK, nil, "metrics reset")
}

func (s *Service) handleHistory(c *gin.Context) {
	if s.repo == nil {
		httptransport.RespondSuccess(c, http.StatusOK, []storage.OptimizationRecord{}, "persistence disabled")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := s.repo.RecentResults(c.Request.Context(), limit)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "history query failed", err.Error())
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, records, "")
}

// handleSystem reports host memory and CPU load next to Go runtime counters.
func (s *Service) handleSystem(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	system := gin.H{
		"goroutines":  runtime.NumGoroutine(),
		"heap_alloc":  m.HeapAlloc,
		"heap_sys":    m.HeapSys,
		"gc_cycles":   m.NumGC,
		"go_version":  runtime.Version(),
		"cpu_logical": runtime.NumCPU(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		system["mem_total"] = vm.Total
		system["mem_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		system["cpu_percent"] = percents[0]
	}

	httptransport.RespondSuccess(c, http.StatusOK, system, "")
}
