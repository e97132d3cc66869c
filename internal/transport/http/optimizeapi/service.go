// Package optimizeapi exposes the optimizer over HTTP: single-image and
// batch optimization, responsive markup descriptors, job inspection and
// conversion-cache control.
package optimizeapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"pixelmill-server-go/internal/domain/convert"
	"pixelmill-server-go/internal/domain/eventbus"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/domain/optimizer"
	"pixelmill-server-go/internal/domain/responsive"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	httptransport "pixelmill-server-go/internal/transport/http"
	"pixelmill-server-go/internal/utils"
)

type Service struct {
	optimizer *optimizer.Optimizer
	generator *responsive.Generator
	cache     convert.Store
	logger    *utils.Logger
}

func NewService(
	opt *optimizer.Optimizer,
	generator *responsive.Generator,
	cache convert.Store,
	logger *utils.Logger,
) (*Service, error) {
	if opt == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "optimizeapi.new", "optimizer is required")
	}
	return &Service{
		optimizer: opt,
		generator: generator,
		cache:     cache,
		logger:    logger,
	}, nil
}

// Register wires the optimize routes onto the API group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/optimize", s.handleOptimize)
	router.POST("/optimize/batch", s.handleBatch)
	router.POST("/responsive/markup", s.handleMarkup)
	router.GET("/responsive/manifest", s.handleManifest)
	router.GET("/jobs", s.handleListJobs)
	router.GET("/jobs/:id", s.handleGetJob)
	router.POST("/cache/clear", s.handleClearCache)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "optimize routes registered")
	}
	return nil
}

type optimizeRequest struct {
	Path        string   `json:"path" binding:"required"`
	Formats     []string `json:"formats"`
	Quality     int      `json:"quality"`
	Responsive  *bool    `json:"responsive"`
	Profile     string   `json:"profile"`
	Sizes       string   `json:"sizes"`
	Placeholder bool     `json:"placeholder"`
	Enhance     bool     `json:"enhance"`
	Suffix      string   `json:"suffix"`
}

func (r optimizeRequest) options() optimizer.Options {
	formats := make([]domainimage.Format, 0, len(r.Formats))
	for _, name := range r.Formats {
		formats = append(formats, domainimage.ParseFormat(name))
	}
	return optimizer.Options{
		Formats:     formats,
		Quality:     r.Quality,
		Responsive:  r.Responsive,
		Profile:     r.Profile,
		Sizes:       r.Sizes,
		Placeholder: r.Placeholder,
		Enhance:     r.Enhance,
		Suffix:      r.Suffix,
	}
}

func (s *Service) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := s.optimizer.OptimizeImage(c.Request.Context(), req.Path, req.options())
	if err != nil {
		status := statusFor(err)
		httptransport.RespondError(c, status, "optimization failed", err.Error())
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, result, "")
}

type batchRequest struct {
	Patterns    []string `json:"patterns" binding:"required"`
	Formats     []string `json:"formats"`
	Quality     int      `json:"quality"`
	Responsive  *bool    `json:"responsive"`
	Profile     string   `json:"profile"`
	Placeholder bool     `json:"placeholder"`
	Enhance     bool     `json:"enhance"`
}

func (s *Service) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	opts := optimizeRequest{
		Formats:     req.Formats,
		Quality:     req.Quality,
		Responsive:  req.Responsive,
		Profile:     req.Profile,
		Placeholder: req.Placeholder,
		Enhance:     req.Enhance,
	}.options()

	batch, err := s.optimizer.OptimizeImages(c.Request.Context(), req.Patterns, opts)
	if err != nil {
		httptransport.RespondError(c, statusFor(err), "batch failed", err.Error())
		return
	}

	// Item errors travel as strings so the envelope stays serializable.
	errs := make([]string, 0, len(batch.Errors))
	for _, e := range batch.Errors {
		errs = append(errs, e.Error())
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"job_id":  batch.JobID,
		"results": batch.Results,
		"errors":  errs,
	}, "")
}

type markupRequest struct {
	Path          string   `json:"path" binding:"required"`
	Formats       []string `json:"formats"`
	Profile       string   `json:"profile"`
	Sizes         string   `json:"sizes"`
	Placeholder   bool     `json:"placeholder"`
	Picture       bool     `json:"picture"`
	Loading       string   `json:"loading"`
	FetchPriority string   `json:"fetchpriority"`
}

func (s *Service) handleMarkup(c *gin.Context) {
	var req markupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	forced := true
	result, err := s.optimizer.OptimizeImage(c.Request.Context(), req.Path, optimizeRequest{
		Path:        req.Path,
		Formats:     req.Formats,
		Responsive:  &forced,
		Profile:     req.Profile,
		Sizes:       req.Sizes,
		Placeholder: req.Placeholder,
	}.options())
	if err != nil {
		httptransport.RespondError(c, statusFor(err), "responsive generation failed", err.Error())
		return
	}
	if result.Responsive == nil {
		httptransport.RespondError(c, http.StatusUnprocessableEntity, "source produced no responsive set", nil)
		return
	}

	markupOpts := responsive.MarkupOptions{Loading: req.Loading, FetchPriority: req.FetchPriority}
	if req.Picture {
		httptransport.RespondSuccess(c, http.StatusOK, responsive.BuildPicture(result.Responsive, markupOpts), "")
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, responsive.BuildImg(result.Responsive, markupOpts), "")
}

// manifest is the export shape consumed by build tooling; it flattens the
// responsive set into srcsets plus per-variant records.
type manifest struct {
	Source      string                        `json:"source"`
	Width       int                           `json:"width"`
	Height      int                           `json:"height"`
	SrcSets     map[domainimage.Format]string `json:"srcsets"`
	Sizes       string                        `json:"sizes"`
	Placeholder string                        `json:"placeholder,omitempty"`
	Variants    []convert.Variant             `json:"variants"`
}

func (s *Service) handleManifest(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "path query parameter is required", nil)
		return
	}

	forced := true
	result, err := s.optimizer.OptimizeImage(c.Request.Context(), path, optimizer.Options{
		Responsive:  &forced,
		Profile:     c.Query("profile"),
		Placeholder: c.Query("placeholder") == "true",
	})
	if err != nil {
		httptransport.RespondError(c, statusFor(err), "responsive generation failed", err.Error())
		return
	}
	if result.Responsive == nil {
		httptransport.RespondError(c, http.StatusUnprocessableEntity, "source produced no responsive set", nil)
		return
	}

	set := result.Responsive
	doc := manifest{
		Source:   set.Source.Path,
		Width:    set.Source.Width,
		Height:   set.Source.Height,
		SrcSets:  set.SrcSets,
		Sizes:    set.SizesAttribute,
		Variants: set.Variants,
	}
	if set.Placeholder != nil {
		doc.Placeholder = set.Placeholder.DataURI
	}

	payload, err := sonic.Marshal(doc)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "manifest encoding failed", err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (s *Service) handleListJobs(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.optimizer.Jobs().List(), "")
}

func (s *Service) handleGetJob(c *gin.Context) {
	job, ok := s.optimizer.Jobs().Get(c.Param("id"))
	if !ok {
		httptransport.RespondError(c, http.StatusNotFound, "job not found", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, job, "")
}

func (s *Service) handleClearCache(c *gin.Context) {
	if s.cache != nil {
		if err := s.cache.Clear(c.Request.Context()); err != nil {
			httptransport.RespondError(c, http.StatusInternalServerError, "cache clear failed", err.Error())
			return
		}
	}
	if s.generator != nil {
		s.generator.Clear()
	}
	eventbus.PublishAsync(eventbus.EventCacheCleared)
	httptransport.RespondSuccess(c, http.StatusOK, nil, "caches cleared")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, platformerrors.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, platformerrors.ErrEncoderUnavailable):
		return http.StatusNotImplemented
	case platformerrors.IsKind(err, platformerrors.KindConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
