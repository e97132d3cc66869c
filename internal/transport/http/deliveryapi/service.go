// Package deliveryapi exposes cache-policy resolution, provider selection,
// URL signing and the redacted configuration export.
package deliveryapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pixelmill-server-go/internal/domain/delivery"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	httptransport "pixelmill-server-go/internal/transport/http"
	"pixelmill-server-go/internal/utils"
)

type Service struct {
	cfg      *config.Config
	selector *delivery.Selector
	signer   *delivery.Signer
	logger   *utils.Logger
}

func NewService(cfg *config.Config, selector *delivery.Selector, signer *delivery.Signer, logger *utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "deliveryapi.new", "config is required")
	}
	if selector == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "deliveryapi.new", "selector is required")
	}
	return &Service{cfg: cfg, selector: selector, signer: signer, logger: logger}, nil
}

func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/delivery/policy", s.handlePolicy)
	router.POST("/delivery/sign", s.handleSign)
	router.GET("/config", s.handleConfig)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "delivery routes registered")
	}
	return nil
}

// handlePolicy resolves policy, provider and headers for a content type
// passed as ?content_type=image/webp.
func (s *Service) handlePolicy(c *gin.Context) {
	contentType := c.Query("content_type")
	if contentType == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "content_type query parameter is required", nil)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"policy":   s.selector.PolicyFor(contentType),
		"provider": s.selector.ProviderFor(contentType),
		"headers":  s.selector.HeadersFor(contentType),
	}, "")
}

type signRequest struct {
	URL      string `json:"url" binding:"required"`
	Provider string `json:"provider"`
}

func (s *Service) handleSign(c *gin.Context) {
	if s.signer == nil {
		httptransport.RespondError(c, http.StatusNotImplemented, "url signing not configured", nil)
		return
	}

	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = s.cfg.Delivery.FallbackProvider
	}

	signed, err := s.signer.SignURL(provider, req.URL)
	if err != nil {
		httptransport.RespondError(c, http.StatusUnprocessableEntity, "signing failed", err.Error())
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"url": signed, "provider": provider}, "")
}

// handleConfig exports the running configuration with credentials masked.
func (s *Service) handleConfig(c *gin.Context) {
	redacted, err := s.cfg.Redacted()
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "config export failed", err.Error())
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, redacted, "")
}
