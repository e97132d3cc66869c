package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pixelmill-server-go/internal/domain/artdirect"
	"pixelmill-server-go/internal/domain/convert"
	"pixelmill-server-go/internal/domain/delivery"
	"pixelmill-server-go/internal/domain/eventbus"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/domain/optimizer"
	"pixelmill-server-go/internal/domain/responsive"
	"pixelmill-server-go/internal/domain/rules"
	platformconfig "pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	platformlogging "pixelmill-server-go/internal/platform/logging"
	platformobservability "pixelmill-server-go/internal/platform/observability"
	platformstorage "pixelmill-server-go/internal/platform/storage"
	httptransport "pixelmill-server-go/internal/transport/http"
	httpdelivery "pixelmill-server-go/internal/transport/http/deliveryapi"
	httpoptimize "pixelmill-server-go/internal/transport/http/optimizeapi"
	httpstats "pixelmill-server-go/internal/transport/http/statsapi"
	"pixelmill-server-go/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string

	logProvider *platformlogging.Logger
	logger      *utils.Logger
	slogger     *slog.Logger

	observabilityShutdown platformobservability.ShutdownFunc

	db   *gorm.DB
	repo *platformstorage.Repository

	cache convert.Store

	optimizer *optimizer.Optimizer
	generator *responsive.Generator

	selector *delivery.Selector
	signer   *delivery.Signer
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, the HTTP server and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
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
	if state.optimizer == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"optimizer not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
			}
		}()
	}
	defer eventbus.Shutdown()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("starting http server: %w", err)
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "service stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph executed:")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s: %s", step.ID, step.Title)
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

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:open",
			Title:     "Open result storage",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   openStorageStep,
		},
		{
			ID:        "cache:init",
			Title:     "Initialise conversion cache",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindCache,
			Execute:   initCacheStep,
		},
		{
			ID:        "pipeline:init",
			Title:     "Initialise optimization pipeline",
			DependsOn: []string{"logging:init-provider", "cache:init", "storage:open"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPipelineStep,
		},
		{
			ID:        "delivery:init",
			Title:     "Initialise delivery layer",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindDelivery,
			Execute:   initDeliveryStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().WithDotEnv(true).Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Base()
	state.slogger = logProvider.Slog()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)

	eventbus.SetupEventHandlers()

	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown

	return nil
}

func openStorageStep(_ context.Context, state *appState) error {
	if !state.config.Storage.Enabled {
		state.logger.InfoTag("STORAGE", "result storage disabled")
		return nil
	}

	db, err := platformstorage.Open(state.config.Storage)
	if err != nil {
		return err
	}
	state.db = db
	state.repo = platformstorage.NewRepository(db, state.logger)
	state.logger.InfoTag("STORAGE", "result storage ready at %s", state.config.Storage.Path)
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	store, err := convert.NewStore(state.config.Cache)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindCache, "cache:init", "failed to create conversion cache", err)
	}
	state.cache = store
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	codec := domainimage.NewStdCodec()
	extractor := domainimage.NewExtractor(logger)
	analyzer := domainimage.NewAnalyzer(codec, logger)

	engine := rules.NewEngine(logger)
	builtins := []rules.Rule{
		rules.NewAutoFormatRule(),
		rules.NewResponsiveRule(cfg.Responsive.Breakpoints),
		rules.NewContentAwareRule(func(src *domainimage.SourceImage) domainimage.ContentAnalysis {
			return analyzer.Analyze(src, src.Format)
		}),
	}
	for _, rule := range builtins {
		if err := engine.Register(rule); err != nil {
			return platformerrors.Wrap(platformerrors.KindRule, "pipeline:init", "failed to register rule", err)
		}
	}

	resolver := artdirect.NewResolver(logger)
	if err := artdirect.RegisterFromConfig(resolver, cfg.ArtDirection); err != nil {
		return err
	}

	converter := convert.NewConverter(codec, state.cache, cfg.Pipeline, logger)
	placeholder := responsive.NewPlaceholderGenerator(codec, cfg.Responsive, logger)

	generator := responsive.NewGenerator(converter, resolver, placeholder, cfg.Responsive, cfg.Profiles, logger)

	detector, err := buildFocalDetector(cfg, codec, logger)
	if err != nil {
		return err
	}
	generator.SetFocalDetector(detector)

	opt := optimizer.New(extractor, engine, converter, generator, cfg.Batch, logger)
	if state.repo != nil {
		opt.SetSink(state.repo)
	}

	state.generator = generator
	state.optimizer = opt
	return nil
}

func buildFocalDetector(
	cfg *platformconfig.Config,
	codec domainimage.Codec,
	logger *utils.Logger,
) (artdirect.FocalPointDetector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Focal.Detector)) {
	case "", "heuristic":
		return artdirect.NewHeuristicCapabilities(codec), nil
	case "vlm":
		detector, err := artdirect.NewVLMDetector(cfg.Focal.VLM, logger)
		if err != nil {
			return nil, err
		}
		return detector, nil
	default:
		logger.WarnTag("FOCAL", "unknown focal detector %q, falling back to heuristic", cfg.Focal.Detector)
		return artdirect.NewHeuristicCapabilities(codec), nil
	}
}

func initDeliveryStep(_ context.Context, state *appState) error {
	state.selector = delivery.NewSelector(state.config.Delivery, state.logger)
	state.signer = delivery.NewSigner(state.config.Delivery)
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	optimizeService, err := httpoptimize.NewService(state.optimizer, state.generator, state.cache, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "optimizeapi:new-service", "failed to create optimize service", err)
	}

	statsService, err := httpstats.NewService(state.optimizer, state.repo, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "statsapi:new-service", "failed to create stats service", err)
	}

	deliveryService, err := httpdelivery.NewService(config, state.selector, state.signer, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "deliveryapi:new-service", "failed to create delivery service", err)
	}

	for _, svc := range []interface {
		Register(context.Context, *gin.RouterGroup) error
	}{optimizeService, statsService, deliveryService} {
		if err := svc.Register(groupCtx, apiGroup); err != nil {
			return nil, err
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", addr)
		logger.InfoTag("HTTP", "optimized assets served under http://%s/assets/", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received shutdown signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
