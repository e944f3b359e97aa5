package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"alttext-server-go/internal/domain/analysis"
	"alttext-server-go/internal/domain/archive"
	"alttext-server-go/internal/domain/auth"
	"alttext-server-go/internal/domain/caption"
	"alttext-server-go/internal/domain/eventbus"
	domainimage "alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/llm"
	"alttext-server-go/internal/domain/tts"
	"alttext-server-go/internal/domain/vectorstore"
	platformconfig "alttext-server-go/internal/platform/config"
	platformerrors "alttext-server-go/internal/platform/errors"
	platformlogging "alttext-server-go/internal/platform/logging"
	platformobservability "alttext-server-go/internal/platform/observability"
	platformstorage "alttext-server-go/internal/platform/storage"
	httptransport "alttext-server-go/internal/transport/http"
	httpanalysis "alttext-server-go/internal/transport/http/analysis"
	httpcaption "alttext-server-go/internal/transport/http/caption"
	httpwebapi "alttext-server-go/internal/transport/http/webapi"
)

const (
	bootTag = "Bootstrap"

	eventWorkers   = 4
	eventQueueSize = 256
	eventTimeout   = 30 * time.Second
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
	// loader is replaced in tests to point at a temporary config.
	loader *platformconfig.Loader

	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	vectors               vectorstore.Store
	llm                   llm.Client
	captioner             *caption.Router
	archive               archive.Store
	speech                *tts.Service
	bus                   *eventbus.Bus
	router                *httptransport.Router
}

// Run loads configuration, wires every dependency, serves HTTP and shuts
// down gracefully on SIGINT or SIGTERM.
func Run(ctx context.Context) error {
	state := &appState{}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	logger := state.logger
	if state.config == nil || logger == nil || state.router == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger/router not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	startHTTPServer(state.config, logger, state.router.Engine, group, groupCtx)

	return waitForShutdown(signalCtx, groupCtx, cancel, state.config.Server.ShutdownTimeout, logger, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag(bootTag, "dependency graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag(bootTag, "  %s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag(bootTag, "  %s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
	logger.InfoTag(bootTag, "starting services")
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
			ID:        "storage:init-database",
			Title:     "Initialise caption database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "vector:init-store",
			Title:     "Initialise vector index",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindVector,
			Execute:   initVectorStep,
		},
		{
			ID:        "llm:init-client",
			Title:     "Initialise language model client",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindLLM,
			Execute:   initLLMStep,
		},
		{
			ID:        "caption:init-router",
			Title:     "Initialise captioners",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindCaption,
			Execute:   initCaptionStep,
		},
		{
			ID:        "archive:init-store",
			Title:     "Initialise upload archive",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initArchiveStep,
		},
		{
			ID:        "tts:init-service",
			Title:     "Initialise speech synthesis",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initSpeechStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Initialise event bus",
			DependsOn: []string{"storage:init-database", "archive:init-store"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:    "http:build-router",
			Title: "Build HTTP router",
			DependsOn: []string{
				"observability:setup-hooks",
				"vector:init-store",
				"llm:init-client",
				"caption:init-router",
				"tts:init-service",
				"events:init-bus",
			},
			Kind:    platformerrors.KindTransport,
			Execute: buildRouterStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag(bootTag, "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
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

func initDatabaseStep(_ context.Context, state *appState) error {
	if driver := state.config.Storage.Driver; driver != "" && driver != "sqlite" {
		return platformerrors.New(platformerrors.KindConfig, "storage:init-database", "unsupported storage driver: "+driver)
	}
	db, err := platformstorage.Open(state.config.Storage.DSN)
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("Storage", "caption database ready at %s", state.config.Storage.DSN)
	return nil
}

func initVectorStep(ctx context.Context, state *appState) error {
	store, err := vectorstore.New(ctx, vectorConfig(state.config.Vector), vectorstore.Dependencies{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return err
	}
	state.vectors = store
	state.logger.InfoTag("Vector", "index %s ready (driver=%s dim=%d)", state.config.Vector.Index, state.config.Vector.Driver, state.config.Vector.Dimension)
	return nil
}

func vectorConfig(cfg platformconfig.VectorConfig) vectorstore.Config {
	return vectorstore.Config{
		Driver:    cfg.Driver,
		Index:     cfg.Index,
		Dimension: cfg.Dimension,
		Metric:    cfg.Metric,
		Namespace: cfg.Namespace,
		Redis: &vectorstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
		Pinecone: &vectorstore.PineconeConfig{
			APIKey:     cfg.Pinecone.APIKey,
			ControlURL: cfg.Pinecone.ControlURL,
			Host:       cfg.Pinecone.Host,
			Cloud:      cfg.Pinecone.Cloud,
			Region:     cfg.Pinecone.Region,
			Timeout:    30 * time.Second,
			ReadyPoll:  2 * time.Minute,
		},
	}
}

func initLLMStep(ctx context.Context, state *appState) error {
	client, err := llm.New(ctx, state.config.LLM, state.logger)
	if err != nil {
		return err
	}
	state.llm = client
	state.logger.InfoTag("LLM", "%s client ready (text=%s vision=%s)", client.Name(), state.config.LLM.TextModel, state.config.LLM.VisionModel)
	return nil
}

func initCaptionStep(_ context.Context, state *appState) error {
	router, err := caption.FromConfig(state.config.Captioner, state.logger)
	if err != nil {
		return err
	}
	state.captioner = router
	return nil
}

func initArchiveStep(ctx context.Context, state *appState) error {
	store, err := archive.New(ctx, state.config.Archive, state.config.Upload.Dir)
	if err != nil {
		return err
	}
	state.archive = store
	state.logger.InfoTag("Archive", "upload archive driver=%s", store.Driver())
	return nil
}

func initSpeechStep(_ context.Context, state *appState) error {
	state.speech = tts.NewService(tts.NewEdge(os.TempDir()), tts.Options{
		Voice: state.config.TTS.Voice,
	}, state.logger)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New(eventWorkers, eventQueueSize, state.logger)
	handlers := &eventbus.Handlers{
		Captions: platformstorage.NewCaptionRepository(state.db),
		Events:   platformstorage.NewEventRepository(state.db),
		Archive:  state.archive,
		Logger:   state.logger,
		Timeout:  eventTimeout,
	}
	if err := handlers.Register(bus); err != nil {
		return err
	}
	bus.Start()
	state.bus = bus
	return nil
}

func buildRouterStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	var tokens *auth.Tokens
	if cfg.Auth.Enabled {
		t, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.AdminToken, cfg.Auth.TokenTTL)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "http:build-router", "failed to configure auth", err)
		}
		tokens = t
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:         cfg,
		Logger:         logger,
		AuthMiddleware: httpwebapi.AuthMiddleware(tokens, logger),
	})
	if err != nil {
		return err
	}

	router.Engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api Not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Security: &cfg.Security,
		Logger:   logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "http:init-image-pipeline", "failed to create image pipeline", err)
	}

	analyzer, err := analysis.NewService(analysis.Options{
		Captioner: state.captioner,
		LLM:       state.llm,
		Vectors:   state.vectors,
		Events:    state.bus,
		Logger:    logger,
		Dimension: cfg.Vector.Dimension,
	})
	if err != nil {
		return err
	}

	captionService, err := httpcaption.NewService(cfg, logger, pipeline, analyzer)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "caption:new-service", "failed to create caption service", err)
	}
	analysisService, err := httpanalysis.NewService(cfg, logger, pipeline, analyzer, state.speech)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "analysis:new-service", "failed to create analysis service", err)
	}

	db := state.db
	vectors := state.vectors
	webapiService, err := httpwebapi.NewService(httpwebapi.Options{
		History: platformstorage.NewCaptionRepository(db),
		Events:  platformstorage.NewEventRepository(db),
		Tokens:  tokens,
		Probes: map[string]httpwebapi.Probe{
			"storage": func(ctx context.Context) (any, error) {
				return nil, platformstorage.Ping(ctx, db)
			},
			"vector": func(ctx context.Context) (any, error) {
				return vectors.Stats(ctx)
			},
		},
		Logger: logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	captionService.Register(router.Root, router.API)
	analysisService.Register(router.Root)
	webapiService.Register(router.Root, router.API, router.Secured)

	state.router = router
	return nil
}

func startHTTPServer(
	config *platformconfig.Config,
	logger *platformlogging.Logger,
	handler http.Handler,
	g *errgroup.Group,
	groupCtx context.Context,
) *http.Server {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.Server.ReadTimeout,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", httpServer.Addr)
		logger.InfoTag("HTTP", "API docs at http://%s/docs", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(config.Server.ShutdownTimeout))
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "graceful shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer
}

// waitForShutdown returns once a signal arrives or a server exits, then
// drains the group within timeout.
func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	timeout time.Duration,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.InfoTag(bootTag, "received %v, cleaning up", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.WarnTag(bootTag, "service exited: %v", context.Cause(groupCtx))
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(bootTag, "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag(bootTag, "all services stopped")
	case <-time.After(shutdownTimeout(timeout) + 5*time.Second):
		logger.ErrorTag(bootTag, "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// close releases whatever the init steps created, newest first.
func (s *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(0))
	defer cancel()

	warn := func(component string, err error) {
		if err != nil && s.logger != nil {
			s.logger.WarnTag(bootTag, "%s did not close cleanly: %v", component, err)
		}
	}

	if s.bus != nil {
		warn("event bus", s.bus.Stop(ctx))
	}
	if s.llm != nil {
		warn("llm client", s.llm.Close())
	}
	if s.vectors != nil {
		warn("vector store", s.vectors.Close(ctx))
	}
	if s.db != nil {
		warn("database", platformstorage.Close(s.db))
	}
	if s.observabilityShutdown != nil {
		warn("observability", s.observabilityShutdown(ctx))
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
