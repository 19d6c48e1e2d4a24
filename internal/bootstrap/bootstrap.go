package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "medscan-server-go/docs"
	domainanalysis "medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/domain/analysis/store"
	"medscan-server-go/internal/domain/eventbus"
	"medscan-server-go/internal/domain/eventbus/infrastructure"
	"medscan-server-go/internal/domain/eventbus/repository"
	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/domain/scan"
	platformconfig "medscan-server-go/internal/platform/config"
	platformerrors "medscan-server-go/internal/platform/errors"
	platformlogging "medscan-server-go/internal/platform/logging"
	platformobservability "medscan-server-go/internal/platform/observability"
	platformstorage "medscan-server-go/internal/platform/storage"
	httptransport "medscan-server-go/internal/transport/http"
	httpanalysis "medscan-server-go/internal/transport/http/analysis"
	"medscan-server-go/internal/transport/ws"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	auditRetention         = 7 * 24 * time.Hour
)

// Options tune Run. A non-nil Config skips file loading.
type Options struct {
	ConfigPath string
	Version    string
	Config     *platformconfig.Config
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
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	metrics               *platformobservability.Metrics
	results               domainanalysis.Store
	storeDriver           string
	auditDB               *gorm.DB
	ownsAuditDB           bool
	audit                 repository.EventRepository
	bus                   *eventbus.Bus
	analyses              *domainanalysis.Service
	startedAt             time.Time
}

// Run loads configuration, wires the analysis pipeline and serves HTTP until
// ctx ends or SIGINT/SIGTERM arrives.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts, startedAt: time.Now()}

	steps := InitGraph()
	err := executeInitSteps(ctx, steps, state)
	defer state.close()
	if err != nil {
		return err
	}
	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	router, feed, err := buildHTTP(groupCtx, state)
	if err != nil {
		cancel()
		return err
	}

	cleanup := platformconfig.Duration(state.config.Store.Cleanup, 5*time.Minute)
	group.Go(func() error {
		store.RunCleanup(groupCtx, state.results, cleanup)
		return nil
	})
	if state.audit != nil {
		group.Go(func() error {
			pruneAudit(groupCtx, state.audit, logger, cleanup)
			return nil
		})
	}

	if err := startHTTPServer(state, router, feed, group, groupCtx); err != nil {
		cancel()
		return err
	}

	logger.InfoTag(platformlogging.TagBootstrap, "service started")
	return waitForShutdown(signalCtx, groupCtx, cancel, state, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	logger.InfoTag(platformlogging.TagBootstrap, "init graph overview")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ",")
		}
		logger.InfoTag(platformlogging.TagBootstrap, "%s (%s) after %s", step.ID, step.Title, deps)
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

// InitGraph lists the startup steps in execution order.
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
			ID:        "store:init-results",
			Title:     "Open result store",
			DependsOn: []string{"observability:setup-hooks"},
			Kind:      platformerrors.KindStorage,
			Execute:   initResultStoreStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Start event bus",
			DependsOn: []string{"store:init-results"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "analysis:init-service",
			Title:     "Wire analysis pipeline",
			DependsOn: []string{"store:init-results", "events:init-bus"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAnalysisStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	if state.opts.Config != nil {
		state.config = state.opts.Config
		state.configPath = "inline"
		return nil
	}

	loader := platformconfig.NewLoader().WithDotEnv(true)
	if state.opts.ConfigPath != "" {
		loader = loader.WithPath(state.opts.ConfigPath)
	}
	res, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configPath = res.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
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

	logger.InfoTag(platformlogging.TagBootstrap, "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
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
		Enabled: state.config.Observability.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
		Metrics: state.config.Observability.Metrics,
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown

	if cfg.Metrics {
		state.metrics = platformobservability.NewMetrics()
	}
	return nil
}

func initResultStoreStep(ctx context.Context, state *appState) error {
	results, err := store.New(ctx, state.config.Store, state.metrics, state.logger)
	if err != nil {
		return err
	}
	state.results = results
	if inst, ok := results.(*store.Instrumented); ok {
		state.storeDriver = inst.Driver()
	}
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	cfg := state.config
	state.bus = eventbus.New(cfg.Events.Workers, cfg.Events.QueueSize, state.logger)

	if cfg.Store.AuditEvents {
		db, owned, err := auditDatabase(state)
		if err != nil {
			return err
		}
		state.auditDB, state.ownsAuditDB = db, owned
		state.audit = infrastructure.NewEventRepository(db)
	}

	if err := eventbus.SetupEventHandlers(state.bus, eventbus.Handlers{
		Logger: state.logger,
		Audit:  state.audit,
	}); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "subscribe handlers", err)
	}
	state.bus.Start()
	return nil
}

// auditDatabase shares the result store's database when it is sqlite and
// opens the configured DSN otherwise.
func auditDatabase(state *appState) (*gorm.DB, bool, error) {
	if inst, ok := state.results.(*store.Instrumented); ok {
		if sq, ok := inst.Unwrap().(*store.SQLiteStore); ok {
			return sq.DB(), false, nil
		}
	}
	db, err := platformstorage.Open(state.config.Store.SQLite.DSN)
	if err != nil {
		return nil, false, err
	}
	return db, true, nil
}

func initAnalysisStep(_ context.Context, state *appState) error {
	cfg := state.config
	state.analyses = domainanalysis.NewService(domainanalysis.Options{
		Loader:         image.NewLoader(cfg.Decode, state.logger),
		Analyzer:       scan.NewAnalyzer(cfg.Analysis.Thresholds),
		Random:         scan.RandomFromSeed(cfg.Analysis.Seed),
		Store:          state.results,
		Publisher:      state.bus,
		Metrics:        state.metrics,
		Logger:         state.logger,
		MaxConcurrency: cfg.Analysis.MaxConcurrency,
	})
	if cfg.Analysis.Seed != 0 {
		state.logger.WarnTag(platformlogging.TagAnalysis, "fixed random seed %d, reports are reproducible", cfg.Analysis.Seed)
	}
	return nil
}

// buildHTTP assembles the gin engine with every route.
func buildHTTP(ctx context.Context, state *appState) (*httptransport.Router, *ws.Feed, error) {
	router, err := httptransport.Build(httptransport.Options{
		Config:  state.config,
		Logger:  state.logger,
		Metrics: state.metrics,
	})
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build", "failed to build router", err)
	}

	version := state.opts.Version
	if version == "" {
		version = "dev"
	}
	httptransport.RegisterSystemRoutes(router, httptransport.SystemOptions{
		Version:   version,
		StoreName: state.storeDriver,
		StartedAt: state.startedAt,
		Metrics:   state.metrics,
		Docs:      true,
		Logger:    state.logger,
	})

	analyses, err := httpanalysis.NewService(state.analyses, state.audit, state.logger)
	if err != nil {
		return nil, nil, err
	}
	feed, err := ws.NewFeed(ctx, state.bus, state.logger)
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "ws:new-feed", "failed to subscribe live feed", err)
	}
	if err := feed.Register(ctx, router.API); err != nil {
		return nil, nil, err
	}
	if err := analyses.Register(ctx, router.API); err != nil {
		return nil, nil, err
	}
	return router, feed, nil
}

func startHTTPServer(state *appState, router *httptransport.Router, feed *ws.Feed, g *errgroup.Group, groupCtx context.Context) error {
	cfg := state.config
	logger := state.logger
	addr := net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "failed to listen on "+addr, err)
	}

	httpServer := &http.Server{
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	shutdownTimeout := platformconfig.Duration(cfg.Server.ShutdownTimeout, defaultShutdownTimeout)

	g.Go(func() error {
		logger.InfoTag(platformlogging.TagHTTP, "listening on http://%s", listener.Addr())
		logger.InfoTag(platformlogging.TagHTTP, "api docs at http://%s/docs", listener.Addr())

		go func() {
			<-groupCtx.Done()
			feed.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag(platformlogging.TagHTTP, "http shutdown failed: %v", err)
			} else {
				logger.InfoTag(platformlogging.TagHTTP, "http server stopped")
			}
		}()

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag(platformlogging.TagHTTP, "http server failed: %v", err)
			return err
		}
		return nil
	})
	return nil
}

func waitForShutdown(ctx, groupCtx context.Context, cancel context.CancelFunc, state *appState, g *errgroup.Group) error {
	logger := state.logger
	select {
	case <-ctx.Done():
	case <-groupCtx.Done():
	}
	if ctx.Err() != nil {
		logger.InfoTag(platformlogging.TagBootstrap, "shutting down: %v", context.Cause(ctx))
	} else {
		logger.WarnTag(platformlogging.TagBootstrap, "a service stopped, shutting down: %v", context.Cause(groupCtx))
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	timeout := platformconfig.Duration(state.config.Server.ShutdownTimeout, defaultShutdownTimeout) + 5*time.Second
	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(platformlogging.TagBootstrap, "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag(platformlogging.TagBootstrap, "all services stopped")
	case <-time.After(timeout):
		logger.ErrorTag(platformlogging.TagBootstrap, "shutdown timed out after %s", timeout)
		return platformerrors.New(platformerrors.KindBootstrap, "shutdown", "timed out")
	}
	return nil
}

func pruneAudit(ctx context.Context, audit repository.EventRepository, logger *platformlogging.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := audit.DeleteOldEvents(ctx, now.Add(-auditRetention))
			if err != nil {
				logger.WarnTag(platformlogging.TagEvents, "prune audit log: %v", err)
			} else if n > 0 {
				logger.DebugTag(platformlogging.TagEvents, "pruned %d audit events", n)
			}
		}
	}
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.ownsAuditDB {
		if err := platformstorage.Close(s.auditDB); err != nil {
			s.logger.WarnTag(platformlogging.TagStore, "close audit database: %v", err)
		}
	}
	if s.results != nil {
		if err := s.results.Close(); err != nil {
			s.logger.WarnTag(platformlogging.TagStore, "close result store: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.observabilityShutdown(shutdownCtx); err != nil {
			s.logger.WarnTag(platformlogging.TagObs, "observability shutdown: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
