package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/agents"
	"github.com/pankgraph/cypherflow/api"
	"github.com/pankgraph/cypherflow/api/handlers"
	"github.com/pankgraph/cypherflow/config"
	"github.com/pankgraph/cypherflow/internal/cache"
	"github.com/pankgraph/cypherflow/internal/graphapi"
	"github.com/pankgraph/cypherflow/internal/metrics"
	"github.com/pankgraph/cypherflow/internal/server"
	"github.com/pankgraph/cypherflow/internal/store"
	"github.com/pankgraph/cypherflow/internal/telemetry"
	"github.com/pankgraph/cypherflow/llm"
	"github.com/pankgraph/cypherflow/refine"
	"github.com/pankgraph/cypherflow/schema"
	"github.com/pankgraph/cypherflow/validate"
)

// App holds the assembled service and the resources it must release on exit.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager
	otel        *telemetry.Providers
	answerCache *cache.AnswerCache
	runStore    *store.Store
	metricsLog  *refine.MetricsLogger
}

// buildApp wires configuration into the full service graph: schema context,
// validator, refinement controller, sub-agents, planner, cache, store, and
// the HTTP router.
func buildApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		app.otel = otelProviders
	}

	schemaCtx, err := schema.NewLoader(cfg.Schema.Path, cfg.Schema.ValidValuesPath, cfg.Schema.HintsPath, logger).
		Context(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load graph schema: %w", err)
	}

	validator := validate.New(schemaCtx, logger)
	prompts := refine.NewPromptBuilder(schemaCtx, logger)

	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		RequestTimeout:    cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}, logger)

	retryPolicy := llm.DefaultRetryPolicy()
	if cfg.LLM.MaxRetries > 0 {
		retryPolicy.MaxRetries = cfg.LLM.MaxRetries
	}
	generator := llm.NewQueryGenerator(provider, retryPolicy, logger)

	controller := refine.NewController(validator, prompts, generator, refine.Options{
		MaxIterations: cfg.Refinement.MaxIterations,
		AcceptScore:   cfg.Refinement.AcceptScore,
	}, logger)

	if cfg.Refinement.MetricsPath != "" {
		metricsLog, err := refine.NewMetricsLogger(cfg.Refinement.MetricsPath, logger)
		if err != nil {
			logger.Warn("refinement metrics logging disabled", zap.Error(err))
		} else {
			app.metricsLog = metricsLog
		}
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector("cypherflow", registry, logger)

	if dsn := cfg.Database.DSN(); dsn != "" {
		runStore, err := store.Open(store.Config{Driver: cfg.Database.Driver, DSN: dsn}, logger)
		if err != nil {
			logger.Warn("refinement run store disabled", zap.Error(err))
		} else {
			app.runStore = runStore
		}
	}

	graphClient := graphapi.NewClient(graphapi.Config{
		BaseURL: cfg.Graph.BaseURL,
		Timeout: cfg.Graph.Timeout,
	}, logger)

	tracker := agents.NewQueryTracker()

	graphOpts := []agents.GraphQueryOption{agents.WithStatsCollector(collector)}
	if app.runStore != nil {
		graphOpts = append(graphOpts, agents.WithRunRecorder(app.runStore))
	}

	subAgents := []agents.SubAgent{
		agents.NewGraphQueryAgent(controller, graphClient, app.metricsLog, tracker, logger, graphOpts...),
	}
	if cfg.Literature.BaseURL != "" {
		subAgents = append(subAgents, agents.NewLiteratureAgent(agents.LiteratureConfig{
			BaseURL: cfg.Literature.BaseURL,
			Limit:   cfg.Literature.Limit,
			Timeout: cfg.Literature.Timeout,
		}, logger))
	}
	if cfg.Template.BaseURL != "" {
		subAgents = append(subAgents, agents.NewTemplateAgent(agents.TemplateConfig{
			BaseURL: cfg.Template.BaseURL,
			Timeout: cfg.Template.Timeout,
		}, logger))
	}

	dispatcher := agents.NewDispatcher(subAgents, logger)
	formatter := agents.NewFormatAgent(provider, logger)
	planner := agents.NewPlanner(provider, dispatcher, formatter, tracker, agents.PlannerOptions{
		MaxRounds: cfg.Planner.MaxRounds,
	}, logger)

	if cfg.Redis.Enabled {
		answerCache, err := cache.New(cache.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DefaultTTL:   cfg.Redis.AnswerTTL,
		}, logger)
		if err != nil {
			logger.Warn("answer cache disabled", zap.Error(err))
		} else {
			app.answerCache = answerCache
		}
	}

	queryOpts := []handlers.QueryHandlerOption{handlers.WithMetrics(collector)}
	if app.answerCache != nil {
		queryOpts = append(queryOpts, handlers.WithAnswerCache(app.answerCache, cfg.Redis.AnswerTTL))
	}
	queryHandler := handlers.NewQueryHandler(planner, tracker, logger, queryOpts...)

	var checks []handlers.HealthCheck
	if app.answerCache != nil {
		checks = append(checks, handlers.HealthCheckFunc{
			CheckName: "redis",
			Fn:        app.answerCache.Ping,
		})
	}
	healthHandler := handlers.NewHealthHandler(Version, checks, logger)

	var statsHandler *handlers.StatsHandler
	if app.runStore != nil {
		statsHandler = handlers.NewStatsHandler(app.runStore, logger)
	}

	router := api.NewRouter(api.RouterConfig{
		Query:       queryHandler,
		Health:      healthHandler,
		Stats:       statsHandler,
		Metrics:     collector,
		Registry:    registry,
		AuthEnabled: cfg.Server.AuthEnabled,
		JWTSecret:   cfg.Server.JWTSecret,
		Logger:      logger,
	})

	app.httpManager = server.NewManager(router, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return app, nil
}

// Start begins serving HTTP traffic.
func (a *App) Start() error {
	if err := a.httpManager.Start(); err != nil {
		return err
	}
	a.logger.Info("cypherflow ready", zap.String("addr", a.httpManager.Addr()))
	return nil
}

// WaitForShutdown blocks until a shutdown signal or fatal server error.
func (a *App) WaitForShutdown() {
	a.httpManager.WaitForShutdown()
}

// Close releases caches, stores, metrics sinks, and telemetry exporters.
func (a *App) Close() {
	if a.metricsLog != nil {
		if err := a.metricsLog.Close(); err != nil {
			a.logger.Warn("closing refinement metrics log", zap.Error(err))
		}
	}
	if a.answerCache != nil {
		if err := a.answerCache.Close(); err != nil {
			a.logger.Warn("closing answer cache", zap.Error(err))
		}
	}
	if a.runStore != nil {
		if err := a.runStore.Close(); err != nil {
			a.logger.Warn("closing run store", zap.Error(err))
		}
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}
