package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/api"
	"github.com/irfndi/foresight-go/internal/api/handlers"
	"github.com/irfndi/foresight-go/internal/cache"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/database"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/middleware"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// application holds the wired service and the resources it must release.
type application struct {
	router  *gin.Engine
	manager *session.Manager
	janitor *session.Janitor
	closers []func()
}

// newApplication connects the optional stores, loads the catalog and wires the
// pipeline behind the HTTP routes.
func newApplication(ctx context.Context, cfg *config.Config, logger *logrus.Logger, events *logging.EventLogger,
	reg prometheus.Registerer, tp trace.TracerProvider) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	version := cfg.Telemetry.ServiceVersion
	health := handlers.NewHealthHandler(version)

	var repo catalog.Repository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		repo = database.NewCatalogRepository(database.NewTracedPoolWithProvider(db.Pool, tp))
		health.AddCheck("database", db)
	}

	cat, err := catalog.Load(ctx, cfg.Catalog, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"sources": cat.Sources.Len(),
		"periods": cat.Periods.Len(),
		"from_db": repo != nil,
	}).Info("Catalog loaded")

	var snapshots *cache.RedisSnapshotCache
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, redisClient.Close)
		snapshots = cache.NewRedisSnapshotCache(redisClient.Client, cfg.Session.SessionTTL(), logger)
		health.AddCheck("redis", redisClient)
	}

	dataClient := datasource.NewClient(&cfg.DataAPI, logger)
	health.AddCheck("data_api", dataClient)

	var fetcher datasource.Fetcher = dataClient
	var breaker *datasource.Breaker
	if cfg.DataAPI.BreakerFailures > 0 {
		breaker = datasource.NewBreaker(dataClient, datasource.BreakerConfig{
			FailureThreshold: cfg.DataAPI.BreakerFailures,
			Cooldown:         cfg.DataAPI.Cooldown(),
		}, logger)
		fetcher = breaker
	}

	registry, err := forecast.NewRegistry(forecast.OptionsFromConfig(cfg.Forecast))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecasters: %w", err)
	}
	forecaster, err := registry.Get(cfg.Forecast.Method)
	if err != nil {
		return nil, err
	}

	engine := pipeline.NewEngine(fetcher, forecaster, cat.Adapter,
		pipeline.WithLookbackMonths(cfg.Forecast.LookbackMonths),
		pipeline.WithTracerProvider(tp),
		pipeline.WithMetrics(collector),
		pipeline.WithLogger(logger),
	)

	managerOpts := []session.ManagerOption{
		session.WithMetrics(collector),
		session.WithLogger(logger),
		session.WithEventLogger(events),
	}
	if snapshots != nil {
		managerOpts = append(managerOpts, session.WithStore(snapshots))
	}
	app.manager = session.NewManager(engine, cfg.Session, managerOpts...)
	app.janitor = session.NewJanitor(app.manager, cfg.Session.Interval(), logger)

	if cfg.Session.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Session.Secret = secret
		logger.Warn("SESSION_SECRET not set, tokens will not survive a restart")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing(cfg.Telemetry.ServiceName, tp))
	router.Use(collector.GinMiddleware())
	corsHandler, err := middleware.CORS(cfg.Server.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	router.Use(corsHandler)

	api.SetupRoutes(router, api.Dependencies{
		Config:    cfg,
		Catalog:   cat,
		Manager:   app.manager,
		Janitor:   app.janitor,
		Snapshots: snapshots,
		Breaker:   breaker,
		Metrics:   collector,
		Health:    health,
		Logger:    logger,
	})
	app.router = router

	logger.WithFields(logrus.Fields{
		"method":      forecaster.Name(),
		"level":       cfg.Forecast.Level,
		"max_horizon": cfg.Forecast.MaxHorizon,
		"snapshots":   snapshots != nil,
	}).Info("Forecast pipeline ready")
	return app, nil
}

// Close cancels in-flight recomputes and releases stores in reverse order.
func (a *application) Close() {
	if a.manager != nil {
		a.manager.CloseAll()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New("failed to generate session secret")
	}
	return hex.EncodeToString(b), nil
}
