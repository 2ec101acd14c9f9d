package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rajasatyajit/incidentwatch/config"
	"github.com/rajasatyajit/incidentwatch/internal/api"
	"github.com/rajasatyajit/incidentwatch/internal/database"
	"github.com/rajasatyajit/incidentwatch/internal/events"
	"github.com/rajasatyajit/incidentwatch/internal/feed"
	"github.com/rajasatyajit/incidentwatch/internal/lifecycle"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/metrics"
	middlewares "github.com/rajasatyajit/incidentwatch/internal/middleware"
	"github.com/rajasatyajit/incidentwatch/internal/ratelimit"
	"github.com/rajasatyajit/incidentwatch/internal/relevance"
	"github.com/rajasatyajit/incidentwatch/internal/riskwindow"
	"github.com/rajasatyajit/incidentwatch/internal/store"
	"github.com/rajasatyajit/incidentwatch/internal/verification"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting incidentwatch",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	reportStore, err := newStore(ctx, db, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize store", "error", err)
	}

	checks := map[string]api.HealthChecker{"store": reportStore}
	deps := api.Deps{
		Classifier: relevance.Default(),
		Policy:     riskwindow.Default(),
		Checks:     checks,
	}
	var publisher events.Publisher = events.NopPublisher{}

	// Redis backs the broadcast queue and the vote throttle
	if cfg.Redis.URL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		limiter := ratelimit.NewManager(rdb)
		defer limiter.Close()

		rp := events.NewRedisPublisher(rdb, cfg.Events.ListKey, cfg.Events.MaxLen)
		publisher = rp
		deps.Events = rp
		deps.Throttle = limiter
		checks["redis"] = api.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	} else {
		logger.Warn("REDIS_URL not set; broadcast events are dropped and votes are not throttled")
	}

	reports := lifecycle.NewService(reportStore,
		lifecycle.WithPublisher(publisher),
		lifecycle.WithBulkLimit(cfg.Engine.BulkLimit),
	)
	deps.Reports = reports
	deps.Gate = verification.NewGate(reports, cfg.Engine.ProximityRadiusKm)

	// Initialize feed client
	feedClient := feed.NewClient(feed.Config{
		BaseURL:   cfg.Feed.BaseURL,
		Country:   cfg.Feed.Country,
		UserAgent: cfg.Feed.UserAgent,
		RateLimit: cfg.Feed.RateLimit,
		Timeout:   cfg.Feed.Timeout,
	}, feed.WithPolicy(deps.Policy), feed.WithClassifier(deps.Classifier))
	deps.Feed = feedClient

	if cfg.Feed.Areas != "" {
		targets, err := feed.ParseTargets(cfg.Feed.Areas)
		if err != nil {
			logger.Fatal("Invalid FEED_AREAS", "error", err)
		}
		poller := feed.NewPoller(feed.NewScanner(feedClient, cfg.Feed.Workers), targets, cfg.Feed.PollInterval, cfg.Feed.RetryDelay)
		deps.Poller = poller

		// Start poller in background
		go func() {
			if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Feed poller error", "error", err)
			}
		}()
	}

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(middlewares.ParseOrigins(cfg.Server.CORSOrigins)))

	// Initialize API handlers
	apiHandler := api.NewHandler(deps, api.Options{
		AdminSecret:    cfg.Admin.AdminSecret,
		VotesPerMinute: cfg.Engine.VotesPerMinute,
		Version:        Version,
		BuildTime:      BuildTime,
		GitCommit:      GitCommit,
	})
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// newStore picks postgres when a database is configured and applies the
// schema when asked to
func newStore(ctx context.Context, db *database.DB, cfg config.DatabaseConfig) (store.Store, error) {
	if !db.IsConfigured() {
		return store.NewInMemoryStore(), nil
	}
	pg := store.NewPostgresStore(db, store.WithQueryTimeout(cfg.QueryTimeout))
	if cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Database schema applied")
	}
	return pg, nil
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
