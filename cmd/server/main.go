package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/depop-scraper/internal/api"
	"github.com/maltedev/depop-scraper/internal/config"
	"github.com/maltedev/depop-scraper/internal/database"
	"github.com/maltedev/depop-scraper/internal/events"
	"github.com/maltedev/depop-scraper/internal/exporter"
	"github.com/maltedev/depop-scraper/internal/jobs"
	"github.com/maltedev/depop-scraper/internal/metrics"
	"github.com/maltedev/depop-scraper/internal/scraper"
	"github.com/maltedev/depop-scraper/internal/sheets"
	"github.com/maltedev/depop-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logg.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logg.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logg.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var publisher *events.Publisher
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logg.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		publisher = events.NewPublisher(redisClient, cfg.Redis.Stream, logg)
	}

	m := metrics.New()

	var sink *sheets.Sink
	if cfg.Sheets.Enabled {
		sink, err = sheets.New(ctx, cfg.Sheets, logg, m)
		if err != nil {
			logg.Error("failed to create sheets sink", "error", err)
			os.Exit(1)
		}
	}

	service := scraper.NewService(cfg, logg, m)
	exp := exporter.New(cfg.Scraper.OutputDir, logg)

	manager, err := jobs.NewManager(db, service, publisher, sink, exp, cfg, logg)
	if err != nil {
		logg.Error("failed to create job manager", "error", err)
		os.Exit(1)
	}

	worker := jobs.NewWorker(db, manager, 5*time.Second, logg)
	go worker.Run(ctx)

	handlers := api.NewHandlers(manager, logg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers.Routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logg.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error("server shutdown failed", "error", err)
		}
	}()

	logg.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error("server failed", "error", err)
		os.Exit(1)
	}

	logg.Info("server stopped")
}
