package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"parking-status-backend/config"
	"parking-status-backend/internal/api"
	"parking-status-backend/internal/cache"
	"parking-status-backend/internal/db"
	"parking-status-backend/internal/extract"
	"parking-status-backend/internal/notification"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
	"parking-status-backend/internal/scheduler"
	"parking-status-backend/internal/scraper"
	"parking-status-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	// A .env file is optional; environment variables win either way.
	if err := godotenv.Load(); err == nil {
		logger.Println(".env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence and push notifications are optional; without a DSN the
	// service runs purely from the in-memory cache.
	var appStore store.Store
	var pool *notification.WorkerPool
	var webpushOptions *webpush.Options
	if cfg.Database.DSN != "" {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			logger.Fatalf("failed to initialize database: %v", err)
		}
		appStore = store.NewGormStore(gormDB)
		logger.Println("data store initialized")

		if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
			webpushOptions = &webpush.Options{
				VAPIDPublicKey:  cfg.Push.PublicKey,
				VAPIDPrivateKey: cfg.Push.PrivateKey,
				Subscriber:      cfg.Push.Subject,
				TTL:             cfg.Push.TTL,
			}
			poolSize := cfg.WorkerPool.Size
			if poolSize <= 0 {
				poolSize = 4
			}
			pool = notification.NewWorkerPool(poolSize, gormDB, webpushOptions)
			pool.Start(ctx)
			logger.Printf("notification worker pool started with %d workers", poolSize)
		} else {
			logger.Println("VAPID keys not configured, push notifications disabled")
		}
	} else {
		logger.Println("no database DSN configured, running without persistence")
	}

	// Scrape cache plus a periodic sweep of expired entries.
	scrapeCache := cache.New()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := scrapeCache.Cleanup(); n > 0 {
					logger.Printf("cache sweep removed %d expired entries", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	page := renderer.NewChrome(cfg.Scraper.IsHeadless(), cfg.Scraper.ChromeBin)
	chain := extract.NewChain(&cfg.Scraper)
	orchestrator := scraper.NewService(cfg, scrapeCache, page, chain, appStore, pool)
	spots := parking.NewService(orchestrator)

	var sched *scheduler.Scheduler
	if cfg.Scraper.Enabled {
		sched = scheduler.New(orchestrator, cfg.Scraper.Interval)
		if err := sched.Start(); err != nil {
			logger.Fatalf("failed to start scheduler: %v", err)
		}
	} else {
		logger.Println("scheduler disabled, scraping on demand only")
	}

	handler := api.NewHandler(spots, orchestrator, sched, appStore, webpushOptions, cfg.Query)
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	if sched != nil {
		sched.Stop()
	}
	if err := orchestrator.Cleanup(); err != nil {
		logger.Printf("browser cleanup: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
