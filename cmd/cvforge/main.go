package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/cvforge/internal/config"
	"github.com/dukerupert/cvforge/internal/database"
	"github.com/dukerupert/cvforge/internal/logging"
	"github.com/dukerupert/cvforge/internal/middleware"
	"github.com/dukerupert/cvforge/internal/server"
	"github.com/dukerupert/cvforge/internal/store"
	"github.com/dukerupert/cvforge/internal/store/rest"
	"github.com/dukerupert/cvforge/internal/store/sqlite"
)

// Unused magic links are kept this long past expiry before cleanup.
const linkRetention = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	var stores store.Stores
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		stores = sqlite.New(db)
	case config.DriverREST:
		stores = rest.New(rest.NewClient(cfg.StoreURL, cfg.StoreAPIKey))
	}

	srv := server.New(cfg, stores, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupLoop(ctx, stores.MagicLinks, srv.RateLimiter(), logger)

	go func() {
		fmt.Printf("CVForge running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// cleanupLoop hourly removes long-expired unused magic links and stale rate
// limiter buckets.
func cleanupLoop(ctx context.Context, links store.MagicLinkStore, limiter *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := links.DeleteExpired(ctx, time.Now().Add(-linkRetention))
			if err != nil {
				logger.Error("magic link cleanup", "error", err)
			} else if n > 0 {
				logger.Info("magic links cleaned up", "deleted", n)
			}
			limiter.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}
