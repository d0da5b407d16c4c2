package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lights-api/internal/config"
	"lights-api/internal/domain"
	"lights-api/internal/handler"
	"lights-api/internal/homeassistant"
	"lights-api/internal/logger"
	"lights-api/internal/logstore"
	"lights-api/internal/service"
	"lights-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info("Starting Lights API", map[string]interface{}{
		"version":   "1.0.0",
		"log_level": cfg.LogLevel,
		"port":      cfg.ServerPort,
	})

	if cfg.AccessToken == "" {
		appLogger.Warn("HA_ACCESS_TOKEN not set; light control endpoints will fail until configured", nil)
	}

	store, err := storage.NewStore(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create rate limit store", err, nil)
		os.Exit(1)
	}
	defer store.Close()

	// The store exposes Sweep explicitly; the schedule lives here.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweeper(sweepCtx, store, time.Duration(cfg.SweepInterval)*time.Second, appLogger)

	controller := homeassistant.NewClient(cfg.BaseURL, cfg.AccessToken, appLogger)
	lightsService := service.NewLights(controller, cfg.AccessToken, cfg.EntityID, appLogger)
	activityLog := logstore.NewFileStore(cfg.LogFilePath, appLogger)

	handlers := handler.NewHandlers(lightsService, activityLog, store, handler.RateLimits{
		ToggleLimit: cfg.ToggleRateLimit,
		LogLimit:    cfg.LogRateLimit,
		Window:      time.Duration(cfg.RateWindow) * time.Second,
	}, appLogger)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	handlers.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", map[string]interface{}{
			"addr": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", err, nil)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	appLogger.Info("Lights API is running", map[string]interface{}{
		"port": cfg.ServerPort,
		"endpoints": []string{
			"GET  /health",
			"GET  /metrics",
			"POST /lights       (rate limited)",
			"GET  /lights",
			"POST /lights/log   (rate limited)",
			"GET  /lights/log",
		},
		"rate_limits": map[string]interface{}{
			"toggle":         cfg.ToggleRateLimit,
			"log":            cfg.LogRateLimit,
			"window_seconds": cfg.RateWindow,
		},
	})

	<-quit
	appLogger.Info("Shutting down server...", nil)
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err, nil)
		os.Exit(1)
	}

	appLogger.Info("Server stopped gracefully", nil)
}

// runSweeper calls Sweep on the store every interval until ctx ends.
func runSweeper(ctx context.Context, store domain.RateLimitStore, interval time.Duration, log domain.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.Sweep(ctx); err != nil {
				log.Error("Rate limit store sweep failed", err, nil)
			}
		}
	}
}
