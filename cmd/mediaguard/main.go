// Command mediaguard runs the media integrity service: it serves the
// HTTP API, drives scan/cleanup/file-changes operations through the
// Operation Engine, and fires scheduled operations on a cron loop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	api "mediaguard/internal/apipkg"
	"mediaguard/internal/catalog"
	"mediaguard/internal/config"
	"mediaguard/internal/engine"
	"mediaguard/internal/logger"
	"mediaguard/internal/schedule"
	"mediaguard/internal/writer"
)

func main() {
	cfg := config.Load()
	logger.Configure()
	logger.InitLogBridge()

	store, err := catalog.Open(cfg.DatabasePath())
	if err != nil {
		logger.Fatal("failed to open catalog store: %v", err)
	}
	defer store.Close()

	wr := writer.New(store)
	wr.Start()
	defer wr.Stop()

	eng := engine.New(store, wr, engine.Config{
		WorkerCount:     cfg.WorkerCount,
		ResetBatchSize:  cfg.ResetBatchSize,
		MaxFilesPerScan: cfg.MaxFilesPerScan,
	}, rootsFunc(store, cfg), exclusionsFunc(store), store.ActiveIgnoredPatterns)

	if err := eng.RecoverInterrupted(); err != nil {
		logger.Error("startup recovery failed: %v", err)
	}

	sched := schedule.New(store, eng)
	if err := sched.Reload(); err != nil {
		logger.Error("failed to load schedules: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	router := api.NewRouter()
	router.HandleFunc("/api/v1/status", api.StatusHandler(cfg.AppName, cfg.AppVersion)).Methods(http.MethodGet)

	api.NewCatalogHandlers(store, wr).Mount(router)
	api.NewOperationHandlers(store, eng).Mount(router)
	api.NewAdminHandlers(store, sched).Mount(router)
	api.NewReportHandlers(store).Mount(router)

	limiter := api.NewRateLimiter(cfg.RateLimitRequests)
	handler := limiter.Middleware(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		ErrorLog:     logger.SetHTTPServerErrorLog(),
	}

	go func() {
		logger.Info("mediaguard listening on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error: %v", err)
	}

	logger.Info("mediaguard shutdown complete")
}

// exclusionsFunc adapts Store.ListExclusions' []*Exclusion return into
// the []Exclusion shape engine.ExclusionsFunc expects.
func exclusionsFunc(store *catalog.Store) engine.ExclusionsFunc {
	return func() ([]catalog.Exclusion, error) {
		rows, err := store.ListExclusions()
		if err != nil {
			return nil, err
		}
		out := make([]catalog.Exclusion, len(rows))
		for i, r := range rows {
			out[i] = *r
		}
		return out, nil
	}
}

// rootsFunc reads both the admin-managed scan_configurations table and
// the MEDIAGUARD_SCAN_ROOTS environment fallback, preferring the
// database once at least one root is configured there.
func rootsFunc(store *catalog.Store, cfg *config.Config) engine.RootsFunc {
	return func() ([]string, error) {
		roots, err := store.ActiveRoots()
		if err != nil {
			return nil, err
		}
		if len(roots) > 0 {
			return roots, nil
		}
		return cfg.ScanRoots, nil
	}
}
