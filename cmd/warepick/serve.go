package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warepick/warepick/internal/auth"
	"github.com/warepick/warepick/internal/catalog"
	"github.com/warepick/warepick/internal/coordinator"
	"github.com/warepick/warepick/internal/picklog"
	"github.com/warepick/warepick/internal/reaper"
	"github.com/warepick/warepick/internal/server"
	"github.com/warepick/warepick/internal/storage/sqlite"
	"github.com/warepick/warepick/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := auth.NewManager(cfg.JWTSecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err := auth.EnsureDefaultAdmin(ctx, store, mgr,
		cfg.DefaultAdminUsername, cfg.DefaultAdminPassword, logger); err != nil {
		return err
	}

	// The service runs without a catalog; scanning then only matches
	// request items and product lookups return CATALOG_NOT_LOADED.
	cat := catalog.New(cfg.ProductsFile, logger)
	if err := cat.Load(); err != nil {
		logger.Warn("product catalog unavailable",
			zap.String("path", cfg.ProductsFile), zap.Error(err))
	} else if err := cat.Watch(); err != nil {
		logger.Warn("catalog watch unavailable", zap.Error(err))
	}
	defer cat.Close()

	coord := coordinator.New(store, picklog.NewWriter(cfg.LogDirectory), logger,
		coordinator.Options{AutoModeThreshold: cfg.AutoModeThreshold})

	rp := reaper.New(store, logger, reaper.Options{
		IdleTimeout: cfg.PickTimeout(),
		Retention:   cfg.CleanupRetention(),
		Interval:    cfg.CleanupInterval(),
		Enabled:     cfg.AutoCleanupEnabled,
	})
	rp.Start()
	defer rp.Stop()

	srv := server.New(store, coord, mgr, cat, rp, logger, server.Options{
		CORSOrigins:       cfg.CORSOrigins,
		AutoModeThreshold: cfg.AutoModeThreshold,
		UI:                web.Assets,
	})
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr()),
			zap.String("env", cfg.AppEnv))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
