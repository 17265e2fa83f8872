package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/floatchat/config"
	"github.com/mohammad-safakhou/floatchat/internal/acquisition"
	"github.com/mohammad-safakhou/floatchat/internal/session"
	"github.com/mohammad-safakhou/floatchat/internal/snapshot"
	"github.com/mohammad-safakhou/floatchat/internal/telemetry"
	"github.com/mohammad-safakhou/floatchat/provider"
	"github.com/mohammad-safakhou/floatchat/repository"
)

// NewSession wires storage, the query client and acquisition into a session
// controller. Storage that cannot be reached is logged and the session runs
// without a cache.
func NewSession(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*session.Controller, error) {
	storeLogger := log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	var store snapshot.Storage
	kv, err := repository.NewKVStore(ctx, cfg.Storage)
	switch {
	case err != nil:
		storeLogger.Printf("snapshot storage unavailable, continuing without cache: %v", err)
	case kv != nil:
		store = kv
	}
	cache := snapshot.New(store, cfg.Storage.SnapshotKey, nil)

	client, err := provider.NewQueryClient(provider.FloatAPI, cfg.Backend)
	if err != nil {
		return nil, err
	}
	acq := acquisition.New(client, cache, acquisition.Options{
		MaxAttempts: cfg.Acquisition.MaxAttempts,
		BaseBackoff: cfg.Acquisition.BaseBackoff,
		Metrics:     metrics,
	})
	return session.New(acq, session.Options{
		InitialQuery:    cfg.Acquisition.InitialQuery,
		ExpertThreshold: cfg.Session.ExpertThreshold,
		RecentQueries:   cfg.Session.RecentQueries,
		Metrics:         metrics,
	}), nil
}

// NewEcho builds the HTTP surface over sess. metrics may be nil, in which
// case /metrics is not served.
func NewEcho(cfg config.ServerConfig, sess *session.Controller, metrics *telemetry.Metrics) *echo.Echo {
	cfg = cfg.Normalize()
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	api := e.Group("/api")
	sh := &SessionHandler{Session: sess}
	sh.Register(api.Group("/session"))
	api.POST("/estimate", estimate)
	return e
}

// Run serves the API until ctx is cancelled. The initial acquisition runs in
// the background so the API answers with a pending status meanwhile.
func Run(ctx context.Context, cfg *config.Config) error {
	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.NewMetrics(cfg.Telemetry.Namespace)
	}
	sess, err := NewSession(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	e := NewEcho(cfg.Server, sess, metrics)

	go sess.Bootstrap(ctx)

	if cfg.Acquisition.RefreshCron != "" {
		refresher, err := NewRefresher(cfg.Acquisition.RefreshCron, sess, nil)
		if err != nil {
			return err
		}
		refresher.Start(ctx)
	}

	addr := cfg.Server.Normalize().Address
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}
