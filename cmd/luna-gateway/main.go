package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pixaverse-studios/luna-gateway/internal/config"
	"github.com/pixaverse-studios/luna-gateway/internal/httpapi"
	"github.com/pixaverse-studios/luna-gateway/internal/observability"
	"github.com/pixaverse-studios/luna-gateway/internal/telephony"
	"github.com/pixaverse-studios/luna-gateway/internal/upstream"
)

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger, metrics)

	var dialer telephony.Dialer
	if strings.TrimSpace(cfg.Plivo.AuthID) != "" || strings.TrimSpace(cfg.Plivo.AuthToken) != "" {
		dialer, err = telephony.NewPlivoDialer(cfg.Plivo.AuthID, cfg.Plivo.AuthToken)
		if err != nil {
			logger.Fatalw("telephony provider init failed", "error", err)
		}
		logger.Infow("outbound calling enabled", "auth_id", cfg.Plivo.AuthID)
	} else {
		logger.Warnw("outbound calling disabled, no telephony credentials configured")
	}

	api := httpapi.New(cfg, logger, client, dialer, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr(),
		Handler: api.Router(),
	}

	go func() {
		logger.Infow("server listening",
			"addr", cfg.BindAddr(),
			"backend", cfg.Upstream.BaseURL,
			"stream_url", cfg.Upstream.StreamURL,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("listen error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Infow("shutdown complete")
}
