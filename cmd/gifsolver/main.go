package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/chess-gif-solver/internal/config"
	"github.com/park285/chess-gif-solver/internal/httpapi"
	"github.com/park285/chess-gif-solver/internal/obslog"
	"github.com/park285/chess-gif-solver/internal/solverbuilder"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := solverbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("solver init error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close backends", zap.Error(err))
		}
	}()

	srv := httpapi.New(deps.Service,
		httpapi.WithLogger(logger.Named("http")),
		httpapi.WithEngineName(filepath.Base(deps.Engine.BinaryPath())),
	)
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}
	logger.Info("shutdown complete")
}
