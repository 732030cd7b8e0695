package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/adapter/solverpresenter"
	appcfg "github.com/park285/chess-gif-solver/internal/config"
	"github.com/park285/chess-gif-solver/internal/obslog"
	"github.com/park285/chess-gif-solver/internal/solverbuilder"
	"github.com/park285/chess-gif-solver/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// The terminal belongs to the editor, so logs only go to the file.
	opt := obslog.OptionsFromEnv()
	opt.Console = false
	opt.ToFile = true
	logger, err := obslog.New(opt)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	deps, err := solverbuilder.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close backends", zap.Error(err))
		}
	}()

	editor := tui.New(deps.Service, solverpresenter.NewFormatter(deps.Messages), tui.WithLogger(logger.Named("tui")))
	return editor.Run()
}
