package solverbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	corechess "github.com/park285/chess-gif-solver/internal/chess"
	"github.com/park285/chess-gif-solver/internal/config"
	"github.com/park285/chess-gif-solver/internal/msgcat"
	"github.com/park285/chess-gif-solver/internal/render"
	"github.com/park285/chess-gif-solver/internal/service/cache"
	"github.com/park285/chess-gif-solver/internal/service/solver"
)

const cachePrefix = "gifsolver:"

type Deps struct {
	Service  *solver.Service
	Engine   *corechess.Engine
	Renderer *render.Renderer
	Messages *msgcat.Catalog
	Cache    *cache.CacheService
	Repo     solver.Repository

	closers []func() error
}

// New wires the solver from config. Redis and a history store are optional:
// DATABASE_URL selects Postgres, otherwise STORE_DIR selects badger, otherwise history
// lives in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.EnginePath) == "" {
		return nil, fmt.Errorf("ENGINE_PATH is required for the engine")
	}

	deps := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = deps.Close()
		return nil, err
	}

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fail(fmt.Errorf("load messages: %w", err))
	}
	deps.Messages = messages

	engine, err := corechess.NewEngine(corechess.Config{
		BinaryPath: cfg.EnginePath,
		Args:       cfg.EngineArgs,
		Threads:    cfg.EngineThreads,
		HashMB:     cfg.EngineHashMB,
		StopGrace:  cfg.StopGrace(),
	}, corechess.WithLogger(logger.Named("engine")), corechess.WithMessages(messages))
	if err != nil {
		return fail(fmt.Errorf("init engine: %w", err))
	}
	deps.Engine = engine

	ropts := []render.Option{
		render.WithFrameDelay(cfg.FrameDelay()),
		render.WithMoveHighlight(cfg.FrameHighlight),
		render.WithLogger(logger.Named("render")),
	}
	if dir := strings.TrimSpace(cfg.PieceAssetDir); dir != "" {
		pieces, err := render.NewPNGDirPieces(dir)
		if err != nil {
			return fail(fmt.Errorf("piece assets: %w", err))
		}
		ropts = append(ropts, render.WithPieces(pieces))
	}
	deps.Renderer = render.New(ropts...)

	var solveCache solver.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		c, err := cache.NewFromURL(cctx, cfg.RedisURL, cachePrefix, logger.Named("cache"))
		cancel()
		if err != nil {
			return fail(fmt.Errorf("init cache: %w", err))
		}
		deps.Cache = c
		deps.closers = append(deps.closers, c.Close)
		solveCache = c
	}

	repo, err := deps.openRepository(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	deps.Repo = repo

	svc, err := solver.NewService(engine, deps.Renderer, repo, solveCache, solver.Config{
		DefaultBudget: cfg.SearchBudget(),
		CacheTTL:      cfg.CacheTTL(),
		HistoryLimit:  cfg.HistoryLimit,
		OutputDir:     cfg.OutputDir,
	}, logger.Named("solver"))
	if err != nil {
		return fail(err)
	}
	deps.Service = svc
	return deps, nil
}

func (d *Deps) openRepository(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (solver.Repository, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.closers = append(d.closers, db.Close)

		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := solver.EnsureSchema(pctx, db); err != nil {
			return nil, err
		}
		logger.Info("solve history: postgres")
		return solver.NewRepository(db), nil
	}
	if dir := strings.TrimSpace(cfg.StoreDir); dir != "" {
		repo, err := solver.OpenBadgerRepository(dir)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, repo.Close)
		logger.Info("solve history: badger", zap.String("dir", dir))
		return repo, nil
	}
	logger.Info("solve history: memory")
	return solver.NewMemoryRepository(), nil
}

// Close releases every opened backend, newest first.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
