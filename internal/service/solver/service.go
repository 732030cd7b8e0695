// Package solver owns the editable board and turns it into engine lines and animations.
package solver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/chess"
	"github.com/park285/chess-gif-solver/internal/domain"
)

const (
	defaultBudget       = 10 * time.Second
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	cacheKeyPrefix      = "solve:"
)

var (
	ErrSolveInProgress  = errors.New("a solve is already running")
	ErrSolveNotFound    = errors.New("solve not found")
	ErrUnknownShortcut  = errors.New("unknown piece shortcut")
	ErrAnimationMissing = errors.New("solve has no animation")
)

type Engine interface {
	Solve(ctx context.Context, req chess.Request) (chess.Result, error)
}

type Renderer interface {
	EncodeGIF(ctx context.Context, w io.Writer, frames []board.Board, moves []board.Move) error
}

// Cache is optional; a nil Cache disables result reuse.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Config struct {
	DefaultBudget time.Duration
	CacheTTL      time.Duration
	HistoryLimit  int
	// OutputDir, when set, receives <id>.gif for every animation produced.
	OutputDir string
}

// Service is the interactive session: one live board, at most one solve in flight.
type Service struct {
	engine   Engine
	renderer Renderer
	repo     Repository
	cache    Cache
	cfg      Config
	logger   *zap.Logger

	mu          sync.Mutex
	board       board.Board
	lastSummary string
	lastSolveID string

	solving atomic.Bool

	now   func() time.Time
	newID func() string
}

// Outcome describes one finished solve. Invalid positions carry only Summary.
type Outcome struct {
	FEN     string
	Summary string
	Invalid bool
	Cached  bool
	Record  *domain.SolveRecord
	Frames  []board.Board
}

type cachedLine struct {
	Moves    []string `json:"moves"`
	SAN      []string `json:"san"`
	Summary  string   `json:"summary"`
	BestMove string   `json:"best_move"`
	ScoreCP  int      `json:"score_cp"`
	Mate     int      `json:"mate"`
	HasMate  bool     `json:"has_mate"`
	Depth    int      `json:"depth"`
}

func NewService(engine Engine, renderer Renderer, repo Repository, cache Cache, cfg Config, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("solve repository is required")
	}
	if cfg.DefaultBudget <= 0 {
		cfg.DefaultBudget = defaultBudget
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if dir := strings.TrimSpace(cfg.OutputDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:   engine,
		renderer: renderer,
		repo:     repo,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (s *Service) DefaultBudget() time.Duration { return s.cfg.DefaultBudget }

// Busy reports whether a solve is running.
func (s *Service) Busy() bool { return s.solving.Load() }

func (s *Service) Board() board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Snapshot()
}

func (s *Service) Placement() string {
	return board.Placement(s.Board())
}

// LastSummary is the text of the most recent solve, including invalid-position notices.
func (s *Service) LastSummary() (summary, solveID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary, s.lastSolveID
}

func (s *Service) Place(row, col int, p board.Piece) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Place(row, col, p)
}

func (s *Service) Clear(row, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clear(row, col)
}

func (s *Service) ClearAll() {
	s.mu.Lock()
	s.board.ClearAll()
	s.mu.Unlock()
}

func (s *Service) Cycle(row, col int) (board.Piece, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Cycle(row, col)
}

func (s *Service) Recolor(row, col int) (board.Piece, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Recolor(row, col)
}

// PlaceShortcut places the piece bound to key: lowercase letters give White pieces,
// uppercase give Black.
func (s *Service) PlaceShortcut(row, col int, key rune) (board.Piece, error) {
	p, ok := board.ShortcutPiece(key)
	if !ok {
		return board.Empty, fmt.Errorf("%w: %q", ErrUnknownShortcut, key)
	}
	if err := s.Place(row, col, p); err != nil {
		return board.Empty, err
	}
	return p, nil
}

// Load replaces the live board with a placement string.
func (s *Service) Load(placement string) error {
	b, err := board.ParsePlacement(placement)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.board = b
	s.mu.Unlock()
	return nil
}

// Solve snapshots the live board, asks the engine for a line within budget (the
// configured default when budget <= 0), replays it and renders the animation. Edits made
// while the engine runs do not affect the result. A concurrent call fails with
// ErrSolveInProgress.
func (s *Service) Solve(ctx context.Context, budget time.Duration) (Outcome, error) {
	if !s.solving.CompareAndSwap(false, true) {
		return Outcome{}, ErrSolveInProgress
	}
	defer s.solving.Store(false)

	if budget <= 0 {
		budget = s.cfg.DefaultBudget
	}
	snapshot := s.Board()
	fen := board.Encode(snapshot)
	out := Outcome{FEN: fen}

	line, cached, err := s.lookupLine(ctx, fen, budget)
	if errors.Is(err, chess.ErrInvalidPosition) {
		out.Invalid = true
		out.Summary = line.Summary
		s.remember(line.Summary, "")
		s.logger.Info("invalid position", zap.String("fen", fen), zap.Error(err))
		return out, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	out.Cached = cached
	out.Summary = line.Summary

	moves := line.parsed
	frames := board.Replay(snapshot, moves)
	out.Frames = frames

	rec := &domain.SolveRecord{
		ID:        s.newID(),
		Placement: board.Placement(snapshot),
		FEN:       fen,
		MovesUCI:  line.Moves,
		MovesSAN:  line.SAN,
		Summary:   line.Summary,
		BestMove:  line.BestMove,
		ScoreCP:   line.ScoreCP,
		Mate:      line.Mate,
		HasMate:   line.HasMate,
		Depth:     line.Depth,
		Budget:    budget,
		CreatedAt: s.now().UTC(),
	}
	if !cached {
		rec.EngineLatency = line.latency
	}

	if len(moves) > 0 {
		var buf bytes.Buffer
		if err := s.renderer.EncodeGIF(ctx, &buf, frames, moves); err != nil {
			return Outcome{}, fmt.Errorf("render animation: %w", err)
		}
		rec.Animation = buf.Bytes()
		rec.Frames = len(frames)
		path, err := s.writeAnimation(rec.ID, rec.Animation)
		if err != nil {
			return Outcome{}, err
		}
		rec.AnimationPath = path
	}

	if err := s.repo.InsertSolve(ctx, rec); err != nil {
		s.logger.Warn("persist solve failed", zap.String("id", rec.ID), zap.Error(err))
	}
	s.remember(rec.Summary, rec.ID)
	out.Record = rec

	s.logger.Info("solve completed",
		zap.String("id", rec.ID),
		zap.String("fen", fen),
		zap.Int("moves", len(moves)),
		zap.Int("frames", rec.Frames),
		zap.Bool("cached", cached),
	)
	return out, nil
}

type engineLine struct {
	cachedLine
	parsed  []board.Move
	latency time.Duration
}

func (s *Service) lookupLine(ctx context.Context, fen string, budget time.Duration) (engineLine, bool, error) {
	key := cacheKey(fen, budget)
	if s.cache != nil {
		var hit cachedLine
		ok, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.logger.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			if moves, perr := board.ParseMoves(hit.Moves); perr == nil {
				return engineLine{cachedLine: hit, parsed: moves}, true, nil
			}
			s.logger.Warn("discarding unparsable cached line", zap.String("key", key))
		}
	}

	res, err := s.engine.Solve(ctx, chess.Request{FEN: fen, Budget: budget})
	if err != nil {
		return engineLine{cachedLine: cachedLine{Summary: res.Summary}}, false, err
	}
	// Only lines that parse are cached, so a bad engine reply is not replayed later.
	moves, err := board.ParseMoves(res.Moves)
	if err != nil {
		return engineLine{}, false, fmt.Errorf("engine line: %w", err)
	}
	line := cachedLine{
		Moves:    res.Moves,
		SAN:      res.SAN,
		Summary:  res.Summary,
		BestMove: res.BestMove,
		ScoreCP:  res.ScoreCP,
		Mate:     res.Mate,
		HasMate:  res.HasMate,
		Depth:    res.Depth,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, line, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache store failed", zap.Error(err))
		}
	}
	return engineLine{cachedLine: line, parsed: moves, latency: res.Duration}, false, nil
}

func cacheKey(fen string, budget time.Duration) string {
	sum := sha256.Sum256([]byte(fen + "|" + budget.String()))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *Service) writeAnimation(id string, data []byte) (string, error) {
	dir := strings.TrimSpace(s.cfg.OutputDir)
	if dir == "" {
		return "", nil
	}
	path := filepath.Join(dir, id+".gif")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write animation: %w", err)
	}
	return path, nil
}

func (s *Service) remember(summary, id string) {
	s.mu.Lock()
	s.lastSummary = summary
	s.lastSolveID = id
	s.mu.Unlock()
}

func (s *Service) GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error) {
	rec, err := s.repo.GetSolve(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSolveNotFound
	}
	return rec, nil
}

// Animation returns the GIF bytes of a stored solve.
func (s *Service) Animation(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.GetSolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.HasAnimation() {
		return nil, ErrAnimationMissing
	}
	return rec.Animation, nil
}

// RecentSolves lists history newest first. limit <= 0 uses the configured default.
func (s *Service) RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.RecentSolves(ctx, limit)
}
