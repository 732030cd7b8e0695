package chess

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	chesslib "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/chess/uci"
)

// startupAllowance covers process start plus the handshake on top of the search budget.
const startupAllowance = 5 * time.Second

var (
	ErrInvalidPosition   = errors.New("invalid position")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrEngineRequest     = errors.New("engine request failed")
	ErrInvalidBudget     = errors.New("search budget must be positive")
)

// MessageRenderer renders user-facing text by template key.
type MessageRenderer interface {
	Render(key string, data any) (string, error)
}

type Config struct {
	BinaryPath string
	Args       []string
	Threads    int
	HashMB     int
	StopGrace  time.Duration
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMessages(m MessageRenderer) Option {
	return func(e *Engine) { e.messages = m }
}

// Engine runs one engine process per Solve call. It holds no process between calls.
type Engine struct {
	binaryPath string
	args       []string
	opt        uci.Options
	logger     *zap.Logger
	messages   MessageRenderer
}

type Request struct {
	FEN    string
	Budget time.Duration
}

type Result struct {
	Moves    []string
	SAN      []string
	Summary  string
	BestMove string
	ScoreCP  int
	Mate     int
	HasMate  bool
	Depth    int
	Duration time.Duration
}

func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	path := strings.TrimSpace(cfg.BinaryPath)
	if path == "" {
		return nil, fmt.Errorf("%w: engine path required", ErrEngineUnavailable)
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if cfg.Threads < 0 || cfg.HashMB < 0 {
		return nil, fmt.Errorf("invalid engine options: threads=%d hash=%d", cfg.Threads, cfg.HashMB)
	}
	e := &Engine{
		binaryPath: resolved,
		args:       append([]string(nil), cfg.Args...),
		opt: uci.Options{
			Threads:   cfg.Threads,
			HashMB:    cfg.HashMB,
			StopGrace: cfg.StopGrace,
		},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *Engine) BinaryPath() string { return e.binaryPath }

// Solve asks the engine for its principal variation from req.FEN within req.Budget.
//
// An unparsable position is reported through Result.Summary together with an error
// wrapping ErrInvalidPosition; no process is started in that case.
func (e *Engine) Solve(ctx context.Context, req Request) (Result, error) {
	if req.Budget <= 0 {
		return Result{}, ErrInvalidBudget
	}
	if err := ValidateFEN(req.FEN); err != nil {
		return Result{Summary: e.render("engine.invalid_fen", map[string]any{"Reason": err.Error()}, "Invalid FEN: "+err.Error())},
			fmt.Errorf("%w: %w", ErrInvalidPosition, err)
	}

	start := time.Now()
	grace := e.opt.StopGrace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, req.Budget+2*grace+startupAllowance)
	defer cancel()

	session, err := uci.NewSession(runCtx, e.binaryPath, e.args, e.opt)
	if err != nil {
		e.logger.Warn("engine start failed", zap.String("binary", e.binaryPath), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Warn("engine close failed", zap.Error(cerr))
		}
	}()

	analysis, err := session.Analyse(runCtx, uci.AnalyseRequest{FEN: req.FEN, MoveTime: req.Budget})
	if err != nil {
		e.logger.Warn("engine search failed",
			zap.String("fen", req.FEN),
			zap.Duration("budget", req.Budget),
			zap.Error(err),
		)
		return Result{}, fmt.Errorf("%w: %w", ErrEngineRequest, err)
	}

	moves := append([]string(nil), analysis.Principal...)
	res := Result{
		Moves:    moves,
		SAN:      sanLine(req.FEN, moves),
		Summary:  e.render("engine.best_moves", map[string]any{"Moves": strings.Join(moves, " ")}, "Best moves: "+strings.Join(moves, " ")),
		BestMove: analysis.BestMove,
		ScoreCP:  analysis.ScoreCP,
		Mate:     analysis.Mate,
		HasMate:  analysis.HasMate,
		Depth:    analysis.Depth,
		Duration: time.Since(start),
	}
	e.logger.Info("engine solve",
		zap.String("fen", req.FEN),
		zap.Int("moves", len(moves)),
		zap.Int("depth", res.Depth),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (e *Engine) render(key string, data map[string]any, fallback string) string {
	if e.messages == nil {
		return fallback
	}
	out, err := e.messages.Render(key, data)
	if err != nil {
		e.logger.Debug("message render failed", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return out
}

// ValidateFEN reports whether fen parses as a position. It does not check legality.
func ValidateFEN(fen string) error {
	if strings.TrimSpace(fen) == "" {
		return errors.New("empty position")
	}
	if _, err := chesslib.FEN(fen); err != nil {
		return err
	}
	return nil
}

// sanLine converts a UCI move line to SAN, stopping at the first move the position
// does not accept. Positions missing a king are skipped.
func sanLine(fen string, moves []string) []string {
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	if len(moves) == 0 || !strings.ContainsRune(placement, 'K') || !strings.ContainsRune(placement, 'k') {
		return nil
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return nil
	}
	game := chesslib.NewGame(option)
	notation := chesslib.UCINotation{}
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		pos := game.Position()
		decoded, err := notation.Decode(pos, mv)
		if err != nil {
			break
		}
		san := chesslib.AlgebraicNotation{}.Encode(pos, decoded)
		if err := game.Move(decoded, nil); err != nil {
			break
		}
		out = append(out, san)
	}
	return out
}
