// Package httpapi exposes the solver session over HTTP: board edits, solve requests,
// history and the rendered animations.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/adapter/solverpresenter"
	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/domain"
	"github.com/park285/chess-gif-solver/internal/service/solver"
	"github.com/park285/chess-gif-solver/pkg/solverdto"
)

const (
	contentJSON = "application/json"
	contentGIF  = "image/gif"

	maxBudget = 10 * time.Minute
)

// Solver is the part of *solver.Service the handlers use.
type Solver interface {
	Board() board.Board
	Busy() bool
	LastSummary() (string, string)
	Load(placement string) error
	Place(row, col int, p board.Piece) error
	Clear(row, col int) error
	ClearAll()
	Cycle(row, col int) (board.Piece, error)
	Recolor(row, col int) (board.Piece, bool, error)
	PlaceShortcut(row, col int, key rune) (board.Piece, error)
	Solve(ctx context.Context, budget time.Duration) (solver.Outcome, error)
	GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error)
	Animation(ctx context.Context, id string) ([]byte, error)
	RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error)
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineName sets the engine reported by /healthz.
func WithEngineName(name string) Option {
	return func(s *Server) { s.engine = name }
}

type Server struct {
	svc    Solver
	engine string
	logger *zap.Logger
	// base scopes engine work to the server lifetime.
	base context.Context
}

func New(svc Solver, opts ...Option) *Server {
	s := &Server{svc: svc, logger: zap.NewNop(), base: context.Background()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler routes requests. Paths are matched exactly; the only variable segment is
// the solve id.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		path := string(ctx.Path())
		method := string(ctx.Method())
		s.route(ctx, method, path)
		s.logger.Debug("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx, method, path string) {
	switch path {
	case "/healthz":
		s.only(ctx, method, fasthttp.MethodGet, s.health)
		return
	case "/api/board":
		switch method {
		case fasthttp.MethodGet:
			s.getBoard(ctx)
		case fasthttp.MethodPut:
			s.loadBoard(ctx)
		default:
			methodNotAllowed(ctx)
		}
		return
	case "/api/board/place":
		s.only(ctx, method, fasthttp.MethodPost, s.place)
		return
	case "/api/board/clear":
		s.only(ctx, method, fasthttp.MethodPost, s.squareEdit(func(r, c int) error { return s.svc.Clear(r, c) }))
		return
	case "/api/board/cycle":
		s.only(ctx, method, fasthttp.MethodPost, s.squareEdit(func(r, c int) error {
			_, err := s.svc.Cycle(r, c)
			return err
		}))
		return
	case "/api/board/recolor":
		s.only(ctx, method, fasthttp.MethodPost, s.squareEdit(func(r, c int) error {
			_, _, err := s.svc.Recolor(r, c)
			return err
		}))
		return
	case "/api/board/key":
		s.only(ctx, method, fasthttp.MethodPost, s.placeKey)
		return
	case "/api/board/reset":
		s.only(ctx, method, fasthttp.MethodPost, func(ctx *fasthttp.RequestCtx) {
			s.svc.ClearAll()
			s.getBoard(ctx)
		})
		return
	case "/api/solve":
		s.only(ctx, method, fasthttp.MethodPost, s.solve)
		return
	case "/api/solves":
		s.only(ctx, method, fasthttp.MethodGet, s.history)
		return
	}

	if rest, ok := strings.CutPrefix(path, "/api/solves/"); ok && rest != "" {
		if id, ok := strings.CutSuffix(rest, "/animation.gif"); ok {
			if validID(id) {
				s.only(ctx, method, fasthttp.MethodGet, func(ctx *fasthttp.RequestCtx) { s.animation(ctx, id) })
				return
			}
		} else if validID(rest) {
			s.only(ctx, method, fasthttp.MethodGet, func(ctx *fasthttp.RequestCtx) { s.getSolve(ctx, rest) })
			return
		}
	}
	writeError(ctx, fasthttp.StatusNotFound, solverdto.DomainError{Code: solverdto.CodeNotFound, Message: "no such route"})
}

func validID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}

func (s *Server) only(ctx *fasthttp.RequestCtx, method, want string, h fasthttp.RequestHandler) {
	if method != want {
		methodNotAllowed(ctx)
		return
	}
	h(ctx)
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusMethodNotAllowed, solverdto.DomainError{Code: solverdto.CodeBadRequest, Message: "method not allowed"})
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, solverdto.HealthResponse{Status: "ok", Engine: s.engine, Busy: s.svc.Busy()})
}

func (s *Server) boardState() solverdto.BoardState {
	summary, id := s.svc.LastSummary()
	return solverpresenter.ToDTOBoard(s.svc.Board(), s.svc.Busy(), summary, id)
}

func (s *Server) getBoard(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, s.boardState())
}

func (s *Server) loadBoard(ctx *fasthttp.RequestCtx) {
	var req solverdto.LoadBoardRequest
	if !decode(ctx, &req) {
		return
	}
	if err := s.svc.Load(req.Placement); err != nil {
		s.fail(ctx, err)
		return
	}
	s.getBoard(ctx)
}

func (s *Server) place(ctx *fasthttp.RequestCtx) {
	var req solverdto.PlaceRequest
	if !decode(ctx, &req) {
		return
	}
	p, err := board.ParsePiece(req.Piece)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if err := s.svc.Place(req.Row, req.Col, p); err != nil {
		s.fail(ctx, err)
		return
	}
	s.getBoard(ctx)
}

func (s *Server) squareEdit(edit func(row, col int) error) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req solverdto.SquareRequest
		if !decode(ctx, &req) {
			return
		}
		if err := edit(req.Row, req.Col); err != nil {
			s.fail(ctx, err)
			return
		}
		s.getBoard(ctx)
	}
}

func (s *Server) placeKey(ctx *fasthttp.RequestCtx) {
	var req solverdto.KeyRequest
	if !decode(ctx, &req) {
		return
	}
	runes := []rune(req.Key)
	if len(runes) != 1 {
		writeError(ctx, fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeInvalidPiece, Message: "key must be a single character"})
		return
	}
	if _, err := s.svc.PlaceShortcut(req.Row, req.Col, runes[0]); err != nil {
		s.fail(ctx, err)
		return
	}
	s.getBoard(ctx)
}

func (s *Server) solve(ctx *fasthttp.RequestCtx) {
	var req solverdto.SolveRequest
	if len(ctx.PostBody()) > 0 && !decode(ctx, &req) {
		return
	}
	budget, err := budgetFrom(req.BudgetSeconds)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeBadRequest, Message: err.Error()})
		return
	}

	out, err := s.svc.Solve(s.base, budget)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if out.Invalid {
		writeError(ctx, fasthttp.StatusUnprocessableEntity, solverdto.DomainError{Code: solverdto.CodeInvalidPosition, Message: out.Summary})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, solverpresenter.ToDTOSolve(out.Record, out.Cached))
}

// budgetFrom converts seconds to a duration; zero selects the server default.
func budgetFrom(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0, errors.New("budget_seconds must not be negative")
	}
	if seconds > maxBudget.Seconds() {
		return 0, fmt.Errorf("budget_seconds must not exceed %d", int(maxBudget/time.Second))
	}
	d := time.Duration(seconds * float64(time.Second))
	if seconds > 0 && d < time.Millisecond {
		return 0, errors.New("budget_seconds must be at least 0.001")
	}
	return d, nil
}

func (s *Server) history(ctx *fasthttp.RequestCtx) {
	limit := 0
	if raw := strings.TrimSpace(string(ctx.QueryArgs().Peek("limit"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(ctx, fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeBadRequest, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	recs, err := s.svc.RecentSolves(s.base, limit)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, solverpresenter.ToDTOHistory(recs))
}

func (s *Server) getSolve(ctx *fasthttp.RequestCtx, id string) {
	rec, err := s.svc.GetSolve(s.base, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, solverpresenter.ToDTOSolve(rec, false))
}

func (s *Server) animation(ctx *fasthttp.RequestCtx, id string) {
	data, err := s.svc.Animation(s.base, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentGIF)
	ctx.Response.Header.Set("Cache-Control", "public, max-age=86400, immutable")
	ctx.SetBody(data)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	status, derr := mapError(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", string(ctx.Path())), zap.Int("status", status), zap.Error(err))
	}
	writeError(ctx, status, derr)
}

func decode(ctx *fasthttp.RequestCtx, dst any) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeBadRequest, Message: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType(contentJSON)
		ctx.SetBodyString(`{"code":"internal","message":"encode response","retryable":false}`)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(contentJSON)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, derr solverdto.DomainError) {
	writeJSON(ctx, status, derr)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.base = ctx
	srv := &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "gifsolver",
		ReadTimeout:        15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}
