package chess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/chess-gif-solver/internal/chess/uci"
	"github.com/park285/chess-gif-solver/internal/chess/uci/ucitest"
)

func TestMain(m *testing.M) {
	ucitest.MaybeServe()
	os.Exit(m.Run())
}

const kingsAndPawn = "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"

func fakeEngine(t *testing.T, mode, pv string, opts ...Option) *Engine {
	t.Helper()
	t.Setenv(ucitest.EnvMode, mode)
	t.Setenv(ucitest.EnvPV, pv)
	e, err := NewEngine(Config{BinaryPath: os.Args[0], Threads: 1, StopGrace: 100 * time.Millisecond}, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

type stubMessages map[string]string

func (s stubMessages) Render(key string, data any) (string, error) {
	tpl, ok := s[key]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	m := data.(map[string]any)
	for k, v := range m {
		tpl = strings.ReplaceAll(tpl, "{"+k+"}", fmt.Sprint(v))
	}
	return tpl, nil
}

func TestNewEngineRequiresBinary(t *testing.T) {
	if _, err := NewEngine(Config{}); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "stockfish")
	if _, err := NewEngine(Config{BinaryPath: missing}); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable for %s, got %v", missing, err)
	}
}

func TestSolveReturnsPrincipalVariation(t *testing.T) {
	e := fakeEngine(t, ucitest.ModeNormal, "e2e4 e8d7 e1e2")

	res, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn, Budget: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if diff := cmp.Diff([]string{"e2e4", "e8d7", "e1e2"}, res.Moves); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
	if res.Summary != "Best moves: e2e4 e8d7 e1e2" {
		t.Fatalf("summary = %q", res.Summary)
	}
	if diff := cmp.Diff([]string{"e4", "Kd7", "Ke2"}, res.SAN); diff != "" {
		t.Fatalf("san mismatch (-want +got):\n%s", diff)
	}
	if res.BestMove != "e2e4" || res.Depth != 12 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSolveUsesMessageCatalog(t *testing.T) {
	msgs := stubMessages{"engine.best_moves": "PV: {Moves}"}
	e := fakeEngine(t, ucitest.ModeNormal, "e2e4", WithMessages(msgs))
	res, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn, Budget: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Summary != "PV: e2e4" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestSolveRejectsInvalidPosition(t *testing.T) {
	t.Setenv(ucitest.EnvMode, ucitest.ModeCrash)
	e, err := NewEngine(Config{BinaryPath: os.Args[0]})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Solve(context.Background(), Request{FEN: "4k3/8/8/8/8/8/4P3 w - - 0 1", Budget: time.Second})
	if !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if len(res.Moves) != 0 {
		t.Fatalf("moves must be empty, got %v", res.Moves)
	}
	if !strings.HasPrefix(res.Summary, "Invalid FEN: ") {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestSolveRejectsNonPositiveBudget(t *testing.T) {
	e := fakeEngine(t, ucitest.ModeNormal, "e2e4")
	if _, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}

func TestSolveSurfacesTimeout(t *testing.T) {
	e := fakeEngine(t, ucitest.ModeHang, "")
	started := time.Now()
	_, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn, Budget: 50 * time.Millisecond})
	if !errors.Is(err, ErrEngineRequest) || !errors.Is(err, uci.ErrSearchTimeout) {
		t.Fatalf("expected search timeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("solve took %s", elapsed)
	}
}

func TestSolveSurfacesEngineCrash(t *testing.T) {
	e := fakeEngine(t, ucitest.ModeCrash, "")
	_, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn, Budget: 50 * time.Millisecond})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestSolveNoLegalMoves(t *testing.T) {
	e := fakeEngine(t, ucitest.ModeNoMove, "")
	res, err := e.Solve(context.Background(), Request{FEN: kingsAndPawn, Budget: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Moves) != 0 || res.Summary != "Best moves: " {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestValidateFEN(t *testing.T) {
	if err := ValidateFEN(kingsAndPawn); err != nil {
		t.Fatalf("ValidateFEN: %v", err)
	}
	for _, bad := range []string{"", "   ", "not a fen", "9/8/8/8/8/8/8/8 w - - 0 1"} {
		if err := ValidateFEN(bad); err == nil {
			t.Errorf("ValidateFEN(%q) should fail", bad)
		}
	}
}
