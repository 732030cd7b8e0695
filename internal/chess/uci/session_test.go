package uci

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/chess-gif-solver/internal/chess/uci/ucitest"
)

func TestMain(m *testing.M) {
	ucitest.MaybeServe()
	os.Exit(m.Run())
}

func startFake(t *testing.T, mode, pv string, grace time.Duration) (*Session, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "commands.log")
	t.Setenv(ucitest.EnvMode, mode)
	t.Setenv(ucitest.EnvPV, pv)
	t.Setenv(ucitest.EnvLog, logPath)

	s, err := NewSession(context.Background(), os.Args[0], nil, Options{Threads: 2, HashMB: 16, StopGrace: grace})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, logPath
}

func TestParseInfo(t *testing.T) {
	in, ok := parseInfo("info depth 18 seldepth 24 multipv 1 score cp 42 nodes 100 pv e2e4 e7e5 g1f3")
	if !ok {
		t.Fatalf("expected info line to parse")
	}
	if in.depth != 18 || in.scoreCP != 42 || in.multipv != 1 || in.hasMate {
		t.Fatalf("unexpected info: %+v", in)
	}
	if diff := cmp.Diff([]string{"e2e4", "e7e5", "g1f3"}, in.pv); diff != "" {
		t.Fatalf("pv mismatch (-want +got):\n%s", diff)
	}

	mate, ok := parseInfo("info depth 5 score mate -3 pv h7h8q")
	if !ok || !mate.hasMate || mate.mate != -3 {
		t.Fatalf("mate info = %+v, %v", mate, ok)
	}

	for _, line := range []string{
		"info depth 3 nodes 12",
		"info string pv e2e4",
		"info depth 3 pv",
		"bestmove e2e4",
	} {
		if _, ok := parseInfo(line); ok {
			t.Errorf("parseInfo(%q) should be rejected", line)
		}
	}
}

func TestFinishAnalysisFallsBackToBestMove(t *testing.T) {
	got := finishAnalysis(info{}, "bestmove g1f3 ponder g8f6")
	if got.BestMove != "g1f3" || len(got.Principal) != 1 || got.Principal[0] != "g1f3" {
		t.Fatalf("unexpected analysis: %+v", got)
	}
	none := finishAnalysis(info{}, "bestmove (none)")
	if none.BestMove != "" || len(none.Principal) != 0 {
		t.Fatalf("expected empty analysis, got %+v", none)
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand("8/8/8/8/8/8/8/8 w - - 0 1"); got != "position fen 8/8/8/8/8/8/8/8 w - - 0 1\n" {
		t.Fatalf("position command = %q", got)
	}
	if got := buildPositionCommand(""); got != "position startpos\n" {
		t.Fatalf("position command = %q", got)
	}
	tokens, err := buildGoTokens(1500 * time.Millisecond)
	if err != nil || strings.Join(tokens, " ") != "go movetime 1500" {
		t.Fatalf("go tokens = %v, %v", tokens, err)
	}
	if _, err := buildGoTokens(0); err == nil {
		t.Fatalf("expected error for zero move time")
	}
	if err := validateOptions(Options{Threads: -1}); err == nil {
		t.Fatalf("expected error for negative threads")
	}
}

func TestAnalyseAgainstFakeEngine(t *testing.T) {
	s, logPath := startFake(t, ucitest.ModeNormal, "e2e4 e7e5 g1f3", time.Second)

	res, err := s.Analyse(context.Background(), AnalyseRequest{
		FEN:      "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
		MoveTime: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if diff := cmp.Diff([]string{"e2e4", "e7e5", "g1f3"}, res.Principal); diff != "" {
		t.Fatalf("principal mismatch (-want +got):\n%s", diff)
	}
	if res.BestMove != "e2e4" || res.Depth != 12 || res.ScoreCP != 35 {
		t.Fatalf("unexpected analysis: %+v", res)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read command log: %v", err)
	}
	log := string(raw)
	for _, want := range []string{
		"uci",
		"setoption name MultiPV value 1",
		"setoption name Threads value 2",
		"setoption name Hash value 16",
		"ucinewgame",
		"position fen 4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
		"go movetime 200",
		"quit",
	} {
		if !strings.Contains(log, want+"\n") {
			t.Errorf("engine never received %q; log:\n%s", want, log)
		}
	}
}

func TestAnalyseSendsStopAfterOverrun(t *testing.T) {
	s, logPath := startFake(t, ucitest.ModeStop, "d2d4 d7d5", 150*time.Millisecond)

	res, err := s.Analyse(context.Background(), AnalyseRequest{FEN: "8/8/8/8/8/8/3P4/8 w - - 0 1", MoveTime: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if res.BestMove != "d2d4" || len(res.Principal) != 2 {
		t.Fatalf("unexpected analysis: %+v", res)
	}
	_ = s.Close()
	raw, _ := os.ReadFile(logPath)
	if !strings.Contains(string(raw), "stop\n") {
		t.Fatalf("stop was never sent; log:\n%s", raw)
	}
}

func TestAnalyseTimesOutAndCloseKills(t *testing.T) {
	s, _ := startFake(t, ucitest.ModeHang, "", 100*time.Millisecond)

	_, err := s.Analyse(context.Background(), AnalyseRequest{FEN: "8/8/8/8/8/8/8/8 w - - 0 1", MoveTime: 50 * time.Millisecond})
	if !errors.Is(err, ErrSearchTimeout) {
		t.Fatalf("expected ErrSearchTimeout, got %v", err)
	}

	started := time.Now()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("Close took %s", elapsed)
	}
	if s.cmd.ProcessState == nil {
		t.Fatalf("process was not reaped")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestAnalyseNoMove(t *testing.T) {
	s, _ := startFake(t, ucitest.ModeNoMove, "", time.Second)
	res, err := s.Analyse(context.Background(), AnalyseRequest{FEN: "8/8/8/8/8/8/8/8 w - - 0 1", MoveTime: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if res.BestMove != "" || len(res.Principal) != 0 {
		t.Fatalf("expected no moves, got %+v", res)
	}
}

func TestNewSessionFailsWhenEngineDies(t *testing.T) {
	t.Setenv(ucitest.EnvMode, ucitest.ModeCrash)
	t.Setenv(ucitest.EnvPV, "")
	t.Setenv(ucitest.EnvLog, "")
	s, err := NewSession(context.Background(), os.Args[0], nil, Options{StopGrace: 100 * time.Millisecond})
	if err == nil {
		_ = s.Close()
		t.Fatalf("expected handshake failure")
	}
}

func TestNewSessionMissingBinary(t *testing.T) {
	_, err := NewSession(context.Background(), filepath.Join(t.TempDir(), "no-such-engine"), nil, Options{})
	if err == nil || !strings.Contains(err.Error(), "start engine") {
		t.Fatalf("expected start error, got %v", err)
	}
}
