package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-gif-solver/internal/adapter/solverpresenter"
	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/chess"
	"github.com/park285/chess-gif-solver/internal/msgcat"
	"github.com/park285/chess-gif-solver/internal/render"
	"github.com/park285/chess-gif-solver/internal/service/solver"
)

type stubEngine struct {
	result chess.Result
	err    error
}

func (e stubEngine) Solve(ctx context.Context, req chess.Request) (chess.Result, error) {
	return e.result, e.err
}

func newEditor(t *testing.T, eng stubEngine) (*Editor, *solver.Service) {
	t.Helper()
	svc, err := solver.NewService(eng, render.New(), solver.NewMemoryRepository(), nil,
		solver.Config{DefaultBudget: 2 * time.Second, OutputDir: t.TempDir()}, nil)
	require.NoError(t, err)
	cat, err := msgcat.New("")
	require.NoError(t, err)
	e := New(svc, solverpresenter.NewFormatter(cat))
	e.queue = func(f func()) { f() }
	e.stop = func() {}
	return e, svc
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func press(e *Editor, evs ...*tcell.EventKey) {
	for _, ev := range evs {
		e.handleKey(ev)
	}
}

func TestCursorMovementIsClamped(t *testing.T) {
	e, _ := newEditor(t, stubEngine{})
	press(e, key(tcell.KeyUp), key(tcell.KeyLeft))
	row, col := e.cursor()
	require.Equal(t, 0, row)
	require.Equal(t, 0, col)

	for i := 0; i < 12; i++ {
		press(e, key(tcell.KeyDown), key(tcell.KeyRight))
	}
	row, col = e.cursor()
	require.Equal(t, 7, row)
	require.Equal(t, 7, col)
	selRow, selCol := e.table.GetSelection()
	require.Equal(t, 7, selRow)
	require.Equal(t, 8, selCol)
}

func TestEditingKeys(t *testing.T) {
	e, svc := newEditor(t, stubEngine{})

	press(e, runeKey('K'))
	cur := svc.Board()
	p, _ := cur.CellAt(0, 0)
	require.Equal(t, board.BlackKing, p)

	press(e, runeKey('c'))
	cur = svc.Board()
	p, _ = cur.CellAt(0, 0)
	require.Equal(t, board.WhiteKing, p)

	press(e, runeKey(' '))
	cur = svc.Board()
	p, _ = cur.CellAt(0, 0)
	require.Equal(t, board.BlackPawn, p)

	press(e, key(tcell.KeyEnter))
	cur = svc.Board()
	p, _ = cur.CellAt(0, 0)
	require.Equal(t, board.BlackKnight, p)

	press(e, runeKey('x'))
	cur = svc.Board()
	p, _ = cur.CellAt(0, 0)
	require.Equal(t, board.Empty, p)

	press(e, key(tcell.KeyRight), runeKey('q'), key(tcell.KeyDown), runeKey('P'))
	require.Equal(t, "1Q6/1p6/8/8/8/8/8/8", svc.Placement())
	require.Contains(t, e.InfoText(), "1Q6/1p6/8/8/8/8/8/8")
	require.Equal(t, "♕", strings.TrimSpace(e.table.GetCell(0, 2).Text))

	press(e, key(tcell.KeyDelete))
	require.Equal(t, "1Q6/8/8/8/8/8/8/8", svc.Placement())

	press(e, runeKey('X'))
	require.Equal(t, "8/8/8/8/8/8/8/8", svc.Placement())
}

func TestUnboundKeysPassThrough(t *testing.T) {
	e, _ := newEditor(t, stubEngine{})
	ev := runeKey('z')
	require.Same(t, ev, e.handleKey(ev))
	ev = key(tcell.KeyF5)
	require.Same(t, ev, e.handleKey(ev))
}

func TestSolveKeyShowsOutcome(t *testing.T) {
	e, svc := newEditor(t, stubEngine{result: chess.Result{Moves: []string{"e2e4"}, Summary: "Best moves: e2e4"}})
	require.NoError(t, svc.Load("4k3/8/8/8/8/8/4P3/8"))

	press(e, runeKey('s'))
	e.solves.Wait()

	info := e.InfoText()
	require.Contains(t, info, "Best moves: e2e4")
	require.Contains(t, info, "Animation saved to ")
	require.False(t, e.solving)
}

func TestSolveKeyShowsFailure(t *testing.T) {
	e, _ := newEditor(t, stubEngine{err: fmt.Errorf("%w: no such file", chess.ErrEngineUnavailable)})

	press(e, runeKey('s'))
	e.solves.Wait()
	require.Contains(t, e.InfoText(), "Engine request failed: engine unavailable: no such file")
}

func TestEscapeStops(t *testing.T) {
	e, _ := newEditor(t, stubEngine{})
	stopped := false
	e.stop = func() { stopped = true }
	require.Nil(t, e.handleKey(key(tcell.KeyEscape)))
	require.True(t, stopped)
	require.Error(t, e.ctx.Err())
}
