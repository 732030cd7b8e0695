// Package tui is the terminal position editor. It edits the live board of a solver
// session and starts solves in the background.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/adapter/solverpresenter"
	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/service/solver"
)

// Session is the part of *solver.Service the editor drives.
type Session interface {
	Board() board.Board
	Place(row, col int, p board.Piece) error
	Clear(row, col int) error
	ClearAll()
	Cycle(row, col int) (board.Piece, error)
	Recolor(row, col int) (board.Piece, bool, error)
	PlaceShortcut(row, col int, key rune) (board.Piece, error)
	Solve(ctx context.Context, budget time.Duration) (solver.Outcome, error)
	DefaultBudget() time.Duration
}

var (
	lightSquare = tcell.NewRGBColor(255, 255, 255)
	darkSquare  = tcell.NewRGBColor(128, 128, 128)
	labelColor  = tcell.ColorYellow
)

var glyphs = map[board.Piece]string{
	board.WhitePawn: "♙", board.WhiteKnight: "♘", board.WhiteBishop: "♗",
	board.WhiteRook: "♖", board.WhiteQueen: "♕", board.WhiteKing: "♔",
	board.BlackPawn: "♟", board.BlackKnight: "♞", board.BlackBishop: "♝",
	board.BlackRook: "♜", board.BlackQueen: "♛", board.BlackKing: "♚",
}

type Option func(*Editor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

type Editor struct {
	svc    Session
	text   *solverpresenter.Formatter
	logger *zap.Logger

	app   *tview.Application
	table *tview.Table
	info  *tview.TextView

	mu       sync.Mutex
	row, col int
	status   []string

	ctx     context.Context
	cancel  context.CancelFunc
	solves  sync.WaitGroup
	queue   func(func())
	stop    func()
	solving bool
}

func New(svc Session, text *solverpresenter.Formatter, opts ...Option) *Editor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		svc:    svc,
		text:   text,
		logger: zap.NewNop(),
		app:    tview.NewApplication(),
		table:  tview.NewTable(),
		info:   tview.NewTextView(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(e)
	}
	e.queue = func(f func()) { e.app.QueueUpdateDraw(f) }
	e.stop = e.app.Stop
	e.initTable()
	e.redraw()
	return e
}

func (e *Editor) initTable() {
	e.table.SetSelectable(true, true)
	e.table.SetBorder(true)
	e.table.SetTitle(e.text.Title())
	e.table.SetSelectionChangedFunc(func(row, col int) {
		if row < board.Size && col >= 1 && col <= board.Size {
			e.mu.Lock()
			e.row, e.col = row, col-1
			e.mu.Unlock()
		}
	})
	e.table.SetInputCapture(e.handleKey)
	e.info.SetDynamicColors(false)
	e.info.SetWrap(true)
}

// Run blocks until the user quits. Any solve still running is cancelled.
func (e *Editor) Run() error {
	root := tview.NewFlex().
		AddItem(e.table, 22, 0, true).
		AddItem(e.info, 0, 1, false)
	e.app.EnableMouse(true)
	err := e.app.SetRoot(root, true).SetFocus(e.table).Run()
	e.cancel()
	e.solves.Wait()
	return err
}

func (e *Editor) cursor() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.row, e.col
}

func (e *Editor) moveCursor(dr, dc int) {
	e.mu.Lock()
	e.row = clamp(e.row+dr, 0, board.Size-1)
	e.col = clamp(e.col+dc, 0, board.Size-1)
	row, col := e.row, e.col
	e.mu.Unlock()
	e.table.Select(row, col+1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// handleKey consumes every key it binds and passes the rest on to the table.
func (e *Editor) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	row, col := e.cursor()
	var err error
	switch ev.Key() {
	case tcell.KeyUp:
		e.moveCursor(-1, 0)
		return nil
	case tcell.KeyDown:
		e.moveCursor(1, 0)
		return nil
	case tcell.KeyLeft:
		e.moveCursor(0, -1)
		return nil
	case tcell.KeyRight:
		e.moveCursor(0, 1)
		return nil
	case tcell.KeyEnter:
		_, err = e.svc.Cycle(row, col)
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		err = e.svc.Clear(row, col)
	case tcell.KeyEscape, tcell.KeyCtrlC:
		e.cancel()
		e.stop()
		return nil
	case tcell.KeyRune:
		r := ev.Rune()
		switch r {
		case ' ':
			_, err = e.svc.Cycle(row, col)
		case 'c':
			_, _, err = e.svc.Recolor(row, col)
		case 'x':
			err = e.svc.Clear(row, col)
		case 'X':
			e.svc.ClearAll()
		case 's':
			e.startSolve()
		default:
			if _, ok := board.ShortcutPiece(r); !ok {
				return ev
			}
			_, err = e.svc.PlaceShortcut(row, col, r)
		}
	default:
		return ev
	}
	if err != nil {
		e.logger.Debug("edit rejected", zap.Int("row", row), zap.Int("col", col), zap.Error(err))
	}
	e.redraw()
	return nil
}

func (e *Editor) startSolve() {
	e.mu.Lock()
	if e.solving {
		e.status = []string{e.text.Busy()}
		e.mu.Unlock()
		return
	}
	e.solving = true
	e.status = []string{e.text.Solving(e.svc.DefaultBudget())}
	e.mu.Unlock()

	e.solves.Add(1)
	go func() {
		defer e.solves.Done()
		out, err := e.svc.Solve(e.ctx, 0)
		var lines []string
		switch {
		case errors.Is(err, solver.ErrSolveInProgress):
			lines = []string{e.text.Busy()}
		case err != nil:
			e.logger.Warn("solve failed", zap.Error(err))
			lines = []string{e.text.Failed(err)}
		default:
			lines = e.text.Outcome(out)
		}
		e.queue(func() {
			e.mu.Lock()
			e.solving = false
			e.status = lines
			e.mu.Unlock()
			e.redraw()
		})
	}()
}

func (e *Editor) redraw() {
	b := e.svc.Board()
	cells := b.Cells()
	for r := 0; r < board.Size; r++ {
		e.table.SetCell(r, 0, tview.NewTableCell(fmt.Sprintf("%d", board.Size-r)).
			SetTextColor(labelColor).
			SetSelectable(false))
		for c := 0; c < board.Size; c++ {
			bg := lightSquare
			if (r+c)%2 == 1 {
				bg = darkSquare
			}
			text := " "
			if g, ok := glyphs[cells[r][c]]; ok {
				text = g
			}
			e.table.SetCell(r, c+1, tview.NewTableCell(" "+text+" ").
				SetAlign(tview.AlignCenter).
				SetTextColor(tcell.ColorBlack).
				SetBackgroundColor(bg))
		}
	}
	e.table.SetCell(board.Size, 0, tview.NewTableCell("").SetSelectable(false))
	for c := 0; c < board.Size; c++ {
		e.table.SetCell(board.Size, c+1, tview.NewTableCell(string(rune('a'+c))).
			SetAlign(tview.AlignCenter).
			SetTextColor(labelColor).
			SetSelectable(false))
	}
	row, col := e.cursor()
	e.table.Select(row, col+1)

	e.mu.Lock()
	status := append([]string(nil), e.status...)
	e.mu.Unlock()
	lines := []string{e.text.Placement(board.Placement(b)), ""}
	lines = append(lines, status...)
	lines = append(lines, "", e.text.Help())
	e.info.SetText(strings.Join(lines, "\n"))
}

// InfoText is the text of the side panel.
func (e *Editor) InfoText() string {
	return e.info.GetText(true)
}
