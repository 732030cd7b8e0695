package solverpresenter

import (
	"fmt"
	"time"

	"github.com/park285/chess-gif-solver/internal/service/solver"
)

// MessageRenderer is satisfied by *msgcat.Catalog.
type MessageRenderer interface {
	RenderOr(key string, data any, fallback string) string
}

// Formatter turns solver results into the short text lines shown by the terminal
// editor and the CLI.
type Formatter struct {
	messages MessageRenderer
}

func NewFormatter(messages MessageRenderer) *Formatter {
	return &Formatter{messages: messages}
}

func (f *Formatter) text(key string, data any, fallback string) string {
	if f == nil || f.messages == nil {
		return fallback
	}
	return f.messages.RenderOr(key, data, fallback)
}

func (f *Formatter) Title() string {
	return f.text("tui.title", nil, " Position editor ")
}

func (f *Formatter) Help() string {
	return f.text("tui.help", nil, "arrows move | space cycle | c recolor | x clear | s solve | esc quit")
}

func (f *Formatter) Placement(placement string) string {
	return f.text("tui.placement", map[string]any{"Placement": placement}, "Position: "+placement)
}

func (f *Formatter) Solving(budget time.Duration) string {
	return f.text("tui.solving", map[string]any{"Budget": budget}, fmt.Sprintf("Solving for %s...", budget))
}

func (f *Formatter) Busy() string {
	return f.text("solve.busy", nil, "A solve is already running.")
}

func (f *Formatter) Failed(err error) string {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return f.text("solve.failed", map[string]any{"Reason": reason}, "Engine request failed: "+reason)
}

func (f *Formatter) Header(fen string) string {
	return f.text("cli.header", map[string]any{"FEN": fen}, fen)
}

func (f *Formatter) Frames(n int, path string) string {
	return f.text("cli.frames", map[string]any{"Frames": n, "Path": path}, fmt.Sprintf("%d frames written to %s", n, path))
}

func (f *Formatter) NoMoves() string {
	return f.text("solve.no_moves", nil, "The engine returned no moves.")
}

// Outcome lists the summary followed by where the animation went, if anywhere.
func (f *Formatter) Outcome(out solver.Outcome) []string {
	lines := []string{out.Summary}
	if out.Invalid || out.Record == nil {
		return lines
	}
	switch {
	case !out.Record.HasAnimation():
		lines = append(lines, f.NoMoves())
	case out.Record.AnimationPath != "":
		lines = append(lines, f.text("solve.saved", map[string]any{"Path": out.Record.AnimationPath}, "Animation saved to "+out.Record.AnimationPath))
	}
	return lines
}
