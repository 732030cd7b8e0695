// Package render draws board snapshots as paletted frames and assembles them into a
// looping GIF.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/park285/chess-gif-solver/internal/board"
)

const (
	CanvasSize  = 480
	SquareSize  = CanvasSize / board.Size
	PieceSize   = 44
	pieceOffset = (SquareSize - PieceSize) / 2

	DefaultFrameDelay = 500 * time.Millisecond
)

var ErrNoFrames = errors.New("no frames to render")

var (
	LightSquare = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	DarkSquare  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

	moveHighlight = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
)

type Option func(*Renderer)

func WithPieces(src PieceSource) Option {
	return func(r *Renderer) {
		if src != nil {
			r.pieces = src
		}
	}
}

func WithFrameDelay(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.delay = d
		}
	}
}

// WithMoveHighlight tints the origin and target squares of the move that produced each
// frame after the first.
func WithMoveHighlight(on bool) Option {
	return func(r *Renderer) { r.highlight = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

type Renderer struct {
	pieces    PieceSource
	delay     time.Duration
	highlight bool
	palette   color.Palette
	logger    *zap.Logger
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		pieces:  NewSVGPieces(),
		delay:   DefaultFrameDelay,
		palette: framePalette(),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DelayCentiseconds is the per-frame delay in GIF units.
func (r *Renderer) DelayCentiseconds() int {
	cs := int(r.delay / (10 * time.Millisecond))
	if cs < 1 {
		cs = 1
	}
	return cs
}

// Frame draws one snapshot.
func (r *Renderer) Frame(ctx context.Context, b board.Board) (*image.Paletted, error) {
	return r.frame(ctx, b, nil)
}

func (r *Renderer) frame(ctx context.Context, b board.Board, hl *board.Move) (*image.Paletted, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	drawSquares(canvas)
	if hl != nil {
		drawSquareOverlay(canvas, hl.From, moveHighlight)
		drawSquareOverlay(canvas, hl.To, moveHighlight)
	}
	if err := r.drawPieces(canvas, b); err != nil {
		return nil, err
	}

	out := image.NewPaletted(canvas.Bounds(), r.palette)
	xdraw.Draw(out, out.Bounds(), canvas, image.Point{}, xdraw.Src)
	return out, nil
}

// Animate renders frames in order. moves may be nil; when highlighting is enabled,
// moves[i] is drawn on frame i+1.
func (r *Renderer) Animate(ctx context.Context, frames []board.Board, moves []board.Move) (*gif.GIF, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	started := time.Now()
	delay := r.DelayCentiseconds()
	anim := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: 0,
	}
	for i, b := range frames {
		var hl *board.Move
		if r.highlight && i > 0 && i-1 < len(moves) {
			hl = &moves[i-1]
		}
		img, err := r.frame(ctx, b, hl)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, delay)
	}
	r.logger.Debug("frames rendered",
		zap.Int("frames", len(frames)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return anim, nil
}

// EncodeGIF renders frames and writes the looping animation to w.
func (r *Renderer) EncodeGIF(ctx context.Context, w io.Writer, frames []board.Board, moves []board.Move) error {
	anim, err := r.Animate(ctx, frames, moves)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

func squareRect(row, col int) image.Rectangle {
	x := col * SquareSize
	y := row * SquareSize
	return image.Rect(x, y, x+SquareSize, y+SquareSize)
}

func squareColor(row, col int) color.Color {
	if (row+col)%2 == 0 {
		return LightSquare
	}
	return DarkSquare
}

func drawSquares(dst xdraw.Image) {
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			xdraw.Draw(dst, squareRect(row, col), image.NewUniform(squareColor(row, col)), image.Point{}, xdraw.Src)
		}
	}
}

func drawSquareOverlay(dst xdraw.Image, sq board.Square, clr color.Color) {
	xdraw.Draw(dst, squareRect(sq.Row, sq.Col), image.NewUniform(clr), image.Point{}, xdraw.Over)
}

func (r *Renderer) drawPieces(dst xdraw.Image, b board.Board) error {
	cells := b.Cells()
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			p := cells[row][col]
			if p == board.Empty {
				continue
			}
			img, err := r.pieces.PieceImage(p, PieceSize)
			if err != nil {
				return fmt.Errorf("piece %s at (%d,%d): %w", p, row, col, err)
			}
			x := col*SquareSize + pieceOffset
			y := row*SquareSize + pieceOffset
			xdraw.Draw(dst, image.Rect(x, y, x+PieceSize, y+PieceSize), img, img.Bounds().Min, xdraw.Over)
		}
	}
	return nil
}
