// Package board holds the editable 8x8 position model, its position-string encoding,
// move-token parsing and principal-variation replay.
package board

import (
	"errors"
	"fmt"
)

// Size is the number of rows and columns.
const Size = 8

var (
	ErrOutOfRange   = errors.New("board coordinate out of range")
	ErrInvalidPiece = errors.New("invalid piece")
)

// Board is an 8x8 grid indexed by (row, col). Row 0 is rank 8, col 0 is file a.
// The zero value is the empty board. Board is a value type: assignment copies it.
type Board struct {
	cells [Size][Size]Piece
}

// New returns an empty board.
func New() Board { return Board{} }

func inRange(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

func rangeError(row, col int) error {
	return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, row, col)
}

func (b *Board) Place(row, col int, p Piece) error {
	if !inRange(row, col) {
		return rangeError(row, col)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPiece, uint8(p))
	}
	b.cells[row][col] = p
	return nil
}

func (b *Board) Clear(row, col int) error { return b.Place(row, col, Empty) }

func (b *Board) ClearAll() { b.cells = [Size][Size]Piece{} }

func (b *Board) CellAt(row, col int) (Piece, error) {
	if !inRange(row, col) {
		return Empty, rangeError(row, col)
	}
	return b.cells[row][col], nil
}

// Snapshot returns an independent copy; later mutations of either side are not shared.
func (b *Board) Snapshot() Board {
	return Board{cells: b.cells}
}

// Cycle advances the cell to the next piece in the cycling order and returns it.
func (b *Board) Cycle(row, col int) (Piece, error) {
	cur, err := b.CellAt(row, col)
	if err != nil {
		return Empty, err
	}
	next := cur.Next()
	b.cells[row][col] = next
	return next, nil
}

// Recolor swaps the color of the piece on the cell. It reports false and leaves
// the board untouched when the cell is Empty.
func (b *Board) Recolor(row, col int) (Piece, bool, error) {
	cur, err := b.CellAt(row, col)
	if err != nil {
		return Empty, false, err
	}
	if cur == Empty {
		return Empty, false, nil
	}
	next := cur.Opposite()
	b.cells[row][col] = next
	return next, true, nil
}

// Cells returns a copy of the grid.
func (b *Board) Cells() [Size][Size]Piece { return b.cells }

func (b Board) Equal(other Board) bool { return b.cells == other.cells }

// IsEmpty reports whether every cell is Empty.
func (b *Board) IsEmpty() bool { return b.cells == [Size][Size]Piece{} }

func (b Board) String() string { return Placement(b) }
