package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MetadataSuffix is appended to every placement: White to move, no castling rights,
// no en-passant target, halfmove clock 0, fullmove number 1.
const MetadataSuffix = " w - - 0 1"

// EmptyPlacement is the placement section of a board with no pieces.
const EmptyPlacement = "8/8/8/8/8/8/8/8"

var ErrInvalidPlacement = errors.New("invalid placement")

// EncodingError reports a cell value that has no position-string letter. It is only
// raised through panic: a Board built with Place can never hold such a value.
type EncodingError struct {
	Row, Col int
	Piece    Piece
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode board: no letter for %s at (%d,%d)", e.Piece, e.Row, e.Col)
}

// Encode returns the full position string consumed by the search engine.
func Encode(b Board) string {
	return Placement(b) + MetadataSuffix
}

// Placement run-length encodes the grid rank by rank, from row 0 to row 7.
func Placement(b Board) string {
	var sb strings.Builder
	sb.Grow(64 + Size)
	for row := 0; row < Size; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for col := 0; col < Size; col++ {
			p := b.cells[row][col]
			if p == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			l, ok := p.Letter()
			if !ok {
				panic(&EncodingError{Row: row, Col: col, Piece: p})
			}
			sb.WriteByte(l)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}
	return sb.String()
}

// ParsePlacement reads a placement section back into a Board. Anything after the
// first whitespace (side to move, castling, clocks) is ignored.
func ParsePlacement(s string) (Board, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Board{}, fmt.Errorf("%w: empty string", ErrInvalidPlacement)
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != Size {
		return Board{}, fmt.Errorf("%w: want %d ranks, got %d", ErrInvalidPlacement, Size, len(ranks))
	}

	var b Board
	for row, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				if col > Size {
					return Board{}, fmt.Errorf("%w: rank %d overflows", ErrInvalidPlacement, Size-row)
				}
				continue
			}
			p, ok := PieceFromLetter(ch)
			if !ok {
				return Board{}, fmt.Errorf("%w: unknown piece %q", ErrInvalidPlacement, ch)
			}
			if col >= Size {
				return Board{}, fmt.Errorf("%w: rank %d overflows", ErrInvalidPlacement, Size-row)
			}
			b.cells[row][col] = p
			col++
		}
		if col != Size {
			return Board{}, fmt.Errorf("%w: rank %d has %d squares", ErrInvalidPlacement, Size-row, col)
		}
	}
	return b, nil
}
