package board

import (
	"errors"
	"fmt"
)

var ErrMalformedMove = errors.New("malformed move token")

// Square addresses a cell by grid coordinates.
type Square struct {
	Row, Col int
}

// ParseSquare reads an algebraic square such as "e2".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}
	sq, ok := squareAt(s[0], s[1])
	if !ok {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}
	return sq, nil
}

func squareAt(file, rank byte) (Square, bool) {
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, false
	}
	return Square{Row: Size - int(rank-'0'), Col: int(file - 'a')}, true
}

func (s Square) String() string {
	if !inRange(s.Row, s.Col) {
		return "??"
	}
	return string([]byte{byte('a' + s.Col), byte('0' + Size - s.Row)})
}

// Move is a parsed move token. Suffix keeps any trailing characters (a promotion
// kind, for instance); replay does not apply them.
type Move struct {
	From   Square
	To     Square
	Suffix string
}

// ParseMove parses a token of at least four characters: file, rank, file, rank.
func ParseMove(token string) (Move, error) {
	if len(token) < 4 {
		return Move{}, fmt.Errorf("%w: %q is shorter than 4 characters", ErrMalformedMove, token)
	}
	from, ok := squareAt(token[0], token[1])
	if !ok {
		return Move{}, fmt.Errorf("%w: %q has a bad source square", ErrMalformedMove, token)
	}
	to, ok := squareAt(token[2], token[3])
	if !ok {
		return Move{}, fmt.Errorf("%w: %q has a bad destination square", ErrMalformedMove, token)
	}
	return Move{From: from, To: to, Suffix: token[4:]}, nil
}

// ParseMoves parses a whole principal variation and stops at the first bad token.
func ParseMoves(tokens []string) ([]Move, error) {
	moves := make([]Move, 0, len(tokens))
	for i, tok := range tokens {
		mv, err := ParseMove(tok)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		moves = append(moves, mv)
	}
	return moves, nil
}

func (m Move) String() string {
	return m.From.String() + m.To.String() + m.Suffix
}
