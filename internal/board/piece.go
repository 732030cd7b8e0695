package board

import "fmt"

// Color identifies the side a piece belongs to.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// Kind is the piece type independent of color.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{
	NoKind: 0,
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
	King:   "king",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Piece is the content of a single board cell. Empty is a value, not an absence.
type Piece uint8

// Declaration order is the cycling order.
const (
	Empty Piece = iota
	WhitePawn
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing

	pieceCount = int(BlackKing) + 1
)

// Pieces lists every valid Piece in cycling order.
var Pieces = [pieceCount]Piece{
	Empty,
	WhitePawn, WhiteKnight, WhiteBishop, WhiteRook, WhiteQueen, WhiteKing,
	BlackPawn, BlackKnight, BlackBishop, BlackRook, BlackQueen, BlackKing,
}

// NewPiece builds the piece for a color/kind pair; NoColor or NoKind yields Empty.
func NewPiece(c Color, k Kind) Piece {
	if k == NoKind || k > King {
		return Empty
	}
	switch c {
	case White:
		return Piece(k)
	case Black:
		return Piece(uint8(k) + uint8(King))
	default:
		return Empty
	}
}

func (p Piece) Valid() bool { return int(p) < pieceCount }

func (p Piece) Color() Color {
	switch {
	case p >= WhitePawn && p <= WhiteKing:
		return White
	case p >= BlackPawn && p <= BlackKing:
		return Black
	default:
		return NoColor
	}
}

func (p Piece) Kind() Kind {
	switch p.Color() {
	case White:
		return Kind(p)
	case Black:
		return Kind(uint8(p) - uint8(King))
	default:
		return NoKind
	}
}

// Letter returns the position-string code: uppercase for White, lowercase for Black.
// ok is false for Empty and invalid values.
func (p Piece) Letter() (byte, bool) {
	k := p.Kind()
	if k == NoKind {
		return 0, false
	}
	l := kindLetters[k]
	if p.Color() == White {
		l -= 'a' - 'A'
	}
	return l, true
}

// Name is the asset and wire name, e.g. "w_pawn". Empty has the name "".
func (p Piece) Name() string {
	switch p.Color() {
	case White:
		return "w_" + p.Kind().String()
	case Black:
		return "b_" + p.Kind().String()
	default:
		return ""
	}
}

func (p Piece) String() string {
	if p == Empty {
		return "empty"
	}
	if !p.Valid() {
		return fmt.Sprintf("piece(%d)", uint8(p))
	}
	return p.Name()
}

// Next is the successor in the fixed cycling order, wrapping back to Empty.
func (p Piece) Next() Piece {
	if !p.Valid() {
		return Empty
	}
	return Pieces[(int(p)+1)%pieceCount]
}

// Opposite swaps the color and keeps the kind. Empty has no color and maps to itself.
func (p Piece) Opposite() Piece {
	switch p.Color() {
	case White:
		return NewPiece(Black, p.Kind())
	case Black:
		return NewPiece(White, p.Kind())
	default:
		return p
	}
}

// ParsePiece resolves a Name() back to its Piece.
func ParsePiece(name string) (Piece, error) {
	for _, p := range Pieces {
		if p.Name() == name {
			return p, nil
		}
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidPiece, name)
}

// PieceFromLetter maps a position-string letter to its Piece.
func PieceFromLetter(l byte) (Piece, bool) {
	color := White
	lower := l
	if l >= 'a' && l <= 'z' {
		color = Black
	} else {
		lower = l + ('a' - 'A')
	}
	for k := Pawn; k <= King; k++ {
		if kindLetters[k] == lower {
			return NewPiece(color, k), true
		}
	}
	return Empty, false
}

// ShortcutPiece maps the editor's placement keys: lowercase places a White piece,
// uppercase a Black piece.
func ShortcutPiece(r rune) (Piece, bool) {
	if r > 0x7f {
		return Empty, false
	}
	l := byte(r)
	color := White
	if l >= 'A' && l <= 'Z' {
		color = Black
		l += 'a' - 'A'
	}
	for k := Pawn; k <= King; k++ {
		if kindLetters[k] == l {
			return NewPiece(color, k), true
		}
	}
	return Empty, false
}
