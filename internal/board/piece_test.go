package board

import "testing"

func TestPieceAttributes(t *testing.T) {
	cases := []struct {
		p      Piece
		color  Color
		kind   Kind
		letter byte
		name   string
	}{
		{WhitePawn, White, Pawn, 'P', "w_pawn"},
		{WhiteKnight, White, Knight, 'N', "w_knight"},
		{WhiteBishop, White, Bishop, 'B', "w_bishop"},
		{WhiteRook, White, Rook, 'R', "w_rook"},
		{WhiteQueen, White, Queen, 'Q', "w_queen"},
		{WhiteKing, White, King, 'K', "w_king"},
		{BlackPawn, Black, Pawn, 'p', "b_pawn"},
		{BlackKnight, Black, Knight, 'n', "b_knight"},
		{BlackBishop, Black, Bishop, 'b', "b_bishop"},
		{BlackRook, Black, Rook, 'r', "b_rook"},
		{BlackQueen, Black, Queen, 'q', "b_queen"},
		{BlackKing, Black, King, 'k', "b_king"},
	}
	for _, tc := range cases {
		if tc.p.Color() != tc.color || tc.p.Kind() != tc.kind {
			t.Errorf("%s: color/kind = %s/%s", tc.name, tc.p.Color(), tc.p.Kind())
		}
		if l, ok := tc.p.Letter(); !ok || l != tc.letter {
			t.Errorf("%s: letter = %q,%v want %q", tc.name, l, ok, tc.letter)
		}
		if tc.p.Name() != tc.name {
			t.Errorf("name = %q want %q", tc.p.Name(), tc.name)
		}
		if back, err := ParsePiece(tc.name); err != nil || back != tc.p {
			t.Errorf("ParsePiece(%q) = %s,%v", tc.name, back, err)
		}
		if back, ok := PieceFromLetter(tc.letter); !ok || back != tc.p {
			t.Errorf("PieceFromLetter(%q) = %s,%v", tc.letter, back, ok)
		}
		if NewPiece(tc.color, tc.kind) != tc.p {
			t.Errorf("NewPiece(%s,%s) mismatch", tc.color, tc.kind)
		}
	}

	if _, ok := Empty.Letter(); ok {
		t.Fatalf("empty must not have a letter")
	}
	if Empty.Color() != NoColor || Empty.Kind() != NoKind {
		t.Fatalf("empty has color or kind")
	}
	if _, err := ParsePiece("w_dragon"); err == nil {
		t.Fatalf("expected error for unknown name")
	}
}

func TestNextWrapsAround(t *testing.T) {
	if Empty.Next() != WhitePawn {
		t.Fatalf("Empty.Next = %s", Empty.Next())
	}
	if WhiteKing.Next() != BlackPawn {
		t.Fatalf("WhiteKing.Next = %s", WhiteKing.Next())
	}
	if BlackKing.Next() != Empty {
		t.Fatalf("BlackKing.Next = %s", BlackKing.Next())
	}
	p := Empty
	for i := 0; i < len(Pieces); i++ {
		p = p.Next()
	}
	if p != Empty {
		t.Fatalf("13 steps should return to empty, got %s", p)
	}
}

func TestOpposite(t *testing.T) {
	for _, p := range Pieces {
		o := p.Opposite()
		if p == Empty {
			if o != Empty {
				t.Fatalf("empty opposite = %s", o)
			}
			continue
		}
		if o.Kind() != p.Kind() || o.Color() == p.Color() {
			t.Fatalf("%s opposite = %s", p, o)
		}
		if o.Opposite() != p {
			t.Fatalf("opposite is not an involution for %s", p)
		}
	}
}

func TestShortcutPiece(t *testing.T) {
	want := map[rune]Piece{
		'p': WhitePawn, 'P': BlackPawn,
		'n': WhiteKnight, 'N': BlackKnight,
		'b': WhiteBishop, 'B': BlackBishop,
		'r': WhiteRook, 'R': BlackRook,
		'q': WhiteQueen, 'Q': BlackQueen,
		'k': WhiteKing, 'K': BlackKing,
	}
	for r, p := range want {
		got, ok := ShortcutPiece(r)
		if !ok || got != p {
			t.Errorf("ShortcutPiece(%q) = %s,%v want %s", r, got, ok, p)
		}
	}
	for _, r := range []rune{'x', 'Z', '1', ' ', '♔'} {
		if _, ok := ShortcutPiece(r); ok {
			t.Errorf("ShortcutPiece(%q) should not resolve", r)
		}
	}
}
