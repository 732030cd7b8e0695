package board

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlacementEmptyBoard(t *testing.T) {
	var b Board
	if got := Placement(b); got != EmptyPlacement {
		t.Fatalf("Placement = %q, want %q", got, EmptyPlacement)
	}
	if got := Encode(b); got != EmptyPlacement+" w - - 0 1" {
		t.Fatalf("Encode = %q", got)
	}
}

func TestPlacementScenario(t *testing.T) {
	var b Board
	if err := b.Place(6, 4, WhitePawn); err != nil {
		t.Fatal(err)
	}
	if err := b.Place(0, 4, BlackKing); err != nil {
		t.Fatal(err)
	}
	// row 0 holds the king, row 6 the pawn.
	if got, want := Placement(b), "4k3/8/8/8/8/8/4P3/8"; got != want {
		t.Fatalf("Placement = %q, want %q", got, want)
	}
}

func TestPlacementStartPosition(t *testing.T) {
	start := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"
	b, err := ParsePlacement(start + " w KQkq - 0 1")
	if err != nil {
		t.Fatalf("ParsePlacement: %v", err)
	}
	if got := Placement(b); got != start {
		t.Fatalf("Placement = %q", got)
	}
	if p, _ := b.CellAt(7, 4); p != WhiteKing {
		t.Fatalf("e1 = %s", p)
	}
	if p, _ := b.CellAt(0, 3); p != BlackQueen {
		t.Fatalf("d8 = %s", p)
	}
}

func TestPlacementRunsFlushBeforePieces(t *testing.T) {
	var b Board
	_ = b.Place(3, 0, WhiteRook)
	_ = b.Place(3, 7, BlackRook)
	_ = b.Place(5, 3, WhiteBishop)
	_ = b.Place(5, 4, BlackBishop)
	want := "8/8/8/R6r/8/3Bb3/8/8"
	if got := Placement(b); got != want {
		t.Fatalf("Placement = %q, want %q", got, want)
	}
}

func TestPlacementRoundTripRandomBoards(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		var b Board
		density := rng.IntN(Size*Size + 1)
		for n := 0; n < density; n++ {
			_ = b.Place(rng.IntN(Size), rng.IntN(Size), Pieces[rng.IntN(len(Pieces))])
		}
		enc := Encode(b)
		back, err := ParsePlacement(enc)
		if err != nil {
			t.Fatalf("ParsePlacement(%q): %v", enc, err)
		}
		if diff := cmp.Diff(b.Cells(), back.Cells()); diff != "" {
			t.Fatalf("round trip mismatch for %q (-want +got):\n%s", enc, diff)
		}
	}
}

func TestParsePlacementRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8",
		"8/8/8/8/8/8/8/8/8",
		"9/8/8/8/8/8/8/8",
		"7/8/8/8/8/8/8/8",
		"ppppppppp/8/8/8/8/8/8/8",
		"4x3/8/8/8/8/8/8/8",
		"44/8/8/8/8/8/8/8/",
	}
	for _, s := range bad {
		if _, err := ParsePlacement(s); !errors.Is(err, ErrInvalidPlacement) {
			t.Errorf("ParsePlacement(%q) err = %v, want ErrInvalidPlacement", s, err)
		}
	}
}

func TestPlacementPanicsOnUnknownCell(t *testing.T) {
	var b Board
	b.cells[2][2] = Piece(200)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		var encErr *EncodingError
		err, ok := r.(error)
		if !ok || !errors.As(err, &encErr) {
			t.Fatalf("panic value %v is not an EncodingError", r)
		}
		if encErr.Row != 2 || encErr.Col != 2 {
			t.Fatalf("wrong cell in error: %+v", encErr)
		}
	}()
	_ = Placement(b)
}
