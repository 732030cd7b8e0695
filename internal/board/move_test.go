package board

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMove(t *testing.T) {
	cases := []struct {
		token string
		want  Move
	}{
		{"e2e4", Move{From: Square{6, 4}, To: Square{4, 4}}},
		{"a8h1", Move{From: Square{0, 0}, To: Square{7, 7}}},
		{"h1a8", Move{From: Square{7, 7}, To: Square{0, 0}}},
		{"e7e8q", Move{From: Square{1, 4}, To: Square{0, 4}, Suffix: "q"}},
	}
	for _, tc := range cases {
		got, err := ParseMove(tc.token)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", tc.token, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("ParseMove(%q) (-want +got):\n%s", tc.token, diff)
		}
		if got.String() != tc.token {
			t.Fatalf("String() = %q, want %q", got.String(), tc.token)
		}
	}
}

func TestParseMoveRejectsMalformed(t *testing.T) {
	for _, tok := range []string{"", "e2", "e2e", "i2e4", "e9e4", "e2e0", "E2E4", "2e4e", "e2-e4"} {
		if _, err := ParseMove(tok); !errors.Is(err, ErrMalformedMove) {
			t.Errorf("ParseMove(%q) err = %v, want ErrMalformedMove", tok, err)
		}
	}
}

func TestParseMovesStopsAtFirstBadToken(t *testing.T) {
	moves, err := ParseMoves([]string{"e2e4", "e7e5", "g1f3"})
	if err != nil || len(moves) != 3 {
		t.Fatalf("ParseMoves = %v, %v", moves, err)
	}
	if _, err := ParseMoves([]string{"e2e4", "zz", "g1f3"}); !errors.Is(err, ErrMalformedMove) {
		t.Fatalf("expected ErrMalformedMove, got %v", err)
	}
}

func TestParseSquare(t *testing.T) {
	sq, err := ParseSquare("c6")
	if err != nil || sq != (Square{Row: 2, Col: 2}) {
		t.Fatalf("ParseSquare(c6) = %+v, %v", sq, err)
	}
	if _, err := ParseSquare("c66"); err == nil {
		t.Fatalf("expected error")
	}
}
