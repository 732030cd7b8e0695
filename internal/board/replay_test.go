package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMoves(t *testing.T, tokens ...string) []Move {
	t.Helper()
	moves, err := ParseMoves(tokens)
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	return moves
}

func TestReplayPawnPush(t *testing.T) {
	var start Board
	_ = start.Place(6, 4, WhitePawn)
	_ = start.Place(0, 4, BlackKing)

	frames := Replay(start, mustMoves(t, "e2e4"))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !frames[0].Equal(start) {
		t.Fatalf("first frame differs from start")
	}
	if p, _ := frames[1].CellAt(6, 4); p != Empty {
		t.Fatalf("e2 = %s after e2e4", p)
	}
	if p, _ := frames[1].CellAt(4, 4); p != WhitePawn {
		t.Fatalf("e4 = %s after e2e4", p)
	}
	if p, _ := frames[1].CellAt(0, 4); p != BlackKing {
		t.Fatalf("e8 = %s after e2e4", p)
	}
}

func TestReplayLengthAndFirstFrame(t *testing.T) {
	start, err := ParsePlacement("r3k2r/8/8/8/8/8/8/R3K2R")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 1, 3, 6} {
		tokens := []string{"a1a8", "h8h1", "e1d1", "e8f8", "d1d8", "f8e7"}[:n]
		frames := Replay(start, mustMoves(t, tokens...))
		if len(frames) != n+1 {
			t.Fatalf("%d moves produced %d frames", n, len(frames))
		}
		want := start.Snapshot()
		if diff := cmp.Diff(want.Cells(), frames[0].Cells()); diff != "" {
			t.Fatalf("first frame mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestReplayCaptureOverwrites(t *testing.T) {
	var start Board
	_ = start.Place(7, 0, WhiteRook)
	_ = start.Place(0, 0, BlackRook)
	frames := Replay(start, mustMoves(t, "a1a8"))
	if p, _ := frames[1].CellAt(0, 0); p != WhiteRook {
		t.Fatalf("a8 = %s, want w_rook", p)
	}
	if p, _ := frames[1].CellAt(7, 0); p != Empty {
		t.Fatalf("a1 = %s, want empty", p)
	}
}

func TestReplayEmptySourceClearsDestination(t *testing.T) {
	var start Board
	_ = start.Place(4, 4, BlackQueen)
	frames := Replay(start, mustMoves(t, "d2e4"))
	if len(frames) != 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	if p, _ := frames[1].CellAt(4, 4); p != Empty {
		t.Fatalf("e4 = %s, want empty", p)
	}
}

func TestReplayIgnoresPromotionSuffix(t *testing.T) {
	var start Board
	_ = start.Place(1, 0, WhitePawn)
	frames := Replay(start, mustMoves(t, "a7a8q"))
	if p, _ := frames[1].CellAt(0, 0); p != WhitePawn {
		t.Fatalf("a8 = %s, want w_pawn", p)
	}
}

func TestReplayFramesAreIndependent(t *testing.T) {
	var start Board
	_ = start.Place(6, 4, WhitePawn)
	frames := Replay(start, mustMoves(t, "e2e4", "e4e5", "e5e6"))

	_ = frames[1].Place(4, 4, BlackKing)
	if p, _ := frames[2].CellAt(4, 4); p != Empty {
		t.Fatalf("frame 2 affected by frame 1 mutation: %s", p)
	}
	if p, _ := start.CellAt(6, 4); p != WhitePawn {
		t.Fatalf("start board mutated by replay: %s", p)
	}
	if p, _ := frames[3].CellAt(2, 4); p != WhitePawn {
		t.Fatalf("e6 = %s in last frame", p)
	}
}
