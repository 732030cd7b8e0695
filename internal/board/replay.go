package board

// Replay expands a principal variation into the board states it passes through.
// The result holds len(moves)+1 independent snapshots: start first, then one per
// move. A move overwrites its destination with whatever stood on its source, so a
// capture is just an overwrite and moving from an empty square empties the
// destination. Legality is never checked.
func Replay(start Board, moves []Move) []Board {
	frames := make([]Board, 0, len(moves)+1)
	work := start.Snapshot()
	frames = append(frames, work.Snapshot())
	for _, mv := range moves {
		piece := work.cells[mv.From.Row][mv.From.Col]
		work.cells[mv.From.Row][mv.From.Col] = Empty
		work.cells[mv.To.Row][mv.To.Col] = piece
		frames = append(frames, work.Snapshot())
	}
	return frames
}
