package solverpresenter

import (
	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/domain"
	"github.com/park285/chess-gif-solver/pkg/solverdto"
)

// AnimationURL is the HTTP path serving a solve's GIF.
func AnimationURL(id string) string {
	return "/api/solves/" + id + "/animation.gif"
}

func ToDTOBoard(b board.Board, busy bool, summary, lastSolveID string) solverdto.BoardState {
	out := solverdto.BoardState{
		Placement: board.Placement(b),
		FEN:       board.Encode(b),
		Busy:      busy,
		Summary:   summary,
		LastSolve: lastSolveID,
	}
	cells := b.Cells()
	for r := range cells {
		for c := range cells[r] {
			out.Cells[r][c] = cells[r][c].Name()
		}
	}
	return out
}

func ToDTOSolve(rec *domain.SolveRecord, cached bool) *solverdto.SolveResult {
	if rec == nil {
		return nil
	}
	out := &solverdto.SolveResult{
		ID:        rec.ID,
		FEN:       rec.FEN,
		Moves:     append([]string{}, rec.MovesUCI...),
		MovesSAN:  append([]string(nil), rec.MovesSAN...),
		Summary:   rec.Summary,
		ScoreCP:   rec.ScoreCP,
		Depth:     rec.Depth,
		Frames:    rec.Frames,
		Cached:    cached,
		BudgetMS:  rec.Budget.Milliseconds(),
		CreatedAt: rec.CreatedAt,
	}
	if rec.HasMate {
		mate := rec.Mate
		out.Mate = &mate
	}
	if rec.HasAnimation() {
		out.AnimationURL = AnimationURL(rec.ID)
	}
	return out
}

func ToDTOHistory(recs []*domain.SolveRecord) solverdto.HistoryResponse {
	out := solverdto.HistoryResponse{Solves: make([]solverdto.SolveResult, 0, len(recs))}
	for _, rec := range recs {
		if dto := ToDTOSolve(rec, false); dto != nil {
			out.Solves = append(out.Solves, *dto)
		}
	}
	return out
}
