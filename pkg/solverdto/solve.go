package solverdto

import "time"

type SolveRequest struct {
	BudgetSeconds float64 `json:"budget_seconds,omitempty"`
}

type SolveResult struct {
	ID           string    `json:"id,omitempty"`
	FEN          string    `json:"fen"`
	Moves        []string  `json:"moves"`
	MovesSAN     []string  `json:"moves_san,omitempty"`
	Summary      string    `json:"summary"`
	ScoreCP      int       `json:"score_cp"`
	Mate         *int      `json:"mate,omitempty"`
	Depth        int       `json:"depth"`
	Frames       int       `json:"frames"`
	Cached       bool      `json:"cached"`
	BudgetMS     int64     `json:"budget_ms"`
	AnimationURL string    `json:"animation_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

type HistoryResponse struct {
	Solves []SolveResult `json:"solves"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	Busy   bool   `json:"busy"`
}
