package domain

import "time"

// SolveRecord is one completed engine request: the position handed over, the line that
// came back, and the animation rendered from it.
type SolveRecord struct {
	ID            string
	Placement     string
	FEN           string
	MovesUCI      []string
	MovesSAN      []string
	Summary       string
	BestMove      string
	ScoreCP       int
	Mate          int
	HasMate       bool
	Depth         int
	Frames        int
	Budget        time.Duration
	EngineLatency time.Duration
	Animation     []byte
	AnimationPath string
	CreatedAt     time.Time
}

// HasAnimation reports whether a GIF was produced; empty lines produce none.
func (r *SolveRecord) HasAnimation() bool {
	return r != nil && len(r.Animation) > 0
}
