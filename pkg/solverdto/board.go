package solverdto

// BoardState is the live board. Cells holds piece names ("w_pawn", "" for empty),
// row 0 = rank 8.
type BoardState struct {
	Placement string       `json:"placement"`
	FEN       string       `json:"fen"`
	Cells     [8][8]string `json:"cells"`
	Busy      bool         `json:"busy"`
	Summary   string       `json:"summary,omitempty"`
	LastSolve string       `json:"last_solve_id,omitempty"`
}

type LoadBoardRequest struct {
	Placement string `json:"placement"`
}

type SquareRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type PlaceRequest struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Piece string `json:"piece"`
}

// KeyRequest places the piece bound to a shortcut key: p n b r q k for White,
// P N B R Q K for Black.
type KeyRequest struct {
	Row int    `json:"row"`
	Col int    `json:"col"`
	Key string `json:"key"`
}
