package solverdto

// Error codes carried by DomainError.
const (
	CodeBadRequest       = "bad_request"
	CodeOutOfRange       = "out_of_range"
	CodeInvalidPiece     = "invalid_piece"
	CodeInvalidPlacement = "invalid_placement"
	CodeInvalidPosition  = "invalid_position"
	CodeSolveInProgress  = "solve_in_progress"
	CodeEngineFailure    = "engine_failure"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "solver service error"
}
