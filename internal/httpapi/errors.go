package httpapi

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-gif-solver/internal/board"
	"github.com/park285/chess-gif-solver/internal/chess"
	"github.com/park285/chess-gif-solver/internal/chess/uci"
	"github.com/park285/chess-gif-solver/internal/service/solver"
	"github.com/park285/chess-gif-solver/pkg/solverdto"
)

// mapError marks only a busy session as retryable. Engine failures are reported once.
func mapError(err error) (int, solverdto.DomainError) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	switch {
	case errors.Is(err, board.ErrOutOfRange):
		return fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeOutOfRange, Message: msg}
	case errors.Is(err, board.ErrInvalidPiece), errors.Is(err, solver.ErrUnknownShortcut):
		return fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeInvalidPiece, Message: msg}
	case errors.Is(err, board.ErrInvalidPlacement):
		return fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeInvalidPlacement, Message: msg}
	case errors.Is(err, chess.ErrInvalidBudget):
		return fasthttp.StatusBadRequest, solverdto.DomainError{Code: solverdto.CodeBadRequest, Message: msg}
	case errors.Is(err, chess.ErrInvalidPosition):
		return fasthttp.StatusUnprocessableEntity, solverdto.DomainError{Code: solverdto.CodeInvalidPosition, Message: msg}
	case errors.Is(err, solver.ErrSolveInProgress):
		return fasthttp.StatusConflict, solverdto.DomainError{Code: solverdto.CodeSolveInProgress, Message: msg, Retryable: true}
	case errors.Is(err, solver.ErrSolveNotFound), errors.Is(err, solver.ErrAnimationMissing):
		return fasthttp.StatusNotFound, solverdto.DomainError{Code: solverdto.CodeNotFound, Message: msg}
	case errors.Is(err, uci.ErrSearchTimeout):
		return fasthttp.StatusGatewayTimeout, solverdto.DomainError{Code: solverdto.CodeEngineFailure, Message: msg}
	case errors.Is(err, chess.ErrEngineUnavailable), errors.Is(err, chess.ErrEngineRequest):
		return fasthttp.StatusBadGateway, solverdto.DomainError{Code: solverdto.CodeEngineFailure, Message: msg}
	case errors.Is(err, board.ErrMalformedMove):
		return fasthttp.StatusBadGateway, solverdto.DomainError{Code: solverdto.CodeEngineFailure, Message: msg}
	default:
		return fasthttp.StatusInternalServerError, solverdto.DomainError{Code: solverdto.CodeInternal, Message: "internal error"}
	}
}
