package solver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/chess-gif-solver/internal/domain"
)

var ErrDuplicateSolve = errors.New("solve record already exists")

// Repository persists solve history. Lookups of unknown ids return (nil, nil).
type Repository interface {
	InsertSolve(ctx context.Context, rec *domain.SolveRecord) error
	GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error)
	RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error)
}

const Schema = `
CREATE TABLE IF NOT EXISTS solves (
	id                 UUID PRIMARY KEY,
	placement          TEXT NOT NULL,
	fen                TEXT NOT NULL,
	moves_uci          JSONB NOT NULL,
	moves_san          JSONB NOT NULL,
	summary            TEXT NOT NULL,
	best_move          TEXT NOT NULL DEFAULT '',
	score_cp           INTEGER NOT NULL DEFAULT 0,
	mate               INTEGER NOT NULL DEFAULT 0,
	has_mate           BOOLEAN NOT NULL DEFAULT FALSE,
	depth              INTEGER NOT NULL DEFAULT 0,
	frames             INTEGER NOT NULL DEFAULT 0,
	budget_ms          BIGINT NOT NULL,
	engine_latency_ms  BIGINT NOT NULL,
	animation          BYTEA,
	animation_path     TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS solves_created_at_idx ON solves (created_at DESC);`

const selectColumns = `
			id,
			placement,
			fen,
			moves_uci,
			moves_san,
			summary,
			best_move,
			score_cp,
			mate,
			has_mate,
			depth,
			frames,
			budget_ms,
			engine_latency_ms,
			animation,
			animation_path,
			created_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the solves table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create solves schema: %w", err)
	}
	return nil
}

func (r *repository) InsertSolve(ctx context.Context, rec *domain.SolveRecord) error {
	if rec == nil {
		return fmt.Errorf("nil solve record")
	}
	movesUCI, err := json.Marshal(nonNil(rec.MovesUCI))
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(rec.MovesSAN))
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO solves (
			id,
			placement,
			fen,
			moves_uci,
			moves_san,
			summary,
			best_move,
			score_cp,
			mate,
			has_mate,
			depth,
			frames,
			budget_ms,
			engine_latency_ms,
			animation,
			animation_path,
			created_at
		)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.Placement,
		rec.FEN,
		movesUCI,
		movesSAN,
		rec.Summary,
		rec.BestMove,
		rec.ScoreCP,
		rec.Mate,
		rec.HasMate,
		rec.Depth,
		rec.Frames,
		rec.Budget.Milliseconds(),
		rec.EngineLatency.Milliseconds(),
		rec.Animation,
		rec.AnimationPath,
		rec.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateSolve
	}
	if err != nil {
		return fmt.Errorf("insert solve: %w", err)
	}
	return nil
}

func (r *repository) GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error) {
	query := `SELECT` + selectColumns + `
		FROM solves
		WHERE id = $1`

	rec, err := scanSolve(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		// not a UUID, so it cannot exist
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select solve: %w", err)
	}
	return rec, nil
}

func (r *repository) RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + `
		FROM solves
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select solves: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SolveRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSolve(rows)
		if err != nil {
			return nil, fmt.Errorf("scan solve: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solves: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolve(row rowScanner) (*domain.SolveRecord, error) {
	var (
		rec          domain.SolveRecord
		movesUCIJSON []byte
		movesSANJSON []byte
		budgetMS     int64
		latencyMS    int64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Placement,
		&rec.FEN,
		&movesUCIJSON,
		&movesSANJSON,
		&rec.Summary,
		&rec.BestMove,
		&rec.ScoreCP,
		&rec.Mate,
		&rec.HasMate,
		&rec.Depth,
		&rec.Frames,
		&budgetMS,
		&latencyMS,
		&rec.Animation,
		&rec.AnimationPath,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Budget = time.Duration(budgetMS) * time.Millisecond
	rec.EngineLatency = time.Duration(latencyMS) * time.Millisecond
	if err := json.Unmarshal(movesUCIJSON, &rec.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &rec.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
