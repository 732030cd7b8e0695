package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/park285/chess-gif-solver/internal/domain"
)

const (
	badgerSolvePrefix = "solve:"
	badgerIndexPrefix = "idx:"
)

// BadgerRepository stores history in an embedded badger database (STORE_DIR).
type BadgerRepository struct {
	db *badger.DB
}

type storedSolve struct {
	ID              string    `json:"id"`
	Placement       string    `json:"placement"`
	FEN             string    `json:"fen"`
	MovesUCI        []string  `json:"moves_uci"`
	MovesSAN        []string  `json:"moves_san"`
	Summary         string    `json:"summary"`
	BestMove        string    `json:"best_move"`
	ScoreCP         int       `json:"score_cp"`
	Mate            int       `json:"mate"`
	HasMate         bool      `json:"has_mate"`
	Depth           int       `json:"depth"`
	Frames          int       `json:"frames"`
	BudgetMS        int64     `json:"budget_ms"`
	EngineLatencyMS int64     `json:"engine_latency_ms"`
	Animation       []byte    `json:"animation,omitempty"`
	AnimationPath   string    `json:"animation_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// OpenBadgerRepository opens (or creates) the database in dir. An empty dir opens an
// in-memory database.
func OpenBadgerRepository(dir string) (*BadgerRepository, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

func (r *BadgerRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func solveKey(id string) []byte { return []byte(badgerSolvePrefix + id) }

// indexKey sorts lexically by creation time.
func indexKey(rec *domain.SolveRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", badgerIndexPrefix, rec.CreatedAt.UnixNano(), rec.ID))
}

func (r *BadgerRepository) InsertSolve(ctx context.Context, rec *domain.SolveRecord) error {
	if rec == nil {
		return fmt.Errorf("nil solve record")
	}
	data, err := json.Marshal(toStored(rec))
	if err != nil {
		return fmt.Errorf("marshal solve: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(solveKey(rec.ID))
		if err == nil {
			return ErrDuplicateSolve
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(solveKey(rec.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(rec), []byte(rec.ID))
	})
}

func (r *BadgerRepository) GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error) {
	var rec *domain.SolveRecord
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = loadSolve(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BadgerRepository) RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	out := make([]*domain.SolveRecord, 0, limit)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		prefix := []byte(badgerIndexPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := loadSolve(txn, string(id))
			if err != nil {
				return err
			}
			if rec != nil {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list solves: %w", err)
	}
	return out, nil
}

func loadSolve(txn *badger.Txn, id string) (*domain.SolveRecord, error) {
	item, err := txn.Get(solveKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st storedSolve
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	}); err != nil {
		return nil, fmt.Errorf("decode solve %s: %w", id, err)
	}
	return st.toRecord(), nil
}

func toStored(rec *domain.SolveRecord) storedSolve {
	return storedSolve{
		ID:              rec.ID,
		Placement:       rec.Placement,
		FEN:             rec.FEN,
		MovesUCI:        rec.MovesUCI,
		MovesSAN:        rec.MovesSAN,
		Summary:         rec.Summary,
		BestMove:        rec.BestMove,
		ScoreCP:         rec.ScoreCP,
		Mate:            rec.Mate,
		HasMate:         rec.HasMate,
		Depth:           rec.Depth,
		Frames:          rec.Frames,
		BudgetMS:        rec.Budget.Milliseconds(),
		EngineLatencyMS: rec.EngineLatency.Milliseconds(),
		Animation:       rec.Animation,
		AnimationPath:   rec.AnimationPath,
		CreatedAt:       rec.CreatedAt,
	}
}

func (st storedSolve) toRecord() *domain.SolveRecord {
	return &domain.SolveRecord{
		ID:            st.ID,
		Placement:     st.Placement,
		FEN:           st.FEN,
		MovesUCI:      st.MovesUCI,
		MovesSAN:      st.MovesSAN,
		Summary:       st.Summary,
		BestMove:      st.BestMove,
		ScoreCP:       st.ScoreCP,
		Mate:          st.Mate,
		HasMate:       st.HasMate,
		Depth:         st.Depth,
		Frames:        st.Frames,
		Budget:        time.Duration(st.BudgetMS) * time.Millisecond,
		EngineLatency: time.Duration(st.EngineLatencyMS) * time.Millisecond,
		Animation:     st.Animation,
		AnimationPath: st.AnimationPath,
		CreatedAt:     st.CreatedAt,
	}
}
