package solver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chess-gif-solver/internal/domain"
)

// memrepo keeps history in process memory; used when neither DATABASE_URL nor
// STORE_DIR is configured.
type memrepo struct {
	mu    sync.RWMutex
	seq   int64
	byID  map[string]*domain.SolveRecord
	order map[string]int64
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:  make(map[string]*domain.SolveRecord),
		order: make(map[string]int64),
	}
}

func (m *memrepo) InsertSolve(ctx context.Context, rec *domain.SolveRecord) error {
	if rec == nil {
		return ErrDuplicateSolve
	}
	id := strings.TrimSpace(rec.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; exists {
		return ErrDuplicateSolve
	}
	m.seq++
	m.byID[id] = cloneRecord(rec)
	m.order[id] = m.seq
	return nil
}

func (m *memrepo) GetSolve(ctx context.Context, id string) (*domain.SolveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (m *memrepo) RecentSolves(ctx context.Context, limit int) ([]*domain.SolveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.SolveRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		items = append(items, rec)
	}
	// newest first; insertion order breaks CreatedAt ties
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return m.order[items[i].ID] > m.order[items[j].ID]
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*domain.SolveRecord, len(items))
	for i, rec := range items {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func cloneRecord(rec *domain.SolveRecord) *domain.SolveRecord {
	c := *rec
	c.MovesUCI = append([]string(nil), rec.MovesUCI...)
	c.MovesSAN = append([]string(nil), rec.MovesSAN...)
	c.Animation = append([]byte(nil), rec.Animation...)
	return &c
}
