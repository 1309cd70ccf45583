package memory

import (
	"context"
	"errors"
	"sync"

	"legalrag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Entries keep their first insertion position when upserted again.
type Storage struct {
	mu      sync.RWMutex
	name    string
	entries []vectorstore.Entry
	byID    map[string]int
}

var _ vectorstore.Index = (*Storage)(nil)

func NewStorage(name string) *Storage {
	return &Storage{name: name, byID: make(map[string]int)}
}

func (s *Storage) Name() string { return s.name }

func (s *Storage) Location() string { return "memory" }

func (s *Storage) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			return errors.New("entry without id")
		}
		if len(s.entries) > 0 && len(e.Vector) != len(s.entries[0].Vector) {
			return errors.New("vector dimension mismatch")
		}
		e.Vector = append([]float64(nil), e.Vector...)
		if i, ok := s.byID[e.ID]; ok {
			s.entries[i] = e
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, k int) ([]vectorstore.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Rank(s.entries, vector, k), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Storage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[string]int)
	return nil
}

func (s *Storage) Close() error { return nil }
