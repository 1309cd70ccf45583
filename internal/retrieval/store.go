// Package retrieval turns passages into embedded index entries and answers
// similarity queries over them.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"legalrag/internal/domain"
	"legalrag/internal/vectorstore"
)

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 3

// Store adapts an embedder and a raw vector index to domain.Retriever.
type Store struct {
	embedder domain.Embedder
	index    vectorstore.Index
	logger   *slog.Logger
}

var _ domain.Retriever = (*Store)(nil)

// NewStore wires an embedder to an index.
func NewStore(embedder domain.Embedder, index vectorstore.Index, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{embedder: embedder, index: index, logger: logger}
}

// Ingest embeds and stores passages. Passages whose identity already exists
// replace the stored entry.
func (s *Store) Ingest(ctx context.Context, passages []domain.Passage) (domain.IngestResult, error) {
	if len(passages) == 0 {
		return domain.IngestResult{}, fmt.Errorf("no passages to ingest: %w", domain.ErrEmptyInput)
	}
	entries := make([]vectorstore.Entry, len(passages))
	for i, p := range passages {
		vec, err := s.embedder.Embed(ctx, p.Text)
		if err != nil {
			return domain.IngestResult{}, fmt.Errorf("embed passage %d: %w", i+1, err)
		}
		entries[i] = vectorstore.Entry{
			ID:       passageID(p, i),
			Text:     p.Text,
			Metadata: domain.MetadataOf(p),
			Vector:   vec,
		}
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return domain.IngestResult{}, domain.Upstream("index upsert", err)
	}
	total, err := s.index.Count(ctx)
	if err != nil {
		return domain.IngestResult{}, domain.Upstream("index count", err)
	}
	s.logger.Info("Stored passages",
		slog.String("collection", s.index.Name()),
		slog.Int("chunks_added", len(entries)),
		slog.Int("total_documents", total))
	return domain.IngestResult{ChunksAdded: len(entries), TotalStored: total}, nil
}

// passageID picks the stored identity: the passage ID, else its global id,
// else its position in the batch.
func passageID(p domain.Passage, i int) string {
	switch {
	case p.ID != "":
		return p.ID
	case p.GlobalID != "":
		return p.GlobalID
	default:
		return fmt.Sprintf("chunk_%d", i)
	}
}

// Query returns the passages closest to text, at most min(topK, stored).
func (s *Store) Query(ctx context.Context, text string, topK int) (domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.QueryResult{}, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	count, err := s.index.Count(ctx)
	if err != nil {
		return domain.QueryResult{}, domain.Upstream("index count", err)
	}
	if count == 0 {
		return domain.QueryResult{}, domain.ErrEmptyStore
	}
	k := min(topK, count)

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return domain.QueryResult{}, domain.Upstream("index search", err)
	}

	results := make([]domain.RetrievalResult, len(hits))
	for i, h := range hits {
		d := h.Distance
		results[i] = domain.RetrievalResult{ID: h.ID, Text: h.Text, Metadata: h.Metadata, Distance: &d}
	}
	s.logger.Debug("Query answered",
		slog.String("collection", s.index.Name()),
		slog.Int("top_k", k),
		slog.Int("count", len(results)))
	return domain.QueryResult{Query: text, Results: results, Count: len(results)}, nil
}

// Clear drops every stored passage. The collection keeps its name.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	if err := s.index.Reset(ctx); err != nil {
		return false, domain.Upstream("index reset", err)
	}
	s.logger.Info("Cleared collection", slog.String("collection", s.index.Name()))
	return true, nil
}

// Stats reports the collection name, entry count and location.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return domain.StoreStats{}, domain.Upstream("index count", err)
	}
	return domain.StoreStats{
		CollectionName: s.index.Name(),
		TotalDocuments: n,
		StoragePath:    s.index.Location(),
	}, nil
}
