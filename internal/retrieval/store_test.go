package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
	"legalrag/internal/embedding/hashing"
	"legalrag/internal/logging"
	"legalrag/internal/vectorstore/memory"
)

type failingEmbedder struct{ err error }

func (failingEmbedder) Name() string { return "failing" }

func (f failingEmbedder) Embed(context.Context, string) ([]float64, error) { return nil, f.err }

func newStore() *Store {
	return NewStore(hashing.NewEmbedder(128), memory.NewStorage("legal_documents"), logging.Discard())
}

func passages(texts ...string) []domain.Passage {
	out := make([]domain.Passage, len(texts))
	for i, t := range texts {
		out[i] = domain.Passage{ID: "doc_chunk_" + string(rune('1'+i)), Text: t, Index: i + 1, Source: "doc"}
	}
	return out
}

func TestIngest_Empty(t *testing.T) {
	_, err := newStore().Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestIngest_UpsertKeepsCount(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	ps := passages("Payment is due in 30 days.", "Either party may terminate.")

	res, err := s.Ingest(ctx, ps)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{ChunksAdded: 2, TotalStored: 2}, res)

	res, err = s.Ingest(ctx, ps)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{ChunksAdded: 2, TotalStored: 2}, res)
}

func TestIngest_IdentityFallback(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	_, err := s.Ingest(ctx, []domain.Passage{
		{GlobalID: "chunk_7", Text: "global id wins"},
		{Text: "positional id"},
	})
	require.NoError(t, err)

	q, err := s.Query(ctx, "positional id", 2)
	require.NoError(t, err)
	ids := []string{q.Results[0].ID, q.Results[1].ID}
	assert.ElementsMatch(t, []string{"chunk_7", "chunk_1"}, ids)
}

func TestIngest_EmbedFailure(t *testing.T) {
	s := NewStore(failingEmbedder{domain.Upstream("embed", errors.New("down"))}, memory.NewStorage("c"), logging.Discard())
	_, err := s.Ingest(context.Background(), passages("x"))
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Query(ctx, "   ", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = s.Query(ctx, "termination", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyStore)
}

func TestQuery_ClampsAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	_, err := s.Ingest(ctx, passages(
		"Confidential information must not be disclosed.",
		"The termination notice period is 30 days.",
		"Liability is capped at fees paid.",
	))
	require.NoError(t, err)

	q, err := s.Query(ctx, "termination notice period", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Count)
	require.Len(t, q.Results, 3)
	assert.Equal(t, "doc_chunk_2", q.Results[0].ID)
	assert.Equal(t, "doc", q.Results[0].Metadata.Source)
	assert.Equal(t, 2, q.Results[0].Metadata.Index)
	for i := 1; i < len(q.Results); i++ {
		require.NotNil(t, q.Results[i].Distance)
		assert.LessOrEqual(t, *q.Results[i-1].Distance, *q.Results[i].Distance)
	}

	q, err = s.Query(ctx, "termination", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, q.Count)

	q, err = s.Query(ctx, "termination", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Count)
	assert.Equal(t, "termination", q.Query)
}

func TestClearThenReuse(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	_, err := s.Ingest(ctx, passages("a clause"))
	require.NoError(t, err)

	ok, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Query(ctx, "clause", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyStore)

	res, err := s.Ingest(ctx, passages("a new clause"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalStored)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStats{CollectionName: "legal_documents", TotalDocuments: 1, StoragePath: "memory"}, st)
}
