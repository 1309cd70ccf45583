package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
	"legalrag/internal/vectorstore"
)

func openTemp(t *testing.T) (*Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "legal_documents.db")
	s, err := Open(context.Background(), path, "legal_documents")
	require.NoError(t, err)
	return s, path
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)
	meta := domain.Metadata{Index: 1, Source: "nda.pdf", CharCount: 5, WordCount: 1, PageNumber: 2}
	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{
		{ID: "nda.pdf_chunk_1", Text: "hello", Metadata: meta, Vector: []float64{0.6, 0.8}},
	}))
	require.NoError(t, s.Close())

	s, err := Open(ctx, path, "legal_documents")
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := s.Search(ctx, []float64{0.6, 0.8}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "nda.pdf_chunk_1", hits[0].ID)
	assert.Equal(t, meta, hits[0].Metadata)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.Equal(t, path, s.Location())
}

func TestStorage_UpsertKeepsPositionAndTies(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{
		{ID: "first", Text: "1", Vector: []float64{1, 1}},
		{ID: "second", Text: "2", Vector: []float64{2, 2}},
	}))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{{ID: "first", Text: "1b", Vector: []float64{3, 3}}}))

	n, _ := s.Count(ctx)
	assert.Equal(t, 2, n)

	hits, err := s.Search(ctx, []float64{1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].ID)
	assert.Equal(t, "1b", hits[0].Text)
	assert.Equal(t, "second", hits[1].ID)
}

func TestStorage_Reset(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{{ID: "a", Vector: []float64{1}}}))
	require.NoError(t, s.Reset(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{{ID: "b", Vector: []float64{1}}}))
	n, _ = s.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestOpen_RejectsBadCollectionName(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), "drop table;")
	assert.Error(t, err)
}

func TestVectorCodec(t *testing.T) {
	v := []float64{0, -1.5, 3.25e10}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
