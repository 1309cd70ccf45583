// Package vectorstore defines the raw vector index used by the retrieval
// store and the similarity helpers shared by its backends.
package vectorstore

import (
	"context"
	"math"
	"sort"

	"legalrag/internal/domain"
)

// Entry is one stored passage with its embedding.
type Entry struct {
	ID       string
	Text     string
	Metadata domain.Metadata
	Vector   []float64
}

// Hit is a search result. Distance is cosine distance, lower is closer.
type Hit struct {
	ID       string
	Text     string
	Metadata domain.Metadata
	Distance float64
}

// Index persists vectors and supports similarity search over one collection.
type Index interface {
	// Name is the collection name.
	Name() string
	// Location describes where the collection lives (path or URL).
	Location() string
	// Upsert inserts entries, replacing any with the same ID.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k hits ordered by ascending distance. Equal
	// distances keep insertion order.
	Search(ctx context.Context, vector []float64, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	// Reset drops the collection and recreates it empty under the same name.
	Reset(ctx context.Context) error
	Close() error
}

// CosineDistance returns 1 - cosine similarity. A zero vector is at
// distance 1 from everything.
func CosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Rank scores entries against vector and returns the k closest, ties in
// input order.
func Rank(entries []Entry, vector []float64, k int) []Hit {
	hits := make([]Hit, len(entries))
	for i, e := range entries {
		hits[i] = Hit{ID: e.ID, Text: e.Text, Metadata: e.Metadata, Distance: CosineDistance(e.Vector, vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
