// Package hashing implements an offline bag-of-words embedder that maps
// tokens into a fixed number of buckets. It needs no corpus preparation, so
// passages can be added to an index one document at a time.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"slices"

	"legalrag/internal/textutil"
)

// DefaultDimension is the vector size used when none is given.
const DefaultDimension = 512

// Embedder is a signed feature-hashing vectorizer with sublinear term frequency.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder producing vectors of the given size.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the L2-normalised hashed term vector for text. Text without
// any indexable token yields a zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dimension)
	tf := make(map[string]int)
	for _, tok := range textutil.Tokens(text) {
		tf[tok]++
	}
	if len(tf) == 0 {
		return vec, nil
	}
	// Sorted so colliding tokens always sum in the same order.
	toks := make([]string, 0, len(tf))
	for tok := range tf {
		toks = append(toks, tok)
	}
	slices.Sort(toks)
	for _, tok := range toks {
		idx, sign := e.bucket(tok)
		vec[idx] += sign * (1 + math.Log(float64(tf[tok])))
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// bucket hashes a token to an index and a sign. The sign keeps colliding
// tokens from always reinforcing each other.
func (e *Embedder) bucket(tok string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}
