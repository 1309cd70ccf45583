// Package chunker splits document text into overlapping passages with
// deterministic identities.
package chunker

import (
	"fmt"
	"sort"
	"strings"

	"legalrag/internal/domain"
)

// DefaultChunkSize is the chunk size used when none is given.
const DefaultChunkSize = 1000

// DefaultOverlap is the number of trailing characters carried into the next passage.
const DefaultOverlap = 200

// Stats aggregates a chunking run.
type Stats struct {
	TotalChunks     int `json:"total_chunks"`
	AvgChunkSize    int `json:"avg_chunk_size"`
	TotalCharacters int `json:"total_characters"`
	TotalWords      int `json:"total_words"`
}

// Result is the output of ChunkText.
type Result struct {
	Passages []domain.Passage
	Stats    Stats
}

// PageResult is the output of ChunkByPages.
type PageResult struct {
	Passages    []domain.Passage
	PageCount   int
	TotalChunks int
}

// ChunkText splits text into passages named "{sourceName}_chunk_{i}".
func ChunkText(text string, chunkSize, overlap int, sourceName string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty: %w", domain.ErrEmptyInput)
	}
	chunks := NewSplitter(chunkSize, overlap).Split(text)

	passages := make([]domain.Passage, len(chunks))
	sum := 0
	for i, c := range chunks {
		n := length(c)
		sum += n
		passages[i] = domain.Passage{
			ID:        fmt.Sprintf("%s_chunk_%d", sourceName, i+1),
			Text:      c,
			Index:     i + 1,
			Total:     len(chunks),
			Source:    sourceName,
			CharCount: n,
			WordCount: len(strings.Fields(c)),
		}
	}
	stats := Stats{
		TotalChunks:     len(chunks),
		TotalCharacters: length(text),
		TotalWords:      len(strings.Fields(text)),
	}
	if len(chunks) > 0 {
		stats.AvgChunkSize = sum / len(chunks)
	}
	return &Result{Passages: passages, Stats: stats}, nil
}

// ChunkByPages chunks every non-blank page on its own, in page order, and
// numbers the resulting passages globally as "chunk_{k}". Each passage keeps
// the page it came from.
func ChunkByPages(pages domain.PageText, chunkSize, overlap int) (*PageResult, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page texts provided: %w", domain.ErrEmptyInput)
	}
	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var all []domain.Passage
	counter := 1
	for _, n := range numbers {
		text := pages[n]
		if strings.TrimSpace(text) == "" {
			continue
		}
		res, err := ChunkText(text, chunkSize, overlap, fmt.Sprintf("page_%d", n))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		for _, p := range res.Passages {
			p.PageNumber = n
			p.GlobalID = fmt.Sprintf("chunk_%d", counter)
			counter++
			all = append(all, p)
		}
	}
	return &PageResult{Passages: all, PageCount: len(pages), TotalChunks: len(all)}, nil
}

// OptimalChunkSize picks a chunk size from the length of text. Small
// documents get small chunks for precise retrieval; large ones get larger
// chunks so fewer passages straddle a boundary.
func OptimalChunkSize(text string) int {
	return OptimalChunkSizeFor(length(text))
}

// OptimalChunkSizeFor is OptimalChunkSize for a known character count.
func OptimalChunkSizeFor(n int) int {
	switch {
	case n < 5000:
		return 500
	case n < 20000:
		return 1000
	case n < 100000:
		return 1500
	default:
		return 2000
	}
}
