package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
	"legalrag/internal/embedding/hashing"
	"legalrag/internal/logging"
	"legalrag/internal/retrieval"
	"legalrag/internal/vectorstore/memory"
)

type fakeExtractor struct {
	ext *domain.Extraction
	err error
}

func (f fakeExtractor) Extract(context.Context, string) (*domain.Extraction, error) {
	return f.ext, f.err
}

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, p string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// stubRetriever answers every query with fixed results, except questions
// listed in fail.
type stubRetriever struct {
	results []domain.RetrievalResult
	fail    map[string]bool
	delay   time.Duration
	ingest  error
	cleared atomic.Int32

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *stubRetriever) Ingest(_ context.Context, ps []domain.Passage) (domain.IngestResult, error) {
	if r.ingest != nil {
		return domain.IngestResult{}, r.ingest
	}
	return domain.IngestResult{ChunksAdded: len(ps), TotalStored: len(ps)}, nil
}

func (r *stubRetriever) Query(ctx context.Context, q string, topK int) (domain.QueryResult, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	for topic := range r.fail {
		if strings.Contains(q, topic) {
			return domain.QueryResult{}, errors.New("index unavailable")
		}
	}
	res := r.results
	if topK < len(res) {
		res = res[:topK]
	}
	return domain.QueryResult{Query: q, Results: res, Count: len(res)}, nil
}

func (r *stubRetriever) Clear(context.Context) (bool, error) {
	r.cleared.Add(1)
	return true, nil
}

func (r *stubRetriever) Stats(context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{CollectionName: "legal_documents", TotalDocuments: len(r.results)}, nil
}

func result(text, source string, page int) domain.RetrievalResult {
	return domain.RetrievalResult{ID: source + "_chunk_1", Text: text, Metadata: domain.Metadata{Source: source, PageNumber: page}}
}

func extraction(text string) *domain.Extraction {
	return &domain.Extraction{
		Text:     text,
		Pages:    domain.PageText{1: text},
		Metadata: domain.Document{Filename: "contract.pdf", PageCount: 1, TotalWords: len(strings.Fields(text))},
	}
}

func TestAskQuestion_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := retrieval.NewStore(hashing.NewEmbedder(256), memory.NewStorage("legal_documents"), logging.Discard())
	_, err := store.Ingest(ctx, []domain.Passage{{
		ID: "doc_chunk_1", Text: "The termination notice period is 30 days.", Index: 1, Source: "doc", PageNumber: 1,
	}})
	require.NoError(t, err)

	gen := &recordingGenerator{answer: "The notice period is 30 days (Source: doc, Page: 1)."}
	svc := NewRAGService(fakeExtractor{}, store, gen, logging.Discard(), Options{})

	ans, err := svc.AskQuestion(ctx, "What is the notice period for termination?", 3)
	require.NoError(t, err)

	assert.NotEmpty(t, ans.Answer)
	assert.Equal(t, 1, ans.SourceCount)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, domain.Source{Text: "The termination notice period is 30 days....", Source: "doc", Page: 1}, ans.Sources[0])

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "[Source: doc, Page: 1]\nThe termination notice period is 30 days.")
	assert.Contains(t, gen.prompts[0], "Question: What is the notice period for termination?")
}

func TestAskQuestion_EmptyQuestion(t *testing.T) {
	svc := NewRAGService(fakeExtractor{}, &stubRetriever{}, &recordingGenerator{}, logging.Discard(), Options{})
	_, err := svc.AskQuestion(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.True(t, domain.IsClientError(err))
}

func TestAskQuestion_NoRelevantInformation(t *testing.T) {
	gen := &recordingGenerator{answer: "x"}
	svc := NewRAGService(fakeExtractor{}, &stubRetriever{}, gen, logging.Discard(), Options{})
	_, err := svc.AskQuestion(context.Background(), "What about payment?", 3)
	assert.ErrorIs(t, err, domain.ErrNoRelevantInformation)
	assert.Empty(t, gen.prompts)
}

func TestAskQuestion_DefaultTopKAndPreview(t *testing.T) {
	long := strings.Repeat("é", 250)
	r := &stubRetriever{results: []domain.RetrievalResult{
		result(long, "a", 0), result("b", "b", 2), result("c", "c", 3), result("d", "d", 4),
	}}
	svc := NewRAGService(fakeExtractor{}, r, &recordingGenerator{answer: "ok"}, logging.Discard(), Options{DefaultTopK: 3})

	ans, err := svc.AskQuestion(context.Background(), "anything", 0)
	require.NoError(t, err)
	require.Equal(t, 3, ans.SourceCount)
	assert.Equal(t, strings.Repeat("é", 200)+"...", ans.Sources[0].Text)
	assert.Equal(t, 0, ans.Sources[0].Page)
}

func TestAskQuestion_GeneratorFailure(t *testing.T) {
	r := &stubRetriever{results: []domain.RetrievalResult{result("text", "doc", 1)}}
	boom := domain.Upstream("ollama generate", errors.New("connection refused"))
	svc := NewRAGService(fakeExtractor{}, r, &recordingGenerator{err: boom}, logging.Discard(), Options{})

	_, err := svc.AskQuestion(context.Background(), "q", 1)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.False(t, domain.IsClientError(err))
}

func TestProcessDocument(t *testing.T) {
	text := "This Agreement is made between the parties. Payment is due within 30 days of invoice."
	svc := NewRAGService(fakeExtractor{ext: extraction(text)}, &stubRetriever{}, &recordingGenerator{}, logging.Discard(), Options{})

	assert.Nil(t, svc.CurrentDocument())
	info, err := svc.ProcessDocument(context.Background(), "documents/contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", info.Filename)
	assert.Equal(t, 1, info.PageCount)
	assert.Equal(t, 15, info.WordCount)
	assert.Equal(t, 1, info.ChunkCount)
	assert.Equal(t, 500, info.ChunkSize)
	assert.Equal(t, info, svc.CurrentDocument())
}

func TestProcessDocument_PageAware(t *testing.T) {
	ext := extraction("first page text second page text")
	ext.Pages = domain.PageText{1: "first page text", 2: "second page text"}
	ext.Metadata.PageCount = 2
	svc := NewRAGService(fakeExtractor{ext: ext}, &stubRetriever{}, &recordingGenerator{}, logging.Discard(), Options{PageAware: true})

	info, err := svc.ProcessDocument(context.Background(), "contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, info.ChunkCount)
}

func TestProcessDocument_StageLabels(t *testing.T) {
	cases := []struct {
		name   string
		ext    fakeExtractor
		store  *stubRetriever
		stage  string
		target error
	}{
		{"extraction", fakeExtractor{err: domain.ErrNotFound}, &stubRetriever{}, domain.StageExtraction, domain.ErrNotFound},
		{"chunking", fakeExtractor{ext: extraction("  ")}, &stubRetriever{}, domain.StageChunking, domain.ErrEmptyInput},
		{"storage", fakeExtractor{ext: extraction("some text")}, &stubRetriever{ingest: domain.ErrUpstream}, domain.StageStorage, domain.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewRAGService(tc.ext, tc.store, &recordingGenerator{}, logging.Discard(), Options{})
			_, err := svc.ProcessDocument(context.Background(), "contract.pdf")
			require.Error(t, err)
			var se *domain.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.stage, se.Stage)
			assert.ErrorIs(t, err, tc.target)
			assert.True(t, strings.HasPrefix(err.Error(), tc.stage+" failed: "))
			assert.Nil(t, svc.CurrentDocument())
		})
	}
}

func TestExtractKeyClauses_OmitsFailedTopics(t *testing.T) {
	r := &stubRetriever{
		results: []domain.RetrievalResult{result("Clause text.", "doc", 1), result("More text.", "doc", 2), result("extra", "doc", 3)},
		fail:    map[string]bool{"confidentiality": true, "liability": true},
	}
	gen := &recordingGenerator{answer: "answer"}
	svc := NewRAGService(fakeExtractor{}, r, gen, logging.Discard(), Options{})

	clauses, err := svc.ExtractKeyClauses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"payment terms", "termination clause", "duration of contract", "dispute resolution"}, topics(clauses))

	require.Len(t, gen.prompts, 4)
	assert.Contains(t, gen.prompts[0], "Question: What does the document say about payment terms?")
	// clause questions retrieve two passages
	assert.NotContains(t, gen.prompts[0], "extra")
}

func TestExtractKeyClauses_ConcurrentKeepsOrder(t *testing.T) {
	r := &stubRetriever{results: []domain.RetrievalResult{result("text", "doc", 1)}, delay: 20 * time.Millisecond}
	svc := NewRAGService(fakeExtractor{}, r, &recordingGenerator{answer: "a"}, logging.Discard(), Options{ClauseConcurrency: 3})

	clauses, err := svc.ExtractKeyClauses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ClauseTopics, topics(clauses))
	assert.LessOrEqual(t, r.peak.Load(), int32(3))
	assert.Greater(t, r.peak.Load(), int32(1))
}

func TestExtractKeyClauses_SequentialByDefault(t *testing.T) {
	r := &stubRetriever{results: []domain.RetrievalResult{result("text", "doc", 1)}, delay: 5 * time.Millisecond}
	svc := NewRAGService(fakeExtractor{}, r, &recordingGenerator{answer: "a"}, logging.Discard(), Options{})

	_, err := svc.ExtractKeyClauses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.peak.Load())
}

func TestDocumentSummary_UsesFiveSources(t *testing.T) {
	var rs []domain.RetrievalResult
	for i := 1; i <= 7; i++ {
		rs = append(rs, result("passage", "doc", i))
	}
	gen := &recordingGenerator{answer: "summary"}
	svc := NewRAGService(fakeExtractor{}, &stubRetriever{results: rs}, gen, logging.Discard(), Options{})

	ans, err := svc.DocumentSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, ans.SourceCount)
	assert.Equal(t, SummaryQuestion, ans.Question)
}

func TestClearDatabase_ForgetsDocument(t *testing.T) {
	r := &stubRetriever{}
	svc := NewRAGService(fakeExtractor{ext: extraction("some text here")}, r, &recordingGenerator{}, logging.Discard(), Options{})
	_, err := svc.ProcessDocument(context.Background(), "contract.pdf")
	require.NoError(t, err)

	require.NoError(t, svc.ClearDatabase(context.Background()))
	assert.Nil(t, svc.CurrentDocument())
	assert.Equal(t, int32(1), r.cleared.Load())
}

func TestFormatAnswer(t *testing.T) {
	out := FormatAnswer(&domain.Answer{
		Question:    "Who pays?",
		Answer:      "The client pays.",
		Sources:     []domain.Source{{Text: "The client shall pay...", Source: "doc", Page: 0}},
		SourceCount: 1,
	})
	assert.Contains(t, out, "Question: Who pays?")
	assert.Contains(t, out, "Sources (1 chunks used):")
	assert.Contains(t, out, "1. Source: doc, Page: 0")
}

func topics(c domain.Clauses) []string {
	out := make([]string, len(c))
	for i, cl := range c {
		out[i] = cl.Topic
	}
	return out
}

func TestExtractKeyClauses_Cancelled(t *testing.T) {
	r := &stubRetriever{results: []domain.RetrievalResult{result("text", "doc", 1)}}
	svc := NewRAGService(fakeExtractor{}, r, &recordingGenerator{answer: "a"}, logging.Discard(), Options{ClauseConcurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clauses, err := svc.ExtractKeyClauses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, clauses)
}
