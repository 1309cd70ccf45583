package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"legalrag/internal/chunker"
	"legalrag/internal/domain"
	"legalrag/internal/prompt"
)

// ClauseTopics are the key-clause topics asked about, in reporting order.
var ClauseTopics = []string{
	"payment terms",
	"termination clause",
	"confidentiality",
	"liability",
	"duration of contract",
	"dispute resolution",
}

// SummaryQuestion is the fixed question used for document summaries.
const SummaryQuestion = "Provide a brief summary of this document covering the main points and purpose."

// sourcePreviewLen is the number of characters of passage text kept in a citation.
const sourcePreviewLen = 200

// Options tunes the agent.
type Options struct {
	Overlap           int
	PageAware         bool
	DefaultTopK       int
	ClauseTopK        int
	SummaryTopK       int
	ClauseConcurrency int
}

func (o *Options) applyDefaults() {
	if o.Overlap <= 0 {
		o.Overlap = chunker.DefaultOverlap
	}
	if o.DefaultTopK <= 0 {
		o.DefaultTopK = 3
	}
	if o.ClauseTopK <= 0 {
		o.ClauseTopK = 2
	}
	if o.SummaryTopK <= 0 {
		o.SummaryTopK = 5
	}
	if o.ClauseConcurrency <= 0 {
		o.ClauseConcurrency = 1
	}
}

// RAGServiceImpl answers questions about the most recently processed document.
type RAGServiceImpl struct {
	extractor domain.Extractor
	store     domain.Retriever
	generator domain.Generator
	logger    *slog.Logger
	opts      Options

	mu      sync.RWMutex
	current *domain.DocumentInfo
}

var _ domain.Agent = (*RAGServiceImpl)(nil)

func NewRAGService(extractor domain.Extractor, store domain.Retriever, generator domain.Generator, logger *slog.Logger, opts Options) *RAGServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &RAGServiceImpl{extractor: extractor, store: store, generator: generator, logger: logger, opts: opts}
}

// ProcessDocument extracts, chunks and stores the PDF at path, then records
// it as the current document.
func (s *RAGServiceImpl) ProcessDocument(ctx context.Context, path string) (*domain.DocumentInfo, error) {
	s.logger.Info("Processing document", slog.String("path", path))

	ext, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, domain.Stage(domain.StageExtraction, err)
	}
	meta := ext.Metadata
	s.logger.Debug("Extracted text",
		slog.Int("num_pages", meta.PageCount),
		slog.Int("total_words", meta.TotalWords))

	size := chunker.OptimalChunkSize(ext.Text)
	passages, err := s.chunk(ext, size)
	if err != nil {
		return nil, domain.Stage(domain.StageChunking, err)
	}
	s.logger.Debug("Chunked text",
		slog.Int("num_chunks", len(passages)),
		slog.Int("chunk_size", size))

	stored, err := s.store.Ingest(ctx, passages)
	if err != nil {
		return nil, domain.Stage(domain.StageStorage, err)
	}

	info := &domain.DocumentInfo{
		Filename:   meta.Filename,
		PageCount:  meta.PageCount,
		WordCount:  meta.TotalWords,
		ChunkCount: len(passages),
		ChunkSize:  size,
	}
	s.mu.Lock()
	s.current = info
	s.mu.Unlock()

	s.logger.Info("Document processed",
		slog.String("filename", info.Filename),
		slog.Int("num_chunks", info.ChunkCount),
		slog.Int("total_documents", stored.TotalStored))
	out := *info
	return &out, nil
}

func (s *RAGServiceImpl) chunk(ext *domain.Extraction, size int) ([]domain.Passage, error) {
	if s.opts.PageAware {
		res, err := chunker.ChunkByPages(ext.Pages, size, s.opts.Overlap)
		if err != nil {
			return nil, err
		}
		if len(res.Passages) == 0 {
			return nil, fmt.Errorf("no text on any page: %w", domain.ErrEmptyInput)
		}
		return res.Passages, nil
	}
	res, err := chunker.ChunkText(ext.Text, size, s.opts.Overlap, ext.Metadata.Filename)
	if err != nil {
		return nil, err
	}
	return res.Passages, nil
}

// AskQuestion retrieves the topK closest passages and asks the generator to
// answer from them alone. topK <= 0 uses the configured default.
func (s *RAGServiceImpl) AskQuestion(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.opts.DefaultTopK
	}

	res, err := s.store.Query(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if res.Count == 0 {
		return nil, domain.ErrNoRelevantInformation
	}

	passages := prompt.FromResults(res.Results)
	p := prompt.Build(prompt.Context(passages), question)
	answer, err := s.generator.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.Source, len(passages))
	for i, ps := range passages {
		sources[i] = domain.Source{Text: preview(ps.Text), Source: ps.Source, Page: ps.Page}
	}
	s.logger.Debug("Answered question",
		slog.String("generator", s.generator.Name()),
		slog.Int("num_sources", len(sources)))
	return &domain.Answer{Question: question, Answer: answer, Sources: sources, SourceCount: len(sources)}, nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > sourcePreviewLen {
		r = r[:sourcePreviewLen]
	}
	return string(r) + "..."
}

// ExtractKeyClauses asks one question per clause topic. Topics whose
// question fails are left out; the rest keep topic order.
func (s *RAGServiceImpl) ExtractKeyClauses(ctx context.Context) (domain.Clauses, error) {
	answers := make([]*domain.Answer, len(ClauseTopics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ClauseConcurrency)
	for i, topic := range ClauseTopics {
		i, topic := i, topic
		g.Go(func() error {
			a, err := s.AskQuestion(gctx, fmt.Sprintf("What does the document say about %s?", topic), s.opts.ClauseTopK)
			if err != nil {
				s.logger.Warn("Clause extraction failed",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
				return nil
			}
			answers[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clauses := make(domain.Clauses, 0, len(ClauseTopics))
	for i, a := range answers {
		if a != nil {
			clauses = append(clauses, domain.Clause{Topic: ClauseTopics[i], Answer: a.Answer})
		}
	}
	return clauses, nil
}

// DocumentSummary asks the fixed summary question.
func (s *RAGServiceImpl) DocumentSummary(ctx context.Context) (*domain.Answer, error) {
	return s.AskQuestion(ctx, SummaryQuestion, s.opts.SummaryTopK)
}

// ClearDatabase empties the store and forgets the current document.
func (s *RAGServiceImpl) ClearDatabase(ctx context.Context) error {
	if _, err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.logger.Info("Database cleared")
	return nil
}

// CurrentDocument returns a copy of the current document summary, or nil.
func (s *RAGServiceImpl) CurrentDocument() *domain.DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	out := *s.current
	return &out
}

// Stats reports the backing store statistics.
func (s *RAGServiceImpl) Stats(ctx context.Context) (domain.StoreStats, error) {
	return s.store.Stats(ctx)
}
