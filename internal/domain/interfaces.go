package domain

import "context"

// Extractor turns a document on disk into normalised text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces text from a prompt using a language model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever is the passage store the agent reads from and writes to.
type Retriever interface {
	Ingest(ctx context.Context, passages []Passage) (IngestResult, error)
	Query(ctx context.Context, text string, topK int) (QueryResult, error)
	Clear(ctx context.Context) (bool, error)
	Stats(ctx context.Context) (StoreStats, error)
}

// Agent defines the operations exposed by the application core.
type Agent interface {
	ProcessDocument(ctx context.Context, path string) (*DocumentInfo, error)
	AskQuestion(ctx context.Context, question string, topK int) (*Answer, error)
	ExtractKeyClauses(ctx context.Context) (Clauses, error)
	DocumentSummary(ctx context.Context) (*Answer, error)
	ClearDatabase(ctx context.Context) error
	CurrentDocument() *DocumentInfo
	Stats(ctx context.Context) (StoreStats, error)
}
