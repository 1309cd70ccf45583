package main

import (
	"context"
	"fmt"
	"log/slog"

	"legalrag/internal/config"
	"legalrag/internal/embedding"
	"legalrag/internal/extractor"
	"legalrag/internal/generation"
	"legalrag/internal/retrieval"
	"legalrag/internal/service"
	"legalrag/internal/vectorstore"
	"legalrag/internal/vectorstore/memory"
	"legalrag/internal/vectorstore/qdrant"
	"legalrag/internal/vectorstore/sqlite"
)

// components is everything main assembles from the configuration.
type components struct {
	agent *service.RAGServiceImpl
	index vectorstore.Index
}

func (c *components) Close() error { return c.index.Close() }

func openIndex(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Index, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(cfg.Collection), nil
	case "sqlite":
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("vector_store.sqlite config missing")
		}
		return sqlite.Open(ctx, cfg.SQLite.Path, cfg.Collection)
	case "qdrant":
		q := cfg.Qdrant
		if q == nil {
			return nil, fmt.Errorf("vector_store.qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     config.SecretFromEnv(q.APIKeyEnv),
			Collection: cfg.Collection,
			Dimension:  q.Dimension,
			Timeout:    config.Seconds(q.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func assemble(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*components, error) {
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	gen, err := generation.New(cfg.Generator, logger)
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	index, err := openIndex(ctx, cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("vector store init failed: %w", err)
	}

	store := retrieval.NewStore(emb, index, logger)
	agent := service.NewRAGService(extractor.NewPDFExtractor(logger), store, gen, logger, service.Options{
		Overlap:           cfg.Chunker.Overlap,
		PageAware:         cfg.Chunker.PageAware,
		DefaultTopK:       cfg.Agent.DefaultTopK,
		ClauseTopK:        cfg.Agent.ClauseTopK,
		SummaryTopK:       cfg.Agent.SummaryTopK,
		ClauseConcurrency: cfg.Agent.ClauseConcurrency,
	})
	logger.Debug("Components ready",
		slog.String("embedder", emb.Name()),
		slog.String("generator", gen.Name()),
		slog.String("vector_store", cfg.VectorStore.Type),
		slog.String("collection", index.Name()))
	return &components{agent: agent, index: index}, nil
}
