package vector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/extract"
)

// Builder produces the embedding artifact of a session from the documents
// currently in its store. Every build is a full rebuild.
type Builder struct {
	docs      document.Store
	embedder  Embedder
	indexes   IndexStore
	batchSize int
	log       *zap.Logger
}

func NewBuilder(docs document.Store, embedder Embedder, indexes IndexStore, cfg Config) *Builder {
	log := zap.L().With(
		zap.String("component", "embedding_builder"),
	)

	return &Builder{
		docs:      docs,
		embedder:  embedder,
		indexes:   indexes,
		batchSize: cfg.BatchSize,
		log:       log,
	}
}

// Build embeds every document of the session and saves the collection.
// On failure the previously saved artifact, if any, is left untouched.
func (b *Builder) Build(ctx context.Context, sessionID string) error {
	records, err := b.records(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingBuildFailed, err)
	}

	if err := b.indexes.Save(ctx, sessionID, records); err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingBuildFailed, err)
	}

	b.log.Info("embedding index built",
		zap.String("session_id", sessionID),
		zap.Int("count", len(records)),
	)

	return nil
}

func (b *Builder) records(ctx context.Context, sessionID string) ([]Record, error) {
	names, err := b.docs.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(names))
	for i, name := range names {
		data, err := b.docs.Get(ctx, sessionID, name)
		if err != nil {
			return nil, err
		}

		text, err := extract.Text(name, data)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}

		// documents without text stay rankable by name
		if strings.TrimSpace(text) == "" {
			text = name
		}

		texts[i] = text
	}

	embeddings, err := b.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(names) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(names))
	}

	records := make([]Record, len(names))
	dim := 0
	for i, name := range names {
		embedding := embeddings[i]

		if i == 0 {
			dim = len(embedding)
		}

		if len(embedding) == 0 || len(embedding) != dim {
			return nil, fmt.Errorf("%w: %s has %d dimensions, want %d",
				ErrDimensionMismatch, name, len(embedding), dim)
		}

		normalized, err := Normalize(embedding)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		records[i] = Record{
			ID:        name,
			Embedding: normalized,
		}
	}

	return records, nil
}

func (b *Builder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batcher, ok := b.embedder.(BatchEmbedder)
	if !ok {
		embeddings := make([][]float32, len(texts))
		for i, text := range texts {
			embedding, err := b.embedder.Embed(ctx, text)
			if err != nil {
				return nil, err
			}

			embeddings[i] = embedding
		}

		return embeddings, nil
	}

	size := b.batchSize
	if size <= 0 {
		size = len(texts)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		batch, err := batcher.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}

		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding batch count mismatch: got %d, want %d", len(batch), end-start)
		}

		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}
