package vector

import (
	"context"
	"fmt"
)

// Retriever resolves a free-text query against a session's index. It must
// share its Embedder with the Builder that produced the index.
type Retriever struct {
	embedder Embedder
	indexes  IndexStore
}

func NewRetriever(embedder Embedder, indexes IndexStore) *Retriever {
	return &Retriever{
		embedder: embedder,
		indexes:  indexes,
	}
}

// Load reads the session's artifact from storage. Nothing is cached.
func (r *Retriever) Load(ctx context.Context, sessionID string) (Index, error) {
	return r.indexes.Load(ctx, sessionID)
}

// Query returns every document of the index ranked by cosine similarity to
// text. An empty index yields an empty list without calling the provider.
func (r *Retriever) Query(ctx context.Context, index Index, text string) ([]Match, error) {
	if index.Len() == 0 {
		return []Match{}, nil
	}

	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	query, err := Normalize(embedding)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	return index.Rank(ctx, query)
}
