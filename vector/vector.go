package vector

import (
	"context"
	"errors"
	"math"
)

var (
	ErrIndexNotFound        = errors.New("embedding index not found")
	ErrEmbeddingBuildFailed = errors.New("embedding build failed")
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrDimensionMismatch    = errors.New("vector dimension mismatch")
	ErrZeroVector           = errors.New("zero vector")
)

type Config struct {
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batchSize"`
}

// Embedder maps a text to a vector of the provider's fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by providers accepting several inputs per call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Record struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
}

type Match struct {
	ID         string  `json:"id"`
	Similarity float32 `json:"similarity"`
}

// Index is the in-memory form of one session's embedding artifact.
type Index interface {
	Len() int

	// Rank scores every record against a unit-length query vector and
	// returns all of them by descending similarity, ties in insertion order.
	Rank(ctx context.Context, query []float32) ([]Match, error)
}

// IndexStore persists a session's records as a single artifact.
type IndexStore interface {
	// Save replaces the session's artifact wholesale; either the complete
	// new artifact is visible afterwards or the previous one is.
	Save(ctx context.Context, sessionID string, records []Record) error

	// Load returns ErrIndexNotFound when no artifact exists.
	Load(ctx context.Context, sessionID string) (Index, error)
}

// Normalize returns v scaled to unit length, so that the dot product of two
// normalized vectors is their cosine similarity.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	if sum == 0 {
		return nil, ErrZeroVector
	}

	norm := math.Sqrt(sum)

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out, nil
}
