// Package vectortest provides deterministic embedders for tests.
package vectortest

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// Embedder is a bag-of-words embedder: every distinct lower-cased token is
// assigned the next free dimension, so texts sharing more words end up
// closer. Tokens past Dimensions wrap around.
type Embedder struct {
	Dimensions int

	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

func NewEmbedder(dimensions int) *Embedder {
	return &Embedder{
		Dimensions: dimensions,
		vocab:      make(map[string]int),
	}
}

// Calls counts provider round trips; a batch counts once.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++

	if e.Err != nil {
		return nil, e.Err
	}

	return e.vector(text), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++

	if e.Err != nil {
		return nil, e.Err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}

	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.Dimensions)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, token := range tokens {
		idx, ok := e.vocab[token]
		if !ok {
			idx = len(e.vocab) % e.Dimensions
			e.vocab[token] = idx
		}

		v[idx]++
	}

	return v
}

// SingleEmbedder hides the batch method of an Embedder.
type SingleEmbedder struct {
	Embedder *Embedder
}

func (e SingleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.Embedder.Embed(ctx, text)
}
