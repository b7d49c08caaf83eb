package chromem

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/vector"
)

const (
	defaultCollection = "documents"
	ordinalKey        = "ordinal"
)

var (
	ErrCorruptArtifact = errors.New("corrupt embedding artifact")
	errNoEmbeddingFunc = errors.New("collection embeds nothing; vectors are precomputed")
)

// NewIndexStore keeps each session's embeddings as one chromem collection,
// exported into a single artifact of the session's document store.
func NewIndexStore(docs document.Store, cfg vector.Config) vector.IndexStore {
	name := cfg.Collection
	if name == "" {
		name = defaultCollection
	}

	return &indexStore{docs, name}
}

type indexStore struct {
	docs       document.Store
	collection string
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (s *indexStore) Save(ctx context.Context, sessionID string, records []vector.Record) error {
	db := chromem.NewDB()

	metadata := map[string]string{
		"session_id": sessionID,
	}

	c, err := db.CreateCollection(s.collection, metadata, noEmbedding)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		docs := make([]chromem.Document, len(records))
		for i, record := range records {
			docs[i] = chromem.Document{
				ID:        record.ID,
				Embedding: record.Embedding,
				Metadata: map[string]string{
					ordinalKey: strconv.Itoa(i),
				},
			}
		}

		if err := c.AddDocuments(ctx, docs, 1); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := db.ExportToWriter(&buf, false, "", s.collection); err != nil {
		return err
	}

	return s.docs.PutArtifact(ctx, sessionID, buf.Bytes())
}

func (s *indexStore) Load(ctx context.Context, sessionID string) (vector.Index, error) {
	data, err := s.docs.GetArtifact(ctx, sessionID)
	if err != nil {
		if errors.Is(err, document.ErrArtifactNotFound) {
			return nil, vector.ErrIndexNotFound
		}

		return nil, err
	}

	db := chromem.NewDB()
	if err := db.ImportFromReader(bytes.NewReader(data), "", s.collection); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}

	c := db.GetCollection(s.collection, noEmbedding)
	if c == nil {
		return nil, ErrCorruptArtifact
	}

	return &index{c}, nil
}

type index struct {
	collection *chromem.Collection
}

func (idx *index) Len() int {
	return idx.collection.Count()
}

func (idx *index) Rank(ctx context.Context, query []float32) ([]vector.Match, error) {
	n := idx.collection.Count()
	if n == 0 {
		return []vector.Match{}, nil
	}

	results, err := idx.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		match   vector.Match
		ordinal int
	}

	all := make([]ranked, len(results))
	for i, result := range results {
		ordinal, err := strconv.Atoi(result.Metadata[ordinalKey])
		if err != nil {
			return nil, fmt.Errorf("%w: document %s has no ordinal", ErrCorruptArtifact, result.ID)
		}

		all[i] = ranked{
			match: vector.Match{
				ID:         result.ID,
				Similarity: result.Similarity,
			},
			ordinal: ordinal,
		}
	}

	// chromem gives no order guarantee among equal scores
	slices.SortFunc(all, func(a, b ranked) int {
		if c := cmp.Compare(b.match.Similarity, a.match.Similarity); c != 0 {
			return c
		}

		return cmp.Compare(a.ordinal, b.ordinal)
	})

	matches := make([]vector.Match, len(all))
	for i := range all {
		matches[i] = all[i].match
	}

	return matches, nil
}
