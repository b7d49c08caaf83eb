package vector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/persistence/disk"
	"github.com/flarexio/ragbox/vector/vectortest"
)

type recordingIndexStore struct {
	saved map[string][]Record
	err   error
}

func (s *recordingIndexStore) Save(ctx context.Context, sessionID string, records []Record) error {
	if s.err != nil {
		return s.err
	}

	s.saved[sessionID] = records
	return nil
}

func (s *recordingIndexStore) Load(ctx context.Context, sessionID string) (Index, error) {
	return nil, ErrIndexNotFound
}

type builderTestSuite struct {
	suite.Suite
	ctx      context.Context
	docs     document.Store
	embedder *vectortest.Embedder
	indexes  *recordingIndexStore
}

func (suite *builderTestSuite) SetupTest() {
	docs, err := disk.NewDocumentStore(document.Config{Path: suite.T().TempDir()})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.ctx = context.Background()
	suite.docs = docs
	suite.embedder = vectortest.NewEmbedder(32)
	suite.indexes = &recordingIndexStore{saved: make(map[string][]Record)}
}

func (suite *builderTestSuite) put(name string, content string) {
	err := suite.docs.Put(suite.ctx, "s1", name, []byte(content))
	suite.Require().NoError(err)
}

func (suite *builderTestSuite) TestBuildNormalizesEveryDocument() {
	suite.put("b.txt", "cats and dogs")
	suite.put("a.txt", "revenue revenue revenue")

	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.NoError(err)

	records := suite.indexes.saved["s1"]
	suite.Len(records, 2)
	suite.Equal("a.txt", records[0].ID)
	suite.Equal("b.txt", records[1].ID)

	for _, record := range records {
		var sum float64
		for _, x := range record.Embedding {
			sum += float64(x) * float64(x)
		}

		suite.InDelta(1.0, math.Sqrt(sum), 1e-5)
		suite.Len(record.Embedding, 32)
	}

	suite.Equal(1, suite.embedder.Calls(), "all documents embedded in one batch")
}

func (suite *builderTestSuite) TestBuildBatchSize() {
	suite.put("a.txt", "one")
	suite.put("b.txt", "two")
	suite.put("c.txt", "three")

	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{BatchSize: 2})

	err := builder.Build(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(suite.indexes.saved["s1"], 3)
	suite.Equal(2, suite.embedder.Calls())
}

func (suite *builderTestSuite) TestBuildWithoutBatchSupport() {
	suite.put("a.txt", "one")
	suite.put("b.txt", "two")

	single := vectortest.SingleEmbedder{Embedder: suite.embedder}
	builder := NewBuilder(suite.docs, single, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(suite.indexes.saved["s1"], 2)
	suite.Equal(2, suite.embedder.Calls())
}

func (suite *builderTestSuite) TestEmptyTextFallsBackToFilename() {
	suite.put("empty.txt", "   ")

	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(suite.indexes.saved["s1"], 1)
}

func (suite *builderTestSuite) TestProviderFailureSavesNothing() {
	suite.put("a.txt", "one")

	suite.embedder.Err = ErrProviderUnavailable
	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.ErrorIs(err, ErrEmbeddingBuildFailed)
	suite.ErrorIs(err, ErrProviderUnavailable)
	suite.NotContains(suite.indexes.saved, "s1")
}

func (suite *builderTestSuite) TestExtractionFailureSavesNothing() {
	suite.put("a.txt", "fine")
	suite.put("b.bin", string([]byte{0xff, 0xfe}))

	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.ErrorIs(err, ErrEmbeddingBuildFailed)
	suite.NotContains(suite.indexes.saved, "s1")
}

func (suite *builderTestSuite) TestSaveFailure() {
	suite.put("a.txt", "one")

	suite.indexes.err = errors.New("disk full")
	builder := NewBuilder(suite.docs, suite.embedder, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.ErrorIs(err, ErrEmbeddingBuildFailed)
}

func (suite *builderTestSuite) TestDimensionMismatch() {
	suite.put("a.txt", "one")
	suite.put("b.txt", "two")

	builder := NewBuilder(suite.docs, &ragged{}, suite.indexes, Config{})

	err := builder.Build(suite.ctx, "s1")
	suite.ErrorIs(err, ErrEmbeddingBuildFailed)
	suite.ErrorIs(err, ErrDimensionMismatch)
}

func TestBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(builderTestSuite))
}

// ragged returns vectors of growing length.
type ragged struct {
	n int
}

func (r *ragged) Embed(ctx context.Context, text string) ([]float32, error) {
	r.n++

	v := make([]float32, r.n)
	for i := range v {
		v[i] = 1
	}

	return v, nil
}
