package ragbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/extract"
	"github.com/flarexio/ragbox/llm"
	"github.com/flarexio/ragbox/persistence/chromem"
	"github.com/flarexio/ragbox/persistence/disk"
	"github.com/flarexio/ragbox/vector"
	"github.com/flarexio/ragbox/vector/vectortest"
)

type prompt struct {
	System string
	User   string
}

type recordingProvider struct {
	mu      sync.Mutex
	prompts []prompt
	answer  string
	err     error
}

func (p *recordingProvider) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return "", p.err
	}

	p.prompts = append(p.prompts, prompt{systemPrompt, userPrompt})
	return p.answer, nil
}

func (p *recordingProvider) last() prompt {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.prompts) == 0 {
		return prompt{}
	}

	return p.prompts[len(p.prompts)-1]
}

type ragboxTestSuite struct {
	suite.Suite
	ctx      context.Context
	root     string
	docs     document.Store
	indexes  vector.IndexStore
	embedder *vectortest.Embedder
	provider *recordingProvider
	svc      Service
}

func (suite *ragboxTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.root = suite.T().TempDir()

	cfg := Config{
		Storage: document.Config{Path: suite.root},
		Vector:  vector.Config{Collection: "documents"},
	}

	docs, err := disk.NewDocumentStore(cfg.Storage)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.embedder = vectortest.NewEmbedder(128)
	suite.provider = &recordingProvider{answer: "The revenue was $5M."}

	suite.docs = docs
	suite.indexes = chromem.NewIndexStore(docs, cfg.Vector)

	suite.svc = NewService(cfg, docs, suite.indexes, suite.embedder, suite.provider)
}

func (suite *ragboxTestSuite) upload(sessionID string, filename string, content string) {
	err := suite.svc.Upload(suite.ctx, sessionID, filename, []byte(content))
	suite.Require().NoError(err)
}

func (suite *ragboxTestSuite) TestIdentityRecall() {
	suite.upload("s1", "hiring.txt", "The team discussed hiring plans for next year")
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")
	suite.upload("s1", "pets.txt", "My cat sleeps on the sofa all afternoon")

	matches, err := suite.svc.Search(suite.ctx, "s1", "The quarterly revenue was $5M")
	suite.NoError(err)
	suite.Len(matches, 3)
	suite.Equal("notes.txt", matches[0].ID)
	suite.InDelta(1.0, matches[0].Similarity, 1e-5)
}

func (suite *ragboxTestSuite) TestAskGroundsOnTopDocument() {
	suite.upload("s1", "hiring.txt", "The team discussed hiring plans for next year")
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	matches, err := suite.svc.Search(suite.ctx, "s1", "What was the revenue?")
	suite.NoError(err)
	suite.Equal("notes.txt", matches[0].ID)

	answer, err := suite.svc.Ask(suite.ctx, "s1", "What was the revenue?")
	suite.NoError(err)
	suite.Equal("The revenue was $5M.", answer)

	p := suite.provider.last()
	suite.Equal(SystemInstruction, p.System)
	suite.Equal("Query: What was the revenue?\n Context: The quarterly revenue was $5M", p.User)
}

func (suite *ragboxTestSuite) TestSearchTopK() {
	suite.upload("s1", "a.txt", "alpha")
	suite.upload("s1", "b.txt", "beta")
	suite.upload("s1", "c.txt", "gamma")

	matches, err := suite.svc.Search(suite.ctx, "s1", "alpha", 2)
	suite.NoError(err)
	suite.Len(matches, 2)
	suite.Equal("a.txt", matches[0].ID)

	matches, err = suite.svc.Search(suite.ctx, "s1", "alpha", 10)
	suite.NoError(err)
	suite.Len(matches, 3)
}

func (suite *ragboxTestSuite) TestLoadBeforeAndAfterUpload() {
	_, err := suite.svc.Search(suite.ctx, "s1", "anything")
	suite.ErrorIs(err, vector.ErrIndexNotFound)
	suite.True(IsNotFound(err))

	_, err = suite.svc.Ask(suite.ctx, "s1", "anything")
	suite.ErrorIs(err, vector.ErrIndexNotFound)

	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	_, err = suite.svc.Search(suite.ctx, "s1", "anything")
	suite.NoError(err)
}

func (suite *ragboxTestSuite) TestRebuildKeepsPreviousDocuments() {
	suite.upload("s1", "first.txt", "apples and oranges")

	matches, err := suite.svc.Search(suite.ctx, "s1", "apples")
	suite.NoError(err)
	suite.Len(matches, 1)

	suite.upload("s1", "second.txt", "bananas and kiwis")

	matches, err = suite.svc.Search(suite.ctx, "s1", "bananas")
	suite.NoError(err)
	suite.Len(matches, 2)
	suite.Equal("second.txt", matches[0].ID)
	suite.Equal("first.txt", matches[1].ID)
}

func (suite *ragboxTestSuite) TestReuploadOverwrites() {
	suite.upload("s1", "notes.txt", "old content about apples")
	suite.upload("s1", "notes.txt", "new content about bananas")

	files, err := suite.svc.ListFiles(suite.ctx, "s1")
	suite.NoError(err)
	suite.Equal([]string{"notes.txt"}, files)

	text, err := suite.svc.ReadFile(suite.ctx, "s1", "notes.txt")
	suite.NoError(err)
	suite.Equal("new content about bananas", text)
}

func (suite *ragboxTestSuite) TestListFiles() {
	_, err := suite.svc.ListFiles(suite.ctx, "s1")
	suite.ErrorIs(err, document.ErrSessionNotFound)

	suite.upload("s1", "b.txt", "beta")
	suite.upload("s1", "a.txt", "alpha")

	files, err := suite.svc.ListFiles(suite.ctx, "s1")
	suite.NoError(err)
	suite.Equal([]string{"a.txt", "b.txt"}, files)
}

func (suite *ragboxTestSuite) TestDeleteSession() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	err := suite.svc.DeleteSession(suite.ctx, "s1")
	suite.NoError(err)

	_, err = os.Stat(filepath.Join(suite.root, "s1"))
	suite.True(os.IsNotExist(err))

	_, err = suite.svc.ListFiles(suite.ctx, "s1")
	suite.ErrorIs(err, document.ErrSessionNotFound)

	_, err = suite.svc.Search(suite.ctx, "s1", "revenue")
	suite.ErrorIs(err, vector.ErrIndexNotFound)

	err = suite.svc.DeleteSession(suite.ctx, "s1")
	suite.ErrorIs(err, document.ErrSessionNotFound)
	suite.True(IsNotFound(err))
}

func (suite *ragboxTestSuite) TestSessionsAreIsolated() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")
	suite.upload("s2", "other.txt", "Nothing to see here")

	matches, err := suite.svc.Search(suite.ctx, "s2", "revenue")
	suite.NoError(err)
	suite.Len(matches, 1)
	suite.Equal("other.txt", matches[0].ID)
}

func (suite *ragboxTestSuite) TestAskWithHistoryNeedsNoSession() {
	history := []HistoryEntry{
		{Sender: "user", Message: "hi"},
	}

	answer, err := suite.svc.AskWithHistory(suite.ctx, "summarize", history)
	suite.NoError(err)
	suite.Equal("The revenue was $5M.", answer)

	p := suite.provider.last()
	suite.Equal(SystemInstruction, p.System)
	suite.Equal("Prompt: summarize History: user: hi", p.User)
	suite.Equal(0, suite.embedder.Calls(), "history mode never touches the index")
}

func (suite *ragboxTestSuite) TestValidation() {
	err := suite.svc.Upload(suite.ctx, "s1", "", []byte("x"))
	suite.ErrorIs(err, document.ErrInvalidFilename)
	suite.True(IsValidation(err))

	err = suite.svc.Upload(suite.ctx, "", "a.txt", []byte("x"))
	suite.ErrorIs(err, document.ErrInvalidSessionID)

	_, err = suite.svc.Ask(suite.ctx, "s1", "  ")
	suite.ErrorIs(err, ErrEmptyMessage)

	_, err = suite.svc.AskWithHistory(suite.ctx, "", nil)
	suite.ErrorIs(err, ErrEmptyMessage)
}

func (suite *ragboxTestSuite) TestFailedBuildKeepsPreviousIndex() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	suite.embedder.Err = vector.ErrProviderUnavailable

	err := suite.svc.Upload(suite.ctx, "s1", "later.txt", []byte("late addition"))
	suite.ErrorIs(err, vector.ErrEmbeddingBuildFailed)
	suite.True(IsProviderFailure(err))

	suite.embedder.Err = nil

	matches, err := suite.svc.Search(suite.ctx, "s1", "revenue")
	suite.NoError(err)
	suite.Len(matches, 1, "artifact still holds the last complete build")
	suite.Equal("notes.txt", matches[0].ID)

	files, err := suite.svc.ListFiles(suite.ctx, "s1")
	suite.NoError(err)
	suite.Equal([]string{"notes.txt"}, files, "the failed upload is not kept")

	// a retry succeeds once the provider is back
	suite.upload("s1", "later.txt", "late addition")

	matches, err = suite.svc.Search(suite.ctx, "s1", "late addition")
	suite.NoError(err)
	suite.Len(matches, 2)
	suite.Equal("later.txt", matches[0].ID)
}

func (suite *ragboxTestSuite) TestFailedOverwriteRestoresPreviousContent() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	suite.embedder.Err = vector.ErrProviderUnavailable

	err := suite.svc.Upload(suite.ctx, "s1", "notes.txt", []byte("replacement"))
	suite.ErrorIs(err, vector.ErrEmbeddingBuildFailed)

	suite.embedder.Err = nil

	text, err := suite.svc.ReadFile(suite.ctx, "s1", "notes.txt")
	suite.NoError(err)
	suite.Equal("The quarterly revenue was $5M", text)
}

func (suite *ragboxTestSuite) TestFailedFirstUploadLeavesNoSession() {
	suite.embedder.Err = vector.ErrProviderUnavailable

	err := suite.svc.Upload(suite.ctx, "s1", "notes.txt", []byte("The quarterly revenue was $5M"))
	suite.ErrorIs(err, vector.ErrEmbeddingBuildFailed)

	_, err = suite.svc.ListFiles(suite.ctx, "s1")
	suite.ErrorIs(err, document.ErrSessionNotFound)

	_, err = os.Stat(filepath.Join(suite.root, "s1"))
	suite.True(os.IsNotExist(err))
}

func (suite *ragboxTestSuite) TestUnextractableUploadIsRejected() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	err := suite.svc.Upload(suite.ctx, "s1", "logo.png", []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe})
	suite.ErrorIs(err, vector.ErrEmbeddingBuildFailed)
	suite.ErrorIs(err, extract.ErrUnsupportedContent)
	suite.True(IsValidation(err))

	// the session keeps accepting uploads
	suite.upload("s1", "pets.txt", "My cat sleeps")

	files, err := suite.svc.ListFiles(suite.ctx, "s1")
	suite.NoError(err)
	suite.Equal([]string{"notes.txt", "pets.txt"}, files)

	matches, err := suite.svc.Search(suite.ctx, "s1", "cat")
	suite.NoError(err)
	suite.Len(matches, 2)
	suite.Equal("pets.txt", matches[0].ID)
}

func (suite *ragboxTestSuite) TestEmptyIndex() {
	err := suite.docs.Put(suite.ctx, "s1", "notes.txt", []byte("The quarterly revenue was $5M"))
	suite.Require().NoError(err)

	err = suite.indexes.Save(suite.ctx, "s1", nil)
	suite.Require().NoError(err)

	matches, err := suite.svc.Search(suite.ctx, "s1", "q")
	suite.NoError(err)
	suite.NotNil(matches)
	suite.Empty(matches)

	answer, err := suite.svc.Ask(suite.ctx, "s1", "q")
	suite.NoError(err)
	suite.Equal("The revenue was $5M.", answer)
	suite.Equal("Query: q\n Context: No relevant documents found.", suite.provider.last().User)

	suite.Equal(0, suite.embedder.Calls(), "an empty index never calls the provider")
}

func (suite *ragboxTestSuite) TestProviderFailureOnAsk() {
	suite.upload("s1", "notes.txt", "The quarterly revenue was $5M")

	suite.provider.err = fmt.Errorf("chat completion request failed: %w", llm.ErrCompletionFailed)

	_, err := suite.svc.Ask(suite.ctx, "s1", "What was the revenue?")
	suite.ErrorIs(err, llm.ErrCompletionFailed)
	suite.True(IsProviderFailure(err))
}

func TestRagboxTestSuite(t *testing.T) {
	suite.Run(t, new(ragboxTestSuite))
}
