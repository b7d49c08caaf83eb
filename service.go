package ragbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/extract"
	"github.com/flarexio/ragbox/llm"
	"github.com/flarexio/ragbox/vector"
)

// Service defines the core logic of ragbox. Every operation is scoped by an
// explicit session token; nothing is kept in memory between calls.
type Service interface {

	// Close releases the service's resources.
	Close() error

	// Upload stores a file in the session, creating the session if needed,
	// and rebuilds the session's embedding index.
	Upload(ctx context.Context, sessionID string, filename string, data []byte) error

	// ListFiles returns the names of the session's uploaded files.
	ListFiles(ctx context.Context, sessionID string) ([]string, error)

	// ReadFile returns the text content of one uploaded file.
	ReadFile(ctx context.Context, sessionID string, filename string) (string, error)

	// Search ranks the session's files against the query, best first,
	// returning at most k matches when k is given.
	Search(ctx context.Context, sessionID string, query string, k ...int) ([]vector.Match, error)

	// Ask answers a question grounded on the session's most relevant file.
	Ask(ctx context.Context, sessionID string, message string) (string, error)

	// AskWithHistory answers a question using only the supplied
	// conversation history; no session is involved.
	AskWithHistory(ctx context.Context, message string, history []HistoryEntry) (string, error)

	// DeleteSession removes every file and the index of the session.
	DeleteSession(ctx context.Context, sessionID string) error
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, docs document.Store, indexes vector.IndexStore, embedder vector.Embedder, provider llm.Provider) Service {
	log := zap.L().With(
		zap.String("service", "ragbox"),
	)

	return &service{
		docs:      docs,
		builder:   vector.NewBuilder(docs, embedder, indexes, cfg.Vector),
		retriever: vector.NewRetriever(embedder, indexes),
		provider:  provider,
		cfg:       cfg,
		log:       log,
	}
}

type service struct {
	docs      document.Store
	builder   *vector.Builder
	retriever *vector.Retriever
	provider  llm.Provider

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) Upload(ctx context.Context, sessionID string, filename string, data []byte) error {
	if err := document.ValidateSessionID(sessionID); err != nil {
		return err
	}

	if err := document.ValidateFilename(filename); err != nil {
		return err
	}

	// content that cannot be extracted would fail every later rebuild
	if _, err := extract.Text(filename, data); err != nil {
		return fmt.Errorf("%w: extract %s: %w", vector.ErrEmbeddingBuildFailed, filename, err)
	}

	previous, err := svc.docs.Get(ctx, sessionID, filename)
	switch {
	case err == nil:
	case errors.Is(err, document.ErrSessionNotFound), errors.Is(err, document.ErrDocumentNotFound):
		previous = nil
	default:
		return err
	}

	_, err = svc.docs.List(ctx, sessionID)
	newSession := errors.Is(err, document.ErrSessionNotFound)

	if err := svc.docs.Put(ctx, sessionID, filename, data); err != nil {
		return err
	}

	if err := svc.builder.Build(ctx, sessionID); err != nil {
		if rerr := svc.rollback(ctx, sessionID, filename, previous, newSession); rerr != nil {
			svc.log.Error("upload rollback failed",
				zap.String("session_id", sessionID),
				zap.String("filename", filename),
				zap.Error(rerr),
			)
		}

		return err
	}

	return nil
}

// rollback restores the session's files to their state before a failed
// upload, so the file listing keeps matching the last built index.
func (svc *service) rollback(ctx context.Context, sessionID string, filename string, previous []byte, newSession bool) error {
	switch {
	case newSession:
		return svc.docs.DeleteSession(ctx, sessionID)

	case previous != nil:
		return svc.docs.Put(ctx, sessionID, filename, previous)

	default:
		return svc.docs.Delete(ctx, sessionID, filename)
	}
}

func (svc *service) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	names, err := svc.docs.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, ErrNoFiles
	}

	return names, nil
}

func (svc *service) ReadFile(ctx context.Context, sessionID string, filename string) (string, error) {
	data, err := svc.docs.Get(ctx, sessionID, filename)
	if err != nil {
		return "", err
	}

	return extract.Text(filename, data)
}

func (svc *service) Search(ctx context.Context, sessionID string, query string, k ...int) ([]vector.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyMessage
	}

	matches, err := svc.rank(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	if len(k) > 0 && k[0] > 0 && k[0] < len(matches) {
		matches = matches[:k[0]]
	}

	return matches, nil
}

func (svc *service) rank(ctx context.Context, sessionID string, query string) ([]vector.Match, error) {
	if err := document.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	index, err := svc.retriever.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return svc.retriever.Query(ctx, index, query)
}

func (svc *service) Ask(ctx context.Context, sessionID string, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	matches, err := svc.rank(ctx, sessionID, message)
	if err != nil {
		return "", err
	}

	content := NoRelevantDocuments
	if len(matches) > 0 {
		top := matches[0]

		text, err := svc.ReadFile(ctx, sessionID, top.ID)
		if err != nil {
			return "", err
		}

		content = text

		svc.log.Debug("context selected",
			zap.String("session_id", sessionID),
			zap.String("filename", top.ID),
			zap.Float32("similarity", top.Similarity),
		)
	}

	return svc.provider.Complete(ctx, SystemInstruction, GroundedPrompt(message, content))
}

func (svc *service) AskWithHistory(ctx context.Context, message string, history []HistoryEntry) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	return svc.provider.Complete(ctx, SystemInstruction, HistoryPrompt(message, history))
}

func (svc *service) DeleteSession(ctx context.Context, sessionID string) error {
	return svc.docs.DeleteSession(ctx, sessionID)
}

// IsNotFound reports whether err means a session, file or index is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, document.ErrSessionNotFound) ||
		errors.Is(err, document.ErrDocumentNotFound) ||
		errors.Is(err, document.ErrArtifactNotFound) ||
		errors.Is(err, vector.ErrIndexNotFound) ||
		errors.Is(err, ErrNoFiles)
}

// IsValidation reports whether err rejects a malformed request, including
// uploads whose content has no extractable text.
func IsValidation(err error) bool {
	return errors.Is(err, document.ErrInvalidSessionID) ||
		errors.Is(err, document.ErrInvalidFilename) ||
		errors.Is(err, extract.ErrUnsupportedContent) ||
		errors.Is(err, ErrEmptyMessage)
}

// IsProviderFailure reports whether err comes from the embedding or LLM
// provider. Build failures caused by the provider count as well.
func IsProviderFailure(err error) bool {
	return errors.Is(err, vector.ErrProviderUnavailable) ||
		errors.Is(err, llm.ErrCompletionFailed)
}
