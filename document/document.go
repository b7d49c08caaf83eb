package document

import (
	"context"
	"errors"
	"strings"
)

// ArtifactName is the reserved key of the embedding artifact inside a session.
const ArtifactName = "embeddings.gob"

var (
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrArtifactNotFound = errors.New("artifact not found")
)

type Config struct {
	Path string `yaml:"path"`
}

// Store keeps the raw files of every session. A session exists once
// something has been written to it and until DeleteSession removes it.
type Store interface {
	Put(ctx context.Context, sessionID string, filename string, data []byte) error
	Get(ctx context.Context, sessionID string, filename string) ([]byte, error)
	List(ctx context.Context, sessionID string) ([]string, error)
	Delete(ctx context.Context, sessionID string, filename string) error
	DeleteSession(ctx context.Context, sessionID string) error

	PutArtifact(ctx context.Context, sessionID string, data []byte) error
	GetArtifact(ctx context.Context, sessionID string) ([]byte, error)
}

// ValidateSessionID rejects tokens that are empty or would escape the
// session namespace when used as a single path element.
func ValidateSessionID(id string) error {
	if !isPathElement(id) {
		return ErrInvalidSessionID
	}

	return nil
}

// ValidateFilename rejects empty names, names spanning more than one path
// element, and the reserved artifact name.
func ValidateFilename(name string) error {
	if !isPathElement(name) || name == ArtifactName {
		return ErrInvalidFilename
	}

	return nil
}

func isPathElement(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}

	return !strings.ContainsAny(s, "/\\\x00")
}
