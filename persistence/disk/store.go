package disk

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragbox/document"
)

const tempPrefix = ".ragbox-tmp-"

// NewDocumentStore lays every session out as one directory under cfg.Path,
// holding the uploaded files under their uploaded names plus the embedding artifact.
func NewDocumentStore(cfg document.Config) (document.Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("storage path is required")
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("persistence", "disk"),
		zap.String("path", cfg.Path),
	)

	return &store{cfg.Path, log}, nil
}

type store struct {
	root string
	log  *zap.Logger
}

func (s *store) sessionDir(sessionID string) (string, error) {
	if err := document.ValidateSessionID(sessionID); err != nil {
		return "", err
	}

	return filepath.Join(s.root, sessionID), nil
}

func (s *store) existingSessionDir(sessionID string) (string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", document.ErrSessionNotFound
		}

		return "", err
	}

	if !info.IsDir() {
		return "", document.ErrSessionNotFound
	}

	return dir, nil
}

func (s *store) Put(ctx context.Context, sessionID string, filename string, data []byte) error {
	if err := document.ValidateFilename(filename); err != nil {
		return err
	}

	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return writeFileAtomic(dir, filename, data)
}

func (s *store) Get(ctx context.Context, sessionID string, filename string) ([]byte, error) {
	if err := document.ValidateFilename(filename); err != nil {
		return nil, err
	}

	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, document.ErrDocumentNotFound
		}

		return nil, err
	}

	return data, nil
}

func (s *store) List(ctx context.Context, sessionID string) ([]string, error) {
	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() ||
			name == document.ArtifactName ||
			strings.HasPrefix(name, tempPrefix) {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

func (s *store) Delete(ctx context.Context, sessionID string, filename string) error {
	if err := document.ValidateFilename(filename); err != nil {
		return err
	}

	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document.ErrDocumentNotFound
		}

		return err
	}

	return nil
}

func (s *store) DeleteSession(ctx context.Context, sessionID string) error {
	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}

	s.log.Debug("session directory removed", zap.String("session_id", sessionID))
	return nil
}

func (s *store) PutArtifact(ctx context.Context, sessionID string, data []byte) error {
	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		return err
	}

	return writeFileAtomic(dir, document.ArtifactName, data)
}

func (s *store) GetArtifact(ctx context.Context, sessionID string) ([]byte, error) {
	dir, err := s.existingSessionDir(sessionID)
	if err != nil {
		if errors.Is(err, document.ErrSessionNotFound) {
			return nil, document.ErrArtifactNotFound
		}

		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, document.ArtifactName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, document.ErrArtifactNotFound
		}

		return nil, err
	}

	return data, nil
}

// writeFileAtomic writes into a temp file of the same directory and renames
// it over the target, so a reader sees either the old or the new content.
func writeFileAtomic(dir string, name string, data []byte) error {
	f, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}

	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}
