package ragbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/ragbox/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ragbox"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Upload(ctx context.Context, sessionID string, filename string, data []byte) error {
	log := mw.log.With(
		zap.String("action", "upload"),
		zap.String("session_id", sessionID),
		zap.String("filename", filename),
		zap.Int("size", len(data)),
	)

	err := mw.next.Upload(ctx, sessionID, filename, data)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("file uploaded")
	return nil
}

func (mw *loggingMiddleware) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	log := mw.log.With(
		zap.String("action", "list_files"),
		zap.String("session_id", sessionID),
	)

	files, err := mw.next.ListFiles(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("files listed", zap.Int("count", len(files)))
	return files, nil
}

func (mw *loggingMiddleware) ReadFile(ctx context.Context, sessionID string, filename string) (string, error) {
	log := mw.log.With(
		zap.String("action", "read_file"),
		zap.String("session_id", sessionID),
		zap.String("filename", filename),
	)

	content, err := mw.next.ReadFile(ctx, sessionID, filename)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("file read")
	return content, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, sessionID string, query string, k ...int) ([]vector.Match, error) {
	var n int
	if len(k) > 0 {
		n = k[0]
	}

	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("session_id", sessionID),
		zap.String("query", query),
	)

	if n > 0 {
		log = log.With(
			zap.Int("k", n),
		)
	}

	matches, err := mw.next.Search(ctx, sessionID, query, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents ranked", zap.Int("count", len(matches)))
	return matches, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, sessionID string, message string) (string, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("session_id", sessionID),
		zap.String("user_message", message),
	)

	answer, err := mw.next.Ask(ctx, sessionID, message)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("length", len(answer)))
	return answer, nil
}

func (mw *loggingMiddleware) AskWithHistory(ctx context.Context, message string, history []HistoryEntry) (string, error) {
	log := mw.log.With(
		zap.String("action", "ask_with_history"),
		zap.String("user_message", message),
		zap.Int("history", len(history)),
	)

	answer, err := mw.next.AskWithHistory(ctx, message, history)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("length", len(answer)))
	return answer, nil
}

func (mw *loggingMiddleware) DeleteSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "delete_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.DeleteSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session deleted")
	return nil
}
