package ragbox

import (
	"context"
	"errors"

	"github.com/flarexio/ragbox/vector"
)

// ProxyMiddleware serves the Service from a remote EndpointSet, ignoring the
// wrapped implementation.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) Upload(ctx context.Context, sessionID string, filename string, data []byte) error {
	req := UploadRequest{
		SessionID: sessionID,
		Filename:  filename,
		Content:   data,
	}

	_, err := mw.endpoints.Upload(ctx, req)
	return err
}

func (mw *proxyMiddleware) ListFiles(ctx context.Context, sessionID string) ([]string, error) {
	req := ListFilesRequest{
		SessionID: sessionID,
	}

	resp, err := mw.endpoints.ListFiles(ctx, req)
	if err != nil {
		return nil, err
	}

	files, ok := resp.(ListFilesResponse)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return files.Filenames(), nil
}

func (mw *proxyMiddleware) ReadFile(ctx context.Context, sessionID string, filename string) (string, error) {
	req := ReadFileRequest{
		SessionID: sessionID,
		Filename:  filename,
	}

	resp, err := mw.endpoints.ReadFile(ctx, req)
	if err != nil {
		return "", err
	}

	file, ok := resp.(ReadFileResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return file.Content, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, sessionID string, query string, k ...int) ([]vector.Match, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := SearchRequest{
		SessionID: sessionID,
		Query:     query,
		K:         n,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(SearchResponse)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result.Matches, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, sessionID string, message string) (string, error) {
	req := AskRequest{
		SessionID:   sessionID,
		UserMessage: message,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return "", err
	}

	answer, ok := resp.(MessageResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return answer.Message, nil
}

func (mw *proxyMiddleware) AskWithHistory(ctx context.Context, message string, history []HistoryEntry) (string, error) {
	req := AskWithHistoryRequest{
		UserMessage: message,
		History:     history,
	}

	resp, err := mw.endpoints.AskWithHistory(ctx, req)
	if err != nil {
		return "", err
	}

	answer, ok := resp.(MessageResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return answer.Message, nil
}

func (mw *proxyMiddleware) DeleteSession(ctx context.Context, sessionID string) error {
	req := DeleteSessionRequest{
		SessionID: sessionID,
	}

	_, err := mw.endpoints.DeleteSession(ctx, req)
	return err
}
