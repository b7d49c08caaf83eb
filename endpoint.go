package ragbox

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/ragbox/vector"
)

type EndpointSet struct {
	Upload         endpoint.Endpoint
	ListFiles      endpoint.Endpoint
	ReadFile       endpoint.Endpoint
	Search         endpoint.Endpoint
	Ask            endpoint.Endpoint
	AskWithHistory endpoint.Endpoint
	DeleteSession  endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Upload:         UploadEndpoint(svc),
		ListFiles:      ListFilesEndpoint(svc),
		ReadFile:       ReadFileEndpoint(svc),
		Search:         SearchEndpoint(svc),
		Ask:            AskEndpoint(svc),
		AskWithHistory: AskWithHistoryEndpoint(svc),
		DeleteSession:  DeleteSessionEndpoint(svc),
	}
}

// MessageResponse mirrors the `{"message": ...}` body every transport returns.
type MessageResponse struct {
	Message string `json:"message"`
}

type UploadRequest struct {
	SessionID string `json:"-"`
	Filename  string `json:"filename"`
	Content   []byte `json:"content"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

const UploadSucceeded = "File uploaded successfully"

func UploadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(UploadRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.Upload(ctx, req.SessionID, req.Filename, req.Content)
		if err != nil {
			return nil, err
		}

		return UploadResponse{
			Message:  UploadSucceeded,
			Filename: req.Filename,
		}, nil
	}
}

type ListFilesRequest struct {
	SessionID string `json:"-"`
}

type FileEntry struct {
	Filename string `json:"filename"`
}

type ListFilesResponse struct {
	Files []FileEntry `json:"files"`
}

func (resp ListFilesResponse) Filenames() []string {
	names := make([]string, len(resp.Files))
	for i, f := range resp.Files {
		names[i] = f.Filename
	}

	return names
}

func ListFilesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ListFilesRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		names, err := svc.ListFiles(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}

		files := make([]FileEntry, len(names))
		for i, name := range names {
			files[i] = FileEntry{Filename: name}
		}

		return ListFilesResponse{Files: files}, nil
	}
}

type ReadFileRequest struct {
	SessionID string `json:"-"`
	Filename  string `json:"filename"`
}

type ReadFileResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func ReadFileEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ReadFileRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		content, err := svc.ReadFile(ctx, req.SessionID, req.Filename)
		if err != nil {
			return nil, err
		}

		return ReadFileResponse{
			Filename: req.Filename,
			Content:  content,
		}, nil
	}
}

type SearchRequest struct {
	SessionID string `json:"-" form:"-"`
	Query     string `json:"query" form:"query"`
	K         int    `json:"k,omitempty" form:"k"`
}

type SearchResponse struct {
	Matches []vector.Match `json:"matches"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		matches, err := svc.Search(ctx, req.SessionID, req.Query, req.K)
		if err != nil {
			return nil, err
		}

		return SearchResponse{Matches: matches}, nil
	}
}

type AskRequest struct {
	SessionID   string `json:"-"`
	UserMessage string `json:"user_message"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		answer, err := svc.Ask(ctx, req.SessionID, req.UserMessage)
		if err != nil {
			return nil, err
		}

		return MessageResponse{Message: answer}, nil
	}
}

type AskWithHistoryRequest struct {
	UserMessage string         `json:"user_message"`
	History     []HistoryEntry `json:"history"`
}

func AskWithHistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskWithHistoryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		answer, err := svc.AskWithHistory(ctx, req.UserMessage, req.History)
		if err != nil {
			return nil, err
		}

		return MessageResponse{Message: answer}, nil
	}
}

type DeleteSessionRequest struct {
	SessionID string `json:"-"`
}

const SessionDeleted = "Session and all associated files deleted successfully"

func DeleteSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(DeleteSessionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.DeleteSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}

		return MessageResponse{Message: SessionDeleted}, nil
	}
}
