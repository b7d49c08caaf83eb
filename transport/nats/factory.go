package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"

	"github.com/flarexio/ragbox"
)

// RequestTimeout bounds a request whose context carries no deadline. Upload
// and ask wait on the embedding and chat providers, so it is generous.
var RequestTimeout = 2 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *ragbox.EndpointSet {
	return &ragbox.EndpointSet{
		Upload:         UploadEndpoint(nc, prefix+".upload"),
		ListFiles:      ListFilesEndpoint(nc, prefix+".list_files"),
		ReadFile:       ReadFileEndpoint(nc, prefix+".read_file"),
		Search:         SearchEndpoint(nc, prefix+".search"),
		Ask:            AskEndpoint(nc, prefix+".ask"),
		AskWithHistory: AskWithHistoryEndpoint(nc, prefix+".ask_with_history"),
		DeleteSession:  DeleteSessionEndpoint(nc, prefix+".delete_session"),
	}
}

func doRequest(ctx context.Context, nc *nats.Conn, topic string, sessionID string, payload any, response any) error {
	msg := nats.NewMsg(topic)

	if sessionID != "" {
		msg.Header.Set(SessionHeader, sessionID)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		msg.Data = data
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
	}

	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return requestError(topic, err)
	}

	if err := Error(resp); err != nil {
		return err
	}

	return json.Unmarshal(resp.Data, response)
}

func UploadEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.UploadRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.UploadResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ListFilesEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.ListFilesRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.ListFilesResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, nil, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ReadFileEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.ReadFileRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.ReadFileResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.SearchResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.MessageResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func AskWithHistoryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.AskWithHistoryRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.MessageResponse
		if err := doRequest(ctx, nc, topic, "", &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func DeleteSessionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragbox.DeleteSessionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp ragbox.MessageResponse
		if err := doRequest(ctx, nc, topic, req.SessionID, nil, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}
