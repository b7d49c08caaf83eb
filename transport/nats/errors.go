package nats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragbox"
	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/extract"
	"github.com/flarexio/ragbox/llm"
	"github.com/flarexio/ragbox/vector"
)

// Code maps service errors onto micro error codes, mirroring HTTP statuses.
func Code(err error) string {
	switch {
	case ragbox.IsValidation(err):
		return "400"
	case ragbox.IsNotFound(err):
		return "404"
	case ragbox.IsProviderFailure(err):
		return "502"
	default:
		return "500"
	}
}

// sentinels are matched against remote error descriptions, most specific
// first, so that errors.Is keeps working on the client side.
var sentinels = []error{
	vector.ErrEmbeddingBuildFailed,
	vector.ErrProviderUnavailable,
	llm.ErrCompletionFailed,
	extract.ErrUnsupportedContent,
	vector.ErrIndexNotFound,
	document.ErrInvalidSessionID,
	document.ErrInvalidFilename,
	document.ErrSessionNotFound,
	document.ErrDocumentNotFound,
	document.ErrArtifactNotFound,
	ragbox.ErrEmptyMessage,
	ragbox.ErrNoFiles,
}

type RemoteError struct {
	Code        string
	Description string
	causes      []error
}

func (e *RemoteError) Error() string {
	return e.Code + ":" + e.Description
}

func (e *RemoteError) Unwrap() []error {
	return e.causes
}

// Error decodes a micro error response; it returns nil for a successful reply.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	remote := &RemoteError{
		Code:        code,
		Description: description,
	}

	for _, sentinel := range sentinels {
		if strings.Contains(description, sentinel.Error()) {
			remote.causes = append(remote.causes, sentinel)
		}
	}

	return remote
}

func requestError(topic string, err error) error {
	return fmt.Errorf("request %s: %w", topic, err)
}
