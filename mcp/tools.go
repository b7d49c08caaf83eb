package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragbox"
)

const (
	ToolUploadDocument = "upload_document"
	ToolListFiles      = "list_files"
	ToolReadFile       = "read_file"
	ToolSearch         = "search_documents"
	ToolAsk            = "ask"
	ToolAskWithHistory = "ask_with_history"
	ToolDeleteSession  = "delete_session"
)

var ErrUnknownTool = errors.New("unknown tool")

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session token grouping the uploaded documents"),
	)
}

// Tools is the static tool catalogue served by tools/list.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolUploadDocument,
			mcp.WithDescription("Store a document in the session and rebuild its embedding index"),
			sessionArg(),
			mcp.WithString("filename",
				mcp.Required(),
				mcp.Description("File name; .pdf and .csv are extracted, anything else is read as UTF-8 text"),
			),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("Document content"),
			),
			mcp.WithString("encoding",
				mcp.Description("Content encoding"),
				mcp.Enum("text", "base64"),
			),
		),
		mcp.NewTool(ToolListFiles,
			mcp.WithDescription("List the documents uploaded to the session"),
			mcp.WithReadOnlyHintAnnotation(true),
			sessionArg(),
		),
		mcp.NewTool(ToolReadFile,
			mcp.WithDescription("Return the extracted text of one uploaded document"),
			mcp.WithReadOnlyHintAnnotation(true),
			sessionArg(),
			mcp.WithString("filename",
				mcp.Required(),
				mcp.Description("Name of the uploaded document"),
			),
		),
		mcp.NewTool(ToolSearch,
			mcp.WithDescription("Rank the session's documents by semantic similarity to a query"),
			mcp.WithReadOnlyHintAnnotation(true),
			sessionArg(),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural language query"),
			),
			mcp.WithNumber("k",
				mcp.Description("Maximum number of matches, all when omitted"),
				mcp.Min(1),
			),
		),
		mcp.NewTool(ToolAsk,
			mcp.WithDescription("Answer a question grounded on the session's most relevant document"),
			sessionArg(),
			mcp.WithString("user_message",
				mcp.Required(),
				mcp.Description("The question"),
			),
		),
		mcp.NewTool(ToolAskWithHistory,
			mcp.WithDescription("Answer a question using only the supplied conversation history"),
			mcp.WithString("user_message",
				mcp.Required(),
				mcp.Description("The question"),
			),
			mcp.WithArray("history",
				mcp.Description("Prior turns, oldest first"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sender":  map[string]any{"type": "string"},
						"message": map[string]any{"type": "string"},
					},
					"required": []string{"sender", "message"},
				}),
			),
		),
		mcp.NewTool(ToolDeleteSession,
			mcp.WithDescription("Delete every document and the index of the session"),
			mcp.WithDestructiveHintAnnotation(true),
			sessionArg(),
		),
	}
}

type uploadArgs struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Encoding  string `json:"encoding"`
}

type historyArgs struct {
	UserMessage string                `json:"user_message"`
	History     []ragbox.HistoryEntry `json:"history"`
}

// CallTool runs one tool against the service. Service failures are reported
// as tool results with IsError set; only an unknown tool is a protocol error.
func CallTool(ctx context.Context, svc ragbox.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.Params.Name {
	case ToolUploadDocument:
		var args uploadArgs
		if err := req.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content := []byte(args.Content)
		if strings.EqualFold(args.Encoding, "base64") {
			decoded, err := base64.StdEncoding.DecodeString(args.Content)
			if err != nil {
				return mcp.NewToolResultErrorFromErr("invalid base64 content", err), nil
			}

			content = decoded
		}

		if err := svc.Upload(ctx, args.SessionID, args.Filename, content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(ragbox.UploadSucceeded), nil

	case ToolListFiles:
		files, err := svc.ListFiles(ctx, req.GetString("session_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(strings.Join(files, "\n")), nil

	case ToolReadFile:
		filename, err := req.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content, err := svc.ReadFile(ctx, req.GetString("session_id", ""), filename)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(content), nil

	case ToolSearch:
		matches, err := svc.Search(ctx,
			req.GetString("session_id", ""),
			req.GetString("query", ""),
			req.GetInt("k", 0),
		)

		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		bs, err := json.Marshal(&matches)
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(string(bs)), nil

	case ToolAsk:
		answer, err := svc.Ask(ctx,
			req.GetString("session_id", ""),
			req.GetString("user_message", ""),
		)

		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(answer), nil

	case ToolAskWithHistory:
		var args historyArgs
		if err := req.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		answer, err := svc.AskWithHistory(ctx, args.UserMessage, args.History)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(answer), nil

	case ToolDeleteSession:
		if err := svc.DeleteSession(ctx, req.GetString("session_id", "")); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(ragbox.SessionDeleted), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Params.Name)
	}
}
