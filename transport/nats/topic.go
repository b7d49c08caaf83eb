package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragbox"
)

func AddEndpoints(group micro.Group, endpoints ragbox.EndpointSet) {
	group.AddEndpoint("upload", UploadHandler(endpoints.Upload))
	group.AddEndpoint("list_files", ListFilesHandler(endpoints.ListFiles))
	group.AddEndpoint("read_file", ReadFileHandler(endpoints.ReadFile))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
	group.AddEndpoint("ask_with_history", AskWithHistoryHandler(endpoints.AskWithHistory))
	group.AddEndpoint("delete_session", DeleteSessionHandler(endpoints.DeleteSession))
}
