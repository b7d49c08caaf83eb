package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/ragbox"

	mcpE "github.com/flarexio/ragbox/mcp"
)

func AddRouters(r *gin.Engine, endpoints ragbox.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/upload", UploadHandler(endpoints.Upload))
		api.GET("/files", ListFilesHandler(endpoints.ListFiles))
		api.GET("/files/:filename", ReadFileHandler(endpoints.ReadFile))
		api.GET("/search", SearchHandler(endpoints.Search))
		api.POST("/ask", AskHandler(endpoints.Ask))
		api.POST("/chat", AskWithHistoryHandler(endpoints.AskWithHistory))
		api.DELETE("/session", DeleteSessionHandler(endpoints.DeleteSession))
	}

	// Legacy routes kept for existing frontends
	r.POST("/upload", UploadHandler(endpoints.Upload))
	r.GET("/retrieve-files", ListFilesHandler(endpoints.ListFiles))
	r.POST("/gpt-response", AskHandler(endpoints.Ask))
	r.POST("/gpt-pack-response", AskWithHistoryHandler(endpoints.AskWithHistory))
	r.DELETE("/delete-session", DeleteSessionHandler(endpoints.DeleteSession))
}

func AddMetricsRouter(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
