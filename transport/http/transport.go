package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"
	"github.com/google/uuid"

	"github.com/flarexio/ragbox"
)

const SessionCookie = "session_id"

var (
	ErrNoSession = errors.New("no session started")
	ErrNoFile    = errors.New("no file part")
)

// StatusCode maps service errors onto HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrNoFile):
		return http.StatusBadRequest
	case ragbox.IsValidation(err):
		return http.StatusBadRequest
	case ragbox.IsNotFound(err):
		return http.StatusNotFound
	case ragbox.IsProviderFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	c.JSON(StatusCode(err), &ragbox.MessageResponse{Message: err.Error()})
	c.Error(err)
	c.Abort()
}

func session(c *gin.Context) (string, error) {
	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		return "", ErrNoSession
	}

	return sessionID, nil
}

func UploadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			abort(c, ErrNoFile)
			return
		}

		f, err := fh.Open()
		if err != nil {
			abort(c, err)
			return
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			abort(c, err)
			return
		}

		sessionID, err := session(c)
		if err != nil {
			sessionID = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sessionID, 0, "/", "", false, true)

		req := ragbox.UploadRequest{
			SessionID: sessionID,
			Filename:  fh.Filename,
			Content:   content,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func ListFilesHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := session(c)
		if err != nil {
			abort(c, err)
			return
		}

		req := ragbox.ListFilesRequest{
			SessionID: sessionID,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ReadFileHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := session(c)
		if err != nil {
			abort(c, err)
			return
		}

		req := ragbox.ReadFileRequest{
			SessionID: sessionID,
			Filename:  c.Param("filename"),
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := session(c)
		if err != nil {
			abort(c, err)
			return
		}

		var req ragbox.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, &ragbox.MessageResponse{Message: err.Error()})
			c.Error(err)
			c.Abort()
			return
		}

		req.SessionID = sessionID

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := session(c)
		if err != nil {
			abort(c, err)
			return
		}

		var req ragbox.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, &ragbox.MessageResponse{Message: err.Error()})
			c.Error(err)
			c.Abort()
			return
		}

		req.SessionID = sessionID

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AskWithHistoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragbox.AskWithHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, &ragbox.MessageResponse{Message: err.Error()})
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func DeleteSessionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := session(c)
		if err != nil {
			abort(c, err)
			return
		}

		req := ragbox.DeleteSessionRequest{
			SessionID: sessionID,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, &resp)
	}
}
