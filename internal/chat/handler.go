package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/orchestrator"
	"resumegen-api/internal/resumes"
	"resumegen-api/internal/shared/server/middleware"
	"resumegen-api/internal/shared/server/respond"
)

// Handler serves the chat stream and history endpoints.
type Handler struct {
	Coord *Coordinator
}

func NewHandler(coord *Coordinator) *Handler {
	return &Handler{Coord: coord}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/:id/chat", h.chat)
	rg.GET("/resumes/:id/messages", h.messages)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := c.Request.Context()
	turn, err := h.Coord.Prepare(ctx, middleware.UserIDFromContext(c), c.Param("id"), req.Message)
	if turn != nil {
		c.Set("chatState", string(turn.State()))
	}
	if err != nil {
		writePrepareError(c, err)
		return
	}

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	_ = turn.Run(ctx, func(ev orchestrator.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeEvent(c, ev)
	})
	c.Set("chatState", string(turn.State()))
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(c *gin.Context, ev orchestrator.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := c.Writer.Write(payload); err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte("\n\n")); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func (h *Handler) messages(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if _, err := h.Coord.Resumes.Get(c.Request.Context(), userID, id); err != nil {
		writePrepareError(c, err)
		return
	}
	items, err := h.Coord.Messages.List(c.Request.Context(), userID, id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch messages", nil)
		return
	}
	respond.JSON(c, http.StatusOK, items)
}

func writePrepareError(c *gin.Context, err error) {
	var verr *resumes.ValidationError
	switch {
	case errors.As(err, &verr):
		code := "validation_error"
		if verr.Result.Code == guard.CodeOffTopicRejected {
			code = "off_topic"
		}
		respond.Error(c, http.StatusBadRequest, code, verr.Result.Error, nil)
	case errors.Is(err, resumes.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
	case errors.Is(err, resumes.ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "Resume is being generated; try again when it completes", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", FailureMessage, nil)
	}
}
