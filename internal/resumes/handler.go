package resumes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/credits"
	"resumegen-api/internal/guard"
	"resumegen-api/internal/prompts"
	"resumegen-api/internal/shared/server/middleware"
	"resumegen-api/internal/shared/server/respond"
	"resumegen-api/resume/model"
)

// Handler exposes resume CRUD, generation and the template catalogue.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.listTemplates)
	rg.GET("/resumes", h.list)
	rg.POST("/resumes", h.create)
	rg.GET("/resumes/:id", h.get)
	rg.PATCH("/resumes/:id", h.update)
	rg.DELETE("/resumes/:id", h.delete)
	rg.POST("/resumes/:id/generate", h.generate)
}

func (h *Handler) listTemplates(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"templates": prompts.Templates()})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Failed to fetch resumes")
		return
	}
	respond.JSON(c, http.StatusOK, items)
}

func (h *Handler) get(c *gin.Context) {
	res, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to fetch resume")
		return
	}
	respond.JSON(c, http.StatusOK, res)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err, "Failed to create resume")
		return
	}
	c.Set("resumeId", res.ID)
	respond.Created(c, res)
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err, "Failed to update resume")
		return
	}
	respond.JSON(c, http.StatusOK, res)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete resume")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) generate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	async, _ := strconv.ParseBool(c.Query("async"))

	if async {
		res, err := h.Svc.EnqueueGeneration(c.Request.Context(), userID, id, middleware.RequestIDFromContext(c))
		if err != nil {
			writeError(c, err, "Failed to generate resume")
			return
		}
		c.Set("statusTransition", string(StatusDraft)+"->"+string(StatusGenerating))
		respond.JSON(c, http.StatusAccepted, res)
		return
	}

	res, err := h.Svc.Generate(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err, "Failed to generate resume")
		return
	}
	c.Set("statusTransition", string(StatusGenerating)+"->"+string(res.Status))
	respond.JSON(c, http.StatusOK, res)
}

func writeError(c *gin.Context, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		code := "validation_error"
		if verr.Result.Code == guard.CodeOffTopicRejected {
			code = "off_topic"
		}
		respond.Error(c, http.StatusBadRequest, code, verr.Result.Error, gin.H{"field": verr.Field})
	case errors.Is(err, model.ErrInvalid):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNoInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Add at least one input source before generating", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
	case errors.Is(err, credits.ErrInsufficientCredits):
		respond.Error(c, http.StatusPaymentRequired, "insufficient_credits", "Insufficient credits", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "Resume is being generated or was modified; reload and retry", nil)
	case errors.Is(err, ErrQueueUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "Background generation is not available", nil)
	case errors.Is(err, ErrGenerationFailed):
		respond.Error(c, http.StatusInternalServerError, "generation_failed", "Failed to generate resume", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
