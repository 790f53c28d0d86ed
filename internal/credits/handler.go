package credits

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/server/middleware"
	"resumegen-api/internal/shared/server/respond"
)

// Handler exposes balance and pack endpoints.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.getBalance)
	rg.GET("/credits/packs", h.listPacks)
}

// RegisterDevRoutes attaches the grant endpoint that stands in for checkout outside prod.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/credits/grant", h.grant)
}

func (h *Handler) getBalance(c *gin.Context) {
	b, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeStoreError(c, err, "failed to fetch credits")
		return
	}
	respond.JSON(c, http.StatusOK, b)
}

func (h *Handler) listPacks(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"packs": Packs()})
}

type grantRequest struct {
	PackID string `json:"packId"`
	Amount int    `json:"amount"`
}

func (h *Handler) grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	amount, reason := req.Amount, "dev_grant"
	if req.PackID != "" {
		pack, err := PackByID(req.PackID)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unknown pack", gin.H{"packId": req.PackID})
			return
		}
		amount, reason = pack.Credits, "pack:"+pack.ID
	}

	b, err := h.Svc.Grant(c.Request.Context(), middleware.UserIDFromContext(c), amount, reason)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "amount must be positive", nil)
			return
		}
		writeStoreError(c, err, "failed to grant credits")
		return
	}
	respond.JSON(c, http.StatusOK, b)
}

func writeStoreError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}
