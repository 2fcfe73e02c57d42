package reflection

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/generations"
	"reflection-backend/internal/shared/server/middleware"
	"reflection-backend/internal/shared/server/respond"
)

// Handler exposes the generation endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai", h.generate)
	rg.POST("/generate", h.generate)
}

type generateRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeError(c, MapError(fmt.Errorf("%w: %v", ErrInvalidData, err)))
		return
	}
	if req.Type != "" {
		c.Set(middleware.KindKey, req.Type)
	}

	res, err := h.Svc.Generate(
		c.Request.Context(),
		middleware.UserIDFromContext(c),
		middleware.RequestIDFromContext(c),
		req.Type,
		req.Data,
	)
	if err != nil {
		c.Set(middleware.OutcomeKey, generations.OutcomeFailed)
		writeError(c, MapError(err))
		return
	}

	outcome := generations.OutcomeGenerated
	if res.Fallback {
		outcome = generations.OutcomeFallback
	}
	c.Set(middleware.OutcomeKey, outcome)
	respond.OK(c, res.Response)
}

func writeError(c *gin.Context, e *Error) {
	c.Set(middleware.ErrorCodeKey, e.Code)
	respond.Flat(c, e.Status, e.Code, e.Message, e.Details)
}
