package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/shared/server/respond"
)

// Handler exposes the health endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches GET /health.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.status)
}

func (h *Handler) status(c *gin.Context) {
	report := h.Svc.Status(c.Request.Context())
	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, report)
}
