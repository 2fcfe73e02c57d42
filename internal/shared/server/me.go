package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/shared/server/middleware"
	"reflection-backend/internal/shared/server/respond"
	"reflection-backend/internal/usage"
)

// registerMeRoutes attaches GET /me: who the caller is and how many
// generations they have left today.
func registerMeRoutes(rg *gin.RouterGroup, quota *usage.Service) {
	rg.GET("/me", func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		body := gin.H{
			"userId": userID,
			"guest":  middleware.IsGuest(c),
		}
		if email := middleware.UserEmailFromContext(c); email != "" {
			body["email"] = email
		}
		if name := middleware.UserNameFromContext(c); name != "" {
			body["name"] = name
		}
		if quota != nil {
			u, err := quota.EnsurePeriod(c.Request.Context(), userID)
			if err != nil {
				respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
				return
			}
			body["usage"] = u.Body()
		}
		respond.OK(c, body)
	})
}
