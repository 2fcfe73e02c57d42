package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status. Bodies are per caller, so
// intermediaries must not cache them.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, payload)
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Page writes one page of a list with the paging window that produced it.
// A nil slice should be replaced by an empty one before calling.
func Page(c *gin.Context, items interface{}, limit, offset int) {
	OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}
