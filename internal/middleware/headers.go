package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IDHeaderName carries the shared client identifier on write requests.
const IDHeaderName = "X-Recipe-Search-Identifier"

// CheckIDHeader rejects requests whose identifier header does not equal id.
// An empty id disables the check.
func CheckIDHeader(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id == "" {
			c.Next()
			return
		}
		if c.GetHeader(IDHeaderName) != id {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
