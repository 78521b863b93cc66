// Package httputil holds response helpers shared by handlers and middleware.
package httputil

import "github.com/gin-gonic/gin"

// RespondError aborts the request with a JSON error body carrying a stable
// machine-readable code, a human message, and the request ID when one is set.
func RespondError(c *gin.Context, status int, code, message string) {
	var requestID string
	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			requestID = s
		}
	}

	resp := map[string]string{
		"code":    code,
		"message": message,
	}

	if requestID != "" {
		resp["request_id"] = requestID
	}

	c.AbortWithStatusJSON(status, resp)
}
