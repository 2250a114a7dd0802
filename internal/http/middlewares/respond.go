package middlewares

import "github.com/gin-gonic/gin"

// abortJSON writes the same error envelope as handlers.RespondError; the
// handlers package depends on this one so it cannot be reused here.
func abortJSON(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)

	body := gin.H{
		"success": false,
		"code":    code,
		"message": message,
	}
	if id, ok := reqID.(string); ok && id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, body)
}
