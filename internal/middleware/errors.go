package middleware

import (
	"log"
	"net/http"

	"flashfeed/internal/apperr"

	"github.com/gin-gonic/gin"
)

// AbortWithError writes the JSON error envelope. 5xx details are only shown
// in debug mode and are always logged with the request id.
func AbortWithError(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	if status == http.StatusOK {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", GetRequestID(c), c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": apperr.MessageOf(err, gin.IsDebugging()),
			"status":  status,
		},
	})
}
