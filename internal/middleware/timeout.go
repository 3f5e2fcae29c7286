package middleware

import (
	"context"
	"errors"
	"time"

	"flashfeed/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Timeout attaches a deadline to the request context. Store calls made with
// c.Request.Context() are aborted when it passes; if the handler wrote
// nothing by then the client gets a 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			AbortWithError(c, apperr.ErrTimeout)
		}
	}
}
