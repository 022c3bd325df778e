package middleware

import (
	"github.com/complytrack/complytrack/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware ensures every request carries a request id, either
// the caller's or a freshly generated one.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx = types.SetRequestID(ctx, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
