package middleware

import (
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/gin-gonic/gin"
)

// OrganizationMiddleware extracts the tenant identity from the request
// headers. Session-based auth lives upstream of this service; the gateway
// forwards the resolved identity in headers.
func OrganizationMiddleware(c *gin.Context) {
	orgID := c.GetHeader(types.HeaderOrganizationID)
	if orgID == "" {
		_ = c.Error(ierr.NewError("missing organization header").
			WithHintf("The %s header is required", types.HeaderOrganizationID).
			Mark(ierr.ErrPermissionDenied))
		c.Abort()
		return
	}

	ctx := c.Request.Context()
	ctx = types.SetOrganizationID(ctx, orgID)
	if userID := c.GetHeader(types.HeaderUserID); userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
