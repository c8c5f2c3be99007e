package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/pkg/response"
)

// RequireCapability returns a middleware that allows only subjects holding c in scope.
func RequireCapability(checker capability.Checker, c capability.Capability, scope capability.Scope) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		subject, ok := SubjectFrom(ctx)
		if !ok {
			response.Unauthorized(ctx, "missing user context")
			ctx.Abort()
			return
		}
		if err := capability.Require(ctx.Request.Context(), checker, subject, c, scope); err != nil {
			response.Forbidden(ctx, "insufficient permissions")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
