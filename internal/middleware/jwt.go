package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursemeet/backend/internal/auth"
	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextSubject is the key for the capability subject in gin context.
	ContextSubject = "subject"
)

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextSubject, capability.Subject{
			UserID:    claims.UserID,
			Role:      claims.Role,
			Email:     claims.Email,
			FirstName: claims.FirstName,
			LastName:  claims.LastName,
			AvatarURL: claims.AvatarURL,
		})
		c.Next()
	}
}

// SubjectFrom returns the authenticated subject set by JWT.
func SubjectFrom(c *gin.Context) (capability.Subject, bool) {
	v, ok := c.Get(ContextSubject)
	if !ok {
		return capability.Subject{}, false
	}
	s, ok := v.(capability.Subject)
	return s, ok
}
