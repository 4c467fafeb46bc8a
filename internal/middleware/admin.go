package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
)

// UserFetcher looks up provider accounts for claim checks.
type UserFetcher interface {
	GetUser(ctx context.Context, uid string) (*identity.User, error)
}

// AdminMiddleware provides admin authorization middleware. It must run after
// AuthMiddleware.RequireAuth.
type AdminMiddleware struct {
	users  UserFetcher
	logger logging.Logger
}

// NewAdminMiddleware creates a new admin authorization middleware.
//
// Parameters:
//
//	users: Identity provider account lookup.
//	logger: Logger.
//
// Returns:
//
//	*AdminMiddleware: Initialized middleware.
func NewAdminMiddleware(users UserFetcher, logger logging.Logger) *AdminMiddleware {
	return &AdminMiddleware{
		users:  users,
		logger: logger.WithComponent("admin"),
	}
}

// RequireAdmin checks the authenticated user's custom claims for admin: true.
// The claims are fetched fresh from the provider so a revoked admin loses
// access immediately, not at token expiry.
//
// Returns:
//
//	gin.HandlerFunc: Gin handler.
func (am *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UserID(c)
		if !ok {
			am.logger.Error("Admin check ran without an authenticated user in context")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication context missing for admin check."})
			c.Abort()
			return
		}

		user, err := am.users.GetUser(c.Request.Context(), uid)
		if err != nil {
			am.logger.WithError(err).WithUserID(uid).Error("Admin claim check failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization check failed"})
			c.Abort()
			return
		}

		admin, _ := user.CustomClaims["admin"].(bool)
		if !admin {
			am.logger.WithUserID(uid).Warn("User attempted admin access without admin claim")
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required!"})
			c.Abort()
			return
		}

		c.Next()
	}
}
