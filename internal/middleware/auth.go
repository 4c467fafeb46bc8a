package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	// Package middleware provides HTTP middleware components for authentication,
	// authorization, and other cross-cutting concerns.
	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/observability"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextUserID = "user_id"
	ContextEmail  = "user_email"
	ContextClaims = "user_claims"
)

// TokenVerifier validates bearer tokens against the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.TokenClaims, error)
}

// AuthMiddleware provides bearer token authentication middleware.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
//
// Parameters:
//
//	verifier: Token verifier backed by the identity provider.
//	logger: Logger.
//
// Returns:
//
//	*AuthMiddleware: Initialized middleware.
func NewAuthMiddleware(verifier TokenVerifier, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger.WithComponent("auth"),
	}
}

// RequireAuth validates the request's bearer token with the identity
// provider and sets the user's id, email and claims in the gin context.
//
// Returns:
//
//	gin.HandlerFunc: Gin handler.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			am.logger.Warn("Authorization token is missing from request")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is missing."})
			c.Abort()
			return
		}

		// Check Bearer prefix (case-insensitive as per RFC 6750)
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := am.verifier.VerifyToken(c.Request.Context(), tokenParts[1])
		if err != nil {
			am.logger.WithError(err).Warn("Token verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token. Please log in again."})
			c.Abort()
			return
		}

		observability.SetUser(c.Request.Context(), claims.UID, claims.Email)
		c.Set(ContextUserID, claims.UID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// UserID returns the authenticated user's id from the gin context.
//
// Returns:
//
//	string: User id.
//	bool: False when RequireAuth did not run.
func UserID(c *gin.Context) (string, bool) {
	uid := c.GetString(ContextUserID)
	return uid, uid != ""
}

// UserClaims returns the authenticated user's verified claims.
func UserClaims(c *gin.Context) (*identity.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*identity.TokenClaims)
	return claims, ok
}
