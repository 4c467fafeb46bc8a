package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/identity"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/middleware"
)

// UserDirectory is the slice of the identity client the user handler needs.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]identity.User, error)
	CreateUser(ctx context.Context, req identity.CreateUserRequest) (*identity.User, error)
	UpdateUser(ctx context.Context, uid string, req identity.UpdateUserRequest) error
	DeleteUser(ctx context.Context, uid string) error
}

// UserHandler manages identity provider accounts. Every route requires the
// admin claim.
type UserHandler struct {
	users  UserDirectory
	logger logging.Logger
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(users UserDirectory, logger logging.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.WithComponent("user_handler"),
	}
}

// ListUsers returns every provider account.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		// Provider error text stays server-side
		h.logger.WithError(err).Error("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	result := make([]gin.H, 0, len(users))
	for _, user := range users {
		result = append(result, gin.H{
			"uid":           user.UID,
			"email":         user.Email,
			"display_name":  user.DisplayName,
			"custom_claims": user.CustomClaims,
		})
	}
	c.JSON(http.StatusOK, result)
}

// CreateUser creates a provider account and applies its role claims.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req identity.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created", "uid": user.UID})
}

// UpdateUser updates an account's display name and role claims. Nil roles
// clear the claims.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req identity.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdateUser(c.Request.Context(), c.Param("uid"), req); err != nil {
		h.logger.WithError(err).Error("Failed to update user")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

// DeleteUser deletes a provider account. Admins cannot delete themselves.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	uid := c.Param("uid")
	if callerUID, ok := middleware.UserID(c); ok && callerUID == uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot delete your own account"})
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), uid); err != nil {
		h.logger.WithError(err).Error("Failed to delete user")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
