package handlers

import (
	"net/http"

	"github.com/anonto42/memorylane/backend/internal/middleware"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// GetUser retrieves a user's profile by ID. Private profiles are only shown to their owner
// and look missing to everyone else.
func (h *UserHandler) GetUser(c echo.Context) error {
	viewer := middleware.ViewerFrom(c)
	user, err := h.userRepository.GetUserByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	if !user.IsPublicProfile && (!viewer.Authenticated() || viewer.ID != user.ID) {
		return toHTTPError(apperrors.NewNotFound("user not found"))
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewer := middleware.ViewerFrom(c)
	if !viewer.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), viewer.ID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}
