package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/middleware"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AccountPurger deletes every piece of a user's data
type AccountPurger interface {
	Purge(ctx context.Context, userID string) error
}

// FunctionsHandler serves the find-user, send-invitation and delete-user-data functions
type FunctionsHandler struct {
	directory     identity.Directory
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	purger        AccountPurger
	log           *zap.Logger
}

// NewFunctionsHandler creates a new FunctionsHandler
func NewFunctionsHandler(
	directory identity.Directory,
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
	purger AccountPurger,
	log *zap.Logger,
) *FunctionsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FunctionsHandler{
		directory:     directory,
		users:         users,
		notifications: notifications,
		purger:        purger,
		log:           log,
	}
}

// RegisterFunctionRoutes registers the function routes
func (h *FunctionsHandler) RegisterFunctionRoutes(g *echo.Group) {
	g.POST("/find-user", h.FindUser)
	g.POST("/send-invitation", h.SendInvitation)
	g.POST("/delete-user-data", h.DeleteUserData)
}

type findUserRequest struct {
	Email string `json:"email"`
}

// FindUser resolves an email address through the identity provider, or any other input
// through profile display names
func (h *FunctionsHandler) FindUser(c echo.Context) error {
	var req findUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	query := strings.TrimSpace(req.Email)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	ctx := c.Request().Context()
	user, err := h.lookup(ctx, query)
	if apperrors.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "No user found with that email or name")
	}
	if err != nil {
		return toHTTPError(apperrors.Wrap(err, "failed to look up user"))
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

func (h *FunctionsHandler) lookup(ctx context.Context, query string) (*models.UserRef, error) {
	if !strings.Contains(query, "@") {
		profile, err := h.users.FindByDisplayName(ctx, query)
		if err != nil {
			return nil, err
		}
		return &models.UserRef{ID: profile.ID, DisplayName: identity.NormalizeDisplayName(profile.DisplayName)}, nil
	}

	account, err := h.directory.LookupEmail(ctx, query)
	if err != nil {
		return nil, err
	}
	name := account.DisplayName
	if profile, err := h.users.GetUserByID(ctx, account.ID); err == nil && profile.DisplayName != "" {
		name = profile.DisplayName
	}
	if name == "" {
		name = account.Email
	}
	return &models.UserRef{ID: account.ID, DisplayName: identity.NormalizeDisplayName(name)}, nil
}

// SendInvitation records an invitation notification for the receiver of a request
func (h *FunctionsHandler) SendInvitation(c echo.Context) error {
	viewer := middleware.ViewerFrom(c)
	if !viewer.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.InvitationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return toHTTPError(err)
	}

	ctx := c.Request().Context()
	name := ""
	if profile, err := h.users.GetUserByID(ctx, viewer.ID); err == nil {
		name = profile.DisplayName
	}
	n := &models.Notification{
		Type:        models.NotificationInvitation,
		ActorID:     viewer.ID,
		RecipientID: req.ReceiverID,
		TargetID:    req.RelationshipID,
		TargetType:  "relationship",
		Message:     fmt.Sprintf("%s sent you a %s request", identity.DisplayNameOf(viewer, name), req.RelationshipType),
	}
	if err := h.notifications.CreateNotification(ctx, n); err != nil {
		return toHTTPError(apperrors.NewInternal("failed to record invitation", err))
	}
	h.log.Info("invitation sent",
		zap.String("relationship_id", req.RelationshipID),
		zap.String("receiver_id", req.ReceiverID),
	)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteUserData deletes the viewer's images and identity
func (h *FunctionsHandler) DeleteUserData(c echo.Context) error {
	viewer := middleware.ViewerFrom(c)
	if !viewer.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.purger.Purge(c.Request().Context(), viewer.ID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
