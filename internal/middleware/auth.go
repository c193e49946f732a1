// Package middleware authenticates requests to the functions server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/labstack/echo/v4"
)

// ViewerKey is the echo context key holding the *identity.Viewer of a request
const ViewerKey = "viewer"

// Verifier turns a bearer token into the viewer it identifies
type Verifier func(ctx context.Context, token string) (*identity.Viewer, error)

// Authenticate rejects requests without a valid bearer token and stores the viewer in the context
func Authenticate(verify Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			viewer, err := verify(c.Request().Context(), parts[1])
			if err != nil || !viewer.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(ViewerKey, viewer)
			return next(c)
		}
	}
}

// ViewerFrom returns the viewer stored by Authenticate, or nil
func ViewerFrom(c echo.Context) *identity.Viewer {
	v, _ := c.Get(ViewerKey).(*identity.Viewer)
	return v
}
