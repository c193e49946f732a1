// Package identity models the current viewer and the identity provider collaborators.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Viewer is the authenticated identity a repository call is made on behalf of.
// A nil *Viewer is an anonymous visitor.
type Viewer struct {
	ID            string
	Email         string
	EmailVerified bool
	// DisplayName comes from the identity provider's user metadata, when present.
	DisplayName string
	// Token is the bearer credential forwarded to the backend.
	Token string
}

// Authenticated reports whether v identifies a signed-in user
func (v *Viewer) Authenticated() bool {
	return v != nil && v.ID != ""
}

// Is reports whether v is the user with the given id
func (v *Viewer) Is(userID string) bool {
	return v.Authenticated() && v.ID == userID
}

// SupabaseClaims are the claims carried by a Supabase access token
type SupabaseClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Viewer builds a Viewer from the claims and the raw token they were parsed from
func (c *SupabaseClaims) Viewer(token string) *Viewer {
	v := &Viewer{ID: c.Subject, Email: c.Email, Token: token}
	for _, key := range []string{"display_name", "full_name", "name"} {
		if name, ok := c.UserMetadata[key].(string); ok && name != "" {
			v.DisplayName = name
			break
		}
	}
	if verified, ok := c.UserMetadata["email_verified"].(bool); ok {
		v.EmailVerified = verified
	}
	return v
}

// ViewerFromUnverifiedToken extracts the viewer from a Supabase access token without checking
// its signature. The backend verifies the token on every request; the client only needs the ids.
func ViewerFromUnverifiedToken(token string) (*Viewer, error) {
	claims := &SupabaseClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}
	return claims.Viewer(token), nil
}
