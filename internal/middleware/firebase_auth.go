package middleware

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/labstack/echo/v4"
)

// FirebaseAuthMiddleware verifies Firebase ID tokens
func FirebaseAuthMiddleware(authClient *auth.Client) echo.MiddlewareFunc {
	return Authenticate(FirebaseVerifier(authClient))
}

// FirebaseVerifier verifies a Firebase ID token with the Admin SDK
func FirebaseVerifier(authClient *auth.Client) Verifier {
	return func(ctx context.Context, idToken string) (*identity.Viewer, error) {
		token, err := authClient.VerifyIDToken(ctx, idToken)
		if err != nil {
			return nil, err
		}
		return viewerFromFirebase(token, idToken), nil
	}
}

func viewerFromFirebase(token *auth.Token, raw string) *identity.Viewer {
	v := &identity.Viewer{ID: token.UID, Token: raw}
	if email, ok := token.Claims["email"].(string); ok {
		v.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		v.EmailVerified = verified
	}
	if name, ok := token.Claims["name"].(string); ok {
		v.DisplayName = name
	}
	return v
}
