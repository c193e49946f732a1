package middleware

import (
	"context"
	"fmt"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	supa "github.com/supabase-community/supabase-go"
)

// JWTAuthMiddleware verifies Supabase access tokens signed with the project's JWT secret
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return Authenticate(SupabaseJWTVerifier(secret))
}

// SupabaseJWTVerifier checks the HS256 signature and expiry of a Supabase access token
func SupabaseJWTVerifier(secret string) Verifier {
	return func(ctx context.Context, tokenString string) (*identity.Viewer, error) {
		claims := &identity.SupabaseClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return nil, err
		}
		if !token.Valid || claims.Subject == "" {
			return nil, fmt.Errorf("invalid token")
		}
		return claims.Viewer(tokenString), nil
	}
}

// SupabaseUserVerifier asks the Supabase auth server who owns the token. It is used when the
// JWT secret is not configured.
func SupabaseUserVerifier(client *supa.Client) Verifier {
	return func(ctx context.Context, token string) (*identity.Viewer, error) {
		user, err := client.Auth.WithToken(token).GetUser()
		if err != nil {
			return nil, err
		}
		return &identity.Viewer{ID: user.ID.String(), Email: user.Email, Token: token}, nil
	}
}
