package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"gorm.io/gorm"
)

// Account is an identity known to the provider
type Account struct {
	ID          string
	Email       string
	DisplayName string
}

// Directory looks up and deletes identities at the identity provider
type Directory interface {
	LookupEmail(ctx context.Context, email string) (*Account, error)
	DeleteUser(ctx context.Context, userID string) error
}

// FirebaseDirectory implements Directory with the Firebase Admin SDK
type FirebaseDirectory struct {
	client *auth.Client
}

// NewFirebaseDirectory creates a new FirebaseDirectory
func NewFirebaseDirectory(client *auth.Client) *FirebaseDirectory {
	return &FirebaseDirectory{client: client}
}

// LookupEmail finds a Firebase user by email address
func (d *FirebaseDirectory) LookupEmail(ctx context.Context, email string) (*Account, error) {
	user, err := d.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, apperrors.NewNotFound("no user with that email")
		}
		return nil, apperrors.NewNetwork("firebase lookup failed", err)
	}
	return &Account{ID: user.UID, Email: user.Email, DisplayName: user.DisplayName}, nil
}

// DeleteUser deletes a Firebase user
func (d *FirebaseDirectory) DeleteUser(ctx context.Context, userID string) error {
	if err := d.client.DeleteUser(ctx, userID); err != nil {
		if auth.IsUserNotFound(err) {
			return apperrors.NewNotFound("user not found")
		}
		return apperrors.NewNetwork("firebase delete failed", err)
	}
	return nil
}

// PostgresDirectory implements Directory over the auth.users table of a Supabase database.
// Deleting from auth.users cascades to profiles, memories and relationships.
type PostgresDirectory struct {
	db *gorm.DB
}

// NewPostgresDirectory creates a new PostgresDirectory
func NewPostgresDirectory(db *gorm.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

type authUser struct {
	ID          string
	Email       string
	DisplayName string
}

// LookupEmail finds a Supabase auth user by email address (case-insensitive)
func (d *PostgresDirectory) LookupEmail(ctx context.Context, email string) (*Account, error) {
	var user authUser
	err := d.db.WithContext(ctx).
		Table("auth.users").
		Select("id", "email", "raw_user_meta_data->>'display_name' AS display_name").
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("no user with that email")
		}
		return nil, fmt.Errorf("lookup auth user: %w", err)
	}
	return &Account{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}, nil
}

// DeleteUser removes the auth user row
func (d *PostgresDirectory) DeleteUser(ctx context.Context, userID string) error {
	res := d.db.WithContext(ctx).Exec("DELETE FROM auth.users WHERE id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("delete auth user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound("user not found")
	}
	return nil
}
