// Package repositories holds the timeline's data access layer.
//
// The Memory, Reaction, Comment, Relationship and Profile repositories run on the client
// side: they talk to a store.Client on behalf of an explicit *identity.Viewer and keep the
// viewer's Local View Cache consistent with what the backend confirmed. The Postgres*
// repositories back the server-side functions.
package repositories

import (
	"context"
	"time"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
)

// UserFinder resolves an email address or display name to a user
type UserFinder interface {
	FindUser(ctx context.Context, viewer *identity.Viewer, query string) (*models.UserRef, error)
}

// InvitationSender notifies a user about a relationship request
type InvitationSender interface {
	SendInvitation(ctx context.Context, viewer *identity.Viewer, req models.InvitationRequest) error
}

// PartnerLister lists the users the viewer has an accepted relationship with
type PartnerLister interface {
	Partners(ctx context.Context, viewer *identity.Viewer) ([]string, error)
}

// as returns a store client that acts with the viewer's credential
func as(c store.Client, viewer *identity.Viewer) store.Client {
	if viewer == nil || viewer.Token == "" {
		return c
	}
	return c.WithToken(viewer.Token)
}

var now = func() time.Time { return time.Now().UTC() }
