// Package account deletes a user's data at the end of the account lifecycle.
package account

import (
	"context"

	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"go.uber.org/zap"
)

// Purger removes a user's images and then the identity itself. Profile, memories and
// relationships go with the identity through the database cascade.
type Purger struct {
	store     store.Client
	assets    *assets.Manager
	directory identity.Directory
	log       *zap.Logger
}

// NewPurger creates a new Purger. client must see every memory of the user, so it should
// act with service credentials.
func NewPurger(client store.Client, images *assets.Manager, directory identity.Directory, log *zap.Logger) *Purger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Purger{store: client, assets: images, directory: directory, log: log}
}

// Purge deletes every image of userID's memories, best effort, then deletes the identity
func (p *Purger) Purge(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.NewValidation("user id is required")
	}

	var memories []struct {
		ID     string           `json:"id"`
		Images models.ImageList `json:"images"`
	}
	q := store.From(models.TableMemories).Where(store.Eq("author_id", userID))
	if err := p.store.Select(ctx, q, &memories); err != nil {
		return apperrors.Wrap(err, "failed to list memories")
	}

	var urls []string
	for _, m := range memories {
		urls = append(urls, m.Images...)
	}
	paths := p.assets.Paths(urls)
	p.log.Info("purging account",
		zap.String("user_id", userID),
		zap.Int("memories", len(memories)),
		zap.Int("images", len(paths)),
	)
	p.assets.DeleteAll(ctx, paths)

	if err := p.directory.DeleteUser(ctx, userID); err != nil {
		return apperrors.Wrap(err, "failed to delete user")
	}
	return nil
}
