package repositories

import (
	"context"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/internal/viewcache"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/anonto42/memorylane/backend/validators"
	"go.uber.org/zap"
)

// ProfileRepository reads profiles and applies the viewer's own profile edits optimistically
type ProfileRepository struct {
	store store.Client
	cache *viewcache.Cache[string, models.UserProfile]
	log   *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(client store.Client, log *zap.Logger) *ProfileRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileRepository{
		store: client,
		cache: viewcache.New(func(p models.UserProfile) string { return p.ID }),
		log:   log,
	}
}

// Get returns the profile with the given id, from the cache when already loaded
func (r *ProfileRepository) Get(ctx context.Context, viewer *identity.Viewer, id string) (*models.UserProfile, error) {
	if p, ok := r.cache.Get(id); ok {
		return &p, nil
	}
	var rows []models.UserProfile
	if err := as(r.store, viewer).Select(ctx, store.From(models.TableProfiles).Where(store.Eq("id", id)), &rows); err != nil {
		return nil, apperrors.Wrap(err, "failed to load profile")
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("profile not found")
	}
	r.cache.Upsert(rows[0])
	return &rows[0], nil
}

// DisplayName resolves the name written next to the viewer's reactions, comments and memories
func (r *ProfileRepository) DisplayName(ctx context.Context, viewer *identity.Viewer) string {
	if !viewer.Authenticated() {
		return identity.Anonymous
	}
	var profileName string
	p, err := r.Get(ctx, viewer, viewer.ID)
	switch {
	case err == nil:
		profileName = p.DisplayName
	case !apperrors.IsNotFound(err):
		r.log.Debug("profile lookup failed, using identity name", zap.String("user_id", viewer.ID), zap.Error(err))
	}
	return identity.DisplayNameOf(viewer, profileName)
}

// DefaultPrivacy returns whether the viewer's new memories are public by default
func (r *ProfileRepository) DefaultPrivacy(ctx context.Context, viewer *identity.Viewer) bool {
	p, err := r.Get(ctx, viewer, viewer.ID)
	if err != nil {
		return false
	}
	return p.DefaultPostPrivacy == models.PrivacyPublic
}

// Update edits the viewer's own profile. The cache shows the edit immediately and is
// restored if the backend rejects it.
func (r *ProfileRepository) Update(ctx context.Context, viewer *identity.Viewer, upd models.ProfileUpdate) (*models.UserProfile, error) {
	if !viewer.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to edit your profile")
	}
	if err := validators.Struct(upd); err != nil {
		return nil, err
	}
	if _, err := r.Get(ctx, viewer, viewer.ID); err != nil {
		return nil, err
	}

	values := map[string]any{"updated_at": now()}
	tx := r.cache.Begin(viewer.ID, func(p models.UserProfile, ok bool) (models.UserProfile, bool) {
		if upd.DisplayName != nil {
			p.DisplayName = *upd.DisplayName
			values["display_name"] = *upd.DisplayName
		}
		if upd.IsPublicProfile != nil {
			p.IsPublicProfile = *upd.IsPublicProfile
			values["is_public_profile"] = *upd.IsPublicProfile
		}
		if upd.DefaultPostPrivacy != nil {
			p.DefaultPostPrivacy = *upd.DefaultPostPrivacy
			values["default_post_privacy"] = *upd.DefaultPostPrivacy
		}
		if upd.RelationshipStatus != nil {
			p.RelationshipStatus = *upd.RelationshipStatus
			values["relationship_status"] = *upd.RelationshipStatus
		}
		if upd.Bio != nil {
			p.Bio = *upd.Bio
			values["bio"] = *upd.Bio
		}
		return p, ok
	})

	var rows []models.UserProfile
	n, err := as(r.store, viewer).Update(ctx, store.From(models.TableProfiles).Where(store.Eq("id", viewer.ID)), values, &rows)
	if err != nil {
		tx.Rollback()
		return nil, apperrors.Wrap(err, "failed to update profile")
	}
	if n == 0 || len(rows) == 0 {
		tx.Rollback()
		return nil, apperrors.NewNotFound("profile not found")
	}
	tx.Commit(rows[0])
	return &rows[0], nil
}

// Cached returns the cached profile with the given id
func (r *ProfileRepository) Cached(id string) (models.UserProfile, bool) {
	return r.cache.Get(id)
}
