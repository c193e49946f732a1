package repositories

import (
	"context"
	"testing"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store/storetest"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileGetCaches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.profiles.Get(ctx, river, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.DisplayName)

	_, err = e.profiles.Get(ctx, river, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, e.db.CountCalls(storetest.OpSelect, models.TableProfiles))

	_, err = e.profiles.Get(ctx, river, "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDisplayNameFallbacks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, "River", e.profiles.DisplayName(ctx, river))
	assert.Equal(t, identity.Anonymous, e.profiles.DisplayName(ctx, nil))

	noProfile := &identity.Viewer{ID: "u9", DisplayName: "Jamie"}
	assert.Equal(t, "Jamie", e.profiles.DisplayName(ctx, noProfile))

	emailOnly := &identity.Viewer{ID: "u10", Email: "morgan@example.com"}
	assert.Equal(t, "Morgan", e.profiles.DisplayName(ctx, emailOnly))

	e.db.FailNext(storetest.OpSelect, models.TableProfiles, errBackend)
	assert.Equal(t, "Casey", e.profiles.DisplayName(ctx, &identity.Viewer{ID: "u11", Email: "casey@example.com"}))
}

func TestProfileUpdateCommits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bio := "Collecting small moments"
	privacy := models.PrivacyPublic

	p, err := e.profiles.Update(ctx, river, models.ProfileUpdate{Bio: &bio, DefaultPostPrivacy: &privacy})
	require.NoError(t, err)
	assert.Equal(t, bio, p.Bio)
	assert.Equal(t, "River", p.DisplayName)

	cached, ok := e.profiles.Cached("u1")
	require.True(t, ok)
	assert.Equal(t, *p, cached)
	assert.True(t, e.profiles.DefaultPrivacy(ctx, river))
}

func TestProfileUpdateRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	before, err := e.profiles.Get(ctx, river, "u1")
	require.NoError(t, err)

	name := "Riv"
	e.db.FailNext(storetest.OpUpdate, models.TableProfiles, errBackend)
	_, err = e.profiles.Update(ctx, river, models.ProfileUpdate{DisplayName: &name})
	require.True(t, apperrors.IsNetwork(err))

	cached, ok := e.profiles.Cached("u1")
	require.True(t, ok)
	assert.Equal(t, *before, cached)
}

func TestProfileUpdateGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.profiles.Update(ctx, nil, models.ProfileUpdate{})
	assert.True(t, apperrors.IsUnauthorized(err))

	bad := models.PostPrivacy("friends")
	_, err = e.profiles.Update(ctx, river, models.ProfileUpdate{DefaultPostPrivacy: &bad})
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.profiles.Update(ctx, &identity.Viewer{ID: "u9"}, models.ProfileUpdate{})
	assert.True(t, apperrors.IsNotFound(err))
	assert.Zero(t, e.db.CountCalls(storetest.OpUpdate, models.TableProfiles))
}
