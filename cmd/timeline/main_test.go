package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/blob/blobtest"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/anonto42/memorylane/backend/internal/store/storetest"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	river = &identity.Viewer{ID: "u1", Email: "river@example.com", Token: "token-u1"}
	sam   = &identity.Viewer{ID: "u2", Email: "sam@example.com", Token: "token-u2"}
)

type finder map[string]models.UserRef

func (f finder) FindUser(ctx context.Context, viewer *identity.Viewer, query string) (*models.UserRef, error) {
	if u, ok := f[strings.ToLower(query)]; ok {
		return &u, nil
	}
	return nil, apperrors.NewNotFound("user not found")
}

// world is the backend shared by every command run; each run gets fresh repositories,
// like a new process would
type world struct {
	db      *storetest.Store
	blobs   *blobtest.Store
	deleted []string
}

func newWorld() *world {
	w := &world{db: storetest.New(), blobs: blobtest.New("https://proj.supabase.co", "memory-images")}
	w.db.Seed(models.TableProfiles,
		models.UserProfile{ID: "u1", DisplayName: "River"},
		models.UserProfile{ID: "u2", DisplayName: "Sam"},
	)
	return w
}

func (w *world) DeleteUserData(ctx context.Context, viewer *identity.Viewer) error {
	if !viewer.Authenticated() {
		return apperrors.NewUnauthorized("sign in to delete your account")
	}
	w.deleted = append(w.deleted, viewer.ID)
	return nil
}

func (w *world) as(v *identity.Viewer) builder {
	return func() (*app, error) {
		profiles := repositories.NewProfileRepository(w.db, nil)
		rels := repositories.NewRelationshipRepository(w.db, finder{"sam": {ID: "u2", DisplayName: "Sam"}}, nil, nil)
		images := assets.NewManager(w.blobs, "memory-images", nil)
		return &app{
			viewer:        v,
			memories:      repositories.NewMemoryRepository(w.db, images, profiles, rels, nil),
			relationships: rels,
			profiles:      profiles,
			account:       w,
			log:           zap.NewNop(),
		}, nil
	}
}

func (w *world) run(v *identity.Viewer, args ...string) (string, error) {
	cmd := newRootCmd(w.as(v))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "beach.png")
	require.NoError(t, os.WriteFile(p, append([]byte("\x89PNG\r\n\x1a\n"), "pixels"...), 0o600))
	return p
}

func TestCreateAndListMemory(t *testing.T) {
	w := newWorld()

	out, err := w.run(river, "memory", "create",
		"--title", "Beach day", "--date", "2026-05-01", "--category", "travel",
		"--public", "--image", writePNG(t))
	require.NoError(t, err)

	var created models.Memory
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Beach day", created.Title)
	assert.True(t, created.IsPublic)
	require.Len(t, created.Images, 1)
	assert.Len(t, w.blobs.Paths(), 1)

	out, err = w.run(nil, "timeline")
	require.NoError(t, err)
	var listed []models.Memory
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	w := newWorld()

	_, err := w.run(river, "memory", "create", "--title", "x", "--date", "May 1st")
	assert.True(t, apperrors.IsValidation(err))

	_, err = w.run(river, "memory", "create", "--title", "x", "--date", "2026-05-01", "--public", "--private")
	assert.Error(t, err)
	assert.Zero(t, w.db.Count(models.TableMemories))
}

func TestReactToggles(t *testing.T) {
	w := newWorld()
	w.db.Seed(models.TableMemories, models.Memory{ID: "m1", AuthorID: "u1", Title: "Hike", IsPublic: true})

	out, err := w.run(sam, "react", "m1", "heart")
	require.NoError(t, err)
	var reactions []models.Reaction
	require.NoError(t, json.Unmarshal([]byte(out), &reactions))
	require.Len(t, reactions, 1)
	assert.Equal(t, "Sam", reactions[0].UserName)

	out, err = w.run(sam, "react", "m1", "heart")
	require.NoError(t, err)
	reactions = nil
	require.NoError(t, json.Unmarshal([]byte(out), &reactions))
	assert.Empty(t, reactions)
	assert.Zero(t, w.db.Count(models.TableReactions))
}

func TestCommentAddAndDelete(t *testing.T) {
	w := newWorld()
	w.db.Seed(models.TableMemories, models.Memory{ID: "m1", AuthorID: "u1", Title: "Hike", IsPublic: true})

	out, err := w.run(sam, "comment", "add", "m1", "  what a view  ")
	require.NoError(t, err)
	var c models.Comment
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, "what a view", c.Content)

	_, err = w.run(river, "comment", "delete", "m1", c.ID)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = w.run(sam, "comment", "delete", "m1", c.ID)
	require.NoError(t, err)
	assert.Zero(t, w.db.Count(models.TableComments))
}

func TestRelationshipFlow(t *testing.T) {
	w := newWorld()

	_, err := w.run(river, "relationships", "send", "Sam", "--type", "romantic")
	require.NoError(t, err)

	out, err := w.run(sam, "rel", "list")
	require.NoError(t, err)
	var view map[string][]relationshipOut
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view["pending"], 1)
	assert.Equal(t, "River", view["pending"][0].PartnerName)
	id := view["pending"][0].ID

	_, err = w.run(sam, "rel", "respond", id)
	assert.Error(t, err, "one of --accept or --decline is required")

	out, err = w.run(sam, "rel", "respond", id, "--accept")
	require.NoError(t, err)
	view = nil
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view["accepted"], 1)
	assert.Empty(t, view["pending"])

	_, err = w.run(river, "rel", "remove", id)
	require.NoError(t, err)
	assert.Zero(t, w.db.Count(models.TableRelationships))
}

func TestProfileShowAndUpdate(t *testing.T) {
	w := newWorld()

	out, err := w.run(river, "profile", "update", "--bio", "hiker", "--default-privacy", "public")
	require.NoError(t, err)
	var p models.UserProfile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "hiker", p.Bio)
	assert.Equal(t, models.PrivacyPublic, p.DefaultPostPrivacy)
	assert.Equal(t, "River", p.DisplayName)

	out, err = w.run(river, "profile", "show", "u2")
	require.NoError(t, err)
	assert.Contains(t, out, `"display_name": "Sam"`)

	_, err = w.run(nil, "profile", "show")
	assert.Error(t, err)
}

func TestDeleteAccount(t *testing.T) {
	w := newWorld()

	_, err := w.run(river, "delete-account")
	assert.Error(t, err)
	assert.Empty(t, w.deleted)

	out, err := w.run(river, "delete-account", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "account deleted\n", out)
	assert.Equal(t, []string{"u1"}, w.deleted)
}
