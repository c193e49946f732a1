package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/blob/blobtest"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store/storetest"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
)

const (
	baseURL = "https://proj.supabase.co"
	bucket  = "memory-images"
)

var (
	river = &identity.Viewer{ID: "u1", Email: "river@example.com", Token: "token-u1"}
	sam   = &identity.Viewer{ID: "u2", Email: "sam@example.com", Token: "token-u2"}
	alex  = &identity.Viewer{ID: "u3", Email: "alex@example.com", Token: "token-u3"}
)

type fakeFinder struct {
	users map[string]models.UserRef
	err   error
}

func (f *fakeFinder) FindUser(ctx context.Context, viewer *identity.Viewer, query string) (*models.UserRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[strings.ToLower(query)]
	if !ok {
		return nil, apperrors.NewNotFound("user not found")
	}
	return &u, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.InvitationRequest
	err  error
}

func (n *fakeNotifier) SendInvitation(ctx context.Context, viewer *identity.Viewer, req models.InvitationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return n.err
}

type env struct {
	db            *storetest.Store
	blobs         *blobtest.Store
	profiles      *ProfileRepository
	relationships *RelationshipRepository
	memories      *MemoryRepository
	finder        *fakeFinder
	notifier      *fakeNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := storetest.New()
	blobs := blobtest.New(baseURL, bucket)
	finder := &fakeFinder{users: map[string]models.UserRef{
		"river@example.com": {ID: "u1", DisplayName: "River"},
		"sam@example.com":   {ID: "u2", DisplayName: "Sam"},
		"alex@example.com":  {ID: "u3", DisplayName: "Alex"},
		"sam":               {ID: "u2", DisplayName: "Sam"},
	}}
	notifier := &fakeNotifier{}

	profiles := NewProfileRepository(db, nil)
	relationships := NewRelationshipRepository(db, finder, notifier, nil)
	memories := NewMemoryRepository(db, assets.NewManager(blobs, bucket, nil), profiles, relationships, nil)

	db.Seed(models.TableProfiles,
		models.UserProfile{ID: "u1", DisplayName: "River", DefaultPostPrivacy: models.PrivacyPrivate},
		models.UserProfile{ID: "u2", DisplayName: "Sam", DefaultPostPrivacy: models.PrivacyPublic},
		models.UserProfile{ID: "u3", DisplayName: "alex.smith@example.com"},
	)
	return &env{
		db:            db,
		blobs:         blobs,
		profiles:      profiles,
		relationships: relationships,
		memories:      memories,
		finder:        finder,
		notifier:      notifier,
	}
}

var clock = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

// memory builds a seedable memory created minutes after a fixed instant
func memory(id, author string, public bool, minutes int, images ...string) models.Memory {
	if images == nil {
		images = []string{}
	}
	return models.Memory{
		ID:         id,
		CreatedAt:  clock.Add(time.Duration(minutes) * time.Minute),
		UpdatedAt:  clock.Add(time.Duration(minutes) * time.Minute),
		Title:      "Memory " + id,
		Date:       "2026-10-01",
		Category:   models.CategoryEveryday,
		IsPublic:   public,
		Images:     images,
		AuthorID:   author,
		AuthorName: author,
	}
}

func png(data string) assets.File {
	return assets.File{Name: data + ".png", ContentType: "image/png", Data: []byte(data)}
}

func ids(memories []models.Memory) []string {
	out := make([]string, 0, len(memories))
	for _, m := range memories {
		out = append(out, m.ID)
	}
	return out
}

var errBackend = apperrors.NewNetwork("backend unavailable", errors.New("connection reset"))
