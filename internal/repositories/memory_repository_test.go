package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/blob"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/internal/store/storetest"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTimeline(e *env) {
	e.db.Seed(models.TableMemories,
		memory("m1", "u1", true, 1),
		memory("m2", "u1", false, 2),
		memory("m3", "u2", false, 3),
		memory("m4", "u2", true, 4),
	)
}

func TestFetchManyPrivacy(t *testing.T) {
	e := newEnv(t)
	seedTimeline(e)
	ctx := context.Background()

	got, err := e.memories.FetchMany(ctx, sam, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m3", "m1"}, ids(got), "own private posts and everyone's public posts, newest first")

	got, err = e.memories.FetchMany(ctx, sam, FetchOptions{AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(got), "another author's private posts never leak")

	got, err = e.memories.FetchMany(ctx, river, FetchOptions{AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, ids(got))

	got, err = e.memories.FetchMany(ctx, river, FetchOptions{PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m1"}, ids(got))

	got, err = e.memories.FetchMany(ctx, nil, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m1"}, ids(got))
	assert.Equal(t, got, e.memories.Memories(), "fetch replaces the cache")
}

func TestFetchManyJoinsAndFallsBack(t *testing.T) {
	e := newEnv(t)
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
	e.db.Seed(models.TableReactions, models.Reaction{MemoryID: "m1", UserID: "u2", ReactionType: models.ReactionHeart})
	ctx := context.Background()

	got, err := e.memories.FetchMany(ctx, sam, FetchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Reactions, 1)

	e.db.DegradeJoins(true)
	got, err = e.memories.FetchMany(ctx, sam, FetchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Reactions)
	assert.Empty(t, got[0].Reactions)
	assert.NotNil(t, got[0].Comments)
	assert.NotNil(t, got[0].Participants)

	calls := e.db.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, storetest.Call{Op: storetest.OpSelect, Table: models.TableMemories, Joined: false, Token: "token-u2"}, last)
}

func TestFetchOne(t *testing.T) {
	e := newEnv(t)
	seedTimeline(e)
	ctx := context.Background()

	m, err := e.memories.FetchOne(ctx, river, "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", m.ID)

	_, err = e.memories.FetchOne(ctx, river, "m3")
	assert.True(t, apperrors.IsNotFound(err), "private memory of another author")

	_, err = e.memories.FetchOne(ctx, river, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	e.db.DegradeJoins(true)
	m, err = e.memories.FetchOne(ctx, nil, "m4")
	require.NoError(t, err)
	assert.Empty(t, m.Comments)
}

func TestFetchOneRefreshesCachedEntry(t *testing.T) {
	e := newEnv(t)
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
	ctx := context.Background()

	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	e.db.Seed(models.TableComments, models.Comment{MemoryID: "m1", UserID: "u2", Content: "so good"})
	_, err = e.memories.FetchOne(ctx, river, "m1")
	require.NoError(t, err)
	assert.Len(t, e.memories.Memories()[0].Comments, 1)
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.db.Seed(models.TableMemories, memory("old", "u1", true, 1))
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	m, err := e.memories.Create(ctx, river, models.CreateMemoryRequest{
		Title:    "Trip",
		Date:     "2026-10-14",
		Category: models.CategoryTravel,
	}, []assets.File{png("a"), png("b")})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "u1", m.AuthorID)
	assert.Equal(t, "River", m.AuthorName)
	assert.False(t, m.IsPublic, "falls back to the author's default privacy")
	require.Len(t, m.Images, 2)
	for _, u := range m.Images {
		assert.True(t, strings.HasPrefix(u, baseURL+blob.PublicPath+bucket+"/u1/"), u)
	}
	assert.NotNil(t, m.Reactions)
	assert.Equal(t, []string{m.ID, "old"}, ids(e.memories.Memories()), "new memory is prepended")
	assert.Len(t, e.blobs.Paths(), 2)
}

func TestCreateDefaultsToProfilePrivacy(t *testing.T) {
	e := newEnv(t)

	m, err := e.memories.Create(context.Background(), sam, models.CreateMemoryRequest{
		Title: "Picnic", Date: "2026-10-14", Category: models.CategoryDateNight,
	}, nil)
	require.NoError(t, err)
	assert.True(t, m.IsPublic)

	private := false
	m, err = e.memories.Create(context.Background(), sam, models.CreateMemoryRequest{
		Title: "Quiet", Date: "2026-10-14", Category: models.CategoryEveryday, IsPublic: &private,
	}, nil)
	require.NoError(t, err)
	assert.False(t, m.IsPublic)
}

func TestCreateRejectsBeforeNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	valid := models.CreateMemoryRequest{Title: "Trip", Date: "2026-10-14", Category: models.CategoryTravel}

	_, err := e.memories.Create(ctx, nil, valid, nil)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = e.memories.Create(ctx, river, models.CreateMemoryRequest{Title: "Trip"}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.memories.Create(ctx, river, valid, []assets.File{{Name: "x.pdf", ContentType: "application/pdf", Data: []byte("x")}})
	assert.True(t, apperrors.IsValidation(err))

	assert.Zero(t, e.db.CountCalls(storetest.OpInsert, models.TableMemories))
	assert.Empty(t, e.blobs.Paths())
}

func TestCreateDegradedInsert(t *testing.T) {
	e := newEnv(t)
	e.db.DegradeJoins(true)

	m, err := e.memories.Create(context.Background(), river, models.CreateMemoryRequest{
		Title: "Trip", Date: "2026-10-14", Category: models.CategoryTravel,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Trip", m.Title)
	assert.NotNil(t, m.Comments)
	assert.Equal(t, 1, e.db.Count(models.TableMemories))
}

func TestCreateFailureRemovesUploads(t *testing.T) {
	e := newEnv(t)
	e.db.FailNext(storetest.OpInsert, models.TableMemories, errBackend)

	_, err := e.memories.Create(context.Background(), river, models.CreateMemoryRequest{
		Title: "Trip", Date: "2026-10-14", Category: models.CategoryTravel,
	}, []assets.File{png("a")})
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Empty(t, e.blobs.Paths())
	assert.Empty(t, e.memories.Memories())
}

func TestCreateWithParticipants(t *testing.T) {
	e := newEnv(t)
	e.db.Seed(models.TableRelationships, models.Relationship{
		ID: "r1", RequesterID: "u1", ReceiverID: "u2", Status: models.StatusAccepted, RelationshipType: models.RelationshipRomantic,
	})
	ctx := context.Background()
	req := models.CreateMemoryRequest{
		Title: "Anniversary", Date: "2026-10-14", Category: models.CategoryAnniversary,
		Participants: []models.ParticipantInput{{UserID: "u2", UserName: "Sam"}},
	}

	m, err := e.memories.Create(ctx, river, req, nil)
	require.NoError(t, err)
	require.Len(t, m.Participants, 1)
	assert.Equal(t, models.Participant{MemoryID: m.ID, UserID: "u2", UserName: "Sam"}, m.Participants[0])

	req.Participants = []models.ParticipantInput{{UserID: "u3"}}
	_, err = e.memories.Create(ctx, river, req, nil)
	assert.True(t, apperrors.IsValidation(err), "u3 is not an accepted partner")
	assert.Equal(t, 1, e.db.Count(models.TableMemories))
}

func TestCreateParticipantFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	e.db.Seed(models.TableRelationships, models.Relationship{
		ID: "r1", RequesterID: "u2", ReceiverID: "u1", Status: models.StatusAccepted, RelationshipType: models.RelationshipFriendship,
	})
	e.db.FailNext(storetest.OpInsert, models.TableParticipants, errBackend)

	_, err := e.memories.Create(context.Background(), river, models.CreateMemoryRequest{
		Title: "Hike", Date: "2026-10-14", Category: models.CategoryAdventure,
		Participants: []models.ParticipantInput{{UserID: "u2"}},
	}, []assets.File{png("a")})
	require.Error(t, err)
	assert.Zero(t, e.db.Count(models.TableMemories))
	assert.Empty(t, e.blobs.Paths())
	assert.Empty(t, e.memories.Memories())
}

func seedImages(e *env, names ...string) []string {
	urls := make([]string, 0, len(names))
	for _, n := range names {
		urls = append(urls, e.blobs.Seed("u1/"+n+".png", []byte(n)))
	}
	return urls
}

func TestUpdateReconcilesImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	urls := seedImages(e, "a", "b", "c")
	a, b, c := urls[0], urls[1], urls[2]
	e.db.Seed(models.TableMemories, memory("m1", "u1", false, 1, a, b, c))
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	title := "Trip, revisited"
	m, err := e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{Title: &title}, []string{a, c}, []assets.File{png("f")})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"u1/b.png"}}, e.blobs.Removals(), "exactly b is deleted")
	require.Len(t, m.Images, 3)
	assert.Equal(t, []string{a, c}, []string(m.Images[:2]))
	assert.True(t, strings.HasPrefix(m.Images[2], baseURL+blob.PublicPath+bucket+"/u1/"))
	assert.Equal(t, title, m.Title)

	cached := e.memories.Memories()[0]
	assert.Equal(t, m.Images, cached.Images)
	assert.Len(t, e.blobs.Paths(), 3)
}

func TestUpdateChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	urls := seedImages(e, "a")
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1, urls...))
	_, err := e.memories.FetchMany(ctx, sam, FetchOptions{})
	require.NoError(t, err)

	_, err = e.memories.Update(ctx, sam, "m1", models.UpdateMemoryRequest{}, nil, nil)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{}, []string{baseURL + "/elsewhere.png"}, nil)
	assert.True(t, apperrors.IsValidation(err))

	many := make([]assets.File, 10)
	for i := range many {
		many[i] = png("n")
	}
	_, err = e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{}, nil, many)
	assert.True(t, apperrors.IsValidation(err), "1 kept + 10 new exceeds the limit")

	_, err = e.memories.Update(ctx, river, "missing", models.UpdateMemoryRequest{}, nil, nil)
	assert.True(t, apperrors.IsNotFound(err))

	assert.Zero(t, e.db.CountCalls(storetest.OpUpdate, models.TableMemories))
	assert.Empty(t, e.blobs.Removals())
}

func TestUpdateFailureRemovesNewUploads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	urls := seedImages(e, "a")
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1, urls...))
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)
	e.db.FailNext(storetest.OpUpdate, models.TableMemories, errBackend)

	_, err = e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{}, nil, []assets.File{png("new")})
	require.Error(t, err)
	assert.Equal(t, []string{"u1/a.png"}, e.blobs.Paths())
	assert.Equal(t, []string(urls), []string(e.memories.Memories()[0].Images), "cache unchanged")
}

func TestUpdateFailureRestoresParticipants(t *testing.T) {
	cases := []struct {
		name  string
		op    storetest.Op
		table string
	}{
		{"memory update fails", storetest.OpUpdate, models.TableMemories},
		{"participant insert fails", storetest.OpInsert, models.TableParticipants},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			e.db.Seed(models.TableRelationships,
				models.Relationship{ID: "r1", RequesterID: "u1", ReceiverID: "u2", Status: models.StatusAccepted},
				models.Relationship{ID: "r2", RequesterID: "u3", ReceiverID: "u1", Status: models.StatusAccepted},
			)
			e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
			e.db.Seed(models.TableParticipants, models.Participant{MemoryID: "m1", UserID: "u2", UserName: "Sam"})
			_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
			require.NoError(t, err)
			e.db.FailNext(tc.op, tc.table, errBackend)

			tags := []models.ParticipantInput{{UserID: "u3", UserName: "Alex"}}
			_, err = e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{Participants: &tags}, nil, []assets.File{png("new")})
			require.Error(t, err)

			var stored []models.Participant
			e.db.Rows(models.TableParticipants, &stored)
			assert.Equal(t, []models.Participant{{MemoryID: "m1", UserID: "u2", UserName: "Sam"}}, stored)
			cached := e.memories.Memories()[0].Participants
			require.Len(t, cached, 1)
			assert.Equal(t, "u2", cached[0].UserID)
			assert.Empty(t, e.blobs.Paths())
		})
	}
}

func TestUpdateDegradedPreservesCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
	e.db.Seed(models.TableReactions, models.Reaction{MemoryID: "m1", UserID: "u2", ReactionType: models.ReactionSmile})
	e.db.Seed(models.TableComments, models.Comment{MemoryID: "m1", UserID: "u2", Content: "nice"})
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	e.db.DegradeJoins(true)
	desc := "updated"
	m, err := e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{Description: &desc}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "updated", m.Description)
	assert.Len(t, m.Reactions, 1)
	assert.Len(t, m.Comments, 1)
	assert.Equal(t, m, &e.memories.Memories()[0])
}

func TestUpdateReplacesParticipants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.db.Seed(models.TableRelationships,
		models.Relationship{ID: "r1", RequesterID: "u1", ReceiverID: "u2", Status: models.StatusAccepted},
		models.Relationship{ID: "r2", RequesterID: "u3", ReceiverID: "u1", Status: models.StatusAccepted},
	)
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
	e.db.Seed(models.TableParticipants, models.Participant{MemoryID: "m1", UserID: "u2", UserName: "Sam"})
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	tags := []models.ParticipantInput{{UserID: "u3", UserName: "Alex"}}
	m, err := e.memories.Update(ctx, river, "m1", models.UpdateMemoryRequest{Participants: &tags}, nil, nil)
	require.NoError(t, err)
	require.Len(t, m.Participants, 1)
	assert.Equal(t, "u3", m.Participants[0].UserID)
	assert.Equal(t, 1, e.db.Count(models.TableParticipants))
}

func TestDeleteTripScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trip := memory("trip", "u1", false, 1, e.blobs.Seed("u1/a.png", []byte("a")))
	trip.Title = "Trip"
	e.db.Seed(models.TableMemories, trip)
	e.db.Seed(models.TableReactions, models.Reaction{MemoryID: "trip", UserID: "u1", ReactionType: models.ReactionHeart})
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)
	e.blobs.FailRemove(true)

	require.NoError(t, e.memories.Delete(ctx, river, "trip"))

	assert.Zero(t, e.db.Count(models.TableMemories))
	assert.Zero(t, e.db.Count(models.TableReactions), "cascade")
	assert.Equal(t, [][]string{{"u1/a.png"}}, e.blobs.Removals())
	assert.Empty(t, e.memories.Memories())
}

func TestDeleteRemovesImagesOfStoredRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	urls := seedImages(e, "a", "b")
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1, urls[0]))
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)

	// Edited elsewhere after this cache was loaded.
	_, err = e.db.Update(ctx, store.From(models.TableMemories).Where(store.Eq("id", "m1")),
		map[string]any{"images": models.ImageList(urls)}, nil)
	require.NoError(t, err)

	require.NoError(t, e.memories.Delete(ctx, river, "m1"))
	assert.Equal(t, [][]string{{"u1/a.png", "u1/b.png"}}, e.blobs.Removals())
	assert.Empty(t, e.blobs.Paths())
}

func TestDeleteChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))

	assert.True(t, apperrors.IsUnauthorized(e.memories.Delete(ctx, nil, "m1")))
	assert.True(t, apperrors.IsUnauthorized(e.memories.Delete(ctx, sam, "m1")))
	assert.True(t, apperrors.IsNotFound(e.memories.Delete(ctx, river, "missing")))
	assert.Zero(t, e.db.CountCalls(storetest.OpDelete, models.TableMemories))
	assert.Equal(t, 1, e.db.Count(models.TableMemories))
}

func TestDeleteStoreFailureKeepsCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.db.Seed(models.TableMemories, memory("m1", "u1", true, 1))
	_, err := e.memories.FetchMany(ctx, river, FetchOptions{})
	require.NoError(t, err)
	e.db.FailNext(storetest.OpDelete, models.TableMemories, errBackend)

	assert.True(t, apperrors.IsNetwork(e.memories.Delete(ctx, river, "m1")))
	assert.Len(t, e.memories.Memories(), 1)
	assert.Empty(t, e.blobs.Removals())
}
