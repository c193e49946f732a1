package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	q := store.From(models.TableMemories).
		Embed(store.EmbedReactions, store.EmbedComments, store.EmbedParticipants).
		Where(store.Or(store.Eq("is_public", true), store.Eq("author_id", "u1"))).
		Where(store.In("id", "a", "b,c")).
		OrderBy("created_at", true)

	v := Params(q)
	assert.Equal(t, "*,reactions(*),comments(*),participants:memory_participants(*)", v.Get("select"))
	assert.Equal(t, "(is_public.eq.true,author_id.eq.u1)", v.Get("or"))
	assert.Equal(t, `in.(a,"b,c")`, v.Get("id"))
	assert.Equal(t, "created_at.desc", v.Get("order"))

	assert.Equal(t, "*", Params(q.Flat()).Get("select"))
}

func TestSelectSendsCredentials(t *testing.T) {
	var gotAuth, gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `[{"id":"m1","title":"Trip","images":["x"],"reactions":[]}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key")
	var rows []models.Memory

	require.NoError(t, c.Select(context.Background(), store.From(models.TableMemories), &rows))
	assert.Equal(t, "Bearer anon-key", gotAuth)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "/rest/v1/memories", gotPath)
	require.Len(t, rows, 1)
	assert.Equal(t, "Trip", rows[0].Title)

	require.NoError(t, c.WithToken("user-jwt").Select(context.Background(), store.From(models.TableMemories), &rows))
	assert.Equal(t, "Bearer user-jwt", gotAuth)
}

func TestWritesReturnRepresentation(t *testing.T) {
	var prefer, method string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		method = r.Method
		body = nil
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `[{"id":"r1"},{"id":"r2"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	ctx := context.Background()

	var out []models.Reaction
	require.NoError(t, c.Insert(ctx, store.From(models.TableReactions), map[string]any{"memory_id": "m1"}, &out))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "return=representation", prefer)
	assert.Equal(t, "m1", body["memory_id"])
	assert.Len(t, out, 2)

	n, err := c.Update(ctx, store.From(models.TableRelationships).Where(store.Eq("id", "r1")), map[string]any{"status": "accepted"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, 2, n)

	var removed []models.Reaction
	n, err = c.Delete(ctx, store.From(models.TableReactions).Where(store.Eq("id", "r1")), &removed)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "return=representation", prefer)
	assert.Equal(t, 2, n)
	require.Len(t, removed, 2)
	assert.Equal(t, "r1", removed[0].ID)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   apperrors.Kind
	}{
		{"missing relationship", 400, `{"code":"PGRST200","message":"Could not find a relationship"}`, apperrors.KindSchemaDegraded},
		{"ambiguous relationship", 300, `{"code":"PGRST201","message":"more than one relationship"}`, apperrors.KindSchemaDegraded},
		{"unique violation", 409, `{"code":"23505","message":"duplicate key value"}`, apperrors.KindConflict},
		{"no rows", 406, `{"code":"PGRST116","message":"0 rows"}`, apperrors.KindNotFound},
		{"rls", 403, `{"code":"42501","message":"permission denied"}`, apperrors.KindUnauthorized},
		{"expired jwt", 401, `{"code":"PGRST301","message":"JWT expired"}`, apperrors.KindUnauthorized},
		{"bad request", 400, `{"code":"22P02","message":"invalid input syntax"}`, apperrors.KindInternal},
		{"gateway", 502, ``, apperrors.KindNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			err := New(srv.URL, "k").Select(context.Background(), store.From(models.TableMemories), nil)
			assert.True(t, apperrors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, "k").Select(context.Background(), store.From(models.TableMemories), nil)
	assert.True(t, apperrors.IsNetwork(err))
}
