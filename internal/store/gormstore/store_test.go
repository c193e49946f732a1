package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind apperrors.Kind
	}{
		{"not found", gorm.ErrRecordNotFound, apperrors.KindNotFound},
		{"relation", fmt.Errorf("preload: %w", gorm.ErrUnsupportedRelation), apperrors.KindSchemaDegraded},
		{"duplicated", gorm.ErrDuplicatedKey, apperrors.KindConflict},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key value"}, apperrors.KindConflict},
		{"missing table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, apperrors.KindSchemaDegraded},
		{"denied", &pgconn.PgError{Code: "42501", Message: "permission denied"}, apperrors.KindUnauthorized},
		{"other pg", &pgconn.PgError{Code: "22P02"}, apperrors.KindInternal},
		{"timeout", context.DeadlineExceeded, apperrors.KindNetwork},
		{"unknown", errors.New("boom"), apperrors.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, apperrors.KindOf(classify(tc.err)))
		})
	}
	assert.NoError(t, classify(nil))
}

func TestResolve(t *testing.T) {
	_, assoc, err := resolve(store.From(models.TableMemories).Embed(store.EmbedReactions, store.EmbedParticipants))
	require.NoError(t, err)
	assert.Equal(t, []string{"Reactions", "Participants"}, assoc)

	_, _, err = resolve(store.From(models.TableReactions).Embed(store.EmbedComments))
	assert.True(t, apperrors.IsSchemaDegraded(err))

	_, _, err = resolve(store.From("stories"))
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}

func TestConditions(t *testing.T) {
	exprs := conditions([]store.Filter{
		store.Eq("id", "m1"),
		store.Or(store.Eq("is_public", true), store.In("author_id", "u1", "u2")),
	})
	require.Len(t, exprs, 2)
	assert.Equal(t, clause.Eq{Column: clause.Column{Name: "id"}, Value: "m1"}, exprs[0])
	assert.IsType(t, clause.OrConditions{}, exprs[1])
}
