package identity

import (
	"context"
	"testing"

	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type statement struct {
	sql  string
	vars []any
}

// dryRun opens a gorm handle that renders SQL without a database
func dryRun(t *testing.T) (*gorm.DB, *statement) {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=127.0.0.1 user=test dbname=test sslmode=disable"),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	last := &statement{}
	record := func(tx *gorm.DB) {
		last.sql = tx.Statement.SQL.String()
		last.vars = tx.Statement.Vars
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record", record))
	require.NoError(t, db.Callback().Raw().After("gorm:raw").Register("test:record", record))
	return db, last
}

func TestPostgresDirectoryLookupEmail(t *testing.T) {
	db, last := dryRun(t)
	d := NewPostgresDirectory(db)

	_, err := d.LookupEmail(context.Background(), "  Sam@Example.com ")
	require.NoError(t, err)
	assert.Contains(t, last.sql, `"auth"."users"`)
	assert.Contains(t, last.sql, "raw_user_meta_data->>'display_name' AS display_name")
	assert.Contains(t, last.sql, "LOWER(email) = LOWER($1)")
	require.NotEmpty(t, last.vars)
	assert.Equal(t, "Sam@Example.com", last.vars[0])
}

func TestPostgresDirectoryDeleteUser(t *testing.T) {
	db, last := dryRun(t)
	d := NewPostgresDirectory(db)

	err := d.DeleteUser(context.Background(), "u1")
	assert.True(t, apperrors.IsNotFound(err), "no row affected")
	assert.Equal(t, "DELETE FROM auth.users WHERE id = $1", last.sql)
	assert.Equal(t, []any{"u1"}, last.vars)
}
