// Package gormstore implements store.Client directly over Postgres with gorm.
// It backs self-hosted deployments and the server-side account purge.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type table struct {
	model  reflect.Type
	embeds map[string]string // embed name -> association field
}

var tables = map[string]table{
	models.TableMemories: {
		model: reflect.TypeOf(models.Memory{}),
		embeds: map[string]string{
			store.EmbedReactions:    "Reactions",
			store.EmbedComments:     "Comments",
			store.EmbedParticipants: "Participants",
		},
	},
	models.TableReactions:    {model: reflect.TypeOf(models.Reaction{})},
	models.TableComments:     {model: reflect.TypeOf(models.Comment{})},
	models.TableParticipants: {model: reflect.TypeOf(models.Participant{})},
	models.TableRelationships: {
		model: reflect.TypeOf(models.Relationship{}),
		embeds: map[string]string{
			store.EmbedRequester: "Requester",
			store.EmbedReceiver:  "Receiver",
		},
	},
	models.TableProfiles:      {model: reflect.TypeOf(models.UserProfile{})},
	models.TableNotifications: {model: reflect.TypeOf(models.Notification{})},
}

// Store is a store.Client over a gorm connection
type Store struct {
	db *gorm.DB
}

// New creates a new Store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema, including the unordered-pair uniqueness of relationships
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.UserProfile{},
		&models.Memory{},
		&models.Reaction{},
		&models.Comment{},
		&models.Participant{},
		&models.Relationship{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_relationship_pair
		ON relationships (LEAST(requester_id, receiver_id), GREATEST(requester_id, receiver_id))`).Error
}

// WithToken implements store.Client. Row-level security does not apply to a direct
// connection, so the token is ignored.
func (s *Store) WithToken(string) store.Client {
	return s
}

// Select implements store.Client
func (s *Store) Select(ctx context.Context, q store.Query, dst any) error {
	t, assoc, err := resolve(q)
	if err != nil {
		return err
	}
	rows := reflect.New(reflect.SliceOf(t.model))
	tx := scope(s.db.WithContext(ctx), q, assoc)
	if q.Order != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.Order.Column}, Desc: q.Order.Desc})
	}
	if err := tx.Find(rows.Interface()).Error; err != nil {
		return classify(err)
	}
	return bridge(rows.Interface(), dst)
}

// Insert implements store.Client
func (s *Store) Insert(ctx context.Context, q store.Query, row any, dst any) error {
	t, assoc, err := resolve(q)
	if err != nil {
		return err
	}
	record := reflect.New(t.model)
	if err := bridge(row, record.Interface()); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(record.Interface()).Error; err != nil {
		return classify(err)
	}
	if len(assoc) > 0 {
		id := record.Elem().FieldByName("ID").Interface()
		if err := preload(db, assoc).Take(record.Interface(), "id = ?", id).Error; err != nil {
			return classify(err)
		}
	}
	if dst == nil {
		return nil
	}
	out := reflect.MakeSlice(reflect.SliceOf(t.model), 0, 1)
	out = reflect.Append(out, record.Elem())
	return bridge(out.Interface(), dst)
}

// Update implements store.Client. Matching rows are locked, updated and reloaded in one
// transaction so the returned representation reflects the write even when the filters no
// longer match afterwards.
func (s *Store) Update(ctx context.Context, q store.Query, values map[string]any, dst any) (int, error) {
	t, assoc, err := resolve(q)
	if err != nil {
		return 0, err
	}
	rows := reflect.New(reflect.SliceOf(t.model))
	var affected int64

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := scope(tx.Model(reflect.New(t.model).Interface()), q, nil).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		res := tx.Model(reflect.New(t.model).Interface()).Where("id IN ?", ids).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if dst == nil {
			return nil
		}
		return preload(tx, assoc).Where("id IN ?", ids).Find(rows.Interface()).Error
	})
	if err != nil {
		return 0, classify(err)
	}
	if dst != nil {
		if err := bridge(rows.Interface(), dst); err != nil {
			return 0, err
		}
	}
	return int(affected), nil
}

// Delete implements store.Client. Removed rows come back through RETURNING.
func (s *Store) Delete(ctx context.Context, q store.Query, dst any) (int, error) {
	t, _, err := resolve(q.Flat())
	if err != nil {
		return 0, err
	}
	rows := reflect.New(reflect.SliceOf(t.model))
	res := scope(s.db.WithContext(ctx), q.Flat(), nil).Clauses(clause.Returning{}).Delete(rows.Interface())
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	if err := bridge(rows.Interface(), dst); err != nil {
		return 0, err
	}
	return int(res.RowsAffected), nil
}

// resolve finds the model of q's table and the association fields of its embeds
func resolve(q store.Query) (table, []string, error) {
	t, ok := tables[q.Table]
	if !ok {
		return table{}, nil, apperrors.NewInternal("unknown table "+q.Table, nil)
	}
	assoc := make([]string, 0, len(q.Embeds))
	for _, e := range q.Embeds {
		field, ok := t.embeds[e]
		if !ok {
			return table{}, nil, apperrors.NewSchemaDegraded(
				fmt.Sprintf("no relationship between %s and %s", q.Table, e), gorm.ErrUnsupportedRelation)
		}
		assoc = append(assoc, field)
	}
	return t, assoc, nil
}

func scope(db *gorm.DB, q store.Query, assoc []string) *gorm.DB {
	tx := preload(db, assoc)
	if exprs := conditions(q.Filters); len(exprs) > 0 {
		tx = tx.Clauses(clause.Where{Exprs: exprs})
	}
	return tx
}

func preload(db *gorm.DB, assoc []string) *gorm.DB {
	for _, a := range assoc {
		db = db.Preload(a)
	}
	return db
}

func conditions(filters []store.Filter) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(filters))
	for _, f := range filters {
		exprs = append(exprs, condition(f))
	}
	return exprs
}

func condition(f store.Filter) clause.Expression {
	switch f.Op {
	case store.OpIn:
		return clause.IN{Column: clause.Column{Name: f.Column}, Values: f.Values}
	case store.OpOr:
		return clause.Or(conditions(f.Any)...)
	default:
		return clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value}
	}
}

// classify converts a gorm or pgx error into an apperrors kind
func classify(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NewNotFound("record not found")
	case errors.Is(err, gorm.ErrUnsupportedRelation):
		return apperrors.NewSchemaDegraded("relationship unavailable", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.NewConflict("duplicate key", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewNetwork("database unavailable", err)
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case "23505":
			return apperrors.NewConflict(pgErr.Message, err)
		case "42P01", "42703":
			return apperrors.NewSchemaDegraded(pgErr.Message, err)
		case "42501":
			return apperrors.NewUnauthorized(pgErr.Message)
		}
		return apperrors.NewInternal(pgErr.Message, err)
	}
	return apperrors.NewInternal("database error", err)
}

// bridge copies src into dst through their JSON representation, so callers can decode
// into any row type that shares the table's json tags
func bridge(src, dst any) error {
	if dst == nil {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return apperrors.NewInternal("encode rows", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return apperrors.NewInternal("decode rows", err)
	}
	return nil
}
