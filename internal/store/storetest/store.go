// Package storetest provides an in-memory store.Client for tests.
//
// Rows are kept as decoded JSON objects, so any row type with json tags can be inserted and
// read back. The fake enforces the unique keys and cascades of the real schema, can simulate a
// backend that has lost its relational joins, and records every call.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/google/uuid"
)

// Op names a store operation in the call log
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Call is one recorded store invocation
type Call struct {
	Op     Op
	Table  string
	Joined bool
	Token  string
}

type row = map[string]any

type embed struct {
	table      string
	localKey   string
	foreignKey string
	single     bool
}

var embeds = map[string]embed{
	store.EmbedReactions:    {table: models.TableReactions, localKey: "id", foreignKey: "memory_id"},
	store.EmbedComments:     {table: models.TableComments, localKey: "id", foreignKey: "memory_id"},
	store.EmbedParticipants: {table: models.TableParticipants, localKey: "id", foreignKey: "memory_id"},
	store.EmbedRequester:    {table: models.TableProfiles, localKey: "requester_id", foreignKey: "id", single: true},
	store.EmbedReceiver:     {table: models.TableProfiles, localKey: "receiver_id", foreignKey: "id", single: true},
}

// uniqueKeys lists the column sets that must be unique per table.
// Keys whose name starts with "~" are unordered pairs.
var uniqueKeys = map[string][][]string{
	models.TableReactions:     {{"memory_id", "user_id", "reaction_type"}},
	models.TableParticipants:  {{"memory_id", "user_id"}},
	models.TableRelationships: {{"~", "requester_id", "receiver_id"}},
	models.TableProfiles:      {{"id"}},
}

var cascades = map[string][]struct{ table, column string }{
	models.TableMemories: {
		{models.TableReactions, "memory_id"},
		{models.TableComments, "memory_id"},
		{models.TableParticipants, "memory_id"},
	},
}

type failure struct {
	op    Op
	table string
	err   error
}

// Store is the in-memory store.Client
type Store struct {
	mu       sync.Mutex
	tables   map[string][]row
	calls    []Call
	failures []failure
	degraded bool
	token    string
	now      func() time.Time
	shared   *Store
}

// New creates an empty Store
func New() *Store {
	s := &Store{tables: map[string][]row{}, now: time.Now}
	s.shared = s
	return s
}

// DegradeJoins makes every joined query fail as if the backend lost its relationships
func (s *Store) DegradeJoins(on bool) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.degraded = on
}

// FailNext makes the next op on table return err. An empty table matches any table.
func (s *Store) FailNext(op Op, table string, err error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.failures = append(s.shared.failures, failure{op: op, table: table, err: err})
}

// Calls returns the recorded calls
func (s *Store) Calls() []Call {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return append([]Call(nil), s.shared.calls...)
}

// CountCalls returns how many calls of op hit table
func (s *Store) CountCalls(op Op, table string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op && c.Table == table {
			n++
		}
	}
	return n
}

// Seed inserts rows directly, bypassing failures and the call log
func (s *Store) Seed(table string, rows ...any) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	for _, r := range rows {
		m, err := toRow(r)
		if err != nil {
			panic(err)
		}
		s.shared.fillDefaults(table, m)
		s.shared.tables[table] = append(s.shared.tables[table], m)
	}
}

// Rows decodes every row of table into dst
func (s *Store) Rows(table string, dst any) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	if err := decode(s.shared.tables[table], dst); err != nil {
		panic(err)
	}
}

// Count returns the number of rows in table
func (s *Store) Count(table string) int {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return len(s.shared.tables[table])
}

// WithToken implements store.Client. The returned client shares all state.
func (s *Store) WithToken(token string) store.Client {
	return &Store{shared: s.shared, token: token}
}

// Select implements store.Client
func (s *Store) Select(ctx context.Context, q store.Query, dst any) error {
	db := s.shared
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.begin(OpSelect, q, s.token); err != nil {
		return err
	}
	out := make([]row, 0)
	for _, r := range db.tables[q.Table] {
		if matchAll(r, q.Filters) {
			out = append(out, r)
		}
	}
	db.sort(out, q.Order)
	return decode(db.withEmbeds(out, q.Embeds), dst)
}

// Insert implements store.Client
func (s *Store) Insert(ctx context.Context, q store.Query, data any, dst any) error {
	db := s.shared
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.begin(OpInsert, q, s.token); err != nil {
		return err
	}
	r, err := toRow(data)
	if err != nil {
		return apperrors.NewInternal("encode row", err)
	}
	db.fillDefaults(q.Table, r)
	if err := db.checkUnique(q.Table, r, nil); err != nil {
		return err
	}
	db.tables[q.Table] = append(db.tables[q.Table], r)
	if dst == nil {
		return nil
	}
	return decode(db.withEmbeds([]row{r}, q.Embeds), dst)
}

// Update implements store.Client
func (s *Store) Update(ctx context.Context, q store.Query, values map[string]any, dst any) (int, error) {
	db := s.shared
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.begin(OpUpdate, q, s.token); err != nil {
		return 0, err
	}
	patch, err := toRow(values)
	if err != nil {
		return 0, apperrors.NewInternal("encode values", err)
	}
	var changed []row
	for _, r := range db.tables[q.Table] {
		if !matchAll(r, q.Filters) {
			continue
		}
		next := make(row, len(r))
		for k, v := range r {
			next[k] = v
		}
		for k, v := range patch {
			next[k] = v
		}
		if err := db.checkUnique(q.Table, next, r); err != nil {
			return 0, err
		}
		for k, v := range patch {
			r[k] = v
		}
		changed = append(changed, r)
	}
	if dst != nil {
		if err := decode(db.withEmbeds(changed, q.Embeds), dst); err != nil {
			return 0, err
		}
	}
	return len(changed), nil
}

// Delete implements store.Client
func (s *Store) Delete(ctx context.Context, q store.Query, dst any) (int, error) {
	db := s.shared
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.begin(OpDelete, q, s.token); err != nil {
		return 0, err
	}
	var kept, removed []row
	for _, r := range db.tables[q.Table] {
		if matchAll(r, q.Filters) {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	if dst != nil {
		if err := decode(removed, dst); err != nil {
			return 0, err
		}
	}
	db.tables[q.Table] = kept
	for _, r := range removed {
		for _, c := range cascades[q.Table] {
			var rest []row
			for _, child := range db.tables[c.table] {
				if !equal(child[c.column], r["id"]) {
					rest = append(rest, child)
				}
			}
			db.tables[c.table] = rest
		}
	}
	return len(removed), nil
}

// begin records the call and applies injected failures and join degradation
func (s *Store) begin(op Op, q store.Query, token string) error {
	s.calls = append(s.calls, Call{Op: op, Table: q.Table, Joined: q.Joined(), Token: token})
	for i, f := range s.failures {
		if f.op == op && (f.table == "" || f.table == q.Table) {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return f.err
		}
	}
	if s.degraded && q.Joined() {
		return apperrors.NewSchemaDegraded(
			fmt.Sprintf("could not find a relationship between '%s' and '%s'", q.Table, strings.Join(q.Embeds, ",")), nil)
	}
	return nil
}

func (s *Store) fillDefaults(table string, r row) {
	if id, _ := r["id"].(string); id == "" && table != models.TableParticipants {
		r["id"] = uuid.NewString()
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	if v, ok := r["created_at"]; !ok || v == nil || v == "" || v == "0001-01-01T00:00:00Z" {
		r["created_at"] = now
	}
	if table == models.TableMemories || table == models.TableRelationships || table == models.TableProfiles {
		if v, ok := r["updated_at"]; !ok || v == nil || v == "" || v == "0001-01-01T00:00:00Z" {
			r["updated_at"] = now
		}
	}
}

func (s *Store) checkUnique(table string, candidate row, self row) error {
	for _, key := range uniqueKeys[table] {
		unordered := key[0] == "~"
		cols := key
		if unordered {
			cols = key[1:]
		}
		for _, existing := range s.tables[table] {
			if self != nil && sameRow(existing, self) {
				continue
			}
			if sameKey(existing, candidate, cols) || (unordered && sameKey(existing, swap(candidate, cols), cols)) {
				return apperrors.NewConflict(
					fmt.Sprintf("duplicate key value violates unique constraint on %s(%s)", table, strings.Join(cols, ",")), nil)
			}
		}
	}
	return nil
}

func sameRow(a, b row) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func sameKey(a, b row, cols []string) bool {
	for _, c := range cols {
		if !equal(a[c], b[c]) {
			return false
		}
	}
	return true
}

func swap(r row, cols []string) row {
	out := row{cols[0]: r[cols[1]], cols[1]: r[cols[0]]}
	return out
}

func (s *Store) withEmbeds(rows []row, names []string) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		cp := make(row, len(r)+len(names))
		for k, v := range r {
			cp[k] = v
		}
		for _, name := range names {
			e, ok := embeds[name]
			if !ok {
				continue
			}
			var related []any
			for _, child := range s.tables[e.table] {
				if equal(child[e.foreignKey], r[e.localKey]) {
					related = append(related, child)
				}
			}
			if e.single {
				if len(related) > 0 {
					cp[name] = related[0]
				} else {
					cp[name] = nil
				}
				continue
			}
			if related == nil {
				related = []any{}
			}
			cp[name] = related
		}
		out = append(out, cp)
	}
	return out
}

// sort orders rows by o; rows with equal keys keep newest-inserted first for descending order
func (s *Store) sort(rows []row, o *store.Order) {
	if o == nil {
		return
	}
	if o.Desc {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][o.Column], rows[j][o.Column])
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(as, bs)
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

func matchAll(r row, filters []store.Filter) bool {
	for _, f := range filters {
		if !match(r, f) {
			return false
		}
	}
	return true
}

func match(r row, f store.Filter) bool {
	switch f.Op {
	case store.OpEq:
		return equal(r[f.Column], normalize(f.Value))
	case store.OpIn:
		for _, v := range f.Values {
			if equal(r[f.Column], normalize(v)) {
				return true
			}
		}
		return false
	case store.OpOr:
		for _, sub := range f.Any {
			if match(r, sub) {
				return true
			}
		}
		return false
	}
	return false
}

func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// normalize converts a Go value to its decoded-JSON shape so it compares with stored rows
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func toRow(v any) (row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := row{}
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func decode(rows []row, dst any) error {
	if dst == nil {
		return nil
	}
	if rows == nil {
		rows = []row{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return apperrors.NewInternal("encode rows", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return apperrors.NewInternal("decode rows", err)
	}
	return nil
}
