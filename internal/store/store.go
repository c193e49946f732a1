// Package store describes the relational backend the repositories talk to.
//
// Implementations classify backend failures once, at the boundary, into apperrors kinds:
// a missing relationship/join is reported as KindSchemaDegraded, uniqueness violations as
// KindConflict and transport failures as KindNetwork.
package store

import "context"

// Client is the relational store. dst arguments are pointers to slices of rows.
type Client interface {
	// WithToken returns a client that acts with the given bearer credential.
	WithToken(token string) Client
	Select(ctx context.Context, q Query, dst any) error
	// Insert writes row and decodes the stored representation (with q's embeds) into dst.
	Insert(ctx context.Context, q Query, row any, dst any) error
	// Update applies values to every row matching q's filters and returns how many changed.
	Update(ctx context.Context, q Query, values map[string]any, dst any) (int, error)
	// Delete removes every row matching q's filters, decodes the removed rows into dst when
	// it is non-nil and returns how many were removed.
	Delete(ctx context.Context, q Query, dst any) (int, error)
}

// Embed names understood by every implementation
const (
	EmbedReactions    = "reactions"
	EmbedComments     = "comments"
	EmbedParticipants = "participants"
	EmbedRequester    = "requester"
	EmbedReceiver     = "receiver"
)

// Op is a filter operator
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
	OpOr Op = "or"
)

// Filter is a single condition; OpOr filters combine Any with OR
type Filter struct {
	Op     Op
	Column string
	Value  any
	Values []any
	Any    []Filter
}

// Eq matches rows whose column equals value
func Eq(column string, value any) Filter {
	return Filter{Op: OpEq, Column: column, Value: value}
}

// In matches rows whose column is one of values
func In(column string, values ...any) Filter {
	return Filter{Op: OpIn, Column: column, Values: values}
}

// Or matches rows satisfying any of the given equality/in filters
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Any: filters}
}

// Order sorts results by a column
type Order struct {
	Column string
	Desc   bool
}

// Query describes which rows of a table an operation targets and which relations to join
type Query struct {
	Table   string
	Embeds  []string
	Filters []Filter
	Order   *Order
}

// From starts a query against table
func From(table string) Query {
	return Query{Table: table}
}

// Embed returns a copy of q that joins the named relations
func (q Query) Embed(names ...string) Query {
	q.Embeds = append(append([]string(nil), q.Embeds...), names...)
	return q
}

// Where returns a copy of q with additional filters
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// OrderBy returns a copy of q sorted by column
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = &Order{Column: column, Desc: desc}
	return q
}

// Flat returns a copy of q without joins; used to retry when the backend cannot join
func (q Query) Flat() Query {
	q.Embeds = nil
	return q
}

// Joined reports whether q requests any relation
func (q Query) Joined() bool {
	return len(q.Embeds) > 0
}
