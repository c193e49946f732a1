// Package postgrest implements store.Client against a Supabase PostgREST endpoint.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/go-resty/resty/v2"
)

// selects maps embed names to PostgREST resource embedding
var selects = map[string]string{
	store.EmbedReactions:    "reactions(*)",
	store.EmbedComments:     "comments(*)",
	store.EmbedParticipants: "participants:" + models.TableParticipants + "(*)",
	store.EmbedRequester:    "requester:profiles!relationships_requester_id_fkey(id,display_name)",
	store.EmbedReceiver:     "receiver:profiles!relationships_receiver_id_fkey(id,display_name)",
}

// Client talks to /rest/v1 of a Supabase project
type Client struct {
	http   *resty.Client
	apiKey string
	token  string
}

// New creates a Client for the project at baseURL using the anon (or service role) key
func New(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", apiKey).
		SetTimeout(30 * time.Second)

	return &Client{http: c, apiKey: apiKey}
}

// WithToken implements store.Client
func (c *Client) WithToken(token string) store.Client {
	cp := *c
	cp.token = token
	return &cp
}

// Select implements store.Client
func (c *Client) Select(ctx context.Context, q store.Query, dst any) error {
	resp, err := c.request(ctx, q).Get("/" + q.Table)
	if err := classify(resp, err); err != nil {
		return err
	}
	return decode(resp.Body(), dst)
}

// Insert implements store.Client
func (c *Client) Insert(ctx context.Context, q store.Query, row any, dst any) error {
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		Post("/" + q.Table)
	if err := classify(resp, err); err != nil {
		return err
	}
	return decode(resp.Body(), dst)
}

// Update implements store.Client
func (c *Client) Update(ctx context.Context, q store.Query, values map[string]any, dst any) (int, error) {
	resp, err := c.request(ctx, q).
		SetHeader("Prefer", "return=representation").
		SetBody(values).
		Patch("/" + q.Table)
	if err := classify(resp, err); err != nil {
		return 0, err
	}
	n, err := count(resp.Body())
	if err != nil {
		return 0, err
	}
	return n, decode(resp.Body(), dst)
}

// Delete implements store.Client
func (c *Client) Delete(ctx context.Context, q store.Query, dst any) (int, error) {
	resp, err := c.request(ctx, q.Flat()).
		SetHeader("Prefer", "return=representation").
		Delete("/" + q.Table)
	if err := classify(resp, err); err != nil {
		return 0, err
	}
	n, err := count(resp.Body())
	if err != nil {
		return 0, err
	}
	return n, decode(resp.Body(), dst)
}

func (c *Client) request(ctx context.Context, q store.Query) *resty.Request {
	bearer := c.token
	if bearer == "" {
		bearer = c.apiKey
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetQueryParamsFromValues(Params(q))
}

// Params renders q as PostgREST query parameters
func Params(q store.Query) url.Values {
	v := url.Values{}
	sel := []string{"*"}
	for _, e := range q.Embeds {
		if s, ok := selects[e]; ok {
			sel = append(sel, s)
		}
	}
	v.Set("select", strings.Join(sel, ","))
	for _, f := range q.Filters {
		if f.Op == store.OpOr {
			parts := make([]string, 0, len(f.Any))
			for _, sub := range f.Any {
				parts = append(parts, sub.Column+"."+operand(sub))
			}
			v.Add("or", "("+strings.Join(parts, ",")+")")
			continue
		}
		v.Add(f.Column, operand(f))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Desc {
			dir = "desc"
		}
		v.Set("order", q.Order.Column+"."+dir)
	}
	return v
}

func operand(f store.Filter) string {
	switch f.Op {
	case store.OpIn:
		items := make([]string, 0, len(f.Values))
		for _, val := range f.Values {
			items = append(items, literal(val))
		}
		return "in.(" + strings.Join(items, ",") + ")"
	default:
		return "eq." + literal(f.Value)
	}
}

func literal(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, ",()\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// apiError is the PostgREST error body
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// classify converts a transport error or a non-2xx response into an apperrors kind
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return apperrors.NewNetwork("store request failed", err)
	}
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	var body apiError
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := fmt.Errorf("postgrest %d %s: %s", status, body.Code, strings.TrimSpace(body.Details))

	switch {
	case body.Code == "PGRST200" || body.Code == "PGRST201":
		return apperrors.NewSchemaDegraded(msg, cause)
	case body.Code == "23505" || status == http.StatusConflict:
		return apperrors.NewConflict(msg, cause)
	case body.Code == "PGRST116":
		return apperrors.NewNotFound(msg)
	case body.Code == "42501" || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewUnauthorized(msg)
	case status >= 500:
		return apperrors.NewNetwork(msg, cause)
	default:
		return apperrors.NewInternal(msg, cause)
	}
}

func count(body []byte) (int, error) {
	var rows []json.RawMessage
	if len(body) == 0 {
		return 0, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, apperrors.NewInternal("decode store response", err)
	}
	return len(rows), nil
}

func decode(body []byte, dst any) error {
	if dst == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewInternal("decode store response", err)
	}
	return nil
}
