// Package functions calls the project's HTTP functions: find-user, send-invitation and
// delete-user-data.
package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/go-resty/resty/v2"
)

// Client calls functions under one base URL
type Client struct {
	http   *resty.Client
	apiKey string
}

// New creates a Client. baseURL is usually <project>/functions/v1.
func New(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", apiKey).
		SetTimeout(30 * time.Second)

	return &Client{http: c, apiKey: apiKey}
}

type findUserRequest struct {
	Email string `json:"email"`
}

type findUserResponse struct {
	User  *models.UserRef `json:"user"`
	Error string          `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// FindUser resolves an email address or display name to a user
func (c *Client) FindUser(ctx context.Context, viewer *identity.Viewer, query string) (*models.UserRef, error) {
	var out findUserResponse
	resp, err := c.request(ctx, viewer).
		SetBody(findUserRequest{Email: strings.TrimSpace(query)}).
		Post("/find-user")
	if err := check(resp, err, "find-user"); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, apperrors.NewInternal("decode find-user response", err)
	}
	if out.User == nil || out.User.ID == "" {
		msg := out.Error
		if msg == "" {
			msg = "user not found"
		}
		return nil, apperrors.NewNotFound(msg)
	}
	return out.User, nil
}

// SendInvitation asks the backend to notify the receiver of a relationship request
func (c *Client) SendInvitation(ctx context.Context, viewer *identity.Viewer, req models.InvitationRequest) error {
	resp, err := c.request(ctx, viewer).SetBody(req).Post("/send-invitation")
	return check(resp, err, "send-invitation")
}

// DeleteUserData deletes the viewer's account, images included
func (c *Client) DeleteUserData(ctx context.Context, viewer *identity.Viewer) error {
	if !viewer.Authenticated() {
		return apperrors.NewUnauthorized("sign in to delete your account")
	}
	resp, err := c.request(ctx, viewer).SetBody(map[string]any{}).Post("/delete-user-data")
	return check(resp, err, "delete-user-data")
}

func (c *Client) request(ctx context.Context, viewer *identity.Viewer) *resty.Request {
	token := c.apiKey
	if viewer != nil && viewer.Token != "" {
		token = viewer.Token
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token)
}

// check maps transport failures and error statuses to apperrors kinds
func check(resp *resty.Response, err error, name string) error {
	if err != nil {
		return apperrors.NewNetwork(name+" request failed", err)
	}
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	var body errorResponse
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Error
	if msg == "" {
		msg = fmt.Sprintf("%s returned %d", name, status)
	}
	switch {
	case status == http.StatusNotFound:
		return apperrors.NewNotFound(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewUnauthorized(msg)
	case status == http.StatusConflict:
		return apperrors.NewConflict(msg, nil)
	case status == http.StatusBadRequest:
		return apperrors.NewValidation(msg)
	case status >= 500:
		return apperrors.NewNetwork(msg, fmt.Errorf("%s: status %d", name, status))
	}
	return apperrors.NewInternal(msg, fmt.Errorf("%s: status %d", name, status))
}
