package users

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
)

// Client calls the backend's user endpoints.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps an API transport.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// List returns every account.
func (c *Client) List(ctx context.Context, token string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.api.Do(ctx, apiclient.Request{Path: "/users", Token: token, Fallback: "Failed to load users"}, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Create adds an account.
func (c *Client) Create(ctx context.Context, token string, form CreateForm) error {
	return c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/users",
		Token:    token,
		JSON: map[string]string{
			"username": form.Username,
			"password": form.Password,
			"role":     form.Role,
		},
		Fallback: "Failed to create user",
	}, nil)
}

// UpdateRole changes the role of account id.
func (c *Client) UpdateRole(ctx context.Context, token string, id int64, role string) error {
	return c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     fmt.Sprintf("/users/%d/role", id),
		Token:    token,
		JSON:     map[string]string{"role": role},
		Fallback: "Failed to update role",
	}, nil)
}

// ResetPassword sets a new password for username.
func (c *Client) ResetPassword(ctx context.Context, token, username, newPassword string) error {
	return c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     "/users/" + url.PathEscape(username) + "/reset-password",
		Token:    token,
		JSON:     map[string]string{"new_password": newPassword},
		Fallback: "Failed to reset password",
	}, nil)
}

// AuditLogs returns the most recent user audit entries.
func (c *Client) AuditLogs(ctx context.Context, token string) ([]AuditLog, error) {
	var out struct {
		Logs []AuditLog `json:"logs"`
	}
	if err := c.api.Do(ctx, apiclient.Request{Path: "/user-audit-logs", Token: token, Fallback: "Failed to load audit logs"}, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}
