package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
)

// Client signs in against the backend.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps an API transport.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type meResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a token and resolves the account behind it.
// A 401 here is a failed login, not an expired session, so it never raises
// the unauthorized handler.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var tok tokenResponse
	err := c.api.Do(ctx, apiclient.Request{
		Method:        http.MethodPost,
		Path:          "/token",
		Form:          url.Values{"username": {username}, "password": {password}},
		SkipAuthEvent: true,
		Fallback:      "Login failed",
	}, &tok)
	if err != nil {
		return Session{}, err
	}
	if tok.AccessToken == "" {
		return Session{}, &apiclient.Error{Message: "Login failed", Err: fmt.Errorf("empty access token")}
	}
	return c.Me(ctx, tok.AccessToken)
}

// Me resolves the account behind token.
//
// Returns:
//   - Session: The account, with ExpiresAt read from the token when it is a JWT
//   - error: If the backend rejects the token
func (c *Client) Me(ctx context.Context, token string) (Session, error) {
	var me meResponse
	err := c.api.Do(ctx, apiclient.Request{
		Path:          "/me",
		Token:         token,
		SkipAuthEvent: true,
		Fallback:      "Session expired",
	}, &me)
	if err != nil {
		return Session{}, err
	}

	s := Session{Token: token, Username: me.Username, Role: me.Role}
	if claims, err := ParseClaims(token); err == nil {
		s.ExpiresAt = claims.ExpiresAt
		if s.Username == "" {
			s.Username = claims.Subject
		}
	}
	return s, nil
}
