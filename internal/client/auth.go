package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/exam-grader/internal/types"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a token using the OAuth2 password form,
// then fetches the profile and persists both when a store is configured.
func (c *Client) Login(ctx context.Context, email, password string) (*types.User, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Del("Authorization")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var token types.TokenResponse
	if err := decode(resp, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	c.token = token.AccessToken

	user, err := c.Me(ctx)
	if err != nil {
		c.token = ""
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Save(&Session{Token: token.AccessToken, User: user}); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Logout forgets the token locally. Tokens are stateless so the server is not contacted.
func (c *Client) Logout() error {
	c.token = ""
	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword changes the authenticated user's password.
func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	req := &types.UpdatePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.doJSON(ctx, http.MethodPut, "/auth/password", req, nil)
}
