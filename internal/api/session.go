package api

import (
	"context"
	"net/http"

	"github.com/onemorerev/client/pkg/core"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login opens a session. The session cookie lands in the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (core.User, error) {
	var user core.User
	err := c.do(ctx, http.MethodPost, "/session/login", nil, loginRequest{Email: email, Password: password}, &user)
	return user, err
}

// Logout closes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/session/logout", nil, nil, nil)
}

// Profile returns the user the current session belongs to.
func (c *Client) Profile(ctx context.Context) (core.User, error) {
	var user core.User
	err := c.do(ctx, http.MethodGet, "/session/profile", nil, nil, &user)
	return user, err
}
