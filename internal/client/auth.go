package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/freezer/internal/model"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil,
		map[string]string{"username": username, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	c.Token = res.Token
	return &res, nil
}

// Logout revokes the client's token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword changes the logged-in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPut, "/auth/password", nil, map[string]string{
		"current_password": current,
		"new_password":     next,
	}, nil)
}

// ListUsers returns all active users.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser adds an account. An empty role creates a regular user.
func (c *Client) CreateUser(ctx context.Context, username, password, role string) (*model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/users", nil, map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserRole changes a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, id int64, role string) (*model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), nil, map[string]string{"role": role}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ResetPassword sets another user's password.
func (c *Client) ResetPassword(ctx context.Context, id int64, password string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/password", id), nil,
		map[string]string{"password": password}, nil)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, nil)
}
