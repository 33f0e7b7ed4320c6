package console

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// User is an account as returned by the backend.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserQuery filters and paginates ListUsers.
type UserQuery struct {
	Page   int    `url:"page,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Search string `url:"search,omitempty"`
}

// UserPage is one page of users.
type UserPage struct {
	Users []User `json:"users"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// NewUser is the payload for CreateUser.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// UserUpdate is the payload for UpdateUser. Nil or empty fields are left unchanged.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type userEnvelope struct {
	User User `json:"user"`
}

func (c *Client) ListUsers(ctx context.Context, q UserQuery) (UserPage, error) {
	var page UserPage
	if err := c.do(ctx, http.MethodGet, "/users", q, nil, &page); err != nil {
		return UserPage{}, err
	}
	return page, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, userPath(id), nil, nil, &env); err != nil {
		return User{}, err
	}
	return env.User, nil
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users", nil, u, &env); err != nil {
		return User{}, err
	}
	return env.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, u UserUpdate) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, userPath(id), nil, u, &env); err != nil {
		return User{}, err
	}
	return env.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, userPath(id), nil, nil, nil)
}

// ChangePassword changes the password of the logged-in user.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}{current, next}
	return c.do(ctx, http.MethodPost, "/change-password", nil, body, nil)
}

// Me returns the user the session belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &env); err != nil {
		return User{}, err
	}
	return env.User, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}
