package api

import (
	"context"

	"railctl/internal/errors"
)

// User is the account returned by the auth endpoints.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var body struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.Post(ctx, "api/auth/login", credentials{Email: email, Password: password}, &body)
	if errors.IsSessionExpired(err) {
		return User{}, errors.NewValidationError("password", "invalid email or password", err)
	}
	if err != nil {
		return User{}, mutationError(err)
	}
	if body.Token == "" {
		return User{}, errors.New("login response carries no token")
	}
	if err := c.session.SetToken(body.Token); err != nil {
		return User{}, errors.Wrap(err, "save token")
	}
	return body.User, nil
}

// Register creates a regular account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password, name string) (User, error) {
	var body struct {
		User User `json:"user"`
	}
	err := c.Post(ctx, "api/auth/register", credentials{Email: email, Password: password, Name: name}, &body)
	if err != nil {
		return User{}, mutationError(err)
	}
	return body.User, nil
}
