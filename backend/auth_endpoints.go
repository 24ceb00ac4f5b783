package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/users"
)

// Backend paths
const (
	LoginPath       = "/auth/login"
	LogoutPath      = "/auth/logout"
	RefreshPath     = "/auth/refresh"
	CurrentUserPath = "/api/users/me"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a session. Any supported login response
// shape is normalized; the role is not checked here.
func (c *Client) Login(ctx context.Context, email, password string) (sessions.Session, sessions.Shape, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, LoginPath, nil, loginRequest{Email: email, Password: password}, &raw); err != nil {
		return sessions.Session{}, sessions.ShapeUnknown, err
	}

	s, shape, err := sessions.DecodeLoginResponse(raw, c.nowTime())
	if err != nil {
		return sessions.Session{}, sessions.ShapeUnknown, &ProtocolError{
			Op:          http.MethodPost + " " + LoginPath,
			Status:      http.StatusOK,
			ContentType: "application/json",
			Err:         err,
		}
	}
	return s, shape, nil
}

// Logout revokes the refresh token on the backend.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Do(ctx, http.MethodPost, LogoutPath, nil, refreshRequest{RefreshToken: refreshToken}, nil)
}

// Refresh exchanges a refresh token for a new access token. The returned
// session carries whatever user the backend included, which may be empty.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (sessions.Session, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, RefreshPath, nil, refreshRequest{RefreshToken: refreshToken}, &raw); err != nil {
		return sessions.Session{}, err
	}

	s, _, err := sessions.DecodeLoginResponse(raw, c.nowTime())
	if err != nil {
		return sessions.Session{}, &ProtocolError{
			Op:          http.MethodPost + " " + RefreshPath,
			Status:      http.StatusOK,
			ContentType: "application/json",
			Err:         err,
		}
	}
	return s, nil
}

// CurrentUser returns the profile of the bearer. The client must be Authorized.
// Both a bare user object and {"user": {...}} are accepted.
func (c *Client) CurrentUser(ctx context.Context) (users.User, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, CurrentUserPath, nil, nil, &raw); err != nil {
		return users.User{}, err
	}

	var wrapped struct {
		User *users.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}

	var u users.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return users.User{}, &ProtocolError{
			Op:          http.MethodGet + " " + CurrentUserPath,
			Status:      http.StatusOK,
			ContentType: "application/json",
			Err:         err,
		}
	}
	return u, nil
}
