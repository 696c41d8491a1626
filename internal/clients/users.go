package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"finsight/internal/core"
	"finsight/internal/ports"
)

// Users is the client of the users service.
type Users struct {
	base
}

func NewUsers(opts Options) *Users {
	return &Users{base: newBase(opts)}
}

type userResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	User    struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

func (c *Users) Login(ctx context.Context, username, password string) (core.User, error) {
	u, err := c.post(ctx, "/login", map[string]string{"username": username, "password": password})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return core.User{}, fmt.Errorf("%w: %s", ports.ErrInvalidCredentials, apiErr.Message)
		}
		return core.User{}, err
	}
	return u, nil
}

func (c *Users) Signup(ctx context.Context, username, email, password string) (core.User, error) {
	u, err := c.post(ctx, "/signup", map[string]string{"username": username, "email": email, "password": password})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "already") {
			return core.User{}, fmt.Errorf("%w: %s", ports.ErrUserExists, apiErr.Message)
		}
		return core.User{}, err
	}
	return u, nil
}

func (c *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/check-email/"+url.PathEscape(email), nil)
	if err != nil {
		return false, err
	}
	if status >= http.StatusBadRequest {
		return false, &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return resp.Exists, nil
}

func (c *Users) post(ctx context.Context, path string, req any) (core.User, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return core.User{}, err
	}
	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status >= http.StatusBadRequest {
			return core.User{}, &APIError{Status: status, Message: strings.TrimSpace(string(body))}
		}
		return core.User{}, fmt.Errorf("decode response: %w", err)
	}
	if status >= http.StatusBadRequest || !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = resp.Error
		}
		if status < http.StatusBadRequest {
			status = http.StatusUnprocessableEntity
		}
		return core.User{}, &APIError{Status: status, Message: msg}
	}
	return core.User{Username: resp.User.Username, Email: resp.User.Email}, nil
}
