// Package authadmin talks to the GoTrue admin API with the service role key.
package authadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront-service/internal/util"

	"github.com/tidwall/gjson"
)

var ErrUserNotFound = errors.New("auth user not found")

// APIError is a non-2xx answer from GoTrue
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api error (status %d): %s", e.StatusCode, e.Message)
}

// User is the subset of the GoTrue user object the service reads
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserRequest is the input of CreateUser
type CreateUserRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient creates a GoTrue admin client
func NewClient(baseURL, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, serviceKey: serviceKey, http: httpClient}
}

// CreateUser creates a confirmed user
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	body := map[string]interface{}{
		"email":         req.Email,
		"password":      req.Password,
		"email_confirm": true,
		"user_metadata": map[string]string{"full_name": req.FullName},
	}
	if req.Phone != "" {
		body["phone"] = req.Phone
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user from auth
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), nil, nil)
}

// UnbanUser lifts any ban on a user
func (c *Client) UnbanUser(ctx context.Context, userID string) error {
	body := map[string]string{"ban_duration": "none"}
	return c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(userID), body, nil)
}

// RecoverPassword sends the password reset email
func (c *Client) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, map[string]string{"email": email}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	ctx, span := util.StartSpan(ctx, "authadmin."+method)
	defer span.End()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	util.InjectTraceHeaders(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && method != http.MethodPost {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
	}
	return nil
}

// errorMessage picks the human message out of the shapes GoTrue answers with
func errorMessage(body []byte) string {
	for _, path := range []string{"msg", "message", "error_description", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	if len(body) == 0 {
		return "empty response"
	}
	return string(body)
}
