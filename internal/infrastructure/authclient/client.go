// Package authclient verifies bearer tokens against the external
// identity service.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/creditojus/creditojus/internal/domain/user"
)

// ErrUnauthorized is returned when the identity service rejects the
// token.
var ErrUnauthorized = errors.New("token rejected by identity service")

// Client calls the identity service's verification endpoint.
type Client struct {
	verifyURL string
	http      *http.Client
}

// New creates a client for the given verification endpoint.
func New(verifyURL string, timeout time.Duration) *Client {
	return &Client{
		verifyURL: verifyURL,
		http:      &http.Client{Timeout: timeout},
	}
}

// Verify exchanges a bearer token for the caller's principal.
func (c *Client) Verify(ctx context.Context, token string) (user.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.verifyURL, nil)
	if err != nil {
		return user.Principal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return user.Principal{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return user.Principal{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return user.Principal{}, fmt.Errorf("verify token: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return user.Principal{}, fmt.Errorf("decode verify response: %w", err)
	}
	id, err := uuid.Parse(body.UserID)
	if err != nil {
		return user.Principal{}, fmt.Errorf("invalid user id in verify response: %w", err)
	}
	role := user.Role(body.Role)
	if !role.Valid() {
		return user.Principal{}, fmt.Errorf("invalid role %q in verify response", body.Role)
	}
	return user.Principal{UserID: id, Role: role}, nil
}
