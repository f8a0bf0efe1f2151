// Package client is a small Go client for the wishmaster HTTP API.
// It keeps the session token pair and refreshes on demand.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"wishmaster.org/internal/wish"
)

// Sentinel errors mapped from API responses.
var (
	ErrUnauthorized = errors.New("client: unauthorized")
	ErrForbidden    = errors.New("client: forbidden")
	ErrNotFound     = errors.New("client: not found")
	ErrConflict     = errors.New("client: conflict")
)

// TokenPair mirrors the API token response.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

// Principal mirrors the API profile response.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client talks to a wishmaster API server.
type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	pair TokenPair
}

// New constructs a Client for the given base URL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) (Principal, error) {
	var p Principal
	err := c.call(ctx, http.MethodPost, "/api/v1/register", map[string]string{
		"email":    email,
		"password": password,
	}, &p)
	return p, err
}

// Login obtains a token pair and keeps it for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var pair TokenPair
	err := c.call(ctx, http.MethodPost, "/api/v1/login", map[string]string{
		"email":    email,
		"password": password,
	}, &pair)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
	return nil
}

// Refresh rotates the session using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.pair.RefreshToken
	c.mu.Unlock()
	if refresh == "" {
		return ErrUnauthorized
	}
	var pair TokenPair
	err := c.call(ctx, http.MethodPost, "/api/v1/token/refresh", map[string]string{
		"refresh_token": refresh,
	}, &pair)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
	return nil
}

// Me fetches the authenticated principal's profile.
func (c *Client) Me(ctx context.Context) (Principal, error) {
	var p Principal
	err := c.call(ctx, http.MethodGet, "/api/v1/users/me", nil, &p)
	return p, err
}

func (c *Client) CreateWishlist(ctx context.Context, title string) (wish.Wishlist, error) {
	var wl wish.Wishlist
	err := c.call(ctx, http.MethodPost, "/api/v1/wishlists", map[string]string{"title": title}, &wl)
	return wl, err
}

func (c *Client) Wishlists(ctx context.Context) ([]wish.Wishlist, error) {
	var lists []wish.Wishlist
	err := c.call(ctx, http.MethodGet, "/api/v1/wishlists", nil, &lists)
	return lists, err
}

func (c *Client) AddWish(ctx context.Context, wishlistID string, in wish.WishInput) (wish.Wish, error) {
	var item wish.Wish
	err := c.call(ctx, http.MethodPost, "/api/v1/wishlists/"+wishlistID+"/wishes", in, &item)
	return item, err
}

func (c *Client) Wishes(ctx context.Context, wishlistID string) ([]wish.Wish, error) {
	var items []wish.Wish
	err := c.call(ctx, http.MethodGet, "/api/v1/wishlists/"+wishlistID+"/wishes", nil, &items)
	return items, err
}

func (c *Client) Reserve(ctx context.Context, wishID string) (wish.Wish, error) {
	var item wish.Wish
	err := c.call(ctx, http.MethodPost, "/api/v1/wishes/"+wishID+"/reserve", nil, &item)
	return item, err
}

func (c *Client) Release(ctx context.Context, wishID string) (wish.Wish, error) {
	var item wish.Wish
	err := c.call(ctx, http.MethodPost, "/api/v1/wishes/"+wishID+"/release", nil, &item)
	return item, err
}

// envelope is the JSEND response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// call performs one request and decodes the success payload into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	access := c.pair.AccessToken
	c.mu.Unlock()
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return mapAPIError(resp.StatusCode, failMessage(env))
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// failMessage pulls the human message out of a fail or error envelope.
func failMessage(env envelope) string {
	if env.Message != "" {
		return env.Message
	}
	var data struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Data, &data); err == nil {
		return data.Message
	}
	return ""
}

// mapAPIError converts an HTTP status to a sentinel error, keeping
// the server message.
func mapAPIError(code int, msg string) error {
	var sentinel error
	switch code {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	default:
		if msg == "" {
			msg = http.StatusText(code)
		}
		return fmt.Errorf("client: unexpected status %d: %s", code, msg)
	}
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
