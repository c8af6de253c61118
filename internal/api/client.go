// Package api wraps every outbound call to the remote shop API. It injects
// the bearer token of the live session and funnels unauthenticated responses
// into a single notification hook.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnauthenticated means the server rejected the bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTransport covers network and timeout failures before any response.
	ErrTransport = errors.New("transport")
	// ErrRemote covers non-auth server-side rejections.
	ErrRemote = errors.New("remote")
)

// TokenSource yields the current bearer token, or "" when no session is live.
type TokenSource interface {
	Token() string
}

type Client struct {
	// Tokens supplies the bearer token per request. May be nil for a client
	// that only performs unauthenticated calls.
	Tokens TokenSource

	// OnUnauthenticated fires once per 401 response. The receiver is
	// expected to de-duplicate concurrent notifications itself.
	OnUnauthenticated func()

	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log,
	}
}

// LoginURL builds the identity-provider redirect. The provider lands the
// user back on returnURL with the issued token.
func (c *Client) LoginURL(returnURL string) string {
	return c.baseURL + "/auth/google?redirect_uri=" + url.QueryEscape(returnURL)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn("request_unauthenticated", "method", method, "path", path)
		if c.OnUnauthenticated != nil {
			c.OnUnauthenticated()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := readErrorMessage(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, msg, ErrRemote)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "no error detail"
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return "no error detail"
}
