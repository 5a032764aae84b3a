// Package authclient performs the login exchange against the dashboard's
// REST API.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/panelGate/session"
	"github.com/pkg/errors"
)

const maxResponseBytes = 1 << 20

var (
	// ErrInvalidCredentials is returned when the API rejects the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnavailable is returned for transport failures and unexpected statuses.
	ErrUnavailable = errors.New("auth api unavailable")
	// ErrMalformedResponse is returned when a success response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed auth api response")
)

// LoginResult is the token and user returned by a successful login.
type LoginResult struct {
	Token string        `json:"token"`
	User  *session.User `json:"user"`
}

// Client talks to the auth API rooted at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client with a bounded HTTP timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials to {BaseURL}/auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling login request")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/auth/login", strings.TrimRight(c.BaseURL, "/")),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "error invoking auth api: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Wrapf(ErrUnavailable, "received %d from auth api", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "error reading response body: %v", err)
	}

	var out LoginResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "error unmarshaling response body: %v", err)
	}
	if out.Token == "" || out.User == nil {
		return nil, errors.Wrap(ErrMalformedResponse, "response missing token or user")
	}
	return &out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}
