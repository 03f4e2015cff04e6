package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public mail.tm API endpoint.
const DefaultBaseURL = "https://api.mail.tm"

const (
	defaultUsernameLength = 10
	defaultPasswordLength = 16
	defaultWaitInterval   = 10 * time.Second
	defaultWaitChecks     = 10
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client talks to a mail.tm compatible provider. It owns the single active
// session and the resolved mail domain. Every operation is a blocking
// round trip; failures are returned once and never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	sleep      Sleeper
	now        func() time.Time
	randString func(n int) string

	usernameLength int
	passwordLength int
	waitInterval   time.Duration
	waitChecks     int
	exportDir      string

	mu      gosync.RWMutex
	session *Session
	domain  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the transport timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used to report failed operations.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSleeper replaces the sleep used between WaitForNew checks.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithClock replaces time.Now, used for export file names.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithCredentialLengths sets the generated username and password lengths.
func WithCredentialLengths(username, password int) Option {
	return func(c *Client) {
		if username > 0 {
			c.usernameLength = username
		}
		if password > 0 {
			c.passwordLength = password
		}
	}
}

// WithWaitDefaults sets the interval and check count WaitForNew falls back
// to when called with non-positive values.
func WithWaitDefaults(interval time.Duration, maxChecks int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.waitInterval = interval
		}
		if maxChecks > 0 {
			c.waitChecks = maxChecks
		}
	}
}

// WithExportDir sets the directory ExportToFile writes into.
func WithExportDir(dir string) Option {
	return func(c *Client) { c.exportDir = dir }
}

// NewClient creates a client for the provider rooted at baseURL. An empty
// baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:            zerolog.Nop(),
		sleep:          sleepContext,
		now:            time.Now,
		randString:     randomLowercase,
		usernameLength: defaultUsernameLength,
		passwordLength: defaultPasswordLength,
		waitInterval:   defaultWaitInterval,
		waitChecks:     defaultWaitChecks,
		exportDir:      ".",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the provider root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes a single provider call.
type request struct {
	method      string
	path        string
	body        interface{}
	contentType string
	token       string
}

// do builds the request, attaches the bearer token when one is given,
// and decodes the JSON response into result. When raw is non-nil it
// receives the undecoded response body.
func (c *Client) do(
	ctx context.Context,
	r request,
	result interface{},
	raw *[]byte,
) error {
	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(
		ctx, r.method, c.baseURL+r.path, bodyReader,
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/ld+json")
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}
	if r.token != "" {
		req.Header.Set("Authorization", bearer(r.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", r.method, r.path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     r.method,
			Path:       r.path,
			Message:    providerMessage(respBody),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{Message: apiErr.Error()}
		}
		return apiErr
	}

	if raw != nil {
		*raw = respBody
	}

	// No content to parse (e.g. 204 on delete).
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			r.method, r.path, err,
		)
	}

	return nil
}

// providerMessage extracts the human readable reason from a JSON-LD or
// problem+json error body, falling back to the trimmed body text.
func providerMessage(body []byte) string {
	var e ErrorResponse
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.HydraDescription != "":
			return e.HydraDescription
		case e.Detail != "":
			return e.Detail
		case e.Message != "":
			return e.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func bearer(token string) string {
	return "Bearer " + token
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
