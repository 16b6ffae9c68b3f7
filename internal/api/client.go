// Package api is the JSON-over-HTTP client for the forgot-password endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Config configures a Client.
type Config struct {
	BaseURL    string
	VerifyPath string
	ResetPath  string
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	// HTTPClient replaces the default transport, mainly for tests.
	HTTPClient *http.Client
	// RequestID returns the correlation id for ctx; empty means generate one.
	RequestID func(context.Context) string
}

// VerifyRequest is the wire body of the verify call.
type VerifyRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	DefaultPassword string `json:"default_password"`
}

// ResetRequest is the wire body of the reset call.
type ResetRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Envelope is the response shape shared by both endpoints.
type Envelope struct {
	Success *bool  `json:"success,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error describes a failed call. Exactly one of Transport, Malformed or a
// backend rejection (Status/Code/Message) explains it.
type Error struct {
	Status    int
	Code      string
	Message   string
	Transport bool
	Malformed bool
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Transport:
		return fmt.Sprintf("transport: %v", e.Err)
	case e.Malformed:
		return fmt.Sprintf("malformed response (status %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("rejected (status %d, code %q): %s", e.Status, e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the authentication backend.
type Client struct {
	http      *resty.Client
	cfg       Config
	requestID func(context.Context) string
}

// New builds a Client. BaseURL must be absolute.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base url required")
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetDisableWarn(true)
	rc.SetBaseURL(cfg.BaseURL)
	rc.SetHeader("Content-Type", "application/json")
	rc.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if len(cfg.Headers) > 0 {
		rc.SetHeaders(cfg.Headers)
	}

	requestID := cfg.RequestID
	if requestID == nil {
		requestID = func(context.Context) string { return "" }
	}

	return &Client{http: rc, cfg: cfg, requestID: requestID}, nil
}

// Verify submits identity proof and returns the reset token.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (string, error) {
	env, err := c.post(ctx, c.cfg.VerifyPath, req)
	if err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", &Error{Status: http.StatusOK, Code: env.Code, Message: env.Message}
	}
	return env.Token, nil
}

// Reset submits the new password authorized by token.
func (c *Client) Reset(ctx context.Context, req ResetRequest) error {
	_, err := c.post(ctx, c.cfg.ResetPath, req)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any) (Envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	id := c.requestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, id).
		SetBody(body).
		Post(path)
	if err != nil {
		return Envelope{}, &Error{Transport: true, Err: err}
	}

	var env Envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)

	if !resp.IsSuccess() {
		// A non-2xx body is informative only; the status alone still classifies it.
		return Envelope{}, &Error{Status: resp.StatusCode(), Code: env.Code, Message: env.Message}
	}
	if decodeErr != nil {
		return Envelope{}, &Error{Status: resp.StatusCode(), Malformed: true, Err: decodeErr}
	}
	if env.Success != nil && !*env.Success {
		return Envelope{}, &Error{Status: resp.StatusCode(), Code: env.Code, Message: env.Message}
	}
	return env, nil
}
