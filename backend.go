package goRecovery

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/goRecovery/internal/api"
)

// Backend performs the two forgot-password calls. The default implementation
// speaks JSON over HTTP; hosts may substitute their own (for example an
// in-process call when the UI and API share a binary).
//
// Errors returned as *FlowError keep their kind. Context cancellation and
// deadline errors are reported as KindNetworkUnavailable and anything else as
// KindServerRejected.
type Backend interface {
	Verify(ctx context.Context, req VerificationRequest) (ResetToken, error)
	Reset(ctx context.Context, req ResetRequest) error
}

type httpBackend struct {
	client *api.Client
}

func newHTTPBackend(cfg Config, hc *http.Client) (*httpBackend, error) {
	client, err := api.New(api.Config{
		BaseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		VerifyPath: cfg.API.VerifyPath,
		ResetPath:  cfg.API.ResetPath,
		Timeout:    cfg.API.RequestTimeout,
		UserAgent:  cfg.API.UserAgent,
		Headers:    cfg.API.Headers,
		HTTPClient: hc,
		RequestID:  requestIDFromContext,
	})
	if err != nil {
		return nil, err
	}
	return &httpBackend{client: client}, nil
}

func (b *httpBackend) Verify(ctx context.Context, req VerificationRequest) (ResetToken, error) {
	raw, err := b.client.Verify(ctx, api.VerifyRequest{
		Name:            req.Name,
		Email:           req.Email,
		DefaultPassword: req.DefaultPassword,
	})
	if err != nil {
		return ResetToken{}, err
	}
	return NewResetToken(raw), nil
}

func (b *httpBackend) Reset(ctx context.Context, req ResetRequest) error {
	return b.client.Reset(ctx, api.ResetRequest{
		Token:           req.Token.Value(),
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
}

type step uint8

const (
	stepVerify step = iota
	stepReset
)

// Backend error codes understood in response bodies. They take precedence
// over the HTTP status.
const (
	codeUserNotFound       = "user_not_found"
	codeInvalidCredentials = "invalid_credentials"
	codeNoDefaultPassword  = "no_default_password"
	codeRateLimited        = "rate_limited"
)

func classifyRejection(s step, status int, code string) Kind {
	switch code {
	case codeRateLimited:
		return KindRateLimited
	case codeUserNotFound:
		if s == stepVerify {
			return KindNotFound
		}
	case codeInvalidCredentials:
		if s == stepVerify {
			return KindInvalidCredential
		}
	case codeNoDefaultPassword:
		if s == stepVerify {
			return KindNoDefaultPasswordConfigured
		}
	}

	if status == http.StatusTooManyRequests {
		return KindRateLimited
	}
	// Unrecognised codes fall back to the status.
	if s == stepReset {
		return KindServerRejected
	}

	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidCredential
	case http.StatusConflict, http.StatusPreconditionFailed:
		return KindNoDefaultPasswordConfigured
	default:
		return KindServerRejected
	}
}

// mapBackendError turns any backend failure into a *FlowError with a message
// suitable for display in locale.
func mapBackendError(s step, locale Locale, minLength int, err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		// Backends may hand out shared values; never write to theirs.
		out := *fe
		if out.Message == "" {
			out.Message = defaultMessage(locale, out.Kind, minLength)
		}
		return &out
	}

	var ae *api.Error
	if errors.As(err, &ae) {
		switch {
		case ae.Transport:
			return &FlowError{Kind: KindNetworkUnavailable, Message: defaultMessage(locale, KindNetworkUnavailable, minLength), Err: err}
		case ae.Malformed:
			return &FlowError{Kind: KindServerRejected, Message: defaultMessage(locale, KindServerRejected, minLength), Status: ae.Status, Err: err}
		}
		kind := classifyRejection(s, ae.Status, ae.Code)
		msg := strings.TrimSpace(ae.Message)
		if msg == "" {
			msg = defaultMessage(locale, kind, minLength)
		}
		return &FlowError{Kind: kind, Message: msg, Status: ae.Status, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &FlowError{Kind: KindNetworkUnavailable, Message: defaultMessage(locale, KindNetworkUnavailable, minLength), Err: err}
	}
	return &FlowError{Kind: KindServerRejected, Message: defaultMessage(locale, KindServerRejected, minLength), Err: err}
}
