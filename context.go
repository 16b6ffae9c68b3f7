package goRecovery

import "context"

type requestIDContextKey struct{}
type localeContextKey struct{}

// WithRequestID attaches a correlation id that is sent to the backend as
// X-Request-ID and copied into audit events. When absent a random id is used.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// WithLocale overrides the configured locale for messages produced by one
// submission, e.g. from the hosting page's Accept-Language.
func WithLocale(ctx context.Context, locale Locale) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func localeFromContext(ctx context.Context, fallback Locale) Locale {
	if ctx == nil {
		return fallback
	}

	locale, _ := ctx.Value(localeContextKey{}).(Locale)
	if _, ok := messageCatalog[locale]; !ok {
		return fallback
	}
	return locale
}
