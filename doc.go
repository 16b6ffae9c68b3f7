// Package goRecovery implements the two-step forgot-password flow of the
// maintenance console: the user proves their identity with name, email and the
// default password an administrator configured, receives a short-lived reset
// token, then chooses a new password.
//
// A [Flow] is a small state machine (Verifying then Resetting) that mediates
// between a rendering layer and the backend endpoints
// POST /api/forgot-password/verify and POST /api/forgot-password/reset.
// Flows are built with [New] and [Builder.Build].
//
// # Architecture boundaries
//
// goRecovery is the public surface. It exposes [Flow], [Builder], [Config],
// [FlowError] and value types. Step orchestration lives in internal/flows and
// the HTTP client in internal/api; neither is exported.
//
// # What this package must NOT do
//
//   - Persist the reset token or any password.
//   - Log passwords or raw tokens.
//   - Issue a second backend call while one is in flight for the same Flow.
package goRecovery
