// Package internal contains helpers that are private to goRecovery, currently
// secure random password generation.
//
// # Sub-packages
//
//   - api: JSON client for the forgot-password endpoints
//   - flows: pure-function orchestrators for the verify and reset steps
//   - stubapi: in-memory/Redis test double of the backend endpoints
//   - console: zap logger and koanf config loading shared by the commands
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRecovery API.
//   - Be imported by any package outside the goRecovery module.
package internal
