// Package flows contains pure-function orchestrators for the recovery steps.
//
// RunVerify and RunReset accept a typed dependency struct and return results
// without side-effects beyond those dependencies. The Flow type in the root
// package owns state; these functions only sequence pre-flight checks, the
// backend call, error mapping, metrics and audit emission.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goRecovery (to avoid import cycles).
//   - Perform I/O directly; the backend call is a dependency.
package flows
