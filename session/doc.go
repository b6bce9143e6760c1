// Package session provides Redis-backed authentication sessions: the short-lived
// per-attempt state a host keeps while a user moves through the authentication
// flow, including the client notes consulted by the secret question step.
//
// # Binary encoding
//
// Sessions are stored in Redis as a compact versioned binary blob. Decode
// rejects unknown versions, truncated input, and trailing bytes.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// [Session] satisfies goSecretQ.SessionNotes structurally; the package does not
// import the engine.
//
// # What this package must NOT do
//
//   - Import goSecretQ (no upward imports).
//   - Store answers or other credential secrets in notes.
package session
