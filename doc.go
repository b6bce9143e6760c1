// Package goSecretQ provides a secret-question second factor: credential
// storage and validation, a challenge/response authentication step, an
// enrollment step, a short-lived bypass marker cookie, and an optional
// device-binding side effect on success.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSecretQ is the public surface. It exposes [Engine], [Builder], [Config], and value types
// ([CredentialRecord], [StepRequest], [StepResult], [MetricsSnapshot]). Flow orchestration,
// payload encoding, localization, and audit dispatch live under internal/ and are never
// exported. Persistence, session notes, and HTTP transport are supplied by the host through
// [CredentialStore], [DeviceCredentialCreator], [SessionNotes], and [Renderer]; ready-made
// implementations live in storage/redisstore, storage/bunstore, authsession, and httpstep.
//
// # What this package must NOT do
//
//   - Hold per-attempt state. Every step call is self-contained.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports goSecretQ (no import cycles).
package goSecretQ
