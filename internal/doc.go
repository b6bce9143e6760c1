// Package internal holds helpers private to goSecretQ.
//
// # Sub-packages
//
//   - audit: async audit event dispatch
//   - codec: secret-question payload serialization
//   - flows: pure flow orchestrators behind every Engine step
//   - i18n: localized user-facing messages
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSecretQ API.
//   - Be imported from outside this module.
package internal
