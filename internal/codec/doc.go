// Package codec serializes the public (question) and secret (answer) payloads of a
// secret-question credential.
//
// Payloads are single-field JSON objects: {"question": "..."} and {"secret": "..."}.
// Decoding is strict: a missing field, a null value, an unknown field, or trailing
// data is reported as ErrMalformed so callers can tell corrupt storage apart from a
// wrong answer. Encoding refuses text that is not valid UTF-8, since JSON would
// silently replace the offending bytes with U+FFFD.
//
// # What this package must NOT do
//
//   - Compare answers or make validation decisions.
//   - Import goSecretQ or any sibling internal package.
package codec
