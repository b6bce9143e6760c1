// Package redisstore provides Redis-backed implementations of the goSecretQ
// credential store and device-credential collaborator.
//
// # Key layout
//
//	<prefix>:r:<id>                     binary credential record
//	<prefix>:u:<userID>:<type>          set of credential IDs
//	<devicePrefix>:<userID>             hash deviceName -> binary device record
//
// Records use a compact versioned binary encoding. The user index is
// maintained in the same MULTI/EXEC as the record; stale index members left
// behind by an expired or externally deleted record are skipped on read and
// pruned lazily.
//
// # What this package must NOT do
//
//   - Decode or interpret PublicData/SecretData payloads.
//   - Compare answers.
package redisstore
