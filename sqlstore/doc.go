// Package sqlstore provides SQL-backed implementations of the goSecretQ
// credential store and device-credential collaborator using bun.
//
// [Open] wires the pure-Go SQLite driver and [OpenDB] selects SQLite,
// Postgres (pgx) or MySQL with the matching bun dialect. [New] accepts any
// *bun.DB so hosts can bring their own. [Store.Migrate] creates the
// credentials and device_credentials tables and their indexes idempotently.
// Duplicate device names map to [goSecretQ.ErrDeviceNameTaken] on every
// supported driver.
package sqlstore
