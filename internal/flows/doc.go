// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunValidateAnswer, RunAction, RunEnrollAction, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. The Engine builds the dependency structs and
// converts between its public types and the flow types.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, answer comparer,
// marker issuer, device-credential collaborator, renderer, audit dispatcher,
// and metrics. They do NOT own any of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSecretQ (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
