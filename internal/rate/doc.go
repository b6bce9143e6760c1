// Package rate implements the Redis fixed-window counters behind the HTTP
// layer's wrong-answer throttle.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Key prefixes:
//   - sqa:  per user
//   - sqai: per client IP
//
// The engine core never counts attempts; hosts opt in through the
// middleware package.
package rate
