// Package middleware serves the secret question steps over net/http and
// guards routes behind them.
//
// # Handlers
//
//   - [StepHandler] renders the challenge and enrollment forms and processes
//     their submissions through goSecretQ.Engine.
//   - [HTMLRenderer] is a [goSecretQ.Renderer] backed by embedded templates.
//
// # Guards
//
//   - [RequireAnswered] passes requests carrying a live answered marker.
//   - [RequireEnrolled] sends users without a secret question to enrollment.
//
// # Attempt limiting
//
// Options.Limiter, usually from [NewAttemptLimiter], counts wrong answers per
// user (and optionally per client IP) in a Redis fixed window. Once the limit
// is reached, POSTs to the challenge answer 429 until the window expires or
// the user answers correctly. The client IP is the TCP peer; X-Forwarded-For
// is read only from peers listed in Options.TrustedProxies.
//
// The user and realm always come from the authentication session named by
// the session cookie, never from form input. All answer checks are delegated
// to the Engine.
package middleware
