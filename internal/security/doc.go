// Package security derives the engine's security posture report from its
// effective configuration.
package security
