package goSecretQ

import "errors"

var (
	// ErrInvalidAnswer is an exported constant or variable used by the secret question engine.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrMalformedCredentialData is an exported constant or variable used by the secret question engine.
	ErrMalformedCredentialData = errors.New("malformed secret question credential data")
	// ErrConfiguration is an exported constant or variable used by the secret question engine.
	ErrConfiguration = errors.New("invalid authenticator configuration")
	// ErrCredentialNotFound is an exported constant or variable used by the secret question engine.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrStoreUnavailable is an exported constant or variable used by the secret question engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrDeviceBindingFailed is an exported constant or variable used by the secret question engine.
	ErrDeviceBindingFailed = errors.New("device binding failed")
	// ErrDeviceBindingUnavailable is an exported constant or variable used by the secret question engine.
	ErrDeviceBindingUnavailable = errors.New("device binding unavailable")
	// ErrDeviceNameRequired is an exported constant or variable used by the secret question engine.
	ErrDeviceNameRequired = errors.New("device name required")
	// ErrDeviceNameTaken is an exported constant or variable used by the secret question engine.
	ErrDeviceNameTaken = errors.New("device name already registered")
	// ErrMarkerIssue is an exported constant or variable used by the secret question engine.
	ErrMarkerIssue = errors.New("bypass marker issuance failed")
	// ErrUserRequired is an exported constant or variable used by the secret question engine.
	ErrUserRequired = errors.New("user required")
	// ErrEngineNotReady is an exported constant or variable used by the secret question engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
