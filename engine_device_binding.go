package goSecretQ

import (
	"context"

	"github.com/MrEthical07/goSecretQ/internal"
	"github.com/MrEthical07/goSecretQ/internal/flows"
)

// BindDevice registers the device described by notes for userID, exactly as
// a successful Action does when the notes flag a device registration. The
// registeringDevice note itself is not consulted.
//
// BindDevice returns ErrDeviceBindingUnavailable without a collaborator,
// ErrDeviceNameRequired when no name can be determined, and wraps
// collaborator failures in ErrDeviceBindingFailed.
func (e *Engine) BindDevice(ctx context.Context, userID string, notes SessionNotes) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserRequired
	}
	req := flows.DeviceBindingRequestFromNotes(userID, notes)
	return flows.RunBindDevice(ctx, req, e.deviceBindingFlowDeps())
}

// DeviceName returns the name a device with the given fingerprint receives
// when the session carries no explicit name, or "" when both parts are empty.
func DeviceName(cpuid, visitorID string) string {
	return internal.DeriveDeviceName(cpuid, visitorID)
}
