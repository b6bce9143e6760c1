package flows

import (
	"context"
	"errors"
	"fmt"
)

// Session notes consulted by the device-binding branch.
const (
	NoteRegisteringDevice = "registeringDevice"
	NoteCPUID             = "cpuid"
	NoteVisitorID         = "visitorId"
	NoteDeviceName        = "deviceName"
)

type DeviceBindingRequest struct {
	UserID     string
	DeviceName string
	CPUID      string
	VisitorID  string
}

type DeviceBindingMetrics struct {
	DeviceBound         int
	DeviceBindingFailed int
}

type DeviceBindingEvents struct {
	DeviceBound         string
	DeviceBindingFailed string
}

type DeviceBindingErrors struct {
	Unavailable  error
	NameRequired error
	Failed       error
}

type DeviceBindingDeps struct {
	DeriveName bool

	CreateDeviceCredential func(ctx context.Context, userID, deviceName, cpuid, visitorID string) error
	DeriveDeviceName       func(cpuid, visitorID string) string

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics DeviceBindingMetrics
	Events  DeviceBindingEvents
	Errors  DeviceBindingErrors
}

// RegisteringDevice reports whether notes flag the attempt as part of a device
// registration. Only the exact value "true" activates the branch.
func RegisteringDevice(notes Notes) bool {
	return noteValue(notes, NoteRegisteringDevice) == "true"
}

// DeviceBindingRequestFromNotes reads the fingerprint and optional device name
// notes. Missing notes come through as empty strings.
func DeviceBindingRequestFromNotes(userID string, notes Notes) DeviceBindingRequest {
	return DeviceBindingRequest{
		UserID:     userID,
		DeviceName: noteValue(notes, NoteDeviceName),
		CPUID:      noteValue(notes, NoteCPUID),
		VisitorID:  noteValue(notes, NoteVisitorID),
	}
}

// RunBindDevice hands a verified attempt to the device-credential collaborator.
// Every failure is returned; the caller must not report success without it.
func RunBindDevice(ctx context.Context, req DeviceBindingRequest, deps DeviceBindingDeps) error {
	normalizeDeviceBindingDeps(&deps)

	if deps.CreateDeviceCredential == nil {
		return deps.Errors.Unavailable
	}

	name := req.DeviceName
	if name == "" && deps.DeriveName {
		name = deps.DeriveDeviceName(req.CPUID, req.VisitorID)
	}
	if name == "" {
		deps.MetricInc(deps.Metrics.DeviceBindingFailed)
		deps.EmitAudit(ctx, deps.Events.DeviceBindingFailed, false, req.UserID, "", deps.Errors.NameRequired, nil)
		return deps.Errors.NameRequired
	}

	if err := deps.CreateDeviceCredential(ctx, req.UserID, name, req.CPUID, req.VisitorID); err != nil {
		deps.MetricInc(deps.Metrics.DeviceBindingFailed)
		deps.EmitAudit(ctx, deps.Events.DeviceBindingFailed, false, req.UserID, "", err, func() map[string]string {
			return map[string]string{"device_name": name}
		})
		return fmt.Errorf("%w: %w", deps.Errors.Failed, err)
	}

	deps.MetricInc(deps.Metrics.DeviceBound)
	deps.EmitAudit(ctx, deps.Events.DeviceBound, true, req.UserID, "", nil, func() map[string]string {
		return map[string]string{"device_name": name}
	})
	return nil
}

func normalizeDeviceBindingDeps(deps *DeviceBindingDeps) {
	if deps.DeriveDeviceName == nil {
		deps.DeriveDeviceName = func(string, string) string { return "" }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Errors.Unavailable == nil {
		deps.Errors.Unavailable = errors.New("device binding unavailable")
	}
	if deps.Errors.NameRequired == nil {
		deps.Errors.NameRequired = errors.New("device name required")
	}
	if deps.Errors.Failed == nil {
		deps.Errors.Failed = errors.New("device binding failed")
	}
}
