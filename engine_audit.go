package goSecretQ

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventChallenge       = "secret_question_challenge"
	auditEventSuccess         = "secret_question_success"
	auditEventFailure         = "secret_question_failure"
	auditEventMalformed       = "secret_question_malformed"
	auditEventBypass          = "secret_question_bypass"
	auditEventEnrolled        = "secret_question_enrolled"
	auditEventDeleted         = "secret_question_deleted"
	auditEventDeviceBound     = "device_credential_bound"
	auditEventDeviceBindError = "device_credential_failed"
)

// AuditErrorCode defines a public type used by goSecretQ APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidAnswer       AuditErrorCode = "invalid_answer"
	auditErrMalformed           AuditErrorCode = "malformed_credential"
	auditErrConfiguration       AuditErrorCode = "configuration"
	auditErrNotFound            AuditErrorCode = "credential_not_found"
	auditErrDeviceNameRequired  AuditErrorCode = "device_name_required"
	auditErrDeviceNameTaken     AuditErrorCode = "device_name_taken"
	auditErrDeviceBindingFailed AuditErrorCode = "device_binding_failed"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	credentialID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		UserID:       userID,
		Realm:        realmFromContext(ctx),
		CredentialID: credentialID,
		IP:           clientIPFromContext(ctx),
		Success:      success,
		Metadata:     metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidAnswer):
		return auditErrInvalidAnswer
	case errors.Is(err, ErrMalformedCredentialData):
		return auditErrMalformed
	case errors.Is(err, ErrConfiguration):
		return auditErrConfiguration
	case errors.Is(err, ErrCredentialNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrDeviceNameRequired):
		return auditErrDeviceNameRequired
	case errors.Is(err, ErrDeviceNameTaken):
		return auditErrDeviceNameTaken
	case errors.Is(err, ErrDeviceBindingFailed):
		return auditErrDeviceBindingFailed
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrDeviceBindingUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
