package goSecretQ

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goSecretQ/internal"
	"github.com/MrEthical07/goSecretQ/internal/flows"
	"github.com/MrEthical07/goSecretQ/internal/i18n"
)

func (e *Engine) flowDeps() flows.Deps {
	creds := e.credentialFlowDeps()
	binding := e.deviceBindingFlowDeps()
	return flows.Deps{
		Credentials:   creds,
		DeviceBinding: binding,
		Authenticate:  e.authenticateFlowDeps(creds, binding),
		Enroll:        e.enrollFlowDeps(creds),
	}
}

func (e *Engine) credentialFlowDeps() flows.CredentialDeps {
	deps := flows.CredentialDeps{
		CredentialType: CredentialType,
		Now:            time.Now,
		LogMalformed:   e.logMalformed,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Observe: func(id int, d time.Duration) {
			e.metricObserve(MetricID(id), d)
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.CredentialMetrics{
			AnswerSuccess:       int(MetricAnswerSuccess),
			AnswerFailure:       int(MetricAnswerFailure),
			MalformedCredential: int(MetricMalformedCredential),
			ValidateLatency:     int(MetricValidateLatency),
			CredentialCreated:   int(MetricCredentialCreated),
			CredentialDeleted:   int(MetricCredentialDeleted),
		},
		Events: flows.CredentialEvents{
			AnswerSuccess:     auditEventSuccess,
			AnswerFailure:     auditEventFailure,
			Malformed:         auditEventMalformed,
			CredentialCreated: auditEventEnrolled,
			CredentialDeleted: auditEventDeleted,
		},
		Errors: flows.CredentialErrors{
			EngineNotReady:   ErrEngineNotReady,
			UserRequired:     ErrUserRequired,
			NotFound:         ErrCredentialNotFound,
			Malformed:        ErrMalformedCredentialData,
			StoreUnavailable: ErrStoreUnavailable,
			InvalidAnswer:    ErrInvalidAnswer,
		},
	}

	if e.store != nil {
		deps.GetByID = func(ctx context.Context, id string) (flows.Credential, error) {
			rec, err := e.store.GetByID(ctx, id)
			if err != nil {
				return flows.Credential{}, err
			}
			return toFlowCredential(rec), nil
		}
		deps.ListByType = func(ctx context.Context, userID, credentialType string) ([]flows.Credential, error) {
			recs, err := e.store.ListByType(ctx, userID, credentialType)
			if err != nil {
				return nil, err
			}
			out := make([]flows.Credential, 0, len(recs))
			for _, rec := range recs {
				out = append(out, toFlowCredential(rec))
			}
			return out, nil
		}
		deps.Create = func(ctx context.Context, userID string, rec flows.Credential) (flows.Credential, error) {
			created, err := e.store.Create(ctx, userID, fromFlowCredential(rec))
			if err != nil {
				return flows.Credential{}, err
			}
			return toFlowCredential(created), nil
		}
		deps.DeleteByID = e.store.DeleteByID
	}
	if e.comparer != nil {
		deps.PrepareAnswer = e.comparer.Prepare
		deps.MatchAnswer = e.comparer.Match
	}
	return deps
}

func (e *Engine) deviceBindingFlowDeps() flows.DeviceBindingDeps {
	deps := flows.DeviceBindingDeps{
		DeriveName:       e.config.DeviceBinding.DeriveName,
		DeriveDeviceName: internal.DeriveDeviceName,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.DeviceBindingMetrics{
			DeviceBound:         int(MetricDeviceBound),
			DeviceBindingFailed: int(MetricDeviceBindingFailed),
		},
		Events: flows.DeviceBindingEvents{
			DeviceBound:         auditEventDeviceBound,
			DeviceBindingFailed: auditEventDeviceBindError,
		},
		Errors: flows.DeviceBindingErrors{
			Unavailable:  ErrDeviceBindingUnavailable,
			NameRequired: ErrDeviceNameRequired,
			Failed:       ErrDeviceBindingFailed,
		},
	}
	if e.devices != nil {
		deps.CreateDeviceCredential = e.devices.CreateDeviceCredential
	}
	return deps
}

func (e *Engine) authenticateFlowDeps(creds flows.CredentialDeps, binding flows.DeviceBindingDeps) flows.AuthenticateDeps {
	deps := flows.AuthenticateDeps{
		TemplateID:     TemplateSecretQuestion,
		SkipWithMarker: e.config.Bypass.SkipChallengeWithMarker,
		DefaultMaxAge:  e.config.Bypass.DefaultMaxAge,
		Messages: flows.StepMessages{
			InvalidAnswer:   i18n.MsgInvalidAnswer,
			AnswerRequired:  i18n.MsgAnswerRequired,
			DefaultQuestion: i18n.MsgDefaultQuestion,
		},
		Credentials:   creds,
		DeviceBinding: binding,
		Translate:     e.translate,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.AuthenticateMetrics{
			ChallengePresented: int(MetricChallengePresented),
			BypassHonored:      int(MetricBypassHonored),
			MarkerIssued:       int(MetricBypassIssued),
		},
		Events: flows.AuthenticateEvents{
			ChallengePresented: auditEventChallenge,
			BypassHonored:      auditEventBypass,
		},
		Errors: flows.AuthenticateErrors{
			EngineNotReady: ErrEngineNotReady,
			UserRequired:   ErrUserRequired,
			Configuration:  ErrConfiguration,
			Marker:         ErrMarkerIssue,
		},
	}
	if e.marker != nil {
		deps.IssueMarker = e.marker.Issue
		deps.MarkerPresent = e.marker.Present
	}
	if e.renderer != nil {
		deps.Render = e.renderFlowForm
	}
	return deps
}

func (e *Engine) enrollFlowDeps(creds flows.CredentialDeps) flows.EnrollDeps {
	deps := flows.EnrollDeps{
		TemplateID:          TemplateSecretQuestionConfig,
		DefaultQuestion:     e.config.Enrollment.DefaultQuestion,
		AllowCustomQuestion: e.config.Enrollment.AllowCustomQuestion,
		Messages: flows.StepMessages{
			AnswerRequired:  i18n.MsgAnswerRequired,
			DefaultQuestion: i18n.MsgDefaultQuestion,
		},
		Credentials: creds,
		Translate:   e.translate,
	}
	if e.renderer != nil {
		deps.Render = e.renderFlowForm
	}
	return deps
}

func (e *Engine) renderFlowForm(ctx context.Context, f flows.Form) (any, error) {
	form := Form{
		TemplateID: f.TemplateID,
		Error:      f.Error,
		Locale:     f.Locale,
		Question:   f.Question,
	}
	if form.Locale == "" {
		form.Locale = e.config.Locale.Default
	}
	if len(f.Options) > 0 {
		form.Options = make([]CredentialOption, 0, len(f.Options))
		for _, opt := range f.Options {
			form.Options = append(form.Options, CredentialOption(opt))
		}
	}
	return e.renderer.RenderForm(ctx, form)
}

func toFlowCredential(rec CredentialRecord) flows.Credential {
	return flows.Credential(rec)
}

func fromFlowCredential(rec flows.Credential) CredentialRecord {
	return CredentialRecord(rec)
}

func toFlowStepRequest(req StepRequest) flows.StepRequest {
	return flows.StepRequest{
		UserID:              req.UserID,
		Realm:               req.Realm,
		BaseURI:             req.BaseURI,
		Locale:              req.Locale,
		Form:                req.Form,
		Cookies:             req.Cookies,
		Notes:               req.Notes,
		AuthenticatorConfig: req.AuthenticatorConfig,
	}
}

func fromFlowStepResult(res flows.StepResult) StepResult {
	return StepResult{
		Status:    StepStatus(res.Status),
		Response:  res.Response,
		Marker:    res.Marker,
		FlowError: res.FlowError,
	}
}

func (e *Engine) stepContext(ctx context.Context, req StepRequest) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Realm != "" && realmFromContext(ctx) == "" {
		ctx = WithRealm(ctx, req.Realm)
	}
	return ctx
}

// markerPath resolves the marker cookie path for req.
func markerPath(req StepRequest) (string, error) {
	path, err := flows.RealmBasePath(req.BaseURI, req.Realm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return path, nil
}
