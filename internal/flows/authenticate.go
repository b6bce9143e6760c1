package flows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSecretQ/internal/codec"
)

const FlowErrorInvalidCredentials = "invalid_credentials"

type AuthenticateMetrics struct {
	ChallengePresented int
	BypassHonored      int
	MarkerIssued       int
}

type AuthenticateEvents struct {
	ChallengePresented string
	BypassHonored      string
}

type AuthenticateErrors struct {
	EngineNotReady error
	UserRequired   error
	Configuration  error
	Marker         error
}

type AuthenticateDeps struct {
	TemplateID      string
	SkipWithMarker  bool
	DefaultMaxAge   time.Duration
	Messages        StepMessages
	Credentials     CredentialDeps
	DeviceBinding   DeviceBindingDeps
	IssueMarker     func(path string, maxAge time.Duration) (*http.Cookie, error)
	MarkerPresent   func(cookies []*http.Cookie, path string) bool
	Render          func(context.Context, Form) (any, error)
	Translate       func(locale, messageID string) string
	MetricInc       func(int)
	EmitAudit       func(context.Context, string, bool, string, string, error, func() map[string]string)
	Metrics         AuthenticateMetrics
	Events          AuthenticateEvents
	Errors          AuthenticateErrors
	RealmBasePathFn func(baseURI, realm string) (string, error)
}

// RunAuthenticate is the entry state: it always presents the challenge unless
// marker skipping is enabled and a live marker is present.
func RunAuthenticate(ctx context.Context, req StepRequest, deps AuthenticateDeps) (StepResult, error) {
	normalizeAuthenticateDeps(&deps)

	if deps.Render == nil {
		return StepResult{}, deps.Errors.EngineNotReady
	}
	if req.UserID == "" {
		return StepResult{}, deps.Errors.UserRequired
	}

	if deps.SkipWithMarker && deps.MarkerPresent != nil {
		path, err := deps.RealmBasePathFn(req.BaseURI, req.Realm)
		if err != nil {
			return StepResult{}, fmt.Errorf("%w: %v", deps.Errors.Configuration, err)
		}
		if deps.MarkerPresent(req.Cookies, path) {
			deps.MetricInc(deps.Metrics.BypassHonored)
			deps.EmitAudit(ctx, deps.Events.BypassHonored, true, req.UserID, "", nil, nil)
			return StepResult{Status: StepSuccess}, nil
		}
	}

	return presentChallenge(ctx, req, "", StepChallenge, "", deps)
}

// RunAction validates a submitted answer. A wrong answer re-presents the
// challenge; success issues the marker, then binds the device when the session
// asks for it. Any error aborts the attempt.
func RunAction(ctx context.Context, req StepRequest, deps AuthenticateDeps) (StepResult, error) {
	normalizeAuthenticateDeps(&deps)

	if deps.Render == nil || deps.IssueMarker == nil {
		return StepResult{}, deps.Errors.EngineNotReady
	}
	if req.UserID == "" {
		return StepResult{}, deps.Errors.UserRequired
	}

	answer := req.Form.Get(FieldAnswer)
	credentialID := strings.TrimSpace(req.Form.Get(FieldCredentialID))

	ok, err := RunValidateAnswer(ctx, req.UserID, credentialID, answer, deps.Credentials)
	if err != nil {
		return StepResult{}, err
	}
	if !ok {
		msg := deps.Translate(req.Locale, deps.Messages.InvalidAnswer)
		return presentChallenge(ctx, req, msg, StepFailureChallenge, FlowErrorInvalidCredentials, deps)
	}

	maxAge, err := ResolveMaxAge(req.AuthenticatorConfig, deps.DefaultMaxAge, deps.Errors.Configuration)
	if err != nil {
		return StepResult{}, err
	}
	path, err := deps.RealmBasePathFn(req.BaseURI, req.Realm)
	if err != nil {
		return StepResult{}, fmt.Errorf("%w: %v", deps.Errors.Configuration, err)
	}
	marker, err := deps.IssueMarker(path, maxAge)
	if err != nil {
		return StepResult{}, fmt.Errorf("%w: %v", deps.Errors.Marker, err)
	}
	deps.MetricInc(deps.Metrics.MarkerIssued)

	if RegisteringDevice(req.Notes) {
		bind := DeviceBindingRequestFromNotes(req.UserID, req.Notes)
		if err := RunBindDevice(ctx, bind, deps.DeviceBinding); err != nil {
			return StepResult{}, err
		}
	}

	return StepResult{Status: StepSuccess, Marker: marker}, nil
}

func presentChallenge(ctx context.Context, req StepRequest, errMsg string, status int, flowError string, deps AuthenticateDeps) (StepResult, error) {
	records, err := RunListCredentials(ctx, req.UserID, deps.Credentials)
	if err != nil {
		return StepResult{}, err
	}

	form := Form{
		TemplateID: deps.TemplateID,
		Error:      errMsg,
		Locale:     req.Locale,
		Options:    make([]CredentialOption, 0, len(records)),
	}
	for _, rec := range records {
		q, err := codec.DecodeQuestion(rec.PublicData)
		if err != nil {
			return StepResult{}, malformed(ctx, req.UserID, rec.ID, err, deps.Credentials)
		}
		form.Options = append(form.Options, CredentialOption{ID: rec.ID, Question: q, Label: rec.UserLabel})
	}
	if len(form.Options) > 0 {
		form.Question = form.Options[0].Question
	}

	if status == StepChallenge {
		deps.MetricInc(deps.Metrics.ChallengePresented)
		deps.EmitAudit(ctx, deps.Events.ChallengePresented, true, req.UserID, "", nil, nil)
	}
	return renderStep(ctx, deps.Render, form, status, flowError)
}

func normalizeAuthenticateDeps(deps *AuthenticateDeps) {
	normalizeCredentialDeps(&deps.Credentials)
	if deps.DefaultMaxAge <= 0 {
		deps.DefaultMaxAge = 120 * time.Second
	}
	if deps.Translate == nil {
		deps.Translate = func(_ string, id string) string { return id }
	}
	if deps.RealmBasePathFn == nil {
		deps.RealmBasePathFn = RealmBasePath
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = deps.Credentials.Errors.EngineNotReady
	}
	if deps.Errors.UserRequired == nil {
		deps.Errors.UserRequired = deps.Credentials.Errors.UserRequired
	}
	if deps.Errors.Configuration == nil {
		deps.Errors.Configuration = errors.New("configuration error")
	}
	if deps.Errors.Marker == nil {
		deps.Errors.Marker = errors.New("marker issuance failed")
	}
}
