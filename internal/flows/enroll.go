package flows

import (
	"context"
	"strings"
	"unicode/utf8"
)

const FlowErrorAnswerRequired = "invalid_user_input"

type EnrollDeps struct {
	TemplateID          string
	DefaultQuestion     string
	AllowCustomQuestion bool
	Messages            StepMessages
	Credentials         CredentialDeps
	Render              func(context.Context, Form) (any, error)
	Translate           func(locale, messageID string) string
}

// RunEnrollChallenge presents the enrollment form.
func RunEnrollChallenge(ctx context.Context, req StepRequest, deps EnrollDeps) (StepResult, error) {
	normalizeEnrollDeps(&deps)

	if deps.Render == nil {
		return StepResult{}, deps.Credentials.Errors.EngineNotReady
	}
	if req.UserID == "" {
		return StepResult{}, deps.Credentials.Errors.UserRequired
	}

	return renderStep(ctx, deps.Render, enrollForm(req, "", deps), StepChallenge, "")
}

// RunEnrollAction persists the submitted answer under the fixed prompt, or the
// caller's own question when custom questions are allowed. An absent answer
// field, or text that is not valid UTF-8, re-presents the form; an empty answer
// is stored as given.
func RunEnrollAction(ctx context.Context, req StepRequest, deps EnrollDeps) (StepResult, error) {
	normalizeEnrollDeps(&deps)

	if deps.Render == nil {
		return StepResult{}, deps.Credentials.Errors.EngineNotReady
	}
	if req.UserID == "" {
		return StepResult{}, deps.Credentials.Errors.UserRequired
	}

	if !req.Form.Has(FieldAnswer) {
		msg := deps.Translate(req.Locale, deps.Messages.AnswerRequired)
		return renderStep(ctx, deps.Render, enrollForm(req, msg, deps), StepFailureChallenge, FlowErrorAnswerRequired)
	}

	question := resolveQuestion(req, deps)
	if !utf8.ValidString(question) || !utf8.ValidString(req.Form.Get(FieldAnswer)) {
		msg := deps.Translate(req.Locale, deps.Messages.AnswerRequired)
		return renderStep(ctx, deps.Render, enrollForm(req, msg, deps), StepFailureChallenge, FlowErrorAnswerRequired)
	}
	if _, err := RunCreateCredential(ctx, req.UserID, question, req.Form.Get(FieldAnswer), deps.Credentials); err != nil {
		return StepResult{}, err
	}
	return StepResult{Status: StepSuccess}, nil
}

func enrollForm(req StepRequest, errMsg string, deps EnrollDeps) Form {
	return Form{
		TemplateID: deps.TemplateID,
		Error:      errMsg,
		Locale:     req.Locale,
		Question:   defaultQuestion(req, deps),
	}
}

func resolveQuestion(req StepRequest, deps EnrollDeps) string {
	if deps.AllowCustomQuestion {
		if q := strings.TrimSpace(req.Form.Get(FieldQuestion)); q != "" {
			return q
		}
	}
	return defaultQuestion(req, deps)
}

func defaultQuestion(req StepRequest, deps EnrollDeps) string {
	if deps.DefaultQuestion != "" {
		return deps.DefaultQuestion
	}
	return deps.Translate(req.Locale, deps.Messages.DefaultQuestion)
}

func normalizeEnrollDeps(deps *EnrollDeps) {
	normalizeCredentialDeps(&deps.Credentials)
	if deps.Translate == nil {
		deps.Translate = func(_ string, id string) string { return id }
	}
}
