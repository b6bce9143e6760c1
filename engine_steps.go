package goSecretQ

import (
	"context"

	"github.com/MrEthical07/goSecretQ/internal/flows"
)

// Authenticate starts the authentication step and renders the challenge.
//
// With Config.Bypass.SkipChallengeWithMarker set and a live marker in
// req.Cookies, Authenticate returns StepSuccess without rendering.
// Authenticate may return an error when the store, renderer, or configuration fails.
func (e *Engine) Authenticate(ctx context.Context, req StepRequest) (StepResult, error) {
	if e == nil {
		return StepResult{}, ErrEngineNotReady
	}
	ctx = e.stepContext(ctx, req)
	res, err := flows.RunAuthenticate(ctx, toFlowStepRequest(req), e.flowDeps().Authenticate)
	if err != nil {
		return StepResult{}, err
	}
	return fromFlowStepResult(res), nil
}

// Action processes a submitted answer.
//
// A wrong answer yields StepFailureChallenge with FlowError "invalid_credentials"
// and a re-rendered form. A correct answer yields StepSuccess with the marker
// cookie; when the session notes flag a device registration, the device is
// bound first and any binding failure is returned as an error.
// Action returns malformed stored data, store failures, and invalid
// cookie.max.age values as errors. No marker is returned with an error.
func (e *Engine) Action(ctx context.Context, req StepRequest) (StepResult, error) {
	if e == nil {
		return StepResult{}, ErrEngineNotReady
	}
	ctx = e.stepContext(ctx, req)
	res, err := flows.RunAction(ctx, toFlowStepRequest(req), e.flowDeps().Authenticate)
	if err != nil {
		return StepResult{}, err
	}
	return fromFlowStepResult(res), nil
}

// EnrollChallenge renders the enrollment form.
func (e *Engine) EnrollChallenge(ctx context.Context, req StepRequest) (StepResult, error) {
	if e == nil {
		return StepResult{}, ErrEngineNotReady
	}
	ctx = e.stepContext(ctx, req)
	res, err := flows.RunEnrollChallenge(ctx, toFlowStepRequest(req), e.flowDeps().Enroll)
	if err != nil {
		return StepResult{}, err
	}
	return fromFlowStepResult(res), nil
}

// EnrollAction persists the submitted answer.
//
// An absent secret_answer field re-renders the form with StepFailureChallenge
// and FlowError "invalid_user_input". An empty answer is stored as given.
func (e *Engine) EnrollAction(ctx context.Context, req StepRequest) (StepResult, error) {
	if e == nil {
		return StepResult{}, ErrEngineNotReady
	}
	ctx = e.stepContext(ctx, req)
	res, err := flows.RunEnrollAction(ctx, toFlowStepRequest(req), e.flowDeps().Enroll)
	if err != nil {
		return StepResult{}, err
	}
	return fromFlowStepResult(res), nil
}
