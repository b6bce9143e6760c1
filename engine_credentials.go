package goSecretQ

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSecretQ/internal/codec"
	"github.com/MrEthical07/goSecretQ/internal/flows"
)

// IsConfigured reports whether userID has at least one secret question.
//
// IsConfigured may return an error when the store is unreachable; such failures are never reported as false.
// IsConfigured does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IsConfigured(ctx context.Context, userID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	return flows.RunIsConfigured(ctx, userID, e.credentialFlowDeps())
}

// DefaultCredential returns the credential validated when no selector is
// submitted: the oldest, ties broken by ID.
//
// DefaultCredential returns ErrCredentialNotFound when the user has none.
func (e *Engine) DefaultCredential(ctx context.Context, userID string) (CredentialRecord, error) {
	if e == nil {
		return CredentialRecord{}, ErrEngineNotReady
	}
	rec, err := flows.RunDefaultCredential(ctx, userID, e.credentialFlowDeps())
	if err != nil {
		return CredentialRecord{}, err
	}
	return fromFlowCredential(rec), nil
}

// Credentials lists userID's secret questions in default order.
func (e *Engine) Credentials(ctx context.Context, userID string) ([]CredentialRecord, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	recs, err := flows.RunListCredentials(ctx, userID, e.credentialFlowDeps())
	if err != nil {
		return nil, err
	}
	out := make([]CredentialRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromFlowCredential(rec))
	}
	return out, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate checks answer against the credential named by credentialID, or the
// default credential when credentialID is empty. A wrong answer, an unknown
// selector, or a credential owned by another user or of another type yields
// (false, nil). Undecodable stored data yields (false, ErrMalformedCredentialData);
// store failures yield (false, ErrStoreUnavailable).
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, userID, credentialID, answer string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	return flows.RunValidateAnswer(ctx, userID, credentialID, answer, e.credentialFlowDeps())
}

// CreateCredential stores a new secret question for userID.
//
// CreateCredential returns ErrInvalidAnswer for text that is not valid UTF-8,
// and an error when the comparer cannot prepare the answer or the store fails.
func (e *Engine) CreateCredential(ctx context.Context, userID, question, answer string) (CredentialRecord, error) {
	if e == nil {
		return CredentialRecord{}, ErrEngineNotReady
	}
	rec, err := flows.RunCreateCredential(ctx, userID, question, answer, e.credentialFlowDeps())
	if err != nil {
		return CredentialRecord{}, err
	}
	return fromFlowCredential(rec), nil
}

// DeleteCredential removes credentialID if it is a secret question owned by
// userID. It reports whether a record was removed.
func (e *Engine) DeleteCredential(ctx context.Context, userID, credentialID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	return flows.RunDeleteCredential(ctx, userID, credentialID, e.credentialFlowDeps())
}

// Question decodes the question text of rec.
//
// Question returns ErrMalformedCredentialData when the public payload does not decode.
func (e *Engine) Question(rec CredentialRecord) (string, error) {
	q, err := codec.DecodeQuestion(rec.PublicData)
	if err != nil {
		if e != nil {
			e.logMalformed(rec.ID, err)
			e.metricInc(MetricMalformedCredential)
		}
		return "", wrapMalformed(rec.ID, err)
	}
	return q, nil
}

// QuestionFor returns the question text of the selected credential, or of
// the default credential when credentialID is empty.
func (e *Engine) QuestionFor(ctx context.Context, userID, credentialID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return flows.RunQuestion(ctx, userID, credentialID, e.credentialFlowDeps())
}

func wrapMalformed(credentialID string, err error) error {
	return fmt.Errorf("%w: credential %s: %v", ErrMalformedCredentialData, credentialID, err)
}
