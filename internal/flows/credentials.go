package flows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goSecretQ/internal/codec"
)

type Credential struct {
	ID         string
	UserID     string
	Type       string
	UserLabel  string
	CreatedAt  time.Time
	PublicData []byte
	SecretData []byte
}

type CredentialMetrics struct {
	AnswerSuccess       int
	AnswerFailure       int
	MalformedCredential int
	ValidateLatency     int
	CredentialCreated   int
	CredentialDeleted   int
}

type CredentialEvents struct {
	AnswerSuccess     string
	AnswerFailure     string
	Malformed         string
	CredentialCreated string
	CredentialDeleted string
}

type CredentialErrors struct {
	EngineNotReady   error
	UserRequired     error
	NotFound         error
	Malformed        error
	StoreUnavailable error
	InvalidAnswer    error
}

type CredentialDeps struct {
	CredentialType string

	GetByID    func(context.Context, string) (Credential, error)
	ListByType func(context.Context, string, string) ([]Credential, error)
	Create     func(context.Context, string, Credential) (Credential, error)
	DeleteByID func(context.Context, string) (bool, error)

	PrepareAnswer func(string) (string, error)
	MatchAnswer   func(stored, submitted string) (bool, error)

	Now          func() time.Time
	LogMalformed func(credentialID string, err error)

	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics CredentialMetrics
	Events  CredentialEvents
	Errors  CredentialErrors
}

// RunIsConfigured reports whether userID owns at least one credential of the
// configured type. Store failures are returned, never folded into false.
func RunIsConfigured(ctx context.Context, userID string, deps CredentialDeps) (bool, error) {
	normalizeCredentialDeps(&deps)

	if deps.ListByType == nil {
		return false, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return false, deps.Errors.UserRequired
	}

	records, err := deps.ListByType(ctx, userID, deps.CredentialType)
	if err != nil {
		return false, storeError(err, deps)
	}
	return len(records) > 0, nil
}

// RunListCredentials returns the user's credentials in default order: oldest
// first, ties broken by ID.
func RunListCredentials(ctx context.Context, userID string, deps CredentialDeps) ([]Credential, error) {
	normalizeCredentialDeps(&deps)

	if deps.ListByType == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return nil, deps.Errors.UserRequired
	}

	records, err := deps.ListByType(ctx, userID, deps.CredentialType)
	if err != nil {
		return nil, storeError(err, deps)
	}

	out := make([]Credential, 0, len(records))
	for _, rec := range records {
		if rec.UserID != userID || rec.Type != deps.CredentialType {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RunDefaultCredential returns the first credential in default order.
func RunDefaultCredential(ctx context.Context, userID string, deps CredentialDeps) (Credential, error) {
	normalizeCredentialDeps(&deps)

	records, err := RunListCredentials(ctx, userID, deps)
	if err != nil {
		return Credential{}, err
	}
	if len(records) == 0 {
		return Credential{}, deps.Errors.NotFound
	}
	return records[0], nil
}

// RunValidateAnswer checks submitted against the credential selected by
// credentialID, or the default credential when credentialID is empty.
//
// Unknown, foreign, or wrong-typed selectors and wrong answers yield (false, nil).
// Corrupt stored data yields (false, Errors.Malformed) after a distinct log line.
func RunValidateAnswer(ctx context.Context, userID, credentialID, submitted string, deps CredentialDeps) (bool, error) {
	normalizeCredentialDeps(&deps)

	if deps.GetByID == nil || deps.ListByType == nil || deps.MatchAnswer == nil {
		return false, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return false, deps.Errors.UserRequired
	}

	start := deps.Now()
	defer func() {
		deps.Observe(deps.Metrics.ValidateLatency, deps.Now().Sub(start))
	}()

	var (
		rec Credential
		err error
	)
	if credentialID == "" {
		rec, err = RunDefaultCredential(ctx, userID, deps)
	} else {
		rec, err = deps.GetByID(ctx, credentialID)
		if err != nil && !errors.Is(err, deps.Errors.NotFound) {
			err = storeError(err, deps)
		}
	}
	if err != nil {
		if errors.Is(err, deps.Errors.NotFound) {
			recordAnswerFailure(ctx, userID, credentialID, "credential_not_found", deps)
			return false, nil
		}
		return false, err
	}
	if rec.UserID != userID || rec.Type != deps.CredentialType {
		recordAnswerFailure(ctx, userID, credentialID, "credential_not_owned", deps)
		return false, nil
	}

	stored, err := codec.DecodeSecret(rec.SecretData)
	if err != nil {
		return false, malformed(ctx, userID, rec.ID, err, deps)
	}
	ok, err := deps.MatchAnswer(stored, submitted)
	if err != nil {
		return false, malformed(ctx, userID, rec.ID, err, deps)
	}
	if !ok {
		recordAnswerFailure(ctx, userID, rec.ID, "", deps)
		return false, nil
	}

	deps.MetricInc(deps.Metrics.AnswerSuccess)
	deps.EmitAudit(ctx, deps.Events.AnswerSuccess, true, userID, rec.ID, nil, nil)
	return true, nil
}

// RunCreateCredential encodes question and answer and persists a new record.
// CreatedAt is stamped here; ID comes from the store.
func RunCreateCredential(ctx context.Context, userID, question, answer string, deps CredentialDeps) (Credential, error) {
	normalizeCredentialDeps(&deps)

	if deps.Create == nil || deps.PrepareAnswer == nil {
		return Credential{}, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return Credential{}, deps.Errors.UserRequired
	}

	if !utf8.ValidString(question) || !utf8.ValidString(answer) {
		return Credential{}, fmt.Errorf("%w: question and answer must be valid UTF-8", deps.Errors.InvalidAnswer)
	}

	prepared, err := deps.PrepareAnswer(answer)
	if err != nil {
		return Credential{}, fmt.Errorf("prepare answer: %w", err)
	}
	publicData, err := codec.EncodeQuestion(question)
	if err != nil {
		return Credential{}, err
	}
	secretData, err := codec.EncodeSecret(prepared)
	if err != nil {
		return Credential{}, err
	}

	rec := Credential{
		UserID:     userID,
		Type:       deps.CredentialType,
		CreatedAt:  deps.Now().UTC(),
		PublicData: publicData,
		SecretData: secretData,
	}
	created, err := deps.Create(ctx, userID, rec)
	if err != nil {
		return Credential{}, storeError(err, deps)
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = rec.CreatedAt
	}

	deps.MetricInc(deps.Metrics.CredentialCreated)
	deps.EmitAudit(ctx, deps.Events.CredentialCreated, true, userID, created.ID, nil, nil)
	return created, nil
}

// RunDeleteCredential removes credentialID when it belongs to userID.
func RunDeleteCredential(ctx context.Context, userID, credentialID string, deps CredentialDeps) (bool, error) {
	normalizeCredentialDeps(&deps)

	if deps.GetByID == nil || deps.DeleteByID == nil {
		return false, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return false, deps.Errors.UserRequired
	}
	if credentialID == "" {
		return false, nil
	}

	rec, err := deps.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, deps.Errors.NotFound) {
			return false, nil
		}
		return false, storeError(err, deps)
	}
	if rec.UserID != userID || rec.Type != deps.CredentialType {
		return false, nil
	}

	deleted, err := deps.DeleteByID(ctx, credentialID)
	if err != nil {
		return false, storeError(err, deps)
	}
	if deleted {
		deps.MetricInc(deps.Metrics.CredentialDeleted)
		deps.EmitAudit(ctx, deps.Events.CredentialDeleted, true, userID, credentialID, nil, nil)
	}
	return deleted, nil
}

// RunQuestion returns the question text of the selected credential, or of the
// default credential when credentialID is empty. Unknown or foreign selectors
// yield Errors.NotFound.
func RunQuestion(ctx context.Context, userID, credentialID string, deps CredentialDeps) (string, error) {
	normalizeCredentialDeps(&deps)

	if deps.GetByID == nil || deps.ListByType == nil {
		return "", deps.Errors.EngineNotReady
	}
	if userID == "" {
		return "", deps.Errors.UserRequired
	}

	var (
		rec Credential
		err error
	)
	if credentialID == "" {
		rec, err = RunDefaultCredential(ctx, userID, deps)
	} else {
		rec, err = deps.GetByID(ctx, credentialID)
		if err != nil && !errors.Is(err, deps.Errors.NotFound) {
			err = storeError(err, deps)
		}
	}
	if err != nil {
		return "", err
	}
	if rec.UserID != userID || rec.Type != deps.CredentialType {
		return "", deps.Errors.NotFound
	}

	q, err := codec.DecodeQuestion(rec.PublicData)
	if err != nil {
		return "", malformed(ctx, userID, rec.ID, err, deps)
	}
	return q, nil
}

func recordAnswerFailure(ctx context.Context, userID, credentialID, reason string, deps CredentialDeps) {
	deps.MetricInc(deps.Metrics.AnswerFailure)
	deps.EmitAudit(ctx, deps.Events.AnswerFailure, false, userID, credentialID, deps.Errors.InvalidAnswer, func() map[string]string {
		if reason == "" {
			return nil
		}
		return map[string]string{"reason": reason}
	})
}

func malformed(ctx context.Context, userID, credentialID string, cause error, deps CredentialDeps) error {
	deps.LogMalformed(credentialID, cause)
	deps.MetricInc(deps.Metrics.MalformedCredential)
	deps.EmitAudit(ctx, deps.Events.Malformed, false, userID, credentialID, deps.Errors.Malformed, nil)
	return fmt.Errorf("%w: credential %s: %v", deps.Errors.Malformed, credentialID, cause)
}

func storeError(err error, deps CredentialDeps) error {
	if errors.Is(err, deps.Errors.StoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
}

func normalizeCredentialDeps(deps *CredentialDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LogMalformed == nil {
		deps.LogMalformed = func(string, error) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Observe == nil {
		deps.Observe = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not ready")
	}
	if deps.Errors.UserRequired == nil {
		deps.Errors.UserRequired = errors.New("user required")
	}
	if deps.Errors.NotFound == nil {
		deps.Errors.NotFound = errors.New("credential not found")
	}
	if deps.Errors.Malformed == nil {
		deps.Errors.Malformed = errors.New("malformed credential data")
	}
	if deps.Errors.StoreUnavailable == nil {
		deps.Errors.StoreUnavailable = errors.New("credential store unavailable")
	}
	if deps.Errors.InvalidAnswer == nil {
		deps.Errors.InvalidAnswer = errors.New("invalid answer")
	}
}
