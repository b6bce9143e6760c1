package flows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Step outcomes, mirrored by the public StepStatus.
const (
	StepChallenge = iota
	StepFailureChallenge
	StepSuccess
)

// Submitted form fields.
const (
	FieldAnswer       = "secret_answer"
	FieldCredentialID = "credentialId"
	FieldQuestion     = "secret_question"
)

// ConfigMaxAge is the per-authenticator option overriding the marker max age.
const ConfigMaxAge = "cookie.max.age"

// Notes exposes session-scoped client notes.
type Notes interface {
	ClientNote(name string) string
}

type StepRequest struct {
	UserID              string
	Realm               string
	BaseURI             string
	Locale              string
	Form                url.Values
	Cookies             []*http.Cookie
	Notes               Notes
	AuthenticatorConfig map[string]string
}

type CredentialOption struct {
	ID       string
	Question string
	Label    string
}

type Form struct {
	TemplateID string
	Error      string
	Locale     string
	Question   string
	Options    []CredentialOption
}

type StepResult struct {
	Status    int
	Response  any
	Marker    *http.Cookie
	FlowError string
}

type StepMessages struct {
	InvalidAnswer   string
	AnswerRequired  string
	DefaultQuestion string
}

func noteValue(notes Notes, name string) string {
	if notes == nil {
		return ""
	}
	return notes.ClientNote(name)
}

// ResolveMaxAge reads the marker max age from the authenticator options.
// An absent or blank option selects fallback; anything that is not a positive
// integer number of seconds is a configuration error.
func ResolveMaxAge(options map[string]string, fallback time.Duration, configErr error) (time.Duration, error) {
	raw, ok := options[ConfigMaxAge]
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", configErr, ConfigMaxAge, raw, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: %s must be > 0, got %d", configErr, ConfigMaxAge, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// RealmBasePath returns the escaped path "<baseURI path>/realms/<realm>".
func RealmBasePath(baseURI, realm string) (string, error) {
	if realm == "" {
		return "", errors.New("realm required")
	}
	if baseURI == "" {
		baseURI = "/"
	}
	joined, err := url.JoinPath(baseURI, "realms", realm)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(joined)
	if err != nil {
		return "", err
	}
	if u.EscapedPath() == "" {
		return "/", nil
	}
	return u.EscapedPath(), nil
}

func renderStep(ctx context.Context, render func(context.Context, Form) (any, error), form Form, status int, flowError string) (StepResult, error) {
	resp, err := render(ctx, form)
	if err != nil {
		return StepResult{}, fmt.Errorf("render %s: %w", form.TemplateID, err)
	}
	return StepResult{Status: status, Response: resp, FlowError: flowError}, nil
}
