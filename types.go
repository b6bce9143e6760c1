package goSecretQ

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	internalaudit "github.com/MrEthical07/goSecretQ/internal/audit"
	"github.com/MrEthical07/goSecretQ/internal/flows"
)

const (
	// CredentialType is the credential type tag stored on every secret question record.
	CredentialType = "SECRET_QUESTION"
	// ProviderID identifies the authentication step.
	ProviderID = "secret-question-authenticator"
	// CredentialProviderID identifies the credential validator.
	CredentialProviderID = "secret-question"
	// RequiredActionID identifies the enrollment step.
	RequiredActionID = "secret_question_config"
	// CredentialCategory is the credential category reported by [Engine.Metadata].
	CredentialCategory = "TWO_FACTOR"
	// HelpTextKey is the message key hosts use for the credential help text.
	HelpTextKey = "secret-question-text"
)

const (
	// TemplateSecretQuestion is the challenge form template.
	TemplateSecretQuestion = "secret-question"
	// TemplateSecretQuestionConfig is the enrollment form template.
	TemplateSecretQuestionConfig = "secret-question-config"
)

// Form field and authenticator option names.
const (
	FieldAnswer       = flows.FieldAnswer
	FieldCredentialID = flows.FieldCredentialID
	FieldQuestion     = flows.FieldQuestion
	ConfigMaxAge      = flows.ConfigMaxAge
)

// Session note names consulted by the device-binding branch.
const (
	NoteRegisteringDevice = flows.NoteRegisteringDevice
	NoteCPUID             = flows.NoteCPUID
	NoteVisitorID         = flows.NoteVisitorID
	NoteDeviceName        = flows.NoteDeviceName
)

// Flow error codes carried on [StepResult.FlowError].
const (
	FlowErrorInvalidCredentials = flows.FlowErrorInvalidCredentials
	FlowErrorInvalidUserInput   = flows.FlowErrorAnswerRequired
)

// CredentialRecord is one stored credential. PublicData holds the question
// payload and SecretData the answer payload.
type CredentialRecord struct {
	ID         string
	UserID     string
	Type       string
	UserLabel  string
	CreatedAt  time.Time
	PublicData []byte
	SecretData []byte
}

// CredentialStore persists credential records.
//
// GetByID must return an error matching [ErrCredentialNotFound] for an unknown
// id. Create assigns the record ID.
type CredentialStore interface {
	GetByID(ctx context.Context, id string) (CredentialRecord, error)
	ListByType(ctx context.Context, userID, credentialType string) ([]CredentialRecord, error)
	Create(ctx context.Context, userID string, rec CredentialRecord) (CredentialRecord, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// DeviceCredentialCreator registers a device for a user. Implementations
// return an error matching [ErrDeviceNameTaken] when the user already has a
// device with the same name.
type DeviceCredentialCreator interface {
	CreateDeviceCredential(ctx context.Context, userID, deviceName, cpuid, visitorID string) error
}

// CredentialOption is one selectable credential on the challenge form.
type CredentialOption struct {
	ID       string
	Question string
	Label    string
}

// Form is the view model handed to a [Renderer].
type Form struct {
	TemplateID string
	Error      string
	Locale     string
	Question   string
	Options    []CredentialOption
}

// Renderer turns a [Form] into a host response.
type Renderer interface {
	RenderForm(ctx context.Context, form Form) (any, error)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, form Form) (any, error)

// RenderForm calls f.
func (f RendererFunc) RenderForm(ctx context.Context, form Form) (any, error) {
	return f(ctx, form)
}

// SessionNotes exposes client notes of the authentication session.
type SessionNotes interface {
	ClientNote(name string) string
}

// MapNotes is a map-backed [SessionNotes].
type MapNotes map[string]string

// ClientNote returns the note value or "".
func (m MapNotes) ClientNote(name string) string {
	return m[name]
}

// StepStatus is the outcome of a step call.
type StepStatus int

const (
	// StepChallenge means a form was rendered for the user.
	StepChallenge StepStatus = StepStatus(flows.StepChallenge)
	// StepFailureChallenge means a form was re-rendered with an error.
	StepFailureChallenge StepStatus = StepStatus(flows.StepFailureChallenge)
	// StepSuccess means the step completed.
	StepSuccess StepStatus = StepStatus(flows.StepSuccess)
)

func (s StepStatus) String() string {
	switch s {
	case StepChallenge:
		return "challenge"
	case StepFailureChallenge:
		return "failure_challenge"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// StepRequest carries everything a step call needs from the host.
type StepRequest struct {
	UserID              string
	Realm               string
	BaseURI             string
	Locale              string
	Form                url.Values
	Cookies             []*http.Cookie
	Notes               SessionNotes
	AuthenticatorConfig map[string]string
}

// StepResult is the outcome of a step call. Marker is set only on a
// successful Action and must be attached to the response.
type StepResult struct {
	Status    StepStatus
	Response  any
	Marker    *http.Cookie
	FlowError string
}

// CredentialTypeMetadata describes the credential type to hosts.
type CredentialTypeMetadata struct {
	Type         string
	Category     string
	DisplayName  string
	HelpText     string
	CreateAction string
	Removeable   bool
}

// Requirement is how a host may place the authentication step in a flow.
type Requirement string

const (
	RequirementRequired    Requirement = "REQUIRED"
	RequirementAlternative Requirement = "ALTERNATIVE"
	RequirementDisabled    Requirement = "DISABLED"
)

// RequirementChoices lists the placements the step supports.
var RequirementChoices = []Requirement{
	RequirementRequired,
	RequirementAlternative,
	RequirementDisabled,
}

// ConfigProperty documents one per-authenticator option.
type ConfigProperty struct {
	Name         string
	Label        string
	HelpText     string
	DefaultValue string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
