package goSecretQ

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSecretQ/answer"
	"github.com/MrEthical07/goSecretQ/marker"
)

// Config defines a public type used by goSecretQ APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Bypass        BypassConfig
	Enrollment    EnrollmentConfig
	Answer        AnswerConfig
	DeviceBinding DeviceBindingConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Locale        LocaleConfig
	Store         StoreConfig
}

/*
====================================
BYPASS MARKER CONFIG
====================================
*/

// BypassConfig defines a public type used by goSecretQ APIs.
//
// BypassConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BypassConfig struct {
	CookieName string
	// DefaultMaxAge applies when the authenticator option cookie.max.age is absent.
	DefaultMaxAge time.Duration
	Secure        bool
	// SkipChallengeWithMarker lets a live marker skip the challenge. Off by default.
	SkipChallengeWithMarker bool
	// SigningKey switches the marker value from the literal "true" to an HS256 token.
	SigningKey []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
ENROLLMENT CONFIG
====================================
*/

// EnrollmentConfig defines a public type used by goSecretQ APIs.
//
// EnrollmentConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EnrollmentConfig struct {
	// DefaultQuestion is the fixed prompt. Empty selects the localized default.
	DefaultQuestion     string
	AllowCustomQuestion bool
}

/*
====================================
ANSWER CONFIG
====================================
*/

// AnswerConfig defines a public type used by goSecretQ APIs.
//
// AnswerConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AnswerConfig struct {
	Strategy    string // "plain" (default) or "argon2"
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
DEVICE BINDING CONFIG
====================================
*/

// DeviceBindingConfig defines a public type used by goSecretQ APIs.
//
// DeviceBindingConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeviceBindingConfig struct {
	// DeriveName names the device from its fingerprint when the session
	// carries no deviceName note.
	DeriveName bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goSecretQ APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goSecretQ APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
LOCALE CONFIG
====================================
*/

// LocaleConfig defines a public type used by goSecretQ APIs.
//
// LocaleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LocaleConfig struct {
	Default string
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig carries key prefixes for the bundled Redis components. The
// engine itself never reads it.
type StoreConfig struct {
	CredentialPrefix string
	DevicePrefix     string
	SessionPrefix    string
	SessionTTL       time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := answer.DefaultConfig()
	return Config{
		Bypass: BypassConfig{
			CookieName:              marker.DefaultCookieName,
			DefaultMaxAge:           marker.DefaultMaxAge,
			Secure:                  false,
			SkipChallengeWithMarker: false,
		},
		Enrollment: EnrollmentConfig{
			DefaultQuestion:     "",
			AllowCustomQuestion: false,
		},
		Answer: AnswerConfig{
			Strategy:    answer.StrategyPlain,
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
		},
		DeviceBinding: DeviceBindingConfig{
			DeriveName: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Locale: LocaleConfig{
			Default: "en",
		},
		Store: StoreConfig{
			CredentialPrefix: "sq:cred",
			DevicePrefix:     "sq:dev",
			SessionPrefix:    "sq:as",
			SessionTTL:       30 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Bypass.SigningKey = cloneBytes(cfg.Bypass.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation fails.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Bypass
	if c.Bypass.DefaultMaxAge <= 0 {
		return errors.New("Bypass DefaultMaxAge must be > 0")
	}
	if c.Bypass.DefaultMaxAge%time.Second != 0 {
		return errors.New("Bypass DefaultMaxAge must be a whole number of seconds")
	}
	if c.Bypass.CookieName == "" {
		return errors.New("Bypass CookieName must not be empty")
	}
	if len(c.Bypass.SigningKey) > 0 && len(c.Bypass.SigningKey) < 32 {
		return errors.New("Bypass SigningKey must be >= 32 bytes")
	}
	if c.Bypass.Leeway < 0 || c.Bypass.Leeway > 2*time.Minute {
		return errors.New("Bypass Leeway must be between 0 and 2m")
	}

	// Answer
	switch strings.ToLower(c.Answer.Strategy) {
	case answer.StrategyPlain:
	case answer.StrategyArgon2:
		if c.Answer.Memory == 0 || c.Answer.Time == 0 || c.Answer.Parallelism == 0 {
			return errors.New("Answer argon2 parameters must be > 0")
		}
		if c.Answer.SaltLength < 16 {
			return errors.New("Answer SaltLength must be >= 16")
		}
		if c.Answer.KeyLength < 16 {
			return errors.New("Answer KeyLength must be >= 16")
		}
	default:
		return errors.New("unsupported Answer Strategy")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Locale
	if c.Locale.Default == "" {
		return errors.New("Locale Default must not be empty")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but weaken the step.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	if c.Bypass.SkipChallengeWithMarker && len(c.Bypass.SigningKey) == 0 {
		ws = append(ws, LintWarning{
			Code:    "marker_skip_unsigned",
			Message: "SkipChallengeWithMarker honors a forgeable literal cookie; set Bypass.SigningKey",
		})
	}
	if !c.Bypass.Secure {
		ws = append(ws, LintWarning{
			Code:    "marker_cookie_insecure",
			Message: "bypass marker cookie is sent over plain HTTP",
		})
	}
	if c.Bypass.DefaultMaxAge > 15*time.Minute {
		ws = append(ws, LintWarning{
			Code:    "marker_max_age_long",
			Message: "bypass marker lives longer than 15m",
		})
	}
	if strings.ToLower(c.Answer.Strategy) == answer.StrategyPlain {
		ws = append(ws, LintWarning{
			Code:    "answer_plaintext",
			Message: "answers are stored verbatim; consider Answer.Strategy=argon2",
		})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:    "audit_disabled",
			Message: "audit events are not recorded",
		})
	}
	return ws
}
