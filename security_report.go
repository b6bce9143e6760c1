package goSecretQ

import (
	"time"

	"github.com/MrEthical07/goSecretQ/internal/security"
)

// SecurityReport summarizes the engine's effective posture.
type SecurityReport struct {
	AnswerStrategy       string
	AnswersHashed        bool
	MarkerSigned         bool
	MarkerSecureCookie   bool
	MarkerDefaultMaxAge  time.Duration
	MarkerSkipsChallenge bool
	CustomQuestions      bool
	DeviceNameDerivation bool
	DeviceBindingWired   bool
	AuditEnabled         bool
	MetricsEnabled       bool
	LatencyHistogramsOn  bool
	LintWarningCodes     []string
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	r := security.BuildReport(security.ReportInput{
		AnswerStrategy:          e.config.Answer.Strategy,
		SigningKey:              e.config.Bypass.SigningKey,
		SecureCookie:            e.config.Bypass.Secure,
		DefaultMaxAge:           e.config.Bypass.DefaultMaxAge,
		SkipChallengeWithMarker: e.config.Bypass.SkipChallengeWithMarker,
		AllowCustomQuestion:     e.config.Enrollment.AllowCustomQuestion,
		DeriveDeviceName:        e.config.DeviceBinding.DeriveName,
		DeviceStoreWired:        e.devices != nil,
		AuditEnabled:            e.config.Audit.Enabled,
		MetricsEnabled:          e.config.Metrics.Enabled,
		LatencyHistograms:       e.config.Metrics.EnableLatencyHistograms,
	})

	return SecurityReport{
		AnswerStrategy:       r.AnswerStrategy,
		AnswersHashed:        r.AnswersHashed,
		MarkerSigned:         r.MarkerSigned,
		MarkerSecureCookie:   r.MarkerSecureCookie,
		MarkerDefaultMaxAge:  r.MarkerDefaultMaxAge,
		MarkerSkipsChallenge: r.MarkerSkipsChallenge,
		CustomQuestions:      r.CustomQuestions,
		DeviceNameDerivation: r.DeviceNameDerivation,
		DeviceBindingWired:   r.DeviceBindingWired,
		AuditEnabled:         r.AuditEnabled,
		MetricsEnabled:       r.MetricsEnabled,
		LatencyHistogramsOn:  r.LatencyHistogramsOn,
		LintWarningCodes:     e.config.Lint().Codes(),
	}
}
