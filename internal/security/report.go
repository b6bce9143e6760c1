package security

import (
	"strings"
	"time"
)

// StrategyPlain stores answers verbatim.
const StrategyPlain = "plain"

type Report struct {
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
}

type ReportInput struct {
	AnswerStrategy          string
	SigningKey              []byte
	SecureCookie            bool
	DefaultMaxAge           time.Duration
	SkipChallengeWithMarker bool
	AllowCustomQuestion     bool
	DeriveDeviceName        bool
	DeviceStoreWired        bool
	AuditEnabled            bool
	MetricsEnabled          bool
	LatencyHistograms       bool
}

// BuildReport derives the effective posture. An empty strategy reports as
// plain; histograms only count when metrics are on.
func BuildReport(input ReportInput) Report {
	strategy := strings.ToLower(strings.TrimSpace(input.AnswerStrategy))
	if strategy == "" {
		strategy = StrategyPlain
	}

	return Report{
		AnswerStrategy:       strategy,
		AnswersHashed:        strategy != StrategyPlain,
		MarkerSigned:         len(input.SigningKey) > 0,
		MarkerSecureCookie:   input.SecureCookie,
		MarkerDefaultMaxAge:  input.DefaultMaxAge,
		MarkerSkipsChallenge: input.SkipChallengeWithMarker,
		CustomQuestions:      input.AllowCustomQuestion,
		DeviceNameDerivation: input.DeriveDeviceName,
		DeviceBindingWired:   input.DeviceStoreWired,
		AuditEnabled:         input.AuditEnabled,
		MetricsEnabled:       input.MetricsEnabled,
		LatencyHistogramsOn:  input.MetricsEnabled && input.LatencyHistograms,
	}
}
