package internaldefs

import (
	goSecretQ "github.com/MrEthical07/goSecretQ"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSecretQ.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSecretQ.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSecretQ.MetricChallengePresented, Name: "gosecretq_challenge_presented_total", Help: "Challenge forms rendered."},
	{ID: goSecretQ.MetricAnswerSuccess, Name: "gosecretq_answer_success_total", Help: "Correct secret question answers."},
	{ID: goSecretQ.MetricAnswerFailure, Name: "gosecretq_answer_failure_total", Help: "Rejected secret question answers."},
	{ID: goSecretQ.MetricMalformedCredential, Name: "gosecretq_malformed_credential_total", Help: "Stored credentials that failed to decode."},
	{ID: goSecretQ.MetricBypassIssued, Name: "gosecretq_bypass_issued_total", Help: "Answered markers issued."},
	{ID: goSecretQ.MetricBypassHonored, Name: "gosecretq_bypass_honored_total", Help: "Challenges skipped because of a live marker."},
	{ID: goSecretQ.MetricCredentialCreated, Name: "gosecretq_credential_created_total", Help: "Secret question credentials created."},
	{ID: goSecretQ.MetricCredentialDeleted, Name: "gosecretq_credential_deleted_total", Help: "Secret question credentials deleted."},
	{ID: goSecretQ.MetricDeviceBound, Name: "gosecretq_device_bound_total", Help: "Devices bound after a correct answer."},
	{ID: goSecretQ.MetricDeviceBindingFailed, Name: "gosecretq_device_binding_failed_total", Help: "Device bindings that failed after a correct answer."},
}

// HistogramDefs lists every engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSecretQ.MetricValidateLatency, Name: "gosecretq_validate_latency_seconds", Help: "Answer validation latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
