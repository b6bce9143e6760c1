package goSecretQ

import (
	internalmetrics "github.com/MrEthical07/goSecretQ/internal/metrics"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricChallengePresented is an exported constant or variable used by the secret question engine.
	MetricChallengePresented = internalmetrics.MetricChallengePresented
	// MetricAnswerSuccess is an exported constant or variable used by the secret question engine.
	MetricAnswerSuccess = internalmetrics.MetricAnswerSuccess
	// MetricAnswerFailure is an exported constant or variable used by the secret question engine.
	MetricAnswerFailure = internalmetrics.MetricAnswerFailure
	// MetricMalformedCredential is an exported constant or variable used by the secret question engine.
	MetricMalformedCredential = internalmetrics.MetricMalformedCredential
	// MetricBypassIssued is an exported constant or variable used by the secret question engine.
	MetricBypassIssued = internalmetrics.MetricBypassIssued
	// MetricBypassHonored is an exported constant or variable used by the secret question engine.
	MetricBypassHonored = internalmetrics.MetricBypassHonored
	// MetricCredentialCreated is an exported constant or variable used by the secret question engine.
	MetricCredentialCreated = internalmetrics.MetricCredentialCreated
	// MetricCredentialDeleted is an exported constant or variable used by the secret question engine.
	MetricCredentialDeleted = internalmetrics.MetricCredentialDeleted
	// MetricDeviceBound is an exported constant or variable used by the secret question engine.
	MetricDeviceBound = internalmetrics.MetricDeviceBound
	// MetricDeviceBindingFailed is an exported constant or variable used by the secret question engine.
	MetricDeviceBindingFailed = internalmetrics.MetricDeviceBindingFailed
	// MetricValidateLatency is an exported constant or variable used by the secret question engine.
	MetricValidateLatency = internalmetrics.MetricValidateLatency

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds the engine's lock-free counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of counters and histograms.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(cfg.Enabled, cfg.EnableLatencyHistograms)
}
