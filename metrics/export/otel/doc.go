// Package otel binds goSecretQ engine metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per latency bucket. A single callback reads
// the engine snapshot on each collection cycle; [WithAttributes] tags every
// observation. Callers own the MeterProvider.
package otel
