// Package prometheus exposes goSecretQ engine metrics to Prometheus.
//
// [PrometheusExporter.Handler] renders counters and the validation latency
// histogram in text exposition format. [PrometheusExporter.Collector] serves
// the same snapshot through a client_golang registry. Counter names are
// prefixed gosecretq_ and end in _total.
//
// Nothing is registered globally; callers mount the handler or pick the
// registry.
package prometheus
