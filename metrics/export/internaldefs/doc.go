// Package internaldefs holds the metric names, help strings, and bucket
// bounds shared by the Prometheus and OTel exporters.
//
// Both exporters read from these tables, so a rename here changes every
// exporter at once.
package internaldefs
