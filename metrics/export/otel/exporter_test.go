package otel

import (
	"context"
	"sync"
	"testing"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goSecretQ.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goSecretQ.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goSecretQ.MetricsSnapshot{
		Counters:   make(map[goSecretQ.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goSecretQ.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosecretq-test")

	src := &fakeSource{
		snapshot: goSecretQ.MetricsSnapshot{
			Counters: map[goSecretQ.MetricID]uint64{
				goSecretQ.MetricAnswerSuccess: 3,
			},
			Histograms: map[goSecretQ.MetricID][]uint64{
				goSecretQ.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosecretq-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosecretq-test")

	src := &fakeSource{
		snapshot: goSecretQ.MetricsSnapshot{
			Counters: map[goSecretQ.MetricID]uint64{
				goSecretQ.MetricAnswerSuccess: 1,
			},
			Histograms: map[goSecretQ.MetricID][]uint64{
				goSecretQ.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goSecretQ.MetricAnswerSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func TestExporterObservesCounterValues(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosecretq-test")

	src := &fakeSource{
		snapshot: goSecretQ.MetricsSnapshot{
			Counters: map[goSecretQ.MetricID]uint64{
				goSecretQ.MetricAnswerFailure: 5,
			},
			Histograms: map[goSecretQ.MetricID][]uint64{},
		},
		dropped: 4,
	}
	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				values[m.Name] = sum.DataPoints[0].Value
			}
		}
	}
	if values["gosecretq_answer_failure_total"] != 5 {
		t.Fatalf("expected answer failure 5, got %d", values["gosecretq_answer_failure_total"])
	}
	if values["gosecretq_audit_dropped_total"] != 4 {
		t.Fatalf("expected audit dropped 4, got %d", values["gosecretq_audit_dropped_total"])
	}
}

func TestExporterAttachesAttributes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("gosecretq-test")

	src := &fakeSource{
		snapshot: goSecretQ.MetricsSnapshot{
			Counters:   map[goSecretQ.MetricID]uint64{goSecretQ.MetricAnswerSuccess: 2},
			Histograms: map[goSecretQ.MetricID][]uint64{},
		},
	}
	exp, err := NewOTelExporterFromSource(meter, src, WithAttributes(attribute.String("deployment", "eu-1")))
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "gosecretq_answer_success_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("unexpected data for %s: %#v", m.Name, m.Data)
			}
			v, ok := sum.DataPoints[0].Attributes.Value("deployment")
			if !ok || v.AsString() != "eu-1" {
				t.Fatalf("expected deployment attribute, got %v", sum.DataPoints[0].Attributes)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("answer success counter not collected")
	}
}
