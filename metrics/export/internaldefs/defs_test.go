package internaldefs

import (
	"strings"
	"testing"

	internalmetrics "github.com/MrEthical07/goSecretQ/internal/metrics"
)

func TestDefsCoverEveryMetricID(t *testing.T) {
	seen := make(map[internalmetrics.MetricID]string)
	for _, def := range CounterDefs {
		if prev, dup := seen[def.ID]; dup {
			t.Fatalf("metric id %d defined twice (%s, %s)", def.ID, prev, def.Name)
		}
		if !strings.HasPrefix(def.Name, "gosecretq_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q does not follow naming convention", def.Name)
		}
		seen[def.ID] = def.Name
	}
	for _, def := range HistogramDefs {
		if _, dup := seen[def.ID]; dup {
			t.Fatalf("histogram id %d also defined as counter", def.ID)
		}
		seen[def.ID] = def.Name
	}
	if len(seen) != int(internalmetrics.MetricIDCount) {
		t.Fatalf("expected %d metric definitions, got %d", internalmetrics.MetricIDCount, len(seen))
	}
}

func TestBucketHelpers(t *testing.T) {
	if len(HistogramBounds) != internalmetrics.HistBucketCount || len(HistogramBoundSuffix) != internalmetrics.HistBucketCount {
		t.Fatal("bucket bound tables must match the engine bucket count")
	}

	norm := NormalizeBuckets([]uint64{1, 2, 3})
	if norm != [8]uint64{1, 2, 3, 0, 0, 0, 0, 0} {
		t.Fatalf("unexpected normalized buckets %v", norm)
	}
	cum := CumulativeBuckets(norm)
	if cum[0] != 1 || cum[2] != 6 || cum[7] != 6 {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}
}
