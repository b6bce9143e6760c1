// Package metrics stores goSecretQ step counters and the answer validation
// latency histogram.
//
// Each counter lives in its own padded slot and is bumped with an atomic add,
// so concurrent steps never contend on a lock. The histogram has 8 fixed
// buckets from 5ms to +Inf. Snapshot copies everything for the exporters
// under metrics/export; this package never exports by itself.
package metrics
