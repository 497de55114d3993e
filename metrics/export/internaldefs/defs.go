package internaldefs

import (
	"github.com/starshipcosmos/authstore"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authstore.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authstore.MetricID
	Name string
	Help string
}

// NamespaceLabel is the label carrying a store's namespace.
const NamespaceLabel = "namespace"

// AuditDroppedName is the counter of audit events lost to a full buffer.
const AuditDroppedName = "authstore_audit_dropped_total"

// CounterDefs lists every exported counter in export order.
var CounterDefs = []CounterDef{
	{ID: authstore.MetricSignInSuccess, Name: "authstore_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: authstore.MetricSignInFailure, Name: "authstore_sign_in_failure_total", Help: "Sign-ins rejected by the authenticator."},
	{ID: authstore.MetricSignInRejected, Name: "authstore_sign_in_invalid_total", Help: "Sign-ins refused for missing credentials."},
	{ID: authstore.MetricSignInPending, Name: "authstore_operation_pending_total", Help: "Calls refused because another operation was in flight."},
	{ID: authstore.MetricSignOutSuccess, Name: "authstore_sign_out_success_total", Help: "Successful sign-outs."},
	{ID: authstore.MetricSignOutFailure, Name: "authstore_sign_out_failure_total", Help: "Sign-outs that kept the session because the record could not be removed."},
	{ID: authstore.MetricRehydrateRestored, Name: "authstore_rehydrate_restored_total", Help: "Startups that restored a persisted session."},
	{ID: authstore.MetricRehydrateEmpty, Name: "authstore_rehydrate_empty_total", Help: "Startups without a usable persisted session."},
	{ID: authstore.MetricRehydrateCorrupt, Name: "authstore_rehydrate_corrupt_total", Help: "Persisted sessions discarded as corrupt."},
	{ID: authstore.MetricStorageWriteFailure, Name: "authstore_storage_write_failure_total", Help: "Session records that could not be persisted."},
	{ID: authstore.MetricStorageReadFailure, Name: "authstore_storage_read_failure_total", Help: "Persisted session reads that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authstore.MetricSignInLatency, Name: "authstore_sign_in_latency_seconds", Help: "Sign-in latency histogram."},
}

// HistogramBounds are the upper bounds in seconds, matching the store buckets.
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

// HistogramBoundSuffix holds instrument-name-safe forms of HistogramBounds.
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

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
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
