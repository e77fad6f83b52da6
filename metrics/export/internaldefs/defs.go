package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful login attempts."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Failed login attempts."},
	{ID: tokenauth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Login attempts rejected by the throttle."},
	{ID: tokenauth.MetricClientRejected, Name: "tokenauth_client_rejected_total", Help: "Requests rejected during client authentication."},
	{ID: tokenauth.MetricRefreshSuccess, Name: "tokenauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenauth.MetricRefreshFailure, Name: "tokenauth_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: tokenauth.MetricRefreshRaceLost, Name: "tokenauth_refresh_race_lost_total", Help: "Refresh rotations that lost the conditional revoke."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Single-token logout operations."},
	{ID: tokenauth.MetricLogoutAll, Name: "tokenauth_logout_all_total", Help: "Principal-wide revocations."},
	{ID: tokenauth.MetricVerifySuccess, Name: "tokenauth_verify_success_total", Help: "Access tokens accepted by Verify."},
	{ID: tokenauth.MetricVerifyFailure, Name: "tokenauth_verify_failure_total", Help: "Access tokens rejected by Verify."},
	{ID: tokenauth.MetricRegisterSuccess, Name: "tokenauth_register_success_total", Help: "Principals created by Register."},
	{ID: tokenauth.MetricRegisterDuplicate, Name: "tokenauth_register_duplicate_total", Help: "Register attempts rejected for a taken email."},
	{ID: tokenauth.MetricPersistenceUnavailable, Name: "tokenauth_persistence_unavailable_total", Help: "Operations failed by an unavailable store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricVerifyLatency, Name: "tokenauth_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine's
// millisecond buckets.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the +Inf bucket, as floats.
var HistogramBoundValues = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// NormalizeBuckets copies raw into a fixed-size array, zero filling missing buckets.
func NormalizeBuckets(raw []uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals. The last element is
// the sample count.
func CumulativeBuckets(raw [tokenauth.HistogramBucketCount]uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
