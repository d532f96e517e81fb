package internaldefs

import (
	authsession "github.com/wheelrent/authsession"
)

// CounterDef maps a MetricID onto its exported name and help text.
type CounterDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram MetricID onto its exported name and help text.
type HistogramDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// CounterDefs enumerates every exported counter. Both exporters iterate this
// list so the two surfaces stay in lockstep.
var CounterDefs = []CounterDef{
	{ID: authsession.MetricLoginSuccess, Name: "authsession_login_success_total", Help: "Successful password sign-ins."},
	{ID: authsession.MetricLoginFailure, Name: "authsession_login_failure_total", Help: "Failed password sign-ins."},
	{ID: authsession.MetricGoogleSignInSuccess, Name: "authsession_google_sign_in_success_total", Help: "Successful federated sign-ins."},
	{ID: authsession.MetricGoogleSignInFailure, Name: "authsession_google_sign_in_failure_total", Help: "Failed federated sign-ins."},
	{ID: authsession.MetricRegisterSuccess, Name: "authsession_register_success_total", Help: "Completed registrations."},
	{ID: authsession.MetricRegisterFailure, Name: "authsession_register_failure_total", Help: "Failed registrations."},
	{ID: authsession.MetricRefreshSuccess, Name: "authsession_refresh_success_total", Help: "Successful forced token refreshes."},
	{ID: authsession.MetricRefreshShortCircuit, Name: "authsession_refresh_short_circuit_total", Help: "Token requests served from the fresh cache."},
	{ID: authsession.MetricRefreshFallback, Name: "authsession_refresh_fallback_total", Help: "Failed refreshes served from the cached token within grace."},
	{ID: authsession.MetricSessionExpired, Name: "authsession_session_expired_total", Help: "Terminal refresh failures forcing logout."},
	{ID: authsession.MetricLogout, Name: "authsession_logout_total", Help: "Explicit logout operations."},
	{ID: authsession.MetricInitializeHydrated, Name: "authsession_initialize_hydrated_total", Help: "Startups restoring a persisted session."},
	{ID: authsession.MetricInitializeCold, Name: "authsession_initialize_cold_total", Help: "Startups without a usable persisted session."},
	{ID: authsession.MetricStorageMigration, Name: "authsession_storage_migration_total", Help: "Records consolidated into the secure backend."},
	{ID: authsession.MetricStorageError, Name: "authsession_storage_error_total", Help: "Best-effort persistence failures."},
	{ID: authsession.MetricProfileRefresh, Name: "authsession_profile_refresh_total", Help: "User records re-fetched from the profile service."},
}

// HistogramDefs enumerates every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authsession.MetricRefreshLatency, Name: "authsession_refresh_latency_seconds", Help: "Forced refresh latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
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

// HistogramBoundSuffix are the bound labels in instrument-name-safe form.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// export surfaces expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
