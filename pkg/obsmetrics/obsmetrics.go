// Package obsmetrics exposes the Prometheus collectors the packaging and
// verification CLIs update as they call out to RPC nodes, fetch proofs, and
// render trust verdicts.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector this module registers. The zero value is
// not usable; construct one with New.
type Metrics struct {
	RPCCallDuration   *prometheus.HistogramVec
	ProofFetchTotal   *prometheus.CounterVec
	TrustVerdictTotal *prometheus.CounterVec
}

// New builds and registers the collectors against reg. Passing
// prometheus.NewRegistry() keeps metrics isolated per process (useful in
// tests); passing prometheus.DefaultRegisterer matches the package-level
// promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RPCCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safelens_rpc_call_duration_seconds",
			Help:    "Latency of individual RPC client calls, by method and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "outcome"}),

		ProofFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safelens_proof_fetch_total",
			Help: "Count of proof-fetch attempts, by kind (policy, account, storage) and outcome.",
		}, []string{"kind", "outcome"}),

		TrustVerdictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safelens_trust_verdict_total",
			Help: "Count of trust verdicts rendered during verification, by verdict and reason.",
		}, []string{"verdict", "reason"}),
	}

	reg.MustRegister(m.RPCCallDuration, m.ProofFetchTotal, m.TrustVerdictTotal)
	return m
}

// ObserveRPCCall records one RPC call's duration in seconds under method and
// outcome ("ok" or "error").
func (m *Metrics) ObserveRPCCall(method, outcome string, seconds float64) {
	m.RPCCallDuration.WithLabelValues(method, outcome).Observe(seconds)
}

// RecordProofFetch increments the proof-fetch counter for kind and outcome.
func (m *Metrics) RecordProofFetch(kind, outcome string) {
	m.ProofFetchTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTrustVerdict increments the trust-verdict counter for verdict and
// reason (reason may be empty for a fully trusted verdict).
func (m *Metrics) RecordTrustVerdict(verdict, reason string) {
	m.TrustVerdictTotal.WithLabelValues(verdict, reason).Inc()
}

// Handler returns the HTTP handler a CLI's --metrics-addr server mounts at
// /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
