// Package metrics exposes prometheus collectors for the ingestion and grading
// cycles. Everything is registered on the default registry and served by the
// ops server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardTriggers counts monotonicity-guard rejections by field.
	GuardTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorline_guard_triggers_total",
		Help: "State updates rejected by the monotonicity guard.",
	}, []string{"field"})

	// IdentityResolutions counts resolver outcomes: matched, alias_healed,
	// fallback, unresolved.
	IdentityResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorline_identity_resolutions_total",
		Help: "Identity resolver outcomes.",
	}, []string{"outcome"})

	// Gradings counts terminal transitions by verdict.
	Gradings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorline_gradings_total",
		Help: "Predictions transitioned to a terminal result.",
	}, []string{"result"})

	// EvidenceHits counts which cascade tier produced the final score.
	EvidenceHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorline_evidence_hits_total",
		Help: "Evidence cascade tier that resolved a final score.",
	}, []string{"tier"})

	// ProviderErrors counts exhausted fetches per provider.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorline_provider_errors_total",
		Help: "Provider fetches that failed after the retry budget.",
	}, []string{"provider"})
)
