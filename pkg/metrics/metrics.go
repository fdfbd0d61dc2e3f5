// Package metrics provides Prometheus metrics for the clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DuplicateVerdictsTotal tracks duplicate-check verdicts by account type and rule
	DuplicateVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "duplicates",
			Name:      "verdicts_total",
			Help:      "Total number of duplicate-check verdicts by account type and duplicate type",
		},
		[]string{"account_type", "duplicate_type"},
	)

	// MatchResultsTotal tracks review match results by type
	MatchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "results_total",
			Help:      "Total number of review match results by match type",
		},
		[]string{"match_type"},
	)

	// ClaimsTotal tracks claim attempts by outcome
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "claims",
			Name:      "attempts_total",
			Help:      "Total number of claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SelfReviewsBlocked tracks review submissions rejected as self-reviews
	SelfReviewsBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "reviews",
			Name:      "self_reviews_blocked_total",
			Help:      "Total number of review submissions rejected as self-reviews",
		},
	)

	// StoreUnavailableTotal tracks transient store failures surfaced to callers
	StoreUnavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "store",
			Name:      "unavailable_total",
			Help:      "Total number of operations failed by an unavailable store",
		},
		[]string{"operation"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordDuplicateVerdict records a duplicate-check verdict
func RecordDuplicateVerdict(accountType, duplicateType string) {
	DuplicateVerdictsTotal.WithLabelValues(accountType, duplicateType).Inc()
}

// RecordMatch records a review match result
func RecordMatch(matchType string) {
	MatchResultsTotal.WithLabelValues(matchType).Inc()
}

// RecordClaim records a claim outcome: "success", "idempotent", a failure
// reason, or "error".
func RecordClaim(outcome string) {
	ClaimsTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreUnavailable records a transient store failure
func RecordStoreUnavailable(operation string) {
	StoreUnavailableTotal.WithLabelValues(operation).Inc()
}
