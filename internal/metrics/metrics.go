package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TreesLive tracks trees currently owned by binding registries
	TreesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruletree_trees_live",
			Help: "Number of rule trees currently allocated",
		},
	)

	// ResultsLive tracks query results not yet released
	ResultsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruletree_results_live",
			Help: "Number of query results currently allocated",
		},
	)

	// InsertsTotal counts successful pattern inserts
	InsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ruletree_inserts_total",
			Help: "Total number of patterns inserted",
		},
	)

	// CompilesTotal counts automaton compilations
	CompilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ruletree_compiles_total",
			Help: "Total number of automaton compilations",
		},
	)

	// CompileDuration tracks automaton compilation time
	CompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruletree_compile_duration_seconds",
			Help:    "Automaton compilation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// QueriesTotal counts queries by match mode
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruletree_queries_total",
			Help: "Total number of queries run",
		},
		[]string{"mode"},
	)

	// QueryDuration tracks query matching time by match mode
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ruletree_query_duration_seconds",
			Help:    "Query matching duration in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"mode"},
	)

	// MatchesTotal counts rule ids returned across all queries
	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ruletree_matches_total",
			Help: "Total number of rule ids returned by queries",
		},
	)

	// ErrorsTotal counts errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruletree_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)

	// ReloadsTotal counts rule set reloads by outcome
	ReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruletree_reloads_total",
			Help: "Total number of rule set reloads",
		},
		[]string{"status"},
	)

	// RulesLoaded reports the size of the active rule set
	RulesLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ruletree_rules_loaded",
			Help: "Size of the active rule set",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal counts match API requests by status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruletree_http_requests_total",
			Help: "Total number of match API requests",
		},
		[]string{"code"},
	)
)

// Error type constants
const (
	ErrorTypeInvalidHandle     = "invalid_handle"
	ErrorTypeOutOfRange        = "out_of_range"
	ErrorTypeResourceExhausted = "resource_exhausted"
	ErrorTypeRulesLoad         = "rules_load"
	ErrorTypeDecode            = "decode"
)

// Reload status constants
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// ObserveCompile starts timing a compile when stale is true and returns
// the function that records it. For a fresh tree it records nothing.
func ObserveCompile(stale bool) func() {
	if !stale {
		return func() {}
	}
	start := time.Now()
	return func() {
		CompilesTotal.Inc()
		CompileDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveQuery starts timing a query and returns the function that
// records it.
func ObserveQuery(mode string) func() {
	start := time.Now()
	return func() {
		QueriesTotal.WithLabelValues(mode).Inc()
		QueryDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}

// SetRuleSet publishes the size of the active rule set.
func SetRuleSet(rules, patterns, nodes int) {
	RulesLoaded.WithLabelValues("rules").Set(float64(rules))
	RulesLoaded.WithLabelValues("patterns").Set(float64(patterns))
	RulesLoaded.WithLabelValues("nodes").Set(float64(nodes))
}
