package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search orchestration metrics. Registered explicitly from main (no init()).
var (
	CatalogFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopscope",
			Name:      "catalog_fetches_total",
			Help:      "Catalog fetches issued, by collection and outcome",
		},
		[]string{"collection", "outcome"},
	)

	StaleResponsesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopscope",
			Name:      "stale_responses_dropped_total",
			Help:      "Fetch responses discarded because a newer request token was issued",
		},
	)

	DebounceCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopscope",
			Name:      "debounce_coalesced_total",
			Help:      "Filter mutations absorbed by the debounce window before a write fired",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopscope",
			Name:      "searches_total",
			Help:      "Completed search cycles by modality",
		},
		[]string{"modality"},
	)
)

// RegisterSearchMetrics registers orchestration metrics with the default registry.
func RegisterSearchMetrics() {
	prometheus.MustRegister(
		CatalogFetchesTotal,
		StaleResponsesDropped,
		DebounceCoalescedTotal,
		SearchesTotal,
	)
}
