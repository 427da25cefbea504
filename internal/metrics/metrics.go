package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry metrics
	CurrencyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniroute_currency_count",
		Help: "Total number of currencies in the token graph",
	})

	BridgeGroupCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniroute_bridge_group_count",
		Help: "Total number of bridge-linked currency groups",
	})

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"mode", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omniroute_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	PoolsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omniroute_pools_evaluated",
		Help:    "Number of pools evaluated per quote request",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	LiquidityMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniroute_liquidity_misses_total",
		Help: "Total number of chain quotes skipped for missing liquidity",
	})

	// Routing metrics
	RouteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_route_requests_total",
			Help: "Total number of route classification requests",
		},
		[]string{"kind", "status"},
	)

	ChainsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omniroute_chains_evaluated",
		Help:    "Number of candidate chains evaluated per selection",
		Buckets: []float64{1, 2, 3, 5, 8, 12, 20},
	})

	// Basket metrics
	BasketQuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_basket_quote_requests_total",
			Help: "Total number of basket quote requests",
		},
		[]string{"mode", "status"},
	)

	BasketLegCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omniroute_basket_leg_count",
		Help:    "Number of legs quoted per basket request",
		Buckets: []float64{1, 2, 3, 5, 8, 12, 20},
	})

	// Plan metrics
	PlanRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_plan_requests_total",
			Help: "Total number of execution plan build requests",
		},
		[]string{"kind", "status"},
	)

	PlanInstructions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omniroute_plan_instructions",
		Help:    "Number of instructions per assembled execution plan",
		Buckets: []float64{1, 2, 3, 5, 8, 12, 20},
	})

	// RPC metrics
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_rpc_calls_total",
			Help: "Total number of JSON-RPC calls issued",
		},
		[]string{"chain", "method", "status"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omniroute_rpc_duration_seconds",
			Help:    "JSON-RPC call duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"chain", "method"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omniroute_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omniroute_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Snapshot metrics
	SnapshotLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniroute_snapshot_loads_total",
		Help: "Total number of registry snapshot loads",
	})

	SnapshotSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniroute_snapshot_saves_total",
		Help: "Total number of registry snapshot saves",
	})
)
