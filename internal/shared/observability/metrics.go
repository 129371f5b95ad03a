package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rds_transform_seconds",
		Help:    "Time spent transforming a source module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	TransformsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rds_transforms_total",
		Help: "Total number of module transforms by kind and outcome.",
	}, []string{"kind", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rds_cache_lookups_total",
		Help: "Content cache lookups by cache name and result.",
	}, []string{"cache", "result"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rds_graph_nodes_total",
		Help: "Total number of nodes in the module graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rds_graph_edges_total",
		Help: "Total number of edges in the module graph.",
	})

	HMRMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rds_hmr_messages_total",
		Help: "HMR messages broadcast by type.",
	}, []string{"type"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rds_hmr_clients",
		Help: "Number of browsers connected to the HMR socket.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rds_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	CSSMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rds_css_matches",
		Help: "Utility tokens currently matched by the CSS generator.",
	})

	CSSBlockedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rds_css_blocked_tokens_total",
		Help: "Candidate tokens rejected by the rule matcher.",
	})

	StoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rds_transform_store_ops_total",
		Help: "Persistent transform store operations by op and result.",
	}, []string{"op", "result"})
)
