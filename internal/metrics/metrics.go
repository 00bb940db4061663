// Package metrics holds the Prometheus metrics of sync passes and queries.
package metrics

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	LabelSuccess = "success"
	LabelAPI     = "api"
	LabelKind    = "kind"
	LabelEntity  = "entity"
)

var (
	SyncDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "graphdb",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Duration of full sync passes in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{LabelSuccess})

	SyncObjects = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "graphdb",
		Subsystem: "sync",
		Name:      "objects_total",
		Help:      "Objects written to the store by sync passes.",
	}, []string{LabelAPI, LabelKind})

	QueryDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "graphdb",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Query duration in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{LabelEntity, LabelSuccess})
)
