// Package metrics holds the prometheus collectors for the search and
// execution pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultEmpty = "empty"
)

var (
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xreply_searches_total",
		Help: "Searches run, by result",
	}, []string{"result"})
	PostsScraped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xreply_posts_scraped_total",
		Help: "Posts extracted from search results",
	})
	PostsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xreply_posts_skipped_total",
		Help: "Result units dropped because their handle could not be parsed",
	})
	ProfileLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xreply_profile_lookups_total",
		Help: "Author profile lookups, by result",
	}, []string{"result"})
	ProposalsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xreply_proposals_created_total",
		Help: "Proposals persisted by searches",
	})
	Executions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xreply_executions_total",
		Help: "Proposal executions, by result",
	}, []string{"result"})
	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xreply_search_duration_seconds",
		Help:    "End-to-end search duration seconds",
		Buckets: []float64{5, 10, 20, 30, 60, 120, 240},
	})
	StoreOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xreply_store_operations_total",
		Help: "Proposal store operations, by op and result",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(
		Searches, PostsScraped, PostsSkipped, ProfileLookups,
		ProposalsCreated, Executions, SearchDuration, StoreOps,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearchDuration records a search that started at start.
func ObserveSearchDuration(start time.Time) {
	SearchDuration.Observe(time.Since(start).Seconds())
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// IncStoreOp counts one store operation.
func IncStoreOp(op string, err error) {
	StoreOps.WithLabelValues(op, Result(err)).Inc()
}
