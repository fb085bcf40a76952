// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package stats holds the Prometheus collectors updated by the query
// backends.
package stats

import (
	"time"

	"github.com/molecula/histql/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricQueries       = "queries_total"
	MetricQueryErrors   = "query_errors_total"
	MetricRowsReturned  = "rows_returned_total"
	MetricQueryDuration = "query_duration_seconds"
	MetricSessions      = "sessions_opened_total"
)

var CounterQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "histql",
		Name:      MetricQueries,
		Help:      "Number of queries run, by backend and query name.",
	},
	[]string{
		"backend",
		"query",
	},
)

var CounterQueryErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "histql",
		Name:      MetricQueryErrors,
		Help:      "Number of failed session calls, by backend and error code.",
	},
	[]string{
		"backend",
		"code",
	},
)

var CounterRowsReturned = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "histql",
		Name:      MetricRowsReturned,
		Help:      "Number of result rows returned, by backend and query name.",
	},
	[]string{
		"backend",
		"query",
	},
)

var HistogramQueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "histql",
		Name:      MetricQueryDuration,
		Help:      "Time spent running a query, by backend.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	},
	[]string{
		"backend",
	},
)

var CounterSessions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "histql",
		Name:      MetricSessions,
		Help:      "Number of query sessions opened, by backend.",
	},
	[]string{
		"backend",
	},
)

func init() {
	prometheus.MustRegister(CounterQueries)
	prometheus.MustRegister(CounterQueryErrors)
	prometheus.MustRegister(CounterRowsReturned)
	prometheus.MustRegister(HistogramQueryDuration)
	prometheus.MustRegister(CounterSessions)
}

// ObserveQuery records one query_database call. query is empty when the
// request could not be decoded far enough to name a query.
func ObserveQuery(backend, query string, rows int, start time.Time, err error) {
	HistogramQueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if query != "" {
		CounterQueries.WithLabelValues(backend, query).Inc()
	}
	if err != nil {
		ObserveError(backend, err)
		return
	}
	CounterRowsReturned.WithLabelValues(backend, query).Add(float64(rows))
}

// ObserveError counts a failed session call under its error code.
func ObserveError(backend string, err error) {
	if err == nil {
		return
	}
	CounterQueryErrors.WithLabelValues(backend, string(errors.CodeOf(err))).Inc()
}

// ObserveSession counts an opened session.
func ObserveSession(backend string) {
	CounterSessions.WithLabelValues(backend).Inc()
}
