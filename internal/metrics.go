package internal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK            = "ok"
	outcomeCannotConnect = "cannot_connect"
	outcomeRequestError  = "request_error"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prixcarburant_api_requests_total",
			Help: "Total number of catalog API requests by outcome",
		},
		[]string{"outcome"},
	)
	apiRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prixcarburant_api_request_duration_seconds",
			Help:    "Catalog API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	stationsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prixcarburant_stations_tracked",
			Help: "Number of stations currently held in the registry",
		},
	)
	stationsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prixcarburant_stations_skipped_total",
			Help: "Stations skipped during discovery or price refresh, by reason",
		},
		[]string{"reason"},
	)
	lastRefreshTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prixcarburant_last_refresh_timestamp",
			Help: "Unix timestamp of the last successful refresh cycle",
		},
	)
)

func observeRequest(outcome string, start time.Time) {
	apiRequestsTotal.WithLabelValues(outcome).Inc()
	apiRequestDuration.Observe(time.Since(start).Seconds())
}
