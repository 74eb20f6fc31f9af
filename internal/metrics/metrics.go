// Package metrics holds the domain collectors exported next to the HTTP RED metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Collector groups the feed and digest metrics. A nil *Collector is valid and records
// nothing, so tests and tools can skip metrics entirely.
type Collector struct {
	FeedFetches       *prometheus.CounterVec
	FeedFetchDuration *prometheus.HistogramVec
	SnapshotDuration  prometheus.Histogram
	DigestDeliveries  *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gbfs_feed_fetches_total",
			Help: "Total GBFS feed fetches by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gbfs_feed_fetch_duration_seconds",
			Help:    "Duration of GBFS feed fetches including decoding.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"feed"}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gbfs_snapshot_build_duration_seconds",
			Help:    "Duration of nearby snapshot builds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		DigestDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_deliveries_total",
			Help: "Digest emails attempted by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.FeedFetches, c.FeedFetchDuration, c.SnapshotDuration, c.DigestDeliveries)
	return c
}

func (c *Collector) ObserveFetch(feed string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.FeedFetches.WithLabelValues(feed, outcome(err)).Inc()
	c.FeedFetchDuration.WithLabelValues(feed).Observe(d.Seconds())
}

func (c *Collector) ObserveSnapshot(d time.Duration) {
	if c == nil {
		return
	}
	c.SnapshotDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveDelivery(err error) {
	if c == nil {
		return
	}
	c.DigestDeliveries.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
