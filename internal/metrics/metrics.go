// Package metrics exposes the batcher's Prometheus instrumentation,
// adapted from the teacher repo's internal/metrics package (promauto-created
// vectors registered once at package init) but scoped to batching and
// classification rather than log ingestion.
package metrics

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTotal counts completed dispatches per channel and outcome.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyhub_dispatch_total",
		Help: "Total number of channel dispatches, by outcome.",
	}, []string{"channel", "outcome"})

	// BatchSize observes the number of messages per dispatched batch.
	BatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifyhub_batch_size",
		Help:    "Number of messages in a dispatched batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"channel"})

	// ProcessorFailuresTotal counts per-processor dispatch failures.
	ProcessorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyhub_processor_failures_total",
		Help: "Total number of processor failures during dispatch.",
	}, []string{"processor"})

	// QueueDepth reports the current queue length for a channel.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notifyhub_queue_depth",
		Help: "Current number of queued messages for a channel.",
	}, []string{"channel"})

	// ClassifierAggregationsTotal counts ClassifyMessage calls that
	// returned an aggregated classification.
	ClassifierAggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyhub_classifier_aggregations_total",
		Help: "Total number of classifications folded into an aggregated report.",
	}, []string{"category"})

	// DistinctMessagesEstimate is an approximate count of distinct message
	// texts seen, backed by a bloom filter. It is observability-only: it
	// never feeds back into classification, preserving ClassifyMessage's
	// purity invariant.
	DistinctMessagesEstimate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifyhub_distinct_messages_estimate",
		Help: "Approximate count of distinct message texts observed (bloom filter estimate).",
	})
)

// CardinalityEstimator tracks approximate distinct-message cardinality for
// the DistinctMessagesEstimate gauge using a bloom filter, grounded in
// SebastienMelki-causality's use of github.com/bits-and-blooms/bloom/v3 for
// approximate-membership structures. It is sized generously and never
// resets, so the estimate is lifetime-of-process, not windowed.
type CardinalityEstimator struct {
	filter *bloom.BloomFilter
	seen   uint64
}

// NewCardinalityEstimator allocates a filter sized for expectedItems
// distinct values at the given false-positive rate.
func NewCardinalityEstimator(expectedItems uint, falsePositiveRate float64) *CardinalityEstimator {
	return &CardinalityEstimator{filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate)}
}

// Observe records text and updates the gauge if it looks new. It returns
// true if the text was (probably) not seen before.
func (c *CardinalityEstimator) Observe(text string) bool {
	data := []byte(text)
	if c.filter.Test(data) {
		return false
	}
	c.filter.Add(data)
	c.seen++
	DistinctMessagesEstimate.Set(float64(c.seen))
	return true
}
