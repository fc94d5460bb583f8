package sinks

import (
	"context"

	"notifyhub/internal/metrics"
	"notifyhub/pkg/notify"
)

// CardinalitySink wraps another processor and observes each message's text
// through a metrics.CardinalityEstimator before delegating, giving the
// bloom-filter-backed distinct-message gauge an actual call site. It is
// purely an observability decorator: classification never sees its output,
// and a failure to observe never happens (Observe cannot fail), so it
// cannot change Inner's own error behavior.
type CardinalitySink struct {
	SinkName  string
	Inner     notify.Processor
	Estimator *metrics.CardinalityEstimator
}

// NewCardinalitySink wraps inner with an estimator sized for expectedItems
// distinct message texts at the given false-positive rate.
func NewCardinalitySink(inner notify.Processor, expectedItems uint, falsePositiveRate float64) *CardinalitySink {
	return &CardinalitySink{
		SinkName:  inner.Name(),
		Inner:     inner,
		Estimator: metrics.NewCardinalityEstimator(expectedItems, falsePositiveRate),
	}
}

func (s *CardinalitySink) Name() string { return s.SinkName }

func (s *CardinalitySink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	for _, m := range batch {
		s.Estimator.Observe(m.Text)
	}
	return s.Inner.ProcessBatch(ctx, batch)
}
