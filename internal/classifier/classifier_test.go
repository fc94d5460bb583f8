package classifier

import (
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyhub/internal/metrics"
)

func TestClassifyMessage_NoPatternsReturnsUnknown(t *testing.T) {
	c := New(nil)
	got := c.ClassifyMessage("anything", "error")
	assert.Equal(t, "UNKNOWN", got.Category)
	assert.Equal(t, "low", got.Severity)
	assert.False(t, got.IsAggregated)
	assert.Equal(t, 1, got.Occurrences)
}

func TestClassifyMessage_NonAggregatingPattern(t *testing.T) {
	c := New(nil)
	c.AddErrorPatterns(ErrorPattern{
		Matcher:  Matcher{Regexp: regexp.MustCompile(`(?i)timeout`)},
		Category: "TIMEOUT",
		Severity: "medium",
	})

	got := c.ClassifyMessage("connection Timeout after 5s", "error")
	assert.Equal(t, "TIMEOUT", got.Category)
	assert.Equal(t, "medium", got.Severity)
	assert.False(t, got.IsAggregated)
	assert.Equal(t, 1, got.Occurrences)
	assert.Nil(t, got.Aggregation)
}

func TestClassifyMessage_AggregationThreshold(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(nil).WithClock(func() time.Time { return now })
	c.AddErrorPatterns(ErrorPattern{
		Matcher:     Matcher{Regexp: regexp.MustCompile(`(?i)test error`)},
		Category:    "TEST_ERROR",
		Severity:    "low",
		Aggregation: Aggregation{WindowMs: 1000, CountThreshold: 2},
	})

	var results []Classification
	for i := 0; i < 3; i++ {
		results = append(results, c.ClassifyMessage("test error message", "error"))
	}

	require.Len(t, results, 3)
	assert.False(t, results[0].IsAggregated)
	assert.Equal(t, 1, results[0].Occurrences)
	assert.True(t, results[1].IsAggregated)
	assert.Equal(t, 2, results[1].Occurrences)
	assert.True(t, results[2].IsAggregated)
	assert.Equal(t, 3, results[2].Occurrences)
}

func TestClassifyMessage_AggregationIncrementsMetric(t *testing.T) {
	now := time.Unix(2000, 0)
	c := New(nil).WithClock(func() time.Time { return now })
	c.AddErrorPatterns(ErrorPattern{
		Matcher:     Matcher{Regexp: regexp.MustCompile(`(?i)metric test`)},
		Category:    "METRIC_TEST",
		Severity:    "low",
		Aggregation: Aggregation{WindowMs: 1000, CountThreshold: 2},
	})

	before := testutil.ToFloat64(metrics.ClassifierAggregationsTotal.WithLabelValues("METRIC_TEST"))

	c.ClassifyMessage("metric test message", "error")
	got := c.ClassifyMessage("metric test message", "error")
	require.True(t, got.IsAggregated)

	after := testutil.ToFloat64(metrics.ClassifierAggregationsTotal.WithLabelValues("METRIC_TEST"))
	assert.Equal(t, before+1, after)
}

func TestClassifyMessage_WindowReset(t *testing.T) {
	base := time.Unix(2000, 0)
	clock := base
	c := New(nil).WithClock(func() time.Time { return clock })
	c.AddErrorPatterns(ErrorPattern{
		Matcher:     Matcher{Regexp: regexp.MustCompile(`boom`)},
		Category:    "BOOM",
		Severity:    "low",
		Aggregation: Aggregation{WindowMs: 100, CountThreshold: 2},
	})

	first := c.ClassifyMessage("boom", "error")
	assert.False(t, first.IsAggregated)
	assert.Equal(t, 1, first.Occurrences)

	clock = base.Add(150 * time.Millisecond)
	second := c.ClassifyMessage("boom", "error")
	assert.False(t, second.IsAggregated, "expired window must reset, not aggregate")
	assert.Equal(t, 1, second.Occurrences)
}

func TestClassifyMessage_BelowThresholdWithinWindowIsNotAggregated(t *testing.T) {
	now := time.Unix(3000, 0)
	c := New(nil).WithClock(func() time.Time { return now })
	c.AddErrorPatterns(ErrorPattern{
		Matcher:     Matcher{Regexp: regexp.MustCompile(`flaky`)},
		Category:    "FLAKY",
		Severity:    "low",
		Aggregation: Aggregation{WindowMs: 1000, CountThreshold: 5},
	})

	got := c.ClassifyMessage("flaky thing happened", "error")
	assert.False(t, got.IsAggregated)
	assert.Equal(t, 1, got.Occurrences)
}

func TestClassifyMessage_PredicateMatcher(t *testing.T) {
	c := New(nil)
	c.AddErrorPatterns(ErrorPattern{
		Matcher:  Matcher{Predicate: func(text string) bool { return len(text) > 10 }},
		Category: "LONG",
		Severity: "low",
	})
	got := c.ClassifyMessage("this is a long message", "error")
	assert.Equal(t, "LONG", got.Category)
}

func TestClassifyMessage_FirstMatchWins(t *testing.T) {
	c := New(nil)
	c.AddErrorPatterns(
		ErrorPattern{Matcher: Matcher{Regexp: regexp.MustCompile(`err`)}, Category: "FIRST", Severity: "low"},
		ErrorPattern{Matcher: Matcher{Regexp: regexp.MustCompile(`error`)}, Category: "SECOND", Severity: "low"},
	)
	got := c.ClassifyMessage("some error text", "error")
	assert.Equal(t, "FIRST", got.Category)
}

func TestFormatClassifiedError(t *testing.T) {
	plain := Classification{Text: "boom", Category: "X", Severity: "low"}
	assert.Equal(t, "Message: boom\nCategory: X\nSeverity: low", FormatClassifiedError(plain))

	aggregated := Classification{
		Category:     "X",
		IsAggregated: true,
		Occurrences:  4,
		Aggregation:  &AggregationInfo{Count: 4, AgeMs: 3000},
	}
	assert.Equal(t, "[AGGREGATED] 4 similar X messages in last 3s", FormatClassifiedError(aggregated))

	aggregatedNoAge := Classification{Category: "Y", IsAggregated: true, Occurrences: 2}
	assert.Equal(t, "[AGGREGATED] 2 similar Y messages in last 10s", FormatClassifiedError(aggregatedNoAge))

	roundsUp := Classification{
		Category:     "Z",
		IsAggregated: true,
		Occurrences:  1,
		Aggregation:  &AggregationInfo{Count: 1, AgeMs: 2600},
	}
	assert.Equal(t, "[AGGREGATED] 1 similar Z messages in last 3s", FormatClassifiedError(roundsUp))

	roundsDown := Classification{
		Category:     "Z",
		IsAggregated: true,
		Occurrences:  1,
		Aggregation:  &AggregationInfo{Count: 1, AgeMs: 2400},
	}
	assert.Equal(t, "[AGGREGATED] 1 similar Z messages in last 2s", FormatClassifiedError(roundsDown))
}

func TestClearErrorTrackingGCsExpiredGroupsOnly(t *testing.T) {
	base := time.Unix(4000, 0)
	clock := base
	c := New(nil).WithClock(func() time.Time { return clock })
	c.AddErrorPatterns(
		ErrorPattern{Matcher: Matcher{Regexp: regexp.MustCompile(`alpha`)}, Category: "ALPHA", Severity: "low", Aggregation: Aggregation{WindowMs: 50, CountThreshold: 10}},
		ErrorPattern{Matcher: Matcher{Regexp: regexp.MustCompile(`beta`)}, Category: "BETA", Severity: "low", Aggregation: Aggregation{WindowMs: 5000, CountThreshold: 10}},
	)

	c.ClassifyMessage("alpha", "error")
	c.ClassifyMessage("beta", "error")

	clock = base.Add(200 * time.Millisecond)
	c.ClearErrorTracking()

	agg := c.GetAggregatedErrors()
	_, hasAlpha := agg["ALPHA-low-error"]
	_, hasBeta := agg["BETA-low-error"]
	assert.False(t, hasAlpha, "expired group must be collected")
	assert.True(t, hasBeta, "live group must survive")
}

func TestGetAggregatedErrorsExcludesExpired(t *testing.T) {
	base := time.Unix(5000, 0)
	clock := base
	c := New(nil).WithClock(func() time.Time { return clock })
	c.AddErrorPatterns(ErrorPattern{
		Matcher:     Matcher{Regexp: regexp.MustCompile(`gamma`)},
		Category:    "GAMMA",
		Severity:    "low",
		Aggregation: Aggregation{WindowMs: 100, CountThreshold: 1},
	})

	c.ClassifyMessage("gamma", "error")
	assert.Len(t, c.GetAggregatedErrors(), 1)

	clock = base.Add(500 * time.Millisecond)
	assert.Empty(t, c.GetAggregatedErrors(), "view must exclude expired groups without mutating state")
}

func TestResetForTestWipesEverything(t *testing.T) {
	c := New(nil)
	c.AddErrorPatterns(ErrorPattern{Matcher: Matcher{Regexp: regexp.MustCompile(`x`)}, Category: "X", Severity: "low", Aggregation: Aggregation{WindowMs: 1000, CountThreshold: 1}})
	c.ClassifyMessage("x", "error")
	require.NotEmpty(t, c.GetAggregatedErrors())

	c.ResetForTest()
	assert.Empty(t, c.GetAggregatedErrors())
	got := c.ClassifyMessage("x", "error")
	assert.Equal(t, "UNKNOWN", got.Category, "patterns must be cleared too")
}
