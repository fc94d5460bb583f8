// Package classifier implements the error classifier described in spec
// §4.5: an ordered pattern registry that tags message text with a
// category/severity and, for patterns configured with an aggregation
// window, folds recurring matches into a single summarized report.
package classifier

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"notifyhub/internal/metrics"
)

// Matcher decides whether a pattern applies to a piece of text. Exactly one
// of Regexp or Predicate is typically set; Matches tries Regexp first.
type Matcher struct {
	Regexp    *regexp.Regexp
	Predicate func(text string) bool
}

// Matches reports whether the matcher applies to text.
func (m Matcher) Matches(text string) bool {
	if m.Regexp != nil {
		return m.Regexp.MatchString(text)
	}
	if m.Predicate != nil {
		return m.Predicate(text)
	}
	return false
}

// Aggregation configures windowed grouping for a pattern. A zero value
// (WindowMs == 0) means the pattern never aggregates.
type Aggregation struct {
	WindowMs       int64
	CountThreshold int
}

// Enabled reports whether this pattern aggregates matches at all.
func (a Aggregation) Enabled() bool {
	return a.WindowMs > 0 && a.CountThreshold > 0
}

// ErrorPattern is one entry in the classifier's ordered pattern list.
type ErrorPattern struct {
	Matcher     Matcher
	Category    string
	Severity    string
	Aggregation Aggregation
}

// MessageGroup is the aggregation state kept per group key.
type MessageGroup struct {
	Count     int
	Category  string
	Severity  string
	Level     string
	FirstSeen time.Time
	WindowMs  int64
}

func groupKey(category, severity, level string) string {
	return fmt.Sprintf("%s-%s-%s", category, severity, level)
}

// AggregationInfo is the optional [count, ageMs] tuple from spec §4.5.
type AggregationInfo struct {
	Count int
	AgeMs int64
}

// Classification is the fixed tuple classifyMessage returns.
type Classification struct {
	Text         string
	Category     string
	Severity     string
	Aggregation  *AggregationInfo
	IsAggregated bool
	Occurrences  int
}

const (
	unknownCategory = "UNKNOWN"
	unknownSeverity = "low"
	defaultLevel    = "error"
)

// Clock lets tests control "now"; production callers use Classifier.Now,
// which defaults to time.Now.
type Clock func() time.Time

// Classifier holds the ordered pattern list and per-group aggregation state.
// Pattern and group mutation is guarded by a single mutex: classifyMessage
// both reads the pattern list and writes to the group map, and concurrent
// classification requires those to move together (§5).
type Classifier struct {
	mu       sync.Mutex
	patterns []ErrorPattern
	groups   map[string]*MessageGroup
	logger   *logrus.Logger
	now      Clock
}

// New creates an empty classifier. logger may be nil (a new default logrus
// logger is substituted).
func New(logger *logrus.Logger) *Classifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Classifier{
		groups: make(map[string]*MessageGroup),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for window arithmetic. Intended for
// tests; production code should leave this unset.
func (c *Classifier) WithClock(clock Clock) *Classifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = clock
	return c
}

// AddErrorPatterns appends patterns to the ordered list, preserving the
// order patterns are matched in.
func (c *Classifier) AddErrorPatterns(patterns ...ErrorPattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, patterns...)
}

// ClearErrorPatterns empties the pattern list without touching aggregation
// state; existing groups stay in place and resume counting if a pattern
// with the same category and severity is added again.
func (c *Classifier) ClearErrorPatterns() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = nil
}

// ClearErrorTracking garbage-collects groups whose window has expired. It
// does not touch the pattern list, and it does not wipe live (non-expired)
// groups — see ResetForTest for the unconditional variant.
func (c *Classifier) ClearErrorTracking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, g := range c.groups {
		if now.Sub(g.FirstSeen) > time.Duration(g.WindowMs)*time.Millisecond {
			delete(c.groups, key)
		}
	}
}

// ResetForTest unconditionally wipes both patterns and aggregation state.
// It exists for test isolation between cases that share a Classifier and
// is not part of the production API surface.
func (c *Classifier) ResetForTest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = nil
	c.groups = make(map[string]*MessageGroup)
}

// ClassifyMessage matches text against the ordered pattern list and
// advances aggregation state deterministically. It is a pure function of
// (patterns, groups, now, text, level) modulo the mutex that serializes
// concurrent callers — given the same starting state and the same now, it
// always produces the same classification and the same group transition.
func (c *Classifier) ClassifyMessage(text string, level string) Classification {
	if level == "" {
		level = defaultLevel
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.patterns {
		if !p.Matcher.Matches(text) {
			continue
		}
		return c.classifyMatch(text, level, p)
	}

	return Classification{
		Text:         text,
		Category:     unknownCategory,
		Severity:     unknownSeverity,
		IsAggregated: false,
		Occurrences:  1,
	}
}

func (c *Classifier) classifyMatch(text, level string, p ErrorPattern) Classification {
	base := Classification{Text: text, Category: p.Category, Severity: p.Severity}

	if !p.Aggregation.Enabled() {
		base.Occurrences = 1
		return base
	}

	now := c.now()
	key := groupKey(p.Category, p.Severity, level)
	g, ok := c.groups[key]
	if !ok {
		g = &MessageGroup{
			Category:  p.Category,
			Severity:  p.Severity,
			Level:     level,
			FirstSeen: now,
			WindowMs:  p.Aggregation.WindowMs,
		}
		c.groups[key] = g
	}

	age := now.Sub(g.FirstSeen)
	if age <= time.Duration(g.WindowMs)*time.Millisecond {
		g.Count++
		if g.Count >= p.Aggregation.CountThreshold {
			base.IsAggregated = true
			base.Occurrences = g.Count
			base.Aggregation = &AggregationInfo{Count: g.Count, AgeMs: age.Milliseconds()}
			metrics.ClassifierAggregationsTotal.WithLabelValues(p.Category).Inc()
			return base
		}
		base.Occurrences = 1
		return base
	}

	// Window expired: start a fresh window rather than keep counting.
	g.Count = 1
	g.FirstSeen = now
	g.WindowMs = p.Aggregation.WindowMs
	base.Occurrences = 1
	return base
}

// FormatClassifiedError renders a Classification for human-facing output.
func FormatClassifiedError(c Classification) string {
	if c.IsAggregated {
		seconds := 10
		if c.Aggregation != nil {
			seconds = int((c.Aggregation.AgeMs + 500) / 1000)
		}
		count := c.Occurrences
		if c.Aggregation != nil {
			count = c.Aggregation.Count
		}
		return fmt.Sprintf("[AGGREGATED] %d similar %s messages in last %ds", count, c.Category, seconds)
	}
	return fmt.Sprintf("Message: %s\nCategory: %s\nSeverity: %s", c.Text, c.Category, c.Severity)
}

// AggregatedErrorView is the external view of a live (non-expired) group.
type AggregatedErrorView struct {
	Count    int
	WindowMs int64
}

// GetAggregatedErrors returns a snapshot of non-expired groups, keyed the
// same way ClassifyMessage keys them internally.
func (c *Classifier) GetAggregatedErrors() map[string]AggregatedErrorView {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]AggregatedErrorView)
	for key, g := range c.groups {
		if now.Sub(g.FirstSeen) > time.Duration(g.WindowMs)*time.Millisecond {
			continue
		}
		out[key] = AggregatedErrorView{Count: g.Count, WindowMs: g.WindowMs}
	}
	return out
}
