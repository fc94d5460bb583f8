// Package sinks contains illustrative notify.Processor implementations.
// They exist to exercise the batching core end to end, not as a
// prescriptive transport layer — the core owns none of their behavior.
package sinks

import (
	"context"
	"fmt"
	"io"
	"os"

	"notifyhub/internal/loglevel"
	"notifyhub/pkg/notify"
)

// ConsoleSink writes each message in a batch to an io.Writer (os.Stdout by
// default), filtered by MinLevel per the per-processor log-level filter in
// spec §4.6.
type ConsoleSink struct {
	SinkName string
	Out      io.Writer
	MinLevel loglevel.Level
}

// NewConsoleSink returns a sink writing to os.Stdout with no level filter.
func NewConsoleSink(name string) *ConsoleSink {
	return &ConsoleSink{SinkName: name, Out: os.Stdout, MinLevel: loglevel.LevelTrace}
}

func (s *ConsoleSink) Name() string { return s.SinkName }

func (s *ConsoleSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	return s.ProcessBatchSync(batch)
}

// ProcessBatchSync never suspends: it is a buffered local write, matching
// the notify.SyncProcessor contract.
func (s *ConsoleSink) ProcessBatchSync(batch []notify.Message) error {
	for _, m := range batch {
		level := loglevel.NormalizeLogLevel(string(m.Level))
		if !loglevel.ShouldLog(level, s.MinLevel) {
			continue
		}
		if _, err := fmt.Fprintln(s.Out, m.String()); err != nil {
			return err
		}
	}
	return nil
}
