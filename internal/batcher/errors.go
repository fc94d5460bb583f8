package batcher

import (
	"fmt"
	"strings"
)

// ProcessorFailure pairs a processor name with the error it returned during
// a single dispatch. It is the unit collected into a DispatchError.
type ProcessorFailure struct {
	Processor string
	Err       error
}

func (f ProcessorFailure) Error() string {
	return fmt.Sprintf("processor %s failed: %v", f.Processor, f.Err)
}

func (f ProcessorFailure) Unwrap() error { return f.Err }

// DispatchError aggregates per-processor failures from one dispatch, flush,
// or flushSync call (spec §7). It is the single observable failure surface
// from batch operations; callers inspect its constituents rather than a
// first error, since a failing processor must never mask another's result.
type DispatchError struct {
	Failures []ProcessorFailure
}

func (e *DispatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%d processor(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying failures for errors.Is/errors.As chains.
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// newDispatchError returns nil when there is nothing to report, so callers
// can return it directly without a separate empty check.
func newDispatchError(failures []ProcessorFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return &DispatchError{Failures: failures}
}
