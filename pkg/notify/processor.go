package notify

import "context"

// Processor is the sink contract (§4.2 of the spec). ProcessBatch consumes a
// non-empty batch and reports failure; it may perform network I/O and must
// isolate its own failures (a failing processor never prevents other
// processors from running against the same batch).
type Processor interface {
	Name() string
	ProcessBatch(ctx context.Context, batch []Message) error
}

// SyncProcessor is the optional synchronous variant used by flushSync. It
// must not suspend — no network calls, no blocking I/O.
type SyncProcessor interface {
	Processor
	ProcessBatchSync(batch []Message) error
}
