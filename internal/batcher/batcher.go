// Package batcher implements the batching core: per-channel queues with
// size- and time-based dispatch triggers, a bounded-concurrency fan-out to
// registered processors, and synchronous/asynchronous flush surfaces. It is
// the central piece of the library; the queue, registry, workerpool,
// metrics and tracing packages feed into it.
package batcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notifyhub/internal/metrics"
	"notifyhub/internal/queue"
	"notifyhub/internal/registry"
	"notifyhub/internal/tracing"
	"notifyhub/internal/workerpool"
	"notifyhub/pkg/notify"
)

// Config is the recognized option set from spec §3 (BatcherConfig).
type Config struct {
	MaxBatchSize         int
	MaxWaitMs            int64
	ConcurrentProcessors int
	ID                   string
	// Singleton defaults to true. A nil value is treated as true; set it
	// explicitly to false to opt a given id out of instance reuse.
	Singleton  *bool
	Processors []notify.Processor
}

func boolPtr(b bool) *bool { return &b }

// Singleton is a convenience constructor for Config.Singleton.
func Singleton(enabled bool) *bool { return boolPtr(enabled) }

func (c Config) singletonOrDefault() bool {
	if c.Singleton == nil {
		return true
	}
	return *c.Singleton
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 100
	}
	if c.MaxWaitMs <= 0 {
		c.MaxWaitMs = 60000
	}
	if c.ConcurrentProcessors <= 0 {
		c.ConcurrentProcessors = 3
	}
	if c.ID == "" {
		c.ID = "default"
	}
	return c
}

func (c Config) waitDuration() time.Duration {
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}

// Batcher is the per-instance batching core described in spec §4.4. Use New
// (in instances.go) to obtain one; it is not constructed directly outside
// the package so that singleton bookkeeping stays centralized.
type Batcher struct {
	cfg    Config
	logger *logrus.Logger

	mu       sync.Mutex
	queues   map[string]*queue.Queue[notify.Message]
	timers   map[string]*time.Timer
	registry *registry.Registry
	destroyed bool

	// asyncWG tracks every dispatch goroutine spawned outside an explicit
	// Flush call (one-shot per-channel timers and size-triggered dispatch)
	// so Destroy can wait for them to drain before tearing down state. The
	// periodic sweep is awaited separately through sweepStopped.
	asyncWG sync.WaitGroup

	sweepTicker  *time.Ticker
	sweepDone    chan struct{}
	sweepStopped chan struct{}
}

func newBatcher(cfg Config, logger *logrus.Logger) *Batcher {
	cfg = cfg.withDefaults()
	reg, errs := registry.New(cfg.Processors...)
	for _, e := range errs {
		logger.WithError(e).Warn("processor rejected while initializing batcher")
	}

	b := &Batcher{
		cfg:          cfg,
		logger:       logger,
		queues:       make(map[string]*queue.Queue[notify.Message]),
		timers:       make(map[string]*time.Timer),
		registry:     reg,
		sweepDone:    make(chan struct{}),
		sweepStopped: make(chan struct{}),
	}
	b.sweepTicker = time.NewTicker(cfg.waitDuration())
	go b.runSweep()
	return b
}

// ID returns the instance key this batcher was registered under.
func (b *Batcher) ID() string { return b.cfg.ID }

// Info appends an info-level message to the default channel.
func (b *Batcher) Info(text string) { b.QueueMessage(text, notify.LevelInfo, nil) }

// Warning appends a warning-level message to the default channel.
func (b *Batcher) Warning(text string) { b.QueueMessage(text, notify.LevelWarning, nil) }

// Error appends an error-level message, optionally carrying error detail, to
// the default channel.
func (b *Batcher) Error(text string, err *notify.ErrorInfo) {
	b.QueueMessage(text, notify.LevelError, err)
}

// QueueMessage is the generic producer entry point; it routes to the
// default channel, matching spec §4.4.
func (b *Batcher) QueueMessage(text string, level notify.Level, err *notify.ErrorInfo) {
	b.Enqueue(notify.DefaultChannel, text, level, err)
}

// Enqueue routes a message to an explicit channel id, extending the default
// producer API per the spec's note that implementations may accept a
// channel id. Producers never observe an error here: dispatch failures
// surface only through Flush/FlushSync/processor-internal logging (§7).
func (b *Batcher) Enqueue(channelID, text string, level notify.Level, err *notify.ErrorInfo) {
	msg := notify.Message{ChannelID: channelID, Text: text, Level: level, Err: err}

	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	q, exists := b.queues[channelID]
	if !exists {
		q = queue.New[notify.Message]()
		b.queues[channelID] = q
	}
	q.Enqueue(msg)
	size := q.Size()
	metrics.QueueDepth.WithLabelValues(channelID).Set(float64(size))

	trigger := size >= b.cfg.MaxBatchSize
	if !trigger {
		if _, armed := b.timers[channelID]; !armed {
			b.armTimerLocked(channelID)
		}
	}
	b.mu.Unlock()

	if trigger {
		b.spawnDispatch(channelID)
	}
}

// armTimerLocked arms the one-shot per-channel timer. Callers must hold mu.
func (b *Batcher) armTimerLocked(channelID string) {
	b.asyncWG.Add(1)
	t := time.AfterFunc(b.cfg.waitDuration(), func() {
		defer b.asyncWG.Done()
		b.dispatchAsync(channelID)
	})
	b.timers[channelID] = t
}

func (b *Batcher) spawnDispatch(channelID string) {
	b.asyncWG.Add(1)
	go func() {
		defer b.asyncWG.Done()
		b.dispatchAsync(channelID)
	}()
}

func (b *Batcher) dispatchAsync(channelID string) {
	batch, procs, ok := b.snapshotChannel(channelID)
	if !ok {
		return
	}
	if err := b.runProcessors(context.Background(), channelID, batch, procs); err != nil {
		b.logger.WithFields(logrus.Fields{"channel": channelID}).WithError(err).
			Error("dispatch completed with processor failures")
	}
}

// snapshotChannel cancels the channel's armed timer (if any), detaches its
// queue as an ordered batch, and captures the processor list registered at
// this instant — all under one lock, so the batch and the processor set
// seen by dispatch are consistent with the invariants in spec §3 and §8.
// It returns ok=false if there is nothing to dispatch.
func (b *Batcher) snapshotChannel(channelID string) ([]notify.Message, []notify.Processor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, armed := b.timers[channelID]; armed {
		if t.Stop() {
			b.asyncWG.Done()
		}
		delete(b.timers, channelID)
	}

	q, exists := b.queues[channelID]
	if !exists {
		return nil, nil, false
	}
	batch := q.Snapshot()
	delete(b.queues, channelID)
	metrics.QueueDepth.WithLabelValues(channelID).Set(0)

	if len(batch) == 0 {
		return nil, nil, false
	}
	return batch, b.registry.List(), true
}

// runProcessors fans batch out to procs, bounding in-flight invocations at
// ConcurrentProcessors (spec §4.4 step 4), and aggregates failures without
// short-circuiting on the first one (step 5).
func (b *Batcher) runProcessors(ctx context.Context, channelID string, batch []notify.Message, procs []notify.Processor) error {
	if len(procs) == 0 {
		return nil
	}

	ctx, span := tracing.StartDispatch(ctx, channelID, len(batch))
	defer span.End()

	batchID := uuid.NewString()
	traceID := dispatchTraceID(batch)
	log := b.logger.WithFields(logrus.Fields{"channel": channelID, "batch_id": batchID, "trace_id": traceID, "batch_size": len(batch)})

	tasks := make([]workerpool.Task, len(procs))
	for i, p := range procs {
		p := p
		tasks[i] = func(ctx context.Context) error {
			if err := p.ProcessBatch(ctx, batch); err != nil {
				return ProcessorFailure{Processor: p.Name(), Err: err}
			}
			return nil
		}
	}
	errs := workerpool.RunBounded(ctx, b.cfg.ConcurrentProcessors, tasks)
	metrics.BatchSize.WithLabelValues(channelID).Observe(float64(len(batch)))

	var failures []ProcessorFailure
	for _, e := range errs {
		if e == nil {
			continue
		}
		var pf ProcessorFailure
		if errors.As(e, &pf) {
			failures = append(failures, pf)
			metrics.ProcessorFailuresTotal.WithLabelValues(pf.Processor).Inc()
			log.WithField("processor", pf.Processor).WithError(pf.Err).Error("Processor failed")
		} else {
			failures = append(failures, ProcessorFailure{Processor: "unknown", Err: e})
		}
	}

	outcome := "success"
	if len(failures) > 0 {
		outcome = "partial_failure"
	}
	metrics.DispatchTotal.WithLabelValues(channelID, outcome).Inc()
	log.WithField("outcome", outcome).Debug("dispatch complete")
	return newDispatchError(failures)
}

// dispatchTraceID derives a short, deterministic id from the batch content
// so repeated test runs and log correlation don't depend on a random
// source. It is a log-correlation aid only, not part of the data model.
func dispatchTraceID(batch []notify.Message) string {
	h := xxhash.New()
	for _, m := range batch {
		fmt.Fprintf(h, "%s|%s|%s|", m.ChannelID, m.Level, m.Text)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// runSweep is the periodic safety net described in spec §4.4: it dispatches
// any non-empty channel independently of per-channel timers, idempotently
// (snapshotChannel is a no-op for channels with nothing queued).
func (b *Batcher) runSweep() {
	defer close(b.sweepStopped)
	for {
		select {
		case <-b.sweepTicker.C:
			b.sweepOnce()
		case <-b.sweepDone:
			return
		}
	}
}

func (b *Batcher) sweepOnce() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.queues))
	for id := range b.queues {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.dispatchAsync(id)
	}
}

// AddProcessor registers p, rejecting a duplicate name with a diagnostic
// (spec §4.3); the registry is left unchanged on rejection.
func (b *Batcher) AddProcessor(p notify.Processor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.registry.AddProcessor(p); err != nil {
		b.logger.WithError(err).Warn("addProcessor rejected")
		return err
	}
	return nil
}

// RemoveProcessor unregisters the processor with the given name.
func (b *Batcher) RemoveProcessor(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.registry.RemoveProcessor(name); err != nil {
		b.logger.WithError(err).Warn("removeProcessor rejected")
		return err
	}
	return nil
}

// RemoveAllProcessors empties the processor registry.
func (b *Batcher) RemoveAllProcessors() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry.RemoveAllProcessors()
}

// Flush asynchronously dispatches every currently non-empty channel and
// blocks until all of those dispatches complete, returning an aggregate
// DispatchError if any processor failed (spec §4.4).
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	ids := make([]string, 0, len(b.queues))
	for id := range b.queues {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	ctx, span := tracing.StartFlush(ctx, len(ids))
	defer span.End()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []ProcessorFailure
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch, procs, ok := b.snapshotChannel(id)
			if !ok {
				return
			}
			err := b.runProcessors(ctx, id, batch, procs)
			if err == nil {
				return
			}
			var de *DispatchError
			if errors.As(err, &de) {
				mu.Lock()
				failures = append(failures, de.Failures...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return newDispatchError(failures)
}

// FlushSync dispatches every non-empty channel without suspending: it
// prefers ProcessBatchSync when a processor implements notify.SyncProcessor,
// and otherwise fires ProcessBatch without waiting for it (spec §4.4). Only
// synchronous failures are captured in the returned error; asynchronous
// ones are logged from their own goroutine.
func (b *Batcher) FlushSync() error {
	b.mu.Lock()
	ids := make([]string, 0, len(b.queues))
	for id := range b.queues {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	var failures []ProcessorFailure
	for _, id := range ids {
		batch, procs, ok := b.snapshotChannel(id)
		if !ok {
			continue
		}
		metrics.BatchSize.WithLabelValues(id).Observe(float64(len(batch)))

		for _, p := range procs {
			if sp, isSync := p.(notify.SyncProcessor); isSync {
				if err := sp.ProcessBatchSync(batch); err != nil {
					failures = append(failures, ProcessorFailure{Processor: p.Name(), Err: err})
					metrics.ProcessorFailuresTotal.WithLabelValues(p.Name()).Inc()
					b.logger.WithField("processor", p.Name()).WithError(err).Error("Processor failed")
				}
				continue
			}

			p := p
			batchCopy := batch
			go func() {
				if err := p.ProcessBatch(context.Background(), batchCopy); err != nil {
					metrics.ProcessorFailuresTotal.WithLabelValues(p.Name()).Inc()
					b.logger.WithField("processor", p.Name()).WithError(err).
						Error("Processor failed (async during flushSync)")
				}
			}()
		}
	}
	return newDispatchError(failures)
}

// Destroy cancels the sweep timer and all armed per-channel timers, waits
// for any already-firing dispatches to finish, performs a final flush,
// clears the registry and all queues, and deregisters this batcher from the
// process-wide instance map. A failed final flush is logged, not returned:
// destroy always completes (spec §4.4, §7).
func (b *Batcher) Destroy(ctx context.Context) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	for id, t := range b.timers {
		if t.Stop() {
			b.asyncWG.Done()
		}
		delete(b.timers, id)
	}
	b.mu.Unlock()

	close(b.sweepDone)
	<-b.sweepStopped
	b.sweepTicker.Stop()

	b.asyncWG.Wait()

	if err := b.Flush(ctx); err != nil {
		b.logger.WithError(err).Error("Error processing remaining messages during destroy")
	}

	b.mu.Lock()
	b.registry.RemoveAllProcessors()
	b.queues = make(map[string]*queue.Queue[notify.Message])
	b.mu.Unlock()

	deregister(b.cfg.ID)
}
