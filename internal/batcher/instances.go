package batcher

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	instancesMu sync.Mutex
	instances   = make(map[string]*Batcher)
)

// Lookup returns the batcher currently registered under id, if any. It
// exists mainly for tests and diagnostics; production code should hold on
// to the *Batcher returned from New.
func Lookup(id string) (*Batcher, bool) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	b, ok := instances[id]
	return b, ok
}

// New creates or reuses a batcher per the singleton semantics of spec §4.4:
// batchers are keyed by cfg.ID in a process-wide map. If an instance already
// exists for that key, a diagnostic is always logged; if cfg.Singleton is
// also true (the default), the existing instance is returned and cfg is
// otherwise ignored.
func New(cfg Config, logger *logrus.Logger) *Batcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	instancesMu.Lock()
	defer instancesMu.Unlock()

	if existing, ok := instances[cfg.ID]; ok {
		logger.WithField("id", cfg.ID).Warn("batcher instance already exists for this id; factory config for this call may be ignored")
		if cfg.singletonOrDefault() {
			return existing
		}
	}

	b := newBatcher(cfg, logger)
	instances[cfg.ID] = b
	return b
}

func deregister(id string) {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	delete(instances, id)
}
