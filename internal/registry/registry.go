// Package registry implements the batcher's processor registry: a
// unique-name, insertion-ordered set of notify.Processor, as described in
// spec §4.3. Configuration errors (duplicate name, missing name) are
// reported as a diagnostic return value rather than a panic — callers
// decide whether and how to log it.
package registry

import (
	"fmt"

	"notifyhub/pkg/notify"
)

// Registry is not safe for concurrent use on its own; the batcher guards it
// with its own mutex alongside the channel queue map, since add/remove can
// race with a dispatch enumerating processors.
type Registry struct {
	order []string
	byName map[string]notify.Processor
}

// New returns an empty registry, optionally seeded with an initial set.
// Duplicate names in the initial set are rejected the same way a later
// AddProcessor call would be, keeping the two entry points consistent.
func New(initial ...notify.Processor) (*Registry, []error) {
	r := &Registry{byName: make(map[string]notify.Processor)}
	var errs []error
	for _, p := range initial {
		if err := r.AddProcessor(p); err != nil {
			errs = append(errs, err)
		}
	}
	return r, errs
}

// AddProcessor registers p. It returns a diagnostic error (and leaves the
// registry unchanged) if a processor with the same name is already
// registered.
func (r *Registry) AddProcessor(p notify.Processor) error {
	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("processor %q already registered", name)
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	return nil
}

// RemoveProcessor unregisters the processor with the given name. It returns
// a diagnostic error if no such processor is registered.
func (r *Registry) RemoveProcessor(name string) error {
	if _, exists := r.byName[name]; !exists {
		return fmt.Errorf("processor %q not registered", name)
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveAllProcessors empties the registry.
func (r *Registry) RemoveAllProcessors() {
	r.order = nil
	r.byName = make(map[string]notify.Processor)
}

// List returns registered processors in insertion order. The returned slice
// is a fresh copy safe for the caller to range over without affecting
// subsequent Add/Remove calls.
func (r *Registry) List() []notify.Processor {
	out := make([]notify.Processor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports the number of registered processors.
func (r *Registry) Len() int {
	return len(r.order)
}
