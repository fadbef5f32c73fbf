package monitor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/akulikov/tickwatch/internal/domain"
)

// idLength is the number of UUID characters used for monitor ids. Short ids
// keep log lines and audit rows readable; uniqueness is re-checked against
// the live set on allocation.
const idLength = 8

// Registry owns the set of active monitored instruments, keyed by generated
// id. It is safe for concurrent use from multiple tick-delivery goroutines
// and the caller.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Instrument
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Instrument)}
}

// Create validates the arguments, allocates a fresh id, and stores a new
// monitored instrument. The entry starts in the ready state.
func (r *Registry) Create(ref domain.InstrumentRef, target, threshold float64, side domain.Side) (*Instrument, error) {
	if ref.Empty() {
		return nil, fmt.Errorf("monitor: empty instrument reference: %w", domain.ErrInvalidArgument)
	}
	if target <= 0 {
		return nil, fmt.Errorf("monitor: target price %.4f must be positive: %w", target, domain.ErrInvalidArgument)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("monitor: alert threshold %.4f must not be negative: %w", threshold, domain.ErrInvalidArgument)
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return nil, fmt.Errorf("monitor: side %q: %w", side, domain.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		id = uuid.NewString()[:idLength]
		if _, taken := r.entries[id]; !taken {
			break
		}
	}

	inst := newInstrument(id, ref, target, threshold, side)
	r.entries[id] = inst
	return inst, nil
}

// Get returns the live entry for id.
func (r *Registry) Get(id string) (*Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.entries[id]
	return inst, ok
}

// Remove deletes the entry for id and marks it so in-flight ticks become
// no-ops. Removing an unknown id is a no-op; the return value reports whether
// an entry existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	inst, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		inst.markRemoved()
	}
	return ok
}

// RemoveAll deletes every entry and returns the removed ids.
func (r *Registry) RemoveAll() []string {
	r.mu.Lock()
	removed := make([]*Instrument, 0, len(r.entries))
	ids := make([]string, 0, len(r.entries))
	for id, inst := range r.entries {
		removed = append(removed, inst)
		ids = append(ids, id)
	}
	r.entries = make(map[string]*Instrument)
	r.mu.Unlock()

	for _, inst := range removed {
		inst.markRemoved()
	}
	return ids
}

// ListAll returns a point-in-time snapshot of every monitored instrument.
// Mutations after the call do not affect the returned slice.
func (r *Registry) ListAll() []domain.MonitorSnapshot {
	r.mu.RLock()
	entries := make([]*Instrument, 0, len(r.entries))
	for _, inst := range r.entries {
		entries = append(entries, inst)
	}
	r.mu.RUnlock()

	snaps := make([]domain.MonitorSnapshot, 0, len(entries))
	for _, inst := range entries {
		snaps = append(snaps, inst.Snapshot())
	}
	return snaps
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
