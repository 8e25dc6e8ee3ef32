package diskstat

import (
	"maps"
	"slices"
	"sync"
)

// Accumulator is the shared, path-keyed store of one traversal run.
//
// Concurrent branches write disjoint keys, and a directory's entry is written only
// after all of its child directories' entries. The mutex exists because Go maps do not
// tolerate concurrent writes even to distinct keys; it does not order anything.
type Accumulator struct {
	mu       sync.RWMutex
	stats    map[string]*Stat
	order    []string
	names    map[string]*NameEntry
	failures []Failure
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		stats: make(map[string]*Stat),
		names: make(map[string]*NameEntry),
	}
}

// putStat stores the statistic for path.
func (a *Accumulator) putStat(path string, stat *Stat) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.stats[path]; !ok {
		a.order = append(a.order, path)
	}

	a.stats[path] = stat
}

// Stat returns the statistic stored for path.
func (a *Accumulator) Stat(path string) (*Stat, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stat, ok := a.stats[path]

	return stat, ok
}

// Stats returns a snapshot of all stored statistics.
func (a *Accumulator) Stats() map[string]*Stat {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return maps.Clone(a.stats)
}

// Order returns the paths of stored statistics in the order they were first written.
func (a *Accumulator) Order() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.order)
}

// putName stores the name-tree entry for path, replacing any previous entry.
func (a *Accumulator) putName(path string, entry *NameEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.names[path] = entry
}

// putNameIfTruncated stores a truncated entry for path unless a more complete entry
// is already known. It reports whether entry was stored.
func (a *Accumulator) putNameIfTruncated(path string, entry *NameEntry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if known, ok := a.names[path]; ok && known.State != StateTruncated {
		return false
	}

	a.names[path] = entry

	return true
}

// Name returns the name-tree entry stored for path.
func (a *Accumulator) Name(path string) (*NameEntry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.names[path]

	return entry, ok
}

// Names returns a snapshot of the indexed name tree.
func (a *Accumulator) Names() map[string]*NameEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return maps.Clone(a.names)
}

func (a *Accumulator) addFailure(failure *Failure) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures = append(a.failures, *failure)
}

// Failures returns the directories that degraded during the run.
func (a *Accumulator) Failures() []Failure {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.failures)
}
