package livewall

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// effectCounterID is the counter key of a special-effect library entry.
func effectCounterID(index int) string {
	return fmt.Sprintf("effect:%d", index)
}

// CounterTable holds the cumulative completion counts. Counts only grow
// through Inc; Reset is the only way down.
type CounterTable struct {
	counts map[string]int
}

// NewCounterTable creates an empty table.
func NewCounterTable() *CounterTable {
	return &CounterTable{counts: make(map[string]int)}
}

// Inc adds one completion of id and returns the new count.
func (t *CounterTable) Inc(id string) int {
	t.counts[id]++
	return t.counts[id]
}

// Get returns the count of id.
func (t *CounterTable) Get(id string) int {
	return t.counts[id]
}

// Met reports whether every target has reached its threshold. An empty list
// is never met.
func (t *CounterTable) Met(targets []CumulativeTarget) bool {
	if len(targets) == 0 {
		return false
	}
	for _, c := range targets {
		if t.counts[c.ID] < c.Count {
			return false
		}
	}
	return true
}

// Reset sets every referenced counter to zero.
func (t *CounterTable) Reset(targets []CumulativeTarget) {
	for _, c := range targets {
		delete(t.counts, c.ID)
	}
}

// Clear drops every count.
func (t *CounterTable) Clear() {
	t.counts = make(map[string]int)
}

// IDs returns the ids with a non-zero count, sorted.
func (t *CounterTable) IDs() []string {
	ids := maps.Keys(t.counts)
	sort.Strings(ids)
	return ids
}
