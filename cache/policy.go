package cache

import (
	"sort"
	"time"
)

// Entry describes one published artifact.
type Entry struct {
	Key     Key
	Path    string
	Size    int64
	ModTime time.Time
}

// Evictor selects artifacts to delete. The core treats storage as
// unbounded; eviction only happens when an Evictor is run explicitly.
type Evictor interface {
	// Evict returns the keys to delete from entries.
	Evict(entries []Entry, now time.Time) []Key
}

// RetentionPolicy configures artifact eviction.
type RetentionPolicy struct {
	// MaxAge evicts artifacts published longer ago than this.
	// If zero, artifacts never expire by age.
	MaxAge time.Duration

	// MaxEntries keeps at most this many artifacts, evicting the oldest.
	// If zero, no count limit is enforced.
	MaxEntries int
}

// DefaultRetentionPolicy returns the default retention policy.
// MaxAge: 7 days, MaxEntries: unlimited
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxAge: 7 * 24 * time.Hour,
	}
}

// UnboundedRetention returns a policy that never evicts.
func UnboundedRetention() RetentionPolicy {
	return RetentionPolicy{}
}

// Bounded returns true if this policy can evict anything.
func (p RetentionPolicy) Bounded() bool {
	return p.MaxAge > 0 || p.MaxEntries > 0
}

// Evict applies the age limit first, then the count limit on what remains.
func (p RetentionPolicy) Evict(entries []Entry, now time.Time) []Key {
	if !p.Bounded() {
		return nil
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ModTime.After(sorted[j].ModTime)
	})

	var evicted []Key
	kept := 0
	for _, e := range sorted {
		switch {
		case p.MaxAge > 0 && now.Sub(e.ModTime) > p.MaxAge:
			evicted = append(evicted, e.Key)
		case p.MaxEntries > 0 && kept >= p.MaxEntries:
			evicted = append(evicted, e.Key)
		default:
			kept++
		}
	}
	return evicted
}

// Ensure RetentionPolicy implements Evictor
var _ Evictor = RetentionPolicy{}
