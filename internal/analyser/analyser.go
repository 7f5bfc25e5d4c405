// Package analyser groups observed packets by structural signature and
// accumulates per-group statistics. A single mutex serializes all
// mutations to the group map; snapshots are deep enough copies that
// readers never see a torn group.
package analyser

import (
	"sort"
	"sync"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// Config controls retention of per-group packet history.
type Config struct {
	// MaxHistoryPerGroup bounds the number of packets retained in a
	// group's All slice. 0 means unbounded. Count and LastSeen always
	// reflect the true totals regardless of eviction.
	MaxHistoryPerGroup int
}

// Group is one structural bucket of observed packets.
type Group struct {
	Signature string
	Count     uint64
	FirstSeen time.Time
	LastSeen  time.Time
	Example   nasa.Packet
	All       []nasa.Packet
}

// Stats summarizes the analyser's current state.
type Stats struct {
	Total        uint64
	UniqueGroups int
}

// Analyser groups decoded packets by signature and tracks counts and
// first/last timestamps per signature.
type Analyser struct {
	cfg Config

	mu     sync.Mutex
	total  uint64
	groups map[string]*Group
	order  []string // preserves first-seen insertion order for stable iteration
}

// New creates an empty Analyser.
func New(cfg Config) *Analyser {
	return &Analyser{
		cfg:    cfg,
		groups: make(map[string]*Group),
	}
}

// Observe records one decoded packet, creating its group on first
// sighting of a signature.
func (a *Analyser) Observe(p nasa.Packet) {
	sig := p.Signature()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++

	g, ok := a.groups[sig]
	if !ok {
		g = &Group{
			Signature: sig,
			FirstSeen: p.Timestamp,
			Example:   p,
		}
		a.groups[sig] = g
		a.order = append(a.order, sig)
	}

	g.Count++
	g.LastSeen = p.Timestamp
	g.All = append(g.All, p)
	if a.cfg.MaxHistoryPerGroup > 0 && len(g.All) > a.cfg.MaxHistoryPerGroup {
		evict := len(g.All) - a.cfg.MaxHistoryPerGroup
		g.All = g.All[evict:]
	}
}

// Stats returns the total observed count and unique-group count.
func (a *Analyser) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Total: a.total, UniqueGroups: len(a.groups)}
}

// Snapshot returns a consistent, independently-owned copy of all groups,
// sorted by count descending, ties broken by first-seen ascending. Each
// returned Group's All slice is a fresh copy so callers cannot observe
// a torn read of an in-progress Observe.
func (a *Analyser) Snapshot() []Group {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Group, 0, len(a.groups))
	for _, sig := range a.order {
		g := a.groups[sig]
		cp := *g
		cp.All = append([]nasa.Packet(nil), g.All...)
		out = append(out, cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// Seed installs a previously observed group's summary statistics without
// going through Observe's count-by-one bookkeeping. It is used only by
// the best-effort checkpoint restore at startup to warm-start group
// statistics across a process restart; the retained All history is
// intentionally not restored. A signature already present is left
// untouched.
func (a *Analyser) Seed(sig string, count uint64, firstSeen, lastSeen time.Time, example nasa.Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.groups[sig]; ok {
		return
	}
	g := &Group{
		Signature: sig,
		Count:     count,
		FirstSeen: firstSeen,
		LastSeen:  lastSeen,
		Example:   example,
	}
	a.groups[sig] = g
	a.order = append(a.order, sig)
	a.total += count
}

// Reset clears all groups and resets counters.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = 0
	a.groups = make(map[string]*Group)
	a.order = nil
}
