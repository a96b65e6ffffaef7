// Package chapter merges polled broadcast snapshots into chapter boundaries
// and writes them into the finished recording.
package chapter

import (
	"slices"
	"time"

	"github.com/ManuGH/ellier/internal/metrics"
	"github.com/ManuGH/ellier/internal/status"
)

// DefaultWindow is how close in time two same-title observations must be to
// be treated as one chapter.
const DefaultWindow = 60 * time.Second

// Candidate is a chapter start: elapsed time since the session began and the
// broadcast state observed then.
type Candidate struct {
	Elapsed  time.Duration
	Snapshot status.Snapshot
}

// sameKey reports whether two snapshots describe the same chapter.
func sameKey(a, b status.Snapshot) bool {
	return a.Title == b.Title && a.Category.Label() == b.Category.Label()
}

// Result tells how an observation affected the list.
type Result int

const (
	Unchanged Result = iota
	Appended
	Corrected
)

func (r Result) String() string {
	switch r {
	case Appended:
		return "append"
	case Corrected:
		return "correct"
	default:
		return "unchanged"
	}
}

// Tracker owns the ordered chapter candidates of one session. It is not safe
// for concurrent use; the supervisor drives it from a single goroutine.
type Tracker struct {
	window time.Duration
	list   []Candidate
}

// NewTracker returns an empty tracker. A non-positive window selects DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window}
}

// Observe feeds one snapshot taken at elapsed and reports whether the list changed.
func (t *Tracker) Observe(elapsed time.Duration, snap status.Snapshot) bool {
	return t.ObserveResult(elapsed, snap) != Unchanged
}

// ObserveResult is Observe with the kind of change.
//
// Closed snapshots are ignored. Otherwise the oldest candidate within the
// window that carries the same title absorbs the observation: a different
// category overwrites that candidate's category in place. Without such a
// candidate the observation is appended when its title or category differs
// from the latest chapter.
func (t *Tracker) ObserveResult(elapsed time.Duration, snap status.Snapshot) Result {
	res := t.observe(elapsed, snap)
	if res != Unchanged {
		metrics.IncChapterChange(res.String())
	}
	return res
}

func (t *Tracker) observe(elapsed time.Duration, snap status.Snapshot) Result {
	if !snap.Open {
		return Unchanged
	}
	if len(t.list) == 0 {
		t.list = append(t.list, Candidate{Elapsed: elapsed, Snapshot: snap})
		return Appended
	}

	if i := t.oldestInWindow(elapsed, snap.Title); i >= 0 {
		if t.list[i].Snapshot.Category.Label() == snap.Category.Label() {
			return Unchanged
		}
		t.list[i].Snapshot.Category = snap.Category
		t.compact()
		return Corrected
	}

	if sameKey(t.list[len(t.list)-1].Snapshot, snap) {
		return Unchanged
	}
	t.insert(Candidate{Elapsed: elapsed, Snapshot: snap})
	return Appended
}

func (t *Tracker) oldestInWindow(elapsed time.Duration, title string) int {
	found := -1
	for i, c := range t.list {
		if c.Snapshot.Title != title || absDuration(c.Elapsed-elapsed) > t.window {
			continue
		}
		if found < 0 || c.Elapsed < t.list[found].Elapsed {
			found = i
		}
	}
	return found
}

// insert keeps the list sorted; equal elapsed values keep insertion order.
func (t *Tracker) insert(c Candidate) {
	i, _ := slices.BinarySearchFunc(t.list, c.Elapsed, func(e Candidate, target time.Duration) int {
		if e.Elapsed <= target {
			return -1
		}
		return 1
	})
	t.list = slices.Insert(t.list, i, c)
}

// compact drops entries identical to their predecessor, which a category
// correction can produce.
func (t *Tracker) compact() {
	t.list = slices.CompactFunc(t.list, func(a, b Candidate) bool {
		return sameKey(a.Snapshot, b.Snapshot)
	})
}

// Len returns the number of candidates.
func (t *Tracker) Len() int { return len(t.list) }

// Chapters returns a copy of the candidates sorted by elapsed time.
func (t *Tracker) Chapters() []Candidate {
	out := slices.Clone(t.list)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Elapsed < b.Elapsed:
			return -1
		case a.Elapsed > b.Elapsed:
			return 1
		}
		return 0
	})
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
