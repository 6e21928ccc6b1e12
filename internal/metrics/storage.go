// Package metrics implements per-(model,action) latency histograms: bots
// start and stop timers around scripted actions, and a bucket-fold routine
// periodically promotes completed timers into a bounded ring of snapshots
// that the agent core later drains for reporting upstream.
package metrics

import (
	"math/bits"
	"sort"
	"sync"
	"time"

	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// Outcome identifies why an action timer stopped. 0 conventionally means
// success; non-zero values are script-defined error codes.
type Outcome int64

const (
	histBuckets  = 20
	histMaxRes   = 5 * time.Second
	staleTimeout = time.Hour
	snapshotCap  = 60
)

// Histogram accumulates one action outcome's latency distribution, bucketed
// by centiseconds on a power-of-two scale.
type Histogram struct {
	Buckets [histBuckets]uint64
	Sum     uint64
}

// Family maps each observed outcome to its histogram.
type Family map[Outcome]Histogram

func (f Family) clone() Family {
	out := make(Family, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Snapshot is one promoted fold of the running histogram, timestamped by the
// bucket it was folded at.
type Snapshot struct {
	Timestamp time.Time
	Metrics   Family
}

type pendingTimer struct {
	id      uint32
	done    bool
	elapsed time.Duration
	outcome Outcome
}

// Handle identifies one started timer for a later Stop call.
type Handle struct {
	id uint32
	ts time.Time
}

// Storage is one (model, action) pair's timer and histogram state. Safe for
// concurrent use.
type Storage struct {
	mu sync.Mutex

	histogram Family
	pending   map[time.Time][]*pendingTimer

	snapshots    []Snapshot
	lastSnapshot *time.Time
}

// NewStorage returns an empty timer/histogram store.
func NewStorage() *Storage {
	return &Storage{
		histogram: make(Family),
		pending:   make(map[time.Time][]*pendingTimer),
	}
}

// StartTimer opens a new timer at the current instant and returns its
// handle.
func (s *Storage) StartTimer() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	bucket := s.pending[now]
	id := uint32(len(bucket))
	s.pending[now] = append(bucket, &pendingTimer{id: id})
	return Handle{id: id, ts: now}
}

// StopTimer records the outcome of a started timer and folds any histogram
// buckets that are now fully resolved.
func (s *Storage) StopTimer(h Handle, elapsed time.Duration, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.pending[h.ts]
	if !ok {
		return simerr.ErrTimerNotFound
	}
	var timer *pendingTimer
	for _, t := range bucket {
		if t.id == h.id {
			timer = t
			break
		}
	}
	if timer == nil {
		return simerr.ErrTimerNotFound
	}
	timer.done = true
	timer.elapsed = elapsed
	timer.outcome = outcome
	s.processPending()
	return nil
}

// FetchMetrics drains and returns every snapshot accumulated since the last
// call.
func (s *Storage) FetchMetrics() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.snapshots
	s.snapshots = nil
	return out
}

// processPending walks pending timer buckets in timestamp order, folding
// each into the running histogram as soon as every timer in it has
// completed. A bucket older than an hour is folded (and any still-pending
// timer in it dropped with a warning) even if incomplete, so one stuck timer
// can't wedge the whole pipeline. Once a bucket is found that must stay
// pending, every newer bucket is left untouched too, preserving fold order.
func (s *Storage) processPending() {
	keys := make([]time.Time, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	now := time.Now()
	var fstIncomplete *time.Time
	for _, ts := range keys {
		if fstIncomplete != nil && !fstIncomplete.After(ts) {
			continue
		}
		timers := s.pending[ts]
		hasIncomplete := false
		for _, t := range timers {
			if !t.done {
				hasIncomplete = true
				break
			}
		}
		if hasIncomplete && ts.Add(staleTimeout).After(now) {
			tsCopy := ts
			fstIncomplete = &tsCopy
			continue
		}

		for _, t := range timers {
			if !t.done {
				continue
			}
			cs := uint64(t.elapsed.Milliseconds() / 10)
			h := s.histogram[t.outcome]
			h.Buckets[computeBucketIdx(cs)]++
			h.Sum += cs
			s.histogram[t.outcome] = h
		}
		if s.isElapsed(histMaxRes, ts) {
			s.addSnapshot(ts)
		}
		delete(s.pending, ts)
	}
}

func (s *Storage) isElapsed(delta time.Duration, queryTs time.Time) bool {
	if s.lastSnapshot == nil {
		return true
	}
	return s.lastSnapshot.Add(delta).Before(queryTs)
}

func (s *Storage) addSnapshot(ts time.Time) {
	s.snapshots = append(s.snapshots, Snapshot{Timestamp: ts, Metrics: s.histogram.clone()})
	if len(s.snapshots) > snapshotCap {
		s.snapshots = s.snapshots[len(s.snapshots)-snapshotCap:]
	}
	tsCopy := ts
	s.lastSnapshot = &tsCopy
}

// computeBucketIdx maps a centisecond duration onto one of 20 power-of-two
// buckets: 0 is reserved for a zero duration, and bucket i otherwise holds
// values in (2^(i-1), 2^i].
func computeBucketIdx(cs uint64) int {
	if cs == 0 {
		return 0
	}
	idx := 64 - bits.LeadingZeros64(cs-1)
	if idx > histBuckets-1 {
		return histBuckets - 1
	}
	return idx
}
