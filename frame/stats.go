package frame

import (
	"log"
	"sort"
	"sync"

	"github.com/nimbusgfx/compositor/clock"
)

const (
	frameHistorySize    = 200
	renderHistorySize   = 50
	droppedHistorySize  = 50
)

// ring is a fixed-capacity circular buffer of int64 samples, the same
// "last N measurements" shape as the teacher profiler's PauseNs scan
// (p.memStats.PauseNs[(gcCount-1)%256]), generalized to arbitrary capacity
// and reuse across three different sample kinds.
type ring struct {
	buf   []int64
	next  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]int64, capacity)}
}

func (r *ring) push(v int64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// sorted returns a sorted copy of the samples currently held.
func (r *ring) sorted() []int64 {
	out := make([]int64, r.count)
	if r.count < len(r.buf) {
		copy(out, r.buf[:r.count])
	} else {
		copy(out, r.buf[r.next:])
		copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *ring) percentile(p float64) int64 {
	s := r.sorted()
	if len(s) == 0 {
		return 0
	}
	idx := int(p * float64(len(s)-1))
	return s[idx]
}

// Stats accumulates rolling presentation statistics (spec §4.9's "Frame
// Stats" aggregate) from finalized Timings: inter-presentation interval,
// render duration, and a short dropped-frame history, logged periodically
// in the style of the teacher's Profiler.Tick.
type Stats struct {
	mu sync.Mutex

	clk clock.Clock

	frameDurations  *ring
	renderDurations *ring
	dropped         *ring // 1 for a dropped frame, 0 for presented, last droppedHistorySize frames

	lastPresentationTime int64
	haveLastPresentation bool

	presentedCount uint64
	droppedCount   uint64

	logInterval int64
	lastLogTime int64
}

// NewStats returns a Stats that logs a summary every logInterval
// nanoseconds of simulated/wall time (per clk), starting from clk.Now().
func NewStats(clk clock.Clock, logInterval int64) *Stats {
	return &Stats{
		clk:             clk,
		frameDurations:  newRing(frameHistorySize),
		renderDurations: newRing(renderHistorySize),
		dropped:         newRing(droppedHistorySize),
		logInterval:     logInterval,
		lastLogTime:     clk.Now(),
	}
}

// RecordFinalized folds a just-finalized Timings into the rolling
// history. Call it from the same onFinalize hook passed to frame.New.
func (s *Stats) RecordFinalized(t *Timings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presented := t.AnyPresented()
	if presented {
		s.presentedCount++
		var latest int64 = TimeUninitialized
		for i := 0; i < t.SwapchainCount(); i++ {
			if pt := t.ActualPresentationTime(i); pt != TimeUninitialized && pt != TimeDropped && pt > latest {
				latest = pt
			}
			if rd := t.RenderDoneTime(i); rd != TimeUninitialized && rd != TimeDropped {
				s.renderDurations.push(rd - t.RenderStartTime())
			}
		}
		if s.haveLastPresentation {
			s.frameDurations.push(latest - s.lastPresentationTime)
		}
		s.lastPresentationTime = latest
		s.haveLastPresentation = true
		s.dropped.push(0)
	} else {
		s.droppedCount++
		s.dropped.push(1)
	}
}

// MaybeLog logs a summary line and resets the logging window if
// logInterval has elapsed since the last log, returning whether it did.
func (s *Stats) MaybeLog() bool {
	s.mu.Lock()
	now := s.clk.Now()
	if now-s.lastLogTime < s.logInterval {
		s.mu.Unlock()
		return false
	}
	s.lastLogTime = now
	presented, droppedRecent := s.presentedCount, s.recentDropRate()
	p50 := s.frameDurations.percentile(0.5)
	p99 := s.frameDurations.percentile(0.99)
	renderP99 := s.renderDurations.percentile(0.99)
	s.mu.Unlock()

	log.Printf("[frame] presented=%d dropRate=%.1f%% frameInterval(p50=%dns p99=%dns) render(p99=%dns)",
		presented, droppedRecent*100, p50, p99, renderP99)
	return true
}

// recentDropRate returns the fraction of dropped frames among the last
// droppedHistorySize finalized frames. Caller must hold mu.
func (s *Stats) recentDropRate() float64 {
	if s.dropped.count == 0 {
		return 0
	}
	var n int64
	for _, v := range s.dropped.sorted() {
		n += v
	}
	return float64(n) / float64(s.dropped.count)
}

// PresentedCount and DroppedCount report lifetime totals, not windowed.
func (s *Stats) PresentedCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presentedCount
}

func (s *Stats) DroppedCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedCount
}
