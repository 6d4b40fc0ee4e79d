package frame

import (
	"testing"

	"github.com/nimbusgfx/compositor/clock"
)

func presentSingleSwapchain(c *clock.Manual, stats *Stats, frameNum uint64, renderDone, presentTime int64) {
	tm := New(c, frameNum, presentTime, stats.RecordFinalized)
	idx := tm.RegisterSwapchain()
	tm.OnFrameRendered(idx, renderDone)
	tm.OnFramePresented(idx, presentTime)
}

func dropSingleSwapchain(c *clock.Manual, stats *Stats, frameNum uint64) {
	tm := New(c, frameNum, 0, stats.RecordFinalized)
	idx := tm.RegisterSwapchain()
	tm.OnFrameDropped(idx)
}

func TestStatsTracksPresentedAndDroppedCounts(t *testing.T) {
	c := clock.NewManual()
	s := NewStats(c, 1_000_000_000)

	presentSingleSwapchain(c, s, 1, 5, 10)
	presentSingleSwapchain(c, s, 2, 20, 26)
	dropSingleSwapchain(c, s, 3)

	if s.PresentedCount() != 2 {
		t.Fatalf("PresentedCount() = %d, want 2", s.PresentedCount())
	}
	if s.DroppedCount() != 1 {
		t.Fatalf("DroppedCount() = %d, want 1", s.DroppedCount())
	}
}

func TestStatsMaybeLogRespectsInterval(t *testing.T) {
	c := clock.NewManual()
	s := NewStats(c, 100)
	if s.MaybeLog() {
		t.Fatalf("MaybeLog() = true immediately after creation, want false")
	}
	c.Advance(150)
	if !s.MaybeLog() {
		t.Fatalf("MaybeLog() = false after interval elapsed, want true")
	}
	if s.MaybeLog() {
		t.Fatalf("MaybeLog() = true right after logging, want false")
	}
}

func TestRingPercentileOnPartialFill(t *testing.T) {
	r := newRing(10)
	for _, v := range []int64{5, 1, 3} {
		r.push(v)
	}
	if got := r.percentile(0); got != 1 {
		t.Fatalf("percentile(0) = %d, want 1", got)
	}
	if got := r.percentile(1); got != 5 {
		t.Fatalf("percentile(1) = %d, want 5", got)
	}
}

func TestRingWrapsAtCapacity(t *testing.T) {
	r := newRing(3)
	r.push(1)
	r.push(2)
	r.push(3)
	r.push(4) // evicts 1
	got := r.sorted()
	want := []int64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("sorted() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted() = %v, want %v", got, want)
		}
	}
}
