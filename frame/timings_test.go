package frame

import (
	"testing"

	"github.com/nimbusgfx/compositor/clock"
)

func TestTimingsFinalizesAfterAllSwapchainsResolve(t *testing.T) {
	c := clock.NewManual()
	finalized := 0
	tm := New(c, 1, 1000, func(*Timings) { finalized++ })

	a := tm.RegisterSwapchain()
	b := tm.RegisterSwapchain()

	tm.OnFrameRendered(a, 100)
	tm.OnFramePresented(a, 110)
	if finalized != 0 {
		t.Fatalf("finalized after only 1 of 2 swapchains resolved")
	}

	tm.OnFrameRendered(b, 120)
	tm.OnFramePresented(b, 130)
	if finalized != 1 {
		t.Fatalf("finalized = %d, want 1", finalized)
	}
}

func TestTimingsFinalizeOnlyFiresOnce(t *testing.T) {
	c := clock.NewManual()
	finalized := 0
	tm := New(c, 1, 1000, func(*Timings) { finalized++ })
	idx := tm.RegisterSwapchain()
	tm.OnFrameDropped(idx)
	tm.OnFrameDropped(idx)
	if finalized != 1 {
		t.Fatalf("finalized = %d, want 1", finalized)
	}
}

func TestTimingsDroppedBackfillsRenderDoneTime(t *testing.T) {
	c := clock.NewManual()
	tm := New(c, 1, 1000, func(*Timings) {})
	idx := tm.RegisterSwapchain()
	tm.OnFrameDropped(idx)
	if tm.RenderDoneTime(idx) != TimeDropped {
		t.Fatalf("RenderDoneTime = %d, want TimeDropped", tm.RenderDoneTime(idx))
	}
	if !tm.Dropped(idx) {
		t.Fatalf("Dropped(idx) = false, want true")
	}
	if tm.AnyPresented() {
		t.Fatalf("AnyPresented() = true, want false")
	}
}

func TestTimingsAnyPresentedWithMixedSwapchains(t *testing.T) {
	c := clock.NewManual()
	tm := New(c, 1, 1000, func(*Timings) {})
	a := tm.RegisterSwapchain()
	b := tm.RegisterSwapchain()
	tm.OnFrameDropped(a)
	tm.OnFrameRendered(b, 50)
	tm.OnFramePresented(b, 60)
	if !tm.AnyPresented() {
		t.Fatalf("AnyPresented() = false, want true (swapchain b presented)")
	}
}
