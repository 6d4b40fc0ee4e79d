// Package frame tracks the lifecycle of a single scheduled frame
// (FrameTimings, spec §4.9) and rolling presentation statistics
// (FrameStats), grounded on the teacher's engine/profiler sampling-ring
// pattern.
package frame

import (
	"sync"

	"github.com/nimbusgfx/compositor/clock"
)

// TimeUninitialized marks a timestamp field that has not yet been recorded.
const TimeUninitialized int64 = -1

// TimeDropped marks a timestamp field for a frame, or a per-swapchain
// record within one, that was dropped rather than rendered/presented.
const TimeDropped int64 = -2

// record is the per-swapchain-registration bookkeeping within one Timings:
// a frame drawn into more than one swapchain (spec allows multiple displays)
// resolves independently for each.
type record struct {
	renderDoneTime         int64
	actualPresentationTime int64
}

// Timings is one frame's timing record from request through every
// registered swapchain's resolution (spec §4.9). A frame starts
// unresolved; RegisterSwapchain reserves a slot for each swapchain it is
// drawn into, and the frame finalizes — firing onFinalize exactly once —
// the moment every reserved slot has either presented or been dropped.
type Timings struct {
	mu sync.Mutex

	clk clock.Clock

	frameNumber               uint64
	requestedPresentationTime int64
	renderStartTime           int64

	records []record

	finalizeOnce sync.Once
	onFinalize   func(*Timings)
}

// New creates a Timings for frameNumber, targeting requestedPresentationTime,
// with renderStartTime stamped from clk.Now(). onFinalize fires once (from
// inside whichever OnFramePresented/OnFrameDropped call resolves the last
// registered swapchain) and must not block.
func New(clk clock.Clock, frameNumber uint64, requestedPresentationTime int64, onFinalize func(*Timings)) *Timings {
	return &Timings{
		clk:                       clk,
		frameNumber:               frameNumber,
		requestedPresentationTime: requestedPresentationTime,
		renderStartTime:           clk.Now(),
		onFinalize:                onFinalize,
	}
}

// Clock exposes the frame's clock's current time, for callers (the
// swapchain) that need "now" but don't otherwise hold a clock.Clock.
func (t *Timings) Clock() int64 { return t.clk.Now() }

// RegisterSwapchain reserves a new per-swapchain slot, returning its index
// for later OnFrameRendered/OnFramePresented/OnFrameDropped calls.
func (t *Timings) RegisterSwapchain() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record{
		renderDoneTime:         TimeUninitialized,
		actualPresentationTime: TimeUninitialized,
	})
	return len(t.records) - 1
}

// OnFrameRendered records when the GPU work for swapchain slot idx
// finished. It does not by itself resolve the slot — presentation
// (OnFramePresented) or a drop (OnFrameDropped) does.
func (t *Timings) OnFrameRendered(idx int, when int64) {
	t.mu.Lock()
	t.records[idx].renderDoneTime = when
	t.mu.Unlock()
}

// OnFramePresented records that swapchain slot idx was actually scanned
// out at when, resolving the slot, and finalizes the frame if it was the
// last unresolved slot.
func (t *Timings) OnFramePresented(idx int, when int64) {
	t.mu.Lock()
	t.records[idx].actualPresentationTime = when
	t.mu.Unlock()
	t.tryFinalize()
}

// OnFrameDropped marks swapchain slot idx as dropped — never scanned out —
// resolving the slot. If no render-done time was recorded either, it is
// backfilled with TimeDropped so no field is left TimeUninitialized on a
// finalized frame.
func (t *Timings) OnFrameDropped(idx int) {
	t.mu.Lock()
	if t.records[idx].renderDoneTime == TimeUninitialized {
		t.records[idx].renderDoneTime = TimeDropped
	}
	t.records[idx].actualPresentationTime = TimeDropped
	t.mu.Unlock()
	t.tryFinalize()
}

func (t *Timings) tryFinalize() {
	t.mu.Lock()
	resolved := len(t.records) > 0
	for _, r := range t.records {
		if r.actualPresentationTime == TimeUninitialized {
			resolved = false
			break
		}
	}
	t.mu.Unlock()
	if resolved {
		t.finalizeOnce.Do(func() {
			if t.onFinalize != nil {
				t.onFinalize(t)
			}
		})
	}
}

// FrameNumber returns the monotonically increasing frame number assigned
// by the scheduler.
func (t *Timings) FrameNumber() uint64 { return t.frameNumber }

// RequestedPresentationTime returns the time the caller asked this frame
// to land on screen.
func (t *Timings) RequestedPresentationTime() int64 { return t.requestedPresentationTime }

// RenderStartTime returns when rendering for this frame began.
func (t *Timings) RenderStartTime() int64 { return t.renderStartTime }

// SwapchainCount returns the number of registered swapchain slots.
func (t *Timings) SwapchainCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// RenderDoneTime returns slot idx's recorded render-done time, or
// TimeUninitialized/TimeDropped.
func (t *Timings) RenderDoneTime(idx int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records[idx].renderDoneTime
}

// ActualPresentationTime returns slot idx's recorded presentation time, or
// TimeUninitialized/TimeDropped.
func (t *Timings) ActualPresentationTime(idx int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records[idx].actualPresentationTime
}

// Dropped reports whether slot idx resolved as dropped rather than
// presented.
func (t *Timings) Dropped(idx int) bool {
	return t.ActualPresentationTime(idx) == TimeDropped
}

// AnyPresented reports whether at least one registered swapchain slot
// presented this frame — a frame counts as "presented" overall if any of
// its swapchains did, per spec §4.9.
func (t *Timings) AnyPresented() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.actualPresentationTime != TimeUninitialized && r.actualPresentationTime != TimeDropped {
			return true
		}
	}
	return false
}
