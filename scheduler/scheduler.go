// Package scheduler implements the Frame Scheduler (spec §4.8): a
// priority queue of per-session requested presentation times, vsync-
// aligned wakeup/target scheduling math, a bounded outstanding-frames
// ring, and the RequestFrame/MaybeRenderFrame/FramePresented state
// machine that ties session updates to renderer submissions.
//
// The teacher has no per-frame scheduling concept of its own (its render
// loop free-runs against a ticker, engine/engine.go's handleRender);
// Scheduler instead follows that loop's single-goroutine, cooperative
// shape — one computed wakeup armed via clock.Clock.ScheduleWakeup rather
// than a ticker, since the core has no fixed tick rate to reset.
package scheduler

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/nimbusgfx/compositor/clock"
	"github.com/nimbusgfx/compositor/frame"
	"github.com/nimbusgfx/compositor/session"
)

// DefaultRequiredRenderTimeNanos is the scheduling math's hard-coded
// predicted render cost (spec §4.8: "implementation may hard-code ~8ms").
const DefaultRequiredRenderTimeNanos int64 = 8_000_000

// RequiredRenderTimeFunc predicts the wall-clock cost, in nanoseconds, of
// rendering and submitting the next frame. Spec §4.8 requires this to be
// a function rather than a constant, for future tuning (e.g. from a
// rolling render-time average).
type RequiredRenderTimeFunc func() int64

// UpdateSummary reports whether draining a sessions_due batch produced
// anything new to draw (spec §4.8 step 2).
type UpdateSummary struct {
	NeedsRender bool
}

// SessionUpdater drains every due session's scheduled command and
// ImagePipe updates up to target (spec §4.6), aggregating whether any of
// them changed the scene.
type SessionUpdater interface {
	UpdateSessions(sessionsDue []session.ID, frameNumber uint64, target, interval int64) UpdateSummary
}

// FrameRenderer submits one frame's draw work. true means it was
// committed and the timings will eventually finalize; false means
// nothing was drawn, and the frame is not counted as outstanding (spec
// §6, §7's "Render failure").
type FrameRenderer interface {
	RenderFrame(timings *frame.Timings, target, interval int64) bool
}

type queueEntry struct {
	sessionID     session.ID
	requestedTime int64
}

// requestHeap is a container/heap min-heap by requestedTime, following
// the same pattern as session's imagePipeHeap.
type requestHeap []queueEntry

func (h requestHeap) Len() int           { return len(h) }
func (h requestHeap) Less(i, j int) bool { return h[i].requestedTime < h[j].requestedTime }
func (h requestHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) { *h = append(*h, x.(queueEntry)) }

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler implements spec §4.8's Frame Scheduler. It satisfies
// session.Scheduler, so Sessions notify it directly as their updates'
// acquire fences become ready.
type Scheduler struct {
	mu sync.Mutex

	clk      clock.Clock
	updater  SessionUpdater
	renderer FrameRenderer

	requiredRenderTime RequiredRenderTimeFunc

	vsyncInterval int64
	lastVsync     int64

	queue requestHeap

	maxOutstanding int
	outstanding    []*frame.Timings

	renderContinuously bool
	renderPending      bool
	currentlyRendering bool

	frameNumber uint64

	hasPendingWakeup bool
	pendingTarget    int64
	pendingWakeup    int64
	cancelWakeup     func()
}

// New constructs a Scheduler. vsyncInterval and initialVsync anchor the
// scheduling math; maxOutstanding bounds the outstanding-frames ring
// (spec §8: "≤ N−1 frames rendered-but-not-presented" for a swapchain of
// ring size N, so pass the swapchain's RingSize()-1, or any small
// constant for a renderer without a ring of its own).
func New(clk clock.Clock, updater SessionUpdater, renderer FrameRenderer, vsyncInterval, initialVsync int64, maxOutstanding int) *Scheduler {
	return &Scheduler{
		clk:                clk,
		updater:            updater,
		renderer:           renderer,
		requiredRenderTime: func() int64 { return DefaultRequiredRenderTimeNanos },
		vsyncInterval:      vsyncInterval,
		lastVsync:          initialVsync,
		maxOutstanding:     maxOutstanding,
	}
}

// SetRequiredRenderTime overrides the predicted per-frame render cost
// used by the scheduling math.
func (s *Scheduler) SetRequiredRenderTime(f RequiredRenderTimeFunc) {
	s.mu.Lock()
	s.requiredRenderTime = f
	s.mu.Unlock()
}

// OnVsync updates the scheduler's vsync anchor; wired to the display
// adapter's vsync callback alongside the swapchain's own.
func (s *Scheduler) OnVsync(timestamp int64) {
	s.mu.Lock()
	s.lastVsync = timestamp
	s.mu.Unlock()
}

// SetRenderContinuously toggles auto-requesting a new frame as soon as
// the previous one finalizes (spec §4.8's render_continuously flag).
// Enabling it immediately requests a frame. Disabling it only stops
// future auto-requests — it does not cancel an already-armed wakeup
// (spec §4.8 Cancellation: "There is no per-frame cancellation API").
func (s *Scheduler) SetRenderContinuously(v bool) {
	s.mu.Lock()
	s.renderContinuously = v
	s.mu.Unlock()
	if v {
		s.requestFrame()
	}
}

// Outstanding returns the number of frames submitted to the renderer but
// not yet finalized.
func (s *Scheduler) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// ScheduleUpdateForSession implements session.Scheduler: a Session calls
// this once an update's acquire fences are all ready, asking to be
// serviced no later than requestedPresentationTime.
func (s *Scheduler) ScheduleUpdateForSession(requestedPresentationTime int64, sessionID session.ID) {
	s.mu.Lock()
	heap.Push(&s.queue, queueEntry{sessionID: sessionID, requestedTime: requestedPresentationTime})
	s.mu.Unlock()
	s.requestFrame()
}

// schedulingMath computes (target, wakeup) for requested given the
// scheduler's vsync anchor, interval, now, and predicted render cost
// (spec §4.8's scheduling math).
func schedulingMath(requested, lastVsync, vsyncInterval, now, requiredRenderTime int64) (target, wakeup int64) {
	intervals := int64(1)
	if requested > lastVsync {
		intervals += (requested - lastVsync - 1) / vsyncInterval
	}
	target = lastVsync + intervals*vsyncInterval
	wakeup = target - requiredRenderTime
	for requiredRenderTime > target {
		target += vsyncInterval
		wakeup = target - requiredRenderTime
	}
	for wakeup < now {
		target += vsyncInterval
		wakeup += vsyncInterval
	}
	return target, wakeup
}

// requestFrame implements spec §4.8's RequestFrame: recompute (target,
// wakeup) from the queue's earliest requested time (or, with an empty
// queue while a render is pending or continuous rendering is on, from the
// earliest reachable vsync), and re-arm the pending wakeup only if none is
// scheduled or the new one lands earlier.
func (s *Scheduler) requestFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	requested := int64(0)
	if len(s.queue) > 0 {
		requested = s.queue[0].requestedTime
	} else if !s.renderPending && !s.renderContinuously {
		return
	}
	now := s.clk.Now()
	target, wakeup := schedulingMath(requested, s.lastVsync, s.vsyncInterval, now, s.requiredRenderTime())

	if s.hasPendingWakeup && wakeup >= s.pendingWakeup {
		return
	}
	if s.cancelWakeup != nil {
		s.cancelWakeup()
	}
	s.pendingTarget = target
	s.pendingWakeup = wakeup
	s.hasPendingWakeup = true
	s.cancelWakeup = s.clk.ScheduleWakeup(wakeup, func() { s.maybeRenderFrame(target) })
}

// maybeRenderFrame implements spec §4.8's MaybeRenderFrame: drain every
// session due by target, render if warranted, and re-request if the
// queue is still non-empty afterward.
func (s *Scheduler) maybeRenderFrame(target int64) {
	s.mu.Lock()
	s.hasPendingWakeup = false
	s.cancelWakeup = nil

	var sessionsDue []session.ID
	seen := make(map[session.ID]bool)
	for len(s.queue) > 0 && s.queue[0].requestedTime < target {
		e := heap.Pop(&s.queue).(queueEntry)
		if !seen[e.sessionID] {
			seen[e.sessionID] = true
			sessionsDue = append(sessionsDue, e.sessionID)
		}
	}
	frameNumber := s.frameNumber + 1
	currentlyRendering := s.currentlyRendering
	renderPending := s.renderPending
	renderContinuously := s.renderContinuously
	interval := s.vsyncInterval
	s.mu.Unlock()

	summary := s.updater.UpdateSessions(sessionsDue, frameNumber, target, interval)

	if !summary.NeedsRender && !renderPending && !renderContinuously {
		return
	}
	if currentlyRendering {
		s.mu.Lock()
		s.renderPending = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if len(s.outstanding) >= s.maxOutstanding {
		s.mu.Unlock()
		panic(fmt.Sprintf("scheduler: outstanding frame count %d reached max %d", len(s.outstanding), s.maxOutstanding))
	}
	s.frameNumber = frameNumber
	s.mu.Unlock()

	timings := frame.New(s.clk, frameNumber, target, s.onFrameFinalized)
	committed := s.renderer.RenderFrame(timings, target, interval)

	s.mu.Lock()
	if committed {
		s.outstanding = append(s.outstanding, timings)
		s.currentlyRendering = true
		s.renderPending = false
	}
	queueNonEmpty := len(s.queue) > 0
	s.mu.Unlock()

	if queueNonEmpty {
		s.requestFrame()
	}
}

// onFrameFinalized implements spec §4.8's "On FramePresented": pop the
// oldest outstanding frame, asserting it is the one that just finalized
// (out-of-order finalization indicates broken vsync timestamping and is
// fatal, spec §7), and re-request a frame if one is pending or
// continuous rendering is on.
func (s *Scheduler) onFrameFinalized(t *frame.Timings) {
	s.mu.Lock()
	if len(s.outstanding) == 0 || s.outstanding[0] != t {
		s.mu.Unlock()
		panic("scheduler: frame finalized out of order")
	}
	s.outstanding = s.outstanding[1:]
	s.currentlyRendering = false
	renderPending := s.renderPending
	renderContinuously := s.renderContinuously
	s.mu.Unlock()

	if renderPending || renderContinuously {
		s.requestFrame()
	}
}
