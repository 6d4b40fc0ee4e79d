// Package compositor wires every collaborator package — clock, display,
// swapchain, renderer, scheduler, session, command — into one running
// instance: the per-client Session registry, the shared cross-session
// View Linker and release-fence Signaller, and the Frame Scheduler's
// SessionUpdater/FrameRenderer callbacks (spec §4, §8's end-to-end data
// flow).
//
// This replaces the teacher's engine/engine.go + engine_builder.go
// goroutine/ticker wiring. A display compositor has no fixed-rate game
// logic to drive, so there is no tick loop here: Dispatcher is purely
// reactive, driven by the Scheduler's computed wakeups and whatever
// drives the display.Adapter's vsync (GLFWAdapter's own poll goroutine,
// or display.Simulated.FireVsync in tests).
package compositor

import (
	"fmt"
	"sync"
	"time"

	"github.com/nimbusgfx/compositor/clock"
	"github.com/nimbusgfx/compositor/command"
	"github.com/nimbusgfx/compositor/display"
	"github.com/nimbusgfx/compositor/frame"
	"github.com/nimbusgfx/compositor/gpusync"
	"github.com/nimbusgfx/compositor/profiler"
	"github.com/nimbusgfx/compositor/renderer"
	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/scheduler"
	"github.com/nimbusgfx/compositor/session"
	"github.com/nimbusgfx/compositor/swapchain"
)

// Config collects the Dispatcher's tunables; zero values fall back to
// sensible defaults (DefaultWorkers/DefaultQueueDepth/DefaultIdleTimeout,
// the display adapter's own vsync interval, and the swapchain's ring
// size minus one).
type Config struct {
	VsyncInterval  int64
	MaxOutstanding int
	Workers        int
	QueueDepth     int
	IdleTimeout    time.Duration
}

const (
	DefaultWorkers     = 4
	DefaultQueueDepth  = 64
	DefaultIdleTimeout = 5 * time.Second
)

// Dispatcher owns every live Session, the shared cross-session Linker and
// release-fence Signaller, and the display/swapchain/renderer/scheduler
// chain that turns their scheduled updates into presented frames.
type Dispatcher struct {
	mu sync.Mutex

	display   display.Adapter
	swapchain *swapchain.Swapchain
	backend   renderer.Backend
	applier   *command.Applier
	signaller *gpusync.Signaller
	scheduler *scheduler.Scheduler

	sessions    map[session.ID]*session.Session
	nextSession session.ID

	viewOwners map[scenegraph.ResourceID]session.ID

	compositor *renderer.Compositor
	profiler   *profiler.Profiler
}

// New constructs a Dispatcher around an already-claimed display.Adapter
// and its Swapchain, drawing through backend. clk should be
// clock.NewSystem() in production; tests pass a clock.Manual.
func New(clk clock.Clock, disp display.Adapter, sc *swapchain.Swapchain, backend renderer.Backend, cfg Config) *Dispatcher {
	if cfg.MaxOutstanding <= 0 {
		cfg.MaxOutstanding = sc.RingSize() - 1
		if cfg.MaxOutstanding < 1 {
			cfg.MaxOutstanding = 1
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	linker := scenegraph.NewLinker()
	d := &Dispatcher{
		display:    disp,
		swapchain:  sc,
		backend:    backend,
		applier:    command.NewApplier(linker, cfg.Workers, cfg.QueueDepth, cfg.IdleTimeout),
		signaller:  gpusync.NewSignaller(),
		sessions:   make(map[session.ID]*session.Session),
		viewOwners: make(map[scenegraph.ResourceID]session.ID),
		profiler:   profiler.NewProfiler(),
	}

	vsyncInterval := cfg.VsyncInterval
	if vsyncInterval <= 0 {
		vsyncInterval = disp.VsyncInterval()
	}
	d.scheduler = scheduler.New(clk, d, d, vsyncInterval, disp.LastVsyncTime(), cfg.MaxOutstanding)

	// The swapchain already holds the display adapter's single vsync
	// registration slot (spec §4.3); the scheduler's vsync anchor rides
	// along on the swapchain's OnVsync passthrough rather than
	// re-registering and dropping the swapchain's own handler.
	sc.OnVsync(func(timestamp int64, _ []display.ImageID) {
		d.scheduler.OnVsync(timestamp)
	})

	return d
}

// Scheduler returns the Frame Scheduler driving this Dispatcher, for
// callers that need SetRenderContinuously or SetRequiredRenderTime.
func (d *Dispatcher) Scheduler() *scheduler.Scheduler { return d.scheduler }

// Applier returns the shared command.Applier, for constructing
// Export/Import commands against its Linker.
func (d *Dispatcher) Applier() *command.Applier { return d.applier }

// CreateSession allocates a new Session and registers it with this
// Dispatcher's scheduler and release-fence signaller.
func (d *Dispatcher) CreateSession() *session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSession++
	id := d.nextSession
	s := session.New(id, d.applier, d.scheduler, d.signaller)
	d.sessions[id] = s
	return s
}

// DestroySession removes id from the registry. An update this session
// already handed to the scheduler still drains normally; nothing further
// is dispatched to id afterward.
func (d *Dispatcher) DestroySession(id session.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
}

// RegisterViewNode records that viewNodeID (a View's ViewNode resource)
// belongs to ownerSessionID, so the renderer's composition walk can
// dereference a resolved ViewHolder into the right Session's Table/Graph
// (spec §4.5; see renderer.ViewResolver). Whatever protocol layer brokers
// Export/Import between clients calls this once a link's on_resolved
// callback fires.
func (d *Dispatcher) RegisterViewNode(viewNodeID scenegraph.ResourceID, ownerSessionID session.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewOwners[viewNodeID] = ownerSessionID
}

// ResolveViewNode implements renderer.ViewResolver.
func (d *Dispatcher) ResolveViewNode(id scenegraph.ResourceID) (*scenegraph.Table, *scenegraph.Graph, bool) {
	d.mu.Lock()
	ownerID, ok := d.viewOwners[id]
	if !ok {
		d.mu.Unlock()
		return nil, nil, false
	}
	owner, ok := d.sessions[ownerID]
	d.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	return owner.Table(), owner.Graph(), true
}

// SetRootCompositor designates sessionID's compositorID resource (a
// scenegraph.Compositor or DisplayCompositor) as the scene the renderer
// draws each frame (spec §3's top-level Compositor/Swapchain binding).
func (d *Dispatcher) SetRootCompositor(sessionID session.ID, compositorID scenegraph.ResourceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[sessionID]
	if !ok {
		return fmt.Errorf("compositor: unknown session %d", sessionID)
	}
	d.compositor = renderer.NewCompositor(d.swapchain, d.backend, d, s.Table(), s.Graph(), compositorID)
	return nil
}

// UpdateSessions implements scheduler.SessionUpdater: drain every due
// session's queue up to target, and fire each applied update's present
// callback with the frame's presentation info (spec §4.6).
func (d *Dispatcher) UpdateSessions(sessionsDue []session.ID, frameNumber uint64, target, interval int64) scheduler.UpdateSummary {
	d.mu.Lock()
	due := make([]*session.Session, 0, len(sessionsDue))
	for _, id := range sessionsDue {
		if s, ok := d.sessions[id]; ok {
			due = append(due, s)
		}
	}
	d.mu.Unlock()

	var summary scheduler.UpdateSummary
	for _, s := range due {
		result := s.ApplyScheduledUpdates(target)
		if result.NeedsRender {
			summary.NeedsRender = true
		}
		info := session.PresentationInfo{PresentationTime: target, PresentationInterval: interval}
		for _, cb := range result.PresentCallbacks {
			cb(info)
		}
	}
	return summary
}

// RenderFrame implements scheduler.FrameRenderer, delegating to whichever
// scene graph SetRootCompositor last designated. Nothing is drawn, and
// the frame is reported uncommitted, until a root compositor is set.
func (d *Dispatcher) RenderFrame(timings *frame.Timings, target, interval int64) bool {
	d.mu.Lock()
	c := d.compositor
	d.mu.Unlock()
	if c == nil {
		return false
	}
	committed := c.RenderFrame(timings, target, interval)
	d.profiler.Tick()
	return committed
}

// Close tears down the swapchain (resolving any still-outstanding frame
// as dropped and releasing its images) and unclaims the display.
func (d *Dispatcher) Close() {
	d.swapchain.Teardown()
}
