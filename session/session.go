// Package session implements the per-client resource map and scheduled
// update queue described in spec §4.6: a Session owns a resource table, a
// FIFO of pending updates gated on acquire fences, and a min-heap of
// scheduled ImagePipe image swaps, and applies both against its resource
// map once their target presentation time has arrived.
//
// The teacher has no equivalent of a client session — its engine owns one
// resource registry for the process lifetime (engine/scene/scene.go's
// registry map). Session adapts that "map of live things plus pending
// mutation queue" shape to a client-scoped, FIFO-ordered protocol instead
// of the teacher's immediate Add/Remove calls.
package session

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/nimbusgfx/compositor/gpusync"
	"github.com/nimbusgfx/compositor/scenegraph"
)

// ID identifies a Session within a Dispatcher.
type ID uint64

// ErrOutOfOrderPresent is returned by ScheduleUpdate when the requested
// presentation time regresses behind the last applied update or the back
// of the pending queue (spec §4.6).
var ErrOutOfOrderPresent = errors.New("session: requested presentation time is out of order")

// ErrSessionDestroyed is returned by ScheduleUpdate once a prior apply
// failure has torn the session down.
var ErrSessionDestroyed = errors.New("session: session already destroyed")

// PresentationInfo is handed to a present callback once its update's
// frame actually presents.
type PresentationInfo struct {
	PresentationTime     int64
	PresentationInterval int64
}

// Command is one parsed, type-checked protocol operation, applied against
// a Session's resource table and scene graph by a CommandApplier. Concrete
// Command implementations live in the command package; Session only needs
// the interface to stay free of a dependency cycle (the applier depends
// on Session, not the reverse).
type Command interface {
	// Apply executes the command against the session's resource map and
	// scene graph, returning an error that aborts the whole containing
	// update on the first failure (spec §4.7).
	Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID ID) error
}

// CommandApplier applies a batch of commands belonging to a single
// update, in order, stopping at the first error.
type CommandApplier interface {
	Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID ID, commands []Command) error
}

// Scheduler is the subset of the frame scheduler a Session needs to
// notify once an update's acquire fences are all ready: schedule_update_
// for_session from spec §4.6.
type Scheduler interface {
	ScheduleUpdateForSession(requestedPresentationTime int64, sessionID ID)
}

type pendingUpdate struct {
	requestedTime   int64
	commands        []Command
	releaseEvents   []*gpusync.Fence
	presentCallback func(PresentationInfo)
	ready           bool
}

// Session owns one client's resource map, scheduled-update FIFO, and
// ImagePipe update heap.
type Session struct {
	mu sync.Mutex

	id        ID
	table     *scenegraph.Table
	graph     *scenegraph.Graph
	applier   CommandApplier
	scheduler Scheduler
	signaller *gpusync.Signaller

	queue                       []*pendingUpdate
	lastAppliedPresentationTime int64
	pendingReleaseEvents        []*gpusync.Fence
	destroyed                   bool

	pipes imagePipeHeap
}

// New constructs a Session. signaller is the shared release-fence
// signaller (spec §4.2) that release events are staged into as each
// update is superseded by the next.
func New(id ID, applier CommandApplier, scheduler Scheduler, signaller *gpusync.Signaller) *Session {
	tb := scenegraph.NewTable()
	return &Session{
		id:        id,
		table:     tb,
		graph:     scenegraph.NewGraph(tb),
		applier:   applier,
		scheduler: scheduler,
		signaller: signaller,
	}
}

// ID returns the session's identifier.
func (s *Session) ID() ID { return s.id }

// Table returns the session's resource map.
func (s *Session) Table() *scenegraph.Table { return s.table }

// Graph returns the session's scene graph.
func (s *Session) Graph() *scenegraph.Graph { return s.graph }

// ScheduleUpdate enqueues a batch of commands to apply no earlier than
// requestedPresentationTime, once acquireFences all signal. releaseEvents
// are staged to be handed to the release-fence signaller once this
// update is superseded by the next applied one (spec §4.2, §4.6).
func (s *Session) ScheduleUpdate(requestedPresentationTime int64, commands []Command, acquireFences []*gpusync.Fence, releaseEvents []*gpusync.Fence, presentCallback func(PresentationInfo)) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSessionDestroyed
	}

	minAllowed := s.lastAppliedPresentationTime
	if n := len(s.queue); n > 0 && s.queue[n-1].requestedTime > minAllowed {
		minAllowed = s.queue[n-1].requestedTime
	}
	if requestedPresentationTime < minAllowed {
		s.mu.Unlock()
		return ErrOutOfOrderPresent
	}

	u := &pendingUpdate{
		requestedTime:   requestedPresentationTime,
		commands:        commands,
		releaseEvents:   releaseEvents,
		presentCallback: presentCallback,
		ready:           len(acquireFences) == 0,
	}
	s.queue = append(s.queue, u)
	s.mu.Unlock()

	if len(acquireFences) == 0 {
		if s.scheduler != nil {
			s.scheduler.ScheduleUpdateForSession(requestedPresentationTime, s.id)
		}
		return nil
	}

	newFenceSetListener(acquireFences, func() {
		s.mu.Lock()
		u.ready = true
		destroyed := s.destroyed
		s.mu.Unlock()
		if !destroyed && s.scheduler != nil {
			s.scheduler.ScheduleUpdateForSession(requestedPresentationTime, s.id)
		}
	})
	return nil
}

// ScheduleImagePipeUpdate enqueues pipeID's current image to become
// imageID no earlier than presentationTime, once acquireFences signal.
func (s *Session) ScheduleImagePipeUpdate(presentationTime int64, pipeID, imageID scenegraph.ResourceID, acquireFences []*gpusync.Fence, releaseFences []*gpusync.Fence, presentCallback func(PresentationInfo)) {
	s.mu.Lock()
	u := &imagePipeUpdate{
		presentationTime: presentationTime,
		pipeID:           pipeID,
		imageID:          imageID,
		releaseFences:    releaseFences,
		presentCallback:  presentCallback,
		ready:            len(acquireFences) == 0,
	}
	heap.Push(&s.pipes, u)
	s.mu.Unlock()

	if len(acquireFences) > 0 {
		newFenceSetListener(acquireFences, func() {
			s.mu.Lock()
			u.ready = true
			s.mu.Unlock()
		})
	}
}

// ApplyResult reports the outcome of ApplyScheduledUpdates (spec §4.6).
type ApplyResult struct {
	Success          bool
	NeedsRender      bool
	AllFencesReady   bool
	PresentCallbacks []func(PresentationInfo)
	NeedsReschedule  bool
}

// ApplyScheduledUpdates drains and applies every queued update (and
// ImagePipe update) whose requested time is before targetPresentationTime
// and whose acquire fences have all signalled, in order, until the queue
// is empty, its front update isn't yet due, or its front update's fences
// aren't ready yet.
func (s *Session) ApplyScheduledUpdates(targetPresentationTime int64) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := ApplyResult{AllFencesReady: true}
	if s.destroyed {
		return result
	}

	for len(s.queue) > 0 {
		front := s.queue[0]
		if front.requestedTime >= targetPresentationTime {
			break
		}
		if !front.ready {
			result.AllFencesReady = false
			result.NeedsReschedule = true
			break
		}
		s.queue = s.queue[1:]

		if err := s.applier.Apply(s.table, s.graph, s.id, front.commands); err != nil {
			s.queue = nil
			s.destroyed = true
			result.Success = false
			return result
		}

		seq := s.signaller.CurrentSequence()
		for _, f := range s.pendingReleaseEvents {
			s.signaller.AddCPUReleaseFence(seq, f)
		}
		s.pendingReleaseEvents = front.releaseEvents

		s.lastAppliedPresentationTime = front.requestedTime
		result.NeedsRender = true
		if front.presentCallback != nil {
			result.PresentCallbacks = append(result.PresentCallbacks, front.presentCallback)
		}
	}
	result.Success = true

	callbacks, updated := s.drainImagePipeUpdates(targetPresentationTime)
	result.PresentCallbacks = append(result.PresentCallbacks, callbacks...)
	if updated {
		result.NeedsRender = true
	}
	return result
}

// newFenceSetListener waits on every fence in fences and calls onReady
// exactly once, after all have signalled (immediately, if fences is
// empty or already all signalled).
func newFenceSetListener(fences []*gpusync.Fence, onReady func()) {
	remaining := len(fences)
	if remaining == 0 {
		onReady()
		return
	}
	var mu sync.Mutex
	fired := false
	for _, f := range fences {
		f.Wait(func() {
			mu.Lock()
			remaining--
			ready := remaining == 0 && !fired
			if ready {
				fired = true
			}
			mu.Unlock()
			if ready {
				onReady()
			}
		})
	}
}
