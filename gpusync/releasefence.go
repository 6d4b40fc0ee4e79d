package gpusync

import "sync"

// Signaller orders CPU-visible release-fence signalling against a
// monotonically increasing GPU command-buffer sequence number (spec §4.2).
// A release fence enqueued against sequence N is only signalled once
// OnCommandBufferFinished has been told that sequence N (or later) is done.
//
// The FIFO's sequence numbers are required to be non-decreasing — like
// node.Graph's panic on an impossible index in the pack's arena-graph
// implementation, a violation here indicates a bug in the caller (the
// Session), not a runtime condition to recover from, so it panics
// rather than returning an error.
type Signaller struct {
	mu           sync.Mutex
	lastFinished uint64
	pending      []pendingFence
}

type pendingFence struct {
	seq   uint64
	fence *Fence
}

// NewSignaller returns a Signaller with no command buffers finished yet.
func NewSignaller() *Signaller {
	return &Signaller{}
}

// CurrentSequence returns the latest sequence number the signaller knows
// about — either the last one it was told finished, or (if higher) the
// last one a fence was enqueued against. Callers (the Session, when it
// enqueues an update's or an image-pipe entry's release fences) use this as "the
// sequence number current at the time of fence submission" from §4.2.
func (s *Signaller) CurrentSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.lastFinished
	if n := len(s.pending); n > 0 && s.pending[n-1].seq > seq {
		seq = s.pending[n-1].seq
	}
	return seq
}

// AddCPUReleaseFence enqueues fence to be signalled once every command
// buffer submitted up to and including seq (the sequence number current at
// submission time) has finished. If seq is already known finished, fence is
// signalled immediately instead of being enqueued.
//
// seq must be >= every seq previously passed to AddCPUReleaseFence; this is
// the FIFO's non-decreasing invariant from §4.2, and a violation panics.
func (s *Signaller) AddCPUReleaseFence(seq uint64, fence *Fence) {
	s.mu.Lock()
	if seq <= s.lastFinished {
		s.mu.Unlock()
		fence.Signal()
		return
	}
	if n := len(s.pending); n > 0 && seq < s.pending[n-1].seq {
		s.mu.Unlock()
		panic("gpusync: release fence enqueued with a sequence number smaller than a prior enqueue")
	}
	s.pending = append(s.pending, pendingFence{seq: seq, fence: fence})
	s.mu.Unlock()
}

// OnCommandBufferFinished records that every command buffer up to and
// including seq has completed on the GPU, then signals every pending fence
// whose sequence number is <= seq, in FIFO order.
func (s *Signaller) OnCommandBufferFinished(seq uint64) {
	s.mu.Lock()
	if seq < s.lastFinished {
		s.mu.Unlock()
		panic("gpusync: command-buffer sequence number went backwards")
	}
	s.lastFinished = seq
	var toSignal []*Fence
	i := 0
	for ; i < len(s.pending); i++ {
		if s.pending[i].seq > seq {
			break
		}
		toSignal = append(toSignal, s.pending[i].fence)
	}
	s.pending = s.pending[i:]
	s.mu.Unlock()
	for _, f := range toSignal {
		f.Signal()
	}
}

// Pending returns the number of release fences still waiting on a
// not-yet-finished sequence number, for tests and diagnostics.
func (s *Signaller) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
