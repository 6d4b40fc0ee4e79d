package session

import (
	"container/heap"

	"github.com/nimbusgfx/compositor/gpusync"
	"github.com/nimbusgfx/compositor/scenegraph"
)

// imagePipeUpdate is one scheduled "swap this ImagePipe's current image"
// entry in a Session's ImagePipe heap (spec §4.6).
type imagePipeUpdate struct {
	presentationTime int64
	pipeID           scenegraph.ResourceID
	imageID          scenegraph.ResourceID
	releaseFences    []*gpusync.Fence
	presentCallback  func(PresentationInfo)
	ready            bool
	index            int
}

// imagePipeHeap is a container/heap min-heap ordered by presentationTime.
// The teacher has no priority-queue need of its own (its per-frame work is
// a flat animator pool, not a time-ordered schedule); container/heap is
// the standard library's own priority queue and needs no pack dependency.
type imagePipeHeap []*imagePipeUpdate

func (h imagePipeHeap) Len() int            { return len(h) }
func (h imagePipeHeap) Less(i, j int) bool  { return h[i].presentationTime < h[j].presentationTime }
func (h imagePipeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *imagePipeHeap) Push(x any) {
	u := x.(*imagePipeUpdate)
	u.index = len(*h)
	*h = append(*h, u)
}

func (h *imagePipeHeap) Pop() any {
	old := *h
	n := len(old)
	u := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return u
}

// drainImagePipeUpdates applies every due, fence-ready ImagePipe update in
// presentation-time order, coalescing repeated updates to the same pipe
// within one drain into a single "image actually updated" count so a pipe
// that was rescheduled several times in one frame still produces at most
// one GPU upload (spec §4.6 step 2). Caller must hold s.mu.
func (s *Session) drainImagePipeUpdates(targetPresentationTime int64) (callbacks []func(PresentationInfo), anyUpdated bool) {
	updatedPipes := make(map[scenegraph.ResourceID]bool)
	for s.pipes.Len() > 0 {
		next := s.pipes[0]
		if next.presentationTime >= targetPresentationTime {
			break
		}
		if !next.ready {
			break
		}
		heap.Pop(&s.pipes)

		if res, ok := s.table.Get(next.pipeID); ok {
			if pipe, ok := res.(*scenegraph.ImagePipe); ok {
				pipe.SetCurrentImage(next.imageID)
				if !updatedPipes[next.pipeID] {
					updatedPipes[next.pipeID] = true
					anyUpdated = true
				}
			}
		}

		seq := s.signaller.CurrentSequence()
		for _, f := range next.releaseFences {
			s.signaller.AddCPUReleaseFence(seq, f)
		}
		if next.presentCallback != nil {
			callbacks = append(callbacks, next.presentCallback)
		}
	}
	return callbacks, anyUpdated
}
