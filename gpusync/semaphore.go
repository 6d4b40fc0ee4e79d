package gpusync

// Semaphore is an opaque handle representing GPU-side synchronization. The
// core never inspects its value — it only threads it through the Renderer
// and Swapchain interfaces so the concrete GPU backend (out of scope here,
// see spec §1) can wait on or signal it. ID exists only for logging.
type Semaphore struct {
	id uint64
}

var semaphoreSeq uint64

// NewSemaphore allocates a new opaque semaphore handle.
func NewSemaphore() *Semaphore {
	semaphoreSeq++
	return &Semaphore{id: semaphoreSeq}
}

// ID returns a small integer identifying this handle, for log messages
// only; it carries no synchronization meaning.
func (s *Semaphore) ID() uint64 { return s.id }
