// Package gpusync implements the core's synchronization primitives: the
// one-shot CPU fence, the opaque GPU semaphore handle, and the release-fence
// signaller that orders CPU resource reuse against GPU command-buffer
// completion (spec §4.1, §4.2).
package gpusync

import "sync"

// Fence is a single-direction, one-shot signal. It is created unsignalled,
// transitions exactly once to signalled, and supports an asynchronous wait
// whose handler fires on that transition (or immediately, if already
// signalled by the time Wait is called).
//
// The zero-value sync.Once-guarded close channel used by the teacher's
// engine.quitChannel/quitOnce pair is the model for this type: Signal plays
// the role of signalQuit, and Wait plays the role of a select on the
// channel — except here an arbitrary number of late-arriving waiters must
// all still observe the signal, and a waiter may cancel before it fires.
type Fence struct {
	mu        sync.Mutex
	once      sync.Once
	signalled bool
	waiters   []*waiter
}

type waiter struct {
	fired    bool
	canceled bool
	handler  func()
}

// NewFence returns an unsignalled Fence.
func NewFence() *Fence { return &Fence{} }

// Signal transitions the fence to signalled and fires every pending
// waiter's handler. Safe to call multiple times; only the first call has
// any effect.
func (f *Fence) Signal() {
	f.once.Do(func() {
		f.mu.Lock()
		f.signalled = true
		waiters := f.waiters
		f.waiters = nil
		f.mu.Unlock()
		for _, w := range waiters {
			if !w.canceled {
				w.fired = true
				w.handler()
			}
		}
	})
}

// Signalled reports whether the fence has transitioned.
func (f *Fence) Signalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signalled
}

// Wait registers handler to run once the fence signals. If the fence is
// already signalled, handler runs synchronously before Wait returns. Wait
// returns a cancel func; calling it before the signal prevents handler from
// running. Calling cancel after the signal has already fired is a no-op.
func (f *Fence) Wait(handler func()) (cancel func()) {
	f.mu.Lock()
	if f.signalled {
		f.mu.Unlock()
		handler()
		return func() {}
	}
	w := &waiter{handler: handler}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !w.fired {
			w.canceled = true
		}
	}
}

// Dup returns a second handle to the same underlying fence. Scenic-style
// fence/event ownership (§9) requires that the core retain its own copy to
// observe while a copy is handed to the display driver; since this Fence is
// reference-typed, Dup is simply an identity return — kept as a named
// method so call sites read the same way they would against a duplicable
// kernel handle.
func (f *Fence) Dup() *Fence { return f }
