package gpusync

import "testing"

func TestFenceWaitAfterSignal(t *testing.T) {
	f := NewFence()
	f.Signal()
	fired := false
	f.Wait(func() { fired = true })
	if !fired {
		t.Fatalf("Wait on an already-signalled fence did not fire synchronously")
	}
}

func TestFenceWaitBeforeSignal(t *testing.T) {
	f := NewFence()
	fired := false
	f.Wait(func() { fired = true })
	if fired {
		t.Fatalf("handler fired before Signal")
	}
	f.Signal()
	if !fired {
		t.Fatalf("handler did not fire on Signal")
	}
}

func TestFenceCancel(t *testing.T) {
	f := NewFence()
	fired := false
	cancel := f.Wait(func() { fired = true })
	cancel()
	f.Signal()
	if fired {
		t.Fatalf("cancelled waiter fired")
	}
}

func TestFenceSignalIdempotent(t *testing.T) {
	f := NewFence()
	count := 0
	f.Wait(func() { count++ })
	f.Signal()
	f.Signal()
	f.Signal()
	if count != 1 {
		t.Fatalf("handler fired %d times, want 1", count)
	}
}

func TestSignallerImmediateSignalWhenAlreadyFinished(t *testing.T) {
	s := NewSignaller()
	s.OnCommandBufferFinished(5)

	f := NewFence()
	s.AddCPUReleaseFence(3, f)
	if !f.Signalled() {
		t.Fatalf("fence enqueued against an already-finished sequence was not signalled immediately")
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", s.Pending())
	}
}

func TestSignallerDrainsInOrder(t *testing.T) {
	s := NewSignaller()
	var fired []int

	f1 := NewFence()
	f1.Wait(func() { fired = append(fired, 1) })
	f2 := NewFence()
	f2.Wait(func() { fired = append(fired, 2) })
	f3 := NewFence()
	f3.Wait(func() { fired = append(fired, 3) })

	s.AddCPUReleaseFence(10, f1)
	s.AddCPUReleaseFence(10, f2)
	s.AddCPUReleaseFence(20, f3)

	s.OnCommandBufferFinished(10)
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("after finishing seq 10: fired = %v, want [1 2]", fired)
	}
	if f3.Signalled() {
		t.Fatalf("fence enqueued at seq 20 signalled early")
	}

	s.OnCommandBufferFinished(25)
	if len(fired) != 3 || fired[2] != 3 {
		t.Fatalf("after finishing seq 25: fired = %v, want [1 2 3]", fired)
	}
}

func TestSignallerRejectsDecreasingSequence(t *testing.T) {
	s := NewSignaller()
	s.AddCPUReleaseFence(10, NewFence())

	defer func() {
		if recover() == nil {
			t.Fatalf("AddCPUReleaseFence with a decreasing sequence number did not panic")
		}
	}()
	s.AddCPUReleaseFence(5, NewFence())
}

func TestSignallerCurrentSequence(t *testing.T) {
	s := NewSignaller()
	if s.CurrentSequence() != 0 {
		t.Fatalf("CurrentSequence() = %d, want 0", s.CurrentSequence())
	}
	s.AddCPUReleaseFence(7, NewFence())
	if s.CurrentSequence() != 7 {
		t.Fatalf("CurrentSequence() = %d, want 7", s.CurrentSequence())
	}
	s.OnCommandBufferFinished(12)
	if s.CurrentSequence() != 12 {
		t.Fatalf("CurrentSequence() = %d, want 12", s.CurrentSequence())
	}
}
