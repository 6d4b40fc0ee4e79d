package clock

import "testing"

func TestManualAdvanceFiresDueWakeups(t *testing.T) {
	m := NewManual()
	var order []string

	m.ScheduleWakeup(100, func() { order = append(order, "a") })
	m.ScheduleWakeup(50, func() { order = append(order, "b") })
	m.ScheduleWakeup(100, func() { order = append(order, "c") })

	m.Advance(40)
	if len(order) != 0 {
		t.Fatalf("Advance(40): fired wakeups early: %v", order)
	}

	m.Advance(60) // now = 100
	want := []string{"b", "a", "c"}
	if len(order) != len(want) {
		t.Fatalf("Advance(100): have %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Advance(100): have %v, want %v", order, want)
		}
	}
}

func TestManualCancelPreventsFire(t *testing.T) {
	m := NewManual()
	fired := false
	cancel := m.ScheduleWakeup(10, func() { fired = true })
	cancel()
	m.Advance(100)
	if fired {
		t.Fatalf("canceled wakeup fired")
	}
}

func TestManualNowMonotonic(t *testing.T) {
	m := NewManual()
	m.Advance(10)
	if m.Now() != 10 {
		t.Fatalf("Now() = %d, want 10", m.Now())
	}
	m.Set(5)
	if m.Now() != 10 {
		t.Fatalf("Set to the past moved Now() backwards: %d", m.Now())
	}
}

func TestManualPendingCount(t *testing.T) {
	m := NewManual()
	m.ScheduleWakeup(10, func() {})
	m.ScheduleWakeup(20, func() {})
	if n := m.pending(); n != 2 {
		t.Fatalf("pending() = %d, want 2", n)
	}
	m.Advance(15)
	if n := m.pending(); n != 1 {
		t.Fatalf("pending() after partial advance = %d, want 1", n)
	}
}
