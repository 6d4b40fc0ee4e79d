package display

import "testing"

func TestSimulatedClaimExclusive(t *testing.T) {
	s := NewSimulated(1920, 1080)
	if err := s.Claim(); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if err := s.Claim(); err != ErrAlreadyClaimed {
		t.Fatalf("second Claim = %v, want ErrAlreadyClaimed", err)
	}
	s.Unclaim()
	if err := s.Claim(); err != nil {
		t.Fatalf("Claim after Unclaim: %v", err)
	}
}

func TestSimulatedFlipRequiresClaim(t *testing.T) {
	s := NewSimulated(100, 100)
	id, _ := s.ImportImage(100, 100, PixelFormatBGRA8)
	if err := s.Flip(id, 1, 2); err != ErrNotClaimed {
		t.Fatalf("Flip without Claim = %v, want ErrNotClaimed", err)
	}
	s.Claim()
	if err := s.Flip(id, 1, 2); err != nil {
		t.Fatalf("Flip after Claim: %v", err)
	}
	if got := s.Flipped(); len(got) != 1 || got[0] != id {
		t.Fatalf("Flipped() = %v, want [%v]", got, id)
	}
}

func TestSimulatedVsyncDelivery(t *testing.T) {
	s := NewSimulated(100, 100)
	var gotTS int64
	var gotIDs []ImageID
	s.OnVsync(func(ts int64, ids []ImageID) {
		gotTS = ts
		gotIDs = ids
	})
	s.FireVsync(1000, []ImageID{7})
	if gotTS != 1000 || len(gotIDs) != 1 || gotIDs[0] != 7 {
		t.Fatalf("vsync callback got (%d, %v), want (1000, [7])", gotTS, gotIDs)
	}
	if s.LastVsyncTime() != 1000 {
		t.Fatalf("LastVsyncTime() = %d, want 1000", s.LastVsyncTime())
	}
}

func TestSimulatedVsyncIntervalCap(t *testing.T) {
	s := NewSimulated(100, 100)
	s.SetVsyncInterval(200_000_000)
	if s.VsyncInterval() >= MaxVsyncInterval {
		t.Fatalf("VsyncInterval() = %d, want < %d", s.VsyncInterval(), MaxVsyncInterval)
	}
}
