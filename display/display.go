// Package display abstracts the physical display the swapchain presents
// into (spec §4.3): vsync interval and last vsync time, surface
// dimensions, buffer-collection/image import, and the flip-to-image
// operation with its render-done/retired event pair. Concrete
// display-driver specifics (VMO import, pixel-format negotiation with
// real hardware) are out of scope per spec §1; this package ships a
// deterministic Simulated adapter for the core's own tests and a thin
// GLFWAdapter for a desktop host, grounded on the teacher's
// engine/window package.
package display

import (
	"errors"
	"sync"
)

// DefaultVsyncInterval is the 60 Hz vsync period used until the adapter has
// observed real timing (spec §4.3).
const DefaultVsyncInterval = 16_666_667 // ns

// MaxVsyncInterval is the impossibility threshold: a configured interval
// at or above this is not a real vsync period and is clamped to just
// below it (spec §4.3).
const MaxVsyncInterval = 100_000_000 // ns, 100ms

// PixelFormat identifies a framebuffer pixel layout the display supports.
type PixelFormat int

const (
	PixelFormatBGRA8 PixelFormat = iota
	PixelFormatRGBA8
)

// ImageID identifies an imported framebuffer image within an Adapter.
type ImageID uint64

// EventID identifies an imported CPU event (render-done or retired) within
// an Adapter, scoped to a single Flip call.
type EventID uint64

// ErrAlreadyClaimed is returned by Claim when another client already owns
// rendering rights to the display.
var ErrAlreadyClaimed = errors.New("display: already claimed")

// ErrNotClaimed is returned by operations that require ownership when the
// caller has not claimed the display.
var ErrNotClaimed = errors.New("display: not claimed")

// VsyncCallback receives a vsync timestamp (ns) and the list of image ids
// the driver reports as in flight (most-recently-flipped first), matching
// the shape the Swapchain's on_vsync handler expects (spec §4.4).
type VsyncCallback func(timestamp int64, inFlightImageIDs []ImageID)

// Adapter abstracts a physical display (spec §4.3).
type Adapter interface {
	// WidthPx and HeightPx report the display surface's pixel dimensions.
	WidthPx() int
	HeightPx() int

	// SupportedPixelFormats lists the pixel formats the display accepts
	// for imported images.
	SupportedPixelFormats() []PixelFormat

	// LastVsyncTime returns the timestamp (ns) of the most recent vsync
	// this adapter has observed.
	LastVsyncTime() int64

	// VsyncInterval returns the current vsync period (ns). Defaults to
	// DefaultVsyncInterval until real timing is observed, and is never
	// reported above MaxVsyncInterval.
	VsyncInterval() int64

	// OnVsync registers the driver-side vsync callback. Only one callback
	// may be registered at a time; registering again replaces it.
	OnVsync(cb VsyncCallback)

	// Claim acquires exclusive rendering rights to this display. Returns
	// ErrAlreadyClaimed if another owner holds it.
	Claim() error

	// Unclaim releases rendering rights. Safe to call when not claimed.
	Unclaim()

	// OnOwnershipChanged registers a callback fired when a multi-client
	// display's ownership changes, receiving whether this adapter is now
	// the owning client.
	OnOwnershipChanged(cb func(owned bool))

	// ImportEvent registers a CPU event (render-done or retired) with the
	// driver, returning an id the driver uses to reference it in
	// SetLayerImage/Flip. ReleaseEvent must be called once the driver no
	// longer needs the id (spec §9, fence/event ownership).
	ImportEvent() EventID
	ReleaseEvent(id EventID)

	// ImportImage registers a framebuffer image for flipping, returning
	// an ImageID. width/height/format describe the image being imported.
	ImportImage(width, height int, format PixelFormat) (ImageID, error)
	ReleaseImage(id ImageID)

	// SetLayerPrimaryConfig configures the single hardware layer this
	// core uses for the primary swapchain image.
	SetLayerPrimaryConfig(width, height int, format PixelFormat)

	// Flip presents image, waiting on renderDone before scanning it out
	// and signalling retired once the image is no longer being scanned
	// out (superseded by a later Flip's scanout, or by Unclaim).
	Flip(image ImageID, renderDone, retired EventID) error

	// PushColorCorrection passes a driver-opaque color-correction blob
	// through to the display. The core never inspects its contents.
	PushColorCorrection(params []byte)
}

var _ Adapter = (*Simulated)(nil)

// Simulated is a deterministic Adapter for tests: it has no real
// framebuffers, manages vsync entirely under the test's control via
// FireVsync, and never fails Claim unless already claimed.
type Simulated struct {
	mu sync.Mutex

	width, height int
	formats       []PixelFormat

	lastVsync int64
	interval  int64

	vsyncCB     VsyncCallback
	ownershipCB func(bool)

	claimed bool

	nextEvent EventID
	events    map[EventID]bool // true if released

	nextImage ImageID
	images    map[ImageID]struct{}

	layerWidth, layerHeight int
	layerFormat             PixelFormat

	flipped []flippedImage
}

type flippedImage struct {
	id                 ImageID
	renderDone, retired EventID
}

// NewSimulated returns a Simulated adapter with the given surface
// dimensions and a default 60Hz vsync interval.
func NewSimulated(width, height int) *Simulated {
	return &Simulated{
		width:    width,
		height:   height,
		formats:  []PixelFormat{PixelFormatBGRA8, PixelFormatRGBA8},
		interval: DefaultVsyncInterval,
		events:   make(map[EventID]bool),
		images:   make(map[ImageID]struct{}),
	}
}

func (s *Simulated) WidthPx() int  { return s.width }
func (s *Simulated) HeightPx() int { return s.height }

func (s *Simulated) SupportedPixelFormats() []PixelFormat {
	return append([]PixelFormat(nil), s.formats...)
}

func (s *Simulated) LastVsyncTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVsync
}

func (s *Simulated) VsyncInterval() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetVsyncInterval lets a test simulate a different refresh rate. Values
// at or above MaxVsyncInterval are clamped to MaxVsyncInterval-1, matching the "100ms
// impossibility threshold" from spec §4.3.
func (s *Simulated) SetVsyncInterval(ns int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns >= MaxVsyncInterval {
		ns = MaxVsyncInterval - 1
	}
	s.interval = ns
}

func (s *Simulated) OnVsync(cb VsyncCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vsyncCB = cb
}

// FireVsync simulates the driver delivering a vsync at timestamp,
// reporting inFlight as the currently in-flight image ids.
func (s *Simulated) FireVsync(timestamp int64, inFlight []ImageID) {
	s.mu.Lock()
	s.lastVsync = timestamp
	cb := s.vsyncCB
	s.mu.Unlock()
	if cb != nil {
		cb(timestamp, inFlight)
	}
}

func (s *Simulated) Claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return ErrAlreadyClaimed
	}
	s.claimed = true
	return nil
}

func (s *Simulated) Unclaim() {
	s.mu.Lock()
	s.claimed = false
	cb := s.ownershipCB
	s.mu.Unlock()
	if cb != nil {
		cb(false)
	}
}

func (s *Simulated) OnOwnershipChanged(cb func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownershipCB = cb
}

func (s *Simulated) ImportEvent() EventID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvent++
	id := s.nextEvent
	s.events[id] = false
	return id
}

func (s *Simulated) ReleaseEvent(id EventID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = true
}

func (s *Simulated) ImportImage(width, height int, format PixelFormat) (ImageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextImage++
	id := s.nextImage
	s.images[id] = struct{}{}
	return id, nil
}

func (s *Simulated) ReleaseImage(id ImageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, id)
}

func (s *Simulated) SetLayerPrimaryConfig(width, height int, format PixelFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layerWidth, s.layerHeight, s.layerFormat = width, height, format
}

func (s *Simulated) Flip(image ImageID, renderDone, retired EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claimed {
		return ErrNotClaimed
	}
	s.flipped = append(s.flipped, flippedImage{id: image, renderDone: renderDone, retired: retired})
	return nil
}

func (s *Simulated) PushColorCorrection(params []byte) {}

// Flipped returns the images handed to Flip so far, for tests.
func (s *Simulated) Flipped() []ImageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]ImageID, len(s.flipped))
	for i, f := range s.flipped {
		ids[i] = f.id
	}
	return ids
}
