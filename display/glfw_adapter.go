package display

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// GLFWAdapter is a desktop-host Adapter backed by a GLFW window. GLFW has
// no native vsync-timestamp callback, so vsync is synthesized by polling
// the monitor's reported refresh rate once at window creation — the same
// place the teacher's window_glfw.go captures the framebuffer size, which
// only differs from the requested size on high-DPI displays.
//
// This adapter is a desktop convenience, not a faithful display-driver
// emulation: Flip only checks that the display is claimed; it presents
// nothing and signals no render-done/retired events.
type GLFWAdapter struct {
	mu sync.Mutex

	window *glfw.Window
	title  string

	width, height int
	interval      int64
	lastVsync     int64

	vsyncCB     VsyncCallback
	ownershipCB func(bool)
	claimed     bool

	nextEvent EventID
	nextImage ImageID

	stopPoll chan struct{}
}

// NewGLFWAdapter creates and shows a GLFW window of the given size and
// starts a goroutine ticking at the monitor's refresh rate to synthesize
// vsync callbacks. Call Close to tear it down.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func NewGLFWAdapter(title string, width, height int) (*GLFWAdapter, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("display: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("display: glfw create window: %w", err)
	}

	fbWidth, fbHeight := win.GetFramebufferSize()

	refresh := 60
	if mon := glfw.GetPrimaryMonitor(); mon != nil {
		if mode := mon.GetVideoMode(); mode != nil && mode.RefreshRate > 0 {
			refresh = mode.RefreshRate
		}
	}

	a := &GLFWAdapter{
		window:   win,
		title:    title,
		width:    fbWidth,
		height:   fbHeight,
		interval: int64(time.Second) / int64(refresh),
		stopPoll: make(chan struct{}),
	}

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		a.mu.Lock()
		a.width, a.height = w, h
		a.mu.Unlock()
	})

	go a.pollVsync()

	return a, nil
}

// pollVsync runs on its own goroutine, firing a synthetic vsync at the
// adapter's interval. It never touches GLFW state directly (GLFW calls
// must stay on the locked OS thread); it only reads/writes the adapter's
// own fields under the mutex, mirroring the teacher's pattern of keeping
// platform calls (platformProcessMessages) separate from callback
// dispatch.
func (a *GLFWAdapter) pollVsync() {
	ticker := time.NewTicker(time.Duration(a.interval))
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-a.stopPoll:
			return
		case now := <-ticker.C:
			ts := int64(now.Sub(start))
			a.mu.Lock()
			a.lastVsync = ts
			cb := a.vsyncCB
			a.mu.Unlock()
			if cb != nil {
				cb(ts, nil)
			}
		}
	}
}

// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for the underlying
// GLFW window, for a Renderer to create its WebGPU surface from.
func (a *GLFWAdapter) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(a.window)
}

// Close destroys the GLFW window and stops vsync polling.
func (a *GLFWAdapter) Close() error {
	close(a.stopPoll)
	a.window.SetShouldClose(true)
	a.window.Destroy()
	glfw.Terminate()
	return nil
}

func (a *GLFWAdapter) WidthPx() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.width
}

func (a *GLFWAdapter) HeightPx() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.height
}

func (a *GLFWAdapter) SupportedPixelFormats() []PixelFormat {
	return []PixelFormat{PixelFormatBGRA8}
}

func (a *GLFWAdapter) LastVsyncTime() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastVsync
}

func (a *GLFWAdapter) VsyncInterval() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

func (a *GLFWAdapter) OnVsync(cb VsyncCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vsyncCB = cb
}

func (a *GLFWAdapter) Claim() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.claimed {
		return ErrAlreadyClaimed
	}
	a.claimed = true
	return nil
}

func (a *GLFWAdapter) Unclaim() {
	a.mu.Lock()
	a.claimed = false
	cb := a.ownershipCB
	a.mu.Unlock()
	if cb != nil {
		cb(false)
	}
}

func (a *GLFWAdapter) OnOwnershipChanged(cb func(bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ownershipCB = cb
}

func (a *GLFWAdapter) ImportEvent() EventID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextEvent++
	return a.nextEvent
}

func (a *GLFWAdapter) ReleaseEvent(id EventID) {}

func (a *GLFWAdapter) ImportImage(width, height int, format PixelFormat) (ImageID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextImage++
	return a.nextImage, nil
}

func (a *GLFWAdapter) ReleaseImage(id ImageID) {}

func (a *GLFWAdapter) SetLayerPrimaryConfig(width, height int, format PixelFormat) {}

// Flip returns ErrNotClaimed if the display is not claimed and nil
// otherwise. It does not present a surface and does not signal renderDone
// or retired.
func (a *GLFWAdapter) Flip(image ImageID, renderDone, retired EventID) error {
	a.mu.Lock()
	claimed := a.claimed
	a.mu.Unlock()
	if !claimed {
		return ErrNotClaimed
	}
	return nil
}

func (a *GLFWAdapter) PushColorCorrection(params []byte) {}

var _ Adapter = (*GLFWAdapter)(nil)
