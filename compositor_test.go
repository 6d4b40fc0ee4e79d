package compositor

import (
	"testing"

	"github.com/nimbusgfx/compositor/clock"
	"github.com/nimbusgfx/compositor/display"
	"github.com/nimbusgfx/compositor/renderer"
	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/session"
	"github.com/nimbusgfx/compositor/swapchain"
)

type fakeBackend struct {
	configured    bool
	width, height int
	lastQuads     []renderer.Quad
	beginCalls    int
	presentCalls  int
}

func (b *fakeBackend) ConfigureSurface(width, height int) error {
	b.configured = true
	b.width, b.height = width, height
	return nil
}

func (b *fakeBackend) BeginFrame() error {
	b.beginCalls++
	return nil
}

func (b *fakeBackend) DrawQuads(quads []renderer.Quad) error {
	b.lastQuads = quads
	return nil
}

func (b *fakeBackend) EndFrame() {}

func (b *fakeBackend) Present() {
	b.presentCalls++
}

// newTestDispatcher wires a Dispatcher against a claimed Simulated
// display and a fresh 2-deep swapchain, returning it alongside its clock
// and backend double for assertions.
func newTestDispatcher(t *testing.T) (*Dispatcher, *clock.Manual, *fakeBackend) {
	t.Helper()
	disp := display.NewSimulated(320, 240)
	if err := disp.Claim(); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	sc, err := swapchain.New(disp, 320, 240, display.PixelFormatBGRA8, 2)
	if err != nil {
		t.Fatalf("swapchain.New: %v", err)
	}
	backend := &fakeBackend{}
	clk := clock.NewManual()
	d := New(clk, disp, sc, backend, Config{})
	return d, clk, backend
}

// populateScene builds compositor -> layerStack -> layer -> renderer ->
// camera -> scene -> shapeNode directly against the session's table/graph
// (the command package has no layer/renderer/camera wiring setters yet;
// this exercises the Dispatcher/renderer wiring independently of that).
func populateScene(t *testing.T, s *session.Session) (compositorID scenegraph.ResourceID) {
	t.Helper()
	tb := s.Table()
	g := s.Graph()

	var id scenegraph.ResourceID = 1
	next := func() scenegraph.ResourceID { v := id; id++; return v }
	create := func(res scenegraph.Resource) scenegraph.ResourceID {
		rid := next()
		if err := tb.Create(rid, res); err != nil {
			t.Fatalf("Create: %v", err)
		}
		return rid
	}

	sceneID := create(scenegraph.NewScene())
	camID := create(scenegraph.NewCamera(sceneID))
	rendererID := create(scenegraph.NewRendererResource())
	rr, _ := tb.Get(rendererID)
	rr.(*scenegraph.RendererResource).Camera = camID

	layerID := create(scenegraph.NewLayer())
	lr, _ := tb.Get(layerID)
	layer := lr.(*scenegraph.Layer)
	layer.Renderer = rendererID
	layer.Width, layer.Height = 320, 240

	stackID := create(scenegraph.NewLayerStack())
	sr, _ := tb.Get(stackID)
	sr.(*scenegraph.LayerStack).AddLayer(layerID)

	compositorID = create(scenegraph.NewDisplayCompositor())
	cr, _ := tb.Get(compositorID)
	cr.(*scenegraph.DisplayCompositor).LayerStack = stackID

	materialID := create(scenegraph.NewMaterial())
	mr, _ := tb.Get(materialID)
	mr.(*scenegraph.Material).Color = [4]float32{0, 1, 0, 1}

	shapeID := create(&scenegraph.RectangleShape{Width: 20, Height: 10})

	shapeNodeID := create(scenegraph.NewShapeNode())
	snr, _ := tb.Get(shapeNodeID)
	sn := snr.(*scenegraph.ShapeNode)
	sn.SetShape(shapeID)
	sn.SetMaterial(materialID)
	if err := g.AddChild(sceneID, shapeNodeID); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	return compositorID
}

func TestDispatcherRendersSceneOnceRootCompositorIsSet(t *testing.T) {
	d, clk, backend := newTestDispatcher(t)
	s := d.CreateSession()
	compositorID := populateScene(t, s)

	if err := d.SetRootCompositor(s.ID(), compositorID); err != nil {
		t.Fatalf("SetRootCompositor: %v", err)
	}

	if err := s.ScheduleUpdate(10_000_000, nil, nil, nil, nil); err != nil {
		t.Fatalf("ScheduleUpdate: %v", err)
	}
	clk.Advance(30_000_000)

	if !backend.configured {
		t.Fatalf("backend never configured")
	}
	if backend.width != 320 || backend.height != 240 {
		t.Fatalf("ConfigureSurface(%d, %d), want (320, 240)", backend.width, backend.height)
	}
	if len(backend.lastQuads) != 1 {
		t.Fatalf("DrawQuads received %d quads, want 1", len(backend.lastQuads))
	}
	if backend.presentCalls != 1 {
		t.Fatalf("Present called %d times, want 1", backend.presentCalls)
	}
}

func TestDispatcherRenderFrameUncommittedWithNoRootCompositor(t *testing.T) {
	d, clk, backend := newTestDispatcher(t)
	s := d.CreateSession()

	if err := s.ScheduleUpdate(10_000_000, nil, nil, nil, nil); err != nil {
		t.Fatalf("ScheduleUpdate: %v", err)
	}
	clk.Advance(30_000_000)

	if backend.configured {
		t.Fatalf("backend configured with no root compositor set")
	}
}

func TestResolveViewNodeFollowsRegisteredOwner(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	owner := d.CreateSession()

	var viewNodeID scenegraph.ResourceID = 7
	if err := owner.Table().Create(viewNodeID, scenegraph.NewViewNode(viewNodeID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	d.RegisterViewNode(viewNodeID, owner.ID())

	tb, g, ok := d.ResolveViewNode(viewNodeID)
	if !ok {
		t.Fatalf("ResolveViewNode: not found")
	}
	if tb != owner.Table() || g != owner.Graph() {
		t.Fatalf("ResolveViewNode returned a different table/graph than the owner session's")
	}

	if _, _, ok := d.ResolveViewNode(scenegraph.ResourceID(999)); ok {
		t.Fatalf("ResolveViewNode succeeded for an unregistered id")
	}
}

func TestDestroySessionRemovesItFromUpdateSessions(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	s := d.CreateSession()
	d.DestroySession(s.ID())

	summary := d.UpdateSessions([]session.ID{s.ID()}, 1, 1_000_000, 16_000_000)
	if summary.NeedsRender {
		t.Fatalf("UpdateSessions reported NeedsRender for a destroyed session")
	}
}
