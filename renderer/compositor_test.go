package renderer

import (
	"testing"

	"github.com/nimbusgfx/compositor/scenegraph"
)

// buildScene wires: compositorID -> layerStack -> layer -> rendererRes ->
// camera -> scene -> opacity -> shape, returning every id a test needs.
func buildScene(t *testing.T) (tb *scenegraph.Table, g *scenegraph.Graph, compositorID scenegraph.ResourceID) {
	t.Helper()
	tb = scenegraph.NewTable()
	g = scenegraph.NewGraph(tb)

	var id scenegraph.ResourceID = 1
	next := func() scenegraph.ResourceID {
		v := id
		id++
		return v
	}
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
	tb.Get(rendererID)
	rr, _ := tb.Get(rendererID)
	rr.(*scenegraph.RendererResource).Camera = camID

	layerID := create(scenegraph.NewLayer())
	layerRes, _ := tb.Get(layerID)
	layer := layerRes.(*scenegraph.Layer)
	layer.Renderer = rendererID
	layer.Width, layer.Height = 100, 100

	stackID := create(scenegraph.NewLayerStack())
	stackRes, _ := tb.Get(stackID)
	stackRes.(*scenegraph.LayerStack).AddLayer(layerID)

	compositorID = create(scenegraph.NewDisplayCompositor())
	compRes, _ := tb.Get(compositorID)
	compRes.(*scenegraph.DisplayCompositor).LayerStack = stackID

	opacityID := create(scenegraph.NewOpacityNode())
	opacityRes, _ := tb.Get(opacityID)
	opacityRes.(*scenegraph.OpacityNode).SetOpacity(0.5)
	if err := g.AddChild(sceneID, opacityID); err != nil {
		t.Fatalf("AddChild scene->opacity: %v", err)
	}

	materialID := create(scenegraph.NewMaterial())
	matRes, _ := tb.Get(materialID)
	matRes.(*scenegraph.Material).Color = [4]float32{1, 0, 0, 1}

	shapeID := create(&scenegraph.CircleShape{Radius: 5})

	shapeNodeID := create(scenegraph.NewShapeNode())
	shapeNodeRes, _ := tb.Get(shapeNodeID)
	sn := shapeNodeRes.(*scenegraph.ShapeNode)
	sn.SetShape(shapeID)
	sn.SetMaterial(materialID)
	if err := g.AddChild(opacityID, shapeNodeID); err != nil {
		t.Fatalf("AddChild opacity->shape: %v", err)
	}

	return tb, g, compositorID
}

func TestCollectQuadsWalksLayerStackAndAppliesOpacity(t *testing.T) {
	tb, g, compositorID := buildScene(t)
	c := NewCompositor(nil, nil, nil, tb, g, compositorID)

	quads := c.collectQuads()
	if len(quads) != 1 {
		t.Fatalf("collectQuads returned %d quads, want 1", len(quads))
	}
	q := quads[0]
	if q.Opacity != 0.5 {
		t.Fatalf("Opacity = %v, want 0.5", q.Opacity)
	}
	if !q.Circle {
		t.Fatalf("Circle = false, want true")
	}
	if q.Width != 10 || q.Height != 10 {
		t.Fatalf("Width/Height = %v/%v, want 10/10", q.Width, q.Height)
	}
	if q.Color != [4]float32{1, 0, 0, 1} {
		t.Fatalf("Color = %v, want [1 0 0 1]", q.Color)
	}
}

func TestCollectQuadsSkipsNonDrawableLayer(t *testing.T) {
	tb, g, compositorID := buildScene(t)

	res, _ := tb.Get(compositorID)
	stackRes, _ := tb.Get(res.(*scenegraph.DisplayCompositor).LayerStack)
	stack := stackRes.(*scenegraph.LayerStack)
	layerRes, _ := tb.Get(stack.Layers[0])
	layer := layerRes.(*scenegraph.Layer)
	layer.Width = 0 // no longer Drawable()

	c := NewCompositor(nil, nil, nil, tb, g, compositorID)
	quads := c.collectQuads()
	if len(quads) != 0 {
		t.Fatalf("collectQuads returned %d quads, want 0 for a non-drawable layer", len(quads))
	}
}

type stubResolver struct {
	tb *scenegraph.Table
	g  *scenegraph.Graph
	id scenegraph.ResourceID
}

func (s *stubResolver) ResolveViewNode(id scenegraph.ResourceID) (*scenegraph.Table, *scenegraph.Graph, bool) {
	if id != s.id {
		return nil, nil, false
	}
	return s.tb, s.g, true
}

func TestWalkNodeFollowsResolvedViewIntoPeerTable(t *testing.T) {
	// Host scene graph: scene -> viewHolder (resolved into a peer table).
	hostTb := scenegraph.NewTable()
	hostG := scenegraph.NewGraph(hostTb)
	var hid scenegraph.ResourceID = 1
	hnext := func() scenegraph.ResourceID { v := hid; hid++; return v }

	sceneID := hnext()
	if err := hostTb.Create(sceneID, scenegraph.NewScene()); err != nil {
		t.Fatalf("Create scene: %v", err)
	}
	camID := hnext()
	hostTb.Create(camID, scenegraph.NewCamera(sceneID))
	rendererID := hnext()
	hostTb.Create(rendererID, scenegraph.NewRendererResource())
	rr, _ := hostTb.Get(rendererID)
	rr.(*scenegraph.RendererResource).Camera = camID
	layerID := hnext()
	hostTb.Create(layerID, scenegraph.NewLayer())
	lr, _ := hostTb.Get(layerID)
	l := lr.(*scenegraph.Layer)
	l.Renderer = rendererID
	l.Width, l.Height = 10, 10
	stackID := hnext()
	hostTb.Create(stackID, scenegraph.NewLayerStack())
	sr, _ := hostTb.Get(stackID)
	sr.(*scenegraph.LayerStack).AddLayer(layerID)
	compositorID := hnext()
	hostTb.Create(compositorID, scenegraph.NewDisplayCompositor())
	cr, _ := hostTb.Get(compositorID)
	cr.(*scenegraph.DisplayCompositor).LayerStack = stackID

	holderID := hnext()
	hostTb.Create(holderID, scenegraph.NewViewHolder(holderID))
	if err := hostG.AddChild(sceneID, holderID); err != nil {
		t.Fatalf("AddChild scene->holder: %v", err)
	}

	// Peer scene graph: the resolved ViewNode with a shape child.
	peerTb := scenegraph.NewTable()
	peerG := scenegraph.NewGraph(peerTb)
	var pid scenegraph.ResourceID = 1
	pnext := func() scenegraph.ResourceID { v := pid; pid++; return v }

	viewNodeID := pnext()
	peerTb.Create(viewNodeID, scenegraph.NewViewNode(viewNodeID))

	materialID := pnext()
	peerTb.Create(materialID, scenegraph.NewMaterial())
	shapeID := pnext()
	peerTb.Create(shapeID, &scenegraph.RectangleShape{Width: 4, Height: 6})
	shapeNodeID := pnext()
	peerTb.Create(shapeNodeID, scenegraph.NewShapeNode())
	snr, _ := peerTb.Get(shapeNodeID)
	sn := snr.(*scenegraph.ShapeNode)
	sn.SetShape(shapeID)
	sn.SetMaterial(materialID)
	if err := peerG.AddChild(viewNodeID, shapeNodeID); err != nil {
		t.Fatalf("AddChild viewNode->shape: %v", err)
	}

	hr, _ := hostTb.Get(holderID)
	hr.(*scenegraph.ViewHolder).SetResolvedView(viewNodeID)

	resolver := &stubResolver{tb: peerTb, g: peerG, id: viewNodeID}
	c := NewCompositor(nil, nil, resolver, hostTb, hostG, compositorID)

	quads := c.collectQuads()
	if len(quads) != 1 {
		t.Fatalf("collectQuads returned %d quads, want 1 from the peer table", len(quads))
	}
	if quads[0].Circle {
		t.Fatalf("Circle = true, want false for a RectangleShape")
	}
	if quads[0].Width != 4 || quads[0].Height != 6 {
		t.Fatalf("Width/Height = %v/%v, want 4/6", quads[0].Width, quads[0].Height)
	}
}
