package renderer

import (
	"github.com/nimbusgfx/compositor/frame"
	"github.com/nimbusgfx/compositor/gpusync"
	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/swapchain"
)

// ViewResolver looks up the Table/Graph that owns a ViewNode resource id,
// letting the Compositor follow a resolved cross-session View link. A
// ViewHolder's resolved view lives in a different Session's Table (spec
// §4.5's Export/Import never creates a genuine cross-table graph edge),
// so composition must dereference it through whatever registry knows
// about every live session, the same way a Layer dereferences its
// Compositor's renderer.
type ViewResolver interface {
	ResolveViewNode(id scenegraph.ResourceID) (tb *scenegraph.Table, g *scenegraph.Graph, ok bool)
}

// childrenProvider is satisfied by every node-kind resource via NodeBase's
// promoted Children method.
type childrenProvider interface {
	Children() []scenegraph.ResourceID
}

// Compositor implements scheduler.FrameRenderer: each RenderFrame call
// walks the scene graph rooted at a Compositor resource's LayerStack
// (spec §3's Layer/LayerStack/Compositor chain) and draws every visible
// ShapeNode's content through a Backend, presenting through a
// swapchain.Swapchain.
type Compositor struct {
	swapchain    *swapchain.Swapchain
	backend      Backend
	resolver     ViewResolver
	tb           *scenegraph.Table
	g            *scenegraph.Graph
	compositorID scenegraph.ResourceID
}

// NewCompositor returns a Compositor that draws compositorID's LayerStack
// (resolved against tb/g) into backend and presents through sc.
func NewCompositor(sc *swapchain.Swapchain, backend Backend, resolver ViewResolver, tb *scenegraph.Table, g *scenegraph.Graph, compositorID scenegraph.ResourceID) *Compositor {
	return &Compositor{swapchain: sc, backend: backend, resolver: resolver, tb: tb, g: g, compositorID: compositorID}
}

// RenderFrame implements scheduler.FrameRenderer.
func (c *Compositor) RenderFrame(timings *frame.Timings, target, interval int64) bool {
	_, err := c.swapchain.DrawAndPresentFrame(timings, target, c.draw)
	return err == nil
}

// draw is the swapchain.DrawCallback: it configures the backend to dst's
// size, collects every visible quad from the scene graph, and submits
// them in a single frame. Shader execution proper (texturing, shadows,
// per-pixel lighting) is out of scope (spec §1); dst's acquire/renderDone
// semaphores are unused since the backend renders synchronously.
func (c *Compositor) draw(target int64, dst *swapchain.Image, hlaItem int, acquire, renderDone *gpusync.Semaphore) {
	if err := c.backend.ConfigureSurface(dst.Width, dst.Height); err != nil {
		return
	}
	quads := c.collectQuads()
	if err := c.backend.BeginFrame(); err != nil {
		return
	}
	c.backend.DrawQuads(quads)
	c.backend.EndFrame()
	c.backend.Present()
}

// collectQuads walks every drawable Layer in the Compositor's LayerStack
// back to front, emitting one Quad per visible ShapeNode.
func (c *Compositor) collectQuads() []Quad {
	res, ok := c.tb.Get(c.compositorID)
	if !ok {
		return nil
	}
	var layerStackID scenegraph.ResourceID
	switch v := res.(type) {
	case *scenegraph.DisplayCompositor:
		layerStackID = v.LayerStack
	case *scenegraph.Compositor:
		layerStackID = v.LayerStack
	default:
		return nil
	}
	stackRes, ok := c.tb.Get(layerStackID)
	if !ok {
		return nil
	}
	stack, ok := stackRes.(*scenegraph.LayerStack)
	if !ok {
		return nil
	}

	var quads []Quad
	for _, layerID := range stack.Layers {
		c.collectLayer(layerID, &quads)
	}
	return quads
}

func (c *Compositor) collectLayer(layerID scenegraph.ResourceID, out *[]Quad) {
	res, ok := c.tb.Get(layerID)
	if !ok {
		return
	}
	layer, ok := res.(*scenegraph.Layer)
	if !ok || !layer.Drawable() {
		return
	}
	rendererRes, ok := c.tb.Get(layer.Renderer)
	if !ok {
		return
	}
	rr, ok := rendererRes.(*scenegraph.RendererResource)
	if !ok || rr.Camera == scenegraph.NilResource {
		return
	}
	camRes, ok := c.tb.Get(rr.Camera)
	if !ok {
		return
	}
	sceneID := cameraSceneID(camRes)
	if sceneID == scenegraph.NilResource {
		return
	}
	c.walkNode(c.tb, c.g, sceneID, 1, out)
}

// cameraSceneID extracts the scene a Camera or StereoCamera resource
// renders; both expose SceneID via Camera's promoted method.
func cameraSceneID(res scenegraph.Resource) scenegraph.ResourceID {
	type sceneIDer interface{ SceneID() scenegraph.ResourceID }
	if c, ok := res.(sceneIDer); ok {
		return c.SceneID()
	}
	return scenegraph.NilResource
}

// walkNode recursively visits id's subtree, accumulating the OpacityNode
// chain's multiplier and emitting a Quad for every visible ShapeNode. A
// ViewHolder whose link has resolved continues the walk into the peer
// Session's Table at the resolved ViewNode instead of its own (empty)
// child list.
func (c *Compositor) walkNode(tb *scenegraph.Table, g *scenegraph.Graph, id scenegraph.ResourceID, opacity float32, out *[]Quad) {
	res, ok := tb.Get(id)
	if !ok {
		return
	}

	switch n := res.(type) {
	case *scenegraph.OpacityNode:
		opacity *= n.Opacity()
	case *scenegraph.ShapeNode:
		if q, ok := c.shapeQuad(tb, g, id, n, opacity); ok {
			*out = append(*out, q)
		}
	case *scenegraph.ViewHolder:
		if n.ResolvedView() == scenegraph.NilResource {
			return
		}
		if peerTb, peerG, ok := c.resolver.ResolveViewNode(n.ResolvedView()); ok {
			c.walkNode(peerTb, peerG, n.ResolvedView(), opacity, out)
		}
		return
	}

	cp, ok := res.(childrenProvider)
	if !ok {
		return
	}
	for _, child := range cp.Children() {
		c.walkNode(tb, g, child, opacity, out)
	}
}

// shapeQuad resolves a ShapeNode's Shape/Material pair and its global
// transform into a drawable Quad, centered at the node's global
// translation (spec §3's CircleShape/RectangleShape). Any other Shape
// kind (RoundedRectangleShape, MeshShape) has no flat-quad equivalent and
// is silently skipped; arbitrary mesh content is out of scope (spec §1).
func (c *Compositor) shapeQuad(tb *scenegraph.Table, g *scenegraph.Graph, id scenegraph.ResourceID, n *scenegraph.ShapeNode, opacity float32) (Quad, bool) {
	if n.Shape() == scenegraph.NilResource || n.Material() == scenegraph.NilResource {
		return Quad{}, false
	}
	shapeRes, ok := tb.Get(n.Shape())
	if !ok {
		return Quad{}, false
	}
	matRes, ok := tb.Get(n.Material())
	if !ok {
		return Quad{}, false
	}
	mat, ok := matRes.(*scenegraph.Material)
	if !ok {
		return Quad{}, false
	}
	global, err := g.GlobalTransform(id)
	if err != nil {
		return Quad{}, false
	}
	x, y := global[12], global[13]

	switch s := shapeRes.(type) {
	case *scenegraph.CircleShape:
		d := s.Radius * 2
		return Quad{X: x - s.Radius, Y: y - s.Radius, Width: d, Height: d, Color: mat.Color, Opacity: opacity, Circle: true}, true
	case *scenegraph.RectangleShape:
		return Quad{X: x - s.Width/2, Y: y - s.Height/2, Width: s.Width, Height: s.Height, Color: mat.Color, Opacity: opacity}, true
	default:
		return Quad{}, false
	}
}
