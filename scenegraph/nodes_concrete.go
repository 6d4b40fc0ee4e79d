package scenegraph

// EntityNode is a plain container node: no content of its own, accepts
// both children and parts (spec §3).
type EntityNode struct {
	NodeBase
}

func NewEntityNode() *EntityNode {
	return &EntityNode{NodeBase: newNodeBase(true, true)}
}

func (n *EntityNode) Kind() Kind      { return KindEntityNode }
func (n *EntityNode) base() *NodeBase { return &n.NodeBase }

// ShapeNode draws a single Shape resource with a single Material
// resource. It accepts parts (for composed content) but not children.
type ShapeNode struct {
	NodeBase
	shape    ResourceID
	material ResourceID
}

func NewShapeNode() *ShapeNode {
	return &ShapeNode{NodeBase: newNodeBase(false, true)}
}

func (n *ShapeNode) Kind() Kind      { return KindShapeNode }
func (n *ShapeNode) base() *NodeBase { return &n.NodeBase }

// SetShape sets the Shape resource this node draws.
func (n *ShapeNode) SetShape(id ResourceID) { n.shape = id }

// Shape returns the Shape resource this node draws.
func (n *ShapeNode) Shape() ResourceID { return n.shape }

// SetMaterial sets the Material resource this node draws with.
func (n *ShapeNode) SetMaterial(id ResourceID) { n.material = id }

// Material returns the Material resource this node draws with.
func (n *ShapeNode) Material() ResourceID { return n.material }

// OpacityNode scales the alpha of its subtree's draw calls.
type OpacityNode struct {
	NodeBase
	opacity float32
}

func NewOpacityNode() *OpacityNode {
	return &OpacityNode{NodeBase: newNodeBase(true, true), opacity: 1}
}

func (n *OpacityNode) Kind() Kind      { return KindOpacityNode }
func (n *OpacityNode) base() *NodeBase { return &n.NodeBase }

// SetOpacity sets the subtree opacity multiplier, clamped to [0, 1].
func (n *OpacityNode) SetOpacity(v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	n.opacity = v
}

// Opacity returns the subtree opacity multiplier.
func (n *OpacityNode) Opacity() float32 { return n.opacity }

// ClipNode accepts parts (the clip shapes) but not children. Hit testing
// clips it only by its clip planes, as for any node; its parts' geometry
// is not used as a clip region.
type ClipNode struct {
	NodeBase
}

func NewClipNode() *ClipNode {
	return &ClipNode{NodeBase: newNodeBase(false, true)}
}

func (n *ClipNode) Kind() Kind      { return KindClipNode }
func (n *ClipNode) base() *NodeBase { return &n.NodeBase }

// Scene is a Node that is its own containing Scene, holding the light
// lists a Renderer consults (spec §3).
type Scene struct {
	NodeBase
	AmbientLights    []AmbientLight
	DirectionalLights []DirectionalLight
	PointLights      []PointLight
}

// AmbientLight is a uniform, directionless light contribution.
type AmbientLight struct {
	Color [3]float32
}

// DirectionalLight is a light with a direction but no position.
type DirectionalLight struct {
	Direction [3]float32
	Color     [3]float32
}

// PointLight is a positional, omnidirectional light with falloff.
type PointLight struct {
	Position [3]float32
	Color    [3]float32
	Falloff  float32
}

func NewScene() *Scene {
	return &Scene{NodeBase: newNodeBase(true, true)}
}

func (n *Scene) Kind() Kind      { return KindScene }
func (n *Scene) base() *NodeBase { return &n.NodeBase }

// ViewNode is the single node a View owns; once its link resolves, its id
// is recorded in the ViewHolder's resolvedView, not in the ViewHolder's
// child list (spec §3).
type ViewNode struct {
	NodeBase
	viewID ResourceID
}

func NewViewNode(viewID ResourceID) *ViewNode {
	return &ViewNode{NodeBase: newNodeBase(true, true), viewID: viewID}
}

func (n *ViewNode) Kind() Kind         { return KindViewNode }
func (n *ViewNode) base() *NodeBase    { return &n.NodeBase }
func (n *ViewNode) ViewID() ResourceID { return n.viewID }

// ViewHolder is a node (attachable under a parent within its own Session)
// representing the remote end of a cross-session View link (spec §3). It
// accepts children and not parts, with no limit on the number of
// children; the linked View's ViewNode is held in resolvedView instead.
type ViewHolder struct {
	NodeBase
	holderID   ResourceID
	properties ViewProperties

	// resolvedView is the peer View's ViewNode id once the cross-session
	// link resolves (spec §4.5). It is a weak, cross-session reference:
	// the peer ViewNode lives in a different Session's Table, so it is
	// never attached via Graph.AddChild (edges are table-local) — the
	// renderer's composition step dereferences it directly through the
	// peer Session the same way a Layer dereferences its Compositor.
	resolvedView ResourceID
}

// ViewProperties describes the bounding box and insets a ViewHolder
// authors and delivers to its linked View's Session (spec §4.5).
type ViewProperties struct {
	BBoxMin [3]float32
	BBoxMax [3]float32
	InsetMin [3]float32
	InsetMax [3]float32
}

func NewViewHolder(holderID ResourceID) *ViewHolder {
	return &ViewHolder{NodeBase: newNodeBase(true, false), holderID: holderID}
}

func (n *ViewHolder) Kind() Kind      { return KindViewHolder }
func (n *ViewHolder) base() *NodeBase { return &n.NodeBase }

// SetViewProperties updates the ViewHolder's authored ViewProperties.
func (n *ViewHolder) SetViewProperties(p ViewProperties) { n.properties = p }

// ViewProperties returns the ViewHolder's currently authored properties.
func (n *ViewHolder) ViewProperties() ViewProperties { return n.properties }

// SetResolvedView records the peer View's ViewNode id once the link
// resolves, or NilResource once it fails or the peer is destroyed.
func (n *ViewHolder) SetResolvedView(id ResourceID) { n.resolvedView = id }

// ResolvedView returns the peer View's ViewNode id, or NilResource if the
// link has not resolved (or has since failed).
func (n *ViewHolder) ResolvedView() ResourceID { return n.resolvedView }
