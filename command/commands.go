package command

import (
	"fmt"

	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/session"
)

// CreateResource maps ID to a freshly constructed resource (spec §4.7):
// fails if ID is NilResource or already mapped. Factory is supplied by
// the NewCreate* constructors below, one per resource kind.
type CreateResource struct {
	ID      scenegraph.ResourceID
	Factory func() scenegraph.Resource
}

func (c *CreateResource) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	if c.ID == scenegraph.NilResource {
		return ErrInvalidResourceID
	}
	return tb.Create(c.ID, c.Factory())
}

func NewCreateEntityNode(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewEntityNode() }}
}

func NewCreateShapeNode(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewShapeNode() }}
}

func NewCreateOpacityNode(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewOpacityNode() }}
}

func NewCreateClipNode(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewClipNode() }}
}

func NewCreateScene(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewScene() }}
}

func NewCreateView(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewView() }}
}

func NewCreateViewNode(id, viewID scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewViewNode(viewID) }}
}

func NewCreateViewHolder(id, holderID scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewViewHolder(holderID) }}
}

func NewCreateCamera(id, sceneID scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewCamera(sceneID) }}
}

func NewCreateStereoCamera(id, sceneID scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewStereoCamera(sceneID) }}
}

func NewCreateMaterial(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewMaterial() }}
}

func NewCreateImagePipe(id scenegraph.ResourceID, width, height int, format scenegraph.ImageFormat) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewImagePipe(width, height, format) }}
}

func NewCreateLayer(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewLayer() }}
}

func NewCreateLayerStack(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewLayerStack() }}
}

func NewCreateCompositor(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewCompositor() }}
}

func NewCreateDisplayCompositor(id scenegraph.ResourceID) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewDisplayCompositor() }}
}

func NewCreateVariable(id scenegraph.ResourceID, t scenegraph.VariableType) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return scenegraph.NewVariable(t) }}
}

func NewCreateCircleShape(id scenegraph.ResourceID, radius float32) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return &scenegraph.CircleShape{Radius: radius} }}
}

func NewCreateRectangleShape(id scenegraph.ResourceID, width, height float32) *CreateResource {
	return &CreateResource{ID: id, Factory: func() scenegraph.Resource { return &scenegraph.RectangleShape{Width: width, Height: height} }}
}

// Export registers HolderID's ViewHolder as the export side of Link,
// wiring ViewHolder.SetResolvedView to fire once the peer Import side
// resolves or fails (spec §4.5). Constructed via Applier.NewExport so it
// carries the shared Linker.
type Export struct {
	linker   *scenegraph.Linker
	Link     scenegraph.LinkID
	HolderID scenegraph.ResourceID
}

func (c *Export) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.HolderID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.HolderID)
	}
	holder, ok := res.(*scenegraph.ViewHolder)
	if !ok {
		return fmt.Errorf("%w: %d is not a ViewHolder", scenegraph.ErrRejectedByKind, c.HolderID)
	}
	return c.linker.RegisterExportHolder(c.Link, c.HolderID,
		func(peerViewNodeID scenegraph.ResourceID) { holder.SetResolvedView(peerViewNodeID) },
		func() { holder.SetResolvedView(scenegraph.NilResource) })
}

// Import registers ViewID's View as the import side of Link, advertising
// ViewNodeID as the resource the peer Export side should reference, and
// wiring View.SetResolvedHolder to fire once the peer resolves or fails.
// Constructed via Applier.NewImport so it carries the shared Linker.
type Import struct {
	linker     *scenegraph.Linker
	Link       scenegraph.LinkID
	ViewID     scenegraph.ResourceID
	ViewNodeID scenegraph.ResourceID
}

func (c *Import) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ViewID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ViewID)
	}
	view, ok := res.(*scenegraph.View)
	if !ok {
		return fmt.Errorf("%w: %d is not a View", scenegraph.ErrRejectedByKind, c.ViewID)
	}
	return c.linker.RegisterImportView(c.Link, c.ViewNodeID,
		func(peerHolderID scenegraph.ResourceID) { view.SetResolvedHolder(peerHolderID) },
		func() { view.SetResolvedHolder(scenegraph.NilResource) })
}

// ReleaseResource decrements id's mapped-count in the session's resource
// table (spec §4.7); the underlying object survives if the graph still
// references it.
type ReleaseResource struct {
	ID scenegraph.ResourceID
}

func (c *ReleaseResource) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return tb.Release(c.ID)
}

func (c *ReleaseResource) Validate(tb *scenegraph.Table) error {
	if _, ok := tb.Get(c.ID); !ok {
		return fmt.Errorf("command: release of unknown resource %d", c.ID)
	}
	return nil
}

// AddChild attaches ChildID under ParentID as a child edge (spec §4.7,
// §4.5). Re-parenting an already-parented child happens silently.
type AddChild struct {
	ParentID, ChildID scenegraph.ResourceID
}

func (c *AddChild) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return g.AddChild(c.ParentID, c.ChildID)
}

// AddPart attaches PartID under ParentID as a part edge (spec §4.7).
type AddPart struct {
	ParentID, PartID scenegraph.ResourceID
}

func (c *AddPart) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return g.AddPart(c.ParentID, c.PartID)
}

// Detach removes ID from its current parent's child or part list.
type Detach struct {
	ID scenegraph.ResourceID
}

func (c *Detach) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return g.Detach(c.ID)
}

// transformed is implemented (via promoted NodeBase methods) by every
// node-kind resource; used to read-modify-write a single transform field
// without reaching into scenegraph's unexported node internals.
type transformed interface {
	Transform() scenegraph.Transform
}

// SetTranslation replaces ID's transform's translation component.
type SetTranslation struct {
	ID    scenegraph.ResourceID
	Value [3]float32
}

func (c *SetTranslation) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return mutateTransform(tb, g, c.ID, func(tr *scenegraph.Transform) { tr.Translation = c.Value })
}

// SetScale replaces ID's transform's scale component.
type SetScale struct {
	ID    scenegraph.ResourceID
	Value [3]float32
}

func (c *SetScale) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return mutateTransform(tb, g, c.ID, func(tr *scenegraph.Transform) { tr.Scale = c.Value })
}

// SetRotation replaces ID's transform's rotation quaternion (x, y, z, w).
type SetRotation struct {
	ID    scenegraph.ResourceID
	Value [4]float32
}

func (c *SetRotation) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return mutateTransform(tb, g, c.ID, func(tr *scenegraph.Transform) { tr.Rotation = c.Value })
}

// SetAnchor replaces ID's transform's rotation/scale pivot.
type SetAnchor struct {
	ID    scenegraph.ResourceID
	Value [3]float32
}

func (c *SetAnchor) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	return mutateTransform(tb, g, c.ID, func(tr *scenegraph.Transform) { tr.Anchor = c.Value })
}

func mutateTransform(tb *scenegraph.Table, g *scenegraph.Graph, id scenegraph.ResourceID, mutate func(*scenegraph.Transform)) error {
	res, ok := tb.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, id)
	}
	tn, ok := res.(transformed)
	if !ok {
		return fmt.Errorf("%w: %d is not a node", scenegraph.ErrNodeNotFound, id)
	}
	tr := tn.Transform()
	mutate(&tr)
	return g.SetTransform(id, tr)
}

// clipPlaner is implemented (via promoted NodeBase methods) by every
// node-kind resource.
type clipPlaner interface {
	SetClipPlanes([]scenegraph.Plane)
}

// SetClipPlanes replaces ID's clip half-space set.
type SetClipPlanes struct {
	ID     scenegraph.ResourceID
	Planes []scenegraph.Plane
}

func (c *SetClipPlanes) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ID)
	}
	n, ok := res.(clipPlaner)
	if !ok {
		return fmt.Errorf("%w: %d is not a node", scenegraph.ErrNodeNotFound, c.ID)
	}
	n.SetClipPlanes(c.Planes)
	return nil
}

// SetViewProperties replaces a ViewHolder's authored ViewProperties.
type SetViewProperties struct {
	HolderID   scenegraph.ResourceID
	Properties scenegraph.ViewProperties
}

func (c *SetViewProperties) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.HolderID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.HolderID)
	}
	holder, ok := res.(*scenegraph.ViewHolder)
	if !ok {
		return fmt.Errorf("%w: %d is not a ViewHolder", scenegraph.ErrRejectedByKind, c.HolderID)
	}
	holder.SetViewProperties(c.Properties)
	return nil
}

func (c *SetViewProperties) Validate(tb *scenegraph.Table) error {
	res, ok := tb.Get(c.HolderID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.HolderID)
	}
	if _, ok := res.(*scenegraph.ViewHolder); !ok {
		return fmt.Errorf("%w: %d is not a ViewHolder", scenegraph.ErrRejectedByKind, c.HolderID)
	}
	return nil
}

// SetCameraPose updates a Camera resource's eye/look-at/up vectors.
type SetCameraPose struct {
	CameraID         scenegraph.ResourceID
	Eye, LookAt, Up [3]float32
}

func (c *SetCameraPose) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	cam, err := lookupCamera(tb, c.CameraID)
	if err != nil {
		return err
	}
	cam.SetPose(c.Eye, c.LookAt, c.Up)
	return nil
}

// SetCameraProjection updates a Camera resource's perspective parameters.
type SetCameraProjection struct {
	CameraID                scenegraph.ResourceID
	FovY, Aspect, Near, Far float32
}

func (c *SetCameraProjection) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	cam, err := lookupCamera(tb, c.CameraID)
	if err != nil {
		return err
	}
	cam.SetProjection(c.FovY, c.Aspect, c.Near, c.Far)
	return nil
}

// SetCameraPoseBuffer attaches a latched-pose Buffer resource to a Camera.
type SetCameraPoseBuffer struct {
	CameraID, BufferID scenegraph.ResourceID
}

func (c *SetCameraPoseBuffer) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	cam, err := lookupCamera(tb, c.CameraID)
	if err != nil {
		return err
	}
	cam.SetPoseBuffer(c.BufferID)
	return nil
}

func lookupCamera(tb *scenegraph.Table, id scenegraph.ResourceID) (*scenegraph.Camera, error) {
	res, ok := tb.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, id)
	}
	switch v := res.(type) {
	case *scenegraph.Camera:
		return v, nil
	case *scenegraph.StereoCamera:
		return &v.Camera, nil
	default:
		return nil, fmt.Errorf("%w: %d is not a Camera", scenegraph.ErrRejectedByKind, id)
	}
}

// SetOpacity updates an OpacityNode's subtree opacity multiplier.
type SetOpacity struct {
	ID    scenegraph.ResourceID
	Value float32
}

func (c *SetOpacity) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ID)
	}
	n, ok := res.(*scenegraph.OpacityNode)
	if !ok {
		return fmt.Errorf("%w: %d is not an OpacityNode", scenegraph.ErrRejectedByKind, c.ID)
	}
	n.SetOpacity(c.Value)
	return nil
}

// SetShapeNodeContent wires a ShapeNode's Shape and Material resources.
type SetShapeNodeContent struct {
	ShapeNodeID, ShapeID, MaterialID scenegraph.ResourceID
}

func (c *SetShapeNodeContent) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ShapeNodeID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ShapeNodeID)
	}
	n, ok := res.(*scenegraph.ShapeNode)
	if !ok {
		return fmt.Errorf("%w: %d is not a ShapeNode", scenegraph.ErrRejectedByKind, c.ShapeNodeID)
	}
	if c.ShapeID != scenegraph.NilResource {
		if err := tb.Reference(c.ShapeID); err != nil {
			return err
		}
		if old := n.Shape(); old != scenegraph.NilResource {
			tb.Unreference(old)
		}
		n.SetShape(c.ShapeID)
	}
	if c.MaterialID != scenegraph.NilResource {
		if err := tb.Reference(c.MaterialID); err != nil {
			return err
		}
		if old := n.Material(); old != scenegraph.NilResource {
			tb.Unreference(old)
		}
		n.SetMaterial(c.MaterialID)
	}
	return nil
}

// SetMaterialColor replaces a Material resource's rgba color.
type SetMaterialColor struct {
	MaterialID scenegraph.ResourceID
	Color      [4]float32
}

func (c *SetMaterialColor) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	m, err := lookupMaterial(tb, c.MaterialID)
	if err != nil {
		return err
	}
	m.Color = c.Color
	return nil
}

// SetMaterialTexture replaces a Material resource's texture reference
// (an Image or ImagePipe id, or NilResource to clear it).
type SetMaterialTexture struct {
	MaterialID, TextureID scenegraph.ResourceID
}

func (c *SetMaterialTexture) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	m, err := lookupMaterial(tb, c.MaterialID)
	if err != nil {
		return err
	}
	if c.TextureID != scenegraph.NilResource {
		if err := tb.Reference(c.TextureID); err != nil {
			return err
		}
	}
	if m.Texture != scenegraph.NilResource {
		tb.Unreference(m.Texture)
	}
	m.Texture = c.TextureID
	return nil
}

func lookupMaterial(tb *scenegraph.Table, id scenegraph.ResourceID) (*scenegraph.Material, error) {
	res, ok := tb.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, id)
	}
	m, ok := res.(*scenegraph.Material)
	if !ok {
		return nil, fmt.Errorf("%w: %d is not a Material", scenegraph.ErrRejectedByKind, id)
	}
	return m, nil
}

// SetTag updates a node's hit-test tag.
type SetTag struct {
	ID  scenegraph.ResourceID
	Tag uint32
}

func (c *SetTag) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ID)
	}
	n, ok := res.(interface{ SetTag(uint32) })
	if !ok {
		return fmt.Errorf("%w: %d is not a node", scenegraph.ErrNodeNotFound, c.ID)
	}
	n.SetTag(c.Tag)
	return nil
}

// SetHitTestBehavior updates a node's hit-test behavior.
type SetHitTestBehavior struct {
	ID       scenegraph.ResourceID
	Behavior scenegraph.HitTestBehavior
}

func (c *SetHitTestBehavior) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ID)
	}
	n, ok := res.(interface{ SetHitTestBehavior(scenegraph.HitTestBehavior) })
	if !ok {
		return fmt.Errorf("%w: %d is not a node", scenegraph.ErrNodeNotFound, c.ID)
	}
	n.SetHitTestBehavior(c.Behavior)
	return nil
}

// SetClipToSelf updates a node's clip_to_self flag.
type SetClipToSelf struct {
	ID   scenegraph.ResourceID
	Clip bool
}

func (c *SetClipToSelf) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.ID)
	}
	n, ok := res.(interface{ SetClipToSelf(bool) })
	if !ok {
		return fmt.Errorf("%w: %d is not a node", scenegraph.ErrNodeNotFound, c.ID)
	}
	n.SetClipToSelf(c.Clip)
	return nil
}

// BindProperty registers a one-way Variable-backed binding: VariableID's
// current value is pushed into NodeID's Property, and every future
// SetVariableValue on VariableID re-pushes it and invalidates NodeID's
// cached global transform (spec §4.7).
type BindProperty struct {
	VariableID, NodeID scenegraph.ResourceID
	Property           scenegraph.NodeProperty
}

func (c *BindProperty) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	if err := g.BindProperty(c.VariableID, c.NodeID, c.Property); err != nil {
		return err
	}
	res, ok := tb.Get(c.VariableID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.VariableID)
	}
	v, ok := res.(*scenegraph.Variable)
	if !ok {
		return fmt.Errorf("%w: %d is not a Variable", scenegraph.ErrRejectedByKind, c.VariableID)
	}
	g.ApplyVariable(c.VariableID, v)
	return nil
}

// SetVariableValue updates a Variable resource's value and re-pushes it
// into every node property bound to it.
type SetVariableValue struct {
	VariableID scenegraph.ResourceID
	Vector3    [3]float32
	Quaternion [4]float32
}

func (c *SetVariableValue) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID) error {
	res, ok := tb.Get(c.VariableID)
	if !ok {
		return fmt.Errorf("%w: %d", scenegraph.ErrUnknownResourceID, c.VariableID)
	}
	v, ok := res.(*scenegraph.Variable)
	if !ok {
		return fmt.Errorf("%w: %d is not a Variable", scenegraph.ErrRejectedByKind, c.VariableID)
	}
	switch v.Type {
	case scenegraph.VariableTypeVector3:
		v.SetVector3(c.Vector3[0], c.Vector3[1], c.Vector3[2])
	case scenegraph.VariableTypeQuaternion:
		v.SetQuaternion(c.Quaternion[0], c.Quaternion[1], c.Quaternion[2], c.Quaternion[3])
	}
	g.ApplyVariable(c.VariableID, v)
	return nil
}
