package scenegraph

import (
	"errors"
	"fmt"

	"github.com/nimbusgfx/compositor/common"
)

// ParentRelation is how a node is held by its single parent (spec §3).
type ParentRelation int

const (
	RelationNone ParentRelation = iota
	RelationChild
	RelationPart
	RelationImportDelegate
)

// HitTestBehavior controls whether a node's subtree participates in hit
// testing (spec §4.5).
type HitTestBehavior int

const (
	HitTestDefault HitTestBehavior = iota
	HitTestSuppress
)

// Transform is a node's local transform: translation, scale, a unit
// rotation quaternion, and an anchor the rotation/scale pivot around
// (spec §3). The zero value is not identity — use IdentityTransform.
type Transform struct {
	Translation [3]float32
	Scale       [3]float32
	Rotation    [4]float32 // x, y, z, w
	Anchor      [3]float32
}

// IdentityTransform returns the default transform: no translation, unit
// scale, no rotation, no anchor offset.
func IdentityTransform() Transform {
	return Transform{Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}}
}

// Matrix composes the transform into a column-major 4x4 model matrix.
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	common.ComposeTRS(m[:],
		t.Translation[0], t.Translation[1], t.Translation[2],
		t.Rotation[0], t.Rotation[1], t.Rotation[2], t.Rotation[3],
		t.Scale[0], t.Scale[1], t.Scale[2],
		t.Anchor[0], t.Anchor[1], t.Anchor[2])
	return m
}

// Plane is a clip half-space: points p with dot(Normal, p) <= Distance are
// kept, the rest clipped (spec §3's clip planes).
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// NodeBase is the common data every node-kind resource embeds (spec §3's
// abstract Node). Containers (children/parts) hold ResourceIDs rather than
// pointers since every node is independently addressable through the
// owning Session's Table.
type NodeBase struct {
	id ResourceID

	transform Transform

	parent   ResourceID
	relation ParentRelation
	children []ResourceID
	parts    []ResourceID

	tag             uint32
	eventMask       uint32
	clipToSelf      bool
	clipPlanes      []Plane
	hitTestBehavior HitTestBehavior

	acceptsChildren bool
	acceptsParts    bool

	cachedGlobalDirty bool
	cachedGlobal      [16]float32
	cachedScene       ResourceID
}

func newNodeBase(acceptsChildren, acceptsParts bool) NodeBase {
	return NodeBase{
		transform:         IdentityTransform(),
		acceptsChildren:   acceptsChildren,
		acceptsParts:      acceptsParts,
		cachedGlobalDirty: true,
	}
}

// ID returns the ResourceID this node was created at.
func (n *NodeBase) ID() ResourceID { return n.id }

// Parent returns the current parent and the relation it's held by
// (RelationNone if unparented).
func (n *NodeBase) Parent() (ResourceID, ParentRelation) { return n.parent, n.relation }

// Children returns the node's ordered child list. Callers must not
// mutate the returned slice.
func (n *NodeBase) Children() []ResourceID { return n.children }

// Parts returns the node's ordered part list. Callers must not mutate
// the returned slice.
func (n *NodeBase) Parts() []ResourceID { return n.parts }

// Tag returns the node's hit-test tag (0 means untagged).
func (n *NodeBase) Tag() uint32 { return n.tag }

// SetTag sets the node's hit-test tag.
func (n *NodeBase) SetTag(tag uint32) { n.tag = tag }

// HitTestBehavior returns the node's current hit-test behavior.
func (n *NodeBase) HitTestBehavior() HitTestBehavior { return n.hitTestBehavior }

// SetHitTestBehavior sets the node's hit-test behavior.
func (n *NodeBase) SetHitTestBehavior(b HitTestBehavior) { n.hitTestBehavior = b }

// SetClipToSelf sets the node's clip_to_self flag (spec §4.5). The flag is
// stored and reported by ClipToSelf; hit testing does not consult it.
func (n *NodeBase) SetClipToSelf(clip bool) { n.clipToSelf = clip }

// ClipToSelf reports the node's clip_to_self flag.
func (n *NodeBase) ClipToSelf() bool { return n.clipToSelf }

// SetClipPlanes replaces the node's clip half-space set.
func (n *NodeBase) SetClipPlanes(planes []Plane) { n.clipPlanes = planes }

// ClipPlanes returns the node's clip half-spaces.
func (n *NodeBase) ClipPlanes() []Plane { return n.clipPlanes }

// Transform returns the node's current local transform.
func (n *NodeBase) Transform() Transform { return n.transform }

// EventMask returns the node's subscribed metrics-event mask.
func (n *NodeBase) EventMask() uint32 { return n.eventMask }

// SetEventMask updates the node's metrics-event subscription mask. Per
// spec §4.5, dropping the subscription (mask goes to 0) clears any cached
// reported metrics so a fresh delivery occurs on the next resubscribe;
// callers own that cache and must clear it themselves when this returns
// true.
func (n *NodeBase) SetEventMask(mask uint32) (subscriptionDropped bool) {
	dropped := n.eventMask != 0 && mask == 0
	n.eventMask = mask
	return dropped
}

// nodeLike is implemented by every node-kind resource, giving the Graph
// access to the shared NodeBase regardless of concrete kind.
type nodeLike interface {
	Resource
	base() *NodeBase
}

var (
	// ErrNodeNotFound is returned when a Graph operation references a
	// ResourceID that is not a node-kind resource in the table.
	ErrNodeNotFound = errors.New("scenegraph: resource is not a node")
	// ErrRejectedByKind is returned when a parent's kind does not permit
	// the requested child/part relation.
	ErrRejectedByKind = errors.New("scenegraph: node kind does not accept this relation")
	// ErrAlreadyParented reports a node that already has a parent.
	// AddChild/AddPart do not return it: they detach an already-parented
	// node from its old parent and reattach it.
	ErrAlreadyParented = errors.New("scenegraph: node already has a parent")
)

// Graph provides parent/child mutation, lazy global-transform
// recomputation, and containing-Scene refresh over a Session's resource
// Table (spec §4.5). It holds no node data of its own; every node lives in
// the Table and Graph only walks the parent/children/parts links stored
// on each node's NodeBase.
type Graph struct {
	table    *Table
	bindings map[ResourceID][]variableBinding
}

// NewGraph returns a Graph operating over t.
func NewGraph(t *Table) *Graph {
	return &Graph{table: t}
}

// NodeProperty identifies which Transform field a Variable-backed
// one-way binding drives (spec §4.7).
type NodeProperty int

const (
	PropertyTranslation NodeProperty = iota
	PropertyScale
	PropertyRotation
	PropertyAnchor
)

type variableBinding struct {
	nodeID   ResourceID
	property NodeProperty
}

// BindProperty registers a one-way binding: whenever ApplyVariable is
// called for variableID, nodeID's property is overwritten with the
// Variable's current value and the node's cached global transform
// invalidated (spec §4.7).
func (g *Graph) BindProperty(variableID, nodeID ResourceID, property NodeProperty) error {
	if _, err := g.node(nodeID); err != nil {
		return err
	}
	if g.bindings == nil {
		g.bindings = make(map[ResourceID][]variableBinding)
	}
	g.bindings[variableID] = append(g.bindings[variableID], variableBinding{nodeID: nodeID, property: property})
	return nil
}

// ApplyVariable pushes v's current value into every node property bound
// to variableID, invalidating each affected node's cached global
// transform (and its descendants').
func (g *Graph) ApplyVariable(variableID ResourceID, v *Variable) {
	for _, b := range g.bindings[variableID] {
		n, err := g.node(b.nodeID)
		if err != nil {
			continue
		}
		nb := n.base()
		switch b.property {
		case PropertyTranslation:
			nb.transform.Translation = v.Vector3
		case PropertyScale:
			nb.transform.Scale = v.Vector3
		case PropertyRotation:
			nb.transform.Rotation = v.Quaternion
		case PropertyAnchor:
			nb.transform.Anchor = v.Vector3
		}
		g.invalidateSubtree(b.nodeID)
	}
}

func (g *Graph) node(id ResourceID) (nodeLike, error) {
	res, ok := g.table.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownResourceID, id)
	}
	nl, ok := res.(nodeLike)
	if !ok {
		return nil, fmt.Errorf("%w: id %d (kind %v)", ErrNodeNotFound, id, res.Kind())
	}
	return nl, nil
}

// AddChild attaches child to parent's child list, first detaching child
// from any current parent; parent's kind must accept children.
func (g *Graph) AddChild(parentID, childID ResourceID) error {
	return g.attach(parentID, childID, RelationChild)
}

// AddPart attaches part to parent's part list, first detaching part from
// any current parent; parent's kind must accept parts.
func (g *Graph) AddPart(parentID, partID ResourceID) error {
	return g.attach(parentID, partID, RelationPart)
}

func (g *Graph) attach(parentID, childID ResourceID, relation ParentRelation) error {
	parent, err := g.node(parentID)
	if err != nil {
		return err
	}
	child, err := g.node(childID)
	if err != nil {
		return err
	}
	pb := parent.base()
	if relation == RelationChild && !pb.acceptsChildren {
		return fmt.Errorf("%w: %v cannot accept children", ErrRejectedByKind, parent.Kind())
	}
	if relation == RelationPart && !pb.acceptsParts {
		return fmt.Errorf("%w: %v cannot accept parts", ErrRejectedByKind, parent.Kind())
	}
	cb := child.base()
	if cb.relation != RelationNone {
		// Re-parenting detaches first without firing detach callbacks at
		// the client level (spec §4.5); the caller-visible Detach
		// operation is reserved for an explicit detach command.
		g.detachSilently(cb)
	}
	cb.parent = parentID
	cb.relation = relation
	if relation == RelationChild {
		pb.children = append(pb.children, childID)
	} else {
		pb.parts = append(pb.parts, childID)
	}
	g.invalidateSubtree(childID)
	g.RefreshScene(childID)
	return nil
}

// Detach removes id from its parent's child or part list (spec §4.5). It
// is a no-op if id is already unparented.
func (g *Graph) Detach(id ResourceID) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	nb := n.base()
	if nb.relation == RelationNone {
		return nil
	}
	parent, err := g.node(nb.parent)
	if err != nil {
		return err
	}
	g.detachSilently(nb)
	_ = parent
	g.invalidateSubtree(id)
	g.RefreshScene(id)
	return nil
}

func (g *Graph) detachSilently(nb *NodeBase) {
	if nb.relation == RelationNone {
		return
	}
	if parent, err := g.node(nb.parent); err == nil {
		pb := parent.base()
		if nb.relation == RelationChild {
			pb.children = removeID(pb.children, nb.id)
		} else {
			pb.parts = removeID(pb.parts, nb.id)
		}
	}
	nb.parent = NilResource
	nb.relation = RelationNone
}

func removeID(list []ResourceID, id ResourceID) []ResourceID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// SetTransform replaces id's local transform and invalidates its cached
// global transform (and every descendant's).
func (g *Graph) SetTransform(id ResourceID, tr Transform) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	n.base().transform = tr
	g.invalidateSubtree(id)
	return nil
}

// invalidateSubtree marks id's and every descendant's (children and parts)
// cached global transform dirty (spec §4.5). It does not follow a
// ViewHolder's resolved link to the peer ViewNode.
func (g *Graph) invalidateSubtree(id ResourceID) {
	n, err := g.node(id)
	if err != nil {
		return
	}
	nb := n.base()
	nb.cachedGlobalDirty = true
	for _, c := range nb.children {
		g.invalidateSubtree(c)
	}
	for _, p := range nb.parts {
		g.invalidateSubtree(p)
	}
}

// GlobalTransform returns parent's global transform × id's local
// transform, computing and caching it lazily if dirty (spec §4.5).
func (g *Graph) GlobalTransform(id ResourceID) ([16]float32, error) {
	n, err := g.node(id)
	if err != nil {
		return [16]float32{}, err
	}
	nb := n.base()
	if !nb.cachedGlobalDirty {
		return nb.cachedGlobal, nil
	}
	local := nb.transform.Matrix()
	if nb.relation == RelationNone {
		nb.cachedGlobal = local
	} else {
		parentGlobal, err := g.GlobalTransform(nb.parent)
		if err != nil {
			return [16]float32{}, err
		}
		var out [16]float32
		common.Mul4(out[:], parentGlobal[:], local[:])
		nb.cachedGlobal = out
	}
	nb.cachedGlobalDirty = false
	return nb.cachedGlobal, nil
}

// RefreshScene recomputes id's and every descendant's containing-Scene
// cache: a node not reachable from a Scene (no parent, or a parent with
// no containing Scene) has ContainingScene() == NilResource.
func (g *Graph) RefreshScene(id ResourceID) {
	n, err := g.node(id)
	if err != nil {
		return
	}
	nb := n.base()
	if _, ok := n.(*Scene); ok {
		nb.cachedScene = id
	} else if nb.relation == RelationNone {
		nb.cachedScene = NilResource
	} else if parent, err := g.node(nb.parent); err == nil {
		nb.cachedScene = parent.base().cachedScene
	} else {
		nb.cachedScene = NilResource
	}
	for _, c := range nb.children {
		g.RefreshScene(c)
	}
	for _, p := range nb.parts {
		g.RefreshScene(p)
	}
}

// ContainingScene returns id's cached containing-Scene pointer
// (NilResource if none).
func (g *Graph) ContainingScene(id ResourceID) (ResourceID, error) {
	n, err := g.node(id)
	if err != nil {
		return NilResource, err
	}
	return n.base().cachedScene, nil
}
