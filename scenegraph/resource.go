// Package scenegraph implements the core's resource table, node graph, and
// cross-session View/ViewHolder linker (spec §3, §4.5). Resources are a
// tagged-variant model — one ResourceKind discriminant per concrete type,
// flat attribute structs — following the teacher's Node (kind-tagged
// EntityNode/ShapeNode/... via an embedded base struct, not deep interface
// dispatch) rather than a class hierarchy. The resource table is a plain
// map from ResourceID to a ref-counted entry.
package scenegraph

import (
	"errors"
	"fmt"
)

// ResourceID identifies a resource within a single Session's resource map
// (spec §3). Zero is reserved as "invalid/none".
type ResourceID uint32

// NilResource is the reserved invalid/none ResourceID.
const NilResource ResourceID = 0

// ErrDuplicateResourceID is returned by Table.Create when id is already
// mapped in this table.
var ErrDuplicateResourceID = errors.New("scenegraph: duplicate resource id")

// ErrUnknownResourceID is returned when an operation references an id not
// present (or no longer mapped) in the table.
var ErrUnknownResourceID = errors.New("scenegraph: unknown resource id")

// Kind discriminates the tagged-variant resource types (spec §3).
type Kind int

const (
	KindEntityNode Kind = iota
	KindShapeNode
	KindOpacityNode
	KindClipNode
	KindScene
	KindView
	KindViewNode
	KindViewHolder
	KindShape
	KindMaterial
	KindImage
	KindImagePipe
	KindBuffer
	KindMemory
	KindCamera
	KindStereoCamera
	KindRenderer
	KindLayer
	KindLayerStack
	KindCompositor
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindEntityNode:
		return "EntityNode"
	case KindShapeNode:
		return "ShapeNode"
	case KindOpacityNode:
		return "OpacityNode"
	case KindClipNode:
		return "ClipNode"
	case KindScene:
		return "Scene"
	case KindView:
		return "View"
	case KindViewNode:
		return "ViewNode"
	case KindViewHolder:
		return "ViewHolder"
	case KindShape:
		return "Shape"
	case KindMaterial:
		return "Material"
	case KindImage:
		return "Image"
	case KindImagePipe:
		return "ImagePipe"
	case KindBuffer:
		return "Buffer"
	case KindMemory:
		return "Memory"
	case KindCamera:
		return "Camera"
	case KindStereoCamera:
		return "StereoCamera"
	case KindRenderer:
		return "Renderer"
	case KindLayer:
		return "Layer"
	case KindLayerStack:
		return "LayerStack"
	case KindCompositor:
		return "Compositor"
	case KindVariable:
		return "Variable"
	default:
		return "Unknown"
	}
}

// Resource is the common surface every tagged-variant entry satisfies.
type Resource interface {
	Kind() Kind
}

// entry is a ref-counted slot in a Table: the resource persists as long as
// refCount > 0, even after its owning session's mapped-count (the
// table-level Create/Release pair) has dropped to zero, because something
// else in the graph (e.g. a Material referencing an Image) still holds it.
type entry struct {
	res      Resource
	mapped   bool // still present in the session's id->entry map
	refCount int
}

// Table is a Session-scoped resource map: ResourceID -> Resource, with
// ref-counting so a resource referenced from elsewhere in the scene graph
// survives its owning id being released (spec §3's "mapped-count may drop
// to zero while the graph still reaches the resource").
type Table struct {
	entries map[ResourceID]*entry
}

// NewTable returns an empty resource table.
func NewTable() *Table {
	return &Table{entries: make(map[ResourceID]*entry)}
}

// Create maps id to res with an initial reference count of 1. It is an
// error to reuse an id already mapped in this table.
func (t *Table) Create(id ResourceID, res Resource) error {
	if id == NilResource {
		return fmt.Errorf("scenegraph: cannot create resource at id 0")
	}
	if e, ok := t.entries[id]; ok && e.mapped {
		return fmt.Errorf("%w: %d", ErrDuplicateResourceID, id)
	}
	if nl, ok := res.(nodeLike); ok {
		nb := nl.base()
		nb.id = id
		if _, isScene := res.(*Scene); isScene {
			nb.cachedScene = id
		}
	}
	t.entries[id] = &entry{res: res, mapped: true, refCount: 1}
	return nil
}

// Get returns the resource mapped to id, or (nil, false) if id is not
// currently mapped (it may still exist with refCount>0 if only released).
func (t *Table) Get(id ResourceID) (Resource, bool) {
	e, ok := t.entries[id]
	if !ok || !e.mapped {
		return nil, false
	}
	return e.res, true
}

// Reference increments id's reference count, for another resource that is
// about to hold a pointer to it (e.g. AddChild, SetMaterial). It is an
// error for id to be unmapped or unknown.
func (t *Table) Reference(id ResourceID) error {
	if id == NilResource {
		return nil
	}
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownResourceID, id)
	}
	e.refCount++
	return nil
}

// Unreference decrements id's reference count, dropping the entry
// entirely once it reaches zero and the id is no longer mapped.
func (t *Table) Unreference(id ResourceID) {
	if id == NilResource {
		return
	}
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount <= 0 && !e.mapped {
		delete(t.entries, id)
	}
}

// Release drops id from the session's mapped set (the client can no
// longer look it up by id), decrementing its reference count; the entry
// persists if other resources still hold a reference to it.
func (t *Table) Release(id ResourceID) error {
	e, ok := t.entries[id]
	if !ok || !e.mapped {
		return fmt.Errorf("%w: %d", ErrUnknownResourceID, id)
	}
	e.mapped = false
	e.refCount--
	if e.refCount <= 0 {
		delete(t.entries, id)
	}
	return nil
}

// Count returns the number of resources currently mapped (not the total
// entry count, which may include unmapped-but-still-referenced entries).
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.mapped {
			n++
		}
	}
	return n
}
