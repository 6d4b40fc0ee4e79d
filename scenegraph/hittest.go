package scenegraph

import (
	"sort"

	"github.com/nimbusgfx/compositor/common"
)

// Ray is a ray expressed in some node's local coordinate frame.
type Ray struct {
	OriginX, OriginY, OriginZ float32
	DirX, DirY, DirZ          float32
}

func (r Ray) transformedBy(m [16]float32) Ray {
	ox := m[0]*r.OriginX + m[4]*r.OriginY + m[8]*r.OriginZ + m[12]
	oy := m[1]*r.OriginX + m[5]*r.OriginY + m[9]*r.OriginZ + m[13]
	oz := m[2]*r.OriginX + m[6]*r.OriginY + m[10]*r.OriginZ + m[14]
	dx := m[0]*r.DirX + m[4]*r.DirY + m[8]*r.DirZ
	dy := m[1]*r.DirX + m[5]*r.DirY + m[9]*r.DirZ
	dz := m[2]*r.DirX + m[6]*r.DirY + m[10]*r.DirZ
	return Ray{ox, oy, oz, dx, dy, dz}
}

// Hit is one accumulated hit-test result (spec §4.5).
type Hit struct {
	NodeID   ResourceID
	Distance float32
}

// SessionFilter, if non-nil, restricts tagged-node accumulation to nodes
// belonging to the querying session (spec §4.5's session-scoped queries).
// It receives the node's ResourceID; implementations of a session-scoped query
// typically close over the expected session id and the table's knowledge
// of which ids it owns.
type SessionFilter func(nodeID ResourceID) bool

// HitTest walks the subtree rooted at startID, accumulating hits per
// spec §4.5: the ray is transformed into each node's local frame via the
// inverse of the node's transform, Suppress prunes the subtree, a tagged
// node (passing filter, if given) records its nearest own-content
// intersection, and traversal recurses front-to-back into children then
// parts. Results are stably sorted by ascending distance, ties broken by
// traversal order.
func HitTest(g *Graph, t *Table, startID ResourceID, ray Ray, filter SessionFilter) []Hit {
	var out []Hit
	hitTestNode(g, t, startID, ray, filter, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func hitTestNode(g *Graph, t *Table, id ResourceID, ray Ray, filter SessionFilter, out *[]Hit) {
	n, err := g.node(id)
	if err != nil {
		return
	}
	nb := n.base()
	if nb.hitTestBehavior == HitTestSuppress {
		return
	}

	local := nb.transform.Matrix()
	var inv [16]float32
	localRay := ray
	if common.Invert4(inv[:], local[:]) {
		localRay = ray.transformedBy(inv)
	}

	if clipPrunes(nb, localRay) {
		return
	}

	if nb.tag != 0 && (filter == nil || filter(id)) {
		if dist, hit := ownContentIntersect(n, t, localRay); hit {
			*out = append(*out, Hit{NodeID: id, Distance: dist})
		}
	}

	for _, c := range nb.children {
		hitTestNode(g, t, c, localRay, filter, out)
	}
	for _, p := range nb.parts {
		hitTestNode(g, t, p, localRay, filter, out)
	}
}

// clipPrunes tests the ray origin against the node's clip planes: an
// origin on the far side of any plane (Normal·origin > Distance) prunes
// that node's subtree. It does not test against a ClipNode's parts or
// consult the clip_to_self flag.
func clipPrunes(nb *NodeBase, ray Ray) bool {
	for _, p := range nb.clipPlanes {
		d := p.Normal[0]*ray.OriginX + p.Normal[1]*ray.OriginY + p.Normal[2]*ray.OriginZ
		if d > p.Distance {
			return true
		}
	}
	return false
}

// ownContentIntersect returns the nearest intersection of a node's own
// drawable content (currently only ShapeNode has any) with a ray already
// in the node's local frame.
func ownContentIntersect(n nodeLike, t *Table, ray Ray) (float32, bool) {
	sn, ok := n.(*ShapeNode)
	if !ok || sn.shape == NilResource {
		return 0, false
	}
	res, ok := t.Get(sn.shape)
	if !ok {
		return 0, false
	}
	shape, ok := res.(Shape)
	if !ok {
		return 0, false
	}
	return shape.Intersect(ray.OriginX, ray.OriginY, ray.OriginZ, ray.DirX, ray.DirY, ray.DirZ)
}
