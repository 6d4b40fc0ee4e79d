package scenegraph

import "testing"

func TestHitTestFindsTaggedShapeNode(t *testing.T) {
	tb := NewTable()
	g := NewGraph(tb)

	tb.Create(1, NewScene())
	tb.Create(2, NewShapeNode())
	tb.Create(3, &CircleShape{Radius: 1})
	g.AddChild(1, 2)

	shapeNode := mustShapeNode(t, tb, 2)
	shapeNode.SetShape(3)
	shapeNode.SetTag(7)

	ray := Ray{OriginX: 0, OriginY: 0, OriginZ: -5, DirX: 0, DirY: 0, DirZ: 1}
	hits := HitTest(g, tb, 1, ray, nil)
	if len(hits) != 1 {
		t.Fatalf("HitTest found %d hits, want 1", len(hits))
	}
	if hits[0].NodeID != 2 {
		t.Fatalf("hit node = %d, want 2", hits[0].NodeID)
	}
	if hits[0].Distance != 5 {
		t.Fatalf("hit distance = %v, want 5", hits[0].Distance)
	}
}

func TestHitTestSkipsUntaggedNode(t *testing.T) {
	tb := NewTable()
	g := NewGraph(tb)
	tb.Create(1, NewScene())
	tb.Create(2, NewShapeNode())
	tb.Create(3, &CircleShape{Radius: 1})
	g.AddChild(1, 2)
	mustShapeNode(t, tb, 2).SetShape(3) // tag left at 0

	ray := Ray{OriginZ: -5, DirZ: 1}
	hits := HitTest(g, tb, 1, ray, nil)
	if len(hits) != 0 {
		t.Fatalf("HitTest found %d hits for an untagged node, want 0", len(hits))
	}
}

func TestHitTestSuppressPrunesSubtree(t *testing.T) {
	tb := NewTable()
	g := NewGraph(tb)
	tb.Create(1, NewScene())
	tb.Create(2, NewEntityNode())
	tb.Create(3, NewShapeNode())
	tb.Create(4, &CircleShape{Radius: 1})
	g.AddChild(1, 2)
	g.AddChild(2, 3)
	mustShapeNode(t, tb, 3).SetShape(4)
	mustShapeNode(t, tb, 3).SetTag(1)

	n2, _ := tb.Get(2)
	n2.(*EntityNode).SetHitTestBehavior(HitTestSuppress)

	ray := Ray{OriginZ: -5, DirZ: 1}
	hits := HitTest(g, tb, 1, ray, nil)
	if len(hits) != 0 {
		t.Fatalf("HitTest found %d hits under a Suppress node, want 0", len(hits))
	}
}

func TestHitTestSessionFilterExcludesOtherSessionTags(t *testing.T) {
	tb := NewTable()
	g := NewGraph(tb)
	tb.Create(1, NewScene())
	tb.Create(2, NewShapeNode())
	tb.Create(3, &CircleShape{Radius: 1})
	g.AddChild(1, 2)
	sn := mustShapeNode(t, tb, 2)
	sn.SetShape(3)
	sn.SetTag(9)

	ray := Ray{OriginZ: -5, DirZ: 1}
	hits := HitTest(g, tb, 1, ray, func(ResourceID) bool { return false })
	if len(hits) != 0 {
		t.Fatalf("HitTest with a rejecting filter found %d hits, want 0", len(hits))
	}
}

func mustShapeNode(t *testing.T, tb *Table, id ResourceID) *ShapeNode {
	t.Helper()
	res, ok := tb.Get(id)
	if !ok {
		t.Fatalf("resource %d not found", id)
	}
	sn, ok := res.(*ShapeNode)
	if !ok {
		t.Fatalf("resource %d is not a ShapeNode", id)
	}
	return sn
}
