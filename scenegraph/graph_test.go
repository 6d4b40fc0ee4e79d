package scenegraph

import "testing"

func newTestGraph() (*Table, *Graph) {
	tb := NewTable()
	return tb, NewGraph(tb)
}

func TestAddChildRejectedByLeafKind(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewShapeNode())
	tb.Create(2, NewEntityNode())
	if err := g.AddChild(1, 2); err == nil {
		t.Fatalf("AddChild under a ShapeNode (no children accepted) did not error")
	}
}

func TestAddChildReparentsWithoutError(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewEntityNode())
	tb.Create(2, NewEntityNode())
	tb.Create(3, NewEntityNode())

	if err := g.AddChild(1, 3); err != nil {
		t.Fatalf("AddChild(1,3): %v", err)
	}
	if err := g.AddChild(2, 3); err != nil {
		t.Fatalf("AddChild(2,3) [reparent]: %v", err)
	}

	n1, _ := tb.Get(1)
	if children := n1.(*EntityNode).Children(); len(children) != 0 {
		t.Fatalf("old parent still lists child after reparent: %v", children)
	}
	n2, _ := tb.Get(2)
	if children := n2.(*EntityNode).Children(); len(children) != 1 || children[0] != 3 {
		t.Fatalf("new parent children = %v, want [3]", children)
	}
}

func TestDetachClearsParentLink(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewEntityNode())
	tb.Create(2, NewEntityNode())
	g.AddChild(1, 2)

	if err := g.Detach(2); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	n2, _ := tb.Get(2)
	parent, relation := n2.(*EntityNode).Parent()
	if parent != NilResource || relation != RelationNone {
		t.Fatalf("Parent() = (%d, %v), want (0, RelationNone)", parent, relation)
	}
}

func TestGlobalTransformComposesThroughAncestors(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewEntityNode())
	tb.Create(2, NewEntityNode())
	g.AddChild(1, 2)

	parentTr := IdentityTransform()
	parentTr.Translation = [3]float32{10, 0, 0}
	g.SetTransform(1, parentTr)

	childTr := IdentityTransform()
	childTr.Translation = [3]float32{0, 5, 0}
	g.SetTransform(2, childTr)

	m, err := g.GlobalTransform(2)
	if err != nil {
		t.Fatalf("GlobalTransform: %v", err)
	}
	if m[12] != 10 || m[13] != 5 {
		t.Fatalf("global translation = (%v, %v), want (10, 5)", m[12], m[13])
	}
}

func TestGlobalTransformCachedUntilInvalidated(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewEntityNode())
	m1, _ := g.GlobalTransform(1)
	if m1[0] != 1 {
		t.Fatalf("identity matrix expected initially")
	}
	tr := IdentityTransform()
	tr.Translation = [3]float32{1, 2, 3}
	g.SetTransform(1, tr)
	m2, _ := g.GlobalTransform(1)
	if m2[12] != 1 || m2[13] != 2 || m2[14] != 3 {
		t.Fatalf("global transform not recomputed after SetTransform: %v", m2)
	}
}

func TestRefreshSceneMarksDescendantsOfScene(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewScene())
	tb.Create(2, NewEntityNode())
	tb.Create(3, NewEntityNode())
	g.AddChild(1, 2)
	g.AddChild(2, 3)

	scene, err := g.ContainingScene(3)
	if err != nil {
		t.Fatalf("ContainingScene: %v", err)
	}
	if scene != 1 {
		t.Fatalf("ContainingScene(3) = %d, want 1", scene)
	}
}

func TestDetachedNodeHasNoContainingScene(t *testing.T) {
	tb, g := newTestGraph()
	tb.Create(1, NewScene())
	tb.Create(2, NewEntityNode())
	g.AddChild(1, 2)
	g.Detach(2)

	scene, _ := g.ContainingScene(2)
	if scene != NilResource {
		t.Fatalf("ContainingScene after detach = %d, want NilResource", scene)
	}
}
