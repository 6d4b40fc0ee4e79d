package command

import (
	"errors"
	"testing"
	"time"

	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/session"
)

func newTestApplier() *Applier {
	return NewApplier(scenegraph.NewLinker(), 2, 16, time.Second)
}

func newTestGraph() (*scenegraph.Table, *scenegraph.Graph) {
	tb := scenegraph.NewTable()
	return tb, scenegraph.NewGraph(tb)
}

func TestApplyRunsCommandsInOrder(t *testing.T) {
	a := newTestApplier()
	tb, g := newTestGraph()
	cmds := []session.Command{
		NewCreateEntityNode(1),
		NewCreateEntityNode(2),
		&AddChild{ParentID: 1, ChildID: 2},
	}
	if err := a.Apply(tb, g, 0, cmds); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	res, ok := tb.Get(2)
	if !ok {
		t.Fatalf("child resource 2 not found after Apply")
	}
	child := res.(*scenegraph.EntityNode)
	parent, relation := child.Parent()
	if parent != 1 || relation != scenegraph.RelationChild {
		t.Fatalf("child parent = (%d, %v), want (1, RelationChild)", parent, relation)
	}
}

func TestApplyAbortsBatchOnFirstError(t *testing.T) {
	a := newTestApplier()
	tb, g := newTestGraph()
	cmds := []session.Command{
		NewCreateEntityNode(1),
		&AddChild{ParentID: 1, ChildID: 99}, // 99 does not exist
		NewCreateEntityNode(2),
	}
	if err := a.Apply(tb, g, 0, cmds); err == nil {
		t.Fatalf("Apply with a failing command = nil error, want non-nil")
	}
	if _, ok := tb.Get(2); ok {
		t.Fatalf("resource 2 created despite earlier command failing the batch")
	}
}

func TestApplyValidatesLargeBatchInParallel(t *testing.T) {
	a := newTestApplier()
	tb, g := newTestGraph()
	cmds := make([]session.Command, 0, parallelValidateThreshold+5)
	for i := 1; i <= parallelValidateThreshold+5; i++ {
		cmds = append(cmds, NewCreateEntityNode(scenegraph.ResourceID(i)))
	}
	// Append one invalid Release referencing a never-created id, so the
	// parallel validation phase must catch it before any Apply mutates
	// state.
	cmds = append(cmds, &ReleaseResource{ID: 9999})
	if err := a.Apply(tb, g, 0, cmds); err == nil {
		t.Fatalf("Apply with an invalid release in a large batch = nil error, want non-nil")
	}
}

func TestCreateResourceRejectsNilID(t *testing.T) {
	tb, g := newTestGraph()
	c := NewCreateEntityNode(scenegraph.NilResource)
	if err := c.Apply(tb, g, 0); err != ErrInvalidResourceID {
		t.Fatalf("CreateResource at id 0 = %v, want ErrInvalidResourceID", err)
	}
}

func TestCreateResourceRejectsDuplicateID(t *testing.T) {
	tb, g := newTestGraph()
	if err := NewCreateEntityNode(1).Apply(tb, g, 0); err != nil {
		t.Fatalf("first CreateResource: %v", err)
	}
	if err := NewCreateEntityNode(1).Apply(tb, g, 0); !errors.Is(err, scenegraph.ErrDuplicateResourceID) {
		t.Fatalf("duplicate CreateResource = %v, want ErrDuplicateResourceID", err)
	}
}

func TestReleaseResourceValidateRejectsUnknownID(t *testing.T) {
	tb, _ := newTestGraph()
	c := &ReleaseResource{ID: 42}
	if err := c.Validate(tb); err == nil {
		t.Fatalf("Validate of unreleased unknown id = nil, want error")
	}
}

func TestSetTranslationUpdatesTransform(t *testing.T) {
	tb, g := newTestGraph()
	if err := NewCreateEntityNode(1).Apply(tb, g, 0); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	c := &SetTranslation{ID: 1, Value: [3]float32{1, 2, 3}}
	if err := c.Apply(tb, g, 0); err != nil {
		t.Fatalf("SetTranslation: %v", err)
	}
	res, _ := tb.Get(1)
	n := res.(*scenegraph.EntityNode)
	if n.Transform().Translation != [3]float32{1, 2, 3} {
		t.Fatalf("Translation = %v, want {1 2 3}", n.Transform().Translation)
	}
}

func TestSetTranslationPreservesOtherFields(t *testing.T) {
	tb, g := newTestGraph()
	if err := NewCreateEntityNode(1).Apply(tb, g, 0); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	if err := (&SetScale{ID: 1, Value: [3]float32{2, 2, 2}}).Apply(tb, g, 0); err != nil {
		t.Fatalf("SetScale: %v", err)
	}
	if err := (&SetTranslation{ID: 1, Value: [3]float32{5, 0, 0}}).Apply(tb, g, 0); err != nil {
		t.Fatalf("SetTranslation: %v", err)
	}
	res, _ := tb.Get(1)
	n := res.(*scenegraph.EntityNode)
	if n.Transform().Scale != [3]float32{2, 2, 2} {
		t.Fatalf("Scale clobbered by SetTranslation: %v", n.Transform().Scale)
	}
}

func TestSetShapeNodeContentReferencesAndReplaces(t *testing.T) {
	tb, g := newTestGraph()
	for _, c := range []session.Command{
		NewCreateShapeNode(1),
		NewCreateCircleShape(2, 5),
		NewCreateCircleShape(3, 10),
		NewCreateMaterial(4),
	} {
		if err := c.Apply(tb, g, 0); err != nil {
			t.Fatalf("setup command: %v", err)
		}
	}
	if err := (&SetShapeNodeContent{ShapeNodeID: 1, ShapeID: 2, MaterialID: 4}).Apply(tb, g, 0); err != nil {
		t.Fatalf("first SetShapeNodeContent: %v", err)
	}
	if err := (&SetShapeNodeContent{ShapeNodeID: 1, ShapeID: 3}).Apply(tb, g, 0); err != nil {
		t.Fatalf("second SetShapeNodeContent: %v", err)
	}
	res, _ := tb.Get(1)
	n := res.(*scenegraph.ShapeNode)
	if n.Shape() != 3 {
		t.Fatalf("ShapeNode.Shape() = %d, want 3", n.Shape())
	}
	if n.Material() != 4 {
		t.Fatalf("ShapeNode.Material() = %d, want 4 (unchanged)", n.Material())
	}
	// Shape 2 was dereferenced when shape 3 replaced it, so releasing its
	// only remaining (mapped) reference drops its entry entirely.
	if err := (&ReleaseResource{ID: 2}).Apply(tb, g, 0); err != nil {
		t.Fatalf("ReleaseResource on dereferenced shape 2: %v", err)
	}
	if _, ok := tb.Get(2); ok {
		t.Fatalf("resource 2 still present after its last reference was released")
	}
}

func TestExportImportResolveAndSetWeakReferences(t *testing.T) {
	a := newTestApplier()
	exporterTb, exporterG := newTestGraph()
	importerTb, importerG := newTestGraph()

	for _, c := range []session.Command{
		NewCreateViewHolder(1, 1),
	} {
		if err := c.Apply(exporterTb, exporterG, 0); err != nil {
			t.Fatalf("exporter setup: %v", err)
		}
	}
	for _, c := range []session.Command{
		NewCreateView(10),
		NewCreateViewNode(11, 10),
	} {
		if err := c.Apply(importerTb, importerG, 1); err != nil {
			t.Fatalf("importer setup: %v", err)
		}
	}

	const link scenegraph.LinkID = 7
	if err := a.NewExport(link, 1).Apply(exporterTb, exporterG, 0); err != nil {
		t.Fatalf("Export.Apply: %v", err)
	}
	if err := a.NewImport(link, 10, 11).Apply(importerTb, importerG, 1); err != nil {
		t.Fatalf("Import.Apply: %v", err)
	}

	holderRes, _ := exporterTb.Get(1)
	holder := holderRes.(*scenegraph.ViewHolder)
	if holder.ResolvedView() != 11 {
		t.Fatalf("ViewHolder.ResolvedView() = %d, want 11", holder.ResolvedView())
	}

	viewRes, _ := importerTb.Get(10)
	view := viewRes.(*scenegraph.View)
	if view.ResolvedHolder() != 1 {
		t.Fatalf("View.ResolvedHolder() = %d, want 1", view.ResolvedHolder())
	}
}

func TestBindPropertyAndSetVariableValueDriveTransform(t *testing.T) {
	tb, g := newTestGraph()
	for _, c := range []session.Command{
		NewCreateEntityNode(1),
		NewCreateVariable(2, scenegraph.VariableTypeVector3),
	} {
		if err := c.Apply(tb, g, 0); err != nil {
			t.Fatalf("setup command: %v", err)
		}
	}
	bind := &BindProperty{VariableID: 2, NodeID: 1, Property: scenegraph.PropertyTranslation}
	if err := bind.Apply(tb, g, 0); err != nil {
		t.Fatalf("BindProperty.Apply: %v", err)
	}
	set := &SetVariableValue{VariableID: 2, Vector3: [3]float32{4, 5, 6}}
	if err := set.Apply(tb, g, 0); err != nil {
		t.Fatalf("SetVariableValue.Apply: %v", err)
	}
	res, _ := tb.Get(1)
	n := res.(*scenegraph.EntityNode)
	if n.Transform().Translation != [3]float32{4, 5, 6} {
		t.Fatalf("Translation = %v, want {4 5 6}", n.Transform().Translation)
	}
}
