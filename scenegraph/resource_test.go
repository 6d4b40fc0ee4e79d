package scenegraph

import "testing"

func TestTableCreateAndGet(t *testing.T) {
	tb := NewTable()
	if err := tb.Create(1, NewMaterial()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, ok := tb.Get(1)
	if !ok {
		t.Fatalf("Get(1) not found")
	}
	if res.Kind() != KindMaterial {
		t.Fatalf("Kind() = %v, want Material", res.Kind())
	}
}

func TestTableRejectsDuplicateID(t *testing.T) {
	tb := NewTable()
	tb.Create(1, NewMaterial())
	if err := tb.Create(1, NewMaterial()); err == nil {
		t.Fatalf("Create with duplicate id did not error")
	}
}

func TestTableSurvivesReleaseWhileReferenced(t *testing.T) {
	tb := NewTable()
	tb.Create(1, NewMaterial())
	tb.Reference(1) // something else in the graph now also holds id 1

	if err := tb.Release(1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := tb.Get(1); ok {
		t.Fatalf("Get(1) succeeded after Release, want not-mapped")
	}
	if tb.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", tb.Count())
	}

	// The entry itself must still exist (refCount was 2, only 1
	// decremented by Release) until the other reference drops too.
	tb.Unreference(1)
	// A second Unreference with no more references is a no-op, not a
	// panic or error.
	tb.Unreference(1)
}

func TestTableReleaseUnknownID(t *testing.T) {
	tb := NewTable()
	if err := tb.Release(42); err == nil {
		t.Fatalf("Release of unmapped id did not error")
	}
}
