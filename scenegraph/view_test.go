package scenegraph

import "testing"

func TestLinkerResolvesExportBeforeImport(t *testing.T) {
	l := NewLinker()
	var order []string
	var resolvedPeerForExport, resolvedPeerForImport ResourceID

	l.RegisterExportHolder(1, 100, func(peer ResourceID) {
		order = append(order, "export")
		resolvedPeerForExport = peer
	}, func() { order = append(order, "export-failed") })

	l.RegisterImportView(1, 200, func(peer ResourceID) {
		order = append(order, "import")
		resolvedPeerForImport = peer
	}, func() { order = append(order, "import-failed") })

	if len(order) != 2 || order[0] != "export" || order[1] != "import" {
		t.Fatalf("resolution order = %v, want [export import]", order)
	}
	if resolvedPeerForExport != 200 {
		t.Fatalf("export side's peer = %d, want 200 (the View's resource id)", resolvedPeerForExport)
	}
	if resolvedPeerForImport != 100 {
		t.Fatalf("import side's peer = %d, want 100 (the ViewHolder's resource id)", resolvedPeerForImport)
	}
}

func TestLinkerRejectsDuplicateTokenUse(t *testing.T) {
	l := NewLinker()
	l.RegisterExportHolder(1, 100, func(ResourceID) {}, func() {})
	if err := l.RegisterExportHolder(1, 101, func(ResourceID) {}, func() {}); err != ErrLinkTokenInUse {
		t.Fatalf("duplicate RegisterExportHolder = %v, want ErrLinkTokenInUse", err)
	}
}

func TestLinkerDestroyAfterResolveFiresPeerFailed(t *testing.T) {
	l := NewLinker()
	importFailed := false
	l.RegisterExportHolder(1, 100, func(ResourceID) {}, func() {})
	l.RegisterImportView(1, 200, func(ResourceID) {}, func() { importFailed = true })

	l.DestroyExportHolder(1)
	if !importFailed {
		t.Fatalf("destroying a resolved Export side did not fire the Import side's link_failed")
	}
}

func TestLinkerRegisterAfterPeerDestroyedFiresFailedImmediately(t *testing.T) {
	l := NewLinker()
	l.RegisterExportHolder(1, 100, func(ResourceID) {}, func() {})
	l.DestroyExportHolder(1)

	importFailed := false
	l.RegisterImportView(1, 200, func(ResourceID) {}, func() { importFailed = true })
	if !importFailed {
		t.Fatalf("registering against an already-destroyed peer did not fire link_failed immediately")
	}
}
