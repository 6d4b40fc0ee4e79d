package scenegraph

import (
	"fmt"
	"sync"
)

// View is the client-owned end of a cross-session view link: it owns a
// single ViewNode. Once the link resolves, the ViewHolder records that
// ViewNode's id as a cross-session reference; the ViewNode is not added to
// the ViewHolder's child list (spec §3).
type View struct {
	ViewNode    ResourceID
	IsRendering bool

	// resolvedHolder is the peer ViewHolder's id once the cross-session
	// link resolves, mirroring ViewHolder.resolvedView on the other side.
	resolvedHolder ResourceID
}

// SetResolvedHolder records the peer ViewHolder's id once the link
// resolves, or NilResource once it fails or the peer is destroyed.
func (v *View) SetResolvedHolder(id ResourceID) { v.resolvedHolder = id }

// ResolvedHolder returns the peer ViewHolder's id, or NilResource if the
// link has not resolved (or has since failed).
func (v *View) ResolvedHolder() ResourceID { return v.resolvedHolder }

func NewView() *View { return &View{} }

func (v *View) Kind() Kind { return KindView }

// LinkID identifies a paired Export/Import token registration with the
// Linker. In the real protocol each side holds a distinct kernel-object
// token that carries a peer-id reference to the other; here the caller
// (the command applier, which sees both a CreateToken pair's handles
// up front) supplies the same LinkID to both RegisterExportHolder and
// RegisterImportView, which is equivalent for a single-process Linker.
type LinkID uint64

type linkSide struct {
	resourceID ResourceID
	onResolved func(peer ResourceID)
	onFailed   func()
	resolved   bool
	destroyed  bool
}

type linkEntry struct {
	export *linkSide
	imp    *linkSide
	// exportClosed/importClosed record that the respective side was
	// registered and then torn down (or, in a fuller protocol, that its
	// token's handle closed before ever registering) — the peer-death
	// watch from spec §4.5: any later registration on the other side
	// must see this and fire link_failed immediately rather than wait
	// forever for a peer that will never arrive.
	exportClosed bool
	importClosed bool
}

// ErrLinkTokenInUse is returned by Register* when the given LinkID's
// export or import side (respectively) is already registered.
var ErrLinkTokenInUse = fmt.Errorf("scenegraph: link token already registered for this side")

// Linker pairs Export (ViewHolder) and Import (View) tokens across
// Sessions (spec §4.5). Each side registers once; when both sides of a
// pair are registered, both fire link_resolved — Export first, then
// Import. Destroying either side, if the other was already resolved,
// invokes the other's link_failed.
type Linker struct {
	mu    sync.Mutex
	links map[LinkID]*linkEntry
}

func NewLinker() *Linker {
	return &Linker{links: make(map[LinkID]*linkEntry)}
}

func (l *Linker) entry(id LinkID) *linkEntry {
	e, ok := l.links[id]
	if !ok {
		e = &linkEntry{}
		l.links[id] = e
	}
	return e
}

// RegisterExportHolder registers the ViewHolder side of link id. If the
// Import side is already registered and not destroyed, both sides'
// link_resolved fire synchronously before this returns (Export first). If
// the Import side was already destroyed, onFailed fires synchronously
// instead.
func (l *Linker) RegisterExportHolder(id LinkID, holderID ResourceID, onResolved func(peer ResourceID), onFailed func()) error {
	return l.register(id, true, holderID, onResolved, onFailed)
}

// RegisterImportView registers the View side of link id, with the same
// resolution semantics as RegisterExportHolder.
func (l *Linker) RegisterImportView(id LinkID, viewID ResourceID, onResolved func(peer ResourceID), onFailed func()) error {
	return l.register(id, false, viewID, onResolved, onFailed)
}

func (l *Linker) register(id LinkID, isExport bool, resourceID ResourceID, onResolved func(ResourceID), onFailed func()) error {
	l.mu.Lock()
	e := l.entry(id)
	side := &linkSide{resourceID: resourceID, onResolved: onResolved, onFailed: onFailed}

	var mine **linkSide
	var peer *linkSide
	var peerClosed bool
	if isExport {
		mine, peer, peerClosed = &e.export, e.imp, e.importClosed
	} else {
		mine, peer, peerClosed = &e.imp, e.export, e.exportClosed
	}
	if *mine != nil {
		l.mu.Unlock()
		return ErrLinkTokenInUse
	}
	*mine = side

	switch {
	case peer == nil && peerClosed:
		l.mu.Unlock()
		onFailed()
	case peer == nil:
		l.mu.Unlock()
	case peer.destroyed:
		l.mu.Unlock()
		onFailed()
	default:
		side.resolved = true
		peer.resolved = true
		var exp, imp *linkSide
		if isExport {
			exp, imp = side, peer
		} else {
			exp, imp = peer, side
		}
		l.mu.Unlock()
		exp.onResolved(imp.resourceID)
		imp.onResolved(exp.resourceID)
	}
	return nil
}

// DestroyExportHolder tears down the Export side of link id: if the
// Import side had already resolved, its link_failed fires (moved out of
// the side record first, since invoking it may destroy the endpoint).
func (l *Linker) DestroyExportHolder(id LinkID) { l.destroy(id, true) }

// DestroyImportView tears down the Import side of link id, with the
// same semantics as DestroyExportHolder.
func (l *Linker) DestroyImportView(id LinkID) { l.destroy(id, false) }

func (l *Linker) destroy(id LinkID, isExport bool) {
	l.mu.Lock()
	e, ok := l.links[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	var mine **linkSide
	var peer *linkSide
	if isExport {
		mine, peer = &e.export, e.imp
	} else {
		mine, peer = &e.imp, e.export
	}
	side := *mine
	if side == nil {
		l.mu.Unlock()
		return
	}
	side.destroyed = true
	*mine = nil
	if isExport {
		e.exportClosed = true
	} else {
		e.importClosed = true
	}

	var peerFailed func()
	if peer != nil && !peer.destroyed {
		peerFailed = peer.onFailed
		peer.onFailed = nil
	}
	// The entry is deliberately kept (not deleted) once a side has
	// closed: a later registration on the other side must still see
	// exportClosed/importClosed to fire link_failed immediately.
	l.mu.Unlock()
	if peerFailed != nil {
		peerFailed()
	}
}
