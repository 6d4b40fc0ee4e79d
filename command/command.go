// Package command implements the Command Applier (spec §4.7): validating
// and applying a Session's scheduled command batch against its resource
// table and scene graph, one command at a time, aborting the whole batch
// on the first failure.
//
// Large batches have their read-only preconditions checked in parallel
// across a bounded worker pool before the authoritative sequential apply,
// mirroring engine/scene/scene.go's PrepareCompute: a WaitGroup-gated
// parallel phase 1 (here, precondition checks) followed by a sequential
// phase 2 (here, the actual mutating apply), reusing the same worker pool
// across frames rather than spawning goroutines per batch.
package command

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/nimbusgfx/compositor/scenegraph"
	"github.com/nimbusgfx/compositor/session"
)

// ErrInvalidResourceID is returned by CreateResource when id is the
// reserved NilResource value.
var ErrInvalidResourceID = errors.New("command: cannot create resource at id 0")

// parallelValidateThreshold is the batch size at or above which precondition
// checks fan out across the worker pool instead of running inline; below
// it the pool-submission overhead isn't worth paying (spec §4.7 describes
// this only as "fan out ... when a Present batch is large").
const parallelValidateThreshold = 32

// Applier is the session.CommandApplier implementation: it applies a
// batch of Commands against a Session's resource table and scene graph,
// and owns the cross-session View/ViewHolder Linker (spec §4.5) that
// Export/Import commands register against.
type Applier struct {
	linker *scenegraph.Linker
	pool   worker.DynamicWorkerPool
}

// NewApplier returns an Applier sharing linker across every session it
// services (the linker is process-wide, not per-session) and backed by a
// worker pool of the given size, queue depth, and idle-exit timeout —
// the same constructor shape as scene.NewScene's computePool.
func NewApplier(linker *scenegraph.Linker, workers, queueDepth int, idleTimeout time.Duration) *Applier {
	return &Applier{
		linker: linker,
		pool:   worker.NewDynamicWorkerPool(workers, queueDepth, idleTimeout),
	}
}

// Linker returns the Applier's shared cross-session View/ViewHolder
// Linker, so callers can construct Export/Import commands against it.
func (a *Applier) Linker() *scenegraph.Linker { return a.linker }

// NewExport returns an Export command for holderID against link, carrying
// the Applier's shared Linker.
func (a *Applier) NewExport(link scenegraph.LinkID, holderID scenegraph.ResourceID) *Export {
	return &Export{linker: a.linker, Link: link, HolderID: holderID}
}

// NewImport returns an Import command for viewID/viewNodeID against link,
// carrying the Applier's shared Linker.
func (a *Applier) NewImport(link scenegraph.LinkID, viewID, viewNodeID scenegraph.ResourceID) *Import {
	return &Import{linker: a.linker, Link: link, ViewID: viewID, ViewNodeID: viewNodeID}
}

// Validatable is implemented by Commands whose precondition check (target
// exists, target's kind accepts the operation) can run without mutating
// state, so a large batch's checks can be fanned out across the worker
// pool ahead of the authoritative sequential apply.
type Validatable interface {
	Validate(tb *scenegraph.Table) error
}

// Apply validates then applies commands in order against tb/g, stopping
// at (and returning) the first error. Validation of a large batch's
// Validatable commands runs in parallel first, so a batch that fails a
// precondition check is rejected before any command mutates the graph; a
// failure found only during the sequential apply leaves the commands
// before it applied.
func (a *Applier) Apply(tb *scenegraph.Table, g *scenegraph.Graph, sessionID session.ID, commands []session.Command) error {
	if len(commands) >= parallelValidateThreshold {
		if err := a.validateParallel(tb, commands); err != nil {
			return err
		}
	}
	for i, c := range commands {
		if err := c.Apply(tb, g, sessionID); err != nil {
			return fmt.Errorf("command: batch aborted at index %d: %w", i, err)
		}
	}
	return nil
}

// validateParallel runs every Validatable command's precondition check
// across the worker pool, returning the first error encountered (commands
// are independent read-only checks, so order among errors is unspecified
// beyond "some failing command's error").
func (a *Applier) validateParallel(tb *scenegraph.Table, commands []session.Command) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, c := range commands {
		v, ok := c.(Validatable)
		if !ok {
			continue
		}
		wg.Add(1)
		taskID := i
		vCap := v
		a.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				if err := vCap.Validate(tb); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return firstErr
}
