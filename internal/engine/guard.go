// internal/engine/guard.go
package engine

import (
	"sync"

	shared "keeper/shared/types"

	"github.com/google/uuid"
)

// Operation is the in-flight handle for one pipeline run. Coalesced callers
// wait on it and adopt the same result.
type Operation struct {
	ID     string
	done   chan struct{}
	result *shared.PipelineResult
}

// Wait blocks until the operation settles and returns its result.
func (o *Operation) Wait() *shared.PipelineResult {
	<-o.done
	return o.result
}

// Guard enforces single-flight pipeline execution per project. Overlapping
// requests for the same project adopt the existing operation instead of
// starting a duplicate run.
type Guard struct {
	mu     sync.Mutex
	active map[string]*Operation
}

func NewGuard() *Guard {
	return &Guard{active: make(map[string]*Operation)}
}

// Acquire returns the project's operation handle and whether it was newly
// created. The entry is inserted before any I/O begins.
func (g *Guard) Acquire(projectID string) (*Operation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if op, ok := g.active[projectID]; ok {
		return op, false
	}

	op := &Operation{
		ID:   uuid.New().String(),
		done: make(chan struct{}),
	}
	g.active[projectID] = op
	return op, true
}

// Release settles the operation and removes the entry. Callers must invoke
// it from a deferred path so that an error mid-pipeline can never leave a
// stale lock blocking all future commits for the project.
func (g *Guard) Release(projectID string, result *shared.PipelineResult) {
	g.mu.Lock()
	op, ok := g.active[projectID]
	delete(g.active, projectID)
	g.mu.Unlock()

	if ok {
		op.result = result
		close(op.done)
	}
}

// Busy reports whether an operation is active for the project.
func (g *Guard) Busy(projectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[projectID]
	return ok
}

// ActiveCount reports how many pipelines are in flight across all projects.
func (g *Guard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
