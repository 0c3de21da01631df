// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"time"

	"keeper/internal/config"
	"keeper/internal/events"
	"keeper/internal/gitops"
	"keeper/internal/safe"
	"keeper/internal/storage"
	"keeper/internal/tracker"
	shared "keeper/shared/types"

	"go.uber.org/zap"
)

const snapshotRetention = 7 * 24 * time.Hour

// Engine coordinates triggers, debouncing, the single-flight guard, and the
// commit pipeline for all registered projects.
type Engine struct {
	cfg       *config.Store
	tracker   *tracker.Tracker
	guard     *Guard
	debounce  *Debouncer
	pipeline  *Pipeline
	bus       *events.Bus
	queue     *events.Queue
	commits   *storage.CommitStore
	snapshots *safe.Store
	logger    *zap.Logger

	mu         sync.Mutex
	lastCommit map[string]time.Time

	now func() time.Time
}

// Options wires the engine's collaborators. Commits and Snapshots are
// optional; without them the matching background jobs are skipped.
type Options struct {
	Config    *config.Store
	Tracker   *tracker.Tracker
	Git       gitops.Port
	Bus       *events.Bus
	Queue     *events.Queue
	Commits   *storage.CommitStore
	Snapshots *safe.Store
	Logger    *zap.Logger
}

func New(opts Options) *Engine {
	return &Engine{
		cfg:        opts.Config,
		tracker:    opts.Tracker,
		guard:      NewGuard(),
		debounce:   NewDebouncer(),
		pipeline:   NewPipeline(opts.Git, opts.Logger),
		bus:        opts.Bus,
		queue:      opts.Queue,
		commits:    opts.Commits,
		snapshots:  opts.Snapshots,
		logger:     opts.Logger,
		lastCommit: make(map[string]time.Time),
		now:        time.Now,
	}
}

// OnTrigger is the single entry point for all trigger sources. High-frequency
// triggers (file change, tool execution) are debounced and return (nil, nil)
// meaning "scheduled"; the rest run the pipeline inline. Overlapping calls
// for a project already mid-pipeline adopt that run's result.
func (e *Engine) OnTrigger(ctx context.Context, cc shared.CommitContext) (*shared.PipelineResult, error) {
	if !debounced(cc.Trigger) {
		return e.execute(ctx, cc)
	}

	cfg := e.cfg.Get()
	if !cfg.Enabled || !triggerEnabled(cfg.Triggers, cc.Trigger) {
		return nil, nil
	}

	delay := time.Duration(cfg.Conditions.DebounceDelayMs) * time.Millisecond
	maxWait := time.Duration(cfg.Conditions.MaxWaitMs) * time.Millisecond
	e.debounce.Schedule(cc.ProjectID, delay, maxWait, func() {
		// State may have changed while the timer ran; execute re-validates.
		if _, err := e.execute(context.Background(), cc); err != nil {
			e.logger.Error("debounced pipeline run failed",
				zap.String("project", cc.ProjectID), zap.Error(err))
		}
	})
	return nil, nil
}

// execute runs one guarded pipeline attempt. The guard entry is inserted
// before any I/O and released in a deferred path, so an error mid-pipeline
// can never leave the project permanently locked.
func (e *Engine) execute(ctx context.Context, cc shared.CommitContext) (*shared.PipelineResult, error) {
	op, acquired := e.guard.Acquire(cc.ProjectID)
	if !acquired {
		// Coalesce: adopt the in-flight run's result rather than starting
		// a duplicate.
		return op.Wait(), nil
	}

	var result *shared.PipelineResult
	defer func() { e.guard.Release(cc.ProjectID, result) }()

	cfg := e.cfg.Get()
	// projectBusy is false here: this caller holds the freshly acquired slot.
	if !ShouldAttempt(cfg, cc.Trigger, e.tracker.PendingCount(cc.ProjectID), false,
		e.LastCommitAt(cc.ProjectID), e.now()) {
		return nil, nil
	}

	var stat gitops.DiffStat
	result, stat = e.pipeline.Run(ctx, cfg, cc)

	if result.Success {
		e.tracker.Clear(cc.ProjectID)
		e.setLastCommit(cc.ProjectID, e.now())
		e.publish(cc, result)
		e.enqueueSideJobs(cc, result, stat)
	}
	return result, nil
}

// Busy reports whether a pipeline is currently running for the project.
func (e *Engine) Busy(projectID string) bool {
	return e.guard.Busy(projectID)
}

// LastCommitAt returns the project's last successful commit time, zero when
// none has happened this session.
func (e *Engine) LastCommitAt(projectID string) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCommit[projectID]
}

// Stop cancels all pending debounce timers.
func (e *Engine) Stop() {
	e.debounce.Stop()
}

func (e *Engine) setLastCommit(projectID string, at time.Time) {
	e.mu.Lock()
	e.lastCommit[projectID] = at
	e.mu.Unlock()
}

func (e *Engine) publish(cc shared.CommitContext, result *shared.PipelineResult) {
	if e.bus == nil {
		return
	}
	now := e.now()
	e.bus.Publish(events.Event{
		Type:       events.CommitCreated,
		ProjectID:  cc.ProjectID,
		CommitHash: result.CommitHash,
		BranchName: result.BranchName,
		Trigger:    cc.Trigger,
		Timestamp:  now,
	})
	if result.BranchCreated {
		e.bus.Publish(events.Event{
			Type:       events.BranchCreated,
			ProjectID:  cc.ProjectID,
			CommitHash: result.CommitHash,
			BranchName: result.BranchName,
			Trigger:    cc.Trigger,
			Timestamp:  now,
		})
	}
}

// enqueueSideJobs hands persistence and snapshot GC to the background queue.
// These must never block or affect the pipeline result.
func (e *Engine) enqueueSideJobs(cc shared.CommitContext, result *shared.PipelineResult, stat gitops.DiffStat) {
	if e.queue == nil {
		return
	}

	if e.commits != nil {
		rec := shared.CommitRecord{
			ProjectID:    cc.ProjectID,
			CommitHash:   result.CommitHash,
			BranchName:   result.BranchName,
			Trigger:      cc.Trigger,
			FilesChanged: stat.FilesChanged,
			LinesAdded:   stat.LinesAdded,
			LinesRemoved: stat.LinesRemoved,
			Pushed:       result.Pushed,
			CreatedAt:    e.now(),
		}
		e.queue.Enqueue(events.Job{
			Name: "record-commit",
			Run: func(ctx context.Context) error {
				return e.commits.Append(rec)
			},
		})
	}

	if e.snapshots != nil {
		e.queue.Enqueue(events.Job{
			Name: "snapshot-gc",
			Run: func(ctx context.Context) error {
				_, err := e.snapshots.GC(snapshotRetention)
				return err
			},
		})
	}
}
