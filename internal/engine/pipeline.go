// internal/engine/pipeline.go
package engine

import (
	"context"
	"strings"
	"time"

	"keeper/internal/config"
	"keeper/internal/errors"
	"keeper/internal/gitops"
	shared "keeper/shared/types"

	"go.uber.org/zap"
)

// Pipeline sequences one commit attempt: ensure-repo, stage and commit,
// branch decision, branch verification, best-effort push. RepoCheck and
// commit failures abort the run; branch and push failures degrade it
// without flipping the result to failure.
type Pipeline struct {
	git    gitops.Port
	logger *zap.Logger
}

func NewPipeline(git gitops.Port, logger *zap.Logger) *Pipeline {
	return &Pipeline{git: git, logger: logger}
}

// Run executes the pipeline and returns the result plus the diff-stat of
// the commit it made (zero when no commit was created).
func (p *Pipeline) Run(ctx context.Context, cfg config.AutoCommitConfig, cc shared.CommitContext) (*shared.PipelineResult, gitops.DiffStat) {
	log := p.logger.With(
		zap.String("project", cc.ProjectID),
		zap.String("trigger", string(cc.Trigger)))

	// RepoCheck
	if !p.git.IsRepo(ctx, cc.RootPath) {
		if !cfg.AutoInitRepo {
			return failure(errors.ErrNotARepository), gitops.DiffStat{}
		}
		if err := p.git.InitRepo(ctx, cc.RootPath); err != nil {
			log.Error("initializing repository", zap.Error(err))
			return failure(err), gitops.DiffStat{}
		}
		log.Info("initialized repository", zap.String("root", cc.RootPath))
	}

	// Committing
	if err := p.git.StageAll(ctx, cc.RootPath); err != nil {
		log.Error("staging changes", zap.Error(err))
		return failure(err), gitops.DiffStat{}
	}

	message := RenderMessage(cfg.CommitMessageTemplate, cc, time.Now())
	hash, err := p.git.Commit(ctx, cc.RootPath, message)
	if err != nil {
		if errors.Is(err, errors.ErrNoChanges) {
			// Benign no-op: pending changes stay tracked for the next run.
			return &shared.PipelineResult{Success: false}, gitops.DiffStat{}
		}
		log.Error("committing", zap.Error(err))
		return failure(err), gitops.DiffStat{}
	}
	log.Info("commit created", zap.String("hash", hash))

	// BranchDecision: the commit's own diff-stat is authoritative, since
	// the in-memory pending set undercounts when one tool execution
	// touches files the tracker never saw individually.
	stat, err := p.git.DiffStat(ctx, cc.RootPath, hash)
	if err != nil {
		log.Warn("reading diff stat", zap.Error(err))
	}

	branchName := ""
	branchCreated := false
	if ShouldBranch(stat.FilesChanged, stat.LinesAdded+stat.LinesRemoved, cfg.BranchPolicy) {
		intended := BranchName(cfg.BranchPolicy.BranchPrefix, time.Now())
		checkoutErr := p.git.CreateAndCheckoutBranch(ctx, cc.RootPath, intended)
		if checkoutErr != nil {
			log.Warn("creating branch", zap.String("branch", intended), zap.Error(checkoutErr))
		}

		// BranchVerify: trust the branch git reports, not the one we
		// intended; a checkout can fail silently. A failed checkout
		// leaves the pre-existing branch in BranchName, so BranchCreated
		// stays false for it.
		verified, err := p.git.CurrentBranch(ctx, cc.RootPath)
		if err != nil {
			log.Warn("verifying branch", zap.Error(err))
		} else {
			if verified != intended {
				log.Warn("branch verification mismatch",
					zap.String("intended", intended),
					zap.String("actual", verified))
			}
			branchName = verified
			branchCreated = checkoutErr == nil && verified == intended
		}
	}

	// Push (best-effort, never retried inline)
	pushed := false
	if cfg.AutoPushToRemote {
		target := branchName
		if target == "" {
			if target, err = p.git.CurrentBranch(ctx, cc.RootPath); err != nil {
				log.Warn("resolving branch for push", zap.Error(err))
			}
		}
		if target != "" {
			switch err := p.git.Push(ctx, cc.RootPath, target); {
			case err == nil:
				pushed = true
			case errors.Is(err, errors.ErrNoRemote):
				log.Info("push skipped: no remote configured")
			default:
				log.Warn("pushing", zap.String("branch", target), zap.Error(err))
			}
		}
	}

	return &shared.PipelineResult{
		Success:       true,
		CommitHash:    hash,
		BranchName:    branchName,
		BranchCreated: branchCreated,
		Pushed:        pushed,
	}, stat
}

func failure(err error) *shared.PipelineResult {
	return &shared.PipelineResult{Error: err.Error()}
}

// RenderMessage interpolates the commit message template with the trigger
// context.
func RenderMessage(template string, cc shared.CommitContext, now time.Time) string {
	if template == "" {
		template = "checkpoint: {trigger} ({timestamp})"
	}
	summary := cc.Summary
	if summary == "" {
		summary = "automatic checkpoint"
	}
	msg := strings.NewReplacer(
		"{trigger}", string(cc.Trigger),
		"{summary}", summary,
		"{toolName}", cc.ToolName,
		"{timestamp}", now.UTC().Format(time.RFC3339),
	).Replace(template)
	return strings.Join(strings.Fields(msg), " ")
}
