package engine

import (
	"context"
	"testing"
	"time"

	"keeper/internal/config"
	"keeper/internal/errors"
	"keeper/internal/gitops"
	shared "keeper/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testContext() shared.CommitContext {
	return shared.CommitContext{
		ProjectID:   "p1",
		RootPath:    "/work/p1",
		Trigger:     shared.TriggerToolExecution,
		ToolName:    "write_file",
		Summary:     "edited handlers",
		RequestedAt: time.Now(),
	}
}

func newTestPipeline(git gitops.Port) *Pipeline {
	return NewPipeline(git, zap.NewNop())
}

func TestPipelineCommitSuccess(t *testing.T) {
	git := newFakeGit()
	git.stat = gitops.DiffStat{FilesChanged: 1, LinesAdded: 4}
	cfg := config.DefaultAutoCommit()
	cfg.BranchPolicy.Enabled = false
	cfg.AutoPushToRemote = false

	result, stat := newTestPipeline(git).Run(context.Background(), cfg, testContext())

	require.True(t, result.Success)
	assert.Equal(t, "deadbeef", result.CommitHash)
	assert.Empty(t, result.BranchName)
	assert.False(t, result.Pushed)
	assert.Empty(t, result.Error)
	assert.Equal(t, 1, git.stageCalls)
	assert.Equal(t, gitops.DiffStat{FilesChanged: 1, LinesAdded: 4}, stat)
}

func TestPipelineNoChangesIsBenign(t *testing.T) {
	git := newFakeGit()
	git.commitErr = errors.ErrNoChanges

	result, _ := newTestPipeline(git).Run(context.Background(), config.DefaultAutoCommit(), testContext())

	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.CommitHash)
}

func TestPipelineRepoCheck(t *testing.T) {
	t.Run("init when missing and allowed", func(t *testing.T) {
		git := newFakeGit()
		git.isRepo = false
		cfg := config.DefaultAutoCommit()
		cfg.AutoInitRepo = true
		cfg.BranchPolicy.Enabled = false

		result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

		assert.Equal(t, 1, git.initCalls)
		assert.True(t, result.Success)
	})

	t.Run("fatal when missing and init disabled", func(t *testing.T) {
		git := newFakeGit()
		git.isRepo = false
		cfg := config.DefaultAutoCommit()
		cfg.AutoInitRepo = false

		result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "not a git repository")
		assert.Equal(t, 0, git.commitCalls)
	})

	t.Run("fatal when init fails", func(t *testing.T) {
		git := newFakeGit()
		git.isRepo = false
		git.initErr = errors.ErrInitFailed

		result, _ := newTestPipeline(git).Run(context.Background(), config.DefaultAutoCommit(), testContext())

		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	})
}

func TestPipelineBranchDecisionUsesDiffStat(t *testing.T) {
	git := newFakeGit()
	git.stat = gitops.DiffStat{FilesChanged: 3}
	cfg := config.DefaultAutoCommit()
	cfg.BranchPolicy = config.BranchPolicy{
		Enabled:            true,
		FileCountThreshold: 2,
		LineCountThreshold: 50,
		BranchPrefix:       "auto",
	}

	result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

	require.True(t, result.Success)
	assert.Equal(t, 1, git.branchCalls)
	assert.Regexp(t, `^auto/`, result.BranchName)
	assert.True(t, result.BranchCreated)
	// Reported branch is the verified current branch, not just the intent
	assert.Equal(t, git.checkedOut, result.BranchName)
}

func TestPipelineBranchVerifyTrustsGit(t *testing.T) {
	git := newFakeGit()
	git.stat = gitops.DiffStat{FilesChanged: 10}
	git.branchErr = errors.ErrBranchCreateFailed // checkout fails, HEAD stays put
	cfg := config.DefaultAutoCommit()
	cfg.BranchPolicy.FileCountThreshold = 2

	result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

	// Branch failure is non-fatal, and the verified branch wins. The
	// pre-existing branch must not read as freshly created.
	require.True(t, result.Success)
	assert.Equal(t, "main", result.BranchName)
	assert.False(t, result.BranchCreated)
}

func TestPipelinePushFailureIsNonFatal(t *testing.T) {
	t.Run("no remote configured", func(t *testing.T) {
		git := newFakeGit()
		git.pushErr = errors.ErrNoRemote
		cfg := config.DefaultAutoCommit()
		cfg.BranchPolicy.Enabled = false
		cfg.AutoPushToRemote = true

		result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

		require.True(t, result.Success)
		assert.Equal(t, "deadbeef", result.CommitHash)
		assert.False(t, result.Pushed)
		assert.Empty(t, result.Error)
	})

	t.Run("push succeeds", func(t *testing.T) {
		git := newFakeGit()
		cfg := config.DefaultAutoCommit()
		cfg.BranchPolicy.Enabled = false
		cfg.AutoPushToRemote = true

		result, _ := newTestPipeline(git).Run(context.Background(), cfg, testContext())

		require.True(t, result.Success)
		assert.True(t, result.Pushed)
		assert.Equal(t, 1, git.pushCalls)
	})
}

func TestRenderMessage(t *testing.T) {
	cc := testContext()
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	msg := RenderMessage("checkpoint: {trigger} {summary} via {toolName} at {timestamp}", cc, now)
	assert.Equal(t,
		"checkpoint: tool_execution edited handlers via write_file at 2025-03-14T09:26:53Z",
		msg)

	t.Run("empty template falls back", func(t *testing.T) {
		msg := RenderMessage("", cc, now)
		assert.Contains(t, msg, "tool_execution")
	})

	t.Run("empty summary is filled", func(t *testing.T) {
		plain := cc
		plain.Summary = ""
		msg := RenderMessage("{summary}", plain, now)
		assert.Equal(t, "automatic checkpoint", msg)
	})
}
