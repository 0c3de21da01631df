package engine

import (
	"regexp"
	"testing"
	"time"

	"keeper/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestShouldBranch(t *testing.T) {
	policy := config.BranchPolicy{
		Enabled:            true,
		FileCountThreshold: 2,
		LineCountThreshold: 50,
	}

	t.Run("file threshold alone suffices", func(t *testing.T) {
		assert.True(t, ShouldBranch(3, 0, policy))
	})

	t.Run("line threshold alone suffices", func(t *testing.T) {
		assert.True(t, ShouldBranch(0, 60, policy))
	})

	t.Run("below both thresholds", func(t *testing.T) {
		assert.False(t, ShouldBranch(1, 10, policy))
	})

	t.Run("disabled policy never branches", func(t *testing.T) {
		off := policy
		off.Enabled = false
		assert.False(t, ShouldBranch(100, 1000, off))
	})
}

func TestBranchName(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	name := BranchName("auto", now)
	assert.Regexp(t, regexp.MustCompile(`^auto/2025-03-14T09-26-[0-9a-f]{8}$`), name)

	t.Run("empty prefix falls back to auto", func(t *testing.T) {
		assert.Regexp(t, `^auto/`, BranchName("", now))
	})

	t.Run("same minute gets distinct names", func(t *testing.T) {
		assert.NotEqual(t, BranchName("auto", now), BranchName("auto", now))
	})
}
