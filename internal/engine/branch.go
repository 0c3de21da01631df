// internal/engine/branch.go
package engine

import (
	"fmt"
	"time"

	"keeper/internal/config"
	"keeper/shared/utils"

	"github.com/google/uuid"
)

// ShouldBranch decides whether a commit of this size forks a new branch.
// The thresholds are a deliberate OR: many small files or one huge file
// each qualify on their own.
func ShouldBranch(filesChanged, linesChanged int, policy config.BranchPolicy) bool {
	if !policy.Enabled {
		return false
	}
	return filesChanged >= int(policy.FileCountThreshold) ||
		linesChanged >= int(policy.LineCountThreshold)
}

// BranchName builds {prefix}/{minute-precision timestamp}-{suffix}. The
// random suffix keeps two branches in the same minute from colliding.
func BranchName(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "auto"
	}
	stamp := now.UTC().Format("2006-01-02T15-04")
	return fmt.Sprintf("%s/%s-%s", prefix, stamp, utils.ShortID(uuid.New().String(), 8))
}
