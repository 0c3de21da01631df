// internal/engine/decision.go
package engine

import (
	"time"

	"keeper/internal/config"
	shared "keeper/shared/types"
)

// ShouldAttempt decides whether a commit attempt is permitted right now.
// Pure function, safe to call any number of times. Checks short-circuit in
// order; the first failing check wins.
func ShouldAttempt(cfg config.AutoCommitConfig, trigger shared.TriggerKind, pendingCount int, projectBusy bool, lastCommit time.Time, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	if projectBusy {
		return false
	}
	if !triggerEnabled(cfg.Triggers, trigger) {
		return false
	}
	if pendingCount < int(cfg.Conditions.MinimumChanges) {
		return false
	}

	// The quiet period after a commit is twice the debounce window that
	// preceded it, to avoid commit thrash.
	if cfg.Conditions.SkipIfRecentCommit && !lastCommit.IsZero() {
		quiet := 2 * time.Duration(cfg.Conditions.DebounceDelayMs) * time.Millisecond
		if now.Sub(lastCommit) < quiet {
			return false
		}
	}

	return true
}

func triggerEnabled(t config.TriggerToggles, trigger shared.TriggerKind) bool {
	switch trigger {
	case shared.TriggerToolExecution:
		return t.AfterToolExecution
	case shared.TriggerBuildSuccess:
		return t.AfterBuildSuccess
	case shared.TriggerTestSuccess:
		return t.AfterTestSuccess
	case shared.TriggerFileChange:
		return t.OnFileChange
	case shared.TriggerTimer:
		return t.TimeBased
	}
	return false
}

// debounced reports whether a trigger kind flows through the debounce
// scheduler. Build and test completion are already quiet points and commit
// immediately.
func debounced(trigger shared.TriggerKind) bool {
	return trigger == shared.TriggerFileChange || trigger == shared.TriggerToolExecution
}
