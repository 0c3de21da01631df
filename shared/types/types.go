// shared/types/types.go
package shared

import (
	"fmt"
	"time"
)

// TriggerKind identifies the external event that may start a commit pipeline.
type TriggerKind string

const (
	TriggerToolExecution TriggerKind = "tool_execution"
	TriggerFileChange    TriggerKind = "file_change"
	TriggerBuildSuccess  TriggerKind = "build_success"
	TriggerTestSuccess   TriggerKind = "test_success"
	TriggerTimer         TriggerKind = "timer"
)

// ParseTriggerKind validates a wire-format trigger name.
func ParseTriggerKind(s string) (TriggerKind, error) {
	switch TriggerKind(s) {
	case TriggerToolExecution, TriggerFileChange, TriggerBuildSuccess,
		TriggerTestSuccess, TriggerTimer:
		return TriggerKind(s), nil
	}
	return "", fmt.Errorf("unknown trigger kind: %q", s)
}

// CommitContext describes a single commit attempt. Constructed fresh per
// trigger and never mutated afterwards.
type CommitContext struct {
	ProjectID      string      `json:"project_id"`
	RootPath       string      `json:"root_path"`
	Trigger        TriggerKind `json:"trigger"`
	ToolName       string      `json:"tool_name,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	RequestedAt    time.Time   `json:"requested_at"`
}

// PipelineResult is produced once per pipeline run and never mutated after
// return. Success=false with an empty Error is the benign "no changes to
// commit" outcome. BranchName is the verified current branch, which after a
// failed checkout can be a branch that already existed; BranchCreated is
// true only when this run actually created it.
type PipelineResult struct {
	Success       bool   `json:"success"`
	CommitHash    string `json:"commit_hash,omitempty"`
	BranchName    string `json:"branch_name,omitempty"`
	BranchCreated bool   `json:"branch_created,omitempty"`
	Pushed        bool   `json:"pushed"`
	Error         string `json:"error,omitempty"`
}

// Project associates a project identifier with the working tree it
// checkpoints.
type Project struct {
	ID        string    `json:"id"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`
}

// CommitRecord is the persisted history entry for one successful pipeline run.
type CommitRecord struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	CommitHash   string      `json:"commit_hash"`
	BranchName   string      `json:"branch_name,omitempty"`
	Trigger      TriggerKind `json:"trigger"`
	FilesChanged int         `json:"files_changed"`
	LinesAdded   int         `json:"lines_added"`
	LinesRemoved int         `json:"lines_removed"`
	Pushed       bool        `json:"pushed"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ProjectStatus is the report surface for a single project.
type ProjectStatus struct {
	ProjectID      string     `json:"project_id"`
	RootPath       string     `json:"root_path"`
	PendingChanges int        `json:"pending_changes"`
	Busy           bool       `json:"busy"`
	LastCommitAt   *time.Time `json:"last_commit_at,omitempty"`
}
