package gitops

import "context"

// DiffStat summarizes a single commit. It is authoritative over in-memory
// change tracking when deciding whether to fork a branch.
type DiffStat struct {
	FilesChanged int `json:"files_changed"`
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// Port is the narrow git contract the auto-commit pipeline consumes. The
// production implementation shells out to git; tests inject fakes.
type Port interface {
	IsRepo(ctx context.Context, path string) bool
	InitRepo(ctx context.Context, path string) error
	StageAll(ctx context.Context, path string) error

	// Commit returns the new commit hash, or errors.ErrNoChanges when the
	// working tree had nothing staged.
	Commit(ctx context.Context, path, message string) (string, error)

	DiffStat(ctx context.Context, path, commitHash string) (DiffStat, error)
	CreateAndCheckoutBranch(ctx context.Context, path, name string) error
	CurrentBranch(ctx context.Context, path string) (string, error)

	// Push is best-effort; errors.ErrNoRemote marks the distinct
	// "no remote configured" non-fatal case.
	Push(ctx context.Context, path, branch string) error
}
