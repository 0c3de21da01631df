package engine

import (
	"context"
	"sync"

	"keeper/internal/gitops"
)

// fakeGit is an in-memory Port for pipeline and engine tests.
type fakeGit struct {
	mu sync.Mutex

	isRepo     bool
	initErr    error
	stageErr   error
	commitHash string
	commitErr  error
	stat       gitops.DiffStat
	statErr    error
	branchErr  error
	pushErr    error

	defaultBranch string

	// commitGate, when set, blocks Commit until the channel closes so tests
	// can hold a pipeline mid-flight.
	commitGate chan struct{}

	initCalls   int
	stageCalls  int
	commitCalls int
	branchCalls int
	pushCalls   int
	lastBranch  string
	lastMessage string
	checkedOut  string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		isRepo:        true,
		commitHash:    "deadbeef",
		defaultBranch: "main",
	}
}

func (f *fakeGit) IsRepo(ctx context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isRepo
}

func (f *fakeGit) InitRepo(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if f.initErr != nil {
		return f.initErr
	}
	f.isRepo = true
	return nil
}

func (f *fakeGit) StageAll(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stageCalls++
	return f.stageErr
}

func (f *fakeGit) Commit(ctx context.Context, path, message string) (string, error) {
	f.mu.Lock()
	gate := f.commitGate
	f.commitCalls++
	f.lastMessage = message
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return "", f.commitErr
	}
	return f.commitHash, nil
}

func (f *fakeGit) DiffStat(ctx context.Context, path, commitHash string) (gitops.DiffStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stat, f.statErr
}

func (f *fakeGit) CreateAndCheckoutBranch(ctx context.Context, path, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branchCalls++
	f.lastBranch = name
	if f.branchErr != nil {
		return f.branchErr
	}
	f.checkedOut = name
	return nil
}

func (f *fakeGit) CurrentBranch(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkedOut != "" {
		return f.checkedOut, nil
	}
	return f.defaultBranch, nil
}

func (f *fakeGit) Push(ctx context.Context, path, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++
	return f.pushErr
}

func (f *fakeGit) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commitCalls
}
