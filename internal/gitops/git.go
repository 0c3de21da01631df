package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"keeper/internal/errors"

	"go.uber.org/zap"
)

// CLI implements Port by executing the git binary. Every invocation builds
// an explicit argument vector; no command line is ever assembled from
// interpolated strings.
type CLI struct {
	logger *zap.Logger
}

func NewCLI(logger *zap.Logger) *CLI {
	return &CLI{logger: logger}
}

// run executes git -C path args... and returns trimmed stdout. Stdout is
// returned even when git exits non-zero: porcelain commands report refusals
// like "nothing to commit" on stdout, not stderr, and callers need to see
// them.
func (g *CLI) run(ctx context.Context, path string, args ...string) (string, error) {
	full := append([]string{"-C", path}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := func() string { return strings.TrimSpace(stdout.String()) }
	if err := cmd.Run(); err != nil {
		return out(), fmt.Errorf("git %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out(), nil
}

func (g *CLI) IsRepo(ctx context.Context, path string) bool {
	_, err := g.run(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

func (g *CLI) InitRepo(ctx context.Context, path string) error {
	if _, err := g.run(ctx, path, "init"); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInitFailed, err)
	}
	return nil
}

func (g *CLI) StageAll(ctx context.Context, path string) error {
	if _, err := g.run(ctx, path, "add", "-A"); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	return nil
}

func (g *CLI) Commit(ctx context.Context, path, message string) (string, error) {
	out, err := g.run(ctx, path, "commit", "-m", message)
	if err != nil {
		if isNoChanges(out) || isNoChanges(err.Error()) {
			return "", errors.ErrNoChanges
		}
		return "", fmt.Errorf("%w: %v", errors.ErrCommitFailed, err)
	}

	hash, err := g.run(ctx, path, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: resolving HEAD: %v", errors.ErrCommitFailed, err)
	}
	return hash, nil
}

func (g *CLI) DiffStat(ctx context.Context, path, commitHash string) (DiffStat, error) {
	out, err := g.run(ctx, path, "show", "--shortstat", "--format=", commitHash)
	if err != nil {
		return DiffStat{}, fmt.Errorf("reading diff stat: %w", err)
	}
	return ParseShortStat(out), nil
}

func (g *CLI) CreateAndCheckoutBranch(ctx context.Context, path, name string) error {
	if _, err := g.run(ctx, path, "checkout", "-b", name); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBranchCreateFailed, err)
	}
	return nil
}

func (g *CLI) CurrentBranch(ctx context.Context, path string) (string, error) {
	branch, err := g.run(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("reading current branch: %w", err)
	}
	return branch, nil
}

func (g *CLI) Push(ctx context.Context, path, branch string) error {
	remotes, err := g.run(ctx, path, "remote")
	if err != nil {
		return fmt.Errorf("%w: listing remotes: %v", errors.ErrPushFailed, err)
	}
	if remotes == "" {
		return errors.ErrNoRemote
	}

	remote := strings.Fields(remotes)[0]
	if _, err := g.run(ctx, path, "push", "-u", remote, branch); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPushFailed, err)
	}
	return nil
}

// isNoChanges recognizes git's "nothing to commit" refusals, which surface
// as a non-zero exit rather than a distinct error code.
func isNoChanges(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "nothing to commit") ||
		strings.Contains(out, "nothing added to commit") ||
		strings.Contains(out, "no changes added to commit")
}

var shortStatRe = regexp.MustCompile(
	`(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

// ParseShortStat parses git's --shortstat summary line, e.g.
// " 3 files changed, 10 insertions(+), 2 deletions(-)".
func ParseShortStat(out string) DiffStat {
	m := shortStatRe.FindStringSubmatch(out)
	if m == nil {
		return DiffStat{}
	}

	var stat DiffStat
	stat.FilesChanged, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		stat.LinesAdded, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		stat.LinesRemoved, _ = strconv.Atoi(m[3])
	}
	return stat
}
