// Package vcs records generated artifacts in version control through the
// git CLI.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Gateway stages and commits files in the workspace. The git implementation
// shells out; tests substitute scripted results.
type Gateway interface {
	StageAll(ctx context.Context) error
	Stage(ctx context.Context, path string) error
	Commit(ctx context.Context, message string) (string, error)
}

// Git runs git against a fixed working tree. Every command targets the tree
// via "git -C <dir>", so the process working directory never matters.
type Git struct {
	dir string
}

func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

// Dir returns the working tree directory.
func (g *Git) Dir() string {
	return g.dir
}

// StageAll stages every change in the working tree.
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// Stage stages a single path, relative to the working tree.
func (g *Git) Stage(ctx context.Context, path string) error {
	_, err := g.run(ctx, "add", "--", path)
	return err
}

// Commit commits whatever is staged and returns git's own summary line.
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	out, err := g.run(ctx, "commit", "-m", message)
	return strings.TrimSpace(out), err
}

// run executes a git command targeting the working tree and returns stdout.
// Stderr is captured separately and folded into the error on failure.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", g.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), g.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
