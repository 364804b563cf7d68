// Package artifact turns code blocks from model replies into files in the
// workspace, optionally executing, repairing, and committing them. Every
// step past extraction is gated on the user saying yes.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atelier.dev/atelier/common/lang"
	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/common/logger"
	"atelier.dev/atelier/internal/extract"
	"atelier.dev/atelier/internal/runner"
	"atelier.dev/atelier/internal/ui"
	"atelier.dev/atelier/internal/vcs"
)

// Status is the terminal state of one handled block.
type Status string

const (
	StatusSkipped      Status = "skipped"
	StatusDeclined     Status = "declined"
	StatusFailed       Status = "failed"
	StatusNotCommitted Status = "not_committed"
	StatusCommitted    Status = "committed"
)

// Outcome describes what happened to one block.
type Outcome struct {
	Status   Status
	Filename string
	Ran      bool
	RunOK    bool
	Repaired bool
}

// Options wires a Pipeline. Now defaults to time.Now; everything else is
// required.
type Options struct {
	Prompter    ui.Prompter
	Runner      runner.Runner
	Gateway     vcs.Gateway
	Client      llm.Client
	Out         io.Writer
	Root        string
	MaxAttempts int
	Now         func() time.Time
}

// Pipeline walks code blocks through their lifecycle one at a time. Not
// safe for concurrent use.
type Pipeline struct {
	prompter    ui.Prompter
	runner      runner.Runner
	gateway     vcs.Gateway
	client      llm.Client
	out         io.Writer
	root        string
	maxAttempts int
	now         func() time.Time
}

func NewPipeline(opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		prompter:    opts.Prompter,
		runner:      opts.Runner,
		gateway:     opts.Gateway,
		client:      opts.Client,
		out:         opts.Out,
		root:        opts.Root,
		maxAttempts: opts.MaxAttempts,
		now:         now,
	}
}

// Handle walks one block through the lifecycle: save, optionally execute
// and repair, then offer a commit. Languages without a file extension
// mapping are skipped outright. The returned error is only ever a dead
// input stream; everything else is reported and folded into the Outcome.
func (p *Pipeline) Handle(ctx context.Context, block extract.Block) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "atelier.artifact",
		Language:  logger.Ptr(block.Language),
	})

	ext, known := lang.Extension(block.Language)
	if !known {
		fmt.Fprintln(p.out, ui.Notice(fmt.Sprintf("Skipping %s block: no known file extension.", block.Language)))
		slog.DebugContext(ctx, "block skipped, unknown language")
		return Outcome{Status: StatusSkipped}, nil
	}

	lines := strings.Count(block.Code, "\n") + 1
	fmt.Fprintln(p.out, ui.Dim(fmt.Sprintf("Found %s code (%d lines).", block.Language, lines)))

	save, err := p.prompter.Confirm(fmt.Sprintf("Save this %s code to a file?", block.Language))
	if err != nil {
		return Outcome{}, err
	}
	if !save {
		return Outcome{Status: StatusDeclined}, nil
	}

	filename, err := p.prompter.AskText("Filename", defaultFilename(block.Language, ext, p.now()))
	if err != nil {
		return Outcome{}, err
	}
	if !strings.HasSuffix(filename, ext) {
		filename += ext
	}

	path, pathErr := p.resolve(filename)
	if pathErr != nil {
		fmt.Fprintln(p.out, ui.Error(pathErr.Error()))
		return Outcome{Status: StatusFailed}, nil
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Artifact: logger.Ptr(filename)})

	if _, statErr := os.Stat(path); statErr == nil {
		keep, err := p.prompter.Confirm(fmt.Sprintf("%s already exists. Overwrite?", filename))
		if err != nil {
			return Outcome{}, err
		}
		if !keep {
			fmt.Fprintln(p.out, ui.Dim("Leaving the existing file untouched."))
			return Outcome{Status: StatusDeclined}, nil
		}
	}

	if err := p.overwrite(ctx, path, block.Code); err != nil {
		fmt.Fprintln(p.out, ui.Error("Could not write "+filename+": "+err.Error()))
		return Outcome{Status: StatusFailed}, nil
	}
	fmt.Fprintln(p.out, ui.Success("Wrote "+filename))
	slog.InfoContext(ctx, "artifact written", "bytes", len(block.Code))

	outcome := Outcome{Filename: filename}

	if interpreter, runnable := lang.Interpreter(block.Language); runnable {
		run, err := p.prompter.Confirm(fmt.Sprintf("Run %s now?", filename))
		if err != nil {
			return Outcome{}, err
		}
		if run {
			if err := p.execute(ctx, interpreter, filename, path, block, &outcome); err != nil {
				return Outcome{}, err
			}
		}
	}

	if err := p.offerCommit(ctx, block.Language, &outcome); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func (p *Pipeline) execute(ctx context.Context, interpreter, filename, path string, block extract.Block, outcome *Outcome) error {
	result, err := p.runner.Run(ctx, runner.Command{Name: interpreter, Args: []string{filename}, Dir: p.root})
	if err != nil {
		fmt.Fprintln(p.out, ui.Error("Could not run "+filename+": "+err.Error()))
		return nil
	}
	outcome.Ran = true
	p.printRunResult(result)
	slog.InfoContext(ctx, "artifact executed", "exit_code", result.ExitCode)
	if result.Succeeded() {
		outcome.RunOK = true
		return nil
	}
	return p.repairLoop(ctx, interpreter, filename, path, block, result, outcome)
}

func (p *Pipeline) offerCommit(ctx context.Context, language string, outcome *Outcome) error {
	commit, err := p.prompter.Confirm(fmt.Sprintf("Commit %s?", outcome.Filename))
	if err != nil {
		return err
	}
	if !commit {
		outcome.Status = StatusNotCommitted
		return nil
	}

	fallback := fmt.Sprintf("Add %s file: %s", language, outcome.Filename)
	if outcome.Repaired {
		fallback = fmt.Sprintf("Fix error in %s", outcome.Filename)
	}
	message, err := p.prompter.AskText("Commit message", fallback)
	if err != nil {
		return err
	}

	if stageErr := p.gateway.Stage(ctx, outcome.Filename); stageErr != nil {
		fmt.Fprintln(p.out, ui.Error("Commit failed: "+stageErr.Error()))
		outcome.Status = StatusNotCommitted
		return nil
	}
	summary, commitErr := p.gateway.Commit(ctx, message)
	if commitErr != nil {
		fmt.Fprintln(p.out, ui.Error("Commit failed: "+commitErr.Error()))
		outcome.Status = StatusNotCommitted
		return nil
	}
	if summary != "" {
		fmt.Fprintln(p.out, ui.Dim(summary))
	}
	fmt.Fprintln(p.out, ui.Success("Committed "+outcome.Filename))
	slog.InfoContext(ctx, "artifact committed")
	outcome.Status = StatusCommitted
	return nil
}

// overwrite writes content to path, taking a timestamped backup first when
// the file already exists. A missing trailing newline is added.
func (p *Pipeline) overwrite(ctx context.Context, path, content string) error {
	if _, err := os.Stat(path); err == nil {
		previous, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("reading existing file for backup: %w", readErr)
		}
		backupPath := backupName(path, p.now())
		if writeErr := os.WriteFile(backupPath, previous, 0o644); writeErr != nil {
			return fmt.Errorf("writing backup: %w", writeErr)
		}
		fmt.Fprintln(p.out, ui.Dim("Backed up the previous version to "+filepath.Base(backupPath)))
		slog.DebugContext(ctx, "backup created", "backup", filepath.Base(backupPath))
	}

	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// resolve joins filename under the workspace root, rejecting anything that
// would land outside it.
func (p *Pipeline) resolve(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("empty filename")
	}
	if filepath.IsAbs(filename) {
		return "", fmt.Errorf("filename must be relative to the workspace: %s", filename)
	}
	path := filepath.Join(p.root, filename)
	rel, err := filepath.Rel(p.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename escapes the workspace: %s", filename)
	}
	return path, nil
}

func (p *Pipeline) printRunResult(result runner.Result) {
	if out := strings.TrimSpace(result.Stdout); out != "" {
		fmt.Fprintln(p.out, ui.Dim("stdout:"))
		fmt.Fprintln(p.out, out)
	}
	if errOut := strings.TrimSpace(result.Stderr); errOut != "" {
		fmt.Fprintln(p.out, ui.Dim("stderr:"))
		fmt.Fprintln(p.out, errOut)
	}
	if result.Succeeded() {
		fmt.Fprintln(p.out, ui.Success("Exited cleanly."))
	} else {
		fmt.Fprintln(p.out, ui.Error(fmt.Sprintf("Exited with status %d.", result.ExitCode)))
	}
}
