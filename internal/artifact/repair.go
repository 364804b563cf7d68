package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/internal/extract"
	"atelier.dev/atelier/internal/runner"
	"atelier.dev/atelier/internal/ui"
)

const repairSystemPrompt = "You are a debugging assistant. A script you proposed failed to run. " +
	"Reply with the complete corrected file in a single fenced code block and keep any explanation brief."

// repairExchange builds the isolated request for one fix round. It never
// includes the session history; the model sees only the failing code, the
// error output, and whatever the user added.
func repairExchange(language, code, errorText, comments string) []llm.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This %s script failed when executed.\n\n", language)
	fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", language, code)
	fmt.Fprintf(&sb, "Error output:\n\n```\n%s\n```\n", errorText)
	if comments != "" {
		fmt.Fprintf(&sb, "\nNotes from the user: %s\n", comments)
	}
	sb.WriteString("\nReply with the complete corrected file in a single fenced code block.")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: repairSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

// failureText condenses a failed run into the error text sent to the model.
func failureText(result runner.Result) string {
	text := strings.TrimSpace(result.Stderr)
	if text == "" {
		text = strings.TrimSpace(result.Stdout)
	}
	if text == "" {
		return fmt.Sprintf("exit status %d", result.ExitCode)
	}
	return fmt.Sprintf("exit status %d\n%s", result.ExitCode, text)
}

// repairLoop asks the model to fix a failing script, applies the fix, and
// re-runs, up to the attempt limit. Each round needs the user's go-ahead.
// The returned error is only ever a dead input stream.
func (p *Pipeline) repairLoop(ctx context.Context, interpreter, filename, path string, block extract.Block, failure runner.Result, outcome *Outcome) error {
	code := block.Code

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		tryFix, err := p.prompter.Confirm("Ask the model to fix the error?")
		if err != nil {
			return err
		}
		if !tryFix {
			return nil
		}

		comments, err := p.prompter.AskText("Anything the model should know (optional)", "")
		if err != nil {
			return err
		}

		reply, err := p.client.Complete(ctx, repairExchange(block.Language, code, failureText(failure), comments))
		if err != nil {
			if status, ok := llm.APIStatus(err); ok {
				fmt.Fprintln(p.out, ui.Error(fmt.Sprintf("The model call failed with status %d; giving up on the fix.", status)))
			} else {
				fmt.Fprintln(p.out, ui.Error("The model call failed; giving up on the fix."))
			}
			slog.WarnContext(ctx, "repair request failed", "attempt", attempt, "error", err)
			return nil
		}

		blocks := extract.Blocks(reply)
		if len(blocks) == 0 {
			fmt.Fprintln(p.out, ui.Notice("The model replied without a code block; nothing to apply."))
			continue
		}

		fix, err := p.chooseFix(blocks)
		if err != nil {
			return err
		}

		apply, err := p.prompter.Confirm("Apply this fix to " + filename + "?")
		if err != nil {
			return err
		}
		if !apply {
			fmt.Fprintln(p.out, ui.Dim("Leaving the file as is."))
			return nil
		}

		if err := p.overwrite(ctx, path, fix.Code); err != nil {
			fmt.Fprintln(p.out, ui.Error("Could not apply the fix: "+err.Error()))
			return nil
		}
		outcome.Repaired = true
		fmt.Fprintln(p.out, ui.Success("Applied fix to "+filename))
		slog.InfoContext(ctx, "fix applied", "attempt", attempt)

		result, runErr := p.runner.Run(ctx, runner.Command{Name: interpreter, Args: []string{filename}, Dir: p.root})
		if runErr != nil {
			fmt.Fprintln(p.out, ui.Error("Could not run "+filename+": "+runErr.Error()))
			return nil
		}
		p.printRunResult(result)
		if result.Succeeded() {
			outcome.RunOK = true
			return nil
		}

		failure = result
		code = fix.Code
	}

	fmt.Fprintln(p.out, ui.Notice(fmt.Sprintf("Still failing after %d fix attempts; leaving the file as is.", p.maxAttempts)))
	return nil
}

// chooseFix selects one block from a fix reply. With several candidates the
// user picks by number; anything unparseable falls back to the first.
func (p *Pipeline) chooseFix(blocks []extract.Block) (extract.Block, error) {
	if len(blocks) == 1 {
		fmt.Fprintf(p.out, "%s\n%s\n", ui.Dim("Proposed fix:"), blocks[0].Code)
		return blocks[0], nil
	}

	fmt.Fprintln(p.out, ui.Notice(fmt.Sprintf("The model sent %d code blocks:", len(blocks))))
	for i, candidate := range blocks {
		fmt.Fprintf(p.out, "\n%s\n%s\n", ui.Dim(fmt.Sprintf("--- fix %d (%s) ---", i+1, candidate.Language)), candidate.Code)
	}

	answer, err := p.prompter.AskText("Apply which fix", "1")
	if err != nil {
		return extract.Block{}, err
	}
	choice, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil || choice < 1 || choice > len(blocks) {
		choice = 1
	}
	return blocks[choice-1], nil
}
