// Package session runs the interactive loop: read a line, call the model,
// show the reply, and hand any code blocks to the artifact pipeline.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"atelier.dev/atelier/common/id"
	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/common/logger"
	"atelier.dev/atelier/core/config"
	"atelier.dev/atelier/internal/artifact"
	"atelier.dev/atelier/internal/conversation"
	"atelier.dev/atelier/internal/extract"
	"atelier.dev/atelier/internal/ui"
	"atelier.dev/atelier/internal/workspace"
)

const systemPrompt = "You are a coding assistant embedded in the user's terminal. " +
	"You are given the current source of their project and help them change it. " +
	"When you propose code, reply with a complete file in a fenced code block tagged with its language."

const helpText = `Commands:
  refresh  rebuild the project context from disk, dropping stale turns
  stats    show context and history counters
  help     show this help
  quit     leave the session (also: exit, q)
Anything else is sent to the model.
`

// contextMessage wraps the rendered project document the way the model sees
// it on every request.
func contextMessage(text string) string {
	return "Here is the current content of the project:\n\n" + text
}

// Options wires a Session. In and Out are usually stdin and stdout; pass
// the same reader the prompter uses so neither steals buffered input.
type Options struct {
	Config   config.Config
	Builder  *workspace.Builder
	Client   llm.Client
	Pipeline *artifact.Pipeline
	In       io.Reader
	Out      io.Writer
}

// Session is one interactive conversation over a project tree. Strictly
// sequential; nothing here is safe for concurrent use.
type Session struct {
	cfg      config.Config
	builder  *workspace.Builder
	client   llm.Client
	pipeline *artifact.Pipeline
	in       *bufio.Reader
	out      io.Writer
	history  *conversation.History
	lastDoc  workspace.ContextDocument
	id       int64
	token    string
	turn     int
}

func New(opts Options) *Session {
	return &Session{
		cfg:      opts.Config,
		builder:  opts.Builder,
		client:   opts.Client,
		pipeline: opts.Pipeline,
		in:       bufio.NewReader(opts.In),
		out:      opts.Out,
		id:       id.New(),
		token:    id.NewString(),
	}
}

// Run builds the initial project context and loops until the user quits or
// input ends. The returned error means the loop itself broke, never that a
// single turn failed.
func (s *Session) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(s.id),
		Component: "atelier.session",
	})

	doc, err := s.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building project context: %w", err)
	}
	s.lastDoc = doc
	s.history = conversation.NewHistory(systemPrompt, contextMessage(doc.Text), s.cfg.History)
	slog.InfoContext(ctx, "session started", "model", s.client.Model(), "files", doc.Stats.Included)

	fmt.Fprintln(s.out, ui.Dim(fmt.Sprintf("Context ready: %d files, about %d tokens. Type help for commands.",
		doc.Stats.Included, doc.Stats.EstimatedTokens)))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, ui.Prompt("> "))
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Fprintln(s.out, ui.Dim("Bye."))
			return nil
		case "help":
			fmt.Fprint(s.out, helpText)
		case "stats":
			s.printStats()
		case "refresh":
			s.refresh(ctx)
		default:
			if err := s.runTurn(ctx, input); err != nil {
				return err
			}
		}
	}
}

// runTurn sends one user message and deals with the reply. A failed model
// call is reported and swallowed; the user's message stays in the history
// so they can simply ask again.
func (s *Session) runTurn(ctx context.Context, input string) error {
	s.turn++
	ctx = logger.WithLogFields(ctx, logger.LogFields{Turn: logger.Ptr(s.turn)})
	sc := logger.StartSpan(ctx, "session.turn")
	defer sc.End()
	ctx = sc.Context()

	s.history.AppendUser(input)

	reply, err := s.client.Complete(ctx, s.history.Snapshot())
	if err != nil {
		sc.RecordError(err)
		if status, ok := llm.APIStatus(err); ok {
			fmt.Fprintln(s.out, ui.Error(fmt.Sprintf("The model call failed with status %d. Your message is kept; just ask again.", status)))
		} else {
			fmt.Fprintln(s.out, ui.Error("The model call failed: "+err.Error()))
		}
		slog.WarnContext(ctx, "turn failed", "error", err)
		return nil
	}

	slog.DebugContext(ctx, "model replied", "chars", len(reply), "preview", logger.Truncate(reply, 120))
	fmt.Fprintln(s.out, ui.Assistant(reply))
	s.history.AppendAssistant(reply)
	if dropped := s.history.TrimIfOverCapacity(); dropped > 0 {
		slog.DebugContext(ctx, "history trimmed", "dropped", dropped)
	}

	blocks := extract.Blocks(reply)
	if len(blocks) > 1 {
		fmt.Fprintln(s.out, ui.Dim(fmt.Sprintf("The reply contains %d code blocks.", len(blocks))))
	}
	for _, block := range blocks {
		outcome, err := s.pipeline.Handle(ctx, block)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "block handled", "status", string(outcome.Status), "filename", outcome.Filename)
	}

	s.saveTranscript(ctx)
	return nil
}

func (s *Session) refresh(ctx context.Context) {
	doc, err := s.builder.Build(ctx)
	if err != nil {
		fmt.Fprintln(s.out, ui.Error("Refresh failed: "+err.Error()))
		return
	}
	s.lastDoc = doc
	s.history.Refresh(contextMessage(doc.Text))
	fmt.Fprintln(s.out, ui.Success(fmt.Sprintf("Context refreshed: %d files, about %d tokens.",
		doc.Stats.Included, doc.Stats.EstimatedTokens)))
}

func (s *Session) printStats() {
	stats := s.lastDoc.Stats
	fmt.Fprintln(s.out, ui.Dim(fmt.Sprintf(
		"Context: %d files included, %d excluded, %d bytes, about %d tokens.",
		stats.Included, stats.Excluded, stats.TotalBytes, stats.EstimatedTokens)))
	fmt.Fprintln(s.out, ui.Dim(fmt.Sprintf(
		"History: %d messages, %d transcript entries. Model: %s.",
		s.history.Len(), s.history.TranscriptLen(), s.client.Model())))
}

// saveTranscript dumps the current snapshot to the debug directory, one
// file per turn. Failures are logged and otherwise ignored.
func (s *Session) saveTranscript(ctx context.Context) {
	if !s.cfg.Session.DebugEnabled() {
		return
	}
	if err := os.MkdirAll(s.cfg.Session.DebugDir, 0o755); err != nil {
		slog.WarnContext(ctx, "cannot create debug dir", "dir", s.cfg.Session.DebugDir, "error", err)
		return
	}

	var sb strings.Builder
	for _, msg := range s.history.Snapshot() {
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", msg.Role, msg.Content)
	}
	path := filepath.Join(s.cfg.Session.DebugDir, fmt.Sprintf("session_%s_turn_%03d.txt", s.token, s.turn))
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		slog.WarnContext(ctx, "cannot write transcript", "path", path, "error", err)
	}
}

// readLine tolerates a final line without a trailing newline; only an empty
// read surfaces the underlying error.
func (s *Session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}
