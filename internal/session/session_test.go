package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atelier.dev/atelier/common/id"
	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/core/config"
	"atelier.dev/atelier/internal/artifact"
	"atelier.dev/atelier/internal/runner"
	"atelier.dev/atelier/internal/workspace"
)

func TestMain(m *testing.M) {
	_ = id.Init(1)
	os.Exit(m.Run())
}

type fakeClient struct {
	replies []string
	err     error
	calls   [][]llm.Message
}

func (c *fakeClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.calls = append(c.calls, messages)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "I have nothing to add.", nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func (c *fakeClient) Model() string { return "fake-model" }

// autoPrompter answers no to everything and records what was asked.
type autoPrompter struct {
	asked []string
}

func (a *autoPrompter) Confirm(question string) (bool, error) {
	a.asked = append(a.asked, question)
	return false, nil
}

func (a *autoPrompter) AskText(question, fallback string) (string, error) {
	a.asked = append(a.asked, question)
	return fallback, nil
}

type noopRunner struct{}

func (noopRunner) Run(context.Context, runner.Command) (runner.Result, error) {
	return runner.Result{}, nil
}

type noopGateway struct{}

func (noopGateway) StageAll(context.Context) error      { return nil }
func (noopGateway) Stage(context.Context, string) error { return nil }
func (noopGateway) Commit(context.Context, string) (string, error) {
	return "", nil
}

func seedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.rb"), []byte("puts 'a'\n"), 0o644); err != nil {
		t.Fatalf("seed a.rb: %v", err)
	}
	return root
}

func newTestSession(t *testing.T, root, input, debugDir string, client *fakeClient, prompter *autoPrompter) (*Session, *bytes.Buffer) {
	t.Helper()

	cfg := config.Config{
		History: config.HistoryConfig{MaxTranscript: 10, Capacity: 12},
		Session: config.SessionConfig{DebugDir: debugDir},
		Workspace: config.WorkspaceConfig{
			Root:         root,
			Extensions:   []string{"rb"},
			TokenBudget:  50_000,
			MaxFileBytes: 1_000_000,
		},
	}

	out := &bytes.Buffer{}
	pipeline := artifact.NewPipeline(artifact.Options{
		Prompter:    prompter,
		Runner:      noopRunner{},
		Gateway:     noopGateway{},
		Client:      client,
		Out:         out,
		Root:        root,
		MaxAttempts: 3,
	})
	sess := New(Options{
		Config:   cfg,
		Builder:  workspace.NewBuilder(cfg.Workspace),
		Client:   client,
		Pipeline: pipeline,
		In:       strings.NewReader(input),
		Out:      out,
	})
	return sess, out
}

func TestRunQuitImmediately(t *testing.T) {
	sess, out := newTestSession(t, seedProject(t), "quit\n", "", &fakeClient{}, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Context ready") {
		t.Errorf("output %q missing the startup line", out.String())
	}
	if !strings.Contains(out.String(), "Bye.") {
		t.Errorf("output %q missing the goodbye", out.String())
	}
}

func TestRunQuitAliasesAndCase(t *testing.T) {
	for _, input := range []string{"exit\n", "q\n", "QUIT\n"} {
		sess, _ := newTestSession(t, seedProject(t), input, "", &fakeClient{}, &autoPrompter{})
		if err := sess.Run(context.Background()); err != nil {
			t.Errorf("Run(%q): %v", input, err)
		}
	}
}

func TestRunEndsOnEOF(t *testing.T) {
	sess, _ := newTestSession(t, seedProject(t), "", "", &fakeClient{}, &autoPrompter{})
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunTurnRoundTrip(t *testing.T) {
	client := &fakeClient{replies: []string{"hello there"}}
	sess, out := newTestSession(t, seedProject(t), "say hi\nquit\n", "", client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "hello there") {
		t.Errorf("output %q missing the reply", out.String())
	}

	if len(client.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(client.calls))
	}
	snapshot := client.calls[0]
	if len(snapshot) != 3 {
		t.Fatalf("request has %d messages, want system, context, and the user turn", len(snapshot))
	}
	if snapshot[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q, want system", snapshot[0].Role)
	}
	if !strings.HasPrefix(snapshot[1].Content, "Here is the current content of the project:\n\n") {
		t.Errorf("context message has the wrong preamble:\n%s", snapshot[1].Content)
	}
	if !strings.Contains(snapshot[1].Content, "a.rb") {
		t.Errorf("context message missing the project file:\n%s", snapshot[1].Content)
	}
	if snapshot[2].Content != "say hi" {
		t.Errorf("user message = %q, want the typed input", snapshot[2].Content)
	}
}

func TestRunTurnFailureKeepsLooping(t *testing.T) {
	client := &fakeClient{err: errors.New("connection reset")}
	sess, out := newTestSession(t, seedProject(t), "one\ntwo\nquit\n", "", client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "The model call failed") {
		t.Errorf("output %q missing the failure notice", out.String())
	}
	if len(client.calls) != 2 {
		t.Errorf("model calls = %d, the loop should survive a failed turn", len(client.calls))
	}
	// The failed first message is kept, so the second request carries both.
	second := client.calls[1]
	if len(second) != 4 {
		t.Errorf("second request has %d messages, want 4", len(second))
	}
}

func TestRunStatsCommand(t *testing.T) {
	client := &fakeClient{}
	sess, out := newTestSession(t, seedProject(t), "stats\nquit\n", "", client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Context: 1 files included") {
		t.Errorf("output %q missing context stats", out.String())
	}
	if !strings.Contains(out.String(), "Model: fake-model") {
		t.Errorf("output %q missing the model name", out.String())
	}
	if len(client.calls) != 0 {
		t.Errorf("stats must not call the model, got %d calls", len(client.calls))
	}
}

func TestRunRefreshCommand(t *testing.T) {
	client := &fakeClient{}
	sess, out := newTestSession(t, seedProject(t), "refresh\nquit\n", "", client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Context refreshed") {
		t.Errorf("output %q missing the refresh notice", out.String())
	}
	if len(client.calls) != 0 {
		t.Errorf("refresh must not call the model, got %d calls", len(client.calls))
	}
}

func TestRunHelpCommand(t *testing.T) {
	sess, out := newTestSession(t, seedProject(t), "help\nquit\n", "", &fakeClient{}, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, command := range []string{"refresh", "stats", "quit"} {
		if !strings.Contains(out.String(), command) {
			t.Errorf("help output missing %q:\n%s", command, out.String())
		}
	}
}

func TestRunEmptyLinesIgnored(t *testing.T) {
	client := &fakeClient{}
	sess, _ := newTestSession(t, seedProject(t), "\n   \nquit\n", "", client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("blank input must not call the model, got %d calls", len(client.calls))
	}
}

func TestRunRoutesBlocksToPipeline(t *testing.T) {
	client := &fakeClient{replies: []string{"Sure:\n\n```ruby\nputs 1\n```"}}
	prompter := &autoPrompter{}
	sess, out := newTestSession(t, seedProject(t), "write it\nquit\n", "", client, prompter)

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(prompter.asked) == 0 || prompter.asked[0] != "Save this ruby code to a file?" {
		t.Fatalf("asked = %v, want the save prompt first", prompter.asked)
	}
	if !strings.Contains(out.String(), "Found ruby code") {
		t.Errorf("output %q missing the block header", out.String())
	}
}

func TestRunWritesDebugTranscript(t *testing.T) {
	debugDir := filepath.Join(t.TempDir(), "transcripts")
	client := &fakeClient{replies: []string{"plain reply"}}
	sess, _ := newTestSession(t, seedProject(t), "say hi\nquit\n", debugDir, client, &autoPrompter{})

	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(debugDir)
	if err != nil {
		t.Fatalf("read debug dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("debug dir has %d files, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "session_") {
		t.Errorf("transcript name = %q, want a session_ prefix", entries[0].Name())
	}
	content, err := os.ReadFile(filepath.Join(debugDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	for _, want := range []string{"say hi", "plain reply", "--- system ---"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("transcript missing %q:\n%s", want, content)
		}
	}
}
