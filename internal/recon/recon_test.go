package recon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/reposcope/internal/config"
	"github.com/vinayprograms/reposcope/internal/repomap"
	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/resolver"
	"github.com/vinayprograms/reposcope/internal/session"
	"github.com/vinayprograms/reposcope/internal/supervisor"
)

type fakeClient struct {
	entries map[string]repomap.MapEntry
}

func (f *fakeClient) Version(context.Context) (string, error) { return "repomap 1.0.0", nil }

func (f *fakeClient) Show(_ context.Context, id string) (repomap.MapEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return repomap.MapEntry{}, nil
	}
	return entry, nil
}

func (f *fakeClient) Search(context.Context, string, int) ([]repomap.Candidate, error) {
	return nil, nil
}

func (f *fakeClient) Pull(context.Context, string) error { return nil }

// scriptedSession drives a canned run against the supervisor's gate.
type scriptedSession struct {
	gate     session.ToolGate
	script   func(ss *scriptedSession) error
	listener func(session.Event)
	messages []session.Message
	aborted  bool
}

func (ss *scriptedSession) Prompt(ctx context.Context, text string) error {
	ss.messages = append(ss.messages, session.Message{Role: "user", Content: text})
	return ss.script(ss)
}

func (ss *scriptedSession) Subscribe(fn func(session.Event)) func() {
	ss.listener = fn
	return func() {}
}

func (ss *scriptedSession) Abort()                      { ss.aborted = true }
func (ss *scriptedSession) Dispose()                    {}
func (ss *scriptedSession) Messages() []session.Message { return ss.messages }

func (ss *scriptedSession) emit(ev session.Event) {
	if ss.listener != nil {
		ss.listener(ev)
	}
}

func (ss *scriptedSession) tool(name string, args map[string]interface{}) error {
	ss.emit(session.ToolStartEvent{Tool: name, Args: args})
	err := ss.gate(name, args)
	ss.emit(session.ToolEndEvent{Tool: name, IsError: err != nil})
	return err
}

func (ss *scriptedSession) finish(text string, reason session.StopReason) {
	ss.messages = append(ss.messages, session.Message{Role: "assistant", Content: text, StopReason: reason})
	ss.emit(session.MessageEndEvent{Role: "assistant", Text: text, StopReason: reason})
}

func makeClone(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newRunner(t *testing.T, clone string, script func(ss *scriptedSession) error) (*Runner, *scriptedSession) {
	t.Helper()
	client := &fakeClient{entries: map[string]repomap.MapEntry{
		"owner/repo": {Found: true, FullName: "owner/repo", QualifiedName: "github:owner/repo", Scope: "external", ClonePath: clone},
	}}
	ss := &scriptedSession{script: script}
	r := NewRunner(RunnerConfig{
		Resolver: resolver.New(client, nil),
		NewSession: func(repo *resolver.ResolvedRepo, systemPrompt string, gate session.ToolGate) session.Session {
			if repo == nil || repo.Repo != "owner/repo" {
				t.Errorf("builder should receive the resolved repo, got %+v", repo)
			}
			if !strings.Contains(systemPrompt, "owner/repo") {
				t.Errorf("system prompt should name the repository, got %q", systemPrompt)
			}
			ss.gate = gate
			return ss
		},
		Config: config.New(),
	})
	return r, ss
}

func TestInputValidate(t *testing.T) {
	cases := []struct {
		name  string
		in    Input
		valid bool
	}{
		{"ok", Input{Task: "explore the cache layer"}, true},
		{"empty task", Input{}, false},
		{"task too long", Input{Task: strings.Repeat("a", 4001)}, false},
		{"control char", Input{Task: "bad\x00task"}, false},
		{"newlines allowed", Input{Task: "line one\nline two\ttabbed"}, true},
		{"repo too long", Input{Task: "x", Repo: strings.Repeat("a", 201)}, false},
		{"repo not a slug", Input{Task: "x", Repo: "justarepo"}, false},
		{"cwd too long", Input{Task: "x", Cwd: strings.Repeat("a", 1001)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && rerrors.GetCode(err) != rerrors.EUsage {
				t.Errorf("expected usage error, got %v", err)
			}
		})
	}
}

func TestInputValidate_NormalizesRepo(t *testing.T) {
	in := Input{Task: "x", Repo: "https://github.com/owner/repo.git"}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if in.Repo != "owner/repo" {
		t.Errorf("repo = %q, want owner/repo", in.Repo)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	clone := makeClone(t)
	r, _ := newRunner(t, clone, func(ss *scriptedSession) error {
		if err := ss.tool("read", map[string]interface{}{"path": filepath.Join(clone, "main.go")}); err != nil {
			return err
		}
		ss.emit(session.TurnEndEvent{Index: 0})
		ss.finish("It is a small CLI.", session.StopEndTurn)
		return nil
	})

	out, err := r.Run(context.Background(), Input{Task: "what does this repo do", Repo: "owner/repo"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FinalText != "It is a small CLI." {
		t.Errorf("final text = %q", out.FinalText)
	}
	if out.Repo == nil || out.Repo.Repo != "owner/repo" || out.Repo.ClonePath != clone {
		t.Errorf("resolved repo missing from output: %+v", out.Repo)
	}
	if out.Details.Phase != supervisor.PhaseDone || out.Details.ToolCalls != 1 {
		t.Errorf("unexpected details: %+v", out.Details)
	}
	if out.RunID == "" {
		t.Error("run id should be set")
	}
}

func TestRun_ScopeConfinedToClone(t *testing.T) {
	clone := makeClone(t)
	r, _ := newRunner(t, clone, func(ss *scriptedSession) error {
		_ = ss.tool("read", map[string]interface{}{"path": "/etc/passwd"})
		if ss.aborted {
			ss.finish("", session.StopAborted)
		}
		return nil
	})

	out, err := r.Run(context.Background(), Input{Task: "read system files", Repo: "owner/repo"})
	if rerrors.GetCode(err) != rerrors.EPolicyViolation {
		t.Fatalf("out-of-scope read must be a policy violation, got %v", err)
	}
	// Partial progress survives the failure.
	if out.Repo == nil || len(out.Details.Events) == 0 {
		t.Errorf("failure output should keep resolution and events: %+v", out.Details)
	}
}

func TestRun_ResolverFailureSurfaces(t *testing.T) {
	r, _ := newRunner(t, makeClone(t), func(ss *scriptedSession) error { return nil })

	out, err := r.Run(context.Background(), Input{Task: "explore", Repo: "ghost/repo"})
	if rerrors.GetCode(err) != rerrors.ERepoUnresolved {
		t.Fatalf("expected unresolved, got %v", err)
	}
	if out.Repo != nil {
		t.Error("no resolved repo should be reported on resolution failure")
	}
}

func TestRun_InvalidInputRejectedBeforeResolution(t *testing.T) {
	r, _ := newRunner(t, makeClone(t), func(ss *scriptedSession) error {
		t.Error("session must not start for invalid input")
		return nil
	})

	_, err := r.Run(context.Background(), Input{Task: ""})
	if rerrors.GetCode(err) != rerrors.EUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}
