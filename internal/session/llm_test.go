package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/policy"
	"github.com/vinayprograms/agentkit/tools"

	"github.com/vinayprograms/reposcope/internal/rerrors"
)

func newTestRegistry(t *testing.T, workspace string) *tools.Registry {
	t.Helper()
	pol := policy.New()
	pol.Workspace = workspace
	return tools.NewRegistry(pol)
}

func TestPrompt_NoToolCalls(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("The repository uses a worker pool.")

	s := NewLLMSession(LLMSessionConfig{Provider: provider, SystemPrompt: "explore"})

	var events []Event
	unsub := s.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsub()

	if err := s.Prompt(context.Background(), "describe the repo"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(msgs))
	}
	last := msgs[len(msgs)-1]
	if last.Role != "assistant" || last.Content != "The repository uses a worker pool." || last.StopReason != StopEndTurn {
		t.Errorf("unexpected final message: %+v", last)
	}

	var sawEnd bool
	for _, ev := range events {
		if me, ok := ev.(MessageEndEvent); ok {
			sawEnd = true
			if me.StopReason != StopEndTurn {
				t.Errorf("stop reason = %s, want end_turn", me.StopReason)
			}
		}
	}
	if !sawEnd {
		t.Error("no MessageEndEvent delivered")
	}
}

func TestPrompt_ToolLoop(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(testFile, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	callCount := 0
	provider := llm.NewMockProvider()
	provider.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		callCount++
		if callCount == 1 {
			return &llm.ChatResponse{ToolCalls: []llm.ToolCallResponse{
				{ID: "tc1", Name: "read", Args: map[string]interface{}{"path": testFile}},
			}}, nil
		}
		return &llm.ChatResponse{Content: "file says hello"}, nil
	}

	s := NewLLMSession(LLMSessionConfig{
		Provider: provider,
		Registry: newTestRegistry(t, dir),
	})

	var starts, ends int
	var turnEnds []int
	unsub := s.Subscribe(func(ev Event) {
		switch e := ev.(type) {
		case ToolStartEvent:
			starts++
		case ToolEndEvent:
			ends++
			if e.IsError {
				t.Errorf("tool %s reported error", e.Tool)
			}
		case TurnEndEvent:
			turnEnds = append(turnEnds, e.Index)
		}
	})
	defer unsub()

	if err := s.Prompt(context.Background(), "read the data file"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if starts != 1 || ends != 1 {
		t.Errorf("tool events = %d starts / %d ends, want 1/1", starts, ends)
	}
	if len(turnEnds) != 2 || turnEnds[0] != 0 || turnEnds[1] != 1 {
		t.Errorf("turn end indexes = %v, want [0 1]", turnEnds)
	}
}

func TestPrompt_GateBlocksTool(t *testing.T) {
	callCount := 0
	provider := llm.NewMockProvider()
	provider.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		callCount++
		if callCount == 1 {
			return &llm.ChatResponse{ToolCalls: []llm.ToolCallResponse{
				{ID: "tc1", Name: "read", Args: map[string]interface{}{"path": "/etc/passwd"}},
			}}, nil
		}
		// The blocked tool's error text comes back as a tool message.
		for _, msg := range req.Messages {
			if msg.Role == "tool" {
				return &llm.ChatResponse{Content: "blocked: " + msg.Content}, nil
			}
		}
		return &llm.ChatResponse{Content: "no tool message seen"}, nil
	}

	s := NewLLMSession(LLMSessionConfig{
		Provider: provider,
		Registry: newTestRegistry(t, t.TempDir()),
		Gate: func(toolName string, args map[string]interface{}) error {
			return errors.New("path out of scope")
		},
	})

	var toolErrors int
	unsub := s.Subscribe(func(ev Event) {
		if e, ok := ev.(ToolEndEvent); ok && e.IsError {
			toolErrors++
		}
	})
	defer unsub()

	if err := s.Prompt(context.Background(), "read passwd"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if toolErrors != 1 {
		t.Errorf("blocked tool should surface as a tool error event, got %d", toolErrors)
	}
	msgs := s.Messages()
	if msgs[len(msgs)-1].Content != "blocked: Error: path out of scope" {
		t.Errorf("model should see the gate error text, got %q", msgs[len(msgs)-1].Content)
	}
}

func TestPrompt_UnknownToolIsUnsupported(t *testing.T) {
	callCount := 0
	provider := llm.NewMockProvider()
	provider.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		callCount++
		if callCount == 1 {
			return &llm.ChatResponse{ToolCalls: []llm.ToolCallResponse{
				{ID: "tc1", Name: "launch_rockets", Args: map[string]interface{}{}},
			}}, nil
		}
		for _, msg := range req.Messages {
			if msg.Role == "tool" {
				return &llm.ChatResponse{Content: msg.Content}, nil
			}
		}
		return &llm.ChatResponse{Content: "no tool message seen"}, nil
	}

	s := NewLLMSession(LLMSessionConfig{
		Provider: provider,
		Registry: newTestRegistry(t, t.TempDir()),
	})

	var toolErrors int
	unsub := s.Subscribe(func(ev Event) {
		if e, ok := ev.(ToolEndEvent); ok && e.IsError {
			toolErrors++
		}
	})
	defer unsub()

	if err := s.Prompt(context.Background(), "do something odd"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if toolErrors != 1 {
		t.Errorf("unknown tool should surface as a tool error event, got %d", toolErrors)
	}
	msgs := s.Messages()
	last := msgs[len(msgs)-1].Content
	if !strings.Contains(last, string(rerrors.EUnsupportedTool)) {
		t.Errorf("model should see the unsupported-tool code, got %q", last)
	}
	if !strings.Contains(last, "launch_rockets") {
		t.Errorf("error must name the offending tool, got %q", last)
	}
}

func TestPrompt_ProviderError(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetError(errors.New("API rate limit exceeded"))

	s := NewLLMSession(LLMSessionConfig{Provider: provider})
	err := s.Prompt(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from provider")
	}
	msgs := s.Messages()
	if msgs[len(msgs)-1].StopReason != StopError {
		t.Errorf("final message stop reason = %s, want error", msgs[len(msgs)-1].StopReason)
	}
}

func TestAbort_DuringToolLoop(t *testing.T) {
	var s *LLMSession
	callCount := 0
	provider := llm.NewMockProvider()
	provider.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		callCount++
		return &llm.ChatResponse{ToolCalls: []llm.ToolCallResponse{
			{ID: "tc1", Name: "read", Args: map[string]interface{}{"path": "x.txt"}},
		}}, nil
	}

	s = NewLLMSession(LLMSessionConfig{
		Provider: provider,
		Registry: newTestRegistry(t, t.TempDir()),
		Gate: func(toolName string, args map[string]interface{}) error {
			s.Abort()
			return errors.New("aborted by policy")
		},
	})

	if err := s.Prompt(context.Background(), "loop forever"); err != nil {
		t.Fatalf("Prompt after abort should settle cleanly, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("no further turns after abort, got %d chat calls", callCount)
	}
	msgs := s.Messages()
	if msgs[len(msgs)-1].StopReason != StopAborted {
		t.Errorf("stop reason = %s, want aborted", msgs[len(msgs)-1].StopReason)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("done")

	s := NewLLMSession(LLMSessionConfig{Provider: provider})
	count := 0
	unsub := s.Subscribe(func(Event) { count++ })
	unsub()

	if err := s.Prompt(context.Background(), "hi"); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if count != 0 {
		t.Errorf("unsubscribed listener received %d events", count)
	}
}
