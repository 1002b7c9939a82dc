package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/agentkit/tools"

	"github.com/vinayprograms/reposcope/internal/rerrors"
)

// LLMSession drives a chat loop against an LLM provider with a tool
// registry. It implements Session: one Prompt call runs the whole loop,
// delivering events synchronously as turns and tool calls happen.
type LLMSession struct {
	provider llm.Provider
	registry *tools.Registry
	system   string
	gate     ToolGate
	logger   *logging.Logger

	mu        sync.Mutex
	listeners []listener
	nextID    int
	messages  []Message
	cancel    context.CancelFunc

	aborted  atomic.Bool
	disposed atomic.Bool
	abortSig sync.Once
}

type listener struct {
	id int
	fn func(Event)
}

// LLMSessionConfig configures an LLMSession.
type LLMSessionConfig struct {
	Provider     llm.Provider
	Registry     *tools.Registry
	SystemPrompt string
	Gate         ToolGate // optional; nil means every tool call is allowed
}

// NewLLMSession creates a session over the given provider and registry.
func NewLLMSession(cfg LLMSessionConfig) *LLMSession {
	return &LLMSession{
		provider: cfg.Provider,
		registry: cfg.Registry,
		system:   cfg.SystemPrompt,
		gate:     cfg.Gate,
		logger:   logging.New().WithComponent("session"),
	}
}

// Subscribe registers fn for event delivery.
func (s *LLMSession) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Abort requests cooperative cancellation. Idempotent.
func (s *LLMSession) Abort() {
	s.abortSig.Do(func() {
		s.aborted.Store(true)
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Dispose detaches all listeners. Further events are dropped.
func (s *LLMSession) Dispose() {
	s.disposed.Store(true)
	s.mu.Lock()
	s.listeners = nil
	s.mu.Unlock()
}

// Messages returns a snapshot of the message log.
func (s *LLMSession) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *LLMSession) emit(ev Event) {
	if s.disposed.Load() {
		return
	}
	s.mu.Lock()
	snapshot := make([]listener, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.Unlock()
	for _, l := range snapshot {
		l.fn(ev)
	}
}

func (s *LLMSession) record(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// Prompt runs the chat loop until the model stops calling tools, an
// error occurs, or the session is aborted.
func (s *LLMSession) Prompt(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.record(Message{Role: "user", Content: text})

	messages := []llm.Message{
		{Role: "system", Content: s.system},
		{Role: "user", Content: text},
	}
	var toolDefs []llm.ToolDef
	if s.registry != nil {
		for _, d := range s.registry.Definitions() {
			toolDefs = append(toolDefs, llm.ToolDef(d))
		}
	}

	for turn := 0; ; turn++ {
		if s.aborted.Load() {
			s.finish("", StopAborted)
			return nil
		}

		start := time.Now()
		resp, err := s.provider.Chat(ctx, llm.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
		})
		s.logger.Debug("chat turn", map[string]interface{}{
			"turn":        turn,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			if s.aborted.Load() {
				s.finish("", StopAborted)
				return nil
			}
			s.finish("", StopError)
			return fmt.Errorf("LLM error: %w", err)
		}

		if resp.Content != "" {
			s.emit(MessageUpdateEvent{Text: resp.Content})
		}

		if len(resp.ToolCalls) == 0 {
			s.finish(resp.Content, StopEndTurn)
			s.emit(TurnEndEvent{Index: turn})
			return nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			messages = append(messages, s.executeTool(ctx, tc))
			if s.aborted.Load() {
				s.finish(resp.Content, StopAborted)
				return nil
			}
		}
		s.emit(TurnEndEvent{Index: turn})
	}
}

// executeTool runs one tool call through the gate and registry and
// returns the tool-result message for the model.
func (s *LLMSession) executeTool(ctx context.Context, tc llm.ToolCallResponse) llm.Message {
	s.emit(ToolStartEvent{Tool: tc.Name, Args: tc.Args})

	result, err := s.runTool(ctx, tc)

	s.emit(ToolEndEvent{Tool: tc.Name, IsError: err != nil})

	content := fmt.Sprintf("%v", result)
	if err != nil {
		content = fmt.Sprintf("Error: %s", err.Error())
	}
	return llm.Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: tc.ID,
	}
}

func (s *LLMSession) runTool(ctx context.Context, tc llm.ToolCallResponse) (interface{}, error) {
	if s.gate != nil {
		if err := s.gate(tc.Name, tc.Args); err != nil {
			return nil, err
		}
	}
	if s.registry == nil {
		return nil, fmt.Errorf("no tool registry")
	}
	tool := s.registry.Get(tc.Name)
	if tool == nil {
		return nil, rerrors.Newf(rerrors.EUnsupportedTool, "tool %q is not supported", tc.Name)
	}
	return tool.Execute(ctx, tc.Args)
}

// finish records the terminal assistant message and announces it.
func (s *LLMSession) finish(text string, reason StopReason) {
	s.record(Message{Role: "assistant", Content: text, StopReason: reason})
	s.emit(MessageEndEvent{Role: "assistant", Text: text, StopReason: reason})
}
