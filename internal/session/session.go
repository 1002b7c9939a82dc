// Package session defines the boundary to the underlying agent runtime
// that executes model turns and invokes tools. The supervisor consumes
// it as an opaque object: prompt submission, event subscription, abort,
// dispose, and a readable message log.
package session

import "context"

// StopReason classifies how an assistant message ended.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopError   StopReason = "error"
	StopAborted StopReason = "aborted"
)

// Event is a lifecycle notification delivered to subscribers, in order,
// synchronously with the session's own progress.
type Event interface {
	isEvent()
}

// ToolStartEvent fires when the session is about to execute a tool.
type ToolStartEvent struct {
	Tool string
	Args map[string]interface{}
}

// ToolEndEvent fires when a tool execution finished or was blocked.
type ToolEndEvent struct {
	Tool    string
	IsError bool
}

// MessageUpdateEvent carries in-progress assistant text.
type MessageUpdateEvent struct {
	Text string
}

// MessageEndEvent fires when an assistant message is complete.
type MessageEndEvent struct {
	Role       string
	Text       string
	StopReason StopReason
}

// TurnEndEvent fires after each completed assistant turn.
type TurnEndEvent struct {
	Index int
}

func (ToolStartEvent) isEvent()     {}
func (ToolEndEvent) isEvent()       {}
func (MessageUpdateEvent) isEvent() {}
func (MessageEndEvent) isEvent()    {}
func (TurnEndEvent) isEvent()       {}

// Message is one entry of the session's readable message log.
type Message struct {
	Role       string
	Content    string
	StopReason StopReason
}

// ToolGate vets a proposed tool call before it executes. A non-nil
// error blocks the call; its text is fed back to the model as the tool
// result. The gate may also request an abort through its own channel.
type ToolGate func(toolName string, args map[string]interface{}) error

// Session is the opaque runtime consumed by the supervisor.
type Session interface {
	// Prompt submits text and blocks until the run settles. Events are
	// delivered to subscribers synchronously while it runs.
	Prompt(ctx context.Context, text string) error

	// Subscribe registers a listener and returns its unsubscribe handle.
	Subscribe(fn func(Event)) (unsubscribe func())

	// Abort requests cooperative cancellation. Safe to call while a
	// prompt is in flight; in-flight tool calls may still complete.
	Abort()

	// Dispose releases the session. No events are delivered afterwards.
	Dispose()

	// Messages returns a snapshot of the message log.
	Messages() []Message
}
