// Package supervisor owns the sandboxed session's lifecycle: boot,
// event subscription, per-tool-call policy enforcement, phase and
// budget tracking, cooperative cancellation, output truncation, and the
// final success/failure decision.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinayprograms/agentkit/logging"

	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/sandbox"
	"github.com/vinayprograms/reposcope/internal/scope"
	"github.com/vinayprograms/reposcope/internal/session"
)

// Defaults for session budgets.
const (
	DefaultMaxTurns          = 6
	DefaultMaxToolCalls      = 40
	DefaultHeartbeatInterval = 5 * time.Second
)

// SessionFactory builds the underlying session with the supervisor's
// policy gate installed.
type SessionFactory func(gate session.ToolGate) session.Session

// Config configures one supervised run.
type Config struct {
	NewSession        SessionFactory
	Scope             scope.ResolvedScope
	MaxTurns          int
	MaxToolCalls      int
	EventBuffer       int
	MaxOutputLines    int
	MaxOutputBytes    int
	HeartbeatInterval time.Duration
	OnStatus          func(Details) // optional status observer
}

// Result is the structured outcome of a run. It is populated even on
// failure so callers can inspect partial progress.
type Result struct {
	FinalText string
	Details   Details
}

// Supervisor drives one policy-enforced session to completion.
type Supervisor struct {
	cfg    Config
	logger *logging.Logger

	mu         sync.Mutex
	phase      Phase
	message    string
	stopReason session.StopReason
	finalText  string
	toolCalls  int
	toolErrors int
	turns      int
	lastTool   time.Time
	ring       *eventRing
	policy     sandbox.State

	sess      session.Session
	abortOnce sync.Once
	cancelled bool
}

// New creates a supervisor for one run. A Supervisor is single-use.
func New(cfg Config) *Supervisor {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logging.New().WithComponent("supervisor"),
		phase:  PhaseBooting,
		ring:   newEventRing(cfg.EventBuffer),
	}
}

// Run boots the session, submits the prompt, and resolves the terminal
// outcome. The returned Result always reflects whatever progress was
// made, error or not.
func (s *Supervisor) Run(ctx context.Context, prompt string) (Result, error) {
	ctx, span := s.startRunSpan(ctx)

	s.sess = s.cfg.NewSession(s.gate)
	unsubscribe := s.sess.Subscribe(s.handleEvent)

	heartbeatDone := make(chan struct{})
	go s.heartbeat(heartbeatDone)

	cancelWatchDone := make(chan struct{})
	go s.watchCancellation(ctx, cancelWatchDone)

	// Guaranteed cleanup on every exit path.
	defer func() {
		close(heartbeatDone)
		close(cancelWatchDone)
		unsubscribe()
		s.sess.Dispose()
	}()

	s.emitStatus("starting reconnaissance session")
	promptErr := s.sess.Prompt(ctx, prompt)

	if ctx.Err() != nil {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
	}
	s.adoptLastLoggedMessage()
	result, err := s.decide(promptErr)
	s.endRunSpan(span, result.Details, err)
	return result, err
}

// gate is the policy-enforcement hook invoked by the session before
// each tool execution. A pre-final-turn violation hard-stops the run;
// a turn-budget violation on the final allowed turn only blocks that
// one call, leaving the session its last turn to answer from evidence
// already gathered.
func (s *Supervisor) gate(toolName string, args map[string]interface{}) error {
	s.mu.Lock()
	turnIndex := s.policy.TurnIndex
	toolCalls := s.policy.ToolCalls
	s.policy.ToolCalls++
	s.mu.Unlock()

	v := sandbox.CheckToolCall(toolName, args, turnIndex, toolCalls,
		s.cfg.MaxTurns, s.cfg.MaxToolCalls, s.cfg.Scope)
	if v == nil {
		return nil
	}

	if v.Kind == sandbox.ViolationTurnBudget && turnIndex == s.cfg.MaxTurns-1 {
		s.mu.Lock()
		s.policy.RecordTurnBudgetBlock()
		s.mu.Unlock()
		s.logger.Warn("final-turn tool call blocked", map[string]interface{}{
			"tool": toolName,
		})
		return fmt.Errorf("tool call blocked: %s; answer from what you have already gathered", v.Message)
	}

	s.mu.Lock()
	first := s.policy.RecordViolation(v)
	s.mu.Unlock()
	if first {
		s.logger.Error("policy violation, aborting session", map[string]interface{}{
			"tool":   toolName,
			"kind":   string(v.Kind),
			"detail": v.Message,
		})
	}
	s.abort()
	return fmt.Errorf("policy violation: %s", v.Message)
}

// handleEvent is the single mutation point for run state. It runs
// synchronously per delivered event, in delivery order.
func (s *Supervisor) handleEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.ToolStartEvent:
		s.mu.Lock()
		s.toolCalls++
		s.lastTool = time.Now()
		s.setPhaseLocked(PhaseExploring)
		s.ring.append(EventRecord{
			Type:      EventToolStart,
			ToolName:  e.Tool,
			Args:      e.Args,
			Timestamp: time.Now(),
		})
		s.message = "running " + e.Tool
		s.mu.Unlock()
		s.emitStatus("")

	case session.ToolEndEvent:
		s.mu.Lock()
		if e.IsError {
			s.toolErrors++
		}
		s.lastTool = time.Now()
		s.ring.append(EventRecord{
			Type:      EventToolEnd,
			ToolName:  e.Tool,
			IsError:   e.IsError,
			Timestamp: time.Now(),
		})
		s.mu.Unlock()
		s.emitStatus("")

	case session.MessageUpdateEvent:
		s.mu.Lock()
		s.setPhaseLocked(PhaseWriting)
		if e.Text != "" {
			s.finalText = e.Text // last assistant text wins
		}
		s.mu.Unlock()
		s.emitStatus("")

	case session.MessageEndEvent:
		s.mu.Lock()
		s.setPhaseLocked(PhaseWriting)
		s.stopReason = e.StopReason
		if e.Text != "" {
			s.finalText = e.Text
		}
		s.mu.Unlock()

	case session.TurnEndEvent:
		s.mu.Lock()
		s.turns = e.Index + 1
		s.policy.TurnIndex = e.Index + 1
		s.mu.Unlock()
	}
}

// setPhaseLocked transitions phase unless a terminal phase is set.
func (s *Supervisor) setPhaseLocked(p Phase) {
	if s.phase.Terminal() {
		return
	}
	s.phase = p
}

// abort requests session cancellation, at most once.
func (s *Supervisor) abort() {
	s.abortOnce.Do(func() {
		s.sess.Abort()
	})
}

// watchCancellation maps external context cancellation onto a session
// abort. Completion is not waited on: the run races to whichever
// terminal signal lands first.
func (s *Supervisor) watchCancellation(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		s.abort()
	case <-done:
	}
}

// heartbeat periodically emits liveness while the run is not terminal.
// A tool event since the previous tick means active exploration;
// otherwise the session is waiting on the model.
func (s *Supervisor) heartbeat(done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			terminal := s.phase.Terminal()
			active := !s.lastTool.IsZero() && time.Since(s.lastTool) < s.cfg.HeartbeatInterval
			s.mu.Unlock()
			if terminal {
				return
			}
			if active {
				s.emitStatus("still exploring")
			} else {
				s.emitStatus("waiting on model")
			}
		case <-done:
			return
		}
	}
}

// adoptLastLoggedMessage consults the session's own message log for a
// last assistant message, in case the event stream missed it.
func (s *Supervisor) adoptLastLoggedMessage() {
	msgs := s.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != "assistant" {
			continue
		}
		s.mu.Lock()
		if s.finalText == "" && msgs[i].Content != "" {
			s.finalText = msgs[i].Content
		}
		if s.stopReason == "" {
			s.stopReason = msgs[i].StopReason
		}
		s.mu.Unlock()
		return
	}
}

// decide resolves the terminal outcome once the prompt call settled.
// Priority order: recorded violation, external cancellation, prompt
// error, budget exhaustion with no answer, error stop reason, aborted
// stop reason, then success.
func (s *Supervisor) decide(promptErr error) (Result, error) {
	s.mu.Lock()

	text, trunc := truncateHead(s.finalText, s.cfg.MaxOutputLines, s.cfg.MaxOutputBytes)

	var err error
	switch {
	case s.policy.Violation != nil:
		s.phase = PhaseError
		err = rerrors.New(rerrors.EPolicyViolation, s.policy.Violation.Message)

	case s.cancelled:
		s.phase = PhaseAborted
		err = rerrors.New(rerrors.EAborted, "reconnaissance session cancelled")

	case promptErr != nil:
		s.phase = PhaseError
		err = rerrors.Wrap(rerrors.EUpstreamError, "session failed", promptErr)

	case s.finalText == "" && s.policy.TurnBudgetBlocked:
		s.phase = PhaseError
		err = rerrors.New(rerrors.EBudgetExhausted,
			fmt.Sprintf("turn budget of %d exhausted with no usable answer", s.cfg.MaxTurns))

	case s.stopReason == session.StopError:
		s.phase = PhaseError
		err = rerrors.New(rerrors.EUpstreamError, "session reported an error stop reason")

	case s.stopReason == session.StopAborted:
		s.phase = PhaseAborted
		err = rerrors.New(rerrors.EAborted, "session aborted")

	default:
		s.phase = PhaseDone
	}

	details := s.detailsLocked()
	details.Truncation = trunc
	if err != nil {
		details.ErrorMessage = err.Error()
		details.ExitCode = rerrors.ExitCode(err)
	}
	s.mu.Unlock()

	// The observer may call back into the supervisor; never hold the
	// lock across it.
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(details)
	}
	s.logger.Info("run settled", map[string]interface{}{
		"phase":      string(details.Phase),
		"turns":      details.Turns,
		"tool_calls": details.ToolCalls,
	})
	return Result{FinalText: text, Details: details}, err
}

// detailsLocked snapshots the run record. Caller holds s.mu.
func (s *Supervisor) detailsLocked() Details {
	return Details{
		Phase:        s.phase,
		Message:      s.message,
		ToolCalls:    s.toolCalls,
		ToolErrors:   s.toolErrors,
		Turns:        s.turns,
		MaxTurns:     s.cfg.MaxTurns,
		MaxToolCalls: s.cfg.MaxToolCalls,
		StopReason:   string(s.stopReason),
		Events:       s.ring.snapshot(),
	}
}

// emitStatus publishes a status snapshot to the observer.
func (s *Supervisor) emitStatus(message string) {
	if s.cfg.OnStatus == nil {
		return
	}
	s.mu.Lock()
	if message != "" {
		s.message = message
	}
	d := s.detailsLocked()
	s.mu.Unlock()
	s.cfg.OnStatus(d)
}
