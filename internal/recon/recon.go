// Package recon is the top-level operation: resolve a repository for a
// task, then run a policy-enforced reconnaissance session against it
// and return the findings.
package recon

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinayprograms/agentkit/logging"

	"github.com/vinayprograms/reposcope/internal/config"
	"github.com/vinayprograms/reposcope/internal/refdoc"
	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/resolver"
	"github.com/vinayprograms/reposcope/internal/scope"
	"github.com/vinayprograms/reposcope/internal/session"
	"github.com/vinayprograms/reposcope/internal/supervisor"
)

// SessionBuilder constructs the underlying session for one run, with
// the supervisor's policy gate installed.
type SessionBuilder func(repo *resolver.ResolvedRepo, systemPrompt string, gate session.ToolGate) session.Session

// Output is the structured result of a run. On failure it still holds
// whatever was resolved and observed before the failure.
type Output struct {
	RunID     string
	FinalText string
	Repo      *resolver.ResolvedRepo
	Details   supervisor.Details
}

// Runner wires the resolver and supervisor together.
type Runner struct {
	resolver   *resolver.Resolver
	newSession SessionBuilder
	cfg        *config.Config
	onStatus   func(supervisor.Details)
	logger     *logging.Logger
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Resolver   *resolver.Resolver
	NewSession SessionBuilder
	Config     *config.Config
	OnStatus   func(supervisor.Details) // optional
}

// NewRunner creates a Runner.
func NewRunner(rc RunnerConfig) *Runner {
	cfg := rc.Config
	if cfg == nil {
		cfg = config.New()
	}
	return &Runner{
		resolver:   rc.Resolver,
		newSession: rc.NewSession,
		cfg:        cfg,
		onStatus:   rc.OnStatus,
		logger:     logging.New().WithComponent("recon"),
	}
}

// Run executes one reconnaissance request end to end.
func (r *Runner) Run(ctx context.Context, in Input) (Output, error) {
	out := Output{RunID: uuid.NewString()}

	if err := in.Validate(); err != nil {
		return out, err
	}

	cwd := in.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return out, rerrors.Wrap(rerrors.EInternal, "cannot determine working directory", err)
		}
		cwd = wd
	}

	r.logger.Info("starting reconnaissance", map[string]interface{}{
		"run_id": out.RunID,
		"repo":   in.Repo,
	})

	resolved, err := r.resolver.Resolve(ctx, in.Task, in.Repo)
	if err != nil {
		return out, err
	}
	out.Repo = resolved

	roots := []string{resolved.ClonePath}
	var files []string
	if resolved.ReferencePath != "" {
		files = append(files, resolved.ReferencePath)
	}
	sc, err := scope.Resolve(resolved.ClonePath, roots, files)
	if err != nil {
		// Clone paths from the map should be absolute; anchor at cwd if not.
		sc, err = scope.Resolve(cwd, roots, files)
		if err != nil {
			return out, rerrors.Wrap(rerrors.EInternal, "cannot resolve sandbox scope", err)
		}
	}

	sup := supervisor.New(supervisor.Config{
		NewSession: func(gate session.ToolGate) session.Session {
			return r.newSession(resolved, r.systemPrompt(resolved), gate)
		},
		Scope:             sc,
		MaxTurns:          r.cfg.Recon.MaxTurns,
		MaxToolCalls:      r.cfg.Recon.MaxToolCalls,
		EventBuffer:       r.cfg.Recon.EventBuffer,
		MaxOutputLines:    r.cfg.Recon.MaxOutputLines,
		MaxOutputBytes:    r.cfg.Recon.MaxOutputBytes,
		HeartbeatInterval: r.heartbeatInterval(),
		OnStatus:          r.onStatus,
	})

	result, runErr := sup.Run(ctx, r.taskPrompt(in.Task, resolved))
	out.FinalText = result.FinalText
	out.Details = result.Details
	if runErr != nil {
		return out, runErr
	}

	r.logger.Info("reconnaissance complete", map[string]interface{}{
		"run_id":     out.RunID,
		"repo":       resolved.Repo,
		"turns":      out.Details.Turns,
		"tool_calls": out.Details.ToolCalls,
	})
	return out, nil
}

func (r *Runner) heartbeatInterval() time.Duration {
	d, err := time.ParseDuration(r.cfg.Recon.HeartbeatInterval)
	if err != nil || d <= 0 {
		return supervisor.DefaultHeartbeatInterval
	}
	return d
}

// systemPrompt frames the session: what repository it is in, what it
// may touch, and how tight the budgets are.
func (r *Runner) systemPrompt(repo *resolver.ResolvedRepo) string {
	var sb strings.Builder
	sb.WriteString("You are exploring the repository ")
	sb.WriteString(repo.Repo)
	sb.WriteString(" at ")
	sb.WriteString(repo.ClonePath)
	sb.WriteString(".\n")
	sb.WriteString("Only read files inside that repository")
	if repo.ReferencePath != "" {
		sb.WriteString(" and its reference document at ")
		sb.WriteString(repo.ReferencePath)
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "You have at most %d turns and %d tool calls; be economical and answer as soon as you know enough.\n",
		r.cfg.Recon.MaxTurns, r.cfg.Recon.MaxToolCalls)

	if repo.ReferencePath != "" {
		if doc, err := refdoc.Load(repo.ReferencePath); err == nil && doc.Meta.Summary != "" {
			sb.WriteString("Repository summary: ")
			sb.WriteString(doc.Meta.Summary)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (r *Runner) taskPrompt(task string, repo *resolver.ResolvedRepo) string {
	return fmt.Sprintf("Task: %s\n\nRepository: %s (%s)", task, repo.Repo, repo.ClonePath)
}
