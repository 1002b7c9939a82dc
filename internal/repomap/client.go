// Package repomap is the boundary to the external repository-mapping
// tool. The tool is a black box with exactly four operations: version
// check, show, search, and pull. Any other command shape is rejected
// before execution.
package repomap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/reposcope/internal/rerrors"
)

// DefaultBinary is the mapping tool's executable name.
const DefaultBinary = "repomap"

// DefaultTimeout bounds every single mapping-tool invocation. A pull of
// a large repository can legitimately run this long.
const DefaultTimeout = 10 * time.Minute

// maxStderrLen caps stderr included in error messages.
const maxStderrLen = 4096

// Client is the mapping-tool capability consumed by the resolver.
type Client interface {
	Version(ctx context.Context) (string, error)
	Show(ctx context.Context, id string) (MapEntry, error)
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	Pull(ctx context.Context, id string) error
}

// CommandRunner abstracts process execution for tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr string, exitCode int, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return out.String(), errBuf.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return "", "", -1, err
	}
	return out.String(), errBuf.String(), 0, nil
}

// ExecClient shells out to the mapping tool binary.
type ExecClient struct {
	binary  string
	timeout time.Duration
	runner  CommandRunner
	logger  *logging.Logger
}

// Option configures an ExecClient.
type Option func(*ExecClient)

// WithBinary overrides the mapping tool executable name.
func WithBinary(bin string) Option {
	return func(c *ExecClient) { c.binary = bin }
}

// WithTimeout overrides the per-invocation timeout ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecClient) { c.timeout = d }
}

// WithRunner substitutes the process runner (tests).
func WithRunner(r CommandRunner) Option {
	return func(c *ExecClient) { c.runner = r }
}

// NewExecClient creates an exec-backed mapping client.
func NewExecClient(opts ...Option) *ExecClient {
	c := &ExecClient{
		binary:  DefaultBinary,
		timeout: DefaultTimeout,
		runner:  execRunner{},
		logger:  logging.New().WithComponent("repomap"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the configured executable name, for remediation text.
func (c *ExecClient) Binary() string { return c.binary }

// allowlisted verifies args match one of the four permitted command
// shapes. Everything else is refused before exec as a defensive measure
// against argument injection.
func allowlisted(args []string) error {
	bad := func() error {
		return fmt.Errorf("command shape not allowlisted: %s", strings.Join(args, " "))
	}
	if len(args) == 0 {
		return bad()
	}
	// Positional operands must never look like flags.
	operandOK := func(s string) bool { return s != "" && !strings.HasPrefix(s, "-") }

	switch args[0] {
	case "version":
		if len(args) != 1 {
			return bad()
		}
	case "show":
		if len(args) != 3 || !operandOK(args[1]) || args[2] != "--json" {
			return bad()
		}
	case "search":
		if len(args) != 5 || !operandOK(args[1]) || args[2] != "--json" || args[3] != "--limit" {
			return bad()
		}
		if _, err := strconv.Atoi(args[4]); err != nil {
			return bad()
		}
	case "pull":
		if len(args) != 3 || !operandOK(args[1]) || args[2] != "--clone-only" {
			return bad()
		}
	default:
		return bad()
	}
	return nil
}

// run executes one allowlisted invocation under the timeout ceiling.
func (c *ExecClient) run(ctx context.Context, args []string) (string, error) {
	if err := allowlisted(args); err != nil {
		return "", rerrors.Wrap(rerrors.EInternal, "refusing mapping tool invocation", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := c.runner.Run(ctx, c.binary, args)
	c.logger.Debug("mapping tool invoked", map[string]interface{}{
		"args":        strings.Join(args, " "),
		"exit":        exitCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		return "", rerrors.Wrap(rerrors.EToolUnavailable,
			fmt.Sprintf("mapping tool %q could not be run", c.binary), err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%s %s failed (exit=%d): %s", c.binary, args[0], exitCode, capStderr(stderr))
	}
	return stdout, nil
}

// Version checks that the mapping tool is reachable.
func (c *ExecClient) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, []string{"version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Show looks up a repository identifier in the map.
func (c *ExecClient) Show(ctx context.Context, id string) (MapEntry, error) {
	out, err := c.run(ctx, []string{"show", id, "--json"})
	if err != nil {
		return MapEntry{}, err
	}

	var entry MapEntry
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		return MapEntry{}, rerrors.Wrap(rerrors.EInvalidMap,
			fmt.Sprintf("mapping tool returned malformed JSON for %q", id), err)
	}
	return entry, nil
}

// Search runs a free-text query and returns candidates ordered by
// descending score.
func (c *ExecClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	out, err := c.run(ctx, []string{"search", query, "--json", "--limit", strconv.Itoa(limit)})
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	if err := json.Unmarshal([]byte(out), &candidates); err != nil {
		return nil, rerrors.Wrap(rerrors.EInvalidMap, "mapping tool returned malformed search JSON", err)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// Pull fetches the clone for an identifier. No output contract beyond
// success or failure.
func (c *ExecClient) Pull(ctx context.Context, id string) error {
	if _, err := c.run(ctx, []string{"pull", id, "--clone-only"}); err != nil {
		return rerrors.Wrap(rerrors.EPullFailed, fmt.Sprintf("pull of %q failed", id), err)
	}
	return nil
}

func capStderr(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if len(trimmed) > maxStderrLen {
		trimmed = trimmed[:maxStderrLen] + "..."
	}
	if trimmed == "" {
		return "no stderr"
	}
	return trimmed
}
