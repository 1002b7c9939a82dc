// Package sandbox enforces the tool-call policy for a supervised
// reconnaissance session: turn/tool-call budgets and path scope.
package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vinayprograms/reposcope/internal/scope"
)

// ViolationKind classifies a policy violation.
type ViolationKind string

const (
	ViolationTurnBudget    ViolationKind = "turn_budget"
	ViolationToolBudget    ViolationKind = "tool_budget"
	ViolationUnsafePattern ViolationKind = "unsafe_pattern"
	ViolationOutOfScope    ViolationKind = "out_of_scope"
)

// Violation describes why a proposed tool call is not allowed.
type Violation struct {
	Kind    ViolationKind
	Message string
}

func (v *Violation) Error() string { return v.Message }

// pathTools are the tools whose arguments name filesystem locations and
// therefore must be validated against the scope.
var pathTools = map[string]bool{
	"read": true, // file read
	"grep": true, // pattern search
	"ls":   true, // directory listing
	"glob": true, // recursive search
}

// globArgs maps path-sensitive tools to the argument keys that carry
// glob patterns rather than plain paths.
var globArgs = map[string][]string{
	"glob": {"pattern"},
	"grep": {"glob"},
}

// PathSensitive reports whether a tool's arguments are scope-checked.
func PathSensitive(toolName string) bool { return pathTools[toolName] }

// CheckToolCall maps a proposed tool call plus the current budget/scope
// state to a violation, or nil when the call is allowed. It is a pure
// function: no side effects, identical inputs give identical output.
//
// Rule order: turn budget, then tool-call budget, then path scope.
func CheckToolCall(toolName string, input map[string]interface{}, turnIndex, toolCalls, maxTurns, maxToolCalls int, sc scope.ResolvedScope) *Violation {
	if turnIndex >= maxTurns-1 {
		return &Violation{
			Kind:    ViolationTurnBudget,
			Message: fmt.Sprintf("turn budget exhausted: turn %d of max %d", turnIndex+1, maxTurns),
		}
	}
	if toolCalls >= maxToolCalls {
		return &Violation{
			Kind:    ViolationToolBudget,
			Message: fmt.Sprintf("tool call budget exhausted: %d of max %d", toolCalls, maxToolCalls),
		}
	}

	if !pathTools[toolName] {
		return nil // non-path tools only face the budget checks
	}
	if sc.Open() {
		return nil
	}

	for _, key := range globArgs[toolName] {
		pattern, ok := stringArg(input, key)
		if !ok || pattern == "" {
			continue
		}
		if v := checkPattern(toolName, pattern); v != nil {
			return v
		}
	}

	path, ok := stringArg(input, "path")
	if !ok || path == "" {
		path = "." // tools default to the working directory
	}
	if !sc.Contains(path) {
		return &Violation{
			Kind: ViolationOutOfScope,
			Message: fmt.Sprintf("tool %q path %q is outside the allowed scope (roots: %s; files: %s)",
				toolName, path, formatList(sc.AllowedRoots), formatList(sc.AllowedFiles)),
		}
	}
	return nil
}

// checkPattern rejects absolute and parent-escaping glob patterns. These
// are refused outright, even when the literal target would land inside
// an allowed root: patterns are expanded by the tool, not by us.
func checkPattern(toolName, pattern string) *Violation {
	if filepath.IsAbs(pattern) {
		return &Violation{
			Kind:    ViolationUnsafePattern,
			Message: fmt.Sprintf("tool %q pattern %q must not be absolute", toolName, pattern),
		}
	}
	for _, seg := range strings.Split(filepath.ToSlash(pattern), "/") {
		if seg == ".." {
			return &Violation{
				Kind:    ViolationUnsafePattern,
				Message: fmt.Sprintf("tool %q pattern %q must not contain a parent-directory segment", toolName, pattern),
			}
		}
	}
	return nil
}

func stringArg(input map[string]interface{}, key string) (string, bool) {
	if input == nil {
		return "", false
	}
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func formatList(paths []string) string {
	if len(paths) == 0 {
		return "none"
	}
	return strings.Join(paths, ", ")
}
