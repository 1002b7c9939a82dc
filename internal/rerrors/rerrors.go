// Package rerrors defines the stable error code system for reposcope.
package rerrors

import (
	"errors"
	"fmt"
)

// Code is a stable error code string.
type Code string

// Error codes. Stable public contract.
const (
	EUsage Code = "E_USAGE"

	// Repository resolution
	EToolUnavailable Code = "E_TOOL_UNAVAILABLE" // mapping tool missing or not runnable
	ERepoUnresolved  Code = "E_REPO_UNRESOLVED"  // no search match / identifier not found
	ERepoAmbiguous   Code = "E_REPO_AMBIGUOUS"   // multiple candidates, no safe default
	EMissingAssets   Code = "E_MISSING_ASSETS"   // clone unusable after fetch attempt
	EPullRejected    Code = "E_PULL_REJECTED"    // user declined the on-demand fetch
	EPullFailed      Code = "E_PULL_FAILED"      // fetch command failed
	EInvalidMap      Code = "E_INVALID_MAP"      // malformed JSON from the mapping tool

	// Supervised execution
	EPolicyViolation  Code = "E_POLICY_VIOLATION"  // scope breach, unsafe pattern, early budget exhaustion
	EBudgetExhausted  Code = "E_BUDGET_EXHAUSTED"  // final-turn soft block with no usable answer
	EUpstreamError    Code = "E_UPSTREAM_ERROR"    // underlying session reported an error stop
	EAborted          Code = "E_ABORTED"           // cancellation signal or aborted stop reason
	EUnsupportedTool  Code = "E_UNSUPPORTED_TOOL"  // tool name outside the fixed whitelist
	EInternal         Code = "E_INTERNAL"
)

// ReconError is the standard error type for reposcope failures.
type ReconError struct {
	Code        Code
	Msg         string
	Remediation string // actionable follow-up, e.g. the exact manual pull command
	Cause       error
}

// Error returns the stable error format: "CODE: message".
func (e *ReconError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// New creates a new ReconError with the given code and message.
func New(code Code, msg string) error {
	return &ReconError{Code: code, Msg: msg}
}

// Newf creates a new ReconError with a formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return &ReconError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WithRemediation creates a ReconError carrying remediation text.
func WithRemediation(code Code, msg, remediation string) error {
	return &ReconError{Code: code, Msg: msg, Remediation: remediation}
}

// Wrap creates a new ReconError wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &ReconError{Code: code, Msg: msg, Cause: err}
}

// GetCode extracts the error code from an error, or empty string if not a ReconError.
func GetCode(err error) Code {
	var re *ReconError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetRemediation extracts remediation text, or empty string.
func GetRemediation(err error) string {
	var re *ReconError
	if errors.As(err, &re) {
		return re.Remediation
	}
	return ""
}

// AsReconError returns (*ReconError, true) if err is or wraps a ReconError.
func AsReconError(err error) (*ReconError, bool) {
	var re *ReconError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ExitCode returns the process exit code for an error: 0 for nil,
// 2 for usage errors, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if GetCode(err) == EUsage {
		return 2
	}
	return 1
}
