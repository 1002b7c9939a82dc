// Terminal rendering for run results and status updates.
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/vinayprograms/reposcope/internal/recon"
	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/resolver"
	"github.com/vinayprograms/reposcope/internal/supervisor"
)

const renderWidth = 100

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	remedyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// renderStatus prints one status line per update.
func renderStatus(d supervisor.Details) {
	line := fmt.Sprintf("[%s] turns %d/%d, tools %d/%d",
		d.Phase, d.Turns, d.MaxTurns, d.ToolCalls, d.MaxToolCalls)
	if d.Message != "" {
		line += ": " + d.Message
	}
	fmt.Println(statusStyle.Render(line))
}

// renderResult formats the final outcome for the terminal.
func renderResult(out recon.Output, runErr error) string {
	var sb strings.Builder

	if out.Repo != nil {
		sb.WriteString(renderResolved(out.Repo))
	}

	if out.FinalText != "" {
		sb.WriteString(headerStyle.Render("Findings") + "\n")
		sb.WriteString(wordwrap.String(out.FinalText, renderWidth))
		sb.WriteString("\n\n")
	}

	d := out.Details
	sb.WriteString(labelStyle.Render(fmt.Sprintf(
		"phase=%s turns=%d/%d tool_calls=%d/%d tool_errors=%d",
		d.Phase, d.Turns, d.MaxTurns, d.ToolCalls, d.MaxToolCalls, d.ToolErrors)))
	if d.Truncation.Truncated {
		sb.WriteString(labelStyle.Render(fmt.Sprintf(
			" (output truncated from %d lines)", d.Truncation.OriginalLines)))
	}
	sb.WriteString("\n")

	if runErr != nil {
		sb.WriteString(renderError(runErr))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderResolved formats a resolution summary.
func renderResolved(repo *resolver.ResolvedRepo) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Repository") + " " + repo.Repo)
	sb.WriteString(labelStyle.Render(fmt.Sprintf(" (%s, %s)\n", repo.Scope, repo.ResolvedFrom)))
	sb.WriteString(labelStyle.Render("clone: ") + repo.ClonePath + "\n")
	if repo.ReferencePath != "" {
		sb.WriteString(labelStyle.Render("reference: ") + repo.ReferencePath + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// renderError formats an error with its remediation, when present.
func renderError(err error) string {
	msg := errorStyle.Render("error: " + err.Error())
	if remedy := rerrors.GetRemediation(err); remedy != "" {
		msg += "\n" + remedyStyle.Render("remediation: "+remedy)
	}
	return msg
}
