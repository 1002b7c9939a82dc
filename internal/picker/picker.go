// Package picker provides the interactive terminal prompts used during
// repository resolution: picking one candidate from a list and yes/no
// confirmation.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/reposcope/internal/rerrors"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// TerminalUI implements the resolver's UI capability on a terminal.
type TerminalUI struct{}

// New creates a terminal UI.
func New() *TerminalUI { return &TerminalUI{} }

// PickOne presents the options and returns the chosen label, or the
// text the user typed in manual-entry mode.
func (u *TerminalUI) PickOne(prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", rerrors.New(rerrors.EInternal, "no options to pick from")
	}

	m := newPickModel(prompt, options)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}

	picked := final.(pickModel)
	if picked.quit {
		return "", rerrors.New(rerrors.EAborted, "selection cancelled")
	}
	if picked.typed != "" {
		return picked.typed, nil
	}
	return picked.options[picked.cursor], nil
}

// Confirm asks a yes/no question. Enter accepts, y/n answer directly.
func (u *TerminalUI) Confirm(prompt string) (bool, error) {
	m := confirmModel{prompt: prompt, yes: true}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}

	answered := final.(confirmModel)
	if answered.quit {
		return false, nil
	}
	return answered.yes, nil
}

// pickModel is the single-choice list with a manual-entry fallback.
type pickModel struct {
	prompt    string
	options   []string
	cursor    int
	typing    bool
	typed     string
	textInput textinput.Model
	done      bool
	quit      bool
}

func newPickModel(prompt string, options []string) pickModel {
	ti := textinput.New()
	ti.Placeholder = "owner/repo"
	ti.CharLimit = 256
	ti.Width = 50
	return pickModel{prompt: prompt, options: options, textInput: ti}
}

func (m pickModel) Init() tea.Cmd { return textinput.Blink }

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.typing {
		switch key.String() {
		case "enter":
			if v := strings.TrimSpace(m.textInput.Value()); v != "" {
				m.typed = v
				m.done = true
				return m, tea.Quit
			}
			return m, nil
		case "esc":
			m.typing = false
			m.textInput.Blur()
			return m, nil
		case "ctrl+c":
			m.quit = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "/", "t":
		m.typing = true
		m.textInput.Focus()
	case "enter":
		m.done = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickModel) View() string {
	if m.done || m.quit {
		return ""
	}
	var s strings.Builder
	s.WriteString(titleStyle.Render(m.prompt) + "\n")

	if m.typing {
		s.WriteString(m.textInput.View() + "\n\n")
		s.WriteString(dimStyle.Render("Enter to submit, Esc to go back to the list"))
		return s.String()
	}

	for i, opt := range m.options {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		s.WriteString(cursor + style.Render(opt) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("↑/↓ to move, Enter to select, / to type a name, q to cancel"))
	return s.String()
}

// confirmModel is the yes/no prompt.
type confirmModel struct {
	prompt string
	yes    bool
	done   bool
	quit   bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.yes = true
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.yes = false
			m.done = true
			return m, tea.Quit
		case "left", "right", "tab", "h", "l":
			m.yes = !m.yes
		case "enter":
			m.done = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done || m.quit {
		return ""
	}
	yes, no := normalStyle.Render("yes"), selectedStyle.Render("no")
	if m.yes {
		yes, no = selectedStyle.Render("yes"), normalStyle.Render("no")
	}
	return titleStyle.Render(m.prompt) + "\n" +
		"  " + yes + "  " + no + "\n\n" +
		dimStyle.Render("y/n to answer, Enter to accept, q to cancel")
}
