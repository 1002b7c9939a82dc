package resolver

// UI is the interactive capability the resolver may use for candidate
// disambiguation and pull confirmation. A nil UI means non-interactive
// mode: ambiguity becomes an error and pulls proceed unprompted.
type UI interface {
	// PickOne presents labeled options and returns the chosen label.
	PickOne(prompt string, options []string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(prompt string) (bool, error)
}
