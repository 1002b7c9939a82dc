package sandbox

// State is the mutable policy bookkeeping for one supervised run.
// It has a single owner: the supervisor's event callback. Violation and
// TurnBudgetBlocked are write-once; the first violation wins and later
// ones only bump the counter.
type State struct {
	TurnIndex         int
	ToolCalls         int
	Violation         *Violation
	ViolationCount    int
	TurnBudgetBlocked bool
}

// RecordViolation records v and reports whether it was the first.
func (s *State) RecordViolation(v *Violation) bool {
	s.ViolationCount++
	if s.Violation != nil {
		return false
	}
	s.Violation = v
	return true
}

// RecordTurnBudgetBlock marks the final-turn soft block. Idempotent.
func (s *State) RecordTurnBudgetBlock() {
	s.TurnBudgetBlocked = true
}
