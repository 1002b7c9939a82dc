package resolver

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/reposcope/internal/repomap"
	"github.com/vinayprograms/reposcope/internal/rerrors"
)

// maxCandidates caps how many search results are offered for
// disambiguation.
const maxCandidates = 6

// candidateLabel renders the option shown for one candidate.
func candidateLabel(c repomap.Candidate) string {
	return fmt.Sprintf("%s (%.2f)", c.FullName, c.Score)
}

// disambiguate picks exactly one candidate. A single candidate
// short-circuits. With a UI, the user picks from labeled options; the
// answer is matched against the exact label first, then against the
// label with its score suffix stripped. Without a UI, multiple
// candidates are always ambiguous: the highest score is never a safe
// default.
func disambiguate(candidates []repomap.Candidate, ui UI) (repomap.Candidate, error) {
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if ui == nil {
		return repomap.Candidate{}, rerrors.WithRemediation(rerrors.ERepoAmbiguous,
			fmt.Sprintf("%d repositories match", len(candidates)),
			"re-run with an explicit owner/repo hint: "+summarize(candidates))
	}

	options := make([]string, len(candidates))
	for i, c := range candidates {
		options[i] = candidateLabel(c)
	}

	answer, err := ui.PickOne("Multiple repositories match. Which one?", options)
	if err != nil {
		return repomap.Candidate{}, rerrors.Wrap(rerrors.ERepoAmbiguous, "selection failed", err)
	}

	for i, c := range candidates {
		if answer == options[i] {
			return c, nil
		}
	}
	// Best-effort fallback: accept the label with the score stripped.
	stripped := answer
	if idx := strings.LastIndex(stripped, " ("); idx > 0 {
		stripped = stripped[:idx]
	}
	for _, c := range candidates {
		if stripped == c.FullName {
			return c, nil
		}
	}

	return repomap.Candidate{}, rerrors.New(rerrors.ERepoAmbiguous,
		fmt.Sprintf("selection %q matches no candidate", answer))
}

func summarize(candidates []repomap.Candidate) string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.FullName
	}
	return strings.Join(names, ", ")
}
