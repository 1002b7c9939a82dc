package recon

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/resolver"
)

// Limits on the tool surface's inputs.
const (
	maxTaskLen = 4000
	maxRepoLen = 200
	maxCwdLen  = 1000
)

// Input is one reconnaissance request.
type Input struct {
	Task string // what to find out, free text
	Repo string // optional hint: owner/repo, GitHub URL, or owner/repo.git
	Cwd  string // optional working directory override
}

// Validate checks lengths and character constraints, normalizing the
// repo hint to an owner/repo slug.
func (in *Input) Validate() error {
	if in.Task == "" {
		return rerrors.New(rerrors.EUsage, "task must not be empty")
	}
	if len(in.Task) > maxTaskLen {
		return rerrors.New(rerrors.EUsage,
			fmt.Sprintf("task exceeds %d characters", maxTaskLen))
	}
	if ch, ok := firstControlChar(in.Task); ok {
		return rerrors.New(rerrors.EUsage,
			fmt.Sprintf("task contains control character %q", ch))
	}

	if in.Repo != "" {
		if len(in.Repo) > maxRepoLen {
			return rerrors.New(rerrors.EUsage,
				fmt.Sprintf("repo exceeds %d characters", maxRepoLen))
		}
		in.Repo = resolver.NormalizeRepoArg(in.Repo)
		if in.Repo == "" || !strings.Contains(in.Repo, "/") {
			return rerrors.New(rerrors.EUsage,
				"repo must look like owner/repo or a GitHub URL")
		}
	}

	if in.Cwd != "" && len(in.Cwd) > maxCwdLen {
		return rerrors.New(rerrors.EUsage,
			fmt.Sprintf("cwd exceeds %d characters", maxCwdLen))
	}
	return nil
}

// firstControlChar reports the first disallowed control character.
// Newlines and tabs are legitimate in task text.
func firstControlChar(s string) (rune, bool) {
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return r, true
		}
	}
	return 0, false
}
