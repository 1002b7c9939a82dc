package resolver

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// githubURLPattern matches github.com URLs and SSH-style remotes and
// captures the owner/repo pair.
var githubURLPattern = regexp.MustCompile(`github\.com[:/]([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)

// bareSlugPattern matches a standalone owner/repo token.
var bareSlugPattern = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)

// ownerDenylist holds common path segments that produce false-positive
// owner/repo tokens when file paths appear in task text.
var ownerDenylist = map[string]bool{
	"src":          true,
	"docs":         true,
	"doc":          true,
	"test":         true,
	"tests":        true,
	"lib":          true,
	"pkg":          true,
	"internal":     true,
	"vendor":       true,
	"node_modules": true,
	"examples":     true,
	"example":      true,
}

// sourceFileExtensions marks repo-part suffixes that indicate a file
// path rather than a repository name.
var sourceFileExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true,
	".tsx": true, ".rs": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".cc": true, ".hpp": true, ".rb": true, ".php": true,
	".cs": true, ".swift": true, ".kt": true, ".scala": true, ".sh": true,
	".md": true, ".txt": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".xml": true, ".html": true, ".css": true,
}

// ExtractHint pulls an owner/repo identifier out of free task text.
// GitHub URL forms are tried first, then bare owner/repo tokens.
// Returns "" when nothing plausible is found.
func ExtractHint(task string) string {
	if m := githubURLPattern.FindStringSubmatch(task); m != nil {
		owner, repo := m[1], strings.TrimSuffix(m[2], ".git")
		if owner != "" && repo != "" {
			return owner + "/" + repo
		}
	}

	for _, token := range strings.Fields(task) {
		token = strings.Trim(token, `"'()[]{}<>,.;:!?`)
		m := bareSlugPattern.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		owner, repo := m[1], m[2]
		if ownerDenylist[strings.ToLower(owner)] {
			continue
		}
		if hasSourceExtension(repo) {
			continue
		}
		return owner + "/" + strings.TrimSuffix(repo, ".git")
	}
	return ""
}

func hasSourceExtension(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return sourceFileExtensions[strings.ToLower(name[idx:])]
}

// NormalizeRepoArg reduces an explicit repo argument to an owner/repo
// slug: strips scheme, host, trailing .git, and surrounding slashes.
func NormalizeRepoArg(repo string) string {
	s := strings.TrimSpace(repo)
	if m := githubURLPattern.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + strings.TrimSuffix(m[2], ".git")
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.Trim(s, "/")
	return strings.TrimSuffix(s, ".git")
}

// maxQueryLen bounds the search query sent to the mapping tool.
const maxQueryLen = 120

// searchQuery normalizes task text into a bounded search query. The
// cut never splits a multi-byte rune.
func searchQuery(task string) string {
	q := strings.Join(strings.Fields(task), " ")
	if len(q) > maxQueryLen {
		cut := maxQueryLen
		for cut > 0 && !utf8.RuneStart(q[cut]) {
			cut--
		}
		q = q[:cut]
	}
	return strings.TrimSpace(q)
}
