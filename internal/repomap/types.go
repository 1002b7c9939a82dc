package repomap

// MapEntry is the record returned by the mapping tool's "show" lookup.
type MapEntry struct {
	Found         bool   `json:"found"`
	FullName      string `json:"full_name"`      // canonical owner/repo slug
	QualifiedName string `json:"qualified_name"` // e.g. "github:owner/repo"
	Scope         string `json:"scope"`          // trust scope tag, e.g. "external"
	ClonePath     string `json:"clone_path"`
	ReferencePath string `json:"reference_path"`
}

// Candidate is one ranked repository match from a search query.
// Score is an opaque relevance value used only for ranking and display,
// never for correctness decisions.
type Candidate struct {
	FullName      string   `json:"full_name"`
	LocalPath     string   `json:"local_path"`
	ReferencePath string   `json:"reference_path"`
	Keywords      []string `json:"keywords"`
	Score         float64  `json:"score"`
}
