// Package refdoc reads repository reference documents: a markdown file
// per repository, optionally opening with a YAML front-matter block
// carrying keywords, a trust scope tag, and a one-line summary.
package refdoc

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the structured front matter of a reference document.
type Meta struct {
	Keywords []string `yaml:"keywords"`
	Scope    string   `yaml:"scope"`
	Summary  string   `yaml:"summary"`
}

// Doc is a loaded reference document.
type Doc struct {
	Meta Meta
	Body string
}

const delimiter = "---"

// Load reads a reference document from disk. A missing or malformed
// front-matter block is never fatal: the whole file becomes the body
// and Meta stays zero.
func Load(path string) (Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, err
	}
	return Parse(string(data)), nil
}

// Parse splits content into front matter and body.
func Parse(content string) Doc {
	meta, body, ok := splitFrontMatter(content)
	if !ok {
		return Doc{Body: content}
	}

	var m Meta
	if err := yaml.Unmarshal([]byte(meta), &m); err != nil {
		return Doc{Body: content}
	}
	return Doc{Meta: m, Body: body}
}

// splitFrontMatter extracts the text between a leading "---" line and
// the next "---" line.
func splitFrontMatter(content string) (meta, body string, ok bool) {
	trimmed := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(trimmed, delimiter+"\n") && trimmed != delimiter {
		return "", "", false
	}

	rest := strings.TrimPrefix(trimmed, delimiter+"\n")
	idx := strings.Index(rest, "\n"+delimiter)
	if idx < 0 {
		return "", "", false
	}

	meta = rest[:idx]
	body = rest[idx+len("\n"+delimiter):]
	body = strings.TrimPrefix(body, "\n")
	return meta, body, true
}
