// Package resolver turns a free-text task plus an optional repository
// hint into a verified local repository: a clone path plus an optional
// reference document, fetched on demand when missing.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vinayprograms/reposcope/internal/repomap"
	"github.com/vinayprograms/reposcope/internal/rerrors"
)

// ResolvedFrom tags how the clone came to exist locally.
type ResolvedFrom string

const (
	FromExisting ResolvedFrom = "existing"
	FromPulled   ResolvedFrom = "pulled"
)

// ResolvedRepo is the immutable result of a successful resolution. The
// clone path is verified on disk before this value is returned; the
// reference path, when non-empty, points at an existing regular file.
type ResolvedRepo struct {
	Repo             string
	QualifiedName    string
	Scope            string
	ClonePath        string
	ReferencePath    string
	ResolvedFrom     ResolvedFrom
	SearchCandidates []repomap.Candidate
}

// Resolver orchestrates hint extraction, search, disambiguation,
// existence checks, and on-demand fetch.
type Resolver struct {
	client repomap.Client
	ui     UI // nil in non-interactive mode
	logger *logging.Logger
}

// New creates a resolver. Pass a nil UI for non-interactive mode.
func New(client repomap.Client, ui UI) *Resolver {
	return &Resolver{
		client: client,
		ui:     ui,
		logger: logging.New().WithComponent("resolver"),
	}
}

// Resolve produces a verified ResolvedRepo for the task, or a typed
// error. The hint, when non-empty, takes precedence over anything
// extracted from the task text.
func (r *Resolver) Resolve(ctx context.Context, task, hint string) (*ResolvedRepo, error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "resolver.resolve")
	defer span.End()

	if _, err := r.client.Version(ctx); err != nil {
		span.RecordError(err)
		return nil, rerrors.WithRemediation(rerrors.EToolUnavailable,
			"repository mapping tool is not reachable",
			"install the mapping tool and make sure it is on PATH")
	}

	id := hint
	if id == "" {
		id = ExtractHint(task)
	}

	var candidates []repomap.Candidate
	if id == "" {
		var err error
		candidates, err = r.search(ctx, task)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		picked, err := disambiguate(candidates, r.ui)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		id = picked.FullName
	}
	span.SetAttributes(attribute.String("resolver.repo", id))

	entry, err := r.client.Show(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !entry.Found {
		return nil, rerrors.WithRemediation(rerrors.ERepoUnresolved,
			fmt.Sprintf("repository %q is not in the map", id),
			"check the spelling or add the repository to the map first")
	}

	slug := canonicalSlug(entry)
	resolvedFrom := FromExisting

	if !cloneExists(entry.ClonePath) {
		if r.ui != nil {
			ok, err := r.ui.Confirm(fmt.Sprintf("Repository %s has no local clone. Pull it now?", slug))
			if err != nil || !ok {
				return nil, rerrors.WithRemediation(rerrors.EPullRejected,
					fmt.Sprintf("pull of %q declined", slug),
					fmt.Sprintf("run manually: %s pull %s --clone-only", repomap.DefaultBinary, slug))
			}
		}
		r.logger.Info("pulling repository", map[string]interface{}{"repo": slug})
		if err := r.client.Pull(ctx, slug); err != nil {
			span.RecordError(err)
			return nil, err
		}
		resolvedFrom = FromPulled

		entry, err = r.client.Show(ctx, slug)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if !cloneExists(entry.ClonePath) {
		return nil, rerrors.WithRemediation(rerrors.EMissingAssets,
			fmt.Sprintf("clone of %q is unusable at %q", slug, entry.ClonePath),
			fmt.Sprintf("run manually: %s pull %s --clone-only", repomap.DefaultBinary, slug))
	}

	resolved := &ResolvedRepo{
		Repo:             slug,
		QualifiedName:    entry.QualifiedName,
		Scope:            entry.Scope,
		ClonePath:        entry.ClonePath,
		ReferencePath:    usableReferencePath(entry.ReferencePath),
		ResolvedFrom:     resolvedFrom,
		SearchCandidates: candidates,
	}
	span.SetAttributes(attribute.String("resolver.from", string(resolvedFrom)))
	r.logger.Info("repository resolved", map[string]interface{}{
		"repo": slug,
		"from": string(resolvedFrom),
	})
	return resolved, nil
}

// search runs a bounded free-text query. Zero matches is terminal.
func (r *Resolver) search(ctx context.Context, task string) ([]repomap.Candidate, error) {
	query := searchQuery(task)
	candidates, err := r.client.Search(ctx, query, maxCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, rerrors.WithRemediation(rerrors.ERepoUnresolved,
			fmt.Sprintf("no repository matches %q", query),
			"re-run with an explicit owner/repo hint")
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

// canonicalSlug prefers the explicit full name; otherwise it derives
// the slug from the qualified name's segment after the last colon.
func canonicalSlug(entry repomap.MapEntry) string {
	if entry.FullName != "" {
		return entry.FullName
	}
	qn := entry.QualifiedName
	if idx := strings.LastIndex(qn, ":"); idx >= 0 {
		return qn[idx+1:]
	}
	return qn
}

// cloneExists reports whether path holds a usable clone, marked by git
// metadata present as either a file or a directory.
func cloneExists(path string) bool {
	if path == "" {
		return false
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// usableReferencePath drops reference paths that cannot be a document:
// trailing separators, directories, or missing files. Dropping is
// silent, never fatal.
func usableReferencePath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
