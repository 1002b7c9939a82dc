package scope

import "testing"

func TestResolve_AnchorsRelativePaths(t *testing.T) {
	s, err := Resolve("/work/repo", []string{"src", "/opt/ref"}, []string{"README.md"})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if s.AllowedRoots[0] != "/work/repo/src" {
		t.Errorf("expected anchored root, got %s", s.AllowedRoots[0])
	}
	if s.AllowedRoots[1] != "/opt/ref" {
		t.Errorf("absolute root should pass through, got %s", s.AllowedRoots[1])
	}
	if s.AllowedFiles[0] != "/work/repo/README.md" {
		t.Errorf("expected anchored file, got %s", s.AllowedFiles[0])
	}
}

func TestResolve_RejectsRelativeCwd(t *testing.T) {
	if _, err := Resolve("relative/dir", nil, nil); err == nil {
		t.Fatal("expected error for relative cwd")
	}
}

func TestContains_RootItselfCounts(t *testing.T) {
	s, _ := Resolve("/work", []string{"/work/repo"}, nil)
	if !s.Contains("/work/repo") {
		t.Error("a path equal to a root must count as inside it")
	}
	if !s.Contains("/work/repo/pkg/deep/file.go") {
		t.Error("nested path should be contained")
	}
}

func TestContains_NoStringPrefixConfusion(t *testing.T) {
	s, _ := Resolve("/work", []string{"/work/repo"}, nil)
	if s.Contains("/work/repository") {
		t.Error("/work/repository must not be treated as inside /work/repo")
	}
}

func TestContains_AllowedFileExactMatchOnly(t *testing.T) {
	s, _ := Resolve("/work", nil, []string{"/work/NOTES.md"})
	if !s.Contains("/work/NOTES.md") {
		t.Error("exact allowed file should be contained")
	}
	if s.Contains("/work/NOTES.md.bak") {
		t.Error("allowed files must match exactly")
	}
	if s.Contains("/work") {
		t.Error("parent of an allowed file is not in scope")
	}
}

func TestContains_OpenScopeAllowsEverything(t *testing.T) {
	s, _ := Resolve("/work", nil, nil)
	if !s.Open() {
		t.Fatal("scope with no roots/files should be open")
	}
	if !s.Contains("/anywhere/at/all") {
		t.Error("open scope must contain every path")
	}
}

func TestContains_RelativePathAnchoredAtCwd(t *testing.T) {
	s, _ := Resolve("/work/repo", []string{"/work/repo"}, nil)
	if !s.Contains("internal/app.go") {
		t.Error("relative path should resolve against cwd before the check")
	}
	if !s.Contains(".") {
		t.Error("current directory should resolve to cwd")
	}
}
