package depgraph

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDiscoverFiles_SkipsExcludedNames(t *testing.T) {
	dir := t.TempDir()
	must(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(""), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, "a_test.lua"), []byte(""), 0o644))
	must(t, os.Mkdir(filepath.Join(dir, "vendor"), 0o755))
	must(t, os.WriteFile(filepath.Join(dir, "vendor", "b.lua"), []byte(""), 0o644))

	excl, err := CompileExcludePatterns([]string{"*_test.lua", "vendor"})
	if err != nil {
		t.Fatalf("CompileExcludePatterns failed: %v", err)
	}

	got, err := DiscoverFiles(dir, excl, ".lua")
	if err != nil {
		t.Fatalf("DiscoverFiles failed: %v", err)
	}
	sort.Strings(got)

	if len(got) != 1 || filepath.Base(got[0]) != "a.lua" {
		t.Errorf("expected only a.lua to survive exclusion, got %v", got)
	}
}

func must(t *testing.T, err error) {
	if err != nil {
		t.Fatal(err)
	}
}
