package depgraph

import (
	"io/fs"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
)

// CompileGlobs compiles every pattern in patterns, grounded on the
// teacher's cmd/circular/app.go ScanDirectories call site — invalid
// patterns are a config-time error, not a silent skip. Used for matching
// plain names (the exclude-fields list) with no path awareness.
func CompileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// ExcludePattern pairs a compiled glob with whether its source pattern
// names a path (contains a separator) rather than a bare name. A bare
// pattern like `vendor` or `*_test.lua` matches the base name at any
// depth; a path-shaped pattern like `vendor/generated` only matches that
// exact root-relative path.
type ExcludePattern struct {
	glob   glob.Glob
	byPath bool
}

// CompileExcludePatterns compiles the Environment's `exclude` list
// (spec §6) for use with DiscoverFiles.
func CompileExcludePatterns(patterns []string) ([]ExcludePattern, error) {
	out := make([]ExcludePattern, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ExcludePattern{glob: g, byPath: util.ContainsPathSeparator(p)})
	}
	return out, nil
}

// DiscoverFiles walks root collecting every source file, skipping any that
// matches one of the compiled exclude patterns (spec §6's `exclude`
// toggle). Grounded on the teacher's cmd/circular/app.go ScanDirectories,
// reshaped from a multi-extension source walk into a single-extension one
// matching this pipeline's Lua-only input.
func DiscoverFiles(root string, exclude []ExcludePattern, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		base := filepath.Base(path)

		if d.IsDir() {
			if matchesAny(exclude, base, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}
		if matchesAny(exclude, base, rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func matchesAny(patterns []ExcludePattern, base, rel string) bool {
	for _, p := range patterns {
		if p.byPath {
			if p.glob.Match(rel) {
				return true
			}
			continue
		}
		if p.glob.Match(base) {
			return true
		}
	}
	return false
}
