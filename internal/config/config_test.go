package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pz-lua-stubgen.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DecodesEnvironmentSection(t *testing.T) {
	path := writeConfig(t, `
input = "./src"
schema-dir = "./schema"
output = "./out"
prefixes = ["shared", "client"]
exclude = ["*_test.lua"]
exclude-fields = ["_*"]
helper-pattern = "helper_*"
skip-pattern = "skip_*"
extra-files = ["extra.lua"]
include-kahlua = true
rosetta-only = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "src" {
		t.Errorf("expected normalized input path, got %q", cfg.Input)
	}
	if cfg.SchemaDir != "./schema" || cfg.Output != "./out" {
		t.Errorf("unexpected schema-dir/output: %q %q", cfg.SchemaDir, cfg.Output)
	}
	if len(cfg.Prefixes) != 2 || cfg.Prefixes[0] != "shared" {
		t.Errorf("unexpected prefixes: %v", cfg.Prefixes)
	}
	if !cfg.IncludeKahlua || !cfg.RosettaOnly {
		t.Errorf("expected explicitly-set toggles to decode true")
	}
}

func TestLoad_AppliesStatedDefaults(t *testing.T) {
	path := writeConfig(t, `input = "."`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for name, got := range map[string]bool{
		"heuristics":     cfg.Heuristics,
		"inject":         cfg.Inject,
		"delete-unknown": cfg.DeleteUnknown,
		"strict-fields":  cfg.StrictFields,
		"ambiguity":      cfg.Ambiguity,
		"alphabetize":    cfg.Alphabetize,
	} {
		if !got {
			t.Errorf("expected %s to default true per spec, got false", name)
		}
	}
	if cfg.RosettaOnly {
		t.Errorf("expected rosetta-only to default false (not a stated default)")
	}
	if len(cfg.Prefixes) != 3 || cfg.Prefixes[0] != "shared" || cfg.Prefixes[2] != "server" {
		t.Errorf("expected the default shared/client/server prefix order, got %v", cfg.Prefixes)
	}
}

func TestLoad_RespectsExplicitFalse(t *testing.T) {
	path := writeConfig(t, "heuristics = false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Heuristics {
		t.Errorf("expected an explicit heuristics=false to be respected, not defaulted to true")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("nonexistent.toml"); err == nil {
		t.Error("expected an error for a nonexistent file")
	}

	path := writeConfig(t, "bad = toml = format")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}

func TestAnalyzerOptions_CarriesPrefixesAndHeuristics(t *testing.T) {
	cfg := &Config{Prefixes: []string{"shared"}, Heuristics: true, ExcludeFields: []string{"_*"}}
	opts, err := cfg.AnalyzerOptions()
	if err != nil {
		t.Fatalf("AnalyzerOptions failed: %v", err)
	}
	if len(opts.Prefixes) != 1 || opts.Prefixes[0] != "shared" || !opts.Heuristics {
		t.Errorf("unexpected analyzer options: %+v", opts)
	}
	if len(opts.ExcludeFields) != 1 {
		t.Errorf("expected 1 compiled exclude-fields pattern, got %d", len(opts.ExcludeFields))
	}
}

func TestCompiledExclude_CompilesEveryPattern(t *testing.T) {
	cfg := &Config{Exclude: []string{"*_test.lua", "vendor"}}
	globs, err := cfg.CompiledExclude()
	if err != nil {
		t.Fatalf("CompiledExclude failed: %v", err)
	}
	if len(globs) != 2 {
		t.Errorf("expected 2 compiled patterns, got %d", len(globs))
	}
}
