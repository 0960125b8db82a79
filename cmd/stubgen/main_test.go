package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/analyzer"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/config"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/schema"
)

const fixtureAST = `{
	"Kind": "Chunk",
	"Body": [
		{
			"Kind": "AssignmentStatement",
			"Variables": [{"Kind": "Identifier", "Name": "Point"}],
			"Init": [{"Kind": "TableConstructorExpression", "Fields": []}]
		},
		{
			"Kind": "FunctionDeclaration",
			"IsLocal": false,
			"Parameters": ["dx", "dy"],
			"Identifier": {
				"Kind": "MemberExpression",
				"BaseExpr": {"Kind": "Identifier", "Name": "Point"},
				"Indexer": ".",
				"Member": "move"
			},
			"Body": []
		}
	]
}`

func TestLoadSources_DecodesEveryFixtureUnderInput(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "shared"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shared", "point.lua.json"), []byte(fixtureAST), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Input: dir, Prefixes: []string{"shared"}}
	sources, err := loadSources(cfg)
	if err != nil {
		t.Fatalf("loadSources failed: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if sources[0].ID != "shared/point.lua" {
		t.Errorf("unexpected file ID: %q", sources[0].ID)
	}
}

func TestLoadSources_SkipPatternExcludesMatchingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "point.lua.json"), []byte(fixtureAST), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "generated.lua.json"), []byte(fixtureAST), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Input: dir, Prefixes: []string{"all"}, SkipPattern: "generated.lua"}
	sources, err := loadSources(cfg)
	if err != nil {
		t.Fatalf("loadSources failed: %v", err)
	}
	if len(sources) != 1 || sources[0].ID != "point.lua" {
		t.Errorf("expected skip-pattern to exclude generated.lua, got %+v", sources)
	}
}

func TestRun_EndToEndProducesSchemaFragment(t *testing.T) {
	dir := t.TempDir()
	inputDir := filepath.Join(dir, "in")
	outputDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "point.lua.json"), []byte(fixtureAST), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Input: inputDir, Output: outputDir, Prefixes: []string{"all"}}
	sources, err := loadSources(cfg)
	if err != nil {
		t.Fatalf("loadSources failed: %v", err)
	}

	opts, err := cfg.AnalyzerOptions()
	if err != nil {
		t.Fatalf("AnalyzerOptions failed: %v", err)
	}

	result := analyzer.New(opts).Run(sources)
	if len(result.Modules) != 1 {
		t.Fatalf("expected 1 finalized module, got %d", len(result.Modules))
	}

	bridge := schema.NewBridge(cfg.KeepTypes)
	if err := writeSchema(cfg, bridge, result.Modules[0]); err != nil {
		t.Fatalf("writeSchema failed: %v", err)
	}

	outPath := filepath.Join(outputDir, "point.lua.yaml")
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected schema fragment at %s: %v", outPath, err)
	}
	f, err := schema.Load(outPath)
	if err != nil {
		t.Fatalf("schema.Load failed: %v", err)
	}
	if _, ok := f.Languages.Lua.Tables["Point"]; !ok {
		t.Errorf("expected a Point table in the merged schema, got %+v", f.Languages.Lua.Tables)
	}
}
