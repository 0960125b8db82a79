package schema

import (
	"path/filepath"
	"testing"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/finalize"
)

func TestSaveLoad_RoundTrips(t *testing.T) {
	f := &File{
		Version: currentVersion,
		Languages: Languages{Lua: Lua{
			Classes: map[string]*Class{
				"Widget": {Extends: "Base", Fields: map[string]*Field{"x": {Type: "number"}}},
			},
		}},
	}

	path := filepath.Join(t.TempDir(), "nested", "schema.yaml")
	if err := Save(path, f); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Languages.Lua.Classes["Widget"].Extends != "Base" {
		t.Errorf("expected Widget to extend Base, got %+v", got.Languages.Lua.Classes["Widget"])
	}
}

func TestLoad_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := Save(path, &File{Version: "9.9"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected an error for an unsupported schema version")
	}
}

func TestBridge_Merge_KeepTypesPreservesExistingFieldType(t *testing.T) {
	existing := &Lua{
		Classes: map[string]*Class{
			"Widget": {Fields: map[string]*Field{"x": {Type: "string", Notes: "hand-authored"}}},
		},
	}
	mod := &finalize.FinalizedModule{
		Classes: []finalize.FinalizedClass{
			{Name: "Widget", Fields: map[string][]string{"x": {"number"}}},
		},
		Fields: map[string][]string{},
	}

	b := NewBridge(true)
	got := b.Merge(existing, mod)

	field := got.Classes["Widget"].Fields["x"]
	if field.Type != "string" {
		t.Errorf("expected keep-types to preserve the hand-authored type, got %q", field.Type)
	}
	if field.Notes != "hand-authored" {
		t.Errorf("expected notes to survive the merge, got %q", field.Notes)
	}
}

func TestBridge_Merge_WithoutKeepTypesOverwritesWithAnalyzedTypes(t *testing.T) {
	existing := &Lua{
		Classes: map[string]*Class{
			"Widget": {Fields: map[string]*Field{"x": {Type: "string"}}},
		},
	}
	mod := &finalize.FinalizedModule{
		Classes: []finalize.FinalizedClass{
			{Name: "Widget", Fields: map[string][]string{"x": {"number"}}},
		},
		Fields: map[string][]string{},
	}

	b := NewBridge(false)
	got := b.Merge(existing, mod)

	if got.Classes["Widget"].Fields["x"].Type != "number" {
		t.Errorf("expected the freshly analyzed type to win, got %q", got.Classes["Widget"].Fields["x"].Type)
	}
}

func TestBridge_Merge_PreservesExtraTaggedEntries(t *testing.T) {
	existing := &Lua{
		Tables: map[string]*Table{
			"Unmanaged": {Tags: []string{TagExtra}},
		},
	}
	mod := &finalize.FinalizedModule{Fields: map[string][]string{}}

	b := NewBridge(true)
	got := b.Merge(existing, mod)

	if _, ok := got.Tables["Unmanaged"]; !ok {
		t.Errorf("expected an unmanaged table tagged %s to survive the merge untouched", TagExtra)
	}
}
