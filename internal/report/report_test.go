package report

import (
	"strings"
	"testing"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/analyzer"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/finalize"
)

func TestBuild_CountsModulesAndCycles(t *testing.T) {
	result := &analyzer.Result{
		SessionID: "sess-1",
		Order:     []string{"a", "b", "c"},
		Cycles:    [][]string{{"b"}},
		Modules: []*finalize.FinalizedModule{
			{FileID: "a", Classes: []finalize.FinalizedClass{{Name: "X"}}},
			{FileID: "b", Functions: []finalize.FinalizedFunction{{Name: "f"}}},
		},
	}

	s := Build(result)
	if s.FilesOrdered != 3 || s.Modules != 2 || s.Classes != 1 || s.Functions != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if len(s.Cycles) != 1 {
		t.Errorf("expected 1 cycle, got %d", len(s.Cycles))
	}

	data, err := s.JSON()
	if err != nil || len(data) == 0 {
		t.Fatalf("JSON failed: %v", err)
	}
}

func TestDependencyDOT_HighlightsCycleFiles(t *testing.T) {
	result := &analyzer.Result{Order: []string{"a", "b", "c"}, Cycles: [][]string{{"b"}}}
	dot := DependencyDOT(result)

	if !strings.Contains(dot, `"b" [fillcolor="mistyrose"`) {
		t.Errorf("expected b to be highlighted as a cycle member:\n%s", dot)
	}
	if !strings.Contains(dot, `"a" -> "b"`) || !strings.Contains(dot, `"b" -> "c"`) {
		t.Errorf("expected a linear chain through the order:\n%s", dot)
	}
}
