// Package report builds the session-scoped run report SPEC_FULL.md
// supplements spec.md with: per-run counts, the warning list spec §7's
// non-fatal diagnostics populate, and a dependency-order diagram.
//
// Grounded on the teacher's cmd/circular/main.go PrintSummary (a closing
// summary every run produces) and internal/output/dot.go's DOTGenerator
// (cycle-highlighted digraph of the dependency graph) — reshaped from "Go
// import graph" into "require() analysis order", since this module's
// Dependency Resolver (component A) exposes a linear order plus detected
// cycles rather than a full import adjacency.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/analyzer"
)

// Summary is the machine-readable run report (spec §7: "Warnings...
// emitted but do not interrupt" surfaced alongside the external emitter's
// own outputs).
type Summary struct {
	SessionID   string               `json:"sessionId"`
	FilesOrdered int                 `json:"filesOrdered"`
	Modules     int                  `json:"modules"`
	Classes     int                  `json:"classes"`
	Tables      int                  `json:"tables"`
	Functions   int                  `json:"functions"`
	Cycles      [][]string           `json:"cycles,omitempty"`
	Diagnostics []analyzer.Diagnostic `json:"diagnostics,omitempty"`
}

// Build computes a Summary from one Analyzer run.
func Build(result *analyzer.Result) Summary {
	s := Summary{
		SessionID:    result.SessionID,
		FilesOrdered: len(result.Order),
		Modules:      len(result.Modules),
		Cycles:       result.Cycles,
		Diagnostics:  result.Diagnostics,
	}
	for _, mod := range result.Modules {
		s.Classes += len(mod.Classes)
		s.Tables += len(mod.Tables)
		s.Functions += len(mod.Functions)
	}
	return s
}

// JSON encodes the summary. This is plain struct serialization with no
// merge/versioning behavior, unlike the schema format proper (see
// internal/schema, which uses yaml.v3 for that richer contract) — stdlib
// encoding/json covers it without needing a third-party encoder.
func (s Summary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DependencyDOT renders the Dependency Resolver's analysis order as a
// Graphviz digraph: a chain through every file in order, with any file
// that completes a require cycle (spec §8 scenario 5) highlighted.
func DependencyDOT(result *analyzer.Result) string {
	var buf strings.Builder

	cycleFiles := make(map[string]bool)
	for _, cyc := range result.Cycles {
		for _, f := range cyc {
			cycleFiles[f] = true
		}
	}

	buf.WriteString("digraph analysis_order {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, f := range result.Order {
		if cycleFiles[f] {
			fmt.Fprintf(&buf, "  %q [fillcolor=\"mistyrose\", style=\"rounded,filled\", color=\"red\"];\n", f)
		} else {
			fmt.Fprintf(&buf, "  %q;\n", f)
		}
	}
	buf.WriteString("\n")

	for i := 1; i < len(result.Order); i++ {
		fmt.Fprintf(&buf, "  %q -> %q;\n", result.Order[i-1], result.Order[i])
	}

	buf.WriteString("}\n")
	return buf.String()
}
