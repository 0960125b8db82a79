package typeresolve

import (
	"strings"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
)

// ParameterHeuristicTypes applies spec §4.3's name-shape heuristics to a
// function's own parameter name list: one TypeSet per position, empty
// where nothing matched. The caller only unions these in when the
// Environment's "heuristics" toggle (internal/config) is enabled.
//
// Grounded on the teacher's internal/resolver/heuristics.go: a small
// ordered battery of independent name-shape checks, reshaped here from
// import-symbol classification into parameter-type guessing.
func ParameterHeuristicTypes(names []string) []cx.TypeSet {
	stripped := make([]string, len(names))
	present := make(map[string]int, len(names))
	for i, n := range names {
		s := strings.TrimPrefix(n, "_")
		stripped[i] = s
		present[s] = i
	}

	out := make([]cx.TypeSet, len(names))
	for i := range out {
		out[i] = cx.NewTypeSet()
	}

	if dx, ok := present["dx"]; ok {
		if dy, ok := present["dy"]; ok {
			out[dx].Add(string(cx.TypeNumber))
			out[dy].Add(string(cx.TypeNumber))
		}
	}

	applyGroupHeuristic(present, out, []string{"x", "y", "z", "w", "h", "width", "height"}, 2)
	applyGroupHeuristic(present, out, []string{"r", "g", "b", "a"}, 3)

	for i, s := range stripped {
		if isPrefixed(s) {
			out[i].Add(string(cx.TypeBoolean))
		}
		lower := strings.ToLower(s)
		startsWithDo := strings.HasPrefix(lower, "do")
		if !startsWithDo && (strings.HasPrefix(lower, "num") || strings.HasSuffix(lower, "num")) {
			out[i].Add(string(cx.TypeNumber))
		}
		if !startsWithDo && hasAnySuffix(lower, "str", "name", "title") {
			out[i].Add(string(cx.TypeString))
		}
		if isTargetOrPositional(s) {
			out[i].Add(string(cx.TypeUnknown))
		}
	}

	return out
}

// applyGroupHeuristic covers the dx+dy-style "N of a named group present ⇒
// type every matched member" rules for the geometry and color groups.
func applyGroupHeuristic(present map[string]int, out []cx.TypeSet, group []string, minMatches int) {
	matched := 0
	for _, name := range group {
		if _, ok := present[name]; ok {
			matched++
		}
	}
	if matched < minMatches {
		return
	}
	for _, name := range group {
		if i, ok := present[name]; ok {
			out[i].Add(string(cx.TypeNumber))
		}
	}
}

// isPrefixed reports the "is<Upper>..." shape: "is" followed immediately
// by an uppercase letter, so "isActive" matches but "island" does not.
func isPrefixed(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "is") && s[2] >= 'A' && s[2] <= 'Z'
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// isTargetOrPositional matches "target", "paramN", or "argN" (trailing
// digits required, so "param" alone or "argument" does not match).
func isTargetOrPositional(s string) bool {
	if s == "target" {
		return true
	}
	return hasNumericSuffix(s, "param") || hasNumericSuffix(s, "arg")
}

func hasNumericSuffix(s, prefix string) bool {
	rest := strings.TrimPrefix(s, prefix)
	if rest == "" || rest == s {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
