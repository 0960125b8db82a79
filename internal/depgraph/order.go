package depgraph

import (
	"sort"
	"strings"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
)

// AliasMap resolves an unqualified or suffix-qualified require() argument
// to the set of full file identifiers it could denote (spec §4.1 "Alias
// resolution for requires"). Built once per run and treated as immutable,
// per design note §9 ("Alias-map construction... precompute once... treat
// as immutable").
type AliasMap map[string]map[string]bool

// BuildAliasMap registers, for every identifier path a/b/c, the suffixes
// b/c, c, ... against the full identifier.
func BuildAliasMap(ids []string) AliasMap {
	aliases := make(AliasMap)
	for _, id := range ids {
		parts := strings.Split(id, "/")
		for i := 1; i < len(parts); i++ {
			suffix := strings.Join(parts[i:], "/")
			if aliases[suffix] == nil {
				aliases[suffix] = make(map[string]bool)
			}
			aliases[suffix][id] = true
		}
	}
	return aliases
}

// Resolve maps a require() target to the file identifiers it denotes.
// Exact matches against known file IDs win outright; otherwise aliases are
// consulted, preferring matches within currentDir when ambiguous, and
// falling back to "all matches" when still ambiguous (spec §4.1).
func (a AliasMap) Resolve(required, currentDir string, knownIDs map[string]bool) map[string]bool {
	if knownIDs[required] {
		return map[string]bool{required: true}
	}

	candidates := a[required]
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates
	}

	inDir := make(map[string]bool)
	for id := range candidates {
		if currentDir == "" || util.HasPathPrefix(id, currentDir) {
			inDir[id] = true
		}
	}
	if len(inDir) == 1 {
		return inDir
	}
	return candidates
}

// Resolver orders files for analysis (spec §4.1's ordering algorithm).
type Resolver struct {
	// Prefixes is the ordered list of subdirectory prefixes to process,
	// e.g. []string{"shared", "client", "server"}. A single entry of "all"
	// means "every subdirectory actually present, case-insensitively
	// sorted".
	Prefixes []string
}

// NewResolver returns a Resolver with the spec's default prefix order.
func NewResolver() *Resolver {
	return &Resolver{Prefixes: []string{"shared", "client", "server"}}
}

// OrderResult is the Dependency Resolver's output.
type OrderResult struct {
	Order  []string
	Cycles [][]string // files that complete a require cycle (diagnostic only)
}

// Order computes the deterministic analysis order for files, given their
// scanned Facts, the writer set already recorded per global name, and the
// alias map built over every known file ID.
func (r *Resolver) Order(facts map[string]*Facts, setters map[string]map[string]bool, aliases AliasMap) OrderResult {
	knownIDs := make(map[string]bool, len(facts))
	for id := range facts {
		knownIDs[id] = true
	}

	partitions := partitionByPrefix(knownIDs, r.Prefixes)

	result := OrderResult{}
	order := make(map[string]bool)
	orderList := &result.Order

	for _, partition := range partitions {
		seen := make(map[string]bool)
		worklist := append([]string(nil), partition...)
		for len(worklist) > 0 {
			fname := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			if order[fname] {
				continue
			}
			if seen[fname] {
				// Revisited once its pending deps have been handled.
				order[fname] = true
				*orderList = append(*orderList, fname)
				for _, d := range deps(fname, facts, setters, aliases, knownIDs) {
					if !order[d] {
						// Completing a cycle: append with back-edges unresolved
						// (spec §4.1 "Termination").
						result.Cycles = append(result.Cycles, []string{fname})
						break
					}
				}
				continue
			}
			seen[fname] = true

			deps := deps(fname, facts, setters, aliases, knownIDs)
			var pending []string
			for _, d := range deps {
				if !seen[d] && !order[d] {
					pending = append(pending, d)
				}
			}

			worklist = append(worklist, fname)
			worklist = append(worklist, pending...)
		}
	}

	return result
}

// deps computes deps(f) = requires ∪ setters-of-reads, minus f itself.
func deps(fname string, facts map[string]*Facts, setters map[string]map[string]bool, aliases AliasMap, knownIDs map[string]bool) []string {
	f := facts[fname]
	if f == nil {
		return nil
	}

	currentDir := dirOf(fname)
	depSet := make(map[string]bool)

	for _, req := range f.Requires {
		for id := range aliases.Resolve(req, currentDir, knownIDs) {
			depSet[id] = true
		}
	}

	for read := range f.Reads {
		for setter := range setters[read] {
			depSet[setter] = true
		}
	}

	delete(depSet, fname)

	out := make([]string, 0, len(depSet))
	for d := range depSet {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func dirOf(id string) string {
	i := strings.LastIndex(id, "/")
	if i < 0 {
		return ""
	}
	return id[:i]
}

// ComputeSetters builds, for every global name, the set of files that
// write it at module scope (spec §4.1 "For each global name, record its
// setter set").
func ComputeSetters(facts map[string]*Facts) map[string]map[string]bool {
	setters := make(map[string]map[string]bool)
	for id, f := range facts {
		for name := range f.Writes {
			if setters[name] == nil {
				setters[name] = make(map[string]bool)
			}
			setters[name][id] = true
		}
	}
	return setters
}

// partitionByPrefix splits known file IDs by subdirectory prefix,
// preserving the caller's prefix order and sorting each partition
// case-insensitively, per spec §4.1.
func partitionByPrefix(knownIDs map[string]bool, prefixes []string) [][]string {
	if len(prefixes) == 1 && strings.EqualFold(prefixes[0], "all") {
		prefixes = discoverPrefixes(knownIDs)
	}

	assigned := make(map[string]bool, len(knownIDs))
	partitions := make([][]string, 0, len(prefixes)+1)

	for _, prefix := range prefixes {
		var bucket []string
		for id := range knownIDs {
			if assigned[id] {
				continue
			}
			if util.HasPathPrefix(id, prefix) {
				bucket = append(bucket, id)
				assigned[id] = true
			}
		}
		sortCaseInsensitive(bucket)
		partitions = append(partitions, bucket)
	}

	var rest []string
	for id := range knownIDs {
		if !assigned[id] {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		sortCaseInsensitive(rest)
		partitions = append(partitions, rest)
	}

	return partitions
}

func discoverPrefixes(knownIDs map[string]bool) []string {
	set := make(map[string]bool)
	for id := range knownIDs {
		if i := strings.Index(id, "/"); i >= 0 {
			set[id[:i]] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sortCaseInsensitive(out)
	return out
}

func sortCaseInsensitive(s []string) {
	sort.Slice(s, func(i, j int) bool {
		return strings.ToLower(s[i]) < strings.ToLower(s[j])
	})
}
