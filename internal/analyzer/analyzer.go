// Package analyzer wires components A through G into the single
// end-to-end batch run spec §5 describes: dependency ordering, then
// scope reading and class resolution per file in that order, then a
// finishing pass that populates function return/parameter types from the
// now-complete definition graph, then finalization.
//
// Grounded on the teacher's cmd/circular/app.go App: one struct that owns
// the pipeline stages and runs them in a fixed sequence against a shared
// Graph, reshaped here around the shared Context instead.
package analyzer

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/classresolve"
	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/depgraph"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/finalize"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/luast"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/scopereader"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/observability"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/typeresolve"
)

// Source is one parsed input file, keyed by its path-derived file ID.
type Source struct {
	ID    string
	Chunk *luast.Chunk
}

// Diagnostic is a non-fatal issue surfaced during a run (spec §7's
// "Warnings... are emitted but do not interrupt").
type Diagnostic struct {
	FileID  string
	Kind    string
	Message string
}

// Result is everything one run of the Analyzer produces.
type Result struct {
	SessionID   string
	Order       []string
	Cycles      [][]string
	Modules     []*finalize.FinalizedModule
	Diagnostics []Diagnostic
}

// Analyzer runs the full pipeline against one set of parsed sources.
type Analyzer struct {
	ctx           *cx.Context
	resolver      *depgraph.Resolver
	heuristics    bool
	excludeFields []glob.Glob
}

// Options configures one Analyzer run. Prefixes feeds the dependency
// resolver's subdirectory grouping (spec §4.1); Heuristics gates spec
// §4.3's name-shape parameter heuristics (false in a zero Options;
// config.Load turns it on unless the file sets heuristics = false); ExcludeFields is
// handed straight through to the Finalizer (component F)'s per-field
// output filter.
type Options struct {
	Prefixes      []string
	Heuristics    bool
	ExcludeFields []glob.Glob
}

// New creates an Analyzer with a fresh Context tagged with a run-scoped
// UUID for log correlation (see cmd/stubgen).
func New(opts Options) *Analyzer {
	sessionID := uuid.NewString()
	return &Analyzer{
		ctx:           cx.New(sessionID),
		resolver:      &depgraph.Resolver{Prefixes: opts.Prefixes},
		heuristics:    opts.Heuristics,
		excludeFields: opts.ExcludeFields,
	}
}

// Run executes every pipeline stage over sources and returns the
// finalized per-module output (spec §5's fixed sequential stages).
func (a *Analyzer) Run(sources []Source) *Result {
	byID := make(map[string]*Source, len(sources))
	for i := range sources {
		byID[sources[i].ID] = &sources[i]
	}

	depStart := time.Now()
	facts := make(map[string]*depgraph.Facts, len(sources))
	for _, s := range sources {
		facts[s.ID] = depgraph.Scan(s.ID, s.Chunk)
	}
	setters := depgraph.ComputeSetters(facts)
	ids := make([]string, 0, len(sources))
	for id := range facts {
		ids = append(ids, id)
	}
	aliases := depgraph.BuildAliasMap(ids)
	a.ctx.SetAliasMap(aliases)

	order := a.resolver.Order(facts, setters, aliases)
	observability.AnalysisDuration.WithLabelValues(observability.ComponentDependencyResolver).Observe(time.Since(depStart).Seconds())
	observability.RequireCyclesDetected.Add(float64(len(order.Cycles)))

	result := &Result{SessionID: a.ctx.SessionID, Order: order.Order, Cycles: order.Cycles}
	for _, cyc := range order.Cycles {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			FileID:  cyc[0],
			Kind:    "RequireCycle",
			Message: fmt.Sprintf("file %s completes a require cycle; some definitions may be unresolved", cyc[0]),
		})
	}

	classResolver := classresolve.NewResolver(a.ctx)

	scopeStart := time.Now()
	for _, fileID := range order.Order {
		src, ok := byID[fileID]
		if !ok || src.Chunk == nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{FileID: fileID, Kind: "ParseError", Message: "no parsed chunk for file"})
			continue
		}
		mod := a.readOne(fileID, src.Chunk)
		classStart := time.Now()
		classResolver.Resolve(mod)
		observability.AnalysisDuration.WithLabelValues(observability.ComponentClassResolver).Observe(time.Since(classStart).Seconds())
	}
	observability.AnalysisDuration.WithLabelValues(observability.ComponentScopeReader).Observe(time.Since(scopeStart).Seconds())

	typeStart := time.Now()
	a.populateFunctionTypes()
	observability.AnalysisDuration.WithLabelValues(observability.ComponentTypeResolver).Observe(time.Since(typeStart).Seconds())

	finalizeStart := time.Now()
	finalizer := finalize.NewFinalizer(a.ctx)
	finalizer.SetExcludeFields(a.excludeFields)
	for _, fileID := range order.Order {
		mod, ok := a.ctx.GetModule(fileID, false)
		if !ok {
			continue
		}
		result.Modules = append(result.Modules, finalizer.Finalize(mod))
	}
	observability.AnalysisDuration.WithLabelValues(observability.ComponentFinalizer).Observe(time.Since(finalizeStart).Seconds())

	observability.ModulesAnalyzed.Set(float64(len(result.Modules)))
	var classes, tables, functions int
	for _, mod := range result.Modules {
		classes += len(mod.Classes)
		tables += len(mod.Tables)
		functions += len(mod.Functions)
	}
	observability.ClassesFound.Set(float64(classes))
	observability.TablesFound.Set(float64(tables))
	observability.FunctionsFound.Set(float64(functions))

	return result
}

func (a *Analyzer) readOne(fileID string, chunk *luast.Chunk) *cx.Module {
	a.ctx.SetCurrentReadingModule(fileID)
	reader := scopereader.NewReader(a.ctx, fileID)
	mod := reader.Read(chunk)
	mod.Prefix = prefixOf(fileID)
	a.recordModuleReturns(mod)
	a.ctx.SetModule(fileID, mod)
	return mod
}

// recordModuleReturns captures a module's top-level return statement so
// require() resolution (spec §4.3) has something concrete to narrow
// against.
func (a *Analyzer) recordModuleReturns(mod *cx.Module) {
	r := typeresolve.NewResolver(a.ctx)
	for _, item := range mod.Scope.Items {
		if ret, ok := item.(*cx.ReturnsItem); ok {
			var sets []cx.TypeSet
			for _, arg := range ret.Arguments {
				sets = append(sets, r.Resolve(arg, 1))
			}
			mod.Returns = sets
			return
		}
	}
}

// populateFunctionTypes is the finishing pass spec §4.6 relies on: walk
// every function's body scope now that every module has been read and
// class-resolved, and fill in ReturnTypes/MinReturns/ParameterTypes from
// the now-complete definition graph.
func (a *Analyzer) populateFunctionTypes() {
	r := typeresolve.NewResolver(a.ctx)

	for fnID, info := range a.ctx.AllFunctions() {
		if info.BodyScope == nil {
			continue
		}
		returnSites := collectReturns(info.BodyScope)
		if len(returnSites) == 0 {
			info.MinReturns = 0
			continue
		}

		minArgs := -1
		var perPosition [][]cx.TypeSet
		for _, site := range returnSites {
			if minArgs == -1 || len(site) < minArgs {
				minArgs = len(site)
			}
			for i, arg := range site {
				for len(perPosition) <= i {
					perPosition = append(perPosition, nil)
				}
				perPosition[i] = append(perPosition[i], r.Resolve(arg, 1))
			}
		}
		info.MinReturns = minArgs
		info.ReturnTypes = make([]cx.TypeSet, len(perPosition))
		for i, sets := range perPosition {
			union := cx.NewTypeSet()
			for _, s := range sets {
				union = union.Union(s)
			}
			info.ReturnTypes[i] = union
		}

		a.narrowParameterTypes(fnID, info, r)
	}
}

func collectReturns(scope *cx.Scope) [][]cx.Expr {
	var out [][]cx.Expr
	for _, item := range scope.Items {
		switch it := item.(type) {
		case *cx.ReturnsItem:
			out = append(out, it.Arguments)
		case *cx.SubScopeItem:
			out = append(out, collectReturns(it.Scope)...)
		}
	}
	return out
}

// narrowParameterTypes scans every usage fact recorded anywhere against a
// ReferenceExpr bound to one of fn's parameter IDs and unions the
// resulting candidate sets (spec §4.3's narrowing applied to parameters).
func (a *Analyzer) narrowParameterTypes(fnID ids.ID, info *cx.FunctionInfo, r *typeresolve.Resolver) {
	positions := make(map[ids.ID]int, len(info.ParameterIDs))
	for i, pid := range info.ParameterIDs {
		positions[pid] = i
	}
	if len(info.ParameterTypes) < len(info.ParameterIDs) {
		grown := make([]cx.TypeSet, len(info.ParameterIDs))
		copy(grown, info.ParameterTypes)
		for i := range grown {
			if grown[i] == nil {
				grown[i] = cx.NewTypeSet()
			}
		}
		info.ParameterTypes = grown
	}

	for e, rec := range a.ctx.AllUsage() {
		ref, ok := e.(*cx.ReferenceExpr)
		if !ok {
			continue
		}
		pos, ok := positions[ref.ID]
		if !ok {
			continue
		}
		info.ParameterTypes[pos] = info.ParameterTypes[pos].Union(rec.CandidateTypes())
	}

	if !a.heuristics {
		return
	}
	guessed := typeresolve.ParameterHeuristicTypes(info.ParameterNames)
	for i, set := range guessed {
		if i < len(info.ParameterTypes) {
			info.ParameterTypes[i] = info.ParameterTypes[i].Union(set)
		}
	}
}

func prefixOf(fileID string) string {
	for i, c := range fileID {
		if c == '/' {
			return fileID[:i]
		}
	}
	return fileID
}
