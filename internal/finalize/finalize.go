// Package finalize implements the Finalizer (spec §4.6, component F):
// walks every module's resolved classes, tables, and functions and
// converts candidate TypeSets into the finalized, user-facing type-name
// lists an external emitter writes out.
//
// Grounded on the teacher's internal/output package (DOT/mermaid/tsv
// writers that walk a resolved Graph one last time to produce external
// text) — reshaped from "graph to diagram" into "resolved module to
// finalized schema model", and on the write-once, walk-after-complete
// ordering spec §5 requires ("no mutation is permitted to a module's
// resolved result once finalization begins").
package finalize

import (
	"sort"

	"github.com/gobwas/glob"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/typeresolve"
)

// FinalizedFunction is one emittable function/method signature.
type FinalizedFunction struct {
	Name           string
	Parameters     []string
	ParameterTypes [][]string
	Returns        [][]string
	IsMethod       bool
	IsConstructor  bool
}

// FinalizedClass is one emittable class entry (spec §6 schema's
// `classes[name]`).
type FinalizedClass struct {
	Name          string
	Extends       string
	Local         bool
	Constructors  []FinalizedFunction
	Fields        map[string][]string
	StaticFields  map[string][]string
	Methods       []FinalizedFunction
	StaticMethods []FinalizedFunction
}

// FinalizedTable is a non-class table entry (spec §6's `tables[name]`:
// "like class but no constructors/extends").
type FinalizedTable struct {
	Name    string
	Fields  map[string][]string
	Methods []FinalizedFunction
}

// FinalizedModule is everything the Finalizer produces for one module.
type FinalizedModule struct {
	FileID    string
	Tags      []string
	Classes   []FinalizedClass
	Tables    []FinalizedTable
	Functions []FinalizedFunction
	Fields    map[string][]string
}

// Finalizer converts resolved Context state into FinalizedModule values.
type Finalizer struct {
	ctx           *cx.Context
	resolver      *typeresolve.Resolver
	excludeFields []glob.Glob
}

func NewFinalizer(ctx *cx.Context) *Finalizer {
	return &Finalizer{ctx: ctx, resolver: typeresolve.NewResolver(ctx)}
}

// SetExcludeFields installs the Environment's `exclude-fields` glob
// patterns (spec §6); matching field names are dropped from every class,
// table, and module-level field map this Finalizer produces.
func (f *Finalizer) SetExcludeFields(patterns []glob.Glob) {
	f.excludeFields = patterns
}

func (f *Finalizer) fieldExcluded(name string) bool {
	for _, g := range f.excludeFields {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Finalize walks mod's classes and module-scope definitions (spec §4.6's
// "walk every module's resolved items").
func (f *Finalizer) Finalize(mod *cx.Module) *FinalizedModule {
	out := &FinalizedModule{FileID: mod.FileID, Tags: mod.Tags, Fields: make(map[string][]string)}

	for _, field := range util.SortedStringKeys(mod.Fields) {
		if f.fieldExcluded(field) {
			continue
		}
		out.Fields[field] = f.names(mod.Fields[field])
	}

	for _, tableID := range mod.Classes {
		info := f.ctx.GetTableInfo(tableID)
		if info.IsEmptyClass {
			continue
		}
		if info.EmitAsTable {
			out.Tables = append(out.Tables, f.finalizeTable(tableID, info))
			continue
		}
		out.Classes = append(out.Classes, f.finalizeClass(tableID, info))
	}

	for _, tableID := range mod.Tables {
		if mod.SeenClasses[tableID] {
			continue // already emitted above, either as a class or as a table
		}
		info := f.ctx.GetTableInfo(tableID)
		out.Tables = append(out.Tables, f.finalizeTable(tableID, info))
	}
	sort.Slice(out.Tables, func(i, j int) bool { return out.Tables[i].Name < out.Tables[j].Name })

	for _, fnID := range mod.Functions {
		info := f.ctx.GetFunctionInfo(fnID)
		if mem, ok := info.IdentifierExpr.(*cx.MemberExpr); ok {
			if _, ok := f.tableIDOf(mem.BaseExpr); ok {
				continue // attached to some table; emitted via that table's methods
			}
		}
		out.Functions = append(out.Functions, f.finalizeFunction(fnID, info))
	}
	sort.Slice(out.Functions, func(i, j int) bool { return out.Functions[i].Name < out.Functions[j].Name })

	return out
}

func (f *Finalizer) finalizeClass(tableID ids.ID, info *cx.TableInfo) FinalizedClass {
	fc := FinalizedClass{
		Name:         info.ClassName,
		Extends:      info.OriginalBase,
		Local:        info.IsLocalClass,
		Fields:       make(map[string][]string),
		StaticFields: make(map[string][]string),
	}
	f.collectMembers(info, &fc.Constructors, &fc.Methods, &fc.StaticMethods, fc.Fields, fc.StaticFields)
	return fc
}

func (f *Finalizer) finalizeTable(tableID ids.ID, info *cx.TableInfo) FinalizedTable {
	ft := FinalizedTable{Name: tableName(info, tableID), Fields: make(map[string][]string)}
	var ctors, statics []FinalizedFunction
	f.collectMembers(info, &ctors, &ft.Methods, &statics, ft.Fields, ft.Fields)
	return ft
}

// collectMembers splits a table's recorded field definitions into
// constructors, instance methods, static methods, and plain fields,
// resolving each field's candidate type set along the way.
func (f *Finalizer) collectMembers(info *cx.TableInfo, constructors, methods, staticMethods *[]FinalizedFunction, fields, staticFields map[string][]string) {
	fieldNames := make([]string, 0, len(info.Definitions))
	for name := range info.Definitions {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for _, name := range fieldNames {
		defs := info.Definitions[name]
		if len(defs) == 0 || name == "[computed]" || f.fieldExcluded(name) {
			continue
		}
		if fnID, ok := f.soleFunction(defs); ok {
			fnInfo := f.ctx.GetFunctionInfo(fnID)
			finalized := f.finalizeFunction(fnID, fnInfo)
			finalized.Name = name
			switch {
			case fnInfo.IsConstructor:
				*constructors = append(*constructors, finalized)
			case fnInfo.IsMethod || anyInstance(defs):
				finalized.IsMethod = true
				*methods = append(*methods, finalized)
			default:
				*staticMethods = append(*staticMethods, finalized)
			}
			continue
		}

		set := cx.NewTypeSet()
		for _, d := range defs {
			set = set.Union(f.resolver.Resolve(d.Expression, d.Index))
		}
		if anyInstance(defs) {
			fields[name] = f.names(set)
		} else {
			staticFields[name] = f.names(set)
		}
	}
}

func anyInstance(defs cx.DefinitionList) bool {
	for _, d := range defs {
		if d.Instance {
			return true
		}
	}
	return false
}

func (f *Finalizer) soleFunction(defs cx.DefinitionList) (ids.ID, bool) {
	if len(defs) != 1 {
		return "", false
	}
	lit, ok := defs[0].Expression.(*cx.LiteralExpr)
	if !ok || lit.LuaKind != cx.LiteralFunction {
		return "", false
	}
	return lit.FunctionID, true
}

func (f *Finalizer) finalizeFunction(fnID ids.ID, info *cx.FunctionInfo) FinalizedFunction {
	ff := FinalizedFunction{
		Name:          info.Name,
		Parameters:    append([]string(nil), info.ParameterNames...),
		IsMethod:      info.IsMethod,
		IsConstructor: info.IsConstructor,
	}
	for _, pt := range info.ParameterTypes {
		ff.ParameterTypes = append(ff.ParameterTypes, f.names(pt))
	}
	if info.MinReturns < 0 {
		return ff
	}
	for i, rt := range info.ReturnTypes {
		set := rt.Clone()
		if i >= info.MinReturns {
			set.Add(string(cx.TypeNil))
		}
		ff.Returns = append(ff.Returns, f.names(set))
	}
	return ff
}

// names finalizes a TypeSet into sorted, user-facing type names (spec
// §4.6): boolean collapse, then every member is kept as it is, and an
// empty set becomes "unknown". No synthetic-ID rewriting happens here: the
// type resolver only puts coarse categories into type sets, so a class
// instance is reported as "table", not by its class name.
func (f *Finalizer) names(set cx.TypeSet) []string {
	set = collapseBooleans(set)
	out := set.Slice()
	if len(out) == 0 {
		out = []string{string(cx.TypeUnknown)}
	}
	sort.Strings(out)
	return out
}

// collapseBooleans implements spec §8 invariant 2 precisely: collapse only
// fires when {true, false} are both present. A type set whose only ever
// observed literal is, say, false keeps that more precise singleton rather
// than widening to generic boolean.
func collapseBooleans(set cx.TypeSet) cx.TypeSet {
	if !set.Has(string(cx.TypeTrue)) || !set.Has(string(cx.TypeFalse)) {
		return set
	}
	out := set.Clone()
	out.Remove(string(cx.TypeTrue))
	out.Remove(string(cx.TypeFalse))
	out.Add(string(cx.TypeBoolean))
	return out
}

func (f *Finalizer) tableIDOf(e cx.Expr) (ids.ID, bool) {
	switch v := e.(type) {
	case *cx.LiteralExpr:
		if v.LuaKind == cx.LiteralTable {
			return v.TableID, true
		}
	case *cx.ReferenceExpr:
		if v.ID.Kind() == ids.KindTable {
			return v.ID, true
		}
		for _, d := range f.ctx.Definitions(v.ID) {
			if tid, ok := f.tableIDOf(d.Expression); ok {
				return tid, true
			}
		}
	}
	return "", false
}

func tableName(info *cx.TableInfo, id ids.ID) string {
	if info.ClassName != "" {
		return info.ClassName
	}
	if info.OriginalName != "" {
		return info.OriginalName
	}
	return id.String()
}

