// Package typeresolve implements the Type Resolver (spec §4.3, component
// C): recursively resolves an expression at a given return index to a
// candidate TypeSet, narrowing by recorded usage and terminating
// re-entrant cycles with a "seen" set.
//
// The cycle guard is grounded on the teacher's internal/graph.findCycles
// onStack/visited pair (detect.go) — reshaped from "which module have I
// already visited on this DFS path" into "which (expression, return index)
// pair am I already resolving", passed as an explicit parameter rather
// than stored on the resolver, matching spec §5's no-shared-mutable-state
// rule.
package typeresolve

import (
	"strconv"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
)

// Resolver resolves expressions against a shared Context.
type Resolver struct {
	ctx *cx.Context
}

func NewResolver(ctx *cx.Context) *Resolver {
	return &Resolver{ctx: ctx}
}

type seenKey struct {
	expr  cx.Expr
	index int
}

// Resolve is the public entry point: resolve({expression, index}) from
// spec §4.3, starting with an empty seen set.
func (r *Resolver) Resolve(e cx.Expr, index int) cx.TypeSet {
	return r.resolve(e, index, make(map[seenKey]bool))
}

func (r *Resolver) resolve(e cx.Expr, index int, seen map[seenKey]bool) cx.TypeSet {
	if e == nil {
		return cx.NewTypeSet(string(cx.TypeNil))
	}
	key := seenKey{e, index}
	if seen[key] {
		// Re-entrant cycle (spec §4.3 "Cycle policy"): contribute nothing
		// rather than loop forever; the union with other definitions still
		// produces a useful candidate set.
		return cx.NewTypeSet()
	}
	seen[key] = true

	var base cx.TypeSet
	switch v := e.(type) {
	case *cx.LiteralExpr:
		base = r.resolveLiteral(v)
	case *cx.ReferenceExpr:
		base = r.resolveReference(v, index, seen)
	case *cx.RequireExpr:
		base = r.resolveRequire(v, index)
	case *cx.MemberExpr:
		base = r.resolveMember(v, seen)
	case *cx.IndexExpr:
		base = r.resolveIndex(v, seen)
	case *cx.OperationExpr:
		base = r.resolveOperation(v, index, seen)
	default:
		base = cx.NewTypeSet(string(cx.TypeUnknown))
	}

	if rec, ok := r.usageFor(e); ok {
		if narrowed := rec.CandidateTypes(); len(narrowed) > 0 {
			base = intersectOrFallback(base, narrowed)
		}
	}
	return base
}

func (r *Resolver) usageFor(e cx.Expr) (*cx.UsageRecord, bool) {
	if !r.ctx.HasUsage(e) {
		return nil, false
	}
	return r.ctx.Usage(e), true
}

// intersectOrFallback applies spec §4.3's narrowing rule: intersect the
// resolved set with the usage-derived candidate set, but keep the resolved
// set whenever the intersection is empty (a usage fact that disagrees with
// a concretely resolved value is weaker evidence than the value itself).
func intersectOrFallback(base, narrowed cx.TypeSet) cx.TypeSet {
	if len(base) == 0 || base.Has(string(cx.TypeUnknown)) {
		return narrowed.Clone()
	}
	inter := cx.NewTypeSet()
	for k := range base {
		if narrowed.Has(k) {
			inter.Add(k)
		}
	}
	if len(inter) == 0 {
		return base
	}
	return inter
}

func (r *Resolver) resolveLiteral(v *cx.LiteralExpr) cx.TypeSet {
	switch v.LuaKind {
	case cx.LiteralBoolean:
		// Kept as the specific true/false literal rather than collapsed to
		// boolean here — the finalizer (component F) performs the
		// collapse once every definition has contributed its type set.
		if v.BoolValue {
			return cx.NewTypeSet(string(cx.TypeTrue))
		}
		return cx.NewTypeSet(string(cx.TypeFalse))
	case cx.LiteralString:
		return cx.NewTypeSet(string(cx.TypeString))
	case cx.LiteralNumber:
		return cx.NewTypeSet(string(cx.TypeNumber))
	case cx.LiteralNil:
		return cx.NewTypeSet(string(cx.TypeNil))
	case cx.LiteralTable:
		return cx.NewTypeSet(string(cx.TypeTable))
	case cx.LiteralFunction:
		return cx.NewTypeSet(string(cx.TypeFunction))
	default:
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
}

// resolveReference follows spec §3's synthetic-marker shortcut: table and
// function IDs already carry their coarse type without consulting the
// definition map. Everything else unions over every recorded definition.
func (r *Resolver) resolveReference(v *cx.ReferenceExpr, index int, seen map[seenKey]bool) cx.TypeSet {
	switch v.ID.Kind() {
	case ids.KindTable:
		return cx.NewTypeSet(string(cx.TypeTable))
	case ids.KindFunction:
		return cx.NewTypeSet(string(cx.TypeFunction))
	}

	defs := r.ctx.Definitions(v.ID)
	if len(defs) == 0 {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	out := cx.NewTypeSet()
	for _, d := range defs {
		out = out.Union(r.resolve(d.Expression, d.Index, seen))
	}
	return out
}

// resolveRequire resolves a require() expression against the named
// module's recorded return types (spec §4.3 "require resolution").
func (r *Resolver) resolveRequire(v *cx.RequireExpr, index int) cx.TypeSet {
	mod, ok := r.ctx.GetModule(v.Module, true)
	if !ok {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	if index-1 >= 0 && index-1 < len(mod.Returns) {
		return mod.Returns[index-1].Clone()
	}
	// Modules that return nothing explicit still conventionally return
	// their top-level table.
	return cx.NewTypeSet(string(cx.TypeTable))
}

// resolveMember follows a.b through the base's table ID, falling back to
// unknown when the base cannot be traced to a concrete table (e.g. it is
// itself the result of an unresolved call).
func (r *Resolver) resolveMember(v *cx.MemberExpr, seen map[seenKey]bool) cx.TypeSet {
	tableID, ok := r.tableIDOf(v.BaseExpr, seen)
	if !ok {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	info := r.ctx.GetTableInfo(tableID)
	defs, ok := info.Definitions[v.Member]
	if !ok || len(defs) == 0 {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	out := cx.NewTypeSet()
	for _, d := range defs {
		out = out.Union(r.resolve(d.Expression, d.Index, seen))
	}
	return out
}

// resolveIndex implements spec §4.3's "index" rule: like member, but the
// key is derived from a statically-resolvable literal index expression; an
// index that cannot be reduced to a literal resolves to the empty set
// rather than unknown, since there is nothing to union in.
func (r *Resolver) resolveIndex(v *cx.IndexExpr, seen map[seenKey]bool) cx.TypeSet {
	key, ok := literalKey(v.IndexExpr)
	if !ok {
		return cx.NewTypeSet()
	}
	tableID, ok := r.tableIDOf(v.BaseExpr, seen)
	if !ok {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	info := r.ctx.GetTableInfo(tableID)
	defs, ok := info.Definitions[key]
	if !ok || len(defs) == 0 {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	out := cx.NewTypeSet()
	for _, d := range defs {
		out = out.Union(r.resolve(d.Expression, d.Index, seen))
	}
	return out
}

// literalKey reduces a string or number literal expression to the string
// form used as a TableInfo.Definitions key, mirroring how the scope reader
// keys TableKeyString fields and member assignments. Constructor fields
// written as `[k] = v` are stored under "[computed]" and positional fields
// in the literal-field list, so neither is found through this key.
func literalKey(e cx.Expr) (string, bool) {
	lit, ok := e.(*cx.LiteralExpr)
	if !ok {
		return "", false
	}
	switch lit.LuaKind {
	case cx.LiteralString:
		return lit.StringValue, true
	case cx.LiteralNumber:
		return strconv.FormatFloat(lit.NumberValue, 'g', -1, 64), true
	default:
		return "", false
	}
}

func (r *Resolver) tableIDOf(e cx.Expr, seen map[seenKey]bool) (ids.ID, bool) {
	switch v := e.(type) {
	case *cx.LiteralExpr:
		if v.LuaKind == cx.LiteralTable {
			return v.TableID, true
		}
	case *cx.ReferenceExpr:
		if v.ID.Kind() == ids.KindTable || v.ID.Kind() == ids.KindInstance || v.ID.Kind() == ids.KindSelf {
			if info, ok := r.instanceTable(v.ID); ok {
				return info, true
			}
			return v.ID, true
		}
		for _, d := range r.ctx.Definitions(v.ID) {
			if id, ok := r.tableIDOf(d.Expression, seen); ok {
				return id, true
			}
		}
	case *cx.MemberExpr:
		if base, ok := r.tableIDOf(v.BaseExpr, seen); ok {
			info := r.ctx.GetTableInfo(base)
			if defs, ok := info.Definitions[v.Member]; ok {
				for _, d := range defs {
					if id, ok := r.tableIDOf(d.Expression, seen); ok {
						return id, true
					}
				}
			}
		}
	}
	return "", false
}

// instanceTable resolves a self/instance synthetic ID to the class table
// it was constructed from, when the class resolver (component D) has
// already recorded that association via ctx.GetTableInfo's InstanceID.
func (r *Resolver) instanceTable(id ids.ID) (ids.ID, bool) {
	for tid, info := range r.ctx.AllTables() {
		if info.InstanceID == id {
			return tid, true
		}
	}
	return "", false
}

func (r *Resolver) functionIDOf(e cx.Expr, seen map[seenKey]bool) (ids.ID, bool) {
	switch v := e.(type) {
	case *cx.LiteralExpr:
		if v.LuaKind == cx.LiteralFunction {
			return v.FunctionID, true
		}
	case *cx.ReferenceExpr:
		if v.ID.Kind() == ids.KindFunction {
			return v.ID, true
		}
		for _, d := range r.ctx.Definitions(v.ID) {
			if id, ok := r.functionIDOf(d.Expression, seen); ok {
				return id, true
			}
		}
	case *cx.MemberExpr:
		if tableID, ok := r.tableIDOf(v.BaseExpr, seen); ok {
			info := r.ctx.GetTableInfo(tableID)
			for _, d := range info.Definitions[v.Member] {
				if id, ok := r.functionIDOf(d.Expression, seen); ok {
					return id, true
				}
			}
		}
	}
	return "", false
}

// resolveOperation dispatches every operator kind spec §3 lists, including
// the "call" pseudo-operator used for every call/table-call/string-call
// form the scope reader produces.
func (r *Resolver) resolveOperation(v *cx.OperationExpr, index int, seen map[seenKey]bool) cx.TypeSet {
	switch v.Operator {
	case "call":
		return r.resolveCall(v, index, seen)
	case "..":
		return cx.NewTypeSet(string(cx.TypeString))
	case "#":
		return cx.NewTypeSet(string(cx.TypeNumber))
	case "==", "~=", "<", ">", "<=", ">=":
		return cx.NewTypeSet(string(cx.TypeBoolean))
	case "not":
		if len(v.Arguments) != 1 {
			return cx.NewTypeSet(string(cx.TypeBoolean))
		}
		if truthy, decidable := r.staticTruthiness(v.Arguments[0]); decidable {
			if truthy {
				return cx.NewTypeSet(string(cx.TypeFalse))
			}
			return cx.NewTypeSet(string(cx.TypeTrue))
		}
		return cx.NewTypeSet(string(cx.TypeBoolean))
	case "and":
		if len(v.Arguments) != 2 {
			return cx.NewTypeSet(string(cx.TypeUnknown))
		}
		lhs, rhs := v.Arguments[0], v.Arguments[1]
		if truthy, decidable := r.staticTruthiness(lhs); decidable {
			if truthy {
				return r.resolve(rhs, 1, seen)
			}
			return r.resolve(lhs, 1, seen)
		}
		return r.resolve(lhs, 1, seen).Union(r.resolve(rhs, 1, seen))
	case "or":
		if len(v.Arguments) != 2 {
			return cx.NewTypeSet(string(cx.TypeUnknown))
		}
		lhs, rhs := v.Arguments[0], v.Arguments[1]
		// "X and Y or Z" ternary idiom: substitute Y's types for the
		// and-expression's result before unioning with Z (spec §4.3).
		if and, ok := lhs.(*cx.OperationExpr); ok && and.Operator == "and" && len(and.Arguments) == 2 {
			return r.resolve(and.Arguments[1], 1, seen).Union(r.resolve(rhs, 1, seen))
		}
		if truthy, decidable := r.staticTruthiness(lhs); decidable && !truthy {
			return r.resolve(rhs, 1, seen)
		}
		return r.resolve(lhs, 1, seen).Union(r.resolve(rhs, 1, seen))
	case "+", "-", "*", "/", "%", "^", "//":
		return cx.NewTypeSet(string(cx.TypeNumber))
	default:
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
}

// staticTruthiness decides an expression's Lua truthiness from
// literal-only analysis (spec's Non-goal carve-out: "beyond simple
// literal-truthiness" is excluded, literal-truthiness itself is required).
// Every literal is decidable and nothing else is; nil and false are the
// only falsy values in Lua, so every other literal kind is unconditionally
// truthy.
func (r *Resolver) staticTruthiness(e cx.Expr) (truthy, decidable bool) {
	lit, ok := e.(*cx.LiteralExpr)
	if !ok {
		return false, false
	}
	switch lit.LuaKind {
	case cx.LiteralNil:
		return false, true
	case cx.LiteralBoolean:
		return lit.BoolValue, true
	default:
		return true, true
	}
}

// intrinsicReturn recognizes the handful of builtin functions spec §4.3
// names by call site rather than by FunctionInfo: callees that were never
// locally defined resolve to an unbound local reference whose ID still
// carries the builtin's name. resolveCall consults it only when the callee
// does not resolve to a FunctionInfo.
func intrinsicReturn(callee cx.Expr) (cx.TypeSet, bool) {
	ref, ok := callee.(*cx.ReferenceExpr)
	if !ok {
		return nil, false
	}
	switch ref.ID.Name() {
	case "tonumber":
		return cx.NewTypeSet(string(cx.TypeNumber), string(cx.TypeNil)), true
	case "tostring", "getText":
		return cx.NewTypeSet(string(cx.TypeString)), true
	case "getTextOrNull":
		return cx.NewTypeSet(string(cx.TypeString), string(cx.TypeNil)), true
	default:
		return nil, false
	}
}

// resolveCall resolves the return type of a call at the given 1-based
// return position, applying the constructor special-case (spec §4.4's
// "constructor calls produce an instance of the enclosing class") and
// return-arity nullability (spec §4.6 "positions beyond minReturns are
// nilable").
func (r *Resolver) resolveCall(v *cx.OperationExpr, index int, seen map[seenKey]bool) cx.TypeSet {
	if len(v.Arguments) == 0 {
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	callee := v.Arguments[0]

	fnID, ok := r.functionIDOf(callee, seen)
	if !ok {
		if set, ok := intrinsicReturn(callee); ok {
			return set
		}
		return cx.NewTypeSet(string(cx.TypeUnknown))
	}
	info := r.ctx.GetFunctionInfo(fnID)

	if info.IsConstructor {
		// Constructor calls resolve to the generic table category; the
		// set does not name the owning class, and the finalizer (component
		// F) reports it as "table".
		return cx.NewTypeSet(string(cx.TypeTable))
	}

	pos := index - 1
	if pos < 0 || pos >= len(info.ReturnTypes) {
		// spec §4.3: "a request for a return index past the function's
		// declared returns yields {nil}" — distinct from the in-range
		// nullability widening below.
		return cx.NewTypeSet(string(cx.TypeNil))
	}
	set := info.ReturnTypes[pos].Clone()
	if info.MinReturns >= 0 && index > info.MinReturns {
		set.Add(string(cx.TypeNil))
	}
	if len(set) == 0 {
		set.Add(string(cx.TypeUnknown))
	}
	return set
}
