// Package classresolve implements the Class Resolver (spec §4.4, component
// D): scans a module's resolved scope tree for the seven class-detection
// idioms (derive calls, setmetatable+__index, closure-based constructors,
// implied-from-:new, nested-function-in-class, UI-node factories, and
// unknown-global-class placeholders) and materializes each match as a
// first-class TableInfo promoted to a class.
//
// Grounded on the teacher's internal/resolver/heuristics.go: a list of
// independent pattern-matchers run in sequence over the same input,
// each free to decide "this isn't my pattern" and fall through — reshaped
// from import-heuristic scoring into class-idiom matching.
package classresolve

import (
	"strings"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
)

// Resolver applies the class-detection idioms against a shared Context.
type Resolver struct {
	ctx *cx.Context
}

func NewResolver(ctx *cx.Context) *Resolver {
	return &Resolver{ctx: ctx}
}

// Resolve walks mod's scope tree once, module-scope items first (idioms 1,
// 2, 5, 6, 7 all fire on module-scope assignments), then every function
// of the module for idioms 3, 4 and 5.
func (r *Resolver) Resolve(mod *cx.Module) {
	r.walkModuleScope(mod.Scope, mod)

	// idioms 3, 4 and 5 inspect functions, not assignment items directly, so
	// they run as a second pass over mod.Functions — scoped to this
	// module's own functions, not every function ever read, since classes
	// are attributed to whichever *cx.Module is passed in.
	for _, fnID := range mod.Functions {
		info := r.ctx.GetFunctionInfo(fnID)
		if info.BodyScope != nil {
			r.detectClosureClass(fnID, info, mod)
		}
		r.detectImpliedNewClass(fnID, info, mod)
		r.detectNestedClassTarget(info.IdentifierExpr, mod)
	}
}

func (r *Resolver) walkModuleScope(scope *cx.Scope, mod *cx.Module) {
	for _, item := range scope.Items {
		switch it := item.(type) {
		case *cx.AssignmentItem:
			r.detectDeriveCall(it, mod)
			r.detectSetmetatableSugar(it, mod)
			r.detectAtomUIFactory(it, mod)
			r.detectUnknownGlobalClass(it, mod)
			r.detectNestedClassTarget(it.Target, mod)
		case *cx.SubScopeItem:
			r.walkModuleScope(it.Scope, mod)
		}
	}
}

// --- Idiom 1: `X = Base:derive("Name")` ---

// detectDeriveCall matches spec §4.4 idiom 1: RHS is a 2-argument call
// whose base is a colon-member `derive`, second argument a string literal.
func (r *Resolver) detectDeriveCall(a *cx.AssignmentItem, mod *cx.Module) {
	op, ok := a.Source.(*cx.OperationExpr)
	if !ok || op.Operator != "call" || len(op.Arguments) != 3 {
		return
	}
	mem, ok := op.Arguments[0].(*cx.MemberExpr)
	if !ok || mem.Member != "derive" {
		return
	}
	nameLit, ok := op.Arguments[2].(*cx.LiteralExpr)
	if !ok || nameLit.LuaKind != cx.LiteralString {
		return
	}

	baseTableID, ok := tableIDOf(r.ctx, mem.BaseExpr)
	if !ok {
		return
	}

	className := classNameForTarget(r.ctx, a.Target, mod)
	tableID := r.promoteTarget(a.Target, className, mod)
	info := r.ctx.GetTableInfo(tableID)
	info.OriginalBase = tableNameHint(r.ctx, baseTableID)
	info.OriginalDeriveName = className
	info.ContainerID = baseTableID
	info.DefiningModule = mod.FileID

	if a.Local {
		info.IsLocalClass = true
		info.IsLocalDeriveClass = true
		info.ClassName = lastSegment(mod.FileID) + "_" + className
	} else {
		info.ClassName = className
	}
	registerClass(mod, tableID)
}

// --- Idiom 2: setmetatable(a, b) / __index ---

// detectSetmetatableSugar matches spec §4.4 idiom 2: setmetatable(a, b)
// where b is a class table or a literal `{__index = classTable}`.
func (r *Resolver) detectSetmetatableSugar(a *cx.AssignmentItem, mod *cx.Module) {
	op, ok := a.Source.(*cx.OperationExpr)
	if !ok || op.Operator != "call" || len(op.Arguments) != 3 {
		return
	}
	if callee, ok := op.Arguments[0].(*cx.ReferenceExpr); !ok || callee.ID.Name() != "setmetatable" {
		// setmetatable is always a plain identifier call, never colon-sugar,
		// so a 3-argument call whose callee isn't a bare reference named
		// setmetatable isn't this.
		return
	}
	instanceArg := op.Arguments[1]
	classArg := op.Arguments[2]

	classTableID, ok := resolveIndexMetatable(r.ctx, classArg)
	if !ok {
		return
	}

	instanceID := r.ctx.NewInstanceID(instanceNameHint(a.Target))
	classInfo := r.ctx.GetTableInfo(classTableID)

	if instTableID, ok := tableIDOf(r.ctx, instanceArg); ok {
		// Any fields already recorded on the instance table become
		// instance-scoped fields of the class (spec §4.4 "copy any
		// already-recorded fields of a into the class's definition map
		// as instance fields").
		instInfo := r.ctx.GetTableInfo(instTableID)
		for field, defs := range instInfo.Definitions {
			classInfo.Definitions[field] = append(classInfo.Definitions[field], defs...)
		}
		instInfo.InstanceID = instanceID
	}

	classInfo.InstanceName = instanceNameHint(a.Target)
	classInfo.InstanceID = instanceID
}

// resolveIndexMetatable extracts the class table a metatable argument
// denotes: either the table itself, or a `{__index = classTable}` literal.
func resolveIndexMetatable(c *cx.Context, e cx.Expr) (ids.ID, bool) {
	if tid, ok := tableIDOf(c, e); ok {
		if defs, ok := c.GetTableInfo(tid).Definitions["__index"]; ok && len(defs) > 0 {
			if inner, ok := tableIDOf(c, defs[len(defs)-1].Expression); ok {
				return inner, true
			}
		}
		return tid, true
	}
	return "", false
}

// --- Idiom 3: closure-based class ---

// detectClosureClass matches spec §4.4 idiom 3: the function body declares
// `local self = {}` (or `local publ = {}`, or `local self = Base.new(...)`)
// and contains at least one `self.X = function...` definition, and the
// declaration's identifier is a member expression on a reference.
func (r *Resolver) detectClosureClass(fnID ids.ID, info *cx.FunctionInfo, mod *cx.Module) {
	mem, ok := info.IdentifierExpr.(*cx.MemberExpr)
	if !ok {
		return
	}

	ctorLocalID, ok := r.findLocalTableDecl(info.BodyScope)
	if !ok {
		return
	}
	if !hasMethodAssignedOn(info.BodyScope, ctorLocalID) {
		return
	}

	containerID, ok := tableIDOf(r.ctx, mem.BaseExpr)
	if !ok {
		return
	}
	container := r.ctx.GetTableInfo(containerID)

	className := classNameFor(mem.Member, mod, info.Name)

	tableID, _ := tableIDOf(r.ctx, &cx.ReferenceExpr{ID: ctorLocalID})
	if tableID == "" {
		tableID = r.ctx.NewTableID(className)
	}
	classInfo := r.ctx.GetTableInfo(tableID)
	classInfo.ClassName = className
	classInfo.IsClosureClass = true
	classInfo.ContainerID = containerID
	classInfo.DefiningModule = mod.FileID

	// spec §4.4 idiom 3: "if there is already a class with that name on the
	// container table, mark the container emitAsTable to suppress duplicate
	// emission" — detected by the container already holding a field under
	// className that resolves to a table already registered as a class.
	for _, d := range container.Definitions[className] {
		if tid, ok := tableIDOf(r.ctx, d.Expression); ok && mod.SeenClasses[tid] {
			container.EmitAsTable = true
			break
		}
	}

	info.IsConstructor = true
	info.ReturnTypes = []cx.TypeSet{cx.NewTypeSet(string(cx.TypeTable))}
	info.MinReturns = 1

	registerClass(mod, tableID)
}

func (r *Resolver) findLocalTableDecl(scope *cx.Scope) (ids.ID, bool) {
	for _, item := range scope.Items {
		a, ok := item.(*cx.AssignmentItem)
		if !ok || !a.Local {
			continue
		}
		ref, ok := a.Target.(*cx.ReferenceExpr)
		if !ok {
			continue
		}
		name, ok := scope.IDToName[ref.ID]
		if !ok || (name != "self" && name != "publ") {
			continue
		}
		if lit, ok := a.Source.(*cx.LiteralExpr); ok && lit.LuaKind == cx.LiteralTable {
			return ref.ID, true
		}
		if op, ok := a.Source.(*cx.OperationExpr); ok && op.Operator == "call" {
			return ref.ID, true
		}
	}
	return "", false
}

func hasMethodAssignedOn(scope *cx.Scope, localID ids.ID) bool {
	for _, item := range scope.Items {
		a, ok := item.(*cx.AssignmentItem)
		if !ok {
			continue
		}
		mem, ok := a.Target.(*cx.MemberExpr)
		if !ok {
			continue
		}
		ref, ok := mem.BaseExpr.(*cx.ReferenceExpr)
		if !ok || ref.ID != localID {
			continue
		}
		if lit, ok := a.Source.(*cx.LiteralExpr); ok && lit.LuaKind == cx.LiteralFunction {
			return true
		}
	}
	return false
}

func classNameFor(identifierMember string, mod *cx.Module, fnName string) string {
	if fnName == "new" || fnName == "getInstance" {
		return identifierMember
	}
	return lastSegment(mod.FileID)
}

// --- Idiom 4: implied-from-:new ---

// detectImpliedNewClass matches spec §4.4 idiom 4: a :new method defined
// on a table that no other idiom has already promoted to a class gets the
// base table promoted (named by the base's own name) and the method
// flagged as its constructor.
func (r *Resolver) detectImpliedNewClass(fnID ids.ID, info *cx.FunctionInfo, mod *cx.Module) {
	if !isConstructorName(info.Name) {
		return
	}
	mem, ok := info.IdentifierExpr.(*cx.MemberExpr)
	if !ok {
		return
	}
	baseID, ok := tableIDOf(r.ctx, mem.BaseExpr)
	if !ok {
		return
	}
	base := r.ctx.GetTableInfo(baseID)
	if base.ClassName != "" || mod.SeenClasses[baseID] {
		return // idiom 1/2/3/6 already promoted this table
	}

	base.ClassName = classNameForTarget(r.ctx, mem.BaseExpr, mod)
	base.DefiningModule = mod.FileID
	info.IsConstructor = true
	info.ReturnTypes = []cx.TypeSet{cx.NewTypeSet(string(cx.TypeTable))}
	info.MinReturns = 1
	registerClass(mod, baseID)
}

func isConstructorName(name string) bool {
	return name == "new" || name == "New" || strings.HasPrefix(name, "new")
}

// --- Idiom 5: nested-function-in-class ---

// detectNestedClassTarget matches spec §4.4 idiom 5: a function assigned
// into a non-class table that is itself a field of a known class promotes
// the container to a nested class named after the outer class plus the
// field. target is either an AssignmentItem's LHS or a declaration-style
// function's IdentifierExpr, so this fires for both syntax forms.
func (r *Resolver) detectNestedClassTarget(target cx.Expr, mod *cx.Module) {
	mem, ok := target.(*cx.MemberExpr)
	if !ok {
		return
	}
	outer, ok := mem.BaseExpr.(*cx.MemberExpr)
	if !ok {
		return
	}
	outerBaseID, ok := tableIDOf(r.ctx, outer.BaseExpr)
	if !ok {
		return
	}
	outerClass := r.ctx.GetTableInfo(outerBaseID)
	if outerClass.ClassName == "" {
		return // container isn't itself a class
	}
	nestedID, ok := tableIDOf(r.ctx, outer)
	if !ok {
		return
	}
	nested := r.ctx.GetTableInfo(nestedID)
	if nested.ClassName != "" {
		return // already a class via some other idiom
	}

	nested.ClassName = outerClass.ClassName + "." + outer.Member
	nested.ContainerID = outerBaseID
	nested.DefiningModule = mod.FileID
	nested.IsLocalClass = outerClass.IsLocalClass
	registerClass(mod, nestedID)
}

// --- Idiom 6: UI-node factory calls ---

// detectAtomUIFactory matches spec §4.4 idiom 6: `Foo = A.__call({
// _ATOM_UI_CLASS = X, ... })` or `Foo = Parent({...})` where Parent is
// itself an AtomUI class.
func (r *Resolver) detectAtomUIFactory(a *cx.AssignmentItem, mod *cx.Module) {
	op, ok := a.Source.(*cx.OperationExpr)
	if !ok || op.Operator != "call" || len(op.Arguments) < 2 {
		return
	}
	callee := op.Arguments[0]
	argTableID, ok := tableIDOf(r.ctx, op.Arguments[len(op.Arguments)-1])
	if !ok {
		return
	}
	argInfo := r.ctx.GetTableInfo(argTableID)

	isFactory := false
	if mem, ok := callee.(*cx.MemberExpr); ok && mem.Member == "__call" {
		isFactory = true
	}
	if _, hasMarker := argInfo.Definitions["_ATOM_UI_CLASS"]; hasMarker {
		isFactory = true
	}
	if baseTableID, ok := tableIDOf(r.ctx, callee); ok && r.ctx.GetTableInfo(baseTableID).IsAtomUI {
		isFactory = true
		argInfo.ContainerID = baseTableID
	}
	if !isFactory {
		return
	}

	className := classNameForTarget(r.ctx, a.Target, mod)
	tableID := r.promoteTarget(a.Target, className, mod)
	info := r.ctx.GetTableInfo(tableID)
	info.ClassName = className
	info.IsAtomUI = true
	info.DefiningModule = mod.FileID
	if argInfo.ContainerID == "" {
		info.IsAtomUIBase = true
	}
	for field, defs := range argInfo.Definitions {
		info.Definitions[field] = append(info.Definitions[field], defs...)
	}
	registerClass(mod, tableID)
}

// --- Idiom 7: unknown-global classes ---

// detectUnknownGlobalClass matches spec §4.4 idiom 7: a method or field
// assigned on an unknown global reference at module scope gets a cached
// placeholder class table, marked isEmptyClass when it is created, that
// collects the assigned members. Resolve does not call MergePlaceholder,
// so a later full class definition for the same name does not absorb
// these members.
func (r *Resolver) detectUnknownGlobalClass(a *cx.AssignmentItem, mod *cx.Module) {
	mem, ok := a.Target.(*cx.MemberExpr)
	if !ok {
		return
	}
	ref, ok := mem.BaseExpr.(*cx.ReferenceExpr)
	if !ok {
		return
	}
	if ref.ID.Kind() != ids.KindLocal {
		return
	}
	if len(r.ctx.Definitions(ref.ID)) > 0 {
		return // not "unknown": it was defined somewhere already
	}

	name := mod.Scope.IDToName[ref.ID]
	if name == "" {
		return
	}

	placeholderID, existed := r.ctx.UnknownClass(name)
	if !existed {
		placeholderID = r.ctx.NewTableID(name)
		r.ctx.SetUnknownClass(name, placeholderID)
		info := r.ctx.GetTableInfo(placeholderID)
		info.ClassName = name
		info.IsEmptyClass = true
		info.DefiningModule = mod.FileID
		registerClass(mod, placeholderID)
	}
	info := r.ctx.GetTableInfo(placeholderID)
	info.Definitions[mem.Member] = append(info.Definitions[mem.Member], &cx.ExpressionInfo{Expression: a.Source, Index: a.Index})
}

// MergePlaceholder merges a placeholder class's recorded fields into a
// real class definition found later in the module for the same name
// (spec §4.4 idiom 7's merge step); treats an empty single-definition
// table as freely replaceable.
func (r *Resolver) MergePlaceholder(name string, realTableID ids.ID) {
	placeholderID, ok := r.ctx.UnknownClass(name)
	if !ok || placeholderID == realTableID {
		return
	}
	placeholder := r.ctx.GetTableInfo(placeholderID)
	real := r.ctx.GetTableInfo(realTableID)
	for field, defs := range placeholder.Definitions {
		real.Definitions[field] = append(real.Definitions[field], defs...)
	}
	placeholder.IsEmptyClass = true
}

// --- shared helpers ---

func (r *Resolver) promoteTarget(target cx.Expr, className string, mod *cx.Module) ids.ID {
	if tid, ok := tableIDOf(r.ctx, target); ok {
		return tid
	}
	return r.ctx.NewTableID(className)
}

func tableIDOf(c *cx.Context, e cx.Expr) (ids.ID, bool) {
	switch v := e.(type) {
	case *cx.LiteralExpr:
		if v.LuaKind == cx.LiteralTable {
			return v.TableID, true
		}
	case *cx.ReferenceExpr:
		if v.ID.Kind() == ids.KindTable {
			return v.ID, true
		}
		for _, d := range c.Definitions(v.ID) {
			if tid, ok := tableIDOf(c, d.Expression); ok {
				return tid, true
			}
		}
	case *cx.MemberExpr:
		if baseID, ok := tableIDOf(c, v.BaseExpr); ok {
			if defs, ok := c.GetTableInfo(baseID).Definitions[v.Member]; ok {
				for _, d := range defs {
					if tid, ok := tableIDOf(c, d.Expression); ok {
						return tid, true
					}
				}
			}
		}
	}
	return "", false
}

func tableNameHint(c *cx.Context, id ids.ID) string {
	if info := c.GetTableInfo(id); info.ClassName != "" {
		return info.ClassName
	}
	return id.String()
}

func classNameForTarget(c *cx.Context, target cx.Expr, mod *cx.Module) string {
	switch t := target.(type) {
	case *cx.MemberExpr:
		return classNameForTarget(c, t.BaseExpr, mod) + "." + t.Member
	case *cx.ReferenceExpr:
		if name, ok := mod.Scope.IDToName[t.ID]; ok {
			return name
		}
		return t.ID.String()
	default:
		return "Unknown"
	}
}

func instanceNameHint(target cx.Expr) string {
	if ref, ok := target.(*cx.ReferenceExpr); ok {
		return string(ref.ID)
	}
	return "instance"
}

func registerClass(mod *cx.Module, tableID ids.ID) {
	if mod.SeenClasses[tableID] {
		return
	}
	mod.SeenClasses[tableID] = true
	mod.Classes = append(mod.Classes, tableID)
}

func lastSegment(fileID string) string {
	i := strings.LastIndex(fileID, "/")
	if i < 0 {
		return fileID
	}
	return fileID[i+1:]
}
