// Package scopereader implements the Scope & Expression Reader (spec §4.2,
// component B): walks a parsed chunk statement by statement, binds locals
// and parameters to synthetic IDs, normalizes assignments (multi-return
// unpacking, require-assignment), and emits the usage-taxonomy facts the
// type resolver narrows against. `local o = Base.new(self, ...)` is not
// rewritten into a setmetatable form; it is read as a generic call.
//
// Grounded on the teacher's internal/parser/scope.go (parent-linked Scope,
// Add/Exists) generalized from "is this symbol declared" to "which
// synthetic ID does this name currently denote", and on
// internal/parser/engine.go's kind-dispatch walk (no visitor interface).
package scopereader

import (
	"strings"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/luast"
)

// Reader walks one module's chunk against a shared Context.
type Reader struct {
	ctx     *cx.Context
	fileID  string
	module  *cx.Module
	counter int
}

// NewReader prepares a Reader for fileID; callers must call
// ctx.SetCurrentReadingModule(fileID) first (spec §4.2's per-module reset).
func NewReader(ctx *cx.Context, fileID string) *Reader {
	return &Reader{ctx: ctx, fileID: fileID, module: cx.NewModule(fileID)}
}

// Read walks chunk's top-level body inside a fresh module scope and returns
// the populated Module, which the caller installs with ctx.SetModule.
func (r *Reader) Read(chunk *luast.Chunk) *cx.Module {
	scope := cx.NewScope(cx.ScopeModule, r.scopeID("module"), nil)
	r.module.Scope = scope
	r.readBlock(chunk.Body, scope)
	return r.module
}

func (r *Reader) scopeID(tag string) string {
	r.counter++
	return r.fileID + "#" + tag + "#" + itoa(r.counter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// readBlock dispatches every statement in body (spec §4.2's per-statement
// walk); it is the non-visitor switch design note §9 requires.
func (r *Reader) readBlock(body []luast.Node, scope *cx.Scope) {
	for _, n := range body {
		r.readStatement(n, scope)
	}
}

func (r *Reader) readStatement(n luast.Node, scope *cx.Scope) {
	switch s := n.(type) {
	case *luast.LocalStatement:
		targets := make([]luast.Node, 0, len(namesOf(s.Names)))
		for _, name := range namesOf(s.Names) {
			targets = append(targets, &luast.Identifier{Name: name})
		}
		r.readAssignment(targets, s.Init, scope, true)
	case *luast.AssignmentStatement:
		r.readAssignment(s.Variables, s.Init, scope, false)
	case *luast.ReturnStatement:
		args := r.readExprList(s.Arguments, scope)
		scope.Items = append(scope.Items, &cx.ReturnsItem{Arguments: args})
	case *luast.IfStatement:
		for _, clause := range s.Clauses {
			r.readClause(clause, scope)
		}
	case *luast.WhileStatement:
		r.readExpr(s.Condition, scope)
		r.readNestedBlock(s.Body, scope, "while")
	case *luast.RepeatStatement:
		inner := r.pushBlock(scope, "repeat")
		r.readBlock(s.Body, inner)
		r.readExpr(s.Condition, inner)
	case *luast.DoStatement:
		r.readNestedBlock(s.Body, scope, "do")
	case *luast.ForNumericStatement:
		r.readExpr(s.Start, scope)
		r.readExpr(s.End, scope)
		if s.Step != nil {
			r.readExpr(s.Step, scope)
		}
		inner := r.pushBlock(scope, "fornum")
		id := r.ctx.NewLocalID(s.Variable)
		inner.Bind(s.Variable, id)
		ref := &cx.ReferenceExpr{ID: id}
		r.ctx.Usage(ref).InNumericFor = true
		inner.Items = append(inner.Items, &cx.UsageItem{Expression: ref, Record: r.ctx.Usage(ref)})
		r.readBlock(s.Body, inner)
	case *luast.ForGenericStatement:
		for _, it := range s.Iterators {
			r.readExpr(it, scope)
		}
		inner := r.pushBlock(scope, "forin")
		for _, v := range s.Variables {
			inner.Bind(v, r.ctx.NewLocalID(v))
		}
		r.readBlock(s.Body, inner)
	case *luast.FunctionDeclaration:
		r.readFunctionDeclaration(s, scope)
	case *luast.CallStatement:
		r.readExpr(s.Expression, scope)
	}
}

func (r *Reader) readClause(n luast.Node, scope *cx.Scope) {
	switch c := n.(type) {
	case *luast.IfClause:
		r.readExpr(c.Condition, scope)
		r.readNestedBlock(c.Body, scope, "if")
	case *luast.ElseifClause:
		r.readExpr(c.Condition, scope)
		r.readNestedBlock(c.Body, scope, "elseif")
	case *luast.ElseClause:
		r.readNestedBlock(c.Body, scope, "else")
	}
}

func (r *Reader) pushBlock(parent *cx.Scope, tag string) *cx.Scope {
	inner := cx.NewScope(cx.ScopeBlock, r.scopeID(tag), parent)
	parent.Items = append(parent.Items, &cx.SubScopeItem{Scope: inner})
	return inner
}

func (r *Reader) readNestedBlock(body []luast.Node, parent *cx.Scope, tag string) {
	inner := r.pushBlock(parent, tag)
	r.readBlock(body, inner)
}

// readAssignment is the normalization core of component B: it resolves
// multi-return unpacking and detects require(...) assignment before
// falling back to plain positional assignment. Base.new(self, ...) and
// setmetatable(...) sources get no special treatment here; they are
// recorded as ordinary call sources. targets may be identifiers (bound
// into scope) or member/index expressions (read for usage facts, never
// bound).
func (r *Reader) readAssignment(targets []luast.Node, init []luast.Node, scope *cx.Scope, local bool) {
	if len(init) == 1 {
		if req, ok := asRequireCall(init[0]); ok && len(targets) == 1 {
			if id, ok := targets[0].(*luast.Identifier); ok {
				boundID := r.bindName(id.Name, scope, local)
				scope.Items = append(scope.Items, &cx.RequireAssignmentItem{
					Target: &cx.ReferenceExpr{ID: boundID},
					Module: req,
				})
				return
			}
		}
		if len(targets) > 1 {
			// Multi-return unpacking: one source expression feeds every
			// target at its own 1-based return index (spec §4.2).
			source := r.readExpr(init[0], scope)
			for i, t := range targets {
				tgt := r.assignTarget(t, scope, local)
				index := i + 1
				r.recordDefinition(tgt, source, index, scope)
				scope.Items = append(scope.Items, &cx.AssignmentItem{
					Target: tgt,
					Source: source,
					Index:  index,
					Local:  local,
				})
			}
			return
		}
	}

	sources := r.readExprList(init, scope)
	for i, t := range targets {
		tgt := r.assignTarget(t, scope, local)
		var src cx.Expr
		if i < len(sources) {
			src = sources[i]
		}
		r.recordDefinition(tgt, src, 1, scope)
		scope.Items = append(scope.Items, &cx.AssignmentItem{
			Target: tgt,
			Source: src,
			Index:  1,
			Local:  local,
		})
	}
}

// recordDefinition feeds the definition map spec §3 describes: an
// identifier target's definition goes into the Context's global map keyed
// by its synthetic ID; a member target's definition goes into its base
// table's own Definitions map, marked as an instance field when the base
// is a self/instance reference (spec §4.4's idioms rely on these fields
// being there once a class table is identified).
func (r *Reader) recordDefinition(target, source cx.Expr, index int, scope *cx.Scope) {
	if source == nil {
		return
	}
	if lit, ok := source.(*cx.LiteralExpr); ok && lit.LuaKind == cx.LiteralFunction {
		// Assignment-form function literal (`T.m = function(...) end`):
		// attribute it to its target the same way `function T.m()` would,
		// so the class resolver's closure-class idiom sees an
		// IdentifierExpr/BodyScope pair regardless of declaration syntax.
		info := r.ctx.GetFunctionInfo(lit.FunctionID)
		if info.IdentifierExpr == nil {
			info.IdentifierExpr = target
			if mem, ok := target.(*cx.MemberExpr); ok {
				info.Name = mem.Member
				info.IsMethod = mem.Indexer == cx.MemberColon
			}
		}
	}

	switch t := target.(type) {
	case *cx.ReferenceExpr:
		if lit, ok := source.(*cx.LiteralExpr); ok && lit.LuaKind == cx.LiteralTable && !inFunctionScope(scope) {
			// A module-level table literal is reported under the first
			// name it is bound to unless it is later promoted to a class.
			if info := r.ctx.GetTableInfo(lit.TableID); info.OriginalName == "" {
				info.OriginalName = t.ID.Name()
			}
		}
		r.ctx.AddDefinition(t.ID, &cx.ExpressionInfo{
			Expression:     source,
			Index:          index,
			DefiningModule: r.fileID,
			FunctionLevel:  inFunctionScope(scope),
		})
	case *cx.MemberExpr:
		if tableID, ok := r.tableIDOf(t.BaseExpr); ok {
			info := r.ctx.GetTableInfo(tableID)
			info.Definitions[t.Member] = append(info.Definitions[t.Member], &cx.ExpressionInfo{
				Expression:     source,
				Index:          index,
				Instance:       isInstanceBase(t.BaseExpr),
				DefiningModule: r.fileID,
				FunctionLevel:  inFunctionScope(scope),
			})
		}
	}
}

func isInstanceBase(e cx.Expr) bool {
	ref, ok := e.(*cx.ReferenceExpr)
	return ok && (ref.ID.Kind() == ids.KindSelf || ref.ID.Kind() == ids.KindInstance)
}

func inFunctionScope(scope *cx.Scope) bool {
	for s := scope; s != nil; s = s.Parent {
		if s.Kind == cx.ScopeFunction {
			return true
		}
	}
	return false
}

// tableIDOf resolves e to the table ID it currently denotes, following
// bound locals/globals through the definition map and member chains — the
// same chase the type resolver and class resolver each run, scoped here to
// deciding where a member-assignment's definition belongs.
func (r *Reader) tableIDOf(e cx.Expr) (ids.ID, bool) {
	switch v := e.(type) {
	case *cx.LiteralExpr:
		if v.LuaKind == cx.LiteralTable {
			return v.TableID, true
		}
	case *cx.ReferenceExpr:
		if v.ID.Kind() == ids.KindTable || v.ID.Kind() == ids.KindSelf || v.ID.Kind() == ids.KindInstance {
			return v.ID, true
		}
		for _, d := range r.ctx.Definitions(v.ID) {
			if tid, ok := r.tableIDOf(d.Expression); ok {
				return tid, true
			}
		}
	case *cx.MemberExpr:
		if baseID, ok := r.tableIDOf(v.BaseExpr); ok {
			if defs, ok := r.ctx.GetTableInfo(baseID).Definitions[v.Member]; ok {
				for _, d := range defs {
					if tid, ok := r.tableIDOf(d.Expression); ok {
						return tid, true
					}
				}
			}
		}
	}
	return "", false
}

// assignTarget resolves an assignment target to its Expr form: identifiers
// get bound into scope, member/index targets are read for usage facts and
// flagged as index-assignment sites (spec §4.3's supportsIndexAssignment).
func (r *Reader) assignTarget(t luast.Node, scope *cx.Scope, local bool) cx.Expr {
	switch tt := t.(type) {
	case *luast.Identifier:
		id := r.bindName(tt.Name, scope, local)
		return &cx.ReferenceExpr{ID: id}
	case *luast.MemberExpression:
		base := r.readExpr(tt.BaseExpr, scope)
		r.ctx.Usage(base).SupportsIndexAssignment = true
		return &cx.MemberExpr{BaseExpr: base, Member: tt.Member, Indexer: cx.MemberIndexer(tt.Indexer)}
	case *luast.IndexExpression:
		base := r.readExpr(tt.BaseExpr, scope)
		r.ctx.Usage(base).SupportsIndexAssignment = true
		idx := r.readExpr(tt.Index, scope)
		return &cx.IndexExpr{BaseExpr: base, IndexExpr: idx}
	default:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNil}
	}
}

func (r *Reader) bindName(name string, scope *cx.Scope, local bool) ids.ID {
	if !local {
		if existing, ok := scope.Lookup(name); ok {
			return existing
		}
	}
	id := r.ctx.NewLocalID(name)
	scope.Bind(name, id)
	return id
}

// readFunctionDeclaration covers both `function Name(...)`/`function
// t.Name(...)`/`function t:Name(...)` and binds self when the declaration
// uses colon syntax (spec §4.2 "method sugar binds self as an implicit
// first parameter").
func (r *Reader) readFunctionDeclaration(s *luast.FunctionDeclaration, scope *cx.Scope) {
	fnName := ""
	isMethod := false
	var identifierExpr cx.Expr
	if mem, ok := s.Identifier.(*luast.MemberExpression); ok {
		fnName = mem.Member
		isMethod = mem.Indexer == luast.IndexerColon
		base := r.readExpr(mem.BaseExpr, scope)
		identifierExpr = &cx.MemberExpr{BaseExpr: base, Member: mem.Member, Indexer: cx.MemberIndexer(mem.Indexer)}
	} else if id, ok := s.Identifier.(*luast.Identifier); ok {
		fnName = id.Name
		identifierExpr = r.readExpr(id, scope)
	}

	fnID := r.ctx.GetFunctionID(fnName)
	info := r.ctx.GetFunctionInfo(fnID)
	info.Name = fnName
	info.IsMethod = isMethod
	info.IdentifierExpr = identifierExpr

	inner := cx.NewScope(cx.ScopeFunction, r.scopeID("fn:"+fnName), scope)
	info.BodyScope = inner
	if isMethod {
		selfID := r.ctx.NewSelfID("self")
		inner.Bind("self", selfID)
		info.ParameterIDs = append(info.ParameterIDs, selfID)
		info.ParameterNames = append(info.ParameterNames, "self")
		info.ParameterTypes = append(info.ParameterTypes, cx.NewTypeSet())
	}
	for _, p := range s.Parameters {
		pid := r.ctx.NewParameterID(p)
		inner.Bind(p, pid)
		info.ParameterIDs = append(info.ParameterIDs, pid)
		info.ParameterNames = append(info.ParameterNames, p)
		info.ParameterTypes = append(info.ParameterTypes, cx.NewTypeSet())
	}

	info.IsConstructor = isConstructorName(fnName)
	r.module.Functions = append(r.module.Functions, fnID)

	if identifierExpr != nil {
		fnLiteral := &cx.LiteralExpr{LuaKind: cx.LiteralFunction, FunctionID: fnID, Parameters: info.ParameterNames, IsMethod: isMethod}
		r.recordDefinition(identifierExpr, fnLiteral, 1, scope)
	}

	scope.Items = append(scope.Items, &cx.FunctionDefItem{FunctionID: fnID})
	r.readBlock(s.Body, inner)
}

func isConstructorName(name string) bool {
	return name == "new" || name == "New" || strings.HasPrefix(name, "new")
}

// --- expressions ---

func (r *Reader) readExprList(nodes []luast.Node, scope *cx.Scope) []cx.Expr {
	out := make([]cx.Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, r.readExpr(n, scope))
	}
	return out
}

// readExpr translates an AST expression node into the tagged-union Expr
// model, recording usage facts on the way out (spec §4.2's usage taxonomy).
func (r *Reader) readExpr(n luast.Node, scope *cx.Scope) cx.Expr {
	switch e := n.(type) {
	case nil:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNil}
	case *luast.Identifier:
		if id, ok := scope.Lookup(e.Name); ok {
			return &cx.ReferenceExpr{ID: id}
		}
		id := r.ctx.NewLocalID(e.Name)
		scope.Bind(e.Name, id)
		return &cx.ReferenceExpr{ID: id}
	case *luast.StringLiteral:
		return &cx.LiteralExpr{LuaKind: cx.LiteralString, StringValue: e.Value}
	case *luast.NumericLiteral:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNumber, NumberValue: e.Value}
	case *luast.BooleanLiteral:
		return &cx.LiteralExpr{LuaKind: cx.LiteralBoolean, BoolValue: e.Value}
	case *luast.NilLiteral:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNil}
	case *luast.VarargLiteral:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNil}
	case *luast.TableConstructorExpression:
		return r.readTableConstructor(e, scope)
	case *luast.MemberExpression:
		base := r.readExpr(e.BaseExpr, scope)
		r.ctx.Usage(base).SupportsIndexing = true
		return &cx.MemberExpr{BaseExpr: base, Member: e.Member, Indexer: cx.MemberIndexer(e.Indexer)}
	case *luast.IndexExpression:
		base := r.readExpr(e.BaseExpr, scope)
		r.ctx.Usage(base).SupportsIndexing = true
		idx := r.readExpr(e.Index, scope)
		return &cx.IndexExpr{BaseExpr: base, IndexExpr: idx}
	case *luast.UnaryExpression:
		arg := r.readExpr(e.Argument, scope)
		if e.Operator == "#" {
			r.ctx.Usage(arg).SupportsLength = true
		} else if e.Operator == "-" {
			r.ctx.Usage(arg).SupportsMath = true
		}
		return &cx.OperationExpr{Operator: e.Operator, Arguments: []cx.Expr{arg}}
	case *luast.BinaryExpression:
		left := r.readExpr(e.Left, scope)
		right := r.readExpr(e.Right, scope)
		if e.Operator == ".." {
			r.ctx.Usage(left).SupportsConcatenation = true
			r.ctx.Usage(right).SupportsConcatenation = true
		} else if isArithmeticOp(e.Operator) {
			r.ctx.Usage(left).SupportsMath = true
			r.ctx.Usage(right).SupportsMath = true
		}
		return &cx.OperationExpr{Operator: e.Operator, Arguments: []cx.Expr{left, right}}
	case *luast.LogicalExpression:
		left := r.readExpr(e.Left, scope)
		right := r.readExpr(e.Right, scope)
		return &cx.OperationExpr{Operator: e.Operator, Arguments: []cx.Expr{left, right}}
	case *luast.CallExpression:
		return r.readCall(e, scope)
	case *luast.TableCallExpression:
		base := r.readExpr(e.BaseExpr, scope)
		arg := r.readExpr(e.Argument, scope)
		r.ctx.Usage(base).Arguments = []cx.Expr{arg}
		return &cx.OperationExpr{Operator: "call", Arguments: []cx.Expr{base, arg}}
	case *luast.StringCallExpression:
		base := r.readExpr(e.BaseExpr, scope)
		arg := r.readExpr(e.Argument, scope)
		r.ctx.Usage(base).Arguments = []cx.Expr{arg}
		return &cx.OperationExpr{Operator: "call", Arguments: []cx.Expr{base, arg}}
	case *luast.FunctionDeclaration:
		return r.readFunctionLiteral(e, scope)
	default:
		return &cx.LiteralExpr{LuaKind: cx.LiteralNil}
	}
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "^", "//":
		return true
	default:
		return false
	}
}

// readCall recognizes require("...") calls; every other call, including
// setmetatable(...) and Base.new(self, ...), becomes a generic call.
func (r *Reader) readCall(e *luast.CallExpression, scope *cx.Scope) cx.Expr {
	if mod, ok := asRequireCallExpr(e, scope); ok {
		return &cx.RequireExpr{Module: mod}
	}

	base := r.readExpr(e.BaseExpr, scope)
	args := r.readExprList(e.Arguments, scope)
	r.ctx.Usage(base).Arguments = args

	// Colon-sugar calls (`recv:method(args)`) pass recv as an explicit
	// leading argument in the normalized call form, matching spec §4.4
	// idiom 1's "two arguments" description of `Base:derive("Name")`.
	if mem, ok := base.(*cx.MemberExpr); ok && mem.Indexer == cx.MemberColon {
		args = append([]cx.Expr{mem.BaseExpr}, args...)
	}

	return &cx.OperationExpr{Operator: "call", Arguments: append([]cx.Expr{base}, args...)}
}

func (r *Reader) readFunctionLiteral(e *luast.FunctionDeclaration, scope *cx.Scope) cx.Expr {
	fnID := r.ctx.GetFunctionID("")
	info := r.ctx.GetFunctionInfo(fnID)

	inner := cx.NewScope(cx.ScopeFunction, r.scopeID("fnlit"), scope)
	if e.Identifier != nil {
		if mem, ok := e.Identifier.(*luast.MemberExpression); ok && mem.Indexer == luast.IndexerColon {
			selfID := r.ctx.NewSelfID("self")
			inner.Bind("self", selfID)
			info.ParameterIDs = append(info.ParameterIDs, selfID)
			info.ParameterNames = append(info.ParameterNames, "self")
			info.ParameterTypes = append(info.ParameterTypes, cx.NewTypeSet())
		}
	}
	for _, p := range e.Parameters {
		pid := r.ctx.NewParameterID(p)
		inner.Bind(p, pid)
		info.ParameterIDs = append(info.ParameterIDs, pid)
		info.ParameterNames = append(info.ParameterNames, p)
		info.ParameterTypes = append(info.ParameterTypes, cx.NewTypeSet())
	}
	info.BodyScope = inner
	r.module.Functions = append(r.module.Functions, fnID)
	r.readBlock(e.Body, inner)

	return &cx.LiteralExpr{LuaKind: cx.LiteralFunction, FunctionID: fnID, Parameters: info.ParameterNames}
}

func (r *Reader) readTableConstructor(e *luast.TableConstructorExpression, scope *cx.Scope) cx.Expr {
	tableID := r.ctx.NewTableID("")
	info := r.ctx.GetTableInfo(tableID)
	info.DefiningModule = r.fileID
	r.module.Tables = append(r.module.Tables, tableID)

	var positional []*cx.ExpressionInfo
	for _, field := range e.Fields {
		switch fld := field.(type) {
		case *luast.TableValue:
			val := r.readExpr(fld.Value, scope)
			einfo := &cx.ExpressionInfo{Expression: val, FromLiteral: true}
			positional = append(positional, einfo)
		case *luast.TableKey:
			r.readExpr(fld.Key, scope)
			val := r.readExpr(fld.Value, scope)
			info.Definitions["[computed]"] = append(info.Definitions["[computed]"], &cx.ExpressionInfo{Expression: val, FromLiteral: true})
		case *luast.TableKeyString:
			val := r.readExpr(fld.Value, scope)
			info.Definitions[fld.Key] = append(info.Definitions[fld.Key], &cx.ExpressionInfo{Expression: val, FromLiteral: true})
		}
	}
	r.ctx.SetTableLiteralFields(tableID, positional)

	return &cx.LiteralExpr{LuaKind: cx.LiteralTable, TableID: tableID}
}

// --- require detection shared with readAssignment / readCall ---

func asRequireCall(n luast.Node) (string, bool) {
	call, ok := n.(*luast.CallExpression)
	if !ok {
		return "", false
	}
	id, ok := call.BaseExpr.(*luast.Identifier)
	if !ok || id.Name != "require" {
		return "", false
	}
	if len(call.Arguments) != 1 {
		return "", false
	}
	lit, ok := call.Arguments[0].(*luast.StringLiteral)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

func asRequireCallExpr(e *luast.CallExpression, scope *cx.Scope) (string, bool) {
	id, ok := e.BaseExpr.(*luast.Identifier)
	if !ok || id.Name != "require" {
		return "", false
	}
	if _, shadowed := scope.Lookup("require"); shadowed {
		return "", false
	}
	if len(e.Arguments) != 1 {
		return "", false
	}
	lit, ok := e.Arguments[0].(*luast.StringLiteral)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

func namesOf(names *[]string) []string {
	if names == nil {
		return nil
	}
	return *names
}
