// Package depgraph implements the Dependency Resolver (spec §4.1,
// component A): a no-full-analysis scan for each file's global reads,
// global writes, and require() targets, followed by a deterministic
// ordering pass.
//
// Grounded on the teacher's internal/graph (adjacency bookkeeping,
// cycle-aware worklist) and internal/resolver (alias/heuristic symbol
// matching) — reshaped from "which Go/Python module imports which" into
// "which file must be analyzed before which".
package depgraph

import "github.com/PZ-Umbrella/pz-lua-stubgen/internal/luast"

// Facts holds the three sets spec §4.1 computes per file, plus bookkeeping
// needed for alias-aware require resolution.
type Facts struct {
	ID       string
	Reads    map[string]bool
	Writes   map[string]bool
	Requires []string // in source order; alias-unresolved raw strings
}

func newFacts(id string) *Facts {
	return &Facts{
		ID:     id,
		Reads:  make(map[string]bool),
		Writes: make(map[string]bool),
	}
}

// scanScope is the mini lexical-scope stack used only for the quick,
// non-full-analysis global/read/write classification in this package —
// distinct from (and much simpler than) internal/scopereader.Scope, which
// drives the real Scope & Expression reader (component B).
type scanScope struct {
	locals map[string]bool
	parent *scanScope
}

func newScanScope(parent *scanScope) *scanScope {
	return &scanScope{locals: make(map[string]bool), parent: parent}
}

func (s *scanScope) bind(name string) { s.locals[name] = true }

func (s *scanScope) isLocal(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.locals[name] {
			return true
		}
	}
	return false
}

// Scan computes Facts for a single parsed file. atModuleScope tracks
// whether the statement being visited is a direct child of the chunk, since
// spec §4.1 restricts "writes" to module-scope assignments.
func Scan(id string, chunk *luast.Chunk) *Facts {
	f := newFacts(id)
	root := newScanScope(nil)
	scanBlock(f, chunk.Body, root, true)
	return f
}

func scanBlock(f *Facts, body []luast.Node, scope *scanScope, atModuleScope bool) {
	for _, stmt := range body {
		scanStatement(f, stmt, scope, atModuleScope)
	}
}

func scanStatement(f *Facts, n luast.Node, scope *scanScope, atModuleScope bool) {
	switch s := n.(type) {
	case *luast.LocalStatement:
		for _, init := range s.Init {
			scanExpr(f, init, scope)
		}
		if s.Names != nil {
			for _, name := range *s.Names {
				scope.bind(name)
			}
		}
	case *luast.AssignmentStatement:
		for _, init := range s.Init {
			scanExpr(f, init, scope)
		}
		for _, target := range s.Variables {
			scanAssignmentTarget(f, target, scope, atModuleScope)
		}
	case *luast.ReturnStatement:
		for _, arg := range s.Arguments {
			scanExpr(f, arg, scope)
		}
	case *luast.IfStatement:
		for _, clause := range s.Clauses {
			inner := newScanScope(scope)
			switch c := clause.(type) {
			case *luast.IfClause:
				scanExpr(f, c.Condition, scope)
				scanBlock(f, c.Body, inner, false)
			case *luast.ElseifClause:
				scanExpr(f, c.Condition, scope)
				scanBlock(f, c.Body, inner, false)
			case *luast.ElseClause:
				scanBlock(f, c.Body, inner, false)
			}
		}
	case *luast.WhileStatement:
		scanExpr(f, s.Condition, scope)
		scanBlock(f, s.Body, newScanScope(scope), false)
	case *luast.RepeatStatement:
		inner := newScanScope(scope)
		scanBlock(f, s.Body, inner, false)
		scanExpr(f, s.Condition, inner)
	case *luast.DoStatement:
		scanBlock(f, s.Body, newScanScope(scope), false)
	case *luast.ForNumericStatement:
		scanExpr(f, s.Start, scope)
		scanExpr(f, s.End, scope)
		if s.Step != nil {
			scanExpr(f, s.Step, scope)
		}
		inner := newScanScope(scope)
		inner.bind(s.Variable)
		scanBlock(f, s.Body, inner, false)
	case *luast.ForGenericStatement:
		for _, it := range s.Iterators {
			scanExpr(f, it, scope)
		}
		inner := newScanScope(scope)
		for _, v := range s.Variables {
			inner.bind(v)
		}
		scanBlock(f, s.Body, inner, false)
	case *luast.FunctionDeclaration:
		if s.Identifier != nil {
			scanAssignmentTarget(f, s.Identifier, scope, atModuleScope && s.IsLocal == false)
		}
		inner := newScanScope(scope)
		for _, p := range s.Parameters {
			inner.bind(p)
		}
		scanBlock(f, s.Body, inner, false)
	case *luast.CallStatement:
		scanExpr(f, s.Expression, scope)
	}
}

func scanAssignmentTarget(f *Facts, target luast.Node, scope *scanScope, atModuleScope bool) {
	switch t := target.(type) {
	case *luast.Identifier:
		if atModuleScope && !scope.isLocal(t.Name) {
			f.Writes[t.Name] = true
		}
	case *luast.MemberExpression:
		scanExpr(f, t.BaseExpr, scope)
	case *luast.IndexExpression:
		scanExpr(f, t.BaseExpr, scope)
		scanExpr(f, t.Index, scope)
	}
}

func scanExpr(f *Facts, n luast.Node, scope *scanScope) {
	switch e := n.(type) {
	case nil:
		return
	case *luast.Identifier:
		if !scope.isLocal(e.Name) {
			f.Reads[e.Name] = true
		}
	case *luast.MemberExpression:
		scanExpr(f, e.BaseExpr, scope)
	case *luast.IndexExpression:
		scanExpr(f, e.BaseExpr, scope)
		scanExpr(f, e.Index, scope)
	case *luast.UnaryExpression:
		scanExpr(f, e.Argument, scope)
	case *luast.BinaryExpression:
		scanExpr(f, e.Left, scope)
		scanExpr(f, e.Right, scope)
	case *luast.LogicalExpression:
		scanExpr(f, e.Left, scope)
		scanExpr(f, e.Right, scope)
	case *luast.CallExpression:
		if isRequireCall(e, scope) {
			recordRequire(f, e.Arguments)
			return
		}
		scanExpr(f, e.BaseExpr, scope)
		for _, a := range e.Arguments {
			scanExpr(f, a, scope)
		}
	case *luast.TableCallExpression:
		scanExpr(f, e.BaseExpr, scope)
		scanExpr(f, e.Argument, scope)
	case *luast.StringCallExpression:
		scanExpr(f, e.BaseExpr, scope)
	case *luast.TableConstructorExpression:
		for _, field := range e.Fields {
			switch fld := field.(type) {
			case *luast.TableValue:
				scanExpr(f, fld.Value, scope)
			case *luast.TableKey:
				scanExpr(f, fld.Key, scope)
				scanExpr(f, fld.Value, scope)
			case *luast.TableKeyString:
				scanExpr(f, fld.Value, scope)
			}
		}
	case *luast.FunctionDeclaration:
		inner := newScanScope(scope)
		for _, p := range e.Parameters {
			inner.bind(p)
		}
		scanBlock(f, e.Body, inner, false)
	}
}

func isRequireCall(e *luast.CallExpression, scope *scanScope) bool {
	id, ok := e.BaseExpr.(*luast.Identifier)
	return ok && id.Name == "require" && !scope.isLocal("require")
}

// recordRequire appends the required module name when it is syntactically
// resolvable (spec §4.1: "string arguments to the require builtin when
// syntactically resolvable").
func recordRequire(f *Facts, args []luast.Node) {
	if len(args) != 1 {
		return
	}
	if lit, ok := args[0].(*luast.StringLiteral); ok {
		f.Requires = append(f.Requires, lit.Value)
	}
}
