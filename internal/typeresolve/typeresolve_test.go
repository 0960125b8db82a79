package typeresolve

import (
	"testing"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
)

func TestResolver_Literal_ResolvesDirectly(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	got := r.Resolve(&cx.LiteralExpr{LuaKind: cx.LiteralString}, 1)
	if !got.Has(string(cx.TypeString)) {
		t.Errorf("expected string, got %v", got.Slice())
	}
}

func TestResolver_Reference_UnionsDefinitions(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	id := ctx.NewLocalID("x")
	ctx.AddDefinition(id, &cx.ExpressionInfo{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralNumber}, Index: 1})
	ctx.AddDefinition(id, &cx.ExpressionInfo{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralString}, Index: 1})

	got := r.Resolve(&cx.ReferenceExpr{ID: id}, 1)
	if !got.Has(string(cx.TypeNumber)) || !got.Has(string(cx.TypeString)) {
		t.Errorf("expected {number,string}, got %v", got.Slice())
	}
}

func TestResolver_ConcatenationUsage_Narrows(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	id := ctx.NewLocalID("x")
	ctx.AddDefinition(id, &cx.ExpressionInfo{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralTable}, Index: 1})
	ref := &cx.ReferenceExpr{ID: id}
	ctx.Usage(ref).SupportsConcatenation = true

	got := r.Resolve(ref, 1)
	// the table literal resolves concretely, so the disagreeing usage
	// narrowing is discarded rather than overriding the concrete value.
	if !got.Has(string(cx.TypeTable)) {
		t.Errorf("expected table to survive narrowing mismatch, got %v", got.Slice())
	}
}

func TestResolver_CycleTerminatesRatherThanLoops(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	id := ctx.NewLocalID("x")
	ref := &cx.ReferenceExpr{ID: id}
	ctx.AddDefinition(id, &cx.ExpressionInfo{Expression: ref, Index: 1})

	got := r.Resolve(ref, 1)
	if got == nil {
		t.Fatalf("expected resolve to terminate with a non-nil set")
	}
}

func TestResolver_ReturnArityNullability(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	fnID := ctx.GetFunctionID("f")
	info := ctx.GetFunctionInfo(fnID)
	info.MinReturns = 1
	info.ReturnTypes = []cx.TypeSet{
		cx.NewTypeSet(string(cx.TypeString)),
		cx.NewTypeSet(string(cx.TypeNumber)),
	}

	call := &cx.OperationExpr{Operator: "call", Arguments: []cx.Expr{&cx.ReferenceExpr{ID: fnID}}}

	first := r.Resolve(call, 1)
	if first.Has(string(cx.TypeNil)) {
		t.Errorf("position within minReturns should not be nilable, got %v", first.Slice())
	}

	second := r.Resolve(call, 2)
	if !second.Has(string(cx.TypeNumber)) || !second.Has(string(cx.TypeNil)) {
		t.Errorf("position beyond minReturns should be {number,nil}, got %v", second.Slice())
	}
}

func TestResolver_ReturnIndexPastDeclaredArity_YieldsNil(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	fnID := ctx.GetFunctionID("f")
	info := ctx.GetFunctionInfo(fnID)
	info.MinReturns = 1
	info.ReturnTypes = []cx.TypeSet{cx.NewTypeSet(string(cx.TypeString))}

	call := &cx.OperationExpr{Operator: "call", Arguments: []cx.Expr{&cx.ReferenceExpr{ID: fnID}}}

	got := r.Resolve(call, 5)
	if len(got) != 1 || !got.Has(string(cx.TypeNil)) {
		t.Errorf("expected exactly {nil} past declared arity, got %v", got.Slice())
	}
}

func TestResolver_IntrinsicCalls_ResolveByName(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	id := ctx.NewLocalID("tonumber")
	call := &cx.OperationExpr{Operator: "call", Arguments: []cx.Expr{&cx.ReferenceExpr{ID: id}}}

	got := r.Resolve(call, 1)
	if !got.Has(string(cx.TypeNumber)) || !got.Has(string(cx.TypeNil)) {
		t.Errorf("expected tonumber to resolve to {number,nil}, got %v", got.Slice())
	}
}

func TestResolver_Not_DecidableLiteral_ResolvesExactly(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	got := r.Resolve(&cx.OperationExpr{Operator: "not", Arguments: []cx.Expr{&cx.LiteralExpr{LuaKind: cx.LiteralNil}}}, 1)
	if !got.Has(string(cx.TypeTrue)) || len(got) != 1 {
		t.Errorf("expected not(nil) to resolve to {true}, got %v", got.Slice())
	}

	got = r.Resolve(&cx.OperationExpr{Operator: "not", Arguments: []cx.Expr{&cx.LiteralExpr{LuaKind: cx.LiteralString}}}, 1)
	if !got.Has(string(cx.TypeFalse)) || len(got) != 1 {
		t.Errorf("expected not(string literal) to resolve to {false}, got %v", got.Slice())
	}
}

func TestResolver_AndOr_Ternary_SubstitutesMiddleOperand(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	cond := &cx.ReferenceExpr{ID: ctx.NewLocalID("cond")}
	ternary := &cx.OperationExpr{
		Operator: "or",
		Arguments: []cx.Expr{
			&cx.OperationExpr{Operator: "and", Arguments: []cx.Expr{cond, &cx.LiteralExpr{LuaKind: cx.LiteralString}}},
			&cx.LiteralExpr{LuaKind: cx.LiteralNumber},
		},
	}

	got := r.Resolve(ternary, 1)
	if !got.Has(string(cx.TypeString)) || !got.Has(string(cx.TypeNumber)) {
		t.Errorf("expected ternary to union Y and Z types, got %v", got.Slice())
	}
}

func TestResolver_IndexExpr_ResolvesLiteralKey(t *testing.T) {
	ctx := cx.New("test")
	r := NewResolver(ctx)

	tableID := ctx.NewTableID("t")
	ctx.GetTableInfo(tableID).Definitions["1"] = cx.DefinitionList{
		{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralString}},
	}

	idx := &cx.IndexExpr{
		BaseExpr:  &cx.ReferenceExpr{ID: tableID},
		IndexExpr: &cx.LiteralExpr{LuaKind: cx.LiteralNumber, NumberValue: 1},
	}

	got := r.Resolve(idx, 1)
	if !got.Has(string(cx.TypeString)) {
		t.Errorf("expected t[1] to resolve to {string}, got %v", got.Slice())
	}

	unresolvable := &cx.IndexExpr{BaseExpr: &cx.ReferenceExpr{ID: tableID}, IndexExpr: &cx.ReferenceExpr{ID: ctx.NewLocalID("k")}}
	if got := r.Resolve(unresolvable, 1); len(got) != 0 {
		t.Errorf("expected a non-literal index to resolve to the empty set, got %v", got.Slice())
	}
}
