package classresolve

import (
	"testing"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
)

func TestResolver_DeriveCall_PromotesClass(t *testing.T) {
	ctx := cx.New("test")
	mod := cx.NewModule("shared/foo")
	mod.Scope = cx.NewScope(cx.ScopeModule, "shared/foo#module", nil)
	mod.Prefix = "shared"

	baseID := ctx.NewTableID("Base")
	ctx.GetTableInfo(baseID).ClassName = "Base"

	fooID := ctx.NewLocalID("Foo")
	mod.Scope.Bind("Foo", fooID)

	deriveCall := &cx.OperationExpr{
		Operator: "call",
		Arguments: []cx.Expr{
			&cx.MemberExpr{BaseExpr: &cx.ReferenceExpr{ID: baseID}, Member: "derive", Indexer: cx.MemberColon},
			&cx.ReferenceExpr{ID: baseID}, // implicit self arg from colon sugar
			&cx.LiteralExpr{LuaKind: cx.LiteralString},
		},
	}
	mod.Scope.Items = append(mod.Scope.Items, &cx.AssignmentItem{
		Target: &cx.ReferenceExpr{ID: fooID},
		Source: deriveCall,
		Local:  false,
	})

	r := NewResolver(ctx)
	r.Resolve(mod)

	if len(mod.Classes) != 1 {
		t.Fatalf("expected 1 class registered, got %d", len(mod.Classes))
	}
	info := ctx.GetTableInfo(mod.Classes[0])
	if info.ClassName != "Foo" {
		t.Errorf("expected class name Foo, got %q", info.ClassName)
	}
}

func TestResolver_UnknownGlobalClass_CreatesPlaceholder(t *testing.T) {
	ctx := cx.New("test")
	ctx.SetCurrentReadingModule("shared/foo")
	mod := cx.NewModule("shared/foo")
	mod.Scope = cx.NewScope(cx.ScopeModule, "shared/foo#module", nil)

	globalID := ctx.NewLocalID("Unknown")
	mod.Scope.Bind("Unknown", globalID)

	mod.Scope.Items = append(mod.Scope.Items, &cx.AssignmentItem{
		Target: &cx.MemberExpr{BaseExpr: &cx.ReferenceExpr{ID: globalID}, Member: "doThing"},
		Source: &cx.LiteralExpr{LuaKind: cx.LiteralFunction},
	})

	r := NewResolver(ctx)
	r.Resolve(mod)

	id, ok := ctx.UnknownClass("Unknown")
	if !ok {
		t.Fatalf("expected a placeholder class for Unknown")
	}
	info := ctx.GetTableInfo(id)
	if !info.IsEmptyClass {
		t.Errorf("expected placeholder to be marked isEmptyClass")
	}
	if _, ok := info.Definitions["doThing"]; !ok {
		t.Errorf("expected doThing to be recorded on the placeholder")
	}
}

func TestResolver_ImpliedNewClass_PromotesBaseTable(t *testing.T) {
	ctx := cx.New("test")
	mod := cx.NewModule("shared/widget")
	mod.Scope = cx.NewScope(cx.ScopeModule, "shared/widget#module", nil)

	baseID := ctx.NewTableID("Widget")
	mod.Scope.Bind("Widget", baseID)

	fnID := ctx.GetFunctionID("new")
	info := ctx.GetFunctionInfo(fnID)
	info.Name = "new"
	info.IdentifierExpr = &cx.MemberExpr{BaseExpr: &cx.ReferenceExpr{ID: baseID}, Member: "new", Indexer: cx.MemberColon}
	mod.Functions = append(mod.Functions, fnID)

	r := NewResolver(ctx)
	r.Resolve(mod)

	tinfo := ctx.GetTableInfo(baseID)
	if tinfo.ClassName != "Widget" {
		t.Errorf("expected base table promoted to class Widget, got %q", tinfo.ClassName)
	}
	if !info.IsConstructor {
		t.Errorf("expected the :new method flagged as a constructor")
	}
	if len(mod.Classes) != 1 || mod.Classes[0] != baseID {
		t.Fatalf("expected Widget registered as the module's class, got %v", mod.Classes)
	}
}

func TestResolver_NestedClassFunction_PromotesContainer(t *testing.T) {
	ctx := cx.New("test")
	mod := cx.NewModule("shared/ui")
	mod.Scope = cx.NewScope(cx.ScopeModule, "shared/ui#module", nil)

	classID := ctx.NewTableID("Panel")
	ctx.GetTableInfo(classID).ClassName = "Panel"

	nestedID := ctx.NewTableID("")
	ctx.GetTableInfo(classID).Definitions["Layout"] = cx.DefinitionList{
		{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralTable, TableID: nestedID}},
	}

	fnID := ctx.GetFunctionID("arrange")
	info := ctx.GetFunctionInfo(fnID)
	info.Name = "arrange"
	info.IdentifierExpr = &cx.MemberExpr{
		BaseExpr: &cx.MemberExpr{BaseExpr: &cx.ReferenceExpr{ID: classID}, Member: "Layout", Indexer: cx.MemberDot},
		Member:   "arrange",
		Indexer:  cx.MemberDot,
	}
	mod.Functions = append(mod.Functions, fnID)

	r := NewResolver(ctx)
	r.Resolve(mod)

	nested := ctx.GetTableInfo(nestedID)
	if nested.ClassName != "Panel.Layout" {
		t.Errorf("expected nested table promoted to Panel.Layout, got %q", nested.ClassName)
	}
}
