package finalize

import (
	"testing"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
)

func newTestContext() *cx.Context {
	return cx.New("test-session")
}

func TestFinalizer_BooleanCollapse_MergesTrueAndFalse(t *testing.T) {
	ctx := newTestContext()
	f := NewFinalizer(ctx)

	names := f.names(cx.NewTypeSet(string(cx.TypeTrue), string(cx.TypeFalse), string(cx.TypeString)))

	wantHas := map[string]bool{"boolean": false, "string": false}
	for _, n := range names {
		if n == "true" || n == "false" {
			t.Fatalf("literal boolean marker %q survived collapse in %v", n, names)
		}
		if _, ok := wantHas[n]; ok {
			wantHas[n] = true
		}
	}
	for name, seen := range wantHas {
		if !seen {
			t.Errorf("expected %q in finalized names, got %v", name, names)
		}
	}
}

func TestFinalizer_EmptyTypeSet_ReportsUnknown(t *testing.T) {
	ctx := newTestContext()
	f := NewFinalizer(ctx)

	names := f.names(cx.NewTypeSet())
	if len(names) != 1 || names[0] != string(cx.TypeUnknown) {
		t.Fatalf("expected [unknown], got %v", names)
	}
}

func TestFinalizer_Finalize_ClassWithMethodAndStaticField(t *testing.T) {
	ctx := newTestContext()
	classID := ctx.NewTableID("Foo")
	info := ctx.GetTableInfo(classID)
	info.ClassName = "Foo"
	info.DefiningModule = "shared/foo"

	fnID := ctx.GetFunctionID("bark")
	fnInfo := ctx.GetFunctionInfo(fnID)
	fnInfo.Name = "bark"
	fnInfo.IsMethod = true
	fnInfo.MinReturns = 1
	fnInfo.ReturnTypes = []cx.TypeSet{cx.NewTypeSet(string(cx.TypeString))}

	info.Definitions["bark"] = cx.DefinitionList{
		{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralFunction, FunctionID: fnID}, Instance: true},
	}
	info.Definitions["VERSION"] = cx.DefinitionList{
		{Expression: &cx.LiteralExpr{LuaKind: cx.LiteralNumber}},
	}

	mod := cx.NewModule("shared/foo")
	mod.Classes = []ids.ID{classID}
	mod.SeenClasses[classID] = true

	out := NewFinalizer(ctx).Finalize(mod)

	if len(out.Classes) != 1 {
		t.Fatalf("expected 1 finalized class, got %d", len(out.Classes))
	}
	class := out.Classes[0]
	if class.Name != "Foo" {
		t.Errorf("expected class name Foo, got %q", class.Name)
	}
	if len(class.Methods) != 1 || class.Methods[0].Name != "bark" {
		t.Fatalf("expected a single bark method, got %v", class.Methods)
	}
	if got := class.StaticFields["VERSION"]; len(got) != 1 || got[0] != "number" {
		t.Fatalf("expected VERSION static field to resolve to [number], got %v", got)
	}
}
