package scopereader

import (
	"testing"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/luast"
)

func chunk(body ...luast.Node) *luast.Chunk {
	return &luast.Chunk{Body: body}
}

func TestReader_LocalAssignment_BindsName(t *testing.T) {
	ctx := cx.New("test-session")
	ctx.SetCurrentReadingModule("shared/m")

	c := chunk(&luast.LocalStatement{
		Names: &[]string{"x"},
		Init:  []luast.Node{&luast.NumericLiteral{Value: 1}},
	})

	r := NewReader(ctx, "shared/m")
	mod := r.Read(c)

	if _, ok := mod.Scope.Lookup("x"); !ok {
		t.Fatalf("expected x to be bound in module scope")
	}
	if len(mod.Scope.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(mod.Scope.Items))
	}
	if _, ok := mod.Scope.Items[0].(*cx.AssignmentItem); !ok {
		t.Fatalf("expected AssignmentItem, got %T", mod.Scope.Items[0])
	}
}

func TestReader_RequireAssignment_Detected(t *testing.T) {
	ctx := cx.New("test-session")
	ctx.SetCurrentReadingModule("shared/m")

	c := chunk(&luast.LocalStatement{
		Names: &[]string{"Base"},
		Init: []luast.Node{&luast.CallExpression{
			BaseExpr:  &luast.Identifier{Name: "require"},
			Arguments: []luast.Node{&luast.StringLiteral{Value: "shared/base"}},
		}},
	})

	r := NewReader(ctx, "shared/m")
	mod := r.Read(c)

	item, ok := mod.Scope.Items[0].(*cx.RequireAssignmentItem)
	if !ok {
		t.Fatalf("expected RequireAssignmentItem, got %T", mod.Scope.Items[0])
	}
	if item.Module != "shared/base" {
		t.Errorf("expected module 'shared/base', got %q", item.Module)
	}
}

func TestReader_MultiReturnUnpacking(t *testing.T) {
	ctx := cx.New("test-session")
	ctx.SetCurrentReadingModule("shared/m")

	c := chunk(&luast.LocalStatement{
		Names: &[]string{"a", "b"},
		Init:  []luast.Node{&luast.CallExpression{BaseExpr: &luast.Identifier{Name: "f"}}},
	})

	r := NewReader(ctx, "shared/m")
	mod := r.Read(c)

	if len(mod.Scope.Items) != 2 {
		t.Fatalf("expected 2 assignment items, got %d", len(mod.Scope.Items))
	}
	first := mod.Scope.Items[0].(*cx.AssignmentItem)
	second := mod.Scope.Items[1].(*cx.AssignmentItem)
	if first.Index != 1 || second.Index != 2 {
		t.Errorf("expected indexes 1 and 2, got %d and %d", first.Index, second.Index)
	}
	if first.Source != second.Source {
		t.Errorf("expected both targets to share the same call-expression source")
	}
}

func TestReader_ConcatenationUsage_NarrowsToStringOrNumber(t *testing.T) {
	ctx := cx.New("test-session")
	ctx.SetCurrentReadingModule("shared/m")

	c := chunk(&luast.LocalStatement{
		Names: &[]string{"msg"},
		Init: []luast.Node{&luast.BinaryExpression{
			Operator: "..",
			Left:     &luast.Identifier{Name: "label"},
			Right:    &luast.StringLiteral{Value: "!"},
		}},
	})

	r := NewReader(ctx, "shared/m")
	r.Read(c)

	var found bool
	for _, rec := range ctx.AllUsage() {
		if rec.SupportsConcatenation {
			found = true
		}
	}
	if !found {
		t.Errorf("expected at least one expression flagged supportsConcatenation")
	}
}

func TestReader_MethodDeclaration_BindsSelf(t *testing.T) {
	ctx := cx.New("test-session")
	ctx.SetCurrentReadingModule("shared/m")

	c := chunk(&luast.FunctionDeclaration{
		Identifier: &luast.MemberExpression{
			BaseExpr: &luast.Identifier{Name: "Widget"},
			Indexer:  luast.IndexerColon,
			Member:   "draw",
		},
		Parameters: []string{"dt"},
	})

	r := NewReader(ctx, "shared/m")
	mod := r.Read(c)

	item, ok := mod.Scope.Items[0].(*cx.FunctionDefItem)
	if !ok {
		t.Fatalf("expected FunctionDefItem, got %T", mod.Scope.Items[0])
	}
	info := ctx.GetFunctionInfo(item.FunctionID)
	if len(info.ParameterNames) != 2 || info.ParameterNames[0] != "self" {
		t.Errorf("expected [self, dt], got %v", info.ParameterNames)
	}
}
