package typeresolve

import (
	"testing"

	cx "github.com/PZ-Umbrella/pz-lua-stubgen/internal/context"
)

func TestParameterHeuristicTypes_DxDyPair(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"dx", "dy", "callback"})
	if !got[0].Has(string(cx.TypeNumber)) || !got[1].Has(string(cx.TypeNumber)) {
		t.Errorf("expected dx/dy typed as number, got %v %v", got[0].Slice(), got[1].Slice())
	}
	if len(got[2]) != 0 {
		t.Errorf("expected callback to stay untyped, got %v", got[2].Slice())
	}
}

func TestParameterHeuristicTypes_GeometryGroupNeedsTwo(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"x", "other"})
	if len(got[0]) != 0 {
		t.Errorf("expected a lone x to stay untyped without a second geometry member, got %v", got[0].Slice())
	}

	got = ParameterHeuristicTypes([]string{"x", "y", "other"})
	if !got[0].Has(string(cx.TypeNumber)) || !got[1].Has(string(cx.TypeNumber)) {
		t.Errorf("expected x and y typed as number once two members are present, got %v %v", got[0].Slice(), got[1].Slice())
	}
}

func TestParameterHeuristicTypes_ColorGroupNeedsThree(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"r", "g", "b", "a"})
	for i, name := range []string{"r", "g", "b", "a"} {
		if !got[i].Has(string(cx.TypeNumber)) {
			t.Errorf("expected %s typed as number, got %v", name, got[i].Slice())
		}
	}
}

func TestParameterHeuristicTypes_IsPrefix(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"isActive", "island"})
	if !got[0].Has(string(cx.TypeBoolean)) {
		t.Errorf("expected isActive typed as boolean, got %v", got[0].Slice())
	}
	if len(got[1]) != 0 {
		t.Errorf("expected island to stay untyped, got %v", got[1].Slice())
	}
}

func TestParameterHeuristicTypes_NumAndStringSuffixes(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"itemNum", "playerName", "doName"})
	if !got[0].Has(string(cx.TypeNumber)) {
		t.Errorf("expected itemNum typed as number, got %v", got[0].Slice())
	}
	if !got[1].Has(string(cx.TypeString)) {
		t.Errorf("expected playerName typed as string, got %v", got[1].Slice())
	}
	if len(got[2]) != 0 {
		t.Errorf("expected doName to be excluded by the do- prefix guard, got %v", got[2].Slice())
	}
}

func TestParameterHeuristicTypes_TargetAndPositionalArgs(t *testing.T) {
	got := ParameterHeuristicTypes([]string{"target", "param1", "arg2", "argument"})
	for i, name := range []string{"target", "param1", "arg2"} {
		if !got[i].Has(string(cx.TypeUnknown)) {
			t.Errorf("expected %s typed as unknown, got %v", name, got[i].Slice())
		}
	}
	if len(got[3]) != 0 {
		t.Errorf("expected argument (no trailing digits) to stay untyped, got %v", got[3].Slice())
	}
}
