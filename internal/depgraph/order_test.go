package depgraph

import "testing"

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestResolver_Order_SettersBeforeReaders(t *testing.T) {
	facts := map[string]*Facts{
		"shared/base": {ID: "shared/base", Writes: map[string]bool{"Base": true}},
		"shared/derived": {
			ID:    "shared/derived",
			Reads: map[string]bool{"Base": true},
		},
	}
	setters := ComputeSetters(facts)
	aliases := BuildAliasMap([]string{"shared/base", "shared/derived"})

	r := &Resolver{Prefixes: []string{"shared"}}
	result := r.Order(facts, setters, aliases)

	if len(result.Order) != 2 {
		t.Fatalf("expected 2 files in order, got %d: %v", len(result.Order), result.Order)
	}
	if indexOf(result.Order, "shared/base") > indexOf(result.Order, "shared/derived") {
		t.Errorf("expected shared/base before shared/derived, got %v", result.Order)
	}
}

func TestResolver_Order_RequireCycleStillCompletes(t *testing.T) {
	// u.lua: require("v"); U={}   v.lua: require("u"); V={}
	facts := map[string]*Facts{
		"shared/u": {ID: "shared/u", Requires: []string{"v"}, Writes: map[string]bool{"U": true}},
		"shared/v": {ID: "shared/v", Requires: []string{"u"}, Writes: map[string]bool{"V": true}},
	}
	setters := ComputeSetters(facts)
	aliases := BuildAliasMap([]string{"shared/u", "shared/v"})

	r := &Resolver{Prefixes: []string{"shared"}}
	result := r.Order(facts, setters, aliases)

	if len(result.Order) != 2 {
		t.Fatalf("expected both cyclic files to appear, got %v", result.Order)
	}
	seen := map[string]bool{}
	for _, id := range result.Order {
		seen[id] = true
	}
	if !seen["shared/u"] || !seen["shared/v"] {
		t.Errorf("expected both u and v in order, got %v", result.Order)
	}
}

func TestResolver_Order_PartitionsByPrefix(t *testing.T) {
	facts := map[string]*Facts{
		"server/s": {ID: "server/s"},
		"client/c": {ID: "client/c"},
		"shared/sh": {ID: "shared/sh"},
	}
	setters := ComputeSetters(facts)
	aliases := BuildAliasMap([]string{"server/s", "client/c", "shared/sh"})

	r := NewResolver() // default: shared, client, server
	result := r.Order(facts, setters, aliases)

	if indexOf(result.Order, "shared/sh") > indexOf(result.Order, "client/c") {
		t.Errorf("expected shared/sh before client/c, got %v", result.Order)
	}
	if indexOf(result.Order, "client/c") > indexOf(result.Order, "server/s") {
		t.Errorf("expected client/c before server/s, got %v", result.Order)
	}
}

func TestAliasMap_SuffixResolution(t *testing.T) {
	aliases := BuildAliasMap([]string{"shared/util/helpers"})
	known := map[string]bool{"shared/util/helpers": true}

	got := aliases.Resolve("helpers", "", known)
	if !got["shared/util/helpers"] {
		t.Errorf("expected suffix alias to resolve, got %v", got)
	}

	got2 := aliases.Resolve("util/helpers", "", known)
	if !got2["shared/util/helpers"] {
		t.Errorf("expected deeper suffix alias to resolve, got %v", got2)
	}
}
