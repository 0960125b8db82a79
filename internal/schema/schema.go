// Package schema implements the Merge/Schema bridge (spec §4's component
// G): the typed shape of a schema file (spec §6 "Schema file format"),
// plus loading, saving, and merging it against a freshly analyzed model.
//
// Grounded on the teacher's internal/parser/loader.go (reads an external
// definition file into a typed in-memory structure, validated once on
// load) — reshaped from "load a tree-sitter grammar" into "load a schema
// file" — and internal/config/config.go's decode-with-defaults idiom,
// applied here to YAML instead of TOML since gopkg.in/yaml.v3 is this
// format's concrete serialization per spec §6.
package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/finalize"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
)

// File-level tags (spec §6): StubGen_Definitions marks a definition-only
// stub; StubGen_Hidden suppresses emission; StubGen_NoInitializer
// suppresses an individual initializer; StubGen_Extra marks an unmanaged
// entry the merge must preserve verbatim.
const (
	TagDefinitions   = "StubGen_Definitions"
	TagHidden        = "StubGen_Hidden"
	TagNoInitializer = "StubGen_NoInitializer"
	TagExtra         = "StubGen_Extra"
)

const currentVersion = "1.1"

// File is the top-level schema document (spec §6: `version`, `languages`).
type File struct {
	Version   string    `yaml:"version"`
	Languages Languages `yaml:"languages"`
}

type Languages struct {
	Lua Lua `yaml:"lua"`
}

// Lua is one file's worth of the `languages.lua` schema section.
type Lua struct {
	Aliases   map[string]string  `yaml:"aliases,omitempty"`
	Classes   map[string]*Class  `yaml:"classes,omitempty"`
	Tables    map[string]*Table  `yaml:"tables,omitempty"`
	Functions []Function         `yaml:"functions,omitempty"`
	Fields    map[string]*Field  `yaml:"fields,omitempty"`
	Tags      []string           `yaml:"tags,omitempty"`
}

type Class struct {
	Extends       string            `yaml:"extends,omitempty"`
	Notes         string            `yaml:"notes,omitempty"`
	Deprecated    bool              `yaml:"deprecated,omitempty"`
	Mutable       bool              `yaml:"mutable,omitempty"`
	Local         bool              `yaml:"local,omitempty"`
	Constructors  []Function        `yaml:"constructors,omitempty"`
	Fields        map[string]*Field `yaml:"fields,omitempty"`
	StaticFields  map[string]*Field `yaml:"staticFields,omitempty"`
	Methods       []Function        `yaml:"methods,omitempty"`
	StaticMethods []Function        `yaml:"staticMethods,omitempty"`
	Overloads     []Function        `yaml:"overloads,omitempty"`
	Operators     []Function        `yaml:"operators,omitempty"`
	Tags          []string          `yaml:"tags,omitempty"`
}

// Table is a Class without constructors/extends (spec §6: "like class but
// no constructors/extends").
type Table struct {
	Notes         string            `yaml:"notes,omitempty"`
	Deprecated    bool              `yaml:"deprecated,omitempty"`
	Mutable       bool              `yaml:"mutable,omitempty"`
	Local         bool              `yaml:"local,omitempty"`
	Fields        map[string]*Field `yaml:"fields,omitempty"`
	StaticFields  map[string]*Field `yaml:"staticFields,omitempty"`
	Methods       []Function        `yaml:"methods,omitempty"`
	StaticMethods []Function        `yaml:"staticMethods,omitempty"`
	Overloads     []Function        `yaml:"overloads,omitempty"`
	Operators     []Function        `yaml:"operators,omitempty"`
	Tags          []string          `yaml:"tags,omitempty"`
}

type Function struct {
	Name       string     `yaml:"name,omitempty"`
	Parameters []string   `yaml:"parameters,omitempty"`
	Return     []string   `yaml:"return,omitempty"`
	Overloads  []Function `yaml:"overloads,omitempty"`
	Notes      string     `yaml:"notes,omitempty"`
	Deprecated bool       `yaml:"deprecated,omitempty"`
	Tags       []string   `yaml:"tags,omitempty"`
}

type Field struct {
	Type         string   `yaml:"type,omitempty"`
	Notes        string   `yaml:"notes,omitempty"`
	Nullable     bool     `yaml:"nullable,omitempty"`
	DefaultValue string   `yaml:"defaultValue,omitempty"`
	Tags         []string `yaml:"tags,omitempty"`
}

// Load reads and validates a schema file from disk (spec §7's
// SchemaValidationError: "a schema file's version or shape is wrong: log
// and reject that file").
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	if f.Version == "" {
		f.Version = currentVersion
	}
	if f.Version != currentVersion {
		return nil, fmt.Errorf("schema %s: unsupported version %q", path, f.Version)
	}
	return &f, nil
}

// Save encodes f as YAML and writes it, creating parent directories as
// needed.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return util.WriteFileWithDirs(path, data, 0o644)
}

// Bridge merges a freshly finalized module into a pre-existing schema
// (spec §2 component G: "Merge analyzed model with pre-existing schema
// entries"). KeepTypes governs the round-trip law (spec §8): when true, a
// field/return type already present in the existing schema is preserved
// rather than overwritten by the freshly analyzed guess.
type Bridge struct {
	KeepTypes bool
}

func NewBridge(keepTypes bool) *Bridge {
	return &Bridge{KeepTypes: keepTypes}
}

// Merge combines existing (possibly nil, for a first run) with one
// module's finalized output into a new Lua section. Existing classes and
// tables tagged StubGen_Extra are copied through untouched (spec §6:
// "marks a schema entry as unmanaged") unless mod has a class or table of
// the same name, which then takes the slot; top-level functions and
// fields are rebuilt from mod alone, whatever their tags.
func (b *Bridge) Merge(existing *Lua, mod *finalize.FinalizedModule) *Lua {
	out := &Lua{
		Classes: make(map[string]*Class),
		Tables:  make(map[string]*Table),
		Fields:  make(map[string]*Field),
	}
	out.Tags = mod.Tags

	if existing != nil {
		for name, c := range existing.Classes {
			if hasTag(c.Tags, TagExtra) {
				out.Classes[name] = c
			}
		}
		for name, tbl := range existing.Tables {
			if hasTag(tbl.Tags, TagExtra) {
				out.Tables[name] = tbl
			}
		}
	}

	for _, fc := range mod.Classes {
		out.Classes[fc.Name] = b.mergeClass(existing, fc)
	}
	for _, ft := range mod.Tables {
		out.Tables[ft.Name] = b.mergeTable(existing, ft)
	}
	for _, ff := range mod.Functions {
		out.Functions = append(out.Functions, b.mergeFunction(existingFunction(existing, ff.Name), ff))
	}
	sort.Slice(out.Functions, func(i, j int) bool { return out.Functions[i].Name < out.Functions[j].Name })

	for name, types := range mod.Fields {
		out.Fields[name] = b.mergeField(existingField(existing, name), types)
	}

	return out
}

func (b *Bridge) mergeClass(existing *Lua, fc finalize.FinalizedClass) *Class {
	var prior *Class
	if existing != nil {
		prior = existing.Classes[fc.Name]
	}
	c := &Class{
		Extends: fc.Extends,
		Local:   fc.Local,
	}
	if prior != nil {
		c.Notes, c.Deprecated, c.Mutable, c.Tags = prior.Notes, prior.Deprecated, prior.Mutable, prior.Tags
		if c.Extends == "" {
			c.Extends = prior.Extends
		}
	}
	c.Fields = b.mergeFieldMap(fieldsOf(prior), fc.Fields)
	c.StaticFields = b.mergeFieldMap(staticFieldsOf(prior), fc.StaticFields)
	c.Constructors = b.mergeFunctions(functionsOf(prior, func(p *Class) []Function { return p.Constructors }), fc.Constructors)
	c.Methods = b.mergeFunctions(functionsOf(prior, func(p *Class) []Function { return p.Methods }), fc.Methods)
	c.StaticMethods = b.mergeFunctions(functionsOf(prior, func(p *Class) []Function { return p.StaticMethods }), fc.StaticMethods)
	return c
}

func (b *Bridge) mergeTable(existing *Lua, ft finalize.FinalizedTable) *Table {
	var prior *Table
	if existing != nil {
		prior = existing.Tables[ft.Name]
	}
	t := &Table{}
	if prior != nil {
		t.Notes, t.Deprecated, t.Mutable, t.Tags = prior.Notes, prior.Deprecated, prior.Mutable, prior.Tags
	}
	var priorFields map[string]*Field
	var priorMethodList []Function
	if prior != nil {
		priorFields = prior.Fields
		priorMethodList = prior.Methods
	}
	t.Fields = b.mergeFieldMap(priorFields, ft.Fields)
	t.Methods = b.mergeFunctions(priorMethodList, ft.Methods)
	return t
}

func (b *Bridge) mergeFieldMap(prior map[string]*Field, fresh map[string][]string) map[string]*Field {
	out := make(map[string]*Field)
	for name, types := range fresh {
		out[name] = b.mergeField(fieldOf(prior, name), types)
	}
	if prior != nil {
		for name, f := range prior {
			if hasTag(f.Tags, TagExtra) {
				out[name] = f
			}
		}
	}
	return out
}

func (b *Bridge) mergeField(prior *Field, types []string) *Field {
	f := &Field{}
	if prior != nil {
		f.Notes, f.DefaultValue, f.Tags = prior.Notes, prior.DefaultValue, prior.Tags
	}
	if b.KeepTypes && prior != nil && prior.Type != "" {
		f.Type = prior.Type
		f.Nullable = prior.Nullable
		return f
	}
	f.Type = joinTypes(types)
	f.Nullable = containsNil(types)
	return f
}

func (b *Bridge) mergeFunctions(prior []Function, fresh []finalize.FinalizedFunction) []Function {
	out := make([]Function, 0, len(fresh))
	for _, ff := range fresh {
		out = append(out, b.mergeFunction(functionOf(prior, ff.Name), ff))
	}
	return out
}

func (b *Bridge) mergeFunction(prior *Function, ff finalize.FinalizedFunction) Function {
	fn := Function{Name: ff.Name, Parameters: append([]string(nil), ff.Parameters...)}
	if prior != nil {
		fn.Notes, fn.Deprecated, fn.Tags = prior.Notes, prior.Deprecated, prior.Tags
	}
	if b.KeepTypes && prior != nil && len(prior.Return) > 0 {
		fn.Return = prior.Return
		return fn
	}
	for _, rt := range ff.Returns {
		fn.Return = append(fn.Return, joinTypes(rt))
	}
	return fn
}

func fieldsOf(c *Class) map[string]*Field {
	if c == nil {
		return nil
	}
	return c.Fields
}

func staticFieldsOf(c *Class) map[string]*Field {
	if c == nil {
		return nil
	}
	return c.StaticFields
}

func functionsOf(c *Class, pick func(*Class) []Function) []Function {
	if c == nil {
		return nil
	}
	return pick(c)
}

func fieldOf(m map[string]*Field, name string) *Field {
	if m == nil {
		return nil
	}
	return m[name]
}

func functionOf(fns []Function, name string) *Function {
	for i := range fns {
		if fns[i].Name == name {
			return &fns[i]
		}
	}
	return nil
}

func existingFunction(existing *Lua, name string) *Function {
	if existing == nil {
		return nil
	}
	return functionOf(existing.Functions, name)
}

func existingField(existing *Lua, name string) *Field {
	if existing == nil {
		return nil
	}
	return existing.Fields[name]
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func joinTypes(types []string) string {
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	out := ""
	for i, t := range sorted {
		if i > 0 {
			out += "|"
		}
		out += t
	}
	return out
}

func containsNil(types []string) bool {
	for _, t := range types {
		if t == "nil" {
			return true
		}
	}
	return false
}
