// Package context implements the Shared Analysis Context (spec §4.5,
// component E): the single owner of every cross-module registry
// (definitions, table/function info, modules, aliases, usage, per-module
// unknown-class placeholders).
//
// Grounded on the teacher's internal/graph.Graph, which is also "the one
// struct every other package reaches through" — but spec §5 makes analysis
// single-threaded ("concurrency-free... passed explicitly to every
// component; no process-wide singletons"), so unlike Graph this type carries
// no mutex, and there is exactly one instance per run, tagged with a
// run-scoped UUID for log correlation (see internal/analyzer).
package context

import (
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/depgraph"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"
)

// Context owns every table the spec's components share.
type Context struct {
	SessionID string

	allocator *ids.Allocator

	definitions map[ids.ID]DefinitionList // global definition map, keyed by identifier
	tables      map[ids.ID]*TableInfo
	functions   map[ids.ID]*FunctionInfo
	modules     map[string]*Module // keyed by file ID

	aliases depgraph.AliasMap

	// usage is keyed by expression identity (the Expr pointer, boxed as an
	// any key — spec §3 "identity of an expression object is meaningful").
	usage map[Expr]*UsageRecord

	// unknownClasses is per-module; cleared whenever currentModule changes
	// (spec §4.5 "unknown-class map (per-module, cleared on module
	// change)").
	unknownClasses map[string]ids.ID

	currentModule string
}

// New returns an empty Context for a fresh analysis session.
func New(sessionID string) *Context {
	return &Context{
		SessionID:      sessionID,
		allocator:      ids.NewAllocator(),
		definitions:    make(map[ids.ID]DefinitionList),
		tables:         make(map[ids.ID]*TableInfo),
		functions:      make(map[ids.ID]*FunctionInfo),
		modules:        make(map[string]*Module),
		usage:          make(map[Expr]*UsageRecord),
		unknownClasses: make(map[string]ids.ID),
	}
}

// SetAliasMap installs the alias map built once by the dependency resolver.
func (c *Context) SetAliasMap(a depgraph.AliasMap) { c.aliases = a }

func (c *Context) Aliases() depgraph.AliasMap { return c.aliases }

// SetCurrentReadingModule switches the module the scope reader is
// currently walking and clears module-scoped caches (spec §4.2 "Clear
// per-module state").
func (c *Context) SetCurrentReadingModule(fileID string) {
	c.currentModule = fileID
	c.unknownClasses = make(map[string]ids.ID)
}

func (c *Context) CurrentModule() string { return c.currentModule }

// --- Table / function allocation (spec §4.5's exposed allocator API) ---

// NewTableID allocates a fresh table ID and its TableInfo. name is cosmetic.
func (c *Context) NewTableID(name string) ids.ID {
	id := c.allocator.New(ids.KindTable, name)
	c.tables[id] = NewTableInfo(id)
	return id
}

// GetTableInfo returns the TableInfo for id, creating one on first demand
// (spec §4.5's "getTableInfo" contract; invariant 2: "For any table ID,
// there is exactly one TableInfo").
func (c *Context) GetTableInfo(id ids.ID) *TableInfo {
	info, ok := c.tables[id]
	if !ok {
		info = NewTableInfo(id)
		c.tables[id] = info
	}
	return info
}

// GetTableID resolves or allocates the table ID a local/global name
// currently denotes, allocating a fresh one if name has never been bound
// to a table (spec §4.5's "getTableId(node, name?)").
func (c *Context) GetTableID(existing ids.ID, name string) ids.ID {
	if existing != "" {
		return existing
	}
	return c.NewTableID(name)
}

func (c *Context) GetFunctionID(name string) ids.ID {
	id := c.allocator.New(ids.KindFunction, name)
	c.functions[id] = NewFunctionInfo(id)
	return id
}

func (c *Context) GetFunctionInfo(id ids.ID) *FunctionInfo {
	info, ok := c.functions[id]
	if !ok {
		info = NewFunctionInfo(id)
		c.functions[id] = info
	}
	return info
}

func (c *Context) SetFunctionInfo(id ids.ID, info *FunctionInfo) {
	c.functions[id] = info
}

// SetTableLiteralFields records a table literal's positional constructor
// fields (spec §4.5's "setTableLiteralFields").
func (c *Context) SetTableLiteralFields(id ids.ID, fields []*ExpressionInfo) {
	c.GetTableInfo(id).LiteralFields = fields
}

func (c *Context) NewParameterID(name string) ids.ID {
	return c.allocator.New(ids.KindParameter, name)
}

func (c *Context) NewSelfID(name string) ids.ID {
	return c.allocator.New(ids.KindSelf, name)
}

func (c *Context) NewInstanceID(name string) ids.ID {
	return c.allocator.New(ids.KindInstance, name)
}

func (c *Context) NewLocalID(name string) ids.ID {
	return c.allocator.New(ids.KindLocal, name)
}

func (c *Context) NewModuleID(name string) ids.ID {
	return c.allocator.New(ids.KindModule, name)
}

// --- Definitions (spec §3 "Definition map": global) ---

func (c *Context) AddDefinition(id ids.ID, info *ExpressionInfo) {
	c.definitions[id] = append(c.definitions[id], info)
}

func (c *Context) Definitions(id ids.ID) DefinitionList {
	return c.definitions[id]
}

// --- Usage records (spec §3 "Usage record") ---

func (c *Context) Usage(e Expr) *UsageRecord {
	rec, ok := c.usage[e]
	if !ok {
		rec = &UsageRecord{}
		c.usage[e] = rec
	}
	return rec
}

func (c *Context) HasUsage(e Expr) bool {
	_, ok := c.usage[e]
	return ok
}

func (c *Context) AllUsage() map[Expr]*UsageRecord { return c.usage }

// --- Modules ---

func (c *Context) SetModule(fileID string, m *Module) { c.modules[fileID] = m }

// GetModule looks up a module by name, consulting the alias map when
// checkAliases is true (spec §4.5's "getModule(name, checkAliases?)").
func (c *Context) GetModule(name string, checkAliases bool) (*Module, bool) {
	if m, ok := c.modules[name]; ok {
		return m, true
	}
	if !checkAliases || c.aliases == nil {
		return nil, false
	}
	known := make(map[string]bool, len(c.modules))
	for id := range c.modules {
		known[id] = true
	}
	for candidate := range c.aliases.Resolve(name, "", known) {
		if m, ok := c.modules[candidate]; ok {
			return m, true
		}
	}
	return nil, false
}

func (c *Context) Modules() map[string]*Module { return c.modules }

// --- Unknown-class placeholders (spec §4.4 idiom 7) ---

func (c *Context) UnknownClass(name string) (ids.ID, bool) {
	id, ok := c.unknownClasses[name]
	return id, ok
}

func (c *Context) SetUnknownClass(name string, id ids.ID) {
	c.unknownClasses[name] = id
}

// AllTables and AllFunctions expose everything the context has allocated;
// the type resolver scans AllTables for instance links and the analyzer
// walks AllFunctions to fill in return and parameter types.
func (c *Context) AllTables() map[ids.ID]*TableInfo       { return c.tables }
func (c *Context) AllFunctions() map[ids.ID]*FunctionInfo { return c.functions }
