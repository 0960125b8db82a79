package context

import "github.com/PZ-Umbrella/pz-lua-stubgen/internal/ids"

// LuaType names the coarse, user-facing value categories from spec §3's
// usage-record table and §4.6's finalized output.
type LuaType string

const (
	TypeBoolean  LuaType = "boolean"
	TypeTrue     LuaType = "true"
	TypeFalse    LuaType = "false"
	TypeFunction LuaType = "function"
	TypeNumber   LuaType = "number"
	TypeString   LuaType = "string"
	TypeTable    LuaType = "table"
	TypeNil      LuaType = "nil"
	TypeUnknown  LuaType = "unknown"
)

// TypeSet is the candidate-type set every expression resolves to: a subset
// of the LuaType names above. Synthetic IDs are not stored in it.
type TypeSet map[string]bool

func NewTypeSet(members ...string) TypeSet {
	s := make(TypeSet, len(members))
	for _, m := range members {
		s[m] = true
	}
	return s
}

func (s TypeSet) Clone() TypeSet {
	out := make(TypeSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s TypeSet) Union(other TypeSet) TypeSet {
	out := s.Clone()
	for k := range other {
		out[k] = true
	}
	return out
}

func (s TypeSet) Has(member string) bool { return s[member] }

func (s TypeSet) Add(member string) { s[member] = true }

func (s TypeSet) Remove(member string) { delete(s, member) }

func (s TypeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// --- Expressions (spec §3 "Expression (tagged variant)") ---

// Expr is the closed expression union. Concrete types below implement it;
// per design note §9, dispatch is a type switch, never a visitor.
//
// Expression identity matters: the same *Expr pointer is used as a map key
// in the type resolver's cycle-detection ("seen") map and in usage records,
// so expressions are never copied by value once created.
type Expr interface {
	exprTag()
}

type ReferenceExpr struct {
	ID ids.ID
}

func (*ReferenceExpr) exprTag() {}

type RequireExpr struct {
	Module string
}

func (*RequireExpr) exprTag() {}

// LiteralKind distinguishes the literal payload carried by LiteralExpr.
type LiteralKind string

const (
	LiteralBoolean  LiteralKind = "boolean"
	LiteralString   LiteralKind = "string"
	LiteralNumber   LiteralKind = "number"
	LiteralNil      LiteralKind = "nil"
	LiteralTable    LiteralKind = "table"
	LiteralFunction LiteralKind = "function"
)

type LiteralExpr struct {
	LuaKind   LiteralKind
	BoolValue bool
	// StringValue/NumberValue carry the literal's text, populated only for
	// LiteralString/LiteralNumber. Needed so index expressions (t[k]) can
	// resolve k to a literal definitions-map key (spec §4.3's "index"
	// resolution) — everywhere else a string/number only needs its kind.
	StringValue string
	NumberValue float64
	TableID     ids.ID
	FunctionID  ids.ID
	// Parameters/ReturnTypes/IsMethod only apply when LuaKind is
	// LiteralFunction; they mirror the literal constructor's shape before
	// a FunctionInfo is fully built.
	Parameters  []string
	ReturnTypes []TypeSet
	IsMethod    bool
}

func (*LiteralExpr) exprTag() {}

type MemberIndexer string

const (
	MemberDot   MemberIndexer = "."
	MemberColon MemberIndexer = ":"
)

type MemberExpr struct {
	BaseExpr Expr
	Member   string
	Indexer  MemberIndexer
}

func (*MemberExpr) exprTag() {}

type IndexExpr struct {
	BaseExpr  Expr
	IndexExpr Expr
}

func (*IndexExpr) exprTag() {}

type OperationExpr struct {
	Operator  string // "call", "..", "and", "or", "not", arithmetic/comparison ops, "#"
	Arguments []Expr
}

func (*OperationExpr) exprTag() {}

// --- Function/table metadata (spec §3 entities) ---

type FunctionInfo struct {
	ID                ids.ID
	Name              string // short name, e.g. "new" for `function Foo:new()`
	ParameterIDs      []ids.ID
	ParameterNames    []string
	ParameterTypes    []TypeSet // one per parameter, accumulated
	ReturnTypes       []TypeSet // one per return position
	ReturnExpressions [][]Expr  // per return site, for emission
	MinReturns        int
	IsConstructor     bool
	IsMethod          bool
	// IdentifierExpr is the declaration's LHS: a MemberExpr for
	// `function T.m()`/`function T:m()`, a ReferenceExpr for a bare
	// `function f()`, or nil for an anonymous function literal.
	IdentifierExpr Expr
	// BodyScope is the function-scoped Scope the reader built while
	// walking this declaration's body; the class resolver (component D)
	// inspects it to detect the closure-based class idiom.
	BodyScope *Scope
}

func NewFunctionInfo(id ids.ID) *FunctionInfo {
	return &FunctionInfo{ID: id, MinReturns: -1}
}

// ExpressionInfo is a definition-site record (spec §3).
type ExpressionInfo struct {
	Expression     Expr
	Index          int // 1-based return-position selector when Expression is a call
	Instance       bool
	FromLiteral    bool
	DefiningModule string
	FunctionLevel  bool
}

// DefinitionList is the ordered ExpressionInfo list spec §3 calls a
// "Definition map" entry.
type DefinitionList []*ExpressionInfo

type TableInfo struct {
	ID                  ids.ID
	LiteralFields       []*ExpressionInfo // positional constructor fields
	Definitions         map[string]DefinitionList
	ClassName           string
	ContainerID         ids.ID
	OriginalName        string
	IsClosureClass      bool
	IsLocalClass        bool
	IsLocalDeriveClass  bool
	IsEmptyClass        bool
	IsAtomUI            bool
	IsAtomUIBase        bool
	EmitAsTable         bool
	InstanceName        string
	InstanceID          ids.ID
	DefiningModule      string
	OriginalBase        string
	OriginalDeriveName  string
}

func NewTableInfo(id ids.ID) *TableInfo {
	return &TableInfo{ID: id, Definitions: make(map[string]DefinitionList)}
}

// UsageRecord accumulates the capability flags spec §4.2's usage taxonomy
// assigns to an expression, keyed by expression identity.
type UsageRecord struct {
	SupportsConcatenation bool
	SupportsIndexing      bool
	SupportsLength        bool
	SupportsIndexAssignment bool
	SupportsMath          bool
	InNumericFor          bool
	Arguments             []Expr // present only for call-base usage
}

// CandidateTypes materializes the usage record into the narrowing set from
// spec §4.3 "Narrowing".
func (u *UsageRecord) CandidateTypes() TypeSet {
	set := make(TypeSet)
	if u.SupportsConcatenation {
		set.Add(string(TypeString))
		set.Add(string(TypeNumber))
	}
	if u.SupportsMath {
		set.Add(string(TypeNumber))
	}
	if u.SupportsLength {
		set.Add(string(TypeTable))
		set.Add(string(TypeString))
	}
	if u.SupportsIndexing {
		set.Add(string(TypeTable))
		set.Add(string(TypeString))
	}
	if u.SupportsIndexAssignment {
		set.Add(string(TypeTable))
	}
	if u.InNumericFor {
		set.Add(string(TypeNumber))
	}
	if u.Arguments != nil {
		set.Add(string(TypeFunction))
	}
	return set
}

// --- Scope (spec §3 "Scope") ---

type ScopeKind string

const (
	ScopeModule   ScopeKind = "module"
	ScopeFunction ScopeKind = "function"
	ScopeBlock    ScopeKind = "block"
)

// Item is anything a scope's Items list can hold once resolved: an
// assignment, a function definition, a require assignment, a usage fact, a
// return, a partial marker, or a resolved sub-scope. Modeled as a closed
// union, same shape as Expr.
type Item interface {
	itemTag()
}

type AssignmentItem struct {
	Target Expr
	Source Expr
	Index  int // 1-based position into Source's return list
	Local  bool
}

func (*AssignmentItem) itemTag() {}

type RequireAssignmentItem struct {
	Target Expr
	Module string
}

func (*RequireAssignmentItem) itemTag() {}

type FunctionDefItem struct {
	FunctionID ids.ID
}

func (*FunctionDefItem) itemTag() {}

type UsageItem struct {
	Expression Expr
	Record     *UsageRecord
}

func (*UsageItem) itemTag() {}

type ReturnsItem struct {
	Arguments []Expr
}

func (*ReturnsItem) itemTag() {}

// PartialItem marks a scope whose resolution is still in flight. The scope
// reader does not emit it; nested blocks are recorded as SubScopeItem.
type PartialItem struct {
	Scope *Scope
}

func (*PartialItem) itemTag() {}

type SubScopeItem struct {
	Scope *Scope
}

func (*SubScopeItem) itemTag() {}

type Scope struct {
	ID               string
	Kind             ScopeKind
	Parent           *Scope
	Statements       int // count of statements walked, for diagnostics
	Items            []Item
	NameToID         map[string]ids.ID
	IDToName         map[ids.ID]string
	ClassSelfName    string // closure-class self name; no component in this repository sets it
	ClassTableID     ids.ID
}

func NewScope(kind ScopeKind, id string, parent *Scope) *Scope {
	return &Scope{
		Kind:     kind,
		ID:       id,
		Parent:   parent,
		NameToID: make(map[string]ids.ID),
		IDToName: make(map[ids.ID]string),
	}
}

func (s *Scope) Bind(name string, id ids.ID) {
	s.NameToID[name] = id
	s.IDToName[id] = name
}

func (s *Scope) Lookup(name string) (ids.ID, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if id, ok := cur.NameToID[name]; ok {
			return id, true
		}
	}
	return "", false
}

// --- Module (spec §3 "Module") ---

type Module struct {
	FileID     string
	Tags       []string
	Scope      *Scope
	Classes    []ids.ID
	SeenClasses map[ids.ID]bool
	Tables     []ids.ID
	Functions  []ids.ID
	Fields     map[string]TypeSet
	Returns    []TypeSet
	Prefix     string
}

func NewModule(fileID string) *Module {
	return &Module{
		FileID:      fileID,
		SeenClasses: make(map[ids.ID]bool),
		Fields:      make(map[string]TypeSet),
	}
}
