// Package luast defines the AST node taxonomy the analysis engine consumes.
//
// The parser that produces these nodes is an external collaborator (see
// spec §1/§6): this package carries only the contract — node kinds, their
// fields, and source locations — never a scanner or grammar. Every field
// here mirrors a concrete production in the scripting language's grammar
// (statements, expressions, table constructors) so the scope reader
// (internal/scopereader) can dispatch on NodeKind() the same way
// internal/parser/engine.go's ExtractorEngine dispatches on a tree-sitter
// node kind string.
package luast

// Location mirrors internal/parser/types.go's Location value type.
type Location struct {
	File   string
	Line   int
	Column int
}

// Kind is a closed enum of node kinds; see spec §6 for the full taxonomy.
type Kind string

const (
	KindChunk Kind = "Chunk"

	// Statements
	KindLocalStatement      Kind = "LocalStatement"
	KindAssignmentStatement Kind = "AssignmentStatement"
	KindReturnStatement     Kind = "ReturnStatement"
	KindIfStatement         Kind = "IfStatement"
	KindWhileStatement      Kind = "WhileStatement"
	KindRepeatStatement     Kind = "RepeatStatement"
	KindDoStatement         Kind = "DoStatement"
	KindForGenericStatement Kind = "ForGenericStatement"
	KindForNumericStatement Kind = "ForNumericStatement"
	KindFunctionDeclaration Kind = "FunctionDeclaration"
	KindCallStatement       Kind = "CallStatement"

	// If-clauses
	KindIfClause     Kind = "IfClause"
	KindElseifClause Kind = "ElseifClause"
	KindElseClause   Kind = "ElseClause"

	// Expressions
	KindIdentifier                Kind = "Identifier"
	KindVarargLiteral              Kind = "VarargLiteral"
	KindStringLiteral              Kind = "StringLiteral"
	KindNumericLiteral              Kind = "NumericLiteral"
	KindBooleanLiteral              Kind = "BooleanLiteral"
	KindNilLiteral                  Kind = "NilLiteral"
	KindTableConstructorExpression Kind = "TableConstructorExpression"
	KindMemberExpression           Kind = "MemberExpression"
	KindIndexExpression             Kind = "IndexExpression"
	KindUnaryExpression             Kind = "UnaryExpression"
	KindBinaryExpression             Kind = "BinaryExpression"
	KindLogicalExpression           Kind = "LogicalExpression"
	KindCallExpression              Kind = "CallExpression"
	KindTableCallExpression         Kind = "TableCallExpression"
	KindStringCallExpression        Kind = "StringCallExpression"

	// Table constructor fields
	KindTableValue      Kind = "TableValue"
	KindTableKey        Kind = "TableKey"
	KindTableKeyString Kind = "TableKeyString"
)

// Node is the interface every AST node satisfies. Concrete node structs
// embed Base, which supplies NodeKind() and Loc() — the visitor-free dispatch
// pattern design note §9 calls for ("match on node kind strings... the
// visitor pattern is unnecessary").
type Node interface {
	NodeKind() Kind
	Loc() Location
}

// Base is embedded by every concrete node type.
type Base struct {
	Kind Kind
	At   Location
}

func (b Base) NodeKind() Kind  { return b.Kind }
func (b Base) Loc() Location   { return b.At }

// Chunk is the root of a parsed file.
type Chunk struct {
	Base
	Body []Node
}

// --- Statements ---

type LocalStatement struct {
	Base
	Names *[]string // supports `local a, b, ... = ...`
	Init  []Node
}

type AssignmentStatement struct {
	Base
	Variables []Node // LHS targets (Identifier or MemberExpression/IndexExpression)
	Init      []Node
}

type ReturnStatement struct {
	Base
	Arguments []Node
}

type IfStatement struct {
	Base
	Clauses []Node // IfClause, ElseifClause*, optional ElseClause
}

type IfClause struct {
	Base
	Condition Node
	Body      []Node
}

type ElseifClause struct {
	Base
	Condition Node
	Body      []Node
}

type ElseClause struct {
	Base
	Body []Node
}

type WhileStatement struct {
	Base
	Condition Node
	Body      []Node
}

type RepeatStatement struct {
	Base
	Condition Node
	Body      []Node
}

type DoStatement struct {
	Base
	Body []Node
}

type ForNumericStatement struct {
	Base
	Variable string
	Start    Node
	End      Node
	Step     Node // nil if omitted (defaults to 1)
	Body     []Node
}

type ForGenericStatement struct {
	Base
	Variables []string
	Iterators []Node
	Body      []Node
}

type FunctionDeclaration struct {
	Base
	Identifier Node // nil for anonymous function expressions
	IsLocal    bool
	Parameters []string
	HasVararg  bool
	Body       []Node
}

type CallStatement struct {
	Base
	Expression Node // CallExpression | TableCallExpression | StringCallExpression
}

// --- Expressions ---

type Identifier struct {
	Base
	Name string
}

type VarargLiteral struct {
	Base
	Value string
}

type StringLiteral struct {
	Base
	Value string
	Raw   string
}

type NumericLiteral struct {
	Base
	Value float64
	Raw   string
}

type BooleanLiteral struct {
	Base
	Value bool
}

type NilLiteral struct {
	Base
}

type TableConstructorExpression struct {
	Base
	Fields []Node // TableValue | TableKey | TableKeyString
}

type TableValue struct {
	Base
	Value Node
}

type TableKey struct {
	Base
	Key   Node
	Value Node
}

type TableKeyString struct {
	Base
	Key   string
	Value Node
}

// Indexer distinguishes MemberExpression access styles.
type Indexer string

const (
	IndexerDot    Indexer = "."
	IndexerColon  Indexer = ":"
)

type MemberExpression struct {
	Base
	BaseExpr Node
	Indexer  Indexer
	Member   string
}

type IndexExpression struct {
	Base
	BaseExpr Node
	Index    Node
}

type UnaryExpression struct {
	Base
	Operator string
	Argument Node
}

type BinaryExpression struct {
	Base
	Operator string
	Left     Node
	Right    Node
}

// LogicalExpression covers `and`/`or`.
type LogicalExpression struct {
	Base
	Operator string
	Left     Node
	Right    Node
}

type CallExpression struct {
	Base
	BaseExpr  Node
	Arguments []Node
}

// TableCallExpression is `f{...}` sugar.
type TableCallExpression struct {
	Base
	BaseExpr Node
	Argument Node // TableConstructorExpression
}

// StringCallExpression is `f"..."` sugar.
type StringCallExpression struct {
	Base
	BaseExpr Node
	Argument Node // StringLiteral
}
