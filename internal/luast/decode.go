package luast

import (
	"encoding/json"
	"fmt"
)

// DecodeChunk parses one file's worth of externally-produced AST JSON into
// a Chunk. This is the concrete shape the external parser's output takes
// when handed to this engine as a file on disk rather than constructed
// in-process: every node is `{"Kind": "...", "At": {...}, ...own fields}`,
// the same field names the Go structs in this package already carry, so
// the contract is "the parser's output matches these struct literals"
// whether that parser hands them over as Go values or as this JSON
// encoding of them.
func DecodeChunk(data []byte) (*Chunk, error) {
	node, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	chunk, ok := node.(*Chunk)
	if !ok {
		return nil, fmt.Errorf("luast: root node is %T, not Chunk", node)
	}
	return chunk, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var probe struct {
		Kind Kind
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	var n Node
	switch probe.Kind {
	case KindChunk:
		n = &Chunk{}
	case KindLocalStatement:
		n = &LocalStatement{}
	case KindAssignmentStatement:
		n = &AssignmentStatement{}
	case KindReturnStatement:
		n = &ReturnStatement{}
	case KindIfStatement:
		n = &IfStatement{}
	case KindIfClause:
		n = &IfClause{}
	case KindElseifClause:
		n = &ElseifClause{}
	case KindElseClause:
		n = &ElseClause{}
	case KindWhileStatement:
		n = &WhileStatement{}
	case KindRepeatStatement:
		n = &RepeatStatement{}
	case KindDoStatement:
		n = &DoStatement{}
	case KindForNumericStatement:
		n = &ForNumericStatement{}
	case KindForGenericStatement:
		n = &ForGenericStatement{}
	case KindFunctionDeclaration:
		n = &FunctionDeclaration{}
	case KindCallStatement:
		n = &CallStatement{}
	case KindIdentifier:
		n = &Identifier{}
	case KindVarargLiteral:
		n = &VarargLiteral{}
	case KindStringLiteral:
		n = &StringLiteral{}
	case KindNumericLiteral:
		n = &NumericLiteral{}
	case KindBooleanLiteral:
		n = &BooleanLiteral{}
	case KindNilLiteral:
		n = &NilLiteral{}
	case KindTableConstructorExpression:
		n = &TableConstructorExpression{}
	case KindMemberExpression:
		n = &MemberExpression{}
	case KindIndexExpression:
		n = &IndexExpression{}
	case KindUnaryExpression:
		n = &UnaryExpression{}
	case KindBinaryExpression:
		n = &BinaryExpression{}
	case KindLogicalExpression:
		n = &LogicalExpression{}
	case KindCallExpression:
		n = &CallExpression{}
	case KindTableCallExpression:
		n = &TableCallExpression{}
	case KindStringCallExpression:
		n = &StringCallExpression{}
	case KindTableValue:
		n = &TableValue{}
	case KindTableKey:
		n = &TableKey{}
	case KindTableKeyString:
		n = &TableKeyString{}
	default:
		return nil, fmt.Errorf("luast: unknown node kind %q", probe.Kind)
	}
	if err := json.Unmarshal(raw, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNodes(raw []json.RawMessage) ([]Node, error) {
	out := make([]Node, 0, len(raw))
	for _, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Every struct below that carries a Node or []Node field needs its own
// UnmarshalJSON: encoding/json cannot fill an interface-typed field
// without being told which concrete type to build.

func (c *Chunk) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Body []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return err
	}
	c.Base, c.Body = shadow.Base, body
	return nil
}

func (s *LocalStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Names *[]string
		Init  []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	init, err := decodeNodes(shadow.Init)
	if err != nil {
		return err
	}
	s.Base, s.Names, s.Init = shadow.Base, shadow.Names, init
	return nil
}

func (s *AssignmentStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Variables []json.RawMessage
		Init      []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	vars, err := decodeNodes(shadow.Variables)
	if err != nil {
		return err
	}
	init, err := decodeNodes(shadow.Init)
	if err != nil {
		return err
	}
	s.Base, s.Variables, s.Init = shadow.Base, vars, init
	return nil
}

func (s *ReturnStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Arguments []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	args, err := decodeNodes(shadow.Arguments)
	if err != nil {
		return err
	}
	s.Base, s.Arguments = shadow.Base, args
	return nil
}

func (s *IfStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Clauses []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	clauses, err := decodeNodes(shadow.Clauses)
	if err != nil {
		return err
	}
	s.Base, s.Clauses = shadow.Base, clauses
	return nil
}

func decodeCondBody(data []byte) (Base, Node, []Node, error) {
	var shadow struct {
		Base
		Condition json.RawMessage
		Body      []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return Base{}, nil, nil, err
	}
	cond, err := decodeNode(shadow.Condition)
	if err != nil {
		return Base{}, nil, nil, err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return Base{}, nil, nil, err
	}
	return shadow.Base, cond, body, nil
}

func (s *IfClause) UnmarshalJSON(data []byte) error {
	base, cond, body, err := decodeCondBody(data)
	if err != nil {
		return err
	}
	s.Base, s.Condition, s.Body = base, cond, body
	return nil
}

func (s *ElseifClause) UnmarshalJSON(data []byte) error {
	base, cond, body, err := decodeCondBody(data)
	if err != nil {
		return err
	}
	s.Base, s.Condition, s.Body = base, cond, body
	return nil
}

func (s *WhileStatement) UnmarshalJSON(data []byte) error {
	base, cond, body, err := decodeCondBody(data)
	if err != nil {
		return err
	}
	s.Base, s.Condition, s.Body = base, cond, body
	return nil
}

func (s *RepeatStatement) UnmarshalJSON(data []byte) error {
	base, cond, body, err := decodeCondBody(data)
	if err != nil {
		return err
	}
	s.Base, s.Condition, s.Body = base, cond, body
	return nil
}

func decodeBodyOnly(data []byte) (Base, []Node, error) {
	var shadow struct {
		Base
		Body []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return Base{}, nil, err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return Base{}, nil, err
	}
	return shadow.Base, body, nil
}

func (s *ElseClause) UnmarshalJSON(data []byte) error {
	base, body, err := decodeBodyOnly(data)
	if err != nil {
		return err
	}
	s.Base, s.Body = base, body
	return nil
}

func (s *DoStatement) UnmarshalJSON(data []byte) error {
	base, body, err := decodeBodyOnly(data)
	if err != nil {
		return err
	}
	s.Base, s.Body = base, body
	return nil
}

func (s *ForNumericStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Variable string
		Start    json.RawMessage
		End      json.RawMessage
		Step     json.RawMessage
		Body     []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	start, err := decodeNode(shadow.Start)
	if err != nil {
		return err
	}
	end, err := decodeNode(shadow.End)
	if err != nil {
		return err
	}
	step, err := decodeNode(shadow.Step)
	if err != nil {
		return err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return err
	}
	s.Base, s.Variable, s.Start, s.End, s.Step, s.Body = shadow.Base, shadow.Variable, start, end, step, body
	return nil
}

func (s *ForGenericStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Variables []string
		Iterators []json.RawMessage
		Body      []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	iters, err := decodeNodes(shadow.Iterators)
	if err != nil {
		return err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return err
	}
	s.Base, s.Variables, s.Iterators, s.Body = shadow.Base, shadow.Variables, iters, body
	return nil
}

func (s *FunctionDeclaration) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Identifier json.RawMessage
		IsLocal    bool
		Parameters []string
		HasVararg  bool
		Body       []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	ident, err := decodeNode(shadow.Identifier)
	if err != nil {
		return err
	}
	body, err := decodeNodes(shadow.Body)
	if err != nil {
		return err
	}
	s.Base, s.Identifier, s.IsLocal = shadow.Base, ident, shadow.IsLocal
	s.Parameters, s.HasVararg, s.Body = shadow.Parameters, shadow.HasVararg, body
	return nil
}

func (s *CallStatement) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Expression json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	expr, err := decodeNode(shadow.Expression)
	if err != nil {
		return err
	}
	s.Base, s.Expression = shadow.Base, expr
	return nil
}

func (e *TableConstructorExpression) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Fields []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	fields, err := decodeNodes(shadow.Fields)
	if err != nil {
		return err
	}
	e.Base, e.Fields = shadow.Base, fields
	return nil
}

func (e *TableValue) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Value json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	val, err := decodeNode(shadow.Value)
	if err != nil {
		return err
	}
	e.Base, e.Value = shadow.Base, val
	return nil
}

func (e *TableKey) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Key   json.RawMessage
		Value json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	key, err := decodeNode(shadow.Key)
	if err != nil {
		return err
	}
	val, err := decodeNode(shadow.Value)
	if err != nil {
		return err
	}
	e.Base, e.Key, e.Value = shadow.Base, key, val
	return nil
}

func (e *TableKeyString) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Key   string
		Value json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	val, err := decodeNode(shadow.Value)
	if err != nil {
		return err
	}
	e.Base, e.Key, e.Value = shadow.Base, shadow.Key, val
	return nil
}

func (e *MemberExpression) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		BaseExpr json.RawMessage
		Indexer  Indexer
		Member   string
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	base, err := decodeNode(shadow.BaseExpr)
	if err != nil {
		return err
	}
	e.Base, e.BaseExpr, e.Indexer, e.Member = shadow.Base, base, shadow.Indexer, shadow.Member
	return nil
}

func (e *IndexExpression) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		BaseExpr json.RawMessage
		Index    json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	base, err := decodeNode(shadow.BaseExpr)
	if err != nil {
		return err
	}
	idx, err := decodeNode(shadow.Index)
	if err != nil {
		return err
	}
	e.Base, e.BaseExpr, e.Index = shadow.Base, base, idx
	return nil
}

func (e *UnaryExpression) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		Operator string
		Argument json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	arg, err := decodeNode(shadow.Argument)
	if err != nil {
		return err
	}
	e.Base, e.Operator, e.Argument = shadow.Base, shadow.Operator, arg
	return nil
}

func decodeBinary(data []byte) (Base, string, Node, Node, error) {
	var shadow struct {
		Base
		Operator string
		Left     json.RawMessage
		Right    json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return Base{}, "", nil, nil, err
	}
	left, err := decodeNode(shadow.Left)
	if err != nil {
		return Base{}, "", nil, nil, err
	}
	right, err := decodeNode(shadow.Right)
	if err != nil {
		return Base{}, "", nil, nil, err
	}
	return shadow.Base, shadow.Operator, left, right, nil
}

func (e *BinaryExpression) UnmarshalJSON(data []byte) error {
	base, op, left, right, err := decodeBinary(data)
	if err != nil {
		return err
	}
	e.Base, e.Operator, e.Left, e.Right = base, op, left, right
	return nil
}

func (e *LogicalExpression) UnmarshalJSON(data []byte) error {
	base, op, left, right, err := decodeBinary(data)
	if err != nil {
		return err
	}
	e.Base, e.Operator, e.Left, e.Right = base, op, left, right
	return nil
}

func (e *CallExpression) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Base
		BaseExpr  json.RawMessage
		Arguments []json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	base, err := decodeNode(shadow.BaseExpr)
	if err != nil {
		return err
	}
	args, err := decodeNodes(shadow.Arguments)
	if err != nil {
		return err
	}
	e.Base, e.BaseExpr, e.Arguments = shadow.Base, base, args
	return nil
}

func decodeBaseAndArgument(data []byte) (Base, Node, Node, error) {
	var shadow struct {
		Base
		BaseExpr json.RawMessage
		Argument json.RawMessage
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return Base{}, nil, nil, err
	}
	base, err := decodeNode(shadow.BaseExpr)
	if err != nil {
		return Base{}, nil, nil, err
	}
	arg, err := decodeNode(shadow.Argument)
	if err != nil {
		return Base{}, nil, nil, err
	}
	return shadow.Base, base, arg, nil
}

func (e *TableCallExpression) UnmarshalJSON(data []byte) error {
	base, b, arg, err := decodeBaseAndArgument(data)
	if err != nil {
		return err
	}
	e.Base, e.BaseExpr, e.Argument = base, b, arg
	return nil
}

func (e *StringCallExpression) UnmarshalJSON(data []byte) error {
	base, b, arg, err := decodeBaseAndArgument(data)
	if err != nil {
		return err
	}
	e.Base, e.BaseExpr, e.Argument = base, b, arg
	return nil
}
