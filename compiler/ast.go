package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Tuga
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// NodeID is a dense index assigned to every node when the tree is built.
// Side tables such as TypeMap are slices indexed by it.
type NodeID int

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	ID() NodeID
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// nodeInfo carries the fields common to every node.
type nodeInfo struct {
	SpanVal Span
	IDVal   NodeID
}

func (n *nodeInfo) Span() Span { return n.SpanVal }
func (n *nodeInfo) ID() NodeID { return n.IDVal }
func (n *nodeInfo) node()      {}

// Operator identifies the operator of a unary or binary expression.
type Operator int

const (
	OpMul Operator = iota
	OpDiv
	OpMod
	OpPlus
	OpMinus
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpNot
	OpNeg
)

var operatorNames = [...]string{
	OpMul:       "*",
	OpDiv:       "/",
	OpMod:       "%",
	OpPlus:      "+",
	OpMinus:     "-",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpEqual:     "igual",
	OpNotEqual:  "diferente",
	OpAnd:       "e",
	OpOr:        "ou",
	OpNot:       "nao",
	OpNeg:       "-",
}

// String returns the operator as written in source.
func (op Operator) String() string {
	if int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return "?"
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// IntLiteral represents an integer literal.
type IntLiteral struct {
	nodeInfo
	Value int64
}

func (n *IntLiteral) expr() {}

// RealLiteral represents a real literal such as 3.14.
type RealLiteral struct {
	nodeInfo
	Value float64
}

func (n *RealLiteral) expr() {}

// BoolLiteral represents verdadeiro or falso.
type BoolLiteral struct {
	nodeInfo
	Value bool
}

func (n *BoolLiteral) expr() {}

// StringLiteral represents a string literal. Value keeps the surrounding
// double quotes exactly as written.
type StringLiteral struct {
	nodeInfo
	Value string
}

func (n *StringLiteral) expr() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	nodeInfo
	Inner Expr
}

func (n *ParenExpr) expr() {}

// NegExpr represents unary minus.
type NegExpr struct {
	nodeInfo
	Operand Expr
}

func (n *NegExpr) expr() {}

// NotExpr represents logical negation (nao).
type NotExpr struct {
	nodeInfo
	Operand Expr
}

func (n *NotExpr) expr() {}

// MulExpr represents *, / or %.
type MulExpr struct {
	nodeInfo
	Op          Operator
	Left, Right Expr
}

func (n *MulExpr) expr() {}

// AddExpr represents + or -.
type AddExpr struct {
	nodeInfo
	Op          Operator
	Left, Right Expr
}

func (n *AddExpr) expr() {}

// RelExpr represents <, <=, > or >=.
type RelExpr struct {
	nodeInfo
	Op          Operator
	Left, Right Expr
}

func (n *RelExpr) expr() {}

// EqExpr represents igual or diferente.
type EqExpr struct {
	nodeInfo
	Op          Operator
	Left, Right Expr
}

func (n *EqExpr) expr() {}

// AndExpr represents logical and (e).
type AndExpr struct {
	nodeInfo
	Left, Right Expr
}

func (n *AndExpr) expr() {}

// OrExpr represents logical or (ou).
type OrExpr struct {
	nodeInfo
	Left, Right Expr
}

func (n *OrExpr) expr() {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// PrintStmt represents "escreve expr;".
type PrintStmt struct {
	nodeInfo
	Value Expr
}

// Program is the root of a parsed source file.
type Program struct {
	nodeInfo
	Statements []*PrintStmt
	NodeCount  int // number of IDs handed out while building this tree
}

// ---------------------------------------------------------------------------
// Traversal helpers
// ---------------------------------------------------------------------------

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Program:
		out := make([]Node, len(n.Statements))
		for i, s := range n.Statements {
			out[i] = s
		}
		return out
	case *PrintStmt:
		return []Node{n.Value}
	case *ParenExpr:
		return []Node{n.Inner}
	case *NegExpr:
		return []Node{n.Operand}
	case *NotExpr:
		return []Node{n.Operand}
	case *MulExpr:
		return []Node{n.Left, n.Right}
	case *AddExpr:
		return []Node{n.Left, n.Right}
	case *RelExpr:
		return []Node{n.Left, n.Right}
	case *EqExpr:
		return []Node{n.Left, n.Right}
	case *AndExpr:
		return []Node{n.Left, n.Right}
	case *OrExpr:
		return []Node{n.Left, n.Right}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// ExprAt returns the innermost expression whose span contains the given
// byte offset, or nil.
func ExprAt(root Node, offset int) Expr {
	var found Expr
	Walk(root, func(n Node) bool {
		if !n.Span().Contains(offset) {
			return false
		}
		if e, ok := n.(Expr); ok {
			found = e
		}
		return true
	})
	return found
}
