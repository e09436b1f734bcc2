package compiler

// Builder constructs AST nodes, handing each one the next NodeID. All nodes
// of one tree must come from the same Builder so their IDs are dense.
type Builder struct {
	next NodeID
}

func (b *Builder) info(span Span) nodeInfo {
	id := b.next
	b.next++
	return nodeInfo{SpanVal: span, IDVal: id}
}

// Count returns how many nodes have been built.
func (b *Builder) Count() int { return int(b.next) }

func (b *Builder) Int(span Span, v int64) *IntLiteral {
	return &IntLiteral{nodeInfo: b.info(span), Value: v}
}

func (b *Builder) Real(span Span, v float64) *RealLiteral {
	return &RealLiteral{nodeInfo: b.info(span), Value: v}
}

func (b *Builder) Bool(span Span, v bool) *BoolLiteral {
	return &BoolLiteral{nodeInfo: b.info(span), Value: v}
}

// Text builds a string literal; quoted should include the double quotes.
func (b *Builder) Text(span Span, quoted string) *StringLiteral {
	return &StringLiteral{nodeInfo: b.info(span), Value: quoted}
}

func (b *Builder) Paren(span Span, inner Expr) *ParenExpr {
	return &ParenExpr{nodeInfo: b.info(span), Inner: inner}
}

func (b *Builder) Neg(span Span, operand Expr) *NegExpr {
	return &NegExpr{nodeInfo: b.info(span), Operand: operand}
}

func (b *Builder) Not(span Span, operand Expr) *NotExpr {
	return &NotExpr{nodeInfo: b.info(span), Operand: operand}
}

// Binary builds the binary node matching op. It panics on a unary operator.
func (b *Builder) Binary(op Operator, left, right Expr) Expr {
	info := b.info(Span{Start: left.Span().Start, End: right.Span().End})
	switch op {
	case OpMul, OpDiv, OpMod:
		return &MulExpr{nodeInfo: info, Op: op, Left: left, Right: right}
	case OpPlus, OpMinus:
		return &AddExpr{nodeInfo: info, Op: op, Left: left, Right: right}
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		return &RelExpr{nodeInfo: info, Op: op, Left: left, Right: right}
	case OpEqual, OpNotEqual:
		return &EqExpr{nodeInfo: info, Op: op, Left: left, Right: right}
	case OpAnd:
		return &AndExpr{nodeInfo: info, Left: left, Right: right}
	case OpOr:
		return &OrExpr{nodeInfo: info, Left: left, Right: right}
	}
	panic("compiler: Binary called with unary operator " + op.String())
}

func (b *Builder) Print(span Span, value Expr) *PrintStmt {
	return &PrintStmt{nodeInfo: b.info(span), Value: value}
}

// Program builds the root. It must be the last node built, so that
// NodeCount covers every ID in the tree.
func (b *Builder) Program(span Span, stmts []*PrintStmt) *Program {
	p := &Program{nodeInfo: b.info(span), Statements: stmts}
	p.NodeCount = b.Count()
	return p
}
