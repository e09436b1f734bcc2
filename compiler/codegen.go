package compiler

import (
	"fmt"
	"math"

	"github.com/chazu/tuga/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Code generator: typed AST to bytecode.Program
// ---------------------------------------------------------------------------

// CodegenError reports a tree the generator cannot lower: a node without a
// usable type annotation, or a literal the instruction set cannot encode.
type CodegenError struct {
	Span Span
	Msg  string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Span.Start.Line, e.Msg)
}

// Opcode pairs indexed by operand family: [0] inteiro, [1] real.
var (
	arithOps = map[Operator][2]bytecode.Opcode{
		OpPlus:  {bytecode.OpIAdd, bytecode.OpDAdd},
		OpMinus: {bytecode.OpISub, bytecode.OpDSub},
		OpMul:   {bytecode.OpIMult, bytecode.OpDMult},
		OpDiv:   {bytecode.OpIDiv, bytecode.OpDDiv},
	}
	compareOps = map[Operator][2]bytecode.Opcode{
		OpLess:      {bytecode.OpILt, bytecode.OpDLt},
		OpLessEq:    {bytecode.OpILeq, bytecode.OpDLeq},
		OpGreater:   {bytecode.OpIGt, bytecode.OpDGt},
		OpGreaterEq: {bytecode.OpIGeq, bytecode.OpDGeq},
		OpEqual:     {bytecode.OpIEq, bytecode.OpDEq},
		OpNotEqual:  {bytecode.OpINeq, bytecode.OpDNeq},
	}
	boolEqOps = map[Operator]bytecode.Opcode{OpEqual: bytecode.OpBEq, OpNotEqual: bytecode.OpBNeq}
	textEqOps = map[Operator]bytecode.Opcode{OpEqual: bytecode.OpSEq, OpNotEqual: bytecode.OpSNeq}
)

func family(t ValueType) int {
	if t == TypeReal {
		return 1
	}
	return 0
}

// CodeGenerator lowers a type-annotated Program into bytecode.
type CodeGenerator struct {
	types TypeMap
	b     *bytecode.Builder
}

// NewCodeGenerator creates a generator reading annotations from types.
func NewCodeGenerator(types TypeMap) *CodeGenerator {
	return &CodeGenerator{types: types}
}

// Generate lowers every statement in order and appends a final halt.
// The tree must have passed semantic analysis without errors.
func (g *CodeGenerator) Generate(prog *Program) (*bytecode.Program, error) {
	g.b = bytecode.NewBuilder()

	for _, stmt := range prog.Statements {
		if err := g.genPrint(stmt); err != nil {
			return nil, err
		}
	}
	g.b.Emit(bytecode.OpHalt)

	out := g.b.Program()
	g.b = nil
	log.Debugf("generated %s", out.Stats())
	return out, nil
}

// typeOf returns the annotation of e, rejecting missing and erro types.
func (g *CodeGenerator) typeOf(e Expr) (ValueType, error) {
	switch t := g.types.Of(e); t {
	case TypeNone:
		return t, &CodegenError{Span: e.Span(), Msg: fmt.Sprintf("no type annotation for %T", e)}
	case TypeError:
		return t, &CodegenError{Span: e.Span(), Msg: "expression has a type error"}
	default:
		return t, nil
	}
}

func (g *CodeGenerator) genPrint(stmt *PrintStmt) error {
	if err := g.genExpr(stmt.Value); err != nil {
		return err
	}
	t, err := g.typeOf(stmt.Value)
	if err != nil {
		return err
	}
	switch t {
	case TypeInteger:
		g.b.Emit(bytecode.OpIPrint)
	case TypeReal:
		g.b.Emit(bytecode.OpDPrint)
	case TypeBoolean:
		g.b.Emit(bytecode.OpBPrint)
	case TypeText:
		g.b.Emit(bytecode.OpSPrint)
	}
	return nil
}

func (g *CodeGenerator) genExpr(expr Expr) error {
	switch e := expr.(type) {
	case *IntLiteral:
		if e.Value < math.MinInt32 || e.Value > math.MaxInt32 {
			return &CodegenError{Span: e.Span(), Msg: fmt.Sprintf("integer literal %d does not fit in 32 bits", e.Value)}
		}
		g.b.EmitWithOperand(bytecode.OpIConst, int32(e.Value))

	case *RealLiteral:
		g.b.EmitReal(e.Value)

	case *StringLiteral:
		g.b.EmitText(e.Value)

	case *BoolLiteral:
		if e.Value {
			g.b.Emit(bytecode.OpTConst)
		} else {
			g.b.Emit(bytecode.OpFConst)
		}

	case *ParenExpr:
		return g.genExpr(e.Inner)

	case *NegExpr:
		t, err := g.typeOf(e)
		if err != nil {
			return err
		}
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		if t == TypeReal {
			g.b.Emit(bytecode.OpDUminus)
		} else {
			g.b.Emit(bytecode.OpIUminus)
		}

	case *NotExpr:
		if err := g.genExpr(e.Operand); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpNot)

	case *AddExpr:
		t, err := g.typeOf(e)
		if err != nil {
			return err
		}
		if t == TypeText {
			return g.genConcat(e.Left, e.Right)
		}
		return g.genArith(e.Op, t, e.Left, e.Right)

	case *MulExpr:
		t, err := g.typeOf(e)
		if err != nil {
			return err
		}
		if e.Op == OpMod {
			if err := g.genOperands(e.Left, e.Right, TypeInteger); err != nil {
				return err
			}
			g.b.Emit(bytecode.OpIMod)
			return nil
		}
		return g.genArith(e.Op, t, e.Left, e.Right)

	case *RelExpr:
		return g.genCompare(e, e.Op, e.Left, e.Right)

	case *EqExpr:
		return g.genCompare(e, e.Op, e.Left, e.Right)

	case *AndExpr:
		if err := g.genOperands(e.Left, e.Right, TypeBoolean); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpAnd)

	case *OrExpr:
		if err := g.genOperands(e.Left, e.Right, TypeBoolean); err != nil {
			return err
		}
		g.b.Emit(bytecode.OpOr)

	default:
		return &CodegenError{Span: expr.Span(), Msg: fmt.Sprintf("unknown expression node %T", expr)}
	}
	return nil
}

// genOperand lowers e and widens it to real when target is real and e is
// an integer.
func (g *CodeGenerator) genOperand(e Expr, target ValueType) error {
	t, err := g.typeOf(e)
	if err != nil {
		return err
	}
	if err := g.genExpr(e); err != nil {
		return err
	}
	if t == TypeInteger && target == TypeReal {
		g.b.Emit(bytecode.OpIToD)
	}
	return nil
}

func (g *CodeGenerator) genOperands(left, right Expr, target ValueType) error {
	if err := g.genOperand(left, target); err != nil {
		return err
	}
	return g.genOperand(right, target)
}

func (g *CodeGenerator) genArith(op Operator, t ValueType, left, right Expr) error {
	ops, ok := arithOps[op]
	if !ok {
		return &CodegenError{Span: left.Span(), Msg: fmt.Sprintf("no arithmetic instruction for '%s'", op)}
	}
	if err := g.genOperands(left, right, t); err != nil {
		return err
	}
	g.b.Emit(ops[family(t)])
	return nil
}

// genCompare selects the instruction by the operands' common type; the
// node's own type is always booleano.
func (g *CodeGenerator) genCompare(node Expr, op Operator, left, right Expr) error {
	lt, err := g.typeOf(left)
	if err != nil {
		return err
	}
	rt, err := g.typeOf(right)
	if err != nil {
		return err
	}

	switch {
	case lt == TypeBoolean && rt == TypeBoolean && boolEqOps[op] != 0:
		if err := g.genOperands(left, right, TypeBoolean); err != nil {
			return err
		}
		g.b.Emit(boolEqOps[op])

	case lt == TypeText && rt == TypeText && textEqOps[op] != 0:
		if err := g.genOperands(left, right, TypeText); err != nil {
			return err
		}
		g.b.Emit(textEqOps[op])

	case lt.IsNumeric() && rt.IsNumeric():
		common := widen(lt, rt)
		if err := g.genOperands(left, right, common); err != nil {
			return err
		}
		g.b.Emit(compareOps[op][family(common)])

	default:
		return &CodegenError{Span: node.Span(), Msg: fmt.Sprintf("cannot compare '%s' with '%s'", lt, rt)}
	}
	return nil
}

// genConcat lowers text concatenation, stringifying non-text operands.
func (g *CodeGenerator) genConcat(left, right Expr) error {
	for _, e := range []Expr{left, right} {
		t, err := g.typeOf(e)
		if err != nil {
			return err
		}
		if err := g.genExpr(e); err != nil {
			return err
		}
		switch t {
		case TypeInteger:
			g.b.Emit(bytecode.OpIToS)
		case TypeReal:
			g.b.Emit(bytecode.OpDToS)
		case TypeBoolean:
			g.b.Emit(bytecode.OpBToS)
		}
	}
	g.b.Emit(bytecode.OpSConcat)
	return nil
}

// Generate is a convenience function that lowers prog using types.
func Generate(prog *Program, types TypeMap) (*bytecode.Program, error) {
	return NewCodeGenerator(types).Generate(prog)
}
