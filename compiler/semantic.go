package compiler

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: type inference and checking
// ---------------------------------------------------------------------------

// TypeCheckError describes one type rule violation.
type TypeCheckError struct {
	Span  Span
	Op    Operator
	Types []ValueType // offending operand types, left to right
	Msg   string
}

func (e *TypeCheckError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Span.Start.Line, e.Msg)
}

// Diagnostic converts the error to the compiler's common diagnostic form.
func (e *TypeCheckError) Diagnostic() Diagnostic {
	return Diagnostic{Pos: e.Span.Start, End: e.Span.End, Msg: e.Msg}
}

// AnalyzerOptions configures error visibility. ShowErrors only decides
// whether messages are written to Out as they are found; detection is the
// same either way.
type AnalyzerOptions struct {
	ShowErrors bool
	Out        io.Writer // defaults to os.Stdout
}

// SemanticAnalyzer annotates every expression with its type in one
// post-order pass. It never stops early: a violation records a TypeCheckError and
// types the node erro, and erro operands silence further reports.
type SemanticAnalyzer struct {
	opts   AnalyzerOptions
	types  TypeMap
	errors []*TypeCheckError
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer(opts AnalyzerOptions) *SemanticAnalyzer {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &SemanticAnalyzer{opts: opts}
}

// Analyze annotates prog and returns the resulting type map.
func (s *SemanticAnalyzer) Analyze(prog *Program) TypeMap {
	s.types = NewTypeMap(prog.NodeCount)
	s.errors = nil
	for _, stmt := range prog.Statements {
		s.analyzeExpr(stmt.Value)
	}
	log.Debugf("analyzed %d statements, %d type errors", len(prog.Statements), len(s.errors))
	return s.types
}

// HasErrors reports whether the last Analyze found any type error.
func (s *SemanticAnalyzer) HasErrors() bool {
	return len(s.errors) > 0
}

// TypeErrors returns the structured errors from the last Analyze.
func (s *SemanticAnalyzer) TypeErrors() []*TypeCheckError {
	return s.errors
}

// Errors returns accumulated analysis errors as strings.
func (s *SemanticAnalyzer) Errors() []string {
	out := make([]string, len(s.errors))
	for i, e := range s.errors {
		out[i] = e.Error()
	}
	return out
}

// Types returns the type map built by the last Analyze.
func (s *SemanticAnalyzer) Types() TypeMap {
	return s.types
}

// errorAt records a violation and returns the erro type.
func (s *SemanticAnalyzer) errorAt(node Node, op Operator, types ...ValueType) ValueType {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = "'" + t.String() + "'"
	}
	e := &TypeCheckError{
		Span:  node.Span(),
		Op:    op,
		Types: types,
		Msg:   fmt.Sprintf("operator '%s' cannot be applied to %s", op, strings.Join(names, " and ")),
	}
	s.errors = append(s.errors, e)
	if s.opts.ShowErrors {
		fmt.Fprintln(s.opts.Out, e.Error())
	}
	return TypeError
}

// analyzeExpr computes, records and returns the type of expr.
func (s *SemanticAnalyzer) analyzeExpr(expr Expr) ValueType {
	var t ValueType

	switch e := expr.(type) {
	case *IntLiteral:
		t = TypeInteger
	case *RealLiteral:
		t = TypeReal
	case *BoolLiteral:
		t = TypeBoolean
	case *StringLiteral:
		t = TypeText

	case *ParenExpr:
		t = s.analyzeExpr(e.Inner)

	case *NegExpr:
		operand := s.analyzeExpr(e.Operand)
		switch {
		case operand == TypeError:
			t = TypeError
		case operand.IsNumeric():
			t = operand
		default:
			t = s.errorAt(e, OpNeg, operand)
		}

	case *NotExpr:
		operand := s.analyzeExpr(e.Operand)
		switch operand {
		case TypeError:
			t = TypeError
		case TypeBoolean:
			t = TypeBoolean
		default:
			t = s.errorAt(e, OpNot, operand)
		}

	case *AddExpr:
		l, r := s.analyzeExpr(e.Left), s.analyzeExpr(e.Right)
		switch {
		case l == TypeError || r == TypeError:
			t = TypeError
		case e.Op == OpPlus && (l == TypeText || r == TypeText):
			t = TypeText
		case l.IsNumeric() && r.IsNumeric():
			t = widen(l, r)
		default:
			t = s.errorAt(e, e.Op, l, r)
		}

	case *MulExpr:
		l, r := s.analyzeExpr(e.Left), s.analyzeExpr(e.Right)
		switch {
		case l == TypeError || r == TypeError:
			t = TypeError
		case e.Op == OpMod:
			if l == TypeInteger && r == TypeInteger {
				t = TypeInteger
			} else {
				t = s.errorAt(e, e.Op, l, r)
			}
		case l.IsNumeric() && r.IsNumeric():
			t = widen(l, r)
		default:
			t = s.errorAt(e, e.Op, l, r)
		}

	case *RelExpr:
		l, r := s.analyzeExpr(e.Left), s.analyzeExpr(e.Right)
		switch {
		case l == TypeError || r == TypeError:
			t = TypeError
		case l.IsNumeric() && r.IsNumeric():
			t = TypeBoolean
		default:
			t = s.errorAt(e, e.Op, l, r)
		}

	case *EqExpr:
		l, r := s.analyzeExpr(e.Left), s.analyzeExpr(e.Right)
		switch {
		case l == TypeError || r == TypeError:
			t = TypeError
		case l == TypeBoolean && r == TypeBoolean,
			l == TypeText && r == TypeText,
			l.IsNumeric() && r.IsNumeric():
			t = TypeBoolean
		default:
			t = s.errorAt(e, e.Op, l, r)
		}

	case *AndExpr:
		t = s.analyzeLogical(e, OpAnd, e.Left, e.Right)
	case *OrExpr:
		t = s.analyzeLogical(e, OpOr, e.Left, e.Right)

	default:
		panic(fmt.Sprintf("compiler: unknown expression node %T", expr))
	}

	return s.types.set(expr, t)
}

func (s *SemanticAnalyzer) analyzeLogical(node Expr, op Operator, left, right Expr) ValueType {
	l, r := s.analyzeExpr(left), s.analyzeExpr(right)
	switch {
	case l == TypeError || r == TypeError:
		return TypeError
	case l == TypeBoolean && r == TypeBoolean:
		return TypeBoolean
	}
	return s.errorAt(node, op, l, r)
}

// ---------------------------------------------------------------------------
// Integration with Compile function
// ---------------------------------------------------------------------------

// Analyze runs semantic analysis with errors hidden and returns the type map
// and any type errors.
func Analyze(prog *Program) (TypeMap, []*TypeCheckError) {
	analyzer := NewSemanticAnalyzer(AnalyzerOptions{Out: io.Discard})
	types := analyzer.Analyze(prog)
	return types, analyzer.TypeErrors()
}
