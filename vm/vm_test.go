package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tuga/pkg/bytecode"
)

func op(o bytecode.Opcode) bytecode.Instruction {
	return bytecode.Instruction{Op: o}
}

func arg(o bytecode.Opcode, a int32) bytecode.Instruction {
	return bytecode.Instruction{Op: o, Arg: a}
}

func program(consts []bytecode.Constant, code ...bytecode.Instruction) *bytecode.Program {
	return &bytecode.Program{Constants: consts, Code: code}
}

// execute runs p to completion and returns what it printed.
func execute(p *bytecode.Program) (string, *VM, error) {
	var out bytes.Buffer
	m := New(p)
	m.SetOutput(&out)
	err := m.Run()
	return out.String(), m, err
}

func TestRunPrintsEveryKind(t *testing.T) {
	p := program(
		[]bytecode.Constant{bytecode.RealConstant(2.5), bytecode.TextConstant("olá")},
		arg(bytecode.OpIConst, 7), op(bytecode.OpIPrint),
		arg(bytecode.OpDConst, 0), op(bytecode.OpDPrint),
		arg(bytecode.OpSConst, 1), op(bytecode.OpSPrint),
		op(bytecode.OpTConst), op(bytecode.OpBPrint),
		op(bytecode.OpFConst), op(bytecode.OpBPrint),
		op(bytecode.OpHalt),
	)
	out, m, err := execute(p)
	be.Err(t, err, nil)
	be.Equal(t, out, "7\n2.5\nolá\nverdadeiro\nfalso\n")
	be.True(t, m.Halted())
	be.Equal(t, m.Steps(), 11)
	be.Equal(t, m.PC(), 10)
	be.Equal(t, len(m.Stack()), 0)
}

func TestRunStopsAtHalt(t *testing.T) {
	p := program(nil,
		arg(bytecode.OpIConst, 1), op(bytecode.OpIPrint),
		op(bytecode.OpHalt),
		arg(bytecode.OpIConst, 2), op(bytecode.OpIPrint),
	)
	out, m, err := execute(p)
	be.Err(t, err, nil)
	be.Equal(t, out, "1\n")
	be.Equal(t, m.Steps(), 3)
}

func TestRunEndOfCodeHalts(t *testing.T) {
	out, m, err := execute(program(nil, arg(bytecode.OpIConst, 1), op(bytecode.OpIPrint)))
	be.Err(t, err, nil)
	be.Equal(t, out, "1\n")
	be.True(t, m.Halted())

	out, m, err = execute(program(nil))
	be.Err(t, err, nil)
	be.Equal(t, out, "")
	be.True(t, m.Halted())
	be.Equal(t, m.Steps(), 0)
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		l, r int32
		want string
	}{
		{bytecode.OpIAdd, 2, 3, "5"},
		{bytecode.OpISub, 2, 3, "-1"},
		{bytecode.OpIMult, -4, 3, "-12"},
		{bytecode.OpIDiv, 7, 2, "3"},
		{bytecode.OpIDiv, -7, 2, "-3"},
		{bytecode.OpIMod, 7, 3, "1"},
		{bytecode.OpIMod, -7, 2, "-1"},
		{bytecode.OpIAdd, 2147483647, 1, "-2147483648"},
		{bytecode.OpIMult, 65536, 65536, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			out, _, err := execute(program(nil,
				arg(bytecode.OpIConst, tt.l), arg(bytecode.OpIConst, tt.r),
				op(tt.op), op(bytecode.OpIPrint), op(bytecode.OpHalt),
			))
			be.Err(t, err, nil)
			be.Equal(t, out, tt.want+"\n")
		})
	}
}

func TestIntegerUnaryMinusWraps(t *testing.T) {
	out, _, err := execute(program(nil,
		arg(bytecode.OpIConst, -2147483648), op(bytecode.OpIUminus), op(bytecode.OpIPrint),
		arg(bytecode.OpIConst, 5), op(bytecode.OpIUminus), op(bytecode.OpIPrint),
	))
	be.Err(t, err, nil)
	be.Equal(t, out, "-2147483648\n-5\n")
}

func TestIntegerComparisons(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		l, r int32
		want string
	}{
		{bytecode.OpIEq, 2, 2, "verdadeiro"},
		{bytecode.OpINeq, 2, 2, "falso"},
		{bytecode.OpILt, 2, 3, "verdadeiro"},
		{bytecode.OpILeq, 3, 3, "verdadeiro"},
		{bytecode.OpIGt, 3, 2, "verdadeiro"},
		{bytecode.OpIGt, 2, 3, "falso"},
		{bytecode.OpIGeq, 2, 3, "falso"},
		{bytecode.OpIGeq, 3, 3, "verdadeiro"},
	}
	for _, tt := range tests {
		out, _, err := execute(program(nil,
			arg(bytecode.OpIConst, tt.l), arg(bytecode.OpIConst, tt.r),
			op(tt.op), op(bytecode.OpBPrint),
		))
		be.Err(t, err, nil)
		be.Equal(t, out, tt.want+"\n")
	}
}

func TestRealOperations(t *testing.T) {
	tests := []struct {
		name string
		op   bytecode.Opcode
		l, r float64
		want string
	}{
		{"add", bytecode.OpDAdd, 0.1, 0.2, "0.30000000000000004"},
		{"sub", bytecode.OpDSub, 2.5, 0.5, "2.0"},
		{"mult", bytecode.OpDMult, 1000, 10000, "1.0E7"},
		{"div", bytecode.OpDDiv, 1, 0.00000001, "1.0E8"},
		{"eq within epsilon", bytecode.OpDEq, 0.1 + 0.2, 0.3, "verdadeiro"},
		{"eq outside epsilon", bytecode.OpDEq, 1, 1.001, "falso"},
		{"neq within epsilon", bytecode.OpDNeq, 0.1 + 0.2, 0.3, "falso"},
		{"lt", bytecode.OpDLt, 1.5, 2, "verdadeiro"},
		{"leq", bytecode.OpDLeq, 2, 2, "verdadeiro"},
		{"gt", bytecode.OpDGt, 2, 1.5, "verdadeiro"},
		{"geq", bytecode.OpDGeq, 1.5, 2, "falso"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			printOp := bytecode.OpBPrint
			switch tt.op {
			case bytecode.OpDAdd, bytecode.OpDSub, bytecode.OpDMult, bytecode.OpDDiv:
				printOp = bytecode.OpDPrint
			}
			out, _, err := execute(program(
				[]bytecode.Constant{bytecode.RealConstant(tt.l), bytecode.RealConstant(tt.r)},
				arg(bytecode.OpDConst, 0), arg(bytecode.OpDConst, 1),
				op(tt.op), op(printOp),
			))
			be.Err(t, err, nil)
			be.Equal(t, out, tt.want+"\n")
		})
	}
}

func TestConversions(t *testing.T) {
	p := program(
		[]bytecode.Constant{bytecode.RealConstant(3)},
		arg(bytecode.OpIConst, 4), op(bytecode.OpIToD), op(bytecode.OpDPrint),
		arg(bytecode.OpIConst, -12), op(bytecode.OpIToS), op(bytecode.OpSPrint),
		arg(bytecode.OpDConst, 0), op(bytecode.OpDUminus), op(bytecode.OpDToS), op(bytecode.OpSPrint),
		op(bytecode.OpTConst), op(bytecode.OpBToS), op(bytecode.OpSPrint),
	)
	out, _, err := execute(p)
	be.Err(t, err, nil)
	be.Equal(t, out, "4.0\n-12\n-3.0\nverdadeiro\n")
}

func TestTextOperations(t *testing.T) {
	p := program(
		[]bytecode.Constant{bytecode.TextConstant("ab"), bytecode.TextConstant("cd")},
		arg(bytecode.OpSConst, 0), arg(bytecode.OpSConst, 1), op(bytecode.OpSConcat), op(bytecode.OpSPrint),
		arg(bytecode.OpSConst, 0), arg(bytecode.OpSConst, 0), op(bytecode.OpSEq), op(bytecode.OpBPrint),
		arg(bytecode.OpSConst, 0), arg(bytecode.OpSConst, 1), op(bytecode.OpSNeq), op(bytecode.OpBPrint),
	)
	out, _, err := execute(p)
	be.Err(t, err, nil)
	be.Equal(t, out, "abcd\nverdadeiro\nverdadeiro\n")
}

func TestTextConstantsPrintAsStored(t *testing.T) {
	out, _, err := execute(program(
		[]bytecode.Constant{bytecode.TextConstant(`"x"`)},
		arg(bytecode.OpSConst, 0), op(bytecode.OpSPrint),
	))
	be.Err(t, err, nil)
	be.Equal(t, out, "\"x\"\n")
}

func TestBooleanOperations(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		l, r bool
		want string
	}{
		{bytecode.OpAnd, true, false, "falso"},
		{bytecode.OpAnd, true, true, "verdadeiro"},
		{bytecode.OpOr, false, true, "verdadeiro"},
		{bytecode.OpOr, false, false, "falso"},
		{bytecode.OpBEq, false, false, "verdadeiro"},
		{bytecode.OpBNeq, true, false, "verdadeiro"},
	}
	push := func(b bool) bytecode.Instruction {
		if b {
			return op(bytecode.OpTConst)
		}
		return op(bytecode.OpFConst)
	}
	for _, tt := range tests {
		out, _, err := execute(program(nil, push(tt.l), push(tt.r), op(tt.op), op(bytecode.OpBPrint)))
		be.Err(t, err, nil)
		be.Equal(t, out, tt.want+"\n")
	}

	out, _, err := execute(program(nil, op(bytecode.OpFConst), op(bytecode.OpNot), op(bytecode.OpBPrint)))
	be.Err(t, err, nil)
	be.Equal(t, out, "verdadeiro\n")
}

func TestDivisionByZeroFault(t *testing.T) {
	p := program(nil,
		arg(bytecode.OpIConst, 1), op(bytecode.OpIPrint),
		arg(bytecode.OpIConst, 10), arg(bytecode.OpIConst, 0), op(bytecode.OpIDiv), op(bytecode.OpIPrint),
		arg(bytecode.OpIConst, 2), op(bytecode.OpIPrint),
		op(bytecode.OpHalt),
	)
	out, m, err := execute(p)
	be.Err(t, err, ErrDivisionByZero)
	be.Equal(t, err.Error(), "runtime error: division by 0")
	be.Equal(t, out, "1\n")
	be.True(t, !m.Halted())
	be.Equal(t, m.PC(), 4)

	var rtErr *RuntimeError
	be.True(t, errors.As(err, &rtErr))
	be.Equal(t, rtErr.Op, bytecode.OpIDiv)
	be.Equal(t, rtErr.PC, 4)
}

func TestModuloByZeroFault(t *testing.T) {
	_, _, err := execute(program(nil,
		arg(bytecode.OpIConst, 10), arg(bytecode.OpIConst, 0), op(bytecode.OpIMod), op(bytecode.OpIPrint),
	))
	be.Err(t, err, ErrModuloByZero)
	be.Equal(t, err.Error(), "runtime error: 0 is not valid in %")
}

func TestRealDivisionByNearZeroFault(t *testing.T) {
	for _, divisor := range []float64{0, 1e-10, -1e-10} {
		_, _, err := execute(program(
			[]bytecode.Constant{bytecode.RealConstant(1), bytecode.RealConstant(divisor)},
			arg(bytecode.OpDConst, 0), arg(bytecode.OpDConst, 1), op(bytecode.OpDDiv), op(bytecode.OpDPrint),
		))
		be.Err(t, err, ErrDivisionByZero)
		be.Equal(t, err.Error(), "runtime error: division by 0")
	}
}

func TestMalformedProgramFaults(t *testing.T) {
	tests := []struct {
		name   string
		prog   *bytecode.Program
		target error
		msg    string
	}{
		{
			"underflow",
			program(nil, arg(bytecode.OpIConst, 1), op(bytecode.OpIAdd)),
			ErrStackUnderflow,
			"runtime error: stack underflow in iadd",
		},
		{
			"print on empty stack",
			program(nil, op(bytecode.OpSPrint)),
			ErrStackUnderflow,
			"runtime error: stack underflow in sprint",
		},
		{
			"operand kind",
			program(nil, op(bytecode.OpTConst), op(bytecode.OpIPrint)),
			ErrOperandKind,
			"runtime error: iprint expects inteiro, found booleano",
		},
		{
			"constant out of range",
			program(nil, arg(bytecode.OpDConst, 3)),
			ErrBadConstant,
			"runtime error: invalid constant index 3 for dconst",
		},
		{
			"constant of the wrong kind",
			program([]bytecode.Constant{bytecode.TextConstant("x")}, arg(bytecode.OpDConst, 0)),
			ErrBadConstant,
			"runtime error: invalid constant index 0 for dconst",
		},
		{
			"unknown opcode",
			program(nil, op(bytecode.Opcode(99))),
			ErrUnknownOpcode,
			"runtime error: unknown opcode 99",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m, err := execute(tt.prog)
			be.Err(t, err, tt.target)
			be.Equal(t, err.Error(), tt.msg)
			be.True(t, !m.Halted())
		})
	}
}

func TestFaultKindsDoNotMatchEachOther(t *testing.T) {
	_, _, err := execute(program(nil,
		arg(bytecode.OpIConst, 1), arg(bytecode.OpIConst, 0), op(bytecode.OpIDiv),
	))
	be.True(t, errors.Is(err, ErrDivisionByZero))
	be.True(t, !errors.Is(err, ErrModuloByZero))
	be.Equal(t, FaultDivisionByZero.String(), "division by zero")
	be.Equal(t, Fault(42).String(), "Fault(42)")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestOutputWriteFailure(t *testing.T) {
	m := New(program(nil, arg(bytecode.OpIConst, 1), op(bytecode.OpIPrint)))
	m.SetOutput(failingWriter{})
	err := m.Run()
	be.Err(t, err, "vm: write output: disk full")

	var rtErr *RuntimeError
	be.True(t, !errors.As(err, &rtErr))
}

func TestLoad(t *testing.T) {
	b := bytecode.NewBuilder()
	b.EmitText(`"oi"`)
	b.Emit(bytecode.OpSPrint)
	b.Emit(bytecode.OpHalt)
	data, err := b.Program().MarshalBinary()
	be.Err(t, err, nil)

	m, err := Load(bytes.NewReader(data))
	be.Err(t, err, nil)
	var out bytes.Buffer
	m.SetOutput(&out)
	be.Err(t, m.Run(), nil)
	be.Equal(t, out.String(), "oi\n")
	be.Equal(t, m.Program().Constants[0].Text, "oi")

	_, err = Load(bytes.NewReader([]byte{0, 0}))
	be.Err(t, err)
}

func TestLoadKeepsQuotesInsideTexts(t *testing.T) {
	// One text constant of three UTF-16 units, `"x"`, then sconst 0 and sprint.
	data := []byte{
		0, 0, 0, 1,
		3, 0, 0, 0, 3, 0, '"', 0, 'x', 0, '"',
		2, 0, 0, 0, 0,
		27,
	}
	m, err := Load(bytes.NewReader(data))
	be.Err(t, err, nil)
	var out bytes.Buffer
	m.SetOutput(&out)
	be.Err(t, m.Run(), nil)
	be.Equal(t, out.String(), "\"x\"\n")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bytecodes")
	b := bytecode.NewBuilder()
	b.EmitWithOperand(bytecode.OpIConst, 42)
	b.Emit(bytecode.OpIPrint)
	b.Emit(bytecode.OpHalt)
	be.Err(t, b.Program().WriteFile(path), nil)

	m, err := LoadFile(path)
	be.Err(t, err, nil)
	var out bytes.Buffer
	m.SetOutput(&out)
	be.Err(t, m.Run(), nil)
	be.Equal(t, out.String(), "42\n")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	be.Err(t, err, os.ErrNotExist)
}

func TestStackIsACopy(t *testing.T) {
	m := New(program(nil, arg(bytecode.OpIConst, 1), arg(bytecode.OpIConst, 2)))
	be.Err(t, m.Run(), nil)
	stack := m.Stack()
	be.Equal(t, stack, []Value{IntValue(1), IntValue(2)})
	stack[0] = IntValue(9)
	be.Equal(t, m.Stack()[0], IntValue(1))
}

func TestValueString(t *testing.T) {
	be.Equal(t, IntValue(-3).String(), "-3")
	be.Equal(t, RealValue(2).String(), "2.0")
	be.Equal(t, BoolValue(true).String(), "verdadeiro")
	be.Equal(t, BoolValue(false).String(), "falso")
	be.Equal(t, TextValue("x y").String(), "x y")
	be.Equal(t, Value{}.String(), "<invalid>")
}

func TestKindNames(t *testing.T) {
	be.Equal(t, KindInteger.String(), "inteiro")
	be.Equal(t, KindReal.String(), "real")
	be.Equal(t, KindBoolean.String(), "booleano")
	be.Equal(t, KindText.String(), "string")
	be.Equal(t, Kind(0).String(), "Kind(0)")
}
