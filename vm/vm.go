package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/tuga/pkg/bytecode"
)

var log = commonlog.GetLogger("tuga.vm")

// VM executes a bytecode.Program on an operand stack.
type VM struct {
	prog   *bytecode.Program
	pc     int     // index of the next instruction
	stack  []Value // operand stack
	out    io.Writer
	halted bool
	steps  int

	// Trace logs every executed instruction at debug level.
	Trace bool

	// Profiler, when set, counts every dispatched instruction.
	Profiler *Profiler
}

// New creates a VM ready to run prog. Output goes to os.Stdout.
func New(prog *bytecode.Program) *VM {
	return &VM{
		prog:  prog,
		stack: make([]Value, 0, 64),
		out:   os.Stdout,
	}
}

// Load decodes a bytecode stream and returns a VM for it.
func Load(r io.Reader) (*VM, error) {
	prog, err := bytecode.Decode(r)
	if err != nil {
		return nil, err
	}
	return New(prog), nil
}

// LoadFile decodes the named bytecode file and returns a VM for it.
func LoadFile(path string) (*VM, error) {
	prog, err := bytecode.ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded %s: %s", path, prog.Stats())
	return New(prog), nil
}

// SetOutput redirects what the print instructions write.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// Program returns the program being executed.
func (vm *VM) Program() *bytecode.Program { return vm.prog }

// PC returns the index of the next instruction, or of the faulting one
// after a fault.
func (vm *VM) PC() int { return vm.pc }

// Steps returns how many instructions have been dispatched.
func (vm *VM) Steps() int { return vm.steps }

// Halted reports whether execution reached halt or the end of the code.
func (vm *VM) Halted() bool { return vm.halted }

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []Value {
	return append([]Value(nil), vm.stack...)
}

// Run executes from the current instruction until halt, the end of the
// code, or a fault. A fault is returned as a *RuntimeError; the VM does not
// continue past it.
func (vm *VM) Run() error {
	code := vm.prog.Code
	for !vm.halted {
		if vm.pc >= len(code) {
			vm.halted = true
			break
		}
		in := code[vm.pc]
		if vm.Trace {
			log.Debugf("%04d %-12s stack=%d", vm.pc, in, len(vm.stack))
		}
		vm.steps++
		if vm.Profiler != nil {
			vm.Profiler.Record(in.Op)
		}
		if err := vm.exec(in); err != nil {
			return err
		}
		if !vm.halted {
			vm.pc++
		}
	}
	log.Debugf("halted after %d steps", vm.steps)
	return nil
}

// fault builds a RuntimeError for the current instruction.
func (vm *VM) fault(f Fault, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Fault: f,
		PC:    vm.pc,
		Op:    vm.prog.Code[vm.pc].Op,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// exec executes one instruction.
func (vm *VM) exec(in bytecode.Instruction) error {
	switch op := in.Op; op {
	// ============ Constants ============
	case bytecode.OpIConst:
		vm.push(IntValue(in.Arg))

	case bytecode.OpDConst, bytecode.OpSConst:
		c, ok := vm.prog.Constant(in.Arg)
		want := bytecode.ConstReal
		if op == bytecode.OpSConst {
			want = bytecode.ConstText
		}
		if !ok || c.Kind != want {
			return vm.fault(FaultBadConstant, "invalid constant index %d for %s", in.Arg, op)
		}
		if want == bytecode.ConstReal {
			vm.push(RealValue(c.Real))
		} else {
			vm.push(TextValue(c.Text))
		}

	case bytecode.OpTConst:
		vm.push(BoolValue(true))
	case bytecode.OpFConst:
		vm.push(BoolValue(false))

	// ============ Integer ============
	case bytecode.OpIUminus:
		v, err := vm.pop(KindInteger)
		if err != nil {
			return err
		}
		vm.push(IntValue(-v.Int))

	case bytecode.OpIToD:
		v, err := vm.pop(KindInteger)
		if err != nil {
			return err
		}
		vm.push(RealValue(float64(v.Int)))

	case bytecode.OpIToS:
		v, err := vm.pop(KindInteger)
		if err != nil {
			return err
		}
		vm.push(TextValue(strconv.FormatInt(int64(v.Int), 10)))

	case bytecode.OpIAdd, bytecode.OpISub, bytecode.OpIMult, bytecode.OpIDiv, bytecode.OpIMod,
		bytecode.OpIEq, bytecode.OpINeq, bytecode.OpILt, bytecode.OpILeq, bytecode.OpIGt, bytecode.OpIGeq:
		l, r, err := vm.popPair(KindInteger)
		if err != nil {
			return err
		}
		res, err := vm.intBinary(op, l.Int, r.Int)
		if err != nil {
			return err
		}
		vm.push(res)

	// ============ Real ============
	case bytecode.OpDUminus:
		v, err := vm.pop(KindReal)
		if err != nil {
			return err
		}
		vm.push(RealValue(-v.Real))

	case bytecode.OpDToS:
		v, err := vm.pop(KindReal)
		if err != nil {
			return err
		}
		vm.push(TextValue(bytecode.FormatReal(v.Real)))

	case bytecode.OpDAdd, bytecode.OpDSub, bytecode.OpDMult, bytecode.OpDDiv,
		bytecode.OpDEq, bytecode.OpDNeq, bytecode.OpDLt, bytecode.OpDLeq, bytecode.OpDGt, bytecode.OpDGeq:
		l, r, err := vm.popPair(KindReal)
		if err != nil {
			return err
		}
		res, err := vm.realBinary(op, l.Real, r.Real)
		if err != nil {
			return err
		}
		vm.push(res)

	// ============ Text ============
	case bytecode.OpSConcat:
		l, r, err := vm.popPair(KindText)
		if err != nil {
			return err
		}
		vm.push(TextValue(l.Text + r.Text))

	case bytecode.OpSEq, bytecode.OpSNeq:
		l, r, err := vm.popPair(KindText)
		if err != nil {
			return err
		}
		vm.push(BoolValue((l.Text == r.Text) == (op == bytecode.OpSEq)))

	// ============ Boolean ============
	case bytecode.OpBEq, bytecode.OpBNeq, bytecode.OpAnd, bytecode.OpOr:
		l, r, err := vm.popPair(KindBoolean)
		if err != nil {
			return err
		}
		var b bool
		switch op {
		case bytecode.OpBEq:
			b = l.Bool == r.Bool
		case bytecode.OpBNeq:
			b = l.Bool != r.Bool
		case bytecode.OpAnd:
			b = l.Bool && r.Bool
		case bytecode.OpOr:
			b = l.Bool || r.Bool
		}
		vm.push(BoolValue(b))

	case bytecode.OpNot:
		v, err := vm.pop(KindBoolean)
		if err != nil {
			return err
		}
		vm.push(BoolValue(!v.Bool))

	case bytecode.OpBToS:
		v, err := vm.pop(KindBoolean)
		if err != nil {
			return err
		}
		vm.push(TextValue(FormatBool(v.Bool)))

	// ============ Output ============
	case bytecode.OpIPrint, bytecode.OpDPrint, bytecode.OpSPrint, bytecode.OpBPrint:
		v, err := vm.pop(printKinds[op])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(vm.out, v.String()); err != nil {
			return fmt.Errorf("vm: write output: %w", err)
		}

	// ============ Control ============
	case bytecode.OpHalt:
		vm.halted = true

	default:
		return vm.fault(FaultUnknownOpcode, "unknown opcode %d", byte(op))
	}
	return nil
}

var printKinds = map[bytecode.Opcode]Kind{
	bytecode.OpIPrint: KindInteger,
	bytecode.OpDPrint: KindReal,
	bytecode.OpSPrint: KindText,
	bytecode.OpBPrint: KindBoolean,
}

func (vm *VM) intBinary(op bytecode.Opcode, l, r int32) (Value, error) {
	switch op {
	case bytecode.OpIAdd:
		return IntValue(l + r), nil
	case bytecode.OpISub:
		return IntValue(l - r), nil
	case bytecode.OpIMult:
		return IntValue(l * r), nil
	case bytecode.OpIDiv:
		if r == 0 {
			return Value{}, vm.fault(FaultDivisionByZero, "division by 0")
		}
		return IntValue(l / r), nil
	case bytecode.OpIMod:
		if r == 0 {
			return Value{}, vm.fault(FaultModuloByZero, "0 is not valid in %%")
		}
		return IntValue(l % r), nil
	case bytecode.OpIEq:
		return BoolValue(l == r), nil
	case bytecode.OpINeq:
		return BoolValue(l != r), nil
	case bytecode.OpILt:
		return BoolValue(l < r), nil
	case bytecode.OpILeq:
		return BoolValue(l <= r), nil
	case bytecode.OpIGt:
		return BoolValue(l > r), nil
	case bytecode.OpIGeq:
		return BoolValue(l >= r), nil
	}
	return Value{}, vm.fault(FaultUnknownOpcode, "unknown opcode %d", byte(op))
}

func (vm *VM) realBinary(op bytecode.Opcode, l, r float64) (Value, error) {
	switch op {
	case bytecode.OpDAdd:
		return RealValue(l + r), nil
	case bytecode.OpDSub:
		return RealValue(l - r), nil
	case bytecode.OpDMult:
		return RealValue(l * r), nil
	case bytecode.OpDDiv:
		if math.Abs(r) < bytecode.Epsilon {
			return Value{}, vm.fault(FaultDivisionByZero, "division by 0")
		}
		return RealValue(l / r), nil
	case bytecode.OpDEq:
		return BoolValue(math.Abs(l-r) < bytecode.Epsilon), nil
	case bytecode.OpDNeq:
		return BoolValue(math.Abs(l-r) >= bytecode.Epsilon), nil
	case bytecode.OpDLt:
		return BoolValue(l < r), nil
	case bytecode.OpDLeq:
		return BoolValue(l <= r), nil
	case bytecode.OpDGt:
		return BoolValue(l > r), nil
	case bytecode.OpDGeq:
		return BoolValue(l >= r), nil
	}
	return Value{}, vm.fault(FaultUnknownOpcode, "unknown opcode %d", byte(op))
}

// ============ Stack helpers ============

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

// pop removes the top value, which must be of kind k.
func (vm *VM) pop(k Kind) (Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return Value{}, vm.fault(FaultStackUnderflow, "stack underflow in %s", vm.prog.Code[vm.pc].Op)
	}
	v := vm.stack[n-1]
	if v.Kind != k {
		return Value{}, vm.fault(FaultOperandKind, "%s expects %s, found %s", vm.prog.Code[vm.pc].Op, k, v.Kind)
	}
	vm.stack = vm.stack[:n-1]
	return v, nil
}

// popPair pops the right operand, then the left one.
func (vm *VM) popPair(k Kind) (left, right Value, err error) {
	if right, err = vm.pop(k); err != nil {
		return
	}
	left, err = vm.pop(k)
	return
}
