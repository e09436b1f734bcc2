package vm

import (
	"fmt"

	"github.com/chazu/tuga/pkg/bytecode"
)

// Fault classifies a runtime error.
type Fault int

const (
	FaultDivisionByZero Fault = iota + 1
	FaultModuloByZero
	FaultStackUnderflow
	FaultOperandKind
	FaultBadConstant
	FaultUnknownOpcode
)

func (f Fault) String() string {
	switch f {
	case FaultDivisionByZero:
		return "division by zero"
	case FaultModuloByZero:
		return "modulo by zero"
	case FaultStackUnderflow:
		return "stack underflow"
	case FaultOperandKind:
		return "operand kind"
	case FaultBadConstant:
		return "bad constant"
	case FaultUnknownOpcode:
		return "unknown opcode"
	}
	return fmt.Sprintf("Fault(%d)", int(f))
}

// RuntimeError is a fault raised while executing. Execution stops at the
// faulting instruction; nothing after it runs.
type RuntimeError struct {
	Fault Fault
	PC    int             // index of the faulting instruction
	Op    bytecode.Opcode // the faulting instruction's opcode
	Msg   string
}

func (e *RuntimeError) Error() string {
	return "runtime error: " + e.Msg
}

// Is lets errors.Is match on the fault kind alone.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Msg == "" && t.Fault == e.Fault
}

// Sentinels for errors.Is.
var (
	ErrDivisionByZero = &RuntimeError{Fault: FaultDivisionByZero}
	ErrModuloByZero   = &RuntimeError{Fault: FaultModuloByZero}
	ErrStackUnderflow = &RuntimeError{Fault: FaultStackUnderflow}
	ErrOperandKind    = &RuntimeError{Fault: FaultOperandKind}
	ErrBadConstant    = &RuntimeError{Fault: FaultBadConstant}
	ErrUnknownOpcode  = &RuntimeError{Fault: FaultUnknownOpcode}
)
