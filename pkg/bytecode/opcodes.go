package bytecode

import "fmt"

// Opcode represents a bytecode instruction. The numeric value is the ordinal
// written to bytecode files, so existing values must never be renumbered.
type Opcode byte

const (
	// ========================================================================
	// Constant loads (0-2), the only opcodes carrying an operand
	// ========================================================================

	OpIConst Opcode = 0 // Push inline integer: iconst <value:i32>
	OpDConst Opcode = 1 // Push real from pool: dconst <index:i32>
	OpSConst Opcode = 2 // Push text from pool: sconst <index:i32>

	// ========================================================================
	// Integer (3-15)
	// ========================================================================

	OpIPrint  Opcode = 3
	OpIUminus Opcode = 4
	OpIAdd    Opcode = 5
	OpISub    Opcode = 6
	OpIMult   Opcode = 7
	OpIDiv    Opcode = 8
	OpIMod    Opcode = 9
	OpIEq     Opcode = 10
	OpINeq    Opcode = 11
	OpILt     Opcode = 12
	OpILeq    Opcode = 13
	OpIToD    Opcode = 14 // Widen integer to real
	OpIToS    Opcode = 15 // Integer to text

	// ========================================================================
	// Real (16-26)
	// ========================================================================

	OpDPrint  Opcode = 16
	OpDUminus Opcode = 17
	OpDAdd    Opcode = 18
	OpDSub    Opcode = 19
	OpDMult   Opcode = 20
	OpDDiv    Opcode = 21
	OpDEq     Opcode = 22 // Approximate: |l-r| < Epsilon
	OpDNeq    Opcode = 23
	OpDLt     Opcode = 24
	OpDLeq    Opcode = 25
	OpDToS    Opcode = 26

	// ========================================================================
	// Text (27-30)
	// ========================================================================

	OpSPrint  Opcode = 27
	OpSConcat Opcode = 28
	OpSEq     Opcode = 29
	OpSNeq    Opcode = 30

	// ========================================================================
	// Boolean (31-39) and control (40)
	// ========================================================================

	OpTConst Opcode = 31 // Push verdadeiro
	OpFConst Opcode = 32 // Push falso
	OpBPrint Opcode = 33
	OpBEq    Opcode = 34
	OpBNeq   Opcode = 35
	OpAnd    Opcode = 36
	OpOr     Opcode = 37
	OpNot    Opcode = 38
	OpBToS   Opcode = 39
	OpHalt   Opcode = 40

	// ========================================================================
	// Greater-than comparisons (41-44), appended after halt
	// ========================================================================

	OpIGt  Opcode = 41
	OpIGeq Opcode = 42
	OpDGt  Opcode = 43
	OpDGeq Opcode = 44
)

// Epsilon is the tolerance for real equality and for deciding that a real
// divisor is effectively zero.
const Epsilon = 10e-9

// OpcodeInfo provides metadata about each opcode for decoding and listings.
type OpcodeInfo struct {
	Name       string // Mnemonic as printed by the disassembler
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpIConst: {"iconst", 0, 1, 4},
	OpDConst: {"dconst", 0, 1, 4},
	OpSConst: {"sconst", 0, 1, 4},

	OpIPrint:  {"iprint", 1, 0, 0},
	OpIUminus: {"iuminus", 1, 1, 0},
	OpIAdd:    {"iadd", 2, 1, 0},
	OpISub:    {"isub", 2, 1, 0},
	OpIMult:   {"imult", 2, 1, 0},
	OpIDiv:    {"idiv", 2, 1, 0},
	OpIMod:    {"imod", 2, 1, 0},
	OpIEq:     {"ieq", 2, 1, 0},
	OpINeq:    {"ineq", 2, 1, 0},
	OpILt:     {"ilt", 2, 1, 0},
	OpILeq:    {"ileq", 2, 1, 0},
	OpIToD:    {"itod", 1, 1, 0},
	OpIToS:    {"itos", 1, 1, 0},

	OpDPrint:  {"dprint", 1, 0, 0},
	OpDUminus: {"duminus", 1, 1, 0},
	OpDAdd:    {"dadd", 2, 1, 0},
	OpDSub:    {"dsub", 2, 1, 0},
	OpDMult:   {"dmult", 2, 1, 0},
	OpDDiv:    {"ddiv", 2, 1, 0},
	OpDEq:     {"deq", 2, 1, 0},
	OpDNeq:    {"dneq", 2, 1, 0},
	OpDLt:     {"dlt", 2, 1, 0},
	OpDLeq:    {"dleq", 2, 1, 0},
	OpDToS:    {"dtos", 1, 1, 0},

	OpSPrint:  {"sprint", 1, 0, 0},
	OpSConcat: {"sconcat", 2, 1, 0},
	OpSEq:     {"seq", 2, 1, 0},
	OpSNeq:    {"sneq", 2, 1, 0},

	OpTConst: {"tconst", 0, 1, 0},
	OpFConst: {"fconst", 0, 1, 0},
	OpBPrint: {"bprint", 1, 0, 0},
	OpBEq:    {"beq", 2, 1, 0},
	OpBNeq:   {"bneq", 2, 1, 0},
	OpAnd:    {"and", 2, 1, 0},
	OpOr:     {"or", 2, 1, 0},
	OpNot:    {"not", 1, 1, 0},
	OpBToS:   {"btos", 1, 1, 0},
	OpHalt:   {"halt", 0, 0, 0},

	OpIGt:  {"igt", 2, 1, 0},
	OpIGeq: {"igeq", 2, 1, 0},
	OpDGt:  {"dgt", 2, 1, 0},
	OpDGeq: {"dgeq", 2, 1, 0},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", byte(op))}
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// HasOperand reports whether the opcode is followed by an int32 operand.
func (op Opcode) HasOperand() bool {
	return op.OperandLen() > 0
}

// IsPrint returns true for the four typed print opcodes.
func (op Opcode) IsPrint() bool {
	switch op {
	case OpIPrint, OpDPrint, OpSPrint, OpBPrint:
		return true
	}
	return false
}

// AllOpcodes returns all defined opcodes in ordinal order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for i := 0; i < 256; i++ {
		if op := Opcode(i); op.Valid() {
			opcodes = append(opcodes, op)
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
