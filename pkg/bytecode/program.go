package bytecode

import (
	"fmt"
	"math"
	"strings"
)

// ConstKind tags a constant pool entry. The values are the tags written to
// bytecode files.
type ConstKind byte

const (
	ConstReal ConstKind = 1
	ConstText ConstKind = 3
)

// String returns a human-readable name for ConstKind.
func (k ConstKind) String() string {
	switch k {
	case ConstReal:
		return "real"
	case ConstText:
		return "text"
	default:
		return fmt.Sprintf("ConstKind(%d)", k)
	}
}

// Constant is a constant pool entry: a real or a text value.
type Constant struct {
	Kind ConstKind
	Real float64
	Text string
}

// RealConstant returns a real pool entry.
func RealConstant(v float64) Constant { return Constant{Kind: ConstReal, Real: v} }

// TextConstant returns a text pool entry.
func TextConstant(s string) Constant { return Constant{Kind: ConstText, Text: s} }

// Same reports whether two constants are the same pool value. Reals compare
// by bit pattern, so NaN matches NaN and 0.0 does not match -0.0.
func (c Constant) Same(other Constant) bool {
	if c.Kind != other.Kind {
		return false
	}
	if c.Kind == ConstReal {
		return math.Float64bits(c.Real) == math.Float64bits(other.Real)
	}
	return c.Text == other.Text
}

// String renders the constant the way the disassembler shows it.
func (c Constant) String() string {
	if c.Kind == ConstReal {
		return FormatReal(c.Real)
	}
	return c.Text
}

// Instruction is an opcode plus its operand. Arg is meaningful only when the
// opcode has an operand.
type Instruction struct {
	Op  Opcode
	Arg int32
}

// String returns the instruction as "mnemonic" or "mnemonic operand".
func (in Instruction) String() string {
	if in.Op.HasOperand() {
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	}
	return in.Op.String()
}

// Program is a compiled unit: the constant pool and the instruction stream.
// A Program is not modified after it has been built.
type Program struct {
	Constants []Constant
	Code      []Instruction
}

// Constant returns the pool entry at index, checking bounds.
func (p *Program) Constant(index int32) (Constant, bool) {
	if index < 0 || int(index) >= len(p.Constants) {
		return Constant{}, false
	}
	return p.Constants[index], true
}

// Stats summarizes a program for log lines.
func (p *Program) Stats() string {
	return fmt.Sprintf("%d constants, %d instructions", len(p.Constants), len(p.Code))
}

// Builder accumulates constants and instructions during code generation.
type Builder struct {
	constants []Constant
	code      []Instruction
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		constants: make([]Constant, 0, 8),
		code:      make([]Instruction, 0, 64),
	}
}

// AddConstant adds a constant to the pool and returns its index.
// If an identical constant already exists, returns the existing index.
func (b *Builder) AddConstant(c Constant) int32 {
	for i, existing := range b.constants {
		if existing.Same(c) {
			return int32(i)
		}
	}
	idx := int32(len(b.constants))
	b.constants = append(b.constants, c)
	return idx
}

// Emit appends an instruction without an operand and returns its index.
func (b *Builder) Emit(op Opcode) int {
	b.code = append(b.code, Instruction{Op: op})
	return len(b.code) - 1
}

// EmitWithOperand appends an instruction carrying an operand.
func (b *Builder) EmitWithOperand(op Opcode, arg int32) int {
	b.code = append(b.code, Instruction{Op: op, Arg: arg})
	return len(b.code) - 1
}

// EmitReal emits a dconst for v, pooling it.
func (b *Builder) EmitReal(v float64) int {
	return b.EmitWithOperand(OpDConst, b.AddConstant(RealConstant(v)))
}

// EmitText emits an sconst for s, pooling it.
func (b *Builder) EmitText(s string) int {
	return b.EmitWithOperand(OpSConst, b.AddConstant(TextConstant(s)))
}

// CodeLen returns the number of instructions emitted so far.
func (b *Builder) CodeLen() int {
	return len(b.code)
}

// Program freezes the builder's contents into a Program. The builder must not
// be used afterwards.
func (b *Builder) Program() *Program {
	p := &Program{Constants: b.constants, Code: b.code}
	b.constants, b.code = nil, nil
	return p
}

// FileForm returns a copy of the program with its text constants unquoted,
// as a bytecode file stores them. Code is shared with p.
func (p *Program) FileForm() *Program {
	consts := make([]Constant, len(p.Constants))
	for i, c := range p.Constants {
		if c.Kind == ConstText {
			c.Text = Unquote(c.Text)
		}
		consts[i] = c
	}
	return &Program{Constants: consts, Code: p.Code}
}

// Unquote strips one leading and one trailing double quote when both are
// present. Text constants are stored in this form in bytecode files.
func Unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
