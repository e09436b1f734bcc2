package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns the human-readable dump printed before execution:
// the constant pool followed by the instructions, one per line with their
// index.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString("*** Constant pool ***\n")
	for i, c := range p.Constants {
		sb.WriteString(fmt.Sprintf("%d: %s\n", i, c))
	}

	sb.WriteString("*** Instructions ***\n")
	for i, in := range p.Code {
		sb.WriteString(fmt.Sprintf("%d: %s\n", i, in))
	}

	return sb.String()
}

// DisassembleToLines returns just the instruction lines, without indices.
func (p *Program) DisassembleToLines() []string {
	lines := make([]string, len(p.Code))
	for i, in := range p.Code {
		lines[i] = in.String()
	}
	return lines
}

// ParseListing parses the instruction lines produced by DisassembleToLines
// back into instructions. Blank lines are skipped.
func ParseListing(lines []string) ([]Instruction, error) {
	var code []Instruction
	for n, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		op, ok := LookupOpcode(fields[0])
		if !ok {
			return nil, fmt.Errorf("line %d: %w %q", n+1, ErrUnknownOpcode, fields[0])
		}
		in := Instruction{Op: op}
		switch {
		case op.HasOperand() && len(fields) != 2:
			return nil, fmt.Errorf("line %d: %s takes one operand", n+1, op)
		case !op.HasOperand() && len(fields) != 1:
			return nil, fmt.Errorf("line %d: %s takes no operand", n+1, op)
		case op.HasOperand():
			var arg int32
			if _, err := fmt.Sscanf(fields[1], "%d", &arg); err != nil {
				return nil, fmt.Errorf("line %d: bad operand %q: %w", n+1, fields[1], err)
			}
			in.Arg = arg
		}
		code = append(code, in)
	}
	return code, nil
}
