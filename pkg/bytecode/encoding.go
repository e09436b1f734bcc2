package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf16"
)

// Bytecode file layout, all integers big-endian:
//
//	[constant_count:i32]
//	constant_count × ( [tag:1] then
//	    tag 1: [bits:i64]
//	    tag 3: [char_count:i32] [utf16_units:char_count×2] )
//	until end of input: [opcode:1] [operand:i32 if the opcode takes one]
//
// There is no instruction count. End of input at an instruction boundary
// terminates the stream.

var (
	ErrTruncated     = errors.New("unexpected end of bytecode")
	ErrUnknownTag    = errors.New("unknown constant tag")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrNegativeCount = errors.New("negative count")
)

// DecodeError reports where decoding failed.
type DecodeError struct {
	Offset int    // byte offset of the failing item
	What   string // what was being read
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bytecode: %s at offset %d: %v", e.What, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MarshalBinary encodes the program into the bytecode file layout.
func (p *Program) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 4+len(p.Constants)*16+len(p.Code)*5)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Constants)))
	for i, c := range p.Constants {
		buf = append(buf, byte(c.Kind))
		switch c.Kind {
		case ConstReal:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(c.Real))
		case ConstText:
			units := utf16.Encode([]rune(Unquote(c.Text)))
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(units)))
			for _, u := range units {
				buf = binary.BigEndian.AppendUint16(buf, u)
			}
		default:
			return nil, fmt.Errorf("bytecode: constant %d: %w %d", i, ErrUnknownTag, c.Kind)
		}
	}

	for i, in := range p.Code {
		if !in.Op.Valid() {
			return nil, fmt.Errorf("bytecode: instruction %d: %w %d", i, ErrUnknownOpcode, byte(in.Op))
		}
		buf = append(buf, byte(in.Op))
		if in.Op.HasOperand() {
			buf = binary.BigEndian.AppendUint32(buf, uint32(in.Arg))
		}
	}

	return buf, nil
}

// Encode writes the program to w.
func (p *Program) Encode(w io.Writer) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes the program into the named file.
func (p *Program) WriteFile(path string) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bytecode: %w", err)
	}
	return nil
}

// UnmarshalBinary replaces p with the program decoded from data.
func (p *Program) UnmarshalBinary(data []byte) error {
	d := decoder{data: data}

	n, err := d.readInt32("constant count")
	if err != nil {
		return err
	}
	if n < 0 {
		return d.fail("constant count", ErrNegativeCount)
	}

	constants := make([]Constant, 0, min(int(n), len(data)))
	for i := int32(0); i < n; i++ {
		c, err := d.constant()
		if err != nil {
			return err
		}
		constants = append(constants, c)
	}

	var code []Instruction
	for d.pos < len(d.data) {
		in, err := d.instruction()
		if err != nil {
			return err
		}
		code = append(code, in)
	}

	p.Constants = constants
	p.Code = code
	return nil
}

// Decode reads a whole bytecode stream from r.
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bytecode: %w", err)
	}
	p := &Program{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadFile decodes the named bytecode file.
func ReadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bytecode: %w", err)
	}
	p := &Program{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

// decoder walks a byte slice, producing DecodeErrors with offsets.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) fail(what string, err error) error {
	return &DecodeError{Offset: d.pos, What: what, Err: err}
}

func (d *decoder) need(n int, what string) error {
	if d.pos+n > len(d.data) {
		return d.fail(what, ErrTruncated)
	}
	return nil
}

func (d *decoder) readByte(what string) (byte, error) {
	if err := d.need(1, what); err != nil {
		return 0, err
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readInt32(what string) (int32, error) {
	if err := d.need(4, what); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(d.data[d.pos:]))
	d.pos += 4
	return v, nil
}

func (d *decoder) constant() (Constant, error) {
	start := d.pos
	tag, err := d.readByte("constant tag")
	if err != nil {
		return Constant{}, err
	}

	switch ConstKind(tag) {
	case ConstReal:
		if err := d.need(8, "real constant"); err != nil {
			return Constant{}, err
		}
		bits := binary.BigEndian.Uint64(d.data[d.pos:])
		d.pos += 8
		return RealConstant(math.Float64frombits(bits)), nil

	case ConstText:
		n, err := d.readInt32("text length")
		if err != nil {
			return Constant{}, err
		}
		if n < 0 {
			return Constant{}, d.fail("text length", ErrNegativeCount)
		}
		if err := d.need(int(n)*2, "text constant"); err != nil {
			return Constant{}, err
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(d.data[d.pos:])
			d.pos += 2
		}
		return TextConstant(string(utf16.Decode(units))), nil

	default:
		d.pos = start
		return Constant{}, d.fail("constant tag", fmt.Errorf("%w %d", ErrUnknownTag, tag))
	}
}

func (d *decoder) instruction() (Instruction, error) {
	start := d.pos
	b, _ := d.readByte("opcode")
	op := Opcode(b)
	if !op.Valid() {
		d.pos = start
		return Instruction{}, d.fail("opcode", fmt.Errorf("%w %d", ErrUnknownOpcode, b))
	}
	if !op.HasOperand() {
		return Instruction{Op: op}, nil
	}
	arg, err := d.readInt32(op.String() + " operand")
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Arg: arg}, nil
}
