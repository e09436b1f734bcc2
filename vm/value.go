package vm

import (
	"fmt"
	"strconv"

	"github.com/chazu/tuga/pkg/bytecode"
)

// Kind tags a runtime value.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindReal
	KindBoolean
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "inteiro"
	case KindReal:
		return "real"
	case KindBoolean:
		return "booleano"
	case KindText:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Words used to print booleans.
const (
	TrueWord  = "verdadeiro"
	FalseWord = "falso"
)

// Value is a tagged runtime value. Only the field matching Kind is set.
// Integers are 32-bit and wrap on overflow.
type Value struct {
	Kind Kind
	Int  int32
	Real float64
	Bool bool
	Text string
}

func IntValue(i int32) Value    { return Value{Kind: KindInteger, Int: i} }
func RealValue(d float64) Value { return Value{Kind: KindReal, Real: d} }
func BoolValue(b bool) Value    { return Value{Kind: KindBoolean, Bool: b} }
func TextValue(s string) Value  { return Value{Kind: KindText, Text: s} }

// FormatBool renders a boolean as verdadeiro or falso.
func FormatBool(b bool) string {
	if b {
		return TrueWord
	}
	return FalseWord
}

// String renders the value exactly as the print instructions do.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindReal:
		return bytecode.FormatReal(v.Real)
	case KindBoolean:
		return FormatBool(v.Bool)
	case KindText:
		return v.Text
	}
	return "<invalid>"
}
