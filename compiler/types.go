package compiler

// ValueType is the static type of a Tuga expression.
type ValueType uint8

const (
	TypeNone ValueType = iota // not annotated
	TypeInteger
	TypeReal
	TypeBoolean
	TypeText
	TypeError // poison: absorbs further errors without reporting them
)

var typeNames = [...]string{
	TypeNone:    "<none>",
	TypeInteger: "inteiro",
	TypeReal:    "real",
	TypeBoolean: "booleano",
	TypeText:    "string",
	TypeError:   "erro",
}

// String returns the type's name as the language spells it.
func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "<invalid>"
}

// IsNumeric reports whether t is inteiro or real.
func (t ValueType) IsNumeric() bool {
	return t == TypeInteger || t == TypeReal
}

// widen returns the result type of an arithmetic operation on numeric
// operands: real if either side is real, otherwise inteiro.
func widen(a, b ValueType) ValueType {
	if a == TypeReal || b == TypeReal {
		return TypeReal
	}
	return TypeInteger
}

// TypeMap holds the type of every node, indexed by NodeID.
type TypeMap []ValueType

// NewTypeMap returns an unannotated map sized for a tree of n nodes.
func NewTypeMap(n int) TypeMap {
	return make(TypeMap, n)
}

// Of returns the annotated type of n, or TypeNone.
func (m TypeMap) Of(n Node) ValueType {
	id := int(n.ID())
	if id < 0 || id >= len(m) {
		return TypeNone
	}
	return m[id]
}

func (m TypeMap) set(n Node, t ValueType) ValueType {
	m[n.ID()] = t
	return t
}

// Missing returns the expressions under root that have no annotation.
func (m TypeMap) Missing(root Node) []Expr {
	var out []Expr
	Walk(root, func(n Node) bool {
		if e, ok := n.(Expr); ok && m.Of(e) == TypeNone {
			out = append(out, e)
		}
		return true
	})
	return out
}
