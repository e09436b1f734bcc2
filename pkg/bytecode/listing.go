package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ListingVersion identifies the layout of Listing.
const ListingVersion = 1

// cborEncMode uses canonical mode so equal programs produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Listing is a tool-friendly export of a program: constants keep their kind
// and instructions are stored as disassembled lines.
type Listing struct {
	Version   int               `cbor:"1,keyasint"`
	Constants []ListedConstant  `cbor:"2,keyasint"`
	Code      []string          `cbor:"3,keyasint"`
	Meta      map[string]string `cbor:"4,keyasint,omitempty"`
}

// ListedConstant is one constant pool entry in a Listing.
type ListedConstant struct {
	Kind ConstKind `cbor:"1,keyasint"`
	Real float64   `cbor:"2,keyasint,omitempty"`
	Text string    `cbor:"3,keyasint,omitempty"`
}

// Listing builds the export form of the program.
func (p *Program) Listing() *Listing {
	l := &Listing{
		Version:   ListingVersion,
		Constants: make([]ListedConstant, len(p.Constants)),
		Code:      p.DisassembleToLines(),
	}
	for i, c := range p.Constants {
		l.Constants[i] = ListedConstant{Kind: c.Kind, Real: c.Real, Text: c.Text}
	}
	return l
}

// Program rebuilds a Program from the listing.
func (l *Listing) Program() (*Program, error) {
	if l.Version != ListingVersion {
		return nil, fmt.Errorf("bytecode: listing version %d, want %d", l.Version, ListingVersion)
	}
	p := &Program{Constants: make([]Constant, len(l.Constants))}
	for i, c := range l.Constants {
		switch c.Kind {
		case ConstReal:
			p.Constants[i] = RealConstant(c.Real)
		case ConstText:
			p.Constants[i] = TextConstant(c.Text)
		default:
			return nil, fmt.Errorf("bytecode: listing constant %d: %w %d", i, ErrUnknownTag, c.Kind)
		}
	}
	code, err := ParseListing(l.Code)
	if err != nil {
		return nil, fmt.Errorf("bytecode: listing code: %w", err)
	}
	p.Code = code
	return p, nil
}

// MarshalListing serializes the program's Listing to canonical CBOR.
func MarshalListing(p *Program, meta map[string]string) ([]byte, error) {
	l := p.Listing()
	l.Meta = meta
	return cborEncMode.Marshal(l)
}

// UnmarshalListing deserializes a Listing from CBOR bytes.
func UnmarshalListing(data []byte) (*Listing, error) {
	var l Listing
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal listing: %w", err)
	}
	return &l, nil
}
