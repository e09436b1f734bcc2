// Package bytecode defines the Tuga stack-machine instruction set and the
// Program container that carries it between the compiler and the VM.
//
// A Program is a constant pool plus a flat instruction stream. There are no
// jumps: execution runs front to back until halt.
//
// # Constant pool
//
// Reals and texts live in the pool and are referenced by index from dconst
// and sconst. Integers never do; iconst carries the value inline. Builder
// deduplicates pool entries as they are added, so two occurrences of 3.14
// share one slot.
//
// # Binary format
//
// MarshalBinary and UnmarshalBinary implement the bytecode file layout
// documented in encoding.go. The format has no magic number and no
// instruction count; the instruction stream runs to end of input. Opcode
// ordinals are therefore fixed forever, and new opcodes are only ever
// appended.
//
// # Listings
//
// Disassemble renders the dump shown before execution. Listing and
// MarshalListing export the same information as canonical CBOR for tools
// that want structured access without reimplementing the binary decoder.
package bytecode
