// Package vm implements the Tuga virtual machine, a stack interpreter for
// bytecode.Program.
//
// The machine has a program counter, an operand stack of tagged Values and
// an output writer. Each step fetches one instruction, dispatches on its
// opcode and advances by one; there are no jumps. Binary instructions pop
// the right operand first, mirroring the left-to-right order in which the
// compiler pushes them.
//
// Execution ends at halt, at the end of the code, or at a fault. Faults such
// as integer division by zero come back from Run as *RuntimeError values;
// the VM never exits the process.
//
// Reals compare with a tolerance: deq holds when the operands differ by less
// than bytecode.Epsilon, and ddiv faults when the divisor's magnitude is
// below it.
//
// Setting VM.Profiler to a Profiler counts every dispatched instruction by
// opcode.
package vm
