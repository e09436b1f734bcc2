package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/chazu/tuga/pkg/bytecode"
)

// Profiler counts executed instructions per opcode.
// A VM records into it only when one is attached.
type Profiler struct {
	counts [256]uint64
	total  uint64
}

// OpcodeCount is one row of a profile.
type OpcodeCount struct {
	Op    bytecode.Opcode
	Count uint64
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// Record counts one execution of op.
func (p *Profiler) Record(op bytecode.Opcode) {
	p.counts[op]++
	p.total++
}

// Count returns how many times op was executed.
func (p *Profiler) Count(op bytecode.Opcode) uint64 {
	return p.counts[op]
}

// Total returns the number of recorded executions.
func (p *Profiler) Total() uint64 {
	return p.total
}

// Reset clears all counts.
func (p *Profiler) Reset() {
	*p = Profiler{}
}

// Hottest returns the executed opcodes, most frequent first. Ties keep
// ordinal order.
func (p *Profiler) Hottest() []OpcodeCount {
	var rows []OpcodeCount
	for i, n := range p.counts {
		if n > 0 {
			rows = append(rows, OpcodeCount{Op: bytecode.Opcode(i), Count: n})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// WriteTo prints the profile as "mnemonic count" lines under a header.
func (p *Profiler) WriteTo(w io.Writer) (int64, error) {
	var written int64
	n, err := fmt.Fprintf(w, "*** Profile (%d instructions) ***\n", p.total)
	written += int64(n)
	if err != nil {
		return written, err
	}
	for _, row := range p.Hottest() {
		n, err := fmt.Fprintf(w, "%-8s %d\n", row.Op, row.Count)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
