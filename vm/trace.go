package vm

import (
	"fmt"

	"github.com/hexlang/hex/isa"
)

// writeTrace prints one per-cycle trace line to p.Trace, grounded on
// original_source/hexsim.hpp's trace()/traceSyscall() format: cycle
// count, pc before fetch, opcode mnemonic, signed immediate nibble, and
// a human-readable effect string, with a "; symbol+offset" suffix when
// debug info covers the current pc.
func (p *Processor) writeTrace(pcBefore uint32, op isa.Opcode) {
	nibble := p.Instr & 0xF
	imm := int32(nibble)
	if nibble >= 8 {
		imm = int32(nibble) - 16
	}

	fmt.Fprintf(p.Trace, "%6d  %04x  %-5s %-6d  %s", p.Cycles, pcBefore, op, imm, traceEffect(op))

	if name, off, ok := p.symbolFor(pcBefore); ok {
		fmt.Fprintf(p.Trace, "  ; %s+%d", name, off)
	}
	fmt.Fprintln(p.Trace)
}

func traceEffect(op isa.Opcode) string {
	switch op {
	case isa.LDAM:
		return "areg <- mem[oreg]"
	case isa.LDBM:
		return "breg <- mem[oreg]"
	case isa.STAM:
		return "mem[oreg] <- areg"
	case isa.LDAC:
		return "areg <- oreg"
	case isa.LDBC:
		return "breg <- oreg"
	case isa.LDAP:
		return "areg <- pc + oreg"
	case isa.LDAI:
		return "areg <- mem[areg + oreg]"
	case isa.LDBI:
		return "breg <- mem[breg + oreg]"
	case isa.STAI:
		return "mem[breg + oreg] <- areg"
	case isa.BR:
		return "pc <- pc + oreg"
	case isa.BRZ:
		return "if areg==0: pc <- pc + oreg"
	case isa.BRN:
		return "if areg<0: pc <- pc + oreg"
	case isa.PFIX:
		return "oreg <- oreg << 4"
	case isa.NFIX:
		return "oreg <- 0xFFFFFF00 | (oreg << 4)"
	case isa.OPR:
		return "opr dispatch"
	default:
		return "?"
	}
}
