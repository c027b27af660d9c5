// Package vm implements the Hex simulator: a register-light accumulator
// machine that loads an assembled binary, executes its fetch/decode/
// execute loop, and routes syscalls to a host I/O multiplexer.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hexlang/hex/isa"
)

// MemoryWords is the reference memory size: 200,000 words (~800 KB),
// word-addressed, byte-addressable via little-endian-within-word
// indexing (spec.md §3).
const MemoryWords = 200000

// Symbol is one (name, byte offset) debug-info entry, loaded from a
// binary's optional debug section.
type Symbol struct {
	Name   string
	Offset uint32
}

// Processor is the Hex VM's full mutable state: registers, memory, and
// the run/exit flags. It owns its memory array and I/O multiplexer
// exclusively for its lifetime — no process-global state is used.
type Processor struct {
	PC, AReg, BReg, OReg, Instr uint32
	Memory                      []uint32
	Running                     bool
	ExitCode                    int32
	Cycles                      uint64

	Debug []Symbol

	IO *IO

	// Trace, if non-nil, receives one formatted line per executed
	// instruction (spec.md §4.C "Tracing").
	Trace io.Writer

	// MaxCycles, if non-zero, caps the number of executed instructions;
	// Run returns without error when the cap is hit.
	MaxCycles uint64
}

// NewProcessor constructs a Processor with a zeroed memory array and the
// given I/O multiplexer.
func NewProcessor(io_ *IO) *Processor {
	return &Processor{
		Memory: make([]uint32, MemoryWords),
		IO:     io_,
	}
}

// Load parses a Hex binary (header + body + optional debug section) into
// the processor's memory and resets all registers to their initial
// state, per spec.md §4.C "Initial state".
func (p *Processor) Load(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("binary too short: %d bytes", len(data))
	}
	sizeWords := binary.LittleEndian.Uint32(data[0:4])
	bodyBytes := int(sizeWords) * 4
	if 4+bodyBytes > len(data) {
		return fmt.Errorf("binary truncated: header claims %d words, have %d bytes remaining", sizeWords, len(data)-4)
	}
	body := data[4 : 4+bodyBytes]

	for i, b := range body {
		word := i / 4
		shift := uint(i%4) * 8
		p.Memory[word] |= uint32(b) << shift
	}

	p.PC = 0
	p.AReg = 0
	p.BReg = 0
	p.OReg = 0
	p.Instr = 0
	p.Running = true
	p.ExitCode = 0
	p.Cycles = 0

	rest := data[4+bodyBytes:]
	if len(rest) > 0 {
		syms, err := parseDebugSection(rest)
		if err != nil {
			return err
		}
		p.Debug = syms
	}

	return nil
}

func parseDebugSection(data []byte) ([]Symbol, error) {
	if len(data) < 4 {
		return nil, nil
	}
	pos := 0
	numStrings := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	strs := make([]string, 0, numStrings)
	for i := uint32(0); i < numStrings; i++ {
		start := pos
		for pos < len(data) && data[pos] != 0 {
			pos++
		}
		if pos >= len(data) {
			return nil, fmt.Errorf("debug section: unterminated string")
		}
		strs = append(strs, string(data[start:pos]))
		pos++ // skip NUL
	}

	if pos+4 > len(data) {
		return nil, fmt.Errorf("debug section: truncated symbol count")
	}
	numSyms := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	syms := make([]Symbol, 0, numSyms)
	for i := uint32(0); i < numSyms; i++ {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("debug section: truncated symbol entry")
		}
		strIdx := binary.LittleEndian.Uint32(data[pos:])
		off := binary.LittleEndian.Uint32(data[pos+4:])
		pos += 8
		if int(strIdx) >= len(strs) {
			return nil, fmt.Errorf("debug section: string index %d out of range", strIdx)
		}
		syms = append(syms, Symbol{Name: strs[strIdx], Offset: off})
	}
	return syms, nil
}

// byteAt reads byte index i out of the word-addressed memory array,
// little-endian within a word: byte(pc) = (mem[pc>>2] >> ((pc&3)<<3)) &
// 0xFF.
func (p *Processor) byteAt(i uint32) byte {
	return byte(p.Memory[i>>2] >> ((i & 3) << 3))
}

// wordAt returns the full 32-bit word at word index i.
func (p *Processor) wordAt(i uint32) uint32 {
	return p.Memory[i]
}

func (p *Processor) setWordAt(i uint32, v uint32) {
	p.Memory[i] = v
}

// symbolFor returns the innermost debug symbol covering byte offset pc,
// or ("", 0, false) if none covers it.
func (p *Processor) symbolFor(pc uint32) (string, uint32, bool) {
	var best *Symbol
	for i := range p.Debug {
		s := &p.Debug[i]
		if s.Offset <= pc && (best == nil || s.Offset > best.Offset) {
			best = s
		}
	}
	if best == nil {
		return "", 0, false
	}
	return best.Name, pc - best.Offset, true
}

// Run executes the fetch/decode/execute loop until Running is false or
// MaxCycles (if non-zero) is reached.
func (p *Processor) Run() error {
	for p.Running {
		if p.MaxCycles != 0 && p.Cycles >= p.MaxCycles {
			return nil
		}
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single fetch/decode/execute cycle.
func (p *Processor) Step() error {
	pcBefore := p.PC
	instrByte := p.byteAt(p.PC)
	p.PC++
	p.Instr = uint32(instrByte)
	p.OReg |= uint32(instrByte) & 0xF
	op := isa.Opcode((instrByte >> 4) & 0xF)

	if p.Trace != nil {
		p.writeTrace(pcBefore, op)
	}

	clearOreg := true

	switch op {
	case isa.LDAM:
		p.AReg = p.wordAt(p.OReg)
	case isa.LDBM:
		p.BReg = p.wordAt(p.OReg)
	case isa.STAM:
		p.setWordAt(p.OReg, p.AReg)
	case isa.LDAC:
		p.AReg = p.OReg
	case isa.LDBC:
		p.BReg = p.OReg
	case isa.LDAP:
		p.AReg = p.PC + p.OReg
	case isa.LDAI:
		p.AReg = p.wordAt(p.AReg + p.OReg)
	case isa.LDBI:
		p.BReg = p.wordAt(p.BReg + p.OReg)
	case isa.STAI:
		p.setWordAt(p.BReg+p.OReg, p.AReg)
	case isa.BR:
		p.PC = p.PC + p.OReg
	case isa.BRZ:
		if p.AReg == 0 {
			p.PC = p.PC + p.OReg
		}
	case isa.BRN:
		if int32(p.AReg) < 0 {
			p.PC = p.PC + p.OReg
		}
	case isa.PFIX:
		p.OReg = p.OReg << 4
		clearOreg = false
	case isa.NFIX:
		p.OReg = 0xFFFFFF00 | (p.OReg << 4)
		clearOreg = false
	case isa.OPR:
		if err := p.execOpr(pcBefore); err != nil {
			return err
		}
	default:
		return &InvalidInstructionError{PC: pcBefore, Instr: instrByte}
	}

	if clearOreg {
		p.OReg = 0
	}
	p.Cycles++
	return nil
}

func (p *Processor) execOpr(pcBefore uint32) error {
	switch isa.OprCode(p.OReg) {
	case isa.BRB:
		p.PC = p.BReg
	case isa.ADD:
		p.AReg = p.AReg + p.BReg
	case isa.SUB:
		p.AReg = p.AReg - p.BReg
	case isa.SVC:
		return p.syscall(pcBefore)
	default:
		return &InvalidOprError{PC: pcBefore, Sub: p.OReg}
	}
	return nil
}

func (p *Processor) syscall(pcBefore uint32) error {
	sp := p.wordAt(1)
	switch isa.Syscall(p.AReg) {
	case isa.SyscallExit:
		p.ExitCode = int32(p.wordAt(sp + 2))
		p.Running = false
	case isa.SyscallWrite:
		value := byte(p.wordAt(sp + 2))
		stream := p.wordAt(sp + 3)
		if err := p.IO.Output(value, stream); err != nil {
			return err
		}
	case isa.SyscallRead:
		stream := p.wordAt(sp + 2)
		v, err := p.IO.Input(stream)
		if err != nil {
			return err
		}
		if v < 0 {
			p.setWordAt(sp+1, 0xFFFFFFFF)
		} else {
			p.setWordAt(sp+1, uint32(v)&0xFF)
		}
	default:
		return &InvalidSyscallError{PC: pcBefore, Syscall: p.AReg}
	}
	return nil
}
