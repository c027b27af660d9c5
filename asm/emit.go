package asm

import (
	"encoding/binary"

	"github.com/hexlang/hex/isa"
)

// Emit produces the binary body (no header) for an already-Resolved
// directive list, per spec.md §4.B's "Binary emission" rules.
func Emit(prog []*Directive) ([]byte, error) {
	var out []byte
	for _, d := range prog {
		switch d.Kind {
		case KindPadding:
			out = append(out, make([]byte, d.PadBytes)...)

		case KindData:
			for len(out)%4 != 0 {
				out = append(out, 0)
			}
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(d.DataValue))
			out = append(out, buf[:]...)

		case KindInstrImm, KindInstrLabel:
			out = append(out, emitInstr(d.Opcode, d.Operand)...)

		case KindInstrOp:
			out = append(out, byte(isa.OPR)<<4|byte(d.OprCode))

		case KindFunc, KindProc, KindLabel:
			// zero bytes

		default:
		}
	}
	return out, nil
}

func emitInstr(op isa.Opcode, operand int64) []byte {
	size := isa.NumNibbles(operand)
	out := make([]byte, 0, size)

	if size > 1 {
		prefixOp := isa.PFIX
		if operand < 0 {
			prefixOp = isa.NFIX
		}
		shift := uint((size - 1) * 4)
		nibble := byte(operand>>shift) & 0xF
		out = append(out, byte(prefixOp)<<4|nibble)
	}
	for i := size - 2; i >= 1; i-- {
		nibble := byte(operand>>uint(i*4)) & 0xF
		out = append(out, byte(isa.PFIX)<<4|nibble)
	}
	finalNibble := byte(operand) & 0xF
	out = append(out, byte(op)<<4|finalNibble)
	return out
}

// EmitBinary produces the full file layout: a little-endian u32 word-count
// header, the program body, and (unless omitDebug is true) a debug section
// built from every Func/Proc/Label directive's resolved name and offset.
func EmitBinary(prog []*Directive, omitDebug bool) ([]byte, error) {
	body, err := Emit(prog)
	if err != nil {
		return nil, err
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)/4))

	out := make([]byte, 0, 4+len(body))
	out = append(out, header[:]...)
	out = append(out, body...)

	if omitDebug {
		return out, nil
	}

	return append(out, EmitDebugSection(prog)...), nil
}

// EmitDebugSection builds the optional debug section: u32 num_strings,
// that many NUL-terminated symbol names, u32 num_symbols, then that many
// (u32 string_index, u32 byte_offset) pairs — one pair per Func/Proc/Label
// directive in program order.
func EmitDebugSection(prog []*Directive) []byte {
	type sym struct {
		nameIdx int
		offset  int64
	}
	var syms []sym
	nameIndex := make(map[string]int)
	var names []string

	for _, d := range prog {
		if d.Kind != KindFunc && d.Kind != KindProc && d.Kind != KindLabel {
			continue
		}
		idx, ok := nameIndex[d.Name]
		if !ok {
			idx = len(names)
			nameIndex[d.Name] = idx
			names = append(names, d.Name)
		}
		off := d.ByteOffset
		if d.Kind == KindLabel {
			off = d.Resolved
		}
		syms = append(syms, sym{nameIdx: idx, offset: off})
	}

	var out []byte
	var u32 [4]byte

	binary.LittleEndian.PutUint32(u32[:], uint32(len(names)))
	out = append(out, u32[:]...)
	for _, n := range names {
		out = append(out, []byte(n)...)
		out = append(out, 0)
	}

	binary.LittleEndian.PutUint32(u32[:], uint32(len(syms)))
	out = append(out, u32[:]...)
	for _, s := range syms {
		binary.LittleEndian.PutUint32(u32[:], uint32(s.nameIdx))
		out = append(out, u32[:]...)
		binary.LittleEndian.PutUint32(u32[:], uint32(s.offset))
		out = append(out, u32[:]...)
	}

	return out
}
