package asm

import "github.com/hexlang/hex/isa"

// Resolve computes the fixed point over instruction sizes and label
// offsets described in spec.md §4.B, mutating each Directive's ByteOffset
// and, for InstrLabel directives, Operand in place. It returns the
// program's directive list with a trailing alignment Padding directive
// appended (bringing the total to a multiple of 4) and the final total
// size in bytes.
func Resolve(prog []*Directive) ([]*Directive, int64, error) {
	labelMap := make(map[string]*Directive, len(prog))
	for _, d := range prog {
		if d.Kind == KindLabel {
			labelMap[d.Name] = d
		}
	}

	// Verify every label reference exists up front so errors report
	// promptly rather than after iterating to a fixed point.
	for _, d := range prog {
		if d.Kind == KindInstrLabel {
			if _, ok := labelMap[d.Target]; !ok {
				return nil, 0, &UnknownLabelError{Loc: d.Loc, Name: d.Target}
			}
		}
	}

	var total int64
	first := true
	for {
		var byteOffset int64
		for _, d := range prog {
			if d.Kind == KindData && byteOffset%4 != 0 {
				byteOffset += 4 - (byteOffset % 4)
			}
			if d.Kind == KindLabel {
				d.Resolved = byteOffset
			}
			if d.Kind == KindInstrLabel {
				target := labelMap[d.Target].Resolved
				if d.Relative {
					d.Operand = target - byteOffset - int64(isa.InstrLen(target, byteOffset))
				} else {
					d.Operand = target >> 2
				}
			}
			d.ByteOffset = byteOffset
			byteOffset += int64(d.Size())
		}
		if !first && byteOffset == total {
			total = byteOffset
			break
		}
		total = byteOffset
		first = false
	}

	if pad := (4 - total%4) % 4; pad != 0 {
		p := NewPadding(int(pad), Location{})
		p.ByteOffset = total
		prog = append(prog, p)
		total += pad
	}

	for _, d := range prog {
		d.Assembled = true
	}

	return prog, total, nil
}
