package vm

import (
	"fmt"
	"io"
)

// Dump writes a hex memory dump to w: 16 words per line, an "%08x:"
// address prefix, space-separated "%08x" words, from word 0 through the
// highest word touched by the loaded program (grounded on
// original_source/hexsim.hpp's debug dump helper — the full 200,000-word
// array is never dumped, only the portion the program occupies).
func (p *Processor) Dump(w io.Writer, highWord int) error {
	if highWord >= len(p.Memory) {
		highWord = len(p.Memory) - 1
	}
	for base := 0; base <= highWord; base += 16 {
		if _, err := fmt.Fprintf(w, "%08x:", base); err != nil {
			return err
		}
		for i := 0; i < 16 && base+i <= highWord; i++ {
			if _, err := fmt.Fprintf(w, " %08x", p.Memory[base+i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
