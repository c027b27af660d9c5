package asm

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// ListingTemplate renders the header shown above a --tree directive
// dump, in the same text/template idiom the teacher uses for its
// disassembly listing header.
var ListingTemplate = `\ ----------------------------------------------------------------------------
\ hexasm directive listing
\ {{ .Count }} directives, {{ .Bytes }} bytes
\ ----------------------------------------------------------------------------
`

// WriteListing renders a resolved directive list to w as
// "byteoffset hex | text | (size)" lines, per spec.md §6's --tree
// description.
func WriteListing(prog []*Directive, w io.Writer) error {
	t, err := template.New("listing").Parse(ListingTemplate)
	if err != nil {
		return err
	}
	total := 0
	for _, d := range prog {
		total += d.Size()
	}
	if err := t.Execute(w, struct {
		Count int
		Bytes int
	}{len(prog), total}); err != nil {
		return err
	}

	for _, d := range prog {
		bytes, err := Emit([]*Directive{d})
		if err != nil {
			return err
		}
		hexParts := make([]string, len(bytes))
		for i, b := range bytes {
			hexParts[i] = fmt.Sprintf("%02x", b)
		}
		fmt.Fprintf(w, "%08x  %-24s| %-28s (%d)\n",
			d.ByteOffset, strings.Join(hexParts, " "), directiveText(d), d.Size())
	}
	return nil
}

func directiveText(d *Directive) string {
	switch d.Kind {
	case KindData:
		return fmt.Sprintf("DATA %d", d.DataValue)
	case KindFunc:
		return fmt.Sprintf("FUNC %s", d.Name)
	case KindProc:
		return fmt.Sprintf("PROC %s", d.Name)
	case KindLabel:
		return fmt.Sprintf("%s:", d.Name)
	case KindInstrOp:
		return fmt.Sprintf("OPR %s", d.OprCode)
	case KindInstrImm:
		return fmt.Sprintf("%s %d", d.Opcode, d.Operand)
	case KindInstrLabel:
		return fmt.Sprintf("%s %s", d.Opcode, d.Target)
	case KindPadding:
		return fmt.Sprintf("; padding %d", d.PadBytes)
	default:
		return "?"
	}
}
