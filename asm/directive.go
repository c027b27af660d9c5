package asm

import "github.com/hexlang/hex/isa"

// Location is a source position, carried by every lex/parse/assembler
// error and by every directive for diagnostics.
type Location struct {
	Line int
	Char int
}

// Kind discriminates the Directive tagged sum.
type Kind int

const (
	KindData Kind = iota
	KindFunc
	KindProc
	KindLabel
	KindInstrImm
	KindInstrLabel
	KindInstrOp
	KindPadding
)

// Directive is one unit of assembler IR: a tagged sum of Data, Func, Proc,
// Label, InstrImm, InstrLabel, InstrOp and Padding. Every directive
// carries an optional source Location, a mutable byte offset assigned
// during resolution, and an Assembled flag set once its final size is
// known to be stable.
type Directive struct {
	Kind Kind
	Loc  Location

	// Data
	DataValue int32

	// Func / Proc / Label
	Name string

	// InstrImm / InstrLabel / InstrOp
	Opcode   isa.Opcode
	OprCode  isa.OprCode
	Target   string // InstrLabel: name of the label operand refers to
	Relative bool   // InstrLabel: true if PC-relative, false if absolute
	Operand  int64  // InstrImm: literal immediate. InstrLabel: resolved operand.

	// Padding
	PadBytes int

	// Resolution state, mutated in place across fixed-point passes.
	ByteOffset int64
	Resolved   int64 // for Label: resolved byte offset
	Assembled  bool
}

// Size returns the directive's size in bytes given its currently resolved
// operand. Data directives do not include their own alignment padding in
// Size — alignment is accounted for separately by the resolver, which
// bumps ByteOffset before assigning a Data directive's offset.
func (d *Directive) Size() int {
	switch d.Kind {
	case KindData:
		return 4
	case KindFunc, KindProc, KindLabel:
		return 0
	case KindInstrOp:
		return 1
	case KindInstrImm:
		return isa.NumNibbles(d.Operand)
	case KindInstrLabel:
		return isa.NumNibbles(d.Operand)
	case KindPadding:
		return d.PadBytes
	default:
		return 0
	}
}

// NewData builds a Data directive.
func NewData(v int32, loc Location) *Directive {
	return &Directive{Kind: KindData, DataValue: v, Loc: loc}
}

// NewFunc builds an informational, zero-sized Func directive.
func NewFunc(name string, loc Location) *Directive {
	return &Directive{Kind: KindFunc, Name: name, Loc: loc}
}

// NewProc builds an informational, zero-sized Proc directive.
func NewProc(name string, loc Location) *Directive {
	return &Directive{Kind: KindProc, Name: name, Loc: loc}
}

// NewLabel builds a Label directive; its ByteOffset is assigned during
// resolution.
func NewLabel(name string, loc Location) *Directive {
	return &Directive{Kind: KindLabel, Name: name, Loc: loc}
}

// NewInstrImm builds an instruction directive with a literal immediate
// operand (no label reference).
func NewInstrImm(op isa.Opcode, imm int64, loc Location) *Directive {
	return &Directive{Kind: KindInstrImm, Opcode: op, Operand: imm, Loc: loc}
}

// NewInstrLabel builds an instruction directive whose operand is a label
// reference, resolved relative (PC-relative byte displacement) or
// absolute (word address) per isa.TakesAbsoluteOperand(op).
func NewInstrLabel(op isa.Opcode, target string, loc Location) *Directive {
	return &Directive{
		Kind:     KindInstrLabel,
		Opcode:   op,
		Target:   target,
		Relative: !isa.TakesAbsoluteOperand(op),
		Loc:      loc,
	}
}

// NewInstrOp builds an OPR instruction directive.
func NewInstrOp(opr isa.OprCode, loc Location) *Directive {
	return &Directive{Kind: KindInstrOp, OprCode: opr, Loc: loc}
}

// NewPadding builds a Padding directive of n zero bytes.
func NewPadding(n int, loc Location) *Directive {
	return &Directive{Kind: KindPadding, PadBytes: n, Loc: loc}
}
