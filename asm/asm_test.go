package asm

import (
	"bytes"
	"testing"
)

func TestAssembleExit0(t *testing.T) {
	src := []byte(`
BR start
DATA 16383
start
LDAC 0
LDBM 1
STAI 2
LDAC 0
OPR SVC
`)
	prog, bin, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(prog) == 0 {
		t.Fatal("expected non-empty directive list")
	}
	// Header (4 bytes) + 16 program bytes (BR, alignment padding, the
	// DATA word, five one-byte instructions, trailing padding), plus a
	// debug section for the "start" label.
	if len(bin) < 16 {
		t.Fatalf("expected at least 16 bytes (header+body), got %d", len(bin))
	}
}

func TestAssembleExit255(t *testing.T) {
	src := []byte(`
BR start
DATA 16383
start
LDAC 255
LDBM 1
STAI 2
LDAC 0
OPR SVC
`)
	_, bin, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(bin) < 16 {
		t.Fatalf("binary too short: %d", len(bin))
	}
}

func TestResolveRelativeBranch(t *testing.T) {
	src := []byte(`
start
BR start
`)
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, total, err := Resolve(prog)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if total%4 != 0 {
		t.Fatalf("total size %d not a multiple of 4", total)
	}
	var branch *Directive
	for _, d := range prog {
		if d.Kind == KindInstrLabel {
			branch = d
		}
	}
	if branch == nil {
		t.Fatal("no InstrLabel directive found")
	}
	// Property 2: byte_offset + size() + operand == label offset.
	labelOffset := int64(0)
	if got, want := branch.ByteOffset+int64(branch.Size())+branch.Operand, labelOffset; got != want {
		t.Fatalf("branch target mismatch: got %d want %d", got, want)
	}
}

func TestResolveAbsoluteOperand(t *testing.T) {
	src := []byte(`
DATA 1
DATA 2
loc
LDAM loc
`)
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, _, err = Resolve(prog)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var instr, label *Directive
	for _, d := range prog {
		if d.Kind == KindInstrLabel {
			instr = d
		}
		if d.Kind == KindLabel {
			label = d
		}
	}
	if instr == nil || label == nil {
		t.Fatal("expected both a label and an InstrLabel directive")
	}
	if got, want := instr.Operand<<2, label.Resolved; got != want {
		t.Fatalf("absolute operand mismatch: got %d want %d", got, want)
	}
}

func TestUnknownLabelError(t *testing.T) {
	src := []byte(`BR nowhere`)
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, _, err = Resolve(prog)
	if err == nil {
		t.Fatal("expected UnknownLabelError")
	}
	if _, ok := err.(*UnknownLabelError); !ok {
		t.Fatalf("expected *UnknownLabelError, got %T", err)
	}
}

func TestInvalidOprError(t *testing.T) {
	src := []byte(`OPR FOO`)
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected InvalidOprError")
	}
	if _, ok := err.(*InvalidOprError); !ok {
		t.Fatalf("expected *InvalidOprError, got %T", err)
	}
}

func TestBinaryLengthMultipleOf4(t *testing.T) {
	src := []byte(`
BR start
start
LDAC 1
OPR SVC
`)
	_, bin, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	// bin includes a 4-byte header, so check the remainder after it
	// excluding the variable-length debug section: emit body directly.
	prog, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	prog, total, err := Resolve(prog)
	if err != nil {
		t.Fatal(err)
	}
	if total%4 != 0 {
		t.Fatalf("resolved size %d not multiple of 4", total)
	}
	body, err := Emit(prog)
	if err != nil {
		t.Fatal(err)
	}
	if len(body)%4 != 0 {
		t.Fatalf("emitted body length %d not multiple of 4", len(body))
	}
	if len(bin) < 4+len(body) {
		t.Fatalf("full binary shorter than header+body: %d < %d", len(bin), 4+len(body))
	}
}

func TestListingWrites(t *testing.T) {
	prog, err := Parse([]byte("start\nLDAC 1\nOPR SVC\n"))
	if err != nil {
		t.Fatal(err)
	}
	prog, _, err = Resolve(prog)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteListing(prog, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty listing output")
	}
}
