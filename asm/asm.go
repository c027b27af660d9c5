// Package asm implements the Hex assembler: lexing and parsing of the
// mnemonic source language into a Directive stream, fixed-point label
// resolution, and binary emission.
package asm

// Assemble runs the full pipeline — parse, resolve, emit — over assembly
// source, returning the final directive list (for listing) and the
// complete binary file (header, body, debug section).
func Assemble(src []byte) (prog []*Directive, binary []byte, err error) {
	prog, err = Parse(src)
	if err != nil {
		return nil, nil, err
	}
	prog, _, err = Resolve(prog)
	if err != nil {
		return nil, nil, err
	}
	binary, err = EmitBinary(prog, false)
	if err != nil {
		return nil, nil, err
	}
	return prog, binary, nil
}
