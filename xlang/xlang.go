// Package xlang implements the X language frontend and code generator:
// lexing and recursive-descent parsing to a polymorphic AST, a two-scope
// symbol table, constant folding, and lowering to an assembler Directive
// stream consumed by package asm.
package xlang

import "github.com/hexlang/hex/asm"

// Compile runs the full X pipeline over src — parse, symbol-table
// construction, constant folding, code generation — returning the
// resulting Program (for --tree) and its lowered Directive stream (for
// assembly and listing).
func Compile(src []byte) (*Program, []*asm.Directive, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	symtab, err := BuildSymbolTable(prog)
	if err != nil {
		return nil, nil, err
	}
	if err := FoldConstants(prog, symtab); err != nil {
		return nil, nil, err
	}
	directives, err := Generate(prog, symtab)
	if err != nil {
		return nil, nil, err
	}
	return prog, directives, nil
}
