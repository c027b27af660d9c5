package asm

import "fmt"

// UnrecognisedTokenError reports a character that could not start any
// valid token.
type UnrecognisedTokenError struct {
	Loc  Location
	Char byte
}

func (e *UnrecognisedTokenError) Error() string {
	return fmt.Sprintf("%d:%d: unrecognised character %q", e.Loc.Line, e.Loc.Char, e.Char)
}

// UnexpectedTokenError reports a token that does not fit the grammar
// position it was found in.
type UnexpectedTokenError struct {
	Loc  Location
	Text string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("%d:%d: unexpected token %q", e.Loc.Line, e.Loc.Char, e.Text)
}

// InvalidOprError reports an OPR operand outside {BRB, ADD, SUB, SVC}.
type InvalidOprError struct {
	Loc  Location
	Text string
}

func (e *InvalidOprError) Error() string {
	return fmt.Sprintf("%d:%d: invalid OPR operand %q", e.Loc.Line, e.Loc.Char, e.Text)
}

// UnknownLabelError reports a reference to a label never defined.
type UnknownLabelError struct {
	Loc  Location
	Name string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("%d:%d: unknown label %q", e.Loc.Line, e.Loc.Char, e.Name)
}
