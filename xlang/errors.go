package xlang

import "fmt"

// Location is a source position.
type Location struct {
	Line int
	Char int
}

// TokenError reports a bad character, unterminated literal, or bad
// escape sequence during lexing.
type TokenError struct {
	Loc Location
	Msg string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Char, e.Msg)
}

// CharConstError reports a malformed character-constant literal.
type CharConstError struct {
	Loc Location
	Msg string
}

func (e *CharConstError) Error() string {
	return fmt.Sprintf("%d:%d: invalid character constant: %s", e.Loc.Line, e.Loc.Char, e.Msg)
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

// ExpectedNameError reports a position requiring an identifier that held
// something else.
type ExpectedNameError struct {
	Loc  Location
	Text string
}

func (e *ExpectedNameError) Error() string {
	return fmt.Sprintf("%d:%d: expected a name, got %q", e.Loc.Line, e.Loc.Char, e.Text)
}

// NonConstArrayLengthError reports an array declaration whose length
// expression did not fold to a constant.
type NonConstArrayLengthError struct {
	Loc  Location
	Name string
}

func (e *NonConstArrayLengthError) Error() string {
	return fmt.Sprintf("%d:%d: array %q length is not a constant expression", e.Loc.Line, e.Loc.Char, e.Name)
}

// UnknownSymbolError reports a reference to an undeclared identifier.
type UnknownSymbolError struct {
	Loc  Location
	Name string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("%d:%d: unknown symbol %q", e.Loc.Line, e.Loc.Char, e.Name)
}

// InvalidSyscallError reports a call with a numeric target outside
// {0,1,2}.
type InvalidSyscallError struct {
	Loc Location
	N   int64
}

func (e *InvalidSyscallError) Error() string {
	return fmt.Sprintf("%d:%d: invalid syscall number %d", e.Loc.Line, e.Loc.Char, e.N)
}
