package asm

import "github.com/hexlang/hex/isa"

// Parse consumes the full token stream of an assembly source file and
// produces the program's Directive list, per the grammar in spec.md §4.B:
//
//	program   := { directive }
//	directive := label | data | opinstr | instr | func | proc
func Parse(src []byte) ([]*Directive, error) {
	l := NewLexer(src)
	var prog []*Directive

	tok, err := l.Next()
	if err != nil {
		return nil, err
	}

	for tok.Kind != TokEOF {
		d, next, err := parseDirective(l, tok)
		if err != nil {
			return nil, err
		}
		prog = append(prog, d)
		tok = next
	}
	return prog, nil
}

func parseDirective(l *Lexer, tok Token) (*Directive, Token, error) {
	loc := tok.Loc

	switch tok.Kind {
	case TokIdent:
		// A bare identifier is a label definition.
		d := NewLabel(tok.Text, loc)
		next, err := l.Next()
		return d, next, err

	case TokOpcode:
		switch tok.Text {
		case "DATA":
			return parseData(l, loc)
		case "FUNC":
			return parseNamedZero(l, loc, NewFunc)
		case "PROC":
			return parseNamedZero(l, loc, NewProc)
		case "OPR":
			return parseOpr(l, loc)
		default:
			op, _ := isa.LookupOpcode(tok.Text)
			return parseInstr(l, loc, op)
		}

	default:
		return nil, Token{}, &UnexpectedTokenError{Loc: loc, Text: tok.Text}
	}
}

func parseInt(l *Lexer) (int64, Token, error) {
	tok, err := l.Next()
	if err != nil {
		return 0, Token{}, err
	}
	neg := false
	if tok.Kind == TokMinus {
		neg = true
		tok, err = l.Next()
		if err != nil {
			return 0, Token{}, err
		}
	}
	if tok.Kind != TokNumber {
		return 0, Token{}, &UnexpectedTokenError{Loc: tok.Loc, Text: tok.Text}
	}
	v := tok.Num
	if neg {
		v = -v
	}
	next, err := l.Next()
	return v, next, err
}

func parseData(l *Lexer, loc Location) (*Directive, Token, error) {
	v, next, err := parseInt(l)
	if err != nil {
		return nil, Token{}, err
	}
	return NewData(int32(v), loc), next, nil
}

func parseNamedZero(l *Lexer, loc Location, build func(string, Location) *Directive) (*Directive, Token, error) {
	tok, err := l.Next()
	if err != nil {
		return nil, Token{}, err
	}
	if tok.Kind != TokIdent {
		return nil, Token{}, &UnexpectedTokenError{Loc: tok.Loc, Text: tok.Text}
	}
	next, err := l.Next()
	return build(tok.Text, loc), next, err
}

func parseOpr(l *Lexer, loc Location) (*Directive, Token, error) {
	tok, err := l.Next()
	if err != nil {
		return nil, Token{}, err
	}
	if tok.Kind != TokOpcode && tok.Kind != TokIdent {
		return nil, Token{}, &InvalidOprError{Loc: tok.Loc, Text: tok.Text}
	}
	opr, ok := isa.LookupOprCode(tok.Text)
	if !ok {
		return nil, Token{}, &InvalidOprError{Loc: tok.Loc, Text: tok.Text}
	}
	next, err := l.Next()
	return NewInstrOp(opr, loc), next, err
}

func parseInstr(l *Lexer, loc Location, op isa.Opcode) (*Directive, Token, error) {
	tok, err := l.Next()
	if err != nil {
		return nil, Token{}, err
	}
	switch tok.Kind {
	case TokIdent:
		next, err := l.Next()
		return NewInstrLabel(op, tok.Text, loc), next, err
	case TokNumber, TokMinus:
		return finishImmOperand(l, tok, op, loc)
	default:
		return nil, Token{}, &UnexpectedTokenError{Loc: tok.Loc, Text: tok.Text}
	}
}

func finishImmOperand(l *Lexer, first Token, op isa.Opcode, loc Location) (*Directive, Token, error) {
	neg := false
	numTok := first
	var err error
	if first.Kind == TokMinus {
		neg = true
		numTok, err = l.Next()
		if err != nil {
			return nil, Token{}, err
		}
	}
	if numTok.Kind != TokNumber {
		return nil, Token{}, &UnexpectedTokenError{Loc: numTok.Loc, Text: numTok.Text}
	}
	v := numTok.Num
	if neg {
		v = -v
	}
	next, err := l.Next()
	if err != nil {
		return nil, Token{}, err
	}
	return NewInstrImm(op, v, loc), next, nil
}
