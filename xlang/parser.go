package xlang

import "fmt"

// Parser is a recursive-descent parser over an X token stream, per the
// grammar in spec.md §4.D.
type Parser struct {
	lex *Lexer
	tok Token
}

// Parse consumes src and produces a Program.
func Parse(src []byte) (*Program, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func tokenText(t Token) string {
	if t.Text != "" {
		return t.Text
	}
	switch t.Kind {
	case TokEOF:
		return "<eof>"
	case TokNumber:
		return fmt.Sprintf("%d", t.Num)
	default:
		return "?"
	}
}

func (p *Parser) parseName() (string, Location, error) {
	if p.tok.Kind != TokIdent {
		return "", Location{}, &ExpectedNameError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
	name := p.tok.Text
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return "", Location{}, err
	}
	return name, loc, nil
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for p.tok.Kind == TokVal || p.tok.Kind == TokVar || p.tok.Kind == TokArray {
		d, err := p.parseGlobalDecl()
		if err != nil {
			return nil, err
		}
		prog.Globals = append(prog.Globals, d)
	}
	for p.tok.Kind == TokProc || p.tok.Kind == TokFunc {
		pr, err := p.parseProc()
		if err != nil {
			return nil, err
		}
		prog.Procs = append(prog.Procs, *pr)
	}
	if p.tok.Kind != TokEOF {
		return nil, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
	return prog, nil
}

func (p *Parser) parseGlobalDecl() (Decl, error) {
	switch p.tok.Kind {
	case TokVal:
		return p.parseValDecl()
	case TokVar:
		return p.parseVarDecl()
	case TokArray:
		return p.parseArrayDecl()
	default:
		return nil, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
}

func (p *Parser) parseLocalDecl() (Decl, error) {
	switch p.tok.Kind {
	case TokVal:
		return p.parseValDecl()
	case TokVar:
		return p.parseVarDecl()
	default:
		return nil, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
}

func (p *Parser) parseValDecl() (Decl, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil { // consume "val"
		return nil, err
	}
	name, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEq, "="); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, ";"); err != nil {
		return nil, err
	}
	return &ValDecl{declBase: declBase{Loc: loc, Name: name}, Expr: e}, nil
}

func (p *Parser) parseVarDecl() (Decl, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, ";"); err != nil {
		return nil, err
	}
	return &VarDecl{declBase: declBase{Loc: loc, Name: name}}, nil
}

func (p *Parser) parseArrayDecl() (Decl, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBracket, "["); err != nil {
		return nil, err
	}
	lenExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, ";"); err != nil {
		return nil, err
	}
	return &ArrayDecl{declBase: declBase{Loc: loc, Name: name}, LengthExpr: lenExpr}, nil
}

func (p *Parser) parseProc() (*Proc, error) {
	loc := p.tok.Loc
	isFunc := p.tok.Kind == TokFunc
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var formals []Formal
	for p.tok.Kind != TokRParen {
		f, err := p.parseFormal()
		if err != nil {
			return nil, err
		}
		formals = append(formals, f)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIs, "is"); err != nil {
		return nil, err
	}
	var locals []Decl
	for p.tok.Kind == TokVal || p.tok.Kind == TokVar {
		d, err := p.parseLocalDecl()
		if err != nil {
			return nil, err
		}
		locals = append(locals, d)
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &Proc{Name: name, IsFunc: isFunc, Formals: formals, Locals: locals, Body: body, Loc: loc}, nil
}

func (p *Parser) parseFormal() (Formal, error) {
	loc := p.tok.Loc
	var kind FormalKind
	switch p.tok.Kind {
	case TokVal:
		kind = FormalVal
	case TokArray:
		kind = FormalArray
	case TokProc:
		kind = FormalProc
	case TokFunc:
		kind = FormalFunc
	default:
		return Formal{}, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
	if err := p.advance(); err != nil {
		return Formal{}, err
	}
	name, _, err := p.parseName()
	if err != nil {
		return Formal{}, err
	}
	return Formal{Kind: kind, Name: name, Loc: loc}, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	loc := p.tok.Loc
	switch p.tok.Kind {
	case TokSkip:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &SkipStatement{stmtBase{loc}}, nil

	case TokStop:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StopStatement{stmtBase{loc}}, nil

	case TokReturn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{stmtBase{loc}, e}, nil

	case TokIf:
		return p.parseIf(loc)

	case TokWhile:
		return p.parseWhile(loc)

	case TokLBrace:
		return p.parseSeq(loc)

	case TokIdent:
		return p.parseIdentStatement(loc)

	case TokNumber:
		n := p.tok.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		call, err := p.parseSyscallCallTail(n, loc)
		if err != nil {
			return nil, err
		}
		return &CallStatement{stmtBase{loc}, call}, nil

	default:
		return nil, &UnexpectedTokenError{Loc: loc, Text: tokenText(p.tok)}
	}
}

// parseSyscallCallTail parses "(args...)" following a bare numeric
// literal used as a syscall target, per spec.md §4.D's "N(args...)"
// convention (N in {0,1,2}). The parser accepts any integer here; code
// generation (genSyscall) rejects a target outside {0,1,2} with an
// InvalidSyscallError.
func (p *Parser) parseSyscallCallTail(n int64, loc Location) (*CallExpr, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var args []Expr
	for p.tok.Kind != TokRParen {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return &CallExpr{exprBase: exprBase{Loc: loc}, Target: n, IsSyscall: true, Args: args}, nil
}

func (p *Parser) parseIf(loc Location) (Statement, error) {
	if err := p.advance(); err != nil { // "if"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokThen, "then"); err != nil {
		return nil, err
	}
	thenStmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokElse, "else"); err != nil {
		return nil, err
	}
	elseStmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &IfStatement{stmtBase{loc}, cond, thenStmt, elseStmt}, nil
}

func (p *Parser) parseWhile(loc Location) (Statement, error) {
	if err := p.advance(); err != nil { // "while"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDo, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStatement{stmtBase{loc}, cond, body}, nil
}

func (p *Parser) parseSeq(loc Location) (Statement, error) {
	if err := p.advance(); err != nil { // "{"
		return nil, err
	}
	var stmts []Statement
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, s)
	for p.tok.Kind == TokSemi {
		if err := p.advance(); err != nil {
			return nil, err
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return &SeqStatement{stmtBase{loc}, stmts}, nil
}

func (p *Parser) parseIdentStatement(loc Location) (Statement, error) {
	name, _, err := p.parseName()
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case TokAssign:
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStatement{stmtBase{loc}, Lhs{Name: name, Loc: loc}, rhs}, nil

	case TokLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBracket, "]"); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokAssign, ":="); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStatement{stmtBase{loc}, Lhs{Name: name, Index: idx, Loc: loc}, rhs}, nil

	case TokLParen:
		call, err := p.parseCallTail(name, loc)
		if err != nil {
			return nil, err
		}
		return &CallStatement{stmtBase{loc}, call}, nil

	default:
		return nil, &UnexpectedTokenError{Loc: p.tok.Loc, Text: tokenText(p.tok)}
	}
}

func (p *Parser) parseCallTail(name string, loc Location) (*CallExpr, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var args []Expr
	for p.tok.Kind != TokRParen {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return &CallExpr{exprBase: exprBase{Loc: loc}, Name: name, Args: args}, nil
}

// parseExpr implements:
//
//	expr       := unary | element (binop expr-chain)?
//	expr-chain := element (binop element)*   // only for associative ops
//
// Only +, or, and chain within a single parseBinOpRHS level; every other
// binary operator requires explicit parenthesization to compose — there
// is no precedence ladder, a deliberate language design choice.
func (p *Parser) parseExpr() (Expr, error) {
	if p.tok.Kind == TokMinus || p.tok.Kind == TokNot {
		return p.parseUnary()
	}
	left, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	op, ok := binOpFor(p.tok.Kind)
	if !ok {
		return left, nil
	}
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	node := &BinaryOpExpr{exprBase: exprBase{Loc: loc}, Op: op, Left: left, Right: right}
	if !op.IsAssociative() {
		return node, nil
	}
	// Chain further elements of the same associative operator.
	for {
		nextOp, ok := binOpFor(p.tok.Kind)
		if !ok || nextOp != op {
			return node, nil
		}
		chainLoc := p.tok.Loc
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		node = &BinaryOpExpr{exprBase: exprBase{Loc: chainLoc}, Op: op, Left: node, Right: rhs}
	}
}

func binOpFor(k TokenKind) (BinOp, bool) {
	switch k {
	case TokPlus:
		return OpAdd, true
	case TokMinus:
		return OpSub, true
	case TokOr:
		return OpOr, true
	case TokAnd:
		return OpAnd, true
	case TokEq:
		return OpEq, true
	case TokNeq:
		return OpNeq, true
	case TokLt:
		return OpLt, true
	case TokLe:
		return OpLe, true
	case TokGt:
		return OpGt, true
	case TokGe:
		return OpGe, true
	default:
		return 0, false
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	loc := p.tok.Loc
	var op UnOp
	if p.tok.Kind == TokMinus {
		op = OpNeg
	} else {
		op = OpComplement
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	return &UnaryOpExpr{exprBase: exprBase{Loc: loc}, Op: op, Expr: e}, nil
}

func (p *Parser) parseElement() (Expr, error) {
	loc := p.tok.Loc
	switch p.tok.Kind {
	case TokNumber:
		v := p.tok.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokLParen {
			return p.parseSyscallCallTail(v, loc)
		}
		return &NumberExpr{exprBase: exprBase{Loc: loc}, Value: v}, nil

	case TokChar:
		v := p.tok.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NumberExpr{exprBase: exprBase{Loc: loc}, Value: v}, nil

	case TokString:
		s := p.tok.Str
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StringExpr{exprBase: exprBase{Loc: loc}, Bytes: s}, nil

	case TokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BooleanExpr{exprBase: exprBase{Loc: loc}, Value: true}, nil

	case TokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BooleanExpr{exprBase: exprBase{Loc: loc}, Value: false}, nil

	case TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil

	case TokIdent:
		name, _, err := p.parseName()
		if err != nil {
			return nil, err
		}
		switch p.tok.Kind {
		case TokLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket, "]"); err != nil {
				return nil, err
			}
			return &ArraySubscriptExpr{exprBase: exprBase{Loc: loc}, Name: name, Index: idx}, nil
		case TokLParen:
			return p.parseCallTail(name, loc)
		default:
			return &VarRefExpr{exprBase: exprBase{Loc: loc}, Name: name}, nil
		}

	default:
		return nil, &UnexpectedTokenError{Loc: loc, Text: tokenText(p.tok)}
	}
}
