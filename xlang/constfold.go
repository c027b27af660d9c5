package xlang

// FoldConstants runs the post-order constant-folding visitor over every
// expression reachable from prog, setting Expr.Const() where spec.md
// §4.D's table applies. It is a fixed point: a second pass changes
// nothing, because folding only ever reads already-folded children and
// a ValDecl's own expression is folded exactly once, before any
// reference to it is visited (globals are folded first, in declaration
// order, matching the symbol table's "later inserts overwrite" note).
func FoldConstants(prog *Program, symtab *SymbolTable) error {
	for _, d := range prog.Globals {
		if vd, ok := d.(*ValDecl); ok {
			if err := foldExpr(vd.Expr, symtab); err != nil {
				return err
			}
		}
		if ad, ok := d.(*ArrayDecl); ok {
			if err := foldExpr(ad.LengthExpr, symtab); err != nil {
				return err
			}
			v, ok := ad.LengthExpr.Const()
			if !ok {
				return &NonConstArrayLengthError{Loc: ad.Loc, Name: ad.Name}
			}
			ad.Length = v
		}
	}
	for i := range prog.Procs {
		pr := &prog.Procs[i]
		symtab.EnterLocal()
		for _, f := range pr.Formals {
			symtab.DefineLocal(symbolForFormal(f))
		}
		for _, d := range pr.Locals {
			if vd, ok := d.(*ValDecl); ok {
				if err := foldExpr(vd.Expr, symtab); err != nil {
					return err
				}
			}
			sym, err := symbolForDecl(d)
			if err != nil {
				return err
			}
			symtab.DefineLocal(sym)
		}
		if err := foldStatement(pr.Body, symtab); err != nil {
			return err
		}
		symtab.ExitLocal()
	}
	return nil
}

func foldStatement(s Statement, symtab *SymbolTable) error {
	switch st := s.(type) {
	case *SkipStatement, *StopStatement:
		return nil
	case *ReturnStatement:
		return foldExpr(st.Expr, symtab)
	case *IfStatement:
		if err := foldExpr(st.Cond, symtab); err != nil {
			return err
		}
		if err := foldStatement(st.Then, symtab); err != nil {
			return err
		}
		return foldStatement(st.Else, symtab)
	case *WhileStatement:
		if err := foldExpr(st.Cond, symtab); err != nil {
			return err
		}
		return foldStatement(st.Body, symtab)
	case *SeqStatement:
		for _, inner := range st.Stmts {
			if err := foldStatement(inner, symtab); err != nil {
				return err
			}
		}
		return nil
	case *CallStatement:
		return foldExpr(st.Call, symtab)
	case *AssignStatement:
		if st.Lhs.Index != nil {
			if err := foldExpr(st.Lhs.Index, symtab); err != nil {
				return err
			}
		}
		return foldExpr(st.Rhs, symtab)
	default:
		return nil
	}
}

// foldExpr folds e's children first (post-order), then e itself.
func foldExpr(e Expr, symtab *SymbolTable) error {
	switch ex := e.(type) {
	case *NumberExpr:
		ex.SetConst(ex.Value)

	case *BooleanExpr:
		if ex.Value {
			ex.SetConst(1)
		} else {
			ex.SetConst(0)
		}

	case *StringExpr:
		// Strings do not fold to a scalar constant.

	case *VarRefExpr:
		if sym, ok := symtab.Lookup(ex.Name); ok && sym.Kind == SymVal && sym.ValDecl != nil {
			if v, ok := sym.ValDecl.Expr.Const(); ok {
				ex.SetConst(v)
			}
		}

	case *ArraySubscriptExpr:
		return foldExpr(ex.Index, symtab)

	case *CallExpr:
		for _, a := range ex.Args {
			if err := foldExpr(a, symtab); err != nil {
				return err
			}
		}
		// An identifier-led call whose name resolves to a constant-valued
		// val is the corpus's standard way of invoking a syscall by name
		// (val put = 1; ...; put(...)), per spec.md §8 scenario (e) and
		// original_source/tests/unit/x_features.cpp. Resolve it here,
		// before codegen, so genCallExprValue never falls through to
		// genUserCall for a name that names no Proc/Func.
		if !ex.IsSyscall && ex.Name != "" {
			if sym, ok := symtab.Lookup(ex.Name); ok && sym.Kind == SymVal && sym.ValDecl != nil {
				if v, ok := sym.ValDecl.Expr.Const(); ok {
					ex.Target = v
					ex.IsSyscall = true
					ex.Name = ""
				}
			}
		}

	case *UnaryOpExpr:
		if err := foldExpr(ex.Expr, symtab); err != nil {
			return err
		}
		if v, ok := ex.Expr.Const(); ok {
			switch ex.Op {
			case OpNeg:
				ex.SetConst(-v)
			case OpComplement:
				// Correct semantics per spec.md §4.D: bitwise complement,
				// which also serves as logical not given the 0/non-zero
				// convention. The reference implementation's constant
				// folder has two fallthrough case arms here that silently
				// miscompute this; that bug is intentionally not
				// replicated.
				ex.SetConst(^v)
			}
		}

	case *BinaryOpExpr:
		if err := foldExpr(ex.Left, symtab); err != nil {
			return err
		}
		if err := foldExpr(ex.Right, symtab); err != nil {
			return err
		}
		l, lok := ex.Left.Const()
		r, rok := ex.Right.Const()
		if lok && rok {
			ex.SetConst(foldBinOp(ex.Op, l, r))
		}
	}
	return nil
}

func foldBinOp(op BinOp, l, r int64) int64 {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpOr:
		return l | r
	case OpAnd:
		return l & r
	case OpEq:
		return boolInt(l == r)
	case OpNeq:
		return boolInt(l != r)
	case OpLt:
		return boolInt(l < r)
	case OpLe:
		return boolInt(l <= r)
	case OpGt:
		return boolInt(l > r)
	case OpGe:
		return boolInt(l >= r)
	default:
		return 0
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
