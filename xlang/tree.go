package xlang

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// TreeTemplate renders the header shown above a --tree AST dump, in the
// same text/template idiom the assembler package uses for its listing
// header.
var TreeTemplate = `\ ----------------------------------------------------------------------------
\ xc syntax tree
\ {{ .Globals }} globals, {{ .Procs }} procedures
\ ----------------------------------------------------------------------------
`

// WriteTree renders prog as an indented syntax tree to w.
func WriteTree(prog *Program, w io.Writer) error {
	t, err := template.New("tree").Parse(TreeTemplate)
	if err != nil {
		return err
	}
	if err := t.Execute(w, struct{ Globals, Procs int }{len(prog.Globals), len(prog.Procs)}); err != nil {
		return err
	}
	for _, d := range prog.Globals {
		writeDecl(w, d, 0)
	}
	for i := range prog.Procs {
		writeProc(w, &prog.Procs[i], 0)
	}
	return nil
}

func indent(n int) string { return strings.Repeat("  ", n) }

func writeDecl(w io.Writer, d Decl, depth int) {
	switch dd := d.(type) {
	case *ValDecl:
		fmt.Fprintf(w, "%sval %s\n", indent(depth), dd.Name)
		writeExpr(w, dd.Expr, depth+1)
	case *VarDecl:
		fmt.Fprintf(w, "%svar %s\n", indent(depth), dd.Name)
	case *ArrayDecl:
		fmt.Fprintf(w, "%sarray %s[%d]\n", indent(depth), dd.Name, dd.Length)
	default:
		fmt.Fprintf(w, "%s<decl>\n", indent(depth))
	}
}

func writeProc(w io.Writer, pr *Proc, depth int) {
	kind := "proc"
	if pr.IsFunc {
		kind = "func"
	}
	names := make([]string, len(pr.Formals))
	for i, f := range pr.Formals {
		names[i] = f.Name
	}
	fmt.Fprintf(w, "%s%s %s(%s)\n", indent(depth), kind, pr.Name, strings.Join(names, ", "))
	for _, d := range pr.Locals {
		writeDecl(w, d, depth+1)
	}
	writeStatement(w, pr.Body, depth+1)
}

func writeStatement(w io.Writer, s Statement, depth int) {
	pad := indent(depth)
	switch st := s.(type) {
	case *SkipStatement:
		fmt.Fprintf(w, "%sskip\n", pad)
	case *StopStatement:
		fmt.Fprintf(w, "%sstop\n", pad)
	case *ReturnStatement:
		fmt.Fprintf(w, "%sreturn\n", pad)
		writeExpr(w, st.Expr, depth+1)
	case *IfStatement:
		fmt.Fprintf(w, "%sif\n", pad)
		writeExpr(w, st.Cond, depth+1)
		writeStatement(w, st.Then, depth+1)
		writeStatement(w, st.Else, depth+1)
	case *WhileStatement:
		fmt.Fprintf(w, "%swhile\n", pad)
		writeExpr(w, st.Cond, depth+1)
		writeStatement(w, st.Body, depth+1)
	case *SeqStatement:
		fmt.Fprintf(w, "%sseq\n", pad)
		for _, inner := range st.Stmts {
			writeStatement(w, inner, depth+1)
		}
	case *CallStatement:
		writeExpr(w, st.Call, depth)
	case *AssignStatement:
		fmt.Fprintf(w, "%s:=\n", pad)
		if st.Lhs.Index != nil {
			fmt.Fprintf(w, "%s%s[\n", indent(depth+1), st.Lhs.Name)
			writeExpr(w, st.Lhs.Index, depth+2)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent(depth+1), st.Lhs.Name)
		}
		writeExpr(w, st.Rhs, depth+1)
	default:
		fmt.Fprintf(w, "%s<statement>\n", pad)
	}
}

func writeExpr(w io.Writer, e Expr, depth int) {
	pad := indent(depth)
	if v, ok := e.Const(); ok {
		fmt.Fprintf(w, "%s%d (const)\n", pad, v)
		return
	}
	switch ex := e.(type) {
	case *NumberExpr:
		fmt.Fprintf(w, "%s%d\n", pad, ex.Value)
	case *BooleanExpr:
		fmt.Fprintf(w, "%s%v\n", pad, ex.Value)
	case *StringExpr:
		fmt.Fprintf(w, "%s%q\n", pad, ex.Bytes)
	case *VarRefExpr:
		fmt.Fprintf(w, "%s%s\n", pad, ex.Name)
	case *ArraySubscriptExpr:
		fmt.Fprintf(w, "%s%s[\n", pad, ex.Name)
		writeExpr(w, ex.Index, depth+1)
	case *CallExpr:
		if ex.IsSyscall {
			fmt.Fprintf(w, "%s%d(\n", pad, ex.Target)
		} else {
			fmt.Fprintf(w, "%s%s(\n", pad, ex.Name)
		}
		for _, a := range ex.Args {
			writeExpr(w, a, depth+1)
		}
	case *UnaryOpExpr:
		fmt.Fprintf(w, "%s%s\n", pad, ex.Op)
		writeExpr(w, ex.Expr, depth+1)
	case *BinaryOpExpr:
		fmt.Fprintf(w, "%s%s\n", pad, ex.Op)
		writeExpr(w, ex.Left, depth+1)
		writeExpr(w, ex.Right, depth+1)
	default:
		fmt.Fprintf(w, "%s<expr>\n", pad)
	}
}
