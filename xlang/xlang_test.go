package xlang

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/hexlang/hex/asm"
	"github.com/hexlang/hex/vm"
)

func compileOrFatal(t *testing.T, src string) []byte {
	t.Helper()
	_, directives, err := Compile([]byte(src))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	directives, _, err = asm.Resolve(directives)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	bin, err := asm.EmitBinary(directives, false)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return bin
}

func runSource(t *testing.T, src string, stdin string) (*vm.Processor, string) {
	t.Helper()
	bin := compileOrFatal(t, src)
	var out bytes.Buffer
	p := vm.NewProcessor(vm.NewIO(strings.NewReader(stdin), &out, t.TempDir()))
	if err := p.Load(bin); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return p, out.String()
}

func TestExitZero(t *testing.T) {
	p, _ := runSource(t, `
proc main () is
  stop
`, "")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
}

func TestExit255ViaSyscall(t *testing.T) {
	p, _ := runSource(t, `
proc main () is
  0(255)
`, "")
	if p.ExitCode != 255 {
		t.Fatalf("exit code = %d, want 255", p.ExitCode)
	}
}

func TestHelloProgram(t *testing.T) {
	p, out := runSource(t, `
proc main () is
  { 1('h', 0) ; 1('i', 0) ; 0(0) }
`, "")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "hi" {
		t.Fatalf("output = %q, want %q", out, "hi")
	}
}

func TestEchoByte(t *testing.T) {
	p, out := runSource(t, `
var c;
proc main () is
  { c := 2(0) ; 1(c, 0) ; 0(0) }
`, "A")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "A" {
		t.Fatalf("output = %q, want %q", out, "A")
	}
}

// Named-syscall idiom: "val put = 1; val get = 2; ...; put(get(255), 0)"
// invokes the WRITE/READ syscalls through a constant-valued val rather
// than a bare numeric literal. This is the original test corpus's
// standard way of calling syscalls (see
// original_source/tests/unit/x_features.cpp) and is spec.md §8's
// mandatory scenario (e).
func TestNamedSyscallEcho(t *testing.T) {
	p, out := runSource(t, `
val put = 1; val get = 2;
proc main () is { put(get(255), 0); put(get(255), 0); put(get(255), 0); 0(0) }
`, "abc")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "abc" {
		t.Fatalf("output = %q, want %q", out, "abc")
	}
}

// Subtraction is evaluated right-then-left, so the subtrahend's side
// effects happen before the minuend's; here the result itself (rather
// than evaluation order) is checked via the program's exit code.
func TestSubtractionValue(t *testing.T) {
	p, _ := runSource(t, `
proc main () is
  0(9 - 5)
`, "")
	if p.ExitCode != 4 {
		t.Fatalf("exit code = %d, want 4", p.ExitCode)
	}
}

func TestFibonacciRecursive(t *testing.T) {
	p, _ := runSource(t, `
func fib (val n) is
  if n = 0 then
    return 0
  else
    if n = 1 then
      return 1
    else
      return fib(n - 1) + fib(n - 2)

proc main () is
  0(fib(6))
`, "")
	if p.ExitCode != 8 {
		t.Fatalf("exit code = %d, want 8", p.ExitCode)
	}
}

// The X language has no multiply primitive (only +/-), so fac is built
// on a repeated-addition mul helper, recursively calling itself through
// an argument position of another call (mul(n, fac(n-1))) — this
// exercises the call/return and temp-slot-spill machinery across
// doubly-nested recursion, per spec.md §8 scenario (g).
func TestFactorialRecursive(t *testing.T) {
	const src = `
func mul (val a, val b) is
  var result;
  var i;
  {
    result := 0 ;
    i := 0 ;
    while i < b do
      {
        result := result + a ;
        i := i + 1
      } ;
    return result
  }

func fac (val n) is
  if n = 0 then
    return 1
  else
    return mul(n, fac(n - 1))

proc main () is
  0(fac(%d))
`
	cases := []struct {
		n, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 6},
		{4, 24},
		{5, 120},
	}
	for _, c := range cases {
		p, _ := runSource(t, fmt.Sprintf(src, c.n), "")
		if int(p.ExitCode) != c.want {
			t.Fatalf("fac(%d): exit code = %d, want %d", c.n, p.ExitCode, c.want)
		}
	}
}

func TestGlobalArray(t *testing.T) {
	p, out := runSource(t, `
array a[4];
proc main () is
  var i;
  {
    i := 0 ;
    while i < 4 do
      {
        a[i] := i + 48 ;
        i := i + 1
      } ;
    i := 0 ;
    while i < 4 do
      {
        1(a[i], 0) ;
        i := i + 1
      }
  }
`, "")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "0123" {
		t.Fatalf("output = %q, want %q", out, "0123")
	}
}

func TestArrayByReference(t *testing.T) {
	p, out := runSource(t, `
array a[3];

proc fill (array b, val n) is
  var i;
  {
    i := 0 ;
    while i < n do
      {
        b[i] := 65 + i ;
        i := i + 1
      }
  }

proc main () is
  var i;
  {
    fill(a, 3) ;
    i := 0 ;
    while i < 3 do
      {
        1(a[i], 0) ;
        i := i + 1
      }
  }
`, "")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "ABC" {
		t.Fatalf("output = %q, want %q", out, "ABC")
	}
}

func TestLogicalOrAnd(t *testing.T) {
	p, out := runSource(t, `
var x;
var y;
proc main () is
  {
    x := 1 ;
    y := 0 ;
    if (x or y) and (x and x) then
      1('Y', 0)
    else
      1('N', 0)
  }
`, "")
	if p.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", p.ExitCode)
	}
	if out != "Y" {
		t.Fatalf("output = %q, want %q", out, "Y")
	}
}

func TestComparisonOperators(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"3 = 3", "Y"},
		{"3 ~= 4", "Y"},
		{"2 < 3", "Y"},
		{"3 <= 3", "Y"},
		{"4 > 3", "Y"},
		{"3 >= 3", "Y"},
		{"3 = 4", "N"},
		{"3 < 2", "N"},
	}
	for _, c := range cases {
		src := `
proc main () is
  if ` + c.expr + ` then
    1('Y', 0)
  else
    1('N', 0)
`
		p, out := runSource(t, src, "")
		if p.ExitCode != 0 {
			t.Fatalf("%s: exit code = %d, want 0", c.expr, p.ExitCode)
		}
		if out != c.want {
			t.Fatalf("%s: output = %q, want %q", c.expr, out, c.want)
		}
	}
}

func TestValConstantFolding(t *testing.T) {
	p, _ := runSource(t, `
val n = 2 + 3;
proc main () is
  0(n)
`, "")
	if p.ExitCode != 5 {
		t.Fatalf("exit code = %d, want 5", p.ExitCode)
	}
}

func TestUnknownSymbolError(t *testing.T) {
	_, _, err := Compile([]byte(`
proc main () is
  1(0, missing)
`))
	if err == nil {
		t.Fatal("expected an error for an undeclared identifier")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected an unknown-symbol error mentioning %q, got: %v", "missing", err)
	}
}
