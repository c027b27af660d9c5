package xlang

// SymbolKind discriminates what a name is bound to.
type SymbolKind int

const (
	SymVal SymbolKind = iota
	SymVar
	SymArray
	SymFunc
	SymProc
)

// Scope discriminates where a binding lives.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLocal
)

// Symbol is one name binding.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Scope   Scope
	ValDecl *ValDecl // set when Kind == SymVal, for constant-folding lookups
}

// SymbolTable resolves names to their innermost visible binding. It is a
// two-scope design per spec.md §4.D: a flat global map plus a local map
// that is populated on entering a Proc body and cleared on leaving it —
// shadowing works because a local insert temporarily overrides a global
// of the same name, then the global reappears once the local scope pops.
type SymbolTable struct {
	global map[string]*Symbol
	local  map[string]*Symbol
}

// NewSymbolTable constructs an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{global: map[string]*Symbol{}, local: map[string]*Symbol{}}
}

// DefineGlobal inserts a global-scope binding.
func (t *SymbolTable) DefineGlobal(s *Symbol) {
	s.Scope = ScopeGlobal
	t.global[s.Name] = s
}

// EnterLocal starts a fresh local scope, discarding any previous one.
func (t *SymbolTable) EnterLocal() {
	t.local = map[string]*Symbol{}
}

// DefineLocal inserts a local-scope binding, visible for lookups until
// ExitLocal is called.
func (t *SymbolTable) DefineLocal(s *Symbol) {
	s.Scope = ScopeLocal
	t.local[s.Name] = s
}

// ExitLocal discards the current local scope.
func (t *SymbolTable) ExitLocal() {
	t.local = map[string]*Symbol{}
}

// Lookup returns the innermost visible binding for name: local scope
// shadows global.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	if s, ok := t.local[name]; ok {
		return s, true
	}
	s, ok := t.global[name]
	return s, ok
}

// BuildSymbolTable populates a SymbolTable's global scope from a
// Program's top-level declarations and procedure/function names. Proc
// bodies are not visited here; callers (constant folding, code
// generation) enter/exit local scope themselves as they walk each Proc.
func BuildSymbolTable(prog *Program) (*SymbolTable, error) {
	t := NewSymbolTable()
	for _, d := range prog.Globals {
		sym, err := symbolForDecl(d)
		if err != nil {
			return nil, err
		}
		t.DefineGlobal(sym)
	}
	for i := range prog.Procs {
		pr := &prog.Procs[i]
		kind := SymProc
		if pr.IsFunc {
			kind = SymFunc
		}
		t.DefineGlobal(&Symbol{Name: pr.Name, Kind: kind})
	}
	return t, nil
}

func symbolForDecl(d Decl) (*Symbol, error) {
	switch dd := d.(type) {
	case *ValDecl:
		return &Symbol{Name: dd.Name, Kind: SymVal, ValDecl: dd}, nil
	case *VarDecl:
		return &Symbol{Name: dd.Name, Kind: SymVar}, nil
	case *ArrayDecl:
		return &Symbol{Name: dd.Name, Kind: SymArray}, nil
	default:
		return nil, &UnknownSymbolError{Name: "<decl>"}
	}
}

func symbolForFormal(f Formal) *Symbol {
	switch f.Kind {
	case FormalVal:
		return &Symbol{Name: f.Name, Kind: SymVal}
	case FormalArray:
		return &Symbol{Name: f.Name, Kind: SymArray}
	case FormalProc:
		return &Symbol{Name: f.Name, Kind: SymProc}
	default:
		return &Symbol{Name: f.Name, Kind: SymFunc}
	}
}
