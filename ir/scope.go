package ir

import "lispc/types"

// Scope is the result of analysing one function scope.
type Scope struct {
	// Bound holds names bound in the scope: parameters, assignment
	// targets, function definitions and handler names, except those
	// declared global or nonlocal.
	Bound Names
	// Free holds names referenced in the scope, or by functions nested in
	// it, that the scope does not bind.
	Free Names
	// DeclaredOuter holds names declared global or nonlocal.
	DeclaredOuter Names
}

// External returns the names the scope needs from outside: its free names
// and its declared names.
func (s Scope) External() Names {
	return s.Free.Union(s.DeclaredOuter)
}

// BoundFree analyses node as the body of a scope. A FunctionDef or Lambda
// node is analysed as its own function scope, with its parameters bound;
// any other node is analysed as if it were the only statement of a scope.
func BoundFree(node types.Value) Scope {
	switch {
	case IsKind(node, "FunctionDef"):
		f := node.(types.List)
		return analyseFunction(f.At(2), items(f.At(3)))
	case IsKind(node, "Lambda"):
		f := node.(types.List)
		return analyseFunction(f.At(1), []types.Value{f.At(2)})
	case IsKind(node, "Module"):
		return ScopeOf(nil, items(node.(types.List).At(1)))
	}
	return ScopeOf(nil, []types.Value{node})
}

// ScopeOf analyses body as a function scope whose parameters are params.
func ScopeOf(params []string, body []types.Value) Scope {
	a := &analysis{bound: NewNames(params...), loads: NewNames(), declared: NewNames()}
	for _, n := range body {
		a.walk(n)
	}
	bound := a.bound.Minus(a.declared)
	return Scope{
		Bound:         bound,
		Free:          a.loads.Minus(bound).Minus(a.declared),
		DeclaredOuter: a.declared,
	}
}

func analyseFunction(params types.Value, body []types.Value) Scope {
	f := params.(types.List).Elements()[1:]
	names := identStrs(f[0])
	if rest := identStr(f[2]); rest != "" {
		names = append(names, rest)
	}
	return ScopeOf(names, body)
}

type analysis struct {
	bound    Names
	loads    Names
	declared Names
}

func (a *analysis) walk(n types.Value) {
	k, ok := Lookup(n)
	if !ok {
		return
	}
	l := n.(types.List)
	switch k.Name {
	case "Name":
		a.loads.Add(identStr(l.At(1)))
		return
	case "Assign":
		for _, t := range items(l.At(1)) {
			a.target(t)
		}
		a.walk(l.At(2))
		return
	case "Global", "Nonlocal":
		for _, id := range identStrs(l.At(1)) {
			a.declared.Add(id)
		}
		return
	case "FunctionDef":
		a.bound.Add(identStr(l.At(1)))
		a.nested(l.At(2), items(l.At(3)))
		return
	case "Lambda":
		a.nested(l.At(1), []types.Value{l.At(2)})
		return
	case "ExceptHandler":
		if id := identStr(l.At(2)); id != "" {
			a.bound.Add(id)
		}
	}
	for i, f := range k.Fields {
		if !f.Walk {
			continue
		}
		v := l.At(i + 1)
		switch f.Type {
		case FieldExprs, FieldStmts, FieldHandlers:
			for _, x := range items(v) {
				a.walk(x)
			}
		default:
			a.walk(v)
		}
	}
}

// target records an assignment target. Only names are bound; anything
// else is evaluated.
func (a *analysis) target(t types.Value) {
	if id, ok := IdentOf(t); ok {
		a.bound.Add(id)
		return
	}
	a.walk(t)
}

// nested analyses a function nested in the current scope. Its defaults
// are evaluated here; whatever it needs from outside is referenced here.
func (a *analysis) nested(params types.Value, body []types.Value) {
	for _, d := range items(params.(types.List).At(2)) {
		a.walk(d)
	}
	inner := analyseFunction(params, body)
	a.loads.AddAll(inner.External())
}

// Externals returns the names a function node references from outside its
// own scope.
func Externals(fn types.Value) Names {
	return BoundFree(fn).External()
}
