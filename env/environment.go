// Package env implements the compile-time lexical environment. An
// Environment is an immutable chain of frames; extending one never
// changes the original, so an environment can be captured and reused by
// any number of child scopes.
package env

import "lispc/types"

// Namespace selects one of the independently scoped name spaces.
type Namespace int

const (
	Variables Namespace = iota
	Functions
	Blocks
	Tags
	numNamespaces
)

func (ns Namespace) String() string {
	switch ns {
	case Variables:
		return "variable"
	case Functions:
		return "function"
	case Blocks:
		return "block"
	case Tags:
		return "tag"
	}
	return "unknown"
}

// Binding is what a name resolves to. The concrete types below are the
// only implementations.
type Binding interface {
	Namespace() Namespace
	binding()
}

// Expander rewrites a macro call. It receives the whole form and the
// environment of the call site.
type Expander func(form types.Value, e *Environment) (types.Value, error)

// Variable is a lexical variable held in a target identifier.
type Variable struct {
	Ident string
}

// Constant is a variable with a compile-time value. References fold to
// the literal; assignment is an error.
type Constant struct {
	Value types.Value
}

// Special is a dynamically scoped variable, always accessed through the
// runtime's global storage.
type Special struct{}

// SymbolMacro replaces references to the name with Expansion.
type SymbolMacro struct {
	Expansion types.Value
}

// Function is a local function held in a target identifier.
type Function struct {
	Ident string
}

// Macro is a local or global macro.
type Macro struct {
	Expand Expander
}

// Block is an escape point for return-from. Token is the catch tag the
// block establishes.
type Block struct {
	Token types.Symbol
}

// Tag is a go target inside a tagbody. Token is the tagbody's catch tag;
// Index selects the segment to resume at.
type Tag struct {
	Token types.Symbol
	Index int
}

func (Variable) Namespace() Namespace    { return Variables }
func (Constant) Namespace() Namespace    { return Variables }
func (Special) Namespace() Namespace     { return Variables }
func (SymbolMacro) Namespace() Namespace { return Variables }
func (Function) Namespace() Namespace    { return Functions }
func (Macro) Namespace() Namespace       { return Functions }
func (Block) Namespace() Namespace       { return Blocks }
func (Tag) Namespace() Namespace         { return Tags }

func (Variable) binding()    {}
func (Constant) binding()    {}
func (Special) binding()     {}
func (SymbolMacro) binding() {}
func (Function) binding()    {}
func (Macro) binding()       {}
func (Block) binding()       {}
func (Tag) binding()         {}

// Frame is a set of bindings added together. Each binding goes to its own
// namespace.
type Frame map[types.Symbol]Binding

// Environment is one link of the scope chain. The nil *Environment is the
// empty environment.
type Environment struct {
	names  [numNamespaces]map[types.Symbol]Binding
	parent *Environment
	depth  int
}

// Root returns the global environment, which binds the constants nil and
// t.
func Root() *Environment {
	return Extend(nil, Frame{
		types.NilSym: Constant{Value: types.NilSym},
		types.TSym:   Constant{Value: types.TSym},
	})
}

// Extend returns a child of parent holding the bindings of frames. Later
// frames override earlier ones for the same name and namespace.
func Extend(parent *Environment, frames ...Frame) *Environment {
	e := &Environment{parent: parent}
	if parent != nil {
		e.depth = parent.depth + 1
	}
	for _, f := range frames {
		for name, b := range f {
			ns := b.Namespace()
			if e.names[ns] == nil {
				e.names[ns] = make(map[types.Symbol]Binding)
			}
			e.names[ns][name] = b
		}
	}
	return e
}

// Bind is Extend with a single binding.
func (e *Environment) Bind(name types.Symbol, b Binding) *Environment {
	return Extend(e, Frame{name: b})
}

// Lookup resolves name in namespace ns, innermost binding first.
func (e *Environment) Lookup(ns Namespace, name types.Symbol) (Binding, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if b, ok := cur.names[ns][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Variable resolves name in the variable namespace.
func (e *Environment) Variable(name types.Symbol) (Binding, bool) {
	return e.Lookup(Variables, name)
}

// Function resolves name in the function namespace.
func (e *Environment) Function(name types.Symbol) (Binding, bool) {
	return e.Lookup(Functions, name)
}

// Depth returns the number of links above the empty environment.
func (e *Environment) Depth() int {
	if e == nil {
		return 0
	}
	return e.depth + 1
}

// Each calls fn for every visible binding of ns, innermost first.
// Shadowed bindings are skipped.
func (e *Environment) Each(ns Namespace, fn func(types.Symbol, Binding)) {
	seen := make(map[types.Symbol]bool)
	for cur := e; cur != nil; cur = cur.parent {
		for name, b := range cur.names[ns] {
			if seen[name] {
				continue
			}
			seen[name] = true
			fn(name, b)
		}
	}
}

// Idents returns the target identifiers of every visible lexical variable
// and local function.
func (e *Environment) Idents() map[string]bool {
	out := make(map[string]bool)
	e.Each(Variables, func(_ types.Symbol, b Binding) {
		if v, ok := b.(Variable); ok {
			out[v.Ident] = true
		}
	})
	e.Each(Functions, func(_ types.Symbol, b Binding) {
		if f, ok := b.(Function); ok {
			out[f.Ident] = true
		}
	})
	return out
}
