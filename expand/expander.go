// Package expand performs macroexpansion: the desugaring of backquote
// templates, the expansion of macro calls to a fixed point, and the code
// walk that expands every macro call inside special forms while tracking
// which names are shadowed by local bindings.
package expand

import (
	"lispc/env"
	"lispc/match"
	"lispc/metasex"
	"lispc/trace"
	"lispc/types"
)

// DefaultMaxDepth bounds nested expansion.
const DefaultMaxDepth = 200

// Expander expands macros. It holds the global built-in macros; user
// macros live in the environment passed to each call.
type Expander struct {
	macros   map[types.Symbol]env.Expander
	special  map[types.Symbol]match.Pattern
	maxDepth int
	tracer   *trace.Tracer
}

// Option configures an Expander.
type Option func(*Expander)

// WithTracer traces every expansion step to t.
func WithTracer(t *trace.Tracer) Option {
	return func(x *Expander) { x.tracer = t }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(x *Expander) {
		if n > 0 {
			x.maxDepth = n
		}
	}
}

// New returns an expander with the built-in macros installed.
func New(opts ...Option) *Expander {
	x := &Expander{
		macros:   make(map[types.Symbol]env.Expander),
		special:  make(map[types.Symbol]match.Pattern),
		maxDepth: DefaultMaxDepth,
	}
	for name := range metasex.Special {
		x.special[types.Intern(name)] = metasex.MustShape(name)
	}
	for name, fn := range builtins(x) {
		x.macros[types.Intern(name)] = fn
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Define installs a global macro.
func (x *Expander) Define(name types.Symbol, fn env.Expander) {
	x.macros[name] = fn
}

// IsSpecial reports whether name is a special operator.
func (x *Expander) IsSpecial(name types.Symbol) bool {
	_, ok := x.special[name]
	return ok
}

// IsMacro reports whether name names a macro in e.
func (x *Expander) IsMacro(name types.Symbol, e *env.Environment) bool {
	_, ok := x.macroFor(name, e)
	return ok
}

// macroFor finds the expander for a call headed by name. Local functions
// shadow global macros; special operators are never macros.
func (x *Expander) macroFor(name types.Symbol, e *env.Environment) (env.Expander, bool) {
	if b, ok := e.Function(name); ok {
		if m, ok := b.(env.Macro); ok {
			return m.Expand, true
		}
		return nil, false
	}
	if x.IsSpecial(name) {
		return nil, false
	}
	fn, ok := x.macros[name]
	return fn, ok
}

// Expand1 performs one expansion step. It reports whether form was a
// macro call or symbol macro.
func (x *Expander) Expand1(form types.Value, e *env.Environment) (types.Value, bool, error) {
	switch f := form.(type) {
	case types.Symbol:
		if b, ok := e.Variable(f); ok {
			if sm, ok := b.(env.SymbolMacro); ok {
				x.tracer.Expand(f.Name, form, sm.Expansion)
				return sm.Expansion, true, nil
			}
		}
		return form, false, nil
	case types.List:
		head, ok := types.HeadSymbol(f)
		if !ok {
			return form, false, nil
		}
		fn, ok := x.macroFor(head, e)
		if !ok {
			return form, false, nil
		}
		out, err := fn(form, e)
		if err != nil {
			return nil, false, err
		}
		x.tracer.Expand(head.Name, form, out)
		return out, true, nil
	}
	return form, false, nil
}

// Expand expands form until its head is no longer a macro.
func (x *Expander) Expand(form types.Value, e *env.Environment) (types.Value, error) {
	for i := 0; ; i++ {
		if i >= x.maxDepth {
			return nil, errorf(form, "macro expansion does not terminate")
		}
		out, expanded, err := x.Expand1(form, e)
		if err != nil {
			return nil, err
		}
		if !expanded {
			return form, nil
		}
		form = out
	}
}

// ExpandAll expands every macro call in form, including those nested in
// special forms. The result contains only special forms, function calls
// and atoms.
func (x *Expander) ExpandAll(form types.Value, e *env.Environment) (types.Value, error) {
	w := &walker{x: x}
	return w.form(form, e, 0)
}

// ExpandToplevel expands a top-level form. Definitions made by the form
// (macros, special and constant variables) are returned in a new
// environment for the forms that follow; e itself is unchanged.
func (x *Expander) ExpandToplevel(form types.Value, e *env.Environment) (types.Value, *env.Environment, error) {
	w := &walker{x: x}
	return w.toplevel(form, e)
}
