package lower

import (
	"fmt"

	"lispc/env"
	"lispc/ir"
	"lispc/types"
)

// Extra carries side-channel facts from a rewriting operator to the form
// it rewrites to. It reaches only that form; subforms see a zero Extra.
type Extra struct {
	// FunctionNames makes the parameters of the function literal being
	// called bind in the function namespace instead of the variable
	// namespace. It is how flet and labels reuse let.
	FunctionNames bool
}

// Context is the immutable state threaded through one lowering call
// tree. Helpers return modified copies.
type Context struct {
	Env   *env.Environment
	Tail  bool
	extra Extra
	s     *Session
}

// WithEnv returns c with environment e.
func (c Context) WithEnv(e *env.Environment) Context {
	c.Env = e
	return c
}

// WithTail returns c with the tail flag set to tail.
func (c Context) WithTail(tail bool) Context {
	c.Tail = tail
	return c
}

// WithExtra returns c carrying x.
func (c Context) WithExtra(x Extra) Context {
	c.extra = x
	return c
}

// Extra returns the side channel set by the rewrite that produced the
// current form.
func (c Context) Extra() Extra {
	return c.extra
}

// Value returns the context for a subform whose value is consumed.
func (c Context) Value() Context {
	c.Tail = false
	c.extra = Extra{}
	return c
}

// Last returns the context for a subform in the position of the current
// form's value, keeping the tail flag.
func (c Context) Last() Context {
	c.extra = Extra{}
	return c
}

// Temp returns a fresh compiler identifier.
func (c Context) Temp(prefix string) string {
	c.s.temps++
	return fmt.Sprintf("__%s_%d", prefix, c.s.temps)
}

// Warn records a diagnostic once per name and message.
func (c Context) Warn(name types.Value, msg string) {
	c.s.warn(name, msg)
}

// Registry returns the operators known to the session.
func (c Context) Registry() *Registry {
	return c.s.lw.reg
}

// variableIdent chooses the target identifier of a lexical variable.
// Uninterned symbols get fresh identifiers so that two gensyms with the
// same name never share one.
func (c Context) variableIdent(s types.Symbol) string {
	if s.IsUninterned() {
		return c.Temp(ir.Mangle(s.Name))
	}
	return ir.SymbolIdent(s)
}

// functionIdent chooses the target identifier of a local function.
func (c Context) functionIdent(s types.Symbol) string {
	return c.Temp("lf_" + ir.Mangle(s.Name))
}
