package lower

import (
	"lispc/env"
	"lispc/expand"
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

// constant returns the compile-time value of form, if it has one.
func (c Context) constant(form types.Value) (types.Value, bool) {
	switch f := form.(type) {
	case types.Symbol:
		if f.IsKeyword() {
			return f, true
		}
		if b, ok := c.Env.Variable(f); ok {
			if k, ok := b.(env.Constant); ok {
				return k.Value, true
			}
		}
		return nil, false
	case types.List:
		if f.Len() == 0 {
			return types.NilSym, true
		}
		if f.Len() == 2 && f.At(0) == symQuote {
			return f.At(1), true
		}
		return nil, false
	}
	return form, true
}

type quoteOp struct{ base }

func (quoteOp) Lower(_ Context, m match.Bindings, _ types.List) (Result, error) {
	return value(ir.Const(m.Get("datum"))), nil
}

func (quoteOp) NValues(Context, match.Bindings) int   { return 1 }
func (quoteOp) Effects(Context, match.Bindings) bool  { return false }
func (quoteOp) Affected(Context, match.Bindings) bool { return false }

type prognOp struct{ base }

func (prognOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	forms := m.List("form")
	switch len(forms) {
	case 0:
		return value(ir.Nil()), nil
	case 1:
		return rewrite(forms[0]), nil
	}
	prologue, err := c.forEffect(forms[:len(forms)-1])
	if err != nil {
		return nil, err
	}
	last, err := c.Last().Lower(forms[len(forms)-1])
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: append(prologue, last.Prologue...), Value: last.Value}, nil
}

func (prognOp) NValues(c Context, m match.Bindings) int {
	forms := m.List("form")
	if len(forms) == 0 {
		return 1
	}
	return c.NValues(forms[len(forms)-1])
}

func (prognOp) NthValue(c Context, m match.Bindings, n int) (types.Value, bool) {
	forms := m.List("form")
	if len(forms) == 0 {
		return nil, false
	}
	v, ok := c.NthValue(forms[len(forms)-1], n)
	if !ok {
		return nil, false
	}
	return progn(append(append([]types.Value(nil), forms[:len(forms)-1]...), v)), true
}

func (prognOp) Effects(c Context, m match.Bindings) bool {
	return anyForm(m.List("form"), c.Effects)
}

func (prognOp) Affected(c Context, m match.Bindings) bool {
	return anyForm(m.List("form"), c.Affected)
}

type ifOp struct{ base }

func ifParts(m match.Bindings) (test, then, els types.Value) {
	els = m.Get("else")
	if els == nil {
		els = types.NilSym
	}
	return m.Get("test"), m.Get("then"), els
}

// truth converts a lowered test to a target boolean.
func truth(v types.Value) types.Value {
	if ir.IsKind(v, "IfExp") {
		l := v.(types.List)
		if l.At(2).Equal(ir.Const(types.TSym)) && l.At(3).Equal(ir.Nil()) {
			return l.At(1)
		}
	}
	return ir.Truth(v)
}

func (ifOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	test, then, els := ifParts(m)
	if v, ok := c.constant(test); ok {
		if v.Truthy() {
			return rewrite(then), nil
		}
		return rewrite(els), nil
	}
	t, err := c.Value().Lower(test)
	if err != nil {
		return nil, err
	}
	a, err := c.Last().Lower(then)
	if err != nil {
		return nil, err
	}
	b, err := c.Last().Lower(els)
	if err != nil {
		return nil, err
	}
	cond := truth(t.Value)
	prologue := t.Prologue

	if a.Value != nil && b.Value != nil && hoistable(a.Prologue) && hoistable(b.Prologue) {
		prologue = append(append(prologue, a.Prologue...), b.Prologue...)
		return &Lowered{Prologue: prologue, Value: ir.IfExp(cond, a.Value, b.Value)}, nil
	}
	if c.Tail {
		return &Lowered{Prologue: append(prologue, ir.If(cond, returning(a), returning(b)))}, nil
	}

	// Branches needing statements become functions of no arguments, and
	// the conditional selects which one to call:
	// (funcall (if test (lambda () A) (lambda () B))).
	c.s.lw.tracer.Rewrite("if", form, list(symFuncall, list(symIf, test, lambdaForm(types.Nil, then), lambdaForm(types.Nil, els))))
	fa, pa, err := c.thunk(a)
	if err != nil {
		return nil, err
	}
	fb, pb, err := c.thunk(b)
	if err != nil {
		return nil, err
	}
	prologue = append(append(prologue, pa...), pb...)
	return &Lowered{Prologue: prologue, Value: ir.Call(ir.IfExp(cond, fa, fb))}, nil
}

// returning turns a tail result into statements that return it.
func returning(l *Lowered) []types.Value {
	out := append([]types.Value(nil), l.Prologue...)
	if l.Value != nil {
		out = append(out, ir.Return(l.Value))
	}
	return out
}

func (ifOp) NValues(c Context, m match.Bindings) int {
	_, then, els := ifParts(m)
	if n := c.NValues(then); n == c.NValues(els) {
		return n
	}
	return -1
}

func (ifOp) NthValue(c Context, m match.Bindings, n int) (types.Value, bool) {
	test, then, els := ifParts(m)
	a, ok := c.NthValue(then, n)
	if !ok {
		return nil, false
	}
	b, ok := c.NthValue(els, n)
	if !ok {
		return nil, false
	}
	return list(symIf, test, a, b), true
}

func (ifOp) Effects(c Context, m match.Bindings) bool {
	test, then, els := ifParts(m)
	return anyForm([]types.Value{test, then, els}, c.Effects)
}

func (ifOp) Affected(c Context, m match.Bindings) bool {
	test, then, els := ifParts(m)
	return anyForm([]types.Value{test, then, els}, c.Affected)
}

type theOp struct{ base }

func (theOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	return &Rewrite{Form: m.Get("form"), Extra: c.Extra()}, nil
}

func (theOp) NValues(c Context, m match.Bindings) int { return c.NValues(m.Get("form")) }
func (theOp) NthValue(c Context, m match.Bindings, n int) (types.Value, bool) {
	return c.NthValue(m.Get("form"), n)
}
func (theOp) Effects(c Context, m match.Bindings) bool  { return c.Effects(m.Get("form")) }
func (theOp) Affected(c Context, m match.Bindings) bool { return c.Affected(m.Get("form")) }

type locallyOp struct{ base }

func (locallyOp) Lower(_ Context, m match.Bindings, _ types.List) (Result, error) {
	return rewrite(prepend(symProgn, expand.StripDeclarations(m.List("body")))), nil
}

func (locallyOp) NValues(c Context, m match.Bindings) int {
	return c.NValues(prepend(symProgn, expand.StripDeclarations(m.List("body"))))
}

func (locallyOp) Effects(c Context, m match.Bindings) bool {
	return anyForm(expand.StripDeclarations(m.List("body")), c.Effects)
}

type evalWhenOp struct{ base }

func (evalWhenOp) Lower(_ Context, m match.Bindings, _ types.List) (Result, error) {
	if !expand.LoadTime(m.Get("situations")) {
		return value(ir.Nil()), nil
	}
	return rewrite(prepend(symProgn, m.List("body"))), nil
}

// eqlOp compares two values for identity, producing t or nil. It is used
// by the code generated for tagbody and labels dispatch.
type eqlOp struct{ base }

func (eqlOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	prologue, vals, err := c.lowerArgs([]types.Value{m.Get("left"), m.Get("right")})
	if err != nil {
		return nil, err
	}
	cmp := ir.Compare("==", vals[0], vals[1])
	return &Lowered{Prologue: prologue, Value: ir.IfExp(cmp, ir.Const(types.TSym), ir.Nil())}, nil
}

func (eqlOp) NValues(Context, match.Bindings) int { return 1 }

func (eqlOp) Effects(c Context, m match.Bindings) bool {
	return c.Effects(m.Get("left")) || c.Effects(m.Get("right"))
}

func (eqlOp) Affected(c Context, m match.Bindings) bool {
	return c.Affected(m.Get("left")) || c.Affected(m.Get("right"))
}
