package lower

import (
	"lispc/env"
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

// functionRef returns the expression naming the function name: a local
// function if one is visible, else the global function, which is
// recorded as referenced.
func (c Context) functionRef(name types.Value) types.Value {
	if s, ok := name.(types.Symbol); ok {
		if b, ok := c.Env.Function(s); ok {
			if f, ok := b.(env.Function); ok {
				return ir.Name(f.Ident)
			}
		}
	}
	return c.globalFunction(name)
}

func (c Context) globalFunction(name types.Value) types.Value {
	c.s.reference(name)
	return ir.Name(ir.FunctionIdent(name))
}

// call lowers an ordinary call of the function named head.
func (c Context) call(head types.Symbol, form types.List) (Result, error) {
	fn := c.functionRef(head)
	prologue, args, err := c.lowerArgs(form.Rest().Elements())
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: prologue, Value: ir.Call(fn, args...)}, nil
}

// callee lowers the function designator of funcall or apply, followed by
// the argument forms. A quoted symbol designates the global function.
func (c Context) callee(fn types.Value, args []types.Value) ([]types.Value, types.Value, []types.Value, error) {
	if v, ok := c.constant(fn); ok {
		if s, ok := v.(types.Symbol); ok && !s.IsKeyword() {
			prologue, vals, err := c.lowerArgs(args)
			return prologue, c.globalFunction(s), vals, err
		}
	}
	f, err := c.Value().WithExtra(c.Extra()).Lower(fn)
	if err != nil {
		return nil, nil, nil, err
	}
	ls := []*Lowered{f}
	for _, a := range args {
		l, err := c.Value().Lower(a)
		if err != nil {
			return nil, nil, nil, err
		}
		ls = append(ls, l)
	}
	prologue, vals := c.sequence(append([]types.Value{fn}, args...), ls)
	return prologue, vals[0], vals[1:], nil
}

type funcallOp struct{ base }

func (funcallOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	prologue, fn, args, err := c.callee(m.Get("function"), m.List("arg"))
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: prologue, Value: ir.Call(fn, args...)}, nil
}

type applyOp struct{ base }

func (applyOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	args := append(append([]types.Value(nil), m.List("arg")...), m.Get("spread"))
	prologue, fn, vals, err := c.callee(m.Get("function"), args)
	if err != nil {
		return nil, err
	}
	last := len(vals) - 1
	vals[last] = ir.Starred(vals[last])
	return &Lowered{Prologue: prologue, Value: ir.Call(fn, vals...)}, nil
}
