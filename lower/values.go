package lower

import (
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

// Multiple values. A form producing other than one value in tail position
// returns rt.values(...); everywhere else only the primary value is kept.
// Where the count of values is unknown at compile time the runtime
// helpers rt.nth_value and rt.mv_list take them apart.

type valuesOp struct{ base }

func (o valuesOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	args := m.List("arg")
	if c.Tail && (len(args) != 1 || c.NValues(args[0]) != 1) {
		prologue, vals, err := c.lowerArgs(args)
		if err != nil {
			return nil, err
		}
		return &Lowered{Prologue: prologue, Value: ir.CallRT("values", vals...)}, nil
	}
	v, _ := o.NthValue(c, m, 0)
	return rewrite(v), nil
}

func (valuesOp) NValues(_ Context, m match.Bindings) int {
	return len(m.List("arg"))
}

// NthValue evaluates every argument in order and yields the nth.
func (valuesOp) NthValue(_ Context, m match.Bindings, n int) (types.Value, bool) {
	args := m.List("arg")
	if n >= len(args) {
		return prepend(symProgn, append(append([]types.Value(nil), args...), types.NilSym)), true
	}
	v := args[n]
	if rest := args[n+1:]; len(rest) > 0 {
		v = prepend(symProg1, append([]types.Value{v}, rest...))
	}
	return progn(append(append([]types.Value(nil), args[:n]...), v)), true
}

func (valuesOp) Effects(c Context, m match.Bindings) bool {
	return anyForm(m.List("arg"), c.Effects)
}

func (valuesOp) Affected(c Context, m match.Bindings) bool {
	return anyForm(m.List("arg"), c.Affected)
}

type nthValueOp struct{ base }

func (nthValueOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	n := m.Get("n").(types.IntValue)
	form := m.Get("form")
	if v, ok := c.NthValue(form, int(n.Val)); ok {
		return rewrite(v), nil
	}
	if _, _, ok := c.operator(form); ok {
		form = list(symFuncall, lambdaForm(types.Nil, form))
	}
	l, err := c.Value().Lower(form)
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: l.Prologue, Value: ir.CallRT("nth_value", ir.Const(n), l.Value)}, nil
}

func (nthValueOp) NValues(Context, match.Bindings) int { return 1 }

func (nthValueOp) Effects(c Context, m match.Bindings) bool  { return c.Effects(m.Get("form")) }
func (nthValueOp) Affected(c Context, m match.Bindings) bool { return c.Affected(m.Get("form")) }

type multipleValueCallOp struct{ base }

// spliced returns the forms whose primary values are the values of arg,
// when the count is known.
func spliced(c Context, arg types.Value) ([]types.Value, bool) {
	if op, m, ok := c.operator(arg); ok && op.Name() == "values" {
		return m.List("arg"), true
	}
	if c.NValues(arg) == 1 {
		return []types.Value{arg}, true
	}
	return nil, false
}

func (multipleValueCallOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	fn, args := m.Get("function"), m.List("arg")

	// A single conditional argument: call in each branch.
	if len(args) == 1 {
		if _, ok := spliced(c, args[0]); !ok {
			if op, ib, ok := c.operator(args[0]); ok && op.Name() == "if" {
				test, then, els := ifParts(ib)
				g := types.Gensym("fn")
				return rewrite(list(symLet, list(list(g, fn)),
					list(symIf, test, list(symMultipleValues, g, then), list(symMultipleValues, g, els)))), nil
			}
		}
	}

	var forms []types.Value
	var star []bool
	known := true
	for _, a := range args {
		if s, ok := spliced(c, a); ok {
			forms = append(forms, s...)
			star = append(star, make([]bool, len(s))...)
			continue
		}
		known = false
		// Only a function returns all the values of a form that is not
		// in tail position.
		if _, _, ok := c.operator(a); ok {
			a = list(symFuncall, lambdaForm(types.Nil, a))
		}
		forms = append(forms, a)
		star = append(star, true)
	}
	if known {
		return rewrite(prepend(symFuncall, append([]types.Value{fn}, forms...))), nil
	}

	prologue, f, vals, err := c.callee(fn, forms)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if star[i] {
			vals[i] = ir.Starred(ir.CallRT("mv_list", v))
		}
	}
	return &Lowered{Prologue: prologue, Value: ir.Call(f, vals...)}, nil
}

type prog1Op struct{ base }

func (prog1Op) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	first := m.Get("first")
	f, err := c.Value().Lower(first)
	if err != nil {
		return nil, err
	}
	v := f.Value
	if c.Tail && c.NValues(first) != 1 {
		v = ir.CallRT("nth_value", ir.Const(types.NewInt(0)), v)
	}
	rest, err := c.forEffect(m.List("form"))
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return &Lowered{Prologue: f.Prologue, Value: v}, nil
	}
	prologue := f.Prologue
	if !ir.IsKind(v, "Const") && !ir.IsKind(v, "Lambda") && (!isPure(v) || c.Affected(first)) {
		tmp := c.Temp("first")
		prologue = append(prologue, ir.Assign(ir.Name(tmp), v))
		v = ir.Name(tmp)
	}
	return &Lowered{Prologue: append(prologue, rest...), Value: v}, nil
}

func (prog1Op) NValues(Context, match.Bindings) int { return 1 }

func (prog1Op) Effects(c Context, m match.Bindings) bool {
	return c.Effects(m.Get("first")) || anyForm(m.List("form"), c.Effects)
}

func (prog1Op) Affected(c Context, m match.Bindings) bool {
	return c.Affected(m.Get("first"))
}
