package lower

import (
	"lispc/env"
	"lispc/expand"
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

type setqOp struct{ base }

func (setqOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	vars, vals := m.List("var"), m.List("value")
	switch len(vars) {
	case 0:
		return value(ir.Nil()), nil
	case 1:
	default:
		pairs := make([]types.Value, len(vars))
		for i := range vars {
			pairs[i] = list(symSetq, vars[i], vals[i])
		}
		return rewrite(prepend(symProgn, pairs)), nil
	}

	s := vars[0].(types.Symbol)
	b, ok := c.Env.Variable(s)
	if !ok {
		c.Warn(s, msgUndefinedVariable)
		return rewrite(list(symGlobalSet, s, vals[0])), nil
	}
	switch x := b.(type) {
	case env.Constant:
		return nil, errorf(KindSemantic, form, "cannot assign to constant %s", s)
	case env.SymbolMacro:
		if _, ok := x.Expansion.(types.Symbol); ok {
			return rewrite(list(symSetq, x.Expansion, vals[0])), nil
		}
		return nil, errorf(KindSemantic, form, "setq of symbol macro %s needs setf", s)
	case env.Variable:
		l, err := c.Value().Lower(vals[0])
		if err != nil {
			return nil, err
		}
		prologue := append(l.Prologue, ir.Assign(ir.Name(x.Ident), l.Value))
		return &Lowered{Prologue: prologue, Value: ir.Name(x.Ident)}, nil
	}
	return rewrite(list(symGlobalSet, s, vals[0])), nil
}

func (setqOp) NValues(Context, match.Bindings) int { return 1 }

type globalRefOp struct{ base }

func (globalRefOp) Lower(_ Context, m match.Bindings, _ types.List) (Result, error) {
	s, _ := m.Symbol("name")
	return value(globalRef(s)), nil
}

func (globalRefOp) NValues(Context, match.Bindings) int  { return 1 }
func (globalRefOp) Effects(Context, match.Bindings) bool { return false }

type globalSetOp struct{ base }

func (globalSetOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	s, _ := m.Symbol("name")
	l, err := c.Value().Lower(m.Get("value"))
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: l.Prologue, Value: ir.CallRT("set_symbol_value", ir.Const(s), l.Value)}, nil
}

func (globalSetOp) NValues(Context, match.Bindings) int { return 1 }

type letOp struct{ base }

// letParts returns the variables, initial values and body of a let.
func letParts(m match.Bindings) ([]types.Symbol, []types.Value, []types.Value) {
	var (
		vars  []types.Symbol
		inits []types.Value
	)
	for _, g := range m.Groups("binding") {
		v, _ := g.Symbol("var")
		init := g.Get("init")
		if init == nil {
			init = types.NilSym
		}
		vars = append(vars, v)
		inits = append(inits, init)
	}
	return vars, inits, expand.StripDeclarations(m.List("body"))
}

func (letOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	vars, inits, body := letParts(m)
	seen := make(map[types.Symbol]bool, len(vars))
	for _, v := range vars {
		if seen[v] {
			return nil, errorf(KindSemantic, form, "variable %s bound twice", v)
		}
		seen[v] = true
	}
	if len(vars) == 0 {
		return rewrite(prepend(symProgn, body)), nil
	}
	x := c.Extra()
	if !x.FunctionNames {
		for _, v := range vars {
			if b, ok := c.Env.Variable(v); ok {
				if _, special := b.(env.Special); special {
					return rewrite(specialLet(c, vars, inits, body)), nil
				}
			}
		}
	}
	ll := make([]types.Value, len(vars))
	for i, v := range vars {
		ll[i] = v
	}
	call := append([]types.Value{symFuncall, lambdaForm(types.NewList(ll...), body...)}, inits...)
	return &Rewrite{Form: types.NewList(call...), Extra: x}, nil
}

// specialLet rewrites a let binding special variables. The new values
// are stored globally for the extent of the body and the old ones are
// restored however the body exits.
func specialLet(c Context, vars []types.Symbol, inits []types.Value, body []types.Value) types.Value {
	var outer, sets, restores, lexical []types.Value
	for i, v := range vars {
		g := types.Gensym(v.Name)
		outer = append(outer, list(g, inits[i]))
		b, _ := c.Env.Variable(v)
		if _, special := b.(env.Special); !special {
			lexical = append(lexical, list(v, g))
			continue
		}
		save := types.Gensym("saved")
		outer = append(outer, list(save, list(symGlobalRef, v)))
		sets = append(sets, list(symGlobalSet, v, g))
		restores = append(restores, list(symGlobalSet, v, save))
	}
	inner := progn(body)
	if len(lexical) > 0 {
		inner = prepend(symLet, append([]types.Value{types.NewList(lexical...)}, body...))
	}
	protected := prepend(symProgn, append(sets, inner))
	return list(symLet, types.NewList(outer...), prepend(symUnwindProtect, append([]types.Value{protected}, restores...)))
}

func (letOp) Binds(_ Context, m match.Bindings) env.Frame {
	vars, _, _ := letParts(m)
	f := env.Frame{}
	for _, v := range vars {
		f[v] = env.Variable{}
	}
	return f
}

func (letOp) NValues(c Context, m match.Bindings) int {
	_, _, body := letParts(m)
	return c.NValues(progn(body))
}

func (letOp) Effects(c Context, m match.Bindings) bool {
	_, inits, body := letParts(m)
	return anyForm(inits, c.Effects) || anyForm(body, c.Effects)
}

func (letOp) Affected(c Context, m match.Bindings) bool {
	_, inits, body := letParts(m)
	return anyForm(inits, c.Affected) || anyForm(body, c.Affected)
}

// localDefs returns the definitions of flet, labels or macrolet, checking
// that no name is defined twice.
func localDefs(m match.Bindings, form types.List) ([]types.Symbol, []match.Bindings, error) {
	defs := m.Groups("def")
	names := make([]types.Symbol, len(defs))
	seen := make(map[types.Symbol]bool, len(defs))
	for i, d := range defs {
		names[i], _ = d.Symbol("name")
		if seen[names[i]] {
			return nil, nil, errorf(KindSemantic, form, "function %s defined twice", names[i])
		}
		seen[names[i]] = true
	}
	return names, defs, nil
}

func functionFrame(m match.Bindings) env.Frame {
	f := env.Frame{}
	for _, d := range m.Groups("def") {
		name, _ := d.Symbol("name")
		f[name] = env.Function{}
	}
	return f
}

type fletOp struct{ base }

func (fletOp) Lower(_ Context, m match.Bindings, form types.List) (Result, error) {
	names, defs, err := localDefs(m, form)
	if err != nil {
		return nil, err
	}
	bindings := make([]types.Value, len(defs))
	for i, d := range defs {
		bindings[i] = list(names[i], lambdaForm(d.Get("lambda-list"), d.List("fbody")...))
	}
	let := prepend(symLet, append([]types.Value{types.NewList(bindings...)}, m.List("body")...))
	return &Rewrite{Form: let, Extra: Extra{FunctionNames: true}}, nil
}

func (fletOp) Binds(_ Context, m match.Bindings) env.Frame { return functionFrame(m) }

func (fletOp) NValues(c Context, m match.Bindings) int {
	return c.NValues(progn(expand.StripDeclarations(m.List("body"))))
}

type labelsOp struct{ base }

func (labelsOp) Lower(_ Context, m match.Bindings, form types.List) (Result, error) {
	names, defs, err := localDefs(m, form)
	if err != nil {
		return nil, err
	}
	body := m.List("body")
	if len(defs) == 1 {
		named := prepend(symNamedLambda, append([]types.Value{names[0], defs[0].Get("lambda-list")}, defs[0].List("fbody")...))
		let := prepend(symLet, append([]types.Value{list(list(names[0], list(symFunction, named)))}, body...))
		return &Rewrite{Form: let, Extra: Extra{FunctionNames: true}}, nil
	}
	return rewrite(labelsDispatch(names, defs, body)), nil
}

// labelsDispatch rewrites mutually recursive local functions as one
// recursive dispatcher taking the index of the function to run. Each
// name is bound, inside the dispatcher and around the body, to a wrapper
// calling the dispatcher with its index.
//
//	(labels ((d (which &rest args)
//	           (flet (wrappers...) (if (%eql which 0) (apply f0 args) ...))))
//	  (flet (wrappers...) body...))
func labelsDispatch(names []types.Symbol, defs []match.Bindings, body []types.Value) types.Value {
	d := types.Gensym("labels")
	which := types.Gensym("which")
	args := types.Gensym("args")

	wrappers := make([]types.Value, len(names))
	for i, name := range names {
		a := types.Gensym("args")
		wrappers[i] = list(name, list(symRest, a), list(symApply, list(symFunction, d), types.NewInt(int64(i)), a))
	}

	var dispatch types.Value
	for i := len(defs) - 1; i >= 0; i-- {
		call := list(symApply, lambdaForm(defs[i].Get("lambda-list"), defs[i].List("fbody")...), args)
		if dispatch == nil {
			dispatch = call
			continue
		}
		dispatch = list(symIf, list(symEql, which, types.NewInt(int64(i))), call, dispatch)
	}

	dispatcher := list(d, list(which, symRest, args), list(symFlet, types.NewList(wrappers...), dispatch))
	inner := prepend(symFlet, append([]types.Value{types.NewList(wrappers...)}, body...))
	return list(symLabels, list(dispatcher), inner)
}

func (labelsOp) Binds(_ Context, m match.Bindings) env.Frame { return functionFrame(m) }

func (labelsOp) NValues(c Context, m match.Bindings) int {
	return c.NValues(progn(expand.StripDeclarations(m.List("body"))))
}

type symbolMacroletOp struct{ base }

func (symbolMacroletOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	frame := env.Frame{}
	for _, d := range m.Groups("def") {
		name, _ := d.Symbol("name")
		frame[name] = env.SymbolMacro{Expansion: d.Get("expansion")}
	}
	return &Rewrite{Form: prepend(symProgn, expand.StripDeclarations(m.List("body"))), Env: env.Extend(c.Env, frame)}, nil
}

type macroletOp struct{ base }

func (macroletOp) Lower(_ Context, _ match.Bindings, form types.List) (Result, error) {
	return nil, errorf(KindSemantic, form, "macrolet must be expanded before lowering")
}
