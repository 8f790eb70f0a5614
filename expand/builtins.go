package expand

import (
	"lispc/env"
	"lispc/types"
)

var (
	symProgn    = types.Intern("progn")
	symIf       = types.Intern("if")
	symLet      = types.Intern("let")
	symBlock    = types.Intern("block")
	symFunction = types.Intern("function")
	symSetq     = types.Intern("setq")
	symSetf     = types.Intern("setf")
)

// builtins returns the macros implemented in Go.
func builtins(x *Expander) map[string]env.Expander {
	return map[string]env.Expander{
		"defun":               expandDefun,
		"defmacro":            expandDefmacro,
		"defvar":              expandDefvar,
		"defparameter":        expandDefparameter,
		"defconstant":         expandDefconstant,
		"lambda":              expandLambda,
		"when":                expandWhen,
		"unless":              expandUnless,
		"cond":                expandCond,
		"and":                 expandAnd,
		"or":                  expandOr,
		"let*":                expandLetStar,
		"prog2":               expandProg2,
		"return":              expandReturn,
		"dolist":              expandDolist,
		"dotimes":             expandDotimes,
		"loop":                expandLoop,
		"setf":                x.expandSetf,
		"psetq":               expandPsetq,
		"incf":                expandIncf("+"),
		"decf":                expandIncf("-"),
		"push":                expandPush,
		"pop":                 expandPop,
		"multiple-value-bind": expandMultipleValueBind,
		"multiple-value-list": expandMultipleValueList,
		"case":                expandCase,
	}
}

func argsOf(form types.Value) []types.Value {
	return form.(types.List).Rest().Elements()
}

func arity(form types.Value, min, max int) ([]types.Value, error) {
	args := argsOf(form)
	if len(args) < min || max >= 0 && len(args) > max {
		head, _ := types.HeadSymbol(form)
		return nil, errorf(form, "wrong number of arguments to %s", head.Name)
	}
	return args, nil
}

func list(parts ...types.Value) types.List {
	return types.NewList(parts...)
}

func prepend(head types.Value, rest []types.Value) types.List {
	return types.NewList(append([]types.Value{head}, rest...)...)
}

// progn wraps a body, avoiding the wrapper for a single form.
func progn(body []types.Value) types.Value {
	switch len(body) {
	case 0:
		return types.NilSym
	case 1:
		return body[0]
	}
	return prepend(symProgn, body)
}

// stripDoc removes a leading documentation string from a body that has
// more forms after it.
func stripDoc(body []types.Value) []types.Value {
	if len(body) > 1 {
		if _, ok := body[0].(types.StrValue); ok {
			return body[1:]
		}
	}
	return body
}

func expandDefun(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, -1)
	if err != nil {
		return nil, err
	}
	name, ok := args[0].(types.Symbol)
	if !ok {
		return nil, errorf(form, "function name must be a symbol")
	}
	body := StripDeclarations(stripDoc(args[2:]))
	return list(types.Intern("%defun"), name, args[1], prepend(symBlock, append([]types.Value{name}, body...))), nil
}

// expandDefmacro handles defmacro away from top level, where the
// definition has no effect on the code being compiled.
func expandDefmacro(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, -1)
	if err != nil {
		return nil, err
	}
	return quote(args[0]), nil
}

func expandDefvar(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, 3)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return list(types.Intern("%defvar"), args[0]), nil
	}
	return list(types.Intern("%defvar"), args[0], args[1]), nil
}

func expandDefparameter(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, 3)
	if err != nil {
		return nil, err
	}
	return list(types.Intern("%defvar"), args[0], args[1], types.Keyword("always")), nil
}

func expandDefconstant(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, 3)
	if err != nil {
		return nil, err
	}
	return list(types.Intern("%defvar"), args[0], args[1], types.Keyword("constant")), nil
}

func expandLambda(form types.Value, _ *env.Environment) (types.Value, error) {
	if _, err := arity(form, 1, -1); err != nil {
		return nil, err
	}
	return list(symFunction, form), nil
}

func expandWhen(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, -1)
	if err != nil {
		return nil, err
	}
	return list(symIf, args[0], progn(args[1:])), nil
}

func expandUnless(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, -1)
	if err != nil {
		return nil, err
	}
	return list(symIf, args[0], types.NilSym, progn(args[1:])), nil
}

func expandCond(form types.Value, _ *env.Environment) (types.Value, error) {
	return cond(form, argsOf(form))
}

func cond(form types.Value, clauses []types.Value) (types.Value, error) {
	if len(clauses) == 0 {
		return types.NilSym, nil
	}
	clause, ok := clauses[0].(types.List)
	if !ok || clause.Len() == 0 {
		return nil, errorf(form, "malformed cond clause %s", clauses[0])
	}
	test, body := clause.At(0), clause.Rest().Elements()
	if len(body) == 0 {
		rest, err := cond(form, clauses[1:])
		if err != nil {
			return nil, err
		}
		return list(types.Intern("or"), test, rest), nil
	}
	if test == types.TSym && len(clauses) == 1 {
		return progn(body), nil
	}
	rest, err := cond(form, clauses[1:])
	if err != nil {
		return nil, err
	}
	return list(symIf, test, progn(body), rest), nil
}

func expandAnd(form types.Value, _ *env.Environment) (types.Value, error) {
	args := argsOf(form)
	switch len(args) {
	case 0:
		return types.TSym, nil
	case 1:
		return args[0], nil
	}
	return list(symIf, args[0], prepend(types.Intern("and"), args[1:])), nil
}

func expandOr(form types.Value, _ *env.Environment) (types.Value, error) {
	args := argsOf(form)
	switch len(args) {
	case 0:
		return types.NilSym, nil
	case 1:
		return args[0], nil
	}
	g := types.Gensym("or")
	return list(symLet, list(list(g, args[0])),
		list(symIf, g, g, prepend(types.Intern("or"), args[1:]))), nil
}

func expandLetStar(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, -1)
	if err != nil {
		return nil, err
	}
	bindings, ok := args[0].(types.List)
	if !ok && !types.IsNil(args[0]) {
		return nil, errorf(form, "malformed let* bindings")
	}
	if bindings.Len() <= 1 {
		return prepend(symLet, args), nil
	}
	inner := prepend(types.Intern("let*"), append([]types.Value{bindings.Rest()}, args[1:]...))
	return list(symLet, list(bindings.At(0)), inner), nil
}

func expandProg2(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, -1)
	if err != nil {
		return nil, err
	}
	return list(symProgn, args[0], prepend(types.Intern("prog1"), args[1:])), nil
}

func expandReturn(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 0, 1)
	if err != nil {
		return nil, err
	}
	out := list(types.Intern("return-from"), types.NilSym)
	if len(args) == 1 {
		out = out.Append(args[0])
	}
	return out, nil
}

// iterationSpec destructures (var form [result]).
func iterationSpec(form types.Value) (types.Symbol, types.Value, types.Value, []types.Value, error) {
	args, err := arity(form, 1, -1)
	if err != nil {
		return types.Symbol{}, nil, nil, nil, err
	}
	spec, ok := args[0].(types.List)
	if !ok || spec.Len() < 2 || spec.Len() > 3 {
		return types.Symbol{}, nil, nil, nil, errorf(form, "malformed iteration spec")
	}
	v, ok := spec.At(0).(types.Symbol)
	if !ok {
		return types.Symbol{}, nil, nil, nil, errorf(form, "iteration variable must be a symbol")
	}
	var result types.Value = types.NilSym
	if spec.Len() == 3 {
		result = spec.At(2)
	}
	return v, spec.At(1), result, args[1:], nil
}

func expandDolist(form types.Value, _ *env.Environment) (types.Value, error) {
	v, lst, result, body, err := iterationSpec(form)
	if err != nil {
		return nil, err
	}
	rest := types.Gensym("list")
	step := prepend(symLet, append([]types.Value{list(list(v, list(types.Intern("car"), rest)))}, body...))
	done := list(types.Intern("return-from"), types.NilSym, list(symLet, list(list(v, types.NilSym)), result))
	return list(symBlock, types.NilSym,
		list(symLet, list(list(rest, lst)),
			list(types.Intern("%loop"),
				list(symIf, rest, step, done),
				list(symSetq, rest, list(types.Intern("cdr"), rest))))), nil
}

func expandDotimes(form types.Value, _ *env.Environment) (types.Value, error) {
	v, count, result, body, err := iterationSpec(form)
	if err != nil {
		return nil, err
	}
	n := types.Gensym("count")
	loop := []types.Value{
		types.Intern("%loop"),
		list(symIf, list(types.Intern("<"), v, n), types.NilSym, list(types.Intern("return-from"), types.NilSym, result)),
	}
	loop = append(loop, body...)
	loop = append(loop, list(symSetq, v, list(types.Intern("+"), v, types.NewInt(1))))
	return list(symBlock, types.NilSym,
		list(symLet, list(list(n, count), list(v, types.NewInt(0))), types.NewList(loop...))), nil
}

func expandLoop(form types.Value, _ *env.Environment) (types.Value, error) {
	body := argsOf(form)
	for _, f := range body {
		if _, ok := f.(types.Symbol); ok {
			return nil, errorf(form, "extended loop syntax is not supported")
		}
	}
	return list(symBlock, types.NilSym, prepend(types.Intern("%loop"), body)), nil
}

func (x *Expander) expandSetf(form types.Value, e *env.Environment) (types.Value, error) {
	args := argsOf(form)
	if len(args)%2 != 0 {
		return nil, errorf(form, "odd number of arguments to setf")
	}
	switch len(args) {
	case 0:
		return types.NilSym, nil
	case 2:
	default:
		out := []types.Value{symProgn}
		for i := 0; i < len(args); i += 2 {
			out = append(out, list(symSetf, args[i], args[i+1]))
		}
		return types.NewList(out...), nil
	}

	place, value := args[0], args[1]
	switch p := place.(type) {
	case types.Symbol:
		if b, ok := e.Variable(p); ok {
			if sm, ok := b.(env.SymbolMacro); ok {
				return list(symSetf, sm.Expansion, value), nil
			}
		}
		return list(symSetq, p, value), nil
	case types.List:
		head, ok := types.HeadSymbol(p)
		if !ok {
			break
		}
		if x.IsMacro(head, e) {
			expanded, _, err := x.Expand1(p, e)
			if err != nil {
				return nil, err
			}
			return list(symSetf, expanded, value), nil
		}
		var bindings []types.Value
		call := []types.Value{types.Intern("funcall"), list(symFunction, list(symSetf, head))}
		v := types.Gensym("value")
		for _, a := range p.Rest().Elements() {
			g := types.Gensym("arg")
			bindings = append(bindings, list(g, a))
			call = append(call, g)
		}
		bindings = append(bindings, list(v, value))
		call = append(call[:2], append([]types.Value{v}, call[2:]...)...)
		return list(types.Intern("let*"), types.NewList(bindings...), types.NewList(call...)), nil
	}
	return nil, errorf(form, "invalid place %s", place)
}

func expandPsetq(form types.Value, _ *env.Environment) (types.Value, error) {
	args := argsOf(form)
	if len(args)%2 != 0 {
		return nil, errorf(form, "odd number of arguments to psetq")
	}
	var bindings, sets []types.Value
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(types.Symbol); !ok {
			return nil, errorf(form, "psetq of non-symbol %s", args[i])
		}
		g := types.Gensym("new")
		bindings = append(bindings, list(g, args[i+1]))
		sets = append(sets, list(symSetf, args[i], g))
	}
	sets = append(sets, types.NilSym)
	return prepend(symLet, append([]types.Value{types.NewList(bindings...)}, sets...)), nil
}

func expandIncf(op string) env.Expander {
	return func(form types.Value, _ *env.Environment) (types.Value, error) {
		args, err := arity(form, 1, 2)
		if err != nil {
			return nil, err
		}
		var delta types.Value = types.NewInt(1)
		if len(args) == 2 {
			delta = args[1]
		}
		return list(symSetf, args[0], list(types.Intern(op), args[0], delta)), nil
	}
}

func expandPush(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, 2)
	if err != nil {
		return nil, err
	}
	return list(symSetf, args[1], list(types.Intern("cons"), args[0], args[1])), nil
}

func expandPop(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, 1)
	if err != nil {
		return nil, err
	}
	return list(types.Intern("prog1"),
		list(types.Intern("car"), args[0]),
		list(symSetf, args[0], list(types.Intern("cdr"), args[0]))), nil
}

func expandMultipleValueBind(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 2, -1)
	if err != nil {
		return nil, err
	}
	vars, ok := args[0].(types.List)
	if !ok && !types.IsNil(args[0]) {
		return nil, errorf(form, "malformed variable list")
	}
	ll := []types.Value{types.Intern("&optional")}
	ll = append(ll, vars.Elements()...)
	ll = append(ll, types.Intern("&rest"), types.Gensym("ignore"))
	fn := list(symFunction, prepend(types.Intern("lambda"), append([]types.Value{types.NewList(ll...)}, args[2:]...)))
	return list(types.Intern("multiple-value-call"), fn, args[1]), nil
}

func expandMultipleValueList(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, 1)
	if err != nil {
		return nil, err
	}
	return list(types.Intern("multiple-value-call"), list(symFunction, types.Intern("list")), args[0]), nil
}

func expandCase(form types.Value, _ *env.Environment) (types.Value, error) {
	args, err := arity(form, 1, -1)
	if err != nil {
		return nil, err
	}
	k := types.Gensym("key")
	clauses := []types.Value{types.Intern("cond")}
	for i, c := range args[1:] {
		clause, ok := c.(types.List)
		if !ok || clause.Len() == 0 {
			return nil, errorf(form, "malformed case clause %s", c)
		}
		body := clause.Rest().Elements()
		if len(body) == 0 {
			body = []types.Value{types.NilSym}
		}
		keys := clause.At(0)
		var test types.Value
		switch {
		case keys == types.TSym || keys == types.Intern("otherwise"):
			if i != len(args)-2 {
				return nil, errorf(form, "%s clause must come last", keys)
			}
			test = types.TSym
		case types.IsNil(keys):
			continue
		default:
			test = keyTest(k, keys)
		}
		clauses = append(clauses, prepend(test, body))
	}
	return list(symLet, list(list(k, args[0])), types.NewList(clauses...)), nil
}

func keyTest(k types.Symbol, keys types.Value) types.Value {
	l, ok := keys.(types.List)
	if !ok {
		return list(types.Intern("eql"), k, quote(keys))
	}
	if l.Len() == 1 {
		return list(types.Intern("eql"), k, quote(l.At(0)))
	}
	tests := []types.Value{types.Intern("or")}
	for _, key := range l.Elements() {
		tests = append(tests, list(types.Intern("eql"), k, quote(key)))
	}
	return types.NewList(tests...)
}
