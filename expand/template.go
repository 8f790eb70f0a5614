package expand

import (
	"lispc/env"
	"lispc/types"
)

// maxTicks bounds the work done by one macro call at expansion time.
const maxTicks = 100000

// macroParams is a parsed macro lambda list. Required parameters may be
// nested lambda lists that destructure the corresponding argument.
type macroParams struct {
	required []interface{} // types.Symbol or *macroParams
	optional []optionalParam
	rest     *types.Symbol
}

type optionalParam struct {
	name types.Symbol
	init types.Value
}

func parseMacroParams(ll types.Value) (*macroParams, error) {
	p := &macroParams{}
	if types.IsNil(ll) {
		return p, nil
	}
	l, ok := ll.(types.List)
	if !ok {
		return nil, errorf(ll, "malformed macro lambda list")
	}
	const (
		required = iota
		optional
		rest
		done
	)
	state := required
	for _, item := range l.Elements() {
		if s, ok := item.(types.Symbol); ok && isLambdaKeyword(s) {
			switch {
			case s.Name == "&optional" && state == required:
				state = optional
			case (s.Name == "&rest" || s.Name == "&body") && state < rest:
				state = rest
			default:
				return nil, errorf(ll, "misplaced %s", s.Name)
			}
			continue
		}
		switch state {
		case required:
			switch x := item.(type) {
			case types.Symbol:
				p.required = append(p.required, x)
			case types.List:
				sub, err := parseMacroParams(x)
				if err != nil {
					return nil, err
				}
				p.required = append(p.required, sub)
			default:
				return nil, errorf(ll, "invalid parameter %s", item)
			}
		case optional:
			switch x := item.(type) {
			case types.Symbol:
				p.optional = append(p.optional, optionalParam{name: x, init: types.NilSym})
			case types.List:
				name, ok := x.At(0).(types.Symbol)
				if !ok || x.Len() > 2 {
					return nil, errorf(ll, "invalid optional parameter %s", item)
				}
				op := optionalParam{name: name, init: types.NilSym}
				if x.Len() == 2 {
					op.init = x.At(1)
				}
				p.optional = append(p.optional, op)
			default:
				return nil, errorf(ll, "invalid optional parameter %s", item)
			}
		case rest:
			s, ok := item.(types.Symbol)
			if !ok {
				return nil, errorf(ll, "invalid rest parameter %s", item)
			}
			p.rest = &s
			state = done
		default:
			return nil, errorf(ll, "unexpected %s after rest parameter", item)
		}
	}
	if state == rest {
		return nil, errorf(ll, "missing rest parameter")
	}
	return p, nil
}

// templateMacro builds an expander from a macro definition. The body runs
// in a small compile-time interpreter that knows list construction and
// inspection, conditionals, local variables and gensym.
func (x *Expander) templateMacro(name types.Symbol, ll types.Value, body []types.Value) (env.Expander, error) {
	params, err := parseMacroParams(ll)
	if err != nil {
		return nil, err
	}
	body = StripDeclarations(stripDoc(body))
	code := make([]types.Value, len(body))
	for i, f := range body {
		if code[i], err = Quasiquote(f); err != nil {
			return nil, err
		}
	}
	return func(form types.Value, _ *env.Environment) (types.Value, error) {
		in := &interp{macro: name, call: form}
		scope, err := in.bind(params, form.(types.List).Rest(), nil)
		if err != nil {
			return nil, err
		}
		return in.progn(code, scope)
	}, nil
}

// scope is one frame of interpreter variables.
type scope struct {
	vars   map[types.Symbol]types.Value
	parent *scope
}

func (s *scope) lookup(name types.Symbol) (types.Value, bool) {
	for ; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) set(name types.Symbol, v types.Value) bool {
	for ; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return true
		}
	}
	return false
}

type interp struct {
	macro types.Symbol
	call  types.Value
	ticks int
}

func (in *interp) errorf(format string, args ...interface{}) error {
	err := errorf(in.call, format, args...)
	err.Msg = "in macro " + in.macro.Name + ": " + err.Msg
	return err
}

func (in *interp) bind(p *macroParams, args types.List, parent *scope) (*scope, error) {
	s := &scope{vars: make(map[types.Symbol]types.Value), parent: parent}
	elems := args.Elements()
	if len(elems) < len(p.required) {
		return nil, in.errorf("too few arguments")
	}
	for i, r := range p.required {
		switch x := r.(type) {
		case types.Symbol:
			s.vars[x] = elems[i]
		case *macroParams:
			sub, ok := elems[i].(types.List)
			if !ok && !types.IsNil(elems[i]) {
				return nil, in.errorf("cannot destructure %s", elems[i])
			}
			inner, err := in.bind(x, sub, nil)
			if err != nil {
				return nil, err
			}
			for k, v := range inner.vars {
				s.vars[k] = v
			}
		}
	}
	i := len(p.required)
	for _, o := range p.optional {
		if i < len(elems) {
			s.vars[o.name] = elems[i]
			i++
			continue
		}
		v, err := in.eval(o.init, s)
		if err != nil {
			return nil, err
		}
		s.vars[o.name] = v
	}
	switch {
	case p.rest != nil:
		s.vars[*p.rest] = types.NewList(elems[i:]...)
	case i < len(elems):
		return nil, in.errorf("too many arguments")
	}
	return s, nil
}

func (in *interp) progn(body []types.Value, s *scope) (types.Value, error) {
	var out types.Value = types.NilSym
	for _, f := range body {
		v, err := in.eval(f, s)
		if err != nil {
			return nil, err
		}
		out = v
	}
	return out, nil
}

func boolean(b bool) types.Value {
	if b {
		return types.TSym
	}
	return types.NilSym
}

func (in *interp) eval(form types.Value, s *scope) (types.Value, error) {
	in.ticks++
	if in.ticks > maxTicks {
		return nil, in.errorf("expansion takes too long")
	}
	switch f := form.(type) {
	case types.Symbol:
		if types.IsSelfEvaluating(f) {
			return f, nil
		}
		if v, ok := s.lookup(f); ok {
			return v, nil
		}
		return nil, in.errorf("unbound variable %s", f)
	case types.List:
		if f.Len() == 0 {
			return types.NilSym, nil
		}
		head, ok := f.At(0).(types.Symbol)
		if !ok {
			return nil, in.errorf("illegal function call %s", f)
		}
		return in.evalCall(head, f, s)
	}
	return form, nil
}

func (in *interp) evalCall(head types.Symbol, f types.List, s *scope) (types.Value, error) {
	args := f.Rest().Elements()
	switch head.Name {
	case "quote":
		if len(args) != 1 {
			return nil, in.errorf("malformed quote")
		}
		return args[0], nil
	case "if":
		if len(args) < 2 || len(args) > 3 {
			return nil, in.errorf("malformed if")
		}
		test, err := in.eval(args[0], s)
		if err != nil {
			return nil, err
		}
		if test.Truthy() {
			return in.eval(args[1], s)
		}
		if len(args) == 3 {
			return in.eval(args[2], s)
		}
		return types.NilSym, nil
	case "when", "unless":
		if len(args) == 0 {
			return nil, in.errorf("malformed %s", head.Name)
		}
		test, err := in.eval(args[0], s)
		if err != nil {
			return nil, err
		}
		if test.Truthy() == (head.Name == "when") {
			return in.progn(args[1:], s)
		}
		return types.NilSym, nil
	case "cond":
		for _, c := range args {
			clause, ok := c.(types.List)
			if !ok || clause.Len() == 0 {
				return nil, in.errorf("malformed cond clause")
			}
			test, err := in.eval(clause.At(0), s)
			if err != nil {
				return nil, err
			}
			if test.Truthy() {
				if clause.Len() == 1 {
					return test, nil
				}
				return in.progn(clause.Rest().Elements(), s)
			}
		}
		return types.NilSym, nil
	case "and", "or":
		var v types.Value = boolean(head.Name == "and")
		for _, a := range args {
			var err error
			if v, err = in.eval(a, s); err != nil {
				return nil, err
			}
			if v.Truthy() != (head.Name == "and") {
				return v, nil
			}
		}
		return v, nil
	case "progn":
		return in.progn(args, s)
	case "let", "let*":
		return in.let(head.Name == "let*", args, s)
	case "setq":
		if len(args)%2 != 0 {
			return nil, in.errorf("odd number of arguments to setq")
		}
		var v types.Value = types.NilSym
		for i := 0; i < len(args); i += 2 {
			name, ok := args[i].(types.Symbol)
			if !ok {
				return nil, in.errorf("cannot assign to %s", args[i])
			}
			var err error
			if v, err = in.eval(args[i+1], s); err != nil {
				return nil, err
			}
			if !s.set(name, v) {
				return nil, in.errorf("unbound variable %s", name)
			}
		}
		return v, nil
	case "mapcar":
		if len(args) != 2 {
			return nil, in.errorf("mapcar takes a function and one list")
		}
		lst, err := in.eval(args[1], s)
		if err != nil {
			return nil, err
		}
		l, ok := lst.(types.List)
		if !ok && !types.IsNil(lst) {
			return nil, in.errorf("mapcar of non-list %s", lst)
		}
		out := make([]types.Value, l.Len())
		for i, item := range l.Elements() {
			if out[i], err = in.apply(args[0], []types.Value{item}, s); err != nil {
				return nil, err
			}
		}
		return types.NewList(out...), nil
	case "funcall":
		if len(args) == 0 {
			return nil, in.errorf("funcall needs a function")
		}
		vals, err := in.evalArgs(args[1:], s)
		if err != nil {
			return nil, err
		}
		return in.apply(args[0], vals, s)
	}
	vals, err := in.evalArgs(args, s)
	if err != nil {
		return nil, err
	}
	return in.primitive(head, vals)
}

func (in *interp) evalArgs(args []types.Value, s *scope) ([]types.Value, error) {
	vals := make([]types.Value, len(args))
	for i, a := range args {
		v, err := in.eval(a, s)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (in *interp) let(sequential bool, args []types.Value, s *scope) (types.Value, error) {
	if len(args) == 0 {
		return nil, in.errorf("malformed let")
	}
	bindings, ok := args[0].(types.List)
	if !ok && !types.IsNil(args[0]) {
		return nil, in.errorf("malformed let bindings")
	}
	inner := &scope{vars: make(map[types.Symbol]types.Value), parent: s}
	for _, b := range bindings.Elements() {
		var (
			name types.Symbol
			init types.Value = types.NilSym
		)
		switch x := b.(type) {
		case types.Symbol:
			name = x
		case types.List:
			n, ok := x.At(0).(types.Symbol)
			if !ok || x.Len() > 2 {
				return nil, in.errorf("malformed let binding %s", b)
			}
			name = n
			if x.Len() == 2 {
				init = x.At(1)
			}
		default:
			return nil, in.errorf("malformed let binding %s", b)
		}
		from := s
		if sequential {
			from = inner
		}
		v, err := in.eval(init, from)
		if err != nil {
			return nil, err
		}
		inner.vars[name] = v
	}
	return in.progn(StripDeclarations(args[1:]), inner)
}

// apply calls a function designator written in the macro body: a
// function name, (function name), or a lambda expression.
func (in *interp) apply(fn types.Value, vals []types.Value, s *scope) (types.Value, error) {
	if types.IsCall(fn, "function") || types.IsCall(fn, "quote") {
		fn = fn.(types.List).At(1)
	}
	switch f := fn.(type) {
	case types.Symbol:
		return in.primitive(f, vals)
	case types.List:
		if types.IsCall(f, "lambda") && f.Len() >= 2 {
			p, err := parseMacroParams(f.At(1))
			if err != nil {
				return nil, err
			}
			inner, err := in.bind(p, types.NewList(vals...), s)
			if err != nil {
				return nil, err
			}
			return in.progn(StripDeclarations(f.Slice(2, f.Len()).Elements()), inner)
		}
	}
	return nil, in.errorf("cannot call %s at expansion time", fn)
}

func (in *interp) primitive(head types.Symbol, vals []types.Value) (types.Value, error) {
	argc := func(n int) error {
		if len(vals) != n {
			return in.errorf("%s takes %d arguments", head.Name, n)
		}
		return nil
	}
	switch head.Name {
	case "list":
		return types.NewList(vals...), nil
	case "list*":
		if len(vals) == 0 {
			return nil, in.errorf("list* needs an argument")
		}
		tail, ok := in.asList(vals[len(vals)-1])
		if !ok {
			return nil, in.errorf("dotted lists are not supported")
		}
		return types.Concat(types.NewList(vals[:len(vals)-1]...), tail), nil
	case "cons":
		if err := argc(2); err != nil {
			return nil, err
		}
		tail, ok := in.asList(vals[1])
		if !ok {
			return nil, in.errorf("dotted lists are not supported")
		}
		return tail.Cons(vals[0]), nil
	case "append":
		parts := make([]types.List, 0, len(vals))
		for _, v := range vals {
			l, ok := in.asList(v)
			if !ok {
				return nil, in.errorf("append of non-list %s", v)
			}
			parts = append(parts, l)
		}
		return types.Concat(parts...), nil
	case "car", "first", "second", "third", "cdr", "rest", "nth", "length", "reverse", "endp":
		return in.listAccess(head.Name, vals)
	case "not", "null":
		if err := argc(1); err != nil {
			return nil, err
		}
		return boolean(types.IsNil(vals[0])), nil
	case "eq", "eql", "equal":
		if err := argc(2); err != nil {
			return nil, err
		}
		return boolean(vals[0].Equal(vals[1])), nil
	case "symbolp", "consp", "listp", "atom", "stringp", "numberp", "integerp", "keywordp":
		if err := argc(1); err != nil {
			return nil, err
		}
		return boolean(typep(head.Name, vals[0])), nil
	case "gensym":
		prefix := "G"
		if len(vals) == 1 {
			if str, ok := vals[0].(types.StrValue); ok {
				prefix = str.Value()
			}
		}
		return types.Gensym(prefix), nil
	case "+", "-":
		return in.arith(head.Name, vals)
	case "error":
		if len(vals) > 0 {
			if str, ok := vals[0].(types.StrValue); ok {
				return nil, in.errorf("%s", str.Value())
			}
		}
		return nil, in.errorf("error signalled")
	}
	return nil, in.errorf("cannot call %s at expansion time", head.Name)
}

func (in *interp) asList(v types.Value) (types.List, bool) {
	if types.IsNil(v) {
		return types.Nil, true
	}
	l, ok := v.(types.List)
	return l, ok
}

func (in *interp) listAccess(op string, vals []types.Value) (types.Value, error) {
	want := 1
	if op == "nth" {
		want = 2
	}
	if len(vals) != want {
		return nil, in.errorf("%s takes %d arguments", op, want)
	}
	target := vals[len(vals)-1]
	l, ok := in.asList(target)
	if !ok {
		return nil, in.errorf("%s of non-list %s", op, target)
	}
	nth := func(i int) types.Value {
		if i < l.Len() {
			return l.At(i)
		}
		return types.NilSym
	}
	switch op {
	case "car", "first":
		return nth(0), nil
	case "second":
		return nth(1), nil
	case "third":
		return nth(2), nil
	case "nth":
		n, ok := vals[0].(types.IntValue)
		if !ok || n.Val < 0 {
			return nil, in.errorf("nth index must be a non-negative integer")
		}
		return nth(int(n.Val)), nil
	case "cdr", "rest":
		return l.Rest(), nil
	case "length":
		return types.NewInt(int64(l.Len())), nil
	case "endp":
		return boolean(l.Len() == 0), nil
	}
	rev := make([]types.Value, l.Len())
	for i, v := range l.Elements() {
		rev[len(rev)-1-i] = v
	}
	return types.NewList(rev...), nil
}

func (in *interp) arith(op string, vals []types.Value) (types.Value, error) {
	var acc int64
	for i, v := range vals {
		n, ok := v.(types.IntValue)
		if !ok {
			return nil, in.errorf("%s of non-integer %s", op, v)
		}
		switch {
		case i == 0 || op == "+":
			acc += n.Val
		default:
			acc -= n.Val
		}
	}
	if op == "-" && len(vals) == 1 {
		acc = -acc
	}
	return types.NewInt(acc), nil
}

func typep(pred string, v types.Value) bool {
	switch pred {
	case "symbolp":
		_, ok := v.(types.Symbol)
		return ok || types.IsNil(v)
	case "consp":
		return !types.IsAtom(v)
	case "listp":
		_, ok := v.(types.List)
		return ok || types.IsNil(v)
	case "atom":
		return types.IsAtom(v)
	case "stringp":
		_, ok := v.(types.StrValue)
		return ok
	case "numberp":
		switch v.(type) {
		case types.IntValue, types.FloatValue:
			return true
		}
	case "integerp":
		_, ok := v.(types.IntValue)
		return ok
	case "keywordp":
		s, ok := v.(types.Symbol)
		return ok && s.IsKeyword()
	}
	return false
}
