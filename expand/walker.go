package expand

import (
	"lispc/env"
	"lispc/match"
	"lispc/metasex"
	"lispc/types"
)

// walker carries one ExpandAll or ExpandToplevel call through a form.
type walker struct {
	x *Expander
}

// skipped is the number of leading arguments of a special operator that
// are not evaluated, for operators walked generically.
var skipped = map[string]int{
	"the":         1,
	"return-from": 1,
	"block":       1,
	"%global-set": 1,
	"%defvar":     1,
	"eval-when":   1,
	"nth-value":   1,
}

func (w *walker) toplevel(form types.Value, e *env.Environment) (types.Value, *env.Environment, error) {
	form, err := Quasiquote(form)
	if err != nil {
		return nil, e, err
	}
	form, err = w.expandHead(form, e)
	if err != nil {
		return nil, e, err
	}
	head, _ := types.HeadSymbol(form)
	l, _ := form.(types.List)
	switch head {
	case types.Intern("progn"):
		out := []types.Value{head}
		for _, f := range l.Rest().Elements() {
			r, e2, err := w.toplevel(f, e)
			if err != nil {
				return nil, e, err
			}
			e = e2
			out = append(out, r)
		}
		return types.NewList(out...), e, nil

	case types.Intern("defmacro"):
		if l.Len() < 3 {
			return nil, e, errorf(form, "malformed defmacro")
		}
		name, ok := l.At(1).(types.Symbol)
		if !ok {
			return nil, e, errorf(form, "macro name must be a symbol")
		}
		fn, err := w.x.templateMacro(name, l.At(2), l.Slice(3, l.Len()).Elements())
		if err != nil {
			return nil, e, err
		}
		return quote(name), e.Bind(name, env.Macro{Expand: fn}), nil

	case types.Intern("%defvar"):
		if name, ok := l.At(1).(types.Symbol); ok && l.Len() >= 2 {
			var b env.Binding = env.Special{}
			if l.Len() == 4 && l.At(3) == types.Keyword("constant") {
				if v, ok := constantValue(l.At(2)); ok {
					b = env.Constant{Value: v}
				}
			}
			e = e.Bind(name, b)
		}

	case types.Intern("eval-when"):
		if l.Len() >= 2 {
			if !LoadTime(l.At(1)) {
				return types.NilSym, e, nil
			}
			return w.toplevel(types.NewList(append([]types.Value{types.Intern("progn")}, l.Slice(2, l.Len()).Elements()...)...), e)
		}
	}
	r, err := w.form(form, e, 0)
	return r, e, err
}

// expandHead expands a top-level form like Expand, stopping at defmacro
// so the definition can be processed at compile time.
func (w *walker) expandHead(form types.Value, e *env.Environment) (types.Value, error) {
	for i := 0; !types.IsCall(form, "defmacro"); i++ {
		if i >= w.x.maxDepth {
			return nil, errorf(form, "macro expansion does not terminate")
		}
		out, expanded, err := w.x.Expand1(form, e)
		if err != nil {
			return nil, err
		}
		if !expanded {
			break
		}
		form = out
	}
	return form, nil
}

// LoadTime reports whether an eval-when situation list includes run time.
func LoadTime(situations types.Value) bool {
	l, _ := situations.(types.List)
	for _, s := range l.Elements() {
		switch s {
		case types.Keyword("execute"), types.Keyword("load-toplevel"),
			types.Intern("eval"), types.Intern("load"):
			return true
		}
	}
	return false
}

func (w *walker) form(form types.Value, e *env.Environment, depth int) (types.Value, error) {
	if depth > w.x.maxDepth {
		return nil, errorf(form, "form nesting too deep")
	}
	form, err := w.x.Expand(form, e)
	if err != nil {
		return nil, err
	}
	l, ok := form.(types.List)
	if !ok || l.Len() == 0 {
		return form, nil
	}
	switch head := l.At(0).(type) {
	case types.Symbol:
		if w.x.IsSpecial(head) {
			return w.special(head, l, e, depth+1)
		}
		args, err := w.forms(l.Rest().Elements(), e, depth+1)
		if err != nil {
			return nil, err
		}
		return types.NewList(append([]types.Value{head}, args...)...), nil
	case types.List:
		if types.IsCall(head, "lambda") {
			call := append([]types.Value{types.Intern("funcall"), types.NewList(types.Intern("function"), head)}, l.Rest().Elements()...)
			return w.form(types.NewList(call...), e, depth)
		}
	}
	return nil, errorf(form, "illegal function call")
}

func (w *walker) forms(fs []types.Value, e *env.Environment, depth int) ([]types.Value, error) {
	out := make([]types.Value, len(fs))
	for i, f := range fs {
		r, err := w.form(f, e, depth)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (w *walker) special(head types.Symbol, l types.List, e *env.Environment, depth int) (types.Value, error) {
	r := match.Validate(w.x.special[head], l)
	if !r.OK() {
		return nil, errorf(l, "malformed %s: %s", head.Name, r.Failure)
	}
	m := r.Bindings
	switch head.Name {
	case "quote", "go", "%global-ref":
		return l, nil
	case "function":
		return w.function(l, m, e, depth)
	case "setq":
		return w.setq(l, e, depth)
	case "let":
		return w.let(l, m, e, depth)
	case "flet", "labels":
		return w.localFunctions(head, m, e, depth)
	case "macrolet":
		return w.macrolet(m, e, depth)
	case "symbol-macrolet":
		return w.symbolMacrolet(m, e, depth)
	case "locally":
		return w.progn(m.List("body"), e, depth)
	case "tagbody":
		return w.tagbody(l, e, depth)
	case "%defun":
		ll, body, err := w.lambda(m.Get("lambda-list"), m.List("body"), e, depth)
		if err != nil {
			return nil, err
		}
		return types.NewList(append([]types.Value{head, m.Get("name"), ll}, body...)...), nil
	}

	n := skipped[head.Name] + 1
	elems := l.Elements()
	args, err := w.forms(elems[n:], e, depth)
	if err != nil {
		return nil, err
	}
	return types.NewList(append(append([]types.Value(nil), elems[:n]...), args...)...), nil
}

func (w *walker) function(l types.List, m match.Bindings, e *env.Environment, depth int) (types.Value, error) {
	fn, ok := l.At(1).(types.List)
	if !ok || types.IsCall(fn, "setf") {
		return l, nil
	}
	if types.IsCall(fn, "%named-lambda") {
		name, _ := m.Symbol("fname")
		ll, body, err := w.lambda(m.Get("lambda-list"), m.List("body"), e.Bind(name, env.Function{}), depth)
		if err != nil {
			return nil, err
		}
		inner := append([]types.Value{fn.At(0), name, ll}, body...)
		return types.NewList(l.At(0), types.NewList(inner...)), nil
	}
	ll, body, err := w.lambda(m.Get("lambda-list"), m.List("body"), e, depth)
	if err != nil {
		return nil, err
	}
	inner := append([]types.Value{fn.At(0), ll}, body...)
	return types.NewList(l.At(0), types.NewList(inner...)), nil
}

// lambda walks a lambda list and body. Parameters shadow symbol macros in
// the body; optional initializers see the parameters before them.
func (w *walker) lambda(ll types.Value, body []types.Value, e *env.Environment, depth int) (types.Value, []types.Value, error) {
	if r := match.Validate(metasex.Lambda(), ll); !r.OK() {
		return nil, nil, errorf(ll, "malformed lambda list: %s", r.Failure)
	}
	l, _ := ll.(types.List)
	out := make([]types.Value, 0, l.Len())
	inner := e
	for _, p := range l.Elements() {
		switch x := p.(type) {
		case types.Symbol:
			if !isLambdaKeyword(x) {
				inner = inner.Bind(x, env.Variable{})
			}
			out = append(out, p)
		case types.List:
			v := x.At(0).(types.Symbol)
			if x.Len() > 1 {
				init, err := w.form(x.At(1), inner, depth)
				if err != nil {
					return nil, nil, err
				}
				p = types.NewList(v, init)
			}
			inner = inner.Bind(v, env.Variable{})
			out = append(out, p)
		}
	}
	walked, err := w.forms(StripDeclarations(body), inner, depth)
	if err != nil {
		return nil, nil, err
	}
	return types.NewList(out...), walked, nil
}

func isLambdaKeyword(s types.Symbol) bool {
	switch s.Name {
	case "&optional", "&rest", "&body":
		return !s.IsUninterned() && s.Package == ""
	}
	return false
}

// StripDeclarations removes leading declare forms from a body.
func StripDeclarations(body []types.Value) []types.Value {
	out := make([]types.Value, 0, len(body))
	leading := true
	for _, f := range body {
		if leading && types.IsCall(f, "declare") {
			continue
		}
		if _, isDoc := f.(types.StrValue); !isDoc {
			leading = false
		}
		out = append(out, f)
	}
	return out
}

func (w *walker) setq(l types.List, e *env.Environment, depth int) (types.Value, error) {
	args := l.Rest().Elements()
	for i := 0; i < len(args); i += 2 {
		if b, ok := e.Variable(args[i].(types.Symbol)); ok {
			if _, ok := b.(env.SymbolMacro); ok {
				return w.form(setqToSetf(args), e, depth)
			}
		}
	}
	out := []types.Value{l.At(0)}
	for i := 0; i < len(args); i += 2 {
		v, err := w.form(args[i+1], e, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, args[i], v)
	}
	return types.NewList(out...), nil
}

func setqToSetf(args []types.Value) types.Value {
	out := []types.Value{types.Intern("progn")}
	for i := 0; i < len(args); i += 2 {
		out = append(out, types.L("setf", args[i], args[i+1]))
	}
	return types.NewList(out...)
}

func (w *walker) let(l types.List, m match.Bindings, e *env.Environment, depth int) (types.Value, error) {
	frame := env.Frame{}
	var bindings []types.Value
	for _, g := range m.Groups("binding") {
		v, _ := g.Symbol("var")
		frame[v] = env.Variable{}
		if !g.Present("init") {
			bindings = append(bindings, v)
			continue
		}
		init, err := w.form(g.Get("init"), e, depth)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, types.NewList(v, init))
	}
	body, err := w.forms(StripDeclarations(m.List("body")), env.Extend(e, frame), depth)
	if err != nil {
		return nil, err
	}
	return types.NewList(append([]types.Value{l.At(0), types.NewList(bindings...)}, body...)...), nil
}

func (w *walker) localFunctions(head types.Symbol, m match.Bindings, e *env.Environment, depth int) (types.Value, error) {
	frame := env.Frame{}
	for _, g := range m.Groups("def") {
		name, _ := g.Symbol("name")
		frame[name] = env.Function{}
	}
	inner := env.Extend(e, frame)
	fnEnv := e
	if head.Name == "labels" {
		fnEnv = inner
	}
	var defs []types.Value
	for _, g := range m.Groups("def") {
		ll, body, err := w.lambda(g.Get("lambda-list"), g.List("fbody"), fnEnv, depth)
		if err != nil {
			return nil, err
		}
		defs = append(defs, types.NewList(append([]types.Value{g.Get("name"), ll}, body...)...))
	}
	body, err := w.forms(StripDeclarations(m.List("body")), inner, depth)
	if err != nil {
		return nil, err
	}
	return types.NewList(append([]types.Value{head, types.NewList(defs...)}, body...)...), nil
}

func (w *walker) macrolet(m match.Bindings, e *env.Environment, depth int) (types.Value, error) {
	frame := env.Frame{}
	for _, g := range m.Groups("def") {
		name, _ := g.Symbol("name")
		fn, err := w.x.templateMacro(name, g.Get("lambda-list"), g.List("fbody"))
		if err != nil {
			return nil, err
		}
		frame[name] = env.Macro{Expand: fn}
	}
	return w.progn(m.List("body"), env.Extend(e, frame), depth)
}

func (w *walker) symbolMacrolet(m match.Bindings, e *env.Environment, depth int) (types.Value, error) {
	frame := env.Frame{}
	for _, g := range m.Groups("def") {
		name, _ := g.Symbol("name")
		frame[name] = env.SymbolMacro{Expansion: g.Get("expansion")}
	}
	return w.progn(m.List("body"), env.Extend(e, frame), depth)
}

func (w *walker) progn(body []types.Value, e *env.Environment, depth int) (types.Value, error) {
	forms, err := w.forms(StripDeclarations(body), e, depth)
	if err != nil {
		return nil, err
	}
	return types.NewList(append([]types.Value{types.Intern("progn")}, forms...)...), nil
}

// tagbody walks the statements of a tagbody. Tags are left alone; a
// statement that expands to an atom is wrapped so it is not taken for a
// tag.
func (w *walker) tagbody(l types.List, e *env.Environment, depth int) (types.Value, error) {
	out := []types.Value{l.At(0)}
	for _, item := range l.Rest().Elements() {
		switch item.(type) {
		case types.Symbol, types.IntValue:
			out = append(out, item)
			continue
		case types.List:
		default:
			return nil, errorf(item, "invalid tagbody statement")
		}
		r, err := w.form(item, e, depth)
		if err != nil {
			return nil, err
		}
		if types.IsAtom(r) {
			r = types.L("progn", r)
		}
		out = append(out, r)
	}
	return types.NewList(out...), nil
}
