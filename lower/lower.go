package lower

import (
	"lispc/env"
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

const msgUndefinedVariable = "undefined variable"

// Result is what an operator produces: a *Lowered or a *Rewrite.
type Result interface {
	result()
}

// Lowered is a form lowered to IR. Prologue statements run before Value
// is evaluated. Value is nil only in tail position when the prologue has
// already transferred control, by returning or raising.
type Lowered struct {
	Prologue []types.Value
	Value    types.Value
}

// Rewrite replaces a form by another form to lower in its place. A
// non-nil Env replaces the environment for the new form.
type Rewrite struct {
	Form  types.Value
	Env   *env.Environment
	Extra Extra
}

func (*Lowered) result() {}
func (*Rewrite) result() {}

func value(v types.Value) *Lowered {
	return &Lowered{Value: v}
}

func rewrite(form types.Value) *Rewrite {
	return &Rewrite{Form: form}
}

// Lower lowers form, following rewrites until an operator lowers
// directly.
func (c Context) Lower(form types.Value) (*Lowered, error) {
	orig := form
	for i := 0; i < maxRewrites; i++ {
		r, err := c.lower1(form)
		if err != nil {
			return nil, err
		}
		switch x := r.(type) {
		case *Lowered:
			return x, nil
		case *Rewrite:
			c.s.lw.tracer.Rewrite(operatorName(form), form, x.Form)
			form = x.Form
			if x.Env != nil {
				c.Env = x.Env
			}
			c.extra = x.Extra
		}
	}
	return nil, errorf(KindInternal, orig, "rewriting does not terminate")
}

func operatorName(form types.Value) string {
	if head, ok := types.HeadSymbol(form); ok {
		return head.Name
	}
	if s, ok := form.(types.Symbol); ok {
		return s.Name
	}
	return form.Type().String()
}

func (c Context) lower1(form types.Value) (Result, error) {
	switch f := form.(type) {
	case types.Symbol:
		return c.symbol(f)
	case types.List:
		if f.Len() == 0 {
			return value(ir.Nil()), nil
		}
		switch head := f.At(0).(type) {
		case types.Symbol:
			if op, ok := c.Registry().Lookup(head); ok {
				r := match.Validate(op.Shape(), f)
				if !r.OK() {
					return nil, errorf(KindSyntax, f, "malformed %s: %s", head.Name, r.Failure)
				}
				c.s.lw.tracer.Lower(head.Name, f)
				return op.Lower(c, r.Bindings, f)
			}
			return c.call(head, f)
		case types.List:
			if types.IsCall(head, "lambda") {
				call := append([]types.Value{symFuncall, types.NewList(symFunction, head)}, f.Rest().Elements()...)
				return rewrite(types.NewList(call...)), nil
			}
		}
		return nil, errorf(KindSyntax, f, "illegal function call")
	}
	return value(ir.Const(form)), nil
}

func (c Context) symbol(s types.Symbol) (Result, error) {
	if s.IsKeyword() {
		return value(ir.Const(s)), nil
	}
	b, ok := c.Env.Variable(s)
	if !ok {
		if s == types.NilSym || s == types.TSym {
			return value(ir.Const(s)), nil
		}
		c.Warn(s, msgUndefinedVariable)
		return value(globalRef(s)), nil
	}
	switch x := b.(type) {
	case env.Variable:
		return value(ir.Name(x.Ident)), nil
	case env.Constant:
		return value(ir.Const(x.Value)), nil
	case env.SymbolMacro:
		return rewrite(x.Expansion), nil
	}
	return value(globalRef(s)), nil
}

func globalRef(s types.Symbol) types.Value {
	return ir.CallRT("symbol_value", ir.Const(s))
}

// isPure reports whether evaluating the expression e can be skipped
// without changing the program.
func isPure(e types.Value) bool {
	switch {
	case ir.IsKind(e, "Name"), ir.IsKind(e, "Const"), ir.IsKind(e, "Lambda"):
		return true
	case ir.IsKind(e, "Attribute"):
		return isPure(ir.FieldOf(e, "value"))
	}
	return false
}

// hoistable reports whether stmts only define functions, so they can run
// before a conditional without changing its meaning.
func hoistable(stmts []types.Value) bool {
	for _, s := range stmts {
		if !ir.IsKind(s, "FunctionDef") {
			return false
		}
	}
	return true
}

// forEffect lowers forms whose values are discarded.
func (c Context) forEffect(forms []types.Value) ([]types.Value, error) {
	var out []types.Value
	for _, f := range forms {
		if !c.Effects(f) {
			c.s.lw.tracer.Rewrite("elide", f, types.NilSym)
			continue
		}
		l, err := c.Value().Lower(f)
		if err != nil {
			return nil, err
		}
		out = append(out, l.Prologue...)
		if l.Value != nil && !isPure(l.Value) {
			out = append(out, ir.ExprStmt(l.Value))
		}
	}
	return out, nil
}

// lowerArgs lowers forms evaluated left to right, such as call
// arguments. A value computed before a later argument's prologue is saved
// in a temporary unless that prologue cannot disturb it.
func (c Context) lowerArgs(forms []types.Value) ([]types.Value, []types.Value, error) {
	ls := make([]*Lowered, len(forms))
	for i, f := range forms {
		l, err := c.Value().Lower(f)
		if err != nil {
			return nil, nil, err
		}
		ls[i] = l
	}
	prologue, vals := c.sequence(forms, ls)
	return prologue, vals, nil
}

// sequence orders the lowered forms ls for left to right evaluation.
func (c Context) sequence(forms []types.Value, ls []*Lowered) ([]types.Value, []types.Value) {
	last := -1
	for i, l := range ls {
		if len(l.Prologue) > 0 {
			last = i
		}
	}
	var prologue []types.Value
	vals := make([]types.Value, len(forms))
	for i, l := range ls {
		prologue = append(prologue, l.Prologue...)
		v := l.Value
		if i < last && !ir.IsKind(v, "Const") && (c.Effects(forms[i]) || c.Affected(forms[i])) {
			tmp := c.Temp("arg")
			prologue = append(prologue, ir.Assign(ir.Name(tmp), v))
			v = ir.Name(tmp)
		}
		vals[i] = v
	}
	return prologue, vals
}

// operator returns the operator of a well-formed operator form.
func (c Context) operator(form types.Value) (Operator, match.Bindings, bool) {
	head, ok := types.HeadSymbol(form)
	if !ok {
		return nil, match.Bindings{}, false
	}
	op, ok := c.Registry().Lookup(head)
	if !ok {
		return nil, match.Bindings{}, false
	}
	r := match.Validate(op.Shape(), form)
	if !r.OK() {
		return nil, match.Bindings{}, false
	}
	return op, r.Bindings, true
}

// Effects reports whether evaluating form may have side effects.
func (c Context) Effects(form types.Value) bool {
	switch f := form.(type) {
	case types.Symbol:
		if b, ok := c.Env.Variable(f); ok {
			if sm, ok := b.(env.SymbolMacro); ok {
				return c.Effects(sm.Expansion)
			}
		}
		return false
	case types.List:
		if f.Len() == 0 {
			return false
		}
		if op, m, ok := c.operator(f); ok {
			return op.Effects(c, m)
		}
		return true
	}
	return false
}

// Affected reports whether the value of form may depend on state that
// other forms can change.
func (c Context) Affected(form types.Value) bool {
	switch f := form.(type) {
	case types.Symbol:
		if f.IsKeyword() {
			return false
		}
		b, ok := c.Env.Variable(f)
		if !ok {
			return f != types.NilSym && f != types.TSym
		}
		switch x := b.(type) {
		case env.Constant:
			return false
		case env.SymbolMacro:
			return c.Affected(x.Expansion)
		}
		return true
	case types.List:
		if f.Len() == 0 {
			return false
		}
		if op, m, ok := c.operator(f); ok {
			return op.Affected(c, m)
		}
		return true
	}
	return false
}

// NValues returns how many values form produces, or -1 if unknown.
func (c Context) NValues(form types.Value) int {
	if l, ok := form.(types.List); ok && l.Len() > 0 {
		if op, m, ok := c.operator(l); ok {
			return op.NValues(c, m)
		}
		return -1
	}
	return 1
}

// NthValue returns a form computing the nth value of form when it can be
// determined at compile time.
func (c Context) NthValue(form types.Value, n int) (types.Value, bool) {
	if op, m, ok := c.operator(form); ok {
		if v, ok := op.NthValue(c, m, n); ok {
			return v, true
		}
	}
	if c.NValues(form) == 1 {
		if n == 0 {
			return form, true
		}
		return types.NewList(symProgn, form, types.NilSym), true
	}
	return nil, false
}

// anyForm reports whether pred holds for any of forms.
func anyForm(forms []types.Value, pred func(types.Value) bool) bool {
	for _, f := range forms {
		if pred(f) {
			return true
		}
	}
	return false
}
