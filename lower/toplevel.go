package lower

import (
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

// defunOp defines a global function: the function is bound to its
// module identifier and registered with the runtime under its name.
type defunOp struct{ base }

func (defunOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	name, _ := m.Symbol("name")
	ident := ir.FunctionIdent(name)
	l, err := c.function(fnSpec{
		display: name.String(),
		ident:   ident,
		env:     c.Env,
		ll:      m.Get("lambda-list"),
		body:    m.List("body"),
	})
	if err != nil {
		return nil, err
	}
	c.s.define(name)
	prologue := append(l.Prologue, ir.ExprStmt(ir.CallRT("set_function", ir.Const(name), ir.Name(ident))))
	return &Lowered{Prologue: prologue, Value: ir.Const(name)}, nil
}

func (defunOp) NValues(Context, match.Bindings) int { return 1 }

// defvarOp proclaims a special variable. Without a mode the value is
// stored only if the variable is unbound; :always stores it regardless
// and :constant makes it a constant.
type defvarOp struct{ base }

var defvarHelpers = map[string]string{
	"":         "defvar",
	"always":   "defparameter",
	"constant": "defconstant",
}

func (defvarOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	name, _ := m.Symbol("name")
	mode := ""
	if k, ok := m.Symbol("mode"); ok && !types.IsNil(k) {
		mode = k.Name
	}
	helper, ok := defvarHelpers[mode]
	if !ok {
		return nil, errorf(KindSyntax, form, "unknown definition mode :%s", mode)
	}
	c.s.variables[name] = true

	args := []types.Value{ir.Const(name)}
	var prologue []types.Value
	if form.Len() > 2 {
		l, err := c.Value().Lower(m.Get("value"))
		if err != nil {
			return nil, err
		}
		prologue = l.Prologue
		args = append(args, l.Value)
	}
	prologue = append(prologue, ir.ExprStmt(ir.CallRT(helper, args...)))
	return &Lowered{Prologue: prologue, Value: ir.Const(name)}, nil
}

func (defvarOp) NValues(Context, match.Bindings) int { return 1 }
