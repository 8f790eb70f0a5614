package lower

import (
	"lispc/env"
	"lispc/expand"
	"lispc/ir"
	"lispc/match"
	"lispc/metasex"
	"lispc/types"
)

var lambdaShape = metasex.Lambda()

type functionOp struct{ base }

func (functionOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	switch x := form.At(1).(type) {
	case types.Symbol:
		return value(c.functionRef(x)), nil
	case types.List:
		switch {
		case types.IsCall(x, "setf"):
			return value(c.globalFunction(x)), nil
		case types.IsCall(x, "%named-lambda"):
			name, _ := m.Symbol("fname")
			ident := c.functionIdent(name)
			return c.function(fnSpec{
				display: name.Name,
				ident:   ident,
				env:     c.Env.Bind(name, env.Function{Ident: ident}),
				ll:      m.Get("lambda-list"),
				body:    m.List("body"),
			})
		}
	}
	return c.function(fnSpec{
		display: "lambda",
		env:     c.Env,
		fnames:  c.Extra().FunctionNames,
		ll:      m.Get("lambda-list"),
		body:    m.List("body"),
	})
}

func (functionOp) NValues(Context, match.Bindings) int   { return 1 }
func (functionOp) Effects(Context, match.Bindings) bool  { return false }
func (functionOp) Affected(Context, match.Bindings) bool { return false }

// fnSpec describes a function literal to lower.
type fnSpec struct {
	display string // name used in traces and instrumentation
	ident   string // empty for an anonymous function
	env     *env.Environment
	fnames  bool // parameters bind local functions
	ll      types.Value
	body    []types.Value
}

// params is a lowered lambda list.
type params struct {
	names    []string
	defaults []types.Value
	rest     string
	preamble []types.Value
	specials [][2]types.Value
	env      *env.Environment
}

func (p *params) node() types.Value {
	return ir.Params(p.names, p.defaults, p.rest)
}

func (p *params) idents() []string {
	if p.rest == "" {
		return p.names
	}
	return append(append([]string(nil), p.names...), p.rest)
}

// bind binds one parameter and returns its identifier. A special
// parameter is received in a fresh variable and rebound around the body.
func (c Context) bind(p *params, s types.Symbol, fnames bool) string {
	if fnames {
		ident := c.functionIdent(s)
		p.env = p.env.Bind(s, env.Function{Ident: ident})
		return ident
	}
	if b, ok := p.env.Variable(s); ok {
		if _, special := b.(env.Special); special {
			g := types.Gensym(s.Name)
			p.specials = append(p.specials, [2]types.Value{s, g})
			s = g
		}
	}
	ident := c.variableIdent(s)
	p.env = p.env.Bind(s, env.Variable{Ident: ident})
	return ident
}

// lambdaList lowers ll. Parameters are bound left to right, so an
// optional parameter's default sees the parameters before it. A constant
// default goes in the parameter list; any other default is computed in
// the preamble when the argument is missing.
func (c Context) lambdaList(spec fnSpec) (*params, error) {
	r := match.Validate(lambdaShape, spec.ll)
	if !r.OK() {
		return nil, errorf(KindSyntax, spec.ll, "malformed lambda list: %s", r.Failure)
	}
	m := r.Bindings
	p := &params{env: spec.env}
	seen := make(map[types.Symbol]bool)
	check := func(s types.Symbol) error {
		if seen[s] {
			return errorf(KindSemantic, spec.ll, "parameter %s repeated", s)
		}
		seen[s] = true
		return nil
	}

	for _, v := range m.List("req") {
		s := v.(types.Symbol)
		if err := check(s); err != nil {
			return nil, err
		}
		p.names = append(p.names, c.bind(p, s, spec.fnames))
	}
	for _, g := range m.Groups("optional") {
		s, _ := g.Symbol("var")
		if err := check(s); err != nil {
			return nil, err
		}
		init := g.Get("init")
		if init == nil {
			init = types.NilSym
		}
		scope := c.WithEnv(p.env).Value()
		ident := c.bind(p, s, spec.fnames)
		p.names = append(p.names, ident)
		if v, ok := scope.constant(init); ok {
			p.defaults = append(p.defaults, ir.Const(v))
			continue
		}
		l, err := scope.Lower(init)
		if err != nil {
			return nil, err
		}
		p.defaults = append(p.defaults, ir.RT("UNBOUND"))
		missing := ir.Compare("is", ir.Name(ident), ir.RT("UNBOUND"))
		p.preamble = append(p.preamble, ir.If(missing, append(l.Prologue, ir.Assign(ir.Name(ident), l.Value)), nil))
	}
	if m.Present("rest") {
		s, _ := m.Symbol("rest")
		if err := check(s); err != nil {
			return nil, err
		}
		p.rest = c.bind(p, s, spec.fnames)
		p.preamble = append(p.preamble, ir.Assign(ir.Name(p.rest), ir.CallRT("list", ir.Starred(ir.Name(p.rest)))))
	}
	return p, nil
}

// function lowers a function literal. The body is lowered once, in tail
// position; the declarations it needs are then settled by closure.
func (c Context) function(spec fnSpec) (*Lowered, error) {
	p, err := c.lambdaList(spec)
	if err != nil {
		return nil, err
	}
	body := expand.StripDeclarations(spec.body)
	if len(p.specials) > 0 {
		bindings := make([]types.Value, len(p.specials))
		for i, sg := range p.specials {
			bindings[i] = list(sg[0], sg[1])
		}
		body = []types.Value{prepend(symLet, append([]types.Value{types.NewList(bindings...)}, body...))}
	}
	l, err := c.WithEnv(p.env).Last().WithTail(true).Lower(progn(body))
	if err != nil {
		return nil, err
	}
	stmts := append(append([]types.Value(nil), p.preamble...), returning(l)...)
	decls, err := c.closure(spec.display, p.idents(), stmts)
	if err != nil {
		return nil, err
	}

	if spec.ident == "" && len(decls) == 0 && len(stmts) == 1 && ir.IsKind(stmts[0], "Return") {
		if v := ir.FieldOf(stmts[0], "value"); v != nil && !types.IsNil(v) {
			return value(ir.Lambda(p.node(), v)), nil
		}
	}
	ident := spec.ident
	if ident == "" {
		ident = c.Temp("fn")
	}
	full := append(decls, stmts...)
	if len(full) == 0 {
		full = []types.Value{ir.Return(ir.Nil())}
	}
	return &Lowered{Prologue: []types.Value{ir.FunctionDef(ident, p.node(), full...)}, Value: ir.Name(ident)}, nil
}

// thunk wraps the statements and value of a lowered form in a function
// of no arguments.
func (c Context) thunk(l *Lowered) (types.Value, []types.Value, error) {
	stmts := returning(l)
	decls, err := c.closure("thunk", nil, stmts)
	if err != nil {
		return nil, nil, err
	}
	empty := ir.Params(nil, nil, "")
	if len(decls) == 0 && len(stmts) == 1 && ir.IsKind(stmts[0], "Return") {
		if v := ir.FieldOf(stmts[0], "value"); v != nil && !types.IsNil(v) {
			return ir.Lambda(empty, v), nil, nil
		}
	}
	ident := c.Temp("thunk")
	return ir.Name(ident), []types.Value{ir.FunctionDef(ident, empty, append(decls, stmts...)...)}, nil
}

// closure computes the declarations heading a function body. Names the
// body assigns that belong to an enclosing function are declared
// nonlocal and global functions are declared global; with
// instrumentation the body also reports its externals on entry. The
// declarations change the externals, so the computation repeats until it
// settles. The externals of successive passes only grow.
func (c Context) closure(name string, paramIdents []string, body []types.Value) ([]types.Value, error) {
	outer := c.Env.Idents()
	own := ir.NewNames(paramIdents...)
	stat := FixpointStat{Function: name}
	var (
		decls []types.Value
		prev  ir.Names
	)
	for pass := 1; ; pass++ {
		if pass > c.s.lw.maxPasses {
			return nil, errorf(KindInternal, types.NewStr(name), "externals of %s did not settle in %d passes", name, c.s.lw.maxPasses)
		}
		sc := ir.ScopeOf(paramIdents, append(append([]types.Value(nil), decls...), body...))
		ext := sc.External()
		sorted := ext.Sorted()
		stat.Externals = append(stat.Externals, sorted)
		c.s.lw.tracer.Fixpoint(name, pass, sorted)
		if prev != nil && !prev.SubsetOf(ext) {
			return nil, errorf(KindInternal, types.NewStr(name), "externals of %s shrank", name)
		}
		prev = ext

		next := c.declarations(name, own, outer, sc)
		if sameForms(next, decls) {
			break
		}
		decls = next
	}
	c.s.fixpoints = append(c.s.fixpoints, stat)
	return decls, nil
}

func (c Context) declarations(name string, own ir.Names, outer map[string]bool, sc ir.Scope) []types.Value {
	var global, nonlocal []string
	for _, id := range sc.Bound.Union(sc.DeclaredOuter).Sorted() {
		switch {
		case ir.IsGlobalFunction(id):
			global = append(global, id)
		case outer[id] && !own.Has(id):
			nonlocal = append(nonlocal, id)
		}
	}
	var out []types.Value
	if len(global) > 0 {
		out = append(out, ir.Global(global...))
	}
	if len(nonlocal) > 0 {
		out = append(out, ir.Nonlocal(nonlocal...))
	}
	if c.s.lw.instrument {
		ext := sc.External().Sorted()
		names := make([]types.Value, len(ext))
		for i, id := range ext {
			names[i] = ir.Const(types.NewStr(id))
		}
		enter := ir.CallRT("trace_enter", ir.Const(types.NewStr(name)), ir.Tuple(names...))
		out = append(out, ir.ExprStmt(enter))
	}
	return out
}

func sameForms(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
