package lower

import (
	"lispc/env"
	"lispc/ir"
	"lispc/match"
	"lispc/types"
)

type blockOp struct{ base }

// escapes reports whether forms contain a return-from naming name.
// Quoted data is skipped; anything else is searched, so the answer may
// be a false positive but never a false negative.
func escapes(name types.Symbol, forms []types.Value) bool {
	for _, f := range forms {
		l, ok := f.(types.List)
		if !ok || l.Len() == 0 || l.At(0) == symQuote {
			continue
		}
		if l.At(0) == symReturnFrom && l.Len() >= 2 && l.At(1) == name {
			return true
		}
		if escapes(name, l.Elements()) {
			return true
		}
	}
	return false
}

func (blockOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	name, _ := m.Symbol("name")
	body := m.List("body")
	if !escapes(name, body) {
		return rewrite(prepend(symProgn, body)), nil
	}
	token := types.Gensym(name.Name)
	catch := prepend(symCatch, append([]types.Value{quote(token)}, body...))
	return &Rewrite{Form: catch, Env: c.Env.Bind(name, env.Block{Token: token})}, nil
}

func (blockOp) Binds(_ Context, m match.Bindings) env.Frame {
	name, _ := m.Symbol("name")
	return env.Frame{name: env.Block{}}
}

func (blockOp) NValues(c Context, m match.Bindings) int {
	name, _ := m.Symbol("name")
	if escapes(name, m.List("body")) {
		return -1
	}
	return c.NValues(progn(m.List("body")))
}

type returnFromOp struct{ base }

func (returnFromOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	name, _ := m.Symbol("name")
	b, ok := c.Env.Lookup(env.Blocks, name)
	if !ok {
		return nil, errorf(KindSemantic, form, "return-from unknown block %s", name)
	}
	v := m.Get("value")
	if v == nil {
		v = types.NilSym
	}
	return rewrite(list(symThrow, quote(b.(env.Block).Token), v)), nil
}

// tagKey maps a go tag to the symbol it is bound under. Integer tags get
// symbols of their own package so they cannot collide with symbol tags.
func tagKey(tag types.Value) types.Symbol {
	if s, ok := tag.(types.Symbol); ok {
		return s
	}
	return types.InternIn("%TAG", tag.String())
}

type tagbodyOp struct{ base }

func (tagbodyOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	segments := [][]types.Value{nil}
	frame := env.Frame{}
	token := types.Gensym("tagbody")
	for _, item := range m.List("item") {
		if _, ok := item.(types.List); ok {
			segments[len(segments)-1] = append(segments[len(segments)-1], item)
			continue
		}
		key := tagKey(item)
		if _, dup := frame[key]; dup {
			return nil, errorf(KindSemantic, form, "tag %s appears twice", item)
		}
		frame[key] = env.Tag{Token: token, Index: len(segments)}
		segments = append(segments, nil)
	}
	if len(segments) == 1 {
		return rewrite(prepend(symProgn, append(segments[0], types.NilSym))), nil
	}

	// Each segment becomes a function that runs its statements and falls
	// through to the next one. A go throws the index of its segment to a
	// loop that calls that segment's function.
	pc := types.Gensym("pc")
	exit := types.Gensym("exit")
	fns := make([]types.Symbol, len(segments))
	for i := range segments {
		fns[i] = types.Gensym("seg")
	}
	defs := make([]types.Value, len(segments))
	for i, stmts := range segments {
		var next types.Value = types.NilSym
		if i+1 < len(segments) {
			next = list(fns[i+1])
		}
		defs[i] = prepend(fns[i], append([]types.Value{types.Nil}, append(stmts, next)...))
	}
	var dispatch types.Value = list(fns[len(fns)-1])
	for i := len(fns) - 2; i >= 0; i-- {
		dispatch = list(symIf, list(symEql, pc, types.NewInt(int64(i))), list(fns[i]), dispatch)
	}
	loop := list(symLoop, list(symSetq, pc, list(symCatch, quote(token), dispatch, list(symReturnFrom, exit, types.NilSym))))
	out := list(symLet, list(list(pc, types.NewInt(0))),
		list(symLabels, types.NewList(defs...), list(symBlock, exit, loop)))
	return &Rewrite{Form: out, Env: env.Extend(c.Env, frame)}, nil
}

func (tagbodyOp) Binds(_ Context, m match.Bindings) env.Frame {
	frame := env.Frame{}
	for _, item := range m.List("item") {
		if _, ok := item.(types.List); !ok {
			frame[tagKey(item)] = env.Tag{}
		}
	}
	return frame
}

func (tagbodyOp) NValues(Context, match.Bindings) int { return 1 }

type goOp struct{ base }

func (goOp) Lower(c Context, m match.Bindings, form types.List) (Result, error) {
	b, ok := c.Env.Lookup(env.Tags, tagKey(m.Get("tag")))
	if !ok {
		return nil, errorf(KindSemantic, form, "go to unknown tag %s", m.Get("tag"))
	}
	t := b.(env.Tag)
	return rewrite(list(symThrow, quote(t.Token), types.NewInt(int64(t.Index)))), nil
}

type catchOp struct{ base }

func (catchOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	t, err := c.Value().Lower(m.Get("tag"))
	if err != nil {
		return nil, err
	}
	prologue, tag := t.Prologue, t.Value
	if !ir.IsKind(tag, "Const") {
		tmp := c.Temp("tag")
		prologue = append(prologue, ir.Assign(ir.Name(tmp), tag))
		tag = ir.Name(tmp)
	}
	body, err := c.Value().Lower(prepend(symProgn, m.List("body")))
	if err != nil {
		return nil, err
	}
	res, exc := c.Temp("result"), c.Temp("exc")
	try := append(body.Prologue, ir.Assign(ir.Name(res), body.Value))
	handler := ir.ExceptHandler(ir.RT("Throw"), exc,
		ir.Assign(ir.Name(res), ir.CallRT("catch_value", ir.Name(exc), tag)))
	prologue = append(prologue, ir.Try(try, []types.Value{handler}, nil))
	return &Lowered{Prologue: prologue, Value: ir.Name(res)}, nil
}

type throwOp struct{ base }

func (throwOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	prologue, vals, err := c.lowerArgs([]types.Value{m.Get("tag"), m.Get("value")})
	if err != nil {
		return nil, err
	}
	prologue = append(prologue, ir.Raise(ir.CallRT("Throw", vals[0], vals[1])))
	if c.Tail {
		return &Lowered{Prologue: prologue}, nil
	}
	return &Lowered{Prologue: prologue, Value: ir.Nil()}, nil
}

type unwindProtectOp struct{ base }

func (unwindProtectOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	if len(m.List("cleanup")) == 0 {
		return rewrite(m.Get("protected")), nil
	}
	// The protected form yields the values of the whole form.
	p, err := c.Last().Lower(m.Get("protected"))
	if err != nil {
		return nil, err
	}
	cleanup, err := c.forEffect(m.List("cleanup"))
	if err != nil {
		return nil, err
	}
	if len(cleanup) == 0 {
		return p, nil
	}
	if p.Value == nil {
		return &Lowered{Prologue: []types.Value{ir.Try(p.Prologue, nil, cleanup)}}, nil
	}
	res := c.Temp("result")
	body := append(p.Prologue, ir.Assign(ir.Name(res), p.Value))
	return &Lowered{Prologue: []types.Value{ir.Try(body, nil, cleanup)}, Value: ir.Name(res)}, nil
}

func (unwindProtectOp) NValues(c Context, m match.Bindings) int {
	return c.NValues(m.Get("protected"))
}

type loopOp struct{ base }

func (loopOp) Lower(c Context, m match.Bindings, _ types.List) (Result, error) {
	body, err := c.forEffect(m.List("body"))
	if err != nil {
		return nil, err
	}
	return &Lowered{Prologue: []types.Value{ir.While(ir.Const(types.TSym), body...)}, Value: ir.Nil()}, nil
}
