package expand

import "lispc/types"

var (
	symQuote           = types.Intern("quote")
	symQuasiquote      = types.Intern("quasiquote")
	symUnquote         = types.Intern("unquote")
	symUnquoteSplicing = types.Intern("unquote-splicing")
	symList            = types.Intern("list")
	symAppend          = types.Intern("append")
)

// Quasiquote rewrites every backquoted template in form into ordinary list
// construction code. Quoted data is left alone. Adjacent constant parts of
// a template are merged into one quoted list.
func Quasiquote(form types.Value) (types.Value, error) {
	l, ok := form.(types.List)
	if !ok || l.Len() == 0 {
		return form, nil
	}
	switch l.At(0) {
	case symQuote:
		return form, nil
	case symQuasiquote:
		if l.Len() != 2 {
			return nil, errorf(form, "malformed quasiquote")
		}
		return qq(l.At(1), 1)
	case symUnquote, symUnquoteSplicing:
		return nil, errorf(form, "comma outside backquote")
	}
	out := make([]types.Value, l.Len())
	for i, x := range l.Elements() {
		y, err := Quasiquote(x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return types.NewList(out...), nil
}

func quote(v types.Value) types.Value {
	return types.NewList(symQuote, v)
}

// qq returns code that builds x, a template at the given nesting depth.
func qq(x types.Value, depth int) (types.Value, error) {
	l, ok := x.(types.List)
	if !ok || l.Len() == 0 {
		if types.IsSelfEvaluating(x) {
			return x, nil
		}
		return quote(x), nil
	}
	if l.Len() == 2 {
		switch l.At(0) {
		case symUnquote:
			if depth == 1 {
				return Quasiquote(l.At(1))
			}
			inner, err := qq(l.At(1), depth-1)
			if err != nil {
				return nil, err
			}
			return types.NewList(symList, quote(symUnquote), inner), nil
		case symUnquoteSplicing:
			if depth == 1 {
				return nil, errorf(x, ",@ not inside a list")
			}
			inner, err := qq(l.At(1), depth-1)
			if err != nil {
				return nil, err
			}
			return types.NewList(symList, quote(symUnquoteSplicing), inner), nil
		case symQuasiquote:
			inner, err := qq(l.At(1), depth+1)
			if err != nil {
				return nil, err
			}
			return types.NewList(symList, quote(symQuasiquote), inner), nil
		}
	}

	var segments, pending []types.Value
	flush := func() {
		if len(pending) > 0 {
			segments = append(segments, listOf(pending))
			pending = nil
		}
	}
	for _, e := range l.Elements() {
		if types.IsCall(e, "unquote-splicing") && depth == 1 {
			el := e.(types.List)
			if el.Len() != 2 {
				return nil, errorf(e, "malformed ,@")
			}
			flush()
			code, err := Quasiquote(el.At(1))
			if err != nil {
				return nil, err
			}
			segments = append(segments, code)
			continue
		}
		item, err := qq(e, depth)
		if err != nil {
			return nil, err
		}
		pending = append(pending, item)
	}
	flush()
	if len(segments) == 1 {
		return segments[0], nil
	}
	return types.NewList(append([]types.Value{symAppend}, segments...)...), nil
}

// listOf returns code building a list of the values of items, as a single
// quoted list when every item is constant.
func listOf(items []types.Value) types.Value {
	data := make([]types.Value, len(items))
	for i, it := range items {
		d, ok := constantValue(it)
		if !ok {
			return types.NewList(append([]types.Value{symList}, items...)...)
		}
		data[i] = d
	}
	return quote(types.NewList(data...))
}

// constantValue returns the value of a form known at compile time.
func constantValue(form types.Value) (types.Value, bool) {
	if types.IsSelfEvaluating(form) {
		return form, true
	}
	if l, ok := form.(types.List); ok && l.Len() == 2 && l.At(0) == symQuote {
		return l.At(1), true
	}
	return nil, false
}
