package match

import "lispc/types"

// Failure identifies the sub-form and sub-pattern where a match failed.
// Input is nil when the pattern expected an element the input lacked;
// Pattern is nil when the input had elements the pattern did not expect.
type Failure struct {
	Input   types.Value
	Pattern Pattern
}

func (f *Failure) String() string {
	in, pat := "<missing>", "<end>"
	if f.Input != nil {
		in = f.Input.String()
	}
	if f.Pattern != nil {
		pat = f.Pattern.String()
	}
	return in + " does not match " + pat
}

// Result is the outcome of a match
type Result struct {
	Bindings Bindings
	Output   interface{}
	Failure  *Failure
}

// OK reports whether the match succeeded
func (r Result) OK() bool {
	return r.Failure == nil
}

// Part is one element of a matched list as seen by a Flavor: either the
// output of a sub-match or a print directive.
type Part struct {
	Out       interface{}
	Directive *Directive
}

// Flavor supplies the production and combination steps of a match.
type Flavor interface {
	// Leaf produces the output of a form matched by an atom-level pattern.
	Leaf(x types.Value) interface{}
	// List combines the outputs of the elements of a matched list.
	List(x types.Value, parts []Part) interface{}
	// Recover is consulted when a list pattern fails against x. Tolerant
	// flavors produce a substitute output and report true.
	Recover(x types.Value) (interface{}, bool)
}

// Match matches input against p. It is referentially transparent: no
// state survives between calls.
func Match(fl Flavor, p Pattern, input types.Value) Result {
	m := &matcher{flavor: fl}
	b, out, f := m.one(p, input, Bindings{}, true)
	if f != nil {
		return Result{Failure: f}
	}
	return Result{Bindings: b, Output: out}
}

// Validate matches with the destructuring flavor
func Validate(p Pattern, input types.Value) Result {
	return Match(Validator{}, p, input)
}

type matcher struct {
	flavor Flavor
}

// one matches a single form. tolerant enables the flavor's Recover hook;
// alternation branches are tried with it disabled so that a tolerant
// flavor cannot hide a later branch that matches.
func (m *matcher) one(p Pattern, x types.Value, b Bindings, tolerant bool) (Bindings, interface{}, *Failure) {
	switch q := p.(type) {
	case Any, *Any:
		return b, m.flavor.Leaf(x), nil
	case *Literal:
		if x.Equal(q.Value) {
			return b, m.flavor.Leaf(x), nil
		}
		return b, nil, &Failure{Input: x, Pattern: p}
	case *Pred:
		if q.Test(x) {
			return b, m.flavor.Leaf(x), nil
		}
		return b, nil, &Failure{Input: x, Pattern: p}
	case *Name:
		sub := q.Sub
		if sub == nil {
			sub = Any{}
		}
		b1, out, f := m.one(sub, x, b, tolerant)
		if f != nil {
			return b, nil, f
		}
		return b1.with(q.Name, x), out, nil
	case *Seq:
		var elems []types.Value
		switch l := x.(type) {
		case types.List:
			elems = l.Elements()
		case types.Symbol:
			if l != types.NilSym {
				return m.recoverOr(x, b, tolerant, &Failure{Input: x, Pattern: p})
			}
		default:
			return m.recoverOr(x, b, tolerant, &Failure{Input: x, Pattern: p})
		}
		b1, parts, f := m.seq(q.Elems, elems, b, tolerant)
		if f != nil {
			if f.Pattern == nil && f.Input != nil {
				f = &Failure{Input: f.Input, Pattern: p}
			}
			return m.recoverOr(x, b, tolerant, f)
		}
		return b1, m.flavor.List(x, parts), nil
	case *Alt:
		for _, br := range q.Branches {
			if b1, out, f := m.one(br, x, b, false); f == nil {
				return b1, out, nil
			}
		}
		return m.recoverOr(x, b, tolerant, &Failure{Input: x, Pattern: p})
	}
	// Fragments cannot match a single form
	return b, nil, &Failure{Input: x, Pattern: p}
}

func (m *matcher) recoverOr(x types.Value, b Bindings, tolerant bool, f *Failure) (Bindings, interface{}, *Failure) {
	if tolerant {
		if out, ok := m.flavor.Recover(x); ok {
			return b, out, nil
		}
	}
	return b, nil, f
}

// seq matches the sibling run xs against ps.
func (m *matcher) seq(ps []Pattern, xs []types.Value, b Bindings, tolerant bool) (Bindings, []Part, *Failure) {
	if len(ps) == 0 {
		if len(xs) == 0 {
			return b, nil, nil
		}
		return b, nil, &Failure{Input: xs[0]}
	}
	switch p := ps[0].(type) {
	case *Directive:
		b1, parts, f := m.seq(ps[1:], xs, b, tolerant)
		if f != nil {
			return b, nil, f
		}
		return b1, append([]Part{{Directive: p}}, parts...), nil
	case *Segment:
		return m.segment(p, ps[1:], xs, b, tolerant)
	}
	if len(xs) == 0 {
		return b, nil, &Failure{Pattern: ps[0]}
	}
	b1, out, f := m.one(ps[0], xs[0], b, tolerant)
	if f != nil {
		return b, nil, f
	}
	b2, parts, f := m.seq(ps[1:], xs[1:], b1, tolerant)
	if f != nil {
		return b, nil, f
	}
	return b2, append([]Part{{Out: out}}, parts...), nil
}

// anchor returns the literal that must immediately follow a segment, if
// the remaining patterns start with one.
func anchor(rest []Pattern) (*Literal, bool) {
	for _, p := range rest {
		switch q := p.(type) {
		case *Directive:
			continue
		case *Literal:
			return q, true
		}
		return nil, false
	}
	return nil, false
}

// segment tries increasing prefix lengths for seg, recursing on the
// remainder and extending the prefix when the remainder fails. The first
// candidate length is the position of the next constant anchor in xs, or
// the segment minimum when there is no anchor.
func (m *matcher) segment(seg *Segment, rest []Pattern, xs []types.Value, b Bindings, tolerant bool) (Bindings, []Part, *Failure) {
	lo := seg.Min
	if w, ok := width(seg.Body); ok {
		lo *= w
	}
	hi := len(xs)
	if lit, ok := anchor(rest); ok {
		idx := -1
		for i := lo; i < len(xs); i++ {
			if xs[i].Equal(lit.Value) {
				idx = i
				break
			}
		}
		if idx < 0 {
			var in types.Value
			if len(xs) > 0 {
				in = xs[len(xs)-1]
			}
			return b, nil, &Failure{Input: in, Pattern: lit}
		}
		lo = idx
	}
	if lo > hi {
		return b, nil, &Failure{Pattern: seg}
	}

	var last *Failure
	for n := lo; n <= hi; n++ {
		reps, parts, f := m.repeat(seg, xs[:n], 0, tolerant)
		if f != nil {
			last = f
			continue
		}
		b1 := b.merge(seg, reps)
		b2, restParts, f := m.seq(rest, xs[n:], b1, tolerant)
		if f != nil {
			last = f
			continue
		}
		return b2, append(parts, restParts...), nil
	}
	return b, nil, last
}

// repeat matches xs as whole repetitions of seg's body. Every repetition
// consumes at least one element.
func (m *matcher) repeat(seg *Segment, xs []types.Value, count int, tolerant bool) ([]Bindings, []Part, *Failure) {
	if len(xs) == 0 {
		if count < seg.Min {
			return nil, nil, &Failure{Pattern: seg}
		}
		return nil, nil, nil
	}
	if seg.Max >= 0 && count >= seg.Max {
		return nil, nil, &Failure{Input: xs[0], Pattern: seg}
	}

	lo, hi := 1, len(xs)
	if w, ok := width(seg.Body); ok {
		if w == 0 || w > len(xs) {
			return nil, nil, &Failure{Input: xs[0], Pattern: seg}
		}
		lo, hi = w, w
	}

	var last *Failure
	for k := lo; k <= hi; k++ {
		rb, parts, f := m.seq(seg.Body, xs[:k], Bindings{}, tolerant)
		if f != nil {
			last = f
			continue
		}
		more, moreParts, f := m.repeat(seg, xs[k:], count+1, tolerant)
		if f != nil {
			last = f
			continue
		}
		return append([]Bindings{rb}, more...), append(parts, moreParts...), nil
	}
	return nil, nil, last
}
