package match

import "lispc/types"

// Bindings maps pattern names to the sub-forms they matched. Names bound
// under an unbounded segment map to a list with one entry per repetition.
// Grouped segments keep one Bindings record per repetition. Bindings is
// immutable; every update returns a copy.
type Bindings struct {
	vals   map[string]types.Value
	groups map[string][]Bindings
}

// Get returns the form bound to name, or nil when unbound.
func (b Bindings) Get(name string) types.Value {
	return b.vals[name]
}

// Has reports whether name is bound.
func (b Bindings) Has(name string) bool {
	_, ok := b.vals[name]
	return ok
}

// Present reports whether name is bound to something other than nil.
// Optional names that did not match are bound to nil.
func (b Bindings) Present(name string) bool {
	v, ok := b.vals[name]
	return ok && !types.IsNil(v)
}

// Symbol returns the symbol bound to name.
func (b Bindings) Symbol(name string) (types.Symbol, bool) {
	s, ok := b.vals[name].(types.Symbol)
	return s, ok
}

// List returns the elements collected for a segment-bound name.
func (b Bindings) List(name string) []types.Value {
	if l, ok := b.vals[name].(types.List); ok {
		return l.Elements()
	}
	return nil
}

// Groups returns the per-repetition records of a grouped segment.
func (b Bindings) Groups(name string) []Bindings {
	return b.groups[name]
}

// Len returns the number of bound names.
func (b Bindings) Len() int {
	return len(b.vals)
}

func (b Bindings) with(name string, v types.Value) Bindings {
	vals := make(map[string]types.Value, len(b.vals)+1)
	for k, x := range b.vals {
		vals[k] = x
	}
	vals[name] = v
	return Bindings{vals: vals, groups: b.groups}
}

func (b Bindings) withGroups(name string, recs []Bindings) Bindings {
	groups := make(map[string][]Bindings, len(b.groups)+1)
	for k, x := range b.groups {
		groups[k] = x
	}
	groups[name] = append(append([]Bindings(nil), groups[name]...), recs...)
	return Bindings{vals: b.vals, groups: groups}
}

// merge folds the repetitions of seg into b.
func (b Bindings) merge(seg *Segment, reps []Bindings) Bindings {
	if seg.Group != "" {
		return b.withGroups(seg.Group, reps)
	}
	names := make(map[string]bool)
	for _, p := range seg.Body {
		p.bound(names)
	}
	out := b
	for name := range names {
		if seg.Max == 1 {
			var v types.Value = types.Nil
			if len(reps) == 1 {
				if x, ok := reps[0].vals[name]; ok {
					v = x
				}
			}
			out = out.with(name, v)
			continue
		}
		elems := make([]types.Value, len(reps))
		for i, r := range reps {
			if x, ok := r.vals[name]; ok {
				elems[i] = x
			} else {
				elems[i] = types.Nil
			}
		}
		out = out.with(name, types.NewList(elems...))
	}
	for _, r := range reps {
		for g, recs := range r.groups {
			out = out.withGroups(g, recs)
		}
	}
	return out
}
