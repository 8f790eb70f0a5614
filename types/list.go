package types

import "strings"

// List is an immutable ordered sequence of forms. The zero value is the
// empty list, which is also nil.
type List struct {
	elems []Value
}

// Nil is the empty list
var Nil = List{}

// NewList creates a list holding a copy of elems
func NewList(elems ...Value) List {
	if len(elems) == 0 {
		return Nil
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return List{elems: cp}
}

// L builds a list from forms; strings become interned symbols.
func L(parts ...interface{}) List {
	elems := make([]Value, 0, len(parts))
	for _, p := range parts {
		switch x := p.(type) {
		case Value:
			elems = append(elems, x)
		case string:
			elems = append(elems, Intern(x))
		case int:
			elems = append(elems, NewInt(int64(x)))
		case int64:
			elems = append(elems, NewInt(x))
		case float64:
			elems = append(elems, NewFloat(x))
		case []Value:
			elems = append(elems, List{elems: append([]Value(nil), x...)})
		default:
			panic("types.L: unsupported element")
		}
	}
	return List{elems: elems}
}

// String returns the plain single-line representation
func (l List) String() string {
	if len(l.elems) == 0 {
		return "()"
	}
	parts := make([]string, len(l.elems))
	for i, elem := range l.elems {
		parts[i] = elem.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Type returns the type code for lists
func (l List) Type() TypeCode {
	return TYPE_LIST
}

// Truthy returns whether the list is non-empty
func (l List) Truthy() bool {
	return len(l.elems) > 0
}

// Equal compares two lists element-wise. The empty list equals the symbol nil.
func (l List) Equal(other Value) bool {
	switch o := other.(type) {
	case List:
		if len(l.elems) != len(o.elems) {
			return false
		}
		for i := range l.elems {
			if !l.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case Symbol:
		return len(l.elems) == 0 && o == NilSym
	}
	return false
}

// Len returns the length of the list
func (l List) Len() int {
	return len(l.elems)
}

// At returns the element at the 0-based index i
func (l List) At(i int) Value {
	return l.elems[i]
}

// Elements returns the backing slice for iteration. Callers must not
// modify it.
func (l List) Elements() []Value {
	return l.elems
}

// Rest returns the list without its first element
func (l List) Rest() List {
	if len(l.elems) <= 1 {
		return Nil
	}
	return List{elems: l.elems[1:len(l.elems):len(l.elems)]}
}

// Slice returns elements [start, end) as a new list
func (l List) Slice(start, end int) List {
	if start >= end {
		return Nil
	}
	return NewList(l.elems[start:end]...)
}

// Cons returns a new list with v prepended
func (l List) Cons(v Value) List {
	elems := make([]Value, 0, len(l.elems)+1)
	elems = append(elems, v)
	elems = append(elems, l.elems...)
	return List{elems: elems}
}

// Append returns a new list with vs appended
func (l List) Append(vs ...Value) List {
	elems := make([]Value, 0, len(l.elems)+len(vs))
	elems = append(elems, l.elems...)
	elems = append(elems, vs...)
	return List{elems: elems}
}

// Concat joins lists into a new list
func Concat(lists ...List) List {
	var n int
	for _, l := range lists {
		n += l.Len()
	}
	if n == 0 {
		return Nil
	}
	elems := make([]Value, 0, n)
	for _, l := range lists {
		elems = append(elems, l.elems...)
	}
	return List{elems: elems}
}
