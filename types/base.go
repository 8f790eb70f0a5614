package types

// Value is the interface all forms implement. Forms are immutable: no
// method mutates the receiver and every constructor copies its input.
type Value interface {
	Type() TypeCode
	String() string   // readable literal representation
	Equal(Value) bool // deep equality
	Truthy() bool     // everything except nil is true
}

// IsNil reports whether v is the empty list or the symbol nil.
func IsNil(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case List:
		return x.Len() == 0
	case Symbol:
		return x == NilSym
	}
	return false
}

// IsAtom reports whether v is anything other than a non-empty list.
func IsAtom(v Value) bool {
	l, ok := v.(List)
	return !ok || l.Len() == 0
}

// IsSelfEvaluating reports whether v evaluates to itself: numbers,
// strings, keywords, nil and t.
func IsSelfEvaluating(v Value) bool {
	switch x := v.(type) {
	case IntValue, FloatValue, StrValue:
		return true
	case Symbol:
		return x.IsKeyword() || x == NilSym || x == TSym
	case List:
		return x.Len() == 0
	}
	return false
}

// HeadSymbol returns the operator symbol of a list form.
func HeadSymbol(v Value) (Symbol, bool) {
	l, ok := v.(List)
	if !ok || l.Len() == 0 {
		return Symbol{}, false
	}
	s, ok := l.At(0).(Symbol)
	return s, ok
}

// IsCall reports whether v is a list headed by the symbol named name.
func IsCall(v Value, name string) bool {
	s, ok := HeadSymbol(v)
	return ok && s == Intern(name)
}
