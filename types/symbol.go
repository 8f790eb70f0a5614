package types

import (
	"strconv"
	"sync/atomic"
)

// KeywordPackage is the home package of keyword symbols
const KeywordPackage = "KEYWORD"

// Symbol is a named atom. Interned symbols compare equal when package and
// name match; uninterned symbols (gensyms) carry a unique id and are only
// equal to themselves. Symbol is comparable and can key maps.
type Symbol struct {
	Name    string
	Package string
	id      uint64
}

var gensymCounter atomic.Uint64

var (
	NilSym = Intern("nil")
	TSym   = Intern("t")
)

// Intern returns the symbol named name in the default package.
func Intern(name string) Symbol {
	return Symbol{Name: name}
}

// InternIn returns the symbol named name in package pkg.
func InternIn(pkg, name string) Symbol {
	return Symbol{Name: name, Package: pkg}
}

// Keyword returns the keyword symbol :name.
func Keyword(name string) Symbol {
	return Symbol{Name: name, Package: KeywordPackage}
}

// Gensym returns a fresh uninterned symbol.
func Gensym(prefix string) Symbol {
	if prefix == "" {
		prefix = "G"
	}
	id := gensymCounter.Add(1)
	return Symbol{Name: prefix + strconv.FormatUint(id, 10), id: id}
}

// Uninterned returns a fresh uninterned symbol with exactly the given name.
func Uninterned(name string) Symbol {
	return Symbol{Name: name, id: gensymCounter.Add(1)}
}

// IsKeyword reports whether s lives in the keyword package
func (s Symbol) IsKeyword() bool {
	return s.Package == KeywordPackage && s.id == 0
}

// IsUninterned reports whether s was created by Gensym
func (s Symbol) IsUninterned() bool {
	return s.id != 0
}

// Type returns the type code for symbols
func (s Symbol) Type() TypeCode {
	return TYPE_SYMBOL
}

// String returns the readable representation
func (s Symbol) String() string {
	switch {
	case s.id != 0:
		return "#:" + s.Name
	case s.Package == KeywordPackage:
		return ":" + s.Name
	case s.Package != "":
		return s.Package + "::" + s.Name
	}
	return s.Name
}

// Equal compares symbol identity. The symbol nil equals the empty list.
func (s Symbol) Equal(other Value) bool {
	switch o := other.(type) {
	case Symbol:
		return s == o
	case List:
		return s == NilSym && o.Len() == 0
	}
	return false
}

// Truthy returns false only for nil
func (s Symbol) Truthy() bool {
	return s != NilSym
}
