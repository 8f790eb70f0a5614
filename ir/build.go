package ir

import "lispc/types"

// Constructors for IR nodes. Identifiers are passed as strings.

func node(kind string, fields ...types.Value) types.List {
	return types.NewList(append([]types.Value{types.Intern(kind)}, fields...)...)
}

func ident(id string) types.Value {
	if id == "" {
		return types.NilSym
	}
	return types.Intern(id)
}

func idents(ids []string) types.List {
	out := make([]types.Value, len(ids))
	for i, id := range ids {
		out[i] = types.Intern(id)
	}
	return types.NewList(out...)
}

func opt(v types.Value) types.Value {
	if v == nil {
		return types.NilSym
	}
	return v
}

func Module(body ...types.Value) types.List {
	return node("Module", types.NewList(body...))
}

func FunctionDef(name string, params types.Value, body ...types.Value) types.List {
	return node("FunctionDef", ident(name), params, types.NewList(body...))
}

// Return builds a return statement; value may be nil.
func Return(value types.Value) types.List {
	return node("Return", opt(value))
}

func Assign(target, value types.Value) types.List {
	return node("Assign", types.NewList(target), value)
}

func ExprStmt(value types.Value) types.List {
	return node("ExprStmt", value)
}

func If(test types.Value, body, orelse []types.Value) types.List {
	return node("If", test, types.NewList(body...), types.NewList(orelse...))
}

func While(test types.Value, body ...types.Value) types.List {
	return node("While", test, types.NewList(body...))
}

func Try(body, handlers, finally []types.Value) types.List {
	return node("Try", types.NewList(body...), types.NewList(handlers...), types.NewList(finally...))
}

// ExceptHandler builds a handler; typ may be nil and name empty.
func ExceptHandler(typ types.Value, name string, body ...types.Value) types.List {
	return node("ExceptHandler", opt(typ), ident(name), types.NewList(body...))
}

func Raise(exc types.Value) types.List {
	return node("Raise", exc)
}

func Global(names ...string) types.List {
	return node("Global", idents(names))
}

func Nonlocal(names ...string) types.List {
	return node("Nonlocal", idents(names))
}

func Pass() types.List {
	return node("Pass")
}

func Break() types.List {
	return node("Break")
}

// Params builds a parameter list; rest may be empty.
func Params(names []string, defaults []types.Value, rest string) types.List {
	return node("Params", idents(names), types.NewList(defaults...), ident(rest))
}

func Name(id string) types.List {
	return node("Name", types.Intern(id))
}

func Const(v types.Value) types.List {
	return node("Const", v)
}

func Call(fn types.Value, args ...types.Value) types.List {
	return node("Call", fn, types.NewList(args...))
}

func Starred(v types.Value) types.List {
	return node("Starred", v)
}

func Lambda(params, body types.Value) types.List {
	return node("Lambda", params, body)
}

func IfExp(test, body, orelse types.Value) types.List {
	return node("IfExp", test, body, orelse)
}

func Attribute(value types.Value, attr string) types.List {
	return node("Attribute", value, types.Intern(attr))
}

func Tuple(elts ...types.Value) types.List {
	return node("Tuple", types.NewList(elts...))
}

// Compare builds a comparison; op is "is", "is-not" or "==".
func Compare(op string, left, right types.Value) types.List {
	return node("Compare", types.Intern(op), left, right)
}

// Runtime is the identifier through which compiled code reaches the
// runtime library.
const Runtime = "rt"

// RT references a runtime helper
func RT(helper string) types.List {
	return Attribute(Name(Runtime), helper)
}

// CallRT calls a runtime helper
func CallRT(helper string, args ...types.Value) types.List {
	return Call(RT(helper), args...)
}

// Nil is the constant nil
func Nil() types.List {
	return Const(types.NilSym)
}

// Truth tests a value against nil
func Truth(v types.Value) types.List {
	return Compare("is-not", v, Nil())
}

// IsKind reports whether node is an IR node of the named kind
func IsKind(node types.Value, kind string) bool {
	k, ok := Lookup(node)
	return ok && k.Name == kind
}

// IdentOf returns the identifier held by a Name node
func IdentOf(node types.Value) (string, bool) {
	if !IsKind(node, "Name") {
		return "", false
	}
	s, ok := node.(types.List).At(1).(types.Symbol)
	return s.Name, ok
}
