package ir

import (
	"fmt"

	"lispc/target"
	"lispc/types"
)

// ToAST converts a valid IR node to the target AST. The node is validated
// first.
func ToAST(node types.Value) (target.Node, error) {
	k, ok := Lookup(node)
	if !ok {
		return nil, &ValidationError{Node: node, Msg: "not a node"}
	}
	if err := Validate(node, k.Class); err != nil {
		return nil, err
	}
	return convert(node), nil
}

// ModuleAST converts a statement list to a target module
func ModuleAST(stmts []types.Value) (*target.Module, error) {
	n, err := ToAST(Module(stmts...))
	if err != nil {
		return nil, err
	}
	return n.(*target.Module), nil
}

func convert(node types.Value) target.Node {
	l := node.(types.List)
	k, _ := Lookup(node)
	f := l.Elements()[1:]
	switch k.Name {
	case "Module":
		return &target.Module{Body: stmts(f[0])}
	case "FunctionDef":
		return &target.FunctionDef{Name: identStr(f[0]), Params: params(f[1]), Body: stmts(f[2])}
	case "Return":
		return &target.Return{Value: optExpr(f[0])}
	case "Assign":
		return &target.Assign{Targets: exprs(f[0]), Value: expr(f[1])}
	case "ExprStmt":
		return &target.ExprStmt{Value: expr(f[0])}
	case "If":
		return &target.If{Test: expr(f[0]), Body: stmts(f[1]), Else: stmts(f[2])}
	case "While":
		return &target.While{Test: expr(f[0]), Body: stmts(f[1])}
	case "Try":
		t := &target.Try{Body: stmts(f[0]), Finally: stmts(f[2])}
		for _, h := range items(f[1]) {
			t.Handlers = append(t.Handlers, convert(h).(*target.ExceptHandler))
		}
		return t
	case "ExceptHandler":
		return &target.ExceptHandler{Type: optExpr(f[0]), Name: identStr(f[1]), Body: stmts(f[2])}
	case "Raise":
		return &target.Raise{Exc: expr(f[0])}
	case "Global":
		return &target.Global{Names: identStrs(f[0])}
	case "Nonlocal":
		return &target.Nonlocal{Names: identStrs(f[0])}
	case "Pass":
		return &target.Pass{}
	case "Break":
		return &target.Break{}
	case "Params":
		return params(node)
	case "Name":
		return &target.Name{ID: identStr(f[0])}
	case "Const":
		return &target.Const{Value: f[0]}
	case "Call":
		return &target.Call{Func: expr(f[0]), Args: exprs(f[1])}
	case "Starred":
		return &target.Starred{Value: expr(f[0])}
	case "Lambda":
		return &target.Lambda{Params: params(f[0]), Body: expr(f[1])}
	case "IfExp":
		return &target.IfExp{Test: expr(f[0]), Body: expr(f[1]), Else: expr(f[2])}
	case "Attribute":
		return &target.Attribute{Value: expr(f[0]), Attr: identStr(f[1])}
	case "Tuple":
		return &target.Tuple{Elts: exprs(f[0])}
	case "Compare":
		return &target.Compare{Op: compareOps[identStr(f[0])], Left: expr(f[1]), Right: expr(f[2])}
	}
	panic(fmt.Sprintf("ir: no conversion for %s", k.Name))
}

func expr(v types.Value) target.Expr {
	return convert(v).(target.Expr)
}

func optExpr(v types.Value) target.Expr {
	if types.IsNil(v) {
		return nil
	}
	return expr(v)
}

func exprs(v types.Value) []target.Expr {
	var out []target.Expr
	for _, x := range items(v) {
		out = append(out, expr(x))
	}
	return out
}

func stmts(v types.Value) []target.Stmt {
	var out []target.Stmt
	for _, x := range items(v) {
		out = append(out, convert(x).(target.Stmt))
	}
	return out
}

func params(v types.Value) *target.Params {
	f := v.(types.List).Elements()[1:]
	return &target.Params{Names: identStrs(f[0]), Defaults: exprs(f[1]), Rest: identStr(f[2])}
}

func identStr(v types.Value) string {
	if types.IsNil(v) {
		return ""
	}
	return v.(types.Symbol).Name
}

func identStrs(v types.Value) []string {
	var out []string
	for _, x := range items(v) {
		out = append(out, identStr(x))
	}
	return out
}

// FromAST converts a target AST node back to IR
func FromAST(n target.Node) types.Value {
	switch x := n.(type) {
	case *target.Module:
		return Module(fromStmts(x.Body)...)
	case *target.FunctionDef:
		return FunctionDef(x.Name, FromAST(x.Params), fromStmts(x.Body)...)
	case *target.Return:
		return Return(fromOpt(x.Value))
	case *target.Assign:
		return node("Assign", types.NewList(fromExprs(x.Targets)...), FromAST(x.Value))
	case *target.ExprStmt:
		return ExprStmt(FromAST(x.Value))
	case *target.If:
		return If(FromAST(x.Test), fromStmts(x.Body), fromStmts(x.Else))
	case *target.While:
		return While(FromAST(x.Test), fromStmts(x.Body)...)
	case *target.Try:
		hs := make([]types.Value, len(x.Handlers))
		for i, h := range x.Handlers {
			hs[i] = FromAST(h)
		}
		return Try(fromStmts(x.Body), hs, fromStmts(x.Finally))
	case *target.ExceptHandler:
		return ExceptHandler(fromOpt(x.Type), x.Name, fromStmts(x.Body)...)
	case *target.Raise:
		return Raise(FromAST(x.Exc))
	case *target.Global:
		return Global(x.Names...)
	case *target.Nonlocal:
		return Nonlocal(x.Names...)
	case *target.Pass:
		return Pass()
	case *target.Break:
		return Break()
	case *target.Params:
		if x == nil {
			return Params(nil, nil, "")
		}
		return Params(x.Names, fromExprs(x.Defaults), x.Rest)
	case *target.Name:
		return Name(x.ID)
	case *target.Const:
		return Const(x.Value)
	case *target.Call:
		return Call(FromAST(x.Func), fromExprs(x.Args)...)
	case *target.Starred:
		return Starred(FromAST(x.Value))
	case *target.Lambda:
		return Lambda(FromAST(x.Params), FromAST(x.Body))
	case *target.IfExp:
		return IfExp(FromAST(x.Test), FromAST(x.Body), FromAST(x.Else))
	case *target.Attribute:
		return Attribute(FromAST(x.Value), x.Attr)
	case *target.Tuple:
		return Tuple(fromExprs(x.Elts)...)
	case *target.Compare:
		for sym, text := range compareOps {
			if text == x.Op {
				return Compare(sym, FromAST(x.Left), FromAST(x.Right))
			}
		}
	}
	panic(fmt.Sprintf("ir: no conversion for %T", n))
}

func fromOpt(e target.Expr) types.Value {
	if e == nil {
		return nil
	}
	return FromAST(e)
}

func fromStmts(ss []target.Stmt) []types.Value {
	out := make([]types.Value, len(ss))
	for i, s := range ss {
		out[i] = FromAST(s)
	}
	return out
}

func fromExprs(es []target.Expr) []types.Value {
	out := make([]types.Value, len(es))
	for i, e := range es {
		out[i] = FromAST(e)
	}
	return out
}
