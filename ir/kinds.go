// Package ir is the intermediate representation produced by lowering. IR
// nodes are ordinary forms, (Kind field...), so they can be printed, read
// back and pattern-matched like any other code. Every kind has a fixed
// field table that drives validation, conversion to the target AST and
// scope analysis.
package ir

import "lispc/types"

// Class separates statement kinds from expression kinds
type Class int

const (
	StmtClass Class = iota
	ExprClass
	AuxClass // Params and ExceptHandler
)

func (c Class) String() string {
	switch c {
	case StmtClass:
		return "statement"
	case ExprClass:
		return "expression"
	}
	return "auxiliary"
}

// FieldType is the type of one field of a node
type FieldType int

const (
	FieldExpr     FieldType = iota // one expression
	FieldOptExpr                   // an expression or nil
	FieldExprs                     // list of expressions
	FieldStmts                     // list of statements
	FieldIdent                     // identifier symbol
	FieldOptIdent                  // identifier symbol or nil
	FieldIdents                    // list of identifier symbols
	FieldDatum                     // any form
	FieldParams                    // a Params node
	FieldHandlers                  // list of ExceptHandler nodes
	FieldOp                        // comparison operator symbol
)

// Field describes one positional field. Walk marks fields that hold
// evaluated sub-nodes.
type Field struct {
	Name string
	Type FieldType
	Walk bool
}

// Kind describes one node kind
type Kind struct {
	Name   string
	Class  Class
	Fields []Field
}

var kindList = []Kind{
	{"Module", AuxClass, []Field{{"body", FieldStmts, true}}},
	{"FunctionDef", StmtClass, []Field{{"name", FieldIdent, false}, {"params", FieldParams, true}, {"body", FieldStmts, true}}},
	{"Return", StmtClass, []Field{{"value", FieldOptExpr, true}}},
	{"Assign", StmtClass, []Field{{"targets", FieldExprs, true}, {"value", FieldExpr, true}}},
	{"ExprStmt", StmtClass, []Field{{"value", FieldExpr, true}}},
	{"If", StmtClass, []Field{{"test", FieldExpr, true}, {"body", FieldStmts, true}, {"else", FieldStmts, true}}},
	{"While", StmtClass, []Field{{"test", FieldExpr, true}, {"body", FieldStmts, true}}},
	{"Try", StmtClass, []Field{{"body", FieldStmts, true}, {"handlers", FieldHandlers, true}, {"finally", FieldStmts, true}}},
	{"ExceptHandler", AuxClass, []Field{{"type", FieldOptExpr, true}, {"name", FieldOptIdent, false}, {"body", FieldStmts, true}}},
	{"Raise", StmtClass, []Field{{"exc", FieldExpr, true}}},
	{"Global", StmtClass, []Field{{"names", FieldIdents, false}}},
	{"Nonlocal", StmtClass, []Field{{"names", FieldIdents, false}}},
	{"Pass", StmtClass, nil},
	{"Break", StmtClass, nil},
	{"Params", AuxClass, []Field{{"names", FieldIdents, false}, {"defaults", FieldExprs, true}, {"rest", FieldOptIdent, false}}},
	{"Name", ExprClass, []Field{{"id", FieldIdent, false}}},
	{"Const", ExprClass, []Field{{"value", FieldDatum, false}}},
	{"Call", ExprClass, []Field{{"func", FieldExpr, true}, {"args", FieldExprs, true}}},
	{"Starred", ExprClass, []Field{{"value", FieldExpr, true}}},
	{"Lambda", ExprClass, []Field{{"params", FieldParams, true}, {"body", FieldExpr, true}}},
	{"IfExp", ExprClass, []Field{{"test", FieldExpr, true}, {"body", FieldExpr, true}, {"else", FieldExpr, true}}},
	{"Attribute", ExprClass, []Field{{"value", FieldExpr, true}, {"attr", FieldIdent, false}}},
	{"Tuple", ExprClass, []Field{{"elts", FieldExprs, true}}},
	{"Compare", ExprClass, []Field{{"op", FieldOp, false}, {"left", FieldExpr, true}, {"right", FieldExpr, true}}},
}

var kinds = func() map[types.Symbol]*Kind {
	m := make(map[types.Symbol]*Kind, len(kindList))
	for i := range kindList {
		m[types.Intern(kindList[i].Name)] = &kindList[i]
	}
	return m
}()

// Lookup returns the kind of node, if node is a form headed by a kind name.
func Lookup(node types.Value) (*Kind, bool) {
	head, ok := types.HeadSymbol(node)
	if !ok {
		return nil, false
	}
	k, ok := kinds[head]
	return k, ok
}

// Kinds returns the field tables of all node kinds
func Kinds() []Kind {
	return append([]Kind(nil), kindList...)
}

// Comparison operators and their symbols
var compareOps = map[string]string{
	"is":     "is",
	"is-not": "is not",
	"==":     "==",
}

func (k *Kind) field(name string) int {
	for i, f := range k.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FieldOf returns the named field of node, which must be a valid node.
func FieldOf(node types.Value, name string) types.Value {
	k, ok := Lookup(node)
	if !ok {
		return nil
	}
	i := k.field(name)
	if i < 0 {
		return nil
	}
	return node.(types.List).At(i + 1)
}
