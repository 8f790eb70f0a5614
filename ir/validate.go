package ir

import (
	"fmt"

	"lispc/types"
)

// ValidationError reports a malformed IR node
type ValidationError struct {
	Node types.Value
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid IR %s: %s", e.Node, e.Msg)
}

// Validate checks that node is a well-formed node of class c, recursively.
func Validate(node types.Value, c Class) error {
	k, ok := Lookup(node)
	if !ok {
		return &ValidationError{Node: node, Msg: "not a node"}
	}
	if k.Class != c {
		return &ValidationError{Node: node, Msg: fmt.Sprintf("%s where %s expected", k.Class, c)}
	}
	l := node.(types.List)
	if l.Len()-1 != len(k.Fields) {
		return &ValidationError{Node: node, Msg: fmt.Sprintf("%s takes %d fields, got %d", k.Name, len(k.Fields), l.Len()-1)}
	}
	for i, f := range k.Fields {
		if err := validateField(f, l.At(i+1)); err != nil {
			return err
		}
	}
	if k.Name == "Params" {
		if len(items(l.At(2))) > len(items(l.At(1))) {
			return &ValidationError{Node: node, Msg: "more defaults than parameters"}
		}
		seen := NewNames()
		names := append([]types.Value(nil), items(l.At(1))...)
		if rest, ok := l.At(3).(types.Symbol); ok && !types.IsNil(rest) {
			names = append(names, rest)
		}
		for _, p := range names {
			id := p.(types.Symbol).Name
			if seen.Has(id) {
				return &ValidationError{Node: node, Msg: "duplicate parameter " + id}
			}
			seen.Add(id)
		}
	}
	return nil
}

// ValidateStmts validates a statement list
func ValidateStmts(stmts []types.Value) error {
	for _, s := range stmts {
		if err := Validate(s, StmtClass); err != nil {
			return err
		}
	}
	return nil
}

func validateField(f Field, v types.Value) error {
	switch f.Type {
	case FieldExpr:
		return Validate(v, ExprClass)
	case FieldOptExpr:
		if types.IsNil(v) {
			return nil
		}
		return Validate(v, ExprClass)
	case FieldExprs, FieldStmts, FieldIdents, FieldHandlers:
		l, ok := v.(types.List)
		if !ok && !types.IsNil(v) {
			return &ValidationError{Node: v, Msg: "field " + f.Name + " must be a list"}
		}
		for _, x := range l.Elements() {
			if err := validateElem(f, x); err != nil {
				return err
			}
		}
		return nil
	case FieldIdent:
		return validateIdent(f, v)
	case FieldOptIdent:
		if types.IsNil(v) {
			return nil
		}
		return validateIdent(f, v)
	case FieldParams:
		return validateKind(v, "Params")
	case FieldOp:
		s, ok := v.(types.Symbol)
		if _, known := compareOps[s.Name]; !ok || !known {
			return &ValidationError{Node: v, Msg: "unknown comparison operator"}
		}
	}
	return nil
}

func validateElem(f Field, x types.Value) error {
	switch f.Type {
	case FieldExprs:
		return Validate(x, ExprClass)
	case FieldStmts:
		return Validate(x, StmtClass)
	case FieldIdents:
		return validateIdent(f, x)
	}
	return validateKind(x, "ExceptHandler")
}

func validateKind(v types.Value, name string) error {
	k, ok := Lookup(v)
	if !ok || k.Name != name {
		return &ValidationError{Node: v, Msg: name + " expected"}
	}
	return Validate(v, AuxClass)
}

func validateIdent(f Field, v types.Value) error {
	s, ok := v.(types.Symbol)
	if !ok || s.Name == "" || s.IsKeyword() || s.IsUninterned() {
		return &ValidationError{Node: v, Msg: "field " + f.Name + " must be an identifier"}
	}
	return nil
}

func items(v types.Value) []types.Value {
	if l, ok := v.(types.List); ok {
		return l.Elements()
	}
	return nil
}
