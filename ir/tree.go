package ir

import (
	"github.com/xlab/treeprint"

	"lispc/types"
)

// Tree renders node as an indented tree, one branch per node and one leaf
// per identifier or datum field.
func Tree(node types.Value) string {
	t := treeprint.New()
	addTree(t, node)
	return t.String()
}

func addTree(t treeprint.Tree, node types.Value) {
	k, ok := Lookup(node)
	if !ok {
		t.AddNode(node.String())
		return
	}
	b := t.AddBranch(k.Name)
	l := node.(types.List)
	for i, f := range k.Fields {
		v := l.At(i + 1)
		switch f.Type {
		case FieldExpr, FieldParams:
			addTree(b.AddMetaBranch(f.Name, ""), v)
		case FieldOptExpr:
			if !types.IsNil(v) {
				addTree(b.AddMetaBranch(f.Name, ""), v)
			}
		case FieldExprs, FieldStmts, FieldHandlers:
			xs := items(v)
			if len(xs) == 0 {
				continue
			}
			sub := b.AddMetaBranch(f.Name, len(xs))
			for _, x := range xs {
				addTree(sub, x)
			}
		case FieldIdents:
			if ids := identStrs(v); len(ids) > 0 {
				b.AddMetaNode(f.Name, ids)
			}
		case FieldIdent, FieldOptIdent, FieldOp:
			if !types.IsNil(v) {
				b.AddMetaNode(f.Name, identStr(v))
			}
		case FieldDatum:
			b.AddMetaNode(f.Name, v.String())
		}
	}
}
