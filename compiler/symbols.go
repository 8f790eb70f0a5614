package compiler

import (
	"github.com/google/btree"

	"lispc/types"
)

// symbolItem orders symbols by printed name.
type symbolItem struct {
	key string
	sym types.Value
}

// Less is used to implement btree.Item.
func (i symbolItem) Less(b btree.Item) bool {
	return i.key < b.(symbolItem).key
}

// SymbolSet is an ordered set of function names.
type SymbolSet struct {
	tree *btree.BTree
}

// NewSymbolSet returns a set holding names.
func NewSymbolSet(names ...types.Value) *SymbolSet {
	s := &SymbolSet{tree: btree.New(2)}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name.
func (s *SymbolSet) Add(name types.Value) {
	s.tree.ReplaceOrInsert(symbolItem{key: name.String(), sym: name})
}

// Has reports whether name is in the set.
func (s *SymbolSet) Has(name types.Value) bool {
	return s.tree.Has(symbolItem{key: name.String()})
}

// Len returns the number of names.
func (s *SymbolSet) Len() int {
	return s.tree.Len()
}

// Minus returns the names of s not in other.
func (s *SymbolSet) Minus(other *SymbolSet) *SymbolSet {
	out := NewSymbolSet()
	s.tree.Ascend(func(i btree.Item) bool {
		if !other.tree.Has(i) {
			out.tree.ReplaceOrInsert(i)
		}
		return true
	})
	return out
}

// Slice returns the names in order.
func (s *SymbolSet) Slice() []types.Value {
	out := make([]types.Value, 0, s.tree.Len())
	s.tree.Ascend(func(i btree.Item) bool {
		out = append(out, i.(symbolItem).sym)
		return true
	})
	return out
}
