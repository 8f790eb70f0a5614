package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/types"
)

func TestRootConstants(t *testing.T) {
	root := Root()
	for _, s := range []types.Symbol{types.NilSym, types.TSym} {
		b, ok := root.Variable(s)
		require.True(t, ok, s)
		assert.Equal(t, Constant{Value: s}, b)
	}
	_, ok := root.Variable(types.Intern("x"))
	assert.False(t, ok)
}

func TestShadowingDoesNotAffectParent(t *testing.T) {
	x := types.Intern("x")
	outer := Root().Bind(x, Variable{Ident: "x"})
	inner := outer.Bind(x, Special{})

	b, _ := inner.Variable(x)
	assert.Equal(t, Special{}, b)
	b, _ = outer.Variable(x)
	assert.Equal(t, Variable{Ident: "x"}, b)
	assert.Equal(t, outer.Depth()+1, inner.Depth())
}

func TestNamespacesAreIndependent(t *testing.T) {
	f := types.Intern("f")
	e := Extend(Root(), Frame{f: Variable{Ident: "f"}}).Bind(f, Function{Ident: "__lf_f1"})

	v, ok := e.Variable(f)
	require.True(t, ok)
	assert.Equal(t, Variable{Ident: "f"}, v)
	fn, ok := e.Function(f)
	require.True(t, ok)
	assert.Equal(t, Function{Ident: "__lf_f1"}, fn)
	_, ok = e.Lookup(Blocks, f)
	assert.False(t, ok)
}

func TestNilEnvironment(t *testing.T) {
	var e *Environment
	_, ok := e.Variable(types.NilSym)
	assert.False(t, ok)
	assert.Equal(t, 0, e.Depth())
	assert.Empty(t, e.Idents())
}

func TestEachSkipsShadowed(t *testing.T) {
	a, b := types.Intern("a"), types.Intern("b")
	e := Root().
		Bind(a, Variable{Ident: "a"}).
		Bind(b, Variable{Ident: "b"}).
		Bind(a, Variable{Ident: "a2"}).
		Bind(b, Function{Ident: "__lf_b"})

	got := map[types.Symbol]Binding{}
	e.Each(Variables, func(s types.Symbol, bd Binding) { got[s] = bd })
	assert.Equal(t, Variable{Ident: "a2"}, got[a])
	assert.Equal(t, Variable{Ident: "b"}, got[b])
	assert.Equal(t, map[string]bool{"a2": true, "b": true, "__lf_b": true}, e.Idents())
}
