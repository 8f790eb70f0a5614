package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/reader"
	"lispc/types"
)

func read(t *testing.T, s string) types.Value {
	t.Helper()
	v, err := reader.ReadOne(s)
	require.NoError(t, err)
	return v
}

func TestMatchAtoms(t *testing.T) {
	tests := []struct {
		name  string
		p     Pattern
		input string
		ok    bool
	}{
		{"literal", Sym("foo"), "foo", true},
		{"literal_mismatch", Sym("foo"), "bar", false},
		{"any", Any{}, "(1 2)", true},
		{"symbol_pred", IsSymbol, "x", true},
		{"symbol_pred_keyword", IsSymbol, ":x", false},
		{"string_pred", IsString, `"s"`, true},
		{"integer_pred", IsInteger, "12", true},
		{"integer_pred_float", IsInteger, "1.5", false},
		{"list_pred_nil", IsList, "nil", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.p, read(t, tt.input))
			assert.Equal(t, tt.ok, r.OK())
		})
	}
}

func TestMatchBindsNames(t *testing.T) {
	p := List(Sym("setq"), Bind("var", IsSymbol), Bind("value", nil))
	r := Validate(p, read(t, "(setq x (f 1))"))
	require.True(t, r.OK(), "failure: %v", r.Failure)
	assert.Equal(t, "x", r.Bindings.Get("var").String())
	assert.Equal(t, "(f 1)", r.Bindings.Get("value").String())
}

func TestSegmentCollectsRepetitions(t *testing.T) {
	p := List(Sym("progn"), ZeroOrMore(Bind("body", nil)))
	r := Validate(p, read(t, "(progn a (b) c)"))
	require.True(t, r.OK())
	body := r.Bindings.List("body")
	require.Len(t, body, 3)
	assert.Equal(t, "(b)", body[1].String())

	r = Validate(p, read(t, "(progn)"))
	require.True(t, r.OK())
	assert.Empty(t, r.Bindings.List("body"))
}

func TestSegmentStopsAtAnchor(t *testing.T) {
	p := List(ZeroOrMore(Bind("xs", nil)), Sym("end"), ZeroOrMore(Bind("ys", nil)))

	r := Validate(p, read(t, "(a b end c)"))
	require.True(t, r.OK())
	assert.Equal(t, "(a b)", types.NewList(r.Bindings.List("xs")...).String())
	assert.Equal(t, "(c)", types.NewList(r.Bindings.List("ys")...).String())

	// The shortest prefix admitting the anchor wins.
	r = Validate(p, read(t, "(a end b end c)"))
	require.True(t, r.OK())
	assert.Equal(t, "(a)", types.NewList(r.Bindings.List("xs")...).String())
	assert.Equal(t, "(b end c)", types.NewList(r.Bindings.List("ys")...).String())
}

func TestSegmentFailsCleanlyOnEmptyInput(t *testing.T) {
	p := List(ZeroOrMore(Bind("xs", nil)), Sym("end"))
	r := Validate(p, read(t, "()"))
	require.False(t, r.OK())

	r = Validate(p, read(t, "(a b c)"))
	require.False(t, r.OK())
	assert.Equal(t, "'end", r.Failure.Pattern.String())
}

func TestSegmentBacktracks(t *testing.T) {
	// The first segment must give up elements for the second pattern.
	p := List(ZeroOrMore(Bind("xs", IsSymbol)), Bind("n", IsInteger), Bind("last", IsSymbol))
	r := Validate(p, read(t, "(a b 3 c)"))
	require.True(t, r.OK())
	assert.Len(t, r.Bindings.List("xs"), 2)
	assert.Equal(t, "3", r.Bindings.Get("n").String())
}

func TestOptional(t *testing.T) {
	p := List(Sym("block"), Bind("name", IsSymbol), Optional(Bind("doc", IsString)), Bind("form", nil))

	r := Validate(p, read(t, `(block b "doc" x)`))
	require.True(t, r.OK())
	assert.Equal(t, `"doc"`, r.Bindings.Get("doc").String())

	r = Validate(p, read(t, `(block b x)`))
	require.True(t, r.OK())
	assert.True(t, r.Bindings.Has("doc"))
	assert.False(t, r.Bindings.Present("doc"))

	r = Validate(p, read(t, `(block b "a" "b" x)`))
	assert.False(t, r.OK())
}

func TestAlternationReportsOriginalPattern(t *testing.T) {
	alt := Or(Bind("v", IsSymbol), List(Bind("v", IsSymbol), Bind("init", nil)))
	p := List(Sym("let"), List(ZeroOrMore(alt)))

	r := Validate(p, read(t, "(let (a (b 1)))"))
	require.True(t, r.OK())

	r = Validate(alt, read(t, "12"))
	require.False(t, r.OK())
	assert.Same(t, alt, r.Failure.Pattern)
	assert.Equal(t, "12", r.Failure.Input.String())
}

func TestScopeGroupsRepetitions(t *testing.T) {
	binding := Scope("binding", Or(Bind("var", IsSymbol), List(Bind("var", IsSymbol), Optional(Bind("init", nil)))))
	p := List(Sym("let"), List(ZeroOrMore(binding)), ZeroOrMore(Bind("body", nil)))

	r := Validate(p, read(t, "(let (a (b) (c 3)) c)"))
	require.True(t, r.OK(), "failure: %v", r.Failure)
	groups := r.Bindings.Groups("binding")
	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0].Get("var").String())
	assert.Equal(t, "b", groups[1].Get("var").String())
	assert.False(t, groups[1].Present("init"))
	assert.Equal(t, "3", groups[2].Get("init").String())
	assert.False(t, r.Bindings.Has("var"))
}

func TestFixedWidthRepetition(t *testing.T) {
	p := List(Sym("setq"), ZeroOrMore(Bind("var", IsSymbol), Bind("val", nil)))
	r := Validate(p, read(t, "(setq a 1 b 2)"))
	require.True(t, r.OK())
	assert.Len(t, r.Bindings.List("var"), 2)

	r = Validate(p, read(t, "(setq a 1 b)"))
	assert.False(t, r.OK())
}

func TestMatchIsDeterministic(t *testing.T) {
	p := List(ZeroOrMore(Bind("xs", nil)), Sym("end"), ZeroOrMore(Bind("ys", nil)))
	in := read(t, "(a end b end)")
	r1 := Validate(p, in)
	r2 := Validate(p, in)
	assert.Equal(t, r1.OK(), r2.OK())
	assert.Equal(t, r1.Bindings.List("xs"), r2.Bindings.List("xs"))
	assert.Equal(t, r1.Bindings.List("ys"), r2.Bindings.List("ys"))
}

func TestPrinterDirectives(t *testing.T) {
	p := List(Sym("when"), Bind("test", nil), ZeroOrMore(Newline(), Bind("body", nil)))
	r := Match(Printer{}, p, read(t, "(when x (f) (g))"))
	require.True(t, r.OK())
	assert.Equal(t, "(when x\n  (f)\n  (g))", r.Output)
}

func TestPrinterIndentsNestedText(t *testing.T) {
	inner := List(Sym("when"), Bind("test", nil), ZeroOrMore(Newline(), Bind("body", nil)))
	pr := Printer{}
	pr.Render = func(v types.Value) string {
		if types.IsCall(v, "when") {
			return Match(pr, inner, v).Output.(string)
		}
		return v.String()
	}
	outer := List(Sym("f"), Bind("a", nil), Bind("b", nil))
	r := Match(pr, outer, read(t, "(f 1 (when x y))"))
	require.True(t, r.OK())
	assert.Equal(t, "(f 1 (when x\n       y))", r.Output)
}

func TestLaxPrinterToleratesMalformedInput(t *testing.T) {
	p := List(Sym("let"), List(ZeroOrMore(List(Bind("v", IsSymbol), Bind("i", nil)))), ZeroOrMore(Newline(), Bind("body", nil)))
	in := read(t, "(let ((1 2)) x)")

	assert.False(t, Match(Printer{}, p, in).OK())

	r := Match(LaxPrinter{}, p, in)
	require.True(t, r.OK())
	assert.Equal(t, "(let ((1 2))\n  x)", r.Output)
}
