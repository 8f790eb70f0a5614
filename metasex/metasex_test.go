package metasex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/match"
	"lispc/reader"
)

func TestCompileVocabulary(t *testing.T) {
	tests := []struct {
		src   string
		input string
		ok    bool
	}{
		{`_`, `(a b)`, true},
		{`'foo`, `foo`, true},
		{`'foo`, `bar`, false},
		{`:key`, `:key`, true},
		{`42`, `42`, true},
		{`(%symbol)`, `x`, true},
		{`(%symbol)`, `:x`, false},
		{`(%variable v)`, `&rest`, false},
		{`(%variable v)`, `nil`, false},
		{`(%variable v)`, `#:g`, true},
		{`(%string s)`, `"x"`, true},
		{`(%integer n)`, `1.5`, false},
		{`(%keyword k)`, `:k`, true},
		{`(%list l)`, `nil`, true},
		{`('a (%maybe b))`, `(a)`, true},
		{`('a (%maybe b))`, `(a 1 2)`, false},
		{`('a (%+ b))`, `(a)`, false},
		{`('a (%* b))`, `(a)`, true},
		{`(%or (%integer n) (%string s))`, `"s"`, true},
		{`(%bind whole ('a _))`, `(a 1)`, true},
		{`('a (%scope g x y))`, `(a 1 2)`, true},
		{`('a (%newline) (%indent 4) x)`, `(a 1)`, true},
	}
	for _, tt := range tests {
		t.Run(tt.src+"/"+tt.input, func(t *testing.T) {
			p, err := Compile(tt.src)
			require.NoError(t, err)
			r := match.Validate(p, reader.MustRead(tt.input))
			assert.Equal(t, tt.ok, r.OK(), "failure: %v", r.Failure)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{
		`(%maybe x)`,
		`(%or x)`,
		`(%symbol 1)`,
		`(%frobnicate x)`,
		`(%indent x)`,
		`(a (%bind 1 x))`,
		`%newline`,
		`(a`,
	} {
		_, err := Compile(src)
		assert.Error(t, err, src)
	}
}

func TestCompileCaches(t *testing.T) {
	a := MustCompile(`('x (%* y))`)
	b := MustCompile(`('x (%* y))`)
	assert.Same(t, a, b)
}

func TestCompileBinds(t *testing.T) {
	p := MustCompile(`('let ((%* (%scope binding (%or (%variable var) ((%variable var) (%maybe init)))))) (%* body))`)
	r := match.Validate(p, reader.MustRead(`(let ((a 1) b (c)) x y)`))
	require.True(t, r.OK(), r.Failure)

	groups := r.Bindings.Groups("binding")
	require.Len(t, groups, 3)
	var vars []string
	var inits []bool
	for _, g := range groups {
		vars = append(vars, g.Get("var").String())
		inits = append(inits, g.Present("init"))
	}
	assert.Equal(t, []string{"a", "b", "c"}, vars)
	assert.Equal(t, []bool{true, false, false}, inits)
	assert.Len(t, r.Bindings.List("body"), 2)
}

func TestLambdaList(t *testing.T) {
	ll := Lambda()
	tests := []struct {
		input    string
		ok       bool
		req      int
		optional int
		rest     string
	}{
		{`()`, true, 0, 0, "()"},
		{`(a b)`, true, 2, 0, "()"},
		{`(a &optional b (c 1))`, true, 1, 2, "()"},
		{`(&rest r)`, true, 0, 0, "r"},
		{`(a &optional b &body r)`, true, 1, 1, "r"},
		{`(a &rest)`, false, 0, 0, ""},
		{`(&optional a &optional b)`, false, 0, 0, ""},
		{`(:k)`, false, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := match.Validate(ll, reader.MustRead(tt.input))
			require.Equal(t, tt.ok, r.OK(), "failure: %v", r.Failure)
			if !tt.ok {
				return
			}
			assert.Len(t, r.Bindings.List("req"), tt.req)
			assert.Len(t, r.Bindings.Groups("optional"), tt.optional)
			assert.Equal(t, tt.rest, r.Bindings.Get("rest").String())
		})
	}
}

func TestSpecialShapesCompile(t *testing.T) {
	table, err := NewTable(Special, Surface)
	require.NoError(t, err)
	assert.Len(t, table, len(Special)+len(Surface))
	assert.Contains(t, table.Names(), "tagbody")
}

func TestRender(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`x`, "x"},
		{`(f 1 "s")`, `(f 1 "s")`},
		{`(quote (a b))`, `'(a b)`},
		{`(if a b c)`, "(if a\n    b\n    c)"},
		{`(progn (f) (g))`, "(progn\n  (f)\n  (g))"},
		{`(let ((x 1) y) (f x))`, "(let ((x 1) y)\n  (f x))"},
		{`(defun f (x) (when x (print x)) x)`, "(defun f (x)\n  (when x\n    (print x))\n  x)"},
		{`(if)`, "(if)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(reader.MustRead(tt.input)))
		})
	}
}

func TestRenderRoundTrips(t *testing.T) {
	for _, src := range []string{
		`(defun fact (n) (if (< n 2) 1 (* n (fact (- n 1)))))`,
		"(let ((a 1) (b '(x y))) (setq a `(,b ,@b)) (list a b))",
		`(labels ((f (x) (g x)) (g (y) y)) (f 1))`,
		`(tagbody start (go end) end)`,
		`(function (lambda (&optional (x 1) &rest r) x))`,
		`(block nil (return-from nil (values 1 2)))`,
		`(let (#:g) #:g)`,
	} {
		form := reader.MustRead(src)
		back, err := reader.ReadOne(Render(form))
		require.NoError(t, err, src)
		if form.String() != back.String() {
			t.Errorf("round trip of %s gave %s", form, back)
		}
	}
}

func TestRenderLax(t *testing.T) {
	form := reader.MustRead(`(let ((1 2)) x)`)
	assert.Equal(t, "(let ((1 2)) x)", Render(form))
	assert.Equal(t, "(let ((1 2))\n  x)", RenderLax(form))
}
