package expand

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/env"
	"lispc/reader"
	"lispc/types"
)

// expandUnit expands src as a sequence of top-level forms and returns the
// printed result of the last one.
func expandUnit(t *testing.T, src string) (string, *env.Environment) {
	t.Helper()
	forms, err := reader.Read(src)
	require.NoError(t, err)
	x := New()
	e := env.Root()
	var out types.Value
	for _, f := range forms {
		out, e, err = x.ExpandToplevel(f, e)
		require.NoError(t, err, f.String())
	}
	return out.String(), e
}

func expandErr(t *testing.T, src string) error {
	t.Helper()
	forms, err := reader.Read(src)
	require.NoError(t, err)
	x := New()
	e := env.Root()
	for _, f := range forms {
		if _, e, err = x.ExpandToplevel(f, e); err != nil {
			return err
		}
	}
	return nil
}

func TestQuasiquote(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"`(a b)", "(quote (a b))"},
		{"`(1 ,x)", "(list 1 x)"},
		{"`(a ,b ,@c d)", "(append (list (quote a) b) c (quote (d)))"},
		{"`x", "(quote x)"},
		{"`:k", ":k"},
		{"`(,@xs)", "xs"},
		{"(f '(a ,b))", "(f (quote (a (unquote b))))"},
		{"(list `(a ,x) 1)", "(list (list (quote a) x) 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := Quasiquote(reader.MustRead(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestQuasiquoteErrors(t *testing.T) {
	for _, src := range []string{",x", "(f ,@x)", "`,@x"} {
		t.Run(src, func(t *testing.T) {
			_, err := Quasiquote(reader.MustRead(src))
			assert.Error(t, err)
		})
	}
}

func TestBuiltinMacros(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(when a b c)", "(if a (progn b c))"},
		{"(unless a b)", "(if a nil b)"},
		{"(cond (a 1) (t 2))", "(if a 1 2)"},
		{"(cond (a 1) (b 2))", "(if a 1 (if b 2 nil))"},
		{"(cond)", "nil"},
		{"(and a b c)", "(if a (if b c))"},
		{"(and)", "t"},
		{"(or)", "nil"},
		{"(or x)", "x"},
		{"(let* ((a 1) (b a)) b)", "(let ((a 1)) (let ((b a)) b))"},
		{"(let* () b)", "(let () b)"},
		{"(defun f (x) \"doc\" (declare (ignore y)) x)", "(%defun f (x) (block f x))"},
		{"(defvar *x*)", "(%defvar *x*)"},
		{"(defvar *x* 1 \"doc\")", "(%defvar *x* 1)"},
		{"(defparameter *y* 2)", "(%defvar *y* 2 :always)"},
		{"(defconstant +z+ 3)", "(%defvar +z+ 3 :constant)"},
		{"(return)", "(return-from nil)"},
		{"(return 1)", "(return-from nil 1)"},
		{"(push a x)", "(setq x (cons a x))"},
		{"(pop x)", "(prog1 (car x) (setq x (cdr x)))"},
		{"(incf x)", "(setq x (+ x 1))"},
		{"(decf x 2)", "(setq x (- x 2))"},
		{"(setf)", "nil"},
		{"(setf a 1 b 2)", "(progn (setq a 1) (setq b 2))"},
		{"(lambda (x) x)", "(function (lambda (x) x))"},
		{"((lambda (x) x) 1)", "(funcall (function (lambda (x) x)) 1)"},
		{"(multiple-value-list (f))", "(multiple-value-call (function list) (f))"},
		{"(prog2 a b c)", "(progn a (prog1 b c))"},
		{"(loop (f))", "(block nil (%loop (f)))"},
		{"(locally (declare (special x)) x)", "(progn x)"},
		{"(eval-when (:compile-toplevel) (f))", "nil"},
		{"(eval-when (:execute) (f))", "(progn (f))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := expandUnit(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

// gensymSuffix matches the counter that makes gensym names unique.
var gensymSuffix = regexp.MustCompile(`#:([A-Za-z_-]+)[0-9]+`)

func TestGensymMacros(t *testing.T) {
	tests := []struct {
		src      string
		prefix   string
		contains []string
	}{
		{"(or a b)", "(let ((#:or", []string{"(if #:or"}},
		{"(dolist (x xs) (f x))", "(block nil (let ((#:list", []string{"(%loop", "(car #:list", "(f x)"}},
		{"(dotimes (i 3) (f i))", "(block nil (let ((#:count", []string{"(i 0)", "(< i #:count", "(setq i (+ i 1))"}},
		{"(setf (car x) 1)", "(let ((#:arg", []string{"(funcall (function (setf car)) #:value"}},
		{"(multiple-value-bind (a b) (f) (list a b))", "(multiple-value-call (function (lambda (&optional a b &rest #:ignore) (list a b))) (f))", nil},
		{"(case k (1 a) ((2 3) b) (t c))", "(let ((#:key", []string{"(if (eql #:key (quote 1)) a", "(let ((#:or (eql #:key (quote 2)))) (if #:or #:or (eql #:key (quote 3))))", "c)"}},
		{"(psetq a b b a)", "(let ((#:new", []string{"(setq a #:new", "(setq b #:new"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := expandUnit(t, tt.src)
			got = gensymSuffix.ReplaceAllString(got, "#:$1")
			assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
		})
	}
}

func TestSymbolMacros(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(symbol-macrolet ((x (car y))) (list x))", "(progn (list (car y)))"},
		{"(symbol-macrolet ((x y)) (setq x 1))", "(progn (progn (setq y 1)))"},
		{"(symbol-macrolet ((x y)) (let ((x 1)) x))", "(progn (let ((x 1)) x))"},
		{"(symbol-macrolet ((x y)) (function (lambda (x) x)))", "(progn (function (lambda (x) x)))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := expandUnit(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalFunctionShadowsMacro(t *testing.T) {
	got, _ := expandUnit(t, "(flet ((when (a) a)) (when 1))")
	assert.Equal(t, "(flet ((when (a) a)) (when 1))", got)

	// the function is not visible in its own definition
	got, _ = expandUnit(t, "(flet ((when (a) (when a 1))) 2)")
	assert.Equal(t, "(flet ((when (a) (if a 1))) 2)", got)

	got, _ = expandUnit(t, "(labels ((when (a) (when a 1))) 2)")
	assert.Equal(t, "(labels ((when (a) (when a 1))) 2)", got)
}

func TestMacrolet(t *testing.T) {
	got, _ := expandUnit(t, "(macrolet ((twice (f) `(progn ,f ,f))) (twice (g)))")
	assert.Equal(t, "(progn (progn (g) (g)))", got)
}

func TestDefmacro(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "optional default",
			src:  "(defmacro my-inc (place &optional (n 1)) `(setq ,place (+ ,place ,n))) (my-inc x)",
			want: "(setq x (+ x 1))",
		},
		{
			name: "destructuring",
			src:  "(defmacro with-pair ((a b) &body body) `(let ((,a 1) (,b 2)) ,@body)) (with-pair (p q) (list p q))",
			want: "(let ((p 1) (q 2)) (list p q))",
		},
		{
			name: "mapcar with nested backquote",
			src:  "(defmacro quote-all (&rest xs) `(list ,@(mapcar (lambda (x) `(quote ,x)) xs))) (quote-all a b)",
			want: "(list (quote a) (quote b))",
		},
		{
			name: "conditional template",
			src:  "(defmacro opt (x) (if (consp x) `(progn ,@x) x)) (list (opt (a b)) (opt c))",
			want: "(list (progn a b) c)",
		},
		{
			name: "let and list ops",
			src:  "(defmacro swap-args (form) (let ((args (reverse (cdr form)))) (cons (car form) args))) (swap-args (f 1 2 3))",
			want: "(f 3 2 1)",
		},
		{
			name: "definition value",
			src:  "(defmacro m () nil)",
			want: "(quote m)",
		},
		{
			name: "expands inside progn",
			src:  "(progn (defmacro one () 1) (list (one)))",
			want: "(progn (quote one) (list 1))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := expandUnit(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinitionsThreadEnvironment(t *testing.T) {
	_, e := expandUnit(t, "(defvar *x* 1) (defconstant +k+ 3) (defconstant +f+ (f))")

	b, ok := e.Variable(types.Intern("*x*"))
	require.True(t, ok)
	assert.Equal(t, env.Special{}, b)

	b, ok = e.Variable(types.Intern("+k+"))
	require.True(t, ok)
	assert.Equal(t, env.Constant{Value: types.NewInt(3)}, b)

	b, ok = e.Variable(types.Intern("+f+"))
	require.True(t, ok)
	assert.Equal(t, env.Special{}, b)
}

func TestExpansionErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"illegal call", "((f) 1)", "illegal function call"},
		{"comma", "(f ,x)", "comma outside backquote"},
		{"malformed special", "(if)", "malformed if"},
		{"extended loop", "(loop for x in y)", "extended loop"},
		{"too few", "(defmacro m (a) a) (m)", "too few arguments"},
		{"too many", "(defmacro m (a) a) (m 1 2)", "too many arguments"},
		{"unknown function", "(defmacro m () (launch)) (m)", "cannot call launch"},
		{"runaway", "(defmacro m () '(m)) (m)", "does not terminate"},
		{"signalled", "(defmacro m () (error \"no good\")) (m)", "no good"},
		{"setf place", "(setf 1 2)", "invalid place"},
		{"odd setf", "(setf a)", "odd number"},
		{"late otherwise", "(case k (t 1) (2 3))", "must come last"},
		{"bad lambda list", "(defmacro m (&rest) nil)", "missing rest parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := expandErr(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			var xe *Error
			assert.ErrorAs(t, err, &xe)
		})
	}
}

func TestExpand1(t *testing.T) {
	x := New()
	form := reader.MustRead("(when a b)")
	out, expanded, err := x.Expand1(form, env.Root())
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, "(if a b)", out.String())

	out, expanded, err = x.Expand1(out, env.Root())
	require.NoError(t, err)
	assert.False(t, expanded)
	assert.Equal(t, "(if a b)", out.String())

	assert.True(t, x.IsSpecial(types.Intern("if")))
	assert.False(t, x.IsMacro(types.Intern("if"), env.Root()))
	assert.True(t, x.IsMacro(types.Intern("when"), env.Root()))
}

func TestStripDeclarations(t *testing.T) {
	body := reader.MustRead(`((declare (special x)) "doc" (declare (ignore y)) a (declare z))`).(types.List).Elements()
	out := types.NewList(StripDeclarations(body)...)
	assert.Equal(t, `("doc" a (declare z))`, out.String())
}
