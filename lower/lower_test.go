package lower

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/env"
	"lispc/expand"
	"lispc/ir"
	"lispc/reader"
	"lispc/target"
	"lispc/types"
)

// lowerUnit expands and lowers the forms of src in one session and
// renders the result of the last form: its prologue statements followed
// by "=> value".
func lowerUnit(t *testing.T, src string, opts ...Option) (string, *Session) {
	t.Helper()
	forms, err := reader.Read(src)
	require.NoError(t, err)
	x := expand.New()
	s := New(opts...).NewSession()
	e := env.Root()
	var last *Lowered
	for _, f := range forms {
		var out types.Value
		out, e, err = x.ExpandToplevel(f, e)
		require.NoError(t, err, f.String())
		last, err = s.Lower(out, e)
		require.NoError(t, err, out.String())
	}
	return render(t, last), s
}

func render(t *testing.T, l *Lowered) string {
	t.Helper()
	var lines []string
	for _, stmt := range l.Prologue {
		n, err := ir.ToAST(stmt)
		require.NoError(t, err, stmt.String())
		lines = append(lines, target.Unparse(n))
	}
	if l.Value != nil {
		n, err := ir.ToAST(l.Value)
		require.NoError(t, err, l.Value.String())
		lines = append(lines, "=> "+target.Unparse(n))
	}
	return strings.Join(lines, "\n")
}

// lowerRaw lowers one form without macroexpansion.
func lowerRaw(src string) (*Lowered, error) {
	return New().NewSession().Lower(reader.MustRead(src), env.Root())
}

func TestLowerExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"constant", "42", "=> 42"},
		{"keyword", ":k", "=> ':k"},
		{"quote", "'(a b)", "=> '(a b)"},
		{"pure conditional", "(lambda (x) (if x 'a 'b))", "=> lambda x: 'a if x is not None else 'b"},
		{"conditional argument", "(lambda (x) (f (if x 'a 'b)))", "=> lambda x: __f_f('a if x is not None else 'b)"},
		{"constant test", "(lambda () (if 'yes (g) (h)))", "=> lambda: __f_g()"},
		{"let", "(let ((a 1) (b 2)) (list a b))", "=> (lambda a, b: __f_list(a, b))(1, 2)"},
		{"funcall symbol", "(lambda () (funcall 'g 1))", "=> lambda: __f_g(1)"},
		{"apply", "(lambda (xs) (apply #'g 1 xs))", "=> lambda xs: __f_g(1, *xs)"},
		{"values in tail", "(lambda () (values 1 2))", "=> lambda: rt.values(1, 2)"},
		{"no values", "(lambda () (values))", "=> lambda: rt.values()"},
		{"one value", "(lambda (x) (values x))", "=> lambda x: x"},
		{"primary value", "(lambda () (f (values 1 2)))", "=> lambda: __f_f(1)"},
		{"known nth value", "(lambda (x) (nth-value 1 (values x 2)))", "=> lambda x: 2"},
		{"unknown nth value", "(lambda () (nth-value 0 (g)))", "=> lambda: rt.nth_value(0, __f_g())"},
		{"spliced values", "(lambda () (multiple-value-call #'f (values 1 2) 3))", "=> lambda: __f_f(1, 2, 3)"},
		{"unknown values", "(lambda () (multiple-value-call #'f (g)))", "=> lambda: __f_f(*rt.mv_list(__f_g()))"},
		{
			"flet",
			"(flet ((sq (x) (g x x))) (sq 3))",
			"=> (lambda __lf_sq_1: __lf_sq_1(3))(lambda x: __f_g(x, x))",
		},
		{"special assignment", "(defvar *v* 1) (lambda () (setq *v* 2))", "=> lambda: rt.set_symbol_value('*v*, 2)"},
		{"setf function", "(lambda () #'(setf car))", "=> lambda: __f_L_SETF_car_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := lowerUnit(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLowerStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"defun",
			"(defun f (x) (g x))",
			`def __f_f(x):
    return __f_g(x)
rt.set_function('f, __f_f)
=> 'f`,
		},
		{
			"defvar",
			"(defvar *v* (g))",
			`rt.defvar('*v*, __f_g())
=> '*v*`,
		},
		{
			"defparameter",
			"(defparameter *v* 1)",
			`rt.defparameter('*v*, 1)
=> '*v*`,
		},
		{
			"elided effects",
			"(lambda (x) (progn 1 'a x (g) x))",
			`def __fn_1(x):
    __f_g()
    return x
=> __fn_1`,
		},
		{
			"hoisted function in branch",
			"(lambda (x) (f (if x (let ((y (g))) (setq y (h y)) y) 'b)))",
			`def __fn_2(x):
    def __fn_1(y):
        y = __f_h(y)
        return y
    return __f_f(__fn_1(__f_g()) if x is not None else 'b)
=> __fn_2`,
		},
		{
			"branch thunks",
			"(lambda (x) (f (if x (progn (g) 1) 2)))",
			`def __fn_2(x):
    def __thunk_1():
        __f_g()
        return 1
    return __f_f((__thunk_1 if x is not None else (lambda: 2))())
=> __fn_2`,
		},
		{
			"tail conditional",
			"(lambda (x) (if x (progn (g) 1) 2))",
			`def __fn_1(x):
    if x is not None:
        __f_g()
        return 1
    else:
        return 2
=> __fn_1`,
		},
		{
			"closure assignment",
			"(lambda (x) (lambda () (setq x 1)))",
			`def __fn_2(x):
    def __fn_1():
        nonlocal x
        x = 1
        return x
    return __fn_1
=> __fn_2`,
		},
		{
			"labels",
			"(labels ((f (n) (f n))) (f 1))",
			`def __lf_f_2(n):
    return __lf_f_2(n)
=> (lambda __lf_f_1: __lf_f_1(1))(__lf_f_2)`,
		},
		{
			"catch",
			"(lambda () (catch 'k (g)))",
			`def __fn_3():
    try:
        __result_1 = __f_g()
    except rt.Throw as __exc_2:
        __result_1 = rt.catch_value(__exc_2, 'k)
    return __result_1
=> __fn_3`,
		},
		{
			"unwind-protect",
			"(lambda () (unwind-protect (g) (h)))",
			`def __fn_2():
    try:
        __result_1 = __f_g()
    finally:
        __f_h()
    return __result_1
=> __fn_2`,
		},
		{
			"unwind-protect keeps multiple values",
			"(lambda () (unwind-protect (values 1 2) (h)))",
			`def __fn_2():
    try:
        __result_1 = rt.values(1, 2)
    finally:
        __f_h()
    return __result_1
=> __fn_2`,
		},
		{
			"unwind-protect around a tail branch",
			"(lambda (x) (unwind-protect (if x (progn (g) 1) 2) (h)))",
			`def __fn_1(x):
    try:
        if x is not None:
            __f_g()
            return 1
        else:
            return 2
    finally:
        __f_h()
=> __fn_1`,
		},
		{
			"prog1 saves affected value",
			"(lambda (x) (prog1 x (setq x 2)))",
			`def __fn_2(x):
    __first_1 = x
    x = 2
    return __first_1
=> __fn_2`,
		},
		{
			"optional and rest",
			"(lambda (a &optional (b 1) (c (g a)) &rest r) (list a b c r))",
			`def __fn_1(a, b=1, c=rt.UNBOUND, *r):
    if c is rt.UNBOUND:
        c = __f_g(a)
    r = rt.list(*r)
    return __f_list(a, b, c, r)
=> __fn_1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := lowerUnit(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLowerControlTransfer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"block",
			"(lambda (x) (block b (if x (return-from b 1)) 2))",
			[]string{"raise rt.Throw('#:b", "except rt.Throw as", "rt.catch_value("},
		},
		{
			"tagbody",
			"(lambda () (tagbody top (g) (go top)))",
			[]string{"while True:", "nonlocal __pc", "raise rt.Throw('#:tagbody"},
		},
		{
			"dolist",
			"(lambda (xs) (dolist (x xs) (g x)))",
			[]string{"while True:", "__f_car(", "__f_cdr("},
		},
		{
			"special let",
			"(defvar *v* 1) (lambda () (let ((*v* 2)) (g)))",
			[]string{"rt.symbol_value('*v*)", "rt.set_symbol_value('*v*", "finally:"},
		},
		{
			"special parameter",
			"(defvar *v* 1) (lambda (*v*) (g))",
			[]string{"rt.set_symbol_value('*v*", "finally:"},
		},
		{
			"mutual recursion",
			"(labels ((ev (n) (if (zerop n) t (od (- n 1)))) (od (n) (if (zerop n) nil (ev (- n 1))))) (ev 10))",
			[]string{"__f_zerop(", "== 0", "*"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := lowerUnit(t, tt.src)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestFixpoint(t *testing.T) {
	srcs := []string{
		"(lambda (x) (lambda () (setq x 1)))",
		"(lambda (x) (f (if x (progn (setq x (g)) 1) 2)))",
		"(defun f (n) (tagbody top (g n) (go top)))",
		"(lambda (a) (lambda (b) (lambda () (setq a b) (setq b a))))",
	}
	for _, instrument := range []bool{false, true} {
		for _, src := range srcs {
			t.Run(src, func(t *testing.T) {
				_, s := lowerUnit(t, src, WithInstrumentation(instrument))
				require.NotEmpty(t, s.Fixpoints())
				for _, stat := range s.Fixpoints() {
					assert.LessOrEqual(t, stat.Passes(), 3, stat.Function)
					for i := 1; i < len(stat.Externals); i++ {
						prev := ir.NewNames(stat.Externals[i-1]...)
						assert.True(t, prev.SubsetOf(ir.NewNames(stat.Externals[i]...)), stat.Function)
					}
				}
			})
		}
	}
}

func TestFixpointPasses(t *testing.T) {
	_, s := lowerUnit(t, "(lambda (x) (lambda () (setq x 1)))")
	stats := s.Fixpoints()
	require.Len(t, stats, 2)
	assert.Equal(t, [][]string{{}, {"x"}}, stats[0].Externals)
	assert.Equal(t, 1, stats[1].Passes())

	_, s = lowerUnit(t, "(lambda (x) (lambda () (setq x 1)))", WithInstrumentation(true))
	assert.Equal(t, 3, s.Fixpoints()[0].Passes())
}

func TestInstrumentation(t *testing.T) {
	got, _ := lowerUnit(t, "(defun f (x) (g x))", WithInstrumentation(true))
	assert.Contains(t, got, `rt.trace_enter("f", ("__f_g", "rt"))`)
}

func TestFixpointCap(t *testing.T) {
	forms, err := reader.Read("(lambda (x) (lambda () (setq x 1)))")
	require.NoError(t, err)
	out, e, err := expand.New().ExpandToplevel(forms[0], env.Root())
	require.NoError(t, err)
	_, err = New(WithMaxFixpointPasses(1)).NewSession().Lower(out, e)
	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindInternal, lerr.Kind)
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind ErrorKind
		msg  string
	}{
		{"(if)", KindSyntax, "malformed if"},
		{"(setq 1 2)", KindSyntax, "malformed setq"},
		{"(function (lambda (x x) x))", KindSemantic, "parameter x repeated"},
		{"(function (lambda (1) x))", KindSyntax, "malformed lambda list"},
		{"(setq :k 1)", KindSyntax, "malformed setq"},
		{"(setq t 1)", KindSemantic, "cannot assign to constant t"},
		{"(return-from nowhere 1)", KindSemantic, "unknown block"},
		{"(go nowhere)", KindSemantic, "unknown tag"},
		{"(let ((a 1) (a 2)) a)", KindSemantic, "bound twice"},
		{"(flet ((f () 1) (f () 2)) (f))", KindSemantic, "defined twice"},
		{"(tagbody a a)", KindSemantic, "appears twice"},
		{"(macrolet ((m () 1)) (m))", KindSemantic, "macrolet"},
		{"((f) 1)", KindSyntax, "illegal function call"},
		{"(%defvar *x* 1 :sometimes)", KindSyntax, "unknown definition mode"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := lowerRaw(tt.src)
			require.Error(t, err)
			var lerr *Error
			require.True(t, errors.As(err, &lerr), err.Error())
			assert.Equal(t, tt.kind, lerr.Kind)
			assert.Contains(t, lerr.Error(), tt.msg)
		})
	}
}

func TestConstantAssignment(t *testing.T) {
	forms, err := reader.Read("(defconstant +k+ 3) (setq +k+ 4)")
	require.NoError(t, err)
	x := expand.New()
	s := New().NewSession()
	e := env.Root()
	var lastErr error
	for _, f := range forms {
		out, next, err := x.ExpandToplevel(f, e)
		require.NoError(t, err)
		e = next
		_, lastErr = s.Lower(out, e)
	}
	var lerr *Error
	require.True(t, errors.As(lastErr, &lerr))
	assert.Equal(t, KindSemantic, lerr.Kind)
}

func TestWarnings(t *testing.T) {
	_, s := lowerUnit(t, "(defun f () y) (defun g () y)")
	require.Len(t, s.Warnings(), 1)
	assert.Equal(t, types.Intern("y"), s.Warnings()[0].Name)
	assert.Equal(t, msgUndefinedVariable, s.Warnings()[0].Msg)

	_, s = lowerUnit(t, "(defun f () *v*) (defvar *v* 1)")
	assert.Empty(t, s.Warnings())
}

func TestReferencedAndDefined(t *testing.T) {
	_, s := lowerUnit(t, "(defun f (x) (g x)) (defun g (x) (h x))")
	assert.Equal(t, []types.Value{types.Intern("f"), types.Intern("g")}, s.Defined())
	assert.Equal(t, []types.Value{types.Intern("g"), types.Intern("h")}, s.Referenced())
}

func TestAnalysis(t *testing.T) {
	c := Context{Env: env.Root(), s: New().NewSession()}
	tests := []struct {
		src      string
		nvalues  int
		effects  bool
		affected bool
	}{
		{"1", 1, false, false},
		{"x", 1, false, true},
		{"'x", 1, false, false},
		{"(values 1 2)", 2, false, false},
		{"(values 1 (g))", 2, true, true},
		{"(if x (values 1 2) (values 3 4))", 2, false, true},
		{"(if x 1 (values 3 4))", -1, false, true},
		{"(progn (g) 1)", 1, true, true},
		{"(g)", -1, true, true},
		{"(function (lambda () (g)))", 1, false, false},
		{"(nth-value 1 (g))", 1, true, true},
		{"(setq x 1)", 1, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f := reader.MustRead(tt.src)
			assert.Equal(t, tt.nvalues, c.NValues(f))
			assert.Equal(t, tt.effects, c.Effects(f))
			assert.Equal(t, tt.affected, c.Affected(f))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	names := r.Names()
	for _, want := range []string{"quote", "if", "let", "labels", "tagbody", "%defun", "%defvar", "%loop"} {
		assert.Contains(t, names, want)
	}
	_, ok := r.Lookup(types.Intern("defun"))
	assert.False(t, ok)
	assert.Panics(t, func() { NewRegistry(quoteOp{newBase("quote")}, quoteOp{newBase("quote")}) })
}

func TestLoweredIRValidates(t *testing.T) {
	srcs := []string{
		"(defun fact (n) (if (< n 2) 1 (* n (fact (- n 1)))))",
		"(defun sum (xs) (let ((s 0)) (dolist (x xs) (setq s (+ s x))) s))",
		"(defun count-to (n) (let ((out nil)) (dotimes (i n) (push i out)) out))",
		"(defun f (x) (case x (1 'one) ((2 3) 'few) (t 'many)))",
		"(defun f (x) (multiple-value-bind (a b) (g x) (list a b)))",
		"(defun f () (catch 'done (unwind-protect (throw 'done 1) (g))))",
		"(defun f (x) (when x (return-from f 1)) 2)",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			forms, err := reader.Read(src)
			require.NoError(t, err)
			out, e, err := expand.New().ExpandToplevel(forms[0], env.Root())
			require.NoError(t, err)
			l, err := New().NewSession().Lower(out, e)
			require.NoError(t, err)
			assert.NoError(t, ir.ValidateStmts(Statements(l)))
		})
	}
}
