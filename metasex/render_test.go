package metasex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lispc/lower"
	"lispc/match"
	"lispc/metasex"
	"lispc/reader"
	"lispc/types"
)

// operatorSamples holds well-formed uses of every lowering operator, with
// multi-form bodies where the shape has newline directives.
var operatorSamples = map[string][]string{
	"quote": {`(quote (a "b" 1))`},
	"function": {
		`(function (lambda (x &optional (y 2) &rest r) (g x) (h y r)))`,
		`(function (%named-lambda walk (xs) (when xs (walk (cdr xs)))))`,
		`(function (setf car))`,
		`(function car)`,
	},
	"setq":                {`(setq a 1 b (f a))`},
	"if":                  {`(if (f x) (g 1) (h 2))`},
	"progn":               {`(progn (f) (g))`},
	"let":                 {`(let ((a 1) b (c)) (f a b c) (g))`},
	"flet":                {`(flet ((f (x) (g x) (h x)) (k () 1)) (f (k)))`},
	"labels":              {`(labels ((f (n) (if n (f (cdr n)) 0))) (f xs))`},
	"macrolet":            {`(macrolet ((m (x) (list 'car x))) (m y))`},
	"symbol-macrolet":     {`(symbol-macrolet ((x (car y))) (f x) (g x))`},
	"block":               {`(block done (f) (return-from done 1))`},
	"return-from":         {`(return-from done (values 1 2))`},
	"tagbody":             {`(tagbody start (f) (go start) 10 (g))`},
	"go":                  {`(go 10)`, `(go start)`},
	"catch":               {`(catch 'k (f) (throw 'k 1))`},
	"throw":               {`(throw 'k (f))`},
	"unwind-protect":      {`(unwind-protect (f) (g) (h))`},
	"multiple-value-call": {`(multiple-value-call #'list (values 1 2) (f))`},
	"nth-value":           {`(nth-value 1 (f))`},
	"values":              {`(values 1 "two" :three)`},
	"prog1":               {`(prog1 (f) (g) (h))`},
	"the":                 {`(the fixnum (f))`},
	"locally":             {`(locally (declare (special x)) (f x))`},
	"eval-when":           {`(eval-when (:execute :load-toplevel) (f) (g))`},
	"funcall":             {`(funcall f 1 2)`},
	"apply":               {`(apply #'f 1 xs)`},
	"%loop":               {`(%loop (f) (g))`},
	"%global-ref":         {`(%global-ref *x*)`},
	"%global-set":         {`(%global-set *x* (f))`},
	"%defun":              {`(%defun f (x &rest r) (g x) (h r))`},
	"%defvar":             {`(%defvar *x* 1 :always)`, `(%defvar *y*)`},
	"%eql":                {`(%eql a 1)`},
}

func TestRenderEveryOperator(t *testing.T) {
	reg := lower.DefaultRegistry()
	names := reg.Names()
	require.NotEmpty(t, names)
	for _, name := range names {
		if _, ok := operatorSamples[name]; !ok {
			t.Errorf("no render sample for operator %s", name)
		}
	}
	assert.Len(t, operatorSamples, len(names))

	table, err := metasex.NewTable(metasex.Special, metasex.Surface)
	require.NoError(t, err)
	renderers := map[string]metasex.Renderer{
		"registry": {Shapes: reg},
		"default":  {Shapes: table},
	}
	for name, srcs := range operatorSamples {
		shape, ok := reg.Shape(types.Intern(name))
		require.True(t, ok, name)
		for _, src := range srcs {
			form := reader.MustRead(src)
			t.Run(src, func(t *testing.T) {
				r := match.Validate(shape, form)
				require.True(t, r.OK(), "%s does not fit its shape: %s", src, r.Failure)

				for which, rd := range renderers {
					printed := match.Match(match.Printer{Render: rd.Render}, shape, form)
					require.True(t, printed.OK(), "%s: %s printer failed", src, which)

					text := rd.Render(form)
					back, err := reader.ReadOne(text)
					require.NoError(t, err, "%s: %s rendered %q", src, which, text)
					assert.Equal(t, form.String(), back.String(), "%s: %s rendered %q", src, which, text)
					assert.Equal(t, text, rd.Render(back), "%s: %s render is not stable", src, which)
				}
			})
		}
	}
}
