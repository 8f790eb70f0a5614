package metasex

import (
	"golang.org/x/exp/slices"

	"lispc/match"
	"lispc/types"
)

// LambdaList is the shape of an ordinary lambda list. Macro lambda lists
// accept &body as a synonym for &rest.
const LambdaList = `((%* (%variable req))
  (%maybe '&optional (%* (%scope optional (%or (%variable var) ((%variable var) (%maybe init))))))
  (%maybe (%or '&rest '&body) (%variable rest)))`

// Special holds the shapes of the special operators, the forms the
// lowering engine knows natively.
var Special = map[string]string{
	"quote":    `('quote datum)`,
	"function": `('function (%or (%symbol name) ('lambda (%list lambda-list) (%* (%newline) body)) ('%named-lambda (%symbol fname) (%list lambda-list) (%* (%newline) body)) ('setf (%symbol setter))))`,
	"setq":     `('setq (%* (%symbol var) value))`,
	"if":       `('if test (%indent 4) (%newline) then (%maybe (%newline) else))`,
	"progn":    `('progn (%* (%newline) form))`,
	"let":      `('let ((%* (%scope binding (%or (%variable var) ((%variable var) (%maybe init)))))) (%* (%newline) body))`,
	"flet":     `('flet ((%* (%scope def ((%symbol name) (%list lambda-list) (%* (%newline) fbody))))) (%* (%newline) body))`,
	"labels":   `('labels ((%* (%scope def ((%symbol name) (%list lambda-list) (%* (%newline) fbody))))) (%* (%newline) body))`,
	"macrolet": `('macrolet ((%* (%scope def ((%symbol name) (%list lambda-list) (%* (%newline) fbody))))) (%* (%newline) body))`,
	"symbol-macrolet": `('symbol-macrolet ((%* (%scope def ((%variable name) expansion)))) (%* (%newline) body))`,
	"block":          `('block (%symbol name) (%* (%newline) body))`,
	"return-from":    `('return-from (%symbol name) (%maybe value))`,
	"tagbody":        `('tagbody (%* (%newline) item))`,
	"go":             `('go (%or (%symbol tag) (%integer tag)))`,
	"catch":          `('catch tag (%* (%newline) body))`,
	"throw":          `('throw tag value)`,
	"unwind-protect": `('unwind-protect protected (%* (%newline) cleanup))`,
	"multiple-value-call": `('multiple-value-call function (%* arg))`,
	"nth-value":      `('nth-value (%integer n) form)`,
	"values":         `('values (%* arg))`,
	"prog1":          `('prog1 first (%* (%newline) form))`,
	"the":            `('the type form)`,
	"locally":        `('locally (%* (%newline) body))`,
	"eval-when":      `('eval-when (%list situations) (%* (%newline) body))`,
	"funcall":        `('funcall function (%* arg))`,
	"apply":          `('apply function (%* arg) spread)`,
	"%loop":          `('%loop (%* (%newline) body))`,
	"%global-ref":    `('%global-ref (%symbol name))`,
	"%global-set":    `('%global-set (%symbol name) value)`,
	"%defun":         `('%defun (%symbol name) (%list lambda-list) (%* (%newline) body))`,
	"%defvar":        `('%defvar (%variable name) (%maybe value (%maybe (%keyword mode))))`,
	"%eql":           `('%eql left right)`,
}

// Surface holds print shapes for the common macros. They are only used
// for rendering; the macros themselves are expanded by Go code.
var Surface = map[string]string{
	"defun":       `('defun (%symbol name) (%list lambda-list) (%* (%newline) body))`,
	"defmacro":    `('defmacro (%symbol name) (%list lambda-list) (%* (%newline) body))`,
	"defvar":      `('defvar (%variable name) (%maybe value (%maybe doc)))`,
	"defparameter": `('defparameter (%variable name) value (%maybe doc))`,
	"lambda":      `('lambda (%list lambda-list) (%* (%newline) body))`,
	"when":        `('when test (%* (%newline) body))`,
	"unless":      `('unless test (%* (%newline) body))`,
	"let*":        `('let* ((%* (%scope binding (%or (%variable var) ((%variable var) (%maybe init)))))) (%* (%newline) body))`,
	"dolist":      `('dolist ((%variable var) list (%maybe result)) (%* (%newline) body))`,
	"dotimes":     `('dotimes ((%variable var) count (%maybe result)) (%* (%newline) body))`,
	"cond":        `('cond (%* (%newline) clause))`,
	"multiple-value-bind": `('multiple-value-bind (%list vars) (%indent 4) form (%indent 2) (%* (%newline) body))`,
}

// Table maps operator names to compiled shapes.
type Table map[types.Symbol]match.Pattern

// Shape implements ShapeSource.
func (t Table) Shape(name types.Symbol) (match.Pattern, bool) {
	p, ok := t[name]
	return p, ok
}

// Names returns the operator names in t, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for s := range t {
		names = append(names, s.Name)
	}
	slices.Sort(names)
	return names
}

// NewTable compiles a table of shape sources.
func NewTable(srcs ...map[string]string) (Table, error) {
	t := make(Table)
	for _, m := range srcs {
		for name, src := range m {
			p, err := Compile(src)
			if err != nil {
				return nil, err
			}
			t[types.Intern(name)] = p
		}
	}
	return t, nil
}

// MustShape returns the compiled shape of a special operator.
func MustShape(name string) match.Pattern {
	src, ok := Special[name]
	if !ok {
		panic("metasex: no special operator " + name)
	}
	return MustCompile(src)
}

// Lambda returns the compiled lambda-list shape.
func Lambda() match.Pattern {
	return MustCompile(LambdaList)
}
