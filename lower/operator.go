package lower

import (
	"fmt"

	"golang.org/x/exp/slices"

	"lispc/env"
	"lispc/match"
	"lispc/metasex"
	"lispc/types"
)

// Operator is a known operator: its shape plus the rules that lower and
// analyse its forms. Every method receives the bindings of the form
// matched against Shape.
type Operator interface {
	Name() string
	Shape() match.Pattern
	// Lower lowers form directly or rewrites it.
	Lower(c Context, m match.Bindings, form types.List) (Result, error)
	// Binds returns the names the form binds around its body.
	Binds(c Context, m match.Bindings) env.Frame
	// NValues returns how many values the form produces, or -1.
	NValues(c Context, m match.Bindings) int
	// NthValue returns a form computing the nth value of the form, if
	// the operator knows one.
	NthValue(c Context, m match.Bindings, n int) (types.Value, bool)
	// Effects reports whether evaluating the form may do anything besides
	// producing its value.
	Effects(c Context, m match.Bindings) bool
	// Affected reports whether the value of the form may be changed by
	// the effects of other forms.
	Affected(c Context, m match.Bindings) bool
}

// base supplies the conservative analysis shared by most operators.
type base struct {
	name  string
	shape match.Pattern
}

func newBase(name string) base {
	return base{name: name, shape: metasex.MustShape(name)}
}

func (b base) Name() string                                              { return b.name }
func (b base) Shape() match.Pattern                                      { return b.shape }
func (b base) Binds(Context, match.Bindings) env.Frame                   { return nil }
func (b base) NValues(Context, match.Bindings) int                       { return -1 }
func (b base) NthValue(Context, match.Bindings, int) (types.Value, bool) { return nil, false }
func (b base) Effects(Context, match.Bindings) bool                      { return true }
func (b base) Affected(Context, match.Bindings) bool                     { return true }

// Registry maps operator names to operators. It is immutable once built.
type Registry struct {
	ops map[types.Symbol]Operator
}

// NewRegistry builds a registry. Registering a name twice panics.
func NewRegistry(ops ...Operator) *Registry {
	r := &Registry{ops: make(map[types.Symbol]Operator, len(ops))}
	for _, op := range ops {
		name := types.Intern(op.Name())
		if _, dup := r.ops[name]; dup {
			panic(fmt.Sprintf("lower: operator %s registered twice", op.Name()))
		}
		r.ops[name] = op
	}
	return r
}

// Lookup returns the operator named name.
func (r *Registry) Lookup(name types.Symbol) (Operator, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.ops))
	for name := range r.ops {
		out = append(out, name.Name)
	}
	slices.Sort(out)
	return out
}

// Shape implements metasex.ShapeSource, so a registry can drive the
// pretty printer.
func (r *Registry) Shape(name types.Symbol) (match.Pattern, bool) {
	op, ok := r.ops[name]
	if !ok {
		return nil, false
	}
	return op.Shape(), true
}

// DefaultRegistry returns a registry of every built-in operator.
func DefaultRegistry() *Registry {
	return NewRegistry(
		quoteOp{newBase("quote")},
		functionOp{newBase("function")},
		setqOp{newBase("setq")},
		ifOp{newBase("if")},
		prognOp{newBase("progn")},
		letOp{newBase("let")},
		fletOp{newBase("flet")},
		labelsOp{newBase("labels")},
		macroletOp{newBase("macrolet")},
		symbolMacroletOp{newBase("symbol-macrolet")},
		blockOp{newBase("block")},
		returnFromOp{newBase("return-from")},
		tagbodyOp{newBase("tagbody")},
		goOp{newBase("go")},
		catchOp{newBase("catch")},
		throwOp{newBase("throw")},
		unwindProtectOp{newBase("unwind-protect")},
		multipleValueCallOp{newBase("multiple-value-call")},
		nthValueOp{newBase("nth-value")},
		valuesOp{newBase("values")},
		prog1Op{newBase("prog1")},
		theOp{newBase("the")},
		locallyOp{newBase("locally")},
		evalWhenOp{newBase("eval-when")},
		funcallOp{newBase("funcall")},
		applyOp{newBase("apply")},
		loopOp{newBase("%loop")},
		globalRefOp{newBase("%global-ref")},
		globalSetOp{newBase("%global-set")},
		defunOp{newBase("%defun")},
		defvarOp{newBase("%defvar")},
		eqlOp{newBase("%eql")},
	)
}
