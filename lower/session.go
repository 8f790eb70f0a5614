// Package lower turns fully macroexpanded forms into IR. Each known
// operator either lowers its form directly to prologue statements and a
// value expression, or rewrites it to simpler forms that are lowered in
// turn.
package lower

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"lispc/env"
	"lispc/ir"
	"lispc/trace"
	"lispc/types"
)

// DefaultMaxFixpointPasses bounds the externals computation of one
// function. Three passes always suffice; the rest is slack.
const DefaultMaxFixpointPasses = 5

// maxRewrites bounds the chain of rewrites applied to one form.
const maxRewrites = 1000

// Lowerer holds the configuration shared by every session.
type Lowerer struct {
	reg        *Registry
	tracer     *trace.Tracer
	instrument bool
	maxPasses  int
}

// Option configures a Lowerer.
type Option func(*Lowerer)

// WithTracer traces lowering decisions to t.
func WithTracer(t *trace.Tracer) Option {
	return func(lw *Lowerer) { lw.tracer = t }
}

// WithInstrumentation makes every function call rt.trace_enter on entry
// with its name and the names it uses from outside.
func WithInstrumentation(on bool) Option {
	return func(lw *Lowerer) { lw.instrument = on }
}

// WithMaxFixpointPasses overrides DefaultMaxFixpointPasses.
func WithMaxFixpointPasses(n int) Option {
	return func(lw *Lowerer) {
		if n > 0 {
			lw.maxPasses = n
		}
	}
}

// WithRegistry replaces the default operator registry.
func WithRegistry(r *Registry) Option {
	return func(lw *Lowerer) { lw.reg = r }
}

// New returns a Lowerer using the default registry.
func New(opts ...Option) *Lowerer {
	lw := &Lowerer{reg: DefaultRegistry(), maxPasses: DefaultMaxFixpointPasses}
	for _, o := range opts {
		o(lw)
	}
	return lw
}

// NewSession starts a session. Temporaries are numbered per session, so
// all forms of one compilation unit should share one.
func (lw *Lowerer) NewSession() *Session {
	return &Session{
		lw:         lw,
		warned:     make(map[string]bool),
		referenced: make(map[string]types.Value),
		defined:    make(map[string]types.Value),
		variables:  make(map[types.Symbol]bool),
	}
}

// FixpointStat records how one function's externals settled.
type FixpointStat struct {
	Function string
	// Externals holds the external names found by each pass.
	Externals [][]string
}

// Passes returns the number of passes run.
func (f FixpointStat) Passes() int {
	return len(f.Externals)
}

// Session lowers the forms of one compilation unit. It numbers
// temporaries and collects warnings and the global functions referenced
// and defined. A Session is not safe for concurrent use.
type Session struct {
	lw         *Lowerer
	temps      int
	warnings   []Warning
	warned     map[string]bool
	referenced map[string]types.Value
	defined    map[string]types.Value
	variables  map[types.Symbol]bool
	fixpoints  []FixpointStat
}

// Lower lowers a top-level form in environment e.
func (s *Session) Lower(form types.Value, e *env.Environment) (*Lowered, error) {
	c := Context{Env: e, s: s}
	return c.Lower(form)
}

// Statements flattens a top-level result into statements, keeping the
// value only if evaluating it may do something.
func Statements(l *Lowered) []types.Value {
	out := append([]types.Value(nil), l.Prologue...)
	if l.Value != nil && !isPure(l.Value) {
		out = append(out, ir.ExprStmt(l.Value))
	}
	return out
}

func (s *Session) warn(name types.Value, msg string) {
	key := msg + "\x00" + name.String()
	if s.warned[key] {
		return
	}
	s.warned[key] = true
	s.warnings = append(s.warnings, Warning{Name: name, Msg: msg})
	s.lw.tracer.Warning(name.String(), msg)
}

// Warnings returns the diagnostics of the session. Warnings about
// variables that a later form of the session defined are dropped.
func (s *Session) Warnings() []Warning {
	var out []Warning
	for _, w := range s.warnings {
		if sym, ok := w.Name.(types.Symbol); ok && w.Msg == msgUndefinedVariable && s.variables[sym] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (s *Session) reference(name types.Value) {
	s.referenced[name.String()] = name
}

func (s *Session) define(name types.Value) {
	s.defined[name.String()] = name
}

// Referenced returns the global functions used by the session, sorted by
// printed name.
func (s *Session) Referenced() []types.Value {
	return sortedValues(s.referenced)
}

// Defined returns the global functions defined by the session.
func (s *Session) Defined() []types.Value {
	return sortedValues(s.defined)
}

// Fixpoints returns one record per function literal lowered.
func (s *Session) Fixpoints() []FixpointStat {
	return s.fixpoints
}

// Mark is the state of a session before a form, restored by Rollback.
type Mark struct {
	warnings   int
	fixpoints  int
	warned     map[string]bool
	referenced map[string]types.Value
	defined    map[string]types.Value
	variables  map[types.Symbol]bool
}

// Mark records what the session has collected so far.
func (s *Session) Mark() Mark {
	return Mark{
		warnings:   len(s.warnings),
		fixpoints:  len(s.fixpoints),
		warned:     maps.Clone(s.warned),
		referenced: maps.Clone(s.referenced),
		defined:    maps.Clone(s.defined),
		variables:  maps.Clone(s.variables),
	}
}

// Rollback forgets the warnings, references and definitions collected
// since m. Temporary numbering is not rewound.
func (s *Session) Rollback(m Mark) {
	s.warnings = s.warnings[:m.warnings]
	s.fixpoints = s.fixpoints[:m.fixpoints]
	s.warned = m.warned
	s.referenced = m.referenced
	s.defined = m.defined
	s.variables = m.variables
}

func sortedValues(m map[string]types.Value) []types.Value {
	keys := maps.Keys(m)
	slices.Sort(keys)
	out := make([]types.Value, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
