// Package compiler drives the compilation of a unit of top-level forms:
// each form is expanded, lowered and validated in turn, sharing one
// global environment and one lowering session.
package compiler

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lispc/env"
	"lispc/expand"
	"lispc/ir"
	"lispc/lower"
	"lispc/metasex"
	"lispc/reader"
	"lispc/target"
	"lispc/trace"
	"lispc/types"
)

// Compiler compiles forms with a fixed configuration. A Compiler may be
// used by one goroutine at a time.
type Compiler struct {
	cfg    Config
	log    *zap.Logger
	traceW io.Writer
	tracer *trace.Tracer
	x      *expand.Expander
	lw     *lower.Lowerer
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Compiler) { c.log = log }
}

// WithTraceWriter sets where trace lines go when tracing is enabled.
// The default is standard error.
func WithTraceWriter(w io.Writer) Option {
	return func(c *Compiler) { c.traceW = w }
}

// New returns a compiler for cfg.
func New(cfg Config, opts ...Option) *Compiler {
	c := &Compiler{
		cfg:    cfg,
		log:    zap.NewNop(),
		traceW: os.Stderr,
	}
	for _, o := range opts {
		o(c)
	}
	c.tracer = trace.New(cfg.Trace, cfg.TraceFilters, c.traceW)
	c.x = expand.New(
		expand.WithTracer(c.tracer),
		expand.WithMaxDepth(cfg.MaxExpandDepth),
	)
	c.lw = lower.New(
		lower.WithTracer(c.tracer),
		lower.WithInstrumentation(cfg.Instrument),
		lower.WithMaxFixpointPasses(cfg.MaxFixpointPasses),
	)
	return c
}

// Expander returns the macro expander, for installing global macros.
func (c *Compiler) Expander() *expand.Expander {
	return c.x
}

// ExpandAll expands every macro call in form.
func (c *Compiler) ExpandAll(form types.Value, e *env.Environment) (types.Value, error) {
	if e == nil {
		e = env.Root()
	}
	return c.x.ExpandAll(form, e)
}

// ExpandUnit expands top-level forms in order, letting the definitions of
// each form reach the ones after it.
func (c *Compiler) ExpandUnit(forms []types.Value) ([]types.Value, error) {
	e := env.Root()
	out := make([]types.Value, 0, len(forms))
	for i, f := range forms {
		var (
			x   types.Value
			err error
		)
		x, e, err = c.x.ExpandToplevel(f, e)
		if err != nil {
			return out, errors.Wrapf(err, "expanding form %d", i+1)
		}
		out = append(out, x)
	}
	return out, nil
}

// Lower lowers an expanded form on its own, returning the statements that
// must run first and the expression giving its value.
func (c *Compiler) Lower(form types.Value, e *env.Environment) ([]types.Value, types.Value, error) {
	if e == nil {
		e = env.Root()
	}
	l, err := c.lw.NewSession().Lower(form, e)
	if err != nil {
		return nil, nil, err
	}
	return l.Prologue, l.Value, nil
}

// Render pretty prints form.
func Render(form types.Value) string {
	return metasex.Render(form)
}

// Output is the result of compiling a unit.
type Output struct {
	// Expanded holds each successfully expanded top-level form.
	Expanded []types.Value
	// Body holds the IR statements of the unit, in order.
	Body []types.Value
	// Module is Body as target AST.
	Module *target.Module

	Referenced *SymbolSet
	Defined    *SymbolSet
	// Unresolved holds the functions referenced but not defined by the
	// unit.
	Unresolved *SymbolSet
	Warnings   []lower.Warning
	Fixpoints  []lower.FixpointStat

	// Failed counts the forms that did not compile.
	Failed int
	// Err combines the errors of the failed forms.
	Err error
}

// Source returns the unit as target source text.
func (o *Output) Source() string {
	if o.Module == nil {
		return ""
	}
	return target.Unparse(o.Module)
}

// CompileString reads src and compiles its forms as one unit.
func (c *Compiler) CompileString(src string, standalone bool) (*Output, error) {
	forms, err := reader.Read(src)
	if err != nil {
		return nil, errors.Wrap(err, "reading source")
	}
	return c.CompileUnit(forms, standalone)
}

// CompileUnit compiles forms as one unit. A form that fails to compile is
// counted and skipped; the returned error combines every failure, and the
// Output is always usable for the forms that did compile.
//
// In standalone mode the body starts by binding every function the unit
// references but does not define from the runtime.
func (c *Compiler) CompileUnit(forms []types.Value, standalone bool) (*Output, error) {
	s := c.lw.NewSession()
	e := env.Root()
	out := &Output{}

	for i, f := range forms {
		mark := s.Mark()
		x, stmts, e2, err := c.compileForm(s, f, e)
		e = e2
		if x != nil {
			out.Expanded = append(out.Expanded, x)
		}
		if err != nil {
			s.Rollback(mark)
			out.Failed++
			err = errors.Wrapf(err, "form %d", i+1)
			out.Err = multierr.Append(out.Err, err)
			c.log.Warn("Form failed to compile",
				zap.Int("form", i+1),
				zap.String("source", abbreviate(f)),
				zap.Error(err))
			continue
		}
		out.Body = append(out.Body, stmts...)
	}

	out.Referenced = NewSymbolSet(s.Referenced()...)
	out.Defined = NewSymbolSet(s.Defined()...)
	out.Unresolved = out.Referenced.Minus(out.Defined)
	out.Warnings = s.Warnings()
	out.Fixpoints = s.Fixpoints()

	if standalone {
		out.Body = append(availability(out.Unresolved), out.Body...)
	}
	mod, err := ir.ModuleAST(out.Body)
	if err != nil {
		return out, &lower.Error{Kind: lower.KindInternal, Msg: err.Error()}
	}
	out.Module = mod

	for _, w := range out.Warnings {
		c.log.Debug("Compiler warning", zap.String("warning", w.String()))
	}
	if out.Unresolved.Len() > 0 {
		c.log.Warn("Unresolved function references",
			zap.Strings("functions", names(out.Unresolved)),
			zap.Bool("standalone", standalone))
	}
	c.log.Info("Compiled unit",
		zap.Int("forms", len(forms)),
		zap.Int("failed", out.Failed),
		zap.Int("statements", len(out.Body)),
		zap.Int("warnings", len(out.Warnings)))
	return out, out.Err
}

// compileForm returns the expanded form, its statements and the
// environment for the forms after it.
func (c *Compiler) compileForm(s *lower.Session, form types.Value, e *env.Environment) (types.Value, []types.Value, *env.Environment, error) {
	x, e, err := c.x.ExpandToplevel(form, e)
	if err != nil {
		return nil, nil, e, err
	}
	l, err := s.Lower(x, e)
	if err != nil {
		return x, nil, e, err
	}
	stmts := lower.Statements(l)
	if err := ir.ValidateStmts(stmts); err != nil {
		return x, nil, e, &lower.Error{Kind: lower.KindInternal, Form: x, Msg: err.Error()}
	}
	return x, stmts, e, nil
}

// availability binds each name from the runtime.
func availability(syms *SymbolSet) []types.Value {
	var out []types.Value
	for _, sym := range syms.Slice() {
		out = append(out, ir.Assign(
			ir.Name(ir.FunctionIdent(sym)),
			ir.CallRT("function", ir.Const(sym)),
		))
	}
	return out
}

func names(syms *SymbolSet) []string {
	var out []string
	for _, sym := range syms.Slice() {
		out = append(out, sym.String())
	}
	return out
}

func abbreviate(v types.Value) string {
	s := strings.TrimSpace(v.String())
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
