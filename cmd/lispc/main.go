// Command lispc compiles, expands and pretty prints source files.
//
// Sources are read from the files named on the command line, or from
// standard input when there are none. Every flag can also be given as an
// environment variable: --trace-filter is LISPC_TRACE_FILTER.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"lispc/compiler"
	"lispc/ir"
	"lispc/logger"
	"lispc/reader"
	"lispc/types"
)

func main() {
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	config            string
	standalone        bool
	instrument        bool
	trace             bool
	traceFilter       []string
	maxFixpointPasses int
	maxExpandDepth    int
	logLevel          zapcore.Level
	logFormat         string
}

type program struct {
	v      *viper.Viper
	opts   options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	p := &program{
		v:      newViper("lispc"),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	cmd := &cobra.Command{
		Use:           "lispc",
		Short:         "Lisp to IR compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	BindOptions(p.v, cmd.PersistentFlags(), []Opt{
		NewOpt(&p.opts.config, "config", "", "path to a TOML config file"),
		NewOpt(&p.opts.standalone, "standalone", false, "bind referenced but undefined functions from the runtime"),
		NewOpt(&p.opts.instrument, "instrument", false, "make every function report entry to the runtime"),
		NewOpt(&p.opts.trace, "trace", false, "trace expansion and lowering to stderr"),
		NewOpt(&p.opts.traceFilter, "trace-filter", nil, "only trace operators matching these glob patterns"),
		NewOpt(&p.opts.maxFixpointPasses, "max-fixpoint-passes", 0, "bound on the externals computation of a function"),
		NewOpt(&p.opts.maxExpandDepth, "max-expand-depth", 0, "bound on nested macro expansion"),
		NewOpt(&p.opts.logLevel, "log-level", zapcore.WarnLevel, "log level: debug, info, warn or error"),
		NewOpt(&p.opts.logFormat, "log-format", "console", "log format: console or json"),
	})

	cmd.AddCommand(p.compileCommand(), p.expandCommand(), p.renderCommand())
	return cmd
}

func (p *program) compileCommand() *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile source to target code",
		RunE: func(_ *cobra.Command, args []string) error {
			return p.compile(args, tree)
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print the IR as a tree instead of target code")
	return cmd
}

func (p *program) expandCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expand [files...]",
		Short: "Print the macroexpansion of each top-level form",
		RunE: func(_ *cobra.Command, args []string) error {
			return p.expand(args)
		},
	}
}

func (p *program) renderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render [files...]",
		Short: "Pretty print each top-level form",
		RunE: func(_ *cobra.Command, args []string) error {
			forms, err := p.read(args)
			if err != nil {
				return err
			}
			p.printForms(forms)
			return nil
		},
	}
}

// config builds the compiler configuration: defaults, then the config
// file, then any flag or environment variable that was given.
func (p *program) config() (compiler.Config, error) {
	cfg := compiler.NewConfig()
	if path := p.v.GetString("config"); path != "" {
		var err error
		if cfg, err = compiler.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if p.v.IsSet("standalone") {
		cfg.Standalone = p.v.GetBool("standalone")
	}
	if p.v.IsSet("instrument") {
		cfg.Instrument = p.v.GetBool("instrument")
	}
	if p.v.IsSet("trace") {
		cfg.Trace = p.v.GetBool("trace")
	}
	if p.v.IsSet("trace-filter") {
		cfg.TraceFilters = p.v.GetStringSlice("trace-filter")
	}
	if n := p.v.GetInt("max-fixpoint-passes"); n > 0 {
		cfg.MaxFixpointPasses = n
	}
	if n := p.v.GetInt("max-expand-depth"); n > 0 {
		cfg.MaxExpandDepth = n
	}
	if p.v.IsSet("log-level") {
		level, err := logger.ParseLevel(p.v.GetString("log-level"))
		if err != nil {
			return cfg, errors.Wrap(err, "log-level")
		}
		cfg.Log.Level = level
	} else if p.v.GetString("config") == "" {
		// Without a config file the flag default applies.
		cfg.Log.Level = p.opts.logLevel
	}
	if p.v.IsSet("log-format") {
		cfg.Log.Format = p.v.GetString("log-format")
	}
	return cfg, nil
}

func (p *program) compiler() (*compiler.Compiler, compiler.Config, error) {
	cfg, err := p.config()
	if err != nil {
		return nil, cfg, err
	}
	log := logger.NewWithConfig(p.stderr, cfg.Log)
	c := compiler.New(cfg, compiler.WithLogger(log), compiler.WithTraceWriter(p.stderr))
	return c, cfg, nil
}

func (p *program) compile(args []string, tree bool) error {
	c, cfg, err := p.compiler()
	if err != nil {
		return err
	}
	forms, err := p.read(args)
	if err != nil {
		return err
	}
	out, err := c.CompileUnit(forms, cfg.Standalone)
	for _, w := range out.Warnings {
		fmt.Fprintf(p.stderr, "warning: %s\n", w)
	}
	if err != nil {
		return err
	}
	if tree {
		fmt.Fprint(p.stdout, ir.Tree(ir.Module(out.Body...)))
		return nil
	}
	fmt.Fprintln(p.stdout, out.Source())
	return nil
}

func (p *program) expand(args []string) error {
	c, _, err := p.compiler()
	if err != nil {
		return err
	}
	forms, err := p.read(args)
	if err != nil {
		return err
	}
	out, err := c.ExpandUnit(forms)
	p.printForms(out)
	return err
}

func (p *program) printForms(forms []types.Value) {
	for i, f := range forms {
		if i > 0 {
			fmt.Fprintln(p.stdout)
		}
		fmt.Fprintln(p.stdout, compiler.Render(f))
	}
}

// read parses the named files in order, or standard input if there are
// none. "-" also names standard input.
func (p *program) read(args []string) ([]types.Value, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	var forms []types.Value
	for _, name := range args {
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(p.stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		fs, err := reader.Read(string(data))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", displayName(name))
		}
		forms = append(forms, fs...)
	}
	return forms, nil
}

func displayName(name string) string {
	if name == "-" {
		return "standard input"
	}
	return strings.TrimPrefix(name, "./")
}
