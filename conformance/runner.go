package conformance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreyvit/diff"
	"go.uber.org/multierr"

	"lispc/compiler"
	"lispc/expand"
	"lispc/lower"
	"lispc/reader"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner compiles conformance tests and checks their expectations
type Runner struct {
	base compiler.Config
}

// NewRunner creates a runner with the default compiler configuration
func NewRunner() *Runner {
	return NewRunnerWithConfig(compiler.NewConfig())
}

// NewRunnerWithConfig creates a runner whose suites start from cfg
func NewRunnerWithConfig(cfg compiler.Config) *Runner {
	return &Runner{base: cfg}
}

// config applies the suite overrides to the base configuration
func (r *Runner) config(test LoadedTest) compiler.Config {
	cfg := r.base
	if sc := test.Suite.Config; sc != nil {
		cfg.Standalone = cfg.Standalone || sc.Standalone
		cfg.Instrument = cfg.Instrument || sc.Instrument
		if sc.MaxFixpointPasses > 0 {
			cfg.MaxFixpointPasses = sc.MaxFixpointPasses
		}
	}
	if test.Test.Standalone != nil {
		cfg.Standalone = *test.Test.Standalone
	}
	return cfg
}

// Run executes a single test case
func (r *Runner) Run(test LoadedTest) TestResult {
	if skipped, reason := test.Test.IsSkipped(); skipped {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: reason,
		}
	}
	if strings.TrimSpace(test.Test.Source) == "" {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: "no source",
		}
	}

	cfg := r.config(test)
	out, err := compiler.New(cfg).CompileString(test.Test.Source, cfg.Standalone)

	checkErr := checkExpectation(test.Test.Expect, out, err)
	return TestResult{
		Test:   test,
		Passed: checkErr == nil,
		Error:  checkErr,
	}
}

// RunAll executes all loaded tests
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		results[i] = r.Run(test)
	}
	return results
}

// SummaryStats computes statistics from test results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from test results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

// checkExpectation checks the compiler result against the expected outcome
func checkExpectation(expect Expectation, out *compiler.Output, err error) error {
	if expect.IsEmpty() {
		return fmt.Errorf("no expectation specified")
	}

	// Check for expected error
	if expect.Error != "" {
		if err == nil {
			return fmt.Errorf("expected %s error, compiled to:\n%s", expect.Error, out.Source())
		}
		if got := errorClass(err); got != expect.Error {
			return fmt.Errorf("expected %s error, got %s: %v", expect.Error, got, err)
		}
		if expect.Message != "" && !strings.Contains(err.Error(), expect.Message) {
			return fmt.Errorf("expected error containing %q, got %v", expect.Message, err)
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("unexpected error: %v", err)
	}

	src := out.Source()
	if expect.Output != "" {
		want := strings.TrimRight(expect.Output, "\n")
		if src != want {
			return fmt.Errorf("output not as expected want(-) got (+):\n%s", diff.LineDiff(want, src))
		}
	}
	if expect.Expanded != "" {
		if len(out.Expanded) == 0 {
			return fmt.Errorf("no forms expanded")
		}
		want := strings.TrimRight(expect.Expanded, "\n")
		got := out.Expanded[len(out.Expanded)-1].String()
		if got != want {
			return fmt.Errorf("expansion not as expected want(-) got (+):\n%s", diff.LineDiff(want, got))
		}
	}
	for _, s := range expect.Contains {
		if !strings.Contains(src, s) {
			return fmt.Errorf("output does not contain %q:\n%s", s, src)
		}
	}
	for _, s := range expect.NotContains {
		if strings.Contains(src, s) {
			return fmt.Errorf("output contains %q:\n%s", s, src)
		}
	}
	if expect.Warnings != nil {
		got := make([]string, 0, len(out.Warnings))
		for _, w := range out.Warnings {
			got = append(got, w.String())
		}
		if err := compareLists("warnings", expect.Warnings, got); err != nil {
			return err
		}
	}
	if expect.Defined != nil {
		if err := compareLists("defined", expect.Defined, symbolNames(out.Defined)); err != nil {
			return err
		}
	}
	if expect.Unresolved != nil {
		if err := compareLists("unresolved", expect.Unresolved, symbolNames(out.Unresolved)); err != nil {
			return err
		}
	}
	return nil
}

// errorClass names the stage that rejected the source
func errorClass(err error) string {
	if errs := multierr.Errors(err); len(errs) > 0 {
		err = errs[0]
	}
	var rerr *reader.SyntaxError
	var xerr *expand.Error
	var lerr *lower.Error
	switch {
	case errors.As(err, &rerr):
		return "read"
	case errors.As(err, &xerr):
		return "expand"
	case errors.As(err, &lerr):
		switch lerr.Kind {
		case lower.KindSyntax:
			return "syntax"
		case lower.KindSemantic:
			return "semantic"
		case lower.KindInternal:
			return "internal"
		}
	}
	return "unknown"
}

func compareLists(what string, want, got []string) error {
	w := strings.Join(want, "\n")
	g := strings.Join(got, "\n")
	if w != g {
		return fmt.Errorf("%s not as expected want(-) got (+):\n%s", what, diff.LineDiff(w, g))
	}
	return nil
}

func symbolNames(s *compiler.SymbolSet) []string {
	var out []string
	for _, sym := range s.Slice() {
		out = append(out, sym.String())
	}
	return out
}
