// Package trace writes a human-readable trace of macroexpansion and
// lowering decisions. A nil *Tracer is valid and traces nothing.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lispc/types"
)

// Tracer provides compilation tracing for debugging
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// New creates a tracer. Filters are filepath.Match patterns over operator
// names; no filters traces everything. A nil writer means stderr.
func New(enabled bool, filters []string, writer io.Writer) *Tracer {
	if writer == nil {
		writer = os.Stderr
	}
	return &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// IsEnabled returns whether tracing is enabled
func (t *Tracer) IsEnabled() bool {
	return t != nil && t.enabled
}

// matchesFilter checks if an operator name matches any of the filter patterns
func (t *Tracer) matchesFilter(name string) bool {
	if len(t.filters) == 0 {
		return true // No filters = trace everything
	}

	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func (t *Tracer) printf(name, format string, args ...interface{}) {
	if !t.IsEnabled() || !t.matchesFilter(name) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] "+format+"\n", args...)
}

// Expand logs one macro expansion step
func (t *Tracer) Expand(name string, from, to types.Value) {
	t.printf(name, "EXPAND %s %s => %s", name, abbreviate(from), abbreviate(to))
}

// Lower logs a form handed to an operator's lowering rule
func (t *Tracer) Lower(name string, form types.Value) {
	t.printf(name, "LOWER %s %s", name, abbreviate(form))
}

// Rewrite logs a rule that answered with another form
func (t *Tracer) Rewrite(name string, from, to types.Value) {
	t.printf(name, "REWRITE %s %s => %s", name, abbreviate(from), abbreviate(to))
}

// Fixpoint logs one pass of a function's externals computation
func (t *Tracer) Fixpoint(fn string, pass int, externals []string) {
	t.printf(fn, "FIXPOINT %s pass=%d externals=[%s]", fn, pass, strings.Join(externals, ", "))
}

// Warning logs a lowering warning
func (t *Tracer) Warning(name, msg string) {
	t.printf(name, "WARNING %s %s", name, msg)
}

// abbreviate truncates long forms for readability
func abbreviate(v types.Value) string {
	if v == nil {
		return "<none>"
	}
	s := v.String()
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
