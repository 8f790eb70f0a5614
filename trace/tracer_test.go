package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"lispc/types"
)

func TestTracerFilters(t *testing.T) {
	var buf bytes.Buffer
	tr := New(true, []string{"let?", "%*"}, &buf)

	tr.Lower("let", types.L("let", types.Nil))
	tr.Lower("let*", types.L("let*", types.Nil))
	tr.Rewrite("%loop", types.L("%loop"), types.L("progn"))

	assert.Equal(t, "[TRACE] LOWER let* (let* ())\n[TRACE] REWRITE %loop (%loop) => (progn)\n", buf.String())
}

func TestTracerDisabled(t *testing.T) {
	var buf bytes.Buffer
	New(false, nil, &buf).Expand("when", types.L("when"), types.L("if"))
	assert.Empty(t, buf.String())

	var nilTracer *Tracer
	assert.False(t, nilTracer.IsEnabled())
	nilTracer.Fixpoint("f", 1, nil)
}

func TestTracerAbbreviates(t *testing.T) {
	var buf bytes.Buffer
	long := make([]interface{}, 0, 40)
	for i := 0; i < 40; i++ {
		long = append(long, "symbol")
	}
	New(true, nil, &buf).Lower("f", types.L(long...))
	assert.Contains(t, buf.String(), "...")
	assert.Less(t, buf.Len(), 120)
}

func TestTracerFixpoint(t *testing.T) {
	var buf bytes.Buffer
	New(true, nil, &buf).Fixpoint("__f_g", 2, []string{"rt", "x"})
	assert.Equal(t, "[TRACE] FIXPOINT __f_g pass=2 externals=[rt, x]\n", buf.String())
}
