package match

import (
	"strings"

	"lispc/types"
)

// Validator is the destructuring flavor: it produces bindings only.
type Validator struct{}

func (Validator) Leaf(types.Value) interface{}         { return nil }
func (Validator) List(types.Value, []Part) interface{} { return nil }
func (Validator) Recover(types.Value) (interface{}, bool) {
	return nil, false
}

// Printer is the pretty-printing flavor. Productions are text whose
// continuation lines are indented relative to the text's first column.
// Render prints the forms matched by atom-level patterns; it defaults to
// the plain representation.
type Printer struct {
	Render func(types.Value) string
}

// Leaf renders a form matched by a leaf pattern.
func (p Printer) Leaf(x types.Value) interface{} {
	if p.Render != nil {
		return p.Render(x)
	}
	return x.String()
}

// List lays out the parts of a matched list, honouring print directives.
func (p Printer) List(_ types.Value, parts []Part) interface{} {
	var sb strings.Builder
	sb.WriteByte('(')
	col := 1
	indent := 2
	first := true
	pendingBreak := false
	for _, part := range parts {
		if d := part.Directive; d != nil {
			switch d.Kind {
			case DirNewline:
				pendingBreak = true
			case DirIndent:
				indent = d.Arg
			}
			continue
		}
		text, _ := part.Out.(string)
		if !first {
			if pendingBreak {
				sb.WriteByte('\n')
				sb.WriteString(strings.Repeat(" ", indent))
				col = indent
			} else {
				sb.WriteByte(' ')
				col++
			}
		}
		pendingBreak = false
		first = false
		col = place(&sb, text, col)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Recover never tolerates malformed input.
func (Printer) Recover(types.Value) (interface{}, bool) {
	return nil, false
}

// LaxPrinter prints malformed input generically instead of failing, for
// editor feedback on incomplete forms.
type LaxPrinter struct {
	Printer
}

// Recover renders x without a shape.
func (p LaxPrinter) Recover(x types.Value) (interface{}, bool) {
	return p.Generic(x), true
}

// Generic lays out x as a plain list whose elements are rendered by
// p.Render.
func (p Printer) Generic(x types.Value) string {
	l, ok := x.(types.List)
	if !ok || l.Len() == 0 {
		return p.Leaf(x).(string)
	}
	parts := make([]Part, l.Len())
	for i, e := range l.Elements() {
		parts[i] = Part{Out: p.Leaf(e)}
	}
	return p.List(x, parts).(string)
}

// place writes text at column col and returns the column after it.
func place(sb *strings.Builder, text string, col int) int {
	lines := strings.Split(text, "\n")
	sb.WriteString(lines[0])
	if len(lines) == 1 {
		return col + len(text)
	}
	pad := strings.Repeat(" ", col)
	for _, line := range lines[1:] {
		sb.WriteByte('\n')
		if line != "" {
			sb.WriteString(pad)
		}
		sb.WriteString(line)
	}
	return col + len(lines[len(lines)-1])
}
