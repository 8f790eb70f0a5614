package metasex

import (
	"lispc/match"
	"lispc/types"
)

// ShapeSource looks up the shape of an operator.
type ShapeSource interface {
	Shape(name types.Symbol) (match.Pattern, bool)
}

// Renderer pretty-prints forms. Lists headed by an operator with a known
// shape are laid out by that shape; everything else prints generically.
type Renderer struct {
	Shapes ShapeSource
	// Lax tolerates forms that do not fit their operator's shape, printing
	// the offending sub-forms generically instead of falling back for the
	// whole form.
	Lax bool
}

var abbreviations = map[types.Symbol]string{
	types.Intern("quote"):            "'",
	types.Intern("quasiquote"):       "`",
	types.Intern("unquote"):          ",",
	types.Intern("unquote-splicing"): ",@",
}

// Render returns the text of form. Reading the text back yields a form
// equal to the input.
func (r Renderer) Render(form types.Value) string {
	l, ok := form.(types.List)
	if !ok || l.Len() == 0 {
		return form.String()
	}
	printer := match.Printer{Render: r.Render}
	head, ok := l.At(0).(types.Symbol)
	if ok {
		if prefix, ok := abbreviations[head]; ok && l.Len() == 2 {
			return prefix + r.Render(l.At(1))
		}
		if r.Shapes != nil {
			if shape, ok := r.Shapes.Shape(head); ok {
				var fl match.Flavor = printer
				if r.Lax {
					fl = match.LaxPrinter{Printer: printer}
				}
				if res := match.Match(fl, shape, form); res.OK() {
					return res.Output.(string)
				}
			}
		}
	}
	return printer.Generic(form)
}

var defaultRenderer = func() Renderer {
	t, err := NewTable(Special, Surface)
	if err != nil {
		panic(err)
	}
	return Renderer{Shapes: t}
}()

// Render pretty-prints form using the built-in operator shapes.
func Render(form types.Value) string {
	return defaultRenderer.Render(form)
}

// RenderLax is Render with malformed sub-forms printed generically.
func RenderLax(form types.Value) string {
	r := defaultRenderer
	r.Lax = true
	return r.Render(form)
}
