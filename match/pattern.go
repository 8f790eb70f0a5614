// Package match implements a backtracking structural matcher over nested
// forms. Patterns mirror the shape of the forms they match; the engine is
// parameterized by a Flavor that decides what a successful match produces.
package match

import (
	"fmt"
	"strings"

	"lispc/types"
)

// Pattern is a node of a structural pattern tree.
type Pattern interface {
	String() string
	// bound adds the names this pattern binds at its own level. Names
	// bound under a grouped segment belong to the group, not the caller.
	bound(acc map[string]bool)
}

// Literal matches a form equal to Value.
type Literal struct {
	Value types.Value
}

// Any matches every form.
type Any struct{}

// Name binds the form matched by Sub (Any when nil) to Name.
type Name struct {
	Name string
	Sub  Pattern
}

// Pred matches forms satisfying Test. Kind names the predicate for
// diagnostics.
type Pred struct {
	Kind string
	Test func(types.Value) bool
}

// Seq matches a list whose elements match Elems in order.
type Seq struct {
	Elems []Pattern
}

// Segment matches a run of sibling elements as Min..Max repetitions of
// Body. Max < 0 means unbounded. When Group is set each repetition's
// bindings are kept as a separate record under that name instead of being
// collected into lists. Segment is only meaningful inside a Seq.
type Segment struct {
	Body  []Pattern
	Min   int
	Max   int
	Group string
}

// Alt matches the first of Branches that matches.
type Alt struct {
	Branches []Pattern
}

// DirectiveKind selects a print directive
type DirectiveKind int

const (
	DirNewline DirectiveKind = iota // break the line before the next element
	DirIndent                       // set the continuation indent to Arg
)

// Directive is a print-only marker. It consumes no input.
type Directive struct {
	Kind DirectiveKind
	Arg  int
}

// Optional is a segment bounded to zero or one repetition.
func Optional(body ...Pattern) *Segment {
	return &Segment{Body: body, Min: 0, Max: 1}
}

// ZeroOrMore is an unbounded segment.
func ZeroOrMore(body ...Pattern) *Segment {
	return &Segment{Body: body, Min: 0, Max: -1}
}

// OneOrMore is an unbounded segment that needs at least one repetition.
func OneOrMore(body ...Pattern) *Segment {
	return &Segment{Body: body, Min: 1, Max: -1}
}

// Scope groups the bindings made by body under name.
func Scope(name string, body ...Pattern) *Segment {
	return &Segment{Body: body, Min: 1, Max: 1, Group: name}
}

// Bind binds name to whatever sub matches.
func Bind(name string, sub Pattern) *Name {
	return &Name{Name: name, Sub: sub}
}

// List builds a Seq.
func List(elems ...Pattern) *Seq {
	return &Seq{Elems: elems}
}

// Lit builds a Literal.
func Lit(v types.Value) *Literal {
	return &Literal{Value: v}
}

// Sym builds a literal symbol pattern.
func Sym(name string) *Literal {
	return &Literal{Value: types.Intern(name)}
}

// Or builds an alternation.
func Or(branches ...Pattern) *Alt {
	return &Alt{Branches: branches}
}

// Newline builds a line-break directive.
func Newline() *Directive {
	return &Directive{Kind: DirNewline}
}

// Indent builds an indentation directive.
func Indent(n int) *Directive {
	return &Directive{Kind: DirIndent, Arg: n}
}

// IsSymbol, IsString, IsInteger, IsKeyword and IsList are the typed
// predicates of the pattern vocabulary.
var (
	IsSymbol = &Pred{Kind: "symbol", Test: func(v types.Value) bool {
		s, ok := v.(types.Symbol)
		return ok && !s.IsKeyword()
	}}
	IsString = &Pred{Kind: "string", Test: func(v types.Value) bool {
		_, ok := v.(types.StrValue)
		return ok
	}}
	IsInteger = &Pred{Kind: "integer", Test: func(v types.Value) bool {
		_, ok := v.(types.IntValue)
		return ok
	}}
	IsKeyword = &Pred{Kind: "keyword", Test: func(v types.Value) bool {
		s, ok := v.(types.Symbol)
		return ok && s.IsKeyword()
	}}
	IsList = &Pred{Kind: "list", Test: func(v types.Value) bool {
		_, ok := v.(types.List)
		return ok || types.IsNil(v)
	}}
)

func (p *Literal) String() string {
	if _, ok := p.Value.(types.Symbol); ok {
		return "'" + p.Value.String()
	}
	return p.Value.String()
}
func (p *Literal) bound(map[string]bool) {}

func (Any) String() string           { return "_" }
func (Any) bound(map[string]bool)    {}
func (p *Pred) String() string       { return "(%" + p.Kind + ")" }
func (p *Pred) bound(map[string]bool) {}

func (p *Name) String() string {
	switch sub := p.Sub.(type) {
	case nil, Any, *Any:
		return p.Name
	case *Pred:
		return fmt.Sprintf("(%%%s %s)", sub.Kind, p.Name)
	default:
		return fmt.Sprintf("(%%bind %s %s)", p.Name, sub)
	}
}
func (p *Name) bound(acc map[string]bool) {
	acc[p.Name] = true
	if p.Sub != nil {
		p.Sub.bound(acc)
	}
}

func (p *Seq) String() string { return "(" + joinPatterns(p.Elems) + ")" }
func (p *Seq) bound(acc map[string]bool) {
	for _, e := range p.Elems {
		e.bound(acc)
	}
}

func (p *Segment) String() string {
	body := joinPatterns(p.Body)
	switch {
	case p.Group != "" && p.Min == 1 && p.Max == 1:
		return fmt.Sprintf("(%%scope %s %s)", p.Group, body)
	case p.Min == 0 && p.Max == 1:
		return "(%maybe " + body + ")"
	case p.Min == 0 && p.Max < 0:
		return "(%* " + body + ")"
	case p.Min == 1 && p.Max < 0:
		return "(%+ " + body + ")"
	}
	return fmt.Sprintf("(%%repeat %d %d %s)", p.Min, p.Max, body)
}
func (p *Segment) bound(acc map[string]bool) {
	if p.Group != "" {
		return
	}
	for _, e := range p.Body {
		e.bound(acc)
	}
}

func (p *Alt) String() string { return "(%or " + joinPatterns(p.Branches) + ")" }
func (p *Alt) bound(acc map[string]bool) {
	for _, b := range p.Branches {
		b.bound(acc)
	}
}

func (p *Directive) String() string {
	if p.Kind == DirIndent {
		return fmt.Sprintf("(%%indent %d)", p.Arg)
	}
	return "(%newline)"
}
func (p *Directive) bound(map[string]bool) {}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Names returns the names bound by p at its own level.
func Names(p Pattern) []string {
	acc := make(map[string]bool)
	p.bound(acc)
	names := make([]string, 0, len(acc))
	for n := range acc {
		names = append(names, n)
	}
	return names
}

// isFragment reports whether p matches a run of siblings rather than a
// single element.
func isFragment(p Pattern) bool {
	switch p.(type) {
	case *Segment, *Directive:
		return true
	}
	return false
}

// width returns the number of elements a sequence of patterns consumes,
// when that number is fixed.
func width(ps []Pattern) (int, bool) {
	n := 0
	for _, p := range ps {
		switch q := p.(type) {
		case *Directive:
		case *Segment:
			if q.Max < 0 || q.Min != q.Max {
				return 0, false
			}
			w, ok := width(q.Body)
			if !ok {
				return 0, false
			}
			n += w * q.Min
		default:
			n++
		}
	}
	return n, true
}
