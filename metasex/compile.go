// Package metasex is the declarative pattern language used to describe the
// shape of operators. Patterns are written as forms and compiled to
// match.Pattern trees, which then drive validation, destructuring and
// pretty-printing.
//
// Vocabulary:
//
//	name            bind any form to name
//	_               any form
//	'lit            literal (numbers, strings and keywords are literal too)
//	(%symbol n)     typed predicates, each binding n when given:
//	(%variable n)   %symbol %variable %string %integer %keyword %list
//	(%maybe p...)   zero or one repetition of the group
//	(%* p...)       zero or more repetitions
//	(%+ p...)       one or more repetitions
//	(%or p...)      alternation
//	(%bind n p)     bind n to whatever p matches
//	(%scope n p...) keep the bindings of the group as one record under n
//	(%newline)      print directive: break the line
//	(%indent k)     print directive: continuation indent
//	(p...)          a nested list
package metasex

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"lispc/match"
	"lispc/reader"
	"lispc/types"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[string]match.Pattern)
)

// Compile parses and compiles pattern source text. Compiled patterns are
// cached by source text.
func Compile(src string) (match.Pattern, error) {
	cacheMu.Lock()
	p, ok := cache[src]
	cacheMu.Unlock()
	if ok {
		return p, nil
	}
	form, err := reader.ReadOne(src)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern %q", src)
	}
	p, err = CompileForm(form)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern %q", src)
	}
	cacheMu.Lock()
	cache[src] = p
	cacheMu.Unlock()
	return p, nil
}

// MustCompile is Compile for patterns built into the program
func MustCompile(src string) match.Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileForm compiles a pattern already read as a form
func CompileForm(form types.Value) (match.Pattern, error) {
	ps, err := compileElems([]types.Value{form}, false)
	if err != nil {
		return nil, err
	}
	return ps[0], nil
}

var predicates = map[string]*match.Pred{
	"%symbol":   match.IsSymbol,
	"%variable": IsVariable,
	"%string":   match.IsString,
	"%integer":  match.IsInteger,
	"%keyword":  match.IsKeyword,
	"%list":     match.IsList,
}

// IsVariable matches symbols that can name a lexical variable.
var IsVariable = &match.Pred{Kind: "variable", Test: func(v types.Value) bool {
	s, ok := v.(types.Symbol)
	if !ok || s.IsKeyword() || s == types.NilSym || s == types.TSym {
		return false
	}
	return !strings.HasPrefix(s.Name, "&") || s.IsUninterned()
}}

// compileElems compiles the elements of a list pattern. Fragments are only
// allowed when inSeq is set.
func compileElems(forms []types.Value, inSeq bool) ([]match.Pattern, error) {
	out := make([]match.Pattern, 0, len(forms))
	for _, f := range forms {
		p, err := compileOne(f)
		if err != nil {
			return nil, err
		}
		if !inSeq {
			switch p.(type) {
			case *match.Segment, *match.Directive:
				return nil, errors.Errorf("%s is only valid inside a list", f)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func compileOne(f types.Value) (match.Pattern, error) {
	switch x := f.(type) {
	case types.Symbol:
		if x.IsKeyword() {
			return match.Lit(x), nil
		}
		if x.Name == "_" {
			return match.Any{}, nil
		}
		if strings.HasPrefix(x.Name, "%") {
			return nil, errors.Errorf("directive %s used as a name", x)
		}
		return &match.Name{Name: x.Name}, nil
	case types.List:
		if x.Len() == 0 {
			return match.List(), nil
		}
		return compileList(x)
	}
	return match.Lit(f), nil
}

func compileList(l types.List) (match.Pattern, error) {
	head, _ := l.At(0).(types.Symbol)
	args := l.Rest().Elements()

	if head == types.Intern("quote") {
		if len(args) != 1 {
			return nil, errors.Errorf("malformed literal %s", l)
		}
		return match.Lit(args[0]), nil
	}
	if pred, ok := predicates[head.Name]; ok && head.Package == "" {
		switch len(args) {
		case 0:
			return pred, nil
		case 1:
			name, ok := args[0].(types.Symbol)
			if !ok {
				return nil, errors.Errorf("%s: name must be a symbol", l)
			}
			return match.Bind(name.Name, pred), nil
		}
		return nil, errors.Errorf("%s takes at most one name", head)
	}

	switch head.Name {
	case "%maybe", "%*", "%+":
		body, err := compileElems(args, true)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, errors.Errorf("%s needs a body", head)
		}
		switch head.Name {
		case "%maybe":
			return match.Optional(body...), nil
		case "%*":
			return match.ZeroOrMore(body...), nil
		}
		return match.OneOrMore(body...), nil
	case "%or":
		branches, err := compileElems(args, false)
		if err != nil {
			return nil, err
		}
		if len(branches) < 2 {
			return nil, errors.New("%or needs at least two branches")
		}
		return match.Or(branches...), nil
	case "%bind":
		if len(args) != 2 {
			return nil, errors.Errorf("malformed %s", l)
		}
		name, ok := args[0].(types.Symbol)
		if !ok {
			return nil, errors.Errorf("%s: name must be a symbol", l)
		}
		sub, err := compileElems(args[1:], false)
		if err != nil {
			return nil, err
		}
		return match.Bind(name.Name, sub[0]), nil
	case "%scope":
		if len(args) < 2 {
			return nil, errors.Errorf("malformed %s", l)
		}
		name, ok := args[0].(types.Symbol)
		if !ok {
			return nil, errors.Errorf("%s: name must be a symbol", l)
		}
		body, err := compileElems(args[1:], true)
		if err != nil {
			return nil, err
		}
		return match.Scope(name.Name, body...), nil
	case "%newline":
		return match.Newline(), nil
	case "%indent":
		if len(args) != 1 {
			return nil, errors.Errorf("malformed %s", l)
		}
		n, ok := args[0].(types.IntValue)
		if !ok {
			return nil, errors.Errorf("%s: width must be an integer", l)
		}
		return match.Indent(int(n.Val)), nil
	}
	if strings.HasPrefix(head.Name, "%") && head.Package == "" {
		return nil, errors.Errorf("unknown pattern directive %s", head)
	}

	elems, err := compileElems(l.Elements(), true)
	if err != nil {
		return nil, err
	}
	return match.List(elems...), nil
}
