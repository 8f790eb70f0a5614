package lower

import (
	"fmt"

	"lispc/types"
)

// ErrorKind classifies lowering errors.
type ErrorKind int

const (
	// KindSyntax is a malformed use of a known operator.
	KindSyntax ErrorKind = iota
	// KindSemantic is a well-formed use that breaks a language rule, such
	// as assigning a constant or returning from an unknown block.
	KindSemantic
	// KindInternal is a compiler invariant failure: invalid IR or an
	// externals computation that does not settle.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindSemantic:
		return "semantic error"
	case KindInternal:
		return "internal error"
	}
	return "unknown error"
}

// Error aborts the lowering of a top-level form.
type Error struct {
	Kind ErrorKind
	Form types.Value
	Msg  string
}

func (e *Error) Error() string {
	if e.Form == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s in %s", e.Kind, e.Msg, abbreviate(e.Form))
}

func errorf(kind ErrorKind, form types.Value, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Form: form, Msg: fmt.Sprintf(format, args...)}
}

// Warning is a diagnostic that does not stop compilation.
type Warning struct {
	Name types.Value
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Msg, w.Name)
}

func abbreviate(v types.Value) string {
	s := v.String()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
