package expand

import (
	"fmt"

	"lispc/types"
)

// Error is a malformed macro call or special form found during expansion.
type Error struct {
	Form types.Value
	Msg  string
}

func (e *Error) Error() string {
	if e.Form == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, abbreviate(e.Form))
}

func errorf(form types.Value, format string, args ...interface{}) *Error {
	return &Error{Form: form, Msg: fmt.Sprintf(format, args...)}
}

func abbreviate(v types.Value) string {
	s := v.String()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
