package types

import (
	"fmt"
	"strings"
)

// StrValue represents a string literal
type StrValue struct {
	val string
}

// NewStr creates a new string value
func NewStr(s string) StrValue {
	return StrValue{val: s}
}

// String returns the readable representation. Control characters other
// than newline and tab are written as \xHH.
func (s StrValue) String() string {
	var result strings.Builder
	result.WriteByte('"')
	for i := 0; i < len(s.val); i++ {
		b := s.val[i]
		switch {
		case b == '"':
			result.WriteString("\\\"")
		case b == '\\':
			result.WriteString("\\\\")
		case b == '\n':
			result.WriteString("\\n")
		case b == '\t':
			result.WriteString("\\t")
		case b < 32 || b == 127:
			result.WriteString(fmt.Sprintf("\\x%02X", b))
		default:
			result.WriteByte(b)
		}
	}
	result.WriteByte('"')
	return result.String()
}

// Type returns the type code for strings
func (s StrValue) Type() TypeCode {
	return TYPE_STR
}

// Truthy returns true; only nil is false
func (s StrValue) Truthy() bool {
	return true
}

// Equal compares two strings, case-sensitively
func (s StrValue) Equal(other Value) bool {
	if o, ok := other.(StrValue); ok {
		return s.val == o.val
	}
	return false
}

// Value returns the internal string value
func (s StrValue) Value() string {
	return s.val
}
