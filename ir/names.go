package ir

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"lispc/types"
)

// Names is a set of target identifiers
type Names map[string]struct{}

// NewNames builds a set from ids
func NewNames(ids ...string) Names {
	n := make(Names, len(ids))
	for _, id := range ids {
		n[id] = struct{}{}
	}
	return n
}

func (n Names) Add(id string)      { n[id] = struct{}{} }
func (n Names) Has(id string) bool { _, ok := n[id]; return ok }

// AddAll adds every member of other to n
func (n Names) AddAll(other Names) {
	for id := range other {
		n[id] = struct{}{}
	}
}

// Minus returns the members of n not in other
func (n Names) Minus(other Names) Names {
	out := make(Names, len(n))
	for id := range n {
		if !other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Union returns a new set holding the members of n and other
func (n Names) Union(other Names) Names {
	out := make(Names, len(n)+len(other))
	out.AddAll(n)
	out.AddAll(other)
	return out
}

// SubsetOf reports whether every member of n is in other
func (n Names) SubsetOf(other Names) bool {
	for id := range n {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the members in order
func (n Names) Sorted() []string {
	ids := maps.Keys(n)
	slices.Sort(ids)
	return ids
}

// reserved holds target keywords and builtins that compiled code must not
// rebind, plus the runtime identifier.
var reserved = NewNames(
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield", Runtime,
)

// Mangle maps a symbol name to a target identifier. Distinct names always
// get distinct identifiers, and user identifiers never start with two
// underscores, so names of that form are free for the compiler's own
// temporaries.
//
// Names made of alphanumeric words joined by single dashes keep their
// spelling with each dash turned into an underscore. Everything else is
// escaped: an "L", then the name with each non-alphanumeric character
// spelled as _NAME_, then a closing underscore. Plain identifiers never
// end in an underscore and escaped ones always do.
func Mangle(name string) string {
	if id, ok := plain(name); ok {
		return id
	}
	return escaped(nil, name)
}

// plain returns the dash-to-underscore spelling of name when name is a
// sequence of alphanumeric words joined by single dashes that starts with
// a letter and does not spell a reserved identifier.
func plain(name string) (string, bool) {
	if name == "" || !isLetter(rune(name[0])) {
		return "", false
	}
	prev := '-'
	for _, r := range name {
		switch {
		case r == '-':
			if prev == '-' {
				return "", false
			}
		case !isAlnum(r):
			return "", false
		}
		prev = r
	}
	if prev == '-' {
		return "", false
	}
	id := strings.ReplaceAll(name, "-", "_")
	if reserved.Has(id) {
		return "", false
	}
	return id, true
}

// escaped spells parts in the escaped form, each part separated by its
// marker token. Markers use names that no character escapes to.
func escaped(markers []string, parts ...string) string {
	var sb strings.Builder
	sb.WriteByte('L')
	for i, part := range parts {
		if i < len(markers) && markers[i] != "" {
			sb.WriteString("_" + markers[i] + "_")
		}
		for _, r := range part {
			if isAlnum(r) {
				sb.WriteRune(r)
			} else {
				sb.WriteString(escapes(r))
			}
		}
	}
	sb.WriteByte('_')
	return sb.String()
}

const (
	markSetf    = "SETF"
	markPackage = "IN"
)

func isLetter(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }
func isAlnum(r rune) bool  { return isLetter(r) || r >= '0' && r <= '9' }

var escapeNames = map[rune]string{
	'*': "STAR", '+': "PLUS", '/': "SLASH", '<': "LT", '>': "GT",
	'=': "EQ", '!': "BANG", '?': "P", '%': "PCT", '&': "AMP",
	'$': "DOLLAR", '.': "DOT", ':': "COLON", '^': "CARET", '~': "TILDE",
	'@': "AT", '-': "DASH", '_': "US",
}

func escapes(r rune) string {
	if s, ok := escapeNames[r]; ok {
		return "_" + s + "_"
	}
	return "_U" + strings.ToUpper(strings.TrimLeft(runeHex(r), "0")) + "_"
}

func runeHex(r rune) string {
	const digits = "0123456789abcdef"
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = digits[r&0xf]
		r >>= 4
	}
	return string(buf[:])
}

// FunctionPrefix starts the identifier of every global function
const FunctionPrefix = "__f_"

// FunctionIdent returns the identifier holding the global function named
// by name, a symbol or a (setf symbol) list.
func FunctionIdent(name types.Value) string {
	switch x := name.(type) {
	case types.Symbol:
		return FunctionPrefix + SymbolIdent(x)
	case types.List:
		if x.Len() == 2 {
			if s, ok := x.At(1).(types.Symbol); ok {
				return FunctionPrefix + qualified(markSetf, s)
			}
		}
	}
	return FunctionPrefix + Mangle(name.String())
}

// SymbolIdent mangles s together with its package, if it has one.
func SymbolIdent(s types.Symbol) string {
	return qualified("", s)
}

func qualified(prefix string, s types.Symbol) string {
	if s.Package != "" && !s.IsKeyword() {
		return escaped([]string{prefix, markPackage}, s.Package, s.Name)
	}
	if prefix == "" {
		return Mangle(s.Name)
	}
	return escaped([]string{prefix}, s.Name)
}

// IsGlobalFunction reports whether id names a global function
func IsGlobalFunction(id string) bool {
	return strings.HasPrefix(id, FunctionPrefix)
}

// IsTemporary reports whether id was made up by the compiler
func IsTemporary(id string) bool {
	return strings.HasPrefix(id, "__")
}
