package types

// TypeCode identifies the kind of a form
type TypeCode int

const (
	TYPE_INT    TypeCode = 0
	TYPE_FLOAT  TypeCode = 1
	TYPE_STR    TypeCode = 2
	TYPE_SYMBOL TypeCode = 3
	TYPE_LIST   TypeCode = 4
)

// String returns the string representation of the type code
func (t TypeCode) String() string {
	switch t {
	case TYPE_INT:
		return "INTEGER"
	case TYPE_FLOAT:
		return "FLOAT"
	case TYPE_STR:
		return "STRING"
	case TYPE_SYMBOL:
		return "SYMBOL"
	case TYPE_LIST:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}
