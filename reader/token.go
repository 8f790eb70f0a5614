package reader

// TokenType represents different types of lexical tokens
type TokenType int

const (
	// Special tokens
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	// Atoms
	TOKEN_INT    // 42
	TOKEN_FLOAT  // 3.14
	TOKEN_STRING // "hello"
	TOKEN_SYMBOL // foo, :key, #:g

	// Delimiters and reader macros
	TOKEN_LPAREN     // (
	TOKEN_RPAREN     // )
	TOKEN_QUOTE      // '
	TOKEN_BACKQUOTE  // `
	TOKEN_COMMA      // ,
	TOKEN_COMMA_AT   // ,@
	TOKEN_SHARPQUOTE // #'
)

// String returns the name of the token type
func (t TokenType) String() string {
	switch t {
	case TOKEN_EOF:
		return "EOF"
	case TOKEN_ILLEGAL:
		return "ILLEGAL"
	case TOKEN_INT:
		return "INT"
	case TOKEN_FLOAT:
		return "FLOAT"
	case TOKEN_STRING:
		return "STRING"
	case TOKEN_SYMBOL:
		return "SYMBOL"
	case TOKEN_LPAREN:
		return "LPAREN"
	case TOKEN_RPAREN:
		return "RPAREN"
	case TOKEN_QUOTE:
		return "QUOTE"
	case TOKEN_BACKQUOTE:
		return "BACKQUOTE"
	case TOKEN_COMMA:
		return "COMMA"
	case TOKEN_COMMA_AT:
		return "COMMA_AT"
	case TOKEN_SHARPQUOTE:
		return "SHARPQUOTE"
	default:
		return "UNKNOWN"
	}
}

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token represents a lexical token
type Token struct {
	Type     TokenType
	Value    string // raw source text
	Literal  string // decoded value for strings
	Position Position
}
