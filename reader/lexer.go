package reader

// Lexer tokenizes s-expression source text
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer instance
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace and ; line comments
func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r', '\f':
			l.readChar()
		case ';':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.position}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Position: l.pos()}

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
	case '(':
		tok.Type = TOKEN_LPAREN
		tok.Value = "("
		l.readChar()
	case ')':
		tok.Type = TOKEN_RPAREN
		tok.Value = ")"
		l.readChar()
	case '\'':
		tok.Type = TOKEN_QUOTE
		tok.Value = "'"
		l.readChar()
	case '`':
		tok.Type = TOKEN_BACKQUOTE
		tok.Value = "`"
		l.readChar()
	case ',':
		if l.peekChar() == '@' {
			tok.Type = TOKEN_COMMA_AT
			tok.Value = ",@"
			l.readChar()
		} else {
			tok.Type = TOKEN_COMMA
			tok.Value = ","
		}
		l.readChar()
	case '"':
		return l.readString()
	case '#':
		if l.peekChar() == '\'' {
			tok.Type = TOKEN_SHARPQUOTE
			tok.Value = "#'"
			l.readChar()
			l.readChar()
			return tok
		}
		return l.readAtom()
	default:
		return l.readAtom()
	}
	return tok
}

// isDelimiter reports whether ch terminates an atom
func isDelimiter(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\n', '\r', '\f', '(', ')', '"', '\'', '`', ',', ';':
		return true
	}
	return false
}

// readAtom reads a number or symbol token
func (l *Lexer) readAtom() Token {
	tok := Token{Position: l.pos()}
	start := l.position
	for !isDelimiter(l.ch) {
		l.readChar()
	}
	tok.Value = l.input[start:l.position]
	switch {
	case tok.Value == "":
		tok.Type = TOKEN_ILLEGAL
		tok.Value = string(l.ch)
		l.readChar()
	case isInteger(tok.Value):
		tok.Type = TOKEN_INT
	case isFloat(tok.Value):
		tok.Type = TOKEN_FLOAT
	default:
		tok.Type = TOKEN_SYMBOL
	}
	return tok
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isInteger(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isFloat(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	var digits, dots, exps int
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case isDigit(c):
			digits++
		case c == '.':
			if dots > 0 || exps > 0 {
				return false
			}
			dots++
		case c == 'e' || c == 'E':
			if exps > 0 || digits == 0 || i == len(s)-1 {
				return false
			}
			exps++
			if s[i+1] == '+' || s[i+1] == '-' {
				i++
				if i == len(s)-1 {
					return false
				}
			}
		default:
			return false
		}
	}
	return digits > 0 && (dots > 0 || exps > 0)
}

// readString reads a string literal with escape sequences
func (l *Lexer) readString() Token {
	tok := Token{
		Type:     TOKEN_STRING,
		Position: l.pos(),
	}

	start := l.position
	l.readChar() // skip opening "

	var result []byte
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar() // skip backslash
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case 'x':
				hi, lo := l.peekHex()
				if hi >= 0 && lo >= 0 {
					l.readChar()
					l.readChar()
					result = append(result, byte(hi<<4|lo))
				} else {
					result = append(result, '\\', 'x')
				}
			case 0:
				continue
			default:
				result = append(result, l.ch)
			}
			l.readChar()
		} else {
			result = append(result, l.ch)
			l.readChar()
		}
	}

	if l.ch != '"' {
		tok.Type = TOKEN_ILLEGAL
		tok.Value = l.input[start:l.position]
		return tok
	}
	l.readChar() // skip closing "

	tok.Value = l.input[start:l.position] // Store the full quoted string
	tok.Literal = string(result)          // Store the decoded value
	return tok
}

// peekHex returns the values of the two hex digits following the current
// char, or -1 for a non-hex digit
func (l *Lexer) peekHex() (int, int) {
	digit := func(i int) int {
		if i >= len(l.input) {
			return -1
		}
		c := l.input[i]
		switch {
		case isDigit(c):
			return int(c - '0')
		case c >= 'a' && c <= 'f':
			return int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			return int(c-'A') + 10
		}
		return -1
	}
	return digit(l.readPosition), digit(l.readPosition + 1)
}
