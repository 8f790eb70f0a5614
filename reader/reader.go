package reader

import (
	"fmt"
	"strconv"
	"strings"

	"lispc/types"
)

var (
	symQuote           = types.Intern("quote")
	symQuasiquote      = types.Intern("quasiquote")
	symUnquote         = types.Intern("unquote")
	symUnquoteSplicing = types.Intern("unquote-splicing")
	symFunction        = types.Intern("function")
)

// SyntaxError reports malformed source text
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Reader turns source text into forms
type Reader struct {
	lexer   *Lexer
	current Token
	peek    Token
}

// NewReader creates a new Reader instance
func NewReader(input string) *Reader {
	r := &Reader{
		lexer: NewLexer(input),
	}
	// Read two tokens to initialize current and peek
	r.nextToken()
	r.nextToken()
	return r
}

// nextToken advances to the next token
func (r *Reader) nextToken() {
	r.current = r.peek
	r.peek = r.lexer.NextToken()
}

// AtEOF reports whether all input has been consumed
func (r *Reader) AtEOF() bool {
	return r.current.Type == TOKEN_EOF
}

// Read parses all forms in input
func Read(input string) ([]types.Value, error) {
	r := NewReader(input)
	var forms []types.Value
	for !r.AtEOF() {
		form, err := r.ReadForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// ReadOne parses exactly one form from input
func ReadOne(input string) (types.Value, error) {
	r := NewReader(input)
	if r.AtEOF() {
		return nil, &SyntaxError{Pos: r.current.Position, Msg: "unexpected end of input"}
	}
	form, err := r.ReadForm()
	if err != nil {
		return nil, err
	}
	if !r.AtEOF() {
		return nil, &SyntaxError{Pos: r.current.Position, Msg: fmt.Sprintf("unexpected %s after form", r.current.Type)}
	}
	return form, nil
}

// MustRead is ReadOne for trusted input; it panics on error
func MustRead(input string) types.Value {
	form, err := ReadOne(input)
	if err != nil {
		panic(fmt.Sprintf("reader.MustRead(%q): %v", input, err))
	}
	return form
}

// ReadForm parses the next form
func (r *Reader) ReadForm() (types.Value, error) {
	tok := r.current
	switch tok.Type {
	case TOKEN_EOF:
		return nil, &SyntaxError{Pos: tok.Position, Msg: "unexpected end of input"}
	case TOKEN_ILLEGAL:
		if strings.HasPrefix(tok.Value, "\"") {
			return nil, &SyntaxError{Pos: tok.Position, Msg: "unterminated string"}
		}
		return nil, &SyntaxError{Pos: tok.Position, Msg: fmt.Sprintf("illegal character %q", tok.Value)}
	case TOKEN_LPAREN:
		return r.readList()
	case TOKEN_RPAREN:
		return nil, &SyntaxError{Pos: tok.Position, Msg: "unexpected )"}
	case TOKEN_QUOTE:
		return r.readPrefixed(symQuote)
	case TOKEN_BACKQUOTE:
		return r.readPrefixed(symQuasiquote)
	case TOKEN_COMMA:
		return r.readPrefixed(symUnquote)
	case TOKEN_COMMA_AT:
		return r.readPrefixed(symUnquoteSplicing)
	case TOKEN_SHARPQUOTE:
		return r.readPrefixed(symFunction)
	case TOKEN_INT:
		r.nextToken()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Position, Msg: fmt.Sprintf("integer out of range: %s", tok.Value)}
		}
		return types.NewInt(val), nil
	case TOKEN_FLOAT:
		r.nextToken()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Position, Msg: fmt.Sprintf("malformed float: %s", tok.Value)}
		}
		return types.NewFloat(val), nil
	case TOKEN_STRING:
		r.nextToken()
		return types.NewStr(tok.Literal), nil
	case TOKEN_SYMBOL:
		r.nextToken()
		return parseSymbol(tok)
	}
	return nil, &SyntaxError{Pos: tok.Position, Msg: fmt.Sprintf("unexpected token %s", tok.Type)}
}

func (r *Reader) readPrefixed(head types.Symbol) (types.Value, error) {
	r.nextToken()
	form, err := r.ReadForm()
	if err != nil {
		return nil, err
	}
	return types.NewList(head, form), nil
}

func (r *Reader) readList() (types.Value, error) {
	open := r.current.Position
	r.nextToken() // skip (
	var elems []types.Value
	for r.current.Type != TOKEN_RPAREN {
		if r.current.Type == TOKEN_EOF {
			return nil, &SyntaxError{Pos: open, Msg: "unterminated list"}
		}
		form, err := r.ReadForm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, form)
	}
	r.nextToken() // skip )
	return types.NewList(elems...), nil
}

// parseSymbol handles keyword, uninterned and package-qualified syntax
func parseSymbol(tok Token) (types.Value, error) {
	name := tok.Value
	switch {
	case strings.HasPrefix(name, "#:"):
		if len(name) == 2 {
			return nil, &SyntaxError{Pos: tok.Position, Msg: "empty uninterned symbol"}
		}
		return types.Uninterned(name[2:]), nil
	case strings.HasPrefix(name, "#"):
		return nil, &SyntaxError{Pos: tok.Position, Msg: fmt.Sprintf("unsupported dispatch macro %s", name)}
	case strings.HasPrefix(name, ":") && len(name) > 1:
		return types.Keyword(name[1:]), nil
	}
	if i := strings.Index(name, "::"); i > 0 && i+2 < len(name) {
		return types.InternIn(name[:i], name[i+2:]), nil
	}
	return types.Intern(name), nil
}
