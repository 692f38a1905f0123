// Package scanner implements the lexical analyzer for sting source text. It
// is an external collaborator to the compiler (see lang/compiler): it knows
// nothing about bytecode, scopes, or precedence, and produces a flat stream
// of lang/token.Token values on demand.
package scanner

import (
	"fmt"

	"github.com/andrewfurey21/sting/lang/token"
)

// Scanner turns a raw source buffer into tokens one at a time. It holds no
// reference to anything the compiler owns; Token.Start/Length index into
// the same buffer the Scanner was built over, so the compiler can slice
// lexemes out of it without the scanner copying them.
type Scanner struct {
	src     []byte
	start   int
	current int
	line    int
}

// New creates a Scanner over src. src is not copied or retained beyond the
// lifetime expected of the caller; tokens produced reference it by index.
func New(src []byte) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Next scans and returns the next token, advancing past it. After the
// source is exhausted it returns an endless stream of EOF tokens.
func (s *Scanner) Next() token.Token {
	s.skipIgnored()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LEFT_PAREN)
	case ')':
		return s.make(token.RIGHT_PAREN)
	case '{':
		return s.make(token.LEFT_BRACE)
	case '}':
		return s.make(token.RIGHT_BRACE)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case ';':
		return s.make(token.SEMICOLON)
	case '*':
		return s.make(token.STAR)
	case '/':
		return s.make(token.SLASH)
	case '!':
		return s.make(s.choose('=', token.BANG_EQUAL, token.BANG))
	case '=':
		return s.make(s.choose('=', token.EQUAL_EQUAL, token.EQUAL))
	case '<':
		return s.make(s.choose('=', token.LESS_EQUAL, token.LESS))
	case '>':
		return s.make(s.choose('=', token.GREATER_EQUAL, token.GREATER))
	case '"':
		return s.string()
	}

	return s.errorf("unexpected character %q", c)
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) choose(want byte, yes, no token.Type) token.Type {
	if s.match(want) {
		return yes
	}
	return no
}

func (s *Scanner) skipIgnored() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := string(s.src[s.start:s.current])
	if typ, ok := token.Keywords[lexeme]; ok {
		return s.make(typ)
	}
	return s.make(token.IDENTIFIER)
}

// number accepts one optional decimal point followed by more digits, per
// the source language surface in §6: no exponents, no leading dot, no
// digit-group separators.
func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

// string scans a double-quoted literal. Escape sequences are not part of
// the language surface; a backslash is an ordinary content byte.
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorf("unterminated string")
	}
	s.advance() // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) make(typ token.Type) token.Token {
	return token.Token{
		Type:   typ,
		Start:  s.start,
		Length: s.current - s.start,
		Line:   s.line,
	}
}

func (s *Scanner) errorf(format string, args ...any) token.Token {
	return token.Token{
		Type:    token.ERROR,
		Line:    s.line,
		Message: fmt.Sprintf(format, args...),
	}
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
