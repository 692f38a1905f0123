package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewfurey21/sting/lang/token"
)

func scanAll(src string) []token.Token {
	s := New([]byte(src))
	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ERROR {
			return toks
		}
	}
}

func TestPunctuationAndOperators(t *testing.T) {
	toks := scanAll("() {} , . - + ; * / ! != = == < <= > >=")
	want := []token.Type{
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SEMICOLON,
		token.STAR, token.SLASH, token.BANG, token.BANG_EQUAL, token.EQUAL,
		token.EQUAL_EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER,
		token.GREATER_EQUAL, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, typ := range want {
		require.Equalf(t, typ, toks[i].Type, "token %d", i)
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll("var fun if else while for return print and or nil true false class super this notakeyword")
	kinds := []token.Type{
		token.VAR, token.FUN, token.IF, token.ELSE, token.WHILE, token.FOR,
		token.RETURN, token.PRINT, token.AND, token.OR, token.NIL, token.TRUE,
		token.FALSE, token.CLASS, token.SUPER, token.THIS, token.IDENTIFIER,
		token.EOF,
	}
	require.Len(t, toks, len(kinds))
	for i, k := range kinds {
		require.Equalf(t, k, toks[i].Type, "token %d", i)
	}
}

func TestNumberLiteral(t *testing.T) {
	src := "123 1.5 0.25"
	toks := scanAll(src)
	require.Equal(t, []token.Type{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF},
		[]token.Type{toks[0].Type, toks[1].Type, toks[2].Type, toks[3].Type})
	require.Equal(t, "123", toks[0].Lexeme([]byte(src)))
	require.Equal(t, "1.5", toks[1].Lexeme([]byte(src)))
}

func TestStringLiteral(t *testing.T) {
	src := `"hello world"`
	toks := scanAll(src)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, src, toks[0].Lexeme([]byte(src)))
}

func TestUnterminatedStringIsError(t *testing.T) {
	toks := scanAll(`"oops`)
	require.Equal(t, token.ERROR, toks[len(toks)-1].Type)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll("// a comment\nvar x; // trailing")
	require.Equal(t, token.VAR, toks[0].Type)
	require.Equal(t, token.IDENTIFIER, toks[1].Type)
	require.Equal(t, token.SEMICOLON, toks[2].Type)
	require.Equal(t, token.EOF, toks[3].Type)
}

func TestLineTracking(t *testing.T) {
	toks := scanAll("var a;\nvar b;\n\nvar c;")
	var lines []int
	for _, tk := range toks {
		if tk.Type == token.VAR {
			lines = append(lines, tk.Line)
		}
	}
	require.Equal(t, []int{1, 2, 4}, lines)
}
