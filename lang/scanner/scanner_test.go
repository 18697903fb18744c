package scanner_test

import (
	"testing"

	"github.com/mna/pvm/lang/scanner"
	"github.com/mna/pvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		want []token.Token
	}{
		{"empty", "", []token.Token{token.EOF}},
		{"assignment", "x = 10", []token.Token{token.IDENT, token.ASSIGN, token.INT, token.EOF}},
		{"arithmetic", "1 + 2 * 3 / 4 % 5", []token.Token{
			token.INT, token.PLUS, token.INT, token.STAR, token.INT, token.SLASH, token.INT, token.PERCENT, token.INT, token.EOF,
		}},
		{"comparisons", "a < b <= c > d >= e == f != g", []token.Token{
			token.IDENT, token.LT, token.IDENT, token.LE, token.IDENT, token.GT, token.IDENT,
			token.GE, token.IDENT, token.EQL, token.IDENT, token.NEQ, token.IDENT, token.EOF,
		}},
		{"keywords", "if else while and or not true false", []token.Token{
			token.IF, token.ELSE, token.WHILE, token.AND, token.OR, token.NOT, token.TRUE, token.FALSE, token.EOF,
		}},
		{"float", "3.14", []token.Token{token.FLOAT, token.EOF}},
		{"string", `"hello\nworld"`, []token.Token{token.STRING, token.EOF}},
		{"comment", "x = 1 # trailing comment\ny = 2", []token.Token{
			token.IDENT, token.ASSIGN, token.INT, token.IDENT, token.ASSIGN, token.INT, token.EOF,
		}},
		{"call", "print(x, y)", []token.Token{
			token.IDENT, token.LPAREN, token.IDENT, token.COMMA, token.IDENT, token.RPAREN, token.EOF,
		}},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			lexemes, err := scanner.Scan(c.in)
			require.NoError(t, err)
			got := make([]token.Token, len(lexemes))
			for i, l := range lexemes {
				got[i] = l.Tok
			}
			assert.Equal(t, c.want, got)
		})
	}
}

func TestScanErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		want string
	}{
		{"unterminated string", `"abc`, "unterminated string literal"},
		{"bad escape", `"a\qb"`, "invalid escape sequence"},
		{"stray bang", "a ! b", "unexpected character '!'"},
		{"unknown char", "x = @", `unexpected character '@'`},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := scanner.Scan(c.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}

func TestStringEscapes(t *testing.T) {
	lexemes, err := scanner.Scan(`"a\nb\tc\"d\\e"`)
	require.NoError(t, err)
	require.Len(t, lexemes, 2)
	assert.Equal(t, "a\nb\tc\"d\\e", lexemes[0].Lit)
}

func TestIntOverflow(t *testing.T) {
	_, err := scanner.Scan("99999999999999999999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid int literal")
}
