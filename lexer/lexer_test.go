package lexer

import (
	"testing"

	"github.com/lumalang/luma/token"
)

// TestNextToken tests the functionality of the NextToken method in the Lexer to ensure all tokens are correctly identified.
func TestNextToken(t *testing.T) {
	input := `class foo(i, j) {
    bar(a) {
        #print("BAR")
        @i = 9
        return a
    }
}
def f = foo(1, 5)
f.i = 2
while f.i < 10 {
    f.i = f.i + 1
}
if f.i >= 10 {
    #print(#to_string(f.i))
} else {
    #print("nope")
}
def pi = 3.14
def ok = true
def no = false
def n = nil
def xs = [1, 2, 3]
xs[0]
// a trailing comment
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Class, "class"},
		{token.Ident, "foo"},
		{token.Lparen, "("},
		{token.Ident, "i"},
		{token.Comma, ","},
		{token.Ident, "j"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Ident, "bar"},
		{token.Lparen, "("},
		{token.Ident, "a"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Hash, "#"},
		{token.Ident, "print"},
		{token.Lparen, "("},
		{token.String, "BAR"},
		{token.Rparen, ")"},
		{token.At, "@"},
		{token.Ident, "i"},
		{token.Equal, "="},
		{token.Int, "9"},
		{token.Return, "return"},
		{token.Ident, "a"},
		{token.Rbrace, "}"},
		{token.Rbrace, "}"},
		{token.Def, "def"},
		{token.Ident, "f"},
		{token.Equal, "="},
		{token.Ident, "foo"},
		{token.Lparen, "("},
		{token.Int, "1"},
		{token.Comma, ","},
		{token.Int, "5"},
		{token.Rparen, ")"},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Equal, "="},
		{token.Int, "2"},
		{token.While, "while"},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Lt, "<"},
		{token.Int, "10"},
		{token.Lbrace, "{"},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Equal, "="},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Plus, "+"},
		{token.Int, "1"},
		{token.Rbrace, "}"},
		{token.If, "if"},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Gte, ">="},
		{token.Int, "10"},
		{token.Lbrace, "{"},
		{token.Hash, "#"},
		{token.Ident, "print"},
		{token.Lparen, "("},
		{token.Hash, "#"},
		{token.Ident, "to_string"},
		{token.Lparen, "("},
		{token.Ident, "f"},
		{token.Dot, "."},
		{token.Ident, "i"},
		{token.Rparen, ")"},
		{token.Rparen, ")"},
		{token.Rbrace, "}"},
		{token.Else, "else"},
		{token.Lbrace, "{"},
		{token.Hash, "#"},
		{token.Ident, "print"},
		{token.Lparen, "("},
		{token.String, "nope"},
		{token.Rparen, ")"},
		{token.Rbrace, "}"},
		{token.Def, "def"},
		{token.Ident, "pi"},
		{token.Equal, "="},
		{token.Float, "3.14"},
		{token.Def, "def"},
		{token.Ident, "ok"},
		{token.Equal, "="},
		{token.True, "true"},
		{token.Def, "def"},
		{token.Ident, "no"},
		{token.Equal, "="},
		{token.False, "false"},
		{token.Def, "def"},
		{token.Ident, "n"},
		{token.Equal, "="},
		{token.Nil, "nil"},
		{token.Def, "def"},
		{token.Ident, "xs"},
		{token.Equal, "="},
		{token.Lbracket, "["},
		{token.Int, "1"},
		{token.Comma, ","},
		{token.Int, "2"},
		{token.Comma, ","},
		{token.Int, "3"},
		{token.Rbracket, "]"},
		{token.Ident, "xs"},
		{token.Lbracket, "["},
		{token.Int, "0"},
		{token.Rbracket, "]"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestTwoCharOperators covers the four two-character operators plus their
// single-character prefixes, mirroring the lexer's lookahead rules.
func TestTwoCharOperators(t *testing.T) {
	input := `> >= < <= = != == !`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Gt, ">"},
		{token.Gte, ">="},
		{token.Lt, "<"},
		{token.Lte, "<="},
		{token.Equal, "="},
		{token.BangEqual, "!="},
		{token.EqualEqual, "=="},
		{token.Bang, "!"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType || tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong token. expected=%v, got={%q %q}", i, tt, tok.Type, tok.Literal)
		}
	}
}

// TestKeywordsAndLogicOperators covers every reserved word, including `and`/
// `or`, which are keywords rather than identifiers.
func TestKeywordsAndLogicOperators(t *testing.T) {
	input := "class def true false if else while for return nil import and or"

	tests := []token.Type{
		token.Class, token.Def, token.True, token.False, token.If, token.Else,
		token.While, token.For, token.Return, token.Nil, token.Import,
		token.And, token.Or, token.EOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, expected, tok.Type)
		}
	}
}

// TestFloatLiteral ensures a decimal point anywhere in a digit run produces a
// Float token carrying the full literal text.
func TestFloatLiteral(t *testing.T) {
	input := `3.14 42`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Float || tok.Literal != "3.14" {
		t.Fatalf("expected float 3.14, got type=%q literal=%q", tok.Type, tok.Literal)
	}

	tok = l.NextToken()
	if tok.Type != token.Int || tok.Literal != "42" {
		t.Fatalf("expected int 42, got type=%q literal=%q", tok.Type, tok.Literal)
	}
}

// TestComments ensures that // style line comments are ignored by the lexer
// whether they appear at end-of-line, on their own line, or directly after code.
func TestComments(t *testing.T) {
	input := `def a = 1; // comment
// full line comment
def b = 2; // another
def c = 3;//no space
def d = 4; /////// multiple slashes
def e = "string with // not a comment";
// comment at EOF`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Def, "def"},
		{token.Ident, "a"},
		{token.Equal, "="},
		{token.Int, "1"},
		{token.Semicolon, ";"},

		{token.Def, "def"},
		{token.Ident, "b"},
		{token.Equal, "="},
		{token.Int, "2"},
		{token.Semicolon, ";"},

		{token.Def, "def"},
		{token.Ident, "c"},
		{token.Equal, "="},
		{token.Int, "3"},
		{token.Semicolon, ";"},

		{token.Def, "def"},
		{token.Ident, "d"},
		{token.Equal, "="},
		{token.Int, "4"},
		{token.Semicolon, ";"},

		{token.Def, "def"},
		{token.Ident, "e"},
		{token.Equal, "="},
		{token.String, "string with // not a comment"},
		{token.Semicolon, ";"},

		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestDivisionFollowedByComment tests the lexer behavior when encountering a division operator followed by a comment.
func TestDivisionFollowedByComment(t *testing.T) {
	input := `5 / // divide then comment`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Int, "5"},
		{token.Slash, "/"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestSingleSlashAtEOF validates that the lexer correctly identifies a single slash token followed by an EOF token.
func TestSingleSlashAtEOF(t *testing.T) {
	input := `/`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Slash || tok.Literal != "/" {
		t.Fatalf("expected single slash token, got type=%q literal=%q", tok.Type, tok.Literal)
	}

	tok = l.NextToken()
	if tok.Type != token.EOF {
		t.Fatalf("expected EOF after single slash, got %q", tok.Type)
	}
}

func TestStringEscapes(t *testing.T) {
	input := `"hello\nworld" "tab:\tend" "quote:\"inner\"" "backslash:\\"`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.String, "hello\nworld"},
		{token.String, "tab:\tend"},
		{token.String, "quote:\"inner\""},
		{token.String, "backslash:\\"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	input := `"no end`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Illegal {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %q", tok.Type)
	}
	if tok.Literal != "unterminated string" {
		t.Fatalf("expected literal 'unterminated string', got %q", tok.Literal)
	}
}

func TestIllegalCharacter(t *testing.T) {
	input := `$`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Illegal || tok.Literal != "$" {
		t.Fatalf("expected illegal token for '$', got type=%q literal=%q", tok.Type, tok.Literal)
	}
}
