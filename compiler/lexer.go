package compiler

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Tuga source
// ---------------------------------------------------------------------------

// Lexer tokenizes Tuga source code.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) token(typ TokenType, lit string, pos Position) Token {
	return Token{Type: typ, Literal: lit, Pos: pos, End: l.position()}
}

func (l *Lexer) errorToken(pos Position, format string, args ...any) Token {
	return Token{Type: TokenError, Literal: fmt.Sprintf(format, args...), Pos: pos, End: l.position()}
}

// single consumes one character and returns a token for it.
func (l *Lexer) single(typ TokenType, pos Position) Token {
	lit := string(l.ch)
	l.readChar()
	return l.token(typ, lit, pos)
}

// NextToken returns the next token. Lexical errors come back as TokenError
// tokens; the lexer always makes progress past the offending input.
func (l *Lexer) NextToken() Token {
	if tok, ok := l.skipWhitespaceAndComments(); !ok {
		return tok
	}

	pos := l.position()

	switch {
	case l.ch == 0:
		return l.token(TokenEOF, "", pos)

	case l.ch == '(':
		return l.single(TokenLParen, pos)
	case l.ch == ')':
		return l.single(TokenRParen, pos)
	case l.ch == ';':
		return l.single(TokenSemicolon, pos)
	case l.ch == '+':
		return l.single(TokenPlus, pos)
	case l.ch == '-':
		return l.single(TokenMinus, pos)
	case l.ch == '*':
		return l.single(TokenStar, pos)
	case l.ch == '/':
		return l.single(TokenSlash, pos)
	case l.ch == '%':
		return l.single(TokenPercent, pos)

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenLessEq, "<=", pos)
		}
		return l.token(TokenLess, "<", pos)

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenGreaterEq, ">=", pos)
		}
		return l.token(TokenGreater, ">", pos)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch):
		return l.readWord(pos)

	default:
		ch := l.ch
		l.readChar()
		return l.errorToken(pos, "unexpected character %q", ch)
	}
}

// skipWhitespaceAndComments skips whitespace, // line comments and /* */
// block comments. It returns an error token and false for an unterminated
// block comment.
func (l *Lexer) skipWhitespaceAndComments() (Token, bool) {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			pos := l.position()
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					return l.errorToken(pos, "unterminated comment"), false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
			continue
		}

		return Token{}, true
	}
}

// readString reads a double-quoted string. The literal keeps its quotes.
// Strings may not span lines.
func (l *Lexer) readString(pos Position) Token {
	start := l.pos
	l.readChar() // opening "
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return l.errorToken(pos, "unterminated string")
		}
		l.readChar()
	}
	l.readChar() // closing "
	return l.token(TokenString, l.input[start:l.pos], pos)
}

// readNumber reads an integer (digits) or a real (digits.digits).
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.token(TokenReal, l.input[start:l.pos], pos)
	}
	return l.token(TokenInteger, l.input[start:l.pos], pos)
}

// readWord reads a keyword. Tuga has no identifiers, so any other word is a
// lexical error.
func (l *Lexer) readWord(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if typ, ok := reservedWords[word]; ok {
		return l.token(typ, word, pos)
	}
	return l.errorToken(pos, "unknown word %q", word)
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch)
}
