package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Tuga lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger // 42
	TokenReal    // 3.14
	TokenString  // "hello", quotes included

	// Keywords
	TokenEscreve    // escreve
	TokenVerdadeiro // verdadeiro
	TokenFalso      // falso
	TokenE          // e
	TokenOu         // ou
	TokenNao        // nao
	TokenIgual      // igual
	TokenDiferente  // diferente

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenSemicolon // ;
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INT",
	TokenReal:       "REAL",
	TokenString:     "STRING",
	TokenEscreve:    "escreve",
	TokenVerdadeiro: "verdadeiro",
	TokenFalso:      "falso",
	TokenE:          "e",
	TokenOu:         "ou",
	TokenNao:        "nao",
	TokenIgual:      "igual",
	TokenDiferente:  "diferente",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenLess:       "<",
	TokenLessEq:     "<=",
	TokenGreater:    ">",
	TokenGreaterEq:  ">=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenSemicolon:  ";",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the message for TokenError
	Pos     Position // start position
	End     Position // position just past the last character
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"escreve":    TokenEscreve,
	"verdadeiro": TokenVerdadeiro,
	"falso":      TokenFalso,
	"e":          TokenE,
	"ou":         TokenOu,
	"nao":        TokenNao,
	"igual":      TokenIgual,
	"diferente":  TokenDiferente,
}

// binaryOperators maps operator tokens to AST operators.
var binaryOperators = map[TokenType]Operator{
	TokenStar:      OpMul,
	TokenSlash:     OpDiv,
	TokenPercent:   OpMod,
	TokenPlus:      OpPlus,
	TokenMinus:     OpMinus,
	TokenLess:      OpLess,
	TokenLessEq:    OpLessEq,
	TokenGreater:   OpGreater,
	TokenGreaterEq: OpGreaterEq,
	TokenIgual:     OpEqual,
	TokenDiferente: OpNotEqual,
	TokenE:         OpAnd,
	TokenOu:        OpOr,
}

// Keywords returns the reserved words in alphabetical order.
func Keywords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
