package compiler

import (
	"errors"
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Tuga
// ---------------------------------------------------------------------------

// Diagnostic is a positioned error message from any compiler stage.
type Diagnostic struct {
	Pos Position
	End Position
	Msg string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d:%d: %s", d.Pos.Line, d.Pos.Column, d.Msg)
}

// Parser parses Tuga source code into an AST. Lexical errors reported by the
// lexer are collected separately from syntax errors.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	build     Builder

	lexErrors []Diagnostic
	errors    []Diagnostic
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token, diverting error tokens into the
// lexical error list.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	for {
		tok := p.lexer.NextToken()
		if tok.Type != TokenError {
			p.peekToken = tok
			return
		}
		p.lexErrors = append(p.lexErrors, Diagnostic{Pos: tok.Pos, End: tok.End, Msg: tok.Literal})
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, describe(p.curToken))
	return false
}

// errorf records a syntax error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, Diagnostic{
		Pos: p.curToken.Pos,
		End: p.curToken.End,
		Msg: fmt.Sprintf(format, args...),
	})
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenInteger, TokenReal, TokenString:
		return fmt.Sprintf("%s %s", tok.Type, tok.Literal)
	}
	return fmt.Sprintf("'%s'", tok.Literal)
}

// LexErrors returns the lexical errors seen so far.
func (p *Parser) LexErrors() []Diagnostic {
	return p.lexErrors
}

// SyntaxErrors returns the syntax errors seen so far.
func (p *Parser) SyntaxErrors() []Diagnostic {
	return p.errors
}

// Errors returns all accumulated errors as strings, lexical first.
func (p *Parser) Errors() []string {
	out := make([]string, 0, len(p.lexErrors)+len(p.errors))
	for _, d := range p.lexErrors {
		out = append(out, d.String())
	}
	for _, d := range p.errors {
		out = append(out, d.String())
	}
	return out
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a whole source file. The returned tree is complete
// only when neither LexErrors nor SyntaxErrors report anything.
func (p *Parser) ParseProgram() *Program {
	start := p.curToken.Pos
	var stmts []*PrintStmt

	if p.curTokenIs(TokenEOF) {
		p.errorf("expected %s, got %s", TokenEscreve, describe(p.curToken))
	}

	for !p.curTokenIs(TokenEOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}

	return p.build.Program(Span{Start: start, End: p.curToken.End}, stmts)
}

// synchronize skips tokens after a syntax error until just past the next
// ';' or up to the next 'escreve'.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenEscreve) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// parseStatement parses "escreve expr ;".
func (p *Parser) parseStatement() *PrintStmt {
	start := p.curToken.Pos
	if !p.expect(TokenEscreve) {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	end := p.curToken.End
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return p.build.Print(Span{Start: start, End: end}, value)
}

// ParseExpression parses a single expression, for tools that work on
// fragments.
func (p *Parser) ParseExpression() Expr {
	e := p.parseExpr()
	if e != nil && !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s after expression", describe(p.curToken))
	}
	return e
}

// ---------------------------------------------------------------------------
// Expressions, loosest binding first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	return p.parseBinary(p.parseAnd, TokenOu)
}

func (p *Parser) parseAnd() Expr {
	return p.parseBinary(p.parseEquality, TokenE)
}

func (p *Parser) parseEquality() Expr {
	return p.parseBinary(p.parseRelational, TokenIgual, TokenDiferente)
}

func (p *Parser) parseRelational() Expr {
	return p.parseBinary(p.parseAdditive, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq)
}

func (p *Parser) parseAdditive() Expr {
	return p.parseBinary(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() Expr {
	return p.parseBinary(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

// parseBinary parses a left-associative chain of the given operators.
func (p *Parser) parseBinary(operand func() Expr, ops ...TokenType) Expr {
	left := operand()
	if left == nil {
		return nil
	}
	for p.curTokenIn(ops) {
		op := binaryOperators[p.curToken.Type]
		p.nextToken()
		right := operand()
		if right == nil {
			return nil
		}
		left = p.build.Binary(op, left, right)
	}
	return left
}

func (p *Parser) curTokenIn(types []TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() Expr {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenMinus:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return p.build.Neg(Span{Start: start, End: operand.Span().End}, operand)
	case TokenNao:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return p.build.Not(Span{Start: start, End: operand.Span().End}, operand)
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	span := tok.Span()

	switch tok.Type {
	case TokenInteger:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("integer literal %s out of range", tok.Literal)
			return nil
		}
		p.nextToken()
		return p.build.Int(span, v)

	case TokenReal:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			p.errorf("invalid real literal %s", tok.Literal)
			return nil
		}
		p.nextToken()
		return p.build.Real(span, v)

	case TokenString:
		p.nextToken()
		return p.build.Text(span, tok.Literal)

	case TokenVerdadeiro, TokenFalso:
		p.nextToken()
		return p.build.Bool(span, tok.Type == TokenVerdadeiro)

	case TokenLParen:
		p.nextToken()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		end := p.curToken.End
		if !p.expect(TokenRParen) {
			return nil
		}
		return p.build.Paren(Span{Start: span.Start, End: end}, inner)
	}

	p.errorf("unexpected %s, expected an expression", describe(tok))
	return nil
}

// Parse is a convenience function that parses a whole program.
func Parse(input string) (*Program, *Parser) {
	p := NewParser(input)
	return p.ParseProgram(), p
}
