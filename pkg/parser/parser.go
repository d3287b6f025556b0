package parser

import (
	"strconv"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/lexer"
	"blockexpr/pkg/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -= ...
	TERNARY     // ? :
	OR          // ||
	AND         // &&
	EQUALS      // == != ~=
	LESSGREATER // > or <
	SHIFT       // << >>
	SUM         // +
	PRODUCT     // * / %
	POWER       // ^
	PREFIX      // -X or !X
	POSTFIX     // X! X++
	CALL        // myFunction(X)
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:       ASSIGN,
	token.PLUS_ASSIGN:  ASSIGN,
	token.MINUS_ASSIGN: ASSIGN,
	token.TIMES_ASSIGN: ASSIGN,
	token.DIV_ASSIGN:   ASSIGN,
	token.MOD_ASSIGN:   ASSIGN,
	token.POW_ASSIGN:   ASSIGN,
	token.QUESTION:     TERNARY,
	token.OR:           OR,
	token.AND:          AND,
	token.EQ:           EQUALS,
	token.NOT_EQ:       EQUALS,
	token.NEAR:         EQUALS,
	token.LT:           LESSGREATER,
	token.GT:           LESSGREATER,
	token.LTE:          LESSGREATER,
	token.GTE:          LESSGREATER,
	token.SHL:          SHIFT,
	token.SHR:          SHIFT,
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.SLASH:        PRODUCT,
	token.ASTERISK:     PRODUCT,
	token.PERCENT:      PRODUCT,
	token.CARET:        POWER,
	token.BANG:         POSTFIX,
	token.PLUS_PLUS:    POSTFIX,
	token.MINUS_MINUS:  POSTFIX,
	token.LPAREN:       CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []*exprerr.Error

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*exprerr.Error{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS_PLUS, p.parsePrefixIncrement)
	p.registerPrefix(token.MINUS_MINUS, p.parsePrefixIncrement)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, op := range []token.TokenType{
		token.PLUS, token.MINUS, token.SLASH, token.ASTERISK, token.PERCENT, token.CARET,
		token.EQ, token.NOT_EQ, token.NEAR, token.LT, token.GT, token.LTE, token.GTE,
		token.SHL, token.SHR, token.AND, token.OR,
	} {
		p.registerInfix(op, p.parseInfixExpression)
	}
	for _, op := range []token.TokenType{
		token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.TIMES_ASSIGN,
		token.DIV_ASSIGN, token.MOD_ASSIGN, token.POW_ASSIGN,
	} {
		p.registerInfix(op, p.parseAssignmentExpression)
	}
	p.registerInfix(token.QUESTION, p.parseTernaryExpression)
	p.registerInfix(token.BANG, p.parseFactorialExpression)
	p.registerInfix(token.PLUS_PLUS, p.parsePostfixIncrement)
	p.registerInfix(token.MINUS_MINUS, p.parsePostfixIncrement)
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses the whole input. Parsing stops at the first error.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) && len(p.errors) == 0 {
		stmt := p.parseStatement()
		if stmt != nil && !isEmpty(stmt) {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

func isEmpty(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.EmptyStatement)
	return ok
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.RETURN:
		return p.parseReturnStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.SEMICOLON:
		return &ast.EmptyStatement{Token: p.curToken}
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}

	switch p.peekToken.Type {
	case token.SEMICOLON:
		p.nextToken()
	case token.EOF, token.RBRACE, token.CASE, token.DEFAULT, token.ELSE:
	default:
		p.peekError(token.SEMICOLON)
		return nil
	}

	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken() // consume '{'

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(p.curToken, "expected '}' before end of input")
			return nil
		}
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil
		}
		if stmt != nil && !isEmpty(stmt) {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	return block
}

// parseParenthesized parses '(' expression ')' starting with '(' as the
// peek token and leaves ')' as the current token.
func (p *Parser) parseParenthesized() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseBody parses the statement following a control header.
func (p *Parser) parseBody() ast.Statement {
	p.nextToken()
	if p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken, "expected statement before end of input")
		return nil
	}
	return p.parseStatement()
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if stmt.Condition = p.parseParenthesized(); stmt.Condition == nil {
		return nil
	}
	if stmt.Consequence = p.parseBody(); stmt.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken() // consume ELSE
		if stmt.Alternative = p.parseBody(); stmt.Alternative == nil {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if stmt.Condition = p.parseParenthesized(); stmt.Condition == nil {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken}

	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(token.WHILE) {
		return nil
	}
	if stmt.Condition = p.parseParenthesized(); stmt.Condition == nil {
		return nil
	}
	p.skipSemicolon()

	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	forToken := p.curToken

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()

	var init ast.Expression
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
		counter := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		p.nextToken()
		assignToken := p.curToken
		p.nextToken()
		first := p.parseExpression(LOWEST)
		if first == nil {
			return nil
		}
		if p.peekTokenIs(token.COMMA) {
			return p.parseRangeForRest(forToken, counter, first)
		}
		init = &ast.AssignmentExpression{Token: assignToken, Name: counter, Operator: "=", Value: first}
	} else {
		init = p.parseExpression(LOWEST)
		if init == nil {
			return nil
		}
	}

	stmt := &ast.ForStatement{Token: forToken, Init: init}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	p.nextToken()
	if stmt.Condition = p.parseExpression(LOWEST); stmt.Condition == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	p.nextToken()
	if stmt.Update = p.parseExpression(LOWEST); stmt.Update == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseRangeForRest(forToken token.Token, counter *ast.Identifier, first ast.Expression) ast.Statement {
	stmt := &ast.RangeForStatement{Token: forToken, Counter: counter, First: first}

	p.nextToken() // ','
	p.nextToken()
	if stmt.Last = p.parseExpression(LOWEST); stmt.Last == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if stmt.Body = p.parseBody(); stmt.Body == nil {
		return nil
	}

	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	switch p.peekToken.Type {
	case token.SEMICOLON:
		p.nextToken()
		return stmt
	case token.EOF, token.RBRACE, token.CASE, token.DEFAULT, token.ELSE:
		return stmt
	}

	p.nextToken()
	if stmt.ReturnValue = p.parseExpression(LOWEST); stmt.ReturnValue == nil {
		return nil
	}
	p.skipSemicolon()

	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.SwitchStatement{Token: p.curToken}

	if stmt.Selector = p.parseParenthesized(); stmt.Selector == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		c := &ast.SwitchCase{Token: p.curToken}
		switch p.curToken.Type {
		case token.CASE:
			p.nextToken()
			if c.Value = p.parseExpression(LOWEST); c.Value == nil {
				return nil
			}
		case token.DEFAULT:
		default:
			p.errorAt(p.curToken, "expected 'case' or 'default', got %q", p.curToken.Literal)
			return nil
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()

		for !p.curTokenIs(token.CASE) && !p.curTokenIs(token.DEFAULT) && !p.curTokenIs(token.RBRACE) {
			if p.curTokenIs(token.EOF) {
				p.errorAt(p.curToken, "expected '}' before end of input")
				return nil
			}
			body := p.parseStatement()
			if len(p.errors) > 0 {
				return nil
			}
			if body != nil && !isEmpty(body) {
				c.Body = append(c.Body, body)
			}
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, c)
	}

	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorAt(p.curToken, "could not parse %q as number", p.curToken.Literal)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()

	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parsePrefixIncrement() ast.Expression {
	expression := &ast.IncrementExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Prefix:   true,
	}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expression.Target = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	return expression
}

func (p *Parser) parsePostfixIncrement(left ast.Expression) ast.Expression {
	target, ok := left.(*ast.Identifier)
	if !ok {
		p.errorAt(p.curToken, "operand of %s must be a variable", p.curToken.Literal)
		return nil
	}
	return &ast.IncrementExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Target:   target,
	}
}

func (p *Parser) parseFactorialExpression(left ast.Expression) ast.Expression {
	return &ast.FactorialExpression{Token: p.curToken, Left: left}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	name, ok := left.(*ast.Identifier)
	if !ok {
		p.errorAt(p.curToken, "cannot assign to %s", left.String())
		return nil
	}
	expression := &ast.AssignmentExpression{
		Token:    p.curToken,
		Name:     name,
		Operator: p.curToken.Literal,
	}

	p.nextToken()
	// right associative: a = b = c
	expression.Value = p.parseExpression(ASSIGN - 1)
	if expression.Value == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseTernaryExpression(condition ast.Expression) ast.Expression {
	expression := &ast.TernaryExpression{Token: p.curToken, Condition: condition}

	p.nextToken()
	if expression.Consequence = p.parseExpression(LOWEST); expression.Consequence == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	if expression.Alternative = p.parseExpression(TERNARY - 1); expression.Alternative == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)

	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}

	return exp
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	name, ok := function.(*ast.Identifier)
	if !ok {
		p.errorAt(p.curToken, "cannot call %s", function.String())
		return nil
	}
	exp := &ast.CallExpression{Token: p.curToken, Function: name}
	exp.Arguments = p.parseCallArguments()
	if exp.Arguments == nil {
		return nil
	}
	return exp
}

func (p *Parser) parseCallArguments() []ast.Expression {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	p.nextToken()
	arg := p.parseExpression(LOWEST)
	if arg == nil {
		return nil
	}
	args = append(args, arg)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		if arg = p.parseExpression(LOWEST); arg == nil {
			return nil
		}
		args = append(args, arg)
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return args
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// Errors returns the parse errors in the order they were found.
func (p *Parser) Errors() []*exprerr.Error {
	return p.errors
}

func (p *Parser) errorAt(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, exprerr.Parse(tok, format, args...))
}

func (p *Parser) peekError(t token.TokenType) {
	if p.peekTokenIs(token.EOF) {
		p.errorAt(p.peekToken, "expected %s, got end of input", t)
		return
	}
	p.errorAt(p.peekToken, "expected %s, got %q", t, p.peekToken.Literal)
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	if tok.Type == token.EOF {
		p.errorAt(tok, "unexpected end of input")
		return
	}
	p.errorAt(tok, "unexpected %q", tok.Literal)
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
