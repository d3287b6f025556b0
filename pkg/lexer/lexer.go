package lexer

import (
	"blockexpr/pkg/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	pos, line, col := l.position, l.line, l.column

	switch l.ch {
	case '=':
		tok = l.either('=', token.EQ, token.ASSIGN)
	case '+':
		switch l.peekChar() {
		case '+':
			tok = l.pair(token.PLUS_PLUS)
		case '=':
			tok = l.pair(token.PLUS_ASSIGN)
		default:
			tok = newToken(token.PLUS, l.ch, pos, line, col)
		}
	case '-':
		switch l.peekChar() {
		case '-':
			tok = l.pair(token.MINUS_MINUS)
		case '=':
			tok = l.pair(token.MINUS_ASSIGN)
		default:
			tok = newToken(token.MINUS, l.ch, pos, line, col)
		}
	case '!':
		tok = l.either('=', token.NOT_EQ, token.BANG)
	case '~':
		tok = l.either('=', token.NEAR, token.TILDE)
	case '*':
		tok = l.either('=', token.TIMES_ASSIGN, token.ASTERISK)
	case '/':
		tok = l.either('=', token.DIV_ASSIGN, token.SLASH)
	case '%':
		tok = l.either('=', token.MOD_ASSIGN, token.PERCENT)
	case '^':
		tok = l.either('=', token.POW_ASSIGN, token.CARET)
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.pair(token.LTE)
		case '<':
			tok = l.pair(token.SHL)
		default:
			tok = newToken(token.LT, l.ch, pos, line, col)
		}
	case '>':
		switch l.peekChar() {
		case '=':
			tok = l.pair(token.GTE)
		case '>':
			tok = l.pair(token.SHR)
		default:
			tok = newToken(token.GT, l.ch, pos, line, col)
		}
	case '&':
		tok = l.either('&', token.AND, token.ILLEGAL)
	case '|':
		tok = l.either('|', token.OR, token.ILLEGAL)
	case '?':
		tok = newToken(token.QUESTION, l.ch, pos, line, col)
	case ',':
		tok = newToken(token.COMMA, l.ch, pos, line, col)
	case ':':
		tok = newToken(token.COLON, l.ch, pos, line, col)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, pos, line, col)
	case '(':
		tok = newToken(token.LPAREN, l.ch, pos, line, col)
	case ')':
		tok = newToken(token.RPAREN, l.ch, pos, line, col)
	case '{':
		tok = newToken(token.LBRACE, l.ch, pos, line, col)
	case '}':
		tok = newToken(token.RBRACE, l.ch, pos, line, col)
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Pos: pos, Line: line, Column: col}
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(literal), Literal: literal, Pos: pos, Line: line, Column: col}
		} else if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			literal, ok := l.readNumber()
			typ := token.TokenType(token.NUMBER)
			if !ok {
				typ = token.ILLEGAL
			}
			return token.Token{Type: typ, Literal: literal, Pos: pos, Line: line, Column: col}
		}
		tok = newToken(token.ILLEGAL, l.ch, pos, line, col)
	}

	l.readChar()
	return tok
}

// either consumes a two-character operator when the next char is next,
// otherwise it yields the single-character token.
func (l *Lexer) either(next byte, double, single token.TokenType) token.Token {
	if l.peekChar() == next {
		return l.pair(double)
	}
	return newToken(single, l.ch, l.position, l.line, l.column)
}

func (l *Lexer) pair(tokenType token.TokenType) token.Token {
	pos, line, col := l.position, l.line, l.column
	ch := l.ch
	l.readChar()
	return token.Token{Type: tokenType, Literal: string(ch) + string(l.ch), Pos: pos, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func newToken(tokenType token.TokenType, ch byte, pos, line, col int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Pos: pos, Line: line, Column: col}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// readNumber scans digits, an optional fraction and an optional exponent.
// It reports false when an exponent marker is not followed by digits.
func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	ok := true
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			ok = false
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], ok
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
