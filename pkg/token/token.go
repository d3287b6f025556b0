package token

import "fmt"

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers & Literals
	IDENT  = "IDENT"
	NUMBER = "NUMBER"

	// Assignment
	ASSIGN       = "="
	PLUS_ASSIGN  = "+="
	MINUS_ASSIGN = "-="
	TIMES_ASSIGN = "*="
	DIV_ASSIGN   = "/="
	MOD_ASSIGN   = "%="
	POW_ASSIGN   = "^="

	// Operators
	PLUS        = "+"
	MINUS       = "-"
	BANG        = "!"
	TILDE       = "~"
	ASTERISK    = "*"
	SLASH       = "/"
	PERCENT     = "%"
	CARET       = "^"
	PLUS_PLUS   = "++"
	MINUS_MINUS = "--"
	SHL         = "<<"
	SHR         = ">>"
	AND         = "&&"
	OR          = "||"
	QUESTION    = "?"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	NEAR   = "~="
	LTE    = "<="
	GTE    = ">="

	// Delimiters
	COMMA     = ","
	COLON     = ":"
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	IF       = "IF"
	ELSE     = "ELSE"
	WHILE    = "WHILE"
	DO       = "DO"
	FOR      = "FOR"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
	RETURN   = "RETURN"
	SWITCH   = "SWITCH"
	CASE     = "CASE"
	DEFAULT  = "DEFAULT"
)

// Token is a lexeme with its location. Pos is the byte offset into the
// source, Line and Column are 1-based.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"do":       DO,
	"for":      FOR,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
