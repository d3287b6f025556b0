package ast

import (
	"bytes"
	"strconv"
	"strings"

	"blockexpr/pkg/token"
)

type Node interface {
	TokenLiteral() string
	String() string
	// Tok returns the token that locates the node in the source.
	Tok() token.Token
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{Type: token.EOF, Pos: -1}
}

func (p *Program) String() string {
	return joinStatements(p.Statements)
}

func joinStatements(stmts []Statement) string {
	parts := make([]string, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " ")
}

// Statements

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Tok() token.Token     { return es.Token }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ";"
}

type BlockStatement struct {
	Token      token.Token // '{'
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Tok() token.Token     { return bs.Token }
func (bs *BlockStatement) String() string {
	if len(bs.Statements) == 0 {
		return "{ }"
	}
	return "{ " + joinStatements(bs.Statements) + " }"
}

type IfStatement struct {
	Token       token.Token // 'if'
	Condition   Expression
	Consequence Statement
	Alternative Statement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Tok() token.Token     { return is.Token }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(is.Condition.String())
	out.WriteString(") ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(is.Alternative.String())
	}
	return out.String()
}

type WhileStatement struct {
	Token     token.Token // 'while'
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Tok() token.Token     { return ws.Token }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

type DoWhileStatement struct {
	Token     token.Token // 'do'
	Body      Statement
	Condition Expression
}

func (ds *DoWhileStatement) statementNode()       {}
func (ds *DoWhileStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DoWhileStatement) Tok() token.Token     { return ds.Token }
func (ds *DoWhileStatement) String() string {
	return "do " + ds.Body.String() + " while (" + ds.Condition.String() + ");"
}

// ForStatement is the C-style loop: for (init; condition; update) body.
type ForStatement struct {
	Token     token.Token // 'for'
	Init      Expression
	Condition Expression
	Update    Expression
	Body      Statement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) Tok() token.Token     { return fs.Token }
func (fs *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	out.WriteString(fs.Init.String())
	out.WriteString("; ")
	out.WriteString(fs.Condition.String())
	out.WriteString("; ")
	out.WriteString(fs.Update.String())
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}

// RangeForStatement binds Counter to First, First+1, ... Last.
type RangeForStatement struct {
	Token   token.Token // 'for'
	Counter *Identifier
	First   Expression
	Last    Expression
	Body    Statement
}

func (rs *RangeForStatement) statementNode()       {}
func (rs *RangeForStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *RangeForStatement) Tok() token.Token     { return rs.Token }
func (rs *RangeForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	out.WriteString(rs.Counter.String())
	out.WriteString(" = ")
	out.WriteString(rs.First.String())
	out.WriteString(", ")
	out.WriteString(rs.Last.String())
	out.WriteString(") ")
	out.WriteString(rs.Body.String())
	return out.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) Tok() token.Token     { return bs.Token }
func (bs *BreakStatement) String() string       { return "break;" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) Tok() token.Token     { return cs.Token }
func (cs *ContinueStatement) String() string       { return "continue;" }

type ReturnStatement struct {
	Token       token.Token // the 'return' token
	ReturnValue Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Tok() token.Token     { return rs.Token }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue != nil {
		return "return " + rs.ReturnValue.String() + ";"
	}
	return "return;"
}

type SwitchStatement struct {
	Token    token.Token // 'switch'
	Selector Expression
	Cases    []*SwitchCase
}

// SwitchCase is one label with the statements that follow it. Value is nil
// for the default label.
type SwitchCase struct {
	Token token.Token // 'case' or 'default'
	Value Expression
	Body  []Statement
}

func (sc *SwitchCase) IsDefault() bool { return sc.Value == nil }

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) Tok() token.Token     { return ss.Token }
func (ss *SwitchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("switch (")
	out.WriteString(ss.Selector.String())
	out.WriteString(") {")
	for _, c := range ss.Cases {
		if c.IsDefault() {
			out.WriteString(" default:")
		} else {
			out.WriteString(" case " + c.Value.String() + ":")
		}
		if len(c.Body) > 0 {
			out.WriteString(" " + joinStatements(c.Body))
		}
	}
	out.WriteString(" }")
	return out.String()
}

type EmptyStatement struct {
	Token token.Token // ';'
}

func (es *EmptyStatement) statementNode()       {}
func (es *EmptyStatement) TokenLiteral() string { return es.Token.Literal }
func (es *EmptyStatement) Tok() token.Token     { return es.Token }
func (es *EmptyStatement) String() string       { return ";" }

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Tok() token.Token     { return i.Token }
func (i *Identifier) String() string       { return i.Value }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) Tok() token.Token     { return nl.Token }
func (nl *NumberLiteral) String() string {
	if nl.Token.Literal != "" {
		return nl.Token.Literal
	}
	return strconv.FormatFloat(nl.Value, 'g', -1, 64)
}

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. ! or -
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Tok() token.Token     { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Tok() token.Token     { return ie.Token }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")
	return out.String()
}

// FactorialExpression is the postfix '!' operator.
type FactorialExpression struct {
	Token token.Token // '!'
	Left  Expression
}

func (fe *FactorialExpression) expressionNode()      {}
func (fe *FactorialExpression) TokenLiteral() string { return fe.Token.Literal }
func (fe *FactorialExpression) Tok() token.Token     { return fe.Token }
func (fe *FactorialExpression) String() string       { return "(" + fe.Left.String() + "!)" }

// IncrementExpression covers ++x, --x, x++ and x--.
type IncrementExpression struct {
	Token    token.Token // '++' or '--'
	Operator string
	Target   *Identifier
	Prefix   bool
}

func (ie *IncrementExpression) expressionNode()      {}
func (ie *IncrementExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IncrementExpression) Tok() token.Token     { return ie.Token }
func (ie *IncrementExpression) String() string {
	if ie.Prefix {
		return "(" + ie.Operator + ie.Target.String() + ")"
	}
	return "(" + ie.Target.String() + ie.Operator + ")"
}

// AssignmentExpression covers '=' and the compound forms. Operator is the
// assignment token literal.
type AssignmentExpression struct {
	Token    token.Token // the assignment operator
	Name     *Identifier
	Operator string
	Value    Expression
}

func (ae *AssignmentExpression) expressionNode()      {}
func (ae *AssignmentExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignmentExpression) Tok() token.Token     { return ae.Token }
func (ae *AssignmentExpression) String() string {
	return "(" + ae.Name.String() + " " + ae.Operator + " " + ae.Value.String() + ")"
}

// BinaryOperator is the arithmetic operator of a compound assignment, or
// "" for plain '='.
func (ae *AssignmentExpression) BinaryOperator() string {
	return strings.TrimSuffix(ae.Operator, "=")
}

type TernaryExpression struct {
	Token       token.Token // '?'
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (te *TernaryExpression) expressionNode()      {}
func (te *TernaryExpression) TokenLiteral() string { return te.Token.Literal }
func (te *TernaryExpression) Tok() token.Token     { return te.Token }
func (te *TernaryExpression) String() string {
	return "(" + te.Condition.String() + " ? " + te.Consequence.String() + " : " + te.Alternative.String() + ")"
}

type CallExpression struct {
	Token     token.Token // The '(' token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Tok() token.Token     { return ce.Function.Token }
func (ce *CallExpression) String() string {
	var out bytes.Buffer
	out.WriteString(ce.Function.String())
	out.WriteString("(")
	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")
	return out.String()
}
