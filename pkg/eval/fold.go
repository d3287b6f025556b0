package eval

import (
	"context"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/function"
	"blockexpr/pkg/token"
)

// Fold returns a copy of program with constant subexpressions replaced by
// their values. Subexpressions made of literals, operators and pure
// function calls are evaluated in the constant context. A ternary with a
// constant condition is replaced by the branch it selects. Anything that
// fails to evaluate is left alone so the failure happens at run time.
func Fold(program *ast.Program, functions *function.Registry) *ast.Program {
	f := &folder{
		functions: functions,
		constant:  New(context.Background(), ConstantContext(), Limits{}),
	}
	return &ast.Program{Statements: f.statements(program.Statements)}
}

type folder struct {
	functions *function.Registry
	constant  *Evaluator
}

func (f *folder) statements(stmts []ast.Statement) []ast.Statement {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = f.statement(s)
	}
	return out
}

func (f *folder) statement(stmt ast.Statement) ast.Statement {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return &ast.ExpressionStatement{Token: s.Token, Expression: f.expression(s.Expression)}
	case *ast.BlockStatement:
		return &ast.BlockStatement{Token: s.Token, Statements: f.statements(s.Statements)}
	case *ast.IfStatement:
		folded := &ast.IfStatement{Token: s.Token, Condition: f.expression(s.Condition), Consequence: f.statement(s.Consequence)}
		if s.Alternative != nil {
			folded.Alternative = f.statement(s.Alternative)
		}
		return folded
	case *ast.WhileStatement:
		return &ast.WhileStatement{Token: s.Token, Condition: f.expression(s.Condition), Body: f.statement(s.Body)}
	case *ast.DoWhileStatement:
		return &ast.DoWhileStatement{Token: s.Token, Body: f.statement(s.Body), Condition: f.expression(s.Condition)}
	case *ast.ForStatement:
		return &ast.ForStatement{
			Token:     s.Token,
			Init:      f.expression(s.Init),
			Condition: f.expression(s.Condition),
			Update:    f.expression(s.Update),
			Body:      f.statement(s.Body),
		}
	case *ast.RangeForStatement:
		return &ast.RangeForStatement{
			Token:   s.Token,
			Counter: s.Counter,
			First:   f.expression(s.First),
			Last:    f.expression(s.Last),
			Body:    f.statement(s.Body),
		}
	case *ast.SwitchStatement:
		folded := &ast.SwitchStatement{Token: s.Token, Selector: f.expression(s.Selector)}
		for _, c := range s.Cases {
			fc := &ast.SwitchCase{Token: c.Token, Body: f.statements(c.Body)}
			if c.Value != nil {
				fc.Value = f.expression(c.Value)
			}
			folded.Cases = append(folded.Cases, fc)
		}
		return folded
	case *ast.ReturnStatement:
		if s.ReturnValue == nil {
			return s
		}
		return &ast.ReturnStatement{Token: s.Token, ReturnValue: f.expression(s.ReturnValue)}
	}
	return stmt
}

func literal(tok token.Token, v float64) *ast.NumberLiteral {
	return &ast.NumberLiteral{
		Token: token.Token{Type: token.NUMBER, Pos: tok.Pos, Line: tok.Line, Column: tok.Column},
		Value: v,
	}
}

func isLiteral(exp ast.Expression) bool {
	_, ok := exp.(*ast.NumberLiteral)
	return ok
}

// evaluate replaces exp with its value when it evaluates without a name.
func (f *folder) evaluate(exp ast.Expression) ast.Expression {
	v, err := f.constant.evalExpression(exp)
	if err != nil {
		return exp
	}
	return literal(exp.Tok(), v)
}

func (f *folder) expression(exp ast.Expression) ast.Expression {
	switch e := exp.(type) {
	case *ast.PrefixExpression:
		right := f.expression(e.Right)
		folded := &ast.PrefixExpression{Token: e.Token, Operator: e.Operator, Right: right}
		if isLiteral(right) {
			return f.evaluate(folded)
		}
		return folded

	case *ast.InfixExpression:
		left, right := f.expression(e.Left), f.expression(e.Right)
		folded := &ast.InfixExpression{Token: e.Token, Left: left, Operator: e.Operator, Right: right}
		if isLiteral(left) && isLiteral(right) {
			return f.evaluate(folded)
		}
		return folded

	case *ast.FactorialExpression:
		left := f.expression(e.Left)
		folded := &ast.FactorialExpression{Token: e.Token, Left: left}
		if isLiteral(left) {
			return f.evaluate(folded)
		}
		return folded

	case *ast.TernaryExpression:
		cond := f.expression(e.Condition)
		if lit, ok := cond.(*ast.NumberLiteral); ok {
			if truthy(lit.Value) {
				return f.expression(e.Consequence)
			}
			return f.expression(e.Alternative)
		}
		return &ast.TernaryExpression{
			Token:       e.Token,
			Condition:   cond,
			Consequence: f.expression(e.Consequence),
			Alternative: f.expression(e.Alternative),
		}

	case *ast.AssignmentExpression:
		return &ast.AssignmentExpression{Token: e.Token, Name: e.Name, Operator: e.Operator, Value: f.expression(e.Value)}

	case *ast.CallExpression:
		return f.call(e)
	}

	return exp
}

// call folds the arguments of a call and, for a pure function taking only
// values, the call itself.
func (f *folder) call(e *ast.CallExpression) ast.Expression {
	if f.functions == nil {
		return e
	}
	o, err := f.functions.Resolve(e.Function.Value, e.Arguments)
	if err != nil {
		return e
	}

	args := make([]ast.Expression, len(e.Arguments))
	constant := o.Pure
	for i, arg := range e.Arguments {
		if o.ParamKind(i) != function.Value {
			args[i] = arg
			constant = false
			continue
		}
		args[i] = f.expression(arg)
		if !isLiteral(args[i]) {
			constant = false
		}
	}
	folded := &ast.CallExpression{Token: e.Token, Function: e.Function, Arguments: args}
	if !constant {
		return folded
	}

	values := make([]function.Arg, len(args))
	for i, arg := range args {
		values[i] = function.Arg{Value: arg.(*ast.NumberLiteral).Value}
	}
	v, err := o.Fn(&function.Call{Ctx: context.Background(), Name: e.Function.Value, Args: values})
	if err != nil {
		return folded
	}
	return literal(e.Tok(), v)
}
