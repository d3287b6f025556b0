package eval

import (
	"blockexpr/pkg/ast"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
)

// AssignedNames returns every name the program binds with '=' or as a
// range-for counter, in first-seen order.
func AssignedNames(program *ast.Program) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	ast.Walk(program, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.AssignmentExpression:
			if n.Operator == "=" {
				add(n.Name.Value)
			}
		case *ast.RangeForStatement:
			add(n.Counter.Value)
		}
	})
	return names
}

type validator struct {
	bound     map[string]bool
	functions *function.Registry

	loops    int
	switches int
}

// Validate checks a program once before it is evaluated. Names bound
// anywhere in the program count as bound everywhere, together with the
// given names. It rejects reads of unbound names, calls that do not resolve
// against functions, and break or continue outside a loop.
func Validate(program *ast.Program, names []string, functions *function.Registry) error {
	v := &validator{bound: make(map[string]bool), functions: functions}
	for _, name := range names {
		v.bound[name] = true
	}
	for _, name := range AssignedNames(program) {
		v.bound[name] = true
	}
	return v.statements(program.Statements)
}

func (v *validator) statements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := v.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return v.expression(s.Expression)
	case *ast.BlockStatement:
		return v.statements(s.Statements)
	case *ast.IfStatement:
		if err := v.expression(s.Condition); err != nil {
			return err
		}
		if err := v.statement(s.Consequence); err != nil {
			return err
		}
		if s.Alternative != nil {
			return v.statement(s.Alternative)
		}
	case *ast.WhileStatement:
		if err := v.expression(s.Condition); err != nil {
			return err
		}
		return v.loopBody(s.Body)
	case *ast.DoWhileStatement:
		if err := v.loopBody(s.Body); err != nil {
			return err
		}
		return v.expression(s.Condition)
	case *ast.ForStatement:
		for _, e := range []ast.Expression{s.Init, s.Condition, s.Update} {
			if err := v.expression(e); err != nil {
				return err
			}
		}
		return v.loopBody(s.Body)
	case *ast.RangeForStatement:
		if err := v.expression(s.First); err != nil {
			return err
		}
		if err := v.expression(s.Last); err != nil {
			return err
		}
		return v.loopBody(s.Body)
	case *ast.SwitchStatement:
		if err := v.expression(s.Selector); err != nil {
			return err
		}
		v.switches++
		defer func() { v.switches-- }()
		for _, c := range s.Cases {
			if c.Value != nil {
				if err := v.expression(c.Value); err != nil {
					return err
				}
			}
			if err := v.statements(c.Body); err != nil {
				return err
			}
		}
	case *ast.BreakStatement:
		if v.loops == 0 && v.switches == 0 {
			return exprerr.Validation(s.Token, "cannot break outside of a loop")
		}
	case *ast.ContinueStatement:
		if v.loops == 0 {
			return exprerr.Validation(s.Token, "cannot continue outside of a loop")
		}
	case *ast.ReturnStatement:
		if s.ReturnValue != nil {
			return v.expression(s.ReturnValue)
		}
	}
	return nil
}

func (v *validator) loopBody(body ast.Statement) error {
	v.loops++
	defer func() { v.loops-- }()
	return v.statement(body)
}

func (v *validator) name(ident *ast.Identifier) error {
	if !v.bound[ident.Value] {
		return exprerr.Validation(ident.Token, "'%s' is not initialized yet", ident.Value)
	}
	return nil
}

func (v *validator) expression(exp ast.Expression) error {
	switch e := exp.(type) {
	case *ast.Identifier:
		return v.name(e)
	case *ast.PrefixExpression:
		return v.expression(e.Right)
	case *ast.InfixExpression:
		if err := v.expression(e.Left); err != nil {
			return err
		}
		return v.expression(e.Right)
	case *ast.FactorialExpression:
		return v.expression(e.Left)
	case *ast.IncrementExpression:
		return v.name(e.Target)
	case *ast.AssignmentExpression:
		if e.Operator != "=" {
			if err := v.name(e.Name); err != nil {
				return err
			}
		}
		return v.expression(e.Value)
	case *ast.TernaryExpression:
		for _, part := range []ast.Expression{e.Condition, e.Consequence, e.Alternative} {
			if err := v.expression(part); err != nil {
				return err
			}
		}
	case *ast.CallExpression:
		if v.functions == nil {
			return exprerr.Validation(e.Function.Token, "unknown function '%s'", e.Function.Value)
		}
		if _, err := v.functions.Resolve(e.Function.Value, e.Arguments); err != nil {
			return exprerr.Wrap(exprerr.KindValidation, e.Function.Token, err)
		}
		for _, arg := range e.Arguments {
			if err := v.expression(arg); err != nil {
				return err
			}
		}
	}
	return nil
}
