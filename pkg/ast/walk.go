package ast

// Walk visits node and then its children depth-first, in source order.
func Walk(node Node, visitor func(Node)) {
	if node == nil {
		return
	}

	visitor(node)

	switch n := node.(type) {
	case *Program:
		walkStatements(n.Statements, visitor)
	case *BlockStatement:
		walkStatements(n.Statements, visitor)
	case *ExpressionStatement:
		Walk(n.Expression, visitor)
	case *IfStatement:
		Walk(n.Condition, visitor)
		Walk(n.Consequence, visitor)
		if n.Alternative != nil {
			Walk(n.Alternative, visitor)
		}
	case *WhileStatement:
		Walk(n.Condition, visitor)
		Walk(n.Body, visitor)
	case *DoWhileStatement:
		Walk(n.Body, visitor)
		Walk(n.Condition, visitor)
	case *ForStatement:
		Walk(n.Init, visitor)
		Walk(n.Condition, visitor)
		Walk(n.Update, visitor)
		Walk(n.Body, visitor)
	case *RangeForStatement:
		Walk(n.Counter, visitor)
		Walk(n.First, visitor)
		Walk(n.Last, visitor)
		Walk(n.Body, visitor)
	case *ReturnStatement:
		if n.ReturnValue != nil {
			Walk(n.ReturnValue, visitor)
		}
	case *SwitchStatement:
		Walk(n.Selector, visitor)
		for _, c := range n.Cases {
			if c.Value != nil {
				Walk(c.Value, visitor)
			}
			walkStatements(c.Body, visitor)
		}
	case *PrefixExpression:
		Walk(n.Right, visitor)
	case *InfixExpression:
		Walk(n.Left, visitor)
		Walk(n.Right, visitor)
	case *FactorialExpression:
		Walk(n.Left, visitor)
	case *IncrementExpression:
		Walk(n.Target, visitor)
	case *AssignmentExpression:
		Walk(n.Name, visitor)
		Walk(n.Value, visitor)
	case *TernaryExpression:
		Walk(n.Condition, visitor)
		Walk(n.Consequence, visitor)
		Walk(n.Alternative, visitor)
	case *CallExpression:
		Walk(n.Function, visitor)
		for _, arg := range n.Arguments {
			Walk(arg, visitor)
		}
	}
}

func walkStatements(stmts []Statement, visitor func(Node)) {
	for _, stmt := range stmts {
		Walk(stmt, visitor)
	}
}
