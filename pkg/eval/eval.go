// Package eval walks expression syntax trees.
package eval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
	"blockexpr/pkg/slot"
	"blockexpr/pkg/token"
)

// Evaluator evaluates nodes against one Context. It is used for a single
// evaluation and is not safe for concurrent use.
type Evaluator struct {
	ctx    context.Context
	ec     *Context
	limits Limits

	constant *Evaluator
}

func New(ctx context.Context, ec *Context, limits Limits) *Evaluator {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Evaluator{ctx: ctx, ec: ec, limits: limits}
}

// Run evaluates a whole program and returns its value. Return yields its
// operand, a program without a value yields 0.
func Run(ctx context.Context, program *ast.Program, ec *Context, limits Limits) (float64, error) {
	o, err := New(ctx, ec, limits).Eval(program)
	if err != nil {
		return 0, err
	}
	switch o.Signal {
	case Break:
		return 0, exprerr.Evaluation(o.at, "cannot break outside of a loop")
	case Continue:
		return 0, exprerr.Evaluation(o.at, "cannot continue outside of a loop")
	}
	if !o.HasValue {
		return 0, nil
	}
	return o.Value, nil
}

// Eval evaluates a statement or expression.
func (e *Evaluator) Eval(node ast.Node) (Outcome, error) {
	switch node := node.(type) {
	case *ast.Program:
		return e.evalStatements(node.Statements)

	case *ast.BlockStatement:
		return e.evalStatements(node.Statements)

	case *ast.ExpressionStatement:
		v, err := e.evalExpression(node.Expression)
		if err != nil {
			return Outcome{}, err
		}
		return valueOf(v), nil

	case *ast.EmptyStatement:
		return Outcome{}, nil

	case *ast.IfStatement:
		cond, err := e.evalExpression(node.Condition)
		if err != nil {
			return Outcome{}, err
		}
		if truthy(cond) {
			return e.Eval(node.Consequence)
		} else if node.Alternative != nil {
			return e.Eval(node.Alternative)
		}
		return Outcome{}, nil

	case *ast.WhileStatement:
		return e.evalWhileStatement(node)

	case *ast.DoWhileStatement:
		return e.evalDoWhileStatement(node)

	case *ast.ForStatement:
		return e.evalForStatement(node)

	case *ast.RangeForStatement:
		return e.evalRangeForStatement(node)

	case *ast.SwitchStatement:
		return e.evalSwitchStatement(node)

	case *ast.BreakStatement:
		return Outcome{Signal: Break, at: node.Token}, nil

	case *ast.ContinueStatement:
		return Outcome{Signal: Continue, at: node.Token}, nil

	case *ast.ReturnStatement:
		if node.ReturnValue == nil {
			return Outcome{Signal: Return, at: node.Token}, nil
		}
		v, err := e.evalExpression(node.ReturnValue)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Value: v, HasValue: true, Signal: Return, at: node.Token}, nil

	case ast.Expression:
		v, err := e.evalExpression(node)
		if err != nil {
			return Outcome{}, err
		}
		return valueOf(v), nil
	}

	return Outcome{}, exprerr.Evaluation(node.Tok(), "cannot evaluate %T", node)
}

// evalStatements runs stmts in order and stops at the first signal. The
// value is that of the last statement run.
func (e *Evaluator) evalStatements(stmts []ast.Statement) (Outcome, error) {
	var result Outcome
	for _, stmt := range stmts {
		o, err := e.Eval(stmt)
		if err != nil {
			return Outcome{}, err
		}
		if o.Signal != None {
			if o.Signal != Return {
				o.Value, o.HasValue = result.Value, result.HasValue
			}
			return o, nil
		}
		result = o
	}
	return result, nil
}

func (e *Evaluator) evalExpression(node ast.Expression) (float64, error) {
	switch node := node.(type) {
	case *ast.NumberLiteral:
		return node.Value, nil

	case *ast.Identifier:
		return e.evalIdentifier(node)

	case *ast.InfixExpression:
		return e.evalInfixExpression(node)

	case *ast.PrefixExpression:
		right, err := e.evalExpression(node.Right)
		if err != nil {
			return 0, err
		}
		return e.evalPrefixExpression(node, right)

	case *ast.FactorialExpression:
		v, err := e.evalExpression(node.Left)
		if err != nil {
			return 0, err
		}
		return factorial(v), nil

	case *ast.TernaryExpression:
		cond, err := e.evalExpression(node.Condition)
		if err != nil {
			return 0, err
		}
		if truthy(cond) {
			return e.evalExpression(node.Consequence)
		}
		return e.evalExpression(node.Alternative)

	case *ast.AssignmentExpression:
		return e.evalAssignmentExpression(node)

	case *ast.IncrementExpression:
		return e.evalIncrementExpression(node)

	case *ast.CallExpression:
		return e.evalCallExpression(node)
	}

	return 0, exprerr.Evaluation(node.Tok(), "cannot evaluate %T", node)
}

func (e *Evaluator) constantError(tok token.Token, name string) error {
	return exprerr.Evaluation(tok, "cannot reference '%s' in a constant expression", name)
}

func (e *Evaluator) slotError(tok token.Token, err error) error {
	return exprerr.EvaluationCause(tok, err, "%s", err.Error())
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier) (float64, error) {
	if e.ec.Slots == nil {
		return 0, e.constantError(node.Token, node.Value)
	}
	v, err := e.ec.Slots.SlotValue(node.Value)
	if err != nil {
		return 0, e.slotError(node.Token, err)
	}
	return v, nil
}

func (e *Evaluator) variable(ident *ast.Identifier) (*slot.Slot, error) {
	if e.ec.Slots == nil {
		return nil, e.constantError(ident.Token, ident.Value)
	}
	s, err := e.ec.Slots.GetVariable(ident.Value)
	if err != nil {
		return nil, e.slotError(ident.Token, err)
	}
	return s, nil
}

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, right float64) (float64, error) {
	switch node.Operator {
	case "-":
		return -right, nil
	case "+":
		return right, nil
	case "!":
		return boolean(!truthy(right)), nil
	case "~":
		return float64(^function.Int(right)), nil
	default:
		return 0, exprerr.Evaluation(node.Token, "unknown operator: %s", node.Operator)
	}
}

func (e *Evaluator) evalInfixExpression(node *ast.InfixExpression) (float64, error) {
	left, err := e.evalExpression(node.Left)
	if err != nil {
		return 0, err
	}

	// && and || only evaluate the right side when it decides the result
	switch node.Operator {
	case "&&":
		if !truthy(left) {
			return 0, nil
		}
		right, err := e.evalExpression(node.Right)
		if err != nil {
			return 0, err
		}
		return boolean(truthy(right)), nil
	case "||":
		if truthy(left) {
			return 1, nil
		}
		right, err := e.evalExpression(node.Right)
		if err != nil {
			return 0, err
		}
		return boolean(truthy(right)), nil
	}

	right, err := e.evalExpression(node.Right)
	if err != nil {
		return 0, err
	}
	v, ok := binary(node.Operator, left, right)
	if !ok {
		return 0, exprerr.Evaluation(node.Token, "unknown operator: %s", node.Operator)
	}
	return v, nil
}

// binary applies a non short-circuit binary operator.
func binary(operator string, left, right float64) (float64, bool) {
	switch operator {
	case "+":
		return left + right, true
	case "-":
		return left - right, true
	case "*":
		return left * right, true
	case "/":
		return left / right, true
	case "%":
		return math.Mod(left, right), true
	case "^":
		return math.Pow(left, right), true
	case "<<":
		return float64(function.Int(left) << shiftCount(right)), true
	case ">>":
		return float64(function.Int(left) >> shiftCount(right)), true
	case "==":
		return boolean(left == right), true
	case "!=":
		return boolean(left != right), true
	case "~=":
		return boolean(near(left, right)), true
	case "<":
		return boolean(left < right), true
	case ">":
		return boolean(left > right), true
	case "<=":
		return boolean(left <= right), true
	case ">=":
		return boolean(left >= right), true
	}
	return 0, false
}

func shiftCount(v float64) uint64 {
	return uint64(function.Int(v)) & 63
}

func (e *Evaluator) evalAssignmentExpression(node *ast.AssignmentExpression) (float64, error) {
	if e.ec.Slots == nil {
		return 0, e.constantError(node.Name.Token, node.Name.Value)
	}

	if node.Operator == "=" {
		v, err := e.evalExpression(node.Value)
		if err != nil {
			return 0, err
		}
		s, err := e.ec.Slots.InitVariable(node.Name.Value)
		if err != nil {
			return 0, e.slotError(node.Name.Token, err)
		}
		if err := s.SetValue(v); err != nil {
			return 0, e.slotError(node.Name.Token, err)
		}
		return v, nil
	}

	s, err := e.variable(node.Name)
	if err != nil {
		return 0, err
	}
	operand, err := e.evalExpression(node.Value)
	if err != nil {
		return 0, err
	}
	v, ok := binary(node.BinaryOperator(), s.Value(), operand)
	if !ok {
		return 0, exprerr.Evaluation(node.Token, "unknown operator: %s", node.Operator)
	}
	if err := s.SetValue(v); err != nil {
		return 0, e.slotError(node.Name.Token, err)
	}
	return v, nil
}

func (e *Evaluator) evalIncrementExpression(node *ast.IncrementExpression) (float64, error) {
	s, err := e.variable(node.Target)
	if err != nil {
		return 0, err
	}
	old := s.Value()
	updated := old + 1
	if node.Operator == "--" {
		updated = old - 1
	}
	if err := s.SetValue(updated); err != nil {
		return 0, e.slotError(node.Target.Token, err)
	}
	if node.Prefix {
		return updated, nil
	}
	return old, nil
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression) (float64, error) {
	name := node.Function.Value
	if e.ec.Functions == nil {
		return 0, e.constantError(node.Function.Token, name)
	}

	o, err := e.ec.Functions.Resolve(name, node.Arguments)
	if err != nil {
		return 0, exprerr.Wrap(exprerr.KindEvaluation, node.Function.Token, err)
	}

	args := make([]function.Arg, len(node.Arguments))
	for i, arg := range node.Arguments {
		switch o.ParamKind(i) {
		case function.Variable:
			s, err := e.variable(arg.(*ast.Identifier))
			if err != nil {
				return 0, err
			}
			args[i] = function.Arg{Value: s.Value(), Slot: s}
		case function.Slot:
			s, err := e.slotArgument(arg)
			if err != nil {
				return 0, err
			}
			args[i] = function.Arg{Value: s.Value(), Slot: s}
		default:
			v, err := e.evalExpression(arg)
			if err != nil {
				return 0, err
			}
			args[i] = function.Arg{Value: v}
		}
	}

	v, err := o.Fn(&function.Call{Ctx: e.ctx, Name: name, Args: args})
	if err != nil {
		if ctxErr := e.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return 0, e.stopped(node.Function.Token, ctxErr)
		}
		return 0, exprerr.Wrap(exprerr.KindEvaluation, node.Function.Token, err)
	}
	return v, nil
}

// slotArgument binds the slot of a bare identifier, or wraps any other
// argument's value in a Constant.
func (e *Evaluator) slotArgument(arg ast.Expression) (*slot.Slot, error) {
	ident, ok := arg.(*ast.Identifier)
	if !ok {
		v, err := e.evalExpression(arg)
		if err != nil {
			return nil, err
		}
		return slot.NewConstant(v), nil
	}
	if e.ec.Slots == nil {
		return nil, e.constantError(ident.Token, ident.Value)
	}
	s, ok := e.ec.Slots.Slot(ident.Value)
	if !ok {
		return nil, e.slotError(ident.Token, fmt.Errorf("'%s' is %w", ident.Value, slot.ErrNotInitialized))
	}
	return s, nil
}

// checkIteration runs before every loop iteration. It enforces the
// per-loop iteration cap and the evaluation deadline.
func (e *Evaluator) checkIteration(tok token.Token, iterations int) error {
	if limit := e.limits.maxIterations(); iterations >= limit {
		return exprerr.EvaluationCause(tok, exprerr.ErrIterationLimit, "loop exceeded %d iterations", limit)
	}
	if err := e.ctx.Err(); err != nil {
		return e.stopped(tok, err)
	}
	return nil
}

// stopped reports an evaluation cut short by its context.
func (e *Evaluator) stopped(tok token.Token, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return exprerr.EvaluationCause(tok, exprerr.ErrTimeout, "calculation timed out")
	}
	return exprerr.EvaluationCause(tok, err, "calculation canceled")
}

func (e *Evaluator) evalWhileStatement(node *ast.WhileStatement) (Outcome, error) {
	var result Outcome
	for iterations := 0; ; iterations++ {
		cond, err := e.evalExpression(node.Condition)
		if err != nil {
			return Outcome{}, err
		}
		if !truthy(cond) {
			break
		}
		if err := e.checkIteration(node.Token, iterations); err != nil {
			return Outcome{}, err
		}

		o, err := e.Eval(node.Body)
		if err != nil {
			return Outcome{}, err
		}
		if stop, ret := loopSignal(o); ret {
			return o, nil
		} else if stop {
			break
		} else if o.Signal == None {
			result = o
		}
	}
	return result, nil
}

func (e *Evaluator) evalDoWhileStatement(node *ast.DoWhileStatement) (Outcome, error) {
	var result Outcome
	for iterations := 0; ; iterations++ {
		if err := e.checkIteration(node.Token, iterations); err != nil {
			return Outcome{}, err
		}

		o, err := e.Eval(node.Body)
		if err != nil {
			return Outcome{}, err
		}
		if stop, ret := loopSignal(o); ret {
			return o, nil
		} else if stop {
			break
		} else if o.Signal == None {
			result = o
		}

		cond, err := e.evalExpression(node.Condition)
		if err != nil {
			return Outcome{}, err
		}
		if !truthy(cond) {
			break
		}
	}
	return result, nil
}

func (e *Evaluator) evalForStatement(node *ast.ForStatement) (Outcome, error) {
	if _, err := e.evalExpression(node.Init); err != nil {
		return Outcome{}, err
	}

	var result Outcome
	for iterations := 0; ; iterations++ {
		cond, err := e.evalExpression(node.Condition)
		if err != nil {
			return Outcome{}, err
		}
		if !truthy(cond) {
			break
		}
		if err := e.checkIteration(node.Token, iterations); err != nil {
			return Outcome{}, err
		}

		o, err := e.Eval(node.Body)
		if err != nil {
			return Outcome{}, err
		}
		if stop, ret := loopSignal(o); ret {
			return o, nil
		} else if stop {
			break
		} else if o.Signal == None {
			result = o
		}

		if _, err := e.evalExpression(node.Update); err != nil {
			return Outcome{}, err
		}
	}
	return result, nil
}

func (e *Evaluator) evalRangeForStatement(node *ast.RangeForStatement) (Outcome, error) {
	first, err := e.evalExpression(node.First)
	if err != nil {
		return Outcome{}, err
	}
	last, err := e.evalExpression(node.Last)
	if err != nil {
		return Outcome{}, err
	}
	if e.ec.Slots == nil {
		return Outcome{}, e.constantError(node.Counter.Token, node.Counter.Value)
	}
	counter, err := e.ec.Slots.InitVariable(node.Counter.Value)
	if err != nil {
		return Outcome{}, e.slotError(node.Counter.Token, err)
	}

	var result Outcome
	iterations := 0
	for i := first; i <= last; i++ {
		if err := e.checkIteration(node.Token, iterations); err != nil {
			return Outcome{}, err
		}
		iterations++
		if err := counter.SetValue(i); err != nil {
			return Outcome{}, e.slotError(node.Counter.Token, err)
		}

		o, err := e.Eval(node.Body)
		if err != nil {
			return Outcome{}, err
		}
		if stop, ret := loopSignal(o); ret {
			return o, nil
		} else if stop {
			break
		} else if o.Signal == None {
			result = o
		}
	}
	return result, nil
}

// loopSignal tells a loop whether o stops it and whether o must be passed
// on as a return.
func loopSignal(o Outcome) (stop, ret bool) {
	switch o.Signal {
	case Break:
		return true, false
	case Return:
		return true, true
	}
	return false, false
}

func (e *Evaluator) constantEvaluator() *Evaluator {
	if e.constant == nil {
		e.constant = New(e.ctx, ConstantContext(), e.limits)
	}
	return e.constant
}

func (e *Evaluator) evalSwitchStatement(node *ast.SwitchStatement) (Outcome, error) {
	selector, err := e.evalExpression(node.Selector)
	if err != nil {
		return Outcome{}, err
	}

	start, defaultCase := -1, -1
	seen := make(map[float64]bool, len(node.Cases))
	for i, c := range node.Cases {
		if c.IsDefault() {
			if defaultCase >= 0 {
				return Outcome{}, exprerr.Evaluation(c.Token, "duplicate default case")
			}
			defaultCase = i
			continue
		}
		label, err := e.constantEvaluator().evalExpression(c.Value)
		if err != nil {
			return Outcome{}, err
		}
		if seen[label] {
			return Outcome{}, exprerr.Evaluation(c.Token, "duplicate case %g", label)
		}
		seen[label] = true
		if start < 0 && label == selector {
			start = i
		}
	}
	if start < 0 {
		start = defaultCase
	}
	if start < 0 {
		return Outcome{}, nil
	}

	var result Outcome
	for _, c := range node.Cases[start:] {
		o, err := e.evalStatements(c.Body)
		if err != nil {
			return Outcome{}, err
		}
		switch o.Signal {
		case Break:
			if o.HasValue {
				return o.plain(), nil
			}
			return result, nil
		case Continue:
			return Outcome{}, exprerr.Evaluation(o.at, "cannot continue in a switch")
		case Return:
			return o, nil
		}
		if len(c.Body) > 0 {
			result = o
		}
	}
	return result, nil
}

func truthy(v float64) bool {
	return v != 0
}

func boolean(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
