package expression

import (
	"context"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/eval"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
	"blockexpr/pkg/megabuf"
	"blockexpr/pkg/slot"

	"fortio.org/log"
)

// Expression is a compiled formula. Evaluations of one Expression must not
// run concurrently: they share its variables. Use Clone or a Pool to
// evaluate the same formula from several goroutines.
type Expression struct {
	source     string
	program    *ast.Program
	params     []string
	slots      *slot.Table
	paramSlots []*slot.Slot
	functions  *function.Registry
	limits     Limits

	// compiled is the slot table as it stood right after compiling.
	compiled *slot.Table

	buf *megabuf.Buffer
	env function.Environment
}

// Evaluate runs the expression with values bound to its parameters in
// order. Missing values leave the parameter at its previous value.
func (e *Expression) Evaluate(values ...float64) (float64, error) {
	return e.EvaluateContext(context.Background(), values...)
}

// EvaluateContext is Evaluate bounded by ctx as well as by the expression's
// own timeout.
func (e *Expression) EvaluateContext(ctx context.Context, values ...float64) (float64, error) {
	if len(values) > len(e.paramSlots) {
		return 0, exprerr.Evaluation(exprerr.NoPosition,
			"expression takes %d values, got %d", len(e.paramSlots), len(values))
	}
	for i, v := range values {
		if err := e.paramSlots[i].SetValue(v); err != nil {
			return 0, exprerr.Wrap(exprerr.KindEvaluation, exprerr.NoPosition, err)
		}
	}

	ctx = function.WithHost(ctx, e)
	if e.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.Timeout)
		defer cancel()
	}

	ec := &eval.Context{Slots: e.slots, Functions: e.functions}
	v, err := eval.Run(ctx, e.program, ec, eval.Limits{MaxIterations: e.limits.MaxIterations})
	if err != nil {
		log.LogVf("evaluate %q: %v", e.source, err)
		return 0, err
	}
	return v, nil
}

// Optimize folds the constant parts of the expression.
func (e *Expression) Optimize() {
	e.program = eval.Fold(e.program, e.functions)
}

func (e *Expression) SetEnvironment(env function.Environment) { e.env = env }

func (e *Expression) Environment() function.Environment { return e.env }

// Megabuf is the private buffer of this expression.
func (e *Expression) Megabuf() *megabuf.Buffer { return e.buf }

func (e *Expression) Parameters() []string { return append([]string(nil), e.params...) }

func (e *Expression) Source() string { return e.source }

// Limits reports the bounds applied to each evaluation.
func (e *Expression) Limits() Limits { return e.limits }

// Program is the syntax tree evaluated, after any optimization.
func (e *Expression) Program() *ast.Program { return e.program }

func (e *Expression) String() string { return e.program.String() }

// Variable reports the current value of a bound name.
func (e *Expression) Variable(name string) (float64, bool) {
	v, err := e.slots.SlotValue(name)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Names lists every name bound in the expression.
func (e *Expression) Names() []string { return e.slots.Names() }

// Clone returns an expression sharing the syntax tree but holding its own
// variables and private megabuf. The environment is carried over.
func (e *Expression) Clone() *Expression {
	return e.withSlots(e.slots.Clone())
}

// Fresh is like Clone but starts from the variables as they were right
// after compiling, ignoring any earlier evaluation.
func (e *Expression) Fresh() *Expression {
	return e.withSlots(e.compiled.Clone())
}

func (e *Expression) withSlots(slots *slot.Table) *Expression {
	c := &Expression{
		source:    e.source,
		program:   e.program,
		params:    e.params,
		compiled:  e.compiled,
		functions: e.functions,
		limits:    e.limits,
		buf:       megabuf.New(),
		env:       e.env,
	}
	c.bind(slots)
	return c
}

// bind makes slots the live table and points the parameters at it.
func (e *Expression) bind(slots *slot.Table) {
	e.slots = slots
	e.paramSlots = make([]*slot.Slot, len(e.params))
	for i, name := range e.params {
		e.paramSlots[i], _ = slots.Slot(name)
	}
}

// Variables returns the values of every variable, leaving out constants.
func (e *Expression) Variables() map[string]float64 {
	vars := make(map[string]float64)
	for _, name := range e.slots.Names() {
		if s, err := e.slots.GetVariable(name); err == nil {
			vars[name] = s.Value()
		}
	}
	return vars
}
