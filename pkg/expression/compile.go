// Package expression compiles formulas into expressions that can be
// evaluated many times.
package expression

import (
	"math"
	"time"

	"blockexpr/pkg/eval"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
	"blockexpr/pkg/lexer"
	"blockexpr/pkg/megabuf"
	"blockexpr/pkg/parser"
	"blockexpr/pkg/slot"

	"fortio.org/log"
)

// DefaultTimeout bounds one evaluation.
const DefaultTimeout = 100 * time.Millisecond

// Limits bound every evaluation of an expression. A zero Timeout disables
// the deadline; a zero MaxIterations uses eval.DefaultMaxIterations.
type Limits struct {
	Timeout       time.Duration
	MaxIterations int
}

func DefaultLimits() Limits {
	return Limits{Timeout: DefaultTimeout, MaxIterations: eval.DefaultMaxIterations}
}

// Compiler turns source text into expressions. The zero value is not
// usable; start from NewCompiler.
type Compiler struct {
	Functions *function.Registry
	Limits    Limits
	// Optimize folds constants right after compiling.
	Optimize bool
}

func NewCompiler() *Compiler {
	return &Compiler{Functions: function.Builtins(), Limits: DefaultLimits()}
}

var defaultCompiler = NewCompiler()

// Compile compiles source with the built-in functions and default limits.
// params name the values passed to Evaluate, in order.
func Compile(source string, params ...string) (*Expression, error) {
	return defaultCompiler.Compile(source, params...)
}

// constants are bound in every expression.
var constants = []struct {
	name  string
	value float64
}{
	{"e", math.E},
	{"pi", math.Pi},
	{"true", 1},
	{"false", 0},
}

func (c *Compiler) Compile(source string, params ...string) (*Expression, error) {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		for _, err := range errs {
			log.LogVf("compile %q: %v", source, err)
		}
		return nil, errs[0]
	}

	slots := slot.NewTable()
	for _, k := range constants {
		if err := slots.PutSlot(k.name, slot.NewNamedConstant(k.name, k.value)); err != nil {
			return nil, exprerr.Wrap(exprerr.KindValidation, exprerr.NoPosition, err)
		}
	}

	paramSlots := make([]*slot.Slot, len(params))
	for i, name := range params {
		s, err := slots.InitVariable(name)
		if err != nil {
			return nil, exprerr.Wrap(exprerr.KindValidation, exprerr.NoPosition, err)
		}
		paramSlots[i] = s
	}

	if err := eval.Validate(program, slots.Names(), c.Functions); err != nil {
		log.LogVf("compile %q: %v", source, err)
		return nil, err
	}

	expr := &Expression{
		source:     source,
		program:    program,
		params:     append([]string(nil), params...),
		slots:      slots,
		compiled:   slots.Clone(),
		paramSlots: paramSlots,
		functions:  c.Functions,
		limits:     c.Limits,
		buf:        megabuf.New(),
	}
	if c.Optimize {
		expr.Optimize()
	}
	log.LogVf("compiled %q with parameters %v: %s", source, params, expr.program)
	return expr, nil
}
