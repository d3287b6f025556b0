package eval

import (
	"blockexpr/pkg/function"
	"blockexpr/pkg/slot"
)

// DefaultMaxIterations caps the iterations of a single loop.
const DefaultMaxIterations = 256

// Context is what an evaluation reads names and functions from.
type Context struct {
	Slots     *slot.Table
	Functions *function.Registry
}

// ConstantContext has neither slots nor functions. Referencing a name or
// calling a function in it fails.
func ConstantContext() *Context {
	return &Context{}
}

func (c *Context) IsConstant() bool {
	return c.Slots == nil && c.Functions == nil
}

// Limits bound a single evaluation. The deadline comes from the
// context.Context the evaluation runs in.
type Limits struct {
	MaxIterations int
}

func (l Limits) maxIterations() int {
	if l.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return l.MaxIterations
}
