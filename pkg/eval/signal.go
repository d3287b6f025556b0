package eval

import "blockexpr/pkg/token"

// Signal is the control-flow state an evaluation step leaves behind.
type Signal uint8

const (
	None Signal = iota
	Break
	Continue
	Return
)

func (s Signal) String() string {
	switch s {
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Return:
		return "return"
	default:
		return "none"
	}
}

// Outcome is the result of evaluating a node. Statements such as loops that
// never ran have no value. A non-None Signal unwinds enclosing statement
// sequences until a loop, switch or the top level consumes it.
type Outcome struct {
	Value    float64
	HasValue bool
	Signal   Signal

	at token.Token // statement that raised Signal
}

func valueOf(v float64) Outcome {
	return Outcome{Value: v, HasValue: true}
}

// plain strips the signal, keeping the value.
func (o Outcome) plain() Outcome {
	return Outcome{Value: o.Value, HasValue: o.HasValue}
}
