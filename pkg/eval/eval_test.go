package eval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
	"blockexpr/pkg/lexer"
	"blockexpr/pkg/megabuf"
	"blockexpr/pkg/parser"
	"blockexpr/pkg/slot"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse %q: %v", input, errs[0])
	}
	return program
}

func newContext() *Context {
	slots := slot.NewTable()
	_ = slots.PutSlot("pi", slot.NewNamedConstant("pi", math.Pi))
	_ = slots.PutSlot("true", slot.NewNamedConstant("true", 1))
	_ = slots.PutSlot("false", slot.NewNamedConstant("false", 0))
	return &Context{Slots: slots, Functions: function.Builtins()}
}

func testEval(t *testing.T, input string) (float64, error) {
	t.Helper()
	return Run(context.Background(), parse(t, input), newContext(), Limits{})
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"-2^2", 4},
		{"2^3^2", 64},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"1 / 4", 0.25},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"1 << 65", 2},
		{"-8 >> 1", -4},
		{"~0", -1},
		{"~5.9", -6},
		{"5!", 120},
		{"(-1)!", 0},
		{"0!", 1},
		{"3 > 2", 1},
		{"3 <= 2", 0},
		{"2 == 2", 1},
		{"2 != 2", 0},
		{"1 ~= 1 + 1e-14", 1},
		{"1 ~= 1.1", 0},
		{"0 ~= -0", 1},
		{"3 > 2 && 0", 0},
		{"0 || 5", 1},
		{"2 && 3", 1},
		{"!5", 0},
		{"!0", 1},
		{"+3", 3},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 0 ? 3 : 4", 4},
		{"true + false", 1},
		{"min(3, 1, 2) + max(4, 9)", 10},
		{"round(2.5) + floor(-0.5)", 2},
	}

	for _, tt := range tests {
		got, err := testEval(t, tt.input)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%q: expected=%v, got=%v", tt.input, tt.expected, got)
		}
	}
}

func TestFactorialBoundaries(t *testing.T) {
	v, err := testEval(t, "170!")
	if err != nil || math.IsInf(v, 0) || v < 7.2e306 {
		t.Errorf("170! expected finite ~7.26e306, got=%v (%v)", v, err)
	}
	if v, _ := testEval(t, "171!"); !math.IsInf(v, 1) {
		t.Errorf("171! expected +Inf, got=%v", v)
	}
	if v, _ := testEval(t, "(-3.5)!"); v != 0 {
		t.Errorf("(-3.5)! expected 0, got=%v", v)
	}
	if v, _ := testEval(t, "4.9!"); v != 24 {
		t.Errorf("4.9! expected 24, got=%v", v)
	}
}

func TestEvalStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"x = 3; x += 2; x", 5},
		{"x = 2; x ^= 3", 8},
		{"x = 7; x %= 4", 3},
		{"x = 1; y = x++; y * 10 + x", 12},
		{"x = 1; ++x + x", 4},
		{"x = 5; x--; --x", 3},
		{"a = b = 4; a + b", 8},
		{"x = 0; while (x < 10) x++; x", 10},
		{"x = 0; do { x++ } while (x < 3); x", 3},
		{"do x = 7; while (0)", 7},
		{"s = 0; for (i = 0; i < 5; i++) { if (i == 2) continue; s += i }; s", 8},
		{"s = 0; for (i = 1, 100) { if (i > 4) break; s += i }; s", 10},
		{"i = 0; for (j = 1, 10) { i += j }; i", 55},
		{"for (i = 1, 3) i * 2", 6},
		{"for (i = 1, 3) { if (i == 2) break; i * 2 }", 2},
		{"for (i = 5, 1) 1", 0},
		{"while (0) 1", 0},
		{"if (0) 1", 0},
		{"if (0) 1; else 2", 2},
		{"x = 2; switch (x) { case 1: y = 10; break; case 2: y = 20; case 3: y += 5; break; default: y = 99 }; y", 25},
		{"switch (7) { case 1: 10; default: 42 }", 42},
		{"switch (1) { case 2: 5 }", 0},
		{"switch (3) { default: 1; case 3: 2; case 4: 3 }", 3},
		{"switch (1) { case 1: x = 1; default: x = 2 }; x", 2},
		{"switch (1) { case 1: x = 1; break; default: x = 2 }; x", 1},
		{"return 5; 6", 5},
		{"return", 0},
		{"x = 1; while (1) { if (x > 3) return x * 100; x++ }", 400},
		{"for (i = 1, 5) { switch (i) { case 3: return i } }", 3},
		{"x = 1; y = 2; swap(x, y); x * 10 + y", 21},
		{"x = 1; y = 0; rotate(x, y, pi); round(x)", -1},
		{"megabuf(3, 9); megabuf(3)", 9},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		ec := newContext()
		if err := Validate(program, ec.Slots.Names(), ec.Functions); err != nil {
			t.Errorf("%q: validation failed: %v", tt.input, err)
			continue
		}
		ctx := function.WithHost(context.Background(), testHost{})
		got, err := Run(ctx, program, ec, Limits{})
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%q: expected=%v, got=%v", tt.input, tt.expected, got)
		}
	}
}

func TestIterationLimit(t *testing.T) {
	_, err := testEval(t, "while (1) {}")
	if err == nil || err.Error() != "evaluation error at 1:1: loop exceeded 256 iterations" {
		t.Fatalf("expected iteration limit error, got=%v", err)
	}
	if !errors.Is(err, exprerr.ErrIterationLimit) || !errors.Is(err, exprerr.ErrRunaway) {
		t.Errorf("iteration limit error does not wrap the runaway sentinels")
	}

	if _, err := testEval(t, "for (i = 1, 256) {}"); err != nil {
		t.Errorf("256 iterations failed: %v", err)
	}
	if _, err := testEval(t, "for (i = 1, 257) {}"); !errors.Is(err, exprerr.ErrIterationLimit) {
		t.Errorf("257 iterations did not fail, got=%v", err)
	}
	if _, err := testEval(t, "x = 0; do x++; while (1)"); !errors.Is(err, exprerr.ErrIterationLimit) {
		t.Errorf("do-while did not hit the cap, got=%v", err)
	}
	// The cap is per loop, not per evaluation.
	if v, err := testEval(t, "n = 0; for (i = 1, 200) n++; for (j = 1, 200) n++; n"); err != nil || v != 400 {
		t.Errorf("two loops of 200 failed: %v, %v", v, err)
	}

	_, err = Run(context.Background(), parse(t, "for (i = 1, 20) {}"), newContext(), Limits{MaxIterations: 10})
	if err == nil || !strings.Contains(err.Error(), "loop exceeded 10 iterations") {
		t.Errorf("custom limit not applied, got=%v", err)
	}
}

func TestDeadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := Run(ctx, parse(t, "while (1) {}"), newContext(), Limits{})
	if !errors.Is(err, exprerr.ErrTimeout) || !strings.Contains(err.Error(), "calculation timed out") {
		t.Fatalf("expected timeout, got=%v", err)
	}

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, parse(t, "for (i = 1, 2) {}"), newContext(), Limits{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got=%v", err)
	}

	// Loop-free programs never look at the deadline.
	if v, err := Run(ctx, parse(t, "1 + 1"), newContext(), Limits{}); err != nil || v != 2 {
		t.Errorf("straight-line program failed after cancel: %v, %v", v, err)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"switch (1) { case 1: case 1: }", "duplicate case 1"},
		{"switch (1) { default: default: }", "duplicate default case"},
		{"for (i = 1, 3) { switch (i) { case 1: continue } }", "cannot continue in a switch"},
		{"switch (1) { case x: 1 }", "cannot reference 'x' in a constant expression"},
		{"pi = 3", "cannot overwrite non-variable"},
		{"pi++", "not a variable"},
		{"pi += 1", "not a variable"},
		{"x + 1", "'x' is not initialized yet"},
		{"y += 1", "'y' is not initialized yet"},
		{"break", "cannot break outside of a loop"},
		{"continue", "cannot continue outside of a loop"},
		{"randint(0)", "randint bound must be positive"},
		{"query(0, 0, 0, 1, 1)", "no expression is being evaluated"},
		{"atan2(1)", "function 'atan2' accepts 2 arguments, got 1"},
		{"swap(x, 1)", "function 'swap' requires a variable in parameter 2"},
	}

	for _, tt := range tests {
		_, err := testEval(t, tt.input)
		if err == nil {
			t.Errorf("%q: expected error %q, got none", tt.input, tt.expected)
			continue
		}
		if !strings.Contains(err.Error(), tt.expected) {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, err.Error())
		}
		if !exprerr.IsKind(err, exprerr.KindEvaluation) {
			t.Errorf("%q: not an evaluation error: %T", tt.input, err)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := testEval(t, "x = 1;\n  x + y")
	var e *exprerr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *exprerr.Error, got=%T", err)
	}
	if e.Line != 2 || e.Column != 7 {
		t.Errorf("wrong position. got=%d:%d", e.Line, e.Column)
	}
	if !errors.Is(err, slot.ErrNotInitialized) {
		t.Errorf("error does not wrap slot.ErrNotInitialized")
	}
}

func TestConstantContext(t *testing.T) {
	e := New(context.Background(), ConstantContext(), Limits{})
	if !ConstantContext().IsConstant() {
		t.Fatalf("ConstantContext is not constant")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"x", "cannot reference 'x' in a constant expression"},
		{"sin(1)", "cannot reference 'sin' in a constant expression"},
		{"x = 1", "cannot reference 'x' in a constant expression"},
	}
	for _, tt := range tests {
		_, err := e.Eval(parse(t, tt.input))
		if err == nil || !strings.Contains(err.Error(), tt.expected) {
			t.Errorf("%q: expected %q, got=%v", tt.input, tt.expected, err)
		}
	}

	o, err := e.Eval(parse(t, "2 * 3 + 1"))
	if err != nil || !o.HasValue || o.Value != 7 {
		t.Errorf("constant arithmetic failed: %+v, %v", o, err)
	}
}

func TestSignals(t *testing.T) {
	e := New(context.Background(), newContext(), Limits{})
	tests := []struct {
		input    string
		signal   Signal
		hasValue bool
	}{
		{"1; break", Break, true},
		{"continue", Continue, false},
		{"return 3", Return, true},
		{"return", Return, false},
		{"1; 2", None, true},
		{"while (0) 1", None, false},
	}
	for _, tt := range tests {
		o, err := e.Eval(parse(t, tt.input))
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		if o.Signal != tt.signal || o.HasValue != tt.hasValue {
			t.Errorf("%q: expected signal=%s value=%t, got signal=%s value=%t",
				tt.input, tt.signal, tt.hasValue, o.Signal, o.HasValue)
		}
	}
}

func TestNear(t *testing.T) {
	tests := []struct {
		a, b     float64
		expected bool
	}{
		{1, 1, true},
		{1, 1 + 1e-14, true},
		{1, 1.1, false},
		{0, math.Copysign(0, -1), true},
		{1e300, -1e300, false},
		{math.MaxFloat64, -math.MaxFloat64, false},
		{-1, -1 - 1e-13, true},
	}
	for _, tt := range tests {
		if got := near(tt.a, tt.b); got != tt.expected {
			t.Errorf("near(%v, %v): expected=%t, got=%t", tt.a, tt.b, tt.expected, got)
		}
	}
}

type testHost struct{}

var testBuffer = megabuf.New()

func (testHost) Megabuf() *megabuf.Buffer          { return testBuffer }
func (testHost) Environment() function.Environment { return nil }
