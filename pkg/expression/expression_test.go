package expression

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/function"
)

func compile(t *testing.T, source string, params ...string) *Expression {
	t.Helper()
	expr, err := Compile(source, params...)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", source, err)
	}
	return expr
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		source   string
		params   []string
		values   []float64
		expected float64
	}{
		{"x^2+y^2<=r^2", []string{"x", "y", "r"}, []float64{3, 4, 5}, 1},
		{"x^2+y^2<=r^2", []string{"x", "y", "r"}, []float64{3, 4, 4}, 0},
		{"s = 0; for (i = 1, 10) s += i; s", nil, nil, 55},
		{"a = x * 2; return a + 1; a", []string{"x"}, []float64{4}, 9},
		{"pi > 3 && e < 3", nil, nil, 1},
		{"if (x > 0) 1; else -1", []string{"x"}, []float64{-3}, -1},
		{"", nil, nil, 0},
	}

	for _, tt := range tests {
		expr := compile(t, tt.source, tt.params...)
		got, err := expr.Evaluate(tt.values...)
		if err != nil {
			t.Errorf("Evaluate(%q) failed: %v", tt.source, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Evaluate(%q) wrong. expected=%v, got=%v", tt.source, tt.expected, got)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	expr := compile(t, "a = x; b = a * a; b - x", "x")
	for i := 0; i < 3; i++ {
		got, err := expr.Evaluate(6)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if got != 30 {
			t.Fatalf("run %d wrong. expected=30, got=%v", i, got)
		}
	}
}

func TestVariablesPersistBetweenEvaluations(t *testing.T) {
	expr := compile(t, "n += 1", "n")
	for _, expected := range []float64{1, 2, 3} {
		got, err := expr.Evaluate()
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if got != expected {
			t.Errorf("expected=%v, got=%v", expected, got)
		}
	}
	if v, ok := expr.Variable("n"); !ok || v != 3 {
		t.Errorf("Variable(n) wrong. expected=3, got=%v (%v)", v, ok)
	}
}

func TestOptimizePreservesResults(t *testing.T) {
	sources := []string{
		"x * (2 + 3) - 4!",
		"1 ? x : y",
		"sin(pi / 2) * x + min(3, y, 1 + 1)",
		"t = 2 * 3; while (t < x) t *= 2; t",
	}
	for _, source := range sources {
		plain := compile(t, source, "x", "y")
		folded := compile(t, source, "x", "y")
		folded.Optimize()

		want, err := plain.Evaluate(100, 7)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", source, err)
		}
		got, err := folded.Evaluate(100, 7)
		if err != nil {
			t.Fatalf("optimized Evaluate(%q) failed: %v", source, err)
		}
		if got != want {
			t.Errorf("optimized %q wrong. expected=%v, got=%v", source, want, got)
		}
	}
}

func TestCompilerOptimize(t *testing.T) {
	c := NewCompiler()
	c.Optimize = true
	expr, err := c.Compile("x + 2 * 3", "x")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := expr.String(); got != "(x + 6);" {
		t.Errorf("optimized program wrong. expected=%q, got=%q", "(x + 6);", got)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		source string
		params []string
		kind   exprerr.Kind
	}{
		{"1 +", nil, exprerr.KindParse},
		{"(1", nil, exprerr.KindParse},
		{"x + 1", nil, exprerr.KindValidation},
		{"nosuch(1)", nil, exprerr.KindValidation},
		{"min(1)", nil, exprerr.KindValidation},
		{"break", nil, exprerr.KindValidation},
		{"pi * 2", []string{"pi"}, exprerr.KindValidation},
	}
	for _, tt := range tests {
		_, err := Compile(tt.source, tt.params...)
		if err == nil {
			t.Errorf("Compile(%q) should have failed", tt.source)
			continue
		}
		if !exprerr.IsKind(err, tt.kind) {
			t.Errorf("Compile(%q) wrong kind. expected=%v, got=%v", tt.source, tt.kind, err)
		}
	}
}

func TestTooManyValues(t *testing.T) {
	expr := compile(t, "x", "x")
	if _, err := expr.Evaluate(1, 2); !exprerr.IsKind(err, exprerr.KindEvaluation) {
		t.Errorf("expected evaluation error, got=%v", err)
	}
}

func TestTimeout(t *testing.T) {
	c := NewCompiler()
	c.Limits = Limits{Timeout: time.Millisecond, MaxIterations: 1 << 40}
	expr, err := c.Compile("i = 0; while (1) i++")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	_, err = expr.Evaluate()
	if !errors.Is(err, exprerr.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got=%v", err)
	}
	if !errors.Is(err, exprerr.ErrRunaway) {
		t.Errorf("timeout should be a runaway error, got=%v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	expr := compile(t, "while (1) { }")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := expr.EvaluateContext(ctx); err == nil {
		t.Errorf("evaluation under a canceled context should fail")
	}
}

func TestIterationLimit(t *testing.T) {
	expr := compile(t, "i = 0; while (1) i++")
	_, err := expr.Evaluate()
	if !errors.Is(err, exprerr.ErrIterationLimit) {
		t.Errorf("expected ErrIterationLimit, got=%v", err)
	}
	if v, _ := expr.Variable("i"); v != 256 {
		t.Errorf("loop ran a wrong number of times. expected=256, got=%v", v)
	}
}

func TestPrivateMegabuf(t *testing.T) {
	a := compile(t, "megabuf(3, v); megabuf(3)", "v")
	b := compile(t, "megabuf(3)")

	if got, err := a.Evaluate(42); err != nil || got != 42 {
		t.Fatalf("write wrong. expected=42, got=%v (%v)", got, err)
	}
	if got, err := b.Evaluate(); err != nil || got != 0 {
		t.Errorf("private buffers are shared. expected=0, got=%v (%v)", got, err)
	}
	if got := a.Megabuf().Get(3); got != 42 {
		t.Errorf("Megabuf wrong. expected=42, got=%v", got)
	}
}

func TestGlobalMegabuf(t *testing.T) {
	a := compile(t, "gmegabuf(918273, 7)")
	b := compile(t, "gmegabuf(918273)")
	if _, err := a.Evaluate(); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got, err := b.Evaluate(); err != nil || got != 7 {
		t.Errorf("global buffer not shared. expected=7, got=%v (%v)", got, err)
	}
}

// TestNestedEvaluation evaluates an expression from a function called by
// another one and checks each sees its own buffer.
func TestNestedEvaluation(t *testing.T) {
	inner := compile(t, "megabuf(0, 5)")

	var sawOuter bool
	registry := function.Extend(function.Builtins()).Add(function.Overload{
		Name: "inner",
		Fn: func(c *function.Call) (float64, error) {
			before, _ := function.HostFrom(c.Ctx)
			v, err := inner.EvaluateContext(c.Ctx)
			after, _ := function.HostFrom(c.Ctx)
			sawOuter = before == after
			return v, err
		},
	}).MustBuild()

	c := NewCompiler()
	c.Functions = registry
	outer, err := c.Compile("inner() + megabuf(0)")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got, err := outer.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got != 5 {
		t.Errorf("nested result wrong. expected=5, got=%v", got)
	}
	if !sawOuter {
		t.Errorf("inner evaluation leaked into the caller's context")
	}
	if v := outer.Megabuf().Get(0); v != 0 {
		t.Errorf("inner wrote to outer buffer. got=%v", v)
	}
}

func TestNoEnvironment(t *testing.T) {
	expr := compile(t, "query(0, 0, 0, 1, 2)")
	if _, err := expr.Evaluate(); !errors.Is(err, function.ErrNoEnvironment) {
		t.Errorf("expected ErrNoEnvironment, got=%v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	expr := compile(t, "n += x; megabuf(1, n)", "x", "n")
	clone := expr.Clone()

	if _, err := expr.Evaluate(10); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	got, err := clone.Evaluate(1)
	if err != nil {
		t.Fatalf("clone Evaluate failed: %v", err)
	}
	if got != 1 {
		t.Errorf("clone shares variables. expected=1, got=%v", got)
	}
	if v := expr.Megabuf().Get(1); v != 10 {
		t.Errorf("original buffer wrong. expected=10, got=%v", v)
	}
}

func TestPool(t *testing.T) {
	pool := NewPool(compile(t, "acc += x; acc", "x", "acc"))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := pool.Get()
			defer pool.Put(e)
			got, err := e.Evaluate(2)
			if err != nil {
				errs <- err
				return
			}
			if got != 2 {
				errs <- errors.New("pooled expression was not reset")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestVariables(t *testing.T) {
	expr := compile(t, "a = x + 1; b = a * 2", "x")
	if _, err := expr.Evaluate(2); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	got := expr.Variables()
	want := map[string]float64{"x": 2, "a": 3, "b": 6}
	if len(got) != len(want) {
		t.Fatalf("Variables wrong. expected=%v, got=%v", want, got)
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("Variables[%s] wrong. expected=%v, got=%v", name, v, got[name])
		}
	}
}

func TestResetForgetsEarlierBindings(t *testing.T) {
	const source = "if (x > 0) { y = 1 }; y"
	expr := compile(t, source, "x")
	if got, err := expr.Evaluate(1); err != nil || got != 1 {
		t.Fatalf("Evaluate(1) wrong. expected=1, got=%v (%v)", got, err)
	}

	expr.Reset()
	_, err := expr.Evaluate(-1)
	if err == nil || !strings.Contains(err.Error(), "'y' is not initialized yet") {
		t.Errorf("reset expression kept y. got=%v", err)
	}
}

func TestPoolHandsOutFreshExpressions(t *testing.T) {
	const source = "if (x > 0) { y = 1 }; y"
	proto := compile(t, source, "x")
	if _, err := proto.Evaluate(1); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	pool := NewPool(proto)
	for i := 0; i < 2; i++ {
		e := pool.Get()
		if _, err := e.Evaluate(-1); err == nil {
			t.Errorf("round %d: pooled expression saw y from an earlier evaluation", i)
		}
		if _, err := e.Evaluate(1); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		pool.Put(e)
	}
}

func TestClosestHonorsTimeout(t *testing.T) {
	c := NewCompiler()
	c.Limits = Limits{Timeout: time.Millisecond}
	expr, err := c.Compile("closest(0, 0, 0, 0, 3e8, 3)")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, err := expr.Evaluate(); !errors.Is(err, exprerr.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got=%v", err)
	}
}

// blocks answers every query with type 7 and data 3.
type blocks struct{}

func (blocks) BlockType(x, y, z float64) float64    { return 7 }
func (blocks) BlockData(x, y, z float64) float64    { return 3 }
func (blocks) BlockTypeAbs(x, y, z float64) float64 { return 7 }
func (blocks) BlockDataAbs(x, y, z float64) float64 { return 3 }
func (blocks) BlockTypeRel(x, y, z float64) float64 { return 7 }
func (blocks) BlockDataRel(x, y, z float64) float64 { return 3 }

func TestQueryWritesBackIntoVariables(t *testing.T) {
	tests := []struct {
		source   string
		expected float64
	}{
		{"t = -1; d = 5; r = query(0, 0, 0, t, d); r*100 + t*10 + d", 73},
		{"t = 7; d = -1; r = queryAbs(0, 0, 0, t, d); r*100 + t*10 + d", 173},
		{"queryRel(1, 2, 3, 7, 3)", 1},
		{"queryRel(1, 2, 3, 7, 4)", 0},
		{"query(0, 0, 0, -1, -1)", 1},
	}
	for _, tt := range tests {
		expr := compile(t, tt.source)
		expr.SetEnvironment(blocks{})
		got, err := expr.Evaluate()
		if err != nil {
			t.Errorf("Evaluate(%q) failed: %v", tt.source, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Evaluate(%q) wrong. expected=%v, got=%v", tt.source, tt.expected, got)
		}
	}
}
