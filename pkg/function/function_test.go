package function

import (
	"context"
	"errors"
	"math"
	"testing"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/megabuf"
	"blockexpr/pkg/slot"
)

func num(v float64) ast.Expression { return &ast.NumberLiteral{Value: v} }

func ident(name string) ast.Expression { return &ast.Identifier{Value: name} }

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		args     []ast.Expression
		arity    string
		expected string
		sentinel error
	}{
		{"min", []ast.Expression{num(1), num(2)}, "2", "", nil},
		{"min", []ast.Expression{num(1), num(2), num(3)}, "3+", "", nil},
		{"max", []ast.Expression{num(1), num(2), num(3), num(4), num(5)}, "3+", "", nil},
		{"min", []ast.Expression{num(1)}, "", "function 'min' accepts 2/3+ arguments, got 1", ErrArity},
		{"atan2", []ast.Expression{num(1)}, "", "function 'atan2' accepts 2 arguments, got 1", ErrArity},
		{"nope", nil, "", "unknown function 'nope'", ErrUnknownFunction},
		{"swap", []ast.Expression{ident("a"), ident("b")}, "2", "", nil},
		{"swap", []ast.Expression{num(1), ident("b")}, "", "function 'swap' requires a variable in parameter 1", ErrNeedsVariable},
		{"query", []ast.Expression{num(0), num(0), num(0), num(1), ident("d")}, "5", "", nil},
		{"random", nil, "0", "", nil},
		{"megabuf", []ast.Expression{num(1), num(2), num(3)}, "", "function 'megabuf' accepts 1/2 arguments, got 3", ErrArity},
	}

	r := Builtins()
	for _, tt := range tests {
		o, err := r.Resolve(tt.name, tt.args)
		if tt.expected == "" {
			if err != nil {
				t.Errorf("%s/%d: unexpected error %v", tt.name, len(tt.args), err)
				continue
			}
			if o.Arity() != tt.arity {
				t.Errorf("%s/%d: resolved arity expected=%s, got=%s", tt.name, len(tt.args), tt.arity, o.Arity())
			}
			continue
		}
		if err == nil {
			t.Errorf("%s/%d: expected error %q, got none", tt.name, len(tt.args), tt.expected)
			continue
		}
		if err.Error() != tt.expected {
			t.Errorf("%s/%d: expected=%q, got=%q", tt.name, len(tt.args), tt.expected, err.Error())
		}
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("%s/%d: error does not wrap %v", tt.name, len(tt.args), tt.sentinel)
		}
	}
}

func TestBuilderRejectsInvalidOverloads(t *testing.T) {
	fn := func(*Call) (float64, error) { return 0, nil }
	tests := []struct {
		desc      string
		overloads []Overload
	}{
		{"empty name", []Overload{{Fn: fn}}},
		{"nil fn", []Overload{{Name: "f"}}},
		{"variadic without params", []Overload{{Name: "f", Variadic: true, Fn: fn}}},
		{"duplicate arity", []Overload{
			{Name: "f", Params: values(1), Fn: fn},
			{Name: "f", Params: []ParamKind{Variable}, Fn: fn},
		}},
	}

	for _, tt := range tests {
		b := NewBuilder()
		for _, o := range tt.overloads {
			b.Add(o)
		}
		if _, err := b.Build(); !errors.Is(err, ErrInvalidOverload) {
			t.Errorf("%s: expected ErrInvalidOverload, got=%v", tt.desc, err)
		}
	}
}

func TestExtend(t *testing.T) {
	r, err := Extend(Builtins()).Add(Overload{Name: "twice", Params: values(1), Pure: true,
		Fn: func(c *Call) (float64, error) { return 2 * c.Value(0), nil }}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !r.Has("twice") || !r.Has("sin") {
		t.Fatalf("extended registry is missing functions. got=%v", r.Names())
	}
	if Builtins().Has("twice") {
		t.Fatalf("extending modified the built-in registry")
	}
	if len(r.Lookup("min")) != 2 {
		t.Errorf("min overloads lost. got=%d", len(r.Lookup("min")))
	}
}

func call(t *testing.T, ctx context.Context, name string, args ...Arg) (float64, error) {
	t.Helper()
	for _, o := range Builtins().Lookup(name) {
		if o.Accepts(len(args)) {
			return o.Fn(&Call{Ctx: ctx, Name: name, Args: args})
		}
	}
	t.Fatalf("no overload of %s takes %d arguments", name, len(args))
	return 0, nil
}

func vals(vs ...float64) []Arg {
	args := make([]Arg, len(vs))
	for i, v := range vs {
		args[i] = Arg{Value: v}
	}
	return args
}

func TestMathBuiltins(t *testing.T) {
	tests := []struct {
		name     string
		args     []float64
		expected float64
	}{
		{"round", []float64{2.5}, 3},
		{"round", []float64{-2.5}, -2},
		{"rint", []float64{2.5}, 2},
		{"ln", []float64{math.E}, 1},
		{"log10", []float64{1000}, 3},
		{"cbrt", []float64{27}, 3},
		{"atan2", []float64{0, 1}, 0},
		{"min", []float64{4, 2}, 2},
		{"min", []float64{4, 2, -1, 3}, -1},
		{"max", []float64{4, 9, 2}, 9},
	}
	for _, tt := range tests {
		got, err := call(t, context.Background(), tt.name, vals(tt.args...)...)
		if err != nil {
			t.Fatalf("%s%v: %v", tt.name, tt.args, err)
		}
		if got != tt.expected {
			t.Errorf("%s%v: expected=%v, got=%v", tt.name, tt.args, tt.expected, got)
		}
	}

	for _, o := range Builtins().Lookup("sqrt") {
		if !o.Pure {
			t.Errorf("sqrt is not pure")
		}
	}
	for _, o := range Builtins().Lookup("random") {
		if o.Pure {
			t.Errorf("random is pure")
		}
	}
}

func TestRotateAndSwap(t *testing.T) {
	x, y := slot.NewVariable("x"), slot.NewVariable("y")
	_ = x.SetValue(1)
	_ = y.SetValue(0)

	if _, err := call(t, context.Background(), "rotate", Arg{Slot: x}, Arg{Slot: y}, Arg{Value: math.Pi / 2}); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if math.Abs(x.Value()) > 1e-12 || math.Abs(y.Value()-1) > 1e-12 {
		t.Errorf("rotate wrong. got x=%v y=%v", x.Value(), y.Value())
	}

	_ = x.SetValue(3)
	_ = y.SetValue(4)
	if _, err := call(t, context.Background(), "swap", Arg{Slot: x}, Arg{Slot: y}); err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if x.Value() != 4 || y.Value() != 3 {
		t.Errorf("swap wrong. got x=%v y=%v", x.Value(), y.Value())
	}
}

func TestRandom(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, _ := call(t, context.Background(), "random")
		if v < 0 || v >= 1 {
			t.Fatalf("random out of range: %v", v)
		}
		n, err := call(t, context.Background(), "randint", Arg{Value: 3.7})
		if err != nil || n < 0 || n > 2 || n != math.Floor(n) {
			t.Fatalf("randint(3.7) wrong: %v, %v", n, err)
		}
	}
	if _, err := call(t, context.Background(), "randint", Arg{Value: 0.9}); err == nil {
		t.Errorf("randint(0.9) did not fail")
	}
}

func TestNoiseBuiltins(t *testing.T) {
	a, _ := call(t, context.Background(), "perlin", vals(3, 0.5, 1.25, -2.5, 0.8, 4, 0.5)...)
	b, _ := call(t, context.Background(), "perlin", vals(3, 0.5, 1.25, -2.5, 0.8, 4, 0.5)...)
	if a != b {
		t.Errorf("perlin not deterministic: %v != %v", a, b)
	}
	if v, _ := call(t, context.Background(), "perlin", vals(3, 1, 2, 3, 1, 99, 0.5)...); v != 0 {
		t.Errorf("perlin on lattice expected 0, got=%v", v)
	}
	if v, _ := call(t, context.Background(), "voronoi", vals(1, 0.3, 0.3, 0.3, 1)...); v < -1 || v > 1 {
		t.Errorf("voronoi out of range: %v", v)
	}
	if v, _ := call(t, context.Background(), "ridgedmulti", vals(1, 0.3, 0.3, 0.3, 1, 0)...); v < -1 || v > 1.5 {
		t.Errorf("ridgedmulti out of range: %v", v)
	}
}

type testHost struct {
	buf *megabuf.Buffer
	env Environment
}

func (h *testHost) Megabuf() *megabuf.Buffer { return h.buf }
func (h *testHost) Environment() Environment { return h.env }

// grid answers every query with type 1 data 2, shifted by 10 for the
// relative variant.
type grid struct{}

func (grid) BlockType(x, y, z float64) float64    { return 1 }
func (grid) BlockData(x, y, z float64) float64    { return 2 }
func (grid) BlockTypeAbs(x, y, z float64) float64 { return 1 }
func (grid) BlockDataAbs(x, y, z float64) float64 { return 2 }
func (grid) BlockTypeRel(x, y, z float64) float64 { return 11 }
func (grid) BlockDataRel(x, y, z float64) float64 { return 12 }

func TestMegabufBuiltins(t *testing.T) {
	if _, err := call(t, context.Background(), "megabuf", Arg{Value: 1}); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got=%v", err)
	}

	h := &testHost{buf: megabuf.New()}
	ctx := WithHost(context.Background(), h)
	if v, _ := call(t, ctx, "megabuf", vals(5.9, 7)...); v != 7 {
		t.Errorf("megabuf write returned %v", v)
	}
	if v, _ := call(t, ctx, "megabuf", Arg{Value: 5}); v != 7 {
		t.Errorf("megabuf read returned %v", v)
	}
	if h.buf.Get(5) != 7 {
		t.Errorf("private buffer not written")
	}

	// gmegabuf does not need an expression.
	if v, _ := call(t, context.Background(), "gmegabuf", vals(-3000, 8)...); v != 8 {
		t.Errorf("gmegabuf write returned %v", v)
	}
	if megabuf.Global().Get(-3000) != 8 {
		t.Errorf("global buffer not written")
	}

	for i, p := range []float64{0, 0, 0, 5, 5, 5} {
		h.buf.Set(i, p)
	}
	if v, _ := call(t, ctx, "closest", vals(4, 4, 4, 0, 2, 3)...); v != 3 {
		t.Errorf("closest expected 3, got=%v", v)
	}
	if v, _ := call(t, ctx, "closest", vals(4, 4, 4, 0, 0, 3)...); v != -1 {
		t.Errorf("closest with no entries expected -1, got=%v", v)
	}
}

func TestQuery(t *testing.T) {
	ctx := WithHost(context.Background(), &testHost{buf: megabuf.New()})
	if _, err := call(t, ctx, "query", vals(0, 0, 0, 1, 2)...); !errors.Is(err, ErrNoEnvironment) {
		t.Fatalf("expected ErrNoEnvironment, got=%v", err)
	}

	ctx = WithHost(context.Background(), &testHost{buf: megabuf.New(), env: grid{}})
	tests := []struct {
		name         string
		typeV, dataV float64
		typeVar      bool
		expected     float64
		expectedType float64
		expectedData float64
	}{
		{"query", 1, 2, false, 1, 1, 2},
		{"query", 1, 3, false, 0, 1, 2},
		{"query", -1, -1, true, 1, 1, 2},
		{"query", 5, 2, true, 0, 1, 2},
		{"queryAbs", 1, -1, false, 1, 1, 2},
		{"queryRel", 11, 12, true, 1, 11, 12},
		{"queryRel", 1, 2, true, 0, 11, 12},
	}

	for i, tt := range tests {
		var typeSlot *slot.Slot
		if tt.typeVar {
			typeSlot = slot.NewVariable("t")
			_ = typeSlot.SetValue(tt.typeV)
		} else {
			typeSlot = slot.NewConstant(tt.typeV)
		}
		dataSlot := slot.NewVariable("d")
		_ = dataSlot.SetValue(tt.dataV)

		got, err := call(t, ctx, tt.name, Arg{Value: 0}, Arg{Value: 0}, Arg{Value: 0},
			Arg{Value: typeSlot.Value(), Slot: typeSlot}, Arg{Value: dataSlot.Value(), Slot: dataSlot})
		if err != nil {
			t.Fatalf("tests[%d]: %v", i, err)
		}
		if got != tt.expected {
			t.Errorf("tests[%d]: expected=%v, got=%v", i, tt.expected, got)
		}
		if tt.typeVar && typeSlot.Value() != tt.expectedType {
			t.Errorf("tests[%d]: type slot expected=%v, got=%v", i, tt.expectedType, typeSlot.Value())
		}
		if !tt.typeVar && typeSlot.Value() != tt.typeV {
			t.Errorf("tests[%d]: constant type slot changed to %v", i, typeSlot.Value())
		}
		if dataSlot.Value() != tt.expectedData {
			t.Errorf("tests[%d]: data slot expected=%v, got=%v", i, tt.expectedData, dataSlot.Value())
		}
	}
}
