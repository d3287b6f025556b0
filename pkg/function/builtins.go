package function

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"blockexpr/pkg/megabuf"
	"blockexpr/pkg/noise"
)

// Builtins returns the shared registry of built-in functions.
var Builtins = sync.OnceValue(func() *Registry {
	return builtinBuilder().MustBuild()
})

func builtinBuilder() *Builder {
	b := NewBuilder()

	for name, fn := range map[string]func(float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sinh":  math.Sinh,
		"cosh":  math.Cosh,
		"tanh":  math.Tanh,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"rint":  math.RoundToEven,
		"exp":   math.Exp,
		"log":   math.Log,
		"ln":    math.Log,
		"log10": math.Log10,
		"round": func(x float64) float64 { return math.Floor(x + 0.5) },
	} {
		b.Add(unary(name, fn))
	}

	b.Add(Overload{Name: "atan2", Params: values(2), Pure: true, Fn: func(c *Call) (float64, error) {
		return math.Atan2(c.Value(0), c.Value(1)), nil
	}})

	for name, pick := range map[string]func(a, b float64) float64{"min": math.Min, "max": math.Max} {
		b.Add(Overload{Name: name, Params: values(2), Pure: true, Fn: func(c *Call) (float64, error) {
			return pick(c.Value(0), c.Value(1)), nil
		}})
		b.Add(Overload{Name: name, Params: values(3), Variadic: true, Pure: true, Fn: func(c *Call) (float64, error) {
			v := c.Value(0)
			for i := 1; i < c.Len(); i++ {
				v = pick(v, c.Value(i))
			}
			return v, nil
		}})
	}

	b.Add(Overload{Name: "rotate", Params: []ParamKind{Variable, Variable, Value}, Fn: rotate})
	b.Add(Overload{Name: "swap", Params: []ParamKind{Variable, Variable}, Fn: swap})

	b.Add(Overload{Name: "random", Fn: func(*Call) (float64, error) {
		return rand.Float64(), nil
	}})
	b.Add(Overload{Name: "randint", Params: values(1), Fn: randint})

	b.Add(Overload{Name: "perlin", Params: values(7), Fn: perlin})
	b.Add(Overload{Name: "voronoi", Params: values(5), Fn: voronoi})
	b.Add(Overload{Name: "ridgedmulti", Params: values(6), Fn: ridgedMulti})

	b.Add(Overload{Name: "megabuf", Params: values(1), Fn: bufferGet(privateBuffer)})
	b.Add(Overload{Name: "megabuf", Params: values(2), Fn: bufferSet(privateBuffer)})
	b.Add(Overload{Name: "gmegabuf", Params: values(1), Fn: bufferGet(globalBuffer)})
	b.Add(Overload{Name: "gmegabuf", Params: values(2), Fn: bufferSet(globalBuffer)})
	b.Add(Overload{Name: "closest", Params: values(6), Fn: closest(privateBuffer)})
	b.Add(Overload{Name: "gclosest", Params: values(6), Fn: closest(globalBuffer)})

	queryParams := []ParamKind{Value, Value, Value, Slot, Slot}
	b.Add(Overload{Name: "query", Params: queryParams, Fn: query(Environment.BlockType, Environment.BlockData)})
	b.Add(Overload{Name: "queryAbs", Params: queryParams, Fn: query(Environment.BlockTypeAbs, Environment.BlockDataAbs)})
	b.Add(Overload{Name: "queryRel", Params: queryParams, Fn: query(Environment.BlockTypeRel, Environment.BlockDataRel)})

	return b
}

func values(n int) []ParamKind {
	return make([]ParamKind, n)
}

func unary(name string, fn func(float64) float64) Overload {
	return Overload{Name: name, Params: values(1), Pure: true, Fn: func(c *Call) (float64, error) {
		return fn(c.Value(0)), nil
	}}
}

// Int truncates v toward zero, saturating at the int64 range. NaN is 0.
func Int(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

func rotate(c *Call) (float64, error) {
	x, y := c.Slot(0), c.Slot(1)
	sin, cos := math.Sincos(c.Value(2))
	xv, yv := x.Value(), y.Value()
	if err := x.SetValue(xv*cos - yv*sin); err != nil {
		return 0, err
	}
	if err := y.SetValue(xv*sin + yv*cos); err != nil {
		return 0, err
	}
	return 0, nil
}

func swap(c *Call) (float64, error) {
	x, y := c.Slot(0), c.Slot(1)
	xv, yv := x.Value(), y.Value()
	if err := x.SetValue(yv); err != nil {
		return 0, err
	}
	if err := y.SetValue(xv); err != nil {
		return 0, err
	}
	return 0, nil
}

func randint(c *Call) (float64, error) {
	bound := Int(math.Floor(c.Value(0)))
	if bound <= 0 {
		return 0, fmt.Errorf("randint bound must be positive, got %g", c.Value(0))
	}
	return float64(rand.Int64N(bound)), nil
}

func perlin(c *Call) (float64, error) {
	p := noise.GetPerlin()
	defer noise.PutPerlin(p)

	p.Seed = int32(Int(c.Value(0)))
	p.Frequency = c.Value(4)
	p.Octaves = noise.ClampOctaves(int(Int(c.Value(5))))
	p.Persistence = c.Value(6)
	return p.Noise(c.Value(1), c.Value(2), c.Value(3)), nil
}

func voronoi(c *Call) (float64, error) {
	v := noise.GetVoronoi()
	defer noise.PutVoronoi(v)

	v.Seed = int32(Int(c.Value(0)))
	v.Frequency = c.Value(4)
	return v.Noise(c.Value(1), c.Value(2), c.Value(3)), nil
}

func ridgedMulti(c *Call) (float64, error) {
	r := noise.GetRidgedMulti()
	defer noise.PutRidgedMulti(r)

	r.Seed = int32(Int(c.Value(0)))
	r.Frequency = c.Value(4)
	r.Octaves = noise.ClampOctaves(int(Int(c.Value(5))))
	return r.Noise(c.Value(1), c.Value(2), c.Value(3)), nil
}

type bufferOf func(c *Call) (megabuf.Store, error)

func privateBuffer(c *Call) (megabuf.Store, error) {
	h, err := c.host()
	if err != nil {
		return nil, err
	}
	return h.Megabuf(), nil
}

func globalBuffer(*Call) (megabuf.Store, error) {
	return megabuf.Global(), nil
}

func bufferGet(buf bufferOf) Func {
	return func(c *Call) (float64, error) {
		store, err := buf(c)
		if err != nil {
			return 0, err
		}
		return store.Get(megabuf.Index(c.Value(0))), nil
	}
}

func bufferSet(buf bufferOf) Func {
	return func(c *Call) (float64, error) {
		store, err := buf(c)
		if err != nil {
			return 0, err
		}
		store.Set(megabuf.Index(c.Value(0)), c.Value(1))
		return c.Value(1), nil
	}
}

func closest(buf bufferOf) Func {
	return func(c *Call) (float64, error) {
		store, err := buf(c)
		if err != nil {
			return 0, err
		}
		return megabuf.Closest(c.callContext(), store, c.Value(0), c.Value(1), c.Value(2),
			megabuf.Index(c.Value(3)), megabuf.Index(c.Value(4)), megabuf.Index(c.Value(5)))
	}
}

// query reads a block type and data value, writes them into whichever of the
// two slots are Variables and returns 1 if both match. A slot value of -1
// matches anything.
func query(blockType, blockData func(Environment, float64, float64, float64) float64) Func {
	return func(c *Call) (float64, error) {
		h, err := c.host()
		if err != nil {
			return 0, err
		}
		env := h.Environment()
		if env == nil {
			return 0, ErrNoEnvironment
		}

		x, y, z := c.Value(0), c.Value(1), c.Value(2)
		typeID := blockType(env, x, y, z)
		data := blockData(env, x, y, z)

		typeSlot, dataSlot := c.Slot(3), c.Slot(4)
		ret := 0.0
		if (typeSlot.Value() == -1 || typeSlot.Value() == typeID) &&
			(dataSlot.Value() == -1 || dataSlot.Value() == data) {
			ret = 1
		}
		if typeSlot.IsVariable() {
			if err := typeSlot.SetValue(typeID); err != nil {
				return 0, err
			}
		}
		if dataSlot.IsVariable() {
			if err := dataSlot.SetValue(data); err != nil {
				return 0, err
			}
		}
		return ret, nil
	}
}
