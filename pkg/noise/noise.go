// Package noise provides the coherent noise generators used by the
// perlin, voronoi and ridgedmulti functions.
package noise

import "math"

const (
	xNoiseGen    = 1619
	yNoiseGen    = 31337
	zNoiseGen    = 6971
	seedNoiseGen = 1013
	shiftNoise   = 8

	// MaxOctaves bounds the octave count of the fractal generators.
	MaxOctaves = 30

	DefaultFrequency   = 1.0
	DefaultLacunarity  = 2.0
	DefaultPersistence = 0.5
	DefaultOctaves     = 6
)

// Generator produces a value for a point in space.
type Generator interface {
	Noise(x, y, z float64) float64
}

// ClampOctaves limits an octave count to [1, MaxOctaves].
func ClampOctaves(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxOctaves {
		return MaxOctaves
	}
	return n
}

var gradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

func sCurve5(a float64) float64 {
	return a * a * a * (a*(a*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func floorInt(v float64) int32 {
	return int32(math.Floor(v))
}

func gradientNoise(fx, fy, fz float64, ix, iy, iz, seed int32) float64 {
	h := uint32(xNoiseGen*ix + yNoiseGen*iy + zNoiseGen*iz + seedNoiseGen*seed)
	h ^= h >> shiftNoise
	g := gradients[(h&0xff)%12]

	return (g[0]*(fx-float64(ix)) + g[1]*(fy-float64(iy)) + g[2]*(fz-float64(iz))) * 0.5
}

// gradientCoherent is smooth gradient noise in roughly [-1, 1].
func gradientCoherent(x, y, z float64, seed int32) float64 {
	x0, y0, z0 := floorInt(x), floorInt(y), floorInt(z)
	x1, y1, z1 := x0+1, y0+1, z0+1

	xs := sCurve5(x - float64(x0))
	ys := sCurve5(y - float64(y0))
	zs := sCurve5(z - float64(z0))

	n0 := gradientNoise(x, y, z, x0, y0, z0, seed)
	n1 := gradientNoise(x, y, z, x1, y0, z0, seed)
	ix0 := lerp(n0, n1, xs)
	n0 = gradientNoise(x, y, z, x0, y1, z0, seed)
	n1 = gradientNoise(x, y, z, x1, y1, z0, seed)
	ix1 := lerp(n0, n1, xs)
	iy0 := lerp(ix0, ix1, ys)

	n0 = gradientNoise(x, y, z, x0, y0, z1, seed)
	n1 = gradientNoise(x, y, z, x1, y0, z1, seed)
	ix0 = lerp(n0, n1, xs)
	n0 = gradientNoise(x, y, z, x0, y1, z1, seed)
	n1 = gradientNoise(x, y, z, x1, y1, z1, seed)
	ix1 = lerp(n0, n1, xs)
	iy1 := lerp(ix0, ix1, ys)

	return lerp(iy0, iy1, zs)
}

func intValueNoise(x, y, z, seed int32) int32 {
	n := (xNoiseGen*x + yNoiseGen*y + zNoiseGen*z + seedNoiseGen*seed) & 0x7fffffff
	n = (n >> 13) ^ n
	return (n*(n*n*60493+19990303) + 1376312589) & 0x7fffffff
}

// valueNoise maps a lattice point to [-1, 1].
func valueNoise(x, y, z, seed int32) float64 {
	return 1.0 - float64(intValueNoise(x, y, z, seed))/1073741824.0
}
