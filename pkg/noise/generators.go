package noise

import "math"

// Perlin is fractal gradient noise: octaves of gradient noise, each at
// Lacunarity times the frequency and Persistence times the amplitude of the
// previous one.
type Perlin struct {
	Seed        int32
	Frequency   float64
	Lacunarity  float64
	Persistence float64
	Octaves     int
}

func NewPerlin() *Perlin {
	p := &Perlin{}
	p.Reset()
	return p
}

func (p *Perlin) Reset() {
	*p = Perlin{
		Frequency:   DefaultFrequency,
		Lacunarity:  DefaultLacunarity,
		Persistence: DefaultPersistence,
		Octaves:     DefaultOctaves,
	}
}

func (p *Perlin) Noise(x, y, z float64) float64 {
	value := 0.0
	amplitude := 1.0

	x *= p.Frequency
	y *= p.Frequency
	z *= p.Frequency

	for octave := 0; octave < ClampOctaves(p.Octaves); octave++ {
		value += gradientCoherent(x, y, z, p.Seed+int32(octave)) * amplitude

		x *= p.Lacunarity
		y *= p.Lacunarity
		z *= p.Lacunarity
		amplitude *= p.Persistence
	}

	return value
}

// Voronoi assigns every point the value of the nearest cell seed point.
type Voronoi struct {
	Seed         int32
	Frequency    float64
	Displacement float64
}

func NewVoronoi() *Voronoi {
	v := &Voronoi{}
	v.Reset()
	return v
}

func (v *Voronoi) Reset() {
	*v = Voronoi{Frequency: DefaultFrequency, Displacement: 1}
}

func (v *Voronoi) Noise(x, y, z float64) float64 {
	x *= v.Frequency
	y *= v.Frequency
	z *= v.Frequency

	xi, yi, zi := floorInt(x), floorInt(y), floorInt(z)

	minDist := math.MaxFloat64
	var cx, cy, cz float64
	for zc := zi - 2; zc <= zi+2; zc++ {
		for yc := yi - 2; yc <= yi+2; yc++ {
			for xc := xi - 2; xc <= xi+2; xc++ {
				px := float64(xc) + valueNoise(xc, yc, zc, v.Seed)
				py := float64(yc) + valueNoise(xc, yc, zc, v.Seed+1)
				pz := float64(zc) + valueNoise(xc, yc, zc, v.Seed+2)
				dx, dy, dz := px-x, py-y, pz-z
				if d := dx*dx + dy*dy + dz*dz; d < minDist {
					minDist = d
					cx, cy, cz = px, py, pz
				}
			}
		}
	}

	return v.Displacement * valueNoise(floorInt(cx), floorInt(cy), floorInt(cz), 0)
}

// RidgedMulti is ridged multifractal noise: each octave folds the signal
// around zero and is weighted by the previous octave.
type RidgedMulti struct {
	Seed       int32
	Frequency  float64
	Lacunarity float64
	Octaves    int

	weights [MaxOctaves]float64
}

func NewRidgedMulti() *RidgedMulti {
	r := &RidgedMulti{}
	r.Reset()
	return r
}

func (r *RidgedMulti) Reset() {
	r.Seed = 0
	r.Frequency = DefaultFrequency
	r.Octaves = DefaultOctaves
	r.SetLacunarity(DefaultLacunarity)
}

// SetLacunarity changes the lacunarity and recomputes the octave weights.
func (r *RidgedMulti) SetLacunarity(l float64) {
	r.Lacunarity = l
	freq := 1.0
	for i := range r.weights {
		r.weights[i] = math.Pow(freq, -1)
		freq *= l
	}
}

func (r *RidgedMulti) Noise(x, y, z float64) float64 {
	const (
		offset = 1.0
		gain   = 2.0
	)

	x *= r.Frequency
	y *= r.Frequency
	z *= r.Frequency

	value := 0.0
	weight := 1.0
	for octave := 0; octave < ClampOctaves(r.Octaves); octave++ {
		signal := offset - math.Abs(gradientCoherent(x, y, z, (r.Seed+int32(octave))&0x7fffffff))
		signal *= signal
		signal *= weight

		weight = math.Min(math.Max(signal*gain, 0), 1)

		value += signal * r.weights[octave]

		x *= r.Lacunarity
		y *= r.Lacunarity
		z *= r.Lacunarity
	}

	return value*1.25 - 1.0
}
