package noise

import "sync"

// Generators are reconfigured on every call, so one instance per goroutine
// is enough. The pools hand out reset instances.
var (
	perlinPool      = sync.Pool{New: func() any { return NewPerlin() }}
	voronoiPool     = sync.Pool{New: func() any { return NewVoronoi() }}
	ridgedMultiPool = sync.Pool{New: func() any { return NewRidgedMulti() }}
)

func GetPerlin() *Perlin {
	return perlinPool.Get().(*Perlin)
}

func PutPerlin(p *Perlin) {
	p.Reset()
	perlinPool.Put(p)
}

func GetVoronoi() *Voronoi {
	return voronoiPool.Get().(*Voronoi)
}

func PutVoronoi(v *Voronoi) {
	v.Reset()
	voronoiPool.Put(v)
}

func GetRidgedMulti() *RidgedMulti {
	return ridgedMultiPool.Get().(*RidgedMulti)
}

func PutRidgedMulti(r *RidgedMulti) {
	r.Reset()
	ridgedMultiPool.Put(r)
}
