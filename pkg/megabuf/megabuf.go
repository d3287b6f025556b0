// Package megabuf implements the sparse float64 buffers behind the
// megabuf and gmegabuf functions.
package megabuf

import (
	"context"
	"math"
	"sync"
)

const pageSize = 1024

type page [pageSize]float64

// Store is a sparse, unbounded array of float64. Unwritten entries read 0.
type Store interface {
	Get(index int) float64
	Set(index int, value float64)
}

func split(index int) (int, int) {
	p := index / pageSize
	off := index % pageSize
	if off < 0 {
		p--
		off += pageSize
	}
	return p, off
}

// Buffer is the private, unsynchronized buffer of one expression.
type Buffer struct {
	pages map[int]*page
}

func New() *Buffer {
	return &Buffer{pages: make(map[int]*page)}
}

func (b *Buffer) Get(index int) float64 {
	p, off := split(index)
	if pg, ok := b.pages[p]; ok {
		return pg[off]
	}
	return 0
}

func (b *Buffer) Set(index int, value float64) {
	p, off := split(index)
	pg, ok := b.pages[p]
	if !ok {
		pg = new(page)
		b.pages[p] = pg
	}
	pg[off] = value
}

// Pages is the number of allocated pages.
func (b *Buffer) Pages() int { return len(b.pages) }

type sharedPage struct {
	mu   sync.Mutex
	data page
}

// Shared is a buffer safe for use by concurrent evaluations. The page map
// has its own lock and every page is locked on access.
type Shared struct {
	mu    sync.RWMutex
	pages map[int]*sharedPage
}

func NewShared() *Shared {
	return &Shared{pages: make(map[int]*sharedPage)}
}

func (s *Shared) lookup(p int, create bool) *sharedPage {
	s.mu.RLock()
	pg, ok := s.pages[p]
	s.mu.RUnlock()
	if ok || !create {
		return pg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pg, ok = s.pages[p]; !ok {
		pg = &sharedPage{}
		s.pages[p] = pg
	}
	return pg
}

func (s *Shared) Get(index int) float64 {
	p, off := split(index)
	pg := s.lookup(p, false)
	if pg == nil {
		return 0
	}
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.data[off]
}

func (s *Shared) Set(index int, value float64) {
	p, off := split(index)
	pg := s.lookup(p, true)
	pg.mu.Lock()
	pg.data[off] = value
	pg.mu.Unlock()
}

func (s *Shared) Pages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Global is the process-wide buffer, created on first use.
var Global = sync.OnceValue(NewShared)

// Index converts a buffer index argument to an int, truncating toward zero
// and saturating at the int range. NaN becomes 0.
func Index(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}

// Closest scans count (x, y, z) triples starting at index, stepping by
// stride, and returns the index of the triple nearest to (x, y, z). It
// returns -1 when count <= 0. ctx is checked once per page of triples.
func Closest(ctx context.Context, store Store, x, y, z float64, index, count, stride int) (float64, error) {
	closest := -1
	minDistance := math.MaxFloat64
	for i := 0; i < count; i++ {
		if i%pageSize == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		dx := store.Get(index) - x
		dy := store.Get(index+1) - y
		dz := store.Get(index+2) - z
		if d := dx*dx + dy*dy + dz*dz; d < minDistance {
			minDistance = d
			closest = index
		}
		index += stride
	}
	return float64(closest), nil
}
