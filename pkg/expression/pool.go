package expression

import (
	"sync"

	"blockexpr/pkg/megabuf"
)

// Pool hands out independent copies of one compiled expression so that
// several goroutines can evaluate it at once.
type Pool struct {
	proto *Expression
	pool  sync.Pool
}

func NewPool(proto *Expression) *Pool {
	p := &Pool{proto: proto}
	p.pool.New = func() any { return proto.Fresh() }
	return p
}

// Get returns an expression no other caller holds until it is Put back.
func (p *Pool) Get() *Expression {
	return p.pool.Get().(*Expression)
}

// Put resets e and returns it to the pool.
func (p *Pool) Put(e *Expression) {
	e.Reset()
	p.pool.Put(e)
}

// Reset drops every name bound by earlier evaluations and the private
// megabuf, leaving the expression as freshly compiled.
func (e *Expression) Reset() {
	e.bind(e.compiled.Clone())
	if e.buf.Pages() > 0 {
		e.buf = megabuf.New()
	}
}
