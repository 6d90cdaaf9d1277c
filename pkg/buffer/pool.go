package buffer

import "sync"

// DefaultSize is the copy buffer used for media downloads.
const DefaultSize = 512 * 1024

// Pool recycles fixed-size byte slices.
type Pool struct {
	pool sync.Pool
	size int
}

func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put returns b to the pool. Slices smaller than the pool size are dropped.
func (p *Pool) Put(b *[]byte) {
	if b == nil || cap(*b) < p.size {
		return
	}
	*b = (*b)[:p.size]
	p.pool.Put(b)
}

var Default = NewPool(DefaultSize)

func Get() *[]byte {
	return Default.Get()
}

func Put(b *[]byte) {
	Default.Put(b)
}
