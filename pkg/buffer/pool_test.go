package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolGetPut(t *testing.T) {
	p := NewPool(1024)

	b := p.Get()
	assert.Len(t, *b, 1024)

	*b = (*b)[:10]
	p.Put(b)

	again := p.Get()
	assert.Len(t, *again, 1024)
}

func TestPoolDropsSmallSlices(t *testing.T) {
	p := NewPool(1024)
	small := make([]byte, 16)
	assert.NotPanics(t, func() {
		p.Put(&small)
		p.Put(nil)
	})
}
