package asynchook

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/unkn0wn-root/listcount"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countHooks struct {
	listcount.NopHooks
	mu      sync.Mutex
	missing int
	block   chan struct{}
}

func (c *countHooks) CountMissing(string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.missing++
	c.mu.Unlock()
}

func TestDeliversAndDrainsOnClose(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.CountMissing("id")
	}
	h.Close()
	h.Close()

	assert.Equal(t, 10, inner.missing)
	assert.Zero(t, h.Dropped())

	h.CountMissing("late")
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestDropsWhenFull(t *testing.T) {
	inner := &countHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one in the worker (blocked), one queued, the rest dropped
	for i := 0; i < 5; i++ {
		h.CountMissing("id")
	}
	close(inner.block)
	h.Close()

	assert.Equal(t, uint64(5), uint64(inner.missing)+h.Dropped())
	assert.GreaterOrEqual(t, h.Dropped(), uint64(3))
}
