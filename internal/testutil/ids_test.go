package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedIDGenerator("test-resolution-123")

	assert.Equal(t, "test-resolution-123", gen.Generate())
	assert.Equal(t, "test-resolution-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyTokenDefault(t *testing.T) {
	gen := NewFixedIDGenerator("")

	assert.Equal(t, "test-resolution-default", gen.Generate())
}

func TestSequenceGenerator_Order(t *testing.T) {
	gen := NewSequenceGenerator("res")

	assert.Equal(t, "res-1", gen.Generate())
	assert.Equal(t, "res-2", gen.Generate())
	assert.Equal(t, 2, gen.Count())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("res")

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, dup := seen.LoadOrStore(gen.Generate(), true)
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, gen.Count())
}
