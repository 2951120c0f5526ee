package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrdering(t *testing.T) {
	q := New()

	for i := 0; i < 5; i++ {
		q.Push(Frame{LPF: []int16{int16(i)}})
	}

	require.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		f, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, int16(i), f.LPF[0])
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestConcurrentPushPreservesAllFrames(t *testing.T) {
	q := New()
	const producers = 4
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Frame{LPF: []int16{int16(p)}})
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
