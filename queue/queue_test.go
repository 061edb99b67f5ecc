package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeueEmpty(t *testing.T) {
	q := New()
	_, ok := q.DequeueOne()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	const n = 25

	for i := 0; i < n; i++ {
		q.Enqueue(Job{ID: fmt.Sprint(i), Payload: []byte{byte(i)}})
	}
	require.Equal(t, n, q.Len())

	for i := 0; i < n; i++ {
		j, ok := q.DequeueOne()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), j.ID)
		assert.Equal(t, []byte{byte(i)}, j.Payload)
	}

	_, ok := q.DequeueOne()
	assert.False(t, ok)
}

func TestDuplicateIDsAccepted(t *testing.T) {
	q := New()
	q.Enqueue(Job{ID: "7"})
	q.Enqueue(Job{ID: "7"})
	assert.Equal(t, 2, q.Len())
}

func TestConcurrentProducers(t *testing.T) {
	q := New()
	const producers, each = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(Job{ID: "x"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*each, q.Len())
}
