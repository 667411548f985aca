package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateStringUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := GenerateString()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	const goroutines = 8
	const perG = 500

	var mu sync.Mutex
	seen := make(map[int64]struct{}, goroutines*perG)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perG)
			for i := 0; i < perG; i++ {
				local = append(local, Generate())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*perG)
}

func TestSetNodeIDOutOfRange(t *testing.T) {
	SetNodeID(4096)
	assert.Equal(t, int64(1), defaultGen.nodeID)
	SetNodeID(-1)
	assert.Equal(t, int64(1), defaultGen.nodeID)
	SetNodeID(7)
	assert.Equal(t, int64(7), defaultGen.nodeID)
	SetNodeID(1)
}
