package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDUnique(t *testing.T) {
	const n = 10000
	seen := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		id := NextID()
		_, dup := seen[id]
		assert.False(t, dup, "重复ID: %d", id)
		seen[id] = struct{}{}
	}
}

func TestNextIDConcurrent(t *testing.T) {
	const workers = 8
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, NextID())
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerateOrderNo(t *testing.T) {
	a := GenerateOrderNo()
	b := GenerateOrderNo()

	assert.True(t, strings.HasPrefix(a, "DEP"))
	assert.Len(t, a, 3+14+8)
	assert.NotEqual(t, a, b)
}

func TestGenerateTransactionNo(t *testing.T) {
	no := GenerateTransactionNo()
	assert.True(t, strings.HasPrefix(no, "TXN"))
	assert.Len(t, no, 3+14+8)
}

func TestGenerateStoredName(t *testing.T) {
	a := GenerateStoredName(".glb")
	b := GenerateStoredName(".glb")

	assert.True(t, strings.HasSuffix(a, ".glb"))
	assert.NotEqual(t, a, b)

	// 无扩展名文件也能生成
	c := GenerateStoredName("")
	assert.NotEmpty(t, c)
	assert.NotContains(t, c, ".")
}
