package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 4

	var counter int64
	n := 1000
	seen := make([]int32, n)

	For(n, func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(n), counter)
	for i, s := range seen {
		assert.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, Sequential())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_SmallRangeRunsInline(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}

	// Below two chunks: append without locking must be safe.
	var order []int
	For(100, func(i int) {
		order = append(order, i)
	}, cfg)

	assert.Len(t, order, 100)
	assert.Equal(t, 99, order[99])
}

func TestFor_EmptyRange(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestFor_MoreWorkersThanItems(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 32, MinChunkSize: 1}

	var sum int64
	For(3, func(i int) {
		atomic.AddInt64(&sum, int64(i+1))
	}, cfg)

	assert.Equal(t, int64(6), sum)
}
