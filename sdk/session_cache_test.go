package sdk

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/roost/sdk/testdata"
)

func TestSessionCache(t *testing.T) {
	metrics := NewMetricsCollector()
	cache, err := newSessionCache(16, time.Minute, metrics)
	require.NoError(t, err)
	defer cache.close()

	var builds int32
	build := func() *UserService {
		atomic.AddInt32(&builds, 1)
		return &UserService{}
	}

	a := cache.getOrCreate("tok-a", build)
	assert.Same(t, a, cache.getOrCreate("tok-a", build))
	b := cache.getOrCreate("tok-b", build)
	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), builds)
	assert.Equal(t, 2, cache.size())

	cache.invalidate("tok-a")
	assert.NotSame(t, a, cache.getOrCreate("tok-a", build))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.SessionCacheHits)
	assert.Equal(t, int64(3), snap.SessionCacheMisses)
}

func TestSessionCache_ConcurrentCallersShareOneInstance(t *testing.T) {
	cache, err := newSessionCache(16, time.Minute, &NoopObserver{})
	require.NoError(t, err)
	defer cache.close()

	var builds int32
	results := make([]*UserService, 32)
	run := testdata.NewConcurrent(t)
	run.Run(len(results), func(i int) error {
		results[i] = cache.getOrCreate("tok", func() *UserService {
			atomic.AddInt32(&builds, 1)
			return &UserService{}
		})
		return nil
	})
	run.Wait()

	assert.Equal(t, int32(1), builds)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestSessionCache_TTL(t *testing.T) {
	cache, err := newSessionCache(16, 50*time.Millisecond, &NoopObserver{})
	require.NoError(t, err)
	defer cache.close()

	first := cache.getOrCreate("tok", func() *UserService { return &UserService{} })
	testdata.AssertEventually(t, func() bool {
		return cache.getOrCreate("tok", func() *UserService { return &UserService{} }) != first
	}, 3*time.Second, 20*time.Millisecond)
}
