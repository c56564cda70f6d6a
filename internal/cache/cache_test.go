package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_FreshEntrySkipsFetch(t *testing.T) {
	c := New[int]()
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "una entrada fresca nunca dispara fetch")
}

func TestCache_StaleEntryRefetches(t *testing.T) {
	c := New[int]()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Justo en el límite del TTL la entrada ya cuenta como caducada
	now = now.Add(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok, "una lectura nunca devuelve un valor con edad >= ttl")

	v, err = c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestCache_SingleFlight(t *testing.T) {
	c := New[string]()
	var fetches atomic.Int64
	release := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		fetches.Add(1)
		<-release
		return "value", nil
	}

	// 50 lectores concurrentes sobre una key ausente → exactamente 1 fetch
	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Dar tiempo a que todos los lectores se encolen en el grupo
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load(), "50 lectores concurrentes → 1 fetch upstream")
	for _, v := range results {
		assert.Equal(t, "value", v)
	}
}

func TestCache_FailedFetchNotCachedAndPropagates(t *testing.T) {
	c := New[int]()
	boom := errors.New("boom")
	calls := 0

	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len(), "un fetch fallido no se cachea")

	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestCache_Clear(t *testing.T) {
	c := New[int]()
	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("k")
	assert.False(t, ok)
}
