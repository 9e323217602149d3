package calc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joaolima7/geosegbar/internal/expr"
)

type recordingObserver struct {
	mu      sync.Mutex
	lookups map[string]int
}

func (o *recordingObserver) ObserveCacheLookup(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lookups == nil {
		o.lookups = make(map[string]int)
	}
	o.lookups[result]++
}

func TestEquationCacheHit(t *testing.T) {
	obs := &recordingObserver{}
	c := NewEquationCache(obs)

	first, err := c.Get(1, "x + 1")
	require.NoError(t, err)
	second, err := c.Get(1, "x + 1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, map[string]int{LookupMiss: 1, LookupHit: 1}, obs.lookups)
	assert.Equal(t, 1, c.Len())
}

func TestEquationCacheRecompilesEditedEquation(t *testing.T) {
	obs := &recordingObserver{}
	c := NewEquationCache(obs)

	_, err := c.Get(1, "x + 1")
	require.NoError(t, err)
	edited, err := c.Get(1, "x + 2")
	require.NoError(t, err)

	v, err := edited.Eval(map[string]float64{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, 1, obs.lookups[LookupStale])
	assert.Equal(t, 1, c.Len())
}

func TestEquationCacheDoesNotCacheParseFailures(t *testing.T) {
	c := NewEquationCache(nil)

	_, err := c.Get(1, "x +")
	require.Error(t, err)
	assert.True(t, expr.IsParseError(err))
	assert.Equal(t, 0, c.Len())
}

func TestEquationCacheInvalidateAndFlush(t *testing.T) {
	obs := &recordingObserver{}
	c := NewEquationCache(obs)

	_, _ = c.Get(1, "a")
	_, _ = c.Get(2, "b")
	require.Equal(t, 2, c.Len())

	c.Invalidate(1)
	assert.Equal(t, 1, c.Len())
	_, _ = c.Get(1, "a")
	assert.Equal(t, 3, obs.lookups[LookupMiss])

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestEquationCacheConcurrentAccess(t *testing.T) {
	c := NewEquationCache(nil)

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		id := int64(i % 4)
		g.Go(func() error {
			e, err := c.Get(id, "sqrt(x) * 2")
			if err != nil {
				return err
			}
			_, err = e.Eval(map[string]float64{"x": 4})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 4, c.Len())
}
