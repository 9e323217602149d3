package calc

import (
	"fmt"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/joaolima7/geosegbar/internal/expr"
	"github.com/joaolima7/geosegbar/internal/model"
)

// Cache lookup results reported to a CacheObserver.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale" // cached tree belonged to a different equation text
)

// CacheObserver receives one call per cache lookup.
type CacheObserver interface {
	ObserveCacheLookup(result string)
}

type cacheEntry struct {
	fingerprint string
	expr        *expr.Expression
}

// EquationCache holds compiled equations keyed by output id.
//
// Every entry records the fingerprint of the text it was compiled from; a
// lookup with a different text recompiles and replaces the entry, so an
// edited equation is never evaluated from a stale tree. Parse failures are
// not cached. Entries never expire; Invalidate and Flush remove them
// explicitly.
//
// EquationCache is safe for concurrent use. Concurrent misses for the same
// equation compile it once.
type EquationCache struct {
	entries  *cache.Cache
	group    singleflight.Group
	observer CacheObserver
}

// NewEquationCache creates an empty cache. observer may be nil.
func NewEquationCache(observer CacheObserver) *EquationCache {
	return &EquationCache{
		entries:  cache.New(cache.NoExpiration, 0),
		observer: observer,
	}
}

func cacheKey(outputID int64) string {
	return fmt.Sprintf("output:%d", outputID)
}

// Get returns the compiled form of equation for the given output.
func (c *EquationCache) Get(outputID int64, equation string) (*expr.Expression, error) {
	key := cacheKey(outputID)
	fingerprint := model.EquationFingerprint(equation)

	result := LookupMiss
	if cached, found := c.entries.Get(key); found {
		if entry, ok := cached.(cacheEntry); ok {
			if entry.fingerprint == fingerprint {
				c.observe(LookupHit)
				return entry.expr, nil
			}
			result = LookupStale
		}
	}
	c.observe(result)

	v, err, _ := c.group.Do(key+"/"+fingerprint, func() (any, error) {
		compiled, err := expr.Parse(equation)
		if err != nil {
			return nil, err
		}
		c.entries.Set(key, cacheEntry{fingerprint: fingerprint, expr: compiled}, cache.NoExpiration)
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*expr.Expression), nil
}

// Invalidate drops the compiled equation of one output.
func (c *EquationCache) Invalidate(outputID int64) {
	c.entries.Delete(cacheKey(outputID))
}

// Flush drops every compiled equation.
func (c *EquationCache) Flush() {
	c.entries.Flush()
}

// Len returns the number of cached equations.
func (c *EquationCache) Len() int {
	return c.entries.ItemCount()
}

func (c *EquationCache) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(result)
	}
}
