package server

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// keySetCache is a short-TTL cache of marshaled key-set documents keyed by
// tenant. Mutating handlers invalidate their tenant's entry so published
// sets reflect writes immediately; the TTL only bounds staleness across
// processes. A nil cache disables caching.
type keySetCache struct {
	c *gocache.Cache
}

// newKeySetCache creates a cache with the given TTL, or nil when the TTL is
// not positive.
func newKeySetCache(ttl time.Duration) *keySetCache {
	if ttl <= 0 {
		return nil
	}
	return &keySetCache{c: gocache.New(ttl, time.Minute)}
}

func (k *keySetCache) get(tenantID string) ([]byte, bool) {
	if k == nil {
		return nil, false
	}
	v, ok := k.c.Get(tenantID)
	if !ok {
		return nil, false
	}
	body, _ := v.([]byte)
	return body, true
}

func (k *keySetCache) set(tenantID string, body []byte) {
	if k == nil {
		return
	}
	k.c.SetDefault(tenantID, body)
}

func (k *keySetCache) invalidate(tenantID string) {
	if k == nil {
		return
	}
	k.c.Delete(tenantID)
}
