// Package ttlcache provides a small generic cache whose entries expire after
// a fixed time-to-live.
//
// # Semantics
//
// An entry older than the TTL is treated as absent by Get and CheckAndMark,
// even before the background purge removes it. Writes refresh the timestamp
// and move the key to the back of the eviction order; when the cache is full
// the oldest written key is dropped.
//
// # Usage
//
//	c := ttlcache.New[bool](5*time.Minute, 10000)
//	defer c.Close()
//
//	if inClan, ok := c.Get(userID); ok {
//	    return inClan
//	}
//
// The cache holds no invalidation hooks of its own; owners call Delete when
// the source of truth changes.
package ttlcache
