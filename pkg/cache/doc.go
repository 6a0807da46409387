// Package cache provides an optional Redis backed cache for REST responses.
//
// Twitter does not send caching headers, so entries live for a fixed TTL
// chosen by the caller. Only successful GET responses are worth caching;
// use Cacheable to decide. Cursor driven polling (since_id/max_id) must not
// go through the cache, since it exists to observe new data.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Resource: "trends/place",
//		Params:   url.Values{"id": []string{"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from Twitter, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(200, headers, body, 5*time.Minute))
//	}
//
// # Metrics
//
//   - twitter_cache_hits_total - Cache hits
//   - twitter_cache_misses_total - Cache misses
//   - twitter_cache_errors_total{operation} - Cache operation errors
package cache
