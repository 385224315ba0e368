// Package scopecache implements a backend-agnostic cache with a uniform
// contract over an in-process LRU+TTL store and a Redis-backed store.
// Keys are derived deterministically (order-independent stable hashing of
// parameters), bulk invalidation works by prefix or '*' wildcard pattern,
// and namespaced scopes isolate tenants sharing one physical backend.
//
// Components:
//   - Engine[V]: the cache contract every backend and scope implements.
//   - backend/memory: bounded LRU store with per-entry TTL expiry.
//   - backend/redis: remote store; bulk deletion via cursor-based SCAN.
//   - Scoped[V]: prefix-isolated view over any Engine, with independent
//     disposal (post-dispose reads miss, writes are logged no-ops).
//   - Registry[V]: at most one live backend per kind plus a default,
//     resolving scoped handles on demand.
//
// Keys:
//
//	<prefix>:<resource>:<operation>[:<hash>]
//
// where <hash> is a 16-hex-char stable digest of the operation parameters
// (see the stablehash package).
//
// Caching here is best-effort by contract: backend I/O errors are logged
// and surface as misses or skipped writes, never as errors from Get/Set.
package scopecache
