// Package cache implements the tiered memoization cache shared by the
// capability orchestrator and session manager.
//
// Values live in one of three tiers with nested lifetimes (short, medium,
// long). Reads scan the tiers fastest-first; frequently hit entries are
// promoted by copy into the longer-lived tiers. Each tier bounds its size by
// evicting its oldest entries (by creation timestamp, an insertion-order
// approximation of LRU) and drops expired entries during a periodic sweep.
//
// Cache operations never fail: a miss is a normal result, not an error. The
// sweep runs as a background task owned by the cache's Start/Stop lifecycle
// so tests can disable it and call SweepNow deterministically.
package cache
