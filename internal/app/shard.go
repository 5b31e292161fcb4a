package app

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

// shard is one lock domain of a shardedMap.
type shard[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// shardedMap spreads keys over independent locks so unrelated keys
// (users, chats) do not contend.
type shardedMap[K comparable, V any] struct {
	shards []shard[K, V]
	hash   func(K) uint64
}

func newShardedMap[K comparable, V any](n int, hash func(K) uint64) *shardedMap[K, V] {
	if n <= 0 {
		n = defaultShards
	}
	s := &shardedMap[K, V]{
		shards: make([]shard[K, V], n),
		hash:   hash,
	}
	for i := range s.shards {
		s.shards[i].m = make(map[K]V)
	}
	return s
}

func (s *shardedMap[K, V]) shardOf(key K) *shard[K, V] {
	return &s.shards[s.hash(key)%uint64(len(s.shards))]
}

// get reads a single key under its shard lock.
func (s *shardedMap[K, V]) get(key K) (V, bool) {
	sh := s.shardOf(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.m[key]
	return v, ok
}

// each visits every entry, one shard locked at a time.
func (s *shardedMap[K, V]) each(fn func(K, V)) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, v := range sh.m {
			fn(k, v)
		}
		sh.mu.Unlock()
	}
}

func hashString[K ~string](key K) uint64 {
	return xxhash.Sum64String(string(key))
}
