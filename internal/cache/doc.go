// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a generic soft-limit cache.
//
// Cache[K, V] is safe for concurrent use. When the number of entries
// exceeds the soft limit, a quarter of the limit is evicted, least recently
// used first. An optional eviction callback observes or releases values
// as they leave the cache:
//
//	spirv := cache.New(256, cache.WithEvict(func(key string, _ []uint32) {
//		log.Debug("shader evicted", "key", key)
//	}))
//	words, ok := spirv.Get(source)
//	if !ok {
//		words, err = compile(source) // outside any cache lock
//		spirv.Set(source, words)
//	}
package cache
