// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package internstr interns dictionary-key names so a lexer processing many
// objects with repeated keys (/Type, /Filter, /Length, ...) doesn't allocate
// a fresh string per occurrence.
package internstr

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type shard struct {
	mu sync.RWMutex
	m  map[uint64]string
}

// Cache is a sharded, hash-keyed string interning table. Safe for
// concurrent use, though a single Lexer never shares one across goroutines.
type Cache struct {
	shards [shardCount]*shard
}

// New returns an empty interning cache.
func New() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{m: make(map[uint64]string)}
	}
	return c
}

// Intern returns a canonical string for raw, allocating at most once per
// distinct byte sequence ever seen by this cache.
func (c *Cache) Intern(raw []byte) string {
	h := xxhash.Sum64(raw)
	s := c.shards[h%shardCount]

	s.mu.RLock()
	if v, ok := s.m[h]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	v := string(raw)
	s.mu.Lock()
	if existing, ok := s.m[h]; ok {
		s.mu.Unlock()
		return existing
	}
	s.m[h] = v
	s.mu.Unlock()
	return v
}

// Len reports the total number of distinct interned strings.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}
