package services

import (
	"sort"
	"sync"
)

// keyedMutex serializes read-modify-write cycles per player. Mutexes are
// created on first use and never reclaimed; the player population is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutexes for all keys in sorted order (deadlock-free when
// two handlers touch the same pair of players) and returns an unlock func.
// Duplicate keys are locked once.
func (k *keyedMutex) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, key := range uniq {
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
