package services

import "sync"

// KeyedLocks hands out one mutex per key and drops it once nobody holds or
// waits on it.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	holders int
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (locks *KeyedLocks) Lock(key string) func() {
	locks.mu.Lock()
	entry, ok := locks.locks[key]
	if !ok {
		entry = &keyedLock{}
		locks.locks[key] = entry
	}
	entry.holders++
	locks.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			locks.mu.Lock()
			entry.holders--
			if entry.holders == 0 {
				delete(locks.locks, key)
			}
			locks.mu.Unlock()
		})
	}
}

func (locks *KeyedLocks) size() int {
	locks.mu.Lock()
	defer locks.mu.Unlock()
	return len(locks.locks)
}
