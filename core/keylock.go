package core

import "sync"

// KeyedRWMutex hands out one readers-writer lock per key.
// Locks are created lazily and live as long as the KeyedRWMutex; the key space (table kind x semester) is small.
type KeyedRWMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewKeyedRWMutex() *KeyedRWMutex {
	return &KeyedRWMutex{locks: make(map[string]*sync.RWMutex)}
}

func (km *KeyedRWMutex) get(key string) *sync.RWMutex {
	km.mu.Lock()
	defer km.mu.Unlock()

	l, ok := km.locks[key]
	if !ok {
		l = new(sync.RWMutex)
		km.locks[key] = l
	}
	return l
}

// Lock acquires the exclusive lock for key and returns its release func.
func (km *KeyedRWMutex) Lock(key string) (unlock func()) {
	l := km.get(key)
	l.Lock()
	return l.Unlock
}

// RLock acquires a shared lock for key and returns its release func.
func (km *KeyedRWMutex) RLock(key string) (runlock func()) {
	l := km.get(key)
	l.RLock()
	return l.RUnlock
}
