// Package syncmap provides a typed map safe for concurrent use.
package syncmap

import "sync"

type SyncMap[K comparable, V any] struct {
	mu *sync.RWMutex
	m  map[K]V
}

func New[K comparable, V any]() SyncMap[K, V] {
	return SyncMap[K, V]{
		mu: &sync.RWMutex{},
		m:  make(map[K]V),
	}
}

func (sm SyncMap[K, V]) Set(key K, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.m[key] = value
}

func (sm SyncMap[K, V]) Lookup(key K) (value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok = sm.m[key]
	return value, ok
}

// LoadOrCreate returns the value stored under key. When there is none, create is called
// with the map locked and its value stored unless it fails.
func (sm SyncMap[K, V]) LoadOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := sm.Lookup(key); ok {
		return v, nil
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if v, ok := sm.m[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	sm.m[key] = v
	return v, nil
}

func (sm SyncMap[K, V]) Delete(key K) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.m, key)
}

func (sm SyncMap[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}

// Range calls f for a snapshot of the entries until f returns false. f may modify the map.
func (sm SyncMap[K, V]) Range(f func(key K, value V) bool) {
	sm.mu.RLock()
	keys := make([]K, 0, len(sm.m))
	values := make([]V, 0, len(sm.m))
	for k, v := range sm.m {
		keys = append(keys, k)
		values = append(values, v)
	}
	sm.mu.RUnlock()

	for i := range keys {
		if !f(keys[i], values[i]) {
			return
		}
	}
}
