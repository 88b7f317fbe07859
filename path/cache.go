package path

import (
	"reflect"
	"sync"
)

type cacheEntry struct {
	root  reflect.Type
	value reflect.Type
	expr  string
	path  any
}

var cache = struct {
	mu      sync.RWMutex
	entries map[uint64][]cacheEntry
}{
	entries: map[uint64][]cacheEntry{},
}

// GetOrCreate returns the cached path for expr, compiling it on first use.
// Compiled paths live for the lifetime of the process.
func GetOrCreate[R any, V any](expr string) (*Path[R, V], error) {
	root := reflect.TypeFor[*R]()
	valueType := reflect.TypeFor[V]()
	key := fingerprint(root, valueType, expr)

	cache.mu.RLock()
	p, ok := lookup[R, V](key, root, valueType, expr)
	cache.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := Parse[R, V](expr)
	if err != nil {
		return nil, err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if existing, ok := lookup[R, V](key, root, valueType, expr); ok {
		return existing, nil
	}
	cache.entries[key] = append(cache.entries[key], cacheEntry{
		root:  root,
		value: valueType,
		expr:  expr,
		path:  p,
	})
	return p, nil
}

func lookup[R any, V any](key uint64, root, value reflect.Type, expr string) (*Path[R, V], bool) {
	for _, e := range cache.entries[key] {
		if e.root == root && e.value == value && e.expr == expr {
			return e.path.(*Path[R, V]), true
		}
	}
	return nil, false
}
