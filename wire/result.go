package wire

import (
	"fmt"
	"reflect"
	"sync"
)

// ResultMapper decodes an array-valued response (a sequence of tuples)
// into a slice of T, using the converter a Registry has registered for
// (VariantArray, T). It is produced by GetResultMapper and is safe for
// concurrent use once built.
type ResultMapper[T any] struct {
	registry *Registry
	target   reflect.Type
}

// MapTuples decodes each element of rows (expected to be a []interface{}
// tuple) into T.
func (m *ResultMapper[T]) MapTuples(rows []interface{}) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		tuple, ok := row.([]interface{})
		if !ok {
			return nil, fmt.Errorf("wire: expected tuple array, got %T", row)
		}
		decoded, err := m.registry.ToObject(VariantArray, tuple, m.target)
		if err != nil {
			return nil, err
		}
		typed, ok := decoded.(T)
		if !ok {
			return nil, fmt.Errorf("wire: converter for %s returned %T", m.target, decoded)
		}
		out = append(out, typed)
	}
	return out, nil
}

type resultMapperKey struct {
	registry *Registry
	target   reflect.Type
}

var resultMapperCache sync.Map // resultMapperKey -> *ResultMapper[T], boxed

// GetResultMapper returns the ResultMapper specialized for T against
// registry, creating and caching it on first use. Subsequent calls for
// the same (registry, T) pair return the same instance.
func GetResultMapper[T any](registry *Registry) *ResultMapper[T] {
	target := reflect.TypeOf((*T)(nil)).Elem()
	key := resultMapperKey{registry: registry, target: target}

	if cached, ok := resultMapperCache.Load(key); ok {
		return cached.(*ResultMapper[T])
	}

	m := &ResultMapper[T]{registry: registry, target: target}
	actual, _ := resultMapperCache.LoadOrStore(key, m)
	return actual.(*ResultMapper[T])
}
