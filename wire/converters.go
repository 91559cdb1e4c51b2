package wire

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Ext type tags for the binary protocol's extension values, matching the
// server's documented assignments.
const (
	ExtTypeDecimal int8 = 1
	ExtTypeUUID    int8 = 2
)

func init() {
	// Registering these with the underlying codec means ext-typed values
	// already arrive as native uuid.UUID/decimal.Decimal by the time
	// they reach the Registry below - the registry's job for these two
	// types is then just the identity mapping a caller-supplied target
	// type requires.
	msgpack.RegisterExt(ExtTypeUUID, (*uuid.UUID)(nil))
	msgpack.RegisterExt(ExtTypeDecimal, (*decimal.Decimal)(nil))
}

// NewDefaultMapper builds a Registry pre-seeded with converters for
// boolean, signed/unsigned integers of 8/16/32/64 bits, float32/64,
// UTF-8 string, raw bytes, UUID, decimal, array, map, and nil.
func NewDefaultMapper() *Registry {
	r := NewRegistry()
	registerScalarConverters(r)
	registerCollectionConverters(r)
	return r
}

func registerScalarConverters(r *Registry) {
	r.RegisterValueConverter(VariantBool, reflect.TypeOf(false), func(v interface{}) (interface{}, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("wire: expected bool, got %T", v)
		}
		return b, nil
	})
	r.RegisterObjectConverter(reflect.TypeOf(false), func(v interface{}) (interface{}, error) { return v, nil })

	registerIntConverter[int8](r)
	registerIntConverter[int16](r)
	registerIntConverter[int32](r)
	registerIntConverter[int64](r)
	registerIntConverter[int](r)
	registerUintConverter[uint8](r)
	registerUintConverter[uint16](r)
	registerUintConverter[uint32](r)
	registerUintConverter[uint64](r)
	registerUintConverter[uint](r)

	r.RegisterValueConverter(VariantFloat, reflect.TypeOf(float32(0)), func(v interface{}) (interface{}, error) {
		f, err := toFloat64(v)
		return float32(f), err
	})
	r.RegisterValueConverter(VariantFloat, reflect.TypeOf(float64(0)), func(v interface{}) (interface{}, error) {
		return toFloat64(v)
	})
	r.RegisterObjectConverter(reflect.TypeOf(float32(0)), func(v interface{}) (interface{}, error) { return v, nil })
	r.RegisterObjectConverter(reflect.TypeOf(float64(0)), func(v interface{}) (interface{}, error) { return v, nil })

	r.RegisterValueConverter(VariantString, reflect.TypeOf(""), func(v interface{}) (interface{}, error) {
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		default:
			return nil, fmt.Errorf("wire: expected string, got %T", v)
		}
	})
	r.RegisterObjectConverter(reflect.TypeOf(""), func(v interface{}) (interface{}, error) { return v, nil })

	r.RegisterValueConverter(VariantBinary, reflect.TypeOf([]byte(nil)), func(v interface{}) (interface{}, error) {
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("wire: expected []byte, got %T", v)
		}
		return b, nil
	})
	r.RegisterObjectConverter(reflect.TypeOf([]byte(nil)), func(v interface{}) (interface{}, error) { return v, nil })

	r.RegisterValueConverter(VariantExt, reflect.TypeOf(uuid.UUID{}), func(v interface{}) (interface{}, error) {
		id, ok := v.(uuid.UUID)
		if !ok {
			return nil, fmt.Errorf("wire: expected uuid.UUID, got %T", v)
		}
		return id, nil
	})
	r.RegisterObjectConverter(reflect.TypeOf(uuid.UUID{}), func(v interface{}) (interface{}, error) { return v, nil })

	r.RegisterValueConverter(VariantExt, reflect.TypeOf(decimal.Decimal{}), func(v interface{}) (interface{}, error) {
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("wire: expected decimal.Decimal, got %T", v)
		}
		return d, nil
	})
	r.RegisterObjectConverter(reflect.TypeOf(decimal.Decimal{}), func(v interface{}) (interface{}, error) { return v, nil })
}

func registerCollectionConverters(r *Registry) {
	arrayType := reflect.TypeOf([]interface{}(nil))
	r.RegisterValueConverter(VariantArray, arrayType, func(v interface{}) (interface{}, error) {
		a, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("wire: expected array, got %T", v)
		}
		return a, nil
	})
	r.RegisterObjectConverter(arrayType, func(v interface{}) (interface{}, error) { return v, nil })

	mapType := reflect.TypeOf(map[string]interface{}(nil))
	r.RegisterValueConverter(VariantMap, mapType, func(v interface{}) (interface{}, error) {
		switch m := v.(type) {
		case map[string]interface{}:
			return m, nil
		case map[interface{}]interface{}:
			out := make(map[string]interface{}, len(m))
			for k, val := range m {
				ks, ok := k.(string)
				if !ok {
					return nil, fmt.Errorf("wire: non-string map key %T", k)
				}
				out[ks] = val
			}
			return out, nil
		default:
			return nil, fmt.Errorf("wire: expected map, got %T", v)
		}
	})
	r.RegisterObjectConverter(mapType, func(v interface{}) (interface{}, error) { return v, nil })

	nilType := reflect.TypeOf((*interface{})(nil)).Elem()
	r.RegisterValueConverter(VariantNil, nilType, func(v interface{}) (interface{}, error) { return nil, nil })
}

func registerIntConverter[T int8 | int16 | int32 | int64 | int](r *Registry) {
	var zero T
	t := reflect.TypeOf(zero)
	r.RegisterValueConverter(VariantInt, t, func(v interface{}) (interface{}, error) {
		n, err := toInt64(v)
		return T(n), err
	})
	r.RegisterValueConverter(VariantUint, t, func(v interface{}) (interface{}, error) {
		n, err := toInt64(v)
		return T(n), err
	})
	r.RegisterObjectConverter(t, func(v interface{}) (interface{}, error) { return v, nil })
}

func registerUintConverter[T uint8 | uint16 | uint32 | uint64 | uint](r *Registry) {
	var zero T
	t := reflect.TypeOf(zero)
	r.RegisterValueConverter(VariantUint, t, func(v interface{}) (interface{}, error) {
		n, err := toUint64(v)
		return T(n), err
	})
	r.RegisterValueConverter(VariantInt, t, func(v interface{}) (interface{}, error) {
		n, err := toInt64(v)
		return T(n), err
	})
	r.RegisterObjectConverter(t, func(v interface{}) (interface{}, error) { return v, nil })
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("wire: expected integer, got %T", v)
	}
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("wire: negative value %d cannot convert to unsigned", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("wire: expected unsigned integer, got %T", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	default:
		return 0, fmt.Errorf("wire: expected float, got %T", v)
	}
}
