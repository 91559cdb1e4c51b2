package wire

import (
	"fmt"
	"reflect"
)

// MsgPackValueVariant identifies the wire-level shape a decoded
// MessagePack value arrived in, independent of what Go type the caller
// ultimately wants it mapped to.
type MsgPackValueVariant int

const (
	VariantNil MsgPackValueVariant = iota
	VariantBool
	VariantInt
	VariantUint
	VariantFloat
	VariantString
	VariantBinary
	VariantArray
	VariantMap
	VariantExt
)

// ConverterNotFound is returned when the registry has no converter
// registered for the requested (source, target) pair. There is no
// structural fallback: callers must register the conversion explicitly.
type ConverterNotFound struct {
	Source string
	Target string
}

func (e *ConverterNotFound) Error() string {
	return fmt.Sprintf("wire: no converter registered for %s -> %s", e.Source, e.Target)
}

// ValueConverter decodes a raw MessagePack-decoded value (as produced by
// the underlying codec library: nil, bool, int64, uint64, float64,
// string, []byte, []interface{}, map[interface{}]interface{}, or an
// extension payload) into a native Go value of the registered target
// type.
type ValueConverter func(value interface{}) (interface{}, error)

// ObjectConverter encodes a native Go value into a value the underlying
// MessagePack codec can marshal directly.
type ObjectConverter func(value interface{}) (interface{}, error)

// ValueMapper decodes wire values into native Go values by target type.
type ValueMapper interface {
	ToObject(variant MsgPackValueVariant, value interface{}, target reflect.Type) (interface{}, error)
}

// ObjectMapper encodes native Go values into values the wire codec can
// marshal.
type ObjectMapper interface {
	FromObject(value interface{}) (interface{}, error)
}

type valueKey struct {
	variant MsgPackValueVariant
	target  reflect.Type
}

// Registry is a bidirectional, type-keyed set of converters between
// MessagePack values and native Go values. Lookups succeed iff an exact
// match was registered; there is no structural fallback to e.g. the
// nearest assignable type.
type Registry struct {
	valueConverters  map[valueKey]ValueConverter
	objectConverters map[reflect.Type]ObjectConverter
}

// NewRegistry creates an empty registry. Use NewDefaultMapper for one
// pre-seeded with the standard scalar/collection converters.
func NewRegistry() *Registry {
	return &Registry{
		valueConverters:  make(map[valueKey]ValueConverter),
		objectConverters: make(map[reflect.Type]ObjectConverter),
	}
}

// RegisterValueConverter registers a decoder for values of the given
// wire variant into the given target type.
func (r *Registry) RegisterValueConverter(variant MsgPackValueVariant, target reflect.Type, conv ValueConverter) {
	r.valueConverters[valueKey{variant: variant, target: target}] = conv
}

// RegisterObjectConverter registers an encoder for native values of the
// given source type.
func (r *Registry) RegisterObjectConverter(source reflect.Type, conv ObjectConverter) {
	r.objectConverters[source] = conv
}

// ToObject decodes value (of the given wire variant) into target. Target
// type inference is the caller's responsibility; there is no reflection
// over value's own Go type on this path, only on FromObject.
func (r *Registry) ToObject(variant MsgPackValueVariant, value interface{}, target reflect.Type) (interface{}, error) {
	conv, ok := r.valueConverters[valueKey{variant: variant, target: target}]
	if !ok {
		return nil, &ConverterNotFound{Source: variantName(variant), Target: target.String()}
	}
	return conv(value)
}

// FromObject encodes value using the converter registered for its
// concrete Go type.
func (r *Registry) FromObject(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	t := reflect.TypeOf(value)
	conv, ok := r.objectConverters[t]
	if !ok {
		return nil, &ConverterNotFound{Source: t.String(), Target: "wire value"}
	}
	return conv(value)
}

func variantName(v MsgPackValueVariant) string {
	switch v {
	case VariantNil:
		return "nil"
	case VariantBool:
		return "bool"
	case VariantInt:
		return "int"
	case VariantUint:
		return "uint"
	case VariantFloat:
		return "float"
	case VariantString:
		return "string"
	case VariantBinary:
		return "binary"
	case VariantArray:
		return "array"
	case VariantMap:
		return "map"
	case VariantExt:
		return "ext"
	default:
		return "unknown"
	}
}
