package wire

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryToObjectUnknownConverter(t *testing.T) {
	r := NewRegistry()
	_, err := r.ToObject(VariantInt, int64(1), reflect.TypeOf(""))
	require.Error(t, err)
	var cnf *ConverterNotFound
	require.ErrorAs(t, err, &cnf)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterValueConverter(VariantInt, reflect.TypeOf(int(0)), func(v interface{}) (interface{}, error) {
		return int(v.(int64)), nil
	})

	got, err := r.ToObject(VariantInt, int64(7), reflect.TypeOf(int(0)))
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestRegistryFromObjectUnknownType(t *testing.T) {
	r := NewRegistry()
	type custom struct{}
	_, err := r.FromObject(custom{})
	require.Error(t, err)
}

func TestRegistryFromObjectNil(t *testing.T) {
	r := NewRegistry()
	got, err := r.FromObject(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
