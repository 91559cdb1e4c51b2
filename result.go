package tarantool

import "github.com/tarantool-go/tarantool/wire"

// DecodeTuples maps rows - the raw tuple sequence returned by a Space
// operation - into a slice of T using client's value mapper. T's
// (VariantArray, T) converter must be registered on that mapper; the
// default mapper has none registered for arbitrary struct types, so
// callers decoding into anything but []interface{} must register one
// first via client.Config().ValueMapper.
func DecodeTuples[T any](client *Client, rows []interface{}) ([]T, error) {
	mapper := wire.GetResultMapper[T](client.valueMapper())
	return mapper.MapTuples(rows)
}
