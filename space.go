package tarantool

import (
	"context"
	"fmt"
	"math"

	"github.com/tarantool-go/tarantool/wire"
)

// Iterator selects the traversal order and comparison used by Select
// against a given index. iterEQ is the zero value and so the default for
// SelectOptions. iterAll performs a full scan ignoring the supplied key
// and is what the metadata cache uses to enumerate system spaces.
type Iterator uint64

const (
	iterEQ  Iterator = 0
	iterReq Iterator = 1
	iterAll Iterator = 2
	iterLT  Iterator = 3
	iterLE  Iterator = 4
	iterGE  Iterator = 5
	iterGT  Iterator = 6
)

// UpdateOp is one operation of an update/upsert operations list:
// {op-symbol, field-no, argument}, e.g. {"+", 1, 5} to add 5 to field 1,
// or {"=", 2, "x"} to set field 2 to "x".
type UpdateOp struct {
	Op      string
	FieldNo int
	Arg     interface{}
}

func (u UpdateOp) encode() []interface{} {
	return []interface{}{u.Op, uint64(u.FieldNo), u.Arg}
}

// SelectOptions bounds a Select call beyond the index and key.
type SelectOptions struct {
	Iterator Iterator
	Limit    uint32
	Offset   uint32
}

// Space is a typed CRUD surface over one server space, bound to the
// client that resolved its metadata. A Space must not outlive the
// client it was obtained from.
type Space struct {
	client *Client
	meta   SpaceMetadata
}

// Name reports the space's name as resolved from metadata.
func (s *Space) Name() string { return s.meta.Name }

// ID reports the space's numeric identifier.
func (s *Space) ID() uint32 { return s.meta.SpaceID }

// resolveIndex maps an index name or numeric id to its metadata,
// failing with IndexNotFound if no such index exists on this space.
func (s *Space) resolveIndex(index interface{}) (IndexMetadata, error) {
	switch idx := index.(type) {
	case string:
		im, ok := s.client.metadata.getIndexByName(s.meta.SpaceID, idx)
		if !ok {
			return IndexMetadata{}, &IndexNotFound{SpaceID: s.meta.SpaceID, Index: idx}
		}
		return im, nil
	case uint32:
		im, ok := s.client.metadata.getIndexByID(s.meta.SpaceID, idx)
		if !ok {
			return IndexMetadata{}, &IndexNotFound{SpaceID: s.meta.SpaceID, Index: idx}
		}
		return im, nil
	case int:
		return s.resolveIndex(uint32(idx))
	default:
		return IndexMetadata{}, &IndexNotFound{SpaceID: s.meta.SpaceID, Index: index}
	}
}

// checkKeyArity enforces that key is no longer than the index's part
// count; shorter keys (prefix scans) are accepted whatever the index
// type, which is not checked.
func checkKeyArity(im IndexMetadata, key []interface{}) error {
	if len(key) > len(im.Parts) {
		return &ProtocolError{Message: fmt.Sprintf(
			"key has %d parts but index %q on space %d has %d", len(key), im.Name, im.SpaceID, len(im.Parts))}
	}
	return nil
}

// Select returns the tuples matching key against index, honoring opts'
// iterator/limit/offset.
func (s *Space) Select(ctx context.Context, index interface{}, key []interface{}, opts SelectOptions) ([]interface{}, error) {
	im, err := s.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	if opts.Iterator != iterAll {
		if err := checkKeyArity(im, key); err != nil {
			return nil, err
		}
	}

	limit := uint64(opts.Limit)
	if limit == 0 {
		// IPROTO_LIMIT of 0 means "return nothing" on the wire, not
		// "unbounded." A zero-value SelectOptions must still behave
		// like a full scan, so an unset Limit maps to the largest
		// value the protocol field allows.
		limit = math.MaxUint32
	}

	encodedKey, err := s.encodeFields(key)
	if err != nil {
		return nil, err
	}

	body := map[int]interface{}{
		wire.KeySpaceID:  uint64(s.meta.SpaceID),
		wire.KeyIndexID:  uint64(im.IndexID),
		wire.KeyKey:      encodedKey,
		wire.KeyIterator: uint64(opts.Iterator),
		wire.KeyLimit:    limit,
		wire.KeyOffset:   uint64(opts.Offset),
	}
	resp, err := s.client.dispatch(ctx, wire.RequestCodeSelect, body)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(resp)
}

// Insert stores tuple, failing if a tuple with the same primary key
// already exists.
func (s *Space) Insert(ctx context.Context, tuple []interface{}) ([]interface{}, error) {
	return s.writeTuple(ctx, wire.RequestCodeInsert, tuple)
}

// Replace stores tuple unconditionally, overwriting any existing tuple
// with the same primary key.
func (s *Space) Replace(ctx context.Context, tuple []interface{}) ([]interface{}, error) {
	return s.writeTuple(ctx, wire.RequestCodeReplace, tuple)
}

func (s *Space) writeTuple(ctx context.Context, code uint64, tuple []interface{}) ([]interface{}, error) {
	encodedTuple, err := s.encodeFields(tuple)
	if err != nil {
		return nil, err
	}

	body := map[int]interface{}{
		wire.KeySpaceID: uint64(s.meta.SpaceID),
		wire.KeyTuple:   encodedTuple,
	}
	resp, err := s.client.dispatch(ctx, code, body)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(resp)
}

// Update applies ops to the tuple matched by key against index. ops
// must be non-empty and each element well-formed.
func (s *Space) Update(ctx context.Context, index interface{}, key []interface{}, ops []UpdateOp) ([]interface{}, error) {
	if len(ops) == 0 {
		return nil, &ProtocolError{Message: "update requires at least one operation"}
	}
	im, err := s.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	if err := checkKeyArity(im, key); err != nil {
		return nil, err
	}

	encodedKey, err := s.encodeFields(key)
	if err != nil {
		return nil, err
	}
	encodedOps, err := s.encodeOps(ops)
	if err != nil {
		return nil, err
	}

	body := map[int]interface{}{
		wire.KeySpaceID: uint64(s.meta.SpaceID),
		wire.KeyIndexID: uint64(im.IndexID),
		wire.KeyKey:     encodedKey,
		wire.KeyOps:     encodedOps,
	}
	resp, err := s.client.dispatch(ctx, wire.RequestCodeUpdate, body)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(resp)
}

// Delete removes the tuple matched by key against index.
func (s *Space) Delete(ctx context.Context, index interface{}, key []interface{}) ([]interface{}, error) {
	im, err := s.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	if err := checkKeyArity(im, key); err != nil {
		return nil, err
	}

	encodedKey, err := s.encodeFields(key)
	if err != nil {
		return nil, err
	}

	body := map[int]interface{}{
		wire.KeySpaceID: uint64(s.meta.SpaceID),
		wire.KeyIndexID: uint64(im.IndexID),
		wire.KeyKey:     encodedKey,
	}
	resp, err := s.client.dispatch(ctx, wire.RequestCodeDelete, body)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(resp)
}

// Upsert inserts tuple, or if a tuple with the same primary key already
// exists, applies ops to it instead.
func (s *Space) Upsert(ctx context.Context, tuple []interface{}, ops []UpdateOp) ([]interface{}, error) {
	if len(ops) == 0 {
		return nil, &ProtocolError{Message: "upsert requires at least one operation"}
	}

	encodedTuple, err := s.encodeFields(tuple)
	if err != nil {
		return nil, err
	}
	encodedOps, err := s.encodeOps(ops)
	if err != nil {
		return nil, err
	}

	body := map[int]interface{}{
		wire.KeySpaceID: uint64(s.meta.SpaceID),
		wire.KeyTuple:   encodedTuple,
		wire.KeyOps:     encodedOps,
	}
	resp, err := s.client.dispatch(ctx, wire.RequestCodeUpsert, body)
	if err != nil {
		return nil, err
	}
	return s.decodeRows(resp)
}

// encodeFields runs each element of fields through the client's
// ObjectMapper, producing the wire-ready value for each. This is what
// surfaces ConverterNotFound for a field of an unregistered type before
// the request ever reaches the socket.
func (s *Space) encodeFields(fields []interface{}) ([]interface{}, error) {
	if len(fields) == 0 {
		return []interface{}{}, nil
	}
	mapper := s.client.cfg.ObjectMapper
	out := make([]interface{}, len(fields))
	for i, f := range fields {
		v, err := mapper.FromObject(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// encodeOps runs each operation's argument through the client's
// ObjectMapper before assembling the {op, field-no, argument} triple
// the wire expects.
func (s *Space) encodeOps(ops []UpdateOp) ([]interface{}, error) {
	mapper := s.client.cfg.ObjectMapper
	out := make([]interface{}, len(ops))
	for i, op := range ops {
		arg, err := mapper.FromObject(op.Arg)
		if err != nil {
			return nil, err
		}
		out[i] = UpdateOp{Op: op.Op, FieldNo: op.FieldNo, Arg: arg}.encode()
	}
	return out, nil
}

// decodeRows decodes resp's tuple sequence through the client's
// ValueMapper rather than returning the raw wire-decoded value
// directly, one tuple at a time.
func (s *Space) decodeRows(resp map[int]interface{}) ([]interface{}, error) {
	data, _ := resp[wire.KeyData].([]interface{})
	tuples, err := wire.GetResultMapper[[]interface{}](s.client.valueMapper()).MapTuples(data)
	if err != nil {
		return nil, err
	}
	rows := make([]interface{}, len(tuples))
	for i, t := range tuples {
		rows[i] = t
	}
	return rows, nil
}
