package tarantool

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/tarantool-go/tarantool/wire"
)

const (
	vspaceID = 281
	vindexID = 289
)

// FieldFormat describes one field of a space's declared tuple shape.
type FieldFormat struct {
	Name     string
	Type     string
	Nullable bool
}

// IndexPart describes one component of a composite index key.
type IndexPart struct {
	FieldNo int
	Type    string
}

// SpaceMetadata mirrors one row of the server's _vspace system space.
type SpaceMetadata struct {
	SpaceID uint32
	Name    string
	Engine  string
	Format  []FieldFormat
}

// IndexMetadata mirrors one row of the server's _vindex system space.
type IndexMetadata struct {
	SpaceID uint32
	IndexID uint32
	Name    string
	Type    string
	Unique  bool
	Parts   []IndexPart
}

// metadataSnapshot is the immutable bundle swapped atomically by
// Refresh. Every field is built fresh by one Refresh call and never
// mutated after that call publishes it, so concurrent readers need no
// locking once they have loaded the pointer.
type metadataSnapshot struct {
	spacesByName map[string]SpaceMetadata
	spacesByID   map[uint32]SpaceMetadata
	indexesByKey map[indexNameKey]IndexMetadata
	indexesByID  map[indexIDKey]IndexMetadata
}

type indexNameKey struct {
	spaceID uint32
	name    string
}

type indexIDKey struct {
	spaceID uint32
	indexID uint32
}

func emptySnapshot() *metadataSnapshot {
	return &metadataSnapshot{
		spacesByName: make(map[string]SpaceMetadata),
		spacesByID:   make(map[uint32]SpaceMetadata),
		indexesByKey: make(map[indexNameKey]IndexMetadata),
		indexesByID:  make(map[indexIDKey]IndexMetadata),
	}
}

// metadataCache resolves human-readable space/index names to the
// numeric identifiers every CRUD request needs. Lazily populated on
// first use, and explicitly on Refresh; lookups against a snapshot that
// was fully built before being published never observe a partial view.
type metadataCache struct {
	dispatch func(ctx context.Context, code uint64, body map[int]interface{}) (map[int]interface{}, error)
	snapshot atomic.Pointer[metadataSnapshot]
}

func newMetadataCache(dispatch func(ctx context.Context, code uint64, body map[int]interface{}) (map[int]interface{}, error)) *metadataCache {
	c := &metadataCache{dispatch: dispatch}
	c.snapshot.Store(emptySnapshot())
	return c
}

// Refresh performs a full scan of _vspace and _vindex and atomically
// publishes the rebuilt snapshot. Concurrent lookups during the scan
// continue to see the previous snapshot.
func (c *metadataCache) Refresh(ctx context.Context) error {
	spaceTuples, err := c.fullScan(ctx, vspaceID)
	if err != nil {
		return err
	}
	indexTuples, err := c.fullScan(ctx, vindexID)
	if err != nil {
		return err
	}

	next := emptySnapshot()
	for _, t := range spaceTuples {
		sm, ok := parseSpaceTuple(t)
		if !ok {
			continue
		}
		next.spacesByID[sm.SpaceID] = sm
		next.spacesByName[sm.Name] = sm
	}
	for _, t := range indexTuples {
		im, ok := parseIndexTuple(t)
		if !ok {
			continue
		}
		next.indexesByID[indexIDKey{spaceID: im.SpaceID, indexID: im.IndexID}] = im
		next.indexesByKey[indexNameKey{spaceID: im.SpaceID, name: im.Name}] = im
	}

	c.snapshot.Store(next)
	return nil
}

// fullScan issues a select against systemSpaceID with an empty key and
// index 0, returning every tuple in the space. IPROTO_LIMIT of 0 means
// "return nothing," not "unbounded," so a genuine full scan must send
// the largest limit the protocol allows.
func (c *metadataCache) fullScan(ctx context.Context, systemSpaceID uint32) ([]interface{}, error) {
	body := map[int]interface{}{
		wire.KeySpaceID:  uint64(systemSpaceID),
		wire.KeyIndexID:  uint64(0),
		wire.KeyKey:      []interface{}{},
		wire.KeyIterator: uint64(iterAll),
		wire.KeyLimit:    uint64(math.MaxUint32),
		wire.KeyOffset:   uint64(0),
	}
	resp, err := c.dispatch(ctx, wire.RequestCodeSelect, body)
	if err != nil {
		return nil, err
	}
	data, _ := resp[wire.KeyData].([]interface{})
	return data, nil
}

func (c *metadataCache) getSpaceByName(name string) (SpaceMetadata, bool) {
	snap := c.snapshot.Load()
	sm, ok := snap.spacesByName[name]
	return sm, ok
}

func (c *metadataCache) getSpaceByID(id uint32) (SpaceMetadata, bool) {
	snap := c.snapshot.Load()
	sm, ok := snap.spacesByID[id]
	return sm, ok
}

func (c *metadataCache) getIndexByName(spaceID uint32, name string) (IndexMetadata, bool) {
	snap := c.snapshot.Load()
	im, ok := snap.indexesByKey[indexNameKey{spaceID: spaceID, name: name}]
	return im, ok
}

func (c *metadataCache) getIndexByID(spaceID, indexID uint32) (IndexMetadata, bool) {
	snap := c.snapshot.Load()
	im, ok := snap.indexesByID[indexIDKey{spaceID: spaceID, indexID: indexID}]
	return im, ok
}

// parseSpaceTuple parses one _vspace row: [id, owner, name, engine,
// field_count, flags, format]. Only the fields the cache needs are
// extracted; unknown extra fields are ignored.
func parseSpaceTuple(tuple interface{}) (SpaceMetadata, bool) {
	fields, ok := tuple.([]interface{})
	if !ok || len(fields) < 7 {
		return SpaceMetadata{}, false
	}
	id, ok := asUint32(fields[0])
	if !ok {
		return SpaceMetadata{}, false
	}
	name, _ := fields[2].(string)
	engine, _ := fields[3].(string)

	var format []FieldFormat
	if rows, ok := fields[6].([]interface{}); ok {
		for _, row := range rows {
			if m, ok := asStringMap(row); ok {
				fn, _ := m["name"].(string)
				ft, _ := m["type"].(string)
				nullable, _ := m["is_nullable"].(bool)
				format = append(format, FieldFormat{Name: fn, Type: ft, Nullable: nullable})
			}
		}
	}

	return SpaceMetadata{SpaceID: id, Name: name, Engine: engine, Format: format}, true
}

// parseIndexTuple parses one _vindex row: [space_id, index_id, name,
// type, opts, parts].
func parseIndexTuple(tuple interface{}) (IndexMetadata, bool) {
	fields, ok := tuple.([]interface{})
	if !ok || len(fields) < 6 {
		return IndexMetadata{}, false
	}
	spaceID, ok := asUint32(fields[0])
	if !ok {
		return IndexMetadata{}, false
	}
	indexID, ok := asUint32(fields[1])
	if !ok {
		return IndexMetadata{}, false
	}
	name, _ := fields[2].(string)
	typ, _ := fields[3].(string)

	unique := true
	if opts, ok := asStringMap(fields[4]); ok {
		if u, ok := opts["unique"].(bool); ok {
			unique = u
		}
	}

	var parts []IndexPart
	if rows, ok := fields[5].([]interface{}); ok {
		for _, row := range rows {
			if p, ok := row.([]interface{}); ok && len(p) >= 2 {
				fn, _ := asInt(p[0])
				pt, _ := p[1].(string)
				parts = append(parts, IndexPart{FieldNo: fn, Type: pt})
				continue
			}
			if p, ok := asStringMap(row); ok {
				fn, _ := asInt(p["field"])
				pt, _ := p["type"].(string)
				parts = append(parts, IndexPart{FieldNo: fn, Type: pt})
			}
		}
	}

	return IndexMetadata{SpaceID: spaceID, IndexID: indexID, Name: name, Type: typ, Unique: unique, Parts: parts}, true
}

func asUint32(v interface{}) (uint32, bool) {
	n, ok := toUint(v)
	return uint32(n), ok
}

func asInt(v interface{}) (int, bool) {
	n, ok := toUint(v)
	return int(n), ok
}

// asStringMap normalizes the two shapes the underlying msgpack decoder
// may produce for a generically-decoded map, depending on whether its
// keys happened to all be strings.
func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}
