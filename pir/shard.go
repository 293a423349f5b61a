package pir

import "fmt"

// Shard bundles an index-PIR database with the Params its setup
// produced, the ergonomic front door most callers want instead of
// juggling a Matrix and a Params separately.
type Shard struct {
	Params *Params
	db     *Matrix
}

// FromByteStrings builds a Shard over values, one row per value, each up
// to ceil(elemSizeBits/8) bytes.
func FromByteStrings(values [][]byte, elemSizeBits uint32, plaintextBits uint8, lweDim uint64) (*Shard, error) {
	d, err := NewIndexDatabase(values, elemSizeBits, plaintextBits)
	if err != nil {
		return nil, err
	}
	p, err := Setup(d, lweDim, elemSizeBits, plaintextBits)
	if err != nil {
		return nil, err
	}
	return &Shard{Params: p, db: d}, nil
}

// Respond answers a client's query against this shard's database.
func (s *Shard) Respond(query []uint32) ([]uint32, error) {
	return Respond(s.db, query)
}

// NumRows reports how many byte strings the shard can answer index
// queries for.
func (s *Shard) NumRows() uint64 {
	return s.db.Rows
}

// KVShard bundles a keyword-PIR database (a Binary Fuse Filter's slot
// matrix) with the KeywordParams its setup produced.
type KVShard struct {
	Params *KeywordParams
	db     *Matrix
}

// FromKeyValues builds a KVShard over the given key/value pairs.
func FromKeyValues(keys []string, values [][]byte, elemSizeBits uint32, plaintextBits uint8, lweDim uint64) (*KVShard, error) {
	d, filt, err := NewKeywordDatabase(keys, values, elemSizeBits, plaintextBits)
	if err != nil {
		return nil, err
	}
	p, err := SetupKeyword(d, filt, lweDim, elemSizeBits, plaintextBits)
	if err != nil {
		return nil, err
	}
	return &KVShard{Params: p, db: d}, nil
}

// Respond answers one of a keyword session's three slot queries. Callers
// typically invoke this three times, once per entry in
// KeywordSession.Queries's result.
func (s *KVShard) Respond(query []uint32) ([]uint32, error) {
	return Respond(s.db, query)
}

// RespondAll answers all three slot queries a KeywordSession issued, in
// order.
func (s *KVShard) RespondAll(queries [3][]uint32) ([3][]uint32, error) {
	var out [3][]uint32
	for i, q := range queries {
		r, err := s.Respond(q)
		if err != nil {
			return [3][]uint32{}, fmt.Errorf("slot %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// NumSlots reports the Binary Fuse Filter's total slot count.
func (s *KVShard) NumSlots() uint64 {
	return s.db.Rows
}
