package pir

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chalametpir/chalametpir/filter"
)

// NewIndexDatabase encodes values (each up to ceil(elemSizeBits/8) bytes)
// into a Rows-by-Width matrix over Z_p, one row per value, ready for
// Setup. Row i of the returned matrix answers "what is stored at index
// i" once queried.
func NewIndexDatabase(values [][]byte, elemSizeBits uint32, plaintextBits uint8) (*Matrix, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty database", ErrInvalidParams)
	}
	w := RowWidth(elemSizeBits, plaintextBits)
	d := NewMatrix(uint64(len(values)), w)
	for i, v := range values {
		row, err := EncodeRow(v, elemSizeBits, plaintextBits)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		copy(d.Row(uint64(i)), row)
	}
	return d, nil
}

// NewKeywordDatabase builds the Binary Fuse Filter matrix backing a
// keyword-PIR shard: keys[i] maps to a row recoverable by XORing the
// filter's three owned slots and unmasking the per-key fingerprint. The
// returned matrix IS the filter's slot table; filt carries the layout
// (seed, segment lengths) a client needs to compute which three rows to
// fetch for a given key and how to unmask them.
func NewKeywordDatabase(keys []string, values [][]byte, elemSizeBits uint32, plaintextBits uint8) (*Matrix, *filter.Filter, error) {
	if len(keys) != len(values) {
		return nil, nil, fmt.Errorf("%w: %d keys but %d values", ErrInvalidParams, len(keys), len(values))
	}
	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("%w: empty database", ErrInvalidParams)
	}
	w := RowWidth(elemSizeBits, plaintextBits)

	keyBytes := make([][]byte, len(keys))
	rows := make([][]uint32, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidParams, k)
		}
		seen[k] = struct{}{}
		keyBytes[i] = []byte(k)
		row, err := EncodeRow(values[i], elemSizeBits, plaintextBits)
		if err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", k, err)
		}
		rows[i] = row
	}

	filt, err := filter.New(keyBytes, rows, w, plaintextBits, randFilterSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFilterConstructionFailed, err)
	}

	d := NewMatrix(filt.Size(), w)
	for i, row := range filt.Slots {
		copy(d.Row(uint64(i)), row)
	}
	return d, filt, nil
}

// randFilterSeed is the randomness source filter.New uses to draw (and,
// on a failed peel, re-draw) its hash seed.
func randFilterSeed() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
