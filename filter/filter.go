// Package filter implements a vector-valued Binary Fuse Filter: a 3-wise
// peelable XOR filter whose slots hold rows of field elements (mod a
// plaintext modulus p) rather than the 8- or 16-bit scalar fingerprints
// the public xorf/fastfilter implementations use. This lets a single
// filter carry an entire value per key, not just a membership bit, which
// is what the keyword-PIR adapter needs: each key's value is recoverable
// by XOR-summing the three filter rows its key hashes to, then XORing out
// a per-key fingerprint row.
//
// The construction (peel, then assign in reverse peel order) is the
// standard binary fuse filter algorithm; only the payload each slot
// carries is different.
package filter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lukechampine/fastxor"
	"github.com/zeebo/blake3"
)

const (
	minSegmentLength = 1 << 11
	maxSegmentLength = 1 << 18
	arity            = 3
	maxConstructTries = 100
)

// ErrConstructionFailed is returned when no seed within the retry budget
// produced a peelable filter.
var ErrConstructionFailed = fmt.Errorf("filter: construction failed after %d seed retries", maxConstructTries)

// Params is the public, non-secret description of a filter's layout: the
// seed and dimensions a client needs to evaluate HashEval and
// FingerprintRow for any key, without needing the filter's slot contents.
// Seed is 8 bytes on the wire; blake3 keys off of it the same way it
// keys off the much larger LWE matrix seed, just with a shorter input.
type Params struct {
	Seed              uint64
	SegmentLength     uint64
	SegmentLengthMask uint64
	SegmentCountLen   uint64
}

// Size returns m, the total addressable slot count.
func (p Params) Size() uint64 {
	return p.SegmentCountLen + 2*p.SegmentLength
}

// segmentsAvailable is the number of distinct starting segments h0 can
// land in, derived from the layout dimensions.
func (p Params) segmentsAvailable() uint64 {
	return p.SegmentCountLen / p.SegmentLength
}

// HashEval returns the three slot indices a key maps to, derived only
// from Params — a client needs no filter contents to compute these.
func (p Params) HashEval(key []byte) (h0, h1, h2 uint64) {
	d0, d1, d2, d3 := keyDigest(p.Seed, key)
	segments := p.segmentsAvailable()
	base := d0 % segments
	segLen := p.SegmentLength
	mask := p.SegmentLengthMask
	h0 = base*segLen + (d1 & mask)
	h1 = (base+1)*segLen + (d2 & mask)
	h2 = (base+2)*segLen + (d3 & mask)
	return
}

// FingerprintRow derives the deterministic per-key mask row XORed into
// (and later back out of) the three slots a key owns. Its first digit is
// forced nonzero, per the contract that fingerprint(key) != 0.
func (p Params) FingerprintRow(key []byte, width uint64, plaintextBits uint8) []uint32 {
	h := blake3.New()
	h.Write(seedBytes(p.Seed))
	h.Write([]byte("chalametpir-fingerprint"))
	h.Write(key)
	xof := h.Digest()
	buf := make([]byte, 4*width)
	if _, err := xof.Read(buf); err != nil {
		panic("filter: XOF read failed: " + err.Error())
	}
	mod := uint32(1) << plaintextBits
	row := make([]uint32, width)
	for i := uint64(0); i < width; i++ {
		row[i] = binary.LittleEndian.Uint32(buf[4*i:4*i+4]) % mod
	}
	if row[0] == 0 {
		row[0] = 1
	}
	return row
}

func keyDigest(seed uint64, key []byte) (d0, d1, d2, d3 uint64) {
	sum := blake3.Sum256(append(seedBytes(seed), key...))
	d0 = binary.LittleEndian.Uint64(sum[0:8])
	d1 = binary.LittleEndian.Uint64(sum[8:16])
	d2 = binary.LittleEndian.Uint64(sum[16:24])
	d3 = binary.LittleEndian.Uint64(sum[24:32])
	return
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}

// segmentLength picks the power-of-two segment length for a filter over
// size keys: 1 << floor(log2(floor(size^0.58))), clamped to
// [minSegmentLength, maxSegmentLength].
func segmentLength(size int) uint64 {
	if size < 2 {
		return minSegmentLength
	}
	v := math.Floor(math.Pow(float64(size), 0.58))
	if v < 1 {
		v = 1
	}
	l := uint64(1) << uint(math.Floor(math.Log2(v)))
	if l < minSegmentLength {
		l = minSegmentLength
	}
	if l > maxSegmentLength {
		l = maxSegmentLength
	}
	return l
}

// dimensions derives (segment_len, segment_count_len, m) for a filter
// over `size` keys, rounding the desired capacity ceil(1.125*size) up to
// a whole number of segments, per spec.
func dimensions(size int) (segLen, segCountLen, m uint64) {
	segLen = segmentLength(size)
	desired := uint64(math.Ceil(1.125 * float64(size)))
	segments := (desired + segLen - 1) / segLen
	if segments < 1 {
		segments = 1
	}
	segCountLen = segments * segLen
	m = segCountLen + 2*segLen
	return
}

// Filter is a constructed Binary Fuse Filter whose slots carry rows of
// Width field elements mod 2^PlaintextBits.
type Filter struct {
	Params
	Width         uint64
	PlaintextBits uint8
	Slots         [][]uint32 // length Size(); each row length Width
}

// New constructs a filter mapping each keys[i] to values[i] (a row of
// Width digits, each already reduced into [0, 2^plaintextBits)). It
// retries with a freshly drawn seed up to 100 times before giving up.
func New(keys [][]byte, values [][]uint32, width uint64, plaintextBits uint8, randSeed func() (uint64, error)) (*Filter, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("filter: %d keys but %d value rows", len(keys), len(values))
	}
	segLen, segCountLen, m := dimensions(len(keys))

	for attempt := 0; attempt < maxConstructTries; attempt++ {
		seed, err := randSeed()
		if err != nil {
			return nil, err
		}
		params := Params{Seed: seed, SegmentLength: segLen, SegmentLengthMask: segLen - 1, SegmentCountLen: segCountLen}
		slots, ok := peelAndAssign(params, keys, values, width, plaintextBits, m)
		if ok {
			return &Filter{Params: params, Width: width, PlaintextBits: plaintextBits, Slots: slots}, nil
		}
	}
	return nil, ErrConstructionFailed
}

type edge struct {
	h0, h1, h2 uint64
}

// peelAndAssign runs the binary-fuse peeling algorithm once for a fixed
// seed: track, per slot, the count and XOR of unpeeled key indices that
// reference it (the classic XOR-filter trick that avoids storing
// adjacency lists); repeatedly pull degree-1 slots off a queue until
// either every key is peeled (success) or the queue runs dry early
// (failure, caller retries with a new seed).
func peelAndAssign(params Params, keys [][]byte, values [][]uint32, width uint64, plaintextBits uint8, m uint64) ([][]uint32, bool) {
	n := len(keys)
	edges := make([]edge, n)
	count := make([]uint32, m)
	xorIdx := make([]uint32, m)

	touch := func(slot uint64, k int) {
		count[slot]++
		xorIdx[slot] ^= uint32(k)
	}
	for k, key := range keys {
		h0, h1, h2 := params.HashEval(key)
		if h0 == h1 || h1 == h2 || h0 == h2 {
			return nil, false // degenerate hash collision; resample
		}
		edges[k] = edge{h0, h1, h2}
		touch(h0, k)
		touch(h1, k)
		touch(h2, k)
	}

	queue := make([]uint64, 0, m)
	for s := uint64(0); s < m; s++ {
		if count[s] == 1 {
			queue = append(queue, s)
		}
	}

	type peeled struct {
		key  int
		slot uint64
	}
	stack := make([]peeled, 0, n)

	slotOf := func(e edge, other1, other2 *uint64, owned uint64) {
		switch owned {
		case e.h0:
			*other1, *other2 = e.h1, e.h2
		case e.h1:
			*other1, *other2 = e.h0, e.h2
		default:
			*other1, *other2 = e.h0, e.h1
		}
	}

	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if count[s] != 1 {
			continue
		}
		k := int(xorIdx[s])
		e := edges[k]
		stack = append(stack, peeled{key: k, slot: s})
		count[s] = 0

		var other1, other2 uint64
		slotOf(e, &other1, &other2, s)
		for _, o := range [2]uint64{other1, other2} {
			if count[o] == 0 {
				continue
			}
			count[o]--
			xorIdx[o] ^= uint32(k)
			if count[o] == 1 {
				queue = append(queue, o)
			}
		}
	}

	if len(stack) != n {
		return nil, false
	}

	slots := make([][]uint32, m)
	for i := range slots {
		slots[i] = make([]uint32, width)
	}

	for i := len(stack) - 1; i >= 0; i-- {
		p := stack[i]
		e := edges[p.key]
		var other1, other2 uint64
		slotOf(e, &other1, &other2, p.slot)

		fp := params.FingerprintRow(keys[p.key], width, plaintextBits)
		row := make([]uint32, width)
		xorInto(row, values[p.key])
		xorInto(row, slots[other1])
		xorInto(row, slots[other2])
		xorInto(row, fp)
		slots[p.slot] = row
	}

	return slots, true
}

// Lookup returns the three slot indices key maps to and the fingerprint
// row that must be XORed back out of their XOR-sum to recover the value.
func (f *Filter) Lookup(key []byte) (h0, h1, h2 uint64, fingerprint []uint32) {
	h0, h1, h2 = f.HashEval(key)
	fingerprint = f.FingerprintRow(key, f.Width, f.PlaintextBits)
	return
}

// Retrieve reconstructs the value row stored for key by XOR-summing its
// three owned slots and unmasking the fingerprint, purely as a
// construction-time/test oracle — the PIR client performs the equivalent
// computation over rows retrieved from the server, not over Slots
// directly.
func (f *Filter) Retrieve(key []byte) []uint32 {
	h0, h1, h2, fp := f.Lookup(key)
	row := make([]uint32, f.Width)
	xorInto(row, f.Slots[h0])
	xorInto(row, f.Slots[h1])
	xorInto(row, f.Slots[h2])
	xorInto(row, fp)
	return row
}

// xorInto XORs src into dst, digit by digit, by reinterpreting both rows
// as little-endian byte buffers and delegating to fastxor — the same
// accumulation pattern used to XOR-reconstruct PIR rows elsewhere in the
// retrieval pack, generalized from bytes to u32 digit rows.
func xorInto(dst, src []uint32) {
	if len(dst) != len(src) {
		panic("filter: xorInto length mismatch")
	}
	db := rowBytes(dst)
	sb := rowBytes(src)
	fastxor.Bytes(db, db, sb)
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(db[4*i : 4*i+4])
	}
}

func rowBytes(row []uint32) []byte {
	buf := make([]byte, 4*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], v)
	}
	return buf
}
