package pir

import (
	"encoding/binary"
	"fmt"

	"github.com/chalametpir/chalametpir/filter"
)

// MarshalBinary encodes the public parameter blob:
// A_seed(32) || m(u64) || n(u64) || w(u64) || plaintext_bits(u32) ||
// elem_size_bits(u32) || M(n*w u32s).
func (p *Params) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 32+8+8+8+4+4+4*p.LWEDim*p.Width)
	off := copy(buf, p.Seed[:])
	off += putU64(buf[off:], p.NumRows)
	off += putU64(buf[off:], p.LWEDim)
	off += putU64(buf[off:], p.Width)
	off += putU32(buf[off:], uint32(p.PlaintextBits))
	off += putU32(buf[off:], p.ElemSizeBits)
	for _, v := range p.Hint.Data {
		off += putU32(buf[off:], v)
	}
	return buf, nil
}

// UnmarshalParams decodes a public parameter blob written by
// Params.MarshalBinary.
func UnmarshalParams(buf []byte) (*Params, error) {
	if len(buf) < 32+8+8+8+4+4 {
		return nil, fmt.Errorf("%w: parameter blob too short", ErrInvalidParams)
	}
	p := &Params{}
	copy(p.Seed[:], buf[:32])
	off := 32
	p.NumRows, off = getU64(buf, off)
	p.LWEDim, off = getU64(buf, off)
	p.Width, off = getU64(buf, off)
	var pb uint32
	pb, off = getU32(buf, off)
	p.PlaintextBits = uint8(pb)
	p.ElemSizeBits, off = getU32(buf, off)

	want := off + 4*int(p.LWEDim*p.Width)
	if len(buf) < want {
		return nil, fmt.Errorf("%w: parameter blob truncated hint", ErrInvalidParams)
	}
	p.Hint = NewMatrix(p.LWEDim, p.Width)
	for i := range p.Hint.Data {
		p.Hint.Data[i], off = getU32(buf, off)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MarshalBinary encodes a keyword-mode parameter blob: the index-PIR
// blob followed by filter_seed(8) || segment_len(u64) || segment_count_len(u64).
func (kp *KeywordParams) MarshalBinary() ([]byte, error) {
	base, err := kp.Params.MarshalBinary()
	if err != nil {
		return nil, err
	}
	tail := make([]byte, 8+8+8)
	off := putU64(tail, kp.Filter.Seed)
	off += putU64(tail[off:], kp.Filter.SegmentLength)
	putU64(tail[off:], kp.Filter.SegmentCountLen)
	return append(base, tail...), nil
}

// UnmarshalKeywordParams decodes a keyword-mode parameter blob written by
// KeywordParams.MarshalBinary.
func UnmarshalKeywordParams(buf []byte) (*KeywordParams, error) {
	p, err := UnmarshalParams(buf)
	if err != nil {
		return nil, err
	}
	base, _ := p.MarshalBinary()
	tail := buf[len(base):]
	if len(tail) < 24 {
		return nil, fmt.Errorf("%w: keyword parameter blob truncated", ErrInvalidParams)
	}
	fseed, off := getU64(tail, 0)
	segLen, off := getU64(tail, off)
	segCountLen, _ := getU64(tail, off)
	return &KeywordParams{
		Params: p,
		Filter: filter.Params{
			Seed:              fseed,
			SegmentLength:     segLen,
			SegmentLengthMask: segLen - 1,
			SegmentCountLen:   segCountLen,
		},
	}, nil
}

// QueryMode distinguishes the two query message shapes on the wire.
type QueryMode uint8

const (
	ModeIndex   QueryMode = 0
	ModeKeyword QueryMode = 1
)

// MarshalQuery encodes a query message: session_id(16) || mode(u8) ||
// q vectors (one m*u32 vector in index mode, three in keyword mode).
func MarshalQuery(sessionID [16]byte, mode QueryMode, vectors ...[]uint32) []byte {
	size := 16 + 1
	for _, v := range vectors {
		size += 4 * len(v)
	}
	buf := make([]byte, size)
	off := copy(buf, sessionID[:])
	buf[off] = byte(mode)
	off++
	for _, v := range vectors {
		for _, x := range v {
			off += putU32(buf[off:], x)
		}
	}
	return buf
}

// UnmarshalQuery decodes a query message, returning the session id, mode
// and the one or three m-length query vectors it carries. m must be
// supplied by the caller (it is not self-describing on the wire).
func UnmarshalQuery(buf []byte, m uint64) (sessionID [16]byte, mode QueryMode, vectors [][]uint32, err error) {
	if len(buf) < 17 {
		return sessionID, 0, nil, fmt.Errorf("%w: query message too short", ErrInvalidParams)
	}
	copy(sessionID[:], buf[:16])
	mode = QueryMode(buf[16])
	off := 17
	n := 1
	if mode == ModeKeyword {
		n = 3
	}
	vectors = make([][]uint32, n)
	for i := 0; i < n; i++ {
		vec := make([]uint32, m)
		for j := range vec {
			if off+4 > len(buf) {
				return sessionID, 0, nil, fmt.Errorf("%w: query message truncated", ErrDimensionMismatch)
			}
			vec[j], off = getU32(buf, off)
		}
		vectors[i] = vec
	}
	return sessionID, mode, vectors, nil
}

// MarshalResponse encodes a response message: session_id(16) || r
// vectors (one or three w*u32 vectors).
func MarshalResponse(sessionID [16]byte, vectors ...[]uint32) []byte {
	size := 16
	for _, v := range vectors {
		size += 4 * len(v)
	}
	buf := make([]byte, size)
	off := copy(buf, sessionID[:])
	for _, v := range vectors {
		for _, x := range v {
			off += putU32(buf[off:], x)
		}
	}
	return buf
}

// UnmarshalResponse decodes a response message carrying n vectors of
// width w each.
func UnmarshalResponse(buf []byte, w uint64, n int) (sessionID [16]byte, vectors [][]uint32, err error) {
	want := 16 + 4*int(w)*n
	if len(buf) < want {
		return sessionID, nil, fmt.Errorf("%w: response message too short", ErrDimensionMismatch)
	}
	copy(sessionID[:], buf[:16])
	off := 16
	vectors = make([][]uint32, n)
	for i := 0; i < n; i++ {
		vec := make([]uint32, w)
		for j := range vec {
			vec[j], off = getU32(buf, off)
		}
		vectors[i] = vec
	}
	return sessionID, vectors, nil
}

func putU64(b []byte, v uint64) int {
	binary.LittleEndian.PutUint64(b, v)
	return 8
}

func putU32(b []byte, v uint32) int {
	binary.LittleEndian.PutUint32(b, v)
	return 4
}

func getU64(b []byte, off int) (uint64, int) {
	return binary.LittleEndian.Uint64(b[off : off+8]), off + 8
}

func getU32(b []byte, off int) (uint32, int) {
	return binary.LittleEndian.Uint32(b[off : off+4]), off + 4
}
