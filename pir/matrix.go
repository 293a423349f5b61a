package pir

import (
	"fmt"
	"runtime"
	"sync"
)

// Matrix is a row-major matrix over Z_q, q = 2^32. Entries wrap naturally
// on overflow, which is exactly arithmetic mod 2^32.
type Matrix struct {
	Rows uint64
	Cols uint64
	Data []uint32
}

// NewMatrix allocates a Rows-by-Cols matrix of zeros.
func NewMatrix(rows, cols uint64) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]uint32, rows*cols)}
}

func (m *Matrix) Get(i, j uint64) uint32 {
	return m.Data[i*m.Cols+j]
}

func (m *Matrix) Set(i, j uint64, v uint32) {
	m.Data[i*m.Cols+j] = v
}

// Row returns a slice view onto row i (not a copy).
func (m *Matrix) Row(i uint64) []uint32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// numWorkers bounds how many goroutines the column-partitioned kernels
// below fan out to, independent of how many columns there are to do.
func numWorkers(units uint64) int {
	w := runtime.GOMAXPROCS(0)
	if uint64(w) > units {
		w = int(units)
	}
	if w < 1 {
		w = 1
	}
	return w
}

// partitionColumns runs fn(j) for every j in [0, cols) across a bounded
// worker pool, one goroutine per shard of columns. This is the column
// partition the spec calls for in setup and response: workers read D (and
// q or A) without locking and write to disjoint output columns.
func partitionColumns(cols uint64, fn func(j uint64)) {
	if cols == 0 {
		return
	}
	workers := numWorkers(cols)
	var wg sync.WaitGroup
	chunk := (cols + uint64(workers) - 1) / uint64(workers)
	for w := 0; w < workers; w++ {
		start := uint64(w) * chunk
		if start >= cols {
			break
		}
		end := start + chunk
		if end > cols {
			end = cols
		}
		wg.Add(1)
		go func(start, end uint64) {
			defer wg.Done()
			for j := start; j < end; j++ {
				fn(j)
			}
		}(start, end)
	}
	wg.Wait()
}

// MulVec computes A*v where A is this m-by-n matrix and v has length n,
// producing a length-m result, for a fully materialized A. Session.Query
// builds q = A*s with MulVecStreamed instead. The row-chunked computation is embarrassingly parallel: each output row
// depends only on A's own row and v.
func (a *Matrix) MulVec(v []uint32) []uint32 {
	if uint64(len(v)) != a.Cols {
		panic(fmt.Sprintf("pir: MulVec dimension mismatch: %d-by-%d times %d", a.Rows, a.Cols, len(v)))
	}
	out := make([]uint32, a.Rows)
	partitionColumns(a.Rows, func(i uint64) {
		var acc uint32
		row := a.Row(i)
		for j, vj := range v {
			acc += row[j] * vj
		}
		out[i] = acc
	})
	return out
}

// MulVecStreamed is MulVec for an implicitly-represented A: rowFn(i)
// returns row i of A (expanded on demand, e.g. from a seed), so that a
// client need not materialize the full m-by-n matrix to query it.
func MulVecStreamed(m, n uint64, rowFn func(i uint64) []uint32, v []uint32) []uint32 {
	if uint64(len(v)) != n {
		panic(fmt.Sprintf("pir: MulVecStreamed dimension mismatch: rows want %d cols, got %d", n, len(v)))
	}
	out := make([]uint32, m)
	partitionColumns(m, func(i uint64) {
		row := rowFn(i)
		var acc uint32
		for j, vj := range v {
			acc += row[j] * vj
		}
		out[i] = acc
	})
	return out
}

// HintFromSeed computes M = A^T * D (shape n-by-w), where A (shape
// m-by-n) is expanded on the fly from seed, and D is the server's encoded
// database (shape m-by-w). Work is partitioned over D's w columns, per the
// spec's setup/response parallelism model, since w is typically small and
// each column's contribution is an independent O(m*n) reduction.
func HintFromSeed(seed Seed, n uint64, d *Matrix) *Matrix {
	m, w := d.Rows, d.Cols
	out := NewMatrix(n, w)
	partitionColumns(w, func(k uint64) {
		col := make([]uint32, n)
		for i := uint64(0); i < m; i++ {
			dik := d.Get(i, k)
			if dik == 0 {
				continue
			}
			arow := expandARow(seed, i, n)
			for j := uint64(0); j < n; j++ {
				col[j] += arow[j] * dik
			}
		}
		for j := uint64(0); j < n; j++ {
			out.Set(j, k, col[j])
		}
	})
	return out
}

// RespondVec computes r = D^T * q (length w), partitioned over D's w
// columns, matching HintFromSeed's parallelism boundary.
func RespondVec(d *Matrix, q []uint32) []uint32 {
	if uint64(len(q)) != d.Rows {
		panic(fmt.Sprintf("pir: RespondVec dimension mismatch: D has %d rows, query has %d entries", d.Rows, len(q)))
	}
	out := make([]uint32, d.Cols)
	partitionColumns(d.Cols, func(k uint64) {
		var acc uint32
		for i := uint64(0); i < d.Rows; i++ {
			acc += d.Get(i, k) * q[i]
		}
		out[k] = acc
	})
	return out
}

// TransposeMulVec computes M^T * s (length w) where M has shape n-by-w
// and s has length n, used by the client to undo the masking A^T*D
// contributes to a response.
func TransposeMulVec(m *Matrix, s []uint32) []uint32 {
	if uint64(len(s)) != m.Rows {
		panic(fmt.Sprintf("pir: TransposeMulVec dimension mismatch: M has %d rows, secret has %d entries", m.Rows, len(s)))
	}
	out := make([]uint32, m.Cols)
	partitionColumns(m.Cols, func(k uint64) {
		var acc uint32
		for i := uint64(0); i < m.Rows; i++ {
			acc += m.Get(i, k) * s[i]
		}
		out[k] = acc
	})
	return out
}

// RowWidth returns w, the number of plaintext_bits-wide digits needed to
// hold an elemSizeBits-wide value.
func RowWidth(elemSizeBits uint32, plaintextBits uint8) uint64 {
	pb := uint64(plaintextBits)
	return (uint64(elemSizeBits) + pb - 1) / pb
}

// EncodeRow chops value (elemSizeBits bits, little-endian byte order) into
// w digits of plaintextBits bits each, least-significant first, returning
// each digit as an unlifted element of Z_p. Digits are not yet scaled by
// Delta; that scaling happens at query/response time, not at encoding
// time (see component H).
func EncodeRow(value []byte, elemSizeBits uint32, plaintextBits uint8) ([]uint32, error) {
	maxBytes := int((elemSizeBits + 7) / 8)
	if len(value) > maxBytes {
		return nil, fmt.Errorf("%w: got %d bytes, element size allows %d", ErrDbEncodingOverflow, len(value), maxBytes)
	}
	w := RowWidth(elemSizeBits, plaintextBits)
	bits := bytesToBitsLE(value, uint64(elemSizeBits))
	row := make([]uint32, w)
	pb := uint64(plaintextBits)
	for i := uint64(0); i < w; i++ {
		start := i * pb
		end := start + pb
		if end > uint64(len(bits)) {
			end = uint64(len(bits))
		}
		row[i] = bitsToUint32LE(bits[start:end])
	}
	return row, nil
}

// DecodeRow packs w digits, each already reduced into [0, 2^plaintextBits),
// back into a byte string of ceil(elemSizeBits/8) bytes.
func DecodeRow(row []uint32, elemSizeBits uint32, plaintextBits uint8) []byte {
	pb := uint64(plaintextBits)
	bits := make([]bool, 0, uint64(len(row))*pb)
	for _, d := range row {
		for b := uint64(0); b < pb; b++ {
			bits = append(bits, (d>>b)&1 == 1)
		}
	}
	if uint64(len(bits)) > uint64(elemSizeBits) {
		bits = bits[:elemSizeBits]
	}
	nBytes := (int(elemSizeBits) + 7) / 8
	out := make([]byte, nBytes)
	for i, bit := range bits {
		if bit {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func bytesToBitsLE(b []byte, limit uint64) []bool {
	bits := make([]bool, 0, len(b)*8)
	for _, by := range b {
		for i := 0; i < 8; i++ {
			if uint64(len(bits)) >= limit {
				return bits
			}
			bits = append(bits, (by>>uint(i))&1 == 1)
		}
	}
	for uint64(len(bits)) < limit {
		bits = append(bits, false)
	}
	return bits
}

func bitsToUint32LE(bits []bool) uint32 {
	var v uint32
	for i, bit := range bits {
		if bit {
			v |= 1 << uint(i)
		}
	}
	return v
}
