package pir

import (
	"fmt"
	"time"
)

// Setup runs the offline server precomputation: draw a fresh public
// seed, expand A implicitly from it, and compute the hint M = A^T * D.
// The returned Params is safe to hand to any number of clients; it
// carries no secret.
func Setup(d *Matrix, n uint64, elemSizeBits uint32, plaintextBits uint8) (*Params, error) {
	if d.Cols == 0 || d.Rows == 0 {
		return nil, fmt.Errorf("%w: empty database matrix", ErrInvalidParams)
	}
	start := time.Now()
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	hint := HintFromSeed(seed, n, d)
	logElapsed("Setup", start)
	logRate("Setup", int(4*d.Rows*d.Cols), time.Since(start))
	p := &Params{
		Seed:          seed,
		Hint:          hint,
		NumRows:       d.Rows,
		LWEDim:        n,
		Width:         d.Cols,
		PlaintextBits: plaintextBits,
		ElemSizeBits:  elemSizeBits,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
