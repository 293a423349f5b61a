package pir

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/zeebo/blake3"
)

// Seed is the 32-byte public seed from which the server's LWE matrix A is
// deterministically expanded.
type Seed [32]byte

// NewSeed draws a fresh, uniformly random public seed.
func NewSeed() (Seed, error) {
	var s Seed
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// rowXOF returns a blake3 extendable-output stream keyed to (seed, row).
// Each row's stream is independent, so rows may be expanded concurrently.
func rowXOF(seed Seed, row uint64) io.Reader {
	h := blake3.New()
	h.Write(seed[:])
	var rowBuf [8]byte
	binary.LittleEndian.PutUint64(rowBuf[:], row)
	h.Write(rowBuf[:])
	return h.Digest()
}

// expandARow deterministically expands row `row` of the public matrix A
// (shape m-by-n) into n field elements, reading little-endian u32s off the
// XOF stream keyed to (seed, row). Concealed given only the seed, and
// reproducible by any party holding the seed.
func expandARow(seed Seed, row, n uint64) []uint32 {
	out := make([]uint32, n)
	xof := rowXOF(seed, row)
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(xof, buf); err != nil {
		panic("pir: XOF read failed: " + err.Error())
	}
	for i := uint64(0); i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out
}

// sampleUniformVector draws n field elements uniformly from Z_q using
// crypto/rand, for the client's fresh LWE secret s.
func sampleUniformVector(n uint64) ([]uint32, error) {
	out := make([]uint32, n)
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out, nil
}

// errorSigma is the standard deviation of the centered discrete Gaussian
// used for LWE error terms. It is small enough that, for every plaintext
// width this module supports (1..16 bits, so Delta >= 2^16), samples stay
// within Delta/4 with overwhelming probability: a width-16-sigma tail is
// below 2^-40, and 16*errorSigma << 2^14.
const errorSigma = 3.2

// noiseSampler is a Peikert-style inversion sampler for the centered
// discrete Gaussian D_Z(0, errorSigma), built once and reused for every
// error vector this process draws.
var noiseSampler = newDiscreteGaussian(errorSigma)

type discreteGaussian struct {
	a   float64   // P[X=0]
	cdf []float64 // cdf[i] = P[0 < X <= i+1]
}

func newDiscreteGaussian(sigma float64) *discreteGaussian {
	variance := sigma * sigma
	// tail cut at 12 sigma: negligible (< 2^-40) probability mass beyond it.
	bound := int(math.Ceil(12 * sigma))
	sum := 1.0
	for x := 1; x <= bound; x++ {
		sum += 2 * math.Exp(-float64(x*x)/(2*variance))
	}
	dg := &discreteGaussian{a: 1 / sum}
	dg.cdf = make([]float64, bound)
	for x := 1; x <= bound; x++ {
		p := dg.a * math.Exp(-float64(x*x)/(2*variance))
		if x == 1 {
			dg.cdf[x-1] = p
		} else {
			dg.cdf[x-1] = dg.cdf[x-2] + p
		}
	}
	return dg
}

func (dg *discreteGaussian) sample() int32 {
	u := randFloat64() - 0.5
	if math.Abs(u) <= dg.a/2 {
		return 0
	}
	target := math.Abs(u) - dg.a/2
	idx := sort.SearchFloat64s(dg.cdf, target)
	mag := int32(idx + 1)
	if u < 0 {
		mag = -mag
	}
	return mag
}

// randFloat64 returns a uniform float64 in [0,1) sourced from crypto/rand.
func randFloat64() float64 {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic("pir: failed to read randomness: " + err.Error())
	}
	return float64(binary.LittleEndian.Uint64(b[:])>>11) / (1 << 53)
}

// sampleErrorVector draws m independent LWE error terms, each a signed
// int32 reduced into Z_q by wrapping (natural two's-complement wrap,
// matching the "natural wrap" convention the rest of this module uses).
func sampleErrorVector(m uint64) []uint32 {
	out := make([]uint32, m)
	for i := range out {
		out[i] = uint32(noiseSampler.sample())
	}
	return out
}
