package filter

import (
	"crypto/rand"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSeedSource() func() (uint64, error) {
	return func() (uint64, error) {
		var b [8]byte
		if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
			return 0, err
		}
		var v uint64
		for i, by := range b {
			v |= uint64(by) << (8 * i)
		}
		return v, nil
	}
}

func TestConstructAndRetrieveRoundTrip(t *testing.T) {
	const n = 200
	const width = 4

	keys := make([][]byte, n)
	values := make([][]uint32, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		row := make([]uint32, width)
		for j := range row {
			row[j] = uint32(i*width+j) % 1024
		}
		values[i] = row
	}

	f, err := New(keys, values, width, 10, testSeedSource())
	require.NoError(t, err)
	require.Equal(t, f.Size(), uint64(len(f.Slots)))

	for i := 0; i < n; i++ {
		got := f.Retrieve(keys[i])
		require.Equal(t, values[i], got, "key %s", keys[i])
	}
}

func TestHashEvalDistinctSlots(t *testing.T) {
	f, err := New([][]byte{[]byte("a")}, [][]uint32{{1, 2, 3}}, 3, 8, testSeedSource())
	require.NoError(t, err)

	h0, h1, h2 := f.HashEval([]byte("a"))
	require.NotEqual(t, h0, h1)
	require.NotEqual(t, h1, h2)
	require.NotEqual(t, h0, h2)
	require.Less(t, h0, f.Size())
	require.Less(t, h1, f.Size())
	require.Less(t, h2, f.Size())
}

func TestFingerprintRowFirstDigitNonzero(t *testing.T) {
	p := Params{Seed: 42, SegmentLength: minSegmentLength, SegmentLengthMask: minSegmentLength - 1, SegmentCountLen: minSegmentLength}
	for i := 0; i < 64; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		row := p.FingerprintRow(key, 4, 10)
		require.NotZero(t, row[0])
		for _, d := range row {
			require.Less(t, d, uint32(1<<10))
		}
	}
}

// TestPeelingFailsWhenOverloaded exercises the failure branch New retries
// on: peeling can produce at most one stack entry per slot, so a key set
// larger than the slot table can never fully peel, for any seed.
func TestPeelingFailsWhenOverloaded(t *testing.T) {
	params := Params{Seed: 7, SegmentLength: 2, SegmentLengthMask: 1, SegmentCountLen: 2}
	const m = 6 // SegmentCountLen + 2*SegmentLength

	keys := make([][]byte, 10) // n > m: peeling can never succeed
	values := make([][]uint32, 10)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("overload-%d", i))
		values[i] = []uint32{uint32(i)}
	}

	_, ok := peelAndAssign(params, keys, values, 1, 8, m)
	require.False(t, ok)
}

func TestDimensionsRespectSegmentClamp(t *testing.T) {
	segLen, segCountLen, m := dimensions(3)
	require.GreaterOrEqual(t, segLen, uint64(minSegmentLength))
	require.LessOrEqual(t, segLen, uint64(maxSegmentLength))
	require.GreaterOrEqual(t, segCountLen, segLen)
	require.Equal(t, segCountLen+2*segLen, m)
}
