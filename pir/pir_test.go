package pir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// queryRow runs one full index-PIR round trip and returns the decoded
// bytes at index, failing the test on any error.
func queryRow(t *testing.T, p *Params, d *Matrix, index uint64) []byte {
	t.Helper()
	sess, err := p.NewSession(index)
	require.NoError(t, err)
	q, err := sess.Query()
	require.NoError(t, err)
	r, err := Respond(d, q)
	require.NoError(t, err)
	val, err := sess.Parse(r)
	require.NoError(t, err)
	return val
}

func TestIndexPIRSmallRoundTrip(t *testing.T) {
	const elemSizeBits = 16
	const plaintextBits = 8
	values := make([][]byte, 8)
	for i := range values {
		values[i] = []byte{byte(i), byte(i + 1)} // DB[i] == 0x0i(i+1), e.g. DB[3] == 0x0304
	}

	d, err := NewIndexDatabase(values, elemSizeBits, plaintextBits)
	require.NoError(t, err)
	p, err := Setup(d, 32, elemSizeBits, plaintextBits)
	require.NoError(t, err)

	got := queryRow(t, p, d, 3)
	require.Equal(t, values[3], got)
}

func TestIndexPIRLargerRoundTrip(t *testing.T) {
	const m = 1024
	const elemSizeBits = 64
	const plaintextBits = 10
	values := make([][]byte, m)
	for i := range values {
		v := uint64(i)
		values[i] = []byte{
			byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
			byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
		}
	}

	d, err := NewIndexDatabase(values, elemSizeBits, plaintextBits)
	require.NoError(t, err)
	p, err := Setup(d, 512, elemSizeBits, plaintextBits)
	require.NoError(t, err)

	for _, idx := range []uint64{0, 1, 500, 1023} {
		got := queryRow(t, p, d, idx)
		require.Equal(t, values[idx], got, "index %d", idx)
	}
}

func TestSessionRejectsSecondQuery(t *testing.T) {
	values := [][]byte{{1}, {2}, {3}, {4}}
	d, err := NewIndexDatabase(values, 8, 4)
	require.NoError(t, err)
	p, err := Setup(d, 16, 8, 4)
	require.NoError(t, err)

	sess, err := p.NewSession(0)
	require.NoError(t, err)
	_, err = sess.Query()
	require.NoError(t, err)

	_, err = sess.Query()
	require.ErrorIs(t, err, ErrParamsAlreadyUsed)
}

func TestParseRejectsWrongLengthResponse(t *testing.T) {
	values := [][]byte{{1}, {2}, {3}, {4}}
	d, err := NewIndexDatabase(values, 8, 4)
	require.NoError(t, err)
	p, err := Setup(d, 16, 8, 4)
	require.NoError(t, err)

	sess, err := p.NewSession(0)
	require.NoError(t, err)
	q, err := sess.Query()
	require.NoError(t, err)
	r, err := Respond(d, q)
	require.NoError(t, err)

	_, err = sess.Parse(r[:len(r)-1])
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestParseRejectsSecondCall(t *testing.T) {
	values := [][]byte{{1}, {2}, {3}, {4}}
	d, err := NewIndexDatabase(values, 8, 4)
	require.NoError(t, err)
	p, err := Setup(d, 16, 8, 4)
	require.NoError(t, err)

	sess, err := p.NewSession(0)
	require.NoError(t, err)
	q, err := sess.Query()
	require.NoError(t, err)
	r, err := Respond(d, q)
	require.NoError(t, err)

	_, err = sess.Parse(r)
	require.NoError(t, err)
	_, err = sess.Parse(r)
	require.ErrorIs(t, err, ErrParamsAlreadyUsed)
}

func TestParamsWireRoundTrip(t *testing.T) {
	values := [][]byte{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	d, err := NewIndexDatabase(values, 8, 4)
	require.NoError(t, err)
	p, err := Setup(d, 16, 8, 4)
	require.NoError(t, err)

	blob, err := p.MarshalBinary()
	require.NoError(t, err)
	got, err := UnmarshalParams(blob)
	require.NoError(t, err)

	require.Equal(t, p.Seed, got.Seed)
	require.Equal(t, p.NumRows, got.NumRows)
	require.Equal(t, p.LWEDim, got.LWEDim)
	require.Equal(t, p.Width, got.Width)
	require.Equal(t, p.Hint.Data, got.Hint.Data)
}
