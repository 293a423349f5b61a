package pir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordPIRRoundTrip(t *testing.T) {
	const n = 100
	const elemSizeBits = 40 // 5 ASCII bytes
	const plaintextBits = 10

	keys := make([]string, n)
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("k%d", i)
		values[i] = []byte(fmt.Sprintf("v%04d", i))
	}

	kv, err := FromKeyValues(keys, values, elemSizeBits, plaintextBits, 64)
	require.NoError(t, err)

	ks, err := kv.Params.NewKeywordSession("k42")
	require.NoError(t, err)
	qs, err := ks.Queries()
	require.NoError(t, err)
	resp, err := kv.RespondAll(qs)
	require.NoError(t, err)
	got, err := ks.Parse(resp)
	require.NoError(t, err)

	require.Equal(t, []byte("v0042"), got)
}

func TestKeywordSessionRejectsSecondQueries(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	values := [][]byte{{1}, {2}, {3}, {4}, {5}}
	kv, err := FromKeyValues(keys, values, 8, 4, 32)
	require.NoError(t, err)

	ks, err := kv.Params.NewKeywordSession("a")
	require.NoError(t, err)
	_, err = ks.Queries()
	require.NoError(t, err)

	_, err = ks.Queries()
	require.ErrorIs(t, err, ErrParamsAlreadyUsed)
}

func TestNewKeywordDatabaseRejectsDuplicateKeys(t *testing.T) {
	keys := []string{"a", "a"}
	values := [][]byte{{1}, {2}}
	_, _, err := NewKeywordDatabase(keys, values, 8, 4)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestKeywordParamsWireRoundTrip(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	values := [][]byte{{1}, {2}, {3}, {4}, {5}}
	kv, err := FromKeyValues(keys, values, 8, 4, 32)
	require.NoError(t, err)

	blob, err := kv.Params.MarshalBinary()
	require.NoError(t, err)
	got, err := UnmarshalKeywordParams(blob)
	require.NoError(t, err)

	require.Equal(t, kv.Params.Filter.Seed, got.Filter.Seed)
	require.Equal(t, kv.Params.Filter.SegmentLength, got.Filter.SegmentLength)
	require.Equal(t, kv.Params.Filter.SegmentCountLen, got.Filter.SegmentCountLen)
	require.Equal(t, kv.Params.NumRows, got.NumRows)
}
