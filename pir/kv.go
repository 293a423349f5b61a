package pir

import (
	"fmt"

	"github.com/chalametpir/chalametpir/filter"
	"github.com/lukechampine/fastxor"
)

// KeywordParams is the public parameter blob for a keyword-PIR shard: an
// ordinary index-PIR Params over the Binary Fuse Filter's slot matrix,
// plus the filter's layout so a client can compute which three slots a
// key owns without seeing the slot contents.
type KeywordParams struct {
	*Params
	Filter filter.Params
}

// SetupKeyword runs Setup over a filter's slot matrix and bundles the
// filter's public layout alongside the resulting Params.
func SetupKeyword(d *Matrix, filt *filter.Filter, n uint64, elemSizeBits uint32, plaintextBits uint8) (*KeywordParams, error) {
	p, err := Setup(d, n, elemSizeBits, plaintextBits)
	if err != nil {
		return nil, err
	}
	return &KeywordParams{Params: p, Filter: filt.Params}, nil
}

// KeywordSession looks a single key up in a keyword-PIR shard by issuing
// three independent one-shot index sessions, one per slot the key's
// filter hashes land on, and XOR-combining the three recovered rows in
// the clear — mirroring how the filter's slots were XOR-combined at
// construction time (see filter.xorInto). Recovery happens digit-packed
// and in the clear, never inside the noisy LWE domain, so the XOR
// combination the filter uses and the additive reconstruction index-PIR
// uses never have to agree with each other.
type KeywordSession struct {
	kp       *KeywordParams
	key      []byte
	sessions [3]*Session
	queried  bool
}

// NewKeywordSession starts a one-shot lookup of key against kp's shard.
func (kp *KeywordParams) NewKeywordSession(key string) (*KeywordSession, error) {
	h0, h1, h2 := kp.Filter.HashEval([]byte(key))
	ks := &KeywordSession{key: []byte(key), kp: kp}
	for i, h := range [3]uint64{h0, h1, h2} {
		s, err := kp.Params.NewSession(h)
		if err != nil {
			return nil, err
		}
		ks.sessions[i] = s
	}
	return ks, nil
}

// Queries draws fresh per-slot queries for all three owned slots. The
// three query vectors are independent; they may be sent to the server
// in any order, or batched into one round trip.
func (ks *KeywordSession) Queries() ([3][]uint32, error) {
	if ks.queried {
		return [3][]uint32{}, ErrParamsAlreadyUsed
	}
	var qs [3][]uint32
	for i, s := range ks.sessions {
		q, err := s.Query()
		if err != nil {
			return [3][]uint32{}, err
		}
		qs[i] = q
	}
	ks.queried = true
	return qs, nil
}

// Parse recovers the value stored for key from the three slot responses,
// XORing the three decoded rows together and then XORing out the key's
// fingerprint row.
func (ks *KeywordSession) Parse(responses [3][]uint32) ([]byte, error) {
	combined, err := ks.sessions[0].Parse(responses[0])
	if err != nil {
		return nil, fmt.Errorf("slot 0: %w", err)
	}
	for i := 1; i < 3; i++ {
		row, err := ks.sessions[i].Parse(responses[i])
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		fastxor.Bytes(combined, combined, row)
	}

	fp := ks.kp.Filter.FingerprintRow(ks.key, ks.kp.Width, ks.kp.PlaintextBits)
	fpBytes := DecodeRow(fp, ks.kp.ElemSizeBits, ks.kp.PlaintextBits)
	fastxor.Bytes(combined, combined, fpBytes)
	return combined, nil
}
