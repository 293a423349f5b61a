package pir

import "fmt"

// Parse recovers the database value at sess's index from the server's
// response, consuming the session: s is zeroed afterward, and a second
// Parse or Query call on the same session fails.
func (sess *Session) Parse(response []uint32) ([]byte, error) {
	if !sess.queried {
		return nil, fmt.Errorf("%w: Parse called before Query", ErrInvalidParams)
	}
	if sess.parsed {
		return nil, ErrParamsAlreadyUsed
	}
	if uint64(len(response)) != sess.params.Width {
		return nil, fmt.Errorf("%w: response has %d entries, want %d", ErrDimensionMismatch, len(response), sess.params.Width)
	}

	mask := TransposeMulVec(sess.params.Hint, sess.s)
	row := make([]uint32, sess.params.Width)
	for i := range row {
		row[i] = sess.params.Round(response[i] - mask[i])
	}

	sess.parsed = true
	for i := range sess.s {
		sess.s[i] = 0
	}
	return DecodeRow(row, sess.params.ElemSizeBits, sess.params.PlaintextBits), nil
}
