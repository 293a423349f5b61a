package pir

import "fmt"

// Session is a one-shot client query/response round for a single index
// PIR lookup. Its secret s is drawn fresh by Query and must never be
// reused across two queries; Session enforces that by refusing a second
// Query or Parse call.
type Session struct {
	params  *Params
	index   uint64
	s       []uint32
	queried bool
	parsed  bool
}

// NewSession starts a one-shot session for retrieving row index from p's
// database.
func (p *Params) NewSession(index uint64) (*Session, error) {
	if index >= p.NumRows {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidParams, index, p.NumRows)
	}
	return &Session{params: p, index: index}, nil
}

// Query draws a fresh secret s and error vector e and returns
// q = A*s + e + Delta*e_index, the masked one-hot query a server can
// answer without learning index.
func (sess *Session) Query() ([]uint32, error) {
	if sess.queried {
		return nil, ErrParamsAlreadyUsed
	}
	s, err := sampleUniformVector(sess.params.LWEDim)
	if err != nil {
		return nil, err
	}
	e := sampleErrorVector(sess.params.NumRows)
	q := MulVecStreamed(sess.params.NumRows, sess.params.LWEDim, func(i uint64) []uint32 {
		return expandARow(sess.params.Seed, i, sess.params.LWEDim)
	}, s)
	for i := range q {
		q[i] += e[i]
	}
	q[sess.index] += sess.params.Delta()

	sess.s = s
	sess.queried = true
	return q, nil
}
