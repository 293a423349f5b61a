package pir

import (
	"fmt"
	"time"
)

// Respond computes the server's answer r = D^T * query for a single
// client query against database d, using the column-partitioned kernel
// in matrix.go. The server learns nothing about which index the client
// wants: query is computationally indistinguishable from uniform.
func Respond(d *Matrix, query []uint32) ([]uint32, error) {
	if uint64(len(query)) != d.Rows {
		return nil, fmt.Errorf("%w: query has %d entries, database has %d rows", ErrDimensionMismatch, len(query), d.Rows)
	}
	start := time.Now()
	r := RespondVec(d, query)
	logElapsed("Respond", start)
	return r, nil
}
