package pir

import (
	"fmt"
	"time"
)

// Verbose gates the diagnostic printing below. It defaults to off: Setup
// and Respond never print anything unless a caller opts in.
var Verbose = false

func logElapsed(label string, start time.Time) time.Duration {
	elapsed := time.Since(start)
	if Verbose {
		fmt.Printf("%s: elapsed %s\n", label, elapsed)
	}
	return elapsed
}

// logRate prints throughput for a bytes-moved/elapsed-time pair, in the
// same MB/s shape the core's benchmark harness reports.
func logRate(label string, bytesMoved int, elapsed time.Duration) {
	if !Verbose {
		return
	}
	mbps := float64(bytesMoved) / (1024 * 1024 * elapsed.Seconds())
	fmt.Printf("%s: rate %.2f MB/s\n", label, mbps)
}
