package logix

import "testing"

// TestProbeLengthMonotonicity exercises spec property 5: against a mock
// array with indices 0..N-1, a read of count elements succeeds for any
// count <= N and is rejected for count > N, and the exponential-then-binary
// search returns exactly N for a range of N.
func TestProbeLengthMonotonicity(t *testing.T) {
	sizes := []int{0, 1, 2, 99, 100, 101, 255, 1000, 4096, 10000}
	for _, n := range sizes {
		readOK := func(count int) bool {
			return count <= n
		}
		got := probeLength(readOK)
		if got != n {
			t.Errorf("probeLength for N=%d: got %d", n, got)
		}
	}
}

func TestProbeLengthTerminatesPastCap(t *testing.T) {
	// An oracle that always accepts still terminates: doubling stops at the
	// first candidate above probeMaxCandidate, and bisection settles just
	// below it, so the result is at least probeMaxCandidate.
	readOK := func(count int) bool { return true }
	got := probeLength(readOK)
	if got < probeMaxCandidate {
		t.Errorf("probeLength with always-accepting oracle = %d, want >= %d", got, probeMaxCandidate)
	}
}
