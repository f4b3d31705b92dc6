package atomix

import (
	"math/rand"
	"time"
)

// randomElectionTimeout returns a duration uniformly distributed in
// [base, 2*base). Randomising the timeout this way keeps followers from
// timing out in lockstep and triggering dueling elections.
func randomElectionTimeout(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	offset := rand.Int63n(int64(base))
	return base + time.Duration(offset)
}
