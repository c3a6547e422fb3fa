package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles the indices 0..n-1 with seed and returns the
// train and test partitions. The test partition has ceil(testSize*n) rows.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d samples with test size %v", n, testSize)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
