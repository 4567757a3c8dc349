package loader

import "math/rand/v2"

// KFoldSplit assigns the indices 0..n-1 to k folds after a seeded shuffle.
// Fold sizes differ by at most one.
func KFoldSplit(n, k int, seed uint64) [][]int {
	rng := rand.New(rand.NewPCG(seed, uint64(n)))
	indices := rng.Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds
}

// TrainTestSplit returns shuffled train and test indices with
// int(n·testRatio) rows held out.
func TrainTestSplit(n int, testRatio float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, uint64(n)))
	indices := rng.Perm(n)
	nTest := int(float64(n) * testRatio)
	return indices[nTest:], indices[:nTest]
}

// Complement returns the indices in 0..n-1 that are not in idx, ascending.
func Complement(n int, idx []int) []int {
	skip := make([]bool, n)
	for _, i := range idx {
		skip[i] = true
	}
	out := make([]int, 0, n-len(idx))
	for i := range n {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}
