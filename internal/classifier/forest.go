package classifier

import (
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Node is one split or leaf in a decision tree. Leaves have Left == -1 and
// carry the majority class of the samples that reached them.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Class     int
}

// Tree is a CART decision tree stored as a flat node slice for cheap
// serialization.
type Tree struct {
	Nodes []Node
}

// Predict routes one feature vector to a leaf and returns its class.
func (t *Tree) Predict(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of decision trees voting by majority. Ties
// resolve to the lowest class code so predictions are deterministic.
type Forest struct {
	Trees      []*Tree
	NumClasses int
	Seed       int64
}

// FitForest trains numTrees trees on bootstrap samples of (X, y). Trees are
// fitted concurrently; each tree derives its own seed from the base seed
// and its index so the result does not depend on goroutine scheduling.
func FitForest(X [][]float64, y []int, numClasses, numTrees int, seed int64) *Forest {
	f := &Forest{
		Trees:      make([]*Tree, numTrees),
		NumClasses: numClasses,
		Seed:       seed,
	}

	var g errgroup.Group
	g.SetLimit(8)
	for i := range f.Trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			f.Trees[i] = fitTree(X, y, numClasses, rng)
			return nil
		})
	}
	// Tree fitting cannot fail; Wait only synchronizes.
	_ = g.Wait()
	return f
}

// Predict returns the majority-vote class for one feature vector.
func (f *Forest) Predict(x []float64) int {
	votes := make([]int, f.NumClasses)
	for _, t := range f.Trees {
		c := t.Predict(x)
		if c >= 0 && c < f.NumClasses {
			votes[c]++
		}
	}
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return best
}

// fitTree grows one tree on a bootstrap sample with sqrt-feature
// subsampling at every split.
func fitTree(X [][]float64, y []int, numClasses int, rng *rand.Rand) *Tree {
	n := len(X)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}

	t := &Tree{}
	t.grow(X, y, sample, numClasses, rng)
	return t
}

func (t *Tree) grow(X [][]float64, y []int, idx []int, numClasses int, rng *rand.Rand) int {
	counts := make([]int, numClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	majority, pure := majorityClass(counts, len(idx))

	node := Node{Left: -1, Right: -1, Class: majority}
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if pure || len(idx) < 2 {
		return self
	}

	feature, threshold, ok := bestSplit(X, y, idx, numClasses, rng)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	t.Nodes[self].Feature = feature
	t.Nodes[self].Threshold = threshold
	t.Nodes[self].Left = t.grow(X, y, left, numClasses, rng)
	t.Nodes[self].Right = t.grow(X, y, right, numClasses, rng)
	return self
}

func majorityClass(counts []int, total int) (class int, pure bool) {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best, counts[best] == total
}

// bestSplit searches a random sqrt(p) feature subset for the split with the
// lowest weighted Gini impurity.
func bestSplit(X [][]float64, y []int, idx []int, numClasses int, rng *rand.Rand) (int, float64, bool) {
	numFeatures := len(X[idx[0]])
	if numFeatures == 0 {
		return -1, 0, false
	}
	mtry := int(math.Sqrt(float64(numFeatures)))
	if mtry < 1 {
		mtry = 1
	}
	candidates := rng.Perm(numFeatures)[:mtry]

	bestGini := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, feat := range candidates {
		values := make([]float64, 0, len(idx))
		for _, i := range idx {
			values = append(values, X[i][feat])
		}
		sort.Float64s(values)

		for vi := 0; vi+1 < len(values); vi++ {
			if values[vi] == values[vi+1] {
				continue
			}
			threshold := (values[vi] + values[vi+1]) / 2
			g := splitGini(X, y, idx, feat, threshold, numClasses)
			if g < bestGini {
				bestGini = g
				bestFeature = feat
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func splitGini(X [][]float64, y []int, idx []int, feat int, threshold float64, numClasses int) float64 {
	leftCounts := make([]int, numClasses)
	rightCounts := make([]int, numClasses)
	var nl, nr int
	for _, i := range idx {
		if X[i][feat] <= threshold {
			leftCounts[y[i]]++
			nl++
		} else {
			rightCounts[y[i]]++
			nr++
		}
	}
	total := float64(nl + nr)
	return float64(nl)/total*gini(leftCounts, nl) + float64(nr)/total*gini(rightCounts, nr)
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		impurity -= p * p
	}
	return impurity
}
