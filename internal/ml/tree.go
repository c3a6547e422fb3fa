package ml

import (
	"fmt"
	"math/rand"
	"slices"
)

// Node is one entry in a flattened decision tree. Leaves carry the
// positive-class fraction of the training samples that reached them.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Prob      float64
}

// Tree is a binary CART classifier stored as a flat node slice rooted at 0.
type Tree struct {
	Nodes []Node
}

// Predict returns the positive-class probability for x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// check reports the first node that Predict could not follow. Children
// always sit after their parent, so a valid tree has no cycles.
func (t *Tree) check(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if !(n.Prob >= 0 && n.Prob <= 1) {
				return fmt.Errorf("node %d: leaf probability %v outside [0, 1]", i, n.Prob)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, c := range [2]int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
	}
	return nil
}

// Depth returns the longest root-to-leaf edge count.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	rng         *rand.Rand
	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int
	nodes       []Node
}

func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Prob: float64(pos) / float64(n)})

	if depth >= b.maxDepth || n < b.minSplit || pos == 0 || pos == n {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Prob: b.nodes[self].Prob}
	return self
}

// bestSplit searches a random feature subset for the threshold with the
// lowest weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, pos int) (int, float64, bool) {
	n := len(idx)
	numFeatures := len(b.x[idx[0]])
	candidates := b.rng.Perm(numFeatures)[:b.maxFeatures]

	best := gini(pos, n) * float64(n)
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := make([]int, n)
	for _, f := range candidates {
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int {
			switch va, vc := b.x[a][f], b.x[c][f]; {
			case va < vc:
				return -1
			case va > vc:
				return 1
			default:
				return 0
			}
		})

		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += b.y[sorted[k]]
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			score := gini(leftPos, nl)*float64(nl) + gini(pos-leftPos, nr)*float64(nr)
			if score < best {
				best = score
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
