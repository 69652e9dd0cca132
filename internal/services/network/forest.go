package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Direction classes of a pct_change label.
const (
	ClassDown = 0
	ClassFlat = 1
	ClassUp   = 2
)

// Direction classifies a label by its sign.
func Direction(v float64) int {
	switch {
	case v < 0:
		return ClassDown
	case v > 0:
		return ClassUp
	default:
		return ClassFlat
	}
}

// TreeNode is one node of a flattened tree. Children are indices into the
// same slice; leaves carry the mean label of the samples that reached them.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// Forest is a bagged set of decision trees. Splits minimise the gini impurity
// of the direction classes; predictions average the leaf values.
type Forest struct {
	trees    [][]TreeNode
	shape    []int
	inputs   int
	size     int
	maxDepth int
	rng      *rand.Rand
	opts     options
}

type forestSnapshot struct {
	InputShape []int        `json:"input_shape"`
	MaxDepth   int          `json:"max_depth"`
	Trees      [][]TreeNode `json:"trees"`
}

// NewForest builds an untrained forest of p.Trees trees.
func NewForest(p Profile, shape []int, opts ...Option) (*Forest, error) {
	inputs := 1
	for _, s := range shape {
		inputs *= s
	}
	if len(shape) == 0 || inputs < 1 {
		return nil, fmt.Errorf("forest needs a non-empty input, got %v", shape)
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Forest{
		shape:    append([]int(nil), shape...),
		inputs:   inputs,
		size:     p.Trees,
		maxDepth: p.MaxDepth,
		rng:      rand.New(rand.NewSource(seed)),
		opts:     buildOptions(opts),
	}, nil
}

// Fit grows every tree on a bootstrap sample of x and returns the training MSE.
func (f *Forest) Fit(ctx context.Context, x [][]float64, y []float64) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("no training samples")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d samples for %d labels", len(x), len(y))
	}
	for i, row := range x {
		if len(row) != f.inputs {
			return 0, fmt.Errorf("sample %d has %d values, forest expects %d", i, len(row), f.inputs)
		}
	}
	// a single tree sees every sample once
	bootstrap := f.size > 1
	features := max(1, int(math.Sqrt(float64(f.inputs))))
	if !bootstrap {
		features = f.inputs
	}

	f.trees = make([][]TreeNode, 0, f.size)
	for t := 0; t < f.size; t++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		idx := make([]int, len(x))
		for i := range idx {
			if bootstrap {
				idx[i] = f.rng.Intn(len(x))
			} else {
				idx[i] = i
			}
		}
		g := grower{x: x, y: y, maxDepth: f.maxDepth, features: features, rng: f.rng}
		f.trees = append(f.trees, g.grow(idx, 0))
	}

	loss := 0.0
	for i, row := range x {
		p, _ := f.Predict(row)
		loss += (p - y[i]) * (p - y[i])
	}
	loss /= float64(len(x))
	f.opts.epoch(1, loss)
	return loss, nil
}

// Predict averages the leaf value of every tree.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(x) != f.inputs {
		return 0, fmt.Errorf("input has %d values, forest expects %d", len(x), f.inputs)
	}
	sum := 0.0
	for _, nodes := range f.trees {
		leaf, err := walk(nodes, x)
		if err != nil {
			return 0, err
		}
		sum += leaf.Value
	}
	return sum / float64(len(f.trees)), nil
}

// PredictClass is the majority direction class over the trees and the
// share of trees that voted for it.
func (f *Forest) PredictClass(x []float64) (int, float64, error) {
	if len(f.trees) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	if len(x) != f.inputs {
		return 0, 0, fmt.Errorf("input has %d values, forest expects %d", len(x), f.inputs)
	}
	var votes [3]int
	for _, nodes := range f.trees {
		leaf, err := walk(nodes, x)
		if err != nil {
			return 0, 0, err
		}
		votes[leaf.ClassLabel]++
	}
	best := ClassFlat
	for c := range votes {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return best, float64(votes[best]) / float64(len(f.trees)), nil
}

func walk(nodes []TreeNode, x []float64) (TreeNode, error) {
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(x) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func (f *Forest) InputShape() []int { return append([]int(nil), f.shape...) }

func (f *Forest) Variant() string { return VariantForest }

func (f *Forest) MarshalJSON() ([]byte, error) {
	if len(f.trees) == 0 {
		return nil, errors.New("model not trained")
	}
	return json.Marshal(forestSnapshot{InputShape: f.shape, MaxDepth: f.maxDepth, Trees: f.trees})
}

// UnmarshalForest restores a forest written by MarshalJSON.
func UnmarshalForest(b []byte) (*Forest, error) {
	var s forestSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if len(s.Trees) == 0 {
		return nil, fmt.Errorf("decode forest: no trees")
	}
	inputs := 1
	for _, d := range s.InputShape {
		inputs *= d
	}
	for i, nodes := range s.Trees {
		if len(nodes) == 0 {
			return nil, fmt.Errorf("decode forest: tree %d is empty", i)
		}
		for _, n := range nodes {
			if n.ClassLabel < ClassDown || n.ClassLabel > ClassUp {
				return nil, fmt.Errorf("decode forest: tree %d has class %d", i, n.ClassLabel)
			}
		}
	}
	return &Forest{
		trees:    s.Trees,
		shape:    s.InputShape,
		inputs:   inputs,
		size:     len(s.Trees),
		maxDepth: s.MaxDepth,
	}, nil
}

type grower struct {
	x        [][]float64
	y        []float64
	maxDepth int
	features int
	rng      *rand.Rand
}

func (g *grower) leaf(idx []int) []TreeNode {
	counts := [3]int{}
	sum := 0.0
	for _, i := range idx {
		counts[Direction(g.y[i])]++
		sum += g.y[i]
	}
	class := ClassFlat
	for c := range counts {
		if counts[c] > counts[class] {
			class = c
		}
	}
	return []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: class,
		Value:      sum / float64(len(idx)),
		IsLeaf:     true,
	}}
}

// grow returns the subtree for idx with its root first, then the left
// subtree, then the right one.
func (g *grower) grow(idx []int, depth int) []TreeNode {
	if depth >= g.maxDepth || g.pure(idx) {
		return g.leaf(idx)
	}
	feature, threshold, ok := g.bestSplit(idx)
	if !ok {
		return g.leaf(idx)
	}
	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	root := g.leaf(idx)[0]
	leftNodes := g.grow(left, depth+1)
	rightNodes := g.grow(right, depth+1)
	root.IsLeaf = false
	root.FeatureIdx = feature
	root.Threshold = threshold
	root.LeftChild = 1
	root.RightChild = 1 + len(leftNodes)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	return append(nodes, rightNodes...)
}

func (g *grower) pure(idx []int) bool {
	first := Direction(g.y[idx[0]])
	for _, i := range idx[1:] {
		if Direction(g.y[i]) != first {
			return false
		}
	}
	return true
}

// bestSplit tries the median of a random subset of features.
func (g *grower) bestSplit(idx []int) (int, float64, bool) {
	candidates := g.rng.Perm(len(g.x[0]))[:g.features]
	best, bestThreshold, bestImpurity := -1, 0.0, math.MaxFloat64
	values := make([]float64, len(idx))
	for _, feature := range candidates {
		for k, i := range idx {
			values[k] = g.x[i][feature]
		}
		threshold := median(values)
		var left, right [3]int
		for _, i := range idx {
			if g.x[i][feature] <= threshold {
				left[Direction(g.y[i])]++
			} else {
				right[Direction(g.y[i])]++
			}
		}
		impurity, ok := weightedGini(left, right)
		if ok && impurity < bestImpurity {
			best, bestThreshold, bestImpurity = feature, threshold, impurity
		}
	}
	return best, bestThreshold, best >= 0
}

// weightedGini is false when one side is empty.
func weightedGini(left, right [3]int) (float64, bool) {
	nl, nr := left[0]+left[1]+left[2], right[0]+right[1]+right[2]
	if nl == 0 || nr == 0 {
		return 0, false
	}
	total := float64(nl + nr)
	return float64(nl)/total*gini(left, nl) + float64(nr)/total*gini(right, nr), true
}

func gini(counts [3]int, n int) float64 {
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		impurity -= p * p
	}
	return impurity
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
