package mltrain

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a flattened regression tree. Leaves have Feature -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// RegressionTree is a CART tree split on variance reduction
type RegressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// Predict walks the tree for one feature vector
func (t *RegressionTree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// RandomForest is a bagged ensemble of regression trees
type RandomForest struct {
	Trees       []RegressionTree `json:"trees"`
	Features    int              `json:"features"`
	Importances []float64        `json:"importances"`
}

// FitForest grows cfg.Trees trees on bootstrap samples of (X, y). Every split
// considers all features. Tree i draws from a source seeded with cfg.Seed+i.
func FitForest(X [][]float64, y []float64, cfg ForestConfig) *RandomForest {
	nFeatures := 0
	if len(X) > 0 {
		nFeatures = len(X[0])
	}
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	forest := &RandomForest{
		Trees:       make([]RegressionTree, cfg.Trees),
		Features:    nFeatures,
		Importances: make([]float64, nFeatures),
	}
	if len(X) == 0 {
		return forest
	}

	counted := 0
	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}

		b := &treeBuilder{X: X, y: y, cfg: cfg, gains: make([]float64, nFeatures)}
		b.grow(sample, 0)
		forest.Trees[t] = RegressionTree{Nodes: b.nodes}

		total := 0.0
		for _, g := range b.gains {
			total += g
		}
		if total > 0 {
			for f, g := range b.gains {
				forest.Importances[f] += g / total
			}
			counted++
		}
	}

	if counted > 0 {
		sum := 0.0
		for f := range forest.Importances {
			forest.Importances[f] /= float64(counted)
			sum += forest.Importances[f]
		}
		if sum > 0 {
			for f := range forest.Importances {
				forest.Importances[f] /= sum
			}
		}
	}

	return forest
}

// Predict averages the tree predictions
func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

type treeBuilder struct {
	X     [][]float64
	y     []float64
	cfg   ForestConfig
	nodes []treeNode
	gains []float64
}

// grow appends the subtree for idx and returns its node index
func (b *treeBuilder) grow(idx []int, depth int) int {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	self := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: -1, Value: mean})

	if depth >= b.cfg.MaxDepth || len(idx) < b.cfg.MinSamplesSplit || sse <= 1e-12 {
		return self
	}

	feature, threshold, gain, ok := b.bestSplit(idx, sum, sumSq, sse)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return self
	}

	b.gains[feature] += gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = treeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: mean}
	return self
}

// bestSplit scans every feature for the threshold with the largest SSE reduction
func (b *treeBuilder) bestSplit(idx []int, sum, sumSq, parentSSE float64) (int, float64, float64, bool) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	sorted := make([]int, len(idx))
	n := len(idx)

	for f := range b.gains {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})

		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			v := b.y[sorted[k]]
			leftSum += v
			leftSq += v * v

			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}

			ln := float64(k + 1)
			rn := float64(n - k - 1)
			rightSum := sum - leftSum
			rightSq := sumSq - leftSq
			sse := (leftSq - leftSum*leftSum/ln) + (rightSq - rightSum*rightSum/rn)
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				threshold := cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				bestFeature = f
				bestThreshold = threshold
				bestGain = gain
			}
		}
	}

	if bestFeature < 0 || math.IsNaN(bestGain) {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}
