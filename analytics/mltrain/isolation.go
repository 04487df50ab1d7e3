package mltrain

import (
	"math"
	"math/rand"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
)

const eulerGamma = 0.5772156649015329

type isoNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Size      int     `json:"s,omitempty"`
}

// IsolationTree partitions a subsample with random axis-aligned cuts
type IsolationTree struct {
	Nodes []isoNode `json:"nodes"`
}

func (t *IsolationTree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return float64(depth) + averagePathLength(n.Size)
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

type IsolationConfig struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

// IsolationForest scores points by how quickly random cuts isolate them.
// Scores follow the convention where lower is more anomalous; Offset is the
// contamination quantile of the training scores.
type IsolationForest struct {
	Trees      []IsolationTree `json:"trees"`
	SampleSize int             `json:"sample_size"`
	Offset     float64         `json:"offset"`
}

// FitIsolationForest trains on X and sets the decision offset so that roughly
// cfg.Contamination of the training points fall below it.
func FitIsolationForest(X [][]float64, cfg IsolationConfig) *IsolationForest {
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	sampleSize := cfg.MaxSamples
	if sampleSize <= 0 || sampleSize > len(X) {
		sampleSize = len(X)
	}
	maxDepth := 0
	if sampleSize > 1 {
		maxDepth = int(math.Ceil(math.Log2(float64(sampleSize))))
	}

	forest := &IsolationForest{Trees: make([]IsolationTree, cfg.Trees), SampleSize: sampleSize}
	if len(X) == 0 {
		return forest
	}

	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
		sample := rng.Perm(len(X))[:sampleSize]
		b := &isoBuilder{X: X, rng: rng, maxDepth: maxDepth}
		b.grow(sample, 0)
		forest.Trees[t] = IsolationTree{Nodes: b.nodes}
	}

	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = forest.ScoreSample(x)
	}
	forest.Offset = stats.Quantile(cfg.Contamination, scores)
	return forest
}

// ScoreSample returns -2^(-E[h(x)]/c(n)); values near -1 are anomalous
func (f *IsolationForest) ScoreSample(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	total := 0.0
	for i := range f.Trees {
		total += f.Trees[i].pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	c := averagePathLength(f.SampleSize)
	if c == 0 {
		return -0.5
	}
	return -math.Pow(2, -mean/c)
}

// Decision is the score shifted by the offset; negative means anomalous
func (f *IsolationForest) Decision(x []float64) float64 {
	return f.ScoreSample(x) - f.Offset
}

// averagePathLength is the expected path length of an unsuccessful BST search over n points
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

type isoBuilder struct {
	X        [][]float64
	rng      *rand.Rand
	maxDepth int
	nodes    []isoNode
}

func (b *isoBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, isoNode{Feature: -1, Size: len(idx)})
	if depth >= b.maxDepth || len(idx) <= 1 {
		return self
	}

	// only features that still vary inside the node can be cut
	var candidates []int
	lows := make(map[int]float64)
	highs := make(map[int]float64)
	for f := range b.X[idx[0]] {
		lo, hi := b.X[idx[0]][f], b.X[idx[0]][f]
		for _, i := range idx[1:] {
			v := b.X[i][f]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi > lo {
			candidates = append(candidates, f)
			lows[f], highs[f] = lo, hi
		}
	}
	if len(candidates) == 0 {
		return self
	}

	feature := candidates[b.rng.Intn(len(candidates))]
	lo, hi := lows[feature], highs[feature]
	threshold := lo + b.rng.Float64()*(hi-lo)

	var left, right []int
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

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = isoNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}
