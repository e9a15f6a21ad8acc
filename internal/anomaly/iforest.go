package anomaly

import (
	"errors"
	"math"
	"math/rand"
)

// eulerGamma is the Euler–Mascheroni constant used by the harmonic number approximation
const eulerGamma = 0.5772156649015329

// leaf marks a node without children in Tree.Feature
const leaf = -1

// Tree is one isolation tree stored as parallel node arrays. Node 0 is the
// root; Left and Right index into the same arrays.
type Tree struct {
	Feature   []int
	Threshold []float64
	Left      []int
	Right     []int
	Size      []int
}

func (t *Tree) addNode(size int) int {
	t.Feature = append(t.Feature, leaf)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, leaf)
	t.Right = append(t.Right, leaf)
	t.Size = append(t.Size, size)
	return len(t.Feature) - 1
}

// Nodes returns the number of nodes in the tree
func (t *Tree) Nodes() int {
	return len(t.Feature)
}

// PathLength returns the depth at which x is isolated, adjusted by the
// expected remaining depth of the leaf it lands in
func (t *Tree) PathLength(x []float64) float64 {
	node, depth := 0, 0
	for t.Feature[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
		depth++
	}
	return float64(depth) + AveragePathLength(t.Size[node])
}

// ForestConfig controls forest construction
type ForestConfig struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// ErrNoSamples is returned when fitting a forest on an empty matrix
var ErrNoSamples = errors.New("isolation forest needs at least one sample")

// Forest is an ensemble of isolation trees
type Forest struct {
	Trees      []Tree
	SampleSize int
}

// FitForest builds an isolation forest over rows. Identical config and rows
// always produce an identical forest.
func FitForest(rows [][]float64, cfg ForestConfig) (*Forest, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrNoSamples
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	psi := cfg.SampleSize
	if psi <= 0 || psi > n {
		psi = n
	}

	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))
	rng := rand.New(rand.NewSource(cfg.Seed))

	f := &Forest{Trees: make([]Tree, cfg.Trees), SampleSize: psi}
	b := &builder{rows: rows, rng: rng, maxDepth: maxDepth}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := range f.Trees {
		f.Trees[i] = b.build(drawSample(rng, pool, psi))
	}
	return f, nil
}

// drawSample moves psi distinct random indices to the front of pool with a
// partial Fisher-Yates shuffle and returns them. The result aliases pool and
// is only valid until the next call.
func drawSample(rng *rand.Rand, pool []int, psi int) []int {
	n := len(pool)
	for j := 0; j < psi; j++ {
		k := j + rng.Intn(n-j)
		pool[j], pool[k] = pool[k], pool[j]
	}
	return pool[:psi]
}

// builder grows a single tree using an explicit stack instead of recursion
type builder struct {
	rows     [][]float64
	rng      *rand.Rand
	maxDepth int
}

type pending struct {
	node    int
	depth   int
	indices []int
}

func (b *builder) build(sample []int) Tree {
	var t Tree
	root := t.addNode(len(sample))
	stack := []pending{{node: root, depth: 0, indices: sample}}

	features := len(b.rows[0])
	order := make([]int, features)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.depth >= b.maxDepth || len(p.indices) <= 1 {
			continue
		}

		// Draw features in random order until one is not constant in this node
		for i := range order {
			order[i] = i
		}
		b.rng.Shuffle(features, func(i, j int) { order[i], order[j] = order[j], order[i] })

		feature := leaf
		var lo, hi float64
		for _, f := range order {
			lo, hi = b.bounds(p.indices, f)
			if hi > lo {
				feature = f
				break
			}
		}
		if feature == leaf {
			continue
		}

		threshold := lo + b.rng.Float64()*(hi-lo)

		var left, right []int
		for _, idx := range p.indices {
			if b.rows[idx][feature] <= threshold {
				left = append(left, idx)
			} else {
				right = append(right, idx)
			}
		}

		l := t.addNode(len(left))
		r := t.addNode(len(right))
		t.Feature[p.node] = feature
		t.Threshold[p.node] = threshold
		t.Left[p.node] = l
		t.Right[p.node] = r

		stack = append(stack,
			pending{node: r, depth: p.depth + 1, indices: right},
			pending{node: l, depth: p.depth + 1, indices: left},
		)
	}
	return t
}

func (b *builder) bounds(indices []int, feature int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, idx := range indices {
		v := b.rows[idx][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Score returns the anomaly score of x in (0, 1]. Scores near 1 isolate
// quickly and are anomalous; scores well below 0.5 are normal.
func (f *Forest) Score(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].PathLength(x)
	}
	mean := sum / float64(len(f.Trees))

	c := AveragePathLength(f.SampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

// ScoreAll scores every row
func (f *Forest) ScoreAll(rows [][]float64) []float64 {
	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = f.Score(row)
	}
	return scores
}

// AveragePathLength is c(n), the average path length of an unsuccessful
// search in a binary search tree of n nodes
func AveragePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
