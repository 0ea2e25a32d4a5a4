package ltr

import "github.com/wonny/ffrank/internal/contracts"

// node is one tree node; leaves carry the (already shrunk) output value
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	leaf      bool
	value     float64
}

// tree is a binary regression tree stored as a flat node slice (root = 0)
type tree struct {
	nodes []node
}

// predict routes x down the tree: x[f] < threshold goes left
func (t *tree) predict(x [contracts.NumFactors]float64) float64 {
	i := 0
	for !t.nodes[i].leaf {
		n := t.nodes[i]
		if x[n.feature] < n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].value
}

// splits counts internal nodes per feature
func (t *tree) splits(counts []int) {
	for _, n := range t.nodes {
		if !n.leaf {
			counts[n.feature]++
		}
	}
}

// minSplitGain is the smallest loss reduction accepted for a split
const minSplitGain = 1e-12

type split struct {
	feature int
	bin     int // rows with bin < split.bin go left
	gain    float64
}

// grower builds one tree over binned features with second-order statistics
type grower struct {
	params   Params
	bins     []featureBins
	binned   [][]int32 // [feature][row]
	grad     []float64
	hess     []float64
	features []int
	nodes    []node
}

func (g *grower) build(rows []int) *tree {
	g.nodes = g.nodes[:0]
	g.grow(rows, 0)
	return &tree{nodes: append([]node(nil), g.nodes...)}
}

func (g *grower) grow(rows []int, depth int) int {
	var sumG, sumH float64
	for _, i := range rows {
		sumG += g.grad[i]
		sumH += g.hess[i]
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, node{})

	if depth < g.params.MaxDepth && len(rows) > 1 {
		if best, ok := g.bestSplit(rows, sumG, sumH); ok {
			left, right := g.partition(rows, best)
			g.nodes[idx] = node{
				feature:   best.feature,
				threshold: g.bins[best.feature].cuts[best.bin-1],
			}
			l := g.grow(left, depth+1)
			r := g.grow(right, depth+1)
			g.nodes[idx].left = l
			g.nodes[idx].right = r
			return idx
		}
	}

	g.nodes[idx] = node{leaf: true, value: g.leafValue(sumG, sumH)}
	return idx
}

// leafValue is the shrunk Newton step -G/(H+λ)·eta
func (g *grower) leafValue(sumG, sumH float64) float64 {
	denom := sumH + g.params.RegLambda
	if denom <= 0 {
		return 0
	}
	return -sumG / denom * g.params.LearningRate
}

func (g *grower) score(sumG, sumH float64) float64 {
	denom := sumH + g.params.RegLambda
	if denom <= 0 {
		return 0
	}
	return sumG * sumG / denom
}

// bestSplit scans every candidate feature histogram; ties keep the first candidate
func (g *grower) bestSplit(rows []int, sumG, sumH float64) (split, bool) {
	best := split{gain: minSplitGain}
	found := false
	parent := g.score(sumG, sumH)

	for _, f := range g.features {
		nb := g.bins[f].numBins()
		if nb < 2 {
			continue
		}

		histG := make([]float64, nb)
		histH := make([]float64, nb)
		col := g.binned[f]
		for _, i := range rows {
			histG[col[i]] += g.grad[i]
			histH[col[i]] += g.hess[i]
		}

		var gl, hl float64
		for k := 1; k < nb; k++ {
			gl += histG[k-1]
			hl += histH[k-1]
			gr, hr := sumG-gl, sumH-hl
			if hl < g.params.MinChildWeight || hr < g.params.MinChildWeight {
				continue
			}
			gain := g.score(gl, hl) + g.score(gr, hr) - parent
			if gain > best.gain {
				best = split{feature: f, bin: k, gain: gain}
				found = true
			}
		}
	}

	return best, found
}

func (g *grower) partition(rows []int, s split) ([]int, []int) {
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	col := g.binned[s.feature]
	for _, i := range rows {
		if int(col[i]) < s.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
