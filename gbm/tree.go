package gbm

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// Node is a tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree; x <= Threshold goes left.
func (t Tree) Predict(x []float64) float64 {
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

// parallelMinRows is the node size below which split search stays serial.
const parallelMinRows = 2048

type candidate struct {
	feature int
	bin     int
	gain    float64
	wl, wr  float64
	ok      bool
}

type treeBuilder struct {
	p        Params
	data     *binMatrix
	grad     []float64
	hess     []float64
	features []int
	monotone []int
	nodes    []Node
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0, math.Inf(-1), math.Inf(1))
	return Tree{Nodes: append([]Node(nil), b.nodes...)}
}

// grow adds the subtree for rows and returns its root index. Leaf weights are
// kept inside [lo, hi], which is how monotone constraints propagate down.
func (b *treeBuilder) grow(rows []int, depth int, lo, hi float64) int {
	var G, H float64
	for _, r := range rows {
		G += b.grad[r]
		H += b.hess[r]
	}

	idx := len(b.nodes)
	w := clamp(leafWeight(G, H, b.p.Lambda), lo, hi)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: w * b.p.LearningRate})

	if depth >= b.p.MaxDepth || H < 2*b.p.MinChildWeight {
		return idx
	}

	best := b.bestSplit(rows, G, H, lo, hi)
	if !best.ok {
		return idx
	}

	col := b.data.bins[best.feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if int(col[r]) <= best.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	llo, lhi, rlo, rhi := lo, hi, lo, hi
	switch b.monotone[best.feature] {
	case 1:
		mid := (best.wl + best.wr) / 2
		lhi, rlo = mid, mid
	case -1:
		mid := (best.wl + best.wr) / 2
		llo, rhi = mid, mid
	}

	l := b.grow(left, depth+1, llo, lhi)
	r := b.grow(right, depth+1, rlo, rhi)
	b.nodes[idx] = Node{
		Feature:   best.feature,
		Threshold: b.data.cuts[best.feature][best.bin],
		Left:      l,
		Right:     r,
	}
	return idx
}

func (b *treeBuilder) bestSplit(rows []int, G, H, lo, hi float64) candidate {
	results := make([]candidate, len(b.features))

	if b.p.Jobs > 1 && len(rows) >= parallelMinRows {
		var g errgroup.Group
		g.SetLimit(b.p.Jobs)
		for i, f := range b.features {
			g.Go(func() error {
				results[i] = b.scanFeature(f, rows, G, H, lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, f := range b.features {
			results[i] = b.scanFeature(f, rows, G, H, lo, hi)
		}
	}

	var best candidate
	for _, c := range results {
		if c.ok && (!best.ok || c.gain > best.gain) {
			best = c
		}
	}
	return best
}

const minGain = 1e-12

func (b *treeBuilder) scanFeature(f int, rows []int, G, H, lo, hi float64) candidate {
	nb := b.data.nbins[f]
	if nb < 2 {
		return candidate{}
	}

	hist := make([]float64, 2*nb)
	col := b.data.bins[f]
	for _, r := range rows {
		k := int(col[r])
		hist[2*k] += b.grad[r]
		hist[2*k+1] += b.hess[r]
	}

	lambda := b.p.Lambda
	mcw := b.p.MinChildWeight
	dir := b.monotone[f]
	parent := leafLoss(G, H, lambda, clamp(leafWeight(G, H, lambda), lo, hi))

	best := candidate{feature: f}
	var GL, HL float64
	for k := 0; k < nb-1; k++ {
		GL += hist[2*k]
		HL += hist[2*k+1]
		GR, HR := G-GL, H-HL
		if HL < mcw || HR < mcw || HL == 0 || HR == 0 {
			continue
		}

		wl := clamp(leafWeight(GL, HL, lambda), lo, hi)
		wr := clamp(leafWeight(GR, HR, lambda), lo, hi)
		if (dir > 0 && wl > wr) || (dir < 0 && wl < wr) {
			continue
		}

		gain := parent - leafLoss(GL, HL, lambda, wl) - leafLoss(GR, HR, lambda, wr)
		if gain > minGain && (!best.ok || gain > best.gain) {
			best = candidate{feature: f, bin: k, gain: gain, wl: wl, wr: wr, ok: true}
		}
	}
	return best
}

func leafWeight(G, H, lambda float64) float64 {
	if H+lambda == 0 {
		return 0
	}
	return -G / (H + lambda)
}

// leafLoss is the second order objective of a leaf holding weight w.
func leafLoss(G, H, lambda, w float64) float64 {
	return G*w + 0.5*(H+lambda)*w*w
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
