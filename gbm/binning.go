package gbm

import (
	"slices"
	"sort"
)

// quantileCuts returns ascending split candidates for one feature. A value
// x falls into bin i where i is the first cut with x <= cuts[i]; values above
// every cut fall into bin len(cuts).
func quantileCuts(values []float64, maxBins int) []float64 {
	uniq := append([]float64(nil), values...)
	sort.Float64s(uniq)
	uniq = slices.Compact(uniq)

	if len(uniq) <= 1 {
		return nil
	}
	if len(uniq) <= maxBins {
		return uniq[:len(uniq)-1]
	}

	cuts := make([]float64, 0, maxBins-1)
	for q := 1; q < maxBins; q++ {
		cuts = append(cuts, uniq[q*len(uniq)/maxBins])
	}
	return slices.Compact(cuts)
}

func binOf(cuts []float64, x float64) uint16 {
	return uint16(sort.SearchFloat64s(cuts, x))
}

// binMatrix stores X column-major as bin indices.
type binMatrix struct {
	cuts  [][]float64
	bins  [][]uint16
	nbins []int
}

func newBinMatrix(X [][]float64, nFeatures, maxBins int) *binMatrix {
	m := &binMatrix{
		cuts:  make([][]float64, nFeatures),
		bins:  make([][]uint16, nFeatures),
		nbins: make([]int, nFeatures),
	}

	col := make([]float64, len(X))
	for f := 0; f < nFeatures; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		cuts := quantileCuts(col, maxBins)
		binned := make([]uint16, len(X))
		for i, v := range col {
			binned[i] = binOf(cuts, v)
		}
		m.cuts[f] = cuts
		m.bins[f] = binned
		m.nbins[f] = len(cuts) + 1
	}
	return m
}
