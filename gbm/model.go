package gbm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
)

var ErrFeatureCount = errors.New("gbm: feature vector length does not match model")

// Model is a trained ensemble. It is immutable after Train or Load and safe
// for concurrent Predict calls.
type Model struct {
	FeatureNames []string `json:"feature_names"`
	BaseScore    float64  `json:"base_score"`
	Params       Params   `json:"params"`
	Trees        []Tree   `json:"trees"`
}

// ProgressFunc is called after every boosting round with the training RMSE.
type ProgressFunc func(round int, rmse float64)

// Train fits a model on X (one row per sample, columns ordered as names).
func Train(ctx context.Context, X [][]float64, y []float64, names []string, p Params, progress ProgressFunc) (*Model, error) {
	if len(X) == 0 {
		return nil, errors.New("gbm: empty training set")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("gbm: %d rows but %d targets", len(X), len(y))
	}
	if len(names) == 0 {
		return nil, errors.New("gbm: no feature names")
	}
	for i, row := range X {
		if len(row) != len(names) {
			return nil, fmt.Errorf("gbm: row %d has %d values, want %d", i, len(row), len(names))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("gbm: row %d feature %q is not finite", i, names[j])
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, fmt.Errorf("gbm: target %d is not finite", i)
		}
	}
	if err := p.validate(names); err != nil {
		return nil, fmt.Errorf("gbm: %w", err)
	}

	n, nf := len(X), len(names)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	monotone := make([]int, nf)
	for i, name := range names {
		monotone[i] = p.Monotone[name]
	}

	m := &Model{
		FeatureNames: slices.Clone(names),
		BaseScore:    stat.Mean(y, nil),
		Params:       p,
		Trees:        make([]Tree, 0, p.NEstimators),
	}

	b := &treeBuilder{
		p:        p,
		data:     newBinMatrix(X, nf, p.MaxBins),
		grad:     make([]float64, n),
		hess:     make([]float64, n),
		monotone: monotone,
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.BaseScore
	}

	nRows := max(1, int(math.Round(p.Subsample*float64(n))))
	nCols := max(1, int(math.Round(p.ColsampleByTree*float64(nf))))

	for round := 0; round < p.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range pred {
			b.grad[i] = pred[i] - y[i]
			b.hess[i] = 1
		}

		rows := rng.Perm(n)[:nRows]
		slices.Sort(rows)
		b.features = rng.Perm(nf)[:nCols]
		slices.Sort(b.features)

		tree := b.build(rows)
		m.Trees = append(m.Trees, tree)

		for i, row := range X {
			pred[i] += tree.Predict(row)
		}
		if progress != nil {
			progress(round+1, rmse(pred, y))
		}
	}

	return m, nil
}

func (m *Model) Features() []string {
	return m.FeatureNames
}

func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != len(m.FeatureNames) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(m.FeatureNames))
	}
	out := m.BaseScore
	for _, t := range m.Trees {
		out += t.Predict(x)
	}
	return out, nil
}

func (m *Model) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		v, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (m *Model) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(m)
}

// Load decodes a model written by Save and checks its tree structure.
func Load(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.FeatureNames) == 0 {
		return nil, errors.New("model has no feature names")
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= len(m.FeatureNames) {
				return nil, fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			// children are always appended after their parent
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d: bad child index", ti, ni)
			}
		}
	}
	return &m, nil
}

func rmse(pred, y []float64) float64 {
	var sum float64
	for i := range y {
		d := pred[i] - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}

// MeanAbsoluteError is the average of |pred - y|.
func MeanAbsoluteError(pred, y []float64) float64 {
	diffs := make([]float64, len(y))
	for i := range y {
		diffs[i] = math.Abs(pred[i] - y[i])
	}
	return stat.Mean(diffs, nil)
}
