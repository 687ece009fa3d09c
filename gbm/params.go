// Package gbm is a small gradient-boosted regression tree learner.
//
// Trees are grown depth-first on quantile-binned features using first and
// second order gradients of the squared error, in the style of XGBoost's
// "hist" method. The learner supports row and column subsampling, L2 leaf
// regularisation and monotone constraints.
package gbm

import (
	"fmt"
	"slices"
)

type Params struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	Lambda          float64 `json:"reg_lambda"`
	MinChildWeight  float64 `json:"min_child_weight"`
	MaxBins         int     `json:"max_bins"`
	Seed            uint64  `json:"random_state"`
	Jobs            int     `json:"n_jobs"`

	// Monotone maps a feature name to +1 (prediction never decreases as the
	// feature grows) or -1 (never increases).
	Monotone map[string]int `json:"monotone_constraints,omitempty"`
}

func DefaultParams() Params {
	return Params{
		NEstimators:     600,
		LearningRate:    0.05,
		MaxDepth:        7,
		Subsample:       0.9,
		ColsampleByTree: 0.9,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		MaxBins:         256,
		Seed:            42,
		Jobs:            4,
	}
}

func (p Params) validate(featureNames []string) error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be >= 1, got %d", p.NEstimators)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be > 0, got %v", p.LearningRate)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be >= 1, got %d", p.MaxDepth)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	case p.Lambda < 0:
		return fmt.Errorf("reg_lambda must be >= 0, got %v", p.Lambda)
	case p.MinChildWeight < 0:
		return fmt.Errorf("min_child_weight must be >= 0, got %v", p.MinChildWeight)
	case p.MaxBins < 2 || p.MaxBins > 1<<16-1:
		return fmt.Errorf("max_bins must be in [2, 65535], got %d", p.MaxBins)
	}
	for name, dir := range p.Monotone {
		if !slices.Contains(featureNames, name) {
			return fmt.Errorf("monotone constraint on unknown feature %q", name)
		}
		if dir != 1 && dir != -1 && dir != 0 {
			return fmt.Errorf("monotone constraint on %q must be -1, 0 or 1, got %d", name, dir)
		}
	}
	return nil
}
